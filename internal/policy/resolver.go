package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/models"
)

// DBResolver loads a user's role from the database and maps it to a
// static profile.
type DBResolver struct {
	db *gorm.DB
}

func NewDBResolver(db *gorm.DB) *DBResolver {
	return &DBResolver{db: db}
}

func (r *DBResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "role").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gate.ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve user %d: %w", userID, err)
	}
	profile := ProfileForRole(user.Role)
	if profile == nil {
		return nil, gate.ErrUnauthorized
	}
	return profile, nil
}

// NewGate wires the standard CRM gate: DB role resolution behind a
// short TTL cache, plus the record-level scoping policies.
func NewGate(db *gorm.DB) *gate.Gate {
	resolver := gate.NewCachedResolver(NewDBResolver(db), 5*time.Minute)
	g := gate.New(resolver)
	scope := NewAssignmentPolicy(db)
	g.Register(ResourceClient, scope)
	g.Register(ResourceLead, scope)
	g.Register(ResourceService, scope)
	g.Register(ResourceBilling, scope)
	return g
}
