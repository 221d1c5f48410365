package policy

import (
	"context"

	"gorm.io/gorm"

	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/models"
)

// AssignmentPolicy restricts account managers and sales staff to records
// assigned to them. Assignment is stored as the assignee's display name,
// so the check resolves the acting user's name once per call.
type AssignmentPolicy struct {
	db *gorm.DB
}

func NewAssignmentPolicy(db *gorm.DB) *AssignmentPolicy {
	return &AssignmentPolicy{db: db}
}

func (p *AssignmentPolicy) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	var user models.User
	if err := p.db.WithContext(ctx).Select("id", "name", "role").First(&user, userID).Error; err != nil {
		return false
	}
	if user.Role == models.RoleAdmin || user.Role == models.RoleFillingStaff {
		return true
	}

	assignedTo := ""
	switch r := resource.(type) {
	case *models.Client:
		assignedTo = r.AssignedTo
	case *models.Lead:
		assignedTo = r.AssignedTo
	case *models.ServiceRecord:
		assignedTo = r.AssignedTo
	case *models.Billing:
		// billing rows scope through their client's assignment
		var client models.Client
		if err := p.db.WithContext(ctx).Select("id", "assigned_to").First(&client, r.ClientID).Error; err != nil {
			return false
		}
		assignedTo = client.AssignedTo
	default:
		return true
	}

	// unassigned records stay visible to everyone with the permission
	if assignedTo == "" {
		return true
	}
	return assignedTo == user.Name
}

// ScopeList narrows a list query to the acting user's assignments when
// their role requires it. Admins and filling staff see everything.
func ScopeList(ctx context.Context, db *gorm.DB, q *gorm.DB, userID uint) *gorm.DB {
	var user models.User
	if err := db.WithContext(ctx).Select("id", "name", "role").First(&user, userID).Error; err != nil {
		return q.Where("1 = 0")
	}
	switch user.Role {
	case models.RoleAccountManager, models.RoleSalesStaff:
		return q.Where("assigned_to = ? OR assigned_to = ''", user.Name)
	default:
		return q
	}
}
