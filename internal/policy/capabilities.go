package policy

import (
	"context"

	"github.com/wealthempires/crm-server/internal/gate"
)

// EntityCapabilities is the per-resource slice of the capability object.
type EntityCapabilities struct {
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanEdit   bool `json:"can_edit"`
	CanAssign bool `json:"can_assign"`
	CanDelete bool `json:"can_delete"`
}

// Capabilities is computed once at login and handed to the client so the
// UI can hide what the server would reject anyway. The server still
// enforces every mutation through the gate.
type Capabilities struct {
	Clients   EntityCapabilities `json:"clients"`
	Leads     EntityCapabilities `json:"leads"`
	Services  EntityCapabilities `json:"services"`
	Billing   EntityCapabilities `json:"billing"`
	Users     EntityCapabilities `json:"users"`
	Analytics bool               `json:"analytics"`
}

func entityCaps(ctx context.Context, g *gate.Gate, userID uint, resourceType string) EntityCapabilities {
	return EntityCapabilities{
		CanView:   g.CanProfile(ctx, userID, gate.ActionView, resourceType),
		CanCreate: g.CanProfile(ctx, userID, gate.ActionCreate, resourceType),
		CanEdit:   g.CanProfile(ctx, userID, gate.ActionUpdate, resourceType),
		CanAssign: g.CanProfile(ctx, userID, gate.ActionAssign, resourceType),
		CanDelete: g.CanProfile(ctx, userID, gate.ActionDelete, resourceType),
	}
}

// BuildCapabilities assembles the capability object for one user.
func BuildCapabilities(ctx context.Context, g *gate.Gate, userID uint) Capabilities {
	return Capabilities{
		Clients:   entityCaps(ctx, g, userID, ResourceClient),
		Leads:     entityCaps(ctx, g, userID, ResourceLead),
		Services:  entityCaps(ctx, g, userID, ResourceService),
		Billing:   entityCaps(ctx, g, userID, ResourceBilling),
		Users:     entityCaps(ctx, g, userID, ResourceUser),
		Analytics: g.CanProfile(ctx, userID, gate.ActionView, ResourceAnalytics),
	}
}
