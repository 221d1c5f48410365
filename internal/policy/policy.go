// Package policy maps CRM roles to gate profiles and implements the
// record-level scoping rules (account managers only touch records
// assigned to them).
package policy

import (
	"github.com/wealthempires/crm-server/internal/gate"
	"github.com/wealthempires/crm-server/internal/models"
)

// Resource types registered with the gate.
const (
	ResourceClient    = "client"
	ResourceLead      = "lead"
	ResourceService   = "service"
	ResourceBilling   = "billing"
	ResourceUser      = "user"
	ResourceAnalytics = "analytics"
	ResourceDocument  = "document"
	ResourceInvoice   = "invoice"
)

var roleProfiles = map[string]*gate.RoleProfile{
	models.RoleAdmin: gate.NewRoleProfile(models.RoleAdmin,
		gate.PermissionSuperAdmin,
	),
	models.RoleAccountManager: gate.NewRoleProfile(models.RoleAccountManager,
		gate.NewPermission(ResourceClient, gate.ActionView),
		gate.NewPermission(ResourceClient, gate.ActionList),
		gate.NewPermission(ResourceClient, gate.ActionUpdate),
		gate.NewPermission(ResourceBilling, gate.ActionView),
		gate.NewPermission(ResourceBilling, gate.ActionList),
		gate.NewPermission(ResourceBilling, gate.ActionUpdate),
		gate.NewPermission(ResourceService, gate.ActionView),
		gate.NewPermission(ResourceService, gate.ActionList),
		gate.NewPermission(ResourceService, gate.ActionUpdate),
		gate.NewPermission(ResourceService, gate.ActionAssign),
		gate.NewPermission(ResourceLead, gate.ActionView),
		gate.NewPermission(ResourceLead, gate.ActionList),
		gate.NewPermission(ResourceDocument, gate.ActionView),
		gate.NewPermission(ResourceInvoice, gate.ActionView),
		gate.NewPermission(ResourceAnalytics, gate.ActionView),
	),
	models.RoleSalesStaff: gate.NewRoleProfile(models.RoleSalesStaff,
		gate.Permission(ResourceLead+":"+gate.WildcardAll),
		gate.NewPermission(ResourceClient, gate.ActionView),
		gate.NewPermission(ResourceClient, gate.ActionList),
	),
	models.RoleFillingStaff: gate.NewRoleProfile(models.RoleFillingStaff,
		gate.NewPermission(ResourceService, gate.ActionView),
		gate.NewPermission(ResourceService, gate.ActionList),
		gate.NewPermission(ResourceService, gate.ActionUpdate),
	),
}

// ProfileForRole returns the static profile for a role, or nil for an
// unknown role.
func ProfileForRole(role string) *gate.RoleProfile {
	return roleProfiles[role]
}
