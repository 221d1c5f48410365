package models

import "time"

// Roles recognized by the capability gate.
const (
	RoleAdmin          = "admin"
	RoleAccountManager = "account_manager"
	RoleSalesStaff     = "sales_staff"
	RoleFillingStaff   = "filling_staff"
)

var Roles = []string{RoleAdmin, RoleAccountManager, RoleSalesStaff, RoleFillingStaff}

// User is a team member. Password stays empty until the invite flow's
// set-password step completes.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Email     string    `gorm:"unique;not null;index" json:"email"`
	Password  string    `gorm:"column:password" json:"-"` // bcrypt hash
	Role      string    `gorm:"not null;index" json:"role"`
	Team      string    `gorm:"index" json:"team"` // e.g. "GST Team"
	Status    string    `gorm:"default:'offline'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
