package models

import "time"

// Lead is a prospect in the four-stage funnel: new, contact, converted, dropped.
type Lead struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CompanyName string     `gorm:"not null;index" json:"company_name"`
	OwnerName   string     `json:"owner_name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Services    StringList `gorm:"type:text" json:"services"`
	StageStatus string     `gorm:"not null;default:'new';index" json:"stage_status"`
	LastContact time.Time  `json:"last_contact"`
	AssignedTo  string     `gorm:"index" json:"assigned_to"` // sales staff display name
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
