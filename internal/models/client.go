package models

import "time"

// Client entity: one company under management.
type Client struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CompanyName  string          `gorm:"not null;index" json:"company_name"`
	BusinessType string          `json:"business_type"`
	OwnerName    string          `json:"owner_name"`
	CompanyEmail string          `gorm:"index" json:"company_email"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	PAN          string          `json:"pan"`
	GSTIN        string          `json:"gstin"`
	ROC          string          `json:"roc"`                                     // incorporation cases only
	Status       string          `gorm:"not null;default:'active'" json:"status"` // active, inactive
	Services     StringList      `gorm:"type:text" json:"services"`
	Shareholders ShareholderList `gorm:"type:text" json:"shareholders"`
	Revenue      float64         `json:"revenue"`
	AssignedTo   string          `gorm:"index" json:"assignedTo"` // account manager display name
	LastContact  time.Time       `json:"last_contact"`
	Documents    []Document      `gorm:"foreignKey:ClientID" json:"documents,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
