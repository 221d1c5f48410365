package models

import "time"

// Billing is the payment ledger row, one per client. Status follows the
// unpaid/partial/paid/dues classification; DueAmount is always
// max(0, TotalAmount-AmountPaid) after a payment write.
type Billing struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ClientID      uint      `gorm:"not null;uniqueIndex" json:"client_id"`
	Client        Client    `gorm:"foreignKey:ClientID" json:"-"`
	InvoiceNumber string    `gorm:"index" json:"invoice_number"`
	TotalAmount   float64   `gorm:"not null" json:"total_amount"`
	AmountPaid    float64   `gorm:"not null" json:"amount_paid"`
	DueAmount     float64   `gorm:"not null" json:"due_amount"`
	Status        string    `gorm:"not null;default:'unpaid';index" json:"status"`
	Progress      float64   `json:"progress"` // payment completion percent
	PaymentMethod string    `json:"payment_mode"`
	Deadline      time.Time `json:"due_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
