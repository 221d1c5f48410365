package models

import "time"

// Document is a stored client attachment (onboarding uploads).
type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClientID    uint      `gorm:"not null;index" json:"client_id"`
	Category    string    `json:"category"` // e.g. "pan", "incorporation_deed"
	Description string    `json:"description"`
	Name        string    `json:"name"` // original filename
	Path        string    `json:"-"`    // disk path, never exposed
	MimeType    string    `json:"mime_type"`
	UploadedBy  uint      `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
