package models

import (
	"strings"
	"time"
)

// Service sections match the tabs of the tracking view. IP uses its own
// status vocabulary; everything else shares the default one.
const (
	SectionIncorp = "incorp"
	SectionGST    = "gst"
	SectionITR    = "itr"
	SectionMCA    = "mca"
	SectionIP     = "ip"
)

// Sections in the fixed display order used by the analytics responses.
var Sections = []string{SectionIncorp, SectionGST, SectionITR, SectionMCA, SectionIP}

// ServiceCatalog is the fixed list of offerings shown in lead and client
// forms. FSSAI and ISO are sold but tracked under the incorp section.
var ServiceCatalog = []string{"GST", "ITR", "IP", "MCA", "INCORP", "FSSAI", "ISO"}

// SectionForService maps a catalog tag to its tracking section. Unknown
// tags return "" and are not tracked.
func SectionForService(tag string) string {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "GST":
		return SectionGST
	case "ITR":
		return SectionITR
	case "IP":
		return SectionIP
	case "MCA":
		return SectionMCA
	case "INCORP", "FSSAI", "ISO":
		return SectionIncorp
	default:
		return ""
	}
}

// ServiceRecord is one row per (client, section). Rows are not globally
// unique by client id alone, so deletion is keyed by (client_id, section).
type ServiceRecord struct {
	ID         uint      `gorm:"primaryKey" json:"service_id"`
	ClientID   uint      `gorm:"not null;index:idx_client_section,priority:1" json:"client_id"`
	Client     Client    `gorm:"foreignKey:ClientID" json:"-"`
	Section    string    `gorm:"not null;index:idx_client_section,priority:2" json:"service_type"`
	Period     string    `json:"period"` // e.g. "FY 2025-26", "Q1 2026"
	Status     string    `gorm:"not null" json:"status"`
	Progress   int       `gorm:"not null" json:"progress"` // derived from Status
	Priority   string    `gorm:"not null;default:'low'" json:"priority"`
	AssignedTo string    `gorm:"index" json:"assignedTo"`
	Deadline   time.Time `json:"deadline"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
