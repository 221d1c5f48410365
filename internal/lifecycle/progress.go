package lifecycle

import (
	"math"
	"time"
)

// Two status vocabularies exist: IP registrations track the trademark
// office's stages, everything else shares the generic filing flow. Progress
// is a fixed function of status; operators pick the status, never the
// percentage.

var defaultProgress = map[string]int{
	"started":       10,
	"documentation": 33,
	"filling":       67,
	"approval":      100,
}

var ipProgress = map[string]int{
	"Filed":      15,
	"Inprocess":  33,
	"Objected":   67,
	"Registered": 100,
}

var defaultStatusOrder = []string{"started", "documentation", "filling", "approval"}
var ipStatusOrder = []string{"Filed", "Inprocess", "Objected", "Registered"}

// SectionIP is the one section with its own vocabulary.
const SectionIP = "ip"

// StatusOptions returns the fixed dropdown choices for a service section.
func StatusOptions(section string) []string {
	if section == SectionIP {
		return append([]string(nil), ipStatusOrder...)
	}
	return append([]string(nil), defaultStatusOrder...)
}

// ValidStatus reports whether status belongs to the section's vocabulary.
func ValidStatus(section, status string) bool {
	if section == SectionIP {
		_, ok := ipProgress[status]
		return ok
	}
	_, ok := defaultProgress[status]
	return ok
}

// ProgressFor maps a status to its fixed percentage. Unknown statuses map
// to 0, mirroring the old dropdown fallback.
func ProgressFor(section, status string) int {
	if section == SectionIP {
		return ipProgress[status]
	}
	return defaultProgress[status]
}

// Complete reports whether a status is the terminal 100% one.
func Complete(section, status string) bool {
	return ProgressFor(section, status) == 100
}

// Priority levels derived from deadline proximity.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DaysLeft is the ceiling of the time remaining until deadline in days.
func DaysLeft(deadline, today time.Time) int {
	return int(math.Ceil(deadline.Sub(today).Hours() / 24))
}

// PriorityFor recomputes urgency whenever deadline or assignment changes:
// high under 5 days, medium under 15, low otherwise.
func PriorityFor(deadline, today time.Time) string {
	daysLeft := DaysLeft(deadline, today)
	switch {
	case daysLeft < 5:
		return PriorityHigh
	case daysLeft < 15:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
