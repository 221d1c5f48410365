package validation

import (
	"regexp"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if !emailRegex.MatchString(value) {
		v[field] = "invalid_email"
	}
}

// Phone10 validates the 10-digit phone numbers used throughout the CRM.
// Empty values pass; pair with Required when the field is mandatory.
func Phone10(field, value string, v Violations) {
	if value == "" {
		return
	}
	if len(value) != 10 {
		v[field] = "must_be_10_digits"
		return
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			v[field] = "must_be_10_digits"
			return
		}
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "not_allowed"
}
