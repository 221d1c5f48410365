package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// The legacy schema stores list columns as JSON-encoded text and every view
// used to re-parse them ad hoc. StringList and ShareholderList move that
// parsing to the scan boundary: the column is decoded exactly once into a
// typed value, and written back as JSON on save.

type StringList []string

func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode list column: %w", err)
	}
	*l = out
	return nil
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Shareholder is a name/percent pair captured during incorporation onboarding.
type Shareholder struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

type ShareholderList []Shareholder

func (l *ShareholderList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ShareholderList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []Shareholder
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode shareholders column: %w", err)
	}
	*l = out
	return nil
}

func (l ShareholderList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Shareholder(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

var ErrPercentOutOfRange = errors.New("shareholder percent out of range")

// Validate rejects percents outside (0, 100].
func (l ShareholderList) Validate() error {
	for _, s := range l {
		if s.Percent <= 0 || s.Percent > 100 {
			return ErrPercentOutOfRange
		}
	}
	return nil
}
