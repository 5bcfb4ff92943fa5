package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type RecurrenceType string

const (
	RecurrenceDaily  RecurrenceType = "daily"
	RecurrenceWeekly RecurrenceType = "weekly"
	RecurrenceCustom RecurrenceType = "custom"
)

// RecurrencePattern is a closed sum over the three recurrence kinds. Daily
// matches every date, weekly matches when the date's weekday is in Days
// (0=Sunday .. 6=Saturday). Custom is rejected at creation time.
type RecurrencePattern struct {
	Type RecurrenceType `json:"type"`
	Days []int          `json:"days,omitempty"`
}

func (p *RecurrencePattern) Validate() error {
	switch p.Type {
	case RecurrenceDaily:
		return nil
	case RecurrenceWeekly:
		if len(p.Days) == 0 {
			return fmt.Errorf("weekly recurrence needs at least one day: %w", ErrInvalidRecurrence)
		}
		for _, d := range p.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("weekly recurrence day %d out of range: %w", d, ErrInvalidRecurrence)
			}
		}
		return nil
	case RecurrenceCustom:
		return ErrUnsupportedRecurrence
	default:
		return fmt.Errorf("unknown recurrence type %q: %w", p.Type, ErrInvalidRecurrence)
	}
}

// Matches reports whether the pattern generates an instance on the given
// local date.
func (p *RecurrencePattern) Matches(date time.Time) bool {
	switch p.Type {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		weekday := int(date.Weekday())
		for _, d := range p.Days {
			if d == weekday {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (p *RecurrencePattern) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode recurrence: %w", err)
	}
	return string(data), nil
}

func DecodeRecurrence(raw string) (*RecurrencePattern, error) {
	if raw == "" {
		return nil, nil
	}
	var p RecurrencePattern
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode recurrence: %w", err)
	}
	return &p, nil
}
