package domain

import (
	"fmt"
	"time"
)

// All timestamps the engine writes are local wall-clock strings, computed in
// Go and passed to the store explicitly. Relying on the database's own "now"
// resolves in the store's timezone context and misattributes late-night
// entries to the wrong day.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

func FormatDate(t time.Time) string {
	return t.Local().Format(DateLayout)
}

func FormatDateTime(t time.Time) string {
	return t.Local().Format(DateTimeLayout)
}

// ParseDate interprets a YYYY-MM-DD string as local midnight. A naive UTC
// parse shifts the date backward in western timezones.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
