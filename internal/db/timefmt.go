package db

import (
	"fmt"
	"time"
)

// TimeLayout is fixed width so stored timestamps sort lexically and
// round-trip at microsecond precision.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads TimeLayout and falls back to RFC 3339 for rows written by
// other tools.
func ParseTime(v string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
		}
	}
	return t.UTC(), nil
}
