package utils

import (
	"fmt"
	"strings"
	"time"
)

// Accepted birth datetime layouts. Offsets are honored when present;
// naive timestamps are read as UTC, which is what the chart math expects.
var birthDateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseBirthDateTime parses a birth timestamp from the API. The result is
// always in UTC.
func ParseBirthDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("birth datetime is empty")
	}

	for _, layout := range birthDateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized birth datetime %q, expected RFC3339 or YYYY-MM-DDTHH:MM", s)
}
