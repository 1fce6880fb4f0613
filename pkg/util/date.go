package util

import (
	"fmt"
	"strings"
	"time"
)

// SpaceLayout is the "date time" convention without an offset, read as UTC.
const SpaceLayout = "2006-01-02 15:04:05"

// DateLayout is a bare calendar date.
const DateLayout = "2006-01-02"

// ISOLayoutUTC formats instants the way normalized files store them.
const ISOLayoutUTC = "2006-01-02T15:04:05-07:00"

// isoLayouts are tried in order; layouts without a zone parse as UTC.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseTimestampUTC parses a stored timestamp and returns it in UTC.
// A value without 'T' but with a space must be SpaceLayout; anything else is ISO-8601.
func ParseTimestampUTC(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if !strings.Contains(v, "T") && strings.Contains(v, " ") {
		t, err := time.Parse(SpaceLayout, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
		}
		return t.UTC(), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", v)
}

// ParseDateUTC accepts SpaceLayout or DateLayout, both read as UTC.
func ParseDateUTC(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	for _, layout := range []string{SpaceLayout, DateLayout} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported datetime format: %s", v)
}

// FormatISOUTC renders t in UTC with an explicit +00:00 offset.
func FormatISOUTC(t time.Time) string {
	return t.UTC().Format(ISOLayoutUTC)
}
