package utils

import (
	"fmt"
	"strings"
	"time"
)

// Common aliases and legacy abbreviations mapped onto IANA identifiers.
var timezoneAliases = map[string]string{
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"GMT": "UTC",
	"Z":   "UTC",
}

// NormalizeTimezone resolves a user-supplied timezone identifier to a valid
// IANA name. Empty input resolves to UTC.
func NormalizeTimezone(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "UTC", nil
	}
	if canonical, ok := timezoneAliases[strings.ToUpper(tz)]; ok {
		tz = canonical
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return tz, nil
}

// ConvertToZone returns the same instant expressed in the given timezone.
func ConvertToZone(t time.Time, tz string) (time.Time, error) {
	normalized, err := NormalizeTimezone(tz)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := time.LoadLocation(normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return t.In(loc), nil
}

// FormatInZone formats an instant in the given timezone using the supplied
// layout (RFC3339 when layout is empty).
func FormatInZone(t time.Time, tz string, layout string) (string, error) {
	converted, err := ConvertToZone(t, tz)
	if err != nil {
		return "", err
	}
	if layout == "" {
		layout = time.RFC3339
	}
	return converted.Format(layout), nil
}
