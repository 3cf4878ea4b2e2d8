package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimezone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty defaults to UTC", "", "UTC", false},
		{"whitespace only defaults to UTC", "  ", "UTC", false},
		{"IANA name passes through", "America/New_York", "America/New_York", false},
		{"EST alias", "EST", "America/New_York", false},
		{"lowercase alias", "pst", "America/Los_Angeles", false},
		{"GMT maps to UTC", "GMT", "UTC", false},
		{"surrounding whitespace trimmed", " CST ", "America/Chicago", false},
		{"garbage rejected", "Not/A_Zone", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeTimezone(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConvertToZonePreservesInstant(t *testing.T) {
	instant := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	converted, err := ConvertToZone(instant, "EST")
	require.NoError(t, err)
	assert.True(t, converted.Equal(instant))
	assert.Equal(t, "America/New_York", converted.Location().String())

	_, err = ConvertToZone(instant, "Not/A_Zone")
	require.Error(t, err)
}

func TestFormatInZone(t *testing.T) {
	instant := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// June is daylight time, UTC-4 for New York.
	got, err := FormatInZone(instant, "America/New_York", "")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T08:00:00-04:00", got)

	got, err = FormatInZone(instant, "UTC", "2006-01-02 15:04")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01 12:00", got)
}
