package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekStartFor(t *testing.T) {
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday midnight maps to itself", monday},
		{"monday evening", time.Date(2026, 8, 24, 23, 59, 0, 0, time.UTC)},
		{"midweek", time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)},
		{"sunday belongs to the preceding monday", time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, monday, WeekStartFor(tt.in))
		})
	}

	next := WeekStartFor(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, monday.AddDate(0, 0, 7), next)
}

func TestWeekStartForNormalizesZone(t *testing.T) {
	zone := time.FixedZone("UTC+10", 10*3600)
	// Monday 02:00 +10 is still Sunday in UTC.
	in := time.Date(2026, 8, 31, 2, 0, 0, 0, zone)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), WeekStartFor(in))
}
