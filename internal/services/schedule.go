package services

import (
	"fmt"
	"strings"
	"time"
)

var isoScheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var spacedScheduleLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02 3:04PM",
	"02/01/2006 15:04",
	"Jan 2, 2006 15:04",
	"January 2, 2006 3:04 PM",
}

// ParseSchedule combines a date and a time of day into one instant. The ISO form
// "<date>T<time>" is tried first, then a space-joined form. Times without a zone are UTC.
func ParseSchedule(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("date and time are required: %w", ErrInvalidInput)
	}

	combined := date + "T" + clock
	for _, layout := range isoScheduleLayouts {
		if t, err := time.Parse(layout, combined); err == nil {
			return t.UTC(), nil
		}
	}

	spaced := date + " " + clock
	for _, layout := range spacedScheduleLayouts {
		if t, err := time.Parse(layout, spaced); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q and time %q: %w", date, clock, ErrInvalidInput)
}
