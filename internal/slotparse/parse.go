// Package slotparse normalizes the heterogeneous slot labels the booking
// sites publish ("Court 1 07:00 PM to 09:00 PM", "GELANGGANG 2 7:00 PM -
// 9:00 PM") into structured records.
package slotparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

var (
	// ErrNoTimeRange means the label carries no recognizable
	// "HH:MM AM/PM .. HH:MM AM/PM" pattern.
	ErrNoTimeRange = errors.New("no time range in label")
	// ErrBadTime means a time token matched but is not a valid clock
	// reading.
	ErrBadTime = errors.New("malformed time")
)

var (
	courtRe = regexp.MustCompile(`(?i)(?:court|gelanggang)\s*(\d+)`)
	toSepRe = regexp.MustCompile(`(?i)\s+to\s+`)
	rangeRe = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*([AP])M\s*-\s*(\d{1,2}):(\d{2})\s*([AP])M`)
)

// CourtNumber extracts the first integer following a court keyword.
// Labels without one yield nil; the slot is still kept and sorts last
// downstream.
func CourtNumber(label string) *int {
	m := courtRe.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// TimeRange extracts the start and end times, tolerating both "-" and the
// word "to" as separators, any case.
func TimeRange(label string) (start, end slot.TimeOfDay, err error) {
	m := rangeRe.FindStringSubmatch(toSepRe.ReplaceAllString(label, " - "))
	if m == nil {
		return start, end, fmt.Errorf("label %q: %w", label, ErrNoTimeRange)
	}
	if start, err = clockFrom(m[1], m[2], m[3]); err != nil {
		return start, end, fmt.Errorf("label %q: %w", label, err)
	}
	if end, err = clockFrom(m[4], m[5], m[6]); err != nil {
		return start, end, fmt.Errorf("label %q: %w", label, err)
	}
	return start, end, nil
}

func clockFrom(hh, mm, meridiem string) (slot.TimeOfDay, error) {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h < 1 || h > 12 || m > 59 {
		return slot.TimeOfDay{}, fmt.Errorf("%s:%s %sM: %w", hh, mm, meridiem, ErrBadTime)
	}
	if h == 12 {
		h = 0
	}
	if meridiem == "P" || meridiem == "p" {
		h += 12
	}
	return slot.TimeOfDay{Hour: h, Minute: m}, nil
}

// Parse normalizes one raw label into a Record for the given location
// and calendar day.
func Parse(label string, locationID int, locationName string, day time.Time) (slot.Record, error) {
	start, end, err := TimeRange(label)
	if err != nil {
		return slot.Record{}, err
	}
	return slot.Record{
		LocationID:   locationID,
		LocationName: locationName,
		Date:         day,
		CourtNumber:  CourtNumber(label),
		Start:        start,
		End:          end,
		RawLabel:     label,
	}, nil
}
