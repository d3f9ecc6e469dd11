package watcher

import "github.com/courtwatch/courtwatch/internal/domain/slot"

// Window is the time-of-day range a slot's start must fall in to be
// reported. The bound semantics are [StartHour, EndHour) on the start
// hour.
type Window struct {
	StartHour int
	EndHour   int
}

func (w Window) Contains(t slot.TimeOfDay) bool {
	return t.Hour >= w.StartHour && t.Hour < w.EndHour
}

// Filter applies both pure predicates: notify window and per-location
// ignored courts. Failing either drops the slot silently.
type Filter struct {
	window  Window
	ignored map[int]map[int]struct{} // location id -> court numbers
}

func NewFilter(window Window, ignoredCourts map[int][]int) *Filter {
	ignored := make(map[int]map[int]struct{}, len(ignoredCourts))
	for locID, courts := range ignoredCourts {
		set := make(map[int]struct{}, len(courts))
		for _, c := range courts {
			set[c] = struct{}{}
		}
		ignored[locID] = set
	}
	return &Filter{window: window, ignored: ignored}
}

func (f *Filter) Keep(rec slot.Record) bool {
	if !f.window.Contains(rec.Start) {
		return false
	}
	// A slot without a court number is never excluded by the
	// ignore-list.
	if rec.CourtNumber == nil {
		return true
	}
	set, ok := f.ignored[rec.LocationID]
	if !ok {
		return true
	}
	_, ignore := set[*rec.CourtNumber]
	return !ignore
}
