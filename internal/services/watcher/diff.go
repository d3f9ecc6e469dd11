package watcher

import "github.com/courtwatch/courtwatch/internal/domain/slot"

// ComputeDiff returns the keys that appeared and the keys that vanished
// relative to the previously dispatched baseline. Ordering is imposed
// downstream by the composer, not here.
func ComputeDiff(current, previous slot.KeySet) slot.Diff {
	d := slot.Diff{New: slot.KeySet{}, Removed: slot.KeySet{}}
	for k := range current {
		if !previous.Has(k) {
			d.New.Add(k)
		}
	}
	for k := range previous {
		if !current.Has(k) {
			d.Removed.Add(k)
		}
	}
	return d
}
