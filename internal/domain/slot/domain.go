package slot

import (
	"fmt"
	"sort"
	"time"
)

// Record is one bookable (court, date, time-range) unit at a location.
// Built by the normalizer from a raw site label; immutable once created.
type Record struct {
	LocationID   int
	LocationName string
	Date         time.Time // calendar day, midnight local
	CourtNumber  *int      // nil when the label had no recognizable court token
	Start        TimeOfDay
	End          TimeOfDay
	RawLabel     string
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int // 0..23
	Minute int // 0..59
}

func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// String renders the canonical 12-hour form used in keys and rendered
// messages, without a leading zero, e.g. "7:00 PM".
func (t TimeOfDay) String() string {
	h := t.Hour % 12
	if h == 0 {
		h = 12
	}
	mer := "AM"
	if t.Hour >= 12 {
		mer = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute, mer)
}

const DateLayout = "02/01/2006"

// CanonicalLabel is the surface-independent form of the slot label:
// court keyword normalized to "Court", range separator normalized to "-",
// times reformatted. Labels without a court number carry the time range
// alone.
func (r Record) CanonicalLabel() string {
	rng := r.Start.String() + " - " + r.End.String()
	if r.CourtNumber == nil {
		return rng
	}
	return fmt.Sprintf("Court %d %s", *r.CourtNumber, rng)
}

// Key uniquely identifies the bookable unit across runs. Two records that
// differ only in label cosmetics (separator style, keyword case) map to
// the same key.
func (r Record) Key() Key {
	return Key(r.LocationName + " - " + r.Date.Format(DateLayout) + " - " + r.CanonicalLabel())
}

type Key string

// KeySet holds the slot keys observed in one run, with set semantics:
// duplicates within a run collapse.
type KeySet map[Key]struct{}

func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Add(k Key)      { s[k] = struct{}{} }
func (s KeySet) Has(k Key) bool { _, ok := s[k]; return ok }

// Sorted returns the keys in lexicographic order, the form in which the
// set is persisted and rendered.
func (s KeySet) Sorted() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Diff is the set difference between the current run and the previously
// dispatched baseline.
type Diff struct {
	New     KeySet
	Removed KeySet
}

// ObservedState is the only entity with cross-run lifetime: the key set
// included in the most recently dispatched notification and that
// notification's content hash. It is committed only after a successful
// dispatch.
type ObservedState struct {
	Keys     KeySet
	LastHash string
}

func EmptyState() ObservedState {
	return ObservedState{Keys: KeySet{}}
}
