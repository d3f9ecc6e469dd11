package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

func rec(locID int, locName string, court *int, startHour, startMin int) slot.Record {
	return slot.Record{
		LocationID:   locID,
		LocationName: locName,
		Date:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CourtNumber:  court,
		Start:        slot.TimeOfDay{Hour: startHour, Minute: startMin},
		End:          slot.TimeOfDay{Hour: startHour + 1, Minute: startMin},
	}
}

func intp(n int) *int { return &n }

func TestWindowBoundaries(t *testing.T) {
	f := NewFilter(Window{StartHour: 19, EndHour: 23}, nil)

	assert.True(t, f.Keep(rec(1, "A", intp(1), 19, 0)), "lower bound is inclusive")
	assert.False(t, f.Keep(rec(1, "A", intp(1), 23, 0)), "upper bound is exclusive")
	assert.False(t, f.Keep(rec(1, "A", intp(1), 18, 59)), "one minute before lower bound")
	assert.True(t, f.Keep(rec(1, "A", intp(1), 22, 59)))
}

func TestWindowIsConfigured(t *testing.T) {
	f := NewFilter(Window{StartHour: 20, EndHour: 22}, nil)

	assert.False(t, f.Keep(rec(1, "A", intp(1), 19, 0)))
	assert.True(t, f.Keep(rec(1, "A", intp(1), 20, 0)))
}

func TestIgnoreListIsPerLocation(t *testing.T) {
	f := NewFilter(Window{StartHour: 19, EndHour: 23}, map[int][]int{
		1: {5, 6},
	})

	assert.False(t, f.Keep(rec(1, "A", intp(5), 20, 0)), "court 5 ignored at location 1")
	assert.True(t, f.Keep(rec(2, "B", intp(5), 20, 0)), "court 5 allowed at location 2")
	assert.True(t, f.Keep(rec(1, "A", intp(4), 20, 0)))
}

func TestIgnoreListNeverDropsUnknownCourt(t *testing.T) {
	f := NewFilter(Window{StartHour: 19, EndHour: 23}, map[int][]int{
		1: {1, 2, 3, 4, 5},
	})

	assert.True(t, f.Keep(rec(1, "A", nil, 20, 0)))
}
