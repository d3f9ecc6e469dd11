package watcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

func TestComputeDiff(t *testing.T) {
	current := slot.NewKeySet("a", "b", "c")
	previous := slot.NewKeySet("b", "c", "d")

	d := ComputeDiff(current, previous)

	assert.Equal(t, []slot.Key{"a"}, d.New.Sorted())
	assert.Equal(t, []slot.Key{"d"}, d.Removed.Sorted())
}

func TestComputeDiff_EmptyBaselineMakesEverythingNew(t *testing.T) {
	current := slot.NewKeySet("a", "b")

	d := ComputeDiff(current, slot.KeySet{})

	assert.Equal(t, []slot.Key{"a", "b"}, d.New.Sorted())
	assert.Empty(t, d.Removed)
}

// current = (previous − removed) ∪ new, and new ∩ removed = ∅.
func TestComputeDiff_Algebra(t *testing.T) {
	current := slot.NewKeySet("a", "b", "c", "e")
	previous := slot.NewKeySet("b", "c", "d", "f")

	d := ComputeDiff(current, previous)

	rebuilt := slot.KeySet{}
	for k := range previous {
		if !d.Removed.Has(k) {
			rebuilt.Add(k)
		}
	}
	for k := range d.New {
		rebuilt.Add(k)
	}
	assert.Equal(t, current.Sorted(), rebuilt.Sorted())

	for k := range d.New {
		assert.False(t, d.Removed.Has(k))
	}
}

func TestComputeDiff_IdenticalSetsAreQuiet(t *testing.T) {
	s := slot.NewKeySet("a", "b")

	d := ComputeDiff(s, slot.NewKeySet("a", "b"))

	assert.Empty(t, d.New)
	assert.Empty(t, d.Removed)
}
