package slotparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

var day = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCourtNumber(t *testing.T) {
	tests := []struct {
		label string
		want  *int
	}{
		{"Court 1 06:00 PM to 07:00 PM", ptr(1)},
		{"Gelanggang 2 06:00 PM to 07:00 PM", ptr(2)},
		{"GELANGGANG 12 7:00 PM - 9:00 PM", ptr(12)},
		{"court3 7:00 PM - 9:00 PM", ptr(3)},
		{"Badminton Hall 7:00 PM - 9:00 PM", nil},
	}
	for _, tt := range tests {
		got := CourtNumber(tt.label)
		if tt.want == nil {
			assert.Nil(t, got, tt.label)
		} else {
			require.NotNil(t, got, tt.label)
			assert.Equal(t, *tt.want, *got, tt.label)
		}
	}
}

func TestTimeRange_SeparatorVariants(t *testing.T) {
	for _, label := range []string{
		"Court 1 7:00 PM - 9:00 PM",
		"Court 1 7:00 PM to 9:00 PM",
		"Court 1 07:00 PM TO 09:00 PM",
		"Court 1 7:00 pm-9:00 pm",
	} {
		start, end, err := TimeRange(label)
		require.NoError(t, err, label)
		assert.Equal(t, slot.TimeOfDay{Hour: 19}, start, label)
		assert.Equal(t, slot.TimeOfDay{Hour: 21}, end, label)
	}
}

func TestTimeRange_Noon_Midnight(t *testing.T) {
	start, end, err := TimeRange("Court 4 12:00 PM - 12:30 PM")
	require.NoError(t, err)
	assert.Equal(t, 12, start.Hour)
	assert.Equal(t, slot.TimeOfDay{Hour: 12, Minute: 30}, end)

	start, _, err = TimeRange("Court 4 12:00 AM - 1:00 AM")
	require.NoError(t, err)
	assert.Equal(t, 0, start.Hour)
}

func TestTimeRange_Errors(t *testing.T) {
	_, _, err := TimeRange("Court 1 open all day")
	assert.ErrorIs(t, err, ErrNoTimeRange)

	_, _, err = TimeRange("Court 1 19:00 PM - 21:00 PM")
	assert.ErrorIs(t, err, ErrBadTime)
}

func TestParse_KeyStableAcrossSurfaceVariation(t *testing.T) {
	a, err := Parse("Court 1 7:00 PM to 8:00 PM", 9, "Bangsar", day)
	require.NoError(t, err)
	b, err := Parse("COURT 1 07:00 PM - 08:00 PM", 9, "Bangsar", day)
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, slot.Key("Bangsar - 01/01/2025 - Court 1 7:00 PM - 8:00 PM"), a.Key())
}

func TestParse_NoCourtKeepsSlot(t *testing.T) {
	rec, err := Parse("Hall A 7:00 PM - 9:00 PM", 7, "TTDI", day)
	require.NoError(t, err)
	assert.Nil(t, rec.CourtNumber)
	assert.Equal(t, slot.Key("TTDI - 01/01/2025 - 7:00 PM - 9:00 PM"), rec.Key())
}

func ptr(n int) *int { return &n }
