package calendar

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinutesToTime_RoundTripsEveryClock(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			clock := fmt.Sprintf("%02d:%02d", h, m)
			require.Equal(t, clock, MinutesToTime(TimeToMinutes(clock)))
		}
	}
}

func TestMinutesToTime_DoesNotClamp(t *testing.T) {
	assert.Equal(t, "25:30", MinutesToTime(25*60+30))
	assert.Equal(t, "00:05", MinutesToTime(5))
}

func TestTimeToMinutes_Malformed(t *testing.T) {
	for _, in := range []string{"", "9", "ab:cd", "12:xx", "noon"} {
		assert.Zero(t, TimeToMinutes(in), in)
		_, err := ParseClock(in)
		assert.Error(t, err, in)
	}
}

func TestParseClock_AcceptsSeconds(t *testing.T) {
	m, err := ParseClock("08:30:00")
	require.NoError(t, err)
	assert.Equal(t, 510, m)
}

func TestDepartureTime(t *testing.T) {
	tests := []struct {
		start  string
		travel int
		want   string
	}{
		{"09:00", 0, "09:00"},
		{"09:00", -5, "09:00"},
		{"09:00", 30, "08:30"},
		{"00:10", 30, "00:00"},
		{"", 30, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DepartureTime(tt.start, tt.travel), "%s-%d", tt.start, tt.travel)
	}
}

func TestGrid_TimeSlots(t *testing.T) {
	slots := DefaultGrid.TimeSlots()

	require.Len(t, slots, 16*4+1)
	assert.Equal(t, TimeSlot{Time: "05:00", DisplayTime: "05:00"}, slots[0])
	assert.Equal(t, "05:15", slots[1].Time)
	assert.Equal(t, "21:00", slots[len(slots)-1].Time)
}

func TestGrid_TimeSlotsFollowConfiguration(t *testing.T) {
	g := Grid{StartHour: 8, EndHour: 10, SlotMinutes: 30, PxPerSlot: 20}

	slots := g.TimeSlots()

	require.Len(t, slots, 5)
	assert.Equal(t, "08:30", slots[1].Time)
}

func TestGrid_Geometry(t *testing.T) {
	g := DefaultGrid

	assert.Equal(t, 0.0, g.Offset(5*60))
	assert.Equal(t, 128.0, g.Offset(6*60))
	assert.Equal(t, 256.0, g.Height(120))

	assert.Equal(t, 1, g.Row(5*60))
	assert.Equal(t, 21, g.Row(10*60))
	assert.Equal(t, 1, g.Row(3*60), "rows before the work day floor at 1")

	assert.Equal(t, 8, g.Span(120))
	assert.Equal(t, 2, g.Span(16))
	assert.Equal(t, 1, g.Span(0))
	assert.Equal(t, 1, g.Span(-30))

	row, span := g.Position(10*60, 120)
	assert.Equal(t, 21, row)
	assert.Equal(t, 8, span)
}

func TestGrid_Quantization(t *testing.T) {
	g := DefaultGrid

	assert.Equal(t, 15, g.MinutesForPixels(20))
	assert.Equal(t, 0, g.MinutesForPixels(15))
	assert.Equal(t, -30, g.MinutesForPixels(-60))
	assert.Equal(t, 30, g.Quantize(37))
	assert.Equal(t, 45, g.Quantize(38))
}

func TestGrid_PixelDragsLandOnSlots(t *testing.T) {
	g := DefaultGrid

	for px := -200.0; px <= 200; px += 3.5 {
		minutes := g.MinutesForPixels(px)
		assert.Zero(t, minutes%g.SlotMinutes, "px %v gave %d", px, minutes)
		assert.Equal(t, g.Quantize(int(math.Round(px/g.PxPerSlot*float64(g.SlotMinutes)))), minutes, "px %v", px)
	}
}

func TestGrid_Validate(t *testing.T) {
	assert.NoError(t, DefaultGrid.Validate())
	assert.Error(t, Grid{StartHour: 10, EndHour: 9, SlotMinutes: 15, PxPerSlot: 32}.Validate())
	assert.Error(t, Grid{StartHour: 5, EndHour: 21, SlotMinutes: 7, PxPerSlot: 32}.Validate())
	assert.Error(t, Grid{StartHour: 5, EndHour: 21, SlotMinutes: 15}.Validate())
}

func TestGrid_Contains(t *testing.T) {
	assert.True(t, DefaultGrid.Contains(5*60))
	assert.True(t, DefaultGrid.Contains(21*60))
	assert.False(t, DefaultGrid.Contains(21*60+1))
	assert.False(t, DefaultGrid.Contains(4*60+59))
}
