// Package calendar holds the day-grid arithmetic of the planning board:
// clock strings, minute offsets, slot rows and pixel positions, the job view
// model derived from a persisted job, and per-driver conflict detection.
package calendar

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// MinutesPerDay is the length of a calendar day in minutes.
const MinutesPerDay = 24 * 60

// ParseClock parses an "HH:MM" clock string into minutes since 00:00.
func ParseClock(clock string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, errors.Newf("clock %q: missing ':'", clock)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, errors.Wrapf(err, "clock %q: hours", clock)
	}
	// Tolerate a trailing seconds field ("HH:MM:SS") as returned by some stores.
	mm, _, _ = strings.Cut(mm, ":")
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, errors.Wrapf(err, "clock %q: minutes", clock)
	}
	return h*60 + m, nil
}

// TimeToMinutes converts "HH:MM" into minutes since 00:00. Malformed input
// yields 0.
func TimeToMinutes(clock string) int {
	m, err := ParseClock(clock)
	if err != nil {
		return 0
	}
	return m
}

// MinutesToTime formats minutes since 00:00 as a zero-padded "HH:MM". Values
// past 1440 are not wrapped; day-boundary handling is up to the caller.
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidClock reports whether clock is a well-formed time of day.
func ValidClock(clock string) bool {
	_, err := time.Parse("15:04", clock)
	return err == nil
}

// DepartureTime returns start minus travel, floored at 00:00. Without travel
// time the start is returned unchanged. This is the effective start used for
// every position and conflict check.
func DepartureTime(start string, travelMinutes int) string {
	if start == "" || travelMinutes <= 0 {
		return start
	}
	return MinutesToTime(max(0, TimeToMinutes(start)-travelMinutes))
}

// TimeSlot is one row of the day grid.
type TimeSlot struct {
	Time        string `json:"time"`
	DisplayTime string `json:"display_time"`
}

// Grid describes the rendered work-day window.
type Grid struct {
	StartHour   int     `json:"start_hour"`
	EndHour     int     `json:"end_hour"`
	SlotMinutes int     `json:"slot_minutes"`
	PxPerSlot   float64 `json:"px_per_slot"`
}

// DefaultGrid is a 05:00-21:00 day at 15-minute slots, 32px each.
var DefaultGrid = Grid{StartHour: 5, EndHour: 21, SlotMinutes: 15, PxPerSlot: 32}

// Validate checks the window and slot size.
func (g Grid) Validate() error {
	if g.StartHour < 0 || g.EndHour > 24 || g.StartHour >= g.EndHour {
		return errors.Newf("work day %d-%d: start must precede end within 0-24", g.StartHour, g.EndHour)
	}
	if g.SlotMinutes <= 0 || 60%g.SlotMinutes != 0 {
		return errors.Newf("slot of %d minutes must divide an hour", g.SlotMinutes)
	}
	if g.PxPerSlot <= 0 {
		return errors.Newf("slot height %v must be positive", g.PxPerSlot)
	}
	return nil
}

// StartMinutes returns the work-day start as minutes since 00:00.
func (g Grid) StartMinutes() int { return g.StartHour * 60 }

// EndMinutes returns the work-day end as minutes since 00:00.
func (g Grid) EndMinutes() int { return g.EndHour * 60 }

// TimeSlots lists every slot from the work-day start up to and including the
// end hour.
func (g Grid) TimeSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, (g.EndMinutes()-g.StartMinutes())/g.SlotMinutes+1)
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for m := g.StartMinutes(); m <= g.EndMinutes(); m += g.SlotMinutes {
		slots = append(slots, TimeSlot{
			Time:        MinutesToTime(m),
			DisplayTime: day.Add(time.Duration(m) * time.Minute).Format("15:04"),
		})
	}
	return slots
}

// Contains reports whether minute falls inside the work-day window.
func (g Grid) Contains(minute int) bool {
	return minute >= g.StartMinutes() && minute <= g.EndMinutes()
}

// Offset converts minutes since 00:00 into a pixel offset from the top of
// the grid.
func (g Grid) Offset(minutes int) float64 {
	return float64(minutes-g.StartMinutes()) / float64(g.SlotMinutes) * g.PxPerSlot
}

// Height converts a duration into a pixel height. Negative durations are
// returned as-is so callers can spot inconsistent data.
func (g Grid) Height(durationMinutes int) float64 {
	return float64(durationMinutes) / float64(g.SlotMinutes) * g.PxPerSlot
}

// Row returns the 1-based grid row for a start in minutes since 00:00,
// floored at 1.
func (g Grid) Row(minutes int) int {
	fromStart := minutes - g.StartMinutes()
	row := int(math.Floor(float64(fromStart)/float64(g.SlotMinutes))) + 1
	return max(1, row)
}

// Span returns the number of rows a duration occupies, floored at 1.
func (g Grid) Span(durationMinutes int) int {
	span := int(math.Ceil(float64(durationMinutes) / float64(g.SlotMinutes)))
	return max(1, span)
}

// MinutesForPixels converts a pixel delta into minutes, rounded to the
// nearest whole slot.
func (g Grid) MinutesForPixels(px float64) int {
	return g.Quantize(int(math.Round(px / g.PxPerSlot * float64(g.SlotMinutes))))
}

// Quantize rounds a minute delta to the nearest whole slot.
func (g Grid) Quantize(minutes int) int {
	slots := math.Round(float64(minutes) / float64(g.SlotMinutes))
	return int(slots) * g.SlotMinutes
}

// Position returns the row and span of a range starting at start minutes.
func (g Grid) Position(start, durationMinutes int) (row, span int) {
	return g.Row(start), g.Span(durationMinutes)
}
