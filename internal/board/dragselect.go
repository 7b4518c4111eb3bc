package board

import "github.com/sumire/pumpplanner/internal/calendar"

// DragSelection is the range staked out by a pointer gesture over empty
// cells of one driver column. An empty DriverID is the unassigned column.
type DragSelection struct {
	Active        bool   `json:"active"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	DriverID      string `json:"driver_id"`
	ShowHighlight bool   `json:"show_highlight"`
}

func beginDrag(at, driverID string) DragSelection {
	return DragSelection{
		Active:        true,
		StartTime:     at,
		EndTime:       at,
		DriverID:      driverID,
		ShowHighlight: true,
	}
}

// extend moves the free end of the selection. Cells of other columns are
// ignored.
func (d DragSelection) extend(at, driverID string) (DragSelection, bool) {
	if !d.Active || driverID != d.DriverID {
		return d, false
	}
	d.EndTime = at
	return d, true
}

// Bounds returns the ordered first and last hovered slot in minutes.
func (d DragSelection) Bounds() (first, last int) {
	a, b := calendar.TimeToMinutes(d.StartTime), calendar.TimeToMinutes(d.EndTime)
	return min(a, b), max(a, b)
}

// Range returns the selected start and end clock times. The end is one slot
// past the last hovered slot. A selection that never left its first slot is
// degenerate.
func (d DragSelection) Range(slotMinutes int) (start, end string, ok bool) {
	first, last := d.Bounds()
	if first == last {
		return "", "", false
	}
	return calendar.MinutesToTime(first), calendar.MinutesToTime(last + slotMinutes), true
}

// Highlights reports whether the cell at minute in driverID's column is part
// of the visible selection.
func (d DragSelection) Highlights(minute int, driverID string) bool {
	if !d.ShowHighlight || d.StartTime == "" || driverID != d.DriverID {
		return false
	}
	first, last := d.Bounds()
	return first <= minute && minute <= last
}
