// Package layout turns a board snapshot into the positioned grid a client
// draws: driver columns, time-slot cells, job cards and the now-line.
package layout

import (
	"fmt"
	"time"

	"github.com/sumire/pumpplanner/internal/board"
	"github.com/sumire/pumpplanner/internal/calendar"
	"github.com/sumire/pumpplanner/internal/domain"
)

// Z-order of job cards.
const (
	ZIndexCard         = 10
	ZIndexSelectedCard = 30
)

// Lane identifies which jobs a section shows. A cell gesture sends its
// section's lane back to the board.
type Lane = board.Lane

const (
	LaneAssigned = board.LaneAssigned
	LanePlanned  = board.LanePlanned
)

// Layout is the rendered board.
type Layout struct {
	Date           string                    `json:"date"`
	Today          string                    `json:"today"`
	View           board.View                `json:"view"`
	State          board.State               `json:"state"`
	Loading        bool                      `json:"loading"`
	FetchError     string                    `json:"fetch_error,omitempty"`
	CanManageJobs  bool                      `json:"can_manage_jobs"`
	Grid           calendar.Grid             `json:"grid"`
	HeightPx       float64                   `json:"height_px"`
	Slots          []calendar.TimeSlot       `json:"slots"`
	Columns        []Column                  `json:"columns"`
	Sections       []Section                 `json:"sections"`
	NowLine        *NowLine                  `json:"now_line,omitempty"`
	Empty          *EmptyState               `json:"empty,omitempty"`
	Conflicts      []calendar.Conflict       `json:"conflicts"`
	ConflictCounts map[calendar.Severity]int `json:"conflict_counts"`
	SelectedJobID  string                    `json:"selected_job_id,omitempty"`
	Drag           board.DragSelection       `json:"drag"`
	Dialog         *board.Dialog             `json:"dialog,omitempty"`
	Resize         *board.Resize             `json:"resize,omitempty"`
	PendingDelete  string                    `json:"pending_delete,omitempty"`
	Notifications  []board.Notification      `json:"notifications"`
}

// Column is a driver column header. The unassigned column has an empty id.
type Column struct {
	DriverID   string  `json:"driver_id"`
	Name       string  `json:"name"`
	Phone      *string `json:"phone,omitempty"`
	Unassigned bool    `json:"unassigned"`
}

// Section is one independently scrolled grid.
type Section struct {
	Lane         Lane            `json:"lane"`
	Title        string          `json:"title"`
	JobCount     int             `json:"job_count"`
	AllowOverlap bool            `json:"allow_overlap"`
	Columns      []SectionColumn `json:"columns"`
}

// SectionColumn holds the cells and cards of one driver within a section.
type SectionColumn struct {
	DriverID string `json:"driver_id"`
	Cells    []Cell `json:"cells"`
	Cards    []Card `json:"cards"`
}

// Cell is one time slot of a column.
type Cell struct {
	Time      string `json:"time"`
	Row       int    `json:"row"`
	Occupied  bool   `json:"occupied"`
	Highlight bool   `json:"highlight"`
	Conflict  bool   `json:"conflict"`
	CanCreate bool   `json:"can_create"`
}

// Card is a positioned job.
type Card struct {
	JobID          string               `json:"job_id"`
	Row            int                  `json:"row"`
	Span           int                  `json:"span"`
	TopPx          float64              `json:"top_px"`
	HeightPx       float64              `json:"height_px"`
	TravelHeightPx float64              `json:"travel_height_px"`
	TravelMinutes  int                  `json:"travel_minutes"`
	Status         domain.JobStatus     `json:"status"`
	StatusLabel    string               `json:"status_label"`
	Color          string               `json:"color"`
	TimeLabel      string               `json:"time_label"`
	Title          string               `json:"title"`
	Address        string               `json:"address,omitempty"`
	Selected       bool                 `json:"selected"`
	ZIndex         int                  `json:"z_index"`
	Draggable      bool                 `json:"draggable"`
	Resizable      bool                 `json:"resizable"`
	ConflictWith   []string             `json:"conflict_with,omitempty"`
	ConflictLevel  calendar.Severity    `json:"conflict_level,omitempty"`
	InvalidRange   bool                 `json:"invalid_range,omitempty"`
	Job            calendar.CalendarJob `json:"job"`
}

// NowLine marks the current time on today's grid.
type NowLine struct {
	TopPx float64 `json:"top_px"`
	Label string  `json:"label"`
}

// EmptyState is shown instead of the grid when there are no drivers.
type EmptyState struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Render lays out snap. now is evaluated in its own location, which should
// be the board's timezone.
func Render(snap board.Snapshot, drivers []domain.Driver, g calendar.Grid, policy calendar.StatusPolicy, now time.Time) Layout {
	l := Layout{
		Date:           snap.Date,
		Today:          now.Format("2006-01-02"),
		View:           snap.View,
		State:          snap.State,
		Loading:        snap.Loading,
		FetchError:     snap.FetchError,
		CanManageJobs:  snap.CanManageJobs,
		Grid:           g,
		HeightPx:       g.Offset(g.EndMinutes()) + g.PxPerSlot,
		Slots:          g.TimeSlots(),
		Conflicts:      snap.Conflicts,
		ConflictCounts: calendar.CountBySeverity(snap.Conflicts),
		SelectedJobID:  snap.SelectedJobID,
		Drag:           snap.Drag,
		Dialog:         snap.Dialog,
		Resize:         snap.Resize,
		PendingDelete:  snap.PendingDelete,
		Notifications:  snap.Notifications,
		NowLine:        nowLine(snap.Date, g, now),
	}

	if len(drivers) == 0 {
		l.Empty = &EmptyState{
			Title:   "No drivers available",
			Message: "Add drivers in the user management section",
		}
		return l
	}

	l.Columns = columns(drivers)
	r := renderer{snap: snap, grid: g, columns: l.Columns, conflicts: conflictIndex(snap.Conflicts)}

	planned, assigned := partition(snap.Jobs, policy)
	switch snap.View {
	case board.ViewPlanned:
		l.Sections = []Section{r.section(LanePlanned, "Planned Jobs", planned, true, true)}
	case board.ViewAssigned:
		l.Sections = []Section{r.section(LaneAssigned, "Assigned Jobs", assigned, false, true)}
	default:
		l.Sections = []Section{
			r.section(LaneAssigned, "Assigned Jobs", assigned, false, false),
			r.section(LanePlanned, "Planned Jobs", planned, true, true),
		}
	}
	return l
}

func columns(drivers []domain.Driver) []Column {
	cols := make([]Column, 0, len(drivers)+1)
	for _, d := range drivers {
		cols = append(cols, Column{DriverID: d.ID, Name: d.DisplayName(), Phone: d.Phone})
	}
	return append(cols, Column{Name: "Unassigned", Unassigned: true})
}

func partition(jobs []calendar.CalendarJob, policy calendar.StatusPolicy) (planned, assigned []calendar.CalendarJob) {
	for _, j := range jobs {
		if policy.IsUnconfirmed(j.Status) {
			planned = append(planned, j)
		} else {
			assigned = append(assigned, j)
		}
	}
	return planned, assigned
}

type conflictRef struct {
	with     []string
	severity calendar.Severity
}

func conflictIndex(conflicts []calendar.Conflict) map[string]*conflictRef {
	idx := map[string]*conflictRef{}
	for _, c := range conflicts {
		for _, id := range c.JobIDs {
			ref, ok := idx[id]
			if !ok {
				ref = &conflictRef{}
				idx[id] = ref
			}
			for _, other := range c.JobIDs {
				if other != id {
					ref.with = append(ref.with, other)
				}
			}
			if ref.severity != calendar.SeverityError {
				ref.severity = c.Severity
			}
		}
	}
	return idx
}

type renderer struct {
	snap      board.Snapshot
	grid      calendar.Grid
	columns   []Column
	conflicts map[string]*conflictRef
}

func (r renderer) section(lane Lane, title string, jobs []calendar.CalendarJob, allowOverlap, highlight bool) Section {
	s := Section{
		Lane:         lane,
		Title:        fmt.Sprintf("%s (%d)", title, len(jobs)),
		JobCount:     len(jobs),
		AllowOverlap: allowOverlap,
		Columns:      make([]SectionColumn, 0, len(r.columns)),
	}
	for _, col := range r.columns {
		var own []calendar.CalendarJob
		for _, j := range jobs {
			if j.AssignedTo(col.DriverID) {
				own = append(own, j)
			}
		}
		s.Columns = append(s.Columns, SectionColumn{
			DriverID: col.DriverID,
			Cells:    r.cells(col.DriverID, own, allowOverlap, highlight),
			Cards:    r.cards(own),
		})
	}
	return s
}

func (r renderer) cells(driverID string, jobs []calendar.CalendarJob, allowOverlap, highlight bool) []Cell {
	manageable := r.snap.CanManageJobs && !r.snap.Loading
	slots := r.grid.TimeSlots()
	cells := make([]Cell, 0, len(slots))
	for _, slot := range slots {
		minute := calendar.TimeToMinutes(slot.Time)
		covering := 0
		for _, j := range jobs {
			if j.Covers(minute) {
				covering++
			}
		}
		cells = append(cells, Cell{
			Time:      slot.Time,
			Row:       r.grid.Row(minute),
			Occupied:  covering > 0,
			Highlight: highlight && r.snap.Drag.Highlights(minute, driverID),
			Conflict:  covering > 1 && !allowOverlap,
			CanCreate: covering == 0 && manageable,
		})
	}
	return cells
}

func (r renderer) cards(jobs []calendar.CalendarJob) []Card {
	manageable := r.snap.CanManageJobs && !r.snap.Loading
	cards := make([]Card, 0, len(jobs))
	for _, j := range jobs {
		height := max(0, r.grid.Height(j.DurationMinutes))
		selected := j.ID == r.snap.SelectedJobID
		resizing := r.snap.Resize != nil && r.snap.Resize.JobID == j.ID

		c := Card{
			JobID:          j.ID,
			Row:            j.GridRow,
			Span:           j.GridSpan,
			TopPx:          r.grid.Offset(j.StartMinutes),
			HeightPx:       height,
			TravelHeightPx: travelHeight(height, j.TravelMinutes, j.DurationMinutes),
			TravelMinutes:  j.TravelMinutes,
			Status:         j.Status,
			StatusLabel:    j.Status.Label(),
			Color:          j.Status.Color(),
			TimeLabel:      j.TimeLabel(),
			Title:          title(j),
			Address:        address(j),
			Selected:       selected,
			ZIndex:         ZIndexCard,
			Draggable:      manageable && !resizing,
			Resizable:      manageable,
			InvalidRange:   !j.ValidRange(),
			Job:            j,
		}
		if selected {
			c.ZIndex = ZIndexSelectedCard
		}
		if ref, ok := r.conflicts[j.ID]; ok {
			c.ConflictWith = ref.with
			c.ConflictLevel = ref.severity
		}
		cards = append(cards, c)
	}
	return cards
}

func travelHeight(height float64, travel, duration int) float64 {
	if travel <= 0 || duration <= 0 {
		return 0
	}
	return height * min(1, float64(travel)/float64(duration))
}

func title(j calendar.CalendarJob) string {
	if j.ClientName != nil && *j.ClientName != "" {
		return *j.ClientName
	}
	return "No client"
}

func address(j calendar.CalendarJob) string {
	var out string
	for _, part := range []*string{j.AddressStreet, j.AddressPostalCode, j.AddressCity} {
		if part == nil || *part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += *part
	}
	return out
}

func nowLine(date string, g calendar.Grid, now time.Time) *NowLine {
	if now.Format("2006-01-02") != date {
		return nil
	}
	minute := now.Hour()*60 + now.Minute()
	if !g.Contains(minute) {
		return nil
	}
	return &NowLine{TopPx: g.Offset(minute), Label: now.Format("15:04")}
}
