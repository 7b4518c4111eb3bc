// Package board implements the scheduling board of one planning session: the
// day's job set, drag selection, editor dialog and every mutation, mediated
// through a JobStore.
package board

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/calendar"
	"github.com/sumire/pumpplanner/internal/domain"
	"github.com/sumire/pumpplanner/internal/metrics"
	"github.com/sumire/pumpplanner/internal/validation"
)

const dateLayout = "2006-01-02"

// DefaultHighlightGrace is how long a drag highlight outlives a successful save.
const DefaultHighlightGrace = 100 * time.Millisecond

// JobStore is the persistence the board writes through.
type JobStore interface {
	FetchJobsForDate(ctx context.Context, orgID, date string) ([]domain.Job, error)
	CreateJob(ctx context.Context, orgID string, draft domain.JobDraft) (*domain.Job, error)
	UpdateJob(ctx context.Context, orgID, jobID string, patch domain.JobPatch) (*domain.Job, error)
	MoveJob(ctx context.Context, orgID, jobID, newStart string, newDriverID *string) (*domain.Job, error)
	UpdateJobStatus(ctx context.Context, orgID, jobID string, status domain.JobStatus) (*domain.Job, error)
	DeleteJob(ctx context.Context, orgID, jobID string) error
}

// DriverDirectory lists the drivers shown as columns.
type DriverDirectory interface {
	FetchActiveDrivers(ctx context.Context, orgID string) ([]domain.Driver, error)
}

// View selects which jobs the grid shows.
type View string

const (
	ViewPlanned  View = "planned"
	ViewAssigned View = "assigned"
	ViewSplit    View = "split"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	return v == ViewPlanned || v == ViewAssigned || v == ViewSplit
}

// Lane is one of the two job sections of the grid. Unconfirmed jobs live in
// the planned lane, everything else in the assigned lane.
type Lane string

const (
	LaneAssigned Lane = "assigned"
	LanePlanned  Lane = "planned"
)

// Valid reports whether l is a known lane. The empty lane means the lane
// shown by a single-lane view.
func (l Lane) Valid() bool {
	return l == "" || l == LaneAssigned || l == LanePlanned
}

// lane resolves the lane under the pointer. Split view without an explicit
// lane counts every job in the column.
func (v View) lane(l Lane) Lane {
	if l != "" {
		return l
	}
	switch v {
	case ViewPlanned:
		return LanePlanned
	case ViewAssigned:
		return LaneAssigned
	}
	return ""
}

// State is the interaction state of the board.
type State string

const (
	StateIdle             State = "idle"
	StateLoading          State = "loading"
	StateDragSelecting    State = "drag_selecting"
	StateDialogOpen       State = "dialog_open"
	StateConfirmingDelete State = "confirming_delete"
)

// Edge is the card edge a resize gesture grabs.
type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// Resize is an in-progress resize gesture.
type Resize struct {
	JobID string `json:"job_id"`
	Edge  Edge   `json:"edge"`
}

// Options configures a Board.
type Options struct {
	OrgID          string
	Store          JobStore
	Drivers        DriverDirectory
	Grid           calendar.Grid
	Policy         calendar.StatusPolicy
	Clock          Clock
	Location       *time.Location
	Notifier       Notifier
	Metrics        metrics.Sink
	Validator      *validation.Validator
	CanManageJobs  bool
	HighlightGrace time.Duration
	Logger         *zap.Logger
}

// Board owns the canonical job set of the selected day. Job and conflict
// slices are replaced on every change and never mutated, so snapshots can
// share them. Store calls run without holding mu.
type Board struct {
	opts Options

	mu             sync.Mutex
	date           string
	generation     uint64
	loading        bool
	view           View
	drivers        []domain.Driver
	jobs           []calendar.CalendarJob
	conflicts      []calendar.Conflict
	conflictCounts map[calendar.Severity]int
	selectedJobID  string
	drag           DragSelection
	dialog         *Dialog
	resize         *Resize
	pendingDelete  string
	fetchErr       string
	notifications  []Notification
	now            time.Time
	highlightTimer Timer
	highlightSeq   uint64
	closed         bool
}

// New creates a board for date in view. Nothing is fetched until SelectDate
// or Refresh runs.
func New(opts Options, date string, view View) (*Board, error) {
	if opts.Store == nil {
		return nil, errors.New("board: job store is required")
	}
	if opts.Grid == (calendar.Grid{}) {
		opts.Grid = calendar.DefaultGrid
	}
	if err := opts.Grid.Validate(); err != nil {
		return nil, errors.Wrap(err, "board: grid")
	}
	if opts.Policy.Unconfirmed == nil {
		opts.Policy = calendar.DefaultStatusPolicy
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopSink()
	}
	if opts.Validator == nil {
		opts.Validator = validation.New()
	}
	if opts.HighlightGrace <= 0 {
		opts.HighlightGrace = DefaultHighlightGrace
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if view == "" {
		view = ViewSplit
	}
	if !view.Valid() {
		return nil, errors.Mark(errors.Newf("unknown view %q", view), domain.ErrInvalidInput)
	}

	b := &Board{
		opts:           opts,
		view:           view,
		conflictCounts: map[calendar.Severity]int{},
		now:            opts.Clock.Now().In(opts.Location),
	}
	if date == "" {
		date = b.today()
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "date %q", date), domain.ErrInvalidInput)
	}
	b.date = date
	return b, nil
}

// Grid returns the board's grid configuration.
func (b *Board) Grid() calendar.Grid { return b.opts.Grid }

// Policy returns the board's status policy.
func (b *Board) Policy() calendar.StatusPolicy { return b.opts.Policy }

// Location returns the timezone "today" is evaluated in.
func (b *Board) Location() *time.Location { return b.opts.Location }

// Open loads the driver directory and the current date.
func (b *Board) Open(ctx context.Context) error {
	if err := b.LoadDrivers(ctx); err != nil {
		return err
	}
	return b.Refresh(ctx)
}

// LoadDrivers replaces the driver columns from the directory.
func (b *Board) LoadDrivers(ctx context.Context) error {
	if b.opts.Drivers == nil {
		return nil
	}
	drivers, err := b.opts.Drivers.FetchActiveDrivers(ctx, b.opts.OrgID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.notifyLocked(LevelError, "load drivers", domain.UserMessage(err, "Failed to load drivers"))
		return errors.Wrap(err, "load drivers")
	}
	b.drivers = drivers
	b.recomputeConflictsLocked()
	return nil
}

// SelectDate fetches date and replaces the whole job set with the result. A
// failed fetch keeps the previous jobs and records an inline error.
func (b *Board) SelectDate(ctx context.Context, date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return errors.Mark(errors.Wrapf(err, "date %q", date), domain.ErrInvalidInput)
	}

	b.mu.Lock()
	if b.date != date {
		b.clearInteractionLocked()
	}
	b.date = date
	b.generation++
	gen := b.generation
	b.loading = true
	b.mu.Unlock()

	jobs, err := b.opts.Store.FetchJobsForDate(ctx, b.opts.OrgID, date)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return b.discardStaleLocked("fetch jobs", gen)
	}
	b.loading = false
	if err != nil {
		b.fetchErr = domain.UserMessage(err, "Failed to fetch jobs for selected date")
		b.notifyLocked(LevelError, "fetch jobs", b.fetchErr)
		return errors.Wrap(err, "fetch jobs")
	}
	b.fetchErr = ""
	b.replaceJobsLocked(calendar.ToCalendarJobs(jobs, b.opts.Grid))
	return nil
}

// Refresh re-fetches the current date.
func (b *Board) Refresh(ctx context.Context) error {
	return b.SelectDate(ctx, b.Date())
}

// PreviousDay selects the day before the current date.
func (b *Board) PreviousDay(ctx context.Context) error {
	return b.SelectDate(ctx, b.shiftDate(-1))
}

// NextDay selects the day after the current date.
func (b *Board) NextDay(ctx context.Context) error {
	return b.SelectDate(ctx, b.shiftDate(1))
}

// Today selects the current date in the board's timezone.
func (b *Board) Today(ctx context.Context) error {
	return b.SelectDate(ctx, b.today())
}

// Date returns the selected date.
func (b *Board) Date() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.date
}

func (b *Board) shiftDate(days int) string {
	d, err := time.Parse(dateLayout, b.Date())
	if err != nil {
		return b.today()
	}
	return d.AddDate(0, 0, days).Format(dateLayout)
}

func (b *Board) today() string {
	return b.opts.Clock.Now().In(b.opts.Location).Format(dateLayout)
}

// SetView switches between the planned, assigned and split views.
func (b *Board) SetView(view View) error {
	if !view.Valid() {
		return errors.Mark(errors.Newf("unknown view %q", view), domain.ErrInvalidInput)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.view = view
	return nil
}

// SelectJob marks a card as selected. An empty id clears the selection.
func (b *Board) SelectJob(jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if jobID != "" {
		if _, ok := b.findLocked(jobID); !ok {
			return errors.Mark(errors.Newf("job %s not on board", jobID), domain.ErrIgnored)
		}
	}
	b.selectedJobID = jobID
	return nil
}

// PointerDown starts a drag selection on a cell that no job of lane covers.
func (b *Board) PointerDown(at, driverID string, lane Lane) error {
	if !lane.Valid() {
		return errors.Mark(errors.Newf("unknown lane %q", lane), domain.ErrInvalidInput)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.interactiveLocked(); err != nil {
		return err
	}
	if b.dialog != nil || b.pendingDelete != "" {
		return ignored("dialog open")
	}
	minute, err := calendar.ParseClock(at)
	if err != nil || !b.opts.Grid.Contains(minute) {
		return ignored("pointer outside grid")
	}
	if b.occupiedLocked(minute, driverID, b.view.lane(lane)) {
		return ignored("cell occupied")
	}
	b.cancelHighlightTimerLocked()
	b.drag = beginDrag(calendar.MinutesToTime(minute), driverID)
	return nil
}

// PointerEnter extends an active drag selection. Cells of another column are
// ignored.
func (b *Board) PointerEnter(at, driverID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loading {
		return ignored("loading")
	}
	minute, err := calendar.ParseClock(at)
	if err != nil || !b.opts.Grid.Contains(minute) {
		return ignored("pointer outside grid")
	}
	next, ok := b.drag.extend(calendar.MinutesToTime(minute), driverID)
	if !ok {
		return ignored("not dragging in this column")
	}
	b.drag = next
	return nil
}

// PointerUp finishes a drag selection. A selection that moved opens the
// create dialog for its range; one that did not returns to idle.
func (b *Board) PointerUp() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.drag.Active {
		return ignored("not dragging")
	}
	b.drag.Active = false
	start, end, ok := b.drag.Range(b.opts.Grid.SlotMinutes)
	if !ok {
		b.drag = DragSelection{}
		return ignored("empty selection")
	}
	b.dialog = &Dialog{Mode: DialogCreate, Form: NewCreateForm(start, end, b.drag.DriverID)}
	return nil
}

// DoubleClickCell opens the create dialog with a default two hour span.
func (b *Board) DoubleClickCell(at, driverID string, lane Lane) error {
	if !lane.Valid() {
		return errors.Mark(errors.Newf("unknown lane %q", lane), domain.ErrInvalidInput)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.interactiveLocked(); err != nil {
		return err
	}
	if b.dialog != nil || b.pendingDelete != "" {
		return ignored("dialog open")
	}
	minute, err := calendar.ParseClock(at)
	if err != nil || !b.opts.Grid.Contains(minute) {
		return ignored("pointer outside grid")
	}
	if b.occupiedLocked(minute, driverID, b.view.lane(lane)) {
		return ignored("cell occupied")
	}
	end := min(minute+DefaultCreateSpanMinutes, calendar.MinutesPerDay-1)
	b.drag = DragSelection{}
	b.dialog = &Dialog{
		Mode: DialogCreate,
		Form: NewCreateForm(calendar.MinutesToTime(minute), calendar.MinutesToTime(end), driverID),
	}
	return nil
}

// OpenJob opens the edit dialog for a card.
func (b *Board) OpenJob(jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.interactiveLocked(); err != nil {
		return err
	}
	job, ok := b.findLocked(jobID)
	if !ok {
		return ignored("job not on board")
	}
	b.selectedJobID = jobID
	b.dialog = &Dialog{Mode: DialogEdit, JobID: jobID, Form: FormFromJob(job.Job)}
	return nil
}

// SaveDialog validates form and creates or updates the job. On failure the
// dialog stays open with the entered values.
func (b *Board) SaveDialog(ctx context.Context, form JobForm) error {
	b.mu.Lock()
	if err := b.interactiveLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	if b.dialog == nil {
		b.mu.Unlock()
		return ignored("no dialog open")
	}
	if err := validateForm(b.opts.Validator, form); err != nil {
		b.dialog.Form = form
		b.dialog.Error = domain.UserMessage(err, "Please check the form")
		b.mu.Unlock()
		return err
	}
	dialog := *b.dialog
	gen, date := b.generation, b.date
	b.mu.Unlock()

	var (
		job *domain.Job
		err error
		op  = "create job"
	)
	if dialog.Mode == DialogCreate {
		job, err = b.opts.Store.CreateJob(ctx, b.opts.OrgID, form.Draft(date))
	} else {
		op = "update job"
		job, err = b.opts.Store.UpdateJob(ctx, b.opts.OrgID, dialog.JobID, form.Patch())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		msg := domain.UserMessage(err, "Failed to "+op)
		if b.dialog != nil && b.dialog.Mode == dialog.Mode && b.dialog.JobID == dialog.JobID {
			b.dialog.Form = form
			b.dialog.Error = msg
		}
		b.notifyLocked(LevelError, op, msg)
		return errors.Wrap(err, op)
	}
	if gen != b.generation {
		return b.discardStaleLocked(op, gen)
	}
	if dialog.Mode == DialogCreate {
		b.appendJobLocked(*job)
		b.notifyLocked(LevelInfo, op, "Job created successfully")
	} else {
		b.applyJobLocked(*job)
		b.notifyLocked(LevelInfo, op, "Job updated successfully")
	}
	b.dialog = nil
	b.scheduleHighlightClearLocked()
	return nil
}

// CancelDialog closes the editor without saving and clears the highlight.
func (b *Board) CancelDialog() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dialog == nil {
		return ignored("no dialog open")
	}
	b.dialog = nil
	b.cancelHighlightTimerLocked()
	b.drag = DragSelection{}
	return nil
}

// ResetDragSelection drops any drag selection and its highlight.
func (b *Board) ResetDragSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelHighlightTimerLocked()
	b.drag = DragSelection{}
}

// MoveJob drops a card at newStart, optionally into another driver column.
// A nil newDriverID keeps the current driver; an empty one unassigns. Local
// state changes only from the store's returned record.
func (b *Board) MoveJob(ctx context.Context, jobID, newStart string, newDriverID *string) error {
	b.mu.Lock()
	if err := b.interactiveLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	if _, ok := b.findLocked(jobID); !ok {
		b.mu.Unlock()
		return ignored("job not on board")
	}
	if b.resize != nil && b.resize.JobID == jobID {
		b.mu.Unlock()
		return ignored("card is being resized")
	}
	if !calendar.ValidClock(newStart) {
		b.mu.Unlock()
		return ignored("drop outside grid")
	}
	gen := b.generation
	b.mu.Unlock()

	job, err := b.opts.Store.MoveJob(ctx, b.opts.OrgID, jobID, newStart, newDriverID)
	return b.finishMutation(gen, "move job", "Job moved successfully", job, err)
}

// BeginResize grabs the top or bottom edge of a card.
func (b *Board) BeginResize(jobID string, edge Edge) error {
	if edge != EdgeTop && edge != EdgeBottom {
		return errors.Mark(errors.Newf("unknown edge %q", edge), domain.ErrInvalidInput)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.interactiveLocked(); err != nil {
		return err
	}
	if _, ok := b.findLocked(jobID); !ok {
		return ignored("job not on board")
	}
	b.resize = &Resize{JobID: jobID, Edge: edge}
	return nil
}

// CancelResize drops the active resize gesture.
func (b *Board) CancelResize() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resize = nil
}

// EndResize releases the grabbed edge after it travelled deltaPx pixels. The
// delta is rounded to whole slots. A resize that would put the start at or
// after the end sends nothing.
func (b *Board) EndResize(ctx context.Context, deltaPx float64) error {
	b.mu.Lock()
	g := b.resize
	b.resize = nil
	if g == nil {
		b.mu.Unlock()
		return ignored("no resize in progress")
	}
	if err := b.interactiveLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	job, ok := b.findLocked(g.JobID)
	if !ok {
		b.mu.Unlock()
		return ignored("job not on board")
	}
	patch, err := resizePatch(job, g.Edge, b.opts.Grid.MinutesForPixels(deltaPx))
	if err != nil {
		b.mu.Unlock()
		return err
	}
	gen := b.generation
	b.mu.Unlock()

	updated, err := b.opts.Store.UpdateJob(ctx, b.opts.OrgID, g.JobID, patch)
	return b.finishMutation(gen, "resize job", "Job updated successfully", updated, err)
}

func resizePatch(job calendar.CalendarJob, edge Edge, delta int) (domain.JobPatch, error) {
	if delta == 0 {
		return domain.JobPatch{}, ignored("resize did not change the job")
	}
	switch edge {
	case EdgeTop:
		departure := job.StartMinutes + delta
		if departure < 0 || departure >= job.EndMinutes {
			return domain.JobPatch{}, ignored("start would pass the end")
		}
		onSite := calendar.TimeToMinutes(job.StartTime) + delta
		if onSite >= calendar.MinutesPerDay {
			return domain.JobPatch{}, ignored("start would pass midnight")
		}
		return domain.JobPatch{StartTime: ptr(calendar.MinutesToTime(onSite))}, nil
	default:
		end := job.EndMinutes + delta
		if end <= job.StartMinutes || end >= calendar.MinutesPerDay {
			return domain.JobPatch{}, ignored("end would pass the start")
		}
		return domain.JobPatch{EndTime: ptr(calendar.MinutesToTime(end))}, nil
	}
}

// ChangeStatus sets the status of a job.
func (b *Board) ChangeStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	if !status.Valid() {
		return errors.WithHint(errors.Mark(errors.Newf("unknown status %q", status), domain.ErrInvalidInput),
			"Unknown job status")
	}
	b.mu.Lock()
	if err := b.interactiveLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	if _, ok := b.findLocked(jobID); !ok {
		b.mu.Unlock()
		return ignored("job not on board")
	}
	gen := b.generation
	b.mu.Unlock()

	job, err := b.opts.Store.UpdateJobStatus(ctx, b.opts.OrgID, jobID, status)
	return b.finishMutation(gen, "update job status", "Job status updated successfully", job, err)
}

// RequestDelete asks for confirmation before deleting a job.
func (b *Board) RequestDelete(jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.interactiveLocked(); err != nil {
		return err
	}
	if _, ok := b.findLocked(jobID); !ok {
		return ignored("job not on board")
	}
	b.pendingDelete = jobID
	return nil
}

// CancelDelete withdraws a pending delete.
func (b *Board) CancelDelete() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingDelete == "" {
		return ignored("no delete pending")
	}
	b.pendingDelete = ""
	return nil
}

// ConfirmDelete deletes the pending job. On success the job leaves the board
// and any dialog editing it closes.
func (b *Board) ConfirmDelete(ctx context.Context) error {
	b.mu.Lock()
	jobID := b.pendingDelete
	b.pendingDelete = ""
	if jobID == "" {
		b.mu.Unlock()
		return ignored("no delete pending")
	}
	if err := b.interactiveLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	gen := b.generation
	b.mu.Unlock()

	err := b.opts.Store.DeleteJob(ctx, b.opts.OrgID, jobID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.notifyLocked(LevelError, "delete job", domain.UserMessage(err, "Failed to delete job"))
		return errors.Wrap(err, "delete job")
	}
	if gen != b.generation {
		return b.discardStaleLocked("delete job", gen)
	}
	b.removeJobLocked(jobID)
	if b.dialog != nil && b.dialog.JobID == jobID {
		b.dialog = nil
	}
	if b.selectedJobID == jobID {
		b.selectedJobID = ""
	}
	b.notifyLocked(LevelInfo, "delete job", "Job deleted successfully")
	return nil
}

// Tick refreshes the board's notion of now.
func (b *Board) Tick() {
	now := b.opts.Clock.Now().In(b.opts.Location)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// RunClock ticks once a minute until ctx is done.
func (b *Board) RunClock(ctx context.Context) {
	ticker := b.opts.Clock.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			b.Tick()
		}
	}
}

// Close releases timers and the board's share of the conflict gauge.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cancelHighlightTimerLocked()
	for sev, n := range b.conflictCounts {
		b.opts.Metrics.ConflictsAdjust(string(sev), -n)
	}
	b.conflictCounts = map[calendar.Severity]int{}
}

// Snapshot is a consistent copy of the board state.
type Snapshot struct {
	OrgID         string                 `json:"organization_id"`
	Date          string                 `json:"date"`
	Today         string                 `json:"today"`
	View          View                   `json:"view"`
	State         State                  `json:"state"`
	Loading       bool                   `json:"loading"`
	FetchError    string                 `json:"fetch_error,omitempty"`
	CanManageJobs bool                   `json:"can_manage_jobs"`
	Drivers       []domain.Driver        `json:"drivers"`
	Jobs          []calendar.CalendarJob `json:"jobs"`
	Conflicts     []calendar.Conflict    `json:"conflicts"`
	SelectedJobID string                 `json:"selected_job_id,omitempty"`
	Drag          DragSelection          `json:"drag"`
	Dialog        *Dialog                `json:"dialog,omitempty"`
	Resize        *Resize                `json:"resize,omitempty"`
	PendingDelete string                 `json:"pending_delete,omitempty"`
	Notifications []Notification         `json:"notifications"`
	Now           time.Time              `json:"now"`
}

// Snapshot returns the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{
		OrgID:         b.opts.OrgID,
		Date:          b.date,
		Today:         b.now.Format(dateLayout),
		View:          b.view,
		State:         b.stateLocked(),
		Loading:       b.loading,
		FetchError:    b.fetchErr,
		CanManageJobs: b.opts.CanManageJobs,
		Drivers:       b.drivers,
		Jobs:          b.jobs,
		Conflicts:     b.conflicts,
		SelectedJobID: b.selectedJobID,
		Drag:          b.drag,
		PendingDelete: b.pendingDelete,
		Notifications: slices.Clone(b.notifications),
		Now:           b.now,
	}
	if b.dialog != nil {
		d := *b.dialog
		s.Dialog = &d
	}
	if b.resize != nil {
		r := *b.resize
		s.Resize = &r
	}
	return s
}

func (b *Board) stateLocked() State {
	switch {
	case b.loading:
		return StateLoading
	case b.pendingDelete != "":
		return StateConfirmingDelete
	case b.dialog != nil:
		return StateDialogOpen
	case b.drag.Active:
		return StateDragSelecting
	}
	return StateIdle
}

func (b *Board) interactiveLocked() error {
	if !b.opts.CanManageJobs {
		return errors.Mark(errors.New("role cannot manage jobs"), domain.ErrForbidden)
	}
	if b.loading {
		return ignored("loading")
	}
	return nil
}

func (b *Board) finishMutation(gen uint64, op, success string, job *domain.Job, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.notifyLocked(LevelError, op, domain.UserMessage(err, "Failed to "+op))
		return errors.Wrap(err, op)
	}
	if gen != b.generation {
		return b.discardStaleLocked(op, gen)
	}
	b.applyJobLocked(*job)
	b.notifyLocked(LevelInfo, op, success)
	return nil
}

// discardStaleLocked drops a store response that belongs to a date the board
// has left. The returned error is marked domain.ErrStaleResponse.
func (b *Board) discardStaleLocked(op string, gen uint64) error {
	b.opts.Metrics.StaleResponse()
	b.opts.Logger.Debug("discarding stale store response",
		zap.String("operation", op),
		zap.Uint64("generation", gen),
		zap.Uint64("current_generation", b.generation),
	)
	return errors.Mark(errors.Newf("%s: response for generation %d superseded by %d", op, gen, b.generation),
		domain.ErrStaleResponse)
}

func (b *Board) findLocked(jobID string) (calendar.CalendarJob, bool) {
	for _, j := range b.jobs {
		if j.ID == jobID {
			return j, true
		}
	}
	return calendar.CalendarJob{}, false
}

func (b *Board) occupiedLocked(minute int, driverID string, lane Lane) bool {
	for _, j := range b.jobs {
		if !j.AssignedTo(driverID) || !j.Covers(minute) {
			continue
		}
		if lane == "" || b.laneOf(j) == lane {
			return true
		}
	}
	return false
}

func (b *Board) laneOf(j calendar.CalendarJob) Lane {
	if b.opts.Policy.IsUnconfirmed(j.Status) {
		return LanePlanned
	}
	return LaneAssigned
}

func (b *Board) replaceJobsLocked(jobs []calendar.CalendarJob) {
	b.jobs = jobs
	if b.selectedJobID != "" {
		if _, ok := b.findLocked(b.selectedJobID); !ok {
			b.selectedJobID = ""
		}
	}
	b.recomputeConflictsLocked()
}

// applyJobLocked swaps in the store's record of a job. A job that moved to
// another date leaves the board; a job no longer on the board is not revived.
func (b *Board) applyJobLocked(job domain.Job) {
	next := make([]calendar.CalendarJob, 0, len(b.jobs))
	for _, j := range b.jobs {
		if j.ID != job.ID {
			next = append(next, j)
			continue
		}
		if job.JobDate != "" && job.JobDate != b.date {
			continue
		}
		next = append(next, calendar.ToCalendarJob(job, b.opts.Grid))
	}
	b.replaceJobsLocked(next)
}

func (b *Board) appendJobLocked(job domain.Job) {
	if job.JobDate != "" && job.JobDate != b.date {
		return
	}
	next := make([]calendar.CalendarJob, 0, len(b.jobs)+1)
	next = append(next, b.jobs...)
	next = append(next, calendar.ToCalendarJob(job, b.opts.Grid))
	b.replaceJobsLocked(next)
}

func (b *Board) removeJobLocked(jobID string) {
	next := make([]calendar.CalendarJob, 0, len(b.jobs))
	for _, j := range b.jobs {
		if j.ID != jobID {
			next = append(next, j)
		}
	}
	b.replaceJobsLocked(next)
}

func (b *Board) recomputeConflictsLocked() {
	ids := make([]string, 0, len(b.drivers))
	for _, d := range b.drivers {
		ids = append(ids, d.ID)
	}
	b.conflicts = calendar.DetectAll(b.jobs, ids, b.opts.Policy)

	if b.closed {
		return
	}
	counts := calendar.CountBySeverity(b.conflicts)
	for sev, n := range counts {
		b.opts.Metrics.ConflictsAdjust(string(sev), n-b.conflictCounts[sev])
	}
	b.conflictCounts = counts
}

func (b *Board) clearInteractionLocked() {
	b.cancelHighlightTimerLocked()
	b.drag = DragSelection{}
	b.dialog = nil
	b.resize = nil
	b.pendingDelete = ""
	b.selectedJobID = ""
}

func (b *Board) scheduleHighlightClearLocked() {
	if !b.drag.ShowHighlight {
		b.drag = DragSelection{}
		return
	}
	b.cancelHighlightTimerLocked()
	b.highlightSeq++
	seq := b.highlightSeq
	b.highlightTimer = b.opts.Clock.AfterFunc(b.opts.HighlightGrace, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.highlightSeq == seq {
			b.drag = DragSelection{}
			b.highlightTimer = nil
		}
	})
}

func (b *Board) cancelHighlightTimerLocked() {
	b.highlightSeq++
	if b.highlightTimer != nil {
		b.highlightTimer.Stop()
		b.highlightTimer = nil
	}
}

func (b *Board) notifyLocked(level Level, op, message string) {
	n := Notification{Level: level, Operation: op, Message: message, At: b.opts.Clock.Now()}
	b.notifications = appendBounded(b.notifications, n)
	if level == LevelError {
		b.opts.Logger.Warn("board operation failed",
			zap.String("organization_id", b.opts.OrgID),
			zap.String("operation", op),
			zap.String("message", message),
		)
	}
	if b.opts.Notifier != nil {
		b.opts.Notifier.Notify(b.opts.OrgID, n)
	}
}

func ignored(reason string) error {
	return errors.Mark(errors.New(reason), domain.ErrIgnored)
}
