package board

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/pumpplanner/internal/calendar"
	"github.com/sumire/pumpplanner/internal/domain"
)

const testDate = "2024-05-14"

var testNow = time.Date(2024, 5, 14, 9, 41, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func job(id, driver, start, end string, status domain.JobStatus) domain.Job {
	j := domain.Job{ID: id, JobDate: testDate, StartTime: start, Status: status}
	if driver != "" {
		j.DriverID = strPtr(driver)
	}
	if end != "" {
		j.EndTime = strPtr(end)
	}
	return j
}

type harness struct {
	board *Board
	store *fakeStore
	clock *fakeClock
	sink  *fakeSink
}

func newHarness(t *testing.T, canManage bool, jobs ...domain.Job) *harness {
	t.Helper()
	h := &harness{
		store: newFakeStore(jobs...),
		clock: newFakeClock(testNow),
		sink:  newFakeSink(),
	}
	b, err := New(Options{
		OrgID: "org-1",
		Store: h.store,
		Drivers: &fakeDirectory{drivers: []domain.Driver{
			{ID: "D1", FirstName: "Anna", IsActive: true},
			{ID: "D2", FirstName: "Ben", IsActive: true},
		}},
		Clock:         h.clock,
		Metrics:       h.sink,
		CanManageJobs: canManage,
	}, testDate, ViewSplit)
	require.NoError(t, err)
	require.NoError(t, b.Open(context.Background()))
	h.board = b
	return h
}

func TestBoard_DoubleClickCreatesTwoHourJob(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	require.NoError(t, h.board.DoubleClickCell("10:00", "D1", ""))

	snap := h.board.Snapshot()
	assert.Equal(t, StateDialogOpen, snap.State)
	require.NotNil(t, snap.Dialog)
	assert.Equal(t, DialogCreate, snap.Dialog.Mode)
	assert.Equal(t, "10:00", snap.Dialog.Form.StartTime)
	assert.Equal(t, "12:00", snap.Dialog.Form.EndTime)
	assert.Equal(t, "D1", snap.Dialog.Form.DriverID)

	require.NoError(t, h.board.SaveDialog(ctx, snap.Dialog.Form))

	require.Len(t, h.store.creates, 1)
	draft := h.store.creates[0]
	assert.Equal(t, testDate, draft.JobDate)
	assert.Equal(t, "10:00", draft.StartTime)
	assert.Equal(t, "12:00", *draft.EndTime)

	snap = h.board.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Dialog)
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, 21, snap.Jobs[0].GridRow)
	assert.Equal(t, 8, snap.Jobs[0].GridSpan)
	require.NotEmpty(t, snap.Notifications)
	assert.Equal(t, "Job created successfully", snap.Notifications[len(snap.Notifications)-1].Message)
}

func TestBoard_DragSelectStaysInItsColumn(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.board.PointerDown("09:00", "D1", ""))
	assert.Equal(t, StateDragSelecting, h.board.Snapshot().State)

	err := h.board.PointerEnter("09:30", "D2")
	assert.True(t, errors.Is(err, domain.ErrIgnored))
	require.NoError(t, h.board.PointerEnter("09:45", "D1"))

	snap := h.board.Snapshot()
	assert.Equal(t, "D1", snap.Drag.DriverID)
	assert.Equal(t, "09:45", snap.Drag.EndTime)

	require.NoError(t, h.board.PointerUp())

	snap = h.board.Snapshot()
	require.NotNil(t, snap.Dialog)
	assert.Equal(t, "09:00", snap.Dialog.Form.StartTime)
	assert.Equal(t, "10:00", snap.Dialog.Form.EndTime, "end is one slot past the last hovered slot")
	assert.Equal(t, "D1", snap.Dialog.Form.DriverID)
	assert.True(t, snap.Drag.ShowHighlight)
	assert.False(t, snap.Drag.Active)
}

func TestBoard_DragSelectUpwardsIsOrdered(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.board.PointerDown("11:00", "", ""))
	require.NoError(t, h.board.PointerEnter("10:30", ""))
	require.NoError(t, h.board.PointerUp())

	snap := h.board.Snapshot()
	require.NotNil(t, snap.Dialog)
	assert.Equal(t, "10:30", snap.Dialog.Form.StartTime)
	assert.Equal(t, "11:15", snap.Dialog.Form.EndTime)
	assert.Empty(t, snap.Dialog.Form.DriverID)
}

func TestBoard_DegenerateDragReturnsToIdle(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.board.PointerDown("09:00", "D1", ""))
	err := h.board.PointerUp()

	assert.True(t, errors.Is(err, domain.ErrIgnored))
	snap := h.board.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Dialog)
	assert.False(t, snap.Drag.ShowHighlight)
}

func TestBoard_PointerDownOnOccupiedCellIgnored(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))

	err := h.board.PointerDown("09:30", "D1", LaneAssigned)
	assert.True(t, errors.Is(err, domain.ErrIgnored))
	require.NoError(t, h.board.PointerDown("09:30", "D2", LaneAssigned))
}

func TestBoard_CellOccupancyIsPerLane(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))

	err := h.board.DoubleClickCell("09:30", "D1", LaneAssigned)
	assert.True(t, errors.Is(err, domain.ErrIgnored), "confirmed job covers the assigned lane")
	require.NoError(t, h.board.DoubleClickCell("09:30", "D1", LanePlanned), "planned lane allows overlapping drafts")

	dialog := h.board.Snapshot().Dialog
	require.NotNil(t, dialog)
	assert.Equal(t, "09:30", dialog.Form.StartTime)
	assert.Equal(t, "D1", dialog.Form.DriverID)
}

func TestBoard_SingleLaneViewUsesItsOwnLane(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))

	require.NoError(t, h.board.SetView(ViewPlanned))
	require.NoError(t, h.board.PointerDown("09:30", "D1", ""))

	require.NoError(t, h.board.SetView(ViewAssigned))
	assert.True(t, errors.Is(h.board.PointerDown("09:30", "D1", ""), domain.ErrIgnored))
}

func TestBoard_UnknownLaneRejected(t *testing.T) {
	h := newHarness(t, true)

	assert.True(t, errors.Is(h.board.PointerDown("09:30", "D1", Lane("sideways")), domain.ErrInvalidInput))
	assert.True(t, errors.Is(h.board.DoubleClickCell("09:30", "D1", Lane("sideways")), domain.ErrInvalidInput))
}

func TestBoard_HighlightClearsAfterGraceOnSave(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	require.NoError(t, h.board.PointerDown("09:00", "D1", ""))
	require.NoError(t, h.board.PointerEnter("09:15", "D1"))
	require.NoError(t, h.board.PointerUp())
	require.NoError(t, h.board.SaveDialog(ctx, h.board.Snapshot().Dialog.Form))

	assert.True(t, h.board.Snapshot().Drag.ShowHighlight, "highlight survives the save briefly")
	assert.Equal(t, 1, h.clock.pendingTimers())

	h.clock.Advance(DefaultHighlightGrace)

	assert.False(t, h.board.Snapshot().Drag.ShowHighlight)
	assert.Equal(t, StateIdle, h.board.Snapshot().State)
}

func TestBoard_CancelDialogClearsHighlightImmediately(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.board.PointerDown("09:00", "D1", ""))
	require.NoError(t, h.board.PointerEnter("09:30", "D1"))
	require.NoError(t, h.board.PointerUp())
	require.NoError(t, h.board.CancelDialog())

	snap := h.board.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.Drag.ShowHighlight)
	assert.Zero(t, h.store.requestCount())
}

func TestBoard_SaveValidationFailureKeepsDialog(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.board.DoubleClickCell("10:00", "D1", ""))
	form := h.board.Snapshot().Dialog.Form
	form.EndTime = "09:00"

	err := h.board.SaveDialog(context.Background(), form)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "end_time", verr.Field)
	snap := h.board.Snapshot()
	require.NotNil(t, snap.Dialog)
	assert.Equal(t, "End time must be after start time", snap.Dialog.Error)
	assert.Equal(t, "09:00", snap.Dialog.Form.EndTime)
	assert.Empty(t, h.store.creates)
}

func TestBoard_CreateFailureKeepsDialogForRetry(t *testing.T) {
	h := newHarness(t, true)
	h.store.createErr = errors.WithHint(errors.New("insert failed"), "Client is required")

	require.NoError(t, h.board.DoubleClickCell("10:00", "D1", ""))
	form := h.board.Snapshot().Dialog.Form
	form.Notes = "call ahead"

	err := h.board.SaveDialog(context.Background(), form)

	require.Error(t, err)
	snap := h.board.Snapshot()
	require.NotNil(t, snap.Dialog)
	assert.Equal(t, "call ahead", snap.Dialog.Form.Notes)
	assert.Equal(t, "Client is required", snap.Dialog.Error)
	assert.Empty(t, snap.Jobs)
	last := snap.Notifications[len(snap.Notifications)-1]
	assert.Equal(t, LevelError, last.Level)
	assert.Equal(t, "create job", last.Operation)
}

func TestBoard_EditDialogUpdatesJob(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))

	require.NoError(t, h.board.OpenJob("A"))
	form := h.board.Snapshot().Dialog.Form
	assert.Equal(t, "09:00", form.StartTime)
	form.DriverID = "D2"

	require.NoError(t, h.board.SaveDialog(context.Background(), form))

	snap := h.board.Snapshot()
	require.Len(t, snap.Jobs, 1)
	assert.True(t, snap.Jobs[0].AssignedTo("D2"))
	assert.Nil(t, snap.Dialog)
	assert.Equal(t, "Job updated successfully", snap.Notifications[len(snap.Notifications)-1].Message)
}

func TestBoard_MoveUsesStoreRecord(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:30", domain.JobStatusPlanned))

	require.NoError(t, h.board.MoveJob(context.Background(), "A", "14:00", strPtr("D2")))

	require.Len(t, h.store.moves, 1)
	assert.Equal(t, "14:00", h.store.moves[0].NewStart)
	snap := h.board.Snapshot()
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, "14:00", snap.Jobs[0].StartTime)
	assert.Equal(t, "15:30", *snap.Jobs[0].EndTime)
	assert.True(t, snap.Jobs[0].AssignedTo("D2"))
}

func TestBoard_MoveFailureLeavesStateAndNotifies(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:30", domain.JobStatusPlanned))
	h.store.moveErr = errors.New("connection reset")

	err := h.board.MoveJob(context.Background(), "A", "14:00", nil)

	require.Error(t, err)
	snap := h.board.Snapshot()
	assert.Equal(t, "09:00", snap.Jobs[0].StartTime)
	last := snap.Notifications[len(snap.Notifications)-1]
	assert.Equal(t, LevelError, last.Level)
	assert.Equal(t, "Failed to move job", last.Message)
}

func TestBoard_MoveIgnoredWhileResizingSameCard(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))

	require.NoError(t, h.board.BeginResize("A", EdgeBottom))
	err := h.board.MoveJob(context.Background(), "A", "12:00", nil)

	assert.True(t, errors.Is(err, domain.ErrIgnored))
	assert.Empty(t, h.store.moves)
}

func TestBoard_ResizeRejectedSendsNothing(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))
	ctx := context.Background()
	px := calendar.DefaultGrid.PxPerSlot

	require.NoError(t, h.board.BeginResize("A", EdgeBottom))
	err := h.board.EndResize(ctx, -4*px)
	assert.True(t, errors.Is(err, domain.ErrIgnored), "bottom edge at the start")

	require.NoError(t, h.board.BeginResize("A", EdgeTop))
	err = h.board.EndResize(ctx, 5*px)
	assert.True(t, errors.Is(err, domain.ErrIgnored), "top edge past the end")

	require.NoError(t, h.board.BeginResize("A", EdgeTop))
	err = h.board.EndResize(ctx, 0.4*px)
	assert.True(t, errors.Is(err, domain.ErrIgnored), "less than half a slot")

	assert.Zero(t, h.store.requestCount())
	snap := h.board.Snapshot()
	assert.Equal(t, "10:00", *snap.Jobs[0].EndTime)
	assert.Nil(t, snap.Resize)
}

func TestBoard_ResizeBottomQuantizes(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))

	require.NoError(t, h.board.BeginResize("A", EdgeBottom))
	require.NoError(t, h.board.EndResize(context.Background(), 40))

	require.Len(t, h.store.patches, 1)
	assert.Nil(t, h.store.patches[0].StartTime)
	assert.Equal(t, "10:15", *h.store.patches[0].EndTime)
	assert.Equal(t, 75, h.board.Snapshot().Jobs[0].DurationMinutes)
}

func TestBoard_ResizeTopKeepsTravelTime(t *testing.T) {
	j := job("A", "D1", "09:00", "11:00", domain.JobStatusPlanned)
	j.TravelTimeMinutes = intPtr(30)
	h := newHarness(t, true, j)

	require.NoError(t, h.board.BeginResize("A", EdgeTop))
	require.NoError(t, h.board.EndResize(context.Background(), -calendar.DefaultGrid.PxPerSlot))

	require.Len(t, h.store.patches, 1)
	assert.Equal(t, "08:45", *h.store.patches[0].StartTime)
	assert.Nil(t, h.store.patches[0].EndTime)
	assert.Equal(t, "08:15", h.board.Snapshot().Jobs[0].EffectiveStart)
}

func TestBoard_ResizeTopAfterMidnightFloorMovesOnSiteStartByDelta(t *testing.T) {
	j := job("A", "D1", "00:10", "02:00", domain.JobStatusPlanned)
	j.TravelTimeMinutes = intPtr(30)
	h := newHarness(t, true, j)

	require.NoError(t, h.board.BeginResize("A", EdgeTop))
	require.NoError(t, h.board.EndResize(context.Background(), calendar.DefaultGrid.PxPerSlot))

	require.Len(t, h.store.patches, 1)
	assert.Equal(t, "00:25", *h.store.patches[0].StartTime)
}

func TestBoard_ChangeStatusRecomputesConflicts(t *testing.T) {
	h := newHarness(t, true,
		job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned),
		job("B", "D1", "09:30", "10:30", domain.JobStatusPlanned),
	)

	snap := h.board.Snapshot()
	require.Len(t, snap.Conflicts, 1)
	assert.Equal(t, calendar.SeverityWarning, snap.Conflicts[0].Severity)
	assert.Equal(t, 1, h.sink.conflictGauge("warning"))

	require.NoError(t, h.board.ChangeStatus(context.Background(), "B", domain.JobStatusToPlan))

	snap = h.board.Snapshot()
	require.Len(t, snap.Conflicts, 1)
	assert.Equal(t, calendar.SeverityError, snap.Conflicts[0].Severity)
	assert.Equal(t, 0, h.sink.conflictGauge("warning"))
	assert.Equal(t, 1, h.sink.conflictGauge("error"))

	h.board.Close()
	assert.Equal(t, 0, h.sink.conflictGauge("error"))
}

func TestBoard_ChangeStatusRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))

	err := h.board.ChangeStatus(context.Background(), "A", "lost")

	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Empty(t, h.store.statuses)
}

func TestBoard_DeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))
	ctx := context.Background()

	require.NoError(t, h.board.OpenJob("A"))
	require.NoError(t, h.board.RequestDelete("A"))
	assert.Equal(t, StateConfirmingDelete, h.board.Snapshot().State)
	assert.Empty(t, h.store.deletes)

	require.NoError(t, h.board.CancelDelete())
	assert.Equal(t, StateDialogOpen, h.board.Snapshot().State)

	require.NoError(t, h.board.RequestDelete("A"))
	require.NoError(t, h.board.ConfirmDelete(ctx))

	snap := h.board.Snapshot()
	assert.Equal(t, []string{"A"}, h.store.deletes)
	assert.Empty(t, snap.Jobs)
	assert.Nil(t, snap.Dialog)
	assert.Empty(t, snap.SelectedJobID)
	assert.Equal(t, StateIdle, snap.State)
}

func TestBoard_DeleteFailureKeepsJob(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))
	h.store.deleteErr = errors.New("boom")

	require.NoError(t, h.board.RequestDelete("A"))
	require.Error(t, h.board.ConfirmDelete(context.Background()))

	snap := h.board.Snapshot()
	assert.Len(t, snap.Jobs, 1)
	assert.Equal(t, "Failed to delete job", snap.Notifications[len(snap.Notifications)-1].Message)
}

func TestBoard_FetchFailureKeepsPreviousJobs(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))
	h.store.fetchErr = errors.New("timeout")

	err := h.board.Refresh(context.Background())

	require.Error(t, err)
	snap := h.board.Snapshot()
	assert.Len(t, snap.Jobs, 1)
	assert.Equal(t, "Failed to fetch jobs for selected date", snap.FetchError)
	assert.False(t, snap.Loading)

	h.store.fetchErr = nil
	require.NoError(t, h.board.Refresh(context.Background()))
	assert.Empty(t, h.board.Snapshot().FetchError)
}

func TestBoard_LateFetchForPreviousDateIsDiscarded(t *testing.T) {
	h := newHarness(t, true,
		domain.Job{ID: "old", JobDate: "2024-05-01", StartTime: "09:00", Status: domain.JobStatusPlanned},
		domain.Job{ID: "new", JobDate: "2024-05-02", StartTime: "11:00", Status: domain.JobStatusPlanned},
	)
	ctx := context.Background()
	gate := make(chan struct{})
	h.store.fetchGates["2024-05-01"] = gate

	done := make(chan error, 1)
	go func() { done <- h.board.SelectDate(ctx, "2024-05-01") }()
	<-h.store.started
	assert.Equal(t, StateLoading, h.board.Snapshot().State)

	require.NoError(t, h.board.SelectDate(ctx, "2024-05-02"))
	close(gate)
	assert.True(t, errors.Is(<-done, domain.ErrStaleResponse))

	snap := h.board.Snapshot()
	assert.Equal(t, "2024-05-02", snap.Date)
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, "new", snap.Jobs[0].ID)
	assert.Equal(t, 1, h.sink.staleCount())
}

func TestBoard_LateMutationForPreviousDateIsDiscarded(t *testing.T) {
	h := newHarness(t, true,
		job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned),
		domain.Job{ID: "B", JobDate: "2024-05-15", StartTime: "11:00", Status: domain.JobStatusPlanned},
	)
	ctx := context.Background()
	h.store.moveGate = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.board.MoveJob(ctx, "A", "13:00", nil) }()
	<-h.store.started

	require.NoError(t, h.board.NextDay(ctx))
	close(h.store.moveGate)
	err := <-done
	assert.True(t, errors.Is(err, domain.ErrStaleResponse))
	assert.False(t, errors.Is(err, domain.ErrIgnored))

	snap := h.board.Snapshot()
	assert.Equal(t, "2024-05-15", snap.Date)
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, "B", snap.Jobs[0].ID)
	assert.Equal(t, 1, h.sink.staleCount())
}

func TestBoard_RacingMovesLastResponseWins(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))
	ctx := context.Background()
	early, late := make(chan struct{}), make(chan struct{})
	h.store.moveGates["13:00"] = early
	h.store.moveGates["15:00"] = late

	first := make(chan error, 1)
	go func() { first <- h.board.MoveJob(ctx, "A", "13:00", nil) }()
	<-h.store.started
	second := make(chan error, 1)
	go func() { second <- h.board.MoveJob(ctx, "A", "15:00", nil) }()
	<-h.store.started

	close(late)
	require.NoError(t, <-second)
	assert.Equal(t, "15:00", h.board.Snapshot().Jobs[0].StartTime)

	close(early)
	require.NoError(t, <-first)

	snap := h.board.Snapshot()
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, "13:00", snap.Jobs[0].StartTime)
	assert.Equal(t, "14:00", *snap.Jobs[0].EndTime)
	assert.Zero(t, h.sink.staleCount())
}

func TestBoard_ViewerCannotMutate(t *testing.T) {
	h := newHarness(t, false, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))
	ctx := context.Background()

	assert.True(t, errors.Is(h.board.DoubleClickCell("12:00", "D1", ""), domain.ErrForbidden))
	assert.True(t, errors.Is(h.board.PointerDown("12:00", "D1", ""), domain.ErrForbidden))
	assert.True(t, errors.Is(h.board.OpenJob("A"), domain.ErrForbidden))
	assert.True(t, errors.Is(h.board.MoveJob(ctx, "A", "12:00", nil), domain.ErrForbidden))
	assert.True(t, errors.Is(h.board.RequestDelete("A"), domain.ErrForbidden))
	assert.Zero(t, h.store.requestCount())

	require.NoError(t, h.board.SelectJob("A"))
	assert.Equal(t, "A", h.board.Snapshot().SelectedJobID)
	assert.False(t, h.board.Snapshot().CanManageJobs)
}

func TestBoard_Navigation(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	require.NoError(t, h.board.SelectDate(ctx, "2024-03-01"))
	require.NoError(t, h.board.PreviousDay(ctx))
	assert.Equal(t, "2024-02-29", h.board.Date())

	require.NoError(t, h.board.NextDay(ctx))
	require.NoError(t, h.board.NextDay(ctx))
	assert.Equal(t, "2024-03-02", h.board.Date())

	require.NoError(t, h.board.Today(ctx))
	assert.Equal(t, testDate, h.board.Date())

	err := h.board.SelectDate(ctx, "14/05/2024")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestBoard_DateChangeClosesDialog(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	require.NoError(t, h.board.DoubleClickCell("10:00", "D1", ""))
	require.NoError(t, h.board.NextDay(ctx))

	snap := h.board.Snapshot()
	assert.Nil(t, snap.Dialog)
	assert.Equal(t, StateIdle, snap.State)
}

func TestBoard_SetView(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.board.SetView(ViewPlanned))
	assert.Equal(t, ViewPlanned, h.board.Snapshot().View)
	assert.True(t, errors.Is(h.board.SetView("weekly"), domain.ErrInvalidInput))
}

func TestBoard_NotificationsAreBounded(t *testing.T) {
	h := newHarness(t, true, job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))
	h.store.updateErr = errors.New("boom")

	for i := 0; i < MaxNotifications+5; i++ {
		_ = h.board.ChangeStatus(context.Background(), "A", domain.JobStatusCompleted)
	}

	snap := h.board.Snapshot()
	assert.Len(t, snap.Notifications, MaxNotifications)
	assert.Equal(t, "Failed to update job status", snap.Notifications[MaxNotifications-1].Message)
}

func TestBoard_NotifierReceivesMessages(t *testing.T) {
	store := newFakeStore(job("A", "D1", "09:00", "10:00", domain.JobStatusPlanned))
	var got []Notification
	b, err := New(Options{
		OrgID:         "org-1",
		Store:         store,
		Clock:         newFakeClock(testNow),
		CanManageJobs: true,
		Notifier: NotifierFunc(func(orgID string, n Notification) {
			assert.Equal(t, "org-1", orgID)
			got = append(got, n)
		}),
	}, testDate, "")
	require.NoError(t, err)
	require.NoError(t, b.Refresh(context.Background()))

	require.NoError(t, b.ChangeStatus(context.Background(), "A", domain.JobStatusCompleted))

	require.Len(t, got, 1)
	assert.Equal(t, LevelInfo, got[0].Level)
	assert.Equal(t, ViewSplit, b.Snapshot().View)
}

func TestBoard_RunClockTicksNow(t *testing.T) {
	h := newHarness(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.board.RunClock(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		h.clock.mu.Lock()
		defer h.clock.mu.Unlock()
		return len(h.clock.tickers) == 1
	}, time.Second, time.Millisecond)

	h.clock.Advance(time.Minute)
	h.clock.mu.Lock()
	ticker := h.clock.tickers[0]
	h.clock.mu.Unlock()
	ticker.ch <- h.clock.Now()

	require.Eventually(t, func() bool {
		return h.board.Snapshot().Now.Equal(testNow.Add(time.Minute))
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{}, testDate, ViewSplit)
	assert.Error(t, err)

	_, err = New(Options{Store: newFakeStore()}, "tomorrow", ViewSplit)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = New(Options{Store: newFakeStore(), Grid: calendar.Grid{StartHour: 9, EndHour: 8, SlotMinutes: 15, PxPerSlot: 1}}, testDate, ViewSplit)
	assert.Error(t, err)

	b, err := New(Options{Store: newFakeStore(), Clock: newFakeClock(testNow)}, "", ViewAssigned)
	require.NoError(t, err)
	assert.Equal(t, testDate, b.Date())
}
