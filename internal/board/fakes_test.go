package board

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sumire/pumpplanner/internal/calendar"
	"github.com/sumire/pumpplanner/internal/domain"
)

type moveCall struct {
	JobID    string
	NewStart string
	DriverID *string
}

type fakeStore struct {
	mu     sync.Mutex
	jobs   map[string]domain.Job
	nextID int

	fetchDates []string
	creates    []domain.JobDraft
	patches    []domain.JobPatch
	moves      []moveCall
	statuses   []domain.JobStatus
	deletes    []string

	fetchErr  error
	createErr error
	updateErr error
	moveErr   error
	deleteErr error

	fetchGates map[string]chan struct{}
	moveGate   chan struct{}
	moveGates  map[string]chan struct{}
	started    chan string
}

func newFakeStore(jobs ...domain.Job) *fakeStore {
	s := &fakeStore{
		jobs:       map[string]domain.Job{},
		fetchGates: map[string]chan struct{}{},
		moveGates:  map[string]chan struct{}{},
		started:    make(chan string, 8),
	}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *fakeStore) FetchJobsForDate(_ context.Context, _, date string) ([]domain.Job, error) {
	s.mu.Lock()
	s.fetchDates = append(s.fetchDates, date)
	gate := s.fetchGates[date]
	s.mu.Unlock()
	if gate != nil {
		s.started <- "fetch " + date
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []domain.Job
	for _, j := range s.jobs {
		if j.JobDate == date {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *fakeStore) CreateJob(_ context.Context, orgID string, draft domain.JobDraft) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, draft)
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	job := domain.Job{
		ID:                fmt.Sprintf("new-%d", s.nextID),
		OrganizationID:    orgID,
		JobDate:           draft.JobDate,
		StartTime:         draft.StartTime,
		EndTime:           draft.EndTime,
		TravelTimeMinutes: draft.TravelTimeMinutes,
		DriverID:          draft.DriverID,
		Status:            draft.Status,
	}
	s.jobs[job.ID] = job
	return &job, nil
}

func (s *fakeStore) UpdateJob(_ context.Context, _, jobID string, patch domain.JobPatch) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, patch)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.StartTime != nil {
		job.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		job.EndTime = patch.EndTime
	}
	if patch.TravelTimeMinutes != nil {
		job.TravelTimeMinutes = patch.TravelTimeMinutes
	}
	if patch.DriverID != nil {
		job.DriverID = patch.DriverID
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	s.jobs[jobID] = job
	return &job, nil
}

func (s *fakeStore) MoveJob(_ context.Context, _, jobID, newStart string, newDriverID *string) (*domain.Job, error) {
	s.mu.Lock()
	s.moves = append(s.moves, moveCall{JobID: jobID, NewStart: newStart, DriverID: newDriverID})
	gate := s.moveGate
	if g, ok := s.moveGates[newStart]; ok {
		gate = g
	}
	s.mu.Unlock()
	if gate != nil {
		s.started <- "move " + jobID + " " + newStart
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moveErr != nil {
		return nil, s.moveErr
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	start, end, err := calendar.MovedRange(job, newStart)
	if err != nil {
		return nil, err
	}
	job.StartTime = start
	if end != "" {
		job.EndTime = &end
	}
	if newDriverID != nil {
		job.DriverID = newDriverID
	}
	s.jobs[jobID] = job
	return &job, nil
}

func (s *fakeStore) UpdateJobStatus(_ context.Context, _, jobID string, status domain.JobStatus) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	job.Status = status
	s.jobs[jobID] = job
	return &job, nil
}

func (s *fakeStore) DeleteJob(_ context.Context, _, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, jobID)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.jobs, jobID)
	return nil
}

func (s *fakeStore) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creates) + len(s.patches) + len(s.moves) + len(s.statuses) + len(s.deletes)
}

type fakeDirectory struct {
	drivers []domain.Driver
	err     error
}

func (d *fakeDirectory) FetchActiveDrivers(context.Context, string) ([]domain.Driver, error) {
	return d.drivers, d.err
}

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               {}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward and fires due timers outside the lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeSink struct {
	mu        sync.Mutex
	stale     int
	conflicts map[string]int
}

func newFakeSink() *fakeSink {
	return &fakeSink{conflicts: map[string]int{}}
}

func (s *fakeSink) StoreOperation(string, string, time.Duration) {}
func (s *fakeSink) SessionOpened()                               {}
func (s *fakeSink) SessionClosed()                               {}

func (s *fakeSink) ConflictsAdjust(severity string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts[severity] += delta
}

func (s *fakeSink) StaleResponse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale++
}

func (s *fakeSink) staleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

func (s *fakeSink) conflictGauge(severity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflicts[severity]
}
