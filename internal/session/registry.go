// Package session keeps the live scheduling boards of the server, keyed by
// session id, and expires the ones left idle.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sumire/pumpplanner/internal/board"
	"github.com/sumire/pumpplanner/internal/domain"
	"github.com/sumire/pumpplanner/internal/metrics"
)

// DefaultTTL is the idle time after which a session is closed.
const DefaultTTL = 30 * time.Minute

type entry struct {
	board    *board.Board
	orgID    string
	userID   string
	lastUsed time.Time
	stop     context.CancelFunc
}

// Registry owns open boards. Each board runs its minute clock until the
// session is closed or expires.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	metrics  metrics.Sink
	logger   *zap.Logger
}

// NewRegistry creates a Registry.
func NewRegistry(ttl time.Duration, sink metrics.Sink, logger *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: map[string]*entry{},
		ttl:      ttl,
		now:      time.Now,
		metrics:  sink,
		logger:   logger,
	}
}

// Open registers b for the caller and returns the new session id.
func (r *Registry) Open(id domain.Identity, b *board.Board) string {
	ctx, cancel := context.WithCancel(context.Background())
	sid := uuid.NewString()

	r.mu.Lock()
	r.sessions[sid] = &entry{
		board:    b,
		orgID:    id.OrganizationID,
		userID:   id.UserID,
		lastUsed: r.now(),
		stop:     cancel,
	}
	r.mu.Unlock()

	go b.RunClock(ctx)
	r.metrics.SessionOpened()
	r.logger.Debug("board session opened", zap.String("session_id", sid), zap.String("user_id", id.UserID))
	return sid
}

// Get returns the board of session sid. Sessions belong to the user that
// opened them; anyone else gets ErrNotFound.
func (r *Registry) Get(id domain.Identity, sid string) (*board.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.orgID != id.OrganizationID || e.userID != id.UserID {
		return nil, domain.ErrNotFound
	}
	e.lastUsed = r.now()
	return e.board, nil
}

// Close ends session sid.
func (r *Registry) Close(id domain.Identity, sid string) error {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	if !ok || e.orgID != id.OrganizationID || e.userID != id.UserID {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(r.sessions, sid)
	r.mu.Unlock()

	r.release(sid, e, "closed")
	return nil
}

// Sweep closes every session idle for longer than the TTL and returns how
// many it closed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	expired := map[string]*entry{}
	for sid, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			expired[sid] = e
			delete(r.sessions, sid)
		}
	}
	r.mu.Unlock()

	for sid, e := range expired {
		r.release(sid, e, "expired")
	}
	return len(expired)
}

// Run sweeps at interval until ctx is done. A non-positive interval sweeps
// at half the TTL.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("expired board sessions", zap.Int("count", n))
			}
		}
	}
}

// Shutdown closes every session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*entry{}
	r.mu.Unlock()

	for sid, e := range all {
		r.release(sid, e, "shutdown")
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) release(sid string, e *entry, reason string) {
	e.stop()
	e.board.Close()
	r.metrics.SessionClosed()
	r.logger.Debug("board session ended", zap.String("session_id", sid), zap.String("reason", reason))
}
