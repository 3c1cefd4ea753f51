package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vidmint/internal/logging"
	"vidmint/internal/mint"
)

// closeFlushTimeout bounds how long Close waits for abandoned sessions to
// deliver their final snapshots.
const closeFlushTimeout = 5 * time.Second

// Factory creates a new workflow session.
type Factory func() (*mint.Workflow, error)

type sessionEntry struct {
	workflow *mint.Workflow
	lastSeen time.Time
}

// SessionRegistry tracks live sessions by id.
type SessionRegistry struct {
	factory Factory
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	closed   bool
}

// NewSessionRegistry returns an empty registry. A non-positive ttl disables
// eviction.
func NewSessionRegistry(factory Factory, ttl time.Duration, logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SessionRegistry{
		factory:  factory,
		ttl:      ttl,
		logger:   logging.NewComponentLogger(logger, "sessions"),
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Create starts a session. The session outlives ctx.
func (r *SessionRegistry) Create(ctx context.Context) (*mint.Workflow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.factory == nil {
		return nil, errors.New("session factory not configured")
	}
	wf, err := r.factory()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		wf.Abandon()
		return nil, errors.New("session registry closed")
	}
	r.sessions[wf.ID()] = &sessionEntry{workflow: wf, lastSeen: r.now()}
	r.logger.Info("session created",
		logging.String(logging.FieldEventType, "session_created"),
		logging.String(logging.FieldSessionID, wf.ID()),
	)
	return wf, nil
}

// Get returns the session and marks it as recently used.
func (r *SessionRegistry) Get(id string) (*mint.Workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.workflow, true
}

// Remove abandons and forgets the session. It reports whether it existed.
func (r *SessionRegistry) Remove(id string) bool {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.workflow.Abandon()
	r.logger.Info("session abandoned",
		logging.String(logging.FieldEventType, "session_abandoned"),
		logging.String(logging.FieldSessionID, id),
	)
	return true
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep abandons sessions idle for longer than the ttl. Sessions with a step
// in flight or a transaction still being watched are kept. It returns the
// number of evicted sessions.
func (r *SessionRegistry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	var idle []*mint.Workflow

	r.mu.Lock()
	for id, entry := range r.sessions {
		if entry.lastSeen.After(cutoff) {
			continue
		}
		snap := entry.workflow.Snapshot()
		if snap.InFlight || snap.Transaction.Live() {
			continue
		}
		idle = append(idle, entry.workflow)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, wf := range idle {
		wf.Abandon()
		r.logger.Info("idle session evicted",
			logging.String(logging.FieldEventType, "session_evicted"),
			logging.String(logging.FieldSessionID, wf.ID()),
			logging.Duration("ttl", r.ttl),
		)
	}
	return len(idle)
}

// Close abandons every session and rejects new ones. It returns once the
// final snapshot of each session has been delivered to its subscribers, so
// the journal can be closed afterwards.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*sessionEntry)
	r.mu.Unlock()
	for _, entry := range sessions {
		entry.workflow.Abandon()
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()
	for id, entry := range sessions {
		if err := entry.workflow.Flush(ctx); err != nil {
			r.logger.Warn("session snapshots not flushed",
				logging.String(logging.FieldEventType, "session_flush_failed"),
				logging.String(logging.FieldSessionID, id),
				logging.Error(err),
			)
		}
	}
}

// reopen accepts new sessions again after Close.
func (r *SessionRegistry) reopen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = false
}
