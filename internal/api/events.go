package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"vidmint/internal/logging"
	"vidmint/internal/mint"
)

const keepAliveInterval = 15 * time.Second

// latestSnapshot coalesces observer deliveries so a slow client only ever
// skips intermediate states, never the most recent one.
type latestSnapshot struct {
	mu     sync.Mutex
	snap   mint.Snapshot
	fresh  bool
	signal chan struct{}
}

func newLatestSnapshot() *latestSnapshot {
	return &latestSnapshot{signal: make(chan struct{}, 1)}
}

func (l *latestSnapshot) set(snap mint.Snapshot) {
	l.mu.Lock()
	l.snap = snap
	l.fresh = true
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *latestSnapshot) take() (mint.Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.fresh {
		return mint.Snapshot{}, false
	}
	l.fresh = false
	return l.snap, true
}

// handleEvents streams session snapshots as server-sent events until the
// client disconnects or the session ends.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"), nil)
		return
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	latest := newLatestSnapshot()
	unsubscribe := wf.Subscribe(latest.set)
	defer unsubscribe()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-latest.signal:
			snap, fresh := latest.take()
			if !fresh {
				continue
			}
			if err := writeEvent(w, snap); err != nil {
				s.logger.Debug("event stream write failed", logging.Error(err))
				return
			}
			flusher.Flush()
			if snap.Abandoned {
				return
			}
		case <-wf.Done():
			if snap, fresh := latest.take(); fresh {
				_ = writeEvent(w, snap)
				flusher.Flush()
			}
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, snap mint.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, data)
	return err
}
