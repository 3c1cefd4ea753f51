package testsupport

import (
	"context"
	"sync"

	"vidmint/internal/storage"
	"vidmint/internal/tokenid"
)

// FakeDeriver returns a fixed pair per video id and counts calls.
type FakeDeriver struct {
	mu    sync.Mutex
	calls int
	Pair  tokenid.Pair
	Err   error
	// Gate, when non-nil, is received from before answering.
	Gate  chan struct{}
}

// Derive implements the workflow's identifier deriver.
func (f *FakeDeriver) Derive(ctx context.Context, videoID string) (tokenid.Pair, error) {
	f.mu.Lock()
	f.calls++
	gate := f.Gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return tokenid.Pair{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return tokenid.Pair{}, f.Err
	}
	return f.Pair, nil
}

// Calls returns how many times Derive was invoked.
func (f *FakeDeriver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// SetErr changes the error returned by later calls.
func (f *FakeDeriver) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}

// FlakyAddresser wraps storage.Memory and fails while Err is set.
type FlakyAddresser struct {
	*storage.Memory
	mu       sync.Mutex
	err      error
	attempts int
	// Gate, when non-nil, is received from before uploading.
	Gate     chan struct{}
}

// NewFlakyAddresser returns an addresser that succeeds until SetErr is called.
func NewFlakyAddresser() *FlakyAddresser {
	return &FlakyAddresser{Memory: storage.NewMemory()}
}

// SetErr changes the error returned by later uploads; nil restores success.
func (f *FlakyAddresser) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Attempts returns how many uploads were attempted, including failures.
func (f *FlakyAddresser) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// Upload implements the workflow's content addresser.
func (f *FlakyAddresser) Upload(ctx context.Context, data []byte) (string, error) {
	f.mu.Lock()
	f.attempts++
	gate := f.Gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.Memory.Upload(ctx, data)
}
