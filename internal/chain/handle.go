package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"vidmint/internal/logging"
	"vidmint/internal/services"
)

// Observer receives lifecycle events. It must not block for long; events of one
// handle are delivered one at a time.
type Observer func(Event)

type delivery struct {
	event   Event
	targets []int
}

// Handle tracks one submitted transaction.
type Handle struct {
	hash   common.Hash
	reader ReceiptReader
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	latest    Event
	receipt   *types.Receipt
	observers map[int]Observer
	nextID    int
	queue     []delivery
	draining  bool
	done      chan struct{}
	watching  bool
}

func newHandle(hash common.Hash, reader ReceiptReader, opts Options, logger *slog.Logger) *Handle {
	return &Handle{
		hash:      hash,
		reader:    reader,
		opts:      opts,
		logger:    logger,
		latest:    Event{Status: StatusSubmitted, TxHash: hash, At: time.Now().UTC()},
		observers: make(map[int]Observer),
		done:      make(chan struct{}),
	}
}

// Hash returns the transaction hash.
func (h *Handle) Hash() common.Hash {
	return h.hash
}

// Latest returns the most recent lifecycle event.
func (h *Handle) Latest() Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Status returns the current lifecycle state.
func (h *Handle) Status() Status {
	return h.Latest().Status
}

// Done is closed when the handle reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Subscribe registers fn and immediately queues the latest event for it. The
// returned function removes the observer; events already queued for it are
// dropped.
func (h *Handle) Subscribe(fn Observer) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.observers[id] = fn
	h.enqueueLocked(delivery{event: h.latest, targets: []int{id}})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.observers, id)
			h.mu.Unlock()
		})
	}
}

// Wait blocks until the handle is terminal or ctx ends.
func (h *Handle) Wait(ctx context.Context) (Event, error) {
	select {
	case <-h.done:
		return h.Latest(), nil
	case <-ctx.Done():
		return h.Latest(), ctx.Err()
	}
}

// Watch starts the receipt watcher. Cancelling ctx stops it without a
// transition. Calling Watch more than once has no effect.
func (h *Handle) Watch(ctx context.Context) {
	h.mu.Lock()
	if h.watching || h.latest.Status.Terminal() {
		h.mu.Unlock()
		return
	}
	h.watching = true
	h.mu.Unlock()
	go h.watch(ctx)
}

func (h *Handle) watch(ctx context.Context) {
	ticker := time.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		err := h.poll(ctx)
		switch {
		case ctx.Err() != nil:
			h.logger.Debug("receipt watcher stopped", logging.Error(ctx.Err()))
			return
		case err != nil:
			failures++
			logging.WarnWithContext(h.logger, "receipt poll failed", "receipt_poll_failed",
				logging.Error(err),
				logging.Int("consecutive_failures", failures),
				logging.String(logging.FieldImpact, "transaction state is not refreshed"),
			)
			if failures >= h.opts.MaxWatchErrors {
				h.transition(Event{
					Status: StatusFailed,
					Err:    services.Wrap(services.ErrTransactionFailed, stepName, "watch receipt", fmt.Sprintf("%d consecutive node errors", failures), err),
				})
			}
		default:
			failures = 0
		}
		if h.Status().Terminal() {
			return
		}
		select {
		case <-ctx.Done():
			h.logger.Debug("receipt watcher stopped", logging.Error(ctx.Err()))
			return
		case <-ticker.C:
		}
	}
}

// poll checks the receipt and chain head once, applying any transitions.
func (h *Handle) poll(ctx context.Context) error {
	h.mu.Lock()
	receipt := h.receipt
	h.mu.Unlock()

	if receipt == nil {
		fetched, err := h.reader.TransactionReceipt(ctx, h.hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if fetched == nil {
			return nil
		}
		receipt = fetched
		h.mu.Lock()
		h.receipt = receipt
		h.mu.Unlock()
		h.transition(Event{Status: StatusIncluded, Receipt: receipt, BlockNumber: blockOf(receipt)})
		if receipt.Status != types.ReceiptStatusSuccessful {
			h.transition(Event{
				Status:      StatusFailed,
				Receipt:     receipt,
				BlockNumber: blockOf(receipt),
				Err: services.Wrap(services.ErrTransactionFailed, stepName, "receipt",
					fmt.Sprintf("transaction reverted in block %d", blockOf(receipt)), nil),
			})
			return nil
		}
	}

	head, err := h.reader.BlockNumber(ctx)
	if err != nil {
		return err
	}
	included := blockOf(receipt)
	if head >= included && head-included+1 >= uint64(h.opts.Confirmations) {
		h.transition(Event{Status: StatusConfirmed, Receipt: receipt, BlockNumber: included})
	}
	return nil
}

// transition applies ev when it moves the handle forward. Duplicate or
// regressive events, and anything after a terminal state, are ignored.
func (h *Handle) transition(ev Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest.Status.Terminal() || !ev.Status.Follows(h.latest.Status) {
		return false
	}
	ev.TxHash = h.hash
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.latest = ev
	h.logger.Info("transaction state changed",
		logging.String("status", string(ev.Status)),
		logging.Uint64("block", ev.BlockNumber),
	)
	if ev.Status.Terminal() {
		close(h.done)
	}
	h.enqueueLocked(delivery{event: ev, targets: h.observerIDsLocked()})
	return true
}

func (h *Handle) enqueueLocked(d delivery) {
	h.queue = append(h.queue, d)
	if h.draining {
		return
	}
	h.draining = true
	go h.drain()
}

func (h *Handle) drain() {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.draining = false
			h.mu.Unlock()
			return
		}
		d := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()

		for _, id := range d.targets {
			h.mu.Lock()
			fn, ok := h.observers[id]
			h.mu.Unlock()
			if ok {
				fn(d.event)
			}
		}
	}
}

func (h *Handle) observerIDsLocked() []int {
	ids := make([]int, 0, len(h.observers))
	for id := range h.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func blockOf(receipt *types.Receipt) uint64 {
	if receipt == nil || receipt.BlockNumber == nil {
		return 0
	}
	return receipt.BlockNumber.Uint64()
}
