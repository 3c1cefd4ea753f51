package mint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"vidmint/internal/chain"
	"vidmint/internal/logging"
	"vidmint/internal/metadata"
	"vidmint/internal/notifications"
	"vidmint/internal/services"
	"vidmint/internal/tokenid"
	"vidmint/internal/video"
)

// Deriver obtains the on-chain token identifiers for a video.
type Deriver interface {
	Derive(ctx context.Context, videoID string) (tokenid.Pair, error)
}

// Addresser stores immutable bytes and returns their content identifier.
type Addresser interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// Submitter sends the mint transaction and returns its lifecycle handle.
type Submitter interface {
	Submit(ctx context.Context, videoID, cid string) (*chain.Handle, error)
}

// Recorder persists workflow transitions for auditing.
type Recorder interface {
	Record(ctx context.Context, snap Snapshot) error
}

// Dependencies wires a workflow to its collaborators. Deriver, Addresser and
// Submitter are required.
type Dependencies struct {
	Deriver   Deriver
	Addresser Addresser
	Submitter Submitter
	Metadata  metadata.Builder
	Owner     common.Address
	Recorder  Recorder
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Option customizes a workflow.
type Option func(*Workflow)

// WithSessionID overrides the generated session identifier.
func WithSessionID(id string) Option {
	return func(w *Workflow) {
		if id = strings.TrimSpace(id); id != "" {
			w.state.SessionID = id
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// Workflow is one mint session.
type Workflow struct {
	deps      Dependencies
	logger    *slog.Logger
	telemetry telemetry
	now       func() time.Time

	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	state    state
	inFlight Step
	closed   bool
	handle   *chain.Handle
	unwatch  func()

	observers observerSet
}

type state struct {
	SessionID   string
	Version     uint64
	Step        Step
	VideoID     string
	Title       string
	TokenIDs    tokenid.Pair
	Attested    bool
	Metadata    *metadata.Document
	Canonical   []byte
	CID         string
	Transaction *Transaction
	LastError   error
	Abandoned   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a workflow at CollectIdentifier. The session lives until parent
// is cancelled or Abandon is called.
func New(parent context.Context, deps Dependencies, opts ...Option) (*Workflow, error) {
	if deps.Deriver == nil || deps.Addresser == nil || deps.Submitter == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "New", "deriver, addresser and submitter are required", nil)
	}
	if parent == nil {
		parent = context.Background()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	w := &Workflow{
		deps: deps,
		now:  func() time.Time { return time.Now().UTC() },
	}
	w.state.SessionID = uuid.NewString()
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	w.logger = logging.NewComponentLogger(logger, "mint").With(logging.String(logging.FieldSessionID, w.state.SessionID))
	w.telemetry = newTelemetry(w.logger)

	now := w.now()
	w.state.Step = StepCollectIdentifier
	w.state.CreatedAt = now
	w.state.UpdatedAt = now

	ctx := services.WithSessionID(parent, w.state.SessionID)
	w.lifetime, w.cancel = context.WithCancel(ctx)

	if deps.Recorder != nil {
		w.observers.add(w.record)
	}
	w.mu.Lock()
	w.emitLocked()
	w.mu.Unlock()
	return w, nil
}

// ID returns the session identifier.
func (w *Workflow) ID() string {
	return w.state.SessionID
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// CurrentStep returns the current step.
func (w *Workflow) CurrentStep() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Step
}

// LastError returns the most recent failure, or nil after a successful step.
func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.LastError
}

// Done is closed when the session ends, by Abandon or parent cancellation.
func (w *Workflow) Done() <-chan struct{} {
	return w.lifetime.Done()
}

// Subscribe registers fn for state changes. fn immediately receives the
// current snapshot. The returned func unsubscribes; calling it more than once
// is harmless.
func (w *Workflow) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return func() {}
	}
	id := w.observers.add(fn)
	w.observers.enqueue(w.snapshotLocked(), []int{id})
	return func() { w.observers.remove(id) }
}

// SubmitIdentifier accepts the video identifier and title and derives the
// token identifiers. An invalid identifier fails with services.ErrValidation
// before any external call.
func (w *Workflow) SubmitIdentifier(ctx context.Context, videoID, title string) error {
	videoID = strings.TrimSpace(videoID)
	title = metadata.NormalizeTitle(title)

	w.mu.Lock()
	if err := w.guardLocked(StepDeriveIdentifiers, StepCollectIdentifier); err != nil {
		w.mu.Unlock()
		return err
	}
	if err := video.Validate(videoID); err != nil {
		w.failLocked(err)
		w.mu.Unlock()
		return err
	}
	if title == "" {
		err := services.Wrap(services.ErrValidation, string(StepCollectIdentifier), "SubmitIdentifier", "title is required", nil)
		w.failLocked(err)
		w.mu.Unlock()
		return err
	}
	w.state.VideoID = videoID
	w.state.Title = title
	w.state.TokenIDs = tokenid.Pair{}
	w.state.LastError = nil
	w.state.Step = StepDeriveIdentifiers
	w.inFlight = StepDeriveIdentifiers
	w.touchLocked()
	w.emitLocked()
	w.mu.Unlock()

	callCtx, stop := w.callContext(ctx, StepDeriveIdentifiers, videoID)
	callCtx, end := w.telemetry.start(callCtx, w.ID(), StepDeriveIdentifiers)
	pair, err := w.deps.Deriver.Derive(callCtx, videoID)
	if err == nil && pair.IsZero() {
		err = errors.New("empty token identifiers")
	}
	if err != nil && !errors.Is(err, services.ErrDerivation) {
		err = services.Wrap(services.ErrDerivation, string(StepDeriveIdentifiers), "Derive", "derive token ids", err)
	}
	end(err)
	stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = ""
	if w.closed {
		return w.abandonedError(StepDeriveIdentifiers)
	}
	if err != nil {
		w.state.Step = StepCollectIdentifier
		w.failLocked(err)
		return err
	}
	w.state.TokenIDs = pair
	w.state.Step = StepValidateOwnership
	w.touchLocked()
	w.logger.Info("token identifiers derived",
		logging.String(logging.FieldEventType, "token_ids_derived"),
		logging.String(logging.FieldVideoID, videoID),
		logging.String("video_token_id", pair.VideoTokenID),
		logging.String("edition_token_id", pair.EditionTokenID),
	)
	w.emitLocked()
	return nil
}

// OwnershipInstructions returns what the owner must add to the video
// description before attesting ownership.
func (w *Workflow) OwnershipInstructions() (video.Instructions, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.TokenIDs.IsZero() || w.state.Step.Index() < StepValidateOwnership.Index() {
		return video.Instructions{}, services.Wrap(services.ErrInvalidTransition, w.state.Step.String(), "OwnershipInstructions", "token identifiers not derived yet", nil)
	}
	return video.OwnershipInstructions(w.deps.Metadata.TokenBaseURL, w.state.VideoID, w.state.TokenIDs.VideoTokenID), nil
}

// AttestOwnership records the user's manual statement that they own the
// video. It is a trust step and is never verified.
func (w *Workflow) AttestOwnership(confirmed bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.guardLocked(StepValidateOwnership, StepValidateOwnership); err != nil {
		return err
	}
	if !confirmed {
		err := services.Wrap(services.ErrValidation, string(StepValidateOwnership), "AttestOwnership", "ownership must be confirmed", nil)
		w.failLocked(err)
		return err
	}
	w.state.Attested = true
	w.state.LastError = nil
	w.state.Step = StepBuildAndAddress
	w.touchLocked()
	w.logger.Info("ownership attested",
		logging.String(logging.FieldEventType, "ownership_attested"),
		logging.String(logging.FieldVideoID, w.state.VideoID),
	)
	w.emitLocked()
	return nil
}

// Publish builds the metadata document and stores it. A CID already held for
// byte-identical metadata is reused without uploading again.
func (w *Workflow) Publish(ctx context.Context) error {
	w.mu.Lock()
	if err := w.guardLocked(StepBuildAndAddress, StepBuildAndAddress); err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.state.Attested {
		w.mu.Unlock()
		return services.Wrap(services.ErrInvalidTransition, string(StepBuildAndAddress), "Publish", "ownership not attested", nil)
	}
	doc := w.deps.Metadata.Build(w.deps.Owner, w.state.VideoID, w.state.Title, w.state.TokenIDs)
	data := doc.Canonical()
	if w.state.CID != "" && bytes.Equal(w.state.Canonical, data) {
		w.state.LastError = nil
		w.state.Step = StepSubmitMint
		w.touchLocked()
		w.logger.Info("metadata unchanged, reusing cid",
			logging.String(logging.FieldEventType, "metadata_reused"),
			logging.String(logging.FieldCID, w.state.CID),
		)
		w.emitLocked()
		w.mu.Unlock()
		return nil
	}
	w.inFlight = StepBuildAndAddress
	w.touchLocked()
	w.emitLocked()
	videoID := w.state.VideoID
	w.mu.Unlock()

	callCtx, stop := w.callContext(ctx, StepBuildAndAddress, videoID)
	callCtx, end := w.telemetry.start(callCtx, w.ID(), StepBuildAndAddress)
	cid, err := w.deps.Addresser.Upload(callCtx, data)
	if err == nil && strings.TrimSpace(cid) == "" {
		err = errors.New("storage returned an empty cid")
	}
	if err != nil && !errors.Is(err, services.ErrStorage) {
		err = services.Wrap(services.ErrStorage, string(StepBuildAndAddress), "Upload", "store metadata", err)
	}
	end(err)
	stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = ""
	if w.closed {
		return w.abandonedError(StepBuildAndAddress)
	}
	if err != nil {
		w.failLocked(err)
		return err
	}
	w.state.Metadata = &doc
	w.state.Canonical = data
	w.state.CID = strings.TrimSpace(cid)
	w.state.LastError = nil
	w.state.Step = StepSubmitMint
	w.touchLocked()
	w.logger.Info("metadata stored",
		logging.String(logging.FieldEventType, "metadata_stored"),
		logging.String(logging.FieldCID, w.state.CID),
		logging.Int("bytes", len(data)),
	)
	w.emitLocked()
	return nil
}

// Mint submits the mint transaction and starts watching it. The call returns
// once the node accepted the transaction; confirmation arrives through
// subscriptions.
func (w *Workflow) Mint(ctx context.Context) error {
	w.mu.Lock()
	if err := w.guardLocked(StepSubmitMint, StepSubmitMint); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.state.Transaction.Live() {
		w.mu.Unlock()
		return services.Wrap(services.ErrStepInFlight, string(StepSubmitMint), "Mint", "transaction "+w.state.Transaction.Hash+" still pending", nil)
	}
	if w.state.CID == "" {
		w.mu.Unlock()
		return services.Wrap(services.ErrInvalidTransition, string(StepSubmitMint), "Mint", "metadata not stored", nil)
	}
	w.inFlight = StepSubmitMint
	w.touchLocked()
	w.emitLocked()
	videoID, cid := w.state.VideoID, w.state.CID
	w.mu.Unlock()

	callCtx, stop := w.callContext(ctx, StepSubmitMint, videoID)
	callCtx, end := w.telemetry.start(callCtx, w.ID(), StepSubmitMint)
	handle, err := w.deps.Submitter.Submit(callCtx, videoID, cid)
	if err == nil && handle == nil {
		err = errors.New("submitter returned no handle")
	}
	if err != nil && !errors.Is(err, services.ErrSubmission) {
		err = services.Wrap(services.ErrSubmission, string(StepSubmitMint), "Submit", "submit mint", err)
	}
	end(err)
	stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = ""
	if w.closed {
		if handle != nil {
			w.logger.Warn("transaction submitted after abandon; not watching",
				logging.String(logging.FieldEventType, "tx_orphaned"),
				logging.String(logging.FieldTxHash, handle.Hash().Hex()),
				logging.String(logging.FieldImpact, "the mint may still be included on chain"),
			)
		}
		return w.abandonedError(StepSubmitMint)
	}
	if err != nil {
		w.failLocked(err)
		return err
	}

	now := w.now()
	hash := handle.Hash().Hex()
	w.state.Transaction = &Transaction{
		Hash:        hash,
		Status:      chain.StatusSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	w.state.LastError = nil
	w.handle = handle
	w.unwatch = handle.Subscribe(w.onTransactionEvent)
	handle.Watch(w.lifetime)
	w.touchLocked()
	w.logger.Info("mint transaction submitted",
		logging.String(logging.FieldEventType, "tx_submitted"),
		logging.String(logging.FieldTxHash, hash),
		logging.String(logging.FieldVideoID, videoID),
		logging.String(logging.FieldCID, cid),
	)
	w.notify(notifications.EventTransactionSubmitted, notifications.Payload{
		"txHash":  hash,
		"videoId": videoID,
	})
	w.emitLocked()
	return nil
}

// Restart returns to CollectIdentifier and clears everything derived from the
// previous identifier. It is allowed before metadata work starts.
func (w *Workflow) Restart() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.abandonedError(w.state.Step)
	}
	if w.inFlight != "" {
		return w.inFlightError(w.inFlight, "Restart")
	}
	switch w.state.Step {
	case StepCollectIdentifier, StepValidateOwnership:
	default:
		return services.Wrap(services.ErrInvalidTransition, w.state.Step.String(), "Restart", "restart is only possible before metadata is built", nil)
	}
	w.state.Step = StepCollectIdentifier
	w.state.VideoID = ""
	w.state.Title = ""
	w.state.TokenIDs = tokenid.Pair{}
	w.state.Attested = false
	w.state.Metadata = nil
	w.state.Canonical = nil
	w.state.CID = ""
	w.state.Transaction = nil
	w.state.LastError = nil
	w.touchLocked()
	w.logger.Info("workflow restarted", logging.String(logging.FieldEventType, "workflow_restarted"))
	w.emitLocked()
	return nil
}

// Abandon ends the session. In-flight calls and the transaction watcher are
// cancelled, and no further snapshots are delivered after the final one.
func (w *Workflow) Abandon() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.state.Abandoned = true
	w.touchLocked()
	w.emitLocked()
	w.closed = true
	w.observers.close()
	if w.unwatch != nil {
		w.unwatch()
		w.unwatch = nil
	}
	w.cancel()
	w.logger.Info("workflow abandoned",
		logging.String(logging.FieldEventType, "workflow_abandoned"),
		logging.String(logging.FieldStep, w.state.Step.String()),
	)
}

// Flush blocks until every snapshot emitted so far has reached its
// subscribers, including the journal recorder. Call it after Abandon and
// before closing the journal. It must not be called from a Subscribe callback.
func (w *Workflow) Flush(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.observers.flush(ctx)
}

// Closed reports whether Abandon was called.
func (w *Workflow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Workflow) onTransactionEvent(ev chain.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.handle == nil || ev.TxHash != w.handle.Hash() {
		return
	}
	tx := w.state.Transaction
	if tx == nil || tx.Hash != ev.TxHash.Hex() || tx.Status.Terminal() || !ev.Status.Follows(tx.Status) {
		return
	}
	next := *tx
	next.Status = ev.Status
	next.UpdatedAt = w.now()
	if ev.BlockNumber > 0 {
		next.BlockNumber = ev.BlockNumber
	}
	w.state.Transaction = &next

	attrs := []logging.Attr{
		logging.String(logging.FieldTxHash, next.Hash),
		logging.Uint64("block", next.BlockNumber),
	}
	switch ev.Status {
	case chain.StatusIncluded:
		w.logger.Info("mint transaction included", logging.Args(append(attrs, logging.String(logging.FieldEventType, "tx_included"))...)...)
		w.notify(notifications.EventReceiptReceived, notifications.Payload{
			"txHash":      next.Hash,
			"blockNumber": next.BlockNumber,
		})
	case chain.StatusConfirmed:
		w.state.Step = StepDone
		w.state.LastError = nil
		w.releaseHandleLocked()
		w.logger.Info("mint confirmed", logging.Args(append(attrs, logging.String(logging.FieldEventType, "mint_confirmed"))...)...)
		w.notify(notifications.EventMintConfirmed, notifications.Payload{
			"txHash":   next.Hash,
			"videoId":  w.state.VideoID,
			"title":    w.state.Title,
			"tokenUrl": video.TokenURL(w.deps.Metadata.TokenBaseURL, w.state.TokenIDs.VideoTokenID),
		})
	case chain.StatusFailed:
		err := ev.Err
		if err == nil {
			err = errors.New("transaction failed")
		}
		if !errors.Is(err, services.ErrTransactionFailed) {
			err = services.Wrap(services.ErrTransactionFailed, string(StepSubmitMint), "Watch", "transaction "+next.Hash, err)
		}
		next.Error = err.Error()
		w.state.Step = StepBuildAndAddress
		w.state.LastError = err
		w.releaseHandleLocked()
		logging.WarnWithContext(w.logger, "mint transaction failed", "tx_failed", append(attrs,
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "publish again to reuse the stored metadata and resubmit"),
		)...)
		w.notify(notifications.EventError, notifications.Payload{
			"step":  string(StepSubmitMint),
			"error": err.Error(),
		})
	}
	w.touchLocked()
	w.emitLocked()
}

func (w *Workflow) releaseHandleLocked() {
	if w.unwatch != nil {
		// Unsubscribing from inside the handle's delivery is safe; it only
		// drops later events.
		w.unwatch()
		w.unwatch = nil
	}
	w.handle = nil
}

// guardLocked enforces the common preconditions: the session is open, no step
// is in flight and the workflow is at want. target names the step being
// entered, for error context.
func (w *Workflow) guardLocked(target, want Step) error {
	op := target.String()
	if w.closed {
		return w.abandonedError(target)
	}
	if w.inFlight != "" {
		return w.inFlightError(w.inFlight, op)
	}
	if w.state.Step != want {
		return services.Wrap(services.ErrInvalidTransition, w.state.Step.String(), op, fmt.Sprintf("requires step %s", want), nil)
	}
	return nil
}

func (w *Workflow) inFlightError(step Step, op string) error {
	return services.Wrap(services.ErrStepInFlight, step.String(), op, "previous attempt still running", nil)
}

func (w *Workflow) abandonedError(step Step) error {
	return services.Wrap(services.ErrAbandoned, step.String(), "", "session "+w.state.SessionID, nil)
}

func (w *Workflow) failLocked(err error) {
	w.state.LastError = err
	w.touchLocked()
	logging.WarnWithContext(w.logger, "workflow step failed", "step_failed",
		logging.String(logging.FieldStep, w.state.Step.String()),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	)
	w.emitLocked()
}

func (w *Workflow) touchLocked() {
	w.state.Version++
	w.state.UpdatedAt = w.now()
}

func (w *Workflow) emitLocked() {
	if w.closed {
		return
	}
	w.observers.enqueue(w.snapshotLocked(), nil)
}

func (w *Workflow) snapshotLocked() Snapshot {
	message, kind, retryable := errorFields(w.state.LastError)
	snap := Snapshot{
		SessionID: w.state.SessionID,
		Version:   w.state.Version,
		Step:      w.state.Step,
		StepIndex: w.state.Step.Index(),
		VideoID:   w.state.VideoID,
		Title:     w.state.Title,
		Owner:     w.deps.Owner.Hex(),
		Attested:  w.state.Attested,
		CID:       w.state.CID,
		InFlight:  w.inFlight != "",
		Error:     message,
		ErrorKind: kind,
		Retryable: retryable,
		Abandoned: w.state.Abandoned,
		CreatedAt: w.state.CreatedAt,
		UpdatedAt: w.state.UpdatedAt,
	}
	if !w.state.TokenIDs.IsZero() {
		pair := w.state.TokenIDs
		snap.TokenIDs = &pair
	}
	if w.state.Metadata != nil {
		doc := *w.state.Metadata
		doc.Attributes = append([]metadata.Attribute(nil), doc.Attributes...)
		snap.Metadata = &doc
	}
	if w.state.Transaction != nil {
		tx := *w.state.Transaction
		snap.Transaction = &tx
	}
	return snap
}

// callContext derives the context for one external call from both the
// caller's context and the session lifetime.
func (w *Workflow) callContext(ctx context.Context, step Step, videoID string) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	merged, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(w.lifetime, func() {
		cancel(services.ErrAbandoned)
	})
	merged = services.WithSessionID(merged, w.state.SessionID)
	merged = services.WithStep(merged, step.String())
	merged = services.WithVideoID(merged, videoID)
	return merged, func() {
		stop()
		cancel(nil)
	}
}

func (w *Workflow) notify(event notifications.Event, payload notifications.Payload) {
	notifier := w.deps.Notifier
	logger := w.logger
	go func() {
		ctx := context.WithoutCancel(w.lifetime)
		if err := notifier.Publish(ctx, event, payload); err != nil {
			logger.Warn("notification failed",
				logging.String(logging.FieldEventType, "notification_failed"),
				logging.String("notification", string(event)),
				logging.Error(err),
			)
		}
	}()
}

func (w *Workflow) record(snap Snapshot) {
	ctx := context.WithoutCancel(w.lifetime)
	if err := w.deps.Recorder.Record(ctx, snap); err != nil {
		w.logger.Warn("journal write failed",
			logging.String(logging.FieldEventType, "journal_failed"),
			logging.Error(err),
		)
	}
}
