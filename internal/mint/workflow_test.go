package mint_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"vidmint/internal/chain"
	"vidmint/internal/journal"
	"vidmint/internal/metadata"
	"vidmint/internal/mint"
	"vidmint/internal/notifications"
	"vidmint/internal/services"
	"vidmint/internal/storage"
	"vidmint/internal/testsupport"
	"vidmint/internal/tokenid"
)

const (
	testVideoID = "dQw4w9WgXcQ"
	testTitle   = "Never Gonna Give You Up"
)

var testPair = tokenid.Pair{VideoTokenID: "1234", EditionTokenID: "5678"}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) has(event notifications.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.events {
		if p.event == event {
			return true
		}
	}
	return false
}

type harness struct {
	chain    *testsupport.FakeChain
	deriver  *testsupport.FakeDeriver
	storage  *testsupport.FlakyAddresser
	notifier *recordingNotifier
	workflow *mint.Workflow
}

func newHarness(t *testing.T, confirmations int, recorder mint.Recorder) *harness {
	t.Helper()
	fake := testsupport.NewFakeChain()
	h := &harness{
		chain:    fake,
		deriver:  &testsupport.FakeDeriver{Pair: testPair},
		storage:  testsupport.NewFlakyAddresser(),
		notifier: &recordingNotifier{},
	}
	submitter := chain.NewSubmitter(fake, fake, chain.Options{
		Confirmations:  confirmations,
		PollInterval:   5 * time.Millisecond,
		SendTimeout:    time.Second,
		MaxWatchErrors: 3,
	}, nil)
	wf, err := mint.New(context.Background(), mint.Dependencies{
		Deriver:   h.deriver,
		Addresser: h.storage,
		Submitter: submitter,
		Metadata:  metadata.NewBuilder("https://ytvideonft.rhizomik.net/nfts"),
		Owner:     common.HexToAddress(testsupport.TestOwner),
		Recorder:  recorder,
		Notifier:  h.notifier,
	})
	if err != nil {
		t.Fatalf("mint.New: %v", err)
	}
	t.Cleanup(wf.Abandon)
	h.workflow = wf
	return h
}

// advance drives the workflow to SubmitMint.
func (h *harness) advance(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := h.workflow.SubmitIdentifier(ctx, testVideoID, testTitle); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	if err := h.workflow.AttestOwnership(true); err != nil {
		t.Fatalf("AttestOwnership: %v", err)
	}
	if err := h.workflow.Publish(ctx); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if step := h.workflow.CurrentStep(); step != mint.StepSubmitMint {
		t.Fatalf("expected SubmitMint, got %s", step)
	}
}

func waitFor(t *testing.T, wf *mint.Workflow, desc string, pred func(mint.Snapshot) bool) mint.Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		snap := wf.Snapshot()
		if pred(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot step=%s tx=%+v err=%q", desc, snap.Step, snap.Transaction, snap.Error)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitUntil(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", desc)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func atStep(step mint.Step) func(mint.Snapshot) bool {
	return func(s mint.Snapshot) bool { return s.Step == step }
}

func TestHappyPathReachesDone(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.advance(t)

	if err := h.workflow.Mint(context.Background()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	snap := h.workflow.Snapshot()
	if snap.Transaction == nil || snap.Transaction.Status != chain.StatusSubmitted {
		t.Fatalf("expected submitted transaction, got %+v", snap.Transaction)
	}
	calls := h.chain.Calls()
	if len(calls) != 1 || calls[0].VideoID != testVideoID || calls[0].CID != snap.CID {
		t.Fatalf("unexpected mint calls %+v (cid %s)", calls, snap.CID)
	}

	h.chain.Include(h.chain.LastHash(), true)
	done := waitFor(t, h.workflow, "Done", atStep(mint.StepDone))
	if done.Transaction.Status != chain.StatusConfirmed {
		t.Fatalf("expected confirmed transaction, got %s", done.Transaction.Status)
	}
	if done.Error != "" || h.workflow.LastError() != nil {
		t.Fatalf("expected no error, got %q", done.Error)
	}

	stored, ok := h.storage.Get(done.CID)
	if !ok {
		t.Fatalf("metadata not stored under %s", done.CID)
	}
	if string(stored) != string(done.Metadata.Canonical()) {
		t.Fatalf("stored bytes differ from snapshot metadata")
	}
	if done.Metadata.Owner != testsupport.TestOwner {
		t.Fatalf("owner = %s", done.Metadata.Owner)
	}

	for _, event := range []notifications.Event{
		notifications.EventTransactionSubmitted,
		notifications.EventReceiptReceived,
		notifications.EventMintConfirmed,
	} {
		waitUntil(t, string(event)+" notification", func() bool { return h.notifier.has(event) })
	}
	if h.notifier.has(notifications.EventError) {
		t.Fatalf("unexpected error notification")
	}
}

func TestInvalidIdentifierMakesNoCalls(t *testing.T) {
	h := newHarness(t, 1, nil)
	for _, id := range []string{"", "short", "dQw4w9WgXcQx", "dQw4w9WgXc!"} {
		err := h.workflow.SubmitIdentifier(context.Background(), id, testTitle)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("id %q: expected validation error, got %v", id, err)
		}
	}
	if calls := h.deriver.Calls(); calls != 0 {
		t.Fatalf("expected no derive calls, got %d", calls)
	}
	snap := h.workflow.Snapshot()
	if snap.Step != mint.StepCollectIdentifier || snap.ErrorKind != "validation" || snap.Retryable {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestTitleIsRequired(t *testing.T) {
	h := newHarness(t, 1, nil)
	err := h.workflow.SubmitIdentifier(context.Background(), testVideoID, "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.deriver.Calls() != 0 {
		t.Fatalf("deriver called for blank title")
	}
}

func TestDerivationFailureReturnsToCollect(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.deriver.SetErr(errors.New("rpc unavailable"))

	err := h.workflow.SubmitIdentifier(context.Background(), testVideoID, testTitle)
	if !errors.Is(err, services.ErrDerivation) {
		t.Fatalf("expected derivation error, got %v", err)
	}
	snap := h.workflow.Snapshot()
	if snap.Step != mint.StepCollectIdentifier || snap.ErrorKind != "derivation" || snap.InFlight {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	h.deriver.SetErr(nil)
	if err := h.workflow.SubmitIdentifier(context.Background(), testVideoID, testTitle); err != nil {
		t.Fatalf("retry SubmitIdentifier: %v", err)
	}
	snap = h.workflow.Snapshot()
	if snap.Step != mint.StepValidateOwnership || snap.TokenIDs == nil || *snap.TokenIDs != testPair {
		t.Fatalf("unexpected snapshot after retry %+v", snap)
	}
	if snap.Error != "" {
		t.Fatalf("expected error cleared, got %q", snap.Error)
	}
}

func TestSecondSubmitWhileDerivingIsRejected(t *testing.T) {
	h := newHarness(t, 1, nil)
	gate := make(chan struct{})
	h.deriver.Gate = gate

	result := make(chan error, 1)
	go func() {
		result <- h.workflow.SubmitIdentifier(context.Background(), testVideoID, testTitle)
	}()
	waitUntil(t, "derive call", func() bool { return h.deriver.Calls() == 1 })

	err := h.workflow.SubmitIdentifier(context.Background(), testVideoID, testTitle)
	if !errors.Is(err, services.ErrStepInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	if !h.workflow.Snapshot().InFlight {
		t.Fatalf("expected in-flight snapshot")
	}

	close(gate)
	if err := <-result; err != nil {
		t.Fatalf("first SubmitIdentifier: %v", err)
	}
	if calls := h.deriver.Calls(); calls != 1 {
		t.Fatalf("expected exactly one derive call, got %d", calls)
	}
}

func TestAttestationGuards(t *testing.T) {
	h := newHarness(t, 1, nil)
	if err := h.workflow.AttestOwnership(true); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition before derive, got %v", err)
	}
	if _, err := h.workflow.OwnershipInstructions(); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected instructions to require derived ids, got %v", err)
	}
	if err := h.workflow.SubmitIdentifier(context.Background(), testVideoID, testTitle); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	if err := h.workflow.AttestOwnership(false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unconfirmed attestation, got %v", err)
	}
	if step := h.workflow.CurrentStep(); step != mint.StepValidateOwnership {
		t.Fatalf("expected to stay at ValidateOwnership, got %s", step)
	}
	if err := h.workflow.Publish(context.Background()); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected publish to require attestation, got %v", err)
	}
	if h.storage.Attempts() != 0 {
		t.Fatalf("upload attempted before attestation")
	}
}

func TestOwnershipInstructions(t *testing.T) {
	h := newHarness(t, 1, nil)
	if err := h.workflow.SubmitIdentifier(context.Background(), testVideoID, testTitle); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	got, err := h.workflow.OwnershipInstructions()
	if err != nil {
		t.Fatalf("OwnershipInstructions: %v", err)
	}
	if got.DescriptionText != "Tokenized at https://ytvideonft.rhizomik.net/nfts/1234" {
		t.Fatalf("description text = %q", got.DescriptionText)
	}
	if got.EditURL != "https://studio.youtube.com/video/"+testVideoID+"/edit" {
		t.Fatalf("edit url = %q", got.EditURL)
	}
}

func TestStorageFailureIsRetryable(t *testing.T) {
	h := newHarness(t, 1, nil)
	ctx := context.Background()
	if err := h.workflow.SubmitIdentifier(ctx, testVideoID, testTitle); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	if err := h.workflow.AttestOwnership(true); err != nil {
		t.Fatalf("AttestOwnership: %v", err)
	}

	h.storage.SetErr(errors.New("503 service unavailable"))
	err := h.workflow.Publish(ctx)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	snap := h.workflow.Snapshot()
	if snap.Step != mint.StepBuildAndAddress || !snap.Retryable || !snap.Attested || snap.CID != "" {
		t.Fatalf("unexpected snapshot after storage failure %+v", snap)
	}

	h.storage.SetErr(nil)
	if err := h.workflow.Publish(ctx); err != nil {
		t.Fatalf("retry Publish: %v", err)
	}
	if step := h.workflow.CurrentStep(); step != mint.StepSubmitMint {
		t.Fatalf("expected SubmitMint, got %s", step)
	}
	if h.deriver.Calls() != 1 {
		t.Fatalf("retry re-derived identifiers: %d calls", h.deriver.Calls())
	}
	if h.storage.Attempts() != 2 {
		t.Fatalf("expected two upload attempts, got %d", h.storage.Attempts())
	}

	snap = h.workflow.Snapshot()
	want, err := storage.LocalCID(snap.Metadata.Canonical())
	if err != nil {
		t.Fatalf("LocalCID: %v", err)
	}
	if snap.CID != want {
		t.Fatalf("retried cid %s, want %s", snap.CID, want)
	}
	clean := newHarness(t, 1, nil)
	clean.advance(t)
	if got := clean.workflow.Snapshot().CID; got != snap.CID {
		t.Fatalf("first-attempt cid %s differs from retried cid %s", got, snap.CID)
	}
}

func TestSecondPublishWhileUploadingIsRejected(t *testing.T) {
	h := newHarness(t, 1, nil)
	ctx := context.Background()
	if err := h.workflow.SubmitIdentifier(ctx, testVideoID, testTitle); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	if err := h.workflow.AttestOwnership(true); err != nil {
		t.Fatalf("AttestOwnership: %v", err)
	}
	gate := make(chan struct{})
	h.storage.Gate = gate

	result := make(chan error, 1)
	go func() {
		result <- h.workflow.Publish(ctx)
	}()
	waitUntil(t, "upload call", func() bool { return h.storage.Attempts() == 1 })

	if err := h.workflow.Publish(ctx); !errors.Is(err, services.ErrStepInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	if err := h.workflow.Restart(); !errors.Is(err, services.ErrStepInFlight) {
		t.Fatalf("expected restart to be refused while uploading, got %v", err)
	}

	close(gate)
	if err := <-result; err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	if attempts := h.storage.Attempts(); attempts != 1 {
		t.Fatalf("expected exactly one upload attempt, got %d", attempts)
	}
	if uploads := h.storage.Uploads(); uploads != 1 {
		t.Fatalf("expected exactly one stored blob, got %d", uploads)
	}
}

func TestSecondMintWhileSubmittingIsRejected(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.advance(t)
	h.chain.BlockSends()

	result := make(chan error, 1)
	go func() {
		result <- h.workflow.Mint(context.Background())
	}()
	waitFor(t, h.workflow, "submission in flight", func(s mint.Snapshot) bool { return s.InFlight })

	if err := h.workflow.Mint(context.Background()); !errors.Is(err, services.ErrStepInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}

	h.chain.ReleaseSends()
	if err := <-result; err != nil {
		t.Fatalf("first Mint: %v", err)
	}
	if calls := h.chain.Calls(); len(calls) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(calls))
	}
}

func TestFlushDeliversFinalSnapshotBeforeJournalCloses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	h := newHarness(t, 1, mint.JournalRecorder{Store: store})
	ctx := context.Background()
	if err := h.workflow.SubmitIdentifier(ctx, testVideoID, testTitle); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	if err := h.workflow.AttestOwnership(true); err != nil {
		t.Fatalf("AttestOwnership: %v", err)
	}
	h.storage.SetErr(errors.New("503 service unavailable"))
	if err := h.workflow.Publish(ctx); !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	h.workflow.Abandon()
	flushCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := h.workflow.Flush(flushCtx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenJournal(t, cfg)
	rec, err := reopened.GetSession(ctx, h.workflow.ID())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if rec == nil {
		t.Fatal("session missing from journal")
	}
	if !rec.Abandoned || rec.Step != string(mint.StepBuildAndAddress) || rec.ErrorMessage == "" {
		t.Fatalf("expected abandoned storage failure, got %+v", rec)
	}
}

func TestRevertedMintReusesCID(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.advance(t)
	cid := h.workflow.Snapshot().CID

	if err := h.workflow.Mint(context.Background()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	first := h.chain.LastHash()
	h.chain.Include(first, false)

	failed := waitFor(t, h.workflow, "BuildAndAddress after revert", atStep(mint.StepBuildAndAddress))
	if failed.ErrorKind != "transaction_failure" || !failed.Retryable {
		t.Fatalf("unexpected error fields %q/%v", failed.ErrorKind, failed.Retryable)
	}
	if !errors.Is(h.workflow.LastError(), services.ErrTransactionFailed) {
		t.Fatalf("expected transaction failure, got %v", h.workflow.LastError())
	}
	if failed.CID != cid || failed.Transaction.Status != chain.StatusFailed {
		t.Fatalf("expected cid kept and failed tx, got cid=%s tx=%+v", failed.CID, failed.Transaction)
	}
	waitUntil(t, "error notification", func() bool { return h.notifier.has(notifications.EventError) })

	if err := h.workflow.Publish(context.Background()); err != nil {
		t.Fatalf("Publish after revert: %v", err)
	}
	if h.storage.Attempts() != 1 {
		t.Fatalf("expected cid reuse without upload, got %d attempts", h.storage.Attempts())
	}
	if err := h.workflow.Mint(context.Background()); err != nil {
		t.Fatalf("second Mint: %v", err)
	}
	second := h.chain.LastHash()
	if second == first || len(h.chain.Calls()) != 2 {
		t.Fatalf("expected a second transaction, calls=%v", h.chain.Calls())
	}
	h.chain.Include(second, true)
	done := waitFor(t, h.workflow, "Done", atStep(mint.StepDone))
	if done.Transaction.Hash != second.Hex() {
		t.Fatalf("expected second transaction tracked, got %s", done.Transaction.Hash)
	}
}

func TestMintRejectedWhileTransactionLive(t *testing.T) {
	h := newHarness(t, 3, nil)
	h.advance(t)
	if err := h.workflow.Mint(context.Background()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := h.workflow.Mint(context.Background()); !errors.Is(err, services.ErrStepInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	h.chain.Include(h.chain.LastHash(), true)
	waitFor(t, h.workflow, "included", func(s mint.Snapshot) bool {
		return s.Transaction != nil && s.Transaction.Status == chain.StatusIncluded
	})
	if err := h.workflow.Mint(context.Background()); !errors.Is(err, services.ErrStepInFlight) {
		t.Fatalf("expected in-flight error while included, got %v", err)
	}
	if calls := len(h.chain.Calls()); calls != 1 {
		t.Fatalf("expected one mint call, got %d", calls)
	}

	h.chain.SetHead(h.chain.Head() + 2)
	waitFor(t, h.workflow, "Done", atStep(mint.StepDone))
}

func TestSubmissionFailureKeepsStep(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.advance(t)
	h.chain.FailNextSend(errors.New("insufficient funds for gas"))

	err := h.workflow.Mint(context.Background())
	if !errors.Is(err, services.ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
	snap := h.workflow.Snapshot()
	if snap.Step != mint.StepSubmitMint || snap.Transaction != nil || !snap.Retryable {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if err := h.workflow.Mint(context.Background()); err != nil {
		t.Fatalf("retry Mint: %v", err)
	}
	if len(h.chain.Calls()) != 1 {
		t.Fatalf("expected one accepted call, got %d", len(h.chain.Calls()))
	}
}

func TestAbandonCancelsInFlightCall(t *testing.T) {
	h := newHarness(t, 1, nil)
	h.deriver.Gate = make(chan struct{})

	var mu sync.Mutex
	var seen []mint.Snapshot
	h.workflow.Subscribe(func(s mint.Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	result := make(chan error, 1)
	go func() {
		result <- h.workflow.SubmitIdentifier(context.Background(), testVideoID, testTitle)
	}()
	waitUntil(t, "derive call", func() bool { return h.deriver.Calls() == 1 })

	h.workflow.Abandon()
	select {
	case err := <-result:
		if !errors.Is(err, services.ErrAbandoned) {
			t.Fatalf("expected abandoned error, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("in-flight derive was not cancelled")
	}
	select {
	case <-h.workflow.Done():
	default:
		t.Fatalf("expected Done closed after abandon")
	}

	if err := h.workflow.AttestOwnership(true); !errors.Is(err, services.ErrAbandoned) {
		t.Fatalf("expected abandoned error, got %v", err)
	}
	waitUntil(t, "abandoned snapshot", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1].Abandoned
	})
	mu.Lock()
	count := len(seen)
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != count {
		t.Fatalf("snapshots delivered after abandon")
	}
}

func TestRestartClearsDerivedState(t *testing.T) {
	h := newHarness(t, 1, nil)
	ctx := context.Background()
	if err := h.workflow.SubmitIdentifier(ctx, testVideoID, testTitle); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	if err := h.workflow.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	snap := h.workflow.Snapshot()
	if snap.Step != mint.StepCollectIdentifier || snap.VideoID != "" || snap.TokenIDs != nil {
		t.Fatalf("unexpected snapshot after restart %+v", snap)
	}

	if err := h.workflow.SubmitIdentifier(ctx, testVideoID, testTitle); err != nil {
		t.Fatalf("SubmitIdentifier: %v", err)
	}
	if err := h.workflow.AttestOwnership(true); err != nil {
		t.Fatalf("AttestOwnership: %v", err)
	}
	if err := h.workflow.Restart(); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected restart to be refused after attestation, got %v", err)
	}
}

func TestSubscribeDeliversInOrder(t *testing.T) {
	h := newHarness(t, 1, nil)
	var mu sync.Mutex
	var versions []uint64
	var steps []mint.Step
	unsubscribe := h.workflow.Subscribe(func(s mint.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, s.Version)
		steps = append(steps, s.Step)
	})
	h.advance(t)
	waitUntil(t, "SubmitMint snapshot", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(steps) > 0 && steps[len(steps)-1] == mint.StepSubmitMint
	})
	unsubscribe()
	unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("versions not increasing: %v", versions)
		}
	}
	if steps[0] != mint.StepCollectIdentifier {
		t.Fatalf("expected replay of initial state, got %v", steps)
	}
}

func TestJournalRecorderWritesSessionAndTransaction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	h := newHarness(t, 1, mint.JournalRecorder{Store: store})
	h.advance(t)
	if err := h.workflow.Mint(context.Background()); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	h.chain.Include(h.chain.LastHash(), true)
	waitFor(t, h.workflow, "Done", atStep(mint.StepDone))

	ctx := context.Background()
	waitUntil(t, "journal rows", func() bool {
		rec, err := store.GetSession(ctx, h.workflow.ID())
		if err != nil || rec == nil || rec.Step != string(mint.StepDone) {
			return false
		}
		txs, err := store.Transactions(ctx, h.workflow.ID())
		return err == nil && len(txs) == 1 && txs[0].Status == string(chain.StatusConfirmed)
	})
	rec, err := store.GetSession(ctx, h.workflow.ID())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if rec.VideoID != testVideoID || rec.VideoTokenID != "1234" || !rec.Attested || rec.CID == "" {
		t.Fatalf("unexpected session record %+v", rec)
	}
	if !strings.Contains(rec.MetadataJSON, `"video_id":"`+testVideoID+`"`) {
		t.Fatalf("metadata not journalled: %s", rec.MetadataJSON)
	}
	txs, err := store.Transactions(ctx, h.workflow.ID())
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Status != string(chain.StatusConfirmed) {
		t.Fatalf("unexpected transactions %+v", txs)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := mint.New(context.Background(), mint.Dependencies{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
