package journal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidmint/internal/journal"
	"vidmint/internal/testsupport"
)

func TestRecordSessionRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := journal.SessionRecord{
		ID:        "sess-1",
		Step:      "CollectIdentifier",
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := store.RecordSession(ctx, rec); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}

	rec.Step = "SubmitMint"
	rec.VideoID = "dQw4w9WgXcQ"
	rec.Title = "My Video"
	rec.VideoTokenID = "1"
	rec.EditionTokenID = "2"
	rec.Owner = testsupport.TestOwner
	rec.Attested = true
	rec.CID = "bafkreiabc"
	rec.MetadataJSON = `{"name":"My Video"}`
	rec.UpdatedAt = created.Add(time.Minute)
	if err := store.RecordSession(ctx, rec); err != nil {
		t.Fatalf("RecordSession update: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("expected session row")
	}
	if got.Step != "SubmitMint" || got.VideoID != "dQw4w9WgXcQ" || !got.Attested || got.CID != "bafkreiabc" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at changed: %s", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(created.Add(time.Minute)) {
		t.Fatalf("unexpected updated_at: %s", got.UpdatedAt)
	}

	missing, err := store.GetSession(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing session, got %+v, %v", missing, err)
	}
}

func TestRecordTransactionUpdatesStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	if err := store.RecordSession(ctx, journal.SessionRecord{ID: "sess-2", Step: "SubmitMint"}); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	tx := journal.TransactionRecord{SessionID: "sess-2", TxHash: "0x01", VideoID: "dQw4w9WgXcQ", CID: "bafk", Status: "submitted"}
	if err := store.RecordTransaction(ctx, tx); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	tx.Status = "included"
	tx.BlockNumber = 12
	if err := store.RecordTransaction(ctx, tx); err != nil {
		t.Fatalf("RecordTransaction included: %v", err)
	}
	tx.Status = "confirmed"
	tx.BlockNumber = 0
	if err := store.RecordTransaction(ctx, tx); err != nil {
		t.Fatalf("RecordTransaction confirmed: %v", err)
	}
	second := journal.TransactionRecord{SessionID: "sess-2", TxHash: "0x02", VideoID: "dQw4w9WgXcQ", CID: "bafk", Status: "failed", ErrorMessage: "reverted"}
	if err := store.RecordTransaction(ctx, second); err != nil {
		t.Fatalf("RecordTransaction second: %v", err)
	}

	txs, err := store.Transactions(ctx, "sess-2")
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Status != "confirmed" || txs[0].BlockNumber != 12 {
		t.Fatalf("unexpected first transaction: %+v", txs[0])
	}
	if txs[1].ErrorMessage != "reverted" {
		t.Fatalf("unexpected second transaction: %+v", txs[1])
	}
}

func TestListSessionsOrdersByRecency(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Hour)
		if err := store.RecordSession(ctx, journal.SessionRecord{ID: id, Step: "Done", CreatedAt: ts, UpdatedAt: ts}); err != nil {
			t.Fatalf("RecordSession %s: %v", id, err)
		}
	}

	list, err := store.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", list)
	}
	all, err := store.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions default: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
}

func TestRecordRequiresIdentifiers(t *testing.T) {
	store := testsupport.MustOpenJournal(t, testsupport.NewConfig(t))
	if err := store.RecordSession(context.Background(), journal.SessionRecord{}); err == nil {
		t.Fatal("expected error for missing session id")
	}
	if err := store.RecordTransaction(context.Background(), journal.TransactionRecord{SessionID: "x"}); err == nil {
		t.Fatal("expected error for missing tx hash")
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.RecordSession(context.Background(), journal.SessionRecord{ID: "keep", Step: "Done"}); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := journal.OpenPath(cfg.JournalPath())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.GetSession(context.Background(), "keep")
	if err != nil || got == nil {
		t.Fatalf("expected persisted session, got %+v, %v", got, err)
	}
	if errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatal("unexpected schema mismatch")
	}
}
