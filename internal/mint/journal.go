package mint

import (
	"context"

	"vidmint/internal/journal"
)

// JournalRecorder writes snapshots to the mint journal: the session row on
// every change and the transaction row whenever one exists.
type JournalRecorder struct {
	Store *journal.Store
}

// Record implements Recorder.
func (r JournalRecorder) Record(ctx context.Context, snap Snapshot) error {
	if r.Store == nil {
		return nil
	}
	if err := r.Store.RecordSession(ctx, snap.SessionRecord()); err != nil {
		return err
	}
	if tx, ok := snap.TransactionRecord(); ok {
		return r.Store.RecordTransaction(ctx, tx)
	}
	return nil
}
