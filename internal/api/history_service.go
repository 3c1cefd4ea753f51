package api

import (
	"context"
	"time"

	"vidmint/internal/journal"
)

// HistoryReader abstracts the journal queries needed for history views.
type HistoryReader interface {
	ListSessions(ctx context.Context, limit int) ([]journal.SessionRecord, error)
	GetSession(ctx context.Context, id string) (*journal.SessionRecord, error)
	Transactions(ctx context.Context, sessionID string) ([]journal.TransactionRecord, error)
}

// HistoryService exposes read-only journal queries returning API DTOs.
type HistoryService struct {
	store HistoryReader
}

// NewHistoryService constructs a HistoryService around the provided reader.
func NewHistoryService(store HistoryReader) *HistoryService {
	if store == nil {
		return nil
	}
	return &HistoryService{store: store}
}

// List returns up to limit sessions, most recently updated first.
func (s *HistoryService) List(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	records, err := s.store.ListSessions(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, FromSessionRecord(rec))
	}
	return out, nil
}

// Describe returns one session and its transactions, or nil when unknown.
func (s *HistoryService) Describe(ctx context.Context, id string) (*HistoryItemResponse, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	rec, err := s.store.GetSession(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	txs, err := s.store.Transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &HistoryItemResponse{
		Session:      FromSessionRecord(*rec),
		Transactions: make([]HistoryTransaction, 0, len(txs)),
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, FromTransactionRecord(tx))
	}
	return resp, nil
}

// FromSessionRecord converts a journal row into its DTO.
func FromSessionRecord(rec journal.SessionRecord) HistoryEntry {
	return HistoryEntry{
		ID:             rec.ID,
		Step:           rec.Step,
		VideoID:        rec.VideoID,
		Title:          rec.Title,
		VideoTokenID:   rec.VideoTokenID,
		EditionTokenID: rec.EditionTokenID,
		Owner:          rec.Owner,
		CID:            rec.CID,
		TxHash:         rec.TxHash,
		TxStatus:       rec.TxStatus,
		Error:          rec.ErrorMessage,
		Abandoned:      rec.Abandoned,
		CreatedAt:      formatTime(rec.CreatedAt),
		UpdatedAt:      formatTime(rec.UpdatedAt),
	}
}

// FromTransactionRecord converts a journal transaction row into its DTO.
func FromTransactionRecord(rec journal.TransactionRecord) HistoryTransaction {
	return HistoryTransaction{
		TxHash:      rec.TxHash,
		Status:      rec.Status,
		CID:         rec.CID,
		BlockNumber: rec.BlockNumber,
		Error:       rec.ErrorMessage,
		CreatedAt:   formatTime(rec.CreatedAt),
		UpdatedAt:   formatTime(rec.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
