package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// RecordSession inserts or replaces the row for rec.ID. CreatedAt is kept from
// the first write.
func (s *Store) RecordSession(ctx context.Context, rec SessionRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record session: id is required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	err := s.exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             step = excluded.step,
             video_id = excluded.video_id,
             title = excluded.title,
             video_token_id = excluded.video_token_id,
             edition_token_id = excluded.edition_token_id,
             owner = excluded.owner,
             attested = excluded.attested,
             cid = excluded.cid,
             metadata_json = excluded.metadata_json,
             tx_hash = excluded.tx_hash,
             tx_status = excluded.tx_status,
             error_kind = excluded.error_kind,
             error_message = excluded.error_message,
             abandoned = excluded.abandoned,
             updated_at = excluded.updated_at`,
		rec.ID,
		rec.Step,
		nullableString(rec.VideoID),
		nullableString(rec.Title),
		nullableString(rec.VideoTokenID),
		nullableString(rec.EditionTokenID),
		nullableString(rec.Owner),
		boolToInt(rec.Attested),
		nullableString(rec.CID),
		nullableString(rec.MetadataJSON),
		nullableString(rec.TxHash),
		nullableString(rec.TxStatus),
		nullableString(rec.ErrorKind),
		nullableString(rec.ErrorMessage),
		boolToInt(rec.Abandoned),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// RecordTransaction inserts a transaction attempt or updates its status,
// block and error when the hash is already known.
func (s *Store) RecordTransaction(ctx context.Context, rec TransactionRecord) error {
	if strings.TrimSpace(rec.TxHash) == "" {
		return errors.New("record transaction: tx hash is required")
	}
	now := time.Now().UTC()
	err := s.exec(ctx,
		`INSERT INTO transactions (session_id, tx_hash, video_id, cid, status, block_number, error_message, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(tx_hash) DO UPDATE SET
             status = excluded.status,
             block_number = COALESCE(excluded.block_number, transactions.block_number),
             error_message = excluded.error_message,
             updated_at = excluded.updated_at`,
		rec.SessionID,
		rec.TxHash,
		rec.VideoID,
		rec.CID,
		rec.Status,
		nullableBlock(rec.BlockNumber),
		nullableString(rec.ErrorMessage),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	return nil
}

// GetSession returns the session row, or nil when it does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return rec, nil
}

// ListSessions returns the most recently updated sessions first. A
// non-positive limit selects the default.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Transactions returns the transaction attempts of a session in submission order.
func (s *Store) Transactions(ctx context.Context, sessionID string) ([]TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
