package journal

import (
	"database/sql"
	"errors"
	"time"
)

const sessionColumns = "id, step, video_id, title, video_token_id, edition_token_id, owner, attested, cid, metadata_json, tx_hash, tx_status, error_kind, error_message, abandoned, created_at, updated_at"

const transactionColumns = "id, session_id, tx_hash, video_id, cid, status, block_number, error_message, created_at, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanSession(scanner rowScanner) (*SessionRecord, error) {
	var (
		rec            SessionRecord
		videoID        sql.NullString
		title          sql.NullString
		videoTokenID   sql.NullString
		editionTokenID sql.NullString
		owner          sql.NullString
		attested       int
		cid            sql.NullString
		metadata       sql.NullString
		txHash         sql.NullString
		txStatus       sql.NullString
		errorKind      sql.NullString
		errorMessage   sql.NullString
		abandoned      int
		createdRaw     string
		updatedRaw     string
	)
	if err := scanner.Scan(
		&rec.ID, &rec.Step, &videoID, &title, &videoTokenID, &editionTokenID, &owner,
		&attested, &cid, &metadata, &txHash, &txStatus, &errorKind, &errorMessage,
		&abandoned, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	rec.VideoID = videoID.String
	rec.Title = title.String
	rec.VideoTokenID = videoTokenID.String
	rec.EditionTokenID = editionTokenID.String
	rec.Owner = owner.String
	rec.Attested = attested != 0
	rec.CID = cid.String
	rec.MetadataJSON = metadata.String
	rec.TxHash = txHash.String
	rec.TxStatus = txStatus.String
	rec.ErrorKind = errorKind.String
	rec.ErrorMessage = errorMessage.String
	rec.Abandoned = abandoned != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}

func scanTransaction(scanner rowScanner) (*TransactionRecord, error) {
	var (
		rec          TransactionRecord
		blockNumber  sql.NullInt64
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&rec.ID, &rec.SessionID, &rec.TxHash, &rec.VideoID, &rec.CID, &rec.Status,
		&blockNumber, &errorMessage, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	if blockNumber.Valid && blockNumber.Int64 > 0 {
		rec.BlockNumber = uint64(blockNumber.Int64)
	}
	rec.ErrorMessage = errorMessage.String
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableBlock(value uint64) any {
	if value == 0 {
		return nil
	}
	return int64(value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
