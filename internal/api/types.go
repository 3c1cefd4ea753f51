package api

import (
	"vidmint/internal/mint"
	"vidmint/internal/video"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse reports daemon readiness.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Sessions int    `json:"sessions"`
	ChainID  int64  `json:"chainId,omitempty"`
	Contract string `json:"contract,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string         `json:"error"`
	Kind      string         `json:"kind,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Session   *mint.Snapshot `json:"session,omitempty"`
}

// IdentifierRequest submits the video to mint.
type IdentifierRequest struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
}

// OwnershipRequest records the ownership attestation.
type OwnershipRequest struct {
	Confirmed bool `json:"confirmed"`
}

// OwnershipResponse carries the steps the owner performs before attesting.
type OwnershipResponse struct {
	Instructions video.Instructions `json:"instructions"`
}

// HistoryEntry is one journalled session.
type HistoryEntry struct {
	ID             string `json:"id"`
	Step           string `json:"step"`
	VideoID        string `json:"videoId,omitempty"`
	Title          string `json:"title,omitempty"`
	VideoTokenID   string `json:"videoTokenId,omitempty"`
	EditionTokenID string `json:"editionTokenId,omitempty"`
	Owner          string `json:"owner,omitempty"`
	CID            string `json:"cid,omitempty"`
	TxHash         string `json:"txHash,omitempty"`
	TxStatus       string `json:"txStatus,omitempty"`
	Error          string `json:"error,omitempty"`
	Abandoned      bool   `json:"abandoned"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// HistoryTransaction is one journalled transaction attempt.
type HistoryTransaction struct {
	TxHash      string `json:"txHash"`
	Status      string `json:"status"`
	CID         string `json:"cid"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// HistoryListResponse wraps journalled sessions, newest first.
type HistoryListResponse struct {
	Sessions []HistoryEntry `json:"sessions"`
}

// HistoryItemResponse is one session with its transaction attempts.
type HistoryItemResponse struct {
	Session      HistoryEntry         `json:"session"`
	Transactions []HistoryTransaction `json:"transactions"`
}
