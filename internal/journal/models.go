package journal

import "time"

// SessionRecord mirrors the state of one mint workflow session.
type SessionRecord struct {
	ID             string    `json:"id"`
	Step           string    `json:"step"`
	VideoID        string    `json:"videoId,omitempty"`
	Title          string    `json:"title,omitempty"`
	VideoTokenID   string    `json:"videoTokenId,omitempty"`
	EditionTokenID string    `json:"editionTokenId,omitempty"`
	Owner          string    `json:"owner,omitempty"`
	Attested       bool      `json:"attested"`
	CID            string    `json:"cid,omitempty"`
	MetadataJSON   string    `json:"metadata,omitempty"`
	TxHash         string    `json:"txHash,omitempty"`
	TxStatus       string    `json:"txStatus,omitempty"`
	ErrorKind      string    `json:"errorKind,omitempty"`
	ErrorMessage   string    `json:"error,omitempty"`
	Abandoned      bool      `json:"abandoned"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TransactionRecord is one mint transaction attempt.
type TransactionRecord struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"sessionId"`
	TxHash       string    `json:"txHash"`
	VideoID      string    `json:"videoId"`
	CID          string    `json:"cid"`
	Status       string    `json:"status"`
	BlockNumber  uint64    `json:"blockNumber,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
