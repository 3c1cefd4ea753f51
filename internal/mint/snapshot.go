package mint

import (
	"time"

	"vidmint/internal/chain"
	"vidmint/internal/journal"
	"vidmint/internal/metadata"
	"vidmint/internal/services"
	"vidmint/internal/tokenid"
)

// Transaction is the workflow's view of the active mint transaction.
type Transaction struct {
	Hash        string       `json:"hash"`
	Status      chain.Status `json:"status"`
	BlockNumber uint64       `json:"blockNumber,omitempty"`
	Error       string       `json:"error,omitempty"`
	SubmittedAt time.Time    `json:"submittedAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Live reports whether the transaction may still change state.
func (t *Transaction) Live() bool {
	return t != nil && !t.Status.Terminal()
}

// Snapshot is an immutable copy of the workflow state.
type Snapshot struct {
	SessionID   string             `json:"sessionId"`
	Version     uint64             `json:"version"`
	Step        Step               `json:"step"`
	StepIndex   int                `json:"stepIndex"`
	VideoID     string             `json:"videoId,omitempty"`
	Title       string             `json:"title,omitempty"`
	TokenIDs    *tokenid.Pair      `json:"tokenIds,omitempty"`
	Owner       string             `json:"owner"`
	Attested    bool               `json:"attested"`
	Metadata    *metadata.Document `json:"metadata,omitempty"`
	CID         string             `json:"cid,omitempty"`
	Transaction *Transaction       `json:"transaction,omitempty"`
	InFlight    bool               `json:"inFlight"`
	Error       string             `json:"error,omitempty"`
	ErrorKind   string             `json:"errorKind,omitempty"`
	Retryable   bool               `json:"retryable"`
	Abandoned   bool               `json:"abandoned"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// SessionRecord converts the snapshot into its journal row.
func (s Snapshot) SessionRecord() journal.SessionRecord {
	rec := journal.SessionRecord{
		ID:           s.SessionID,
		Step:         s.Step.String(),
		VideoID:      s.VideoID,
		Title:        s.Title,
		Owner:        s.Owner,
		Attested:     s.Attested,
		CID:          s.CID,
		ErrorKind:    s.ErrorKind,
		ErrorMessage: s.Error,
		Abandoned:    s.Abandoned,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.TokenIDs != nil {
		rec.VideoTokenID = s.TokenIDs.VideoTokenID
		rec.EditionTokenID = s.TokenIDs.EditionTokenID
	}
	if s.Metadata != nil {
		rec.MetadataJSON = string(s.Metadata.Canonical())
	}
	if s.Transaction != nil {
		rec.TxHash = s.Transaction.Hash
		rec.TxStatus = string(s.Transaction.Status)
	}
	return rec
}

// TransactionRecord converts the active transaction into its journal row. ok
// is false when no transaction exists.
func (s Snapshot) TransactionRecord() (journal.TransactionRecord, bool) {
	if s.Transaction == nil {
		return journal.TransactionRecord{}, false
	}
	return journal.TransactionRecord{
		SessionID:    s.SessionID,
		TxHash:       s.Transaction.Hash,
		VideoID:      s.VideoID,
		CID:          s.CID,
		Status:       string(s.Transaction.Status),
		BlockNumber:  s.Transaction.BlockNumber,
		ErrorMessage: s.Transaction.Error,
		CreatedAt:    s.Transaction.SubmittedAt,
		UpdatedAt:    s.Transaction.UpdatedAt,
	}, true
}

func errorFields(err error) (message, kind string, retryable bool) {
	if err == nil {
		return "", "", false
	}
	return err.Error(), services.Kind(err), services.Retryable(err)
}
