package chain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Status is a transaction lifecycle state.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusIncluded  Status = "included"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusSubmitted:
		return 1
	case StatusIncluded:
		return 2
	case StatusConfirmed, StatusFailed:
		return 3
	default:
		return 0
	}
}

// Follows reports whether s is a later lifecycle state than prev.
func (s Status) Follows(prev Status) bool {
	return s.rank() > prev.rank()
}

// Terminal reports whether no further transitions can follow s.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Event is one lifecycle notification for a transaction.
type Event struct {
	Status      Status
	TxHash      common.Hash
	Receipt     *types.Receipt
	BlockNumber uint64
	Err         error
	At          time.Time
}
