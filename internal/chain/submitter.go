package chain

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"vidmint/internal/logging"
	"vidmint/internal/services"
)

const (
	stepName                  = "SubmitMint"
	defaultPollInterval       = 2 * time.Second
	defaultMaxWatchErrors     = 3
	defaultConfirmationBlocks = 1
)

// ReceiptReader is the read side of the node used by the receipt watcher.
// ethclient.Client satisfies it.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Options tunes submission and receipt watching.
type Options struct {
	// Confirmations is the number of blocks, counting the inclusion block,
	// required before a transaction is confirmed.
	Confirmations int
	PollInterval  time.Duration
	SendTimeout   time.Duration
	// MaxWatchErrors is the number of consecutive node errors after which the
	// watcher reports the transaction as failed.
	MaxWatchErrors int
}

// Submitter sends mint transactions and hands out lifecycle handles.
type Submitter struct {
	sender Sender
	reader ReceiptReader
	opts   Options
	logger *slog.Logger
}

// NewSubmitter constructs a submitter.
func NewSubmitter(sender Sender, reader ReceiptReader, opts Options, logger *slog.Logger) *Submitter {
	if opts.Confirmations < 1 {
		opts.Confirmations = defaultConfirmationBlocks
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxWatchErrors <= 0 {
		opts.MaxWatchErrors = defaultMaxWatchErrors
	}
	return &Submitter{
		sender: sender,
		reader: reader,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "chain"),
	}
}

// Submit sends mint(videoID, cid). A returned error means the node never
// accepted the transaction and no handle exists. The handle is idle until
// Watch is called.
func (s *Submitter) Submit(ctx context.Context, videoID, cid string) (*Handle, error) {
	sendCtx := ctx
	if s.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.opts.SendTimeout)
		defer cancel()
	}
	hash, err := s.sender.SendMint(sendCtx, videoID, cid)
	if err != nil {
		return nil, services.Wrap(services.ErrSubmission, stepName, "send mint", "", err)
	}
	logger := s.logger.With(logging.String(logging.FieldTxHash, hash.Hex()))
	logger.Info("mint transaction submitted",
		logging.String(logging.FieldVideoID, videoID),
		logging.String(logging.FieldCID, cid),
	)
	return newHandle(hash, s.reader, s.opts, logger), nil
}
