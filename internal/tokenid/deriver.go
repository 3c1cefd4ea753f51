// Package tokenid derives the deterministic on-chain token identifiers of a
// video by calling the mint contract's read-only generateTokenId method.
package tokenid

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"

	"vidmint/internal/contracts"
	"vidmint/internal/logging"
	"vidmint/internal/services"
	"vidmint/internal/video"
)

const (
	methodGenerateTokenID = "generateTokenId"
	stepName              = "DeriveIdentifiers"
)

// Pair holds the video token id and the edition token id as decimal strings.
type Pair struct {
	VideoTokenID   string `json:"videoTokenId"`
	EditionTokenID string `json:"editionTokenId"`
}

// IsZero reports whether the pair has not been derived.
func (p Pair) IsZero() bool {
	return p.VideoTokenID == "" && p.EditionTokenID == ""
}

// Deriver performs the read-only generateTokenId call.
type Deriver struct {
	caller   ethereum.ContractCaller
	contract contracts.Contract
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDeriver constructs a deriver bound to the given contract deployment.
// ethclient.Client satisfies ethereum.ContractCaller.
func NewDeriver(caller ethereum.ContractCaller, contract contracts.Contract, timeout time.Duration, logger *slog.Logger) *Deriver {
	return &Deriver{
		caller:   caller,
		contract: contract,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "tokenid"),
	}
}

// Derive returns the token identifier pair for videoID. Malformed identifiers
// are rejected before any call is made.
func (d *Deriver) Derive(ctx context.Context, videoID string) (Pair, error) {
	if err := video.Validate(videoID); err != nil {
		return Pair{}, services.Wrap(services.ErrDerivation, stepName, "derive", "invalid video id", err)
	}

	input, err := d.contract.ABI.Pack(methodGenerateTokenID, videoID)
	if err != nil {
		return Pair{}, services.Wrap(services.ErrDerivation, stepName, "encode call", "", err)
	}

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	to := d.contract.Address
	output, err := d.caller.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return Pair{}, services.Wrap(services.ErrDerivation, stepName, "call "+methodGenerateTokenID, "", err)
	}

	values, err := d.contract.ABI.Unpack(methodGenerateTokenID, output)
	if err != nil {
		return Pair{}, services.Wrap(services.ErrDerivation, stepName, "decode response", fmt.Sprintf("%d bytes returned", len(output)), err)
	}
	if len(values) != 2 {
		return Pair{}, services.Wrap(services.ErrDerivation, stepName, "decode response", fmt.Sprintf("expected 2 values, got %d", len(values)), nil)
	}
	videoTokenID, ok1 := values[0].(*big.Int)
	editionTokenID, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 || videoTokenID == nil || editionTokenID == nil {
		return Pair{}, services.Wrap(services.ErrDerivation, stepName, "decode response", "unexpected value types", nil)
	}

	pair := Pair{
		VideoTokenID:   videoTokenID.String(),
		EditionTokenID: editionTokenID.String(),
	}
	d.logger.Debug("token ids derived",
		logging.String(logging.FieldVideoID, videoID),
		logging.String("video_token_id", pair.VideoTokenID),
		logging.String("edition_token_id", pair.EditionTokenID),
	)
	return pair, nil
}
