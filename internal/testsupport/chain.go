package testsupport

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MintCall records one SendMint invocation.
type MintCall struct {
	VideoID string
	CID     string
}

// FakeChain is an in-memory node: it accepts mint transactions (chain.Sender)
// and answers receipt and head queries (chain.ReceiptReader). Tests drive
// inclusion with Include and block production with SetHead.
type FakeChain struct {
	mu       sync.Mutex
	calls    []MintCall
	sendErrs []error
	receipts map[common.Hash]*types.Receipt
	head     uint64
	block    chan struct{}
}

// NewFakeChain returns an empty fake node at block 1.
func NewFakeChain() *FakeChain {
	return &FakeChain{receipts: make(map[common.Hash]*types.Receipt), head: 1}
}

// FailNextSend makes the next SendMint call return err.
func (f *FakeChain) FailNextSend(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErrs = append(f.sendErrs, err)
}

// BlockSends makes SendMint wait until ReleaseSends is called or ctx ends.
func (f *FakeChain) BlockSends() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = make(chan struct{})
}

// ReleaseSends unblocks pending SendMint calls.
func (f *FakeChain) ReleaseSends() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.block != nil {
		close(f.block)
		f.block = nil
	}
}

// SendMint implements chain.Sender.
func (f *FakeChain) SendMint(ctx context.Context, videoID, cid string) (common.Hash, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return common.Hash{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return common.Hash{}, err
	}
	f.calls = append(f.calls, MintCall{VideoID: videoID, CID: cid})
	return common.BigToHash(big.NewInt(int64(len(f.calls)))), nil
}

// Calls returns the accepted mint calls.
func (f *FakeChain) Calls() []MintCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MintCall(nil), f.calls...)
}

// LastHash returns the hash of the most recently accepted transaction.
func (f *FakeChain) LastHash() common.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	return common.BigToHash(big.NewInt(int64(len(f.calls))))
}

// Include mines hash into the current head block with the given success flag.
func (f *FakeChain) Include(hash common.Hash, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := types.ReceiptStatusSuccessful
	if !success {
		status = types.ReceiptStatusFailed
	}
	f.receipts[hash] = &types.Receipt{
		Status:      status,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(f.head),
	}
}

// SetHead moves the chain head.
func (f *FakeChain) SetHead(head uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = head
}

// Head returns the current chain head.
func (f *FakeChain) Head() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head
}

// TransactionReceipt implements chain.ReceiptReader.
func (f *FakeChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// BlockNumber implements chain.ReceiptReader.
func (f *FakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

// String describes the fake for test failure messages.
func (f *FakeChain) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("FakeChain(head=%d, calls=%d, receipts=%d)", f.head, len(f.calls), len(f.receipts))
}
