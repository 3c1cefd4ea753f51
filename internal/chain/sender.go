package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"vidmint/internal/contracts"
)

const methodMint = "mint"

// Sender broadcasts a signed mint transaction and returns its hash.
type Sender interface {
	SendMint(ctx context.Context, videoID, cid string) (common.Hash, error)
}

// Signer holds the key used to sign mint transactions.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// ParseSigner decodes a hex private key with or without the 0x prefix.
func ParseSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the account that signs and owns minted tokens.
func (s *Signer) Address() common.Address {
	return s.address
}

// ContractSender sends mint transactions through a bound contract.
type ContractSender struct {
	contract *bind.BoundContract
	signer   *Signer
	chainID  *big.Int
}

// NewContractSender binds the mint contract on backend. ethclient.Client
// satisfies bind.ContractBackend.
func NewContractSender(backend bind.ContractBackend, contract contracts.Contract, signer *Signer) *ContractSender {
	bound := bind.NewBoundContract(contract.Address, contract.ABI, backend, backend, backend)
	return &ContractSender{
		contract: bound,
		signer:   signer,
		chainID:  big.NewInt(contract.ChainID),
	}
}

// SendMint signs and broadcasts mint(videoID, cid). Gas price, limit and nonce
// are estimated by the backend.
func (s *ContractSender) SendMint(ctx context.Context, videoID, cid string) (common.Hash, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.signer.key, s.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	tx, err := s.contract.Transact(opts, methodMint, videoID, cid)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}
