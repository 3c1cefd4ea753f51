package daemonrun

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"vidmint/internal/chain"
	"vidmint/internal/config"
	"vidmint/internal/contracts"
	"vidmint/internal/logging"
	"vidmint/internal/metadata"
	"vidmint/internal/mint"
	"vidmint/internal/notifications"
	"vidmint/internal/services"
	"vidmint/internal/storage"
	"vidmint/internal/tokenid"
)

// BackendOptions selects which collaborators OpenBackend builds.
type BackendOptions struct {
	// ReadOnly skips the signer, submitter and addresser.
	ReadOnly bool
	// Offline stores metadata in memory instead of uploading it.
	Offline bool
}

// Backend holds the chain and storage collaborators shared by sessions.
type Backend struct {
	Contract  contracts.Contract
	Owner     common.Address
	Deriver   *tokenid.Deriver
	Submitter *chain.Submitter
	Addresser mint.Addresser

	client *ethclient.Client
}

// OpenBackend dials the configured node and builds the collaborators.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts BackendOptions) (*Backend, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	registry, err := contracts.Load(cfg.Chain.RegistryPath)
	if err != nil {
		return nil, err
	}
	contract, err := registry.Lookup(cfg.Chain.ChainID, cfg.Chain.ContractName)
	if err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "dial rpc", cfg.Chain.RPCURL, err)
	}
	b := &Backend{Contract: contract, client: client}
	if err := b.checkChainID(ctx, cfg); err != nil {
		client.Close()
		return nil, err
	}
	b.Deriver = tokenid.NewDeriver(client, contract, cfg.CallTimeout(), logger)
	if opts.ReadOnly {
		return b, nil
	}

	if err := cfg.RequireSigner(); err != nil {
		client.Close()
		return nil, services.Wrap(services.ErrConfiguration, "", "signer", "", err)
	}
	signer, err := chain.ParseSigner(cfg.Chain.PrivateKey)
	if err != nil {
		client.Close()
		return nil, services.Wrap(services.ErrConfiguration, "", "signer", "", err)
	}
	b.Owner = signer.Address()
	b.Submitter = chain.NewSubmitter(
		chain.NewContractSender(client, contract, signer),
		client,
		chain.Options{
			Confirmations: cfg.Chain.Confirmations,
			PollInterval:  cfg.ReceiptPollInterval(),
			SendTimeout:   cfg.SendTimeout(),
		},
		logger,
	)

	if opts.Offline {
		b.Addresser = storage.NewMemory()
	} else {
		if err := cfg.RequireStorageToken(); err != nil {
			client.Close()
			return nil, services.Wrap(services.ErrConfiguration, "", "storage", "", err)
		}
		b.Addresser = storage.NewClient(storage.Config{
			BaseURL:        cfg.Storage.BaseURL,
			APIToken:       cfg.Storage.APIToken,
			TimeoutSeconds: cfg.Storage.RequestTimeoutSeconds,
			VerifyCID:      cfg.Storage.VerifyCID,
		}, storage.WithLogger(logger))
	}

	logger.Info("backend ready",
		logging.String(logging.FieldEventType, "backend_ready"),
		logging.Int64("chain_id", cfg.Chain.ChainID),
		logging.String("network", contract.Network),
		logging.String("contract", contract.Address.Hex()),
		logging.String("owner", b.Owner.Hex()),
		logging.Bool("offline_storage", opts.Offline),
	)
	return b, nil
}

func (b *Backend) checkChainID(ctx context.Context, cfg *config.Config) error {
	callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout())
	defer cancel()
	id, err := b.client.ChainID(callCtx)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "", "chain id", "query "+cfg.Chain.RPCURL, err)
	}
	if !id.IsInt64() || id.Int64() != cfg.Chain.ChainID {
		return services.Wrap(services.ErrConfiguration, "", "chain id",
			fmt.Sprintf("node reports chain %s but chain.chain_id is %d", id, cfg.Chain.ChainID), nil)
	}
	return nil
}

// Dependencies returns the workflow template for new sessions.
func (b *Backend) Dependencies(cfg *config.Config, notifier notifications.Service, recorder mint.Recorder, logger *slog.Logger) mint.Dependencies {
	deps := mint.Dependencies{
		Deriver:   b.Deriver,
		Addresser: b.Addresser,
		Metadata:  metadata.NewBuilder(cfg.Site.TokenBaseURL),
		Owner:     b.Owner,
		Recorder:  recorder,
		Notifier:  notifier,
		Logger:    logger,
	}
	if b.Submitter != nil {
		deps.Submitter = b.Submitter
	}
	return deps
}

// Close releases the RPC connection.
func (b *Backend) Close() {
	if b != nil && b.client != nil {
		b.client.Close()
	}
}
