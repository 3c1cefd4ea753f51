package config

const (
	defaultConfigPath            = "~/.config/vidmint/config.toml"
	defaultDataDir               = "~/.local/share/vidmint"
	defaultLogDir                = "~/.local/share/vidmint/logs"
	defaultRPCURL                = "http://127.0.0.1:8545"
	defaultChainID               = 31337
	defaultContractName          = "YTVideoNFT"
	defaultConfirmations         = 1
	defaultReceiptPollIntervalMS = 2000
	defaultCallTimeoutSeconds    = 15
	defaultSendTimeoutSeconds    = 60
	defaultStorageBaseURL        = "https://api.nft.storage"
	defaultStorageTimeoutSeconds = 30
	defaultTokenBaseURL          = "https://ytvideonft.rhizomik.net/nfts"
	defaultAPIBind               = "127.0.0.1:7489"
	defaultSessionTTLMinutes     = 60
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Chain: Chain{
			RPCURL:                defaultRPCURL,
			ChainID:               defaultChainID,
			ContractName:          defaultContractName,
			Confirmations:         defaultConfirmations,
			ReceiptPollIntervalMS: defaultReceiptPollIntervalMS,
			CallTimeoutSeconds:    defaultCallTimeoutSeconds,
			SendTimeoutSeconds:    defaultSendTimeoutSeconds,
		},
		Storage: Storage{
			BaseURL:               defaultStorageBaseURL,
			RequestTimeoutSeconds: defaultStorageTimeoutSeconds,
		},
		Site: Site{
			TokenBaseURL: defaultTokenBaseURL,
		},
		API: API{
			Bind:              defaultAPIBind,
			SessionTTLMinutes: defaultSessionTTLMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Transactions:   true,
			Receipts:       true,
			Confirmations:  true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
