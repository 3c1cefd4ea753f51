package testsupport

import (
	"path/filepath"
	"testing"

	"vidmint/internal/config"
)

// TestPrivateKey is the first well-known development account of local EVM
// nodes (hardhat, anvil). Never fund it on a public network.
const TestPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// TestOwner is the address of TestPrivateKey.
const TestOwner = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Chain.PrivateKey = TestPrivateKey
	cfgVal.Chain.ReceiptPollIntervalMS = 5
	cfgVal.Storage.APIToken = "test"
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIToken sets the session API bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// WithStorageURL points the storage client at the given base URL.
func WithStorageURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.BaseURL = url
	}
}

// WithConfirmations sets the number of confirmation blocks.
func WithConfirmations(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Chain.Confirmations = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
