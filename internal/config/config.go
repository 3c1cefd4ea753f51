package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Chain contains the blockchain node and signer configuration.
type Chain struct {
	RPCURL                string `toml:"rpc_url"`
	ChainID               int64  `toml:"chain_id"`
	ContractName          string `toml:"contract_name"`
	RegistryPath          string `toml:"registry_path"`
	PrivateKey            string `toml:"private_key"`
	Confirmations         int    `toml:"confirmations"`
	ReceiptPollIntervalMS int    `toml:"receipt_poll_interval_ms"`
	CallTimeoutSeconds    int    `toml:"call_timeout_seconds"`
	SendTimeoutSeconds    int    `toml:"send_timeout_seconds"`
}

// Storage contains configuration for the content-addressed storage service.
type Storage struct {
	BaseURL               string `toml:"base_url"`
	APIToken              string `toml:"api_token"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	// VerifyCID rejects uploads whose returned CID differs from the locally
	// computed raw CID. Only meaningful for services that store small blobs as
	// single raw blocks.
	VerifyCID bool `toml:"verify_cid"`
}

// Site contains the public URLs embedded in metadata and ownership instructions.
type Site struct {
	TokenBaseURL string `toml:"token_base_url"`
}

// API contains configuration for the session HTTP API served by the daemon.
type API struct {
	Bind              string `toml:"bind"`
	Token             string `toml:"token"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Transactions   bool   `toml:"transactions"`
	Receipts       bool   `toml:"receipts"`
	Confirmations  bool   `toml:"confirmations"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vidmint.
//
// Configuration sections by subsystem:
//   - Paths: data (journal, lock) and log directories
//   - Chain: JSON-RPC endpoint, network selection, signer and receipt watching
//   - Storage: content-addressed storage endpoint and credentials
//   - Site: public token URLs used in metadata and ownership instructions
//   - API: session API bind address, bearer token and session eviction
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Chain         Chain         `toml:"chain"`
	Storage       Storage       `toml:"storage"`
	Site          Site          `toml:"site"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Variables from
// .env and .env.local in the working directory are loaded first; they never
// replace variables already present in the environment. The returned config has
// all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	loadDotEnv()
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		_ = godotenv.Load(name)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidmint.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the SQLite journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.DataDir, "journal.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "vidmintd.lock")
}

// ReceiptPollInterval returns the receipt watcher polling period.
func (c *Config) ReceiptPollInterval() time.Duration {
	return time.Duration(c.Chain.ReceiptPollIntervalMS) * time.Millisecond
}

// CallTimeout returns the timeout applied to read-only contract calls.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Chain.CallTimeoutSeconds) * time.Second
}

// SendTimeout returns the timeout applied to transaction submission.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Chain.SendTimeoutSeconds) * time.Second
}

// StorageTimeout returns the HTTP timeout for storage uploads.
func (c *Config) StorageTimeout() time.Duration {
	return time.Duration(c.Storage.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns how long an idle API session is kept before eviction.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.API.SessionTTLMinutes) * time.Minute
}

// RequireSigner reports a configuration error when no signing key is set.
// Only commands that submit transactions call it.
func (c *Config) RequireSigner() error {
	if strings.TrimSpace(c.Chain.PrivateKey) == "" {
		return fmt.Errorf("chain.private_key is required to mint. Set %s or edit %s", envPrivateKey, c.describePath())
	}
	return nil
}

// RequireStorageToken reports a configuration error when no storage token is set.
func (c *Config) RequireStorageToken() error {
	if strings.TrimSpace(c.Storage.APIToken) == "" {
		return fmt.Errorf("storage.api_token is required to upload metadata. Set %s or edit %s", envStorageToken, c.describePath())
	}
	return nil
}

func (c *Config) describePath() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
