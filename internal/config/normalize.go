package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	envStorageToken = "NFT_STORAGE_API_KEY"
	envPrivateKey   = "VIDMINT_PRIVATE_KEY"
	envRPCURL       = "VIDMINT_RPC_URL"
	envAPIToken     = "VIDMINT_API_TOKEN"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeChain(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeSite()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeChain() error {
	c.Chain.RPCURL = envOverride(envRPCURL, c.Chain.RPCURL)
	c.Chain.PrivateKey = strings.TrimPrefix(envOverride(envPrivateKey, c.Chain.PrivateKey), "0x")
	c.Chain.ContractName = strings.TrimSpace(c.Chain.ContractName)
	if c.Chain.ContractName == "" {
		c.Chain.ContractName = defaultContractName
	}
	if strings.TrimSpace(c.Chain.RegistryPath) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Chain.RegistryPath))
		if err != nil {
			return fmt.Errorf("chain.registry_path: %w", err)
		}
		c.Chain.RegistryPath = expanded
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.BaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.BaseURL), "/")
	c.Storage.APIToken = envOverride(envStorageToken, c.Storage.APIToken)
}

func (c *Config) normalizeSite() {
	c.Site.TokenBaseURL = strings.TrimRight(strings.TrimSpace(c.Site.TokenBaseURL), "/")
	if c.Site.TokenBaseURL == "" {
		c.Site.TokenBaseURL = defaultTokenBaseURL
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = envOverride(envAPIToken, c.API.Token)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envOverride returns the trimmed environment value when set and non-blank,
// otherwise the trimmed configured value.
func envOverride(key, configured string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(configured)
}
