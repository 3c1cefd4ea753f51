package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Credentials that only some
// commands need (signing key, storage token) are checked by RequireSigner and
// RequireStorageToken instead.
func (c *Config) Validate() error {
	if err := c.validateChain(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"chain.receipt_poll_interval_ms":  c.Chain.ReceiptPollIntervalMS,
		"chain.call_timeout_seconds":      c.Chain.CallTimeoutSeconds,
		"chain.send_timeout_seconds":      c.Chain.SendTimeoutSeconds,
		"storage.request_timeout_seconds": c.Storage.RequestTimeoutSeconds,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateChain() error {
	if c.Chain.RPCURL == "" {
		return errors.New("chain.rpc_url must be set")
	}
	if err := validateURL("chain.rpc_url", c.Chain.RPCURL, "http", "https", "ws", "wss"); err != nil {
		return err
	}
	if c.Chain.ChainID <= 0 {
		return errors.New("chain.chain_id must be positive")
	}
	if c.Chain.Confirmations < 1 {
		return errors.New("chain.confirmations must be >= 1")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.BaseURL == "" {
		return errors.New("storage.base_url must be set")
	}
	return validateURL("storage.base_url", c.Storage.BaseURL, "http", "https")
}

func (c *Config) validateAPI() error {
	if c.API.SessionTTLMinutes <= 0 {
		return errors.New("api.session_ttl_minutes must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func validateURL(key, raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) && parsed.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL, got %q", key, strings.Join(schemes, "/"), raw)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
