package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vidmint/internal/logging"
	"vidmint/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 4096
	stepName           = "BuildAndAddress"
)

// Config captures the runtime settings required to talk to the storage API.
type Config struct {
	BaseURL        string
	APIToken       string
	TimeoutSeconds int
	VerifyCID      bool
}

// Client uploads blobs to an nft.storage compatible service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "storage")
	}
}

// NewClient constructs a storage client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIToken:       strings.TrimSpace(cfg.APIToken),
			TimeoutSeconds: cfg.TimeoutSeconds,
			VerifyCID:      cfg.VerifyCID,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(nil, "storage"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type uploadResponse struct {
	OK    bool `json:"ok"`
	Value struct {
		CID string `json:"cid"`
	} `json:"value"`
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("http %d: authentication rejected, check storage.api_token: %s", e.StatusCode, strings.TrimSpace(e.Body))
	case http.StatusRequestEntityTooLarge:
		return fmt.Sprintf("http %d: blob rejected as too large", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Upload stores data and returns its CID. One request is made; failures are
// reported as storage errors and never retried here.
func (c *Client) Upload(ctx context.Context, data []byte) (string, error) {
	if c.cfg.APIToken == "" {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "storage api token is not configured", nil)
	}
	local, err := LocalCID(data)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var payload uploadResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "decode response", err)
	}
	if !payload.OK {
		message := "service reported failure"
		if payload.Error != nil && payload.Error.Message != "" {
			message = payload.Error.Message
		}
		return "", services.Wrap(services.ErrStorage, stepName, "upload", message, nil)
	}
	remote, err := ParseCID(strings.TrimSpace(payload.Value.CID))
	if err != nil {
		return "", services.Wrap(services.ErrStorage, stepName, "upload", "", err)
	}

	if remote != local {
		if c.cfg.VerifyCID {
			return "", services.Wrap(services.ErrStorage, stepName, "verify cid",
				fmt.Sprintf("service returned %s, expected %s", remote, local), nil)
		}
		c.logger.Debug("service cid differs from local raw cid",
			logging.String(logging.FieldCID, remote),
			logging.String("local_cid", local),
		)
	}

	c.logger.Info("metadata uploaded",
		logging.String(logging.FieldCID, remote),
		logging.Int("bytes", len(data)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return remote, nil
}
