package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidmint/internal/config"
)

const userAgent = "vidmint/0.1.0"

// Event identifies a user-facing notification.
type Event string

const (
	EventTransactionSubmitted Event = "transaction_submitted"
	EventReceiptReceived      Event = "receipt_received"
	EventMintConfirmed        Event = "mint_confirmed"
	EventError                Event = "error"
	EventTest                 Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventTransactionSubmitted: cfg.Notifications.Transactions,
			EventReceiptReceived:      cfg.Notifications.Receipts,
			EventMintConfirmed:        cfg.Notifications.Confirmations,
			EventError:                cfg.Notifications.Errors,
			EventTest:                 true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventTransactionSubmitted:
		return message{
			title: "vidmint - New Transaction",
			body:  fmt.Sprintf("🔊 New Transaction: %s", payload.text("txHash")),
			tags:  []string{"vidmint", "transaction", "submitted"},
		}, true
	case EventReceiptReceived:
		body := fmt.Sprintf("📃 New Receipt: %s", payload.text("txHash"))
		if block := payload.text("block"); block != "" {
			body = fmt.Sprintf("%s (block %s)", body, block)
		}
		return message{
			title: "vidmint - New Receipt",
			body:  body,
			tags:  []string{"vidmint", "transaction", "receipt"},
		}, true
	case EventMintConfirmed:
		body := fmt.Sprintf("✅ Minted %s", payload.text("videoId"))
		if title := payload.text("title"); title != "" {
			body = fmt.Sprintf("✅ Minted %s (%s)", title, payload.text("videoId"))
		}
		if tokenURL := payload.text("tokenUrl"); tokenURL != "" {
			body = fmt.Sprintf("%s\n%s", body, tokenURL)
		}
		return message{
			title:    "vidmint - Mint Confirmed",
			body:     body,
			tags:     []string{"vidmint", "mint", "confirmed"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if step := payload.text("step"); step != "" {
			builder.WriteString(" during ")
			builder.WriteString(step)
		}
		builder.WriteString(": ")
		if errText := payload.text("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "vidmint - Error",
			body:     builder.String(),
			tags:     []string{"vidmint", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "vidmint - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"vidmint", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
