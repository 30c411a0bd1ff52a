package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const AppName = "Pomodoro Plaza"

type Notification struct {
	App    string    `json:"app"`
	Owner  string    `json:"owner,omitempty"`
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sentAt"`
}

// Notifier delivers a notification on a best-effort side channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	n.logger.Printf("notify [%s] %s: %s", notification.Kind, notification.Title, notification.Body)
	return nil
}

type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

func (n *WebhookNotifier) Notify(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// Gate drops every notification unless permission was granted.
type Gate struct {
	granted bool
	next    Notifier
}

func NewGate(granted bool, next Notifier) *Gate {
	return &Gate{granted: granted, next: next}
}

func (g *Gate) Notify(ctx context.Context, n Notification) error {
	if !g.granted || g.next == nil {
		return nil
	}
	return g.next.Notify(ctx, n)
}

// Multi fans out to every notifier and reports the first failure.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var firstErr error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }

// Build assembles the notifier chain: log delivery always, plus the webhook
// when a URL is configured, all behind the permission gate.
func Build(enabled bool, webhookURL string, logger *log.Logger) Notifier {
	chain := Multi{NewLogNotifier(logger)}
	if webhookURL != "" {
		chain = append(chain, NewWebhookNotifier(webhookURL, 5*time.Second))
	}
	return NewGate(enabled, chain)
}
