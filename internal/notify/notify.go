// Package notify sends best-effort change notifications through a webhook.
// Notifications are advisory: a failed send is logged, never returned, and
// can never abort a sync run.
package notify

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kamerwatch/kamerwatch/pkg/logging"
)

// DefaultSpacing is the minimum pause between consecutive sends. The webhook
// backend rate-limits bursts, so sends are paced rather than retried.
const DefaultSpacing = 2 * time.Second

// Notifier posts plain-text messages to a webhook endpoint.
type Notifier struct {
	client   *http.Client
	endpoint string
	spacing  time.Duration
	lastSend time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSpacing overrides the minimum pause between sends.
func WithSpacing(d time.Duration) Option {
	return func(n *Notifier) {
		n.spacing = d
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		n.client = c
	}
}

// New creates a Notifier for the given webhook endpoint. An empty endpoint
// yields a disabled notifier that silently drops every message.
func New(endpoint string, opts ...Option) *Notifier {
	n := &Notifier{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: endpoint,
		spacing:  DefaultSpacing,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether an endpoint is configured.
func (n *Notifier) Enabled() bool {
	return n.endpoint != ""
}

// Notify posts text to the webhook. Sends are paced at least the configured
// spacing apart; failures are logged and swallowed.
func (n *Notifier) Notify(ctx context.Context, text string) {
	if !n.Enabled() {
		return
	}

	if wait := n.spacing - time.Since(n.lastSend); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
	n.lastSend = time.Now()

	form := url.Values{"text": {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		logging.Warn().Err(err).Msg("Cannot build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		logging.Warn().Err(err).Msg("Notification failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logging.Warn().Int("status", resp.StatusCode).Msg("Notification rejected")
		return
	}
	logging.Debug().Str("text", text).Msg("Notification sent")
}
