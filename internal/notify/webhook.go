package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jandubois/clusterwatch/internal/report"
)

var defaultRetryDelays = []time.Duration{0, 1 * time.Second, 2 * time.Second, 5 * time.Second}

// WebhookConfig configures a generic JSON webhook. The bearer token, if any,
// is read from the environment variable named by TokenEnv.
type WebhookConfig struct {
	URL      string `json:"url"`
	TokenEnv string `json:"token_env,omitempty"`
}

// WebhookChannel POSTs the alert and its report as JSON, retrying
// transient failures with backoff.
type WebhookChannel struct {
	url      string
	tokenEnv string
	delays   []time.Duration
	client   *http.Client
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(cfg WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		url:      cfg.URL,
		tokenEnv: cfg.TokenEnv,
		delays:   defaultRetryDelays,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookChannel) Type() string { return "webhook" }

type webhookPayload struct {
	AlertID  string         `json:"alert_id"`
	Severity string         `json:"severity"`
	Title    string         `json:"title"`
	Digest   string         `json:"digest"`
	Tags     []string       `json:"tags,omitempty"`
	Report   *report.Report `json:"report,omitempty"`
}

// Send posts msg. 4xx responses are not retried.
func (w *WebhookChannel) Send(ctx context.Context, msg *Message) error {
	payload := webhookPayload{Title: msg.Title, Digest: msg.Body, Tags: msg.Tags}
	if msg.Alert != nil {
		payload.AlertID = msg.Alert.ID
		payload.Severity = msg.Alert.Severity().String()
		payload.Report = msg.Alert.Report
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt, delay := range w.delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		var retry bool
		retry, lastErr = w.post(ctx, data)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retry {
			return lastErr
		}
		slog.Warn("webhook failed, retrying", "url", w.url, "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", len(w.delays), lastErr)
}

func (w *WebhookChannel) post(ctx context.Context, data []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.tokenEnv != "" {
		if token := os.Getenv(w.tokenEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode >= 500, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return false, nil
}
