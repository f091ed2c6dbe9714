package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// NtfyConfig configures an ntfy channel. TokenEnv names the environment
// variable holding an access token; ClickURL is attached to every message,
// typically the status API of the node.
type NtfyConfig struct {
	ServerURL string `json:"server_url"`
	Topic     string `json:"topic"`
	TokenEnv  string `json:"token_env,omitempty"`
	ClickURL  string `json:"click_url,omitempty"`
}

// NtfyChannel publishes alerts to an ntfy topic.
type NtfyChannel struct {
	cfg    NtfyConfig
	client *http.Client
}

// ntfy priorities run from 1 (min) to 5 (max).
var ntfyPriority = map[Priority]string{
	PriorityLow:    "2",
	PriorityNormal: "3",
	PriorityHigh:   "4",
	PriorityUrgent: "5",
}

// NewNtfyChannel creates an ntfy channel. An empty server means ntfy.sh.
func NewNtfyChannel(cfg NtfyConfig) *NtfyChannel {
	if cfg.ServerURL == "" {
		cfg.ServerURL = "https://ntfy.sh"
	}
	cfg.ServerURL = strings.TrimSuffix(cfg.ServerURL, "/")
	return &NtfyChannel{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

func (n *NtfyChannel) Type() string { return "ntfy" }

// Send publishes msg.Body as the message text with metadata in headers.
func (n *NtfyChannel) Send(ctx context.Context, msg *Message) error {
	if n.cfg.Topic == "" {
		return fmt.Errorf("ntfy: no topic configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.ServerURL+"/"+n.cfg.Topic, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("X-Title", msg.Title)
	if p, ok := ntfyPriority[msg.Priority]; ok {
		req.Header.Set("X-Priority", p)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("X-Tags", strings.Join(msg.Tags, ","))
	}
	if n.cfg.ClickURL != "" {
		req.Header.Set("X-Click", n.cfg.ClickURL)
	}
	if n.cfg.TokenEnv != "" {
		if token := os.Getenv(n.cfg.TokenEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", n.cfg.Topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
