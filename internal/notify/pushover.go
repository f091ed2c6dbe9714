package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const pushoverAPI = "https://api.pushover.net/1/messages.json"

// Pushover limits message bodies to 1024 characters.
const pushoverMaxBody = 1024

// PushoverChannel sends notifications via Pushover.
type PushoverChannel struct {
	apiURL      string
	apiTokenEnv string
	userKeyEnv  string
	client      *http.Client
}

// PushoverConfig names the environment variables holding the Pushover
// credentials. APIURL overrides the endpoint.
type PushoverConfig struct {
	APITokenEnv string `json:"api_token_env"`
	UserKeyEnv  string `json:"user_key_env"`
	APIURL      string `json:"api_url,omitempty"`
}

// NewPushoverChannel creates a new Pushover notification channel.
func NewPushoverChannel(cfg PushoverConfig) *PushoverChannel {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = pushoverAPI
	}
	return &PushoverChannel{
		apiURL:      apiURL,
		apiTokenEnv: cfg.APITokenEnv,
		userKeyEnv:  cfg.UserKeyEnv,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *PushoverChannel) Type() string {
	return "pushover"
}

// pushoverPriority maps alert priority to Pushover's -2..2 scale.
// Emergency (2) requires retry and expire.
var pushoverPriority = map[Priority]string{
	PriorityLow:    "-1",
	PriorityNormal: "0",
	PriorityHigh:   "1",
	PriorityUrgent: "2",
}

type pushoverResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

// Send posts the message as a form to the Pushover API.
func (p *PushoverChannel) Send(ctx context.Context, msg *Message) error {
	token, user := os.Getenv(p.apiTokenEnv), os.Getenv(p.userKeyEnv)
	if token == "" || user == "" {
		return errors.New("pushover credentials are not set in the environment")
	}

	body := msg.Body
	if len(body) > pushoverMaxBody {
		body = body[:pushoverMaxBody-3] + "..."
	}
	form := url.Values{"token": {token}, "user": {user}, "title": {msg.Title}, "message": {body}}
	if prio, ok := pushoverPriority[msg.Priority]; ok {
		form.Set("priority", prio)
		if msg.Priority == PriorityUrgent {
			form.Set("retry", "60")
			form.Set("expire", "3600")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to pushover: %w", err)
	}
	defer resp.Body.Close()

	var reply pushoverResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&reply)
	if resp.StatusCode >= 400 {
		if decodeErr == nil && len(reply.Errors) > 0 {
			return fmt.Errorf("pushover returned status %d: %s", resp.StatusCode, strings.Join(reply.Errors, "; "))
		}
		return fmt.Errorf("pushover returned status %d", resp.StatusCode)
	}
	if decodeErr == nil && reply.Status != 1 && len(reply.Errors) > 0 {
		return fmt.Errorf("pushover rejected message: %s", strings.Join(reply.Errors, "; "))
	}
	return nil
}
