package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jandubois/clusterwatch/internal/report"
)

// ErrNoChannels is returned by Send when the dispatcher has no channels.
var ErrNoChannels = errors.New("notify: no channels configured")

// DefaultTimeout bounds one delivery across all channels.
const DefaultTimeout = 10 * time.Second

// ChannelConfig declares one channel. Settings are decoded into the
// channel's own config type.
type ChannelConfig struct {
	Type     string         `yaml:"type"`
	Name     string         `yaml:"name"`
	Settings map[string]any `yaml:"settings"`
}

type namedChannel struct {
	name string
	ch   Channel
}

// Dispatcher fans an alert out to every channel. It implements report.Sink.
type Dispatcher struct {
	timeout  time.Duration
	channels []namedChannel
}

// NewDispatcher creates a dispatcher. A zero timeout uses DefaultTimeout.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{timeout: timeout}
}

// Add registers a channel under name.
func (d *Dispatcher) Add(name string, ch Channel) {
	if name == "" {
		name = ch.Type()
	}
	d.channels = append(d.channels, namedChannel{name: name, ch: ch})
}

// Len returns the number of channels.
func (d *Dispatcher) Len() int { return len(d.channels) }

// LoadChannels creates and adds a channel for each config.
func (d *Dispatcher) LoadChannels(cfgs []ChannelConfig) error {
	var errs []error
	for i, cfg := range cfgs {
		ch, err := CreateChannel(cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("channel %d (%s): %w", i, cfg.Type, err))
			continue
		}
		d.Add(cfg.Name, ch)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("loaded notification channels", "count", len(d.channels))
	return nil
}

// CreateChannel builds the channel described by cfg.
func CreateChannel(cfg ChannelConfig) (Channel, error) {
	switch cfg.Type {
	case "ntfy":
		var c NtfyConfig
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, err
		}
		if c.Topic == "" {
			return nil, errors.New("topic is required")
		}
		return NewNtfyChannel(c), nil
	case "pushover":
		var c PushoverConfig
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, err
		}
		if c.APITokenEnv == "" || c.UserKeyEnv == "" {
			return nil, errors.New("api_token_env and user_key_env are required")
		}
		return NewPushoverChannel(c), nil
	case "webhook":
		var c WebhookConfig
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, errors.New("url is required")
		}
		return NewWebhookChannel(c), nil
	case "log":
		return LogChannel{}, nil
	default:
		return nil, fmt.Errorf("unknown channel type %q", cfg.Type)
	}
}

// ValidTypes lists the channel types CreateChannel accepts.
var ValidTypes = []string{"ntfy", "pushover", "webhook", "log"}

func decodeSettings(settings map[string]any, out any) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

// Send delivers alert to all channels concurrently and waits for them.
// It does not retry; channels that retry do so internally.
func (d *Dispatcher) Send(ctx context.Context, alert *report.Alert) error {
	if len(d.channels) == 0 {
		return ErrNoChannels
	}
	msg := FormatAlert(alert)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	errs := make([]error, len(d.channels))
	var wg sync.WaitGroup
	for i, nc := range d.channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := nc.ch.Send(ctx, msg); err != nil {
				errs[i] = fmt.Errorf("%s: %w", nc.name, err)
				return
			}
			slog.Debug("notification sent", "channel", nc.name, "channel_type", nc.ch.Type(), "alert", alert.ID)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

var _ report.Sink = (*Dispatcher)(nil)
