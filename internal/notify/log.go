package notify

import (
	"context"
	"log/slog"
)

// LogChannel writes alerts to the process log.
type LogChannel struct{}

func (LogChannel) Type() string { return "log" }

func (LogChannel) Send(ctx context.Context, msg *Message) error {
	level := slog.LevelWarn
	if msg.Priority == PriorityUrgent {
		level = slog.LevelError
	}
	slog.Log(ctx, level, msg.Title, "tags", msg.Tags, "digest", msg.Body)
	return nil
}
