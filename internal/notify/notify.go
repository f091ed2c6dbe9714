// Package notify delivers alerts to notification channels.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/report"
)

// Channel is a notification channel.
type Channel interface {
	Send(ctx context.Context, msg *Message) error
	Type() string
}

// Message contains notification details.
type Message struct {
	Title    string
	Body     string
	Priority Priority
	Tags     []string
	Alert    *report.Alert
}

// Priority levels for notifications.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// FormatAlert creates a notification message for an alert.
func FormatAlert(alert *report.Alert) *Message {
	priority := PriorityNormal
	switch alert.Severity() {
	case probe.SeverityCritical:
		priority = PriorityUrgent
	case probe.SeverityWarning:
		priority = PriorityHigh
	}

	tags := []string{alert.Severity().String(), alert.Report.Hostname}
	seen := make(map[probe.Domain]bool)
	for _, f := range alert.Findings {
		if !seen[f.Domain] {
			seen[f.Domain] = true
			tags = append(tags, string(f.Domain))
		}
	}

	return &Message{
		Title:    fmt.Sprintf("[%s] %s", strings.ToUpper(alert.Severity().String()), alert.Report.Hostname),
		Body:     report.Digest(alert),
		Priority: priority,
		Tags:     tags,
		Alert:    alert,
	}
}
