package report

import (
	"context"
	"log/slog"
)

// Sink delivers alerts. Delivery and retries are the sink's concern.
type Sink interface {
	Send(ctx context.Context, alert *Alert) error
}

// Dispatch hands alert to sink and logs the result. A nil alert is not sent.
// The error is returned for accounting only; it never affects the report.
func Dispatch(ctx context.Context, sink Sink, alert *Alert) error {
	if alert == nil || sink == nil {
		return nil
	}
	if err := sink.Send(ctx, alert); err != nil {
		slog.Error("alert dispatch failed", "alert", alert.ID, "severity", alert.Severity(), "error", err)
		return err
	}
	slog.Info("alert dispatched", "alert", alert.ID, "severity", alert.Severity(), "findings", len(alert.Findings))
	return nil
}
