package audit

import (
	"context"
	"log/slog"
)

// LogSink writes each event as a structured log record with log_type=audit.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, events []Event) error {
	for _, e := range events {
		args := []any{
			"event", string(e.Action),
			"log_type", "audit",
			"user_id", e.UserID,
			"timestamp", e.Timestamp,
		}
		if e.Subject != "" {
			args = append(args, "subject", e.Subject)
		}
		if e.RequestID != "" {
			args = append(args, "request_id", e.RequestID)
		}
		for k, v := range e.Attrs {
			args = append(args, k, v)
		}
		s.logger.InfoContext(ctx, string(e.Action), args...)
	}
	return nil
}
