package observability

import (
	"context"
	"log/slog"
)

// AuditLogger writes one structured record per state-changing action on a listing.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger wraps logger. A nil logger falls back to slog.Default.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger.With(slog.String("component", "audit"))}
}

// LogTransition records a website moving from one status to another.
func (l *AuditLogger) LogTransition(ctx context.Context, actorID, websiteID uint, action, from, to string, fields ...any) {
	attrs := []any{
		slog.Uint64("actor_id", uint64(actorID)),
		slog.Uint64("website_id", uint64(websiteID)),
		slog.String("action", action),
		slog.String("from", from),
		slog.String("to", to),
	}
	attrs = append(attrs, fields...)
	l.logger.InfoContext(ctx, "website transition", attrs...)
}

// LogFailure records an action that was refused or failed.
func (l *AuditLogger) LogFailure(ctx context.Context, actorID, websiteID uint, action string, err error) {
	l.logger.WarnContext(ctx, "website action failed",
		slog.Uint64("actor_id", uint64(actorID)),
		slog.Uint64("website_id", uint64(websiteID)),
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
}
