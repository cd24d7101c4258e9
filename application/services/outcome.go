package services

import (
	"context"

	"go.uber.org/zap"
)

// Best-effort side operations. Their failure is reported as an Outcome and
// never fails the request that triggered them.
const (
	OpBlobDelete    = "blob_delete"
	OpStatusCleanup = "read_status_cleanup"
	OpStatusWrite   = "read_status_write"
	OpStatusRead    = "read_status_read"
	OpCoverLookup   = "cover_lookup"
	OpBlobTags      = "blob_tags"
	OpEventPublish  = "event_publish"
)

// Outcome is the result of one best-effort side operation. Callers are
// allowed to ignore it; observers see every one.
type Outcome struct {
	Op     string
	Target string
	Count  int
	Err    error
}

// Succeeded reports whether the side operation completed
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// OutcomeObserver receives best-effort outcomes
type OutcomeObserver interface {
	Observe(ctx context.Context, outcome Outcome)
}

// OutcomeObserverFunc adapts a function to OutcomeObserver
type OutcomeObserverFunc func(ctx context.Context, outcome Outcome)

func (f OutcomeObserverFunc) Observe(ctx context.Context, outcome Outcome) {
	f(ctx, outcome)
}

// BestEffortRecorder counts best-effort outcomes. Both the CloudWatch and
// Prometheus sinks implement it.
type BestEffortRecorder interface {
	RecordBestEffort(ctx context.Context, operation string, succeeded bool)
}

// LoggingObserver logs every outcome and forwards it to metric sinks.
// Failures log at warn.
type LoggingObserver struct {
	logger    *zap.Logger
	recorders []BestEffortRecorder
}

// NewLoggingObserver creates an observer writing to logger and recorders
func NewLoggingObserver(logger *zap.Logger, recorders ...BestEffortRecorder) *LoggingObserver {
	return &LoggingObserver{logger: logger, recorders: recorders}
}

// Observe logs the outcome and records it
func (o *LoggingObserver) Observe(ctx context.Context, outcome Outcome) {
	fields := []zap.Field{
		zap.String("operation", outcome.Op),
		zap.String("target", outcome.Target),
		zap.Int("count", outcome.Count),
	}
	if outcome.Err != nil {
		o.logger.Warn("Best-effort operation failed", append(fields, zap.Error(outcome.Err))...)
	} else {
		o.logger.Debug("Best-effort operation completed", fields...)
	}

	for _, r := range o.recorders {
		r.RecordBestEffort(ctx, outcome.Op, outcome.Succeeded())
	}
}
