// Package lambda adapts non-HTTP Lambda triggers to application services.
package lambda

import (
	"context"
	"strings"

	"github.com/heinscr/books-library/application/services"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// Ingester stores a book record for each uploaded archive
type Ingester interface {
	IngestAll(ctx context.Context, records []services.ObjectCreated) int
}

// Business metric names
const (
	MetricBooksIngested  = "BooksIngested"
	MetricIngestFailures = "BookIngestFailures"
)

// BusinessRecorder receives per-batch ingest counts
type BusinessRecorder interface {
	RecordBusinessMetric(ctx context.Context, metricName string, value float64)
}

// S3Handler turns S3 object-created notifications into book records
type S3Handler struct {
	ingester Ingester
	metrics  BusinessRecorder
	logger   *zap.Logger
}

// NewS3Handler creates a new S3 notification handler. metrics may be nil.
func NewS3Handler(ingester Ingester, metrics BusinessRecorder, logger *zap.Logger) *S3Handler {
	return &S3Handler{ingester: ingester, metrics: metrics, logger: logger}
}

// Handle processes one notification batch. It always returns nil so S3
// never retries a batch; per-record failures are logged by the ingester.
func (h *S3Handler) Handle(ctx context.Context, event events.S3Event) error {
	records := Records(event)
	skipped := len(event.Records) - len(records)
	if skipped > 0 {
		h.logger.Debug("Skipping non-create S3 records", zap.Int("count", skipped))
	}
	if len(records) == 0 {
		return nil
	}

	stored := h.ingester.IngestAll(ctx, records)
	if h.metrics != nil {
		h.metrics.RecordBusinessMetric(ctx, MetricBooksIngested, float64(stored))
		if failed := len(records) - stored; failed > 0 {
			h.metrics.RecordBusinessMetric(ctx, MetricIngestFailures, float64(failed))
		}
	}
	h.logger.Info("Processed S3 notification",
		zap.Int("records", len(event.Records)),
		zap.Int("stored", stored),
	)
	return nil
}

// Records extracts object-created records. Keys are passed through still
// URL-encoded; the ingester decodes them.
func Records(event events.S3Event) []services.ObjectCreated {
	records := make([]services.ObjectCreated, 0, len(event.Records))
	for _, r := range event.Records {
		if r.EventName != "" && !strings.HasPrefix(r.EventName, "ObjectCreated:") {
			continue
		}
		records = append(records, services.ObjectCreated{
			Bucket: r.S3.Bucket.Name,
			Key:    r.S3.Object.Key,
			Size:   r.S3.Object.Size,
		})
	}
	return records
}
