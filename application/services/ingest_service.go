package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/domain"
	"github.com/heinscr/books-library/domain/events"

	"go.uber.org/zap"
)

// ErrInvalidRecord marks an object-created record that names no archive
var ErrInvalidRecord = errors.New("invalid object-created record")

// Legacy tag spellings still accepted at ingestion
const (
	legacyTagSeriesName  = "series_name"
	legacyTagSeriesOrder = "series_order"
)

// ObjectCreated is one blob-creation notification. Key is as delivered,
// still URL-encoded.
type ObjectCreated struct {
	Bucket string
	Key    string
	Size   int64
}

// IngestService turns uploaded archives into Book records
type IngestService struct {
	books    ports.BookRepository
	store    ports.ObjectStore
	covers   ports.CoverFinder
	events   ports.EventPublisher
	observer OutcomeObserver
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
}

// NewIngestService creates a new ingest service
func NewIngestService(
	books ports.BookRepository,
	store ports.ObjectStore,
	covers ports.CoverFinder,
	publisher ports.EventPublisher,
	observer OutcomeObserver,
	settings Settings,
	logger *zap.Logger,
) *IngestService {
	if observer == nil {
		observer = NewLoggingObserver(logger)
	}
	return &IngestService{
		books:    books,
		store:    store,
		covers:   covers,
		events:   publisher,
		observer: observer,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// IngestAll processes every record and reports how many books were stored.
// It never fails: a bad record is logged and the rest still run, so the
// event source never redelivers.
func (s *IngestService) IngestAll(ctx context.Context, records []ObjectCreated) int {
	stored := 0
	for _, rec := range records {
		book, err := s.Ingest(ctx, rec)
		if err != nil {
			s.logger.Error("Failed to ingest object",
				zap.String("bucket", rec.Bucket),
				zap.String("key", rec.Key),
				zap.Error(err),
			)
			continue
		}
		stored++
		s.logger.Info("Ingested book", zap.String("book_id", book.ID), zap.Bool("has_cover", book.HasCover()))
	}
	return stored
}

// Ingest builds and stores the Book for one uploaded archive. Metadata is
// guessed from the filename and overridden by blob tags.
func (s *IngestService) Ingest(ctx context.Context, rec ObjectCreated) (*domain.Book, error) {
	key := domain.DecodeObjectKey(rec.Key)
	if rec.Bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return nil, fmt.Errorf("%w: bucket %q key %q", ErrInvalidRecord, rec.Bucket, rec.Key)
	}

	loc := domain.Locator{Bucket: rec.Bucket, Key: key}
	meta := domain.ParseObjectKey(key)
	book := domain.Book{
		ID:        meta.ID,
		Name:      meta.Name,
		Author:    meta.Author,
		Created:   domain.Timestamp(s.now()),
		SizeBytes: rec.Size,
		BlobURL:   loc.String(),
	}

	tags, err := s.store.Tags(ctx, loc)
	s.observer.Observe(ctx, Outcome{Op: OpBlobTags, Target: loc.String(), Count: len(tags), Err: err})
	if err == nil {
		s.applyTags(&book, tags)
	}

	url, found := s.covers.FindCover(ctx, book.Title(), book.Author)
	count := 0
	if found {
		count = 1
	}
	s.observer.Observe(ctx, Outcome{Op: OpCoverLookup, Target: book.ID, Count: count})
	book.CoverImageURL = domain.KnownCover(url)

	if err := s.books.Put(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to store book %s: %w", book.ID, err)
	}

	s.publish(ctx, events.NewBookIngested(book.ID, book.Name, book.Author, book.BlobURL, book.SizeBytes, book.HasCover(), s.now()))
	return &book, nil
}

func (s *IngestService) applyTags(book *domain.Book, tags map[string]string) {
	if v := strings.TrimSpace(tags[TagAuthor]); v != "" {
		book.Author = v
	}
	if v := firstTag(tags, TagSeriesName, legacyTagSeriesName); v != "" {
		book.SeriesName = v
	}
	if v := firstTag(tags, TagSeriesOrder, legacyTagSeriesOrder); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < s.settings.MinSeriesOrder || n > s.settings.MaxSeriesOrder {
			s.logger.Warn("Ignoring invalid seriesOrder tag",
				zap.String("book_id", book.ID), zap.String("value", v))
			return
		}
		book.SeriesOrder = n
	}
}

func (s *IngestService) publish(ctx context.Context, event events.DomainEvent) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, event)
	s.observer.Observe(ctx, Outcome{Op: OpEventPublish, Target: event.GetAggregateID(), Count: 1, Err: err})
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}
