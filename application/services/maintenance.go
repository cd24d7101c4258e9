package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Report summarises one maintenance run
type Report struct {
	Scanned    int      `json:"scanned"`
	Candidates int      `json:"candidates"`
	Updated    int      `json:"updated"`
	NotFound   int      `json:"notFound"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	DryRun     bool     `json:"dryRun"`
	Failures   []string `json:"failures,omitempty"`
}

// HasErrors reports whether any write failed
func (r Report) HasErrors() bool {
	return r.Failed > 0
}

func (r *Report) fail(id string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, fmt.Sprintf("%s: %v", id, err))
}

// BackfillOptions configures BackfillCovers
type BackfillOptions struct {
	DryRun bool

	// IncludeAbsent retries books whose last lookup found nothing
	IncludeAbsent bool
}

// MaintenanceService runs the operator batch jobs behind booksctl. Calls to
// the lookup API are paced by limiter.
type MaintenanceService struct {
	books   ports.BookRepository
	store   ports.ObjectStore
	covers  ports.CoverFinder
	authors ports.AuthorFinder
	limiter *rate.Limiter
	prefix  string
	logger  *zap.Logger
}

// NewMaintenanceService creates a maintenance service. A nil limiter does
// not pace lookups.
func NewMaintenanceService(
	books ports.BookRepository,
	store ports.ObjectStore,
	covers ports.CoverFinder,
	authors ports.AuthorFinder,
	limiter *rate.Limiter,
	settings Settings,
	logger *zap.Logger,
) *MaintenanceService {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &MaintenanceService{
		books:   books,
		store:   store,
		covers:  covers,
		authors: authors,
		limiter: limiter,
		prefix:  settings.BooksPrefix,
		logger:  logger,
	}
}

// NewLookupLimiter paces lookups to perSecond requests with no burst
func NewLookupLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// BackfillCovers looks up covers for books that never had a lookup, and
// with IncludeAbsent also for those whose lookup found nothing. A miss is
// stored as known absent.
func (m *MaintenanceService) BackfillCovers(ctx context.Context, opts BackfillOptions) (Report, error) {
	report := Report{DryRun: opts.DryRun}

	for book, err := range m.books.All(ctx) {
		if err != nil {
			return report, fmt.Errorf("failed to scan books: %w", err)
		}
		report.Scanned++

		if book.HasCover() || (book.CoverLookedUp() && !opts.IncludeAbsent) {
			continue
		}
		report.Candidates++

		if err := m.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("rate limit wait: %w", err)
		}
		url, found := m.covers.FindCover(ctx, book.Title(), book.Author)
		if !found {
			report.NotFound++
			if book.CoverLookedUp() {
				continue
			}
		}

		m.logger.Info("Cover lookup",
			zap.String("book_id", book.ID),
			zap.Bool("found", found),
			zap.Bool("dry_run", opts.DryRun),
		)
		if opts.DryRun {
			if found {
				report.Updated++
			}
			continue
		}

		var value any
		if found {
			value = url
		}
		m.apply(ctx, &report, book.ID, map[domain.Field]any{domain.FieldCoverImageURL: value}, found)
	}
	return report, nil
}

// MigrateBooks creates Book records for archives already in the object
// store. Existing records are left untouched.
func (m *MaintenanceService) MigrateBooks(ctx context.Context, dryRun bool) (Report, error) {
	report := Report{DryRun: dryRun}
	bucket := m.store.Bucket()

	for obj, err := range m.store.List(ctx, m.prefix) {
		if err != nil {
			return report, fmt.Errorf("failed to list objects: %w", err)
		}
		report.Scanned++

		if obj.Key == m.prefix || strings.HasSuffix(obj.Key, "/") || !domain.IsArchive(obj.Key) {
			continue
		}
		report.Candidates++

		meta := domain.ParseObjectKey(obj.Key)
		book := domain.Book{
			ID:        meta.ID,
			Name:      meta.Name,
			Author:    meta.Author,
			Created:   domain.Timestamp(obj.LastModified),
			SizeBytes: obj.Size,
			BlobURL:   domain.Locator{Bucket: bucket, Key: obj.Key}.String(),
		}

		if dryRun {
			_, err := m.books.Get(ctx, book.ID)
			switch {
			case err == nil:
				report.Skipped++
			case errors.Is(err, domain.ErrNotFound):
				report.Updated++
			default:
				report.fail(book.ID, err)
			}
			continue
		}

		switch err := m.books.Create(ctx, book); {
		case err == nil:
			report.Updated++
			m.logger.Info("Migrated book", zap.String("book_id", book.ID), zap.String("key", obj.Key))
		case errors.Is(err, domain.ErrAlreadyExists):
			report.Skipped++
		default:
			report.fail(book.ID, err)
			m.logger.Error("Failed to migrate book", zap.String("book_id", book.ID), zap.Error(err))
		}
	}
	return report, nil
}

// PopulateAuthors fills in missing authors from a title search. Several
// authors are joined with ", ".
func (m *MaintenanceService) PopulateAuthors(ctx context.Context, dryRun bool) (Report, error) {
	report := Report{DryRun: dryRun}

	for book, err := range m.books.All(ctx) {
		if err != nil {
			return report, fmt.Errorf("failed to scan books: %w", err)
		}
		report.Scanned++

		if strings.TrimSpace(book.Author) != "" {
			continue
		}
		report.Candidates++

		if err := m.limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("rate limit wait: %w", err)
		}
		authors, found := m.authors.FindAuthors(ctx, book.Title())
		if !found || len(authors) == 0 {
			report.NotFound++
			m.logger.Warn("No author found", zap.String("book_id", book.ID), zap.String("title", book.Title()))
			continue
		}

		author := strings.Join(authors, ", ")
		m.logger.Info("Author lookup",
			zap.String("book_id", book.ID),
			zap.String("author", author),
			zap.Bool("dry_run", dryRun),
		)
		if dryRun {
			report.Updated++
			continue
		}
		m.apply(ctx, &report, book.ID, map[domain.Field]any{domain.FieldAuthor: author}, true)
	}
	return report, nil
}

// apply writes fields to an existing book. A book deleted mid-run counts
// as skipped.
func (m *MaintenanceService) apply(ctx context.Context, report *Report, id string, fields map[domain.Field]any, counts bool) {
	_, err := m.books.Update(ctx, id, fields)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		report.Skipped++
	case err != nil:
		report.fail(id, err)
		m.logger.Error("Failed to update book", zap.String("book_id", id), zap.Error(err))
	case counts:
		report.Updated++
	}
}

// DefaultLookupInterval is the pause between lookup API calls used by
// booksctl unless overridden.
const DefaultLookupInterval = 500 * time.Millisecond
