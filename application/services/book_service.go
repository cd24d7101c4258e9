package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/domain"
	"github.com/heinscr/books-library/domain/events"
	"github.com/heinscr/books-library/pkg/auth"
	apperrors "github.com/heinscr/books-library/pkg/errors"
	"github.com/heinscr/books-library/pkg/validation"

	"go.uber.org/zap"
)

// ArchiveContentType is the content type uploads are presigned for
const ArchiveContentType = "application/zip"

// Forbidden messages for admin-only operations
const (
	ForbiddenDelete   = "Only administrators can delete books"
	ForbiddenUpload   = "Only administrators can upload books"
	ForbiddenMetadata = "Only administrators can set upload metadata"
)

// Blob tag keys written at upload and read back at ingestion
const (
	TagAuthor      = "author"
	TagSeriesName  = "seriesName"
	TagSeriesOrder = "seriesOrder"
)

// Request body keys
const (
	keyRead        = "read"
	keyAuthor      = string(domain.FieldAuthor)
	keyName        = string(domain.FieldName)
	keySeriesName  = string(domain.FieldSeriesName)
	keySeriesOrder = string(domain.FieldSeriesOrder)
	keyFilename    = "filename"
	keyFileSize    = "fileSize"
	keyBookID      = "bookId"
)

// Settings carries the request limits the service enforces
type Settings struct {
	URLExpiry       time.Duration
	MaxFileSize     int64
	MaxStringLength int
	MinSeriesOrder  int
	MaxSeriesOrder  int
	BooksPrefix     string
	AdminGroup      string
}

// DefaultSettings returns the production limits
func DefaultSettings() Settings {
	return Settings{
		URLExpiry:       time.Hour,
		MaxFileSize:     5 << 30,
		MaxStringLength: validation.DefaultMaxLength,
		MinSeriesOrder:  1,
		MaxSeriesOrder:  100,
		BooksPrefix:     "books/",
		AdminGroup:      auth.DefaultAdminGroup,
	}
}

// BookView is a book as one user sees it
type BookView struct {
	domain.Book
	Read bool `json:"read"`
}

// ListResult is the response of List
type ListResult struct {
	Books   []BookView `json:"books"`
	IsAdmin bool       `json:"isAdmin"`
}

// BookDetail is the response of Get
type BookDetail struct {
	BookView
	DownloadURL string `json:"downloadUrl"`
	ExpiresIn   int    `json:"expiresIn"`
}

// DeleteResult is the response of Delete
type DeleteResult struct {
	Message string `json:"message"`
	BookID  string `json:"bookId"`
}

// UploadResult is the response of Upload. Headers must be sent with the PUT.
type UploadResult struct {
	UploadURL   string            `json:"uploadUrl"`
	Method      string            `json:"method"`
	Filename    string            `json:"filename"`
	Key         string            `json:"key"`
	ExpiresIn   int               `json:"expiresIn"`
	Headers     map[string]string `json:"headers"`
	Author      string            `json:"author,omitempty"`
	SeriesName  string            `json:"seriesName,omitempty"`
	SeriesOrder *int              `json:"seriesOrder,omitempty"`
}

// MetadataResult is the response of SetUploadMetadata
type MetadataResult struct {
	Message       string           `json:"message"`
	BookID        string           `json:"bookId,omitempty"`
	Author        string           `json:"author,omitempty"`
	SeriesName    string           `json:"seriesName,omitempty"`
	SeriesOrder   *int             `json:"seriesOrder,omitempty"`
	CoverImageURL *domain.CoverURL `json:"coverImageUrl,omitempty"`
}

// BookService implements the user and admin book operations. Book metadata
// and read status live in separate repositories; failures of the read
// status side never fail a metadata operation.
type BookService struct {
	books    ports.BookRepository
	statuses ports.ReadStatusRepository
	store    ports.ObjectStore
	covers   ports.CoverFinder
	events   ports.EventPublisher
	observer OutcomeObserver
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
}

// NewBookService creates a new book service
func NewBookService(
	books ports.BookRepository,
	statuses ports.ReadStatusRepository,
	store ports.ObjectStore,
	covers ports.CoverFinder,
	publisher ports.EventPublisher,
	observer OutcomeObserver,
	settings Settings,
	logger *zap.Logger,
) *BookService {
	if observer == nil {
		observer = NewLoggingObserver(logger)
	}
	return &BookService{
		books:    books,
		statuses: statuses,
		store:    store,
		covers:   covers,
		events:   publisher,
		observer: observer,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns every book with the caller's read flags, newest first
func (s *BookService) List(ctx context.Context, caller auth.Identity) (*ListResult, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}

	books, err := s.books.List(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	reads, err := s.statuses.ListForUser(ctx, caller.UserID)
	s.observer.Observe(ctx, Outcome{Op: OpStatusRead, Target: caller.UserID, Count: len(reads), Err: err})
	if err != nil {
		reads = nil
	}

	views := make([]BookView, 0, len(books))
	for _, b := range books {
		views = append(views, BookView{Book: b, Read: reads[b.ID]})
	}
	slices.SortStableFunc(views, func(a, b BookView) int {
		return strings.Compare(b.Created, a.Created)
	})

	s.logger.Debug("Listed books", zap.Int("count", len(views)), zap.String("user_id", caller.UserID))
	return &ListResult{Books: views, IsAdmin: caller.InGroup(s.settings.AdminGroup)}, nil
}

// Get returns one book with a presigned download URL
func (s *BookService) Get(ctx context.Context, caller auth.Identity, bookID string) (*BookDetail, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if bookID == "" {
		return nil, apperrors.NewValidationError("Id is required in path")
	}

	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, bookError(bookID, err)
	}
	if book.BlobURL == "" {
		s.logger.Error("Book record missing blob locator", zap.String("book_id", bookID))
		return nil, apperrors.NewInvalidDataError("Book record missing S3 URL")
	}
	loc, err := domain.ParseLocator(book.BlobURL)
	if err != nil {
		return nil, apperrors.NewInvalidDataError(err.Error()).WithCause(err)
	}

	url, err := s.store.PresignGet(ctx, loc, s.settings.URLExpiry)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	return &BookDetail{
		BookView:    BookView{Book: *book, Read: s.readFlag(ctx, caller.UserID, bookID)},
		DownloadURL: url,
		ExpiresIn:   int(s.settings.URLExpiry.Seconds()),
	}, nil
}

// Update changes book metadata and the caller's read flag. Metadata goes to
// the Books table and is fatal on failure; the read flag is written only
// once the book is known to exist, and its failure is swallowed.
func (s *BookService) Update(ctx context.Context, caller auth.Identity, bookID string, body validation.Body) (*BookView, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	if bookID == "" {
		return nil, apperrors.NewValidationError("Id is required in path")
	}

	maxLen := validation.MaxLength(s.settings.MaxStringLength)
	if err := validation.Validate(body,
		validation.AllowedKeys(keyRead, keyAuthor, keyName, keySeriesName, keySeriesOrder),
		validation.Bool(keyRead),
		validation.String(keyAuthor, maxLen),
		validation.String(keyName, maxLen, validation.NonBlank()),
		validation.String(keySeriesName, maxLen),
		validation.SeriesOrder(keySeriesOrder, s.settings.MinSeriesOrder, s.settings.MaxSeriesOrder),
	); err != nil {
		return nil, err
	}

	var read *bool
	if v, ok := body[keyRead].(bool); ok {
		read = &v
	}
	fields := map[domain.Field]any{}
	for _, key := range []string{keyAuthor, keyName, keySeriesName} {
		if v, ok := body[key]; ok {
			fields[domain.Field(key)] = v.(string)
		}
	}
	if raw, ok := body[keySeriesOrder]; ok {
		fields[domain.FieldSeriesOrder] = seriesOrderValue(raw)
	}
	if read == nil && len(fields) == 0 {
		return nil, apperrors.NewValidationError("No valid fields to update")
	}

	var book *domain.Book
	var err error
	if len(fields) > 0 {
		if author, _ := fields[domain.FieldAuthor].(string); author != "" {
			current, err := s.books.Get(ctx, bookID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return nil, apperrors.NewNotFoundError(bookID)
			case err != nil:
				s.logger.Warn("Skipping cover refresh, current book unavailable",
					zap.String("book_id", bookID), zap.Error(err))
			default:
				s.refreshCover(ctx, current, author, fields)
			}
		}

		book, err = s.books.Update(ctx, bookID, fields)
		if err != nil {
			return nil, bookError(bookID, err)
		}
		s.logger.Info("Updated book metadata",
			zap.String("book_id", bookID), zap.Strings("fields", fieldNames(fields)))
	} else {
		book, err = s.books.Get(ctx, bookID)
		if err != nil {
			return nil, bookError(bookID, err)
		}
	}

	view := BookView{Book: *book}
	if read != nil {
		err := s.statuses.Put(ctx, domain.UserBookStatus{
			UserID:  caller.UserID,
			BookID:  bookID,
			Read:    *read,
			Updated: domain.Timestamp(s.now()),
		})
		s.observer.Observe(ctx, Outcome{Op: OpStatusWrite, Target: bookID, Count: 1, Err: err})
		view.Read = *read
	} else {
		view.Read = s.readFlag(ctx, caller.UserID, bookID)
	}

	if len(fields) > 0 {
		s.publish(ctx, events.NewBookUpdated(bookID, caller.UserID, fieldNames(fields), s.now()))
	}
	return &view, nil
}

// Delete removes a book, its blob and every user's read status. Only the
// Books table delete is fatal.
func (s *BookService) Delete(ctx context.Context, caller auth.Identity, bookID string) (*DeleteResult, error) {
	if err := s.RequireAdmin(caller, ForbiddenDelete); err != nil {
		return nil, err
	}
	if bookID == "" {
		return nil, apperrors.NewValidationError("Id is required in path")
	}

	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, bookError(bookID, err)
	}

	blobDeleted := false
	if book.BlobURL != "" {
		err := s.deleteBlob(ctx, book.BlobURL)
		s.observer.Observe(ctx, Outcome{Op: OpBlobDelete, Target: book.BlobURL, Count: 1, Err: err})
		blobDeleted = err == nil
	} else {
		s.logger.Warn("No blob locator for book", zap.String("book_id", bookID))
	}

	removed, err := s.statuses.DeleteForBook(ctx, bookID)
	s.observer.Observe(ctx, Outcome{Op: OpStatusCleanup, Target: bookID, Count: removed, Err: err})

	if err := s.books.Delete(ctx, bookID); err != nil {
		return nil, bookError(bookID, err)
	}

	s.logger.Info("Deleted book",
		zap.String("book_id", bookID),
		zap.String("user_id", caller.UserID),
		zap.Bool("blob_deleted", blobDeleted),
		zap.Int("statuses_removed", removed),
	)
	s.publish(ctx, events.NewBookDeleted(bookID, caller.UserID, blobDeleted, removed, s.now()))

	return &DeleteResult{Message: "Book deleted successfully", BookID: bookID}, nil
}

func (s *BookService) deleteBlob(ctx context.Context, raw string) error {
	loc, err := domain.ParseLocator(raw)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, loc)
}

// Upload presigns a direct PUT of an archive. Optional metadata travels as
// blob tags and is applied when the upload is ingested.
func (s *BookService) Upload(ctx context.Context, caller auth.Identity, body validation.Body) (*UploadResult, error) {
	if err := s.RequireAdmin(caller, ForbiddenUpload); err != nil {
		return nil, err
	}

	filename, _ := body[keyFilename].(string)
	if strings.TrimSpace(filename) == "" {
		return nil, apperrors.NewValidationError("filename is required")
	}
	if !domain.IsArchive(filename) {
		return nil, apperrors.NewValidationError("Only .zip files are allowed")
	}
	filename = domain.SanitizeFilename(filename)
	if !domain.IsArchive(filename) || strings.EqualFold(filename, ".zip") {
		return nil, apperrors.NewValidationError("Invalid filename")
	}

	maxLen := validation.MaxLength(s.settings.MaxStringLength)
	if err := validation.Validate(body,
		validation.String(keyFilename, maxLen),
		validation.String(keyAuthor, maxLen),
		validation.String(keySeriesName, maxLen),
		validation.SeriesOrder(keySeriesOrder, s.settings.MinSeriesOrder, s.settings.MaxSeriesOrder),
		validation.FileSize(keyFileSize, s.settings.MaxFileSize),
	); err != nil {
		return nil, err
	}

	author := trimmed(body, keyAuthor)
	seriesName := trimmed(body, keySeriesName)
	seriesOrder := optionalSeriesOrder(body)

	tags := map[string]string{}
	if author != "" {
		tags[TagAuthor] = author
	}
	if seriesName != "" {
		tags[TagSeriesName] = seriesName
	}
	if seriesOrder != nil {
		tags[TagSeriesOrder] = strconv.Itoa(*seriesOrder)
	}

	key := s.settings.BooksPrefix + filename
	req, err := s.store.PresignPut(ctx, key, s.settings.URLExpiry, ArchiveContentType, tags)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	s.logger.Info("Presigned upload",
		zap.String("key", key),
		zap.String("user_email", caller.Email),
		zap.Int("tags", len(tags)),
	)
	return &UploadResult{
		UploadURL:   req.URL,
		Method:      req.Method,
		Filename:    filename,
		Key:         key,
		ExpiresIn:   int(s.settings.URLExpiry.Seconds()),
		Headers:     req.Headers,
		Author:      author,
		SeriesName:  seriesName,
		SeriesOrder: seriesOrder,
	}, nil
}

// SetUploadMetadata applies author and series details to a freshly
// ingested book. Blank values are ignored, so the call never clears a
// field and repeating it is harmless.
func (s *BookService) SetUploadMetadata(ctx context.Context, caller auth.Identity, body validation.Body) (*MetadataResult, error) {
	if err := s.RequireAdmin(caller, ForbiddenMetadata); err != nil {
		return nil, err
	}

	bookID, _ := body[keyBookID].(string)
	if bookID == "" {
		return nil, apperrors.NewValidationError("bookId is required")
	}

	maxLen := validation.MaxLength(s.settings.MaxStringLength)
	if err := validation.Validate(body,
		validation.String(keyAuthor, maxLen),
		validation.String(keySeriesName, maxLen),
		validation.SeriesOrder(keySeriesOrder, s.settings.MinSeriesOrder, s.settings.MaxSeriesOrder),
	); err != nil {
		return nil, err
	}

	result := &MetadataResult{
		Message:     "Metadata updated successfully",
		BookID:      bookID,
		Author:      trimmed(body, keyAuthor),
		SeriesName:  trimmed(body, keySeriesName),
		SeriesOrder: optionalSeriesOrder(body),
	}
	fields := map[domain.Field]any{}
	if result.Author != "" {
		fields[domain.FieldAuthor] = result.Author
	}
	if result.SeriesName != "" {
		fields[domain.FieldSeriesName] = result.SeriesName
	}
	if result.SeriesOrder != nil {
		fields[domain.FieldSeriesOrder] = *result.SeriesOrder
	}
	if len(fields) == 0 {
		return &MetadataResult{Message: "No metadata to update"}, nil
	}

	current, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, bookError(bookID, err)
	}
	if result.Author != "" {
		s.refreshCover(ctx, current, result.Author, fields)
		if v, ok := fields[domain.FieldCoverImageURL]; ok {
			url, _ := v.(string)
			result.CoverImageURL = domain.KnownCover(url)
		}
	}

	if _, err := s.books.Update(ctx, bookID, fields); err != nil {
		return nil, bookError(bookID, err)
	}

	s.logger.Info("Set upload metadata",
		zap.String("book_id", bookID), zap.Strings("fields", fieldNames(fields)))
	s.publish(ctx, events.NewBookUpdated(bookID, caller.UserID, fieldNames(fields), s.now()))
	return result, nil
}

// refreshCover looks up a new cover when the author changes. A miss stores
// the cover as known absent so a stale image is not kept.
func (s *BookService) refreshCover(ctx context.Context, current *domain.Book, newAuthor string, fields map[domain.Field]any) {
	if newAuthor == "" || newAuthor == current.Author {
		return
	}

	url, found := s.covers.FindCover(ctx, current.Title(), newAuthor)
	if found {
		fields[domain.FieldCoverImageURL] = url
	} else {
		fields[domain.FieldCoverImageURL] = nil
	}
	count := 0
	if found {
		count = 1
	}
	s.observer.Observe(ctx, Outcome{Op: OpCoverLookup, Target: current.ID, Count: count})
}

func (s *BookService) readFlag(ctx context.Context, userID, bookID string) bool {
	read, err := s.statuses.Get(ctx, userID, bookID)
	s.observer.Observe(ctx, Outcome{Op: OpStatusRead, Target: bookID, Count: 1, Err: err})
	return err == nil && read
}

func (s *BookService) publish(ctx context.Context, event events.DomainEvent) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, event)
	s.observer.Observe(ctx, Outcome{Op: OpEventPublish, Target: event.GetAggregateID(), Count: 1, Err: err})
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403
func (s *BookService) RequireAdmin(caller auth.Identity, message string) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if !caller.InGroup(s.settings.AdminGroup) {
		s.logger.Warn("Non-admin user attempted admin operation",
			zap.String("user_id", caller.UserID), zap.String("reason", message))
		return apperrors.NewForbiddenError(message)
	}
	return nil
}

func requireUser(caller auth.Identity) error {
	if !caller.Authenticated() {
		return apperrors.NewUnauthorizedError("")
	}
	return nil
}

// bookError maps a repository error for bookID to an API error
func bookError(bookID string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewNotFoundError(bookID)
	}
	return apperrors.NewDatabaseError(err)
}

func fieldNames[V any](fields map[domain.Field]V) []string {
	keys := domain.SortedFields(fields)
	names := make([]string, len(keys))
	for i, f := range keys {
		names[i] = string(f)
	}
	return names
}

func trimmed(body validation.Body, key string) string {
	s, _ := body[key].(string)
	return strings.TrimSpace(s)
}

// seriesOrderValue converts a validated seriesOrder to the stored value;
// null and "" clear the field.
func seriesOrderValue(raw any) any {
	if raw == nil || raw == "" {
		return nil
	}
	n, err := validation.ParseInt(raw)
	if err != nil {
		return nil
	}
	return int(n)
}

func optionalSeriesOrder(body validation.Body) *int {
	if n, ok := seriesOrderValue(body[keySeriesOrder]).(int); ok {
		return &n
	}
	return nil
}
