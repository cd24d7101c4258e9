// Package mocks provides test doubles for the application ports. The
// repositories are in-memory with injectable failures; the gateways are
// testify mocks.
package mocks

import (
	"context"
	"iter"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/domain"
	"github.com/heinscr/books-library/domain/events"

	"github.com/stretchr/testify/mock"
)

// BookRepository is an in-memory ports.BookRepository. Setting an entry in
// Errors makes the named method fail with that error.
type BookRepository struct {
	mu     sync.Mutex
	books  map[string]domain.Book
	Errors map[string]error
	Calls  []string
}

// NewBookRepository returns a repository seeded with books
func NewBookRepository(books ...domain.Book) *BookRepository {
	r := &BookRepository{books: map[string]domain.Book{}, Errors: map[string]error{}}
	for _, b := range books {
		r.books[b.ID] = b
	}
	return r
}

var _ ports.BookRepository = (*BookRepository)(nil)

func (r *BookRepository) called(method string) error {
	r.Calls = append(r.Calls, method)
	return r.Errors[method]
}

// Stored returns the record as stored, bypassing injected errors
func (r *BookRepository) Stored(id string) (domain.Book, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	return b, ok
}

// Called reports whether method was invoked
func (r *BookRepository) Called(method string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.Calls, method)
}

func (r *BookRepository) Get(_ context.Context, id string) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("Get"); err != nil {
		return nil, err
	}
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (r *BookRepository) List(ctx context.Context) ([]domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("List"); err != nil {
		return nil, err
	}
	ids := slices.Sorted(maps.Keys(r.books))
	out := make([]domain.Book, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.books[id])
	}
	return out, nil
}

func (r *BookRepository) All(ctx context.Context) iter.Seq2[domain.Book, error] {
	return func(yield func(domain.Book, error) bool) {
		books, err := r.List(ctx)
		if err != nil {
			yield(domain.Book{}, err)
			return
		}
		for _, b := range books {
			if !yield(b, nil) {
				return
			}
		}
	}
}

func (r *BookRepository) Put(_ context.Context, book domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("Put"); err != nil {
		return err
	}
	r.books[book.ID] = book
	return nil
}

func (r *BookRepository) Create(_ context.Context, book domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("Create"); err != nil {
		return err
	}
	if _, ok := r.books[book.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.books[book.ID] = book
	return nil
}

func (r *BookRepository) Update(_ context.Context, id string, fields map[domain.Field]any) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("Update"); err != nil {
		return nil, err
	}
	b, ok := r.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b.Apply(fields)
	r.books[id] = b
	return &b, nil
}

func (r *BookRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("Delete"); err != nil {
		return err
	}
	if _, ok := r.books[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.books, id)
	return nil
}

// ReadStatusRepository is an in-memory ports.ReadStatusRepository
type ReadStatusRepository struct {
	mu     sync.Mutex
	rows   map[[2]string]domain.UserBookStatus
	Errors map[string]error
	Calls  []string
}

// NewReadStatusRepository returns a repository seeded with rows
func NewReadStatusRepository(rows ...domain.UserBookStatus) *ReadStatusRepository {
	r := &ReadStatusRepository{rows: map[[2]string]domain.UserBookStatus{}, Errors: map[string]error{}}
	for _, row := range rows {
		r.rows[[2]string{row.UserID, row.BookID}] = row
	}
	return r
}

var _ ports.ReadStatusRepository = (*ReadStatusRepository)(nil)

func (r *ReadStatusRepository) called(method string) error {
	r.Calls = append(r.Calls, method)
	return r.Errors[method]
}

// Row returns a stored row, bypassing injected errors
func (r *ReadStatusRepository) Row(userID, bookID string) (domain.UserBookStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[[2]string{userID, bookID}]
	return row, ok
}

// Len returns the number of stored rows
func (r *ReadStatusRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *ReadStatusRepository) Get(_ context.Context, userID, bookID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("Get"); err != nil {
		return false, err
	}
	return r.rows[[2]string{userID, bookID}].Read, nil
}

func (r *ReadStatusRepository) ListForUser(_ context.Context, userID string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("ListForUser"); err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for key, row := range r.rows {
		if key[0] == userID {
			out[key[1]] = row.Read
		}
	}
	return out, nil
}

func (r *ReadStatusRepository) Put(_ context.Context, status domain.UserBookStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("Put"); err != nil {
		return err
	}
	r.rows[[2]string{status.UserID, status.BookID}] = status
	return nil
}

func (r *ReadStatusRepository) DeleteForBook(_ context.Context, bookID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.called("DeleteForBook"); err != nil {
		return 0, err
	}
	n := 0
	for key := range r.rows {
		if key[1] == bookID {
			delete(r.rows, key)
			n++
		}
	}
	return n, nil
}

// ObjectStore is a testify mock of ports.ObjectStore
type ObjectStore struct {
	mock.Mock
	BucketName string
}

var _ ports.ObjectStore = (*ObjectStore)(nil)

func (m *ObjectStore) Bucket() string {
	return m.BucketName
}

func (m *ObjectStore) PresignGet(ctx context.Context, loc domain.Locator, ttl time.Duration) (string, error) {
	args := m.Called(ctx, loc, ttl)
	return args.String(0), args.Error(1)
}

func (m *ObjectStore) PresignPut(ctx context.Context, key string, ttl time.Duration, contentType string, tags map[string]string) (*ports.PresignedRequest, error) {
	args := m.Called(ctx, key, ttl, contentType, tags)
	req, _ := args.Get(0).(*ports.PresignedRequest)
	return req, args.Error(1)
}

func (m *ObjectStore) Delete(ctx context.Context, loc domain.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *ObjectStore) Tags(ctx context.Context, loc domain.Locator) (map[string]string, error) {
	args := m.Called(ctx, loc)
	tags, _ := args.Get(0).(map[string]string)
	return tags, args.Error(1)
}

func (m *ObjectStore) List(ctx context.Context, prefix string) iter.Seq2[ports.ObjectInfo, error] {
	args := m.Called(ctx, prefix)
	objects, _ := args.Get(0).([]ports.ObjectInfo)
	err := args.Error(1)
	return func(yield func(ports.ObjectInfo, error) bool) {
		for _, o := range objects {
			if !yield(o, nil) {
				return
			}
		}
		if err != nil {
			yield(ports.ObjectInfo{}, err)
		}
	}
}

// CoverFinder is a testify mock of ports.CoverFinder and ports.AuthorFinder
type CoverFinder struct {
	mock.Mock
}

var (
	_ ports.CoverFinder  = (*CoverFinder)(nil)
	_ ports.AuthorFinder = (*CoverFinder)(nil)
)

func (m *CoverFinder) FindCover(ctx context.Context, title, author string) (string, bool) {
	args := m.Called(ctx, title, author)
	return args.String(0), args.Bool(1)
}

func (m *CoverFinder) FindAuthors(ctx context.Context, title string) ([]string, bool) {
	args := m.Called(ctx, title)
	authors, _ := args.Get(0).([]string)
	return authors, args.Bool(1)
}

// EventPublisher records published events. Err makes every call fail.
type EventPublisher struct {
	mu     sync.Mutex
	Events []events.DomainEvent
	Err    error
}

var _ ports.EventPublisher = (*EventPublisher)(nil)

func (p *EventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

func (p *EventPublisher) PublishBatch(_ context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, batch...)
	return nil
}

// Types returns the event types published so far
func (p *EventPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.GetEventType())
	}
	return out
}
