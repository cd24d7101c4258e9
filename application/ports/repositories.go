package ports

import (
	"context"
	"iter"

	"github.com/heinscr/books-library/domain"
	"github.com/heinscr/books-library/domain/events"
)

// BookRepository defines persistence for the shared Books table.
// Get, Update and Delete return domain.ErrNotFound for an absent id.
type BookRepository interface {
	// Get retrieves one book by id
	Get(ctx context.Context, id string) (*domain.Book, error)

	// List returns every book, reading all pages
	List(ctx context.Context) ([]domain.Book, error)

	// All streams every book page by page
	All(ctx context.Context) iter.Seq2[domain.Book, error]

	// Put writes a full book record, replacing any existing one
	Put(ctx context.Context, book domain.Book) error

	// Create writes a book only if the id is unused; otherwise it
	// returns domain.ErrAlreadyExists
	Create(ctx context.Context, book domain.Book) error

	// Update applies a partial update to an existing book and returns the
	// stored result. Nil or empty values clear the field.
	Update(ctx context.Context, id string, fields map[domain.Field]any) (*domain.Book, error)

	// Delete removes an existing book
	Delete(ctx context.Context, id string) error
}

// ReadStatusRepository defines persistence for the per-user UserBooks table.
// It is a separate failure domain: callers treat its errors as non-fatal
// wherever the book metadata is the primary concern.
type ReadStatusRepository interface {
	// Get returns the user's read flag for a book; an absent row is false
	Get(ctx context.Context, userID, bookID string) (bool, error)

	// ListForUser returns read flags keyed by book id
	ListForUser(ctx context.Context, userID string) (map[string]bool, error)

	// Put replaces the user's row for the book
	Put(ctx context.Context, status domain.UserBookStatus) error

	// DeleteForBook removes every user's row for the book and reports how
	// many were removed
	DeleteForBook(ctx context.Context, bookID string) (int, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
