package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/domain"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// BookKeyAttr is the partition key of the Books table
const BookKeyAttr = "id"

// BookRepository implements ports.BookRepository over the Books table
type BookRepository struct {
	table  *Table
	logger *zap.Logger
}

// Compile-time interface check
var _ ports.BookRepository = (*BookRepository)(nil)

// bookRecord is the stored shape of a book, minus the tri-state cover
// which is mapped by hand.
type bookRecord struct {
	ID          string `dynamodbav:"id"`
	Name        string `dynamodbav:"name"`
	Author      string `dynamodbav:"author,omitempty"`
	SeriesName  string `dynamodbav:"seriesName,omitempty"`
	SeriesOrder int    `dynamodbav:"seriesOrder,omitempty"`
	Created     string `dynamodbav:"created"`
	SizeBytes   int64  `dynamodbav:"sizeBytes"`
	BlobURL     string `dynamodbav:"blobUrl,omitempty"`
}

// NewBookRepository creates a repository over tableName
func NewBookRepository(client DBClient, tableName string, logger *zap.Logger) *BookRepository {
	return &BookRepository{
		table:  NewTable(client, tableName, BookKeyAttr, logger),
		logger: logger,
	}
}

func bookKey(id string) Item {
	return Item{BookKeyAttr: &types.AttributeValueMemberS{Value: id}}
}

func bookToItem(book domain.Book) (Item, error) {
	item, err := attributevalue.MarshalMap(bookRecord{
		ID:          book.ID,
		Name:        book.Name,
		Author:      book.Author,
		SeriesName:  book.SeriesName,
		SeriesOrder: book.SeriesOrder,
		Created:     book.Created,
		SizeBytes:   book.SizeBytes,
		BlobURL:     book.BlobURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal book %s: %w", book.ID, err)
	}

	if book.CoverImageURL != nil {
		if *book.CoverImageURL == "" {
			item[string(domain.FieldCoverImageURL)] = &types.AttributeValueMemberNULL{Value: true}
		} else {
			item[string(domain.FieldCoverImageURL)] = &types.AttributeValueMemberS{Value: string(*book.CoverImageURL)}
		}
	}
	return item, nil
}

func bookFromItem(item Item) (*domain.Book, error) {
	var rec bookRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}

	book := &domain.Book{
		ID:          rec.ID,
		Name:        rec.Name,
		Author:      rec.Author,
		SeriesName:  rec.SeriesName,
		SeriesOrder: rec.SeriesOrder,
		Created:     rec.Created,
		SizeBytes:   rec.SizeBytes,
		BlobURL:     rec.BlobURL,
	}

	switch v := item[string(domain.FieldCoverImageURL)].(type) {
	case *types.AttributeValueMemberS:
		book.CoverImageURL = domain.KnownCover(v.Value)
	case *types.AttributeValueMemberNULL:
		book.CoverImageURL = domain.KnownCover("")
	}
	return book, nil
}

// Get retrieves one book by id
func (r *BookRepository) Get(ctx context.Context, id string) (*domain.Book, error) {
	item, err := r.table.Get(ctx, bookKey(id))
	if err != nil {
		return nil, err
	}
	return bookFromItem(item)
}

// All streams every book. A record that cannot be decoded is logged and
// skipped rather than failing the whole listing.
func (r *BookRepository) All(ctx context.Context) iter.Seq2[domain.Book, error] {
	return func(yield func(domain.Book, error) bool) {
		for item, err := range r.table.Scan(ctx, nil) {
			if err != nil {
				yield(domain.Book{}, err)
				return
			}
			book, err := bookFromItem(item)
			if err != nil {
				r.logger.Warn("Skipping malformed book record", zap.Error(err))
				continue
			}
			if !yield(*book, nil) {
				return
			}
		}
	}
}

// List returns every book
func (r *BookRepository) List(ctx context.Context) ([]domain.Book, error) {
	return Collect(r.All(ctx))
}

// Put writes a full record unconditionally
func (r *BookRepository) Put(ctx context.Context, book domain.Book) error {
	item, err := bookToItem(book)
	if err != nil {
		return err
	}
	return r.table.Put(ctx, item, nil)
}

// Create writes a record only if the id is unused
func (r *BookRepository) Create(ctx context.Context, book domain.Book) error {
	item, err := bookToItem(book)
	if err != nil {
		return err
	}
	cond := expression.Name(BookKeyAttr).AttributeNotExists()
	if err := r.table.Put(ctx, item, &cond); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update applies fields to an existing book and returns the stored result
func (r *BookRepository) Update(ctx context.Context, id string, fields map[domain.Field]any) (*domain.Book, error) {
	desc, err := BuildUpdate(fields, true)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Updating book",
		zap.String("book_id", id),
		zap.Any("assigned", desc.Assigned),
		zap.Any("removed", desc.Removed),
	)

	item, err := r.table.ConditionalUpdate(ctx, bookKey(id), desc, true)
	if err != nil {
		return nil, err
	}
	return bookFromItem(item)
}

// Delete removes an existing book
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	return r.table.ConditionalDelete(ctx, bookKey(id))
}
