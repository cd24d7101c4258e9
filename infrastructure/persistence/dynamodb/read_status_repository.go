package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/heinscr/books-library/application/ports"
	"github.com/heinscr/books-library/domain"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	userIDAttr = "userId"
	bookIDAttr = "bookId"
)

// ReadStatusRepository implements ports.ReadStatusRepository over the
// UserBooks table (partition userId, sort bookId).
type ReadStatusRepository struct {
	table  *Table
	logger *zap.Logger
}

// Compile-time interface check
var _ ports.ReadStatusRepository = (*ReadStatusRepository)(nil)

// NewReadStatusRepository creates a repository over tableName
func NewReadStatusRepository(client DBClient, tableName string, logger *zap.Logger) *ReadStatusRepository {
	return &ReadStatusRepository{
		table:  NewTable(client, tableName, userIDAttr, logger),
		logger: logger,
	}
}

func statusKey(userID, bookID string) Item {
	return Item{
		userIDAttr: &types.AttributeValueMemberS{Value: userID},
		bookIDAttr: &types.AttributeValueMemberS{Value: bookID},
	}
}

// Get returns the user's read flag; an absent row is unread
func (r *ReadStatusRepository) Get(ctx context.Context, userID, bookID string) (bool, error) {
	item, err := r.table.Get(ctx, statusKey(userID, bookID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var status domain.UserBookStatus
	if err := attributevalue.UnmarshalMap(item, &status); err != nil {
		return false, fmt.Errorf("unmarshal read status: %w", err)
	}
	return status.Read, nil
}

// ListForUser returns the user's read flags keyed by book id
func (r *ReadStatusRepository) ListForUser(ctx context.Context, userID string) (map[string]bool, error) {
	keyCond := expression.Key(userIDAttr).Equal(expression.Value(userID))

	statuses := make(map[string]bool)
	for item, err := range r.table.Query(ctx, keyCond) {
		if err != nil {
			return nil, err
		}
		var status domain.UserBookStatus
		if err := attributevalue.UnmarshalMap(item, &status); err != nil {
			r.logger.Warn("Skipping malformed read status", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		statuses[status.BookID] = status.Read
	}
	return statuses, nil
}

// Put replaces the user's row for the book
func (r *ReadStatusRepository) Put(ctx context.Context, status domain.UserBookStatus) error {
	item, err := attributevalue.MarshalMap(status)
	if err != nil {
		return fmt.Errorf("marshal read status: %w", err)
	}
	return r.table.Put(ctx, item, nil)
}

// DeleteForBook removes every user's row for bookID. The table has no
// index on bookId, so this is a filtered full scan.
func (r *ReadStatusRepository) DeleteForBook(ctx context.Context, bookID string) (int, error) {
	filter := expression.Name(bookIDAttr).Equal(expression.Value(bookID))

	var keys []Item
	for item, err := range r.table.Scan(ctx, &filter) {
		if err != nil {
			return 0, err
		}
		userID, ok := item[userIDAttr].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		keys = append(keys, statusKey(userID.Value, bookID))
	}

	if len(keys) == 0 {
		return 0, nil
	}
	return r.table.BatchDelete(ctx, keys)
}
