package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/heinscr/books-library/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ErrConditionFailed is returned by Put when its caller-supplied condition
// does not hold.
var ErrConditionFailed = errors.New("condition check failed")

// Item is a raw DynamoDB record or key
type Item = map[string]types.AttributeValue

const (
	batchWriteSize  = 25
	batchMaxRetries = 3
)

// Table is the metadata-store gateway for one table. Conditional update and
// delete require the record to exist and report domain.ErrNotFound when it
// does not.
type Table struct {
	client       DBClient
	name         string
	partitionKey string
	logger       *zap.Logger
	backoff      func(retry int) time.Duration
}

// NewTable creates a gateway for tableName keyed by partitionKey
func NewTable(client DBClient, tableName, partitionKey string, logger *zap.Logger) *Table {
	return &Table{
		client:       client,
		name:         tableName,
		partitionKey: partitionKey,
		logger:       logger,
		backoff: func(retry int) time.Duration {
			return time.Duration(retry*retry+1) * 100 * time.Millisecond
		},
	}
}

// Get fetches one record by key
func (t *Table) Get(ctx context.Context, key Item) (Item, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get from %s: %w", t.name, err)
	}
	if out.Item == nil {
		return nil, domain.ErrNotFound
	}
	return out.Item, nil
}

// Scan returns a lazy sequence over every record, optionally filtered. Each
// call starts a fresh scan; pages are fetched as the sequence is consumed
// and the first error ends it.
func (t *Table) Scan(ctx context.Context, filter *expression.ConditionBuilder) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		input := &dynamodb.ScanInput{TableName: aws.String(t.name)}
		if filter != nil {
			expr, err := expression.NewBuilder().WithFilter(*filter).Build()
			if err != nil {
				yield(nil, fmt.Errorf("build scan filter: %w", err))
				return
			}
			input.FilterExpression = expr.Filter()
			input.ExpressionAttributeNames = expr.Names()
			input.ExpressionAttributeValues = expr.Values()
		}

		paginator := dynamodb.NewScanPaginator(t.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(nil, fmt.Errorf("scan %s: %w", t.name, err))
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Query returns a lazy sequence over the records matching keyCond
func (t *Table) Query(ctx context.Context, keyCond expression.KeyConditionBuilder) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
		if err != nil {
			yield(nil, fmt.Errorf("build key condition: %w", err))
			return
		}

		paginator := dynamodb.NewQueryPaginator(t.client, &dynamodb.QueryInput{
			TableName:                 aws.String(t.name),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(nil, fmt.Errorf("query %s: %w", t.name, err))
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Put writes a full record. A nil condition makes it an unconditional
// replace.
func (t *Table) Put(ctx context.Context, item Item, cond *expression.ConditionBuilder) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	}
	if cond != nil {
		expr, err := expression.NewBuilder().WithCondition(*cond).Build()
		if err != nil {
			return fmt.Errorf("build put condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := t.client.PutItem(ctx, input); err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("put to %s: %w", t.name, err)
	}
	return nil
}

// ConditionalUpdate applies desc to an existing record. With returnNew the
// full record after the update is returned.
func (t *Table) ConditionalUpdate(ctx context.Context, key Item, desc UpdateDescriptor, returnNew bool) (Item, error) {
	expr, err := desc.Expression(t.partitionKey)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueNone,
	}
	if returnNew {
		input.ReturnValues = types.ReturnValueAllNew
	}

	out, err := t.client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionFailure(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update %s: %w", t.name, err)
	}
	return out.Attributes, nil
}

// ConditionalDelete removes an existing record
func (t *Table) ConditionalDelete(ctx context.Context, key Item) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(t.partitionKey).AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("build delete condition: %w", err)
	}

	_, err = t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(t.name),
		Key:                      key,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if isConditionFailure(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete from %s: %w", t.name, err)
	}
	return nil
}

// BatchDelete removes keys in groups of 25, retrying unprocessed requests
// with backoff. It returns the number of keys deleted.
func (t *Table) BatchDelete(ctx context.Context, keys []Item) (int, error) {
	deleted := 0
	for i := 0; i < len(keys); i += batchWriteSize {
		end := min(i+batchWriteSize, len(keys))
		batch := keys[i:end]

		pending := make([]types.WriteRequest, 0, len(batch))
		for _, key := range batch {
			pending = append(pending, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
		}

		for retry := 0; retry < batchMaxRetries && len(pending) > 0; retry++ {
			if retry > 0 {
				select {
				case <-ctx.Done():
					return deleted, ctx.Err()
				case <-time.After(t.backoff(retry)):
				}
			}

			out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{t.name: pending},
			})
			if err != nil {
				t.logger.Warn("Batch delete failed, retrying",
					zap.String("table", t.name),
					zap.Error(err),
					zap.Int("retry", retry+1),
				)
				continue
			}
			pending = out.UnprocessedItems[t.name]
		}

		if len(pending) > 0 {
			return deleted + len(batch) - len(pending), fmt.Errorf("failed to delete %d items from %s after %d attempts", len(pending), t.name, batchMaxRetries)
		}
		deleted += len(batch)
	}
	return deleted, nil
}

// Collect drains a sequence into a slice, stopping at the first error
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
