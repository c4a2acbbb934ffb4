// Package dynamodb implements store.Store on an Amazon DynamoDB table whose
// partition key is the string attribute taskId. Scans use the table's native
// pagination: Limit bounds the items evaluated, and LastEvaluatedKey is
// returned as the page cursor unchanged.
package dynamodb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	tasktypes "github.com/obsidianstack/taskapi/pkg/types"
	"github.com/obsidianstack/taskapi/server/internal/store"
)

var _ store.Store = (*Store)(nil)

// API is the subset of the DynamoDB client the store calls.
type API interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store implements store.Store backed by DynamoDB.
type Store struct {
	client API
	table  string
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a store on table using client.
func New(client API, table string, opts ...Option) *Store {
	s := &Store{client: client, table: table, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		tasktypes.KeyField: &types.AttributeValueMemberS{Value: id},
	}
}

// Scan performs one native Scan call.
func (s *Store) Scan(ctx context.Context, in store.ScanInput) (store.Page, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(s.table)}
	if in.Limit > 0 {
		input.Limit = aws.Int32(int32(in.Limit))
	}
	if len(in.StartKey) > 0 {
		start, err := toItem(in.StartKey)
		if err != nil {
			return store.Page{}, fmt.Errorf("%w: %v", store.ErrBadCursor, err)
		}
		input.ExclusiveStartKey = start
	}

	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return store.Page{}, fmt.Errorf("dynamodb: scan %s: %w", s.table, err)
	}

	page := store.Page{Items: make([]tasktypes.Task, 0, len(out.Items))}
	for _, item := range out.Items {
		obj, err := fromItem(item)
		if err != nil {
			return store.Page{}, fmt.Errorf("dynamodb: decode item: %w", err)
		}
		page.Items = append(page.Items, tasktypes.Task(obj))
	}
	if len(out.LastEvaluatedKey) > 0 {
		last, err := fromItem(out.LastEvaluatedKey)
		if err != nil {
			return store.Page{}, fmt.Errorf("dynamodb: decode last key: %w", err)
		}
		page.LastKey = tasktypes.Cursor(last)
	}
	s.logger.Debug("dynamodb: scan",
		"table", s.table,
		"count", len(page.Items),
		"scanned", out.ScannedCount,
		"more", page.LastKey != nil,
	)
	return page, nil
}

// Get reads the item stored under id.
func (s *Store) Get(ctx context.Context, id string) (tasktypes.Task, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id),
	})
	if err != nil {
		return nil, false, fmt.Errorf("dynamodb: get %q: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	obj, err := fromItem(out.Item)
	if err != nil {
		return nil, false, fmt.Errorf("dynamodb: decode %q: %w", id, err)
	}
	return tasktypes.Task(obj), true, nil
}

// Put writes the item, replacing any previous one.
func (s *Store) Put(ctx context.Context, t tasktypes.Task) error {
	id, err := store.KeyOf(t)
	if err != nil {
		return err
	}
	item, err := toItem(t)
	if err != nil {
		return fmt.Errorf("dynamodb: encode %q: %w", id, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb: put %q: %w", id, err)
	}
	return nil
}

// Delete removes the item. DynamoDB treats absent keys as success.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id),
	}); err != nil {
		return fmt.Errorf("dynamodb: delete %q: %w", id, err)
	}
	return nil
}
