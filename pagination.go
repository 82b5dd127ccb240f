package dynashadow

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func init() {
	// Register DynamoDB types with gob
	gob.Register(map[string]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberBOOL{})
}

// Paginator handles pagination by converting last evaluated keys into string
// cursors for clients, and in turn converting client cursors into start keys
// to continue paging of query results.
type Paginator interface {
	// PageCursor generates a string token from the provided start key. Implementors
	// should return an empty token if the start key is nil or empty.
	PageCursor(ctx context.Context, lastkey Item) (string, error)
	// StartKey generates a dynamodb start key from the provided cursor. Implementors
	// should return a nil item if the cursor is an empty string.
	StartKey(ctx context.Context, cursor string) (Item, error)
}

// TokenPaginator implements Paginator without any storage: the cursor is the
// base64 encoding of the JSON form of the key, for example
// base64(`{"pk":"c1"}`).
type TokenPaginator struct{}

// PageCursor implements Paginator.
func (TokenPaginator) PageCursor(_ context.Context, lastkey Item) (string, error) {
	if len(lastkey) == 0 {
		return "", nil
	}

	var native map[string]any
	err := attributevalue.UnmarshalMapWithOptions(lastkey, &native, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return "", &EncodingError{Err: fmt.Errorf("failed to unmarshal last key: %w", err)}
	}

	data, err := marshalJSON(convertNumbers(native))
	if err != nil {
		return "", &EncodingError{Err: fmt.Errorf("failed to encode last key: %w", err)}
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// StartKey implements Paginator.
func (TokenPaginator) StartKey(_ context.Context, cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, &EncodingError{Err: fmt.Errorf("failed to decode cursor: %w", err)}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var native map[string]any
	if err := dec.Decode(&native); err != nil {
		return nil, &EncodingError{Err: fmt.Errorf("failed to decode cursor: %w", err)}
	}
	if len(native) == 0 {
		return nil, encodingErrorf("cursor holds an empty key")
	}

	key, err := attributevalue.MarshalMap(convertNumbers(native))
	if err != nil {
		return nil, &EncodingError{Err: fmt.Errorf("failed to marshal start key: %w", err)}
	}
	return key, nil
}

// convertNumbers swaps number types between the attributevalue and JSON
// forms, so key numbers keep their exact decimal text in both directions.
func convertNumbers(v any) any {
	switch t := v.(type) {
	case attributevalue.Number:
		return json.Number(t)
	case json.Number:
		return attributevalue.Number(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = convertNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = convertNumbers(e)
		}
		return out
	default:
		return v
	}
}

// cursorScope is the entity name of items written by TablePaginator. It is
// reserved and cannot be used as a model entity.
const cursorScope = "__cursor"

// DefaultPaginationTTL is the lifetime of stored cursors when the table sets none.
const DefaultPaginationTTL = 24 * time.Hour

// TablePaginator implements Paginator by storing and retrieving start keys in
// the same table. Cursor items expire after Table.PaginationTTL, or
// DefaultPaginationTTL when it is not set; the table's
// TTL attribute should be set to "expires" so that the store removes them.
type TablePaginator struct {
	table *Table
}

// NewTablePaginator returns a TablePaginator storing cursors through t.Client.
// The paginator reads t on every call; a model built from t rebinds it to the
// model's own snapshot of the table.
func NewTablePaginator(t *Table) *TablePaginator {
	return &TablePaginator{table: t}
}

func (t *TablePaginator) ttl() time.Duration {
	if t.table.PaginationTTL <= 0 {
		return DefaultPaginationTTL
	}
	return t.table.PaginationTTL
}

// pageCursor represents an item in the dynamodb table that stores last
// evaluated key information from query results. Cursor is generated from the
// current time and salt while Key is a gob encoded form of the key.
type pageCursor struct {
	Cursor  string    `dynamodbav:"pk"`
	Scope   string    `dynamodbav:"sk"`
	Key     []byte    `dynamodbav:"key"`
	Expires time.Time `dynamodbav:"expires,unixtime"`
}

func (t *TablePaginator) scope() string {
	delimiter := t.table.KeyDelimiter
	if delimiter == "" {
		delimiter = DefaultKeyDelimiter
	}
	return keyBuilder{tenant: t.table.Tenant, entity: cursorScope, delimiter: delimiter}.Scope("")
}

func (t *TablePaginator) key(cursor string) Item {
	return Item{
		AttributeNamePartition: &types.AttributeValueMemberS{Value: cursor},
		AttributeNameScope:     &types.AttributeValueMemberS{Value: t.scope()},
	}
}

// PageCursor implements Paginator by storing the last evaluated key into the
// dynamodb table. If lastkey is empty, an empty string is returned.
func (t *TablePaginator) PageCursor(ctx context.Context, lastkey Item) (string, error) {
	if len(lastkey) == 0 {
		return "", nil
	}

	cursor, err := generateCursor()
	if err != nil {
		return "", fmt.Errorf("failed to generate cursor: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lastkey); err != nil {
		return "", &EncodingError{Err: fmt.Errorf("failed to encode last key: %w", err)}
	}

	item, err := attributevalue.MarshalMap(pageCursor{
		Cursor:  cursor,
		Scope:   t.scope(),
		Key:     buf.Bytes(),
		Expires: t.table.now().Add(t.ttl()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal page cursor: %w", err)
	}

	_, err = t.table.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.table.TableName),
		Item:      item,
	})
	if err != nil {
		return "", err
	}
	return cursor, nil
}

// StartKey implements Paginator by reading the cursor item back. Unknown and
// expired cursors are rejected with an EncodingError.
func (t *TablePaginator) StartKey(ctx context.Context, cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	result, err := t.table.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.table.TableName),
		Key:       t.key(cursor),
	})
	if err != nil {
		return nil, err
	}
	if len(result.Item) == 0 {
		return nil, encodingErrorf("cursor %q not found", cursor)
	}

	var pc pageCursor
	if err := attributevalue.UnmarshalMap(result.Item, &pc); err != nil {
		return nil, &EncodingError{Err: fmt.Errorf("failed to unmarshal page cursor: %w", err)}
	}
	if !pc.Expires.IsZero() && !t.table.now().Before(pc.Expires) {
		return nil, encodingErrorf("cursor %q has expired", cursor)
	}

	var key Item
	if err := gob.NewDecoder(bytes.NewReader(pc.Key)).Decode(&key); err != nil {
		return nil, &EncodingError{Err: fmt.Errorf("failed to decode last key: %w", err)}
	}
	return key, nil
}

// scopeStartKey returns key with its sort key set to scope when the key does
// not carry one, so resumed queries stay in the same tenant, entity and index.
func scopeStartKey(key Item, scope string) Item {
	if len(key) == 0 {
		return key
	}
	if _, ok := key[AttributeNameScope]; ok {
		return key
	}
	scoped := make(Item, len(key)+1)
	for k, v := range key {
		scoped[k] = v
	}
	scoped[AttributeNameScope] = &types.AttributeValueMemberS{Value: scope}
	return scoped
}

// generateCursor creates a unique cursor string using current time and random bytes
func generateCursor() (string, error) {
	timestamp := time.Now().UnixNano()

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	combined := fmt.Sprintf("%d_%s", timestamp, base64.URLEncoding.EncodeToString(randomBytes))
	return base64.URLEncoding.EncodeToString([]byte(combined)), nil
}
