package dynashadow

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"go.uber.org/zap"
)

// Model reads and writes the records of one entity type. A Model holds only
// read-only configuration and is safe for concurrent use.
type Model struct {
	table   Table
	config  ModelConfig
	keys    keyBuilder
	codec   itemCodec
	exprs   expressionBuilder
	tracker indexTracker
	log     *zap.Logger
}

// OperationOptions contains per-call options of model operations.
type OperationOptions struct {
	Index string // scope of the call; empty for the main item
}

// WithIndex scopes an operation to the items of the named index instead of the
// main items.
func WithIndex(name string) func(*OperationOptions) {
	return func(o *OperationOptions) { o.Index = name }
}

func (m *Model) options(opts []func(*OperationOptions)) (OperationOptions, error) {
	var o OperationOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := m.checkIndex(o.Index); err != nil {
		return o, err
	}
	return o, nil
}

func (m *Model) checkIndex(index string) error {
	if index != "" && strings.Contains(index, m.table.KeyDelimiter) {
		return validationErrorf("index", "index %q contains the key delimiter %q", index, m.table.KeyDelimiter)
	}
	return nil
}

// Config returns the model configuration.
func (m *Model) Config() ModelConfig {
	return m.config
}

// Scope returns the sort key of the model's items in the given index scope.
func (m *Model) Scope(index string) string {
	return m.keys.Scope(index)
}

// MarshalGet marshals a get item request for the item with the given identity.
func (m *Model) MarshalGet(id string, opts ...func(*OperationOptions)) (*dynamodb.GetItemInput, error) {
	o, err := m.options(opts)
	if err != nil {
		return nil, err
	}
	key, err := m.keys.Key(id, o.Index)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName: aws.String(m.table.TableName),
		Key:       key,
	}, nil
}

// MarshalPut marshals rec into a put item request. The record must carry its
// identity.
func (m *Model) MarshalPut(rec *Record, opts ...func(*OperationOptions)) (*dynamodb.PutItemInput, error) {
	o, err := m.options(opts)
	if err != nil {
		return nil, err
	}
	item, err := m.codec.ToItem(rec, o.Index)
	if err != nil {
		return nil, err
	}
	return &dynamodb.PutItemInput{
		TableName: aws.String(m.table.TableName),
		Item:      item,
	}, nil
}

// MarshalUpdate marshals patch into an update item request that sets every
// field of the patch except its identity.
func (m *Model) MarshalUpdate(patch *Record, opts ...func(*OperationOptions)) (*dynamodb.UpdateItemInput, error) {
	o, err := m.options(opts)
	if err != nil {
		return nil, err
	}
	id, err := m.codec.identity(patch)
	if err != nil {
		return nil, err
	}
	key, err := m.keys.Key(id, o.Index)
	if err != nil {
		return nil, err
	}
	expr, err := m.exprs.BuildUpdate(patch)
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(m.table.TableName),
		Key:                       key,
		UpdateExpression:          aws.String(expr.Expression),
		ExpressionAttributeNames:  expr.Names,
		ExpressionAttributeValues: expr.Values,
	}, nil
}

// MarshalDelete marshals a delete item request for the item with the given
// identity.
func (m *Model) MarshalDelete(id string, opts ...func(*OperationOptions)) (*dynamodb.DeleteItemInput, error) {
	o, err := m.options(opts)
	if err != nil {
		return nil, err
	}
	key, err := m.keys.Key(id, o.Index)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(m.table.TableName),
		Key:       key,
	}, nil
}

// Get returns the record with the given identity, or nil when it does not
// exist.
func (m *Model) Get(ctx context.Context, id string, opts ...func(*OperationOptions)) (*Record, error) {
	input, err := m.MarshalGet(id, opts...)
	if err != nil {
		return nil, err
	}

	m.debug("get", input.Key)
	out, err := m.table.Client.GetItem(ctx, input)
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	return m.codec.FromItem(out.Item)
}

// Create writes rec and returns the persisted record. A missing identity is
// generated and placed first. With TrackDates, createdAt and updatedAt are set
// to the same instant. A default-scope create on a tracking model also writes
// one shadow item per defined index field, after the main item.
func (m *Model) Create(ctx context.Context, rec *Record, opts ...func(*OperationOptions)) (*Record, error) {
	o, err := m.options(opts)
	if err != nil {
		return nil, err
	}

	persisted := m.withIdentity(rec)
	if m.config.TrackDates {
		now := m.timestamp()
		persisted.Set(FieldCreatedAt, now)
		persisted.Set(FieldUpdatedAt, now)
	}

	input, err := m.MarshalPut(persisted, opts...)
	if err != nil {
		return nil, err
	}

	m.debug("put", input.Item)
	if _, err := m.table.Client.PutItem(ctx, input); err != nil {
		return nil, err
	}

	if o.Index == "" && m.tracker.enabled() {
		if err := m.tracker.create(ctx, persisted); err != nil {
			return nil, err
		}
	}
	return persisted, nil
}

// Update applies patch to an existing record and returns the applied patch.
// The patch must carry the identity. With TrackDates, updatedAt is added.
// A default-scope update on a tracking model that changes an index field
// reads the main item back and rewrites the affected shadow items.
func (m *Model) Update(ctx context.Context, patch *Record, opts ...func(*OperationOptions)) (*Record, error) {
	o, err := m.options(opts)
	if err != nil {
		return nil, err
	}
	if _, err := m.codec.identity(patch); err != nil {
		return nil, err
	}

	applied := patch.Clone()
	if m.config.TrackDates {
		applied.Set(FieldUpdatedAt, m.timestamp())
	}

	input, err := m.MarshalUpdate(applied, opts...)
	if err != nil {
		return nil, err
	}

	m.debug("update", input.Key)
	if _, err := m.table.Client.UpdateItem(ctx, input); err != nil {
		return nil, err
	}

	if o.Index == "" && m.tracker.enabled() && m.tracker.touches(applied) {
		if err := m.tracker.refresh(ctx, applied); err != nil {
			return nil, err
		}
	}
	return applied, nil
}

// Delete removes the main item with the given identity and, on a tracking
// model, every shadow item the entity may have.
func (m *Model) Delete(ctx context.Context, id string) error {
	input, err := m.MarshalDelete(id)
	if err != nil {
		return err
	}

	m.debug("delete", input.Key)
	if _, err := m.table.Client.DeleteItem(ctx, input); err != nil {
		return err
	}

	if m.tracker.enabled() {
		return m.tracker.delete(ctx, id)
	}
	return nil
}

// withIdentity returns a copy of rec whose identity is set, generating one
// when rec has none. The identity is the first field of the copy.
func (m *Model) withIdentity(rec *Record) *Record {
	field := m.config.IdentityField
	if v, ok := rec.Get(field); ok && !v.IsNull() {
		if s, isString := v.AsString(); !isString || s != "" {
			return rec.Clone()
		}
	}

	out := NewRecord(F(field, String(m.table.NewID())))
	for _, f := range rec.Fields() {
		if f.Name != field {
			out.Set(f.Name, f.Value)
		}
	}
	return out
}

func (m *Model) timestamp() Value {
	return String(strfmt.DateTime(m.table.now().UTC()).String())
}

func (m *Model) debug(op string, item Item) {
	if ce := m.log.Check(zap.DebugLevel, "dynamodb request"); ce != nil {
		ce.Write(zap.String("op", op), zap.String("sk", stringAttribute(item, AttributeNameScope)))
	}
}

func stringAttribute(item Item, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
