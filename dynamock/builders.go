package dynamock

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynashadow"
)

// RecordOption is a functional option for configuring records during building.
type RecordOption func(*dynashadow.Record)

// NewRecord creates a record with the given options applied in order.
func NewRecord(opts ...RecordOption) *dynashadow.Record {
	rec := dynashadow.NewRecord()
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// WithID sets the "id" field.
func WithID(id string) RecordOption {
	return WithString(dynashadow.DefaultIdentityField, id)
}

// WithField sets a field to v.
func WithField(name string, v dynashadow.Value) RecordOption {
	return func(r *dynashadow.Record) {
		r.Set(name, v)
	}
}

// WithString sets a string field.
func WithString(name, v string) RecordOption {
	return WithField(name, dynashadow.String(v))
}

// WithInt sets an integer field.
func WithInt(name string, v int64) RecordOption {
	return WithField(name, dynashadow.Int(v))
}

// WithNumber sets a number field.
func WithNumber(name string, v float64) RecordOption {
	return WithField(name, dynashadow.Number(v))
}

// WithBool sets a boolean field.
func WithBool(name string, v bool) RecordOption {
	return WithField(name, dynashadow.Bool(v))
}

// WithNull sets a field to null.
func WithNull(name string) RecordOption {
	return WithField(name, dynashadow.Null())
}

// ItemOption is a functional option for configuring physical items during building.
type ItemOption func(map[string]types.AttributeValue)

// NewItem creates a physical item with the given options applied in order.
// It is meant for describing the exact items a test expects in the table.
func NewItem(opts ...ItemOption) map[string]types.AttributeValue {
	item := make(map[string]types.AttributeValue)
	for _, opt := range opts {
		opt(item)
	}
	return item
}

// WithKey sets the pk and sk attributes.
func WithKey(pk, sk string) ItemOption {
	return func(item map[string]types.AttributeValue) {
		item[dynashadow.AttributeNamePartition] = &types.AttributeValueMemberS{Value: pk}
		item[dynashadow.AttributeNameScope] = &types.AttributeValueMemberS{Value: sk}
	}
}

// WithGenericKey sets __v to field and gk to the JSON encoding of v.
func WithGenericKey(field string, v dynashadow.Value) ItemOption {
	return func(item map[string]types.AttributeValue) {
		item[dynashadow.AttributeNameVariant] = &types.AttributeValueMemberS{Value: field}
		item[dynashadow.AttributeNameGenericKey] = &types.AttributeValueMemberS{Value: v.String()}
	}
}

// WithVariant sets __v without a gk.
func WithVariant(field string) ItemOption {
	return func(item map[string]types.AttributeValue) {
		item[dynashadow.AttributeNameVariant] = &types.AttributeValueMemberS{Value: field}
	}
}

// WithProjection sets __p to the JSON encoding of the given fields.
func WithProjection(fields ...dynashadow.Field) ItemOption {
	return func(item map[string]types.AttributeValue) {
		item[dynashadow.AttributeNameProjection] = &types.AttributeValueMemberS{
			Value: dynashadow.NewRecord(fields...).String(),
		}
	}
}

// WithAttribute sets a plain attribute.
func WithAttribute(name string, v dynashadow.Value) ItemOption {
	return func(item map[string]types.AttributeValue) {
		item[name] = v.AttributeValue()
	}
}
