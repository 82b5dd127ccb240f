package dynashadow

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// itemCodec converts between records and physical items.
type itemCodec struct {
	keys keyBuilder
	gsik string
}

// identity returns the identity carried by rec.
func (c itemCodec) identity(rec *Record) (string, error) {
	field := c.keys.identityField
	v, ok := rec.Get(field)
	if !ok || v.IsNull() {
		return "", c.keys.missingIdentity()
	}
	id, ok := v.AsString()
	if !ok {
		return "", validationErrorf(field, "the value of %s must be a string, got %s", field, v.Kind())
	}
	if id == "" {
		return "", c.keys.missingIdentity()
	}
	return id, nil
}

// ToItem returns the full item for rec. In the default scope the generic key
// holds the gsik field; in an explicit index scope it holds the index field.
// All other fields are stored as attributes of their own.
func (c itemCodec) ToItem(rec *Record, index string) (Item, error) {
	id, err := c.identity(rec)
	if err != nil {
		return nil, err
	}
	item, err := c.keys.Key(id, index)
	if err != nil {
		return nil, err
	}

	variant := c.gsik
	if index != "" {
		variant = index
	}
	if variant != "" {
		item[AttributeNameVariant] = &types.AttributeValueMemberS{Value: variant}
		if v, ok := rec.Get(variant); ok {
			gk, err := encodeValue(v)
			if err != nil {
				return nil, err
			}
			item[AttributeNameGenericKey] = &types.AttributeValueMemberS{Value: gk}
		}
	}

	for _, f := range rec.Fields() {
		if f.Name == "" {
			return nil, validationErrorf("", "field names can't be empty")
		}
		if f.Name == c.keys.identityField || f.Name == variant {
			continue
		}
		if isReserved(f.Name) {
			return nil, validationErrorf(f.Name, "%q is a reserved attribute name", f.Name)
		}
		item[f.Name] = f.Value.AttributeValue()
	}
	return item, nil
}

// ToShadowItem returns the shadow item of rec for idx. The caller ensures the
// index field is defined on rec.
func (c itemCodec) ToShadowItem(rec *Record, idx Index) (Item, error) {
	id, err := c.identity(rec)
	if err != nil {
		return nil, err
	}
	item, err := c.keys.Key(id, idx.Name)
	if err != nil {
		return nil, err
	}

	v, ok := rec.Get(idx.Name)
	if !ok {
		return nil, fmt.Errorf("record has no value for index %q", idx.Name)
	}
	gk, err := encodeValue(v)
	if err != nil {
		return nil, err
	}
	item[AttributeNameGenericKey] = &types.AttributeValueMemberS{Value: gk}
	item[AttributeNameVariant] = &types.AttributeValueMemberS{Value: idx.Name}

	projected := NewRecord()
	for _, name := range idx.Projections {
		if pv, ok := rec.Get(name); ok {
			projected.Set(name, pv)
		}
	}
	if projected.Len() > 0 {
		data, err := projected.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode projections of %q: %w", idx.Name, err)
		}
		item[AttributeNameProjection] = &types.AttributeValueMemberS{Value: string(data)}
	}
	return item, nil
}

// FromItem decodes a physical item into a record: identity first, then the
// field named by __v, then the remaining attributes by name, then projections.
func (c itemCodec) FromItem(item Item) (*Record, error) {
	rec := NewRecord()

	if pk, ok := item[AttributeNamePartition].(*types.AttributeValueMemberS); ok {
		rec.Set(c.keys.identityField, String(pk.Value))
	}

	if variant, ok := item[AttributeNameVariant].(*types.AttributeValueMemberS); ok {
		if gk, ok := item[AttributeNameGenericKey].(*types.AttributeValueMemberS); ok {
			rec.Set(variant.Value, decodeValue(gk.Value))
		}
	}

	names := make([]string, 0, len(item))
	for name := range item {
		if isReserved(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := ValueFromAttribute(item[name])
		if err != nil {
			return nil, &EncodingError{Err: fmt.Errorf("attribute %q: %w", name, err)}
		}
		rec.Set(name, v)
	}

	if p, ok := item[AttributeNameProjection]; ok {
		s, ok := p.(*types.AttributeValueMemberS)
		if !ok {
			return nil, encodingErrorf("attribute %q is not a string", AttributeNameProjection)
		}
		projected := NewRecord()
		if err := json.Unmarshal([]byte(s.Value), projected); err != nil {
			return nil, &EncodingError{Err: fmt.Errorf("attribute %q: %w", AttributeNameProjection, err)}
		}
		rec.Merge(projected)
	}
	return rec, nil
}

// encodeValue returns the JSON text stored in gk.
func encodeValue(v Value) (string, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(data), nil
}

// decodeValue reverses encodeValue. Text that is not a JSON scalar is returned
// as a plain string.
func decodeValue(text string) Value {
	var v Value
	if err := v.UnmarshalJSON([]byte(text)); err != nil {
		return String(text)
	}
	return v
}
