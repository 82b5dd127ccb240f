package dynashadow

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// indexTracker keeps the shadow items of a model in step with its main items.
// Writes are issued one at a time in index declaration order and are not
// rolled back: the first failure stops the fan-out and is returned as is.
type indexTracker struct {
	m *Model
}

func (t indexTracker) enabled() bool {
	return t.m.config.TrackIndexes && len(t.m.config.Indexes) > 0
}

// shadowItems returns one put request per declared index whose field is
// defined on rec.
func (t indexTracker) shadowItems(rec *Record) ([]*dynamodb.PutItemInput, error) {
	var puts []*dynamodb.PutItemInput
	for _, idx := range t.m.config.Indexes {
		if !rec.Has(idx.Name) {
			continue
		}
		item, err := t.m.codec.ToShadowItem(rec, idx)
		if err != nil {
			return nil, err
		}
		puts = append(puts, &dynamodb.PutItemInput{
			TableName: aws.String(t.m.table.TableName),
			Item:      item,
		})
	}
	return puts, nil
}

// touches reports whether patch changes any declared index field.
func (t indexTracker) touches(patch *Record) bool {
	for _, idx := range t.m.config.Indexes {
		if patch.Has(idx.Name) {
			return true
		}
	}
	return false
}

func (t indexTracker) create(ctx context.Context, rec *Record) error {
	puts, err := t.shadowItems(rec)
	if err != nil {
		return err
	}
	return t.put(ctx, puts)
}

// refresh reads the main item, overlays patch and rewrites the shadow item of
// every index whose field is defined on the merged record.
func (t indexTracker) refresh(ctx context.Context, patch *Record) error {
	id, err := t.m.codec.identity(patch)
	if err != nil {
		return err
	}

	current, err := t.m.Get(ctx, id)
	if err != nil {
		t.warn("get", id, err)
		return err
	}

	merged := current.Clone().Merge(patch)
	puts, err := t.shadowItems(merged)
	if err != nil {
		return err
	}
	return t.put(ctx, puts)
}

// delete removes the shadow item of every declared index, whether or not it
// exists.
func (t indexTracker) delete(ctx context.Context, id string) error {
	for _, idx := range t.m.config.Indexes {
		input, err := t.m.MarshalDelete(id, WithIndex(idx.Name))
		if err != nil {
			return err
		}
		t.m.debug("delete", input.Key)
		if _, err := t.m.table.Client.DeleteItem(ctx, input); err != nil {
			t.warn("delete", id, err, zap.String("index", idx.Name))
			return err
		}
	}
	return nil
}

func (t indexTracker) put(ctx context.Context, puts []*dynamodb.PutItemInput) error {
	for _, input := range puts {
		t.m.debug("put", input.Item)
		if _, err := t.m.table.Client.PutItem(ctx, input); err != nil {
			t.warn("put", stringAttribute(input.Item, AttributeNamePartition), err,
				zap.String("sk", stringAttribute(input.Item, AttributeNameScope)))
			return err
		}
	}
	return nil
}

func (t indexTracker) warn(op, id string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("op", op),
		zap.String("id", id),
		zap.String("code", ErrorCode(err)),
		zap.Error(err),
	)
	t.m.log.Warn("index tracking stopped", fields...)
}
