package dynashadow

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// QueryResult is a page of query results.
type QueryResult struct {
	Items  []*Record // decoded records, in index order
	Count  int       // number of items reported by the store
	Offset string    // cursor of the next page; empty on the last page
}

// MarshalQuery marshals params into a query request on the physical index.
// A non-empty offset is decoded with the table paginator; a decoded key without
// a sort key is scoped to the queried entity and index.
func (m *Model) MarshalQuery(ctx context.Context, params QueryParams) (*dynamodb.QueryInput, error) {
	if err := m.checkIndex(params.Index); err != nil {
		return nil, err
	}

	scope := m.keys.Scope(params.Index)
	expr, err := m.exprs.BuildQuery(scope, params)
	if err != nil {
		return nil, err
	}

	startKey, err := m.table.Paginator.StartKey(ctx, params.Offset)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(m.table.TableName),
		IndexName:                 aws.String(m.table.IndexName),
		KeyConditionExpression:    aws.String(expr.KeyCondition),
		ExpressionAttributeNames:  expr.Names,
		ExpressionAttributeValues: expr.Values,
		Limit:                     aws.Int32(expr.Limit),
		ExclusiveStartKey:         scopeStartKey(startKey, scope),
	}
	if expr.Filter != "" {
		input.FilterExpression = aws.String(expr.Filter)
	}
	if !expr.ScanIndexForward {
		input.ScanIndexForward = aws.Bool(false)
	}
	return input, nil
}

// Query runs a query against the main items or, when params.Index is set, the
// shadow items of that index. With UnwrapIndexItems, each index result is
// replaced by its main item; results whose main item no longer exists are
// returned as they are.
func (m *Model) Query(ctx context.Context, params QueryParams) (*QueryResult, error) {
	input, err := m.MarshalQuery(ctx, params)
	if err != nil {
		return nil, err
	}

	if ce := m.log.Check(zap.DebugLevel, "dynamodb request"); ce != nil {
		ce.Write(zap.String("op", "query"), zap.String("sk", m.keys.Scope(params.Index)),
			zap.String("expression", aws.ToString(input.KeyConditionExpression)))
	}

	out, err := m.table.Client.Query(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Items: make([]*Record, 0, len(out.Items)),
		Count: int(out.Count),
	}
	for i, item := range out.Items {
		rec, err := m.codec.FromItem(item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode item %d: %w", i, err)
		}
		result.Items = append(result.Items, rec)
	}

	if params.UnwrapIndexItems && params.Index != "" {
		if err := m.unwrap(ctx, result.Items); err != nil {
			return nil, err
		}
	}

	if len(out.LastEvaluatedKey) > 0 {
		result.Offset, err = m.table.Paginator.PageCursor(ctx, out.LastEvaluatedKey)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// unwrap replaces each record with its main item, in place.
func (m *Model) unwrap(ctx context.Context, items []*Record) error {
	for i, rec := range items {
		id, err := m.codec.identity(rec)
		if err != nil {
			return err
		}
		main, err := m.Get(ctx, id)
		if err != nil {
			return err
		}
		if main != nil {
			items[i] = main
		}
	}
	return nil
}
