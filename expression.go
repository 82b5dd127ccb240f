package dynashadow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Placeholders reserved by the query builder.
const (
	placeholderScope      = "#sk"
	placeholderScopeValue = ":sk"
	placeholderGenericKey = "#gk"
	placeholderKey        = "#key"
)

// UpdateExpression is a SET expression with its attribute names and values.
type UpdateExpression struct {
	Expression string
	Names      map[string]string
	Values     Item
}

// KeyCondition narrows a query on the generic key. The expression refers to
// the generic key as #key, for example "#key = :key" or
// "#key between :start and :end". Values are compared against gk, so they are
// JSON-encoded before they are sent.
type KeyCondition struct {
	Expression string
	Values     map[string]Value
}

// Filter is a raw filter expression. Names and values are passed to the store
// as they are.
type Filter struct {
	Expression string
	Names      map[string]string
	Values     map[string]Value
}

// QueryParams describes a query against the entity.
type QueryParams struct {
	Index            string                      // logical index to query; empty for main items
	KeyCondition     *KeyCondition               // optional condition on the generic key
	Filter           *Filter                     // optional raw filter
	FilterCondition  expression.ConditionBuilder // optional filter built with the expression package
	Limit            int32                       // page size, defaults to 100
	Offset           string                      // cursor returned by a previous page
	SortDescending   bool                        // scan direction (default: false)
	UnwrapIndexItems bool                        // replace index results with their main items
}

// QueryExpression holds the expressions of a query request.
type QueryExpression struct {
	KeyCondition     string
	Filter           string
	Names            map[string]string
	Values           Item
	Limit            int32
	ScanIndexForward bool
}

// expressionBuilder builds update and query expressions for an entity.
type expressionBuilder struct {
	identityField string
	gsik          string
}

// BuildUpdate returns a single SET clause assigning every field of patch
// except the identity, in patch order. The gsik field is written to gk as JSON.
func (b expressionBuilder) BuildUpdate(patch *Record) (UpdateExpression, error) {
	fields := patch.Fields()

	type assignment struct {
		name, value string
		field       Field
	}

	var (
		assignments = make([]assignment, 0, len(fields))
		used        = make(map[string]struct{}, len(fields))
		unsafe      []int
	)

	for _, f := range fields {
		if f.Name == "" {
			return UpdateExpression{}, validationErrorf("", "field names can't be empty")
		}
		if f.Name == b.identityField {
			continue
		}
		if isReserved(f.Name) {
			return UpdateExpression{}, validationErrorf(f.Name, "%q is a reserved attribute name", f.Name)
		}

		a := assignment{field: f}
		switch {
		case f.Name == b.gsik && placeholderSafe(f.Name):
			a.name, a.value = placeholderGenericKey, ":"+f.Name
		case placeholderSafe(f.Name):
			a.name, a.value = "#"+f.Name, ":"+f.Name
		default:
			unsafe = append(unsafe, len(assignments))
		}
		if a.name != "" {
			used[a.name] = struct{}{}
			used[a.value] = struct{}{}
		}
		assignments = append(assignments, a)
	}

	if len(assignments) == 0 {
		return UpdateExpression{}, validationErrorf("", "nothing to update besides %s", b.identityField)
	}

	// Positional placeholders for names that cannot appear in an expression.
	next := 0
	for _, i := range unsafe {
		for {
			suffix := "f" + strconv.Itoa(next)
			next++
			if _, taken := used["#"+suffix]; taken {
				continue
			}
			if _, taken := used[":"+suffix]; taken {
				continue
			}
			assignments[i].name, assignments[i].value = "#"+suffix, ":"+suffix
			if assignments[i].field.Name == b.gsik {
				assignments[i].name = placeholderGenericKey
			}
			used[assignments[i].name] = struct{}{}
			used[assignments[i].value] = struct{}{}
			break
		}
	}

	var (
		clauses = make([]string, len(assignments))
		names   = make(map[string]string, len(assignments))
		values  = make(Item, len(assignments))
	)
	for i, a := range assignments {
		clauses[i] = a.name + " = " + a.value
		if a.field.Name == b.gsik {
			gk, err := encodeValue(a.field.Value)
			if err != nil {
				return UpdateExpression{}, err
			}
			names[a.name] = AttributeNameGenericKey
			values[a.value] = &types.AttributeValueMemberS{Value: gk}
			continue
		}
		names[a.name] = a.field.Name
		values[a.value] = a.field.Value.AttributeValue()
	}

	return UpdateExpression{
		Expression: "SET " + strings.Join(clauses, ", "),
		Names:      names,
		Values:     values,
	}, nil
}

// BuildQuery returns the expressions of a query on scope. The scope condition
// always comes first; the key condition and filters are merged after it.
func (b expressionBuilder) BuildQuery(scope string, params QueryParams) (QueryExpression, error) {
	q := QueryExpression{
		KeyCondition: placeholderScope + " = " + placeholderScopeValue,
		Names:        map[string]string{placeholderScope: AttributeNameScope},
		Values: Item{
			placeholderScopeValue: &types.AttributeValueMemberS{Value: scope},
		},
		Limit:            params.Limit,
		ScanIndexForward: !params.SortDescending,
	}
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}

	if kc := params.KeyCondition; kc != nil && kc.Expression != "" {
		q.KeyCondition += " and " + kc.Expression
		q.Names[placeholderKey] = AttributeNameGenericKey
		for name, v := range kc.Values {
			gk, err := encodeValue(v)
			if err != nil {
				return QueryExpression{}, err
			}
			if err := q.addValue("keyCondition", name, &types.AttributeValueMemberS{Value: gk}); err != nil {
				return QueryExpression{}, err
			}
		}
	}

	hasFilter := params.Filter != nil && params.Filter.Expression != ""
	if hasFilter && params.FilterCondition.IsSet() {
		return QueryExpression{}, validationErrorf("filter", "a raw filter and a filter condition cannot be combined")
	}

	if hasFilter {
		f := params.Filter
		q.Filter = f.Expression
		for placeholder, name := range f.Names {
			if err := q.addName("filter", placeholder, name); err != nil {
				return QueryExpression{}, err
			}
		}
		for placeholder, v := range f.Values {
			if err := q.addValue("filter", placeholder, v.AttributeValue()); err != nil {
				return QueryExpression{}, err
			}
		}
	}

	if params.FilterCondition.IsSet() {
		expr, err := expression.NewBuilder().WithFilter(params.FilterCondition).Build()
		if err != nil {
			return QueryExpression{}, validationErrorf("filter", "failed to build filter condition: %v", err)
		}
		q.Filter = aws.ToString(expr.Filter())
		for placeholder, name := range expr.Names() {
			if err := q.addName("filter", placeholder, name); err != nil {
				return QueryExpression{}, err
			}
		}
		for placeholder, v := range expr.Values() {
			if err := q.addValue("filter", placeholder, v); err != nil {
				return QueryExpression{}, err
			}
		}
	}

	return q, nil
}

func (q *QueryExpression) addName(field, placeholder, name string) error {
	if !strings.HasPrefix(placeholder, "#") || len(placeholder) < 2 {
		return validationErrorf(field, "attribute name placeholder %q must start with '#'", placeholder)
	}
	if _, taken := q.Names[placeholder]; taken {
		return validationErrorf(field, "attribute name placeholder %q is already in use", placeholder)
	}
	q.Names[placeholder] = name
	return nil
}

func (q *QueryExpression) addValue(field, placeholder string, v types.AttributeValue) error {
	if !strings.HasPrefix(placeholder, ":") || len(placeholder) < 2 {
		return validationErrorf(field, "attribute value placeholder %q must start with ':'", placeholder)
	}
	if _, taken := q.Values[placeholder]; taken {
		return validationErrorf(field, "attribute value placeholder %q is already in use", placeholder)
	}
	q.Values[placeholder] = v
	return nil
}

func (q QueryExpression) String() string {
	if q.Filter == "" {
		return q.KeyCondition
	}
	return fmt.Sprintf("%s filter %s", q.KeyCondition, q.Filter)
}
