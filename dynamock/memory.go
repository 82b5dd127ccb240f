package dynamock

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// MemoryClient is an in-memory table with one global secondary index on
// (sk, gk). It understands the requests issued by dynashadow models:
//   - items keyed by the string attributes pk and sk
//   - update expressions made of a single SET clause of plain assignments
//   - index queries with the condition "#sk = :sk", optionally followed by
//     one comparison on gk (=, <, <=, >, >=, between or begins_with)
//
// Filter expressions are rejected. Items without gk are not part of the index.
// Every call is recorded.
type MemoryClient struct {
	// Fail, when set, is consulted before every call; a non-nil error is
	// returned to the caller and the call has no effect.
	Fail func(op string, input any) error

	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	recorder
}

// Ensure MemoryClient implements DynamoDBAPI
var _ DynamoDBAPI = (*MemoryClient)(nil)

// NewMemoryClient returns an empty in-memory table.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{items: make(map[string]map[string]types.AttributeValue)}
}

// FailOnCall returns a Fail hook that fails the n-th call (1-based) of op with err.
func FailOnCall(op string, n int, err error) func(string, any) error {
	var (
		mu    sync.Mutex
		count int
	)
	return func(called string, _ any) error {
		if called != op {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == n {
			return err
		}
		return nil
	}
}

// validationException reports a request the store would refuse, with the
// error code DynamoDB uses for it.
func validationException(format string, args ...any) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: fmt.Sprintf(format, args...),
		Fault:   smithy.FaultClient,
	}
}

func (m *MemoryClient) begin(op string, input any) error {
	m.record(op, input)
	if m.Fail != nil {
		if err := m.Fail(op, input); err != nil {
			return err
		}
	}
	m.mu.Lock()
	if m.items == nil {
		m.items = make(map[string]map[string]types.AttributeValue)
	}
	return nil
}

func primaryKey(item map[string]types.AttributeValue) (string, error) {
	pk, ok := item["pk"].(*types.AttributeValueMemberS)
	if !ok || pk.Value == "" {
		return "", validationException("missing string key attribute pk")
	}
	sk, ok := item["sk"].(*types.AttributeValueMemberS)
	if !ok || sk.Value == "" {
		return "", validationException("missing string key attribute sk")
	}
	return pk.Value + "\x00" + sk.Value, nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// PutItem stores an item, replacing any item with the same key.
func (m *MemoryClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := m.begin(OpPut, params); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	key, err := primaryKey(params.Item)
	if err != nil {
		return nil, err
	}
	m.items[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem returns the item with the given key, if any.
func (m *MemoryClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if err := m.begin(OpGet, params); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	key, err := primaryKey(params.Key)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.GetItemOutput{}
	if item, ok := m.items[key]; ok {
		out.Item = copyItem(item)
	}
	return out, nil
}

// DeleteItem removes the item with the given key. Missing items are ignored.
func (m *MemoryClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if err := m.begin(OpDelete, params); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	key, err := primaryKey(params.Key)
	if err != nil {
		return nil, err
	}
	delete(m.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// UpdateItem applies a SET expression, creating the item when it is missing.
func (m *MemoryClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if err := m.begin(OpUpdate, params); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	key, err := primaryKey(params.Key)
	if err != nil {
		return nil, err
	}

	expr := strings.TrimSpace(aws.ToString(params.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, validationException("unsupported update expression %q", expr)
	}

	updated := copyItem(params.Key)
	if item, ok := m.items[key]; ok {
		updated = copyItem(item)
	}

	for _, clause := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		lhs, rhs, ok := strings.Cut(clause, "=")
		if !ok {
			return nil, validationException("unsupported assignment %q", clause)
		}
		name, err := resolveName(strings.TrimSpace(lhs), params.ExpressionAttributeNames)
		if err != nil {
			return nil, err
		}
		if name == "pk" || name == "sk" {
			return nil, validationException("cannot update key attribute %s", name)
		}
		value, err := resolveValue(strings.TrimSpace(rhs), params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		updated[name] = value
	}

	m.items[key] = updated
	return &dynamodb.UpdateItemOutput{}, nil
}

// Query reads the index on (sk, gk).
func (m *MemoryClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if err := m.begin(OpQuery, params); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if aws.ToString(params.FilterExpression) != "" {
		return nil, validationException("filter expressions are not supported")
	}

	cond, err := parseKeyCondition(aws.ToString(params.KeyConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}

	var matches []map[string]types.AttributeValue
	for _, item := range m.items {
		sk, _ := item["sk"].(*types.AttributeValueMemberS)
		gk, ok := item["gk"].(*types.AttributeValueMemberS)
		if !ok || sk == nil || sk.Value != cond.scope {
			continue
		}
		if cond.match(gk.Value) {
			matches = append(matches, item)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return indexLess(matches[i], matches[j])
	})
	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	if !forward {
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}
	}

	start := 0
	if len(params.ExclusiveStartKey) > 0 {
		start = len(matches)
		for i, item := range matches {
			if sameKey(item, params.ExclusiveStartKey) {
				start = i + 1
				break
			}
			if _, hasGK := params.ExclusiveStartKey["gk"]; hasGK && indexLess(params.ExclusiveStartKey, item) == forward {
				start = i
				break
			}
		}
	}
	matches = matches[start:]

	out := &dynamodb.QueryOutput{}
	limit := len(matches)
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
	}
	for _, item := range matches[:limit] {
		out.Items = append(out.Items, copyItem(item))
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = out.Count

	if limit < len(matches) && limit > 0 {
		last := matches[limit-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"pk": last["pk"],
			"sk": last["sk"],
			"gk": last["gk"],
		}
	}
	return out, nil
}

// Items returns a copy of every stored item, ordered by sk then pk.
func (m *MemoryClient) Items() []map[string]types.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]map[string]types.AttributeValue, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, copyItem(item))
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := stringAttr(out[i], "sk"), stringAttr(out[j], "sk")
		if si != sj {
			return si < sj
		}
		return stringAttr(out[i], "pk") < stringAttr(out[j], "pk")
	})
	return out
}

// Item returns the stored item with the given key.
func (m *MemoryClient) Item(pk, sk string) (map[string]types.AttributeValue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[pk+"\x00"+sk]
	if !ok {
		return nil, false
	}
	return copyItem(item), true
}

// Len returns the number of stored items.
func (m *MemoryClient) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func indexLess(a, b map[string]types.AttributeValue) bool {
	ga, gb := stringAttr(a, "gk"), stringAttr(b, "gk")
	if ga != gb {
		return ga < gb
	}
	return stringAttr(a, "pk") < stringAttr(b, "pk")
}

func sameKey(item, key map[string]types.AttributeValue) bool {
	return stringAttr(item, "pk") == stringAttr(key, "pk") && stringAttr(item, "sk") == stringAttr(key, "sk")
}

func resolveName(token string, names map[string]string) (string, error) {
	if !strings.HasPrefix(token, "#") {
		return token, nil
	}
	name, ok := names[token]
	if !ok {
		return "", validationException("undefined attribute name placeholder %s", token)
	}
	return name, nil
}

func resolveValue(token string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	v, ok := values[token]
	if !ok {
		return nil, validationException("undefined attribute value placeholder %s", token)
	}
	return v, nil
}

func resolveString(token string, values map[string]types.AttributeValue) (string, error) {
	v, err := resolveValue(token, values)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case *types.AttributeValueMemberS:
		return t.Value, nil
	case *types.AttributeValueMemberN:
		return t.Value, nil
	}
	return "", validationException("key condition value %s must be a string", token)
}

// keyCondition is a parsed index key condition.
type keyCondition struct {
	scope  string
	op     string // empty when only the scope is given
	values []string
}

func (c keyCondition) match(gk string) bool {
	switch c.op {
	case "":
		return true
	case "=":
		return gk == c.values[0]
	case "<":
		return gk < c.values[0]
	case "<=":
		return gk <= c.values[0]
	case ">":
		return gk > c.values[0]
	case ">=":
		return gk >= c.values[0]
	case "between":
		return gk >= c.values[0] && gk <= c.values[1]
	case "begins_with":
		return strings.HasPrefix(gk, c.values[0])
	}
	return false
}

func parseKeyCondition(expr string, names map[string]string, values map[string]types.AttributeValue) (keyCondition, error) {
	var cond keyCondition

	scopePart, rangePart, _ := strings.Cut(expr, " and ")
	lhs, rhs, ok := strings.Cut(scopePart, "=")
	if !ok {
		return cond, validationException("unsupported key condition %q", expr)
	}
	name, err := resolveName(strings.TrimSpace(lhs), names)
	if err != nil {
		return cond, err
	}
	if name != "sk" {
		return cond, validationException("index hash key must be sk, got %s", name)
	}
	if cond.scope, err = resolveString(strings.TrimSpace(rhs), values); err != nil {
		return cond, err
	}

	rangePart = strings.TrimSpace(rangePart)
	if rangePart == "" {
		return cond, nil
	}

	if strings.HasPrefix(rangePart, "begins_with(") && strings.HasSuffix(rangePart, ")") {
		args := strings.Split(strings.TrimSuffix(strings.TrimPrefix(rangePart, "begins_with("), ")"), ",")
		if len(args) != 2 {
			return cond, validationException("unsupported key condition %q", rangePart)
		}
		if err := checkRangeKey(strings.TrimSpace(args[0]), names); err != nil {
			return cond, err
		}
		v, err := resolveString(strings.TrimSpace(args[1]), values)
		if err != nil {
			return cond, err
		}
		cond.op, cond.values = "begins_with", []string{v}
		return cond, nil
	}

	tokens := strings.Fields(rangePart)
	switch {
	case len(tokens) == 3:
		switch tokens[1] {
		case "=", "<", "<=", ">", ">=":
		default:
			return cond, validationException("unsupported key condition operator %q", tokens[1])
		}
		if err := checkRangeKey(tokens[0], names); err != nil {
			return cond, err
		}
		v, err := resolveString(tokens[2], values)
		if err != nil {
			return cond, err
		}
		cond.op, cond.values = tokens[1], []string{v}
	case len(tokens) == 5 && strings.EqualFold(tokens[1], "between") && strings.EqualFold(tokens[3], "and"):
		if err := checkRangeKey(tokens[0], names); err != nil {
			return cond, err
		}
		lo, err := resolveString(tokens[2], values)
		if err != nil {
			return cond, err
		}
		hi, err := resolveString(tokens[4], values)
		if err != nil {
			return cond, err
		}
		cond.op, cond.values = "between", []string{lo, hi}
	default:
		return cond, validationException("unsupported key condition %q", rangePart)
	}
	return cond, nil
}

func checkRangeKey(token string, names map[string]string) error {
	name, err := resolveName(token, names)
	if err != nil {
		return err
	}
	if name != "gk" {
		return validationException("index range key must be gk, got %s", name)
	}
	return nil
}

// String summarizes the table contents, one item per line.
func (m *MemoryClient) String() string {
	var b strings.Builder
	for i, item := range m.Items() {
		b.WriteString(strconv.Itoa(i))
		b.WriteString(": ")
		b.WriteString(stringAttr(item, "pk"))
		b.WriteString(" ")
		b.WriteString(stringAttr(item, "sk"))
		if gk := stringAttr(item, "gk"); gk != "" {
			b.WriteString(" ")
			b.WriteString(gk)
		}
		b.WriteString("\n")
	}
	return b.String()
}
