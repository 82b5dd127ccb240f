// Package assert provides fluent assertion utilities for testing DynamoDB items
// and dynashadow records. It makes tests more readable and maintainable by
// providing expressive assertion methods.
//
// # Usage
//
//	import "github.com/nisimpson/dynashadow/dynamock/assert"
//
//	// Assert on the physical items of a table
//	assert.Items(t, client.Items()).
//		HasCount(3).
//		ContainsKey("u1", "acme|user").
//		ContainsKey("u1", "acme|user|email")
//
//	// Assert on a single item
//	assert.DynamoDBItem(t, item).
//		HasGenericKey("email", dynashadow.String("ann@mail.com")).
//		HasProjection(dynashadow.F("document", dynashadow.String("123")))
//
//	// Assert on decoded records
//	assert.Record(t, rec).
//		HasField("name", dynashadow.String("Ann")).
//		HasFieldOrder("id", "name")
package assert

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynashadow"
)

// ItemsAssertion provides fluent assertions for DynamoDB items.
type ItemsAssertion struct {
	t     testing.TB
	items []map[string]types.AttributeValue
}

// Items creates a new ItemsAssertion for the given DynamoDB items.
func Items(t testing.TB, items []map[string]types.AttributeValue) *ItemsAssertion {
	return &ItemsAssertion{
		t:     t,
		items: items,
	}
}

// HasCount asserts that the items collection has the expected count.
func (a *ItemsAssertion) HasCount(expected int) *ItemsAssertion {
	a.t.Helper()
	if len(a.items) != expected {
		a.t.Errorf("expected %d items, got %d", expected, len(a.items))
	}
	return a
}

// IsEmpty asserts that the items collection is empty.
func (a *ItemsAssertion) IsEmpty() *ItemsAssertion {
	a.t.Helper()
	return a.HasCount(0)
}

// IsNotEmpty asserts that the items collection is not empty.
func (a *ItemsAssertion) IsNotEmpty() *ItemsAssertion {
	a.t.Helper()
	if len(a.items) == 0 {
		a.t.Error("expected items to not be empty")
	}
	return a
}

// ContainsKey asserts that the items contain an item with the given key.
func (a *ItemsAssertion) ContainsKey(pk, sk string) *ItemsAssertion {
	a.t.Helper()
	if a.find(pk, sk) == nil {
		a.t.Errorf("expected to find item %s/%s in items", pk, sk)
	}
	return a
}

// LacksKey asserts that no item has the given key.
func (a *ItemsAssertion) LacksKey(pk, sk string) *ItemsAssertion {
	a.t.Helper()
	if a.find(pk, sk) != nil {
		a.t.Errorf("expected item %s/%s to be absent", pk, sk)
	}
	return a
}

// HasScopeCount asserts how many items have the given sort key.
func (a *ItemsAssertion) HasScopeCount(sk string, expected int) *ItemsAssertion {
	a.t.Helper()
	count := 0
	for _, item := range a.items {
		if stringValue(item, dynashadow.AttributeNameScope) == sk {
			count++
		}
	}
	if count != expected {
		a.t.Errorf("expected %d items in scope %s, got %d", expected, sk, count)
	}
	return a
}

// HasAttribute asserts that at least one item has the specified string attribute.
func (a *ItemsAssertion) HasAttribute(attributeName, expectedValue string) *ItemsAssertion {
	a.t.Helper()
	for _, item := range a.items {
		if s, ok := item[attributeName].(*types.AttributeValueMemberS); ok && s.Value == expectedValue {
			return a
		}
	}

	a.t.Errorf("expected to find attribute %s with value %s in items", attributeName, expectedValue)
	return a
}

// ContainsItem asserts that one of the items is exactly expected.
func (a *ItemsAssertion) ContainsItem(expected map[string]types.AttributeValue) *ItemsAssertion {
	a.t.Helper()
	for _, item := range a.items {
		if reflect.DeepEqual(item, expected) {
			return a
		}
	}

	a.t.Errorf("expected to find item %s/%s with attributes %s",
		stringValue(expected, dynashadow.AttributeNamePartition),
		stringValue(expected, dynashadow.AttributeNameScope),
		strings.Join(attributeNames(expected), ", "))
	return a
}

// Item returns an assertion on the item with the given key, failing the test
// when it is missing.
func (a *ItemsAssertion) Item(pk, sk string) *DynamoDBItemAssertion {
	a.t.Helper()
	item := a.find(pk, sk)
	if item == nil {
		a.t.Fatalf("expected to find item %s/%s in items", pk, sk)
	}
	return DynamoDBItem(a.t, item)
}

func (a *ItemsAssertion) find(pk, sk string) map[string]types.AttributeValue {
	for _, item := range a.items {
		if stringValue(item, dynashadow.AttributeNamePartition) == pk &&
			stringValue(item, dynashadow.AttributeNameScope) == sk {
			return item
		}
	}
	return nil
}

// DynamoDBItemAssertion provides fluent assertions for a single DynamoDB item.
type DynamoDBItemAssertion struct {
	t    testing.TB
	item map[string]types.AttributeValue
}

// DynamoDBItem creates a new DynamoDBItemAssertion for the given item.
func DynamoDBItem(t testing.TB, item map[string]types.AttributeValue) *DynamoDBItemAssertion {
	return &DynamoDBItemAssertion{
		t:    t,
		item: item,
	}
}

// HasKey asserts the pk and sk of the item.
func (a *DynamoDBItemAssertion) HasKey(pk, sk string) *DynamoDBItemAssertion {
	a.t.Helper()
	gotPK := stringValue(a.item, dynashadow.AttributeNamePartition)
	gotSK := stringValue(a.item, dynashadow.AttributeNameScope)
	if gotPK != pk || gotSK != sk {
		a.t.Errorf("expected key %s/%s, got %s/%s", pk, sk, gotPK, gotSK)
	}
	return a
}

// HasAttribute asserts that the item has the attribute with the given value.
func (a *DynamoDBItemAssertion) HasAttribute(attrName string, expected dynashadow.Value) *DynamoDBItemAssertion {
	a.t.Helper()
	attr, ok := a.item[attrName]
	if !ok {
		a.t.Errorf("expected attribute %s to exist", attrName)
		return a
	}
	got, err := dynashadow.ValueFromAttribute(attr)
	if err != nil {
		a.t.Errorf("attribute %s: %v", attrName, err)
		return a
	}
	if !got.Equal(expected) {
		a.t.Errorf("expected attribute %s to be %s, got %s", attrName, expected, got)
	}
	return a
}

// LacksAttribute asserts that the item does not have the attribute.
func (a *DynamoDBItemAssertion) LacksAttribute(attrName string) *DynamoDBItemAssertion {
	a.t.Helper()
	if _, ok := a.item[attrName]; ok {
		a.t.Errorf("expected attribute %s to be absent", attrName)
	}
	return a
}

// HasGenericKey asserts that __v names field and gk holds the JSON of expected.
func (a *DynamoDBItemAssertion) HasGenericKey(field string, expected dynashadow.Value) *DynamoDBItemAssertion {
	a.t.Helper()
	if got := stringValue(a.item, dynashadow.AttributeNameVariant); got != field {
		a.t.Errorf("expected %s to be %q, got %q", dynashadow.AttributeNameVariant, field, got)
	}
	if got := stringValue(a.item, dynashadow.AttributeNameGenericKey); got != expected.String() {
		a.t.Errorf("expected %s to be %s, got %s", dynashadow.AttributeNameGenericKey, expected.String(), got)
	}
	return a
}

// HasProjection asserts that __p holds exactly the given fields, in order.
func (a *DynamoDBItemAssertion) HasProjection(fields ...dynashadow.Field) *DynamoDBItemAssertion {
	a.t.Helper()
	expected := dynashadow.NewRecord(fields...).String()
	if got := stringValue(a.item, dynashadow.AttributeNameProjection); got != expected {
		a.t.Errorf("expected %s to be %s, got %s", dynashadow.AttributeNameProjection, expected, got)
	}
	return a
}

// HasNoProjection asserts that the item has no __p attribute.
func (a *DynamoDBItemAssertion) HasNoProjection() *DynamoDBItemAssertion {
	a.t.Helper()
	return a.LacksAttribute(dynashadow.AttributeNameProjection)
}

// RecordAssertion provides fluent assertions for a decoded record.
type RecordAssertion struct {
	t   testing.TB
	rec *dynashadow.Record
}

// Record creates a new RecordAssertion. A nil record fails the test.
func Record(t testing.TB, rec *dynashadow.Record) *RecordAssertion {
	t.Helper()
	if rec == nil {
		t.Fatal("expected a record, got nil")
	}
	return &RecordAssertion{t: t, rec: rec}
}

// HasField asserts that the record has the field with the given value.
func (a *RecordAssertion) HasField(name string, expected dynashadow.Value) *RecordAssertion {
	a.t.Helper()
	got, ok := a.rec.Get(name)
	if !ok {
		a.t.Errorf("expected field %s to be set on %s", name, a.rec)
		return a
	}
	if !got.Equal(expected) {
		a.t.Errorf("expected field %s to be %s, got %s", name, expected, got)
	}
	return a
}

// LacksField asserts that the record does not have the field.
func (a *RecordAssertion) LacksField(name string) *RecordAssertion {
	a.t.Helper()
	if a.rec.Has(name) {
		a.t.Errorf("expected field %s to be absent from %s", name, a.rec)
	}
	return a
}

// HasFieldOrder asserts the field names of the record, in order.
func (a *RecordAssertion) HasFieldOrder(names ...string) *RecordAssertion {
	a.t.Helper()
	if got := a.rec.Names(); !reflect.DeepEqual(got, names) {
		a.t.Errorf("expected fields %v, got %v", names, got)
	}
	return a
}

// Equals asserts that the record holds the same fields as expected, in any order.
func (a *RecordAssertion) Equals(expected *dynashadow.Record) *RecordAssertion {
	a.t.Helper()
	if !a.rec.Equal(expected) {
		a.t.Errorf("expected record %s, got %s", expected, a.rec)
	}
	return a
}

func stringValue(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func attributeNames(item map[string]types.AttributeValue) []string {
	names := make([]string, 0, len(item))
	for name := range item {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
