package dynashadow

import (
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func testCodec() itemCodec {
	return itemCodec{
		keys: keyBuilder{tenant: "TestTenant", entity: "testEntity", delimiter: "|", identityField: "id"},
		gsik: "name",
	}
}

func stringAttr(t *testing.T, item Item, name string) string {
	t.Helper()
	s, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		t.Fatalf("Expected string attribute %s, got %T", name, item[name])
	}
	return s.Value
}

func TestItemCodecToItem(t *testing.T) {
	codec := testCodec()

	t.Run("gsik in generic key", func(t *testing.T) {
		rec := NewRecord(F("id", String("c1")), F("name", String("SomeName")), F("age", Int(30)))
		item, err := codec.ToItem(rec, "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		want := Item{
			"pk":  &types.AttributeValueMemberS{Value: "c1"},
			"sk":  &types.AttributeValueMemberS{Value: "TestTenant|testEntity"},
			"gk":  &types.AttributeValueMemberS{Value: `"SomeName"`},
			"__v": &types.AttributeValueMemberS{Value: "name"},
			"age": &types.AttributeValueMemberN{Value: "30"},
		}
		if !reflect.DeepEqual(item, want) {
			t.Errorf("Expected %v, got %v", want, item)
		}
	})

	t.Run("variant without value", func(t *testing.T) {
		item, err := codec.ToItem(NewRecord(F("id", String("c1"))), "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := item["gk"]; ok {
			t.Error("Expected no gk when the gsik field is missing")
		}
		if v := stringAttr(t, item, "__v"); v != "name" {
			t.Errorf("Expected __v name, got %s", v)
		}
	})

	t.Run("explicit index scope", func(t *testing.T) {
		rec := NewRecord(F("id", String("c1")), F("name", String("SomeName")), F("email", String("Test@mail.com")))
		item, err := codec.ToItem(rec, "email")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if sk := stringAttr(t, item, "sk"); sk != "TestTenant|testEntity|email" {
			t.Errorf("Expected index scope, got %s", sk)
		}
		if gk := stringAttr(t, item, "gk"); gk != `"Test@mail.com"` {
			t.Errorf("Expected gk to hold the email, got %s", gk)
		}
		if name := stringAttr(t, item, "name"); name != "SomeName" {
			t.Errorf("Expected name attribute, got %s", name)
		}
	})

	t.Run("no gsik", func(t *testing.T) {
		plain := itemCodec{keys: codec.keys}
		item, err := plain.ToItem(NewRecord(F("id", String("c1")), F("name", String("x"))), "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := item["__v"]; ok {
			t.Error("Expected no __v without a gsik")
		}
		if _, ok := item["gk"]; ok {
			t.Error("Expected no gk without a gsik")
		}
	})

	t.Run("missing identity", func(t *testing.T) {
		_, err := codec.ToItem(NewRecord(F("name", String("x"))), "")
		if !IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("non string identity", func(t *testing.T) {
		_, err := codec.ToItem(NewRecord(F("id", Int(1))), "")
		if !IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("reserved field", func(t *testing.T) {
		_, err := codec.ToItem(NewRecord(F("id", String("c1")), F("gk", String("x"))), "")
		if !IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("empty field name", func(t *testing.T) {
		plain := itemCodec{keys: codec.keys}
		_, err := plain.ToItem(NewRecord(F("id", String("c1")), F("", String("x"))), "")
		if !IsValidationError(err) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})
}

func TestItemCodecToShadowItem(t *testing.T) {
	codec := testCodec()
	rec := NewRecord(
		F("id", String("c1")),
		F("name", String("SomeName")),
		F("email", String("Test@mail.com")),
		F("document", String("123.456.789-9")),
	)

	t.Run("with projections", func(t *testing.T) {
		item, err := codec.ToShadowItem(rec, Index{Name: "email", Projections: []string{"document"}})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := Item{
			"pk":  &types.AttributeValueMemberS{Value: "c1"},
			"sk":  &types.AttributeValueMemberS{Value: "TestTenant|testEntity|email"},
			"gk":  &types.AttributeValueMemberS{Value: `"Test@mail.com"`},
			"__v": &types.AttributeValueMemberS{Value: "email"},
			"__p": &types.AttributeValueMemberS{Value: `{"document":"123.456.789-9"}`},
		}
		if !reflect.DeepEqual(item, want) {
			t.Errorf("Expected %v, got %v", want, item)
		}
	})

	t.Run("without projections", func(t *testing.T) {
		item, err := codec.ToShadowItem(rec, Index{Name: "document"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := item["__p"]; ok {
			t.Error("Expected no __p without projections")
		}
		if len(item) != 4 {
			t.Errorf("Expected 4 attributes, got %d", len(item))
		}
	})

	t.Run("undefined projections are skipped", func(t *testing.T) {
		item, err := codec.ToShadowItem(rec, Index{Name: "email", Projections: []string{"age", "name"}})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if p := stringAttr(t, item, "__p"); p != `{"name":"SomeName"}` {
			t.Errorf("Expected only name projected, got %s", p)
		}
	})

	t.Run("missing index field", func(t *testing.T) {
		if _, err := codec.ToShadowItem(rec, Index{Name: "phone"}); err == nil {
			t.Error("Expected error for missing index field")
		}
	})
}

func TestItemCodecFromItem(t *testing.T) {
	codec := testCodec()

	t.Run("main item", func(t *testing.T) {
		rec, err := codec.FromItem(Item{
			"pk":       &types.AttributeValueMemberS{Value: "c1"},
			"sk":       &types.AttributeValueMemberS{Value: "TestTenant|testEntity"},
			"gk":       &types.AttributeValueMemberS{Value: `"SomeName"`},
			"__v":      &types.AttributeValueMemberS{Value: "name"},
			"email":    &types.AttributeValueMemberS{Value: "Test@mail.com"},
			"document": &types.AttributeValueMemberS{Value: "123.456.789-9"},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		want := []string{"id", "name", "document", "email"}
		if got := rec.Names(); !reflect.DeepEqual(got, want) {
			t.Errorf("Expected field order %v, got %v", want, got)
		}
		if v, _ := rec.Get("name"); !v.Equal(String("SomeName")) {
			t.Errorf("Expected name SomeName, got %s", v)
		}
	})

	t.Run("shadow item with projection", func(t *testing.T) {
		rec, err := codec.FromItem(Item{
			"pk":  &types.AttributeValueMemberS{Value: "c1"},
			"sk":  &types.AttributeValueMemberS{Value: "TestTenant|testEntity|email"},
			"gk":  &types.AttributeValueMemberS{Value: `"Test@mail.com"`},
			"__v": &types.AttributeValueMemberS{Value: "email"},
			"__p": &types.AttributeValueMemberS{Value: `{"document":"123.456.789-9"}`},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := NewRecord(
			F("id", String("c1")),
			F("email", String("Test@mail.com")),
			F("document", String("123.456.789-9")),
		)
		if !rec.Equal(want) {
			t.Errorf("Expected %s, got %s", want, rec)
		}
	})

	t.Run("numeric generic key", func(t *testing.T) {
		rec, err := codec.FromItem(Item{
			"pk":  &types.AttributeValueMemberS{Value: "c1"},
			"gk":  &types.AttributeValueMemberS{Value: "1995"},
			"__v": &types.AttributeValueMemberS{Value: "year"},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if v, _ := rec.Get("year"); !v.Equal(Int(1995)) {
			t.Errorf("Expected year 1995, got %s", v)
		}
	})

	t.Run("generic key that is not JSON", func(t *testing.T) {
		rec, err := codec.FromItem(Item{
			"pk":  &types.AttributeValueMemberS{Value: "c1"},
			"gk":  &types.AttributeValueMemberS{Value: "plain"},
			"__v": &types.AttributeValueMemberS{Value: "name"},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if v, _ := rec.Get("name"); !v.Equal(String("plain")) {
			t.Errorf("Expected name plain, got %s", v)
		}
	})

	t.Run("invalid projection", func(t *testing.T) {
		_, err := codec.FromItem(Item{
			"pk":  &types.AttributeValueMemberS{Value: "c1"},
			"__p": &types.AttributeValueMemberS{Value: `not json`},
		})
		if !IsEncodingError(err) {
			t.Errorf("Expected encoding error, got %v", err)
		}
	})

	t.Run("unsupported attribute", func(t *testing.T) {
		_, err := codec.FromItem(Item{
			"pk":   &types.AttributeValueMemberS{Value: "c1"},
			"tags": &types.AttributeValueMemberSS{Value: []string{"a"}},
		})
		if !IsEncodingError(err) {
			t.Errorf("Expected encoding error, got %v", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		rec := NewRecord(F("id", String("c1")), F("name", String("Ann")), F("age", Int(30)), F("active", Bool(true)))
		item, err := codec.ToItem(rec, "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		got, err := codec.FromItem(item)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !got.Equal(rec) {
			t.Errorf("Expected %s, got %s", rec, got)
		}
	})
}
