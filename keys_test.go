package dynashadow

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestKeyBuilderScope(t *testing.T) {
	tests := []struct {
		name   string
		keys   keyBuilder
		index  string
		expect string
	}{
		{"tenant main", keyBuilder{tenant: "TestTenant", entity: "testEntity", delimiter: "|"}, "", "TestTenant|testEntity"},
		{"tenant index", keyBuilder{tenant: "TestTenant", entity: "testEntity", delimiter: "|"}, "email", "TestTenant|testEntity|email"},
		{"no tenant", keyBuilder{entity: "user", delimiter: "|"}, "", "user"},
		{"no tenant index", keyBuilder{entity: "user", delimiter: "|"}, "email", "user|email"},
		{"custom delimiter", keyBuilder{tenant: "acme", entity: "user", delimiter: "#"}, "email", "acme#user#email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.keys.Scope(tt.index); got != tt.expect {
				t.Errorf("Expected scope %s, got %s", tt.expect, got)
			}
		})
	}
}

func TestKeyBuilderKey(t *testing.T) {
	keys := keyBuilder{tenant: "TestTenant", entity: "testEntity", delimiter: "|", identityField: "id"}

	t.Run("main key", func(t *testing.T) {
		key, err := keys.Key("abc", "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(key) != 2 {
			t.Errorf("Expected 2 key attributes, got %d", len(key))
		}
		if pk := key["pk"].(*types.AttributeValueMemberS).Value; pk != "abc" {
			t.Errorf("Expected pk abc, got %s", pk)
		}
		if sk := key["sk"].(*types.AttributeValueMemberS).Value; sk != "TestTenant|testEntity" {
			t.Errorf("Expected sk TestTenant|testEntity, got %s", sk)
		}
	})

	t.Run("index key", func(t *testing.T) {
		key, err := keys.Key("abc", "mail")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if sk := key["sk"].(*types.AttributeValueMemberS).Value; sk != "TestTenant|testEntity|mail" {
			t.Errorf("Expected sk TestTenant|testEntity|mail, got %s", sk)
		}
	})

	t.Run("empty identity", func(t *testing.T) {
		_, err := keys.Key("", "")
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		if err.Error() != "validation failed on id: the value of id can't be empty" {
			t.Errorf("Unexpected message: %s", err)
		}
	})
}
