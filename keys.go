package dynashadow

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// keyBuilder composes the primary keys of an entity's items.
type keyBuilder struct {
	tenant        string
	entity        string
	delimiter     string
	identityField string
}

// Scope returns the sort key shared by every item of the entity in the given
// scope: tenant|entity for main items, tenant|entity|index for shadow items.
// An empty tenant is left out.
func (k keyBuilder) Scope(index string) string {
	parts := make([]string, 0, 3)
	if k.tenant != "" {
		parts = append(parts, k.tenant)
	}
	parts = append(parts, k.entity)
	if index != "" {
		parts = append(parts, index)
	}
	return strings.Join(parts, k.delimiter)
}

// Key returns the primary key of the item with the given identity in the given
// scope.
func (k keyBuilder) Key(id, index string) (Item, error) {
	if id == "" {
		return nil, k.missingIdentity()
	}
	return Item{
		AttributeNamePartition: &types.AttributeValueMemberS{Value: id},
		AttributeNameScope:     &types.AttributeValueMemberS{Value: k.Scope(index)},
	}, nil
}

func (k keyBuilder) missingIdentity() error {
	return validationErrorf(k.identityField, "the value of %s can't be empty", k.identityField)
}
