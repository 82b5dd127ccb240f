package dynashadow

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Physical attribute names. Every item in the table carries pk and sk; gk and
// __v are set when the item takes part in the physical index.
const (
	AttributeNamePartition  = "pk"  // entity identity
	AttributeNameScope      = "sk"  // tenant|entity[|index]
	AttributeNameGenericKey = "gk"  // JSON of the field named by __v
	AttributeNameVariant    = "__v" // field represented by gk
	AttributeNameProjection = "__p" // JSON object of projected fields
	AttributeNameExpires    = "expires"
)

// Field names written when date tracking is enabled.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

const (
	DefaultKeyDelimiter  = "|"
	DefaultIdentityField = "id"
	DefaultIndexName     = "gsi-sk-gk"
	DefaultQueryLimit    = 100
)

func isReserved(name string) bool {
	switch name {
	case AttributeNamePartition, AttributeNameScope, AttributeNameGenericKey,
		AttributeNameVariant, AttributeNameProjection:
		return true
	}
	return false
}

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// IDGenerator returns a new entity identity.
type IDGenerator func() string

// DynamoDBClient interface for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Index declares a logical secondary index on a field of the entity. The index
// name is also the name of the indexed field. Projections lists the fields
// copied onto each shadow item, in order.
type Index struct {
	Name        string   `yaml:"name"`
	Projections []string `yaml:"projections,omitempty"`
}

// ModelConfig declares an entity type.
type ModelConfig struct {
	Entity        string  `yaml:"entity"`                  // entity type name, part of every sk
	Indexes       []Index `yaml:"indexes,omitempty"`       // logical indexes, in fan-out order
	GSIK          string  `yaml:"gsik,omitempty"`          // field stored in gk on main items
	TrackIndexes  bool    `yaml:"trackIndexes,omitempty"`  // maintain shadow items on writes
	TrackDates    bool    `yaml:"trackDates,omitempty"`    // stamp createdAt and updatedAt
	IdentityField string  `yaml:"identityField,omitempty"` // defaults to "id"
}

func (c ModelConfig) identityField() string {
	if c.IdentityField == "" {
		return DefaultIdentityField
	}
	return c.IdentityField
}

// Index returns the declared index with the given name.
func (c ModelConfig) Index(name string) (Index, bool) {
	for _, idx := range c.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// Validate checks the configuration against the default key delimiter.
func (c ModelConfig) Validate() error {
	return c.validate(DefaultKeyDelimiter)
}

func (c ModelConfig) validate(delimiter string) error {
	if c.Entity == "" {
		return validationErrorf("entity", "entity name is required")
	}
	if strings.Contains(c.Entity, delimiter) {
		return validationErrorf("entity", "entity name %q contains the key delimiter %q", c.Entity, delimiter)
	}
	if c.Entity == cursorScope {
		return validationErrorf("entity", "entity name %q is reserved for stored cursors", c.Entity)
	}

	identity := c.identityField()
	if isReserved(identity) {
		return validationErrorf("identityField", "%q is a reserved attribute name", identity)
	}
	if c.GSIK != "" {
		if isReserved(c.GSIK) {
			return validationErrorf("gsik", "%q is a reserved attribute name", c.GSIK)
		}
		if c.GSIK == identity {
			return validationErrorf("gsik", "%q is the identity field", c.GSIK)
		}
	}

	seen := make(map[string]struct{}, len(c.Indexes))
	for i, idx := range c.Indexes {
		switch {
		case idx.Name == "":
			return validationErrorf("indexes", "index %d has no name", i)
		case strings.Contains(idx.Name, delimiter):
			return validationErrorf("indexes", "index %q contains the key delimiter %q", idx.Name, delimiter)
		case isReserved(idx.Name):
			return validationErrorf("indexes", "%q is a reserved attribute name", idx.Name)
		case idx.Name == identity:
			return validationErrorf("indexes", "%q is the identity field", idx.Name)
		}
		if _, dup := seen[idx.Name]; dup {
			return validationErrorf("indexes", "index %q is declared twice", idx.Name)
		}
		seen[idx.Name] = struct{}{}

		for _, p := range idx.Projections {
			if isReserved(p) {
				return validationErrorf("indexes", "index %q projects reserved attribute %q", idx.Name, p)
			}
		}
	}
	return nil
}
