// Package dynashadow models several queryable fields of an entity on top of a
// single DynamoDB table that has exactly one global secondary index.
//
// # Key Concepts
//
// Every entity type is declared with a ModelConfig. Each record is written as a
// main item, and, when index tracking is enabled, as one shadow item per
// declared index whose field is defined on the record. All items share the
// same physical layout:
//   - pk: the record identity
//   - sk: the scope, "tenant|entity" for main items and
//     "tenant|entity|index" for shadow items
//   - gk: the JSON encoding of the field named by __v
//   - __v: the field represented by gk
//   - __p: the JSON object of the fields projected onto a shadow item
//
// The physical index has hash key sk and range key gk, so a query on the scope
// "tenant|user|email" with a condition on gk behaves like a query on an email
// index of the user entity.
//
// For example, a user with id u1 on a model tracking the email and document
// indexes, with email projecting document:
//
//	| pk | sk              | gk             | __v      | __p                    |
//	| == | =============== | ============== | ======== | ====================== |
//	| u1 | t|user          | "Ann"          | name     |                        |
//	| u1 | t|user|email    | "ann@mail.com" | email    | {"document":"123.456"} |
//	| u1 | t|user|document | "123.456"      | document |                        |
//
// Shadow writes are issued one by one after the main write and are never rolled
// back; a failed write stops the fan-out and its error is returned unchanged.
//
// # Basic Usage
//
//	table := dynashadow.NewTable("my-table", ddb, dynashadow.WithTenant("acme"))
//	users, err := table.Model(dynashadow.ModelConfig{
//	    Entity:       "user",
//	    GSIK:         "name",
//	    TrackIndexes: true,
//	    Indexes: []dynashadow.Index{
//	        {Name: "email", Projections: []string{"document"}},
//	        {Name: "document"},
//	    },
//	})
//
//	rec, err := users.Create(ctx, dynashadow.NewRecord(
//	    dynashadow.F("name", dynashadow.String("Ann")),
//	    dynashadow.F("email", dynashadow.String("ann@mail.com")),
//	))
//
// # Querying
//
// Queries select a scope and may add a condition on the generic key, referred
// to as #key:
//
//	page, err := users.Query(ctx, dynashadow.QueryParams{
//	    Index: "email",
//	    KeyCondition: &dynashadow.KeyCondition{
//	        Expression: "#key = :key",
//	        Values:     map[string]dynashadow.Value{":key": dynashadow.String("ann@mail.com")},
//	    },
//	    UnwrapIndexItems: true,
//	})
//
// # Pagination
//
// QueryResult.Offset is passed back as QueryParams.Offset to read the next page.
// By default the offset is the base64 encoding of the JSON form of the store's
// last evaluated key. WithTablePaginator stores keys in the table instead:
//
//	table := dynashadow.NewTable("my-table", ddb, dynashadow.WithTablePaginator(time.Hour))
package dynashadow
