// Package dynamock provides testing utilities for the dynashadow library.
//
// This package includes:
//   - A function-field mock DynamoDB client that records every call
//   - An in-memory client that understands the requests a model issues
//   - Local DynamoDB integration utilities
//   - Record and item builders with functional options
//   - Test data seeding helpers
//
// # Mock Client
//
// The MockClient fails the test on any operation without a handler. Set the
// handlers the test expects and inspect the recorded calls afterwards:
//
//	mock := dynamock.NewMockClient(t)
//	mock.PutFunc = dynamock.Returns[dynamodb.PutItemInput](&dynamodb.PutItemOutput{}, nil)
//
//	table := dynashadow.NewTable("test-table", mock)
//	users, _ := table.Model(dynashadow.ModelConfig{Entity: "user"})
//	_, _ = users.Create(ctx, rec)
//
//	puts := dynamock.Inputs[dynamodb.PutItemInput](mock.Calls())
//
// # Memory Client
//
// The MemoryClient keeps items in a map keyed by pk and sk. It evaluates the
// key conditions produced by a model against the (sk, gk) index, so queries,
// pagination and index tracking can be exercised without a database:
//
//	client := dynamock.NewMemoryClient()
//	client.Fail = dynamock.FailOnCall(dynamock.OpPut, 2, errors.New("throttled"))
//
//	table := dynashadow.NewTable("test-table", client)
//	...
//	assert.Items(t, client.Items()).HasCount(3)
//
// # Builders
//
//	rec := dynamock.NewRecord(
//		dynamock.WithID("u1"),
//		dynamock.WithString("email", "ann@mail.com"),
//	)
//
//	item := dynamock.NewItem(
//		dynamock.WithKey("u1", "acme|user|email"),
//		dynamock.WithGenericKey("email", dynashadow.String("ann@mail.com")),
//	)
//
// # Local DynamoDB
//
// For integration testing, the package provides utilities to work with
// local DynamoDB instances:
//
//	local := dynamock.NewLocalDynamoDB(8000)
//	if local.IsAvailable(ctx) {
//		err := local.CreateShadowTable(ctx, "test-table", dynamock.DefaultIndexName)
//		// ... run tests
//		err = local.DeleteTable(ctx, "test-table")
//	}
//
//	dynamock.RunIntegrationTest(t, nil, func(local *dynamock.LocalDynamoDB, tableName string) {
//		// Your integration test code here
//	})
//
// # Test Data Seeding
//
//	seeder := dynamock.NewSeedTestData(users)
//	_, err := seeder.SeedRecords(ctx, rec1, rec2)
//	n, err := seeder.SeedFromJSON(ctx, strings.NewReader(`[{"id":"u3"}]`))
package dynamock
