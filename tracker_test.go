package dynashadow_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nisimpson/dynashadow"
	"github.com/nisimpson/dynashadow/dynamock"
	"github.com/nisimpson/dynashadow/dynamock/assert"
)

func newMemoryModel(t *testing.T, opts ...func(*dynashadow.Table)) (*dynamock.MemoryClient, *dynashadow.Model) {
	t.Helper()
	client := dynamock.NewMemoryClient()
	table := dynashadow.NewTable("users", client, append([]func(*dynashadow.Table){dynashadow.WithTenant("acme")}, opts...)...)
	model, err := table.Model(dynashadow.ModelConfig{
		Entity:       "user",
		GSIK:         "name",
		TrackIndexes: true,
		Indexes: []dynashadow.Index{
			{Name: "email", Projections: []string{"document"}},
			{Name: "document"},
		},
	})
	if err != nil {
		t.Fatalf("Failed to create model: %v", err)
	}
	return client, model
}

func user(id, name, email, document string) *dynashadow.Record {
	return dynamock.NewRecord(
		dynamock.WithID(id),
		dynamock.WithString("name", name),
		dynamock.WithString("email", email),
		dynamock.WithString("document", document),
	)
}

func TestIndexTracking(t *testing.T) {
	ctx := context.Background()

	t.Run("create writes shadows", func(t *testing.T) {
		client, model := newMemoryModel(t)
		if _, err := model.Create(ctx, user("u1", "Ann", "ann@mail.com", "111")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		items := assert.Items(t, client.Items()).
			HasCount(3).
			ContainsKey("u1", "acme|user").
			ContainsKey("u1", "acme|user|email").
			ContainsKey("u1", "acme|user|document")

		items.Item("u1", "acme|user|email").
			HasGenericKey("email", dynashadow.String("ann@mail.com")).
			HasProjection(dynashadow.F("document", dynashadow.String("111")))
		items.Item("u1", "acme|user|document").
			HasGenericKey("document", dynashadow.String("111")).
			HasNoProjection()
		items.Item("u1", "acme|user").
			HasGenericKey("name", dynashadow.String("Ann")).
			HasAttribute("email", dynashadow.String("ann@mail.com"))
	})

	t.Run("update refreshes shadows", func(t *testing.T) {
		client, model := newMemoryModel(t)
		if _, err := model.Create(ctx, user("u1", "Ann", "ann@mail.com", "111")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		patch := dynamock.NewRecord(dynamock.WithID("u1"), dynamock.WithString("document", "222"))
		if _, err := model.Update(ctx, patch); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		items := assert.Items(t, client.Items())
		items.Item("u1", "acme|user|email").
			HasGenericKey("email", dynashadow.String("ann@mail.com")).
			HasProjection(dynashadow.F("document", dynashadow.String("222")))
		items.Item("u1", "acme|user|document").
			HasGenericKey("document", dynashadow.String("222"))

		rec, err := model.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		assert.Record(t, rec).
			HasField("name", dynashadow.String("Ann")).
			HasField("document", dynashadow.String("222"))
	})

	t.Run("update of gsik keeps shadows", func(t *testing.T) {
		client, model := newMemoryModel(t)
		if _, err := model.Create(ctx, user("u1", "Ann", "ann@mail.com", "111")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		client.Reset()

		patch := dynamock.NewRecord(dynamock.WithID("u1"), dynamock.WithString("name", "Anna"))
		if _, err := model.Update(ctx, patch); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if ops := client.Ops(); len(ops) != 1 || ops[0] != dynamock.OpUpdate {
			t.Errorf("Expected a single update, got %v", ops)
		}
		assert.Items(t, client.Items()).
			Item("u1", "acme|user").
			HasGenericKey("name", dynashadow.String("Anna"))
	})

	t.Run("delete removes shadows", func(t *testing.T) {
		client, model := newMemoryModel(t)
		if _, err := model.Create(ctx, user("u1", "Ann", "ann@mail.com", "111")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, err := model.Create(ctx, user("u2", "Bob", "bob@mail.com", "222")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if err := model.Delete(ctx, "u1"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		assert.Items(t, client.Items()).
			HasCount(3).
			LacksKey("u1", "acme|user").
			LacksKey("u1", "acme|user|email").
			LacksKey("u1", "acme|user|document").
			HasScopeCount("acme|user", 1)
	})

	t.Run("failed shadow write leaves earlier writes", func(t *testing.T) {
		client, model := newMemoryModel(t)
		client.Fail = dynamock.FailOnCall(dynamock.OpPut, 3, errors.New("throttled"))

		_, err := model.Create(ctx, user("u1", "Ann", "ann@mail.com", "111"))
		if err == nil || err.Error() != "throttled" {
			t.Fatalf("Expected throttled error, got %v", err)
		}
		assert.Items(t, client.Items()).
			HasCount(2).
			ContainsKey("u1", "acme|user").
			ContainsKey("u1", "acme|user|email").
			LacksKey("u1", "acme|user|document")
	})
}

func TestQueryMemory(t *testing.T) {
	ctx := context.Background()
	client, model := newMemoryModel(t)

	users := make([]*dynashadow.Record, 0, 5)
	for i, name := range []string{"Eve", "Ann", "Dan", "Bob", "Cid"} {
		users = append(users, user(fmt.Sprintf("u%d", i), name, fmt.Sprintf("%s@mail.com", name), fmt.Sprintf("%d", 100+i)))
	}
	if _, err := dynamock.NewSeedTestData(model).SeedRecords(ctx, users...); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	if client.Len() != 15 {
		t.Fatalf("Expected 15 items, got %d\n%s", client.Len(), client)
	}

	names := func(result *dynashadow.QueryResult) []string {
		out := make([]string, 0, len(result.Items))
		for _, rec := range result.Items {
			v, _ := rec.Get("name")
			s, _ := v.AsString()
			out = append(out, s)
		}
		return out
	}

	t.Run("main items sorted by gsik", func(t *testing.T) {
		result, err := model.Query(ctx, dynashadow.QueryParams{})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := fmt.Sprint(names(result)); got != "[Ann Bob Cid Dan Eve]" {
			t.Errorf("Unexpected order: %s", got)
		}
	})

	t.Run("pages", func(t *testing.T) {
		var (
			all    []string
			cursor string
			pages  int
		)
		for {
			result, err := model.Query(ctx, dynashadow.QueryParams{Limit: 2, Offset: cursor})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			pages++
			all = append(all, names(result)...)
			if result.Offset == "" {
				break
			}
			cursor = result.Offset
		}
		if pages != 3 {
			t.Errorf("Expected 3 pages, got %d", pages)
		}
		if got := fmt.Sprint(all); got != "[Ann Bob Cid Dan Eve]" {
			t.Errorf("Unexpected items: %s", got)
		}
	})

	t.Run("descending", func(t *testing.T) {
		result, err := model.Query(ctx, dynashadow.QueryParams{SortDescending: true, Limit: 2})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := fmt.Sprint(names(result)); got != "[Eve Dan]" {
			t.Errorf("Unexpected order: %s", got)
		}
	})

	t.Run("key condition", func(t *testing.T) {
		result, err := model.Query(ctx, dynashadow.QueryParams{
			KeyCondition: &dynashadow.KeyCondition{
				Expression: "#key between :start and :end",
				Values: map[string]dynashadow.Value{
					":start": dynashadow.String("Bob"),
					":end":   dynashadow.String("Dan"),
				},
			},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := fmt.Sprint(names(result)); got != "[Bob Cid Dan]" {
			t.Errorf("Unexpected items: %s", got)
		}
	})

	t.Run("index lookup", func(t *testing.T) {
		result, err := model.Query(ctx, dynashadow.QueryParams{
			Index: "email",
			KeyCondition: &dynashadow.KeyCondition{
				Expression: "#key = :key",
				Values:     map[string]dynashadow.Value{":key": dynashadow.String("Dan@mail.com")},
			},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(result.Items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(result.Items))
		}
		assert.Record(t, result.Items[0]).
			HasFieldOrder("id", "email", "document").
			HasField("document", dynashadow.String("102"))
	})

	t.Run("index lookup unwrapped", func(t *testing.T) {
		result, err := model.Query(ctx, dynashadow.QueryParams{
			Index:            "document",
			UnwrapIndexItems: true,
			KeyCondition: &dynashadow.KeyCondition{
				Expression: "#key = :key",
				Values:     map[string]dynashadow.Value{":key": dynashadow.String("103")},
			},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(result.Items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(result.Items))
		}
		assert.Record(t, result.Items[0]).Equals(users[3])
	})
}

func TestQueryTablePaginator(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client, model := newMemoryModel(t,
		dynashadow.WithClock(func() time.Time { return now }),
		dynashadow.WithTablePaginator(time.Minute),
	)

	for i := 0; i < 3; i++ {
		if _, err := model.Create(ctx, user(fmt.Sprintf("u%d", i), fmt.Sprintf("name-%d", i), "", "")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	first, err := model.Query(ctx, dynashadow.QueryParams{Limit: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(first.Items) != 2 || first.Offset == "" {
		t.Fatalf("Expected a full first page with a cursor, got %+v", first)
	}
	if _, ok := client.Item(first.Offset, "acme|__cursor"); !ok {
		t.Errorf("Expected cursor item in the table\n%s", client)
	}

	second, err := model.Query(ctx, dynashadow.QueryParams{Limit: 2, Offset: first.Offset})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(second.Items) != 1 || second.Offset != "" {
		t.Errorf("Expected a last page of 1 item, got %+v", second)
	}

	now = now.Add(time.Hour)
	if _, err := model.Query(ctx, dynashadow.QueryParams{Limit: 2, Offset: first.Offset}); !dynashadow.IsEncodingError(err) {
		t.Errorf("Expected expired cursor error, got %v", err)
	}
}
