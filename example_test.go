package dynashadow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/nisimpson/dynashadow"
	"github.com/nisimpson/dynashadow/dynamock"
)

// Example demonstrates basic operations against an in-memory table
func Example() {
	ctx := context.Background()
	client := dynamock.NewMemoryClient()

	table := dynashadow.NewTable("app-table", client, dynashadow.WithTenant("acme"))
	users, err := table.Model(dynashadow.ModelConfig{
		Entity:       "user",
		GSIK:         "name",
		TrackIndexes: true,
		Indexes: []dynashadow.Index{
			{Name: "email", Projections: []string{"document"}},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	_, err = users.Create(ctx, dynashadow.NewRecord(
		dynashadow.F("id", dynashadow.String("u1")),
		dynashadow.F("name", dynashadow.String("Ann")),
		dynashadow.F("email", dynashadow.String("ann@mail.com")),
		dynashadow.F("document", dynashadow.String("123")),
	))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Print(client)

	result, err := users.Query(ctx, dynashadow.QueryParams{
		Index: "email",
		KeyCondition: &dynashadow.KeyCondition{
			Expression: "#key = :key",
			Values:     map[string]dynashadow.Value{":key": dynashadow.String("ann@mail.com")},
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(result.Items[0])

	// Output:
	// 0: u1 acme|user "Ann"
	// 1: u1 acme|user|email "ann@mail.com"
	// {"id":"u1","email":"ann@mail.com","document":"123"}
}

// Example_marshalUpdate shows the update request built for a patch
func Example_marshalUpdate() {
	table := dynashadow.NewTable("app-table", dynamock.NewMemoryClient())
	users, err := table.Model(dynashadow.ModelConfig{Entity: "user", GSIK: "name"})
	if err != nil {
		log.Fatal(err)
	}

	input, err := users.MarshalUpdate(dynashadow.NewRecord(
		dynashadow.F("id", dynashadow.String("u1")),
		dynashadow.F("name", dynashadow.String("Ann")),
		dynashadow.F("email", dynashadow.String("ann@mail.com")),
	))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(aws.ToString(input.UpdateExpression))
	fmt.Println(input.ExpressionAttributeNames["#gk"])

	// Output:
	// SET #gk = :name, #email = :email
	// gk
}

// Example_schema demonstrates loading models from a YAML schema
func Example_schema() {
	schema, err := dynashadow.ParseSchema([]byte(`
models:
  - entity: user
    gsik: name
    indexes:
      - name: email
`))
	if err != nil {
		log.Fatal(err)
	}

	table := dynashadow.NewTable("app-table", dynamock.NewMemoryClient(), dynashadow.WithTenant("acme"))
	models, err := schema.Build(table)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(models["user"].Scope(""))
	fmt.Println(models["user"].Scope("email"))

	// Output:
	// acme|user
	// acme|user|email
}
