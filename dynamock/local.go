package dynamock

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynashadow"
)

// DefaultLocalPort is the default port for DynamoDB Local.
const DefaultLocalPort = 8000

// DefaultIndexName is the physical index created by CreateShadowTable.
const DefaultIndexName = dynashadow.DefaultIndexName

const tableWaitTimeout = 30 * time.Second

// LocalDynamoDB represents a connection to a local DynamoDB instance.
type LocalDynamoDB struct {
	Client   *dynamodb.Client
	Endpoint string
	Port     int
}

// NewLocalClient creates a DynamoDB client for a DynamoDB Local instance
// listening on port. DynamoDB Local accepts any credentials.
func NewLocalClient(port int) *dynamodb.Client {
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: aws.AnonymousCredentials{},
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(localEndpoint(port))
	})
}

func localEndpoint(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// NewLocalDynamoDB creates a LocalDynamoDB for the instance on port.
func NewLocalDynamoDB(port int) *LocalDynamoDB {
	return &LocalDynamoDB{
		Client:   NewLocalClient(port),
		Endpoint: localEndpoint(port),
		Port:     port,
	}
}

// NewDefaultLocalDynamoDB creates a LocalDynamoDB on DefaultLocalPort.
func NewDefaultLocalDynamoDB() *LocalDynamoDB {
	return NewLocalDynamoDB(DefaultLocalPort)
}

// IsAvailable reports whether DynamoDB Local answers on the configured port.
func (l *LocalDynamoDB) IsAvailable(ctx context.Context) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", l.Port), 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()

	_, err = l.Client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	return err == nil
}

// ShadowTableInput returns the create table request of a table usable by
// dynashadow models: string keys pk and sk, and a global secondary index on
// (sk, gk) projecting all attributes.
func ShadowTableInput(tableName, indexName string) *dynamodb.CreateTableInput {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	return &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(dynashadow.AttributeNamePartition), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(dynashadow.AttributeNameScope), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(dynashadow.AttributeNameGenericKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(dynashadow.AttributeNamePartition), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(dynashadow.AttributeNameScope), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(indexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(dynashadow.AttributeNameScope), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String(dynashadow.AttributeNameGenericKey), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{
					ProjectionType: types.ProjectionTypeAll,
				},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
}

// CreateShadowTable creates a table with the dynashadow schema, waits for it
// to become active and enables the expiry of cursor items on the "expires"
// attribute.
func (l *LocalDynamoDB) CreateShadowTable(ctx context.Context, tableName, indexName string) error {
	if _, err := l.Client.CreateTable(ctx, ShadowTableInput(tableName, indexName)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(l.Client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = 500 * time.Millisecond
		o.MaxDelay = 5 * time.Second
	})
	input := &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}
	if err := waiter.Wait(ctx, input, tableWaitTimeout); err != nil {
		return fmt.Errorf("table %s did not become active: %w", tableName, err)
	}

	_, err := l.Client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String(dynashadow.AttributeNameExpires),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable time to live on %s: %w", tableName, err)
	}
	return nil
}

// DeleteTable deletes a table and waits until it is gone.
func (l *LocalDynamoDB) DeleteTable(ctx context.Context, tableName string) error {
	_, err := l.Client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}

	waiter := dynamodb.NewTableNotExistsWaiter(l.Client, func(o *dynamodb.TableNotExistsWaiterOptions) {
		o.MinDelay = 500 * time.Millisecond
		o.MaxDelay = 5 * time.Second
	})
	input := &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}
	if err := waiter.Wait(ctx, input, tableWaitTimeout); err != nil {
		return fmt.Errorf("table %s was not deleted: %w", tableName, err)
	}
	return nil
}
