package dynashadow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfig.
const (
	EnvTableName       = "DYNASHADOW_TABLE"
	EnvIndexName       = "DYNASHADOW_INDEX"
	EnvTenant          = "DYNASHADOW_TENANT"
	EnvEndpoint        = "DYNASHADOW_ENDPOINT"
	EnvRegion          = "AWS_REGION"
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
)

// Config describes how to reach the table from a process.
type Config struct {
	TableName       string
	IndexName       string
	Tenant          string
	Region          string
	Endpoint        string // custom endpoint, e.g. DynamoDB Local
	AccessKeyID     string // static credentials; the default chain is used when empty
	SecretAccessKey string
}

// LoadConfig loads the given .env files (".env" when none are given) into the
// environment and reads the configuration from it. Missing files are ignored;
// variables already set in the environment take precedence.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := Config{
		TableName:       os.Getenv(EnvTableName),
		IndexName:       os.Getenv(EnvIndexName),
		Tenant:          os.Getenv(EnvTenant),
		Region:          os.Getenv(EnvRegion),
		Endpoint:        os.Getenv(EnvEndpoint),
		AccessKeyID:     os.Getenv(EnvAccessKeyID),
		SecretAccessKey: os.Getenv(EnvSecretAccessKey),
	}
	if cfg.TableName == "" {
		return cfg, validationErrorf(EnvTableName, "table name is required")
	}
	return cfg, nil
}

// NewClient returns a DynamoDB client for the configuration.
func (c Config) NewClient(ctx context.Context) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, config.WithRegion(c.Region))
	}
	if c.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

// NewTable returns a Table backed by a DynamoDB client for the configuration.
// Options are applied after the configured values.
func (c Config) NewTable(ctx context.Context, opts ...func(*Table)) (*Table, error) {
	client, err := c.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	defaults := []func(*Table){WithTenant(c.Tenant)}
	if c.IndexName != "" {
		defaults = append(defaults, WithIndexName(c.IndexName))
	}
	return NewTable(c.TableName, client, append(defaults, opts...)...), nil
}
