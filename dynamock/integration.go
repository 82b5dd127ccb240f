package dynamock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nisimpson/dynashadow"
)

// NewTestTable generates a unique table name for testing.
func NewTestTable(prefix string) string {
	name := fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	// table names only allow [a-zA-Z0-9_.-]
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		}
		return '-'
	}, name)
}

// SeedTestData seeds records through a model, so that shadow items are
// written exactly as the application would.
type SeedTestData struct {
	model *dynashadow.Model
}

// NewSeedTestData creates a new test data seeder.
func NewSeedTestData(model *dynashadow.Model) *SeedTestData {
	return &SeedTestData{model: model}
}

// SeedRecord creates a single record and returns the persisted form.
func (s *SeedTestData) SeedRecord(ctx context.Context, rec *dynashadow.Record) (*dynashadow.Record, error) {
	created, err := s.model.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to seed record: %w", err)
	}
	return created, nil
}

// SeedRecords creates every record in order and stops at the first failure.
func (s *SeedTestData) SeedRecords(ctx context.Context, recs ...*dynashadow.Record) ([]*dynashadow.Record, error) {
	created := make([]*dynashadow.Record, 0, len(recs))
	for _, rec := range recs {
		c, err := s.SeedRecord(ctx, rec)
		if err != nil {
			return created, err
		}
		created = append(created, c)
	}
	return created, nil
}

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	Port             int
	SkipIfNotRunning bool
	TablePrefix      string
	IndexName        string
	CleanupTimeout   time.Duration
}

// DefaultIntegrationTestConfig returns a default configuration for integration tests.
func DefaultIntegrationTestConfig() *IntegrationTestConfig {
	return &IntegrationTestConfig{
		Port:             DefaultLocalPort,
		SkipIfNotRunning: true,
		TablePrefix:      "dynashadow-it",
		IndexName:        DefaultIndexName,
		CleanupTimeout:   30 * time.Second,
	}
}

// RunIntegrationTest creates a fresh shadow table on DynamoDB Local, runs fn
// and deletes the table afterwards. The test is skipped in short mode, and
// when DynamoDB Local is not running unless SkipIfNotRunning is false.
func RunIntegrationTest(t *testing.T, config *IntegrationTestConfig, fn func(local *LocalDynamoDB, tableName string)) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if config == nil {
		config = DefaultIntegrationTestConfig()
	}

	local := NewLocalDynamoDB(config.Port)
	ctx := context.Background()

	if !local.IsAvailable(ctx) {
		if config.SkipIfNotRunning {
			t.Skipf("DynamoDB Local not available on port %d", config.Port)
		}
		t.Fatalf("DynamoDB Local not available on port %d", config.Port)
	}

	tableName := NewTestTable(config.TablePrefix)
	if err := local.CreateShadowTable(ctx, tableName, config.IndexName); err != nil {
		t.Fatalf("Failed to create test table %s: %v", tableName, err)
	}

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), config.CleanupTimeout)
		defer cancel()

		if err := local.DeleteTable(cleanupCtx, tableName); err != nil {
			t.Errorf("Failed to cleanup table %s: %v", tableName, err)
		}
	})

	fn(local, tableName)
}
