package dynashadow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Table contains the DynamoDB table configuration shared by every model.
// The table must have a string hash key "pk", a string range key "sk" and a
// global secondary index (IndexName) with hash key "sk" and range key "gk".
type Table struct {
	TableName     string         // Main table name
	IndexName     string         // Physical index on (sk, gk). Default is "gsi-sk-gk".
	Tenant        string         // Optional tenant prefix of every sort key
	Client        DynamoDBClient // Client used by models and the table paginator
	KeyDelimiter  string         // Delimiter for sort key segments. Default is '|'.
	NewID         IDGenerator    // Identity generator for created records. Default is uuid.
	Tick          Clock          // Function to get current time for timestamps
	Logger        *zap.Logger    // Default is a no-op logger
	Paginator     Paginator      // Cursor codec for query offsets. Default is TokenPaginator.
	PaginationTTL time.Duration  // TTL for pagination cursors stored in table
}

// NewTable creates a new Table with default configuration.
func NewTable(tableName string, client DynamoDBClient, opts ...func(*Table)) *Table {
	t := &Table{
		TableName:     tableName,
		IndexName:     DefaultIndexName,
		Client:        client,
		KeyDelimiter:  DefaultKeyDelimiter,
		NewID:         uuid.NewString,
		Tick:          DefaultClock,
		Logger:        zap.NewNop(),
		Paginator:     TokenPaginator{},
		PaginationTTL: DefaultPaginationTTL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithTenant sets the tenant prefix of every sort key.
func WithTenant(tenant string) func(*Table) {
	return func(t *Table) { t.Tenant = tenant }
}

// WithIndexName sets the name of the physical index.
func WithIndexName(name string) func(*Table) {
	return func(t *Table) { t.IndexName = name }
}

// WithLogger sets the table logger.
func WithLogger(logger *zap.Logger) func(*Table) {
	return func(t *Table) { t.Logger = logger }
}

// WithClock sets the clock used for timestamps and cursor expiry.
func WithClock(clock Clock) func(*Table) {
	return func(t *Table) { t.Tick = clock }
}

// WithIDGenerator sets the identity generator of created records.
func WithIDGenerator(gen IDGenerator) func(*Table) {
	return func(t *Table) { t.NewID = gen }
}

// WithTablePaginator stores query cursors in the table itself, so clients
// receive short opaque cursors instead of encoded keys.
func WithTablePaginator(ttl time.Duration) func(*Table) {
	return func(t *Table) {
		if ttl > 0 {
			t.PaginationTTL = ttl
		}
		t.Paginator = NewTablePaginator(t)
	}
}

func (t *Table) now() time.Time {
	if t.Tick == nil {
		return DefaultClock()
	}
	return t.Tick()
}

// Model validates cfg and returns a model bound to a snapshot of the table
// configuration. Changes made to t afterwards do not affect the model.
func (t *Table) Model(cfg ModelConfig) (*Model, error) {
	if t.TableName == "" {
		return nil, validationErrorf("tableName", "table name is required")
	}
	if t.Client == nil {
		return nil, validationErrorf("client", "a dynamodb client is required")
	}

	snapshot := *t
	if snapshot.KeyDelimiter == "" {
		snapshot.KeyDelimiter = DefaultKeyDelimiter
	}
	if snapshot.IndexName == "" {
		snapshot.IndexName = DefaultIndexName
	}
	if snapshot.NewID == nil {
		snapshot.NewID = uuid.NewString
	}
	if snapshot.Tick == nil {
		snapshot.Tick = DefaultClock
	}
	if snapshot.Logger == nil {
		snapshot.Logger = zap.NewNop()
	}
	if snapshot.PaginationTTL <= 0 {
		snapshot.PaginationTTL = DefaultPaginationTTL
	}
	if snapshot.Paginator == nil {
		snapshot.Paginator = TokenPaginator{}
	}

	if err := cfg.validate(snapshot.KeyDelimiter); err != nil {
		return nil, fmt.Errorf("invalid model %q: %w", cfg.Entity, err)
	}
	cfg.IdentityField = cfg.identityField()
	cfg.Indexes = append([]Index(nil), cfg.Indexes...)
	for i := range cfg.Indexes {
		cfg.Indexes[i].Projections = append([]string(nil), cfg.Indexes[i].Projections...)
	}

	keys := keyBuilder{
		tenant:        snapshot.Tenant,
		entity:        cfg.Entity,
		delimiter:     snapshot.KeyDelimiter,
		identityField: cfg.IdentityField,
	}
	m := &Model{
		table:  snapshot,
		config: cfg,
		keys:   keys,
		codec:  itemCodec{keys: keys, gsik: cfg.GSIK},
		exprs:  expressionBuilder{identityField: cfg.IdentityField, gsik: cfg.GSIK},
		log:    snapshot.Logger.With(zap.String("entity", cfg.Entity)),
	}
	if tp, ok := m.table.Paginator.(*TablePaginator); ok && tp.table == t {
		m.table.Paginator = NewTablePaginator(&m.table)
	}
	m.tracker = indexTracker{m: m}
	return m, nil
}
