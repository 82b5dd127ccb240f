package dynamock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nisimpson/dynashadow"
)

// SeedFromJSON reads a JSON array of flat objects and creates one record per
// object through the seeder's model, in document order. Field order inside
// each object is kept. Objects must only hold strings, numbers, booleans and
// nulls. Returns the number of records created and any error generated.
//
//	[
//	  {"id": "u1", "name": "Ann", "email": "ann@mail.com"},
//	  {"id": "u2", "name": "Bob", "email": "bob@mail.com"}
//	]
func (s *SeedTestData) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	var document []json.RawMessage
	if err := json.NewDecoder(r).Decode(&document); err != nil {
		return 0, fmt.Errorf("failed to parse JSON document: %w", err)
	}

	records := make([]*dynashadow.Record, 0, len(document))
	for i, raw := range document {
		rec := dynashadow.NewRecord()
		if err := rec.UnmarshalJSON(raw); err != nil {
			return 0, fmt.Errorf("failed to convert object at index %d: %w", i, err)
		}
		records = append(records, rec)
	}

	count := 0
	for i, rec := range records {
		if _, err := s.SeedRecord(ctx, rec); err != nil {
			return count, fmt.Errorf("failed to seed object at index %d: %w", i, err)
		}
		count++
	}

	return count, nil
}
