package dynashadow

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Schema declares the entity types stored in a table. It is usually kept in a
// YAML file:
//
//	models:
//	  - entity: user
//	    gsik: name
//	    trackIndexes: true
//	    indexes:
//	      - name: email
//	        projections: [document]
//	      - name: document
type Schema struct {
	Models []ModelConfig `yaml:"models"`
}

// ParseSchema decodes a YAML schema and validates every model in it.
func ParseSchema(data []byte) (*Schema, error) {
	return LoadSchema(bytes.NewReader(data))
}

// LoadSchema reads a YAML schema from r and validates every model in it.
// Unknown keys are rejected.
func LoadSchema(r io.Reader) (*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	seen := make(map[string]struct{}, len(s.Models))
	for i, cfg := range s.Models {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		if _, dup := seen[cfg.Entity]; dup {
			return nil, validationErrorf("models", "entity %q is declared twice", cfg.Entity)
		}
		seen[cfg.Entity] = struct{}{}
	}
	return &s, nil
}

// Build returns a model for every entity of the schema, keyed by entity name.
func (s *Schema) Build(t *Table) (map[string]*Model, error) {
	models := make(map[string]*Model, len(s.Models))
	for _, cfg := range s.Models {
		m, err := t.Model(cfg)
		if err != nil {
			return nil, err
		}
		models[cfg.Entity] = m
	}
	return models, nil
}
