package dynashadow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is a named Value.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for Field{Name: name, Value: v}.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Record is the domain representation of an entity: an ordered set of
// uniquely named fields. Field order is the order in which fields were first
// set, and it drives the order of generated update expressions.
//
// Read methods are safe on a nil *Record.
type Record struct {
	fields []Field
}

// NewRecord returns a Record holding fields. Later duplicates replace the
// value of earlier ones.
func NewRecord(fields ...Field) *Record {
	r := &Record{fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

func (r *Record) indexOf(name string) int {
	if r == nil {
		return -1
	}
	for i, f := range r.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (Value, bool) {
	if i := r.indexOf(name); i >= 0 {
		return r.fields[i].Value, true
	}
	return Value{}, false
}

// Has reports whether the named field is set.
func (r *Record) Has(name string) bool {
	return r.indexOf(name) >= 0
}

// Set assigns v to the named field, keeping its position when it already
// exists. It returns r to allow chaining.
func (r *Record) Set(name string, v Value) *Record {
	if i := r.indexOf(name); i >= 0 {
		r.fields[i].Value = v
		return r
	}
	r.fields = append(r.fields, Field{Name: name, Value: v})
	return r
}

// Delete removes the named field and reports whether it was set.
func (r *Record) Delete(name string) bool {
	i := r.indexOf(name)
	if i < 0 {
		return false
	}
	r.fields = append(r.fields[:i], r.fields[i+1:]...)
	return true
}

// Fields returns a copy of the fields in order.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns the field names in order.
func (r *Record) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Clone returns a copy of r.
func (r *Record) Clone() *Record {
	return &Record{fields: r.Fields()}
}

// Merge sets every field of other on r and returns r.
func (r *Record) Merge(other *Record) *Record {
	if other == nil {
		return r
	}
	for _, f := range other.fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Equal reports whether r and other hold the same fields and values,
// regardless of order.
func (r *Record) Equal(other *Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	for _, f := range r.Fields() {
		v, ok := other.Get(f.Name)
		if !ok || !v.Equal(f.Value) {
			return false
		}
	}
	return true
}

// String returns the JSON text of r.
func (r *Record) String() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid record: %v>", err)
	}
	return string(data)
}

// MarshalJSON encodes r as a JSON object with fields in order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := marshalJSON(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of scalars, keeping the document order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	r.fields = nil
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		r.Set(name, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// placeholderSafe reports whether name can be used verbatim in an expression
// attribute placeholder.
func placeholderSafe(name string) bool {
	if name == "" {
		return false
	}
	return strings.IndexFunc(name, func(c rune) bool {
		return !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'))
	}) < 0
}
