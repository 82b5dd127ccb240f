package dynashadow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a scalar field value: a string, a number, a boolean or null.
// Numbers are kept as decimal text so they survive JSON and DynamoDB round
// trips without losing precision. The zero Value is null.
type Value struct {
	kind Kind
	text string // string contents or number text
	b    bool
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Int returns a number Value holding i.
func Int(i int64) Value { return Value{kind: KindNumber, text: strconv.FormatInt(i, 10)} }

// Number returns a number Value holding f. NaN and the infinities have no
// JSON or DynamoDB number form; they yield the null Value. Use ValueOf to get
// an error instead.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

func finiteNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("invalid number %v", f)
	}
	return Number(f), nil
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Null returns the null Value.
func Null() Value { return Value{} }

// ParseNumber returns a number Value from its decimal text.
func ParseNumber(text string) (Value, error) {
	if !isNumberText(text) {
		return Value{}, fmt.Errorf("invalid number %q", text)
	}
	return Value{kind: KindNumber, text: text}, nil
}

// ValueOf converts a Go scalar into a Value. Supported inputs are nil, Value,
// string, bool, the integer and float types, and json.Number. NaN and the
// infinities are rejected.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Value{kind: KindNumber, text: strconv.FormatUint(uint64(t), 10)}, nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Value{kind: KindNumber, text: strconv.FormatUint(t, 10)}, nil
	case float32:
		return finiteNumber(float64(t))
	case float64:
		return finiteNumber(t)
	case json.Number:
		return ParseNumber(string(t))
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustValueOf is like ValueOf but panics on unsupported input.
func MustValueOf(v any) Value {
	val, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return val
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// String returns the JSON text of v.
func (v Value) String() string {
	data, _ := v.MarshalJSON()
	return string(data)
}

// AsString returns the string contents and whether v is a string.
func (v Value) AsString() (string, bool) {
	return v.text, v.kind == KindString
}

// AsBool returns the boolean and whether v is a boolean.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsFloat returns the number as a float64 and whether v is a number.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	return f, err == nil
}

// NumberText returns the decimal text of a number and whether v is a number.
func (v Value) NumberText() (string, bool) {
	return v.text, v.kind == KindNumber
}

// Interface returns v as a string, json.Number, bool or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.text
	case KindNumber:
		return json.Number(v.text)
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether v and o hold the same kind and value. Numbers compare
// numerically, so "1" equals "1.0".
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.text == o.text
	case KindNumber:
		if v.text == o.text {
			return true
		}
		a, aok := v.AsFloat()
		b, bok := o.AsFloat()
		return aok && bok && a == b
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// MarshalJSON implements json.Marshaler. HTML characters are not escaped.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return marshalJSON(v.text)
	case KindNumber:
		return []byte(v.text), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Only JSON scalars are accepted.
func (v *Value) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return errors.New("value is not valid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case json.Number:
		*v = Value{kind: KindNumber, text: t.String()}
	default:
		val, err := ValueOf(t)
		if err != nil {
			return errors.New("value is not a JSON scalar")
		}
		*v = val
	}
	return nil
}

// AttributeValue converts v into its DynamoDB attribute form.
func (v Value) AttributeValue() types.AttributeValue {
	switch v.kind {
	case KindString:
		return &types.AttributeValueMemberS{Value: v.text}
	case KindNumber:
		return &types.AttributeValueMemberN{Value: v.text}
	case KindBool:
		return &types.AttributeValueMemberBOOL{Value: v.b}
	default:
		return &types.AttributeValueMemberNULL{Value: true}
	}
}

// ValueFromAttribute converts a scalar DynamoDB attribute into a Value.
func ValueFromAttribute(av types.AttributeValue) (Value, error) {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return String(t.Value), nil
	case *types.AttributeValueMemberN:
		return Value{kind: KindNumber, text: t.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return Bool(t.Value), nil
	case *types.AttributeValueMemberNULL:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unsupported attribute type %T", av)
	}
}

func isNumberText(text string) bool {
	if text == "" || !(text[0] == '-' || (text[0] >= '0' && text[0] <= '9')) {
		return false
	}
	return json.Valid([]byte(text))
}

// marshalJSON encodes v like json.Marshal without escaping HTML characters.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
