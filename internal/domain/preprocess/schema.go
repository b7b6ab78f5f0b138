package preprocess

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/spotcheck/internal/domain/model"
)

// Sentinel kinds for field schema failures.
var (
	ErrFieldMissing = errors.New("field is required but missing")
	ErrFieldKind    = errors.New("field has the wrong type")
	ErrFieldCheck   = errors.New("field failed custom validation")
	ErrNotObject    = errors.New("review is not an object")
)

// Kind is the primitive type of a JSON value.
type Kind int

// JSON value kinds.
const (
	KindMissing Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "undefined"
	}
}

// KindOf classifies a raw JSON value by its first significant byte.
func KindOf(v json.RawMessage) Kind {
	v = bytes.TrimLeft(v, " \t\r\n")
	if len(v) == 0 {
		return KindMissing
	}
	switch c := v[0]; {
	case c == '"':
		return KindString
	case c == '{':
		return KindObject
	case c == '[':
		return KindArray
	case c == 't' || c == 'f':
		return KindBool
	case c == 'n':
		return KindNull
	case c == '-' || (c >= '0' && c <= '9'):
		return KindNumber
	default:
		return KindMissing
	}
}

// FieldSpec describes one required field: its name, its kind and an optional predicate.
type FieldSpec struct {
	Name  string
	Kind  Kind
	Check func(v json.RawMessage) bool
}

// Schema is an ordered list of field descriptors. Fields are checked in order
// and the first failure stops the check for that object.
type Schema []FieldSpec

// ReviewSchema is the schema every submitted review must satisfy for fid.
func ReviewSchema(fid string) Schema {
	return Schema{
		{Name: "reviewerId", Kind: KindString},
		{Name: "reviewerUrl", Kind: KindString},
		{Name: "reviewerName", Kind: KindString},
		{Name: "reviewId", Kind: KindString},
		{Name: "reviewUrl", Kind: KindString},
		{Name: "publishedAtDate", Kind: KindString},
		{Name: "placeId", Kind: KindString},
		{Name: "cid", Kind: KindString},
		{Name: "fid", Kind: KindString},
		{Name: "totalScore", Kind: KindNumber},
		{Name: "fid", Kind: KindString, Check: equalsString(fid)},
	}
}

// Validate checks f against the schema.
func (s Schema) Validate(f model.Fields) error {
	if f == nil {
		return ErrNotObject
	}
	for _, field := range s {
		v, ok := f[field.Name]
		if !ok {
			return fmt.Errorf("%s: %w", field.Name, ErrFieldMissing)
		}
		if got := KindOf(v); got != field.Kind {
			return fmt.Errorf("%s should be %s but is %s: %w", field.Name, field.Kind, got, ErrFieldKind)
		}
		if field.Check != nil && !field.Check(v) {
			return fmt.Errorf("%s: %w", field.Name, ErrFieldCheck)
		}
	}
	return nil
}

// equalsString matches a JSON string exactly equal to want (case-sensitive, untrimmed).
func equalsString(want string) func(json.RawMessage) bool {
	return func(v json.RawMessage) bool {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return false
		}
		return s == want
	}
}
