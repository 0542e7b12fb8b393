package doc

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// Type tags the variant held by a Value.
type Type int

const (
	NullType Type = iota
	BoolType
	NumberType
	StringType
	ArrayType
	ObjectType
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Value is a JSON-shaped tagged union. Which fields are meaningful depends
// on Type: String for strings, Bool for booleans, Number (the literal text)
// for numbers, Values for arrays, and the parallel Fields/Values slices for
// objects. Object fields are kept sorted.
//
// Values are never modified after construction, so they may be shared
// freely between documents and between store snapshots.
type Value struct {
	Type   Type
	Fields []string
	Values []*Value

	String string
	Bool   bool
	Number string
}

var null = &Value{Type: NullType}

func Null() *Value {
	return null
}

func FromString(v string) *Value {
	return &Value{Type: StringType, String: v}
}

func FromBool(v bool) *Value {
	return &Value{Type: BoolType, Bool: v}
}

func FromInt(v int64) *Value {
	return &Value{Type: NumberType, Number: strconv.FormatInt(v, 10)}
}

func FromFloat(f float64) *Value {
	return &Value{Type: NumberType, Number: strconv.FormatFloat(f, 'g', -1, 64)}
}

func FromNumber(n json.Number) *Value {
	return &Value{Type: NumberType, Number: string(n)}
}

func FromSlice(vs []*Value) *Value {
	return &Value{Type: ArrayType, Values: vs}
}

// FromMap builds an object value with fields sorted by key.
func FromMap(m map[string]*Value) *Value {
	res := &Value{
		Type:   ObjectType,
		Fields: slices.Sorted(maps.Keys(m)),
	}
	res.Values = make([]*Value, len(res.Fields))
	for i, k := range res.Fields {
		v := m[k]
		if v == nil {
			v = null
		}
		res.Values[i] = v
	}
	return res
}

// FromAny converts the output of a JSON decoder (or equivalent Go values)
// to a Value.
func FromAny(x any) (*Value, error) {
	switch v := x.(type) {
	case nil:
		return null, nil
	case *Value:
		if v == nil {
			return null, nil
		}
		return v, nil
	case Document:
		return v.Value(), nil
	case bool:
		return FromBool(v), nil
	case string:
		return FromString(v), nil
	case json.Number:
		return FromNumber(v), nil
	case float64:
		return FromFloat(v), nil
	case float32:
		return FromFloat(float64(v)), nil
	case int:
		return FromInt(int64(v)), nil
	case int64:
		return FromInt(v), nil
	case []any:
		vs := make([]*Value, len(v))
		for i := range v {
			elt, err := FromAny(v[i])
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			vs[i] = elt
		}
		return FromSlice(vs), nil
	case map[string]any:
		m := make(map[string]*Value, len(v))
		for k, fv := range v {
			elt, err := FromAny(fv)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = elt
		}
		return FromMap(m), nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", x)
}

// Interface returns the plain Go rendering of v: nil, bool, string,
// json.Number, []any or map[string]any.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.Type {
	case BoolType:
		return v.Bool
	case StringType:
		return v.String
	case NumberType:
		return json.Number(v.Number)
	case ArrayType:
		res := make([]any, len(v.Values))
		for i, elt := range v.Values {
			res[i] = elt.Interface()
		}
		return res
	case ObjectType:
		res := make(map[string]any, len(v.Fields))
		for i, f := range v.Fields {
			res[f] = v.Values[i].Interface()
		}
		return res
	}
	return nil
}

// Get returns the value of field in an object, or nil when v is not an
// object or has no such field.
func (v *Value) Get(field string) *Value {
	if v == nil || v.Type != ObjectType {
		return nil
	}
	i, ok := slices.BinarySearch(v.Fields, field)
	if !ok {
		return nil
	}
	return v.Values[i]
}

// Int64 returns the integer held by a number value.
func (v *Value) Int64() (int64, bool) {
	if v == nil || v.Type != NumberType {
		return 0, false
	}
	i, err := strconv.ParseInt(v.Number, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Float64 returns the number held by v as a float64.
func (v *Value) Float64() (float64, bool) {
	if v == nil || v.Type != NumberType {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Number, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Equal reports whether a and b hold the same value. Numbers are equal when
// their literals are equal or they parse to the same float64.
func Equal(a, b *Value) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case NullType:
		return true
	case BoolType:
		return a.Bool == b.Bool
	case StringType:
		return a.String == b.String
	case NumberType:
		if a.Number == b.Number {
			return true
		}
		fa, okA := a.Float64()
		fb, okB := b.Float64()
		return okA && okB && fa == fb
	case ArrayType:
		return slices.EqualFunc(a.Values, b.Values, Equal)
	case ObjectType:
		return slices.Equal(a.Fields, b.Fields) && slices.EqualFunc(a.Values, b.Values, Equal)
	}
	return false
}
