package doc

import (
	"fmt"
	"slices"
)

// Reserved document fields.
const (
	IDField      = "_id"
	RevField     = "_rev"
	DeletedField = "_deleted"
)

// Document is an object value with typed access to the reserved fields.
// The zero Document is an empty object.
//
// Documents are values: With and Without return new documents sharing
// every untouched field with the receiver.
type Document struct {
	root *Value
}

var emptyObject = &Value{Type: ObjectType}

// New builds a document from a field map.
func New(fields map[string]*Value) Document {
	return Document{root: FromMap(fields)}
}

// FromValue wraps an object value as a document.
func FromValue(v *Value) (Document, error) {
	if v == nil {
		return Document{}, nil
	}
	if v.Type != ObjectType {
		return Document{}, fmt.Errorf("document must be an object, got %s", v.Type)
	}
	return Document{root: v}, nil
}

// Value returns the object value of d.
func (d Document) Value() *Value {
	if d.root == nil {
		return emptyObject
	}
	return d.root
}

func (d Document) Len() int {
	return len(d.Value().Fields)
}

// Fields returns the field names of d in sorted order.
func (d Document) Fields() []string {
	return slices.Clone(d.Value().Fields)
}

func (d Document) Get(field string) *Value {
	return d.Value().Get(field)
}

func (d Document) Has(field string) bool {
	return d.Get(field) != nil
}

// ID returns the _id of d when present and a string.
func (d Document) ID() (string, bool) {
	return d.stringField(IDField)
}

// Rev returns the _rev of d when present and a string.
func (d Document) Rev() (string, bool) {
	return d.stringField(RevField)
}

// Deleted reports whether d is a tombstone.
func (d Document) Deleted() bool {
	v := d.Get(DeletedField)
	return v != nil && v.Type == BoolType && v.Bool
}

func (d Document) stringField(field string) (string, bool) {
	v := d.Get(field)
	if v == nil || v.Type != StringType {
		return "", false
	}
	return v.String, true
}

// With returns a copy of d with field set to v.
func (d Document) With(field string, v *Value) Document {
	if v == nil {
		v = null
	}
	src := d.Value()
	i, found := slices.BinarySearch(src.Fields, field)
	res := &Value{Type: ObjectType}
	if found {
		res.Fields = src.Fields
		res.Values = slices.Clone(src.Values)
		res.Values[i] = v
		return Document{root: res}
	}
	res.Fields = slices.Insert(slices.Clone(src.Fields), i, field)
	res.Values = slices.Insert(slices.Clone(src.Values), i, v)
	return Document{root: res}
}

// Without returns a copy of d lacking field.
func (d Document) Without(field string) Document {
	src := d.Value()
	i, found := slices.BinarySearch(src.Fields, field)
	if !found {
		return d
	}
	return Document{root: &Value{
		Type:   ObjectType,
		Fields: slices.Delete(slices.Clone(src.Fields), i, i+1),
		Values: slices.Delete(slices.Clone(src.Values), i, i+1),
	}}
}

// Map returns the plain Go rendering of d.
func (d Document) Map() map[string]any {
	return d.Value().Interface().(map[string]any)
}

// Equal reports whether a and b hold the same fields and values.
func (d Document) Equal(o Document) bool {
	return Equal(d.Value(), o.Value())
}
