package doc

import (
	"bytes"
	"fmt"

	"github.com/segmentio/encoding/json"
)

func (v *Value) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(d []byte) error {
	res, err := ParseValue(d)
	if err != nil {
		return err
	}
	*v = *res
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	return d.Value().MarshalJSON()
}

func (d *Document) UnmarshalJSON(data []byte) error {
	res, err := Parse(data)
	if err != nil {
		return err
	}
	*d = res
	return nil
}

// Parse decodes a JSON object into a document. Numbers keep their literal
// form.
func Parse(data []byte) (Document, error) {
	x, err := decodeAny(data)
	if err != nil {
		return Document{}, err
	}
	v, err := FromAny(x)
	if err != nil {
		return Document{}, err
	}
	return FromValue(v)
}

// ParseValue decodes any JSON value.
func ParseValue(data []byte) (*Value, error) {
	x, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	return FromAny(x)
}

func decodeAny(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return x, nil
}
