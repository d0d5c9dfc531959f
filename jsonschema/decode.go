// Package jsonschema decodes the subset of JSON Schema used to bias key
// suggestions during structured generation: property names, nested object
// shapes, and enums. Unknown fields are ignored, like llama.cpp does.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Schema holds a JSON schema.
type Schema struct {
	// Name is the name of the property. For the parent/root property,
	// this is "root". For child properties, this is the key of the
	// property.
	Name string `json:"-"`

	// Type is the type of the property.
	Type string

	// Properties is the schema for each property of an object, in the
	// order they were defined.
	Properties []*Schema

	// Items is the schema for each item in a list.
	Items *Schema

	// Enum is a list of valid values for the property.
	Enum []json.RawMessage
}

// Decode parses schema text. The error distinguishes malformed text so
// callers can degrade to no-schema mode.
func Decode(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.Name = "root"
	return &s, nil
}

// PropertyNames returns the object property names in definition order, or
// nil when the schema does not describe an object.
func (s *Schema) PropertyNames() []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}
	return names
}

// EffectiveType returns the effective type of the schema: the Type field if
// set, otherwise "object" or "array" inferred from Properties or Items, and
// "value" when neither is present.
func (s *Schema) EffectiveType() string {
	if s.Type == "" {
		if len(s.Properties) > 0 {
			return "object"
		}
		if s.Items != nil {
			return "array"
		}
		return "value"
	}
	return s.Type
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	type S Schema
	w := struct {
		Properties props
		*S
	}{
		S: (*S)(s),
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Properties = w.Properties
	return nil
}

// props is an ordered list of properties. The order of the properties is
// the order in which they were defined in the schema.
type props []*Schema

var _ json.Unmarshaler = (*props)(nil)

func (v *props) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] != '{' {
		return errors.New("expected object")
	}

	d := json.NewDecoder(bytes.NewReader(data))

	t, err := d.Token()
	if err != nil {
		return err
	}
	if t != json.Delim('{') {
		return errors.New("expected object")
	}
	for d.More() {
		// Use the map key as the property name, then decode the rest
		// of the object fields into a Schema and append.
		t, err := d.Token()
		if err != nil {
			return err
		}
		if t == json.Delim('}') {
			return nil
		}
		s := &Schema{
			Name: t.(string),
		}
		if err := d.Decode(s); err != nil {
			return err
		}
		*v = append(*v, s)
	}
	return nil
}
