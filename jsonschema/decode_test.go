package jsonschema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodePropertyOrder(t *testing.T) {
	schema, err := Decode([]byte(`{
		"type": "object",
		"properties": {
			"steps": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"explanation": {"type": "string"},
						"output": {"type": "string"}
					}
				}
			},
			"final_answer": {"type": "string"}
		}
	}`))
	if err != nil {
		t.Fatal(err)
	}

	if schema.Name != "root" {
		t.Errorf("root name = %q", schema.Name)
	}
	if diff := cmp.Diff([]string{"steps", "final_answer"}, schema.PropertyNames()); diff != "" {
		t.Errorf("property order (-want +got):\n%s", diff)
	}

	items := schema.Properties[0].Items
	if items == nil {
		t.Fatal("steps.items missing")
	}
	if diff := cmp.Diff([]string{"explanation", "output"}, items.PropertyNames()); diff != "" {
		t.Errorf("nested property order (-want +got):\n%s", diff)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{"properties": `)); err == nil {
		t.Error("expected error for truncated schema")
	}
}

func TestPropertyNamesNil(t *testing.T) {
	var s *Schema
	if got := s.PropertyNames(); got != nil {
		t.Errorf("nil schema names = %v", got)
	}

	if got := (&Schema{Type: "string"}).PropertyNames(); got != nil {
		t.Errorf("scalar schema names = %v", got)
	}
}

func TestEffectiveType(t *testing.T) {
	cases := []struct {
		name   string
		schema *Schema
		want   string
	}{
		{"explicit", &Schema{Type: "integer"}, "integer"},
		{"inferred object", &Schema{Properties: []*Schema{{Name: "a"}}}, "object"},
		{"inferred array", &Schema{Items: &Schema{}}, "array"},
		{"bare", &Schema{}, "value"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.schema.EffectiveType(); got != tt.want {
				t.Errorf("EffectiveType = %q, want %q", got, tt.want)
			}
		})
	}
}
