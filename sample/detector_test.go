package sample

import "testing"

func TestDefaultDetector(t *testing.T) {
	d := DefaultDetector()

	cases := []struct {
		name string
		text string
		want Context
		ok   bool
	}{
		{"java file", "complete Main.java", ContextCodeCompletion, true},
		{"function keyword", "function handleClick() {", ContextCodeCompletion, true},
		{"python def", "def parse(line):", ContextCodeCompletion, true},
		{"json request", "produce json for the config", ContextJSONGeneration, true},
		{"open brace", `{"name": `, ContextJSONGeneration, true},
		{"variable decl", "int counte", ContextVariableName, true},
		{"method decl", "public get", ContextFunctionName, true},
		{"javadoc", "/** Returns the", ContextDocumentation, true},
		{"line comment", "// explain this", ContextDocumentation, true},
		{"plain prose", "tell me a story", "", false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Detect(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Detect(%q) = (%q, %t), want (%q, %t)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDetectorPrecedence(t *testing.T) {
	d := DefaultDetector()

	// matches both the code and documentation rules; earlier rule wins
	got, ok := d.Detect("class Foo // with comment")
	if !ok || got != ContextCodeCompletion {
		t.Errorf("Detect = (%q, %t), want (%q, true)", got, ok, ContextCodeCompletion)
	}
}

func TestDetectorAddOrder(t *testing.T) {
	d := NewDetector()
	d.Add(ContextDebugging, func(string) bool { return true })
	d.Add(ContextGeneral, func(string) bool { return true })

	if got, _ := d.Detect("anything"); got != ContextDebugging {
		t.Errorf("Detect = %q, want %q", got, ContextDebugging)
	}
}
