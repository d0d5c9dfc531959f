package sample

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestSession(t *testing.T, mode Mode, schema []byte) *Session {
	t.Helper()
	s, err := NewSession(NewInprocessBackend(), mode, schema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionStateWalk(t *testing.T) {
	s := newTestSession(t, ModeFlexible, nil)

	steps := []struct {
		token string
		want  State
	}{
		{`{`, StateObjectKey},
		{`"k"`, StateObjectColon},
		{`:`, StateObjectValue},
		{`1`, StateObjectComma},
		{`}`, StateComplete},
	}

	if s.State() != StateObjectStart {
		t.Fatalf("initial state = %v, want ObjectStart", s.State())
	}
	for _, step := range steps {
		if ok := s.ProcessToken(step.token); !ok {
			t.Fatalf("token %q reported invalid", step.token)
		}
		if s.State() != step.want {
			t.Fatalf("after %q: state = %v, want %v", step.token, s.State(), step.want)
		}
	}
}

func TestSessionSplitTokens(t *testing.T) {
	// model token boundaries do not respect JSON lexical boundaries
	s := newTestSession(t, ModeFlexible, nil)

	for _, tok := range []string{`{"na`, `me": "al`, `ice", "ok": tr`} {
		if !s.ProcessToken(tok) {
			t.Fatalf("token %q reported invalid", tok)
		}
	}
	if s.State() != StateBooleanValue {
		t.Errorf("state = %v, want BooleanValue", s.State())
	}

	if !s.ProcessToken(`ue}`) {
		t.Fatal("final token reported invalid")
	}
	if s.State() != StateComplete {
		t.Errorf("state = %v, want Complete", s.State())
	}
}

func TestSessionOverClosedBuffer(t *testing.T) {
	s := newTestSession(t, ModeFlexible, nil)

	s.ProcessToken(`{"a": 1}`)
	before := s.State()

	if s.ProcessToken(`}`) {
		t.Error("over-closed buffer reported valid")
	}
	if s.State() != before {
		t.Errorf("over-close moved state to %v", s.State())
	}
}

func TestSessionValidity(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		valid bool
	}{
		{"empty", "", true},
		{"open object", `{"a": `, true},
		{"open string", `{"a": "unterminat`, true},
		{"complete", `{"a": [1, 2]}`, true},
		{"nested open", `{"a": {"b": [`, true},
		{"extra brace", `{"a": 1}}`, false},
		{"extra bracket", `[1]]`, false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, ModeFlexible, nil)
			s.ProcessToken(tt.text)
			if got := s.IsValidJSONSoFar(); got != tt.valid {
				t.Errorf("IsValidJSONSoFar(%q) = %t, want %t", tt.text, got, tt.valid)
			}
		})
	}
}

func TestSessionContextSwitching(t *testing.T) {
	s := newTestSession(t, ModeFlexible, nil)

	// ObjectStart is structural: the tight profile is active from the start
	if _, ctx := s.ActiveChain(); ctx != ContextJSONGeneration {
		t.Fatalf("initial context = %q, want %q", ctx, ContextJSONGeneration)
	}

	// inside a key the content profile takes over
	s.ProcessToken(`{"na`)
	if _, ctx := s.ActiveChain(); ctx != ContextGeneral {
		t.Errorf("mid-key context = %q, want %q", ctx, ContextGeneral)
	}

	// a finished key expects punctuation again
	s.ProcessToken(`me"`)
	if _, ctx := s.ActiveChain(); ctx != ContextJSONGeneration {
		t.Errorf("after key context = %q, want %q", ctx, ContextJSONGeneration)
	}
}

func TestSessionDepth(t *testing.T) {
	s := newTestSession(t, ModeFlexible, nil)

	s.ProcessToken(`{"a": [{"b": [`)
	if got := s.Depth(); got != 4 {
		t.Errorf("Depth = %d, want 4", got)
	}

	s.ProcessToken(`]}]}`)
	if got := s.Depth(); got != 0 {
		t.Errorf("Depth after close = %d, want 0", got)
	}
}

func TestSessionValidNextTokens(t *testing.T) {
	s := newTestSession(t, ModeFlexible, nil)

	if diff := cmp.Diff([]string{`"`}, s.ValidNextTokens()); diff != "" {
		t.Errorf("ObjectStart hints (-want +got):\n%s", diff)
	}

	s.ProcessToken(`{"k"`)
	if diff := cmp.Diff([]string{":"}, s.ValidNextTokens()); diff != "" {
		t.Errorf("ObjectColon hints (-want +got):\n%s", diff)
	}

	s.ProcessToken(`: 1}`)
	if got := s.ValidNextTokens(); got != nil {
		t.Errorf("Complete hints = %v, want nil", got)
	}
}

func TestSessionPartialModeHints(t *testing.T) {
	s := newTestSession(t, ModePartial, nil)

	hints := s.ValidNextTokens()
	found := false
	for _, h := range hints {
		if h == "}" {
			found = true
		}
	}
	if !found {
		t.Errorf("partial mode ObjectStart hints %v missing \"}\"", hints)
	}
}

func TestSessionPossibleKeysFromSchema(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"properties": {
			"title": {"type": "string"},
			"year": {"type": "integer"}
		}
	}`)
	s := newTestSession(t, ModeFlexible, schema)

	want := []string{"title", "year"}
	if diff := cmp.Diff(want, s.PossibleKeys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionPossibleKeysFallback(t *testing.T) {
	s := newTestSession(t, ModeFlexible, nil)
	if got := s.PossibleKeys(); len(got) == 0 {
		t.Error("no fallback keys without a schema")
	}
}

func TestSessionMalformedSchemaDegrades(t *testing.T) {
	s := newTestSession(t, ModeFlexible, []byte(`{not json`))
	if got := s.PossibleKeys(); len(got) == 0 {
		t.Error("malformed schema should fall back, not fail")
	}
}

func TestSessionReset(t *testing.T) {
	s := newTestSession(t, ModeFlexible, nil)

	s.ProcessToken(`{"a": [1,`)
	s.Reset()

	if s.State() != StateObjectStart {
		t.Errorf("state after Reset = %v", s.State())
	}
	if s.Depth() != 0 || s.Buffer() != "" {
		t.Errorf("Reset left depth %d, buffer %q", s.Depth(), s.Buffer())
	}
	if _, ctx := s.ActiveChain(); ctx != ContextJSONGeneration {
		t.Errorf("context after Reset = %q", ctx)
	}

	// idempotent
	s.Reset()
	if s.State() != StateObjectStart {
		t.Errorf("second Reset moved state to %v", s.State())
	}
}

func TestSessionCloseReleasesChains(t *testing.T) {
	backend := NewInprocessBackend()
	s, err := NewSession(backend, ModeFlexible, nil)
	if err != nil {
		t.Fatal(err)
	}

	if backend.Live() == 0 {
		t.Fatal("session registered no primitives")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := backend.Live(); got != 0 {
		t.Errorf("live primitives after Close = %d, want 0", got)
	}
	if err := s.Close(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("second Close = %v, want ErrSessionClosed", err)
	}
}

func TestParseMode(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Mode
	}{
		{"", ModeFlexible},
		{"flexible", ModeFlexible},
		{"Strict", ModeStrict},
		{"PARTIAL", ModePartial},
	} {
		got, err := ParseMode(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = (%v, %v), want %v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseMode("chaotic"); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("ParseMode(chaotic) err = %v, want ErrInvalidParam", err)
	}
}
