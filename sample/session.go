package sample

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/kherud/llama-sampling/jsonschema"
)

// Mode controls how strictly a session polices structure.
type Mode int

const (
	// ModeStrict requires output to match the supplied schema shape.
	ModeStrict Mode = iota
	// ModeFlexible allows properties beyond the schema. The default.
	ModeFlexible
	// ModePartial additionally admits empty objects and arrays in the
	// next-token hints.
	ModePartial
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeFlexible:
		return "flexible"
	case ModePartial:
		return "partial"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a config string to a Mode. Empty means flexible.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flexible":
		return ModeFlexible, nil
	case "strict":
		return ModeStrict, nil
	case "partial":
		return ModePartial, nil
	}
	return ModeFlexible, fmt.Errorf("%w: mode %q", ErrInvalidParam, s)
}

// fallback key vocabulary when no schema was supplied
var fallbackKeys = []string{"name", "id", "value", "type", "data", "status", "message"}

// Session tracks partially generated JSON and drives a context registry so
// the active chain tightens around punctuation and loosens around literal
// content.
//
// A session belongs to one generation task; it is not safe for concurrent
// use, and abandoning it without Close leaks the chains it registered.
type Session struct {
	registry *Registry
	mode     Mode
	schema   *jsonschema.Schema
	state    State
	stack    *arraystack.Stack
	buf      strings.Builder
	closed   bool
}

// NewSession builds a session with its own registry holding the structure
// profile under ContextJSONGeneration and the content profile under
// ContextGeneral. Malformed schema text degrades to no-schema mode rather
// than failing.
func NewSession(backend Backend, mode Mode, schemaJSON []byte) (*Session, error) {
	registry := NewRegistry(backend)
	if err := registry.Register(ContextJSONGeneration, jsonStructureSpecs()); err != nil {
		return nil, err
	}
	if err := registry.Register(ContextGeneral, jsonContentSpecs()); err != nil {
		registry.Close()
		return nil, err
	}

	var schema *jsonschema.Schema
	if len(schemaJSON) > 0 {
		parsed, err := jsonschema.Decode(schemaJSON)
		if err != nil {
			slog.Warn("ignoring malformed schema", "error", err)
		} else {
			schema = parsed
		}
	}

	s := &Session{
		registry: registry,
		mode:     mode,
		schema:   schema,
		state:    StateObjectStart,
		stack:    arraystack.New(),
	}
	s.syncContext()
	return s, nil
}

// ProcessToken appends tokenText to the buffer, recomputes the machine
// state from the whole buffer, switches the registry context for the new
// position, and reports whether the buffer is still a valid JSON prefix.
// The report is a soft signal: the caller decides whether to discard the
// token, halt, or retry.
func (s *Session) ProcessToken(tokenText string) bool {
	if s.closed {
		return false
	}

	s.buf.WriteString(tokenText)

	res := scanBuffer(s.buf.String())
	s.state = deriveState(s.state, res)

	s.stack.Clear()
	for _, f := range res.frames {
		s.stack.Push(f)
	}

	s.syncContext()
	return s.IsValidJSONSoFar()
}

// IsValidJSONSoFar reports whether the buffer parses as complete JSON or is
// at least a prefix that could still become well-formed. It never errors.
func (s *Session) IsValidJSONSoFar() bool {
	text := strings.TrimSpace(s.buf.String())
	if text == "" {
		return true
	}
	if json.Valid([]byte(text)) {
		return true
	}
	return validPrefix(text)
}

// ValidNextTokens returns the coarse admissible token classes for the
// current state. Advisory hinting only: nothing here constrains what the
// engine actually emits.
func (s *Session) ValidNextTokens() []string {
	switch s.state {
	case StateObjectStart:
		hints := []string{`"`}
		if s.mode == ModePartial {
			hints = append(hints, "}")
		}
		return hints
	case StateObjectKey:
		return s.PossibleKeys()
	case StateObjectColon:
		return []string{":"}
	case StateObjectValue:
		return valueStarters()
	case StateObjectComma:
		return []string{",", "}"}
	case StateArrayStart:
		hints := valueStarters()
		if s.mode == ModePartial {
			hints = append(hints, "]")
		}
		return hints
	case StateArrayValue:
		return valueStarters()
	case StateArrayComma:
		return []string{",", "]"}
	case StateComplete:
		return nil
	default:
		// mid-literal: any continuation
		return []string{"*"}
	}
}

func valueStarters() []string {
	return []string{`"`, "{", "[", "true", "false", "null",
		"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "-"}
}

// PossibleKeys returns the schema's property names when a schema was
// supplied, otherwise a small fixed vocabulary.
func (s *Session) PossibleKeys() []string {
	if keys := s.schema.PropertyNames(); len(keys) > 0 {
		return keys
	}
	return append([]string(nil), fallbackKeys...)
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Buffer() string {
	return s.buf.String()
}

// Depth returns the current structural nesting depth.
func (s *Session) Depth() int {
	return s.stack.Size()
}

func (s *Session) Mode() Mode {
	return s.mode
}

// Registry exposes the session's registry so callers can bind additional
// contexts or fetch the active chain for the next sampling step.
func (s *Session) Registry() *Registry {
	return s.registry
}

// ActiveChain returns the chain the machine currently selects.
func (s *Session) ActiveChain() (*Chain, Context) {
	return s.registry.Active()
}

// Reset clears the nesting stack and buffer, returns the machine to
// ObjectStart, and re-synchronizes the registry to the structure profile.
// Safe to call repeatedly.
func (s *Session) Reset() {
	if s.closed {
		return
	}
	s.state = StateObjectStart
	s.stack.Clear()
	s.buf.Reset()
	s.syncContext()
}

// Close releases the registry and every chain it owns. A second Close
// reports ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return s.registry.Close()
}

func (s *Session) syncContext() {
	if s.state.Structural() {
		s.registry.Switch(ContextJSONGeneration)
	} else {
		s.registry.Switch(ContextGeneral)
	}
}
