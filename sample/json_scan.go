package sample

import "regexp"

type frameKind byte

const (
	frameObject frameKind = '{'
	frameArray  frameKind = '['
)

type framePhase byte

const (
	phaseKey framePhase = iota
	phaseValue
)

// frame marks one open structural context and, for objects, whether the
// cursor sits before or after the key of the current member.
type frame struct {
	kind  frameKind
	phase framePhase
}

type scanEvent int

const (
	evNone scanEvent = iota
	evOpenObject
	evOpenArray
	evColon
	evComma
	evKeyString   // string literal closed in key position
	evValueString // string literal closed in value position
	evCloseContainer
	evLiteral // bare literal is the trailing token
)

// scanResult is everything deriveState needs, recomputed from the whole
// buffer: the open-container stack, string position, the last significant
// lexical event, and any trailing bare literal. Token boundaries from the
// model do not line up with JSON lexical boundaries, so no state is carried
// between scans.
type scanResult struct {
	frames     []frame
	inString   bool
	keyString  bool
	event      scanEvent
	literal    string
	opened     int
	overClosed bool
}

func (r *scanResult) top() *frame {
	if len(r.frames) == 0 {
		return nil
	}
	return &r.frames[len(r.frames)-1]
}

func scanBuffer(text string) scanResult {
	var res scanResult
	var escaped bool
	var lit []rune

	for _, r := range text {
		if res.inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				res.inString = false
				if res.keyString {
					res.event = evKeyString
				} else {
					res.event = evValueString
				}
			}
			continue
		}

		switch r {
		case '"':
			top := res.top()
			res.inString = true
			res.keyString = top != nil && top.kind == frameObject && top.phase == phaseKey
			lit = lit[:0]
		case '{':
			res.frames = append(res.frames, frame{kind: frameObject, phase: phaseKey})
			res.opened++
			res.event = evOpenObject
			lit = lit[:0]
		case '[':
			res.frames = append(res.frames, frame{kind: frameArray, phase: phaseValue})
			res.opened++
			res.event = evOpenArray
			lit = lit[:0]
		case '}':
			if top := res.top(); top != nil && top.kind == frameObject {
				res.frames = res.frames[:len(res.frames)-1]
			} else {
				res.overClosed = true
			}
			res.event = evCloseContainer
			lit = lit[:0]
		case ']':
			if top := res.top(); top != nil && top.kind == frameArray {
				res.frames = res.frames[:len(res.frames)-1]
			} else {
				res.overClosed = true
			}
			res.event = evCloseContainer
			lit = lit[:0]
		case ':':
			if top := res.top(); top != nil && top.kind == frameObject {
				top.phase = phaseValue
			}
			res.event = evColon
			lit = lit[:0]
		case ',':
			if top := res.top(); top != nil && top.kind == frameObject {
				top.phase = phaseKey
			}
			res.event = evComma
			lit = lit[:0]
		case ' ', '\t', '\n', '\r':
			if len(lit) > 0 {
				res.event = evLiteral
				res.literal = string(lit)
				lit = lit[:0]
			}
		default:
			lit = append(lit, r)
			res.event = evLiteral
		}
	}

	if len(lit) > 0 {
		res.literal = string(lit)
	}
	return res
}

var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?$`)

// deriveState maps the scan of the whole buffer to a machine state. An
// over-closed buffer keeps the previous state; validity reporting is the
// prefix check's job.
func deriveState(prev State, res scanResult) State {
	if res.overClosed {
		return prev
	}

	if res.inString {
		if res.keyString {
			return StateObjectKey
		}
		return StateStringValue
	}

	switch res.event {
	case evNone:
		return StateObjectStart
	case evOpenObject:
		return StateObjectKey
	case evOpenArray:
		return StateArrayStart
	case evColon:
		return StateObjectValue
	case evComma:
		if top := res.top(); top != nil && top.kind == frameArray {
			return StateArrayValue
		}
		return StateObjectKey
	case evKeyString:
		return StateObjectColon
	case evValueString, evCloseContainer:
		return afterValue(res)
	case evLiteral:
		return literalState(prev, res)
	}
	return prev
}

// afterValue is the state once a value has syntactically completed: a comma
// state inside a container, Complete when nesting has returned to depth 0
// after at least one structural open.
func afterValue(res scanResult) State {
	top := res.top()
	switch {
	case top == nil:
		if res.opened > 0 {
			return StateComplete
		}
		return StateObjectStart
	case top.kind == frameArray:
		return StateArrayComma
	default:
		return StateObjectComma
	}
}

func literalState(prev State, res scanResult) State {
	lit := res.literal

	// complete literals count as finished values even though numbers could
	// still grow
	if lit == "true" || lit == "false" || lit == "null" || numberPattern.MatchString(lit) {
		return afterValue(res)
	}

	switch {
	case prefixOf(lit, "true") || prefixOf(lit, "false"):
		return StateBooleanValue
	case prefixOf(lit, "null"):
		return StateNullValue
	case partialNumber(lit):
		return StateNumberValue
	}

	// unquoted garbage: report the enclosing value position
	top := res.top()
	switch {
	case top == nil:
		return StateObjectStart
	case top.kind == frameArray:
		return StateArrayValue
	case top.phase == phaseKey:
		return StateObjectKey
	default:
		return StateObjectValue
	}
}

func prefixOf(s, full string) bool {
	return len(s) > 0 && len(s) < len(full) && full[:len(s)] == s
}

var partialNumberPattern = regexp.MustCompile(`^-?\d*\.?\d*([eE][+-]?\d*)?$`)

func partialNumber(s string) bool {
	return len(s) > 0 && partialNumberPattern.MatchString(s)
}

// validPrefix reports whether text could still become well-formed JSON given
// more tokens: a closing bracket driving a balance counter negative signals
// an over-closed prefix; a balanced-but-unterminated prefix is fine.
func validPrefix(text string) bool {
	var openBraces, openBrackets int
	var inString, escaped bool

	for _, r := range text {
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case '{':
			openBraces++
		case '}':
			openBraces--
		case '[':
			openBrackets++
		case ']':
			openBrackets--
		}
		if openBraces < 0 || openBrackets < 0 {
			return false
		}
	}
	return true
}
