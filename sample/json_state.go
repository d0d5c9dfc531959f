package sample

import "fmt"

// State is one phase of the JSON generation state machine.
type State int

const (
	StateObjectStart State = iota // before any structural open
	StateObjectKey                // expecting or typing a key name
	StateObjectColon              // key finished, expecting :
	StateObjectValue              // after :, expecting a value
	StateObjectComma              // value finished, expecting , or }
	StateArrayStart               // after [, before the first element
	StateArrayValue               // expecting an array element
	StateArrayComma               // element finished, expecting , or ]
	StateStringValue              // inside a string literal
	StateNumberValue              // building a number
	StateBooleanValue             // building true/false
	StateNullValue                // building null
	StateComplete                 // nesting returned to depth 0
)

func (s State) String() string {
	switch s {
	case StateObjectStart:
		return "ObjectStart"
	case StateObjectKey:
		return "ObjectKey"
	case StateObjectColon:
		return "ObjectColon"
	case StateObjectValue:
		return "ObjectValue"
	case StateObjectComma:
		return "ObjectComma"
	case StateArrayStart:
		return "ArrayStart"
	case StateArrayValue:
		return "ArrayValue"
	case StateArrayComma:
		return "ArrayComma"
	case StateStringValue:
		return "StringValue"
	case StateNumberValue:
		return "NumberValue"
	case StateBooleanValue:
		return "BooleanValue"
	case StateNullValue:
		return "NullValue"
	case StateComplete:
		return "Complete"
	default:
		return fmt.Sprintf("Unknown state: %d", int(s))
	}
}

// Structural reports whether the state expects punctuation rather than
// literal content. Structural positions run the tight low-temperature
// profile; everything else runs the content profile.
func (s State) Structural() bool {
	switch s {
	case StateObjectStart, StateObjectColon, StateObjectComma, StateArrayStart, StateArrayComma:
		return true
	}
	return false
}
