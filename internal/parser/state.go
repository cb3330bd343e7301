package parser

import "fmt"

// State is a lexer state. States nest: entering a quote or a variable pushes
// a state and leaving it returns to whichever state was active before.
type State int

const (
	StateDefault State = iota
	StateSingleQuote
	StateDoubleQuote
	StateRedirectDecider
	StateRedirectAppend
	StateRedirectError
	StateRedirectOut
	StateEnvVariable
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "Default"
	case StateSingleQuote:
		return "SingleQuote"
	case StateDoubleQuote:
		return "DoubleQuote"
	case StateRedirectDecider:
		return "RedirectDecider"
	case StateRedirectAppend:
		return "RedirectAppend"
	case StateRedirectError:
		return "RedirectError"
	case StateRedirectOut:
		return "RedirectOut"
	case StateEnvVariable:
		return "EnvVariable"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) isRedirect() bool {
	return s == StateRedirectAppend || s == StateRedirectError || s == StateRedirectOut
}

// stack holds the active states, innermost last. The base Default state is
// never removed.
type stack struct {
	states []State
}

func newStack() *stack {
	return &stack{states: []State{StateDefault}}
}

func (s *stack) top() State {
	return s.states[len(s.states)-1]
}

func (s *stack) push(state State) {
	s.states = append(s.states, state)
}

// pop removes the innermost state. Removing the base state means the lexer
// lost track of its nesting, which is a bug rather than bad input.
func (s *stack) pop() State {
	if len(s.states) <= 1 {
		panic(fmt.Sprintf("parser: cannot pop base state %s", s.top()))
	}
	top := s.top()
	s.states = s.states[:len(s.states)-1]
	return top
}

// replace swaps the innermost state for another one.
func (s *stack) replace(state State) {
	s.pop()
	s.push(state)
}

func (s *stack) depth() int {
	return len(s.states)
}
