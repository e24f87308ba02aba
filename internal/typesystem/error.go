package typesystem

import "fmt"

// ErrorKind classifies type errors.
type ErrorKind int

const (
	TypeMismatch ErrorKind = iota
	OccursCheckFailure
	UnboundVariable
	ArityMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case OccursCheckFailure:
		return "occurs check failure"
	case UnboundVariable:
		return "unbound variable"
	case ArityMismatch:
		return "arity mismatch"
	}
	return "type error"
}

// TypeError is the failure result of inference. Line and Column locate the
// offending expression; they are filled in by the inferencer when the
// failing unification has no position of its own.
type TypeError struct {
	Kind     ErrorKind
	Line     int
	Column   int
	Expected string
	Got      string
	Name     string // offending variable name for UnboundVariable
	Detail   string
}

func (e *TypeError) Error() string {
	pos := ""
	if e.Line > 0 {
		pos = fmt.Sprintf(" at %d:%d", e.Line, e.Column)
	}
	switch e.Kind {
	case TypeMismatch:
		return fmt.Sprintf("type mismatch%s: expected %s, got %s", pos, e.Expected, e.Got)
	case OccursCheckFailure:
		return fmt.Sprintf("infinite type%s: %s occurs in %s", pos, e.Name, e.Got)
	case UnboundVariable:
		return fmt.Sprintf("unbound variable%s: %s", pos, e.Name)
	case ArityMismatch:
		return fmt.Sprintf("arity mismatch%s: %s", pos, e.Detail)
	}
	return fmt.Sprintf("type error%s: %s", pos, e.Detail)
}

func mismatch(expected, got Type) *TypeError {
	return &TypeError{Kind: TypeMismatch, Expected: expected.String(), Got: got.String()}
}
