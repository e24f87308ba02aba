package vm

import "fmt"

// CompileError reports a problem turning the AST into bytecode.
type CompileError struct {
	Line   int
	Column int
	Msg    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

// ErrorKind classifies runtime failures.
type ErrorKind int

const (
	TypeMismatch ErrorKind = iota
	UnboundVariable
	ArityMismatch
	DivisionByZero
	NoMatch
	HostError
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case UnboundVariable:
		return "UnboundVariable"
	case ArityMismatch:
		return "ArityMismatch"
	case DivisionByZero:
		return "DivisionByZero"
	case NoMatch:
		return "NoMatch"
	case HostError:
		return "HostError"
	default:
		return "Unknown"
	}
}

// VMError is a runtime error detected at the instruction that needed
// the violated property. Line and Column locate the offending bytecode.
type VMError struct {
	Kind     ErrorKind
	Line     int
	Column   int
	Expected string
	Got      string
	Name     string
	Msg      string
	Err      error // wrapped host error for HostError
}

func (e *VMError) Error() string {
	pos := ""
	if e.Line > 0 {
		pos = fmt.Sprintf(" at %d:%d", e.Line, e.Column)
	}
	switch e.Kind {
	case TypeMismatch:
		return fmt.Sprintf("runtime error%s: type mismatch: expected %s, got %s", pos, e.Expected, e.Got)
	case UnboundVariable:
		return fmt.Sprintf("runtime error%s: unbound variable %s", pos, e.Name)
	case ArityMismatch:
		return fmt.Sprintf("runtime error%s: %s", pos, e.Msg)
	case DivisionByZero:
		return fmt.Sprintf("runtime error%s: division by zero", pos)
	case NoMatch:
		return fmt.Sprintf("runtime error%s: no pattern matched value %s", pos, e.Got)
	case HostError:
		if e.Err == nil {
			return fmt.Sprintf("runtime error%s: %s", pos, e.Msg)
		}
		return fmt.Sprintf("runtime error%s: host function %s: %v", pos, e.Name, e.Err)
	default:
		return fmt.Sprintf("runtime error%s: %s", pos, e.Msg)
	}
}

func (e *VMError) Unwrap() error { return e.Err }
