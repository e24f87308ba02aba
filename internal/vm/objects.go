package vm

import (
	"fmt"

	"github.com/fizz-lang/fizz/internal/object"
)

// CompiledFunction represents a function compiled to bytecode.
// Every Fizz function is unary; multi-parameter source functions arrive
// here already curried into nested single-parameter functions.
type CompiledFunction struct {
	Chunk        *Chunk
	Name         string // for disassembly and stack traces
	UpvalueCount int
}

func (f *CompiledFunction) Type() object.ObjectType { return object.FUNCTION_OBJ }
func (f *CompiledFunction) Inspect() string         { return fmt.Sprintf("<fn %s>", f.Name) }

// ObjClosure wraps a CompiledFunction with its captured upvalues
type ObjClosure struct {
	Function *CompiledFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Type() object.ObjectType { return object.CLOSURE_OBJ }
func (c *ObjClosure) Inspect() string         { return fmt.Sprintf("<closure %s>", c.Function.Name) }

// ObjUpvalue represents a captured variable from an enclosing scope.
// It can be "open" (pointing to a stack slot) or "closed" (holding the
// value directly after the slot left the stack).
type ObjUpvalue struct {
	// When open: Location is the absolute stack slot index.
	// When closed: Location is -1 and Closed holds the value.
	Location int
	Closed   Value

	// For the VM's open upvalue list (singly linked, sorted by location)
	Next *ObjUpvalue
}
