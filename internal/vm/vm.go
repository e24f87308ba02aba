package vm

import (
	"context"
	"errors"

	"github.com/fizz-lang/fizz/internal/object"
)

var errTruncatedBytecode = errors.New("truncated bytecode")
var errStackUnderflow = errors.New("stack underflow")
var errStackOverflow = errors.New("stack overflow")
var errInvalidConstantIndex = errors.New("invalid constant index")

// Initial sizes for stack and frames
const InitialStackSize = 2048
const InitialFrameCount = 256

// Growth increment when stack/frames need to expand
const StackGrowthIncrement = 1024
const FrameGrowthIncrement = 256

// Maximum call stack depth to prevent runaway recursion
const MaxFrameCount = 4096

// Maximum operand stack size to prevent OOM
const MaxStackSize = 1024 * 1024

// CallFrame represents a single ongoing function call
type CallFrame struct {
	closure *ObjClosure // the closure being executed
	chunk   *Chunk      // shortcut to closure.Function.Chunk
	ip      int         // instruction pointer within this frame's chunk
	base    int         // stack slot of the frame's argument (local 0)
}

// VM is the virtual machine that executes bytecode. It is a state machine
// over one mutable value stack and one call-frame stack; it halts when the
// outermost frame returns, or halts with an error on the instruction that
// detected the violated property.
type VM struct {
	stack []Value
	sp    int // points to next free slot

	frames     []CallFrame
	frameCount int
	frame      *CallFrame

	// Globals hold top-level bindings, module members under their
	// qualified names, and host-registered bindings.
	globals map[string]Value

	// Linked list of open upvalues, sorted by stack location (highest first)
	openUpvalues *ObjUpvalue

	// Context for cancellation of long-running scripts
	Context context.Context
}

// New creates a new VM instance
func New() *VM {
	return &VM{
		stack:   make([]Value, InitialStackSize),
		frames:  make([]CallFrame, InitialFrameCount),
		globals: make(map[string]Value),
	}
}

// SetContext sets the context checked periodically during execution.
func (vm *VM) SetContext(ctx context.Context) {
	vm.Context = ctx
}

// DefineGlobal installs a binding visible to scripts by name.
func (vm *VM) DefineGlobal(name string, obj object.Object) {
	vm.globals[name] = ObjectToValue(obj)
}

// GetGlobal returns a global binding by name.
func (vm *VM) GetGlobal(name string) (object.Object, bool) {
	v, ok := vm.globals[name]
	if !ok {
		return nil, false
	}
	return v.AsObject(), true
}

// Execute runs a chunk to completion and yields its result value.
// Each call resets the value and frame stacks; globals persist across
// calls so reloaded chunks keep host bindings.
func (vm *VM) Execute(chunk *Chunk) (result object.Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok &&
				(errors.Is(e, errStackOverflow) || errors.Is(e, errStackUnderflow) ||
					errors.Is(e, errTruncatedBytecode) || errors.Is(e, errInvalidConstantIndex)) {
				result = nil
				err = e
				return
			}
			panic(r)
		}
	}()

	scriptFn := &CompiledFunction{
		Chunk: chunk,
		Name:  "<script>",
	}
	scriptClosure := &ObjClosure{Function: scriptFn}

	vm.sp = 0
	vm.frameCount = 1
	vm.frames[0] = CallFrame{
		closure: scriptClosure,
		chunk:   chunk,
		ip:      0,
		base:    0,
	}
	vm.frame = &vm.frames[0]
	vm.openUpvalues = nil

	val, err := vm.run()
	if err != nil {
		return nil, err
	}
	return val.AsObject(), nil
}

// Stack operations

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		if vm.sp >= MaxStackSize {
			panic(errStackOverflow)
		}
		growBy := StackGrowthIncrement
		if len(vm.stack) > growBy {
			growBy = len(vm.stack)
		}
		newStack := make([]Value, len(vm.stack)+growBy)
		copy(newStack, vm.stack[:vm.sp])
		vm.stack = newStack
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	if vm.sp <= 0 {
		panic(errStackUnderflow)
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	idx := vm.sp - 1 - distance
	if idx < 0 {
		panic(errStackUnderflow)
	}
	return vm.stack[idx]
}

// Read helpers

func (vm *VM) readByte() byte {
	if vm.frame.ip >= len(vm.frame.chunk.Code) {
		panic(errTruncatedBytecode)
	}
	b := vm.frame.chunk.Code[vm.frame.ip]
	vm.frame.ip++
	return b
}

func (vm *VM) readUint16() int {
	high := vm.readByte()
	low := vm.readByte()
	return int(high)<<8 | int(low)
}

func (vm *VM) readConstant() object.Object {
	idx := vm.readUint16()
	if idx >= len(vm.frame.chunk.Constants) {
		panic(errInvalidConstantIndex)
	}
	return vm.frame.chunk.Constants[idx]
}

func (vm *VM) readName() string {
	obj := vm.readConstant()
	s, ok := obj.(*object.String)
	if !ok {
		panic(errInvalidConstantIndex)
	}
	return s.Value
}

// Upvalue management

// captureUpvalue creates or reuses an upvalue pointing to the given stack slot
func (vm *VM) captureUpvalue(location int) *ObjUpvalue {
	var prev *ObjUpvalue
	upvalue := vm.openUpvalues

	// The list is sorted by location (highest first)
	for upvalue != nil && upvalue.Location > location {
		prev = upvalue
		upvalue = upvalue.Next
	}

	if upvalue != nil && upvalue.Location == location {
		return upvalue
	}

	created := &ObjUpvalue{
		Location: location,
		Next:     upvalue,
	}
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes all upvalues that point to stack slots >= lastSlot
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Location >= lastSlot {
		upvalue := vm.openUpvalues
		upvalue.Closed = vm.stack[upvalue.Location]
		upvalue.Location = -1
		vm.openUpvalues = upvalue.Next
	}
}

// Error construction: position comes from the instruction being executed.

func (vm *VM) errorAt(opIP int, e *VMError) *VMError {
	if vm.frame != nil && vm.frame.chunk != nil && opIP < len(vm.frame.chunk.Lines) {
		e.Line = vm.frame.chunk.Lines[opIP]
		e.Column = vm.frame.chunk.Columns[opIP]
	}
	return e
}

func (vm *VM) typeError(opIP int, expected string, got Value) *VMError {
	return vm.errorAt(opIP, &VMError{
		Kind:     TypeMismatch,
		Expected: expected,
		Got:      got.TypeName(),
	})
}
