package vm

import (
	"github.com/fizz-lang/fizz/internal/object"
)

// run is the fetch-decode-dispatch loop. It executes until the outermost
// frame returns, yielding the top-of-stack value.
func (vm *VM) run() (Value, error) {
	opsSinceCheck := 0
	const checkInterval = 1000

	for {
		opsSinceCheck++
		if opsSinceCheck >= checkInterval {
			opsSinceCheck = 0
			if vm.Context != nil {
				select {
				case <-vm.Context.Done():
					return UnitVal(), vm.Context.Err()
				default:
				}
			}
		}

		opIP := vm.frame.ip
		op := Opcode(vm.readByte())

		switch op {
		case OP_CONST:
			vm.push(ObjectToValue(vm.readConstant()))

		case OP_POP:
			vm.pop()

		case OP_UNIT:
			vm.push(UnitVal())
		case OP_TRUE:
			vm.push(BoolVal(true))
		case OP_FALSE:
			vm.push(BoolVal(false))

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD:
			if err := vm.binaryNumeric(op, opIP); err != nil {
				return UnitVal(), err
			}

		case OP_NEG:
			v := vm.pop()
			switch {
			case v.IsInt():
				vm.push(IntVal(-v.AsInt()))
			case v.IsFloat():
				vm.push(FloatVal(-v.AsFloat()))
			default:
				return UnitVal(), vm.typeError(opIP, "Int or Float", v)
			}

		case OP_CONS:
			tail := vm.pop()
			head := vm.pop()
			list, ok := tail.Obj.(*object.List)
			if !tail.IsObj() || !ok {
				return UnitVal(), vm.typeError(opIP, "List", tail)
			}
			vm.push(ObjVal(&object.List{Head: head.AsObject(), Tail: list}))

		case OP_EQ:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(a.Equals(b)))

		case OP_NE:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(!a.Equals(b)))

		case OP_LT, OP_LE, OP_GT, OP_GE:
			if err := vm.compareNumeric(op, opIP); err != nil {
				return UnitVal(), err
			}

		case OP_GET_LOCAL:
			slot := int(vm.readByte())
			vm.push(vm.stack[vm.frame.base+slot])

		case OP_SET_LOCAL:
			slot := int(vm.readByte())
			vm.stack[vm.frame.base+slot] = vm.peek(0)

		case OP_GET_GLOBAL:
			name := vm.readName()
			v, ok := vm.globals[name]
			if !ok {
				return UnitVal(), vm.errorAt(opIP, &VMError{Kind: UnboundVariable, Name: name})
			}
			vm.push(v)

		case OP_DEF_GLOBAL:
			name := vm.readName()
			vm.globals[name] = vm.pop()

		case OP_JUMP:
			offset := vm.readUint16()
			vm.frame.ip += offset

		case OP_JUMP_IF_FALSE:
			offset := vm.readUint16()
			cond := vm.pop()
			if !cond.IsBool() {
				return UnitVal(), vm.typeError(opIP, "Bool", cond)
			}
			if !cond.AsBool() {
				vm.frame.ip += offset
			}

		case OP_CALL:
			if err := vm.callValue(opIP); err != nil {
				return UnitVal(), err
			}

		case OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(vm.frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				return result, nil
			}
			// Drop the argument and callee slots, keep the result.
			vm.sp = vm.frame.base - 1
			vm.frame = &vm.frames[vm.frameCount-1]
			vm.push(result)

		case OP_CLOSURE:
			fnObj := vm.readConstant()
			fn, ok := fnObj.(*CompiledFunction)
			if !ok {
				panic(errInvalidConstantIndex)
			}
			closure := &ObjClosure{
				Function: fn,
				Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
			}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte() == 1
				index := int(vm.readByte())
				if isLocal {
					closure.Upvalues[i] = vm.captureUpvalue(vm.frame.base + index)
				} else {
					closure.Upvalues[i] = vm.frame.closure.Upvalues[index]
				}
			}
			vm.push(ObjVal(closure))

		case OP_GET_UPVALUE:
			idx := int(vm.readByte())
			uv := vm.frame.closure.Upvalues[idx]
			if uv.Location >= 0 {
				vm.push(vm.stack[uv.Location])
			} else {
				vm.push(uv.Closed)
			}

		case OP_MAKE_LIST:
			n := vm.readUint16()
			elements := make([]object.Object, n)
			for i := n - 1; i >= 0; i-- {
				elements[i] = vm.pop().AsObject()
			}
			vm.push(ObjVal(object.NewList(elements)))

		case OP_MAKE_TUPLE:
			n := vm.readUint16()
			elements := make([]object.Object, n)
			for i := n - 1; i >= 0; i-- {
				elements[i] = vm.pop().AsObject()
			}
			vm.push(ObjVal(&object.Tuple{Elements: elements}))

		case OP_MAKE_RECORD:
			n := vm.readUint16()
			fields := make(map[string]object.Object, n)
			for i := 0; i < n; i++ {
				value := vm.pop()
				name := vm.pop()
				s, ok := name.Obj.(*object.String)
				if !ok {
					panic(errInvalidConstantIndex)
				}
				fields[s.Value] = value.AsObject()
			}
			vm.push(ObjVal(&object.Record{Fields: fields}))

		case OP_MAKE_VARIANT:
			typeName := vm.readName()
			tag := vm.readName()
			n := int(vm.readByte())
			fields := make([]object.Object, n)
			for i := n - 1; i >= 0; i-- {
				fields[i] = vm.pop().AsObject()
			}
			vm.push(ObjVal(&object.Variant{TypeName: typeName, Tag: tag, Fields: fields}))

		case OP_GET_FIELD:
			name := vm.readName()
			v := vm.pop()
			rec, ok := v.Obj.(*object.Record)
			if !v.IsObj() || !ok {
				return UnitVal(), vm.typeError(opIP, "Record", v)
			}
			field, ok := rec.Fields[name]
			if !ok {
				return UnitVal(), vm.typeError(opIP, "record with field "+name, v)
			}
			vm.push(ObjectToValue(field))

		case OP_CHECK_TAG:
			tag := vm.readName()
			v := vm.pop()
			variant, ok := v.Obj.(*object.Variant)
			vm.push(BoolVal(v.IsObj() && ok && variant.Tag == tag))

		case OP_GET_VARIANT_FIELD:
			idx := int(vm.readByte())
			v := vm.pop()
			variant, ok := v.Obj.(*object.Variant)
			if !v.IsObj() || !ok || idx >= len(variant.Fields) {
				return UnitVal(), vm.typeError(opIP, "Variant", v)
			}
			vm.push(ObjectToValue(variant.Fields[idx]))

		case OP_CHECK_TUPLE_LEN:
			n := int(vm.readByte())
			v := vm.pop()
			tuple, ok := v.Obj.(*object.Tuple)
			vm.push(BoolVal(v.IsObj() && ok && len(tuple.Elements) == n))

		case OP_GET_TUPLE_ELEM:
			idx := int(vm.readByte())
			v := vm.pop()
			tuple, ok := v.Obj.(*object.Tuple)
			if !v.IsObj() || !ok || idx >= len(tuple.Elements) {
				return UnitVal(), vm.typeError(opIP, "Tuple", v)
			}
			vm.push(ObjectToValue(tuple.Elements[idx]))

		case OP_MATCH_FAIL:
			v := vm.pop()
			return UnitVal(), vm.errorAt(opIP, &VMError{Kind: NoMatch, Got: v.Inspect()})

		case OP_CLOSE_SCOPE:
			n := int(vm.readByte())
			result := vm.pop()
			vm.closeUpvalues(vm.sp - n)
			vm.sp -= n
			vm.push(result)

		default:
			return UnitVal(), vm.errorAt(opIP, &VMError{
				Kind: HostError,
				Msg:  "unknown opcode",
			})
		}
	}
}

// binaryNumeric implements + - * / %. Integer arithmetic wraps; division
// and modulo by zero are runtime errors, never a host-level fault.
func (vm *VM) binaryNumeric(op Opcode, opIP int) error {
	b := vm.pop()
	a := vm.pop()

	if a.IsInt() && b.IsInt() {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case OP_ADD:
			vm.push(IntVal(x + y))
		case OP_SUB:
			vm.push(IntVal(x - y))
		case OP_MUL:
			vm.push(IntVal(x * y))
		case OP_DIV:
			if y == 0 {
				return vm.errorAt(opIP, &VMError{Kind: DivisionByZero})
			}
			vm.push(IntVal(x / y))
		case OP_MOD:
			if y == 0 {
				return vm.errorAt(opIP, &VMError{Kind: DivisionByZero})
			}
			vm.push(IntVal(x % y))
		}
		return nil
	}

	if op == OP_MOD {
		if !a.IsInt() {
			return vm.typeError(opIP, "Int", a)
		}
		return vm.typeError(opIP, "Int", b)
	}

	ax, aok := asFloat(a)
	bx, bok := asFloat(b)
	if !aok {
		return vm.typeError(opIP, "Int or Float", a)
	}
	if !bok {
		return vm.typeError(opIP, "Int or Float", b)
	}

	switch op {
	case OP_ADD:
		vm.push(FloatVal(ax + bx))
	case OP_SUB:
		vm.push(FloatVal(ax - bx))
	case OP_MUL:
		vm.push(FloatVal(ax * bx))
	case OP_DIV:
		if bx == 0 {
			return vm.errorAt(opIP, &VMError{Kind: DivisionByZero})
		}
		vm.push(FloatVal(ax / bx))
	}
	return nil
}

func (vm *VM) compareNumeric(op Opcode, opIP int) error {
	b := vm.pop()
	a := vm.pop()

	if a.IsInt() && b.IsInt() {
		x, y := a.AsInt(), b.AsInt()
		vm.push(BoolVal(compareInts(op, x, y)))
		return nil
	}

	ax, aok := asFloat(a)
	bx, bok := asFloat(b)
	if !aok {
		return vm.typeError(opIP, "Int or Float", a)
	}
	if !bok {
		return vm.typeError(opIP, "Int or Float", b)
	}
	vm.push(BoolVal(compareFloats(op, ax, bx)))
	return nil
}

func asFloat(v Value) (float64, bool) {
	switch {
	case v.IsFloat():
		return v.AsFloat(), true
	case v.IsInt():
		return float64(v.AsInt()), true
	default:
		return 0, false
	}
}

func compareInts(op Opcode, x, y int64) bool {
	switch op {
	case OP_LT:
		return x < y
	case OP_LE:
		return x <= y
	case OP_GT:
		return x > y
	default:
		return x >= y
	}
}

func compareFloats(op Opcode, x, y float64) bool {
	switch op {
	case OP_LT:
		return x < y
	case OP_LE:
		return x <= y
	case OP_GT:
		return x > y
	default:
		return x >= y
	}
}

// callValue dispatches OP_CALL. The stack holds [fn, arg]. Calling a
// closure pushes a frame whose local 0 is the argument; calling a host
// function invokes it directly with no frame, so host errors surface as
// an immediate VMError. Host functions of declared arity N accumulate
// curried arguments through PartialApplication until saturated.
func (vm *VM) callValue(opIP int) error {
	fn := vm.peek(1)

	if fn.IsObj() {
		switch callee := fn.Obj.(type) {
		case *ObjClosure:
			return vm.callClosure(callee, opIP)

		case *object.HostFunction:
			arg := vm.pop()
			vm.pop()
			return vm.applyHost(callee, nil, arg, opIP)

		case *object.PartialApplication:
			arg := vm.pop()
			vm.pop()
			return vm.applyHost(callee.Fn, callee.Args, arg, opIP)
		}
	}
	return vm.typeError(opIP, "function", fn)
}

func (vm *VM) callClosure(closure *ObjClosure, opIP int) error {
	if vm.frameCount >= MaxFrameCount {
		return vm.errorAt(opIP, &VMError{Kind: HostError, Msg: "call stack overflow"})
	}
	if vm.frameCount >= len(vm.frames) {
		growBy := FrameGrowthIncrement
		if len(vm.frames) > growBy {
			growBy = len(vm.frames)
		}
		newFrames := make([]CallFrame, len(vm.frames)+growBy)
		copy(newFrames, vm.frames[:vm.frameCount])
		vm.frames = newFrames
		vm.frame = &vm.frames[vm.frameCount-1]
	}

	frame := &vm.frames[vm.frameCount]
	frame.closure = closure
	frame.chunk = closure.Function.Chunk
	frame.ip = 0
	frame.base = vm.sp - 1 // the argument is local 0

	vm.frameCount++
	vm.frame = frame
	return nil
}

func (vm *VM) applyHost(fn *object.HostFunction, applied []object.Object, arg Value, opIP int) error {
	args := make([]object.Object, 0, len(applied)+1)
	args = append(args, applied...)
	args = append(args, arg.AsObject())

	if len(args) < fn.Arity {
		vm.push(ObjVal(&object.PartialApplication{Fn: fn, Args: args}))
		return nil
	}

	result, err := fn.Fn(args)
	if err != nil {
		return vm.errorAt(opIP, &VMError{Kind: HostError, Name: fn.Name, Err: err})
	}
	if result == nil {
		vm.push(UnitVal())
		return nil
	}
	vm.push(ObjectToValue(result))
	return nil
}
