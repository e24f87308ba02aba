package vm

import (
	"fmt"
	"math"

	"github.com/fizz-lang/fizz/internal/object"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValUnit ValueType = iota
	ValInt
	ValFloat
	ValBool
	ValObj // Heap object (String, List, Closure, ...)
)

// Value is a stack-allocated tagged union.
// It avoids heap allocation for the small primitives (Int, Float, Bool, Unit).
type Value struct {
	Type ValueType
	Data uint64        // int64 bits, float64 bits, or bool (0/1)
	Obj  object.Object // heap objects, kept alive for GC
}

// Constructors

func UnitVal() Value {
	return Value{Type: ValUnit}
}

func IntVal(v int64) Value {
	return Value{Type: ValInt, Data: uint64(v)}
}

func FloatVal(v float64) Value {
	return Value{Type: ValFloat, Data: math.Float64bits(v)}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func ObjVal(o object.Object) Value {
	return Value{Type: ValObj, Obj: o}
}

// Accessors

func (v Value) AsInt() int64 {
	return int64(v.Data)
}

func (v Value) AsFloat() float64 {
	return math.Float64frombits(v.Data)
}

func (v Value) AsBool() bool {
	return v.Data == 1
}

func (v Value) IsInt() bool   { return v.Type == ValInt }
func (v Value) IsFloat() bool { return v.Type == ValFloat }
func (v Value) IsBool() bool  { return v.Type == ValBool }
func (v Value) IsUnit() bool  { return v.Type == ValUnit }
func (v Value) IsObj() bool   { return v.Type == ValObj }

// AsObject boxes the value into the shared object representation
func (v Value) AsObject() object.Object {
	switch v.Type {
	case ValInt:
		return &object.Integer{Value: int64(v.Data)}
	case ValFloat:
		return &object.Float{Value: math.Float64frombits(v.Data)}
	case ValBool:
		return &object.Boolean{Value: v.Data == 1}
	case ValUnit:
		return &object.Unit{}
	case ValObj:
		return v.Obj
	default:
		return &object.Unit{}
	}
}

// ObjectToValue unboxes an object into stack representation
func ObjectToValue(obj object.Object) Value {
	switch o := obj.(type) {
	case *object.Integer:
		return IntVal(o.Value)
	case *object.Float:
		return FloatVal(o.Value)
	case *object.Boolean:
		return BoolVal(o.Value)
	case *object.Unit:
		return UnitVal()
	default:
		return ObjVal(obj)
	}
}

// Equals compares structurally, with implicit Int/Float cross-comparison
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		if v.Type == ValInt && other.Type == ValFloat {
			return float64(v.AsInt()) == other.AsFloat()
		}
		if v.Type == ValFloat && other.Type == ValInt {
			return v.AsFloat() == float64(other.AsInt())
		}
		if v.Type == ValObj || other.Type == ValObj {
			return object.Equals(v.AsObject(), other.AsObject())
		}
		return false
	}
	switch v.Type {
	case ValInt, ValBool:
		return v.Data == other.Data
	case ValFloat:
		return v.AsFloat() == other.AsFloat()
	case ValUnit:
		return true
	case ValObj:
		return object.Equals(v.Obj, other.Obj)
	default:
		return false
	}
}

// TypeName returns the runtime type name for error reporting
func (v Value) TypeName() string {
	switch v.Type {
	case ValInt:
		return "Int"
	case ValFloat:
		return "Float"
	case ValBool:
		return "Bool"
	case ValUnit:
		return "Unit"
	case ValObj:
		if v.Obj != nil {
			return string(v.Obj.Type())
		}
		return "Unit"
	default:
		return "Unknown"
	}
}

// Inspect returns the display representation
func (v Value) Inspect() string {
	switch v.Type {
	case ValInt:
		return fmt.Sprintf("%d", int64(v.Data))
	case ValFloat:
		return fmt.Sprintf("%g", math.Float64frombits(v.Data))
	case ValBool:
		return fmt.Sprintf("%t", v.Data == 1)
	case ValUnit:
		return "()"
	case ValObj:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "()"
	default:
		return "<?>"
	}
}
