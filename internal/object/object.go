// Package object defines the runtime value universe shared by the compiler,
// the virtual machine and the host-embedding layer.
package object

import (
	"fmt"
	"sort"
	"strings"
)

// ObjectType identifies the runtime type of an Object.
type ObjectType string

const (
	UNIT_OBJ     = "UNIT"
	BOOLEAN_OBJ  = "BOOLEAN"
	INTEGER_OBJ  = "INTEGER"
	FLOAT_OBJ    = "FLOAT"
	STRING_OBJ   = "STRING"
	TUPLE_OBJ    = "TUPLE"
	LIST_OBJ     = "LIST"
	RECORD_OBJ   = "RECORD"
	VARIANT_OBJ  = "VARIANT"
	CLOSURE_OBJ  = "CLOSURE"
	FUNCTION_OBJ = "FUNCTION"
	HOST_FN_OBJ  = "HOST_FUNCTION"
	PARTIAL_OBJ  = "PARTIAL_APPLICATION"
)

// Object is the interface all runtime values implement.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Unit is the single value of the unit type.
type Unit struct{}

func (u *Unit) Type() ObjectType { return UNIT_OBJ }
func (u *Unit) Inspect() string  { return "()" }

// Boolean wraps a bool.
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return fmt.Sprintf("%t", b.Value) }

// Integer wraps an int64. Arithmetic wraps on overflow.
type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return fmt.Sprintf("%d", i.Value) }

// Float wraps a float64.
type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType { return FLOAT_OBJ }
func (f *Float) Inspect() string  { return fmt.Sprintf("%g", f.Value) }

// String wraps a string.
type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return fmt.Sprintf("%q", s.Value) }

// Tuple is a fixed-arity product of values.
type Tuple struct {
	Elements []Object
}

func (t *Tuple) Type() ObjectType { return TUPLE_OBJ }
func (t *Tuple) Inspect() string {
	parts := make([]string, len(t.Elements))
	for i, el := range t.Elements {
		parts[i] = el.Inspect()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// List is a nil-terminated cons list. The empty list is the nil *List.
type List struct {
	Head Object
	Tail *List
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	var parts []string
	for n := l; n != nil; n = n.Tail {
		parts = append(parts, n.Head.Inspect())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// IsEmpty reports whether l is the empty list.
func (l *List) IsEmpty() bool { return l == nil }

// Len walks the list and returns its length.
func (l *List) Len() int {
	n := 0
	for node := l; node != nil; node = node.Tail {
		n++
	}
	return n
}

// ToSlice collects the list elements into a Go slice.
func (l *List) ToSlice() []Object {
	var out []Object
	for n := l; n != nil; n = n.Tail {
		out = append(out, n.Head)
	}
	return out
}

// NewList builds a cons list from a slice, preserving order.
func NewList(elements []Object) *List {
	var list *List
	for i := len(elements) - 1; i >= 0; i-- {
		list = &List{Head: elements[i], Tail: list}
	}
	return list
}

// Record is a name-to-value mapping.
type Record struct {
	Fields map[string]Object
}

func (r *Record) Type() ObjectType { return RECORD_OBJ }
func (r *Record) Inspect() string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s = %s", k, r.Fields[k].Inspect())
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Variant is a tagged value of an algebraic data type.
type Variant struct {
	TypeName string
	Tag      string
	Fields   []Object
}

func (v *Variant) Type() ObjectType { return VARIANT_OBJ }
func (v *Variant) Inspect() string {
	if len(v.Fields) == 0 {
		return v.Tag
	}
	parts := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		parts[i] = f.Inspect()
	}
	return v.Tag + " " + strings.Join(parts, " ")
}

// HostFunction is a native function registered by the embedding host.
type HostFunction struct {
	Name  string
	Arity int
	Fn    func(args []Object) (Object, error)
}

func (h *HostFunction) Type() ObjectType { return HOST_FN_OBJ }
func (h *HostFunction) Inspect() string  { return "<host " + h.Name + ">" }

// PartialApplication accumulates curried arguments to a host function until
// its declared arity is satisfied.
type PartialApplication struct {
	Fn   *HostFunction
	Args []Object
}

func (p *PartialApplication) Type() ObjectType { return PARTIAL_OBJ }
func (p *PartialApplication) Inspect() string {
	return fmt.Sprintf("<partial %s %d/%d>", p.Fn.Name, len(p.Args), p.Fn.Arity)
}
