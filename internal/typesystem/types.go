// Package typesystem implements Hindley-Milner type inference for Fizz:
// unification with an occurs check, let-generalization, and row-polymorphic
// records.
package typesystem

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface for all types in the system.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
}

// TVar represents a type variable (e.g. t1, t2).
type TVar struct {
	Name string
}

func (t TVar) String() string { return t.Name }

func (t TVar) Apply(s Subst) Type {
	if replacement, ok := s[t.Name]; ok {
		return replacement
	}
	return t
}

func (t TVar) FreeTypeVariables() []TVar { return []TVar{t} }

// TCon represents a type constant (Int, Bool, or a nullary user type).
type TCon struct {
	Name string
}

func (t TCon) String() string            { return t.Name }
func (t TCon) Apply(s Subst) Type        { return t }
func (t TCon) FreeTypeVariables() []TVar { return []TVar{} }

// Builtin type constants.
var (
	IntType    = TCon{Name: "Int"}
	FloatType  = TCon{Name: "Float"}
	BoolType   = TCon{Name: "Bool"}
	StringType = TCon{Name: "String"}
	UnitType   = TCon{Name: "Unit"}
)

// ListOf builds the type `List t`.
func ListOf(t Type) TApp {
	return TApp{Constructor: TCon{Name: "List"}, Args: []Type{t}}
}

// TApp represents a type application (e.g. List Int, Option a).
type TApp struct {
	Constructor Type
	Args        []Type
}

func (t TApp) String() string {
	if len(t.Args) == 0 {
		return t.Constructor.String()
	}
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("(%s %s)", t.Constructor.String(), strings.Join(args, " "))
}

func (t TApp) Apply(s Subst) Type {
	newArgs := make([]Type, len(t.Args))
	for i, arg := range t.Args {
		newArgs[i] = arg.Apply(s)
	}
	return TApp{Constructor: t.Constructor.Apply(s), Args: newArgs}
}

func (t TApp) FreeTypeVariables() []TVar {
	vars := t.Constructor.FreeTypeVariables()
	for _, arg := range t.Args {
		vars = append(vars, arg.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TFunc represents a function type. Every Fizz function is unary; curried
// functions are nested TFuncs.
type TFunc struct {
	Param  Type
	Return Type
}

func (t TFunc) String() string {
	param := t.Param.String()
	if _, ok := t.Param.(TFunc); ok {
		param = "(" + param + ")"
	}
	return fmt.Sprintf("%s -> %s", param, t.Return.String())
}

func (t TFunc) Apply(s Subst) Type {
	return TFunc{Param: t.Param.Apply(s), Return: t.Return.Apply(s)}
}

func (t TFunc) FreeTypeVariables() []TVar {
	vars := t.Param.FreeTypeVariables()
	vars = append(vars, t.Return.FreeTypeVariables()...)
	return uniqueTVars(vars)
}

// TTuple represents a tuple type (e.g. (Int, Bool)).
type TTuple struct {
	Elements []Type
}

func (t TTuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, el := range t.Elements {
		parts[i] = el.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t TTuple) Apply(s Subst) Type {
	newElems := make([]Type, len(t.Elements))
	for i, el := range t.Elements {
		newElems[i] = el.Apply(s)
	}
	return TTuple{Elements: newElems}
}

func (t TTuple) FreeTypeVariables() []TVar {
	vars := []TVar{}
	for _, el := range t.Elements {
		vars = append(vars, el.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TRecord represents a record type. A non-nil Row (always a TVar during
// inference) makes the record open: it may carry fields beyond Fields.
type TRecord struct {
	Fields map[string]Type
	Row    Type
}

func (t TRecord) String() string {
	keys := make([]string, 0, len(t.Fields))
	for k := range t.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, t.Fields[k].String())
	}
	suffix := ""
	if t.Row != nil {
		suffix = " | " + t.Row.String()
	}
	return "{ " + strings.Join(parts, ", ") + suffix + " }"
}

func (t TRecord) Apply(s Subst) Type {
	newFields := make(map[string]Type, len(t.Fields))
	for k, v := range t.Fields {
		newFields[k] = v.Apply(s)
	}
	var newRow Type
	if t.Row != nil {
		newRow = t.Row.Apply(s)
		// A row variable may resolve to another record; merge its fields in.
		if rec, ok := newRow.(TRecord); ok {
			for k, v := range rec.Fields {
				if _, exists := newFields[k]; !exists {
					newFields[k] = v
				}
			}
			newRow = rec.Row
		}
	}
	return TRecord{Fields: newFields, Row: newRow}
}

func (t TRecord) FreeTypeVariables() []TVar {
	vars := []TVar{}
	keys := make([]string, 0, len(t.Fields))
	for k := range t.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vars = append(vars, t.Fields[k].FreeTypeVariables()...)
	}
	if t.Row != nil {
		vars = append(vars, t.Row.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// Subst is a mapping from type-variable names to types.
type Subst map[string]Type

// Compose combines two substitutions: applying the result is equivalent to
// applying s2 first, then s1.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v.Apply(s1)
	}
	for k, v := range s1 {
		if _, shadowed := subst[k]; !shadowed {
			subst[k] = v
		}
	}
	return subst
}

// OccursIn reports whether variable name occurs in t, directly or through
// the substitution already accumulated in t.
func OccursIn(name string, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Scheme is a type with a set of universally quantified variables. Type
// environments store schemes, not bare types (let-polymorphism).
type Scheme struct {
	Vars []string
	Type Type
}

func (s *Scheme) String() string {
	if len(s.Vars) == 0 {
		return s.Type.String()
	}
	return fmt.Sprintf("forall %s. %s", strings.Join(s.Vars, " "), s.Type.String())
}

func uniqueTVars(vars []TVar) []TVar {
	unique := []TVar{}
	seen := map[string]bool{}
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			unique = append(unique, v)
		}
	}
	return unique
}
