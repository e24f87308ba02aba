package typesystem

import (
	"fmt"

	"github.com/fizz-lang/fizz/internal/ast"
	"github.com/fizz-lang/fizz/internal/token"
)

// Inferencer allocates fresh type variables for one inference run.
// Identities are monotonically increasing and never reused across restarts.
type Inferencer struct {
	counter int
}

func NewInferencer() *Inferencer {
	return &Inferencer{}
}

func (ti *Inferencer) fresh() TVar {
	ti.counter++
	return TVar{Name: fmt.Sprintf("t%d", ti.counter)}
}

// Infer computes the principal type of expr under env.
func Infer(expr ast.Expr, env *TypeEnv) (Type, error) {
	ti := NewInferencer()
	s, t, err := ti.infer(env, expr)
	if err != nil {
		return nil, err
	}
	return t.Apply(s), nil
}

// InferProgram type-checks a whole program: ADT declarations register their
// constructor schemes, module and top-level bindings are generalized, and
// the optional final expression's type is returned (Unit when absent).
func InferProgram(prog *ast.Program, env *TypeEnv) (Type, error) {
	ti := NewInferencer()

	for _, decl := range prog.TypeDecls {
		if err := ti.registerTypeDecl(env, decl); err != nil {
			return nil, err
		}
	}

	exports := make(map[string][]string)
	for _, mod := range prog.Modules {
		var names []string
		modEnv := env.Child()
		for _, decl := range mod.TypeDecls {
			if err := ti.registerTypeDecl(modEnv, decl); err != nil {
				return nil, err
			}
			// Constructors are visible program-wide.
			for _, v := range decl.Variants {
				if scheme, ok := modEnv.Lookup(v.Tag); ok {
					env.Define(v.Tag, scheme)
				}
			}
		}
		for _, binding := range mod.Bindings {
			bound, err := ti.inferTopBinding(modEnv, binding)
			if err != nil {
				return nil, err
			}
			names = append(names, bound...)
		}
		for _, name := range names {
			if scheme, ok := modEnv.Lookup(name); ok {
				env.Define(mod.Name+"."+name, scheme)
			}
		}
		exports[mod.Name] = names
	}

	for _, open := range prog.Opens {
		modName := joinPath(open.Path)
		names, ok := exports[modName]
		if !ok {
			// Host-registered modules expose their exports through the env.
			names, ok = env.ModuleExports(modName)
		}
		if !ok {
			return nil, &TypeError{
				Kind: UnboundVariable, Name: modName,
				Line: open.Token.Line, Column: open.Token.Column,
			}
		}
		for _, name := range names {
			if scheme, found := env.Lookup(modName + "." + name); found {
				env.Define(name, scheme)
			}
		}
	}

	for _, binding := range prog.Bindings {
		if _, err := ti.inferTopBinding(env, binding); err != nil {
			return nil, err
		}
	}

	if prog.Expr == nil {
		return UnitType, nil
	}
	s, t, err := ti.infer(env, prog.Expr)
	if err != nil {
		return nil, err
	}
	return t.Apply(s), nil
}

func joinPath(path []string) string {
	out := path[0]
	for _, seg := range path[1:] {
		out += "." + seg
	}
	return out
}

// inferTopBinding generalizes a top-level let (or let-rec group) into env
// and returns the bound names.
func (ti *Inferencer) inferTopBinding(env *TypeEnv, binding *ast.TopBinding) ([]string, error) {
	var names []string
	if binding.Rec {
		letRec := &ast.LetRec{Token: binding.Token, Bindings: binding.Bindings}
		if err := ti.inferRecGroup(env, letRec); err != nil {
			return nil, err
		}
		for _, b := range binding.Bindings {
			names = append(names, b.Name)
		}
		return names, nil
	}

	b := binding.Bindings[0]
	s, t, err := ti.infer(env, b.Value)
	if err != nil {
		return nil, err
	}
	scheme := generalize(env.ApplySubst(s), t.Apply(s))
	env.Define(b.Name, scheme)
	return []string{b.Name}, nil
}

// infer is Algorithm W: it returns the substitution accumulated so far and
// the (not yet fully substituted) type of expr.
func (ti *Inferencer) infer(env *TypeEnv, expr ast.Expr) (Subst, Type, error) {
	switch e := expr.(type) {
	case *ast.IntLit:
		return Subst{}, IntType, nil
	case *ast.FloatLit:
		return Subst{}, FloatType, nil
	case *ast.StringLit:
		return Subst{}, StringType, nil
	case *ast.BoolLit:
		return Subst{}, BoolType, nil
	case *ast.UnitLit:
		return Subst{}, UnitType, nil

	case *ast.Identifier:
		scheme, ok := env.Lookup(e.Name)
		if !ok {
			return nil, nil, &TypeError{
				Kind: UnboundVariable, Name: e.Name,
				Line: e.Token.Line, Column: e.Token.Column,
			}
		}
		return Subst{}, ti.instantiate(scheme), nil

	case *ast.QualifiedIdent:
		qualified := e.Module + "." + e.Name
		scheme, ok := env.Lookup(qualified)
		if !ok {
			return nil, nil, &TypeError{
				Kind: UnboundVariable, Name: qualified,
				Line: e.Token.Line, Column: e.Token.Column,
			}
		}
		return Subst{}, ti.instantiate(scheme), nil

	case *ast.Lambda:
		paramType := ti.fresh()
		bodyEnv := env.Child()
		bodyEnv.Define(e.Param, &Scheme{Type: paramType})
		s, bodyType, err := ti.infer(bodyEnv, e.Body)
		if err != nil {
			return nil, nil, err
		}
		return s, TFunc{Param: paramType.Apply(s), Return: bodyType}, nil

	case *ast.Apply:
		s1, fnType, err := ti.infer(env, e.Fn)
		if err != nil {
			return nil, nil, err
		}
		s2, argType, err := ti.infer(env.ApplySubst(s1), e.Arg)
		if err != nil {
			return nil, nil, err
		}
		resultType := ti.fresh()
		s3, err := Unify(fnType.Apply(s2), TFunc{Param: argType, Return: resultType})
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		return s3.Compose(s2).Compose(s1), resultType.Apply(s3), nil

	case *ast.Let:
		s1, valueType, err := ti.infer(env, e.Value)
		if err != nil {
			return nil, nil, err
		}
		substEnv := env.ApplySubst(s1)
		scheme := generalize(substEnv, valueType.Apply(s1))
		bodyEnv := substEnv.Child()
		bodyEnv.Define(e.Name, scheme)
		s2, bodyType, err := ti.infer(bodyEnv, e.Body)
		if err != nil {
			return nil, nil, err
		}
		return s2.Compose(s1), bodyType, nil

	case *ast.LetRec:
		bodyEnv := env.Child()
		if err := ti.inferRecGroup(bodyEnv, e); err != nil {
			return nil, nil, err
		}
		return ti.infer(bodyEnv, e.Body)

	case *ast.If:
		s1, condType, err := ti.infer(env, e.Cond)
		if err != nil {
			return nil, nil, err
		}
		sb, err := Unify(condType, BoolType)
		if err != nil {
			return nil, nil, ti.located(err, e.Cond.GetToken())
		}
		s1 = sb.Compose(s1)

		s2, thenType, err := ti.infer(env.ApplySubst(s1), e.Then)
		if err != nil {
			return nil, nil, err
		}
		s12 := s2.Compose(s1)
		s3, elseType, err := ti.infer(env.ApplySubst(s12), e.Else)
		if err != nil {
			return nil, nil, err
		}
		s123 := s3.Compose(s12)
		su, err := Unify(thenType.Apply(s123), elseType.Apply(s123))
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		return su.Compose(s123), thenType.Apply(su.Compose(s123)), nil

	case *ast.Binary:
		return ti.inferBinary(env, e)

	case *ast.Unary:
		s, operandType, err := ti.infer(env, e.Operand)
		if err != nil {
			return nil, nil, err
		}
		sn, numType, err := ti.requireNumeric(operandType.Apply(s), e.Token)
		if err != nil {
			return nil, nil, err
		}
		return sn.Compose(s), numType, nil

	case *ast.Match:
		return ti.inferMatch(env, e)

	case *ast.ListLit:
		elemType := Type(ti.fresh())
		s := Subst{}
		for _, el := range e.Elements {
			si, elType, err := ti.infer(env.ApplySubst(s), el)
			if err != nil {
				return nil, nil, err
			}
			s = si.Compose(s)
			su, err := Unify(elemType.Apply(s), elType)
			if err != nil {
				return nil, nil, ti.located(err, el.GetToken())
			}
			s = su.Compose(s)
		}
		return s, ListOf(elemType.Apply(s)), nil

	case *ast.TupleLit:
		s := Subst{}
		elements := make([]Type, len(e.Elements))
		for i, el := range e.Elements {
			si, elType, err := ti.infer(env.ApplySubst(s), el)
			if err != nil {
				return nil, nil, err
			}
			s = si.Compose(s)
			elements[i] = elType
		}
		for i := range elements {
			elements[i] = elements[i].Apply(s)
		}
		return s, TTuple{Elements: elements}, nil

	case *ast.RecordLit:
		s := Subst{}
		fields := make(map[string]Type, len(e.Fields))
		for _, f := range e.Fields {
			si, fieldType, err := ti.infer(env.ApplySubst(s), f.Value)
			if err != nil {
				return nil, nil, err
			}
			s = si.Compose(s)
			fields[f.Name] = fieldType
		}
		for k := range fields {
			fields[k] = fields[k].Apply(s)
		}
		return s, TRecord{Fields: fields}, nil

	case *ast.Construct:
		scheme, ok := env.Lookup(e.Tag)
		if !ok {
			return nil, nil, &TypeError{
				Kind: UnboundVariable, Name: e.Tag,
				Line: e.Token.Line, Column: e.Token.Column,
			}
		}
		ctorType := ti.instantiate(scheme)
		s := Subst{}
		for _, arg := range e.Args {
			fn, ok := ctorType.(TFunc)
			if !ok {
				return nil, nil, &TypeError{
					Kind: ArityMismatch,
					Line: e.Token.Line, Column: e.Token.Column,
					Detail: fmt.Sprintf("constructor %s applied to too many arguments (%d)", e.Tag, len(e.Args)),
				}
			}
			si, argType, err := ti.infer(env.ApplySubst(s), arg)
			if err != nil {
				return nil, nil, err
			}
			s = si.Compose(s)
			su, err := Unify(fn.Param.Apply(s), argType)
			if err != nil {
				return nil, nil, ti.located(err, arg.GetToken())
			}
			s = su.Compose(s)
			ctorType = fn.Return.Apply(s)
		}
		if _, stillFn := ctorType.(TFunc); stillFn {
			return nil, nil, &TypeError{
				Kind: ArityMismatch,
				Line: e.Token.Line, Column: e.Token.Column,
				Detail: fmt.Sprintf("constructor %s applied to too few arguments (%d)", e.Tag, len(e.Args)),
			}
		}
		return s, ctorType, nil

	case *ast.FieldAccess:
		s1, recordType, err := ti.infer(env, e.Record)
		if err != nil {
			return nil, nil, err
		}
		fieldType := ti.fresh()
		row := ti.fresh()
		want := TRecord{Fields: map[string]Type{e.Field: fieldType}, Row: row}
		s2, err := Unify(recordType.Apply(s1), want)
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		return s2.Compose(s1), fieldType.Apply(s2), nil
	}

	return nil, nil, &TypeError{Detail: fmt.Sprintf("cannot infer %T", expr)}
}

// inferRecGroup enters every bound name at a fresh monomorphic variable
// and infers each body against those placeholders. Generalization happens
// after the whole group has been unified, never per binding.
func (ti *Inferencer) inferRecGroup(env *TypeEnv, e *ast.LetRec) error {
	placeholders := make([]TVar, len(e.Bindings))
	for i, b := range e.Bindings {
		placeholders[i] = ti.fresh()
		env.Define(b.Name, &Scheme{Type: placeholders[i]})
	}

	s := Subst{}
	for i, b := range e.Bindings {
		si, valueType, err := ti.infer(env.ApplySubst(s), b.Value)
		if err != nil {
			return err
		}
		s = si.Compose(s)
		su, err := Unify(placeholders[i].Apply(s), valueType.Apply(s))
		if err != nil {
			return ti.located(err, b.Token)
		}
		s = su.Compose(s)
	}

	substEnv := env.ApplySubst(s)
	for i, b := range e.Bindings {
		env.Define(b.Name, generalize(substEnv, placeholders[i].Apply(s)))
	}
	return nil
}

func (ti *Inferencer) inferMatch(env *TypeEnv, e *ast.Match) (Subst, Type, error) {
	s, scrutType, err := ti.infer(env, e.Scrutinee)
	if err != nil {
		return nil, nil, err
	}

	resultType := Type(ti.fresh())
	for _, arm := range e.Arms {
		armEnv := env.ApplySubst(s).Child()
		sp, err := ti.inferPattern(armEnv, arm.Pattern, scrutType.Apply(s))
		if err != nil {
			return nil, nil, err
		}
		s = sp.Compose(s)

		sb, bodyType, err := ti.infer(armEnv.ApplySubst(s), arm.Body)
		if err != nil {
			return nil, nil, err
		}
		s = sb.Compose(s)
		su, err := Unify(resultType.Apply(s), bodyType.Apply(s))
		if err != nil {
			return nil, nil, ti.located(err, arm.Token)
		}
		s = su.Compose(s)
	}
	return s, resultType.Apply(s), nil
}

// inferPattern unifies the pattern's shape with t, defining every bound
// variable monomorphically in env.
func (ti *Inferencer) inferPattern(env *TypeEnv, pat ast.Pattern, t Type) (Subst, error) {
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		return Subst{}, nil

	case *ast.VarPattern:
		env.Define(p.Name, &Scheme{Type: t})
		return Subst{}, nil

	case *ast.LiteralPattern:
		var litType Type
		switch p.Value.(type) {
		case *ast.IntLit:
			litType = IntType
		case *ast.FloatLit:
			litType = FloatType
		case *ast.StringLit:
			litType = StringType
		case *ast.BoolLit:
			litType = BoolType
		case *ast.UnitLit:
			litType = UnitType
		}
		s, err := Unify(t, litType)
		if err != nil {
			return nil, ti.located(err, p.Token)
		}
		return s, nil

	case *ast.TuplePattern:
		elements := make([]Type, len(p.Elements))
		for i := range p.Elements {
			elements[i] = ti.fresh()
		}
		s, err := Unify(t, TTuple{Elements: elements})
		if err != nil {
			return nil, ti.located(err, p.Token)
		}
		for i, sub := range p.Elements {
			si, err := ti.inferPattern(env, sub, elements[i].Apply(s))
			if err != nil {
				return nil, err
			}
			s = si.Compose(s)
		}
		return s, nil

	case *ast.VariantPattern:
		scheme, ok := env.Lookup(p.Tag)
		if !ok {
			return nil, &TypeError{
				Kind: UnboundVariable, Name: p.Tag,
				Line: p.Token.Line, Column: p.Token.Column,
			}
		}
		ctorType := ti.instantiate(scheme)
		fieldTypes := make([]Type, 0, len(p.Args))
		for range p.Args {
			fn, isFn := ctorType.(TFunc)
			if !isFn {
				return nil, &TypeError{
					Kind: ArityMismatch,
					Line: p.Token.Line, Column: p.Token.Column,
					Detail: fmt.Sprintf("constructor %s matched with too many subpatterns (%d)", p.Tag, len(p.Args)),
				}
			}
			fieldTypes = append(fieldTypes, fn.Param)
			ctorType = fn.Return
		}
		if _, stillFn := ctorType.(TFunc); stillFn {
			return nil, &TypeError{
				Kind: ArityMismatch,
				Line: p.Token.Line, Column: p.Token.Column,
				Detail: fmt.Sprintf("constructor %s matched with too few subpatterns (%d)", p.Tag, len(p.Args)),
			}
		}
		s, err := Unify(t, ctorType)
		if err != nil {
			return nil, ti.located(err, p.Token)
		}
		for i, sub := range p.Args {
			si, err := ti.inferPattern(env, sub, fieldTypes[i].Apply(s))
			if err != nil {
				return nil, err
			}
			s = si.Compose(s)
		}
		return s, nil

	case *ast.RecordPattern:
		fields := make(map[string]Type, len(p.Fields))
		for _, f := range p.Fields {
			fields[f.Name] = ti.fresh()
		}
		row := ti.fresh()
		s, err := Unify(t, TRecord{Fields: fields, Row: row})
		if err != nil {
			return nil, ti.located(err, p.Token)
		}
		for _, f := range p.Fields {
			si, err := ti.inferPattern(env, f.Pattern, fields[f.Name].Apply(s))
			if err != nil {
				return nil, err
			}
			s = si.Compose(s)
		}
		return s, nil
	}

	return nil, &TypeError{Detail: fmt.Sprintf("cannot infer pattern %T", pat)}
}

func (ti *Inferencer) inferBinary(env *TypeEnv, e *ast.Binary) (Subst, Type, error) {
	s1, leftType, err := ti.infer(env, e.Left)
	if err != nil {
		return nil, nil, err
	}
	s2, rightType, err := ti.infer(env.ApplySubst(s1), e.Right)
	if err != nil {
		return nil, nil, err
	}
	s := s2.Compose(s1)
	left := leftType.Apply(s)
	right := rightType.Apply(s)

	switch e.Op {
	case "+", "-", "*", "/":
		su, err := Unify(left, right)
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		s = su.Compose(s)
		sn, numType, err := ti.requireNumeric(left.Apply(s), e.Token)
		if err != nil {
			return nil, nil, err
		}
		return sn.Compose(s), numType, nil

	case "%":
		su, err := Unify(left, IntType)
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		s = su.Compose(s)
		su, err = Unify(right.Apply(s), IntType)
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		return su.Compose(s), IntType, nil

	case "<", "<=", ">", ">=":
		su, err := Unify(left, right)
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		s = su.Compose(s)
		sn, _, err := ti.requireNumeric(left.Apply(s), e.Token)
		if err != nil {
			return nil, nil, err
		}
		return sn.Compose(s), BoolType, nil

	case "==", "!=":
		su, err := Unify(left, right)
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		return su.Compose(s), BoolType, nil

	case "&&", "||":
		su, err := Unify(left, BoolType)
		if err != nil {
			return nil, nil, ti.located(err, e.Left.GetToken())
		}
		s = su.Compose(s)
		su, err = Unify(right.Apply(s), BoolType)
		if err != nil {
			return nil, nil, ti.located(err, e.Right.GetToken())
		}
		return su.Compose(s), BoolType, nil

	case "::":
		su, err := Unify(right, ListOf(left))
		if err != nil {
			return nil, nil, ti.located(err, e.Token)
		}
		s = su.Compose(s)
		return s, right.Apply(s), nil
	}

	return nil, nil, &TypeError{
		Detail: fmt.Sprintf("unknown operator %s", e.Op),
		Line:   e.Token.Line, Column: e.Token.Column,
	}
}

// requireNumeric constrains t to Int or Float. An unconstrained variable
// defaults to Int, which keeps `fun x -> x + 1` at Int -> Int.
func (ti *Inferencer) requireNumeric(t Type, tok token.Token) (Subst, Type, error) {
	switch tt := t.(type) {
	case TCon:
		if tt.Name == "Int" || tt.Name == "Float" {
			return Subst{}, tt, nil
		}
	case TVar:
		return Subst{tt.Name: IntType}, IntType, nil
	}
	return nil, nil, &TypeError{
		Kind: TypeMismatch, Expected: "Int or Float", Got: t.String(),
		Line: tok.Line, Column: tok.Column,
	}
}

// instantiate replaces a scheme's quantified variables with fresh ones.
func (ti *Inferencer) instantiate(scheme *Scheme) Type {
	if len(scheme.Vars) == 0 {
		return scheme.Type
	}
	s := Subst{}
	for _, v := range scheme.Vars {
		s[v] = ti.fresh()
	}
	return scheme.Type.Apply(s)
}

// generalize quantifies every variable free in t but not in env.
func generalize(env *TypeEnv, t Type) *Scheme {
	envFree := make(map[string]bool)
	for _, v := range env.FreeTypeVariables() {
		envFree[v.Name] = true
	}
	var vars []string
	for _, v := range t.FreeTypeVariables() {
		if !envFree[v.Name] {
			vars = append(vars, v.Name)
		}
	}
	return &Scheme{Vars: vars, Type: t}
}

// located fills in a position on a TypeError that has none.
func (ti *Inferencer) located(err error, tok token.Token) error {
	if terr, ok := err.(*TypeError); ok && terr.Line == 0 {
		terr.Line = tok.Line
		terr.Column = tok.Column
	}
	return err
}

// registerTypeDecl turns an ADT declaration into constructor schemes:
//
//	type Option a = Some of a | None
//
// yields Some : forall a. a -> Option a and None : forall a. Option a.
func (ti *Inferencer) registerTypeDecl(env *TypeEnv, decl *ast.TypeDecl) error {
	params := make(map[string]bool, len(decl.Params))
	for _, p := range decl.Params {
		params[p] = true
	}

	var resultType Type
	if len(decl.Params) == 0 {
		resultType = TCon{Name: decl.Name}
	} else {
		args := make([]Type, len(decl.Params))
		for i, p := range decl.Params {
			args[i] = TVar{Name: p}
		}
		resultType = TApp{Constructor: TCon{Name: decl.Name}, Args: args}
	}

	for _, variant := range decl.Variants {
		ctorType := resultType
		for i := len(variant.Fields) - 1; i >= 0; i-- {
			fieldType, err := resolveTypeRef(variant.Fields[i], params)
			if err != nil {
				return err
			}
			ctorType = TFunc{Param: fieldType, Return: ctorType}
		}
		env.Define(variant.Tag, &Scheme{Vars: decl.Params, Type: ctorType})
	}
	return nil
}

func resolveTypeRef(ref *ast.TypeRef, params map[string]bool) (Type, error) {
	if ref.IsVar {
		if !params[ref.Name] {
			return nil, &TypeError{
				Kind: UnboundVariable, Name: ref.Name,
				Line: ref.Token.Line, Column: ref.Token.Column,
				Detail: "type variable not declared as a parameter",
			}
		}
		return TVar{Name: ref.Name}, nil
	}

	if len(ref.Args) == 0 {
		return TCon{Name: ref.Name}, nil
	}
	args := make([]Type, len(ref.Args))
	for i, arg := range ref.Args {
		resolved, err := resolveTypeRef(arg, params)
		if err != nil {
			return nil, err
		}
		args[i] = resolved
	}
	return TApp{Constructor: TCon{Name: ref.Name}, Args: args}, nil
}
