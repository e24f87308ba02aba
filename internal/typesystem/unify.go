package typesystem

import (
	"fmt"
	"sync/atomic"
)

// rowCounter feeds fresh row variables created during record unification.
// Inference variables use the "t" namespace, rows use "r", so the two
// sources never collide.
var rowCounter int64

func freshRowVar() TVar {
	n := atomic.AddInt64(&rowCounter, 1)
	return TVar{Name: fmt.Sprintf("r%d", n)}
}

// Unify finds a substitution that makes t1 and t2 equal, or fails with a
// *TypeError. Function, tuple, list and record-row types unify
// component-wise; a variable unifies with any type after the occurs check.
func Unify(t1, t2 Type) (Subst, error) {
	switch a := t1.(type) {
	case TVar:
		return bindVar(a, t2)
	}
	if b, ok := t2.(TVar); ok {
		return bindVar(b, t1)
	}

	switch a := t1.(type) {
	case TCon:
		if b, ok := t2.(TCon); ok && a.Name == b.Name {
			return Subst{}, nil
		}
		return nil, mismatch(t1, t2)

	case TApp:
		b, ok := t2.(TApp)
		if !ok {
			return nil, mismatch(t1, t2)
		}
		if len(a.Args) != len(b.Args) {
			return nil, &TypeError{
				Kind:   ArityMismatch,
				Detail: fmt.Sprintf("%s applied to %d arguments, %s to %d", a.Constructor, len(a.Args), b.Constructor, len(b.Args)),
			}
		}
		s, err := Unify(a.Constructor, b.Constructor)
		if err != nil {
			return nil, err
		}
		for i := range a.Args {
			si, err := Unify(a.Args[i].Apply(s), b.Args[i].Apply(s))
			if err != nil {
				return nil, err
			}
			s = si.Compose(s)
		}
		return s, nil

	case TFunc:
		b, ok := t2.(TFunc)
		if !ok {
			return nil, mismatch(t1, t2)
		}
		s1, err := Unify(a.Param, b.Param)
		if err != nil {
			return nil, err
		}
		s2, err := Unify(a.Return.Apply(s1), b.Return.Apply(s1))
		if err != nil {
			return nil, err
		}
		return s2.Compose(s1), nil

	case TTuple:
		b, ok := t2.(TTuple)
		if !ok {
			return nil, mismatch(t1, t2)
		}
		if len(a.Elements) != len(b.Elements) {
			return nil, &TypeError{
				Kind:   ArityMismatch,
				Detail: fmt.Sprintf("tuple of %d elements vs tuple of %d elements", len(a.Elements), len(b.Elements)),
			}
		}
		s := Subst{}
		for i := range a.Elements {
			si, err := Unify(a.Elements[i].Apply(s), b.Elements[i].Apply(s))
			if err != nil {
				return nil, err
			}
			s = si.Compose(s)
		}
		return s, nil

	case TRecord:
		b, ok := t2.(TRecord)
		if !ok {
			return nil, mismatch(t1, t2)
		}
		return unifyRecords(a, b)
	}

	return nil, mismatch(t1, t2)
}

// bindVar maps v to t after the occurs check, which rejects any binding
// that would create an infinite type.
func bindVar(v TVar, t Type) (Subst, error) {
	if other, ok := t.(TVar); ok && other.Name == v.Name {
		return Subst{}, nil
	}
	if OccursIn(v.Name, t) {
		return nil, &TypeError{Kind: OccursCheckFailure, Name: v.Name, Got: t.String()}
	}
	return Subst{v.Name: t}, nil
}

// unifyRecords unifies two record types with row polymorphism: fields
// present in both unify pairwise; fields present in only one side must be
// absorbed by the other side's row variable.
func unifyRecords(a, b TRecord) (Subst, error) {
	s := Subst{}

	for name, at := range a.Fields {
		bt, ok := b.Fields[name]
		if !ok {
			continue
		}
		si, err := Unify(at.Apply(s), bt.Apply(s))
		if err != nil {
			return nil, err
		}
		s = si.Compose(s)
	}

	onlyA := restOf(a, b)
	onlyB := restOf(b, a)

	switch {
	case len(onlyA) == 0 && len(onlyB) == 0:
		si, err := unifyRows(a.Row, b.Row)
		if err != nil {
			return nil, err
		}
		return si.Compose(s), nil

	case len(onlyB) > 0 && len(onlyA) == 0:
		// b has extra fields; a's row must absorb them.
		si, err := absorbRow(a.Row, onlyB, b.Row)
		if err != nil {
			return nil, mismatch(a, b)
		}
		return si.Compose(s), nil

	case len(onlyA) > 0 && len(onlyB) == 0:
		si, err := absorbRow(b.Row, onlyA, a.Row)
		if err != nil {
			return nil, mismatch(a, b)
		}
		return si.Compose(s), nil

	default:
		// Both sides have exclusive fields: each row must absorb the
		// other's extras, sharing a fresh tail.
		if a.Row == nil || b.Row == nil {
			return nil, mismatch(a, b)
		}
		tail := freshRowVar()
		sa, err := absorbRowWithTail(a.Row, onlyB, tail)
		if err != nil {
			return nil, err
		}
		sb, err := absorbRowWithTail(b.Row, onlyA, tail)
		if err != nil {
			return nil, err
		}
		return sb.Compose(sa).Compose(s), nil
	}
}

func restOf(a, b TRecord) map[string]Type {
	out := make(map[string]Type)
	for name, t := range a.Fields {
		if _, ok := b.Fields[name]; !ok {
			out[name] = t
		}
	}
	return out
}

func unifyRows(ra, rb Type) (Subst, error) {
	switch {
	case ra == nil && rb == nil:
		return Subst{}, nil
	case ra == nil:
		// Closed on the left: the right row must be empty.
		return Unify(rb, TRecord{Fields: map[string]Type{}})
	case rb == nil:
		return Unify(ra, TRecord{Fields: map[string]Type{}})
	default:
		return Unify(ra, rb)
	}
}

func absorbRow(row Type, extra map[string]Type, otherRow Type) (Subst, error) {
	if row == nil {
		return nil, fmt.Errorf("closed record cannot absorb extra fields")
	}
	var tail Type
	if otherRow != nil {
		tail = otherRow
	}
	return Unify(row, TRecord{Fields: extra, Row: tail})
}

func absorbRowWithTail(row Type, extra map[string]Type, tail TVar) (Subst, error) {
	return Unify(row, TRecord{Fields: extra, Row: tail})
}
