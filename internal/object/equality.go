package object

// Equals implements structural equality over the value universe.
// Closures and host functions compare by identity.
func Equals(a, b Object) bool {
	switch av := a.(type) {
	case *Unit:
		_, ok := b.(*Unit)
		return ok
	case *Boolean:
		bv, ok := b.(*Boolean)
		return ok && av.Value == bv.Value
	case *Integer:
		switch bv := b.(type) {
		case *Integer:
			return av.Value == bv.Value
		case *Float:
			return float64(av.Value) == bv.Value
		}
		return false
	case *Float:
		switch bv := b.(type) {
		case *Float:
			return av.Value == bv.Value
		case *Integer:
			return av.Value == float64(bv.Value)
		}
		return false
	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value
	case *Tuple:
		bv, ok := b.(*Tuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equals(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *List:
		bv, ok := b.(*List)
		if !ok {
			return false
		}
		an, bn := av, bv
		for an != nil && bn != nil {
			if !Equals(an.Head, bn.Head) {
				return false
			}
			an, bn = an.Tail, bn.Tail
		}
		return an == nil && bn == nil
	case *Record:
		bv, ok := b.(*Record)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for k, v := range av.Fields {
			other, present := bv.Fields[k]
			if !present || !Equals(v, other) {
				return false
			}
		}
		return true
	case *Variant:
		bv, ok := b.(*Variant)
		if !ok || av.TypeName != bv.TypeName || av.Tag != bv.Tag || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			if !Equals(av.Fields[i], bv.Fields[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
