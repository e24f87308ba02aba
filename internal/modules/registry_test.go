package modules_test

import (
	"testing"

	"github.com/fizz-lang/fizz/internal/modules"
	"github.com/fizz-lang/fizz/internal/object"
)

func mathModule(r *modules.Registry) *modules.Module {
	return r.Register("Math", map[string]object.Object{
		"pi":     &object.Float{Value: 3.14159},
		"zero":   &object.Integer{Value: 0},
		"hidden": &object.Integer{Value: 99},
	}, []string{"pi", "zero"})
}

func TestRegisterAndGet(t *testing.T) {
	r := modules.NewRegistry()
	mathModule(r)

	if !r.Has("Math") {
		t.Fatal("expected Math to be registered")
	}
	mod, ok := r.Get("Math")
	if !ok {
		t.Fatal("expected Get to find Math")
	}
	if mod.Name != "Math" {
		t.Errorf("expected name Math, got %s", mod.Name)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := modules.NewRegistry()
	first := mathModule(r)
	second := r.Register("Math", map[string]object.Object{
		"pi": &object.Integer{Value: 3},
	}, []string{"pi"})

	if first != second {
		t.Fatal("expected a second registration to return the existing module")
	}
	v, ok := r.ResolveQualified("Math", "pi")
	if !ok {
		t.Fatal("expected pi to resolve")
	}
	if _, isFloat := v.(*object.Float); !isFloat {
		t.Error("second registration must not replace the first bindings")
	}
}

func TestResolveQualified(t *testing.T) {
	r := modules.NewRegistry()
	mathModule(r)

	if _, ok := r.ResolveQualified("Math", "pi"); !ok {
		t.Error("expected an exported binding to resolve")
	}
	if _, ok := r.ResolveQualified("Math", "hidden"); ok {
		t.Error("expected an unexported binding to be invisible")
	}
	if _, ok := r.ResolveQualified("Math", "missing"); ok {
		t.Error("expected an unknown name to be invisible")
	}
	if _, ok := r.ResolveQualified("Nope", "pi"); ok {
		t.Error("expected an unknown module to be invisible")
	}
}

func TestExportedNamesSorted(t *testing.T) {
	r := modules.NewRegistry()
	mod := mathModule(r)

	names := mod.ExportedNames()
	if len(names) != 2 || names[0] != "pi" || names[1] != "zero" {
		t.Errorf("expected [pi zero], got %v", names)
	}
}

func TestNamesSorted(t *testing.T) {
	r := modules.NewRegistry()
	r.Register("Zeta", nil, nil)
	r.Register("Alpha", nil, nil)
	mathModule(r)

	names := r.Names()
	want := []string{"Alpha", "Math", "Zeta"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}
