package vm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fizz-lang/fizz/internal/object"
	"github.com/fizz-lang/fizz/internal/vm"
)

func TestBundleRoundTrip(t *testing.T) {
	src := `
let rec fact n = if n == 0 then 1 else n * fact (n - 1) in
fact 5`
	chunk := compile(t, src)

	data, err := vm.EncodeBundle(chunk)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := vm.DecodeBundle(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	result, err := vm.New().Execute(decoded)
	if err != nil {
		t.Fatalf("executing decoded chunk failed: %v", err)
	}
	i, ok := result.(*object.Integer)
	if !ok || i.Value != 120 {
		t.Errorf("expected 120, got %s", result.Inspect())
	}
}

func TestBundlePreservesPositions(t *testing.T) {
	chunk := compile(t, "let x = 1 in\nx / 0")
	data, err := vm.EncodeBundle(chunk)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := vm.DecodeBundle(data)
	if err != nil {
		t.Fatal(err)
	}

	_, err = vm.New().Execute(decoded)
	var verr *vm.VMError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *VMError, got %T: %v", err, err)
	}
	if verr.Kind != vm.DivisionByZero || verr.Line != 2 {
		t.Errorf("expected division by zero on line 2, got %v", err)
	}
}

func TestBundleDeterministic(t *testing.T) {
	chunk := compile(t, "let add x y = x + y in add 1 2")
	a, err := vm.EncodeBundle(chunk)
	if err != nil {
		t.Fatal(err)
	}
	b, err := vm.EncodeBundle(chunk)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding the same chunk twice produced different bytes")
	}
}

func TestBundleNestedFunctions(t *testing.T) {
	// Nested lambdas become nested function constants in the pool.
	src := `let f = (let a = 10 in fun b -> fun c -> a + b + c) in f 1 2`
	chunk := compile(t, src)

	data, err := vm.EncodeBundle(chunk)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := vm.DecodeBundle(data)
	if err != nil {
		t.Fatal(err)
	}
	result, err := vm.New().Execute(decoded)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	i, ok := result.(*object.Integer)
	if !ok || i.Value != 13 {
		t.Errorf("expected 13, got %s", result.Inspect())
	}
}

func TestDecodeBundleErrors(t *testing.T) {
	good, err := vm.EncodeBundle(compile(t, "1 + 1"))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("too_short", func(t *testing.T) {
		if _, err := vm.DecodeBundle([]byte{'F', 'Z'}); !errors.Is(err, vm.ErrBundleTooShort) {
			t.Errorf("expected ErrBundleTooShort, got %v", err)
		}
	})

	t.Run("bad_magic", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[0] = 'X'
		if _, err := vm.DecodeBundle(bad); !errors.Is(err, vm.ErrBadMagic) {
			t.Errorf("expected ErrBadMagic, got %v", err)
		}
	})

	t.Run("unsupported_version", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[4] = 0xFF
		if _, err := vm.DecodeBundle(bad); !errors.Is(err, vm.ErrUnsupportedVersion) {
			t.Errorf("expected ErrUnsupportedVersion, got %v", err)
		}
	})

	t.Run("corrupt_payload", func(t *testing.T) {
		bad := append([]byte(nil), good[:5]...)
		bad = append(bad, 0xFF, 0xFF, 0xFF)
		if _, err := vm.DecodeBundle(bad); err == nil {
			t.Error("expected an error for a corrupt payload")
		}
	})
}
