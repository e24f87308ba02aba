package fizz_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fizz-lang/fizz/internal/object"
	"github.com/fizz-lang/fizz/internal/typesystem"
	"github.com/fizz-lang/fizz/internal/vm"
	fizz "github.com/fizz-lang/fizz/pkg/embed"
)

func evalInt(t *testing.T, engine *fizz.VM, src string) int64 {
	t.Helper()
	result, err := engine.Eval(src)
	if err != nil {
		t.Fatalf("eval %q failed: %v", src, err)
	}
	i, ok := result.(int64)
	if !ok {
		t.Fatalf("eval %q: expected int64, got %T (%v)", src, result, result)
	}
	return i
}

func TestEvalArithmetic(t *testing.T) {
	engine := fizz.New()
	if got := evalInt(t, engine, "1 + 2 * 3"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestEvalTypeError(t *testing.T) {
	engine := fizz.New()
	_, err := engine.Eval(`1 + "two"`)
	if err == nil {
		t.Fatal("expected a type error")
	}
	var terr *typesystem.TypeError
	if !errors.As(err, &terr) {
		t.Errorf("expected a *typesystem.TypeError, got %T: %v", err, err)
	}
}

func TestBindValue(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("base", 40); err != nil {
		t.Fatal(err)
	}
	if got := evalInt(t, engine, "base + 2"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestBindFunction(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("add", func(a, b int) int { return a + b }); err != nil {
		t.Fatal(err)
	}

	if got := evalInt(t, engine, "add 40 2"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	// Bound functions curry like script functions.
	if got := evalInt(t, engine, "let inc = add 1 in inc 41"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestBindZeroArgFunction(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("answer", func() int { return 42 }); err != nil {
		t.Fatal(err)
	}
	if got := evalInt(t, engine, "answer ()"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestBindFunctionMultipleReturns(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("divmod", func(a, b int) (int, int) { return a / b, a % b }); err != nil {
		t.Fatal(err)
	}
	result, err := engine.Eval("divmod 7 2")
	if err != nil {
		t.Fatal(err)
	}
	pair, ok := result.([]interface{})
	if !ok || len(pair) != 2 {
		t.Fatalf("expected a pair, got %T (%v)", result, result)
	}
	if pair[0] != int64(3) || pair[1] != int64(1) {
		t.Errorf("expected (3, 1), got %v", pair)
	}
}

func TestBindFunctionErrorReturn(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("fail", func(msg string) (string, error) {
		return "", errors.New(msg)
	}); err != nil {
		t.Fatal(err)
	}

	_, err := engine.Eval(`fail "nope"`)
	if err == nil {
		t.Fatal("expected the host error to surface")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected the host message in %v", err)
	}
}

func TestBindVariadicRejected(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("sum", func(xs ...int) int { return 0 }); err == nil {
		t.Fatal("expected variadic functions to be rejected")
	}
}

func TestBindStruct(t *testing.T) {
	type User struct {
		Name string
		Age  int
	}
	engine := fizz.New()
	if err := engine.Bind("user", User{Name: "ada", Age: 36}); err != nil {
		t.Fatal(err)
	}

	result, err := engine.Eval("user.Name")
	if err != nil {
		t.Fatal(err)
	}
	if result != "ada" {
		t.Errorf("expected ada, got %v", result)
	}
	if got := evalInt(t, engine, "user.Age + 1"); got != 37 {
		t.Errorf("expected 37, got %d", got)
	}
}

func TestBindStructArgument(t *testing.T) {
	type Point struct {
		X int
		Y int
	}
	engine := fizz.New()
	if err := engine.Bind("norm", func(p Point) int { return p.X*p.X + p.Y*p.Y }); err != nil {
		t.Fatal(err)
	}
	if got := evalInt(t, engine, "norm { X = 3, Y = 4 }"); got != 25 {
		t.Errorf("expected 25, got %d", got)
	}
}

func TestBindSlice(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("xs", []int{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	result, err := engine.Eval("xs")
	if err != nil {
		t.Fatal(err)
	}
	list, ok := result.([]interface{})
	if !ok || len(list) != 3 || list[0] != int64(1) {
		t.Errorf("expected [1 2 3], got %v", result)
	}
}

func TestSliceArgument(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("total", func(xs []int) int {
		sum := 0
		for _, x := range xs {
			sum += x
		}
		return sum
	}); err != nil {
		t.Fatal(err)
	}
	if got := evalInt(t, engine, "total [1, 2, 3]"); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
}

func TestEvalRecordToMap(t *testing.T) {
	engine := fizz.New()
	result, err := engine.Eval(`{ name = "ada", age = 36 }`)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected a map, got %T", result)
	}
	if rec["name"] != "ada" || rec["age"] != int64(36) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestVariantRoundTrip(t *testing.T) {
	engine := fizz.New()
	result, err := engine.Eval(`
type Option a = Some of a | None

Some 3`)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := result.(fizz.Variant)
	if !ok {
		t.Fatalf("expected a Variant, got %T", result)
	}
	if v.Type != "Option" || v.Tag != "Some" || len(v.Fields) != 1 || v.Fields[0] != int64(3) {
		t.Errorf("unexpected variant %+v", v)
	}
}

func TestCall(t *testing.T) {
	engine := fizz.New()
	if _, err := engine.Eval("let double x = x * 2"); err != nil {
		t.Fatal(err)
	}

	result, err := engine.Call("double", 21)
	if err != nil {
		t.Fatal(err)
	}
	if result != int64(42) {
		t.Errorf("expected 42, got %v", result)
	}
}

func TestCallCurried(t *testing.T) {
	engine := fizz.New()
	if _, err := engine.Eval("let add a b = a + b"); err != nil {
		t.Fatal(err)
	}

	// Supplying one argument yields an opaque partial application that
	// can be rebound and finished later.
	partial, err := engine.Call("add", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Set("inc", partial); err != nil {
		t.Fatal(err)
	}
	result, err := engine.Call("inc", 41)
	if err != nil {
		t.Fatal(err)
	}
	if result != int64(42) {
		t.Errorf("expected 42, got %v", result)
	}
}

func TestCallHostArityEnforced(t *testing.T) {
	engine := fizz.New()
	calls := 0
	if err := engine.Bind("combine", func(a, b int) int {
		calls++
		return a*10 + b
	}); err != nil {
		t.Fatal(err)
	}

	for _, args := range [][]interface{}{{1}, {1, 2, 3}} {
		_, err := engine.Call("combine", args...)
		var verr *vm.VMError
		if !errors.As(err, &verr) || verr.Kind != vm.ArityMismatch {
			t.Fatalf("Call with %d args: expected an arity mismatch, got %v", len(args), err)
		}
	}
	if calls != 0 {
		t.Fatalf("native body ran %d times on rejected calls", calls)
	}

	result, err := engine.Call("combine", 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if result != int64(42) {
		t.Errorf("expected 42, got %v", result)
	}
	if calls != 1 {
		t.Errorf("expected one native invocation, got %d", calls)
	}
}

func TestCallHostPartialArityEnforced(t *testing.T) {
	engine := fizz.New()
	if err := engine.Bind("combine", func(a, b int) int {
		return a*10 + b
	}); err != nil {
		t.Fatal(err)
	}

	// Script code applies host functions one argument at a time; an
	// under-applied host function is an opaque partial whose remaining
	// arity Call still enforces.
	partial, err := engine.Eval("combine 4")
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Set("half", partial); err != nil {
		t.Fatal(err)
	}

	_, err = engine.Call("half", 1, 2)
	var verr *vm.VMError
	if !errors.As(err, &verr) || verr.Kind != vm.ArityMismatch {
		t.Fatalf("expected an arity mismatch for the over-applied partial, got %v", err)
	}

	result, err := engine.Call("half", 2)
	if err != nil {
		t.Fatal(err)
	}
	if result != int64(42) {
		t.Errorf("expected 42, got %v", result)
	}
}

func TestCallUnknown(t *testing.T) {
	engine := fizz.New()
	if _, err := engine.Call("ghost"); err == nil {
		t.Fatal("expected an error for an unknown function")
	}
}

func TestSetAndGet(t *testing.T) {
	engine := fizz.New()
	if err := engine.Set("flag", true); err != nil {
		t.Fatal(err)
	}
	val, err := engine.Get("flag")
	if err != nil {
		t.Fatal(err)
	}
	if val != true {
		t.Errorf("expected true, got %v", val)
	}

	if _, err := engine.Get("missing"); err == nil {
		t.Error("expected an error for a missing global")
	}
}

func TestRegisterFunc(t *testing.T) {
	engine := fizz.New()
	engine.RegisterFunc("first", 1, func(args []object.Object) (object.Object, error) {
		list, ok := args[0].(*object.List)
		if !ok || list.IsEmpty() {
			return nil, errors.New("first: empty list")
		}
		return list.Head, nil
	})

	if got := evalInt(t, engine, "first [7, 8, 9]"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if _, err := engine.Eval("first []"); err == nil {
		t.Error("expected the host error for an empty list")
	}
}

func TestRegisterModule(t *testing.T) {
	engine := fizz.New()
	engine.RegisterModule("Math", map[string]object.Object{
		"zero": &object.Integer{Value: 0},
		"inc": &object.HostFunction{
			Name:  "Math.inc",
			Arity: 1,
			Fn: func(args []object.Object) (object.Object, error) {
				n := args[0].(*object.Integer)
				return &object.Integer{Value: n.Value + 1}, nil
			},
		},
	}, []string{"zero", "inc"})

	if got := evalInt(t, engine, "Math.inc Math.zero"); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := evalInt(t, engine, "open Math\n\ninc (inc zero)"); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
}

func TestGlobalsPersistAcrossEvals(t *testing.T) {
	engine := fizz.New()
	if _, err := engine.Eval("let counter = 41"); err != nil {
		t.Fatal(err)
	}
	if got := evalInt(t, engine, "counter + 1"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestLoadFileScript(t *testing.T) {
	engine := fizz.New()
	path := filepath.Join(t.TempDir(), "main.fz")
	if err := os.WriteFile(path, []byte("let x = 40 in x + 2"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := engine.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if result != int64(42) {
		t.Errorf("expected 42, got %v", result)
	}
}

func TestLoadFileBundle(t *testing.T) {
	engine := fizz.New()
	chunk, err := engine.Compile("6 * 7", "main.fz")
	if err != nil {
		t.Fatal(err)
	}
	data, err := vm.EncodeBundle(chunk)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "main.fzb")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	result, err := engine.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if result != int64(42) {
		t.Errorf("expected 42, got %v", result)
	}
}
