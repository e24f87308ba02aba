package typesystem_test

import (
	"testing"

	"github.com/fizz-lang/fizz/internal/parser"
	"github.com/fizz-lang/fizz/internal/typesystem"
)

func inferExpr(t *testing.T, src string) (typesystem.Type, error) {
	t.Helper()
	expr, err := parser.ParseExpr(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return typesystem.Infer(expr, typesystem.NewTypeEnv())
}

func inferProgram(t *testing.T, src string) (typesystem.Type, error) {
	t.Helper()
	prog, err := parser.ParseProgram(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return typesystem.InferProgram(prog, typesystem.NewTypeEnv())
}

func mustInfer(t *testing.T, src string) typesystem.Type {
	t.Helper()
	typ, err := inferExpr(t, src)
	if err != nil {
		t.Fatalf("infer %q: %v", src, err)
	}
	return typ
}

func wantKind(t *testing.T, err error, kind typesystem.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a type error")
	}
	terr, ok := err.(*typesystem.TypeError)
	if !ok {
		t.Fatalf("expected *TypeError, got %T: %v", err, err)
	}
	if terr.Kind != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, terr.Kind, err)
	}
}

func TestLiteralTypes(t *testing.T) {
	cases := []struct {
		src, want string
	}{
		{"42", "Int"},
		{"3.14", "Float"},
		{"true", "Bool"},
		{`"hi"`, "String"},
		{"()", "Unit"},
		{"(1, true)", "(Int, Bool)"},
		{"[1, 2]", "(List Int)"},
	}
	for _, tc := range cases {
		got := mustInfer(t, tc.src)
		if got.String() != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.src, tc.want, got)
		}
	}
}

func TestIdentityIsPolymorphic(t *testing.T) {
	typ := mustInfer(t, "fun x -> x")
	fn, ok := typ.(typesystem.TFunc)
	if !ok {
		t.Fatalf("expected a function type, got %s", typ)
	}
	param, ok := fn.Param.(typesystem.TVar)
	if !ok {
		t.Fatalf("expected a type variable parameter, got %s", fn.Param)
	}
	ret, ok := fn.Return.(typesystem.TVar)
	if !ok || ret.Name != param.Name {
		t.Errorf("expected %s -> %s, got %s", param, param, typ)
	}
}

func TestLetPolymorphism(t *testing.T) {
	// id must be usable at two different types in one body.
	typ := mustInfer(t, `let id = fun x -> x in (id 1, id true)`)
	if typ.String() != "(Int, Bool)" {
		t.Errorf("expected (Int, Bool), got %s", typ)
	}
}

func TestLambdaParamIsMonomorphic(t *testing.T) {
	// A lambda parameter is not generalized, so using f at two types fails.
	_, err := inferExpr(t, `(fun f -> (f 1, f true)) (fun x -> x)`)
	wantKind(t, err, typesystem.TypeMismatch)
}

func TestMismatch(t *testing.T) {
	_, err := inferExpr(t, `if 1 then 2 else 3`)
	wantKind(t, err, typesystem.TypeMismatch)

	_, err = inferExpr(t, `1 + true`)
	wantKind(t, err, typesystem.TypeMismatch)

	_, err = inferExpr(t, `if true then 1 else "s"`)
	wantKind(t, err, typesystem.TypeMismatch)
}

func TestOccursCheck(t *testing.T) {
	_, err := inferExpr(t, `fun x -> x x`)
	wantKind(t, err, typesystem.OccursCheckFailure)
}

func TestUnboundVariable(t *testing.T) {
	_, err := inferExpr(t, `nope + 1`)
	wantKind(t, err, typesystem.UnboundVariable)
	terr := err.(*typesystem.TypeError)
	if terr.Name != "nope" {
		t.Errorf("expected offending name nope, got %q", terr.Name)
	}
}

func TestArithmeticDefaulting(t *testing.T) {
	// With no other constraint, arithmetic defaults its operands to Int.
	typ := mustInfer(t, `fun x -> x + x`)
	if typ.String() != "Int -> Int" {
		t.Errorf("expected Int -> Int, got %s", typ)
	}
}

func TestFloatArithmetic(t *testing.T) {
	typ := mustInfer(t, `1.5 + 2.5`)
	if typ.String() != "Float" {
		t.Errorf("expected Float, got %s", typ)
	}
}

func TestComparisonYieldsBool(t *testing.T) {
	typ := mustInfer(t, `1 < 2`)
	if typ.String() != "Bool" {
		t.Errorf("expected Bool, got %s", typ)
	}
	_, err := inferExpr(t, `"a" < "b"`)
	wantKind(t, err, typesystem.TypeMismatch)
}

func TestConsTyping(t *testing.T) {
	typ := mustInfer(t, `1 :: [2, 3]`)
	if typ.String() != "(List Int)" {
		t.Errorf("expected (List Int), got %s", typ)
	}
	_, err := inferExpr(t, `1 :: [true]`)
	wantKind(t, err, typesystem.TypeMismatch)
}

func TestHeterogeneousListFails(t *testing.T) {
	_, err := inferExpr(t, `[1, true]`)
	wantKind(t, err, typesystem.TypeMismatch)
}

func TestLetRec(t *testing.T) {
	typ := mustInfer(t, `let rec fact n = if n == 0 then 1 else n * fact (n - 1) in fact`)
	if typ.String() != "Int -> Int" {
		t.Errorf("expected Int -> Int, got %s", typ)
	}
}

func TestMutualRecursion(t *testing.T) {
	src := `let rec even n = if n == 0 then true else odd (n - 1)
	and odd n = if n == 0 then false else even (n - 1)
	in even 10`
	typ := mustInfer(t, src)
	if typ.String() != "Bool" {
		t.Errorf("expected Bool, got %s", typ)
	}
}

func TestConstructors(t *testing.T) {
	src := `
type Option a = Some of a | None

Some 42`
	typ, err := inferProgram(t, src)
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if typ.String() != "(Option Int)" {
		t.Errorf("expected (Option Int), got %s", typ)
	}
}

func TestConstructorArity(t *testing.T) {
	src := `
type Pair a b = Pair of a * b

Pair 1`
	_, err := inferProgram(t, src)
	wantKind(t, err, typesystem.ArityMismatch)
}

func TestMatchArmUnification(t *testing.T) {
	src := `
type Option a = Some of a | None

let get o = match o with
	| Some n -> n
	| None -> 0

get`
	typ, err := inferProgram(t, src)
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if typ.String() != "(Option Int) -> Int" {
		t.Errorf("expected (Option Int) -> Int, got %s", typ)
	}
}

func TestMatchArmMismatch(t *testing.T) {
	src := `
type Option a = Some of a | None

match Some 1 with
	| Some n -> n
	| None -> "zero"`
	_, err := inferProgram(t, src)
	wantKind(t, err, typesystem.TypeMismatch)
}

func TestRecordFieldAccess(t *testing.T) {
	typ := mustInfer(t, `{ name = "ada", age = 36 }.age`)
	if typ.String() != "Int" {
		t.Errorf("expected Int, got %s", typ)
	}
}

func TestRowPolymorphicFieldAccess(t *testing.T) {
	// A function reading .age accepts any record carrying that field.
	typ := mustInfer(t, `let getAge r = r.age in (getAge { age = 1 }, getAge { age = 2, name = "b" })`)
	if typ.String() != "(Int, Int)" {
		t.Errorf("expected (Int, Int), got %s", typ)
	}
}

func TestMissingFieldFails(t *testing.T) {
	_, err := inferExpr(t, `{ name = "x" }.age`)
	wantKind(t, err, typesystem.TypeMismatch)
}

func TestModuleTyping(t *testing.T) {
	src := `
module Math =
	let double x = x * 2
end

Math.double 21`
	typ, err := inferProgram(t, src)
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if typ.String() != "Int" {
		t.Errorf("expected Int, got %s", typ)
	}
}

func TestOpenBringsNamesIntoScope(t *testing.T) {
	src := `
module Math =
	let double x = x * 2
end

open Math

double 5`
	typ, err := inferProgram(t, src)
	if err != nil {
		t.Fatalf("infer failed: %v", err)
	}
	if typ.String() != "Int" {
		t.Errorf("expected Int, got %s", typ)
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := inferExpr(t, "if true\nthen 1\nelse false")
	terr, ok := err.(*typesystem.TypeError)
	if !ok {
		t.Fatalf("expected *TypeError, got %T", err)
	}
	if terr.Line == 0 {
		t.Error("expected a source position on the error")
	}
}

func TestInferDoesNotMutateAST(t *testing.T) {
	expr, err := parser.ParseExpr("fun x -> x + 1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := typesystem.Infer(expr, typesystem.NewTypeEnv()); err != nil {
		t.Fatal(err)
	}
	// Inference twice over the same tree gives the same answer.
	typ, err := typesystem.Infer(expr, typesystem.NewTypeEnv())
	if err != nil {
		t.Fatal(err)
	}
	if typ.String() != "Int -> Int" {
		t.Errorf("expected Int -> Int on re-inference, got %s", typ)
	}
}
