package parser_test

import (
	"fmt"
	"testing"

	"github.com/fizz-lang/fizz/internal/ast"
	"github.com/fizz-lang/fizz/internal/parser"
)

func parseExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	expr, err := parser.ParseExpr(src)
	if err != nil {
		t.Fatalf("ParseExpr(%q) failed: %v", src, err)
	}
	return expr
}

func TestCurriedLambdaDesugar(t *testing.T) {
	// `fun x y -> x` and `fun x -> fun y -> x` parse to the same shape.
	for _, src := range []string{"fun x y -> x", "fun x -> fun y -> x"} {
		expr := parseExpr(t, src)
		outer, ok := expr.(*ast.Lambda)
		if !ok {
			t.Fatalf("%q: expected Lambda, got %T", src, expr)
		}
		if outer.Param != "x" {
			t.Errorf("%q: outer param is %q, expected x", src, outer.Param)
		}
		inner, ok := outer.Body.(*ast.Lambda)
		if !ok {
			t.Fatalf("%q: expected nested Lambda body, got %T", src, outer.Body)
		}
		if inner.Param != "y" {
			t.Errorf("%q: inner param is %q, expected y", src, inner.Param)
		}
		if id, ok := inner.Body.(*ast.Identifier); !ok || id.Name != "x" {
			t.Errorf("%q: expected identifier x as body, got %#v", src, inner.Body)
		}
	}
}

func TestLetParamsDesugar(t *testing.T) {
	expr := parseExpr(t, "let add x y = x in add")
	let, ok := expr.(*ast.Let)
	if !ok {
		t.Fatalf("expected Let, got %T", expr)
	}
	outer, ok := let.Value.(*ast.Lambda)
	if !ok {
		t.Fatalf("expected lambda value, got %T", let.Value)
	}
	if outer.Param != "x" {
		t.Errorf("outer param is %q", outer.Param)
	}
	if inner, ok := outer.Body.(*ast.Lambda); !ok || inner.Param != "y" {
		t.Errorf("expected inner lambda over y, got %#v", outer.Body)
	}
}

func TestApplicationLeftAssociative(t *testing.T) {
	expr := parseExpr(t, "f a b")
	outer, ok := expr.(*ast.Apply)
	if !ok {
		t.Fatalf("expected Apply, got %T", expr)
	}
	inner, ok := outer.Fn.(*ast.Apply)
	if !ok {
		t.Fatalf("expected nested Apply on the left, got %T", outer.Fn)
	}
	if id, ok := inner.Fn.(*ast.Identifier); !ok || id.Name != "f" {
		t.Errorf("expected f at the head, got %#v", inner.Fn)
	}
}

func TestListSeparatorEquivalence(t *testing.T) {
	sources := []string{"[1, 2, 3]", "[1; 2; 3]", "[1, 2, 3,]", "[1; 2; 3;]"}
	for _, src := range sources {
		expr := parseExpr(t, src)
		list, ok := expr.(*ast.ListLit)
		if !ok {
			t.Fatalf("%q: expected ListLit, got %T", src, expr)
		}
		if len(list.Elements) != 3 {
			t.Fatalf("%q: expected 3 elements, got %d", src, len(list.Elements))
		}
		for i, el := range list.Elements {
			lit, ok := el.(*ast.IntLit)
			if !ok || lit.Value != int64(i+1) {
				t.Errorf("%q: element %d is %#v", src, i, el)
			}
		}
	}
}

func TestEmptyList(t *testing.T) {
	expr := parseExpr(t, "[]")
	list, ok := expr.(*ast.ListLit)
	if !ok {
		t.Fatalf("expected ListLit, got %T", expr)
	}
	if len(list.Elements) != 0 {
		t.Errorf("expected empty list, got %d elements", len(list.Elements))
	}
}

func TestConsRightAssociative(t *testing.T) {
	expr := parseExpr(t, "1 :: 2 :: []")
	outer, ok := expr.(*ast.Binary)
	if !ok || outer.Op != "::" {
		t.Fatalf("expected cons, got %#v", expr)
	}
	if lit, ok := outer.Left.(*ast.IntLit); !ok || lit.Value != 1 {
		t.Errorf("expected 1 on the left, got %#v", outer.Left)
	}
	inner, ok := outer.Right.(*ast.Binary)
	if !ok || inner.Op != "::" {
		t.Fatalf("expected nested cons on the right, got %#v", outer.Right)
	}
}

func TestPrecedence(t *testing.T) {
	expr := parseExpr(t, "1 + 2 * 3 == 7")
	eq, ok := expr.(*ast.Binary)
	if !ok || eq.Op != "==" {
		t.Fatalf("expected == at the root, got %#v", expr)
	}
	add, ok := eq.Left.(*ast.Binary)
	if !ok || add.Op != "+" {
		t.Fatalf("expected + under ==, got %#v", eq.Left)
	}
	if mul, ok := add.Right.(*ast.Binary); !ok || mul.Op != "*" {
		t.Errorf("expected * under +, got %#v", add.Right)
	}
}

func TestConstructApplication(t *testing.T) {
	expr := parseExpr(t, "Pair 1 2")
	c, ok := expr.(*ast.Construct)
	if !ok {
		t.Fatalf("expected Construct, got %T", expr)
	}
	if c.Tag != "Pair" || len(c.Args) != 2 {
		t.Errorf("expected Pair with 2 args, got %s with %d", c.Tag, len(c.Args))
	}
}

func TestQualifiedIdent(t *testing.T) {
	expr := parseExpr(t, "Math.pi")
	q, ok := expr.(*ast.QualifiedIdent)
	if !ok {
		t.Fatalf("expected QualifiedIdent, got %T", expr)
	}
	if q.Module != "Math" || q.Name != "pi" {
		t.Errorf("expected Math.pi, got %s.%s", q.Module, q.Name)
	}
}

func TestMatchArms(t *testing.T) {
	src := `match x with
		| Some 0 -> 1
		| Some n -> n
		| None -> 0`
	expr := parseExpr(t, src)
	m, ok := expr.(*ast.Match)
	if !ok {
		t.Fatalf("expected Match, got %T", expr)
	}
	if len(m.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(m.Arms))
	}

	first, ok := m.Arms[0].Pattern.(*ast.VariantPattern)
	if !ok || first.Tag != "Some" || len(first.Args) != 1 {
		t.Fatalf("unexpected first pattern %#v", m.Arms[0].Pattern)
	}
	if _, ok := first.Args[0].(*ast.LiteralPattern); !ok {
		t.Errorf("expected literal sub-pattern, got %T", first.Args[0])
	}
	second, ok := m.Arms[1].Pattern.(*ast.VariantPattern)
	if !ok || second.Tag != "Some" {
		t.Fatalf("unexpected second pattern %#v", m.Arms[1].Pattern)
	}
	if v, ok := second.Args[0].(*ast.VarPattern); !ok || v.Name != "n" {
		t.Errorf("expected var sub-pattern n, got %#v", second.Args[0])
	}
	third, ok := m.Arms[2].Pattern.(*ast.VariantPattern)
	if !ok || third.Tag != "None" || len(third.Args) != 0 {
		t.Errorf("unexpected third pattern %#v", m.Arms[2].Pattern)
	}
}

func TestNestedPatterns(t *testing.T) {
	src := `match p with
		| (Some a, { name = n }) -> n
		| _ -> "none"`
	expr := parseExpr(t, src)
	m := expr.(*ast.Match)
	tup, ok := m.Arms[0].Pattern.(*ast.TuplePattern)
	if !ok || len(tup.Elements) != 2 {
		t.Fatalf("expected 2-element tuple pattern, got %#v", m.Arms[0].Pattern)
	}
	if _, ok := tup.Elements[0].(*ast.VariantPattern); !ok {
		t.Errorf("expected variant sub-pattern, got %T", tup.Elements[0])
	}
	rec, ok := tup.Elements[1].(*ast.RecordPattern)
	if !ok || len(rec.Fields) != 1 || rec.Fields[0].Name != "name" {
		t.Errorf("unexpected record pattern %#v", tup.Elements[1])
	}
	if _, ok := m.Arms[1].Pattern.(*ast.WildcardPattern); !ok {
		t.Errorf("expected wildcard, got %T", m.Arms[1].Pattern)
	}
}

func TestLetRecAnd(t *testing.T) {
	expr := parseExpr(t, "let rec even n = odd n and odd n = even n in even 4")
	lr, ok := expr.(*ast.LetRec)
	if !ok {
		t.Fatalf("expected LetRec, got %T", expr)
	}
	if len(lr.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(lr.Bindings))
	}
	if lr.Bindings[0].Name != "even" || lr.Bindings[1].Name != "odd" {
		t.Errorf("unexpected binding names %s, %s", lr.Bindings[0].Name, lr.Bindings[1].Name)
	}
}

func TestProgramStructure(t *testing.T) {
	src := `
type Option a = Some of a | None

module Math =
	let pi = 3
	let double x = x * 2
end

open Math

let answer = double 21

answer`
	prog, err := parser.ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	if len(prog.TypeDecls) != 1 || prog.TypeDecls[0].Name != "Option" {
		t.Fatalf("unexpected type decls %#v", prog.TypeDecls)
	}
	decl := prog.TypeDecls[0]
	if len(decl.Params) != 1 || decl.Params[0] != "a" {
		t.Errorf("unexpected type params %v", decl.Params)
	}
	if len(decl.Variants) != 2 || decl.Variants[0].Tag != "Some" || decl.Variants[1].Tag != "None" {
		t.Errorf("unexpected variants %#v", decl.Variants)
	}
	if len(prog.Modules) != 1 || prog.Modules[0].Name != "Math" {
		t.Fatalf("unexpected modules %#v", prog.Modules)
	}
	if len(prog.Modules[0].Bindings) != 2 {
		t.Errorf("expected 2 module bindings, got %d", len(prog.Modules[0].Bindings))
	}
	if len(prog.Opens) != 1 || prog.Opens[0].Path[0] != "Math" {
		t.Errorf("unexpected opens %#v", prog.Opens)
	}
	if len(prog.Bindings) != 1 || prog.Bindings[0].Bindings[0].Name != "answer" {
		t.Errorf("unexpected top bindings %#v", prog.Bindings)
	}
	if id, ok := prog.Expr.(*ast.Identifier); !ok || id.Name != "answer" {
		t.Errorf("unexpected program expression %#v", prog.Expr)
	}
}

func TestUnaryMinus(t *testing.T) {
	expr := parseExpr(t, "-x + 1")
	add, ok := expr.(*ast.Binary)
	if !ok || add.Op != "+" {
		t.Fatalf("expected + at the root, got %#v", expr)
	}
	if u, ok := add.Left.(*ast.Unary); !ok || u.Op != "-" {
		t.Errorf("expected unary minus on the left, got %#v", add.Left)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"let = 1 in 2",
		"let x = 1",
		"if x then 1",
		"match x with",
		"fun -> 1",
		"(1, 2",
		"{ }",
		"let x = 1 and y = 2 in x",
	}
	for i, src := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			if _, err := parser.ParseExpr(src); err == nil {
				t.Errorf("expected parse error for %q", src)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := parser.ParseExpr("let x = in 2")
	perr, ok := err.(*parser.ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Line != 1 || perr.Column != 9 {
		t.Errorf("expected error at 1:9, got %d:%d", perr.Line, perr.Column)
	}
}
