package lexer_test

import (
	"strings"
	"testing"

	"github.com/fizz-lang/fizz/internal/lexer"
	"github.com/fizz-lang/fizz/internal/token"
)

func TestTokenize(t *testing.T) {
	input := `let add x y = x + y in add 1 2`

	expected := []struct {
		typ    token.Type
		lexeme string
	}{
		{token.LET, "let"},
		{token.IDENT, "add"},
		{token.IDENT, "x"},
		{token.IDENT, "y"},
		{token.ASSIGN, "="},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.IN, "in"},
		{token.IDENT, "add"},
		{token.INT, "1"},
		{token.INT, "2"},
	}

	toks, err := lexer.Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(toks) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(toks))
	}
	for i, exp := range expected {
		if toks[i].Type != exp.typ {
			t.Errorf("token %d: expected type %s, got %s", i, exp.typ, toks[i].Type)
		}
		if toks[i].Lexeme != exp.lexeme {
			t.Errorf("token %d: expected lexeme %q, got %q", i, exp.lexeme, toks[i].Lexeme)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `== != < <= > >= && || :: -> | _ %`

	expected := []token.Type{
		token.EQ, token.NOT_EQ, token.LT, token.LT_EQ, token.GT, token.GT_EQ,
		token.AND, token.OR, token.CONS, token.ARROW, token.PIPE, token.USCORE,
		token.PERCENT,
	}

	toks, err := lexer.Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(toks) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(toks))
	}
	for i, typ := range expected {
		if toks[i].Type != typ {
			t.Errorf("token %d: expected %s, got %s", i, typ, toks[i].Type)
		}
	}
}

func TestUpperIdentifiers(t *testing.T) {
	toks, err := lexer.Tokenize(`Some none Option xYz`)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	expected := []token.Type{token.UIDENT, token.IDENT, token.UIDENT, token.IDENT}
	for i, typ := range expected {
		if toks[i].Type != typ {
			t.Errorf("token %d (%q): expected %s, got %s", i, toks[i].Lexeme, typ, toks[i].Type)
		}
	}
}

func TestSpans(t *testing.T) {
	toks, err := lexer.Tokenize("let x = 10\nlet y = 200")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	// "10" sits at line 1 column 9, "200" at line 2 column 9.
	ten := toks[3]
	if ten.Line != 1 || ten.Column != 9 || ten.EndColumn != 11 {
		t.Errorf("expected 10 at 1:9-11, got %d:%d-%d", ten.Line, ten.Column, ten.EndColumn)
	}
	twoHundred := toks[7]
	if twoHundred.Line != 2 || twoHundred.Column != 9 || twoHundred.EndColumn != 12 {
		t.Errorf("expected 200 at 2:9-12, got %d:%d-%d", twoHundred.Line, twoHundred.Column, twoHundred.EndColumn)
	}
}

func TestNestedComments(t *testing.T) {
	input := `1 (* outer (* inner *) still outer *) 2`
	toks, err := lexer.Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(toks))
	}
	if toks[0].Lexeme != "1" || toks[1].Lexeme != "2" {
		t.Errorf("unexpected tokens %q, %q", toks[0].Lexeme, toks[1].Lexeme)
	}
}

func TestStringEscapes(t *testing.T) {
	toks, err := lexer.Tokenize(`"a\nb\t\"c\\"`)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	if len(toks) != 1 {
		t.Fatalf("expected 1 token, got %d", len(toks))
	}
	want := "a\nb\t\"c\\"
	if toks[0].Lexeme != want {
		t.Errorf("expected %q, got %q", want, toks[0].Lexeme)
	}
}

func TestFloatLiterals(t *testing.T) {
	toks, err := lexer.Tokenize(`3.14 2 0.5`)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	expected := []token.Type{token.FLOAT, token.INT, token.FLOAT}
	for i, typ := range expected {
		if toks[i].Type != typ {
			t.Errorf("token %d (%q): expected %s, got %s", i, toks[i].Lexeme, typ, toks[i].Type)
		}
	}
}

func TestLexErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"unterminated_string", `"abc`, "unterminated string"},
		{"unknown_escape", `"a\qb"`, "unknown escape"},
		{"unterminated_comment", `1 (* no close`, "unterminated comment"},
		{"malformed_number", `12abc`, "invalid numeric literal"},
		{"stray_ampersand", `1 & 2`, "unexpected character"},
		{"stray_bang", `!x`, "unexpected character"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := lexer.Tokenize(tc.input)
			if err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %q", tc.want, err)
			}
		})
	}
}

func TestLexErrorPosition(t *testing.T) {
	_, err := lexer.Tokenize("let x =\n  \"oops")
	lexErr, ok := err.(*lexer.LexError)
	if !ok {
		t.Fatalf("expected *LexError, got %T", err)
	}
	if lexErr.Line != 2 || lexErr.Column != 3 {
		t.Errorf("expected error at 2:3, got %d:%d", lexErr.Line, lexErr.Column)
	}
}
