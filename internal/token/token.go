package token

// Type identifies the kind of a token.
type Type string

// Token is a single lexical unit with its source position.
// Line and Column are 1-based; EndColumn points one past the last rune.
type Token struct {
	Type      Type
	Lexeme    string
	Line      int
	Column    int
	EndColumn int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"  // x, add, foo_bar
	UIDENT = "UIDENT" // Some, Cons, List (capitalised: constructors, modules)
	INT    = "INT"    // 42
	FLOAT  = "FLOAT"  // 3.14
	STRING = "STRING" // "hello"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"

	EQ     = "=="
	NOT_EQ = "!="
	LT     = "<"
	LT_EQ  = "<="
	GT     = ">"
	GT_EQ  = ">="

	AND = "&&"
	OR  = "||"

	CONS   = "::"
	ARROW  = "->"
	PIPE   = "|"
	USCORE = "_"

	// Delimiters
	LPAREN    = "("
	RPAREN    = ")"
	LBRACKET  = "["
	RBRACKET  = "]"
	LBRACE    = "{"
	RBRACE    = "}"
	COMMA     = ","
	SEMICOLON = ";"
	DOT       = "."
	COLON     = ":"

	// Keywords
	LET    = "LET"
	REC    = "REC"
	AND_KW = "AND_KW" // `and` joins mutually-recursive bindings
	IN     = "IN"
	FUN    = "FUN"
	IF     = "IF"
	THEN   = "THEN"
	ELSE   = "ELSE"
	MATCH  = "MATCH"
	WITH   = "WITH"
	MODULE = "MODULE"
	OPEN   = "OPEN"
	TYPE   = "TYPE"
	OF     = "OF"
	END    = "END"
	TRUE   = "TRUE"
	FALSE  = "FALSE"
)

var keywords = map[string]Type{
	"let":    LET,
	"rec":    REC,
	"and":    AND_KW,
	"in":     IN,
	"fun":    FUN,
	"if":     IF,
	"then":   THEN,
	"else":   ELSE,
	"match":  MATCH,
	"with":   WITH,
	"module": MODULE,
	"open":   OPEN,
	"type":   TYPE,
	"of":     OF,
	"end":    END,
	"true":   TRUE,
	"false":  FALSE,
}

// LookupIdent returns the keyword type for ident, or IDENT/UIDENT otherwise.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	if len(ident) > 0 && ident[0] >= 'A' && ident[0] <= 'Z' {
		return UIDENT
	}
	return IDENT
}
