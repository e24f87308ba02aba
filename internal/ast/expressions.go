package ast

import (
	"github.com/fizz-lang/fizz/internal/token"
)

// IntLit is an integer literal.
type IntLit struct {
	Token token.Token
	Value int64
}

func (e *IntLit) exprNode()             {}
func (e *IntLit) GetToken() token.Token { return e.Token }

// FloatLit is a floating point literal.
type FloatLit struct {
	Token token.Token
	Value float64
}

func (e *FloatLit) exprNode()             {}
func (e *FloatLit) GetToken() token.Token { return e.Token }

// StringLit is a string literal.
type StringLit struct {
	Token token.Token
	Value string
}

func (e *StringLit) exprNode()             {}
func (e *StringLit) GetToken() token.Token { return e.Token }

// BoolLit is `true` or `false`.
type BoolLit struct {
	Token token.Token
	Value bool
}

func (e *BoolLit) exprNode()             {}
func (e *BoolLit) GetToken() token.Token { return e.Token }

// UnitLit is `()`.
type UnitLit struct {
	Token token.Token // the '(' token
}

func (e *UnitLit) exprNode()             {}
func (e *UnitLit) GetToken() token.Token { return e.Token }

// Identifier is a variable reference.
type Identifier struct {
	Token token.Token
	Name  string
}

func (e *Identifier) exprNode()             {}
func (e *Identifier) GetToken() token.Token { return e.Token }

// QualifiedIdent is a module-qualified reference, e.g. List.map.
type QualifiedIdent struct {
	Token  token.Token // the module name's token
	Module string
	Name   string
}

func (e *QualifiedIdent) exprNode()             {}
func (e *QualifiedIdent) GetToken() token.Token { return e.Token }

// Binary is a binary operator application.
type Binary struct {
	Token token.Token // the operator token
	Op    string
	Left  Expr
	Right Expr
}

func (e *Binary) exprNode()             {}
func (e *Binary) GetToken() token.Token { return e.Token }

// Unary is unary negation.
type Unary struct {
	Token   token.Token // the operator token
	Op      string
	Operand Expr
}

func (e *Unary) exprNode()             {}
func (e *Unary) GetToken() token.Token { return e.Token }

// Let is `let NAME = VALUE in BODY`.
// Curried parameter forms are desugared by the parser, so Value is the
// already-nested lambda chain.
type Let struct {
	Token token.Token // the 'let' token
	Name  string
	Value Expr
	Body  Expr
}

func (e *Let) exprNode()             {}
func (e *Let) GetToken() token.Token { return e.Token }

// LetRec is `let rec N1 = V1 and N2 = V2 ... in BODY`.
// All names are in scope in every binding's value.
type LetRec struct {
	Token    token.Token // the 'let' token
	Bindings []*Binding
	Body     Expr
}

func (e *LetRec) exprNode()             {}
func (e *LetRec) GetToken() token.Token { return e.Token }

// Lambda is `fun PARAM -> BODY`. Always unary; multi-parameter lambdas are
// nested by the parser.
type Lambda struct {
	Token token.Token // the 'fun' token
	Param string
	Body  Expr
}

func (e *Lambda) exprNode()             {}
func (e *Lambda) GetToken() token.Token { return e.Token }

// Apply is function application of a single argument.
type Apply struct {
	Token token.Token // the callee's token
	Fn    Expr
	Arg   Expr
}

func (e *Apply) exprNode()             {}
func (e *Apply) GetToken() token.Token { return e.Token }

// If is `if COND then THEN else ELSE`.
type If struct {
	Token token.Token // the 'if' token
	Cond  Expr
	Then  Expr
	Else  Expr
}

func (e *If) exprNode()             {}
func (e *If) GetToken() token.Token { return e.Token }

// MatchArm is one `| PATTERN -> BODY` arm.
type MatchArm struct {
	Token   token.Token // the pattern's first token
	Pattern Pattern
	Body    Expr
}

// Match is `match SCRUTINEE with ARM+`. Arms are tried in source order.
type Match struct {
	Token     token.Token // the 'match' token
	Scrutinee Expr
	Arms      []*MatchArm
}

func (e *Match) exprNode()             {}
func (e *Match) GetToken() token.Token { return e.Token }

// ListLit is `[e1, e2, ...]` or `[e1; e2; ...]`; both separator conventions
// produce the same node.
type ListLit struct {
	Token    token.Token // the '[' token
	Elements []Expr
}

func (e *ListLit) exprNode()             {}
func (e *ListLit) GetToken() token.Token { return e.Token }

// TupleLit is `(e1, e2, ...)` with at least two elements.
type TupleLit struct {
	Token    token.Token // the '(' token
	Elements []Expr
}

func (e *TupleLit) exprNode()             {}
func (e *TupleLit) GetToken() token.Token { return e.Token }

// RecordField is one `name = expr` entry of a record literal.
type RecordField struct {
	Token token.Token
	Name  string
	Value Expr
}

// RecordLit is `{ a = e1, b = e2 }`.
type RecordLit struct {
	Token  token.Token // the '{' token
	Fields []*RecordField
}

func (e *RecordLit) exprNode()             {}
func (e *RecordLit) GetToken() token.Token { return e.Token }

// Construct builds a tagged variant value, e.g. `Some 5` or `None`.
// Args are evaluated left to right.
type Construct struct {
	Token token.Token // the tag's token
	Tag   string
	Args  []Expr
}

func (e *Construct) exprNode()             {}
func (e *Construct) GetToken() token.Token { return e.Token }

// FieldAccess is `record.field`.
type FieldAccess struct {
	Token  token.Token // the '.' token
	Record Expr
	Field  string
}

func (e *FieldAccess) exprNode()             {}
func (e *FieldAccess) GetToken() token.Token { return e.Token }
