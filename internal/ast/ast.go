// Package ast defines the syntax tree produced by the parser.
// Every node carries the token that introduced it, for diagnostics.
package ast

import (
	"github.com/fizz-lang/fizz/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	GetToken() token.Token
}

// Expr is a Node that represents an expression.
type Expr interface {
	Node
	exprNode()
}

// Pattern is a Node that appears on the left of a match arm.
type Pattern interface {
	Node
	patternNode()
}

// Program is the root node: zero or more modules and opens, zero or more
// type declarations and top-level bindings, and an optional final expression.
type Program struct {
	Modules   []*Module
	Opens     []*Open
	TypeDecls []*TypeDecl
	Bindings  []*TopBinding
	Expr      Expr // optional top-level expression (entry point)
}

func (p *Program) GetToken() token.Token {
	if len(p.Modules) > 0 {
		return p.Modules[0].Token
	}
	if p.Expr != nil {
		return p.Expr.GetToken()
	}
	return token.Token{}
}

// Module is `module NAME = ITEM* end`.
type Module struct {
	Token     token.Token // the 'module' token
	Name      string
	TypeDecls []*TypeDecl
	Bindings  []*TopBinding
}

func (m *Module) GetToken() token.Token { return m.Token }

// Open is `open A.B`.
type Open struct {
	Token token.Token // the 'open' token
	Path  []string    // dotted path segments
}

func (o *Open) GetToken() token.Token { return o.Token }

// TopBinding is a top-level or module-level `let` (possibly recursive group).
type TopBinding struct {
	Token    token.Token // the 'let' token
	Rec      bool
	Bindings []*Binding // one entry, or several for `let rec ... and ...`
}

func (b *TopBinding) GetToken() token.Token { return b.Token }

// Binding is a single name = expression pair inside a let.
type Binding struct {
	Token token.Token // the bound name's token
	Name  string
	Value Expr
}

// TypeDecl declares an algebraic data type:
//
//	type Option a = Some of a | None
type TypeDecl struct {
	Token    token.Token // the 'type' token
	Name     string
	Params   []string // lowercase type parameters
	Variants []*VariantDef
}

func (t *TypeDecl) GetToken() token.Token { return t.Token }

// VariantDef is one constructor of an ADT.
type VariantDef struct {
	Token  token.Token // the tag's token
	Tag    string
	Fields []*TypeRef // `of T * T * ...`; empty for nullary constructors
}

// TypeRef is a source-level type expression inside a type declaration.
// Lowercase names are type variables; capitalised names are constructors.
type TypeRef struct {
	Token token.Token
	Name  string
	IsVar bool
	Args  []*TypeRef
}
