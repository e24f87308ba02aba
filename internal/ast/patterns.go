package ast

import (
	"github.com/fizz-lang/fizz/internal/token"
)

// VarPattern binds the matched value to a name.
type VarPattern struct {
	Token token.Token
	Name  string
}

func (p *VarPattern) patternNode()          {}
func (p *VarPattern) GetToken() token.Token { return p.Token }

// WildcardPattern is `_`: matches anything, binds nothing.
type WildcardPattern struct {
	Token token.Token
}

func (p *WildcardPattern) patternNode()          {}
func (p *WildcardPattern) GetToken() token.Token { return p.Token }

// LiteralPattern matches by structural equality against a literal.
type LiteralPattern struct {
	Token token.Token
	Value Expr // IntLit, FloatLit, StringLit, BoolLit or UnitLit
}

func (p *LiteralPattern) patternNode()          {}
func (p *LiteralPattern) GetToken() token.Token { return p.Token }

// TuplePattern destructures a tuple; arity must match at runtime.
type TuplePattern struct {
	Token    token.Token // the '(' token
	Elements []Pattern
}

func (p *TuplePattern) patternNode()          {}
func (p *TuplePattern) GetToken() token.Token { return p.Token }

// VariantPattern matches a tagged variant and destructures its fields.
// Patterns nest to arbitrary depth.
type VariantPattern struct {
	Token token.Token // the tag's token
	Tag   string
	Args  []Pattern
}

func (p *VariantPattern) patternNode()          {}
func (p *VariantPattern) GetToken() token.Token { return p.Token }

// FieldPattern is one `name = pattern` entry of a record pattern.
type FieldPattern struct {
	Token   token.Token
	Name    string
	Pattern Pattern
}

// RecordPattern matches a record by a subset of its fields.
type RecordPattern struct {
	Token  token.Token // the '{' token
	Fields []*FieldPattern
}

func (p *RecordPattern) patternNode()          {}
func (p *RecordPattern) GetToken() token.Token { return p.Token }
