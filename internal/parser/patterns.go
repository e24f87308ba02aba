package parser

import (
	"strconv"

	"github.com/fizz-lang/fizz/internal/ast"
	"github.com/fizz-lang/fizz/internal/token"
)

// parsePattern parses one match-arm pattern. Patterns nest arbitrarily.
func (p *Parser) parsePattern() ast.Pattern {
	tok := p.cur()

	switch tok.Type {
	case token.USCORE:
		p.next()
		return &ast.WildcardPattern{Token: tok}
	case token.IDENT:
		p.next()
		return &ast.VarPattern{Token: tok, Name: tok.Lexeme}
	case token.INT:
		v, convErr := strconv.ParseInt(tok.Lexeme, 10, 64)
		if convErr != nil {
			p.errorf("integer literal", tok)
			return nil
		}
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.IntLit{Token: tok, Value: v}}
	case token.FLOAT:
		v, convErr := strconv.ParseFloat(tok.Lexeme, 64)
		if convErr != nil {
			p.errorf("float literal", tok)
			return nil
		}
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.FloatLit{Token: tok, Value: v}}
	case token.MINUS:
		p.next()
		numTok := p.cur()
		switch numTok.Type {
		case token.INT:
			v, convErr := strconv.ParseInt(numTok.Lexeme, 10, 64)
			if convErr != nil {
				p.errorf("integer literal", numTok)
				return nil
			}
			p.next()
			return &ast.LiteralPattern{Token: tok, Value: &ast.IntLit{Token: numTok, Value: -v}}
		case token.FLOAT:
			v, convErr := strconv.ParseFloat(numTok.Lexeme, 64)
			if convErr != nil {
				p.errorf("float literal", numTok)
				return nil
			}
			p.next()
			return &ast.LiteralPattern{Token: tok, Value: &ast.FloatLit{Token: numTok, Value: -v}}
		}
		p.errorf("numeric literal after '-'", numTok)
		return nil
	case token.STRING:
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.StringLit{Token: tok, Value: tok.Lexeme}}
	case token.TRUE:
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.BoolLit{Token: tok, Value: true}}
	case token.FALSE:
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.BoolLit{Token: tok, Value: false}}
	case token.UIDENT:
		p.next()
		var args []ast.Pattern
		for p.startsSubpattern() {
			sub := p.parseSubpattern()
			if p.err != nil {
				return nil
			}
			args = append(args, sub)
		}
		return &ast.VariantPattern{Token: tok, Tag: tok.Lexeme, Args: args}
	case token.LPAREN:
		return p.parseParenPattern()
	case token.LBRACE:
		return p.parseRecordPattern()
	}

	p.errorf("pattern", tok)
	return nil
}

// startsSubpattern reports whether the current token can begin a constructor
// argument pattern. Nested constructors with arguments need parentheses.
func (p *Parser) startsSubpattern() bool {
	switch p.cur().Type {
	case token.USCORE, token.IDENT, token.INT, token.FLOAT, token.STRING,
		token.TRUE, token.FALSE, token.UIDENT, token.LPAREN, token.LBRACE:
		return true
	}
	return false
}

// parseSubpattern parses a constructor argument: a bare UIDENT stays a
// nullary variant; anything deeper requires parentheses.
func (p *Parser) parseSubpattern() ast.Pattern {
	tok := p.cur()
	if tok.Type == token.UIDENT {
		p.next()
		return &ast.VariantPattern{Token: tok, Tag: tok.Lexeme}
	}
	return p.parsePattern()
}

func (p *Parser) parseParenPattern() ast.Pattern {
	lparen := p.cur()
	p.next()

	if p.curIs(token.RPAREN) {
		p.next()
		return &ast.LiteralPattern{Token: lparen, Value: &ast.UnitLit{Token: lparen}}
	}

	first := p.parsePattern()
	if p.err != nil {
		return nil
	}

	if p.curIs(token.RPAREN) {
		p.next()
		return first
	}

	elements := []ast.Pattern{first}
	for p.curIs(token.COMMA) {
		p.next()
		el := p.parsePattern()
		if p.err != nil {
			return nil
		}
		elements = append(elements, el)
	}
	if _, ok := p.expect(token.RPAREN, "')' to close tuple pattern"); !ok {
		return nil
	}
	return &ast.TuplePattern{Token: lparen, Elements: elements}
}

func (p *Parser) parseRecordPattern() ast.Pattern {
	lbrace := p.cur()
	p.next()

	var fields []*ast.FieldPattern
	for !p.curIs(token.RBRACE) {
		nameTok := p.cur()
		if nameTok.Type != token.IDENT && nameTok.Type != token.UIDENT {
			p.errorf("field name in record pattern", nameTok)
			return nil
		}
		p.next()
		if _, ok := p.expect(token.ASSIGN, "'=' after field name"); !ok {
			return nil
		}
		sub := p.parsePattern()
		if p.err != nil {
			return nil
		}
		fields = append(fields, &ast.FieldPattern{Token: nameTok, Name: nameTok.Lexeme, Pattern: sub})
		if p.curIs(token.COMMA) || p.curIs(token.SEMICOLON) {
			p.next()
			continue
		}
		break
	}
	if _, ok := p.expect(token.RBRACE, "'}' to close record pattern"); !ok {
		return nil
	}
	if len(fields) == 0 {
		p.errorf("at least one field in record pattern", lbrace)
		return nil
	}
	return &ast.RecordPattern{Token: lbrace, Fields: fields}
}
