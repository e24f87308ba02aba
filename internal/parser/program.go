package parser

import (
	"github.com/fizz-lang/fizz/internal/ast"
	"github.com/fizz-lang/fizz/internal/token"
)

// parseProgram parses zero or more modules, opens, type declarations and
// top-level bindings, followed by an optional final expression.
func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}

	for !p.atEOF() {
		switch p.cur().Type {
		case token.MODULE:
			mod := p.parseModule()
			if p.err != nil {
				return nil
			}
			prog.Modules = append(prog.Modules, mod)
		case token.OPEN:
			open := p.parseOpen()
			if p.err != nil {
				return nil
			}
			prog.Opens = append(prog.Opens, open)
		case token.TYPE:
			decl := p.parseTypeDecl()
			if p.err != nil {
				return nil
			}
			prog.TypeDecls = append(prog.TypeDecls, decl)
		case token.LET:
			binding, expr := p.parseTopLet()
			if p.err != nil {
				return nil
			}
			if expr != nil {
				// `let ... in ...` at top level is the program expression.
				prog.Expr = expr
				p.expectEOF()
				return prog
			}
			prog.Bindings = append(prog.Bindings, binding)
		default:
			prog.Expr = p.parseExpression(LOWEST)
			if p.err != nil {
				return nil
			}
			p.expectEOF()
			return prog
		}
	}
	return prog
}

func (p *Parser) expectEOF() {
	if !p.atEOF() {
		p.errorf("end of input", p.cur())
	}
}

// parseModule parses `module NAME = ITEM* end`.
func (p *Parser) parseModule() *ast.Module {
	modTok := p.cur()
	p.next()

	nameTok, ok := p.expect(token.UIDENT, "module name")
	if !ok {
		return nil
	}
	if _, ok := p.expect(token.ASSIGN, "'=' after module name"); !ok {
		return nil
	}

	mod := &ast.Module{Token: modTok, Name: nameTok.Lexeme}
	for !p.curIs(token.END) {
		if p.atEOF() {
			p.errorf("'end' to close module", p.cur())
			return nil
		}
		switch p.cur().Type {
		case token.TYPE:
			decl := p.parseTypeDecl()
			if p.err != nil {
				return nil
			}
			mod.TypeDecls = append(mod.TypeDecls, decl)
		case token.LET:
			binding, expr := p.parseTopLet()
			if p.err != nil {
				return nil
			}
			if expr != nil {
				p.errorf("module item", modTok)
				return nil
			}
			mod.Bindings = append(mod.Bindings, binding)
		default:
			p.errorf("'type', 'let' or 'end' in module body", p.cur())
			return nil
		}
	}
	p.next() // consume 'end'
	return mod
}

// parseOpen parses `open A.B.C`.
func (p *Parser) parseOpen() *ast.Open {
	openTok := p.cur()
	p.next()

	nameTok, ok := p.expect(token.UIDENT, "module path after 'open'")
	if !ok {
		return nil
	}
	path := []string{nameTok.Lexeme}
	for p.curIs(token.DOT) {
		p.next()
		seg, ok := p.expect(token.UIDENT, "module path segment")
		if !ok {
			return nil
		}
		path = append(path, seg.Lexeme)
	}
	return &ast.Open{Token: openTok, Path: path}
}

// parseTopLet parses a top-level let. If the binding turns out to be a
// `let ... in ...` expression, the expression is returned instead.
func (p *Parser) parseTopLet() (*ast.TopBinding, ast.Expr) {
	letTok := p.cur()
	p.next()

	rec := false
	if p.curIs(token.REC) {
		rec = true
		p.next()
	}

	bindings := p.parseLetBindings()
	if p.err != nil {
		return nil, nil
	}

	if p.curIs(token.IN) {
		p.next()
		body := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil, nil
		}
		if rec {
			return nil, &ast.LetRec{Token: letTok, Bindings: bindings, Body: body}
		}
		if len(bindings) != 1 {
			p.errorf("single binding in non-recursive let", letTok)
			return nil, nil
		}
		return nil, &ast.Let{Token: letTok, Name: bindings[0].Name, Value: bindings[0].Value, Body: body}
	}

	if !rec && len(bindings) != 1 {
		p.errorf("single binding in non-recursive let", letTok)
		return nil, nil
	}
	return &ast.TopBinding{Token: letTok, Rec: rec, Bindings: bindings}, nil
}

// parseTypeDecl parses `type NAME param* = Tag of T * T | Tag2 | ...`.
func (p *Parser) parseTypeDecl() *ast.TypeDecl {
	typeTok := p.cur()
	p.next()

	nameTok, ok := p.expect(token.UIDENT, "type name")
	if !ok {
		return nil
	}

	var params []string
	for p.curIs(token.IDENT) {
		params = append(params, p.cur().Lexeme)
		p.next()
	}

	if _, ok := p.expect(token.ASSIGN, "'=' in type declaration"); !ok {
		return nil
	}

	// Leading pipe before the first variant is optional.
	if p.curIs(token.PIPE) {
		p.next()
	}

	decl := &ast.TypeDecl{Token: typeTok, Name: nameTok.Lexeme, Params: params}
	for {
		tagTok, ok := p.expect(token.UIDENT, "variant tag")
		if !ok {
			return nil
		}
		variant := &ast.VariantDef{Token: tagTok, Tag: tagTok.Lexeme}

		if p.curIs(token.OF) {
			p.next()
			for {
				field := p.parseTypeRef()
				if p.err != nil {
					return nil
				}
				variant.Fields = append(variant.Fields, field)
				if !p.curIs(token.ASTERISK) {
					break
				}
				p.next()
			}
		}
		decl.Variants = append(decl.Variants, variant)

		if !p.curIs(token.PIPE) {
			return decl
		}
		p.next()
	}
}

// parseTypeRef parses a type expression in a variant field: `Int`,
// `List Int`, `a`, or a parenthesised form.
func (p *Parser) parseTypeRef() *ast.TypeRef {
	tok := p.cur()
	switch tok.Type {
	case token.IDENT:
		p.next()
		return &ast.TypeRef{Token: tok, Name: tok.Lexeme, IsVar: true}
	case token.UIDENT:
		p.next()
		ref := &ast.TypeRef{Token: tok, Name: tok.Lexeme}
		// Type arguments: simple names or parenthesised refs.
		for p.curIs(token.IDENT) || p.curIs(token.UIDENT) || p.curIs(token.LPAREN) {
			arg := p.parseTypeRefAtom()
			if p.err != nil {
				return nil
			}
			ref.Args = append(ref.Args, arg)
		}
		return ref
	case token.LPAREN:
		p.next()
		ref := p.parseTypeRef()
		if p.err != nil {
			return nil
		}
		if _, ok := p.expect(token.RPAREN, "')' in type expression"); !ok {
			return nil
		}
		return ref
	}
	p.errorf("type expression", tok)
	return nil
}

func (p *Parser) parseTypeRefAtom() *ast.TypeRef {
	tok := p.cur()
	switch tok.Type {
	case token.IDENT:
		p.next()
		return &ast.TypeRef{Token: tok, Name: tok.Lexeme, IsVar: true}
	case token.UIDENT:
		p.next()
		return &ast.TypeRef{Token: tok, Name: tok.Lexeme}
	case token.LPAREN:
		p.next()
		ref := p.parseTypeRef()
		if p.err != nil {
			return nil
		}
		if _, ok := p.expect(token.RPAREN, "')' in type expression"); !ok {
			return nil
		}
		return ref
	}
	p.errorf("type expression", tok)
	return nil
}
