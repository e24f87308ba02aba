// Package parser turns a token stream into the AST. It is a recursive
// descent parser with precedence climbing for binary operators; the first
// error aborts the parse.
package parser

import (
	"fmt"
	"strconv"

	"github.com/fizz-lang/fizz/internal/ast"
	"github.com/fizz-lang/fizz/internal/lexer"
	"github.com/fizz-lang/fizz/internal/token"
)

// ParseError reports a syntax failure with an expected-vs-found description.
type ParseError struct {
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: expected %s, found %s", e.Line, e.Column, e.Expected, e.Found)
}

// Operator precedence, lowest binds loosest. Application and field access are
// handled outside the table and bind tighter than any operator.
const (
	_ int = iota
	LOWEST
	LOGIC_OR  // ||
	LOGIC_AND // &&
	EQUALITY  // == !=
	COMPARE   // < <= > >=
	CONS_P    // :: (right-associative)
	SUM       // + -
	PRODUCT   // * / %
	UNARY     // -x
)

var precedences = map[token.Type]int{
	token.OR:       LOGIC_OR,
	token.AND:      LOGIC_AND,
	token.EQ:       EQUALITY,
	token.NOT_EQ:   EQUALITY,
	token.LT:       COMPARE,
	token.LT_EQ:    COMPARE,
	token.GT:       COMPARE,
	token.GT_EQ:    COMPARE,
	token.CONS:     CONS_P,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
}

type Parser struct {
	tokens []token.Token
	pos    int
	err    *ParseError
}

// New builds a parser over an already-lexed token stream.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseExpr lexes and parses source as a single expression.
func ParseExpr(source string) (ast.Expr, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := New(toks)
	expr := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil, p.err
	}
	if !p.atEOF() {
		p.errorf("end of input", p.cur())
		return nil, p.err
	}
	return expr, nil
}

// Parse consumes the parser's token stream as a full program.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := p.parseProgram()
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

// ParseProgram lexes and parses source as a full program.
func ParseProgram(source string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := New(toks)
	prog := p.parseProgram()
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

func (p *Parser) cur() token.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return p.eofToken()
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.eofToken()
}

func (p *Parser) eofToken() token.Token {
	if len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		return token.Token{Type: token.EOF, Line: last.Line, Column: last.EndColumn}
	}
	return token.Token{Type: token.EOF, Line: 1, Column: 1}
}

func (p *Parser) next() { p.pos++ }

func (p *Parser) atEOF() bool { return p.cur().Type == token.EOF }

func (p *Parser) curIs(t token.Type) bool { return p.cur().Type == t }

// expect consumes the current token if it matches, or records an error.
func (p *Parser) expect(t token.Type, what string) (token.Token, bool) {
	tok := p.cur()
	if tok.Type != t {
		p.errorf(what, tok)
		return tok, false
	}
	p.next()
	return tok, true
}

func (p *Parser) errorf(expected string, found token.Token) {
	if p.err != nil {
		return
	}
	desc := string(found.Type)
	if found.Lexeme != "" {
		desc = fmt.Sprintf("%q", found.Lexeme)
	}
	p.err = &ParseError{Line: found.Line, Column: found.Column, Expected: expected, Found: desc}
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.cur().Type]; ok {
		return prec
	}
	return LOWEST
}

// parseExpression implements precedence climbing over binary operators.
// Operators are left-associative except `::`, which associates right.
func (p *Parser) parseExpression(minPrec int) ast.Expr {
	left := p.parseUnary()
	if p.err != nil {
		return nil
	}

	for {
		opTok := p.cur()
		prec, isOp := precedences[opTok.Type]
		if !isOp || prec < minPrec {
			return left
		}
		p.next()

		nextMin := prec + 1
		if opTok.Type == token.CONS {
			nextMin = prec // right-associative
		}
		right := p.parseExpression(nextMin)
		if p.err != nil {
			return nil
		}
		left = &ast.Binary{Token: opTok, Op: opTok.Lexeme, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	if p.curIs(token.MINUS) {
		opTok := p.cur()
		p.next()
		operand := p.parseUnary()
		if p.err != nil {
			return nil
		}
		return &ast.Unary{Token: opTok, Op: "-", Operand: operand}
	}
	return p.parseApplication()
}

// parseApplication parses an atom followed by zero or more argument atoms:
// `f x y` is (f x) y. Constructor applications fold their arguments into a
// single Construct node instead of nesting Apply.
func (p *Parser) parseApplication() ast.Expr {
	fn := p.parseAtom()
	if p.err != nil {
		return nil
	}

	for p.startsAtom() {
		arg := p.parseAtom()
		if p.err != nil {
			return nil
		}
		if c, ok := fn.(*ast.Construct); ok {
			c.Args = append(c.Args, arg)
			continue
		}
		fn = &ast.Apply{Token: fn.GetToken(), Fn: fn, Arg: arg}
	}
	return fn
}

// startsAtom reports whether the current token can begin an argument atom.
func (p *Parser) startsAtom() bool {
	switch p.cur().Type {
	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE,
		token.IDENT, token.UIDENT, token.LPAREN, token.LBRACKET, token.LBRACE:
		return true
	}
	return false
}

func (p *Parser) parseAtom() ast.Expr {
	tok := p.cur()

	var expr ast.Expr
	switch tok.Type {
	case token.INT:
		v, convErr := strconv.ParseInt(tok.Lexeme, 10, 64)
		if convErr != nil {
			p.errorf("integer literal", tok)
			return nil
		}
		p.next()
		expr = &ast.IntLit{Token: tok, Value: v}
	case token.FLOAT:
		v, convErr := strconv.ParseFloat(tok.Lexeme, 64)
		if convErr != nil {
			p.errorf("float literal", tok)
			return nil
		}
		p.next()
		expr = &ast.FloatLit{Token: tok, Value: v}
	case token.STRING:
		p.next()
		expr = &ast.StringLit{Token: tok, Value: tok.Lexeme}
	case token.TRUE:
		p.next()
		expr = &ast.BoolLit{Token: tok, Value: true}
	case token.FALSE:
		p.next()
		expr = &ast.BoolLit{Token: tok, Value: false}
	case token.IDENT:
		p.next()
		expr = &ast.Identifier{Token: tok, Name: tok.Lexeme}
	case token.UIDENT:
		expr = p.parseUpperIdent()
	case token.LPAREN:
		expr = p.parseParenOrTuple()
	case token.LBRACKET:
		expr = p.parseListLit()
	case token.LBRACE:
		expr = p.parseRecordLit()
	case token.LET:
		expr = p.parseLetExpr()
	case token.FUN:
		expr = p.parseFunExpr()
	case token.IF:
		expr = p.parseIfExpr()
	case token.MATCH:
		expr = p.parseMatchExpr()
	default:
		p.errorf("expression", tok)
		return nil
	}
	if p.err != nil {
		return nil
	}

	// Postfix field access chains: e.a.b. Uppercase field names also
	// occur, in records marshalled from Go structs.
	for p.curIs(token.DOT) && (p.peek().Type == token.IDENT || p.peek().Type == token.UIDENT) {
		dotTok := p.cur()
		p.next()
		fieldTok := p.cur()
		p.next()
		expr = &ast.FieldAccess{Token: dotTok, Record: expr, Field: fieldTok.Lexeme}
	}
	return expr
}

// parseUpperIdent disambiguates `Mod.name` (qualified reference) from a
// constructor such as `Some` or `None`. Constructor arguments are attached
// by parseApplication.
func (p *Parser) parseUpperIdent() ast.Expr {
	tok := p.cur()
	p.next()
	if p.curIs(token.DOT) {
		p.next()
		nameTok := p.cur()
		if nameTok.Type != token.IDENT && nameTok.Type != token.UIDENT {
			p.errorf("name after module qualifier", nameTok)
			return nil
		}
		p.next()
		return &ast.QualifiedIdent{Token: tok, Module: tok.Lexeme, Name: nameTok.Lexeme}
	}
	return &ast.Construct{Token: tok, Tag: tok.Lexeme}
}

func (p *Parser) parseParenOrTuple() ast.Expr {
	lparen := p.cur()
	p.next()

	if p.curIs(token.RPAREN) {
		p.next()
		return &ast.UnitLit{Token: lparen}
	}

	first := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}

	if p.curIs(token.RPAREN) {
		p.next()
		return first
	}

	elements := []ast.Expr{first}
	for p.curIs(token.COMMA) {
		p.next()
		el := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		elements = append(elements, el)
	}
	if _, ok := p.expect(token.RPAREN, "')' to close tuple"); !ok {
		return nil
	}
	return &ast.TupleLit{Token: lparen, Elements: elements}
}

// parseListLit accepts comma- or semicolon-separated elements with an
// optional trailing separator; both conventions yield the same node.
func (p *Parser) parseListLit() ast.Expr {
	lbracket := p.cur()
	p.next()

	var elements []ast.Expr
	for !p.curIs(token.RBRACKET) {
		if p.atEOF() {
			p.errorf("']' to close list", p.cur())
			return nil
		}
		el := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		elements = append(elements, el)
		if p.curIs(token.COMMA) || p.curIs(token.SEMICOLON) {
			p.next()
			continue
		}
		break
	}
	if _, ok := p.expect(token.RBRACKET, "']' to close list"); !ok {
		return nil
	}
	return &ast.ListLit{Token: lbracket, Elements: elements}
}

func (p *Parser) parseRecordLit() ast.Expr {
	lbrace := p.cur()
	p.next()

	var fields []*ast.RecordField
	for !p.curIs(token.RBRACE) {
		nameTok := p.cur()
		if nameTok.Type != token.IDENT && nameTok.Type != token.UIDENT {
			p.errorf("field name", nameTok)
			return nil
		}
		p.next()
		if _, ok := p.expect(token.ASSIGN, "'=' after field name"); !ok {
			return nil
		}
		value := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		fields = append(fields, &ast.RecordField{Token: nameTok, Name: nameTok.Lexeme, Value: value})
		if p.curIs(token.COMMA) || p.curIs(token.SEMICOLON) {
			p.next()
			continue
		}
		break
	}
	if _, ok := p.expect(token.RBRACE, "'}' to close record"); !ok {
		return nil
	}
	if len(fields) == 0 {
		p.errorf("at least one field in record literal", lbrace)
		return nil
	}
	return &ast.RecordLit{Token: lbrace, Fields: fields}
}

// parseLetExpr handles `let NAME p1 p2 = V in B`, `let rec ... and ... in B`.
// Parameters desugar to nested unary lambdas.
func (p *Parser) parseLetExpr() ast.Expr {
	letTok := p.cur()
	p.next()

	rec := false
	if p.curIs(token.REC) {
		rec = true
		p.next()
	}

	bindings := p.parseLetBindings()
	if p.err != nil {
		return nil
	}

	if _, ok := p.expect(token.IN, "'in' after let binding"); !ok {
		return nil
	}
	body := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}

	if rec {
		return &ast.LetRec{Token: letTok, Bindings: bindings, Body: body}
	}
	if len(bindings) != 1 {
		p.errorf("single binding in non-recursive let", letTok)
		return nil
	}
	return &ast.Let{Token: letTok, Name: bindings[0].Name, Value: bindings[0].Value, Body: body}
}

// parseLetBindings parses `NAME p* = E` groups joined by `and`.
func (p *Parser) parseLetBindings() []*ast.Binding {
	var bindings []*ast.Binding
	for {
		nameTok, ok := p.expect(token.IDENT, "binding name")
		if !ok {
			return nil
		}

		var params []token.Token
		for p.curIs(token.IDENT) || p.curIs(token.USCORE) {
			params = append(params, p.cur())
			p.next()
		}

		if _, ok := p.expect(token.ASSIGN, "'=' in let binding"); !ok {
			return nil
		}
		value := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}

		// Curried parameters become nested single-parameter lambdas.
		for i := len(params) - 1; i >= 0; i-- {
			value = &ast.Lambda{Token: params[i], Param: params[i].Lexeme, Body: value}
		}

		bindings = append(bindings, &ast.Binding{Token: nameTok, Name: nameTok.Lexeme, Value: value})

		if !p.curIs(token.AND_KW) {
			return bindings
		}
		p.next()
	}
}

func (p *Parser) parseFunExpr() ast.Expr {
	funTok := p.cur()
	p.next()

	var params []token.Token
	for p.curIs(token.IDENT) || p.curIs(token.USCORE) {
		params = append(params, p.cur())
		p.next()
	}
	if len(params) == 0 {
		p.errorf("parameter name after 'fun'", p.cur())
		return nil
	}
	if _, ok := p.expect(token.ARROW, "'->' after parameters"); !ok {
		return nil
	}
	body := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}

	for i := len(params) - 1; i >= 0; i-- {
		tok := funTok
		if i > 0 {
			tok = params[i]
		}
		body = &ast.Lambda{Token: tok, Param: params[i].Lexeme, Body: body}
	}
	return body
}

func (p *Parser) parseIfExpr() ast.Expr {
	ifTok := p.cur()
	p.next()

	cond := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	if _, ok := p.expect(token.THEN, "'then' after condition"); !ok {
		return nil
	}
	thenE := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	if _, ok := p.expect(token.ELSE, "'else' branch"); !ok {
		return nil
	}
	elseE := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	return &ast.If{Token: ifTok, Cond: cond, Then: thenE, Else: elseE}
}

func (p *Parser) parseMatchExpr() ast.Expr {
	matchTok := p.cur()
	p.next()

	scrutinee := p.parseExpression(LOWEST)
	if p.err != nil {
		return nil
	}
	if _, ok := p.expect(token.WITH, "'with' after scrutinee"); !ok {
		return nil
	}

	// Leading pipe before the first arm is optional.
	if p.curIs(token.PIPE) {
		p.next()
	}

	var arms []*ast.MatchArm
	for {
		patTok := p.cur()
		pat := p.parsePattern()
		if p.err != nil {
			return nil
		}
		if _, ok := p.expect(token.ARROW, "'->' after pattern"); !ok {
			return nil
		}
		body := p.parseExpression(LOWEST)
		if p.err != nil {
			return nil
		}
		arms = append(arms, &ast.MatchArm{Token: patTok, Pattern: pat, Body: body})

		if !p.curIs(token.PIPE) {
			break
		}
		p.next()
	}
	return &ast.Match{Token: matchTok, Scrutinee: scrutinee, Arms: arms}
}
