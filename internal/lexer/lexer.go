package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fizz-lang/fizz/internal/token"
)

// LexError reports a scanning failure with the offending position.
type LexError struct {
	Line   int
	Column int
	Msg    string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
	err          *LexError
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// Tokenize scans the whole input and returns the token stream, or the first
// lexical error. The EOF token is not included.
func Tokenize(input string) ([]token.Token, error) {
	l := New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		if l.err != nil {
			return nil, l.err
		}
		if tok.Type == token.EOF {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()
	if l.err != nil {
		return l.errorToken()
	}

	line, col := l.line, l.column

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: col, EndColumn: col}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			return l.emit(token.EQ, "==", line, col)
		}
		return l.emit(token.ASSIGN, "=", line, col)
	case '+':
		return l.emit(token.PLUS, "+", line, col)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			return l.emit(token.ARROW, "->", line, col)
		}
		return l.emit(token.MINUS, "-", line, col)
	case '*':
		return l.emit(token.ASTERISK, "*", line, col)
	case '/':
		return l.emit(token.SLASH, "/", line, col)
	case '%':
		return l.emit(token.PERCENT, "%", line, col)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			return l.emit(token.NOT_EQ, "!=", line, col)
		}
		return l.fail("unexpected character '!'")
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			return l.emit(token.LT_EQ, "<=", line, col)
		}
		return l.emit(token.LT, "<", line, col)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			return l.emit(token.GT_EQ, ">=", line, col)
		}
		return l.emit(token.GT, ">", line, col)
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			return l.emit(token.AND, "&&", line, col)
		}
		return l.fail("unexpected character '&'")
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			return l.emit(token.OR, "||", line, col)
		}
		return l.emit(token.PIPE, "|", line, col)
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			return l.emit(token.CONS, "::", line, col)
		}
		return l.emit(token.COLON, ":", line, col)
	case '(':
		return l.emit(token.LPAREN, "(", line, col)
	case ')':
		return l.emit(token.RPAREN, ")", line, col)
	case '[':
		return l.emit(token.LBRACKET, "[", line, col)
	case ']':
		return l.emit(token.RBRACKET, "]", line, col)
	case '{':
		return l.emit(token.LBRACE, "{", line, col)
	case '}':
		return l.emit(token.RBRACE, "}", line, col)
	case ',':
		return l.emit(token.COMMA, ",", line, col)
	case ';':
		return l.emit(token.SEMICOLON, ";", line, col)
	case '.':
		return l.emit(token.DOT, ".", line, col)
	case '"':
		return l.readString(line, col)
	}

	if isDigit(l.ch) {
		return l.readNumber(line, col)
	}
	if isLetter(l.ch) {
		return l.readIdentifier(line, col)
	}

	return l.fail(fmt.Sprintf("unrecognized character %q", l.ch))
}

// emit consumes the current character and produces a token spanning from the
// recorded start position.
func (l *Lexer) emit(t token.Type, lexeme string, line, col int) token.Token {
	l.readChar()
	return token.Token{Type: t, Lexeme: lexeme, Line: line, Column: col, EndColumn: col + len(lexeme)}
}

func (l *Lexer) readIdentifier(line, col int) token.Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	t := token.LookupIdent(lexeme)
	if lexeme == "_" {
		t = token.USCORE
	}
	return token.Token{Type: t, Lexeme: lexeme, Line: line, Column: col, EndColumn: col + len(lexeme)}
}

func (l *Lexer) readNumber(line, col int) token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}

	t := token.Type(token.INT)
	if l.ch == '.' && isDigit(l.peekChar()) {
		t = token.FLOAT
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// A digit run directly followed by identifier characters is a malformed
	// literal ("12abc"), not two adjacent tokens.
	if isLetter(l.ch) {
		return l.fail(fmt.Sprintf("invalid numeric literal starting with %q", l.input[start:l.position]))
	}

	lexeme := l.input[start:l.position]
	return token.Token{Type: t, Lexeme: lexeme, Line: line, Column: col, EndColumn: col + len(lexeme)}
}

func (l *Lexer) readString(line, col int) token.Token {
	l.readChar() // consume opening quote
	var sb strings.Builder
	width := 2 // both quotes
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			l.err = &LexError{Line: line, Column: col, Msg: "unterminated string literal"}
			return l.errorToken()
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				l.err = &LexError{Line: l.line, Column: l.column, Msg: fmt.Sprintf("unknown escape sequence '\\%c'", l.ch)}
				return l.errorToken()
			}
			width += 2
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		width += utf8.RuneLen(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return token.Token{Type: token.STRING, Lexeme: sb.String(), Line: line, Column: col, EndColumn: col + width}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		// (* ... *) comments nest, OCaml-style
		if l.ch == '(' && l.peekChar() == '*' {
			line, col := l.line, l.column
			depth := 0
			for {
				if l.ch == 0 {
					l.err = &LexError{Line: line, Column: col, Msg: "unterminated comment"}
					return
				}
				if l.ch == '(' && l.peekChar() == '*' {
					depth++
					l.readChar()
					l.readChar()
					continue
				}
				if l.ch == '*' && l.peekChar() == ')' {
					depth--
					l.readChar()
					l.readChar()
					if depth == 0 {
						break
					}
					continue
				}
				l.readChar()
			}
			continue
		}
		return
	}
}

func (l *Lexer) fail(msg string) token.Token {
	l.err = &LexError{Line: l.line, Column: l.column, Msg: msg}
	return l.errorToken()
}

func (l *Lexer) errorToken() token.Token {
	return token.Token{Type: token.ILLEGAL, Line: l.line, Column: l.column}
}

// Err returns the first error encountered while scanning, if any.
func (l *Lexer) Err() error {
	if l.err != nil {
		return l.err
	}
	return nil
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
