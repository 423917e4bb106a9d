// Package lexer turns Lox source text into a token stream.
package lexer

import (
	"fmt"
	"treelox/internal/diag"
	"treelox/internal/span"
	"treelox/internal/token"
	"unicode/utf8"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// The token slice always ends with an EOF token.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.nextToken()
		if tok.Kind == token.ILLEGAL {
			continue
		}
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// Filename returns the name the lexer was created with.
func (l *Lexer) Filename() string {
	return l.filename
}

// ---- internal helpers ----

// peek returns the current character without advancing, or 0 if at end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

// peekNext returns the character after current, or 0 if at end.
func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// match consumes the current character if it equals want.
func (l *Lexer) match(want byte) bool {
	if l.peek() != want || l.pos >= len(l.source) {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

// skipBlanks skips whitespace, newlines and // comments.
func (l *Lexer) skipBlanks() {
	for l.pos < len(l.source) {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '/':
			if l.peekNext() != '/' {
				return
			}
			for l.pos < len(l.source) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) addError(code string, s span.Span, msg string) {
	l.diags = append(l.diags, diag.Errorf(code, s, "%s", msg))
}

func (l *Lexer) make(kind token.Kind, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: l.source[start.Offset:l.pos], Span: l.makeSpan(start)}
}

// ---- token reading ----

func (l *Lexer) nextToken() token.Token {
	l.skipBlanks()

	if l.pos >= len(l.source) {
		return token.Token{Kind: token.EOF, Lexeme: "", Span: l.makeSpan(l.curPos())}
	}

	start := l.curPos()
	ch := l.peek()

	switch {
	case ch == '"':
		return l.readString(start)
	case isDigit(ch):
		return l.readNumber(start)
	case isAlpha(ch):
		return l.readIdentifier(start)
	}
	return l.readOperator(start)
}

// readString reads a double-quoted string. Strings may span lines and have
// no escape sequences.
func (l *Lexer) readString(start span.Position) token.Token {
	l.advance() // skip opening "
	bodyStart := l.pos

	for l.pos < len(l.source) && l.peek() != '"' {
		l.advance()
	}

	if l.pos >= len(l.source) {
		l.addError("E1001", l.makeSpan(start), "Unterminated string.")
		return token.Token{Kind: token.STRING, Lexeme: l.source[bodyStart:l.pos], Span: l.makeSpan(start)}
	}

	value := l.source[bodyStart:l.pos]
	l.advance() // skip closing "
	return token.Token{Kind: token.STRING, Lexeme: value, Span: l.makeSpan(start)}
}

// readNumber reads an integer or decimal literal. A trailing '.' without
// digits is left for the DOT token.
func (l *Lexer) readNumber(start span.Position) token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // skip '.'
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	return l.make(token.NUMBER, start)
}

func (l *Lexer) readIdentifier(start span.Position) token.Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}

	tok := l.make(token.IDENT, start)
	tok.Kind = token.LookupIdent(tok.Lexeme)
	return tok
}

func (l *Lexer) readOperator(start span.Position) token.Token {
	ch := l.advance()

	switch ch {
	case '(':
		return l.make(token.LPAREN, start)
	case ')':
		return l.make(token.RPAREN, start)
	case '{':
		return l.make(token.LBRACE, start)
	case '}':
		return l.make(token.RBRACE, start)
	case ',':
		return l.make(token.COMMA, start)
	case '.':
		return l.make(token.DOT, start)
	case '-':
		return l.make(token.MINUS, start)
	case '+':
		return l.make(token.PLUS, start)
	case ';':
		return l.make(token.SEMICOLON, start)
	case '/':
		return l.make(token.SLASH, start)
	case '*':
		return l.make(token.STAR, start)
	case '!':
		if l.match('=') {
			return l.make(token.BANG_EQUAL, start)
		}
		return l.make(token.BANG, start)
	case '=':
		if l.match('=') {
			return l.make(token.EQUAL_EQUAL, start)
		}
		return l.make(token.EQUAL, start)
	case '<':
		if l.match('=') {
			return l.make(token.LESS_EQUAL, start)
		}
		return l.make(token.LESS, start)
	case '>':
		if l.match('=') {
			return l.make(token.GREATER_EQUAL, start)
		}
		return l.make(token.GREATER, start)
	default:
		// a multi-byte character is one column and one error
		r, width := utf8.DecodeRuneInString(l.source[start.Offset:])
		l.pos = start.Offset + width
		l.addError("E1002", l.makeSpan(start), fmt.Sprintf("Unexpected character '%c'.", r))
		return l.make(token.ILLEGAL, start)
	}
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
