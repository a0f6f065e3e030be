package parser

import "strings"

// Lexer turns SQL text into tokens. Tokens are scanned on demand into a peek
// queue, allowing arbitrary lookahead.
type Lexer struct {
	src   string
	pos   int
	queue []Token
	errs  Errors
}

// NewLexer returns a lexer for src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Peek returns the token n positions ahead without consuming it. Peek(0) is
// the next token.
func (l *Lexer) Peek(n int) Token {
	for len(l.queue) <= n {
		l.queue = append(l.queue, l.scan())
	}
	return l.queue[n]
}

// Next consumes and returns the next token.
func (l *Lexer) Next() Token {
	tok := l.Peek(0)
	if tok.Type != EOF {
		l.queue = l.queue[1:]
	}
	return tok
}

// Consume pops the next token if it is of type typ, otherwise it returns an
// error and leaves the token in place.
func (l *Lexer) Consume(typ TokenType) (Token, error) {
	tok := l.Peek(0)
	if tok.Type != typ {
		return tok, &Error{Pos: tok.Pos, Msg: "expected " + typ.String() + ", found " + tok.String()}
	}
	return l.Next(), nil
}

// Accept consumes the next token if it is of type typ.
func (l *Lexer) Accept(typ TokenType) bool {
	if l.Peek(0).Type == typ {
		l.Next()
		return true
	}
	return false
}

// Errors returns the lexical errors encountered so far.
func (l *Lexer) Errors() Errors { return l.errs }

func (l *Lexer) scan() Token {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: l.pos}
	}

	start := l.pos
	ch := l.src[l.pos]
	switch {
	case isLetter(ch):
		return l.scanIdent(start)
	case isDigit(ch):
		return l.scanNumber(start)
	case ch == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
		return l.scanNumber(start)
	case ch == '\'' || ch == '"':
		return l.scanString(start, ch)
	}

	l.pos++
	switch ch {
	case '*':
		return Token{Type: ASTERISK, Lit: "*", Pos: start}
	case ',':
		return Token{Type: COMMA, Lit: ",", Pos: start}
	case '(':
		return Token{Type: LPAREN, Lit: "(", Pos: start}
	case ')':
		return Token{Type: RPAREN, Lit: ")", Pos: start}
	case '=':
		return Token{Type: EQ, Lit: "=", Pos: start}
	case '>':
		return Token{Type: GT, Lit: ">", Pos: start}
	case ';':
		return Token{Type: SEMICOLON, Lit: ";", Pos: start}
	}

	l.errs.add(start, "unexpected character %q", ch)
	return Token{Type: ILLEGAL, Lit: string(ch), Pos: start}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *Lexer) scanIdent(start int) Token {
	for l.pos < len(l.src) && (isLetter(l.src[l.pos]) || isDigit(l.src[l.pos])) {
		l.pos++
	}
	lit := l.src[start:l.pos]
	return Token{Type: Lookup(lit), Lit: lit, Pos: start}
}

func (l *Lexer) scanNumber(start int) Token {
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}

	typ := INT
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		typ = FLOAT
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	return Token{Type: typ, Lit: l.src[start:l.pos], Pos: start}
}

// scanString reads a quoted literal. A doubled quote character escapes
// itself.
func (l *Lexer) scanString(start int, quote byte) Token {
	var sb strings.Builder
	l.pos++

	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		l.pos++

		if ch != quote {
			sb.WriteByte(ch)
			continue
		}
		if l.pos < len(l.src) && l.src[l.pos] == quote {
			sb.WriteByte(quote)
			l.pos++
			continue
		}
		return Token{Type: STRING, Lit: sb.String(), Pos: start}
	}

	l.errs.add(start, "unterminated string literal")
	return Token{Type: ILLEGAL, Lit: l.src[start:], Pos: start}
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }
