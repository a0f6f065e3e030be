package parser

import (
	"strconv"
	"strings"
)

// TokenType identifies a lexical token.
type TokenType int

// Token types.
const (
	ILLEGAL TokenType = iota
	EOF

	IDENT
	INT
	FLOAT
	STRING

	ASTERISK
	COMMA
	LPAREN
	RPAREN
	EQ
	GT
	SEMICOLON

	keywordBeg
	SELECT
	FROM
	WHERE
	INSERT
	INTO
	VALUES
	CREATE
	TABLE
	IF
	NOT
	EXISTS
	UPDATE
	SET
	DELETE
	AND
	NULL
	keywordEnd
)

var tokenNames = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	INT:    "INT",
	FLOAT:  "FLOAT",
	STRING: "STRING",

	ASTERISK:  "*",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	EQ:        "=",
	GT:        ">",
	SEMICOLON: ";",

	SELECT: "SELECT",
	FROM:   "FROM",
	WHERE:  "WHERE",
	INSERT: "INSERT",
	INTO:   "INTO",
	VALUES: "VALUES",
	CREATE: "CREATE",
	TABLE:  "TABLE",
	IF:     "IF",
	NOT:    "NOT",
	EXISTS: "EXISTS",
	UPDATE: "UPDATE",
	SET:    "SET",
	DELETE: "DELETE",
	AND:    "AND",
	NULL:   "NULL",
}

var keywords map[string]TokenType

func init() {
	keywords = make(map[string]TokenType, keywordEnd-keywordBeg)
	for t := keywordBeg + 1; t < keywordEnd; t++ {
		keywords[strings.ToLower(tokenNames[t])] = t
	}
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return "TokenType(" + strconv.Itoa(int(t)) + ")"
}

// IsKeyword returns true for keyword tokens.
func (t TokenType) IsKeyword() bool { return t > keywordBeg && t < keywordEnd }

// Lookup returns the keyword token for ident, or IDENT.
func Lookup(ident string) TokenType {
	if t, ok := keywords[strings.ToLower(ident)]; ok {
		return t
	}
	return IDENT
}

// Token is a lexical token with its literal text and byte position.
type Token struct {
	Type TokenType
	Lit  string
	Pos  int
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case IDENT, INT, FLOAT:
		return strconv.Quote(t.Lit)
	case STRING:
		return "'" + t.Lit + "'"
	}
	return t.Type.String()
}
