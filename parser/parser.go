package parser

import "strconv"

// Parser is a recursive-descent parser for a single statement.
type Parser struct {
	lex  *Lexer
	errs Errors
}

// NewParser returns a parser for src.
func NewParser(src string) *Parser {
	return &Parser{lex: NewLexer(src)}
}

// Parse is a shortcut for NewParser(src).Parse().
func Parse(src string) (Statement, error) {
	return NewParser(src).Parse()
}

// Parse parses a single statement, optionally terminated by a semicolon. On
// failure the returned error is of type Errors.
func (p *Parser) Parse() (Statement, error) {
	stmt := p.parseStatement()
	if stmt != nil {
		p.lex.Accept(SEMICOLON)
		if tok := p.lex.Peek(0); tok.Type != EOF {
			p.errorf(tok, "unexpected %s after end of statement", tok)
		}
	}

	errs := append(p.lex.Errors(), p.errs...)
	if err := errs.err(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseStatement() Statement {
	switch tok := p.lex.Peek(0); tok.Type {
	case CREATE:
		return p.parseCreateTable()
	case INSERT:
		return p.parseInsert()
	case SELECT:
		return p.parseSelect()
	case UPDATE:
		return p.parseUpdate()
	case DELETE:
		return p.parseDelete()
	case EOF:
		p.errorf(tok, "empty statement")
	default:
		p.errorf(tok, "expected statement, found %s", tok)
	}
	return nil
}

// CREATE TABLE [IF NOT EXISTS] name (col type[(len)], ...)
func (p *Parser) parseCreateTable() Statement {
	if !p.expect(CREATE) || !p.expect(TABLE) {
		return nil
	}

	stmt := new(CreateTable)
	if p.lex.Accept(IF) {
		if !p.expect(NOT) || !p.expect(EXISTS) {
			return nil
		}
		stmt.IfNotExists = true
	}

	var ok bool
	if stmt.Name, ok = p.parseIdent(); !ok {
		return nil
	}
	if !p.expect(LPAREN) {
		return nil
	}

	valid := true
	for {
		if def, ok := p.parseColumnDef(); ok {
			stmt.Columns = append(stmt.Columns, def)
		} else {
			valid = false
			p.skipTo(COMMA, RPAREN)
		}
		if !p.lex.Accept(COMMA) {
			break
		}
	}
	if !p.expect(RPAREN) || !valid {
		return nil
	}
	return stmt
}

func (p *Parser) parseColumnDef() (ColumnDef, bool) {
	var def ColumnDef
	var ok bool

	if def.Name, ok = p.parseIdent(); !ok {
		return def, false
	}
	if def.Type, ok = p.parseIdent(); !ok {
		return def, false
	}
	if p.lex.Accept(LPAREN) {
		tok, ok := p.consume(INT)
		if !ok {
			return def, false
		}
		n, err := strconv.Atoi(tok.Lit)
		if err != nil || n < 1 {
			p.errorf(tok, "invalid length %s", tok.Lit)
			return def, false
		}
		def.Length = n

		if !p.expect(RPAREN) {
			return def, false
		}
	}
	return def, true
}

// INSERT INTO name (cols...) VALUES (vals...)
func (p *Parser) parseInsert() Statement {
	if !p.expect(INSERT) || !p.expect(INTO) {
		return nil
	}

	stmt := new(Insert)
	var ok bool
	if stmt.Table, ok = p.parseIdent(); !ok {
		return nil
	}

	if !p.expect(LPAREN) {
		return nil
	}
	if stmt.Columns, ok = p.parseIdentList(); !ok {
		return nil
	}
	if !p.expect(RPAREN) || !p.expect(VALUES) || !p.expect(LPAREN) {
		return nil
	}

	valid := true
	for {
		if v, ok := p.parseValue(); ok {
			stmt.Values = append(stmt.Values, v)
		} else {
			valid = false
			p.skipTo(COMMA, RPAREN)
		}
		if !p.lex.Accept(COMMA) {
			break
		}
	}
	if !p.expect(RPAREN) || !valid {
		return nil
	}
	return stmt
}

// SELECT * | col[,col...] FROM name [WHERE cond]
func (p *Parser) parseSelect() Statement {
	if !p.expect(SELECT) {
		return nil
	}

	stmt := new(Select)
	var ok bool
	if !p.lex.Accept(ASTERISK) {
		if stmt.Columns, ok = p.parseIdentList(); !ok {
			return nil
		}
	}

	if !p.expect(FROM) {
		return nil
	}
	if stmt.Table, ok = p.parseIdent(); !ok {
		return nil
	}
	if stmt.Where, ok = p.parseWhere(); !ok {
		return nil
	}
	return stmt
}

// UPDATE name SET col=value[,...] [WHERE cond]
func (p *Parser) parseUpdate() Statement {
	if !p.expect(UPDATE) {
		return nil
	}

	stmt := new(Update)
	var ok bool
	if stmt.Table, ok = p.parseIdent(); !ok {
		return nil
	}
	if !p.expect(SET) {
		return nil
	}

	for {
		var a Assignment
		if a.Column, ok = p.parseIdent(); !ok {
			return nil
		}
		if !p.expect(EQ) {
			return nil
		}
		if a.Value, ok = p.parseValue(); !ok {
			return nil
		}
		stmt.Set = append(stmt.Set, a)

		if !p.lex.Accept(COMMA) {
			break
		}
	}

	if stmt.Where, ok = p.parseWhere(); !ok {
		return nil
	}
	return stmt
}

// DELETE FROM name [WHERE cond]
func (p *Parser) parseDelete() Statement {
	if !p.expect(DELETE) || !p.expect(FROM) {
		return nil
	}

	stmt := new(Delete)
	var ok bool
	if stmt.Table, ok = p.parseIdent(); !ok {
		return nil
	}
	if stmt.Where, ok = p.parseWhere(); !ok {
		return nil
	}
	return stmt
}

// --------------------------------------------------------------------

// parseWhere parses an optional WHERE clause.
func (p *Parser) parseWhere() (Expr, bool) {
	if !p.lex.Accept(WHERE) {
		return nil, true
	}
	return p.parseCondition()
}

// parseCondition parses comparisons joined by AND.
func (p *Parser) parseCondition() (Expr, bool) {
	lhs, ok := p.parseComparison()
	if !ok {
		return nil, false
	}
	for p.lex.Accept(AND) {
		rhs, ok := p.parseComparison()
		if !ok {
			return nil, false
		}
		lhs = &BinaryExpr{Op: AND, LHS: lhs, RHS: rhs}
	}
	return lhs, true
}

func (p *Parser) parseComparison() (Expr, bool) {
	lhs, ok := p.parseValue()
	if !ok {
		return nil, false
	}

	op := p.lex.Peek(0)
	if op.Type != EQ && op.Type != GT {
		p.errorf(op, "expected = or >, found %s", op)
		return nil, false
	}
	p.lex.Next()

	rhs, ok := p.parseValue()
	if !ok {
		return nil, false
	}
	return &BinaryExpr{Op: op.Type, LHS: lhs, RHS: rhs}, true
}

// parseValue parses a literal or a column reference.
func (p *Parser) parseValue() (Expr, bool) {
	tok := p.lex.Next()
	switch tok.Type {
	case INT:
		n, err := strconv.ParseInt(tok.Lit, 10, 64)
		if err != nil {
			p.errorf(tok, "integer %s out of range", tok.Lit)
			return nil, false
		}
		return &Literal{Kind: IntLiteral, Int: n}, true
	case FLOAT:
		f, err := strconv.ParseFloat(tok.Lit, 64)
		if err != nil {
			p.errorf(tok, "invalid float %s", tok.Lit)
			return nil, false
		}
		return &Literal{Kind: FloatLiteral, Float: f}, true
	case STRING:
		return &Literal{Kind: StringLiteral, Str: tok.Lit}, true
	case NULL:
		return &Literal{Kind: NullLiteral}, true
	case IDENT:
		return &ColumnRef{Name: tok.Lit}, true
	}

	p.errorf(tok, "expected value, found %s", tok)
	return nil, false
}

func (p *Parser) parseIdent() (string, bool) {
	tok, ok := p.consume(IDENT)
	return tok.Lit, ok
}

func (p *Parser) parseIdentList() ([]string, bool) {
	var names []string
	for {
		name, ok := p.parseIdent()
		if !ok {
			return nil, false
		}
		names = append(names, name)

		if !p.lex.Accept(COMMA) {
			return names, true
		}
	}
}

// --------------------------------------------------------------------

func (p *Parser) consume(typ TokenType) (Token, bool) {
	tok, err := p.lex.Consume(typ)
	if err != nil {
		if tok.Type != ILLEGAL { // already reported by the lexer
			p.errs = append(p.errs, err.(*Error))
		}
		return tok, false
	}
	return tok, true
}

func (p *Parser) expect(typ TokenType) bool {
	_, ok := p.consume(typ)
	return ok
}

// skipTo advances to the next token of one of the given types, or EOF.
func (p *Parser) skipTo(types ...TokenType) {
	for {
		tok := p.lex.Peek(0)
		if tok.Type == EOF {
			return
		}
		for _, t := range types {
			if tok.Type == t {
				return
			}
		}
		p.lex.Next()
	}
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) {
	if tok.Type == ILLEGAL {
		return
	}
	p.errs.add(tok.Pos, format, args...)
}
