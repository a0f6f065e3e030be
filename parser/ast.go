package parser

import (
	"strconv"
	"strings"
)

// Statement is a parsed SQL statement.
type Statement interface {
	stmt()
	String() string
}

// Select is a SELECT statement. Columns is nil for "*".
type Select struct {
	Table   string
	Columns []string
	Where   Expr
}

// Insert is an INSERT statement.
type Insert struct {
	Table   string
	Columns []string
	Values  []Expr
}

// CreateTable is a CREATE TABLE statement.
type CreateTable struct {
	Name        string
	IfNotExists bool
	Columns     []ColumnDef
}

// ColumnDef is a column definition within CREATE TABLE.
type ColumnDef struct {
	Name   string
	Type   string
	Length int // zero if omitted
}

// Update is an UPDATE statement.
type Update struct {
	Table string
	Set   []Assignment
	Where Expr
}

// Assignment is a single "column = value" pair.
type Assignment struct {
	Column string
	Value  Expr
}

// Delete is a DELETE statement.
type Delete struct {
	Table string
	Where Expr
}

func (*Select) stmt()      {}
func (*Insert) stmt()      {}
func (*CreateTable) stmt() {}
func (*Update) stmt()      {}
func (*Delete) stmt()      {}

func (s *Select) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Columns == nil {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(s.Columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(s.Table)
	writeWhere(&sb, s.Where)
	return sb.String()
}

func (s *Insert) String() string {
	vals := make([]string, len(s.Values))
	for i, v := range s.Values {
		vals[i] = v.String()
	}
	return "INSERT INTO " + s.Table + " (" + strings.Join(s.Columns, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
}

func (s *CreateTable) String() string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if s.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(s.Name)
	sb.WriteString(" (")
	for i, c := range s.Columns {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name)
		sb.WriteByte(' ')
		sb.WriteString(c.Type)
		if c.Length != 0 {
			sb.WriteString("(" + strconv.Itoa(c.Length) + ")")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

func (s *Update) String() string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(s.Table)
	sb.WriteString(" SET ")
	for i, a := range s.Set {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Column + " = " + a.Value.String())
	}
	writeWhere(&sb, s.Where)
	return sb.String()
}

func (s *Delete) String() string {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(s.Table)
	writeWhere(&sb, s.Where)
	return sb.String()
}

func writeWhere(sb *strings.Builder, where Expr) {
	if where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(where.String())
	}
}

// --------------------------------------------------------------------

// Expr is a value or condition expression.
type Expr interface {
	expr()
	String() string
}

// LiteralKind is the kind of a literal.
type LiteralKind int

// Literal kinds.
const (
	IntLiteral LiteralKind = iota
	FloatLiteral
	StringLiteral
	NullLiteral
)

// Literal is a constant value.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
}

// ColumnRef references a column of the current row.
type ColumnRef struct {
	Name string
}

// BinaryExpr is a comparison (EQ, GT) or a conjunction (AND).
type BinaryExpr struct {
	Op  TokenType
	LHS Expr
	RHS Expr
}

func (*Literal) expr()    {}
func (*ColumnRef) expr()  {}
func (*BinaryExpr) expr() {}

func (e *Literal) String() string {
	switch e.Kind {
	case IntLiteral:
		return strconv.FormatInt(e.Int, 10)
	case FloatLiteral:
		return strconv.FormatFloat(e.Float, 'g', -1, 64)
	case StringLiteral:
		return "'" + strings.ReplaceAll(e.Str, "'", "''") + "'"
	}
	return "NULL"
}

func (e *ColumnRef) String() string { return e.Name }

func (e *BinaryExpr) String() string {
	return e.LHS.String() + " " + e.Op.String() + " " + e.RHS.String()
}
