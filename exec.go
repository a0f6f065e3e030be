package chunkdb

import (
	"strings"

	"github.com/bsm/chunkdb/parser"
	"github.com/pkg/errors"
)

// Result is the outcome of a statement. A result carries either rows or
// errors, never both.
type Result struct {
	Columns      []string
	Rows         []Row
	RowsAffected int
	Errors       []error
}

// Good returns true if the statement succeeded.
func (r *Result) Good() bool { return len(r.Errors) == 0 }

// Err returns the first error, if any.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

func failed(err error) *Result {
	var errs parser.Errors
	if errors.As(err, &errs) {
		res := &Result{Errors: make([]error, len(errs))}
		for i, e := range errs {
			res.Errors[i] = e
		}
		return res
	}
	return &Result{Errors: []error{err}}
}

// Exec parses and executes a single SQL statement.
func (db *DB) Exec(sql string) *Result {
	if db.file == nil {
		return failed(ErrClosed)
	}

	stmt, err := parser.Parse(sql)
	if err != nil {
		return failed(err)
	}
	return db.Execute(stmt)
}

// Execute executes a parsed statement.
func (db *DB) Execute(stmt parser.Statement) *Result {
	var res *Result
	var err error

	switch s := stmt.(type) {
	case *parser.CreateTable:
		res, err = db.execCreateTable(s)
	case *parser.Insert:
		res, err = db.execInsert(s)
	case *parser.Select:
		res, err = db.execSelect(s)
	case *parser.Update:
		res, err = db.execUpdate(s)
	case *parser.Delete:
		res, err = db.execDelete(s)
	default:
		err = errors.Errorf("chunkdb: unsupported statement %T", stmt)
	}

	if err != nil {
		return failed(err)
	}
	return res
}

func (db *DB) lookupTable(name string) (*Table, error) {
	t, ok := db.Table(name)
	if !ok {
		return nil, errors.Wrapf(ErrNoTable, "%q", name)
	}
	return t, nil
}

func (db *DB) execCreateTable(s *parser.CreateTable) (*Result, error) {
	if _, ok := db.Table(s.Name); ok {
		if s.IfNotExists {
			return &Result{}, nil
		}
		return nil, schemaErrorf(s.Name, "", "table already exists")
	}

	cols := make([]Column, 0, len(s.Columns))
	for _, def := range s.Columns {
		prim, ok := ParsePrimitive(def.Type)
		if !ok {
			return nil, schemaErrorf(s.Name, def.Name, "unknown type %q", def.Type)
		}

		typ := TypeOf(prim)
		switch {
		case prim == Char:
			if def.Length < 1 || def.Length > 255 {
				return nil, schemaErrorf(s.Name, def.Name, "Char requires a length between 1 and 255")
			}
			typ = CharType(uint8(def.Length))
		case def.Length != 0:
			return nil, schemaErrorf(s.Name, def.Name, "%s does not accept a length", prim)
		}
		cols = append(cols, Column{Name: def.Name, Type: typ})
	}

	if _, err := db.CreateTable(s.Name, cols); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

func (db *DB) execInsert(s *parser.Insert) (*Result, error) {
	t, err := db.lookupTable(s.Table)
	if err != nil {
		return nil, err
	}
	if len(s.Columns) != len(s.Values) {
		return nil, schemaErrorf(t.name, "", "%d columns but %d values", len(s.Columns), len(s.Values))
	}

	entries := make([]Entry, len(t.cols))
	for i, c := range t.cols {
		entries[i] = NullEntry(c.Type)
	}

	seen := make(map[int]struct{}, len(s.Columns))
	for i, name := range s.Columns {
		n, col, ok := t.Column(name)
		if !ok {
			return nil, schemaErrorf(t.name, name, "no such column")
		}
		if _, dup := seen[n]; dup {
			return nil, schemaErrorf(t.name, name, "column listed twice")
		}
		seen[n] = struct{}{}

		lit, ok := s.Values[i].(*parser.Literal)
		if !ok {
			return nil, schemaErrorf(t.name, name, "value must be a literal, found %s", s.Values[i])
		}
		if entries[n], err = literalEntry(lit).convert(col.Type); err != nil {
			return nil, schemaErrorf(t.name, name, "%v", err)
		}
	}

	if err := t.AddRow(entries); err != nil {
		return nil, err
	}
	return &Result{RowsAffected: 1}, nil
}

func (db *DB) execSelect(s *parser.Select) (*Result, error) {
	t, err := db.lookupTable(s.Table)
	if err != nil {
		return nil, err
	}

	cols := t.ColumnNames()
	if s.Columns != nil {
		cols = make([]string, len(s.Columns))
		for i, name := range s.Columns {
			_, col, ok := t.Column(name)
			if !ok {
				return nil, schemaErrorf(t.name, name, "no such column")
			}
			cols[i] = col.Name
		}
	}

	pred, err := compileCondition(t, s.Where)
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: cols}
	err = t.Scan(func(_ int, row Row) error {
		ok, err := pred(row)
		if err != nil || !ok {
			return err
		}
		if s.Columns != nil {
			row = row.project(cols)
		}
		res.Rows = append(res.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (db *DB) execUpdate(s *parser.Update) (*Result, error) {
	t, err := db.lookupTable(s.Table)
	if err != nil {
		return nil, err
	}

	type assignment struct {
		index int
		col   Column
		value valueFunc
	}
	assigns := make([]assignment, 0, len(s.Set))
	for _, a := range s.Set {
		n, col, ok := t.Column(a.Column)
		if !ok {
			return nil, schemaErrorf(t.name, a.Column, "no such column")
		}
		val, err := compileValue(t, a.Value)
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, assignment{index: n, col: col, value: val})
	}

	pred, err := compileCondition(t, s.Where)
	if err != nil {
		return nil, err
	}

	res := new(Result)
	err = t.Scan(func(i int, row Row) error {
		ok, err := pred(row)
		if err != nil || !ok {
			return err
		}

		entries := append([]Entry(nil), row.Entries()...)
		for _, a := range assigns {
			e, err := a.value(row).convert(a.col.Type)
			if err != nil {
				return schemaErrorf(t.name, a.col.Name, "%v", err)
			}
			entries[a.index] = e
		}
		if err := t.UpdateRow(i, entries); err != nil {
			return err
		}
		res.RowsAffected++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (db *DB) execDelete(s *parser.Delete) (*Result, error) {
	t, err := db.lookupTable(s.Table)
	if err != nil {
		return nil, err
	}

	pred, err := compileCondition(t, s.Where)
	if err != nil {
		return nil, err
	}

	var matches []int
	err = t.Scan(func(i int, row Row) error {
		ok, err := pred(row)
		if ok {
			matches = append(matches, i)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	// remove from the back, so earlier indices stay valid
	for j := len(matches) - 1; j >= 0; j-- {
		if err := t.RemoveRow(matches[j]); err != nil {
			return nil, err
		}
	}
	return &Result{RowsAffected: len(matches)}, nil
}

// --------------------------------------------------------------------

type valueFunc func(Row) Entry

type predicate func(Row) (bool, error)

func matchAll(Row) (bool, error) { return true, nil }

func literalEntry(lit *parser.Literal) Entry {
	switch lit.Kind {
	case parser.IntLiteral:
		return BigIntEntry(lit.Int)
	case parser.FloatLiteral:
		return FloatEntry(lit.Float)
	case parser.StringLiteral:
		return TextEntry(lit.Str)
	}
	return Entry{}
}

func compileValue(t *Table, e parser.Expr) (valueFunc, error) {
	switch x := e.(type) {
	case *parser.Literal:
		val := literalEntry(x)
		return func(Row) Entry { return val }, nil
	case *parser.ColumnRef:
		_, col, ok := t.Column(x.Name)
		if !ok {
			return nil, schemaErrorf(t.name, x.Name, "no such column")
		}
		return func(r Row) Entry { return r.Get(col.Name) }, nil
	}
	return nil, schemaErrorf(t.name, "", "expected value, found %s", e)
}

// compileCondition turns a WHERE expression into a predicate. A nil
// expression matches every row.
func compileCondition(t *Table, e parser.Expr) (predicate, error) {
	if e == nil {
		return matchAll, nil
	}

	bin, ok := e.(*parser.BinaryExpr)
	if !ok {
		return nil, schemaErrorf(t.name, "", "expected condition, found %s", e)
	}

	if bin.Op == parser.AND {
		lhs, err := compileCondition(t, bin.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := compileCondition(t, bin.RHS)
		if err != nil {
			return nil, err
		}
		return func(r Row) (bool, error) {
			if ok, err := lhs(r); err != nil || !ok {
				return false, err
			}
			return rhs(r)
		}, nil
	}

	lhs, err := compileValue(t, bin.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := compileValue(t, bin.RHS)
	if err != nil {
		return nil, err
	}

	op := bin.Op
	return func(r Row) (bool, error) {
		a, b := lhs(r), rhs(r)
		if a.IsNull() || b.IsNull() {
			return false, nil
		}
		cmp, err := compareEntries(a, b)
		if err != nil {
			return false, schemaErrorf(t.name, "", "%s: %v", bin, err)
		}
		if op == parser.EQ {
			return cmp == 0, nil
		}
		return cmp > 0, nil
	}, nil
}

func compareEntries(a, b Entry) (int, error) {
	pa, pb := a.typ.Primitive, b.typ.Primitive
	switch {
	case (pa == Integer || pa == BigInt) && (pb == Integer || pb == BigInt):
		return compareOrdered(a.i < b.i, a.i > b.i), nil
	case pa.isNumeric() && pb.isNumeric():
		fa, fb := a.AsFloat(), b.AsFloat()
		return compareOrdered(fa < fb, fa > fb), nil
	case pa.isString() && pb.isString():
		return strings.Compare(a.s, b.s), nil
	}
	return 0, errors.Errorf("cannot compare %s with %s", a.typ, b.typ)
}

func compareOrdered(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}
