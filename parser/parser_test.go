package parser_test

import (
	"github.com/bsm/chunkdb/parser"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parser", func() {
	col := func(name string) parser.Expr { return &parser.ColumnRef{Name: name} }
	num := func(n int64) parser.Expr { return &parser.Literal{Kind: parser.IntLiteral, Int: n} }
	str := func(s string) parser.Expr { return &parser.Literal{Kind: parser.StringLiteral, Str: s} }
	cmp := func(op parser.TokenType, lhs, rhs parser.Expr) parser.Expr {
		return &parser.BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
	}

	parse := func(src string) parser.Statement {
		stmt, err := parser.Parse(src)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return stmt
	}

	parseErrors := func(src string) parser.Errors {
		stmt, err := parser.Parse(src)
		ExpectWithOffset(1, stmt).To(BeNil())
		ExpectWithOffset(1, err).To(BeAssignableToTypeOf(parser.Errors{}))
		return err.(parser.Errors)
	}

	It("should parse SELECT", func() {
		Expect(parse(`SELECT * FROM users`)).To(Equal(&parser.Select{Table: "users"}))
		Expect(parse(`select id, name from users where id > 1 and name = 'bob';`)).To(Equal(&parser.Select{
			Table:   "users",
			Columns: []string{"id", "name"},
			Where: cmp(parser.AND,
				cmp(parser.GT, col("id"), num(1)),
				cmp(parser.EQ, col("name"), str("bob")),
			),
		}))
	})

	It("should parse INSERT", func() {
		Expect(parse(`INSERT INTO t (a, b, c, d, e) VALUES (-1, 2.5, 'x', NULL, other)`)).To(Equal(&parser.Insert{
			Table:   "t",
			Columns: []string{"a", "b", "c", "d", "e"},
			Values: []parser.Expr{
				num(-1),
				&parser.Literal{Kind: parser.FloatLiteral, Float: 2.5},
				str("x"),
				&parser.Literal{Kind: parser.NullLiteral},
				col("other"),
			},
		}))
	})

	It("should parse CREATE TABLE", func() {
		Expect(parse(`CREATE TABLE IF NOT EXISTS t (id Integer, name Char(10), body text)`)).To(Equal(&parser.CreateTable{
			Name:        "t",
			IfNotExists: true,
			Columns: []parser.ColumnDef{
				{Name: "id", Type: "Integer"},
				{Name: "name", Type: "Char", Length: 10},
				{Name: "body", Type: "text"},
			},
		}))
		Expect(parse(`create table t (id BigInt)`)).To(Equal(&parser.CreateTable{
			Name:    "t",
			Columns: []parser.ColumnDef{{Name: "id", Type: "BigInt"}},
		}))
	})

	It("should parse UPDATE", func() {
		Expect(parse(`UPDATE t SET a = 1, b = c WHERE id = 2`)).To(Equal(&parser.Update{
			Table: "t",
			Set: []parser.Assignment{
				{Column: "a", Value: num(1)},
				{Column: "b", Value: col("c")},
			},
			Where: cmp(parser.EQ, col("id"), num(2)),
		}))
		Expect(parse(`UPDATE t SET a = NULL`)).To(Equal(&parser.Update{
			Table: "t",
			Set:   []parser.Assignment{{Column: "a", Value: &parser.Literal{Kind: parser.NullLiteral}}},
		}))
	})

	It("should parse DELETE", func() {
		Expect(parse(`DELETE FROM t`)).To(Equal(&parser.Delete{Table: "t"}))
		Expect(parse(`DELETE FROM t WHERE 3 > x`)).To(Equal(&parser.Delete{
			Table: "t",
			Where: cmp(parser.GT, num(3), col("x")),
		}))
	})

	It("should format statements", func() {
		for _, src := range []string{
			`SELECT * FROM users`,
			`SELECT id, name FROM users WHERE id > 1 AND name = 'it''s'`,
			`INSERT INTO t (a, b, c) VALUES (-1, 2.5, NULL)`,
			`CREATE TABLE IF NOT EXISTS t (id Integer, name Char(10))`,
			`UPDATE t SET a = 1, b = c WHERE id = 2`,
			`DELETE FROM t WHERE x = 'y'`,
		} {
			Expect(parse(src).String()).To(Equal(src))
		}
	})

	It("should report errors", func() {
		errs := parseErrors(``)
		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Msg).To(Equal("empty statement"))

		errs = parseErrors(`SELECT FROM t`)
		Expect(errs).To(HaveLen(1))
		Expect(errs[0]).To(Equal(&parser.Error{Pos: 7, Msg: "expected IDENT, found FROM"}))

		errs = parseErrors(`SELECT * FROM t extra`)
		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Msg).To(Equal(`unexpected "extra" after end of statement`))

		errs = parseErrors(`SELECT * FROM t WHERE a 1`)
		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Msg).To(Equal(`expected = or >, found "1"`))

		errs = parseErrors(`CREATE TABLE t (a Char(0))`)
		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Msg).To(Equal("invalid length 0"))

		errs = parseErrors(`DROP TABLE t`)
		Expect(errs[0].Msg).To(Equal(`expected statement, found "DROP"`))
	})

	It("should collect multiple errors", func() {
		errs := parseErrors(`CREATE TABLE t (a, b Integer(x), c Text)`)
		Expect(errs).To(HaveLen(2))
		Expect(errs[0].Msg).To(Equal("expected IDENT, found ,"))
		Expect(errs[1].Msg).To(Equal(`expected INT, found "x"`))
		Expect(errs.Error()).To(HavePrefix("2 parse errors: "))
	})

	It("should not repeat lexical errors", func() {
		errs := parseErrors(`SELECT * FROM 'open`)
		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Msg).To(Equal("unterminated string literal"))

		errs = parseErrors(`SELECT * FROM t WHERE a < 1`)
		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Msg).To(Equal(`unexpected character '<'`))
	})
})
