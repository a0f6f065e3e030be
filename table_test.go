package chunkdb_test

import (
	"github.com/bsm/chunkdb"
	"github.com/pkg/errors"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Table", func() {
	var db *chunkdb.DB
	var subject *chunkdb.Table
	var path string

	schema := []chunkdb.Column{
		{Name: "id", Type: chunkdb.TypeOf(chunkdb.Integer)},
		{Name: "name", Type: chunkdb.TypeOf(chunkdb.Text)},
		{Name: "code", Type: chunkdb.CharType(4)},
	}

	row := func(id int32, name, code string) []chunkdb.Entry {
		nm := chunkdb.TextEntry(name)
		if name == "" {
			nm = chunkdb.NullEntry(chunkdb.TypeOf(chunkdb.Text))
		}
		return []chunkdb.Entry{chunkdb.IntEntry(id), nm, chunkdb.CharEntry(code, 4)}
	}

	scanAll := func(t *chunkdb.Table) []string {
		var rows []chunkdb.Row
		ExpectWithOffset(1, t.Scan(func(_ int, r chunkdb.Row) error {
			rows = append(rows, r)
			return nil
		})).To(Succeed())
		return rowStrings(rows)
	}

	reopen := func(o *chunkdb.Options) {
		ExpectWithOffset(1, db.Close()).To(Succeed())
		db = openDB(path, o)

		var ok bool
		subject, ok = db.Table("people")
		ExpectWithOffset(1, ok).To(BeTrue())
	}

	BeforeEach(func() {
		path = tempPath()
		db = openDB(path, &chunkdb.Options{RowReserve: 4})

		var err error
		subject, err = db.CreateTable("people", schema)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = db.Close()
	})

	It("should expose the schema", func() {
		Expect(subject.ID()).To(Equal(uint8(1)))
		Expect(subject.Name()).To(Equal("people"))
		Expect(subject.Columns()).To(Equal(schema))
		Expect(subject.ColumnNames()).To(Equal([]string{"id", "name", "code"}))
		Expect(subject.RowSize()).To(Equal(5 + 5 + 5))
		Expect(subject.NumRows()).To(BeZero())

		n, col, ok := subject.Column("NAME")
		Expect(ok).To(BeTrue())
		Expect(n).To(Equal(1))
		Expect(col.Type).To(Equal(chunkdb.TypeOf(chunkdb.Text)))

		_, _, ok = subject.Column("missing")
		Expect(ok).To(BeFalse())
	})

	It("should allocate a header and a row data chunk", func() {
		Expect(countType(db, chunkdb.TypeTableHeader)).To(Equal(1))
		Expect(countType(db, chunkdb.TypeRowData)).To(Equal(1))
		expectContiguous(db)

		t, ok := db.Table("PEOPLE")
		Expect(ok).To(BeTrue())
		Expect(t).To(Equal(subject))
		Expect(db.Tables()).To(ConsistOf(subject))
	})

	It("should reject duplicate tables", func() {
		_, err := db.CreateTable("People", schema)
		Expect(errors.Cause(err)).To(Equal(chunkdb.ErrTableExists))
	})

	It("should validate schemas", func() {
		_, err := db.CreateTable("bad", nil)
		Expect(err).To(BeAssignableToTypeOf(&chunkdb.SchemaError{}))

		_, err = db.CreateTable("bad", []chunkdb.Column{
			{Name: "a", Type: chunkdb.TypeOf(chunkdb.Integer)},
			{Name: "A", Type: chunkdb.TypeOf(chunkdb.Float)},
		})
		Expect(err).To(BeAssignableToTypeOf(&chunkdb.SchemaError{}))
		Expect(err.Error()).To(ContainSubstring("duplicate column"))

		_, err = db.CreateTable("bad", []chunkdb.Column{
			{Name: "a", Type: chunkdb.CharType(0)},
		})
		Expect(err).To(BeAssignableToTypeOf(&chunkdb.SchemaError{}))
		Expect(db.Tables()).To(HaveLen(1))
	})

	It("should add and read rows", func() {
		Expect(subject.AddRow(row(1, "alice", "ab"))).To(Succeed())
		Expect(subject.AddRow(row(2, "bob", "abcd"))).To(Succeed())
		Expect(subject.NumRows()).To(Equal(2))

		r, err := subject.Row(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Get("id").AsInt()).To(Equal(int32(2)))
		Expect(r.Get("name").AsString()).To(Equal("bob"))
		Expect(r.Get("code").AsString()).To(Equal("abcd"))

		Expect(scanAll(subject)).To(Equal([]string{
			"{id:1, name:alice, code:ab}",
			"{id:2, name:bob, code:abcd}",
		}))
		Expect(countType(db, chunkdb.TypeDynamic)).To(Equal(2))
		expectContiguous(db)
	})

	It("should store nulls", func() {
		Expect(subject.AddRow([]chunkdb.Entry{
			chunkdb.NullEntry(chunkdb.TypeOf(chunkdb.Integer)),
			chunkdb.NullEntry(chunkdb.TypeOf(chunkdb.Text)),
			chunkdb.CharEntry("x", 4),
		})).To(Succeed())
		Expect(countType(db, chunkdb.TypeDynamic)).To(BeZero())

		r, err := subject.Row(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Get("id").IsNull()).To(BeTrue())
		Expect(r.Get("name").IsNull()).To(BeTrue())
		Expect(r.String()).To(Equal("{id:NULL, name:NULL, code:x}"))
	})

	It("should reject rows which do not fit the schema", func() {
		err := subject.AddRow([]chunkdb.Entry{chunkdb.IntEntry(1)})
		Expect(err).To(BeAssignableToTypeOf(&chunkdb.SchemaError{}))

		err = subject.AddRow([]chunkdb.Entry{
			chunkdb.IntEntry(1), chunkdb.TextEntry("x"), chunkdb.CharEntry("toolong", 7),
		})
		Expect(err).To(BeAssignableToTypeOf(&chunkdb.SchemaError{}))
		Expect(err.Error()).To(ContainSubstring("people.code"))

		err = subject.AddRow([]chunkdb.Entry{
			chunkdb.TextEntry("1"), chunkdb.TextEntry("x"), chunkdb.CharEntry("a", 4),
		})
		Expect(err).To(BeAssignableToTypeOf(&chunkdb.SchemaError{}))

		err = subject.AddRow([]chunkdb.Entry{
			chunkdb.BigIntEntry(1 << 40), chunkdb.TextEntry("x"), chunkdb.CharEntry("a", 4),
		})
		Expect(err).To(BeAssignableToTypeOf(&chunkdb.SchemaError{}))
		Expect(err.Error()).To(ContainSubstring("overflows Integer"))

		Expect(subject.NumRows()).To(BeZero())
	})

	It("should fail on out of range rows", func() {
		_, err := subject.Row(0)
		Expect(errors.Cause(err)).To(Equal(chunkdb.ErrOutOfRange))
		Expect(errors.Cause(subject.RemoveRow(-1))).To(Equal(chunkdb.ErrOutOfRange))
		Expect(errors.Cause(subject.UpdateRow(3, row(1, "a", "b")))).To(Equal(chunkdb.ErrOutOfRange))
	})

	It("should spread rows across row data chunks", func() {
		for i := int32(1); i <= 10; i++ {
			Expect(subject.AddRow(row(i, "name", "c"))).To(Succeed())
		}
		Expect(countType(db, chunkdb.TypeRowData)).To(Equal(3))
		expectContiguous(db)

		rows := scanAll(subject)
		Expect(rows).To(HaveLen(10))
		Expect(rows[0]).To(Equal("{id:1, name:name, code:c}"))
		Expect(rows[9]).To(Equal("{id:10, name:name, code:c}"))
	})

	It("should reload", func() {
		for i := int32(1); i <= 10; i++ {
			Expect(subject.AddRow(row(i, "n", "c"))).To(Succeed())
		}
		Expect(subject.AddRow(row(11, "", "d"))).To(Succeed())
		before := scanAll(subject)

		reopen(nil)
		Expect(subject.NumRows()).To(Equal(11))
		Expect(subject.Columns()).To(Equal(schema))
		Expect(scanAll(subject)).To(Equal(before))

		Expect(subject.AddRow(row(12, "after", "e"))).To(Succeed())
		r, err := subject.Row(11)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.String()).To(Equal("{id:12, name:after, code:e}"))
		Expect(subject.Cell(11)).NotTo(BeNil())
		expectContiguous(db)
	})

	It("should update rows", func() {
		Expect(subject.AddRow(row(1, "alice", "a"))).To(Succeed())
		Expect(subject.AddRow(row(2, "bob", "b"))).To(Succeed())

		Expect(subject.UpdateRow(0, row(7, "alice in wonderland", "z"))).To(Succeed())
		Expect(countType(db, chunkdb.TypeRemoved)).To(Equal(1)) // relocated cell
		Expect(countType(db, chunkdb.TypeDynamic)).To(Equal(2))

		Expect(subject.UpdateRow(1, row(8, "", "y"))).To(Succeed())
		Expect(countType(db, chunkdb.TypeRemoved)).To(Equal(2))
		Expect(countType(db, chunkdb.TypeDynamic)).To(Equal(1))

		expected := []string{
			"{id:7, name:alice in wonderland, code:z}",
			"{id:8, name:NULL, code:y}",
		}
		Expect(scanAll(subject)).To(Equal(expected))

		reopen(nil)
		Expect(scanAll(subject)).To(Equal(expected))
	})

	It("should remove rows", func() {
		for i := int32(1); i <= 6; i++ {
			Expect(subject.AddRow(row(i, "x", "c"))).To(Succeed())
		}
		Expect(subject.RemoveRow(1)).To(Succeed())
		Expect(subject.RemoveRow(4)).To(Succeed())
		Expect(subject.NumRows()).To(Equal(4))
		Expect(countType(db, chunkdb.TypeRemoved)).To(Equal(2))

		expected := []string{
			"{id:1, name:x, code:c}",
			"{id:3, name:x, code:c}",
			"{id:4, name:x, code:c}",
			"{id:5, name:x, code:c}",
		}
		Expect(scanAll(subject)).To(Equal(expected))
		expectContiguous(db)

		reopen(nil)
		Expect(scanAll(subject)).To(Equal(expected))

		Expect(subject.AddRow(row(9, "y", "d"))).To(Succeed())
		Expect(subject.NumRows()).To(Equal(5))
		expectContiguous(db)
	})

	It("should keep the previous cell when a relocation is cut short", func() {
		Expect(subject.AddRow(row(1, "hello", "a"))).To(Succeed())
		Expect(subject.AddRow(row(2, "x", "b"))).To(Succeed())

		db.FailWritesAfter(1)
		Expect(subject.Cell(1).Set([]byte("hello, much longer"))).NotTo(Succeed())
		Expect(countType(db, chunkdb.TypeRemoved)).To(Equal(1))

		reopen(nil)
		Expect(scanAll(subject)).To(Equal([]string{
			"{id:1, name:hello, code:a}",
			"{id:2, name:x, code:b}",
		}))
	})

	It("should resolve duplicate cells to the later copy", func() {
		Expect(subject.AddRow(row(1, "hello", "a"))).To(Succeed())
		Expect(subject.AddRow(row(2, "x", "b"))).To(Succeed())

		id, err := db.NewChunk(chunkdb.TypeDynamic, subject.ID(), 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(db.WriteChunk(id, []byte("world"), 0)).To(Succeed())
		Expect(countType(db, chunkdb.TypeDynamic)).To(Equal(3))

		reopen(nil)
		Expect(scanAll(subject)).To(Equal([]string{
			"{id:1, name:world, code:a}",
			"{id:2, name:x, code:b}",
		}))
	})

	It("should not commit rows when a write fails", func() {
		Expect(subject.AddRow(row(1, "alice", "a"))).To(Succeed())

		db.FailWritesAfter(3) // the text cell only
		Expect(subject.AddRow(row(2, "bob", "b"))).NotTo(Succeed())
		Expect(subject.NumRows()).To(Equal(1))

		reopen(nil)
		Expect(subject.NumRows()).To(Equal(1))
		Expect(scanAll(subject)).To(Equal([]string{"{id:1, name:alice, code:a}"}))

		Expect(subject.AddRow(row(3, "carol", "c"))).To(Succeed())
		Expect(scanAll(subject)).To(Equal([]string{
			"{id:1, name:alice, code:a}",
			"{id:3, name:carol, code:c}",
		}))
	})

	It("should trim uncommitted slots on load", func() {
		Expect(subject.AddRow(row(1, "alice", "a"))).To(Succeed())

		db.FailWritesAfter(5) // text cell and row slot, but no row count
		Expect(subject.AddRow(row(2, "bob", "b"))).NotTo(Succeed())

		reopen(nil)
		Expect(subject.NumRows()).To(Equal(1))
		Expect(scanAll(subject)).To(Equal([]string{"{id:1, name:alice, code:a}"}))
		expectContiguous(db)

		Expect(subject.AddRow(row(3, "carol", "c"))).To(Succeed())
		r, err := subject.Row(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.String()).To(Equal("{id:3, name:carol, code:c}"))
	})

	It("should ignore headers of interrupted creates", func() {
		db.FailWritesAfter(1)
		_, err := db.CreateTable("other", schema)
		Expect(err).To(HaveOccurred())

		reopen(nil)
		Expect(db.Tables()).To(ConsistOf(subject))
		Expect(countType(db, chunkdb.TypeRemoved)).To(Equal(1))
	})

	It("should load tables without row data", func() {
		Expect(subject.AddRow(row(1, "alice", "a"))).To(Succeed())

		// a header written just before a crash, no row data chunk
		id, err := db.NewChunk(chunkdb.TypeTableHeader, 2, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(db.WriteChunk(id, []byte{
			1, 'x',     // name
			1,          // column count
			0, 0, 0, 0, // row count
			2, 'i', 'd', byte(chunkdb.Integer), 0,
		}, 0)).To(Succeed())

		reopen(nil)
		x, ok := db.Table("x")
		Expect(ok).To(BeTrue())
		Expect(x.NumRows()).To(BeZero())
		Expect(scanAll(subject)).To(HaveLen(1))

		Expect(x.AddRow([]chunkdb.Entry{chunkdb.IntEntry(5)})).To(Succeed())
		Expect(countType(db, chunkdb.TypeRowData)).To(Equal(2))

		reopen(nil)
		x, _ = db.Table("x")
		Expect(scanAll(x)).To(Equal([]string{"{id:5}"}))
	})

	It("should refuse writes when read-only", func() {
		Expect(subject.AddRow(row(1, "a", "b"))).To(Succeed())
		reopen(&chunkdb.Options{ReadOnly: true})

		Expect(scanAll(subject)).To(HaveLen(1))
		Expect(subject.AddRow(row(2, "b", "c"))).NotTo(Succeed())
	})
})
