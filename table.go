package chunkdb

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Table is a typed table. Rows are stored back to back in fixed size slots
// across one or more row data chunks, Text values live in dynamic cells.
//
//     Header chunk (TH):
//     +--------------+------+------------------+----------------+-------------+
//     | name len (1) | name | column count (1) | row count (4)  | columns ... |
//     +--------------+------+------------------+----------------+-------------+
//
//     Column:
//     +--------------+------+---------------+------------+
//     | name len (1) | name | primitive (1) | length (1) |
//     +--------------+------+---------------+------------+
type Table struct {
	db   *DB
	id   uint8
	name string

	cols    []Column
	names   []string
	offsets []int
	rowSize int
	numRows int

	header   ChunkID
	rowData  []ChunkID // ordered by chunk index
	cells    map[uint32]*DynamicData
	nextCell uint32 // cell indices start at 1, 0 means none
}

func newTable(db *DB, id uint8, name string, cols []Column) *Table {
	t := &Table{
		db:       db,
		id:       id,
		name:     name,
		cols:     cols,
		names:    make([]string, len(cols)),
		offsets:  make([]int, len(cols)),
		header:   noChunk,
		cells:    make(map[uint32]*DynamicData),
		nextCell: 1,
	}
	for i, c := range cols {
		t.names[i] = c.Name
		t.offsets[i] = t.rowSize
		t.rowSize += c.Type.Size()
	}
	return t
}

func loadTable(db *DB, h *chunk) (*Table, error) {
	name, err := h.readString(0)
	if err != nil {
		return nil, err
	}
	pos := int64(1 + len(name))

	ncols, err := h.readByte(pos)
	if err != nil {
		return nil, err
	}
	numRows, err := h.readInt(pos + 1)
	if err != nil {
		return nil, err
	}
	pos += 5

	cols := make([]Column, 0, int(ncols))
	for i := 0; i < int(ncols); i++ {
		cname, err := h.readString(pos)
		if err != nil {
			return nil, err
		}
		pos += int64(1 + len(cname))

		prim, err := h.readByte(pos)
		if err != nil {
			return nil, err
		}
		length, err := h.readByte(pos + 1)
		if err != nil {
			return nil, err
		}
		pos += 2

		cols = append(cols, Column{Name: cname, Type: DataType{Primitive: Primitive(prim), Length: length}})
	}
	if err := validateSchema(name, cols); err != nil {
		return nil, errors.Wrapf(errBadHeader, "table header at offset %d: %v", h.Offset, err)
	}

	t := newTable(db, h.Owner, name, cols)
	t.header = h.id
	t.numRows = int(numRows)
	return t, nil
}

// ID returns the table ID, which is the owner ID of all its chunks.
func (t *Table) ID() uint8 { return t.id }

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Columns returns the table columns.
func (t *Table) Columns() []Column { return append([]Column(nil), t.cols...) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string { return append([]string(nil), t.names...) }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.numRows }

// RowSize returns the size of a row slot in bytes.
func (t *Table) RowSize() int { return t.rowSize }

// Column looks up a column by name (case-insensitive).
func (t *Table) Column(name string) (int, Column, bool) {
	for i, c := range t.cols {
		if strings.EqualFold(c.Name, name) {
			return i, c, true
		}
	}
	return -1, Column{}, false
}

// AddRow appends a row. Entries must match the schema in number and be
// convertible to the column types. Text cells are written before the row
// slot and the row count, so a failed insert commits nothing.
func (t *Table) AddRow(entries []Entry) error {
	entries, err := t.conform(entries)
	if err != nil {
		return err
	}

	var added []*DynamicData
	slot := make([]byte, t.rowSize)
	for i, c := range t.cols {
		e := entries[i]
		if c.Type.Primitive == Text && !e.IsNull() {
			dd, index, err := t.newCell(e.s)
			if err != nil {
				t.discard(added)
				return err
			}
			added = append(added, dd)
			e.cell = index
		}
		e.encode(slot[t.offsets[i]:])
	}

	if err := t.appendSlot(slot); err != nil {
		t.discard(added)
		return err
	}

	t.numRows++
	if err := t.persistCount(); err != nil {
		t.numRows--
		if err := t.trim(1); err != nil {
			t.db.o.Logger.Warnf("chunkdb: %s trim slot: %v", t.name, err)
		}
		t.discard(added)
		return err
	}

	for _, dd := range added {
		t.cells[dd.chunk().Index] = dd
	}
	return nil
}

// discard tombstones cells of a failed insert. Errors are logged only, the
// cells are unreferenced either way.
func (t *Table) discard(cells []*DynamicData) {
	for _, dd := range cells {
		if err := dd.drop(); err != nil {
			t.db.o.Logger.Warnf("chunkdb: %s discard cell: %v", t.name, err)
		}
	}
}

// Row materialises the row at index i.
func (t *Table) Row(i int) (Row, error) {
	slot, err := t.readSlot(i)
	if err != nil {
		return Row{}, err
	}

	entries := make([]Entry, len(t.cols))
	for n, c := range t.cols {
		e := c.read(slot[t.offsets[n]:])
		if c.Type.Primitive == Text && !e.null {
			dd, ok := t.cells[e.cell]
			if !ok {
				return Row{}, errors.Errorf("chunkdb: %s row %d references missing cell %d", t.name, i, e.cell)
			}
			p, err := dd.Bytes()
			if err != nil {
				return Row{}, err
			}
			e.s = string(p)
		}
		entries[n] = e
	}
	return Row{cols: t.names, entries: entries}, nil
}

// Scan calls fn for every row in order. Scanning stops at the first error.
func (t *Table) Scan(fn func(int, Row) error) error {
	for i := 0; i < t.numRows; i++ {
		row, err := t.Row(i)
		if err != nil {
			return err
		}
		if err := fn(i, row); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRow overwrites the row at index i in place.
func (t *Table) UpdateRow(i int, entries []Entry) error {
	entries, err := t.conform(entries)
	if err != nil {
		return err
	}

	old, err := t.readSlot(i)
	if err != nil {
		return err
	}

	slot := append([]byte(nil), old...)
	for n, c := range t.cols {
		if c.Type.Primitive != Text {
			entries[n].encode(slot[t.offsets[n]:])
		}
	}
	if err := t.writeSlot(i, slot); err != nil {
		return err
	}

	for n, c := range t.cols {
		if c.Type.Primitive == Text {
			if err := t.setText(i, n, entries[n], c.read(old[t.offsets[n]:])); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveRow deletes the row at index i. Subsequent rows shift down by one
// slot, the freed slot becomes padding of its chunk.
func (t *Table) RemoveRow(i int) error {
	slot, err := t.readSlot(i)
	if err != nil {
		return err
	}
	for n, c := range t.cols {
		if c.Type.Primitive != Text {
			continue
		}
		if e := c.read(slot[t.offsets[n]:]); !e.null {
			if err := t.dropCell(e.cell); err != nil {
				return err
			}
		}
	}

	last := t.numRows - 1
	for j := i; j < last; j++ {
		p, err := t.readSlot(j + 1)
		if err != nil {
			return err
		}
		if err := t.writeSlot(j, p); err != nil {
			return err
		}
	}

	c, off := t.locate(last)
	if err := c.shrinkTo(uint32(off)); err != nil {
		return err
	}

	t.numRows--
	return t.persistCount()
}

// --------------------------------------------------------------------

// create writes the header chunk, tagged RM until it is complete, followed
// by the first row data chunk.
func (t *Table) create() error {
	h, err := t.db.newChunk(TypeRemoved, t.id, 0)
	if err != nil {
		return err
	}

	if err := h.writeString(0, t.name); err != nil {
		return err
	}
	pos := int64(1 + len(t.name))
	if err := h.writeByte(pos, byte(len(t.cols))); err != nil {
		return err
	}
	if err := h.writeInt(pos+1, 0); err != nil {
		return err
	}
	pos += 5

	for _, c := range t.cols {
		if err := h.writeString(pos, c.Name); err != nil {
			return err
		}
		pos += int64(1 + len(c.Name))

		if err := h.writeByte(pos, byte(c.Type.Primitive)); err != nil {
			return err
		}
		if err := h.writeByte(pos+1, c.Type.Length); err != nil {
			return err
		}
		pos += 2
	}

	if err := h.retag(TypeTableHeader); err != nil {
		return err
	}
	t.header = h.id

	_, err = t.newRowChunk(0)
	return err
}

func (t *Table) rowCountOffset() int64 { return int64(2 + len(t.name)) }

func (t *Table) persistCount() error {
	if t.numRows > math.MaxInt32 {
		return errors.Errorf("chunkdb: %s row count overflow", t.name)
	}
	return t.db.chunk(t.header).writeInt(t.rowCountOffset(), int32(t.numRows))
}

func (t *Table) newRowChunk(index uint32) (*chunk, error) {
	c, err := t.db.newChunk(TypeRowData, t.id, index)
	if err != nil {
		return nil, err
	}
	if err := c.reserve(t.rowSize * t.db.o.RowReserve); err != nil {
		return nil, err
	}
	t.rowData = append(t.rowData, c.id)
	return c, nil
}

// verify checks the row data chunks against the persisted row count. Slots
// beyond the count belong to an interrupted insert and are trimmed.
func (t *Table) verify() error {
	var n int
	for _, id := range t.rowData {
		c := t.db.chunk(id)
		if int(c.Size)%t.rowSize != 0 {
			return errors.Wrapf(errBadHeader, "%s row data chunk %d holds a partial row", t.name, c.Index)
		}
		n += int(c.Size) / t.rowSize
	}

	switch {
	case n < t.numRows:
		return errors.Wrapf(errBadHeader, "%s holds %d rows, header says %d", t.name, n, t.numRows)
	case n > t.numRows:
		t.db.o.Logger.Warnf("chunkdb: %s holds %d uncommitted rows", t.name, n-t.numRows)
		if !t.db.o.ReadOnly {
			return t.trim(n - t.numRows)
		}
	}
	return nil
}

// trim turns the last n row slots into padding.
func (t *Table) trim(n int) error {
	for j := len(t.rowData) - 1; j >= 0 && n > 0; j-- {
		c := t.db.chunk(t.rowData[j])
		k := int(c.Size) / t.rowSize
		if k > n {
			k = n
		}
		if err := c.shrinkTo(c.Size - uint32(k*t.rowSize)); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

// locate returns the chunk and data offset of row slot i.
func (t *Table) locate(i int) (*chunk, int64) {
	for _, id := range t.rowData {
		c := t.db.chunk(id)
		n := int(c.Size) / t.rowSize
		if i < n {
			return c, int64(i * t.rowSize)
		}
		i -= n
	}
	return nil, 0
}

func (t *Table) readSlot(i int) ([]byte, error) {
	if i < 0 || i >= t.numRows {
		return nil, errors.Wrapf(ErrOutOfRange, "%s row %d of %d", t.name, i, t.numRows)
	}
	c, off := t.locate(i)
	p := make([]byte, t.rowSize)
	if err := c.readAt(p, off); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *Table) writeSlot(i int, p []byte) error {
	c, off := t.locate(i)
	if c == nil {
		return errors.Wrapf(ErrOutOfRange, "%s row %d of %d", t.name, i, t.numRows)
	}
	return c.writeAt(p, off)
}

func (t *Table) appendSlot(p []byte) error {
	if len(t.rowData) == 0 {
		c, err := t.newRowChunk(0)
		if err != nil {
			return err
		}
		return c.writeAt(p, 0)
	}

	last := t.db.chunk(t.rowData[len(t.rowData)-1])
	if !last.isActive() && last.Reserved() < int64(last.Size)+int64(t.rowSize) {
		c, err := t.newRowChunk(last.Index + 1)
		if err != nil {
			return err
		}
		last = c
	}
	return last.writeAt(p, int64(last.Size))
}

// setText stores e in column n of row i. prev is the currently stored entry.
func (t *Table) setText(i, n int, e, prev Entry) error {
	c, off := t.locate(i)
	off += int64(t.offsets[n])

	if e.IsNull() {
		if !prev.null {
			if err := t.dropCell(prev.cell); err != nil {
				return err
			}
		}
		return t.writeField(c, off, NullEntry(t.cols[n].Type))
	}

	if dd, ok := t.cells[prev.cell]; ok && !prev.null {
		if err := dd.Set([]byte(e.s)); err != nil {
			return err
		}
		e.cell = prev.cell
		return t.writeField(c, off, e)
	}

	dd, index, err := t.newCell(e.s)
	if err != nil {
		return err
	}
	t.cells[index] = dd

	e.cell = index
	return t.writeField(c, off, e)
}

// newCell allocates the next cell index and stores s in it. The cell is not
// registered with the table.
func (t *Table) newCell(s string) (*DynamicData, uint32, error) {
	index := t.nextCell
	dd, err := newDynamicData(t.db, t.id, index)
	if err != nil {
		return nil, 0, err
	}
	t.nextCell++

	if err := dd.Set([]byte(s)); err != nil {
		t.discard([]*DynamicData{dd})
		return nil, 0, err
	}
	return dd, index, nil
}

func (t *Table) writeField(c *chunk, off int64, e Entry) error {
	p := make([]byte, e.typ.Size())
	e.encode(p)
	return c.writeAt(p, off)
}

func (t *Table) dropCell(index uint32) error {
	dd, ok := t.cells[index]
	if !ok {
		return nil
	}
	if err := dd.drop(); err != nil {
		return err
	}
	delete(t.cells, index)
	return nil
}

// conform checks arity and converts entries to the column types.
func (t *Table) conform(entries []Entry) ([]Entry, error) {
	if len(entries) != len(t.cols) {
		return nil, schemaErrorf(t.name, "", "expected %d values, got %d", len(t.cols), len(entries))
	}

	out := make([]Entry, len(entries))
	for i, c := range t.cols {
		e, err := entries[i].convert(c.Type)
		if err != nil {
			return nil, schemaErrorf(t.name, c.Name, "%v", err)
		}
		out[i] = e
	}
	return out, nil
}
