package chunkdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Primitive is the kind of value stored in a column.
type Primitive uint8

// Supported primitives.
const (
	Integer Primitive = iota + 1 // 32-bit signed integer
	BigInt                       // 64-bit signed integer
	Float                        // 64-bit IEEE 754 float
	Char                         // fixed width byte string
	Text                         // variable length string, stored in a dynamic cell
)

var primitiveNames = map[Primitive]string{
	Integer: "Integer",
	BigInt:  "BigInt",
	Float:   "Float",
	Char:    "Char",
	Text:    "Text",
}

// ParsePrimitive resolves a case-insensitive type name.
func ParsePrimitive(name string) (Primitive, bool) {
	for p, s := range primitiveNames {
		if strings.EqualFold(s, name) {
			return p, true
		}
	}
	return 0, false
}

func (p Primitive) String() string {
	if s, ok := primitiveNames[p]; ok {
		return s
	}
	return "Primitive(" + strconv.Itoa(int(p)) + ")"
}

func (p Primitive) isValid() bool { return p >= Integer && p <= Text }

func (p Primitive) isNumeric() bool { return p == Integer || p == BigInt || p == Float }

func (p Primitive) isString() bool { return p == Char || p == Text }

func (p Primitive) elemSize() int {
	switch p {
	case Integer, Text:
		return 4
	case BigInt, Float:
		return 8
	case Char:
		return 1
	}
	return 0
}

// --------------------------------------------------------------------

// DataType is a primitive with an element length. Only Char uses lengths
// other than 1.
type DataType struct {
	Primitive Primitive
	Length    uint8
}

// TypeOf returns the DataType for a non-Char primitive.
func TypeOf(p Primitive) DataType { return DataType{Primitive: p, Length: 1} }

// CharType returns a Char(n) DataType.
func CharType(n uint8) DataType { return DataType{Primitive: Char, Length: n} }

// Size returns the number of bytes a value occupies in a row: a null flag
// followed by the payload.
func (t DataType) Size() int { return 1 + t.Primitive.elemSize()*int(t.Length) }

func (t DataType) String() string {
	if t.Primitive == Char {
		return fmt.Sprintf("Char(%d)", t.Length)
	}
	return t.Primitive.String()
}

func (t DataType) validate() error {
	if !t.Primitive.isValid() {
		return fmt.Errorf("invalid primitive %d", t.Primitive)
	}
	if t.Length == 0 {
		return fmt.Errorf("invalid length 0 for %s", t.Primitive)
	}
	if t.Primitive != Char && t.Length != 1 {
		return fmt.Errorf("%s does not accept a length", t.Primitive)
	}
	return nil
}

// --------------------------------------------------------------------

// Entry is a single typed value. Entries are immutable.
type Entry struct {
	typ  DataType
	null bool

	i int64
	f float64
	s string

	cell uint32 // text only, the dynamic cell index; zero if none
}

// IntEntry returns an Integer entry.
func IntEntry(v int32) Entry { return Entry{typ: TypeOf(Integer), i: int64(v)} }

// BigIntEntry returns a BigInt entry.
func BigIntEntry(v int64) Entry { return Entry{typ: TypeOf(BigInt), i: v} }

// FloatEntry returns a Float entry.
func FloatEntry(v float64) Entry { return Entry{typ: TypeOf(Float), f: v} }

// CharEntry returns a Char(n) entry.
func CharEntry(v string, n uint8) Entry { return Entry{typ: CharType(n), s: v} }

// TextEntry returns a Text entry.
func TextEntry(v string) Entry { return Entry{typ: TypeOf(Text), s: v} }

// NullEntry returns a null entry of the given type.
func NullEntry(t DataType) Entry { return Entry{typ: t, null: true} }

// Type returns the entry type.
func (e Entry) Type() DataType { return e.typ }

// IsNull returns true for null entries, including the zero Entry.
func (e Entry) IsNull() bool { return e.null || e.typ.Primitive == 0 }

// AsInt returns the value as an int32.
func (e Entry) AsInt() int32 { return int32(e.AsLong()) }

// AsLong returns the value as an int64.
func (e Entry) AsLong() int64 {
	switch e.typ.Primitive {
	case Integer, BigInt:
		return e.i
	case Float:
		return int64(e.f)
	case Char, Text:
		n, _ := strconv.ParseInt(e.s, 10, 64)
		return n
	}
	return 0
}

// AsFloat returns the value as a float64.
func (e Entry) AsFloat() float64 {
	switch e.typ.Primitive {
	case Integer, BigInt:
		return float64(e.i)
	case Float:
		return e.f
	case Char, Text:
		f, _ := strconv.ParseFloat(e.s, 64)
		return f
	}
	return 0
}

// AsString returns the value formatted as a string. Null entries return an
// empty string.
func (e Entry) AsString() string {
	if e.IsNull() {
		return ""
	}
	switch e.typ.Primitive {
	case Integer, BigInt:
		return strconv.FormatInt(e.i, 10)
	case Float:
		return strconv.FormatFloat(e.f, 'g', -1, 64)
	}
	return e.s
}

// String implements fmt.Stringer.
func (e Entry) String() string {
	if e.IsNull() {
		return "NULL"
	}
	return e.AsString()
}

// Equal returns true if both entries hold the same type and value.
func (e Entry) Equal(o Entry) bool {
	if e.IsNull() || o.IsNull() {
		return e.IsNull() && o.IsNull()
	}
	return e.typ == o.typ && e.i == o.i && e.f == o.f && e.s == o.s
}

// encode writes the null flag and payload into p, which must be at least
// typ.Size() bytes long.
func (e Entry) encode(p []byte) {
	p = p[:e.typ.Size()]
	for i := range p {
		p[i] = 0
	}
	if e.null {
		p[0] = 1
		return
	}

	switch e.typ.Primitive {
	case Integer:
		binary.LittleEndian.PutUint32(p[1:], uint32(int32(e.i)))
	case BigInt:
		binary.LittleEndian.PutUint64(p[1:], uint64(e.i))
	case Float:
		binary.LittleEndian.PutUint64(p[1:], math.Float64bits(e.f))
	case Char:
		copy(p[1:], e.s)
	case Text:
		binary.LittleEndian.PutUint32(p[1:], e.cell)
	}
}

// decodeEntry reads an entry of type t from p. Text entries carry the cell
// reference only, the caller resolves the contents.
func decodeEntry(t DataType, p []byte) Entry {
	e := Entry{typ: t, null: p[0] != 0}
	if e.null {
		return e
	}

	switch t.Primitive {
	case Integer:
		e.i = int64(int32(binary.LittleEndian.Uint32(p[1:])))
	case BigInt:
		e.i = int64(binary.LittleEndian.Uint64(p[1:]))
	case Float:
		e.f = math.Float64frombits(binary.LittleEndian.Uint64(p[1:]))
	case Char:
		raw := p[1 : 1+int(t.Length)]
		if n := strings.IndexByte(string(raw), 0); n > -1 {
			raw = raw[:n]
		}
		e.s = string(raw)
	case Text:
		e.cell = binary.LittleEndian.Uint32(p[1:])
	}
	return e
}

// convert coerces the entry into type t.
func (e Entry) convert(t DataType) (Entry, error) {
	if e.IsNull() {
		return NullEntry(t), nil
	}

	src := e.typ.Primitive
	switch t.Primitive {
	case Integer:
		if src == Integer || src == BigInt {
			if e.i < math.MinInt32 || e.i > math.MaxInt32 {
				return Entry{}, fmt.Errorf("value %d overflows Integer", e.i)
			}
			return IntEntry(int32(e.i)), nil
		}
	case BigInt:
		if src == Integer || src == BigInt {
			return BigIntEntry(e.i), nil
		}
	case Float:
		if src.isNumeric() {
			return FloatEntry(e.AsFloat()), nil
		}
	case Char:
		if src.isString() {
			if len(e.s) > int(t.Length) {
				return Entry{}, fmt.Errorf("value %q exceeds %s", e.s, t)
			}
			return CharEntry(e.s, t.Length), nil
		}
	case Text:
		if src.isString() {
			return TextEntry(e.s), nil
		}
	}
	return Entry{}, fmt.Errorf("cannot use %s value as %s", e.typ, t)
}

// --------------------------------------------------------------------

// Column is a named, typed table column.
type Column struct {
	Name string
	Type DataType
}

// read decodes the column value at the start of p.
func (c Column) read(p []byte) Entry {
	return decodeEntry(c.Type, p)
}

// --------------------------------------------------------------------

// Row is a materialised table row. Rows are detached from storage, changes
// must be written back via Table.UpdateRow.
type Row struct {
	cols    []string
	entries []Entry
}

// NewRow builds a row from parallel column name and entry slices.
func NewRow(cols []string, entries []Entry) Row {
	return Row{cols: cols, entries: entries}
}

// Columns returns the column names in order.
func (r Row) Columns() []string { return r.cols }

// Entries returns the entries in column order.
func (r Row) Entries() []Entry { return r.entries }

// Len returns the number of entries.
func (r Row) Len() int { return len(r.entries) }

// Lookup returns the entry for a column name (case-insensitive).
func (r Row) Lookup(name string) (Entry, bool) {
	for i, c := range r.cols {
		if strings.EqualFold(c, name) {
			return r.entries[i], true
		}
	}
	return Entry{}, false
}

// Get returns the entry for a column name or a null entry if missing.
func (r Row) Get(name string) Entry {
	e, _ := r.Lookup(name)
	return e
}

func (r Row) project(names []string) Row {
	out := Row{cols: names, entries: make([]Entry, len(names))}
	for i, n := range names {
		out.entries[i] = r.Get(n)
	}
	return out
}

func (r Row) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, c := range r.cols {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c)
		sb.WriteByte(':')
		sb.WriteString(r.entries[i].String())
	}
	sb.WriteByte('}')
	return sb.String()
}
