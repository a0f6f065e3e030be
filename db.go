package chunkdb

import (
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// storage is the file a DB operates on, satisfied by *os.File.
type storage interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Sync() error
}

// DB is an open database file. A DB exclusively owns its file and is not safe
// for concurrent use.
type DB struct {
	file storage
	o    *Options
	size int64 // current file size

	created time.Time

	chunks []*chunk // arena, indexed by ChunkID
	active ChunkID  // the chunk physically at the end of the file

	tables []*Table
	byName map[string]*Table
}

// Open opens or creates a database file.
func Open(path string, o *Options) (*DB, error) {
	o = o.norm()

	flag := os.O_RDWR | os.O_CREATE
	if o.ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "chunkdb: open")
	}

	db, err := openFile(f, o)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return db, nil
}

func openFile(f *os.File, o *Options) (*DB, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "chunkdb: stat")
	}

	db := &DB{
		file:   f,
		o:      o,
		size:   st.Size(),
		active: noChunk,
		byName: make(map[string]*Table),
	}

	if db.size == 0 {
		if o.ReadOnly {
			return db, nil
		}
		if err := db.writeVersion(); err != nil {
			return nil, err
		}
		o.Logger.Infof("chunkdb: initialised %s", f.Name())
		return db, nil
	}

	if err := db.load(); err != nil {
		return nil, err
	}
	o.Logger.Infof("chunkdb: loaded %s, %d chunks, %d tables", f.Name(), len(db.chunks), len(db.tables))
	return db, nil
}

// writeVersion writes the VR chunk: the format version followed by the
// creation time in Unix nanoseconds.
func (db *DB) writeVersion() error {
	c, err := db.newChunk(TypeVersion, 0, 0)
	if err != nil {
		return err
	}
	if err := c.writeInt(0, formatVersion); err != nil {
		return err
	}
	db.created = time.Now()
	return c.writeLong(4, db.created.UnixNano())
}

func (db *DB) load() error {
	var headers []*chunk
	rows := make(map[uint8][]*chunk)
	cells := make(map[uint8]map[uint32]*chunk)

	err := ScanChunks(db.file, db.size, func(info ChunkInfo) error {
		c := &chunk{ChunkInfo: info, db: db, id: ChunkID(len(db.chunks))}
		db.chunks = append(db.chunks, c)

		switch info.Type {
		case TypeVersion:
			v, err := c.readInt(0)
			if err != nil {
				return err
			}
			if v != formatVersion {
				return errors.Wrapf(errBadVersion, "version %d", v)
			}
			if info.Size >= 12 {
				ns, err := c.readLong(4)
				if err != nil {
					return err
				}
				db.created = time.Unix(0, ns)
			}
		case TypeTableHeader:
			headers = append(headers, c)
		case TypeRowData:
			rows[info.Owner] = append(rows[info.Owner], c)
		case TypeDynamic:
			m := cells[info.Owner]
			if m == nil {
				m = make(map[uint32]*chunk)
				cells[info.Owner] = m
			}
			if prev, ok := m[info.Index]; ok {
				// interrupted relocation, the later copy is complete
				db.o.Logger.Warnf("chunkdb: duplicate dynamic cell %d/%d at offsets %d and %d",
					info.Owner, info.Index, prev.Offset, info.Offset)
			}
			m[info.Index] = c
		}
		return nil
	})
	if err != nil {
		return err
	}
	if n := len(db.chunks); n != 0 {
		db.active = ChunkID(n - 1)
	}

	for _, h := range headers {
		t, err := loadTable(db, h)
		if err != nil {
			return err
		}
		if _, ok := db.byName[strings.ToLower(t.name)]; ok {
			return errors.Wrapf(ErrTableExists, "duplicate table %q on load", t.name)
		}

		rd := rows[t.id]
		if len(rd) == 0 {
			if t.numRows != 0 {
				return errors.Errorf("chunkdb: table %q has no row data", t.name)
			}
			// interrupted create, row data is allocated on first insert
			db.o.Logger.Warnf("chunkdb: table %q has no row data chunk", t.name)
		}
		sort.Slice(rd, func(i, j int) bool { return rd[i].Index < rd[j].Index })
		for _, c := range rd {
			t.rowData = append(t.rowData, c.id)
		}
		for idx, c := range cells[t.id] {
			t.cells[idx] = &DynamicData{db: db, id: c.id}
			if idx >= t.nextCell {
				t.nextCell = idx + 1
			}
		}
		if err := t.verify(); err != nil {
			return err
		}

		db.register(t)
	}
	return nil
}

// Close closes the underlying file.
func (db *DB) Close() error {
	if db.file == nil {
		return ErrClosed
	}
	err := db.file.Close()
	db.file = nil
	return err
}

// Sync commits the file contents to stable storage.
func (db *DB) Sync() error {
	if db.file == nil {
		return ErrClosed
	}
	return db.file.Sync()
}

// Chunks returns the headers of all chunks in file order, tombstones
// included.
func (db *DB) Chunks() []ChunkInfo {
	infos := make([]ChunkInfo, len(db.chunks))
	for i, c := range db.chunks {
		infos[i] = c.ChunkInfo
	}
	return infos
}

// Created returns the creation time recorded in the version chunk, or the
// zero time if the file carries none.
func (db *DB) Created() time.Time { return db.created }

// Size returns the current file size.
func (db *DB) Size() int64 { return db.size }

// Table returns a table by name (case-insensitive).
func (db *DB) Table(name string) (*Table, bool) {
	t, ok := db.byName[strings.ToLower(name)]
	return t, ok
}

// Tables returns all tables in creation order.
func (db *DB) Tables() []*Table {
	return append([]*Table(nil), db.tables...)
}

// CreateTable creates a new table.
func (db *DB) CreateTable(name string, cols []Column) (*Table, error) {
	if db.file == nil {
		return nil, ErrClosed
	}
	if _, ok := db.Table(name); ok {
		return nil, errors.Wrapf(ErrTableExists, "%q", name)
	}
	if err := validateSchema(name, cols); err != nil {
		return nil, err
	}

	id, err := db.nextOwner()
	if err != nil {
		return nil, err
	}

	t := newTable(db, id, name, cols)
	if err := t.create(); err != nil {
		if t.header != noChunk {
			// the header is committed, the table reloads without rows
			db.register(t)
		}
		return nil, err
	}

	db.register(t)
	db.o.Logger.Infof("chunkdb: created table %q (owner %d, row size %d)", name, id, t.rowSize)
	return t, nil
}

func (db *DB) register(t *Table) {
	db.tables = append(db.tables, t)
	db.byName[strings.ToLower(t.name)] = t
}

func validateSchema(name string, cols []Column) error {
	if name == "" || len(name) > math.MaxUint8 {
		return schemaErrorf(name, "", "invalid table name")
	}
	if len(cols) == 0 || len(cols) > math.MaxUint8 {
		return schemaErrorf(name, "", "invalid number of columns %d", len(cols))
	}

	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c.Name == "" || len(c.Name) > math.MaxUint8 {
			return schemaErrorf(name, c.Name, "invalid column name")
		}
		key := strings.ToLower(c.Name)
		if _, ok := seen[key]; ok {
			return schemaErrorf(name, c.Name, "duplicate column")
		}
		seen[key] = struct{}{}

		if err := c.Type.validate(); err != nil {
			return schemaErrorf(name, c.Name, "%v", err)
		}
	}
	return nil
}

func (db *DB) nextOwner() (uint8, error) {
	var max uint8
	for _, t := range db.tables {
		if t.id > max {
			max = t.id
		}
	}
	if max == maxOwner {
		return 0, errTooManyTables
	}
	return max + 1, nil
}

// --------------------------------------------------------------------

func (db *DB) chunk(id ChunkID) *chunk { return db.chunks[id] }

// newChunk appends an empty chunk at the end of the file and makes it active.
func (db *DB) newChunk(typ string, owner uint8, index uint32) (*chunk, error) {
	c := &chunk{
		ChunkInfo: ChunkInfo{
			Offset: db.size,
			Type:   typ,
			Owner:  owner,
			Index:  index,
		},
		db: db,
		id: ChunkID(len(db.chunks)),
	}
	if err := c.persist(); err != nil {
		return nil, err
	}

	db.chunks = append(db.chunks, c)
	db.active = c.id
	return c, nil
}

func (db *DB) readAt(p []byte, off int64) error {
	if db.file == nil {
		return ErrClosed
	}
	if _, err := db.file.ReadAt(p, off); err != nil {
		return errors.Wrapf(err, "chunkdb: read %d bytes at offset %d", len(p), off)
	}
	return nil
}

func (db *DB) writeAt(p []byte, off int64) error {
	if db.file == nil {
		return ErrClosed
	}
	if db.o.ReadOnly {
		return errReadOnly
	}
	if _, err := db.file.WriteAt(p, off); err != nil {
		return errors.Wrapf(err, "chunkdb: write %d bytes at offset %d", len(p), off)
	}
	if end := off + int64(len(p)); end > db.size {
		db.size = end
	}
	return nil
}
