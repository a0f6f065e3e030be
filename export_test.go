package chunkdb

import "errors"

// ActiveChunk returns the handle of the active chunk.
func (db *DB) ActiveChunk() ChunkID { return db.active }

// NewChunk allocates a chunk at the end of the file.
func (db *DB) NewChunk(typ string, owner uint8, index uint32) (ChunkID, error) {
	c, err := db.newChunk(typ, owner, index)
	if err != nil {
		return noChunk, err
	}
	return c.id, nil
}

func (db *DB) ChunkInfo(id ChunkID) ChunkInfo { return db.chunk(id).ChunkInfo }

func (db *DB) WriteChunk(id ChunkID, p []byte, off int64) error {
	return db.chunk(id).writeAt(p, off)
}

func (db *DB) ReadChunk(id ChunkID, p []byte, off int64) error {
	return db.chunk(id).readAt(p, off)
}

func (db *DB) ShrinkChunk(id ChunkID, n uint32) error { return db.chunk(id).shrinkTo(n) }

func (db *DB) DropChunk(id ChunkID) error { return db.chunk(id).drop() }

func NewDynamicData(db *DB, owner uint8, index uint32) (*DynamicData, error) {
	return newDynamicData(db, owner, index)
}

func (d *DynamicData) ChunkID() ChunkID { return d.id }

func (t *Table) Cell(index uint32) *DynamicData { return t.cells[index] }

// FailWritesAfter lets the next n writes to the underlying file through and
// fails all later ones.
func (db *DB) FailWritesAfter(n int) {
	db.file = &faultyStorage{storage: db.file, left: n}
}

var errInjected = errors.New("chunkdb: injected write failure")

type faultyStorage struct {
	storage
	left int
}

func (s *faultyStorage) WriteAt(p []byte, off int64) (int, error) {
	if s.left <= 0 {
		return 0, errInjected
	}
	s.left--
	return s.storage.WriteAt(p, off)
}
