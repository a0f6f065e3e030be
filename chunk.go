package chunkdb

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// ChunkID is a stable handle into the chunk arena of a DB. Handles are never
// reused, relocated chunks are assigned a new handle.
type ChunkID int

const noChunk ChunkID = -1

// ChunkInfo describes a single chunk header.
type ChunkInfo struct {
	Offset  int64  // header offset within the file
	Type    string // two-character type tag
	Owner   uint8  // owning table ID, 0 for the version chunk
	Index   uint32 // position among the owner's chunks of the same type
	Size    uint32 // used bytes
	Padding uint32 // reserved, unused bytes after Size
}

// DataOffset returns the file offset of the first data byte.
func (c ChunkInfo) DataOffset() int64 { return c.Offset + headerSize }

// Reserved returns the number of data bytes physically reserved for the chunk.
func (c ChunkInfo) Reserved() int64 { return int64(c.Size) + int64(c.Padding) }

// End returns the file offset directly after the chunk.
func (c ChunkInfo) End() int64 { return c.DataOffset() + c.Reserved() }

func (c *ChunkInfo) encode(p []byte) {
	_ = p[headerSize-1]

	copy(p[0:2], c.Type)
	p[2] = c.Owner
	p[3] = byte(c.Index)
	binary.LittleEndian.PutUint32(p[4:], c.Size)
	binary.LittleEndian.PutUint32(p[8:], c.Padding)
	binary.LittleEndian.PutUint32(p[12:], c.Index)
	binary.LittleEndian.PutUint32(p[16:], 0)
}

func decodeHeader(p []byte, offset int64) (ChunkInfo, error) {
	info := ChunkInfo{
		Offset:  offset,
		Type:    string(p[0:2]),
		Owner:   p[2],
		Index:   binary.LittleEndian.Uint32(p[12:]),
		Size:    binary.LittleEndian.Uint32(p[4:]),
		Padding: binary.LittleEndian.Uint32(p[8:]),
	}
	if info.Index == 0 {
		info.Index = uint32(p[3]) // files which only carry the short index
	}

	switch info.Type {
	case TypeTableHeader, TypeRowData, TypeDynamic, TypeVersion, TypeRemoved:
	default:
		return info, errors.Wrapf(errBadHeader, "unknown type %q at offset %d", info.Type, offset)
	}
	return info, nil
}

// ScanChunks iterates over the raw chunk stream of r, which must be size bytes
// long, and calls fn for every chunk header, tombstones included.
func ScanChunks(r io.ReaderAt, size int64, fn func(ChunkInfo) error) error {
	var tmp [headerSize]byte

	for pos := int64(0); pos < size; {
		if size-pos < headerSize {
			return errors.Wrapf(errBadHeader, "truncated header at offset %d", pos)
		}
		if _, err := r.ReadAt(tmp[:], pos); err != nil {
			return errors.Wrapf(err, "chunkdb: read header at offset %d", pos)
		}

		info, err := decodeHeader(tmp[:], pos)
		if err != nil {
			return err
		}
		if info.End() > size {
			return errors.Wrapf(errBadHeader, "chunk at offset %d exceeds file size", pos)
		}
		if err := fn(info); err != nil {
			return err
		}
		pos = info.End()
	}
	return nil
}

// --------------------------------------------------------------------

// chunk is a chunk header loaded into the arena, with a back-reference to the
// database for I/O.
type chunk struct {
	ChunkInfo

	db *DB
	id ChunkID
}

func (c *chunk) isActive() bool { return c.db.active == c.id }

// persist rewrites the header.
func (c *chunk) persist() error {
	var tmp [headerSize]byte
	c.encode(tmp[:])
	return c.db.writeAt(tmp[:], c.Offset)
}

// checkSize validates that the data region can accommodate end bytes. Only
// the active chunk may extend beyond its reservation.
func (c *chunk) checkSize(end int64) error {
	if end > math.MaxUint32 {
		return errors.Wrapf(ErrNotActive, "chunk %s/%d/%d would exceed 4GiB", c.Type, c.Owner, c.Index)
	}
	if end > c.Reserved() && !c.isActive() {
		return errors.Wrapf(ErrNotActive, "chunk %s/%d/%d at offset %d needs %d bytes, has %d",
			c.Type, c.Owner, c.Index, c.Offset, end, c.Reserved())
	}
	return nil
}

// writeAt writes p at data offset off, growing the chunk where necessary.
func (c *chunk) writeAt(p []byte, off int64) error {
	end := off + int64(len(p))
	if err := c.checkSize(end); err != nil {
		return err
	}
	if err := c.db.writeAt(p, c.DataOffset()+off); err != nil {
		return err
	}
	if end <= int64(c.Size) {
		return nil
	}

	if end <= c.Reserved() {
		c.Padding -= uint32(end) - c.Size
	} else {
		c.Padding = 0
	}
	c.Size = uint32(end)
	return c.persist()
}

// readAt reads len(p) bytes at data offset off. Reads must stay within Size.
func (c *chunk) readAt(p []byte, off int64) error {
	if off < 0 || off+int64(len(p)) > int64(c.Size) {
		return errors.Errorf("chunkdb: read [%d,%d) beyond chunk %s/%d/%d size %d",
			off, off+int64(len(p)), c.Type, c.Owner, c.Index, c.Size)
	}
	return c.db.readAt(p, c.DataOffset()+off)
}

func (c *chunk) readByte(off int64) (byte, error) {
	var tmp [1]byte
	err := c.readAt(tmp[:], off)
	return tmp[0], err
}

func (c *chunk) readInt(off int64) (int32, error) {
	var tmp [4]byte
	if err := c.readAt(tmp[:], off); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(tmp[:])), nil
}

func (c *chunk) readLong(off int64) (int64, error) {
	var tmp [8]byte
	if err := c.readAt(tmp[:], off); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(tmp[:])), nil
}

// readString reads a string with a single-byte length prefix.
func (c *chunk) readString(off int64) (string, error) {
	n, err := c.readByte(off)
	if err != nil {
		return "", err
	}
	p := make([]byte, int(n))
	if err := c.readAt(p, off+1); err != nil {
		return "", err
	}
	return string(p), nil
}

func (c *chunk) writeByte(off int64, v byte) error {
	return c.writeAt([]byte{v}, off)
}

func (c *chunk) writeInt(off int64, v int32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return c.writeAt(tmp[:], off)
}

func (c *chunk) writeLong(off int64, v int64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	return c.writeAt(tmp[:], off)
}

// writeString writes s with a single-byte length prefix.
func (c *chunk) writeString(off int64, s string) error {
	if len(s) > math.MaxUint8 {
		return errors.Errorf("chunkdb: string %q exceeds %d bytes", s, math.MaxUint8)
	}
	p := make([]byte, 0, 1+len(s))
	p = append(p, byte(len(s)))
	p = append(p, s...)
	return c.writeAt(p, off)
}

// reserve appends n bytes of padding to the active chunk.
func (c *chunk) reserve(n int) error {
	if n <= 0 {
		return nil
	}
	if !c.isActive() {
		return errors.Wrapf(ErrNotActive, "cannot reserve on chunk %s/%d/%d", c.Type, c.Owner, c.Index)
	}

	if err := c.db.writeAt(padding(n), c.End()); err != nil {
		return err
	}
	c.Padding += uint32(n)
	return c.persist()
}

// shrinkTo turns the tail [n, Size) into padding.
func (c *chunk) shrinkTo(n uint32) error {
	if n >= c.Size {
		return nil
	}

	tail := c.Size - n
	if err := c.db.writeAt(padding(int(tail)), c.DataOffset()+int64(n)); err != nil {
		return err
	}
	c.Size = n
	c.Padding += tail
	return c.persist()
}

// fold makes all padding usable by adding it to Size.
func (c *chunk) fold() error {
	if c.Padding == 0 {
		return nil
	}
	c.Size += c.Padding
	c.Padding = 0
	return c.persist()
}

// retag changes the type tag and rewrites the header.
func (c *chunk) retag(typ string) error {
	c.Type = typ
	return c.persist()
}

// drop tombstones the chunk. Its space stays reserved until the file is cleaned.
func (c *chunk) drop() error {
	if err := c.retag(TypeRemoved); err != nil {
		return err
	}
	c.db.o.Logger.Debugf("chunkdb: tombstoned chunk at offset %d", c.Offset)
	return nil
}

func padding(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = padByte
	}
	return p
}
