package chunkdb

// DynamicData is a variable length value stored in its own DY chunk. It is
// addressed by (owner, index), so the backing chunk may be relocated without
// touching the rows which reference it.
type DynamicData struct {
	db *DB
	id ChunkID
}

func newDynamicData(db *DB, owner uint8, index uint32) (*DynamicData, error) {
	c, err := db.newChunk(TypeDynamic, owner, index)
	if err != nil {
		return nil, err
	}
	return &DynamicData{db: db, id: c.id}, nil
}

func (d *DynamicData) chunk() *chunk { return d.db.chunk(d.id) }

// Len returns the number of used bytes.
func (d *DynamicData) Len() int { return int(d.chunk().Size) }

// Bytes returns the stored bytes.
func (d *DynamicData) Bytes() ([]byte, error) {
	c := d.chunk()
	p := make([]byte, int(c.Size))
	if err := c.readAt(p, 0); err != nil {
		return nil, err
	}
	return p, nil
}

// Set replaces the stored bytes. Values which do not fit into the current
// reservation of a chunk that is not at the end of the file are written to a
// fresh chunk. The fresh chunk is tagged RM until its bytes are written, so a
// DY copy later in the file is always complete. The old chunk is tombstoned
// last.
func (d *DynamicData) Set(p []byte) error {
	c := d.chunk()
	if err := c.fold(); err != nil {
		return err
	}

	if len(p) > int(c.Size) && !c.isActive() {
		nc, err := d.db.newChunk(TypeRemoved, c.Owner, c.Index)
		if err != nil {
			return err
		}
		if err := nc.writeAt(p, 0); err != nil {
			return err
		}
		if err := nc.retag(TypeDynamic); err != nil {
			return err
		}
		d.id = nc.id

		d.db.o.Logger.Debugf("chunkdb: relocated dynamic cell %d/%d from offset %d to %d",
			c.Owner, c.Index, c.Offset, nc.Offset)
		if err := c.drop(); err != nil {
			return err
		}
		return nil
	}

	if err := c.writeAt(p, 0); err != nil {
		return err
	}
	return c.shrinkTo(uint32(len(p)))
}

// drop tombstones the backing chunk.
func (d *DynamicData) drop() error {
	return d.chunk().drop()
}
