package chunkdb

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// CleanOptions define cleaner specific options.
type CleanOptions struct {
	// The compression codec of the output stream. Snappy compressed output
	// is an archive and must be expanded with Restore before it can be opened.
	// Default: NoCompression.
	Compression Compression

	// Logger receives a summary.
	// Default: discard.
	Logger Logger
}

func (o *CleanOptions) norm() *CleanOptions {
	var oo CleanOptions
	if o != nil {
		oo = *o
	}

	if oo.Logger == nil {
		oo.Logger = nopLogger{}
	}
	return &oo
}

// CleanStats summarise a clean run.
type CleanStats struct {
	Kept      int   // chunks written
	Dropped   int   // tombstones and superseded cells skipped
	Reclaimed int64 // bytes saved, before compression
}

type chunkGroup struct {
	header  *ChunkInfo
	rows    []ChunkInfo
	dynamic map[uint32]ChunkInfo
}

// Clean reads the chunk stream of src, which must be size bytes long, and
// writes a compacted copy to dst: tombstones are removed, padding is
// dropped and chunks are grouped by owner, with row data and dynamic cells
// ordered by index.
func Clean(dst io.Writer, src io.ReaderAt, size int64, o *CleanOptions) (*CleanStats, error) {
	o = o.norm()
	if !o.Compression.isValid() {
		return nil, errBadCompression
	}
	stats := new(CleanStats)

	var versions []ChunkInfo
	groups := make(map[uint8]*chunkGroup)
	group := func(owner uint8) *chunkGroup {
		g, ok := groups[owner]
		if !ok {
			g = &chunkGroup{dynamic: make(map[uint32]ChunkInfo)}
			groups[owner] = g
		}
		return g
	}

	err := ScanChunks(src, size, func(info ChunkInfo) error {
		switch info.Type {
		case TypeVersion:
			versions = append(versions, info)
		case TypeTableHeader:
			g := group(info.Owner)
			if g.header != nil {
				return errors.Errorf("chunkdb: duplicate table header for owner %d", info.Owner)
			}
			g.header = &info
		case TypeRowData:
			g := group(info.Owner)
			g.rows = append(g.rows, info)
		case TypeDynamic:
			g := group(info.Owner)
			if _, ok := g.dynamic[info.Index]; ok {
				stats.Dropped++ // superseded by a later copy
			}
			g.dynamic[info.Index] = info
		default:
			stats.Dropped++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var w io.Writer = dst
	if o.Compression == SnappyCompression {
		sw := snappy.NewBufferedWriter(dst)
		defer sw.Close()
		w = sw
	}
	cw := &countingWriter{w: w}

	for _, info := range versions {
		if err := copyChunk(cw, src, info); err != nil {
			return nil, err
		}
		stats.Kept++
	}

	owners := make([]int, 0, len(groups))
	for owner := range groups {
		owners = append(owners, int(owner))
	}
	sort.Ints(owners)

	for _, owner := range owners {
		g := groups[uint8(owner)]
		if g.header == nil {
			o.Logger.Warnf("chunkdb: dropping %d orphaned chunks of owner %d", len(g.rows)+len(g.dynamic), owner)
			stats.Dropped += len(g.rows) + len(g.dynamic)
			continue
		}

		cells := make([]ChunkInfo, 0, len(g.dynamic))
		for _, info := range g.dynamic {
			cells = append(cells, info)
		}
		sort.Slice(g.rows, func(i, j int) bool { return g.rows[i].Index < g.rows[j].Index })
		sort.Slice(cells, func(i, j int) bool { return cells[i].Index < cells[j].Index })

		chunks := append([]ChunkInfo{*g.header}, g.rows...)
		chunks = append(chunks, cells...)
		for _, info := range chunks {
			if err := copyChunk(cw, src, info); err != nil {
				return nil, err
			}
			stats.Kept++
		}
	}

	if sw, ok := w.(*snappy.Writer); ok {
		if err := sw.Close(); err != nil {
			return nil, err
		}
	}

	stats.Reclaimed = size - cw.n
	o.Logger.Infof("chunkdb: cleaned %d bytes to %d, kept %d chunks, dropped %d",
		size, cw.n, stats.Kept, stats.Dropped)
	return stats, nil
}

// CleanFile cleans the database at srcPath into a new file at dstPath.
func CleanFile(dstPath, srcPath string, o *CleanOptions) (*CleanStats, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, errors.Wrap(err, "chunkdb: open source")
	}
	defer src.Close()

	st, err := src.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "chunkdb: stat source")
	}

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "chunkdb: create destination")
	}
	defer dst.Close()

	stats, err := Clean(dst, src, st.Size(), o)
	if err != nil {
		return nil, err
	}
	if err := dst.Close(); err != nil {
		return nil, errors.Wrap(err, "chunkdb: close destination")
	}
	return stats, nil
}

// Restore expands a snappy compressed archive written by Clean.
func Restore(dst io.Writer, src io.Reader) error {
	if _, err := io.Copy(dst, snappy.NewReader(src)); err != nil {
		return errors.Wrap(err, "chunkdb: restore")
	}
	return nil
}

// copyChunk writes the chunk with its used bytes only.
func copyChunk(w io.Writer, src io.ReaderAt, info ChunkInfo) error {
	info.Padding = 0

	buf := fetchBuffer(headerSize + int(info.Size))
	defer releaseBuffer(buf)

	info.encode(buf[:headerSize])
	if info.Size != 0 {
		if _, err := src.ReadAt(buf[headerSize:], info.DataOffset()); err != nil {
			return errors.Wrapf(err, "chunkdb: read chunk at offset %d", info.Offset)
		}
	}
	_, err := w.Write(buf)
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}

// --------------------------------------------------------------------

var bufPool sync.Pool

func fetchBuffer(sz int) []byte {
	if v := bufPool.Get(); v != nil {
		if p := v.([]byte); sz <= cap(p) {
			return p[:sz]
		}
	}
	return make([]byte, sz)
}

func releaseBuffer(p []byte) {
	if cap(p) != 0 {
		bufPool.Put(p)
	}
}
