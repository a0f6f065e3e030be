package chunkdb

import (
	"errors"
	"fmt"
)

// formatVersion is stored in the VR chunk of every file created by this package.
const formatVersion = 1

const (
	headerSize = 20
	padByte    = 0xFF
	maxOwner   = 0xFF
)

// Chunk type tags.
const (
	TypeTableHeader = "TH"
	TypeRowData     = "RD"
	TypeDynamic     = "DY"
	TypeVersion     = "VR"
	TypeRemoved     = "RM"
)

var (
	// ErrNotActive is returned when a write would extend a chunk which is not
	// physically at the end of the file past its reservation.
	ErrNotActive = errors.New("chunkdb: cannot grow inactive chunk")
	// ErrNoTable is returned when a table cannot be found.
	ErrNoTable = errors.New("chunkdb: no such table")
	// ErrTableExists is returned when a table name is already taken.
	ErrTableExists = errors.New("chunkdb: table already exists")
	// ErrOutOfRange is returned for row indices outside [0, NumRows).
	ErrOutOfRange = errors.New("chunkdb: row index out of range")
	// ErrClosed is returned when operating on a closed database.
	ErrClosed = errors.New("chunkdb: is closed")
)

var (
	errBadHeader      = errors.New("chunkdb: bad chunk header")
	errBadVersion     = errors.New("chunkdb: unsupported format version")
	errTooManyTables  = errors.New("chunkdb: too many tables")
	errBadCompression = errors.New("chunkdb: bad compression codec")
	errReadOnly       = errors.New("chunkdb: database is read-only")
)

// SchemaError reports a mismatch between a statement or a row and a table schema.
type SchemaError struct {
	Table  string
	Column string
	Msg    string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("chunkdb: %s.%s: %s", e.Table, e.Column, e.Msg)
	}
	if e.Table != "" {
		return fmt.Sprintf("chunkdb: %s: %s", e.Table, e.Msg)
	}
	return "chunkdb: " + e.Msg
}

func schemaErrorf(table, column, format string, args ...interface{}) error {
	return &SchemaError{Table: table, Column: column, Msg: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------

// Logger is the logging interface used by the engine. It is satisfied by
// *logrus.Logger and most leveled loggers.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Options define database specific options.
type Options struct {
	// Logger receives engine events.
	// Default: discard.
	Logger Logger

	// ReadOnly opens the file without write access. Statements which modify
	// the database fail.
	// Default: false.
	ReadOnly bool

	// RowReserve is the number of row slots reserved up front when a
	// row data chunk is allocated.
	// Default: 32.
	RowReserve int
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}

	if oo.Logger == nil {
		oo.Logger = nopLogger{}
	}
	if oo.RowReserve < 1 {
		oo.RowReserve = 32
	}
	return &oo
}

// --------------------------------------------------------------------

// Compression is the compression codec of a cleaned output stream.
type Compression byte

func (c Compression) isValid() bool {
	return c >= NoCompression && c < unknownCompression
}

// Supported compression codecs
const (
	NoCompression Compression = iota
	SnappyCompression
	unknownCompression
)
