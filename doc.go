/*
Package chunkdb contains a small embedded database which keeps typed tables
in a single flat file and accepts a minimal SQL dialect.

Data Structure Documentation

File

A file is a plain sequence of chunks until EOF. Each chunk is a fixed size
header, followed by its used bytes and its padding.

    File layout:
    +---------+---------+---------+---------+
    | chunk 1 | chunk 2 |   ...   | chunk n |
    +---------+---------+---------+---------+

    Chunk:
    +---------------+------------------+---------------------+
    | header (20 B) | data (size B)    | padding (padding B) |
    +---------------+------------------+---------------------+

    Chunk header:
    +----------+-----------+-----------------+----------+-------------+-------------+------------+
    | type (2) | owner (1) | index, low (1)  | size (4) | padding (4) | index (4)   | zero (4)   |
    +----------+-----------+-----------------+----------+-------------+-------------+------------+

All integers are little-endian. Chunk types are TH (table header), RD (row
data), DY (dynamic cell), VR (format version and creation time) and RM
(tombstone). Bytes 12-15 carry the full chunk index, byte 3 mirrors its low
byte.

Growth

Only the chunk at the end of the file, the active chunk, may grow beyond
size+padding. Other chunks are rewritten in place or, for dynamic cells,
copied to a fresh chunk at the end of the file, after which the old copy is
tombstoned. Relocated cells and new table headers are written under the RM
tag and retagged once complete, so when a file holds two copies of a cell the
later one wins. Tombstones keep their space until the file is cleaned with
Clean.

Tables

A table owns one header chunk, one or more row data chunks and one dynamic
chunk per non-null Text value. Rows are fixed width: each value is a null
flag followed by its payload, Text values store a 4-byte cell index which
resolves to a DY chunk of the same owner.

SQL

The dialect is described in package parser. Statements are executed with
full table scans:

    db.Exec(`CREATE TABLE IF NOT EXISTS log (id Integer, msg Text)`)
    db.Exec(`INSERT INTO log (id, msg) VALUES (1, 'hello')`)
    db.Exec(`SELECT msg FROM log WHERE id > 0`)
*/
package chunkdb
