package record

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/nrgarcia/machdb/dberr"
)

// Encode serializes rec against schema: a 1-byte tombstone flag
// followed by one field per column in schema order. An INT field is
// always 4 bytes big-endian; SQL NULL and integer 0 both encode as the
// same 4 zero bytes (documented, not fixed; see the project's
// NULL-for-zero design note). A VARCHAR field is a 4-byte big-endian
// length followed by that many UTF-8 bytes; NULL encodes as length 0.
func Encode(rec Record, schema Schema) ([]byte, error) {
	buf := make([]byte, 0, EncodedLen(rec, schema))
	if rec.Deleted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	for _, col := range schema.Columns {
		v := rec.Values[col.Name]
		switch col.Type {
		case IntType:
			var n int32
			if v != nil {
				iv, ok := v.(int32)
				if !ok {
					return nil, dberr.New(dberr.StorageError, "column %q: value %v is not an int32", col.Name, v)
				}
				n = iv
			}
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(n))
			buf = append(buf, b[:]...)
		case VarcharType:
			var s string
			if v != nil {
				sv, ok := v.(string)
				if !ok {
					return nil, dberr.New(dberr.StorageError, "column %q: value %v is not a string", col.Name, v)
				}
				s = sv
			}
			if !utf8.ValidString(s) {
				return nil, dberr.New(dberr.StorageError, "column %q: value is not valid UTF-8", col.Name)
			}
			n := len(s)
			if uint64(n) > uint64(^uint32(0)) {
				return nil, dberr.New(dberr.StorageError, "column %q: value too large to encode (%d bytes)", col.Name, n)
			}
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(n))
			buf = append(buf, b[:]...)
			buf = append(buf, s...)
		}
	}
	return buf, nil
}

// Decode parses one record from buf starting at offset, returning the
// record and the number of bytes consumed.
func Decode(buf []byte, offset int, schema Schema) (Record, int, error) {
	start := offset
	if offset >= len(buf) {
		return Record{}, 0, dberr.New(dberr.StorageError, "decode: offset %d beyond buffer of length %d", offset, len(buf))
	}
	deleted := buf[offset] != 0
	offset++

	values := make(map[string]any, len(schema.Columns))
	for _, col := range schema.Columns {
		switch col.Type {
		case IntType:
			if offset+4 > len(buf) {
				return Record{}, 0, dberr.New(dberr.StorageError, "decode: truncated INT field for column %q", col.Name)
			}
			n := int32(binary.BigEndian.Uint32(buf[offset : offset+4]))
			offset += 4
			if n == 0 {
				values[col.Name] = nil
			} else {
				values[col.Name] = n
			}
		case VarcharType:
			if offset+4 > len(buf) {
				return Record{}, 0, dberr.New(dberr.StorageError, "decode: truncated VARCHAR length for column %q", col.Name)
			}
			l := binary.BigEndian.Uint32(buf[offset : offset+4])
			offset += 4
			if l == 0 {
				values[col.Name] = nil
				continue
			}
			end := offset + int(l)
			if end > len(buf) {
				return Record{}, 0, dberr.New(dberr.StorageError, "decode: truncated VARCHAR body for column %q", col.Name)
			}
			values[col.Name] = string(buf[offset:end])
			offset = end
		}
	}
	return Record{Values: values, Deleted: deleted}, offset - start, nil
}

// EncodedLen reports the exact byte length Encode(rec, schema) will
// produce: 1 tombstone byte plus 4 bytes per INT column and
// 4+len(value) bytes per VARCHAR column.
func EncodedLen(rec Record, schema Schema) int {
	n := 1
	for _, col := range schema.Columns {
		switch col.Type {
		case IntType:
			n += 4
		case VarcharType:
			if s, ok := rec.Values[col.Name].(string); ok {
				n += 4 + len(s)
			} else {
				n += 4
			}
		}
	}
	return n
}
