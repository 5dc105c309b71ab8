// Package page implements machdb's fixed-size page format and the
// single-file page manager that allocates, reads, and writes pages.
package page

import (
	"encoding/binary"

	"github.com/nrgarcia/machdb/dberr"
)

const (
	// Size is the total on-disk size of one page, header included.
	Size = 4096
	// HeaderSize is the size of the fixed page header.
	HeaderSize = 80
	// PayloadSize is the number of bytes available for packed records.
	PayloadSize = Size - HeaderSize

	typeFieldLen  = 32
	tableFieldLen = 32
)

// Type identifies the role a page plays in the file.
type Type string

const (
	Meta Type = "meta"
	Data Type = "data"
	Free Type = "free"
)

// NoNextPage is the next_page header value meaning "no successor".
const NoNextPage int32 = -1

// Header is the 80-byte header present at the start of every page.
type Header struct {
	PageID      uint32
	PageType    Type
	TableName   string
	RecordCount uint32
	FreeSpace   uint32
	NextPage    int32
}

// Page is one fixed-size unit of the heap file.
type Page struct {
	Header  Header
	Payload [PayloadSize]byte
}

// NewDataPage returns a fresh data page owned by table, with the full
// payload available and no records yet.
func NewDataPage(id uint32, table string) *Page {
	return &Page{Header: Header{
		PageID:      id,
		PageType:    Data,
		TableName:   table,
		RecordCount: 0,
		FreeSpace:   PayloadSize,
		NextPage:    NoNextPage,
	}}
}

// NewMetaPage returns the fixed page-0 meta page.
func NewMetaPage() *Page {
	return &Page{Header: Header{
		PageID:    0,
		PageType:  Meta,
		FreeSpace: PayloadSize,
		NextPage:  NoNextPage,
	}}
}

// Encode serializes the page into exactly Size bytes.
func (p *Page) Encode() []byte {
	buf := make([]byte, Size)
	binary.BigEndian.PutUint32(buf[0:4], p.Header.PageID)
	putFixedASCII(buf[4:4+typeFieldLen], string(p.Header.PageType))
	putFixedASCII(buf[36:36+tableFieldLen], p.Header.TableName)
	binary.BigEndian.PutUint32(buf[68:72], p.Header.RecordCount)
	binary.BigEndian.PutUint32(buf[72:76], p.Header.FreeSpace)
	binary.BigEndian.PutUint32(buf[76:80], uint32(p.Header.NextPage))
	copy(buf[HeaderSize:], p.Payload[:])
	return buf
}

// Decode parses a Size-byte on-disk image into a Page.
func Decode(buf []byte) (*Page, error) {
	if len(buf) != Size {
		return nil, dberr.New(dberr.StorageError, "page buffer is %d bytes, want %d", len(buf), Size)
	}
	p := &Page{}
	p.Header.PageID = binary.BigEndian.Uint32(buf[0:4])
	p.Header.PageType = Type(readFixedASCII(buf[4 : 4+typeFieldLen]))
	p.Header.TableName = readFixedASCII(buf[36 : 36+tableFieldLen])
	p.Header.RecordCount = binary.BigEndian.Uint32(buf[68:72])
	p.Header.FreeSpace = binary.BigEndian.Uint32(buf[72:76])
	p.Header.NextPage = int32(binary.BigEndian.Uint32(buf[76:80]))
	copy(p.Payload[:], buf[HeaderSize:])
	return p, nil
}

func putFixedASCII(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

func readFixedASCII(src []byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}
