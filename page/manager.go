package page

import (
	"os"

	"github.com/nrgarcia/machdb/dberr"
)

// Manager owns the single heap file and hands out page ids. Freed page
// ids are tracked on a free list but never reused by Allocate, matching
// the engine's current allocator design (see the project's open design
// notes on free-page reuse).
type Manager struct {
	file     *os.File
	nextID   uint32
	freeList []uint32
}

// Open opens or creates the heap file at path, ensuring page 0 exists
// as the meta page.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, dberr.New(dberr.StorageError, "open page file %q: %v", path, err)
	}
	m := &Manager{file: f, nextID: 1}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberr.New(dberr.StorageError, "stat page file %q: %v", path, err)
	}
	if info.Size() == 0 {
		if err := m.writeAt(0, NewMetaPage()); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		m.nextID = uint32(info.Size() / Size)
		if m.nextID == 0 {
			m.nextID = 1
		}
	}
	return m, nil
}

// Close flushes the OS file and releases the handle.
func (m *Manager) Close() error {
	if err := m.file.Sync(); err != nil {
		return dberr.New(dberr.StorageError, "sync page file: %v", err)
	}
	return m.file.Close()
}

// Allocate appends a new page at the next monotonic id, writes it to
// disk immediately, and returns its id.
func (m *Manager) Allocate(pageType Type, tableName string) (uint32, error) {
	id := m.nextID
	m.nextID++
	p := &Page{Header: Header{
		PageID:    id,
		PageType:  pageType,
		TableName: tableName,
		FreeSpace: PayloadSize,
		NextPage:  NoNextPage,
	}}
	if err := m.writeAt(id, p); err != nil {
		return 0, err
	}
	return id, nil
}

// Free marks a page as free and records its id on the free list. The
// id is never handed back out by Allocate in this design.
func (m *Manager) Free(id uint32) error {
	p, err := m.Read(id)
	if err != nil {
		return err
	}
	p.Header.PageType = Free
	p.Header.RecordCount = 0
	p.Header.TableName = ""
	if err := m.writeAt(id, p); err != nil {
		return err
	}
	m.freeList = append(m.freeList, id)
	return nil
}

// FreeList returns a snapshot of freed page ids, oldest first.
func (m *Manager) FreeList() []uint32 {
	out := make([]uint32, len(m.freeList))
	copy(out, m.freeList)
	return out
}

// Read reads and decodes the page at id.
func (m *Manager) Read(id uint32) (*Page, error) {
	buf := make([]byte, Size)
	if _, err := m.file.ReadAt(buf, int64(id)*Size); err != nil {
		return nil, dberr.New(dberr.StorageError, "read page %d: %v", id, err)
	}
	return Decode(buf)
}

// Write encodes and writes p at its own header's page id.
func (m *Manager) Write(p *Page) error {
	return m.writeAt(p.Header.PageID, p)
}

func (m *Manager) writeAt(id uint32, p *Page) error {
	buf := p.Encode()
	if _, err := m.file.WriteAt(buf, int64(id)*Size); err != nil {
		return dberr.New(dberr.StorageError, "write page %d: %v", id, err)
	}
	return nil
}

// NextID reports the id Allocate will hand out next, useful for
// reopen-time bookkeeping that wants to know how far the file extends.
func (m *Manager) NextID() uint32 {
	return m.nextID
}

// Sync flushes the underlying OS file to stable storage.
func (m *Manager) Sync() error {
	if err := m.file.Sync(); err != nil {
		return dberr.New(dberr.StorageError, "sync page file: %v", err)
	}
	return nil
}
