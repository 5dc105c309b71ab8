package page

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestPageEncodeDecodeRoundTrip(t *testing.T) {
	p := NewDataPage(3, "users")
	p.Header.RecordCount = 2
	p.Header.FreeSpace = PayloadSize - 20
	copy(p.Payload[:], []byte("hello world"))

	buf := p.Encode()
	if len(buf) != Size {
		t.Fatalf("encoded length = %d, want %d", len(buf), Size)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Header != p.Header {
		t.Errorf("header round-trip mismatch: got %+v, want %+v", got.Header, p.Header)
	}
	if !bytes.Equal(got.Payload[:], p.Payload[:]) {
		t.Error("payload round-trip mismatch")
	}
}

func TestMetaPageIsTypeMeta(t *testing.T) {
	p := NewMetaPage()
	if p.Header.PageType != Meta || p.Header.PageID != 0 {
		t.Fatalf("got %+v", p.Header)
	}
}

func TestManagerAllocateReadWrite(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	id, err := m.Allocate(Data, "t")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if id != 1 {
		t.Fatalf("first allocated data page id = %d, want 1 (page 0 is meta)", id)
	}

	p, err := m.Read(id)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if p.Header.TableName != "t" || p.Header.PageType != Data {
		t.Fatalf("got %+v", p.Header)
	}

	p.Header.RecordCount = 5
	copy(p.Payload[:], []byte("abc"))
	if err := m.Write(p); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reread, err := m.Read(id)
	if err != nil {
		t.Fatalf("Read after write: %v", err)
	}
	if reread.Header.RecordCount != 5 {
		t.Errorf("record count after write = %d, want 5", reread.Header.RecordCount)
	}
}

func TestFreedPageIdIsNeverReused(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	a, _ := m.Allocate(Data, "t")
	if err := m.Free(a); err != nil {
		t.Fatalf("Free: %v", err)
	}
	b, _ := m.Allocate(Data, "t")
	if b == a {
		t.Fatalf("Allocate reused a freed id %d; the allocator must not recycle free-list ids", a)
	}

	freed, err := m.Read(a)
	if err != nil {
		t.Fatalf("Read freed page: %v", err)
	}
	if freed.Header.PageType != Free {
		t.Errorf("freed page type = %q, want %q", freed.Header.PageType, Free)
	}
}

func TestReopenPreservesNextID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m.Allocate(Data, "t")
	m.Allocate(Data, "t")
	m.Close()

	m2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m2.Close()
	if m2.NextID() != 3 {
		t.Errorf("NextID after reopen = %d, want 3", m2.NextID())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}
