// Package table implements per-table heap storage: record insert,
// scan, update, and delete over a set of owned data pages, with page
// compaction on UPDATE/DELETE.
package table

import (
	"sort"

	"github.com/nrgarcia/machdb/buffer"
	"github.com/nrgarcia/machdb/dberr"
	"github.com/nrgarcia/machdb/page"
	"github.com/nrgarcia/machdb/record"
)

// RID identifies a record's exact location: the page holding it and
// its byte offset from the start of that page (header included).
type RID struct {
	PageID uint32
	Offset uint32
}

// Row pairs a live record's values with the location it was read from.
type Row struct {
	Values map[string]any
	RID    RID
}

// Store holds one table's schema and the set of data pages it owns.
type Store struct {
	Name   string
	Schema record.Schema

	mgr   *page.Manager
	cache *buffer.Cache
	pages []uint32 // owned data page ids, ascending
}

// Open constructs a Store for an already-created table by scanning the
// heap file for data pages whose header names this table.
func Open(name string, schema record.Schema, mgr *page.Manager, cache *buffer.Cache) (*Store, error) {
	s := &Store{Name: name, Schema: schema, mgr: mgr, cache: cache}
	for id := uint32(1); id < mgr.NextID(); id++ {
		p, err := mgr.Read(id)
		if err != nil {
			return nil, err
		}
		if p.Header.PageType == page.Data && p.Header.TableName == name {
			s.pages = append(s.pages, id)
		}
	}
	sort.Slice(s.pages, func(i, j int) bool { return s.pages[i] < s.pages[j] })
	return s, nil
}

// Insert encodes rec and writes it into the first owned page with
// enough free space, allocating a fresh page if none qualifies.
func (s *Store) Insert(rec record.Record) (RID, error) {
	buf, err := record.Encode(rec, s.Schema)
	if err != nil {
		return RID{}, err
	}
	needed := uint32(len(buf))

	for _, id := range s.pages {
		p, err := s.cache.GetPage(id)
		if err != nil {
			return RID{}, err
		}
		if p.Header.FreeSpace >= needed {
			return s.writeInto(id, p, buf)
		}
	}

	id, err := s.mgr.Allocate(page.Data, s.Name)
	if err != nil {
		return RID{}, err
	}
	s.pages = append(s.pages, id)
	p, err := s.cache.GetPage(id)
	if err != nil {
		return RID{}, err
	}
	return s.writeInto(id, p, buf)
}

func (s *Store) writeInto(id uint32, p *page.Page, buf []byte) (RID, error) {
	payloadOffset := page.PayloadSize - p.Header.FreeSpace
	copy(p.Payload[payloadOffset:], buf)
	p.Header.FreeSpace -= uint32(len(buf))
	p.Header.RecordCount++
	s.cache.MarkDirty(id)
	return RID{PageID: id, Offset: page.HeaderSize + payloadOffset}, nil
}

// Scan enumerates every live record this table owns, in ascending
// page-id then on-page-offset order, optionally filtered by cond.
func (s *Store) Scan(cond Condition) ([]Row, error) {
	var rows []Row
	for _, id := range s.pages {
		p, err := s.cache.GetPage(id)
		if err != nil {
			return nil, err
		}
		recs, err := s.decodeAll(p)
		if err != nil {
			return nil, err
		}
		for _, dr := range recs {
			if dr.rec.Deleted {
				continue
			}
			if !cond.Match(dr.rec.Values) {
				continue
			}
			rows = append(rows, Row{
				Values: dr.rec.Values,
				RID:    RID{PageID: id, Offset: page.HeaderSize + uint32(dr.payloadOffset)},
			})
		}
	}
	return rows, nil
}

type decodedRecord struct {
	rec           record.Record
	payloadOffset int
	length        int
}

// decodeAll replays the codec across a page's live payload prefix,
// exactly record_count times, starting at payload offset 0.
func (s *Store) decodeAll(p *page.Page) ([]decodedRecord, error) {
	out := make([]decodedRecord, 0, p.Header.RecordCount)
	offset := 0
	for i := uint32(0); i < p.Header.RecordCount; i++ {
		rec, n, err := record.Decode(p.Payload[:], offset, s.Schema)
		if err != nil {
			return nil, dberr.Annotate(err, "table %q: decode record %d on page %d", s.Name, i, p.Header.PageID)
		}
		out = append(out, decodedRecord{rec: rec, payloadOffset: offset, length: n})
		offset += n
	}
	return out, nil
}

// Update overwrites named fields on every live record matching cond,
// then recompacts the owning page: live (non-deleted) records are
// re-serialized contiguously and record_count/free_space reflect the
// survivors. No growth check is performed; a record that grows past
// the page's remaining capacity is undefined behavior, matching the
// current design (see the project's open design notes).
func (s *Store) Update(set map[string]any, cond Condition) (int, error) {
	affected := 0
	for _, id := range s.pages {
		p, err := s.cache.GetPage(id)
		if err != nil {
			return affected, err
		}
		recs, err := s.decodeAll(p)
		if err != nil {
			return affected, err
		}

		changed := false
		survivors := make([]record.Record, 0, len(recs))
		for _, dr := range recs {
			if dr.rec.Deleted {
				changed = true // dropping any stale tombstone still compacts
				continue
			}
			if cond.Match(dr.rec.Values) {
				for k, v := range set {
					dr.rec.Values[k] = v
				}
				affected++
				changed = true
			}
			survivors = append(survivors, dr.rec)
		}
		if changed {
			if err := s.rewrite(id, p, survivors); err != nil {
				return affected, err
			}
		}
	}
	return affected, nil
}

// Delete tombstones every live record matching cond, then recompacts
// the owning page, dropping tombstones entirely.
func (s *Store) Delete(cond Condition) (int, error) {
	affected := 0
	for _, id := range s.pages {
		p, err := s.cache.GetPage(id)
		if err != nil {
			return affected, err
		}
		recs, err := s.decodeAll(p)
		if err != nil {
			return affected, err
		}

		changed := false
		survivors := make([]record.Record, 0, len(recs))
		for _, dr := range recs {
			if dr.rec.Deleted {
				changed = true
				continue
			}
			if cond.Match(dr.rec.Values) {
				affected++
				changed = true
				continue
			}
			survivors = append(survivors, dr.rec)
		}
		if changed {
			if err := s.rewrite(id, p, survivors); err != nil {
				return affected, err
			}
		}
	}
	return affected, nil
}

// rewrite re-serializes survivors contiguously from payload offset 0,
// zeroing the rest of the payload, and updates the header to match.
func (s *Store) rewrite(id uint32, p *page.Page, survivors []record.Record) error {
	for i := range p.Payload {
		p.Payload[i] = 0
	}
	offset := 0
	for _, rec := range survivors {
		buf, err := record.Encode(rec, s.Schema)
		if err != nil {
			return err
		}
		if offset+len(buf) > page.PayloadSize {
			return dberr.New(dberr.StorageError, "table %q: page %d compaction overflowed payload (undefined growth)", s.Name, id)
		}
		copy(p.Payload[offset:], buf)
		offset += len(buf)
	}
	p.Header.RecordCount = uint32(len(survivors))
	p.Header.FreeSpace = uint32(page.PayloadSize - offset)
	s.cache.MarkDirty(id)
	return nil
}

// PageIDs returns the data pages this table currently owns, ascending.
func (s *Store) PageIDs() []uint32 {
	out := make([]uint32, len(s.pages))
	copy(out, s.pages)
	return out
}
