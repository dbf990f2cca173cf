package emit

import (
	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/optimize"
	"github.com/cachebuild/dyldcache/cache/optimize/perfecthash"
)

// objcOptSalt seeds the three ObjC perfect-hash tables. Fixed so two
// builds over the same input set produce byte-identical tables.
const objcOptSalt = 0x6f626a_636f7074 // "objcopt"

// objcOptsVersion is the objc_opt_t version this builder emits.
const objcOptsVersion = 16

// SelectorHashTable maps a selector string to its VMOffset within the
// canonical selector-strings chunk via the two-level perfect hash.
type SelectorHashTable struct {
	table *perfecthash.Table
	// Offsets is indexed by the table's entry order (the pool's
	// interning order) and holds each selector's offset within the
	// selector-strings chunk.
	Offsets []addr.VMOffset
}

// Lookup returns the selector-strings offset for name.
func (t *SelectorHashTable) Lookup(name string) (addr.VMOffset, bool) {
	idx, ok := t.table.Lookup([]byte(name), 0)
	if !ok {
		return 0, false
	}
	return t.Offsets[idx], true
}

// Capacity returns the table's slot count.
func (t *SelectorHashTable) Capacity() uint32 { return t.table.Capacity }

// ClassHashEntry is one distinct class name's payload: every
// (dylib, class address) occurrence sharing that name, retained rather
// than deduplicated because the runtime must observe all class-name
// duplicates.
type ClassHashEntry struct {
	Name        string
	Occurrences []optimize.ClassOccurrence
}

// ClassHashTable maps a class name to its occurrence list via the
// two-level perfect hash.
type ClassHashTable struct {
	table   *perfecthash.Table
	Entries []ClassHashEntry
}

// Lookup returns every occurrence recorded for name.
func (t *ClassHashTable) Lookup(name string) ([]optimize.ClassOccurrence, bool) {
	idx, ok := t.table.Lookup([]byte(name), 0)
	if !ok {
		return nil, false
	}
	return t.Entries[idx].Occurrences, true
}

// Capacity returns the table's slot count.
func (t *ClassHashTable) Capacity() uint32 { return t.table.Capacity }

// ProtocolHashEntry is one canonical protocol's payload: the name the
// table is keyed by and the elected canonical definition's cache
// address.
type ProtocolHashEntry struct {
	Name        string
	CacheVMAddr addr.CacheVMAddress
}

// ProtocolHashTable maps a protocol name to its canonical definition's
// cache address via the two-level perfect hash. Unlike the class table
// there is exactly one payload per key: canonicalization has already
// elected a single definition per name.
type ProtocolHashTable struct {
	table   *perfecthash.Table
	Entries []ProtocolHashEntry
}

// Lookup returns the canonical protocol address for name, verifying the
// slot's check byte and the payload's stored name against the key
// before accepting the hit.
func (t *ProtocolHashTable) Lookup(name string) (addr.CacheVMAddress, bool) {
	idx, ok := t.table.Lookup([]byte(name), 0)
	if !ok {
		return 0, false
	}
	if t.Entries[idx].Name != name {
		return 0, false
	}
	return t.Entries[idx].CacheVMAddr, true
}

// CheckByteFor recomputes the check byte the table stored for name,
// used by round-trip verification.
func (t *ProtocolHashTable) CheckByteFor(name string) uint8 {
	return uint8(perfecthash.Lookup8([]byte(name), t.table.Salt) >> 8)
}

// Capacity returns the table's slot count.
func (t *ProtocolHashTable) Capacity() uint32 { return t.table.Capacity }

// ObjCOptsHeader is the objc_opt_t header emit_objc_opts_header writes:
// the format version and the relative offsets (from the header's own
// position within the ObjC opts chunk) of each emitted table.
type ObjCOptsHeader struct {
	Version uint32
	Flags   uint32

	SelectorOptOffset   addr.VMOffset
	ClassOptOffset      addr.VMOffset
	ProtocolOptOffset   addr.VMOffset
	HeaderInfoROOffset  addr.VMOffset
	HeaderInfoRWOffset  addr.VMOffset
}

// ObjCHashTablesResult is the output of emit_objc_hash_tables +
// emit_objc_opts_header: the three perfect-hash tables over the merged
// selector/class/protocol pools, and the opts header locating them.
type ObjCHashTablesResult struct {
	Selectors *SelectorHashTable
	Classes   *ClassHashTable
	Protocols *ProtocolHashTable
	Header    ObjCOptsHeader
	Disabled  bool
}

// EmitObjCHashTables builds the selector, class, and protocol hash
// tables over the merged optimizer pools, then lays the opts header out
// in front of them: header, selector table, class table, protocol
// table, header-info RO, header-info RW, each 8-byte aligned. When
// cfg.DisableObjCHashTables is set it returns a Disabled result so the
// Finalizer writes a zero objc-opts range instead of empty tables.
func EmitObjCHashTables(opt *optimize.Result, headerInfo *ObjCHeaderInfoResult, cfg config.ObjCOptimizations) *ObjCHashTablesResult {
	if cfg.DisableObjCHashTables {
		return &ObjCHashTablesResult{Disabled: true}
	}

	res := &ObjCHashTablesResult{
		Selectors: buildSelectorTable(opt.Selectors),
		Classes:   buildClassTable(opt.ClassNames),
		Protocols: buildProtocolTable(opt.Protocols),
	}

	const headerSize = 40
	off := addr.VMOffset(headerSize)
	res.Header = ObjCOptsHeader{Version: objcOptsVersion}
	res.Header.SelectorOptOffset = off
	off += addr.VMOffset(hashTableSerializedSize(res.Selectors.table))
	res.Header.ClassOptOffset = off
	off += addr.VMOffset(hashTableSerializedSize(res.Classes.table))
	res.Header.ProtocolOptOffset = off
	off += addr.VMOffset(hashTableSerializedSize(res.Protocols.table))
	res.Header.HeaderInfoROOffset = off
	off += addr.VMOffset(len(headerInfo.RO)) * 16
	res.Header.HeaderInfoRWOffset = off

	return res
}

func buildSelectorTable(pool *optimize.SelectorPool) *SelectorHashTable {
	names := pool.Names()
	entries := make([]perfecthash.Entry, len(names))
	for i, n := range names {
		entries[i] = perfecthash.Entry{Key: []byte(n)}
	}
	offsets := make([]addr.VMOffset, len(names))
	for i, n := range names {
		offsets[i], _ = pool.Offset(n)
	}
	return &SelectorHashTable{table: perfecthash.Build(entries, objcOptSalt), Offsets: offsets}
}

func buildClassTable(pool *optimize.ClassNamePool) *ClassHashTable {
	names := pool.Names()
	entries := make([]perfecthash.Entry, len(names))
	payload := make([]ClassHashEntry, len(names))
	for i, n := range names {
		entries[i] = perfecthash.Entry{Key: []byte(n)}
		payload[i] = ClassHashEntry{Name: n, Occurrences: pool.Occurrences(n)}
	}
	return &ClassHashTable{table: perfecthash.Build(entries, objcOptSalt), Entries: payload}
}

func buildProtocolTable(pool *optimize.ProtocolPool) *ProtocolHashTable {
	names := pool.Names()
	entries := make([]perfecthash.Entry, len(names))
	payload := make([]ProtocolHashEntry, len(names))
	for i, n := range names {
		canon, _ := pool.Canonical(n)
		entries[i] = perfecthash.Entry{Key: []byte(n)}
		payload[i] = ProtocolHashEntry{Name: n, CacheVMAddr: canon.CacheVMAddr}
	}
	return &ProtocolHashTable{table: perfecthash.Build(entries, objcOptSalt), Entries: payload}
}

// hashTableSerializedSize is the on-disk footprint of one emitted
// two-level table: the fixed header words, scramble[256], tab, one
// 8-byte target per slot, and one check byte per slot, rounded up to
// 8-byte alignment.
func hashTableSerializedSize(t *perfecthash.Table) uint64 {
	const fixedHeader = 40 // capacity, occupied, shift, mask, sentinel, rounded_tab_size, salt
	size := uint64(fixedHeader)
	size += 256 * 4
	size += uint64(len(t.Tab))
	size += uint64(t.Capacity) * 8
	size += uint64(t.Capacity)
	return addr.AlignUp(size, 8)
}
