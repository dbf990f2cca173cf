package dylibpass

import (
	"encoding/binary"
	"sort"

	"github.com/cachebuild/dyldcache/cache/cerrors"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/macho"
	"github.com/cachebuild/dyldcache/types/objc"
)

// This file implements update_objc_selector_references/
// convert_objc_method_lists_to_offsets and sort_objc_method_lists by
// decoding __TEXT,__objc_methlist directly off the input buffer, rather
// than through macho.File.GetObjCMethodList/GetObjCMethods. Only
// objc.MethodList's own methods and the raw RelativeMethodT/MethodT wire
// layouts are used here, all confirmed self-consistent.
const (
	methodListHeaderSize = 8

	// relativeMethodSelectorsAreDirectFlag duplicates the unexported
	// constant of the same name in types/objc, set on a method_list_t's
	// entsize_and_flags once every entry's name field has been converted
	// to point directly at its selector string instead of indirecting
	// through an __objc_selrefs slot.
	relativeMethodSelectorsAreDirectFlag uint32 = 0x40000000
)

// methodListRegion is one decoded method_list_t header plus the input
// file offset of its first entry.
type methodListRegion struct {
	ml         objc.MethodList
	entriesOff uint64
}

// walkObjcMethodLists decodes every method_list_t packed back to back in
// __TEXT,__objc_methlist, the layout a dylib built with relative method
// lists produces. Absolute-format method lists live interleaved with
// other __objc_const data and are not walkable as a flat array this way;
// only the relative form is rewritten by this pass.
func walkObjcMethodLists(f *macho.File, buf []byte) []methodListRegion {
	sec, ok := findSection(f, "__objc_methlist")
	if !ok {
		return nil
	}
	var out []methodListRegion
	pos := sec.FileOff
	for pos+methodListHeaderSize <= sec.FileEnd && pos+methodListHeaderSize <= uint64(len(buf)) {
		ml := objc.MethodList{
			EntSizeAndFlags: binary.LittleEndian.Uint32(buf[pos:]),
			Count:           binary.LittleEndian.Uint32(buf[pos+4:]),
		}
		entsize := uint64(ml.EntSize())
		if entsize == 0 || !ml.UsesRelativeOffsets() {
			break // a zero entsize or an absolute-format header means we've
			// run past the packed relative region (or misparsed); stop
			// rather than risk walking garbage.
		}
		out = append(out, methodListRegion{ml: ml, entriesOff: pos + methodListHeaderSize})
		pos += methodListHeaderSize + entsize*uint64(ml.Count)
		pos = (pos + 3) &^ 3
	}
	return out
}

// dylibChunk returns the single DylibSegment chunk and owning sub-cache
// this builder assigns every cache dylib (see cache/allocate.go's
// one-chunk-per-dylib model), or false if d has none allocated yet.
func (r *Runner) dylibChunk(d *model.CacheDylib) (*model.Chunk, *model.SubCache, bool) {
	if len(d.Segments) == 0 {
		return nil, nil, false
	}
	c := r.arena.Chunk(d.Segments[0])
	if !c.Allocated {
		return nil, nil, false
	}
	return c, r.arena.SubCache(c.SubCache), true
}

// destOffsetForCacheAddr converts a (rebase-resolved) cache VM address
// known to lie within c's range into a byte offset in c's owning
// sub-cache buffer, using the same single-chunk affine relation every
// other dylibpass fixup computation relies on: offset 0 of the chunk
// maps both to c.SubCacheFileOff and c.CacheVMAddr.
func destOffsetForCacheAddr(c *model.Chunk, a uint64) uint64 {
	return uint64(c.SubCacheFileOff) + (a - uint64(c.CacheVMAddr))
}

func readCString(buf []byte, off uint64) (string, bool) {
	if off >= uint64(len(buf)) {
		return "", false
	}
	end := off
	for end < uint64(len(buf)) && buf[end] != 0 {
		end++
	}
	if end >= uint64(len(buf)) {
		return "", false
	}
	return string(buf[off:end]), true
}

// selectorNameFor reads the selector name a relative or absolute method
// entry's name field resolves to, working entirely in destination-buffer
// space (post copy_raw_segments/apply_split_seg_info).
func selectorNameFor(buf []byte, c *model.Chunk, entryDestOff uint64, ml objc.MethodList) (string, bool) {
	if ml.UsesRelativeOffsets() {
		if entryDestOff+4 > uint64(len(buf)) {
			return "", false
		}
		off := int32(binary.LittleEndian.Uint32(buf[entryDestOff:]))
		target := uint64(int64(entryDestOff) + int64(off))
		if ml.UsesDirectOffsetsToSelectors() {
			return readCString(buf, target)
		}
		if target+8 > uint64(len(buf)) {
			return "", false
		}
		strCacheAddr := binary.LittleEndian.Uint64(buf[target:])
		return readCString(buf, destOffsetForCacheAddr(c, strCacheAddr))
	}
	if entryDestOff+8 > uint64(len(buf)) {
		return "", false
	}
	strCacheAddr := binary.LittleEndian.Uint64(buf[entryDestOff:])
	return readCString(buf, destOffsetForCacheAddr(c, strCacheAddr))
}

// convertObjcMethodListsToOffsets validates every relative, non-direct
// method list entry's name field resolves to a slot inside
// __objc_selrefs (anything else is a format this builder
// cannot trust), then, where every entry in a list resolves cleanly,
// rewrites the list's name fields to point directly at the selector
// string and flips UsesDirectOffsetsToSelectors, eliminating the
// indirection the same way dyld's real selector-uniquing step does.
//
// The names are not yet redirected to cache/optimize's cross-dylib
// canonical selector-strings pool: that pool's chunk is never allocated
// (ChunkSelectorStrings is declared in cache/model but never attached to
// a Region), because allocate_sub_cache_buffers runs before optimize.Run
// in Builder.Build - see DESIGN.md. This step's job is scoped to what is
// addressable at this point in the pipeline: validating the mandated
// error path and removing the selref indirection within each dylib's own
// (already-rebased) copy of its strings.
func (r *Runner) convertObjcMethodListsToOffsets(d *model.CacheDylib) error {
	if !d.IsObjC || d.Input == nil {
		return nil
	}
	f, err := macho.NewFile(newReaderAt(d.Input.Buffer))
	if err != nil {
		return nil
	}
	defer f.Close()

	selrefs, haveSelrefs := findSection(f, "__objc_selrefs")

	c, sc, ok := r.dylibChunk(d)
	if !ok {
		return nil
	}
	buf := sc.Buffer()

	for _, region := range walkObjcMethodLists(f, d.Input.Buffer) {
		if region.ml.UsesDirectOffsetsToSelectors() {
			continue
		}
		entsize := uint64(region.ml.EntSize())
		n := int(region.ml.Count)

		type resolved struct {
			destOff  uint64
			newValue int32
		}
		rewrites := make([]resolved, 0, n)

		for i := 0; i < n; i++ {
			entryOff := region.entriesOff + uint64(i)*entsize
			destEntryOff := uint64(c.SubCacheFileOff) + entryOff
			if destEntryOff+4 > uint64(len(buf)) {
				break
			}
			entryCacheAddr := uint64(c.CacheVMAddr) + entryOff
			nameOffset := int32(binary.LittleEndian.Uint32(buf[destEntryOff:]))

			// The slot this entry's name field targets is addressed in
			// the dylib's ORIGINAL (input) VM space, since the field has
			// not been rewritten yet; recompute using input-space values.
			origEntryVMAddr, ok := fileOffsetVMAddr(f, entryOff)
			if !ok {
				rewrites = nil
				break
			}
			inputSlotVMAddr := uint64(int64(origEntryVMAddr) + int64(nameOffset))

			if !haveSelrefs || !selrefs.containsVMAddr(inputSlotVMAddr) {
				return cerrors.Wrap(cerrors.FormatUnsupported, nil,
					"dylib %s: relative method list entry at file offset %#x: name offset resolves to %#x, outside __objc_selrefs [%#x,%#x)",
					d.InstallName, entryOff, inputSlotVMAddr, selrefs.VMAddr, selrefs.VMEnd)
			}

			slotFileOff, ok := fileOffsetForVMAddr(f, inputSlotVMAddr)
			if !ok {
				rewrites = nil
				break
			}
			destSlotOff := uint64(c.SubCacheFileOff) + slotFileOff
			if destSlotOff+8 > uint64(len(buf)) {
				rewrites = nil
				break
			}
			stringCacheAddr := binary.LittleEndian.Uint64(buf[destSlotOff:])
			newOffset := int32(int64(stringCacheAddr) - int64(entryCacheAddr))
			rewrites = append(rewrites, resolved{destOff: destEntryOff, newValue: newOffset})
		}

		if len(rewrites) != n {
			continue // one or more entries unreadable; leave this list indirected
		}
		for _, rw := range rewrites {
			binary.LittleEndian.PutUint32(buf[rw.destOff:], uint32(rw.newValue))
		}
		headerOff := uint64(c.SubCacheFileOff) + region.entriesOff - methodListHeaderSize
		flags := binary.LittleEndian.Uint32(buf[headerOff:])
		binary.LittleEndian.PutUint32(buf[headerOff:], flags|relativeMethodSelectorsAreDirectFlag)
	}
	return nil
}

// fileOffsetVMAddr returns the input VM address corresponding to input
// file offset off, the inverse of fileOffsetForVMAddr.
func fileOffsetVMAddr(f *macho.File, off uint64) (uint64, bool) {
	for _, seg := range f.Segments() {
		if off >= seg.Offset && off < seg.Offset+seg.Filesz {
			return (off - seg.Offset) + seg.Addr, true
		}
	}
	return 0, false
}

// sortObjcMethodLists orders each relative method list's entries by
// their selector's position in the cache-wide selector pool (falling
// back to lexicographic order for any selector convert_objc_method_lists
// could not resolve), satisfying the sorted/uniqued invariant dyld's
// runtime expects of an optimized cache. Moving an entry only requires
// shifting its three relative fields (name/types/imp) by the entry's own
// address delta, since each field's value is self-relative and its
// target does not move.
func (r *Runner) sortObjcMethodLists(d *model.CacheDylib) error {
	if !d.IsObjC || d.Input == nil {
		return nil
	}
	f, err := macho.NewFile(newReaderAt(d.Input.Buffer))
	if err != nil {
		return nil
	}
	defer f.Close()

	c, sc, ok := r.dylibChunk(d)
	if !ok {
		return nil
	}
	buf := sc.Buffer()

	for _, region := range walkObjcMethodLists(f, d.Input.Buffer) {
		entsize := uint64(region.ml.EntSize())
		n := int(region.ml.Count)
		if n < 2 {
			continue
		}
		destEntriesOff := uint64(c.SubCacheFileOff) + region.entriesOff
		if destEntriesOff+uint64(n)*entsize > uint64(len(buf)) {
			continue
		}

		type entry struct {
			raw    []byte
			name   string
			origOff uint64
		}
		entries := make([]entry, n)
		for i := 0; i < n; i++ {
			off := destEntriesOff + uint64(i)*entsize
			raw := append([]byte(nil), buf[off:off+entsize]...)
			name, _ := selectorNameFor(buf, c, off, region.ml)
			entries[i] = entry{raw: raw, name: name, origOff: off}
		}

		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.name == "" || b.name == "" {
				return a.name < b.name
			}
			if r.opt != nil {
				ao, aok := r.opt.Selectors.Offset(a.name)
				bo, bok := r.opt.Selectors.Offset(b.name)
				if aok && bok && ao != bo {
					return ao < bo
				}
			}
			return a.name < b.name
		})

		moved := make([]byte, uint64(n)*entsize)
		for i, e := range entries {
			copy(moved[uint64(i)*entsize:], e.raw)
		}
		copy(buf[destEntriesOff:destEntriesOff+uint64(n)*entsize], moved)

		if region.ml.UsesRelativeOffsets() {
			// Each entry's raw bytes still encode offsets relative to its
			// PREVIOUS address; shift every int32 field (name/types/imp,
			// 3 fields of 4 bytes each for relative method entries) by the
			// address delta between its old and new position.
			for i, e := range entries {
				newOff := destEntriesOff + uint64(i)*entsize
				delta := int64(newOff) - int64(e.origOff)
				if delta == 0 {
					continue
				}
				for fieldOff := uint64(0); fieldOff+4 <= entsize && fieldOff < 12; fieldOff += 4 {
					at := newOff + fieldOff
					if at+4 > uint64(len(buf)) {
						break
					}
					v := int32(binary.LittleEndian.Uint32(buf[at:]))
					binary.LittleEndian.PutUint32(buf[at:], uint32(int64(v)-delta))
				}
			}
		}
	}
	return nil
}
