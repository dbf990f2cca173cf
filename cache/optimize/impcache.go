package optimize

import (
	"encoding/binary"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/optimize/perfecthash"
)

// ImpCacheEligible reports whether the builder may synthesize IMP caches
// at all, per the three preconditions the format imposes: a 64-bit
// slice, a cache under 4 GiB (the header's SelOffset is a 32-bit
// signed delta), and libobjc having exported the offsets section the
// runtime needs to locate the caches.
func ImpCacheEligible(is64Bit bool, cacheSize uint64, libobjcExportsOffsets bool) bool {
	return is64Bit && cacheSize < 4*1024*1024*1024 && libobjcExportsOffsets
}

// ImpCacheMethod is one method a class or category contributes to its
// class's IMP cache: a selector name (already interned in the shared
// SelectorPool) and the resolved implementation address.
type ImpCacheMethod struct {
	Selector string
	IMP      addr.CacheVMAddress
}

// ImpCacheHeader mirrors objc's struct objc_imp_cache_header on disk:
// fallback class linkage plus the perfect-hash control fields.
type ImpCacheHeader struct {
	FallbackClassCacheOffset int32
	Capacity                 uint32
	Occupied                 uint32
	Shift                    uint8
	Mask                     uint8
	Unused                   uint8
	HasInlines               uint8
	BitsMode                 uint32
}

// ImpCacheEntry mirrors one slot of the on-disk perfect-hash bucket
// array: a selector offset (into the shared selector pool) and the
// resolved implementation address, relative to the cache's unslid base.
type ImpCacheEntry struct {
	SelOffset int64 // VMOffset into the selector pool, -1 for an empty slot
	IMP       addr.CacheVMAddress
}

// ClassImpCache is the built perfect-hash IMP cache for one class.
type ClassImpCache struct {
	Header  ImpCacheHeader
	Entries []ImpCacheEntry
}

// BuildClassImpCache builds the perfect-hash IMP cache for one class's
// method set, resolving each selector's offset via sels. Methods with a
// selector not present in sels are skipped and the caller should record a
// warning — this mirrors the "downgrade to a warning" rule for optional
// ObjC optimizations with missing prerequisites.
func BuildClassImpCache(methods []ImpCacheMethod, sels *SelectorPool, fallbackClassCacheOffset int32, salt uint64) (ClassImpCache, []string) {
	var missing []string
	entries := make([]perfecthash.Entry, 0, len(methods))
	selOffsets := make([]int64, 0, len(methods))
	imps := make([]addr.CacheVMAddress, 0, len(methods))

	for _, m := range methods {
		off, ok := sels.Offset(m.Selector)
		if !ok {
			missing = append(missing, m.Selector)
			continue
		}
		var key [8]byte
		binary.LittleEndian.PutUint64(key[:], uint64(off))
		entries = append(entries, perfecthash.Entry{Key: key[:], Aux: uint64(m.IMP)})
		selOffsets = append(selOffsets, int64(off))
		imps = append(imps, m.IMP)
	}

	tbl := perfecthash.Build(entries, salt)
	out := make([]ImpCacheEntry, tbl.Capacity)
	for slot, idx := range tbl.Slots {
		if idx == -1 {
			out[slot] = ImpCacheEntry{SelOffset: -1}
			continue
		}
		out[slot] = ImpCacheEntry{SelOffset: selOffsets[idx], IMP: imps[idx]}
	}

	return ClassImpCache{
		Header: ImpCacheHeader{
			FallbackClassCacheOffset: fallbackClassCacheOffset,
			Capacity:                 tbl.Capacity,
			Occupied:                 uint32(len(entries)),
			Mask:                     uint8(tbl.Mask),
		},
		Entries: out,
	}, missing
}

// Size returns the on-disk byte size of the built cache: the header plus
// one entry per capacity slot.
func (c ClassImpCache) Size() int {
	return binary.Size(c.Header) + len(c.Entries)*binary.Size(ImpCacheEntry{})
}
