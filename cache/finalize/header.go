package finalize

import (
	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/model"
)

// MappingInfo is one dyld_cache_mapping_and_slide_info entry: one
// permission-homogeneous VM range within a sub-cache.
type MappingInfo struct {
	Region           model.RegionKind
	FileOffset       addr.CacheFileOffset
	FileSize         addr.CacheFileSize
	VMAddr           addr.CacheVMAddress
	VMSize           addr.CacheVMSize
	SlideInfoPresent bool
}

// ImageInfo is one dyld_cache_image_info entry: a cache dylib's load
// address and the offset of its install-name string within the
// sub-cache's own string pool.
type ImageInfo struct {
	Dylib           model.DylibIndex
	Address         addr.CacheVMAddress
	PathFileOffset  uint32
}

// ImageTextInfo is one dyld_cache_image_text_info entry: the same
// dylib keyed by its cache index (no UUID is recorded), used by
// tools that need to locate a dylib's __TEXT segment without walking
// the trie first.
type ImageTextInfo struct {
	Dylib       model.DylibIndex
	LoadAddress addr.CacheVMAddress
	TextSegmentSize addr.CacheVMSize
}

// SubCacheEntry is one dyld_cache_sub_cache_entry a main cache's header
// records for each child sub-cache it references: the child's UUID
// (filled in once the child itself has been code-signed), its VM
// offset relative to the main cache's own base, and its on-disk file
// suffix.
type SubCacheEntry struct {
	Child      model.SubCacheID
	UUID       [16]byte
	VMOffset   addr.VMOffset
	FileSuffix string
}

// CacheHeader is the fully assembled dyld_cache_header for one
// sub-cache: every mapping, image, and offset table dyld needs to
// bootstrap this file without consulting any other sub-cache first
// (save for resolving a SubCacheEntry's child by its own header).
type CacheHeader struct {
	SubCache model.SubCacheID
	Kind     model.SubCacheKind

	Mappings   []MappingInfo
	Images     []ImageInfo
	ImagesText []ImageTextInfo

	// SubCaches is populated only on main-cache headers, one entry per
	// child; UUID fields are zero until the Finalizer signs each child
	// and back-fills them.
	SubCaches []SubCacheEntry

	DylibTrieOffset   addr.VMOffset
	DylibTrieSize     addr.CacheFileSize
	PatchTableOffset  addr.VMOffset
	PatchTableSize    addr.CacheFileSize
	ObjCOptsOffset    addr.VMOffset
	ObjCOptsSize      addr.CacheFileSize
	SwiftOptsOffset   addr.VMOffset
	SwiftOptsSize     addr.CacheFileSize

	CodeSignatureOffset addr.CacheFileOffset
	CodeSignatureSize   addr.CacheFileSize

	UUID [16]byte
}

// ComputeCacheHeaders builds one CacheHeader per sub-cache in arena,
// mirroring compute_cache_headers: every region becomes a mapping
// entry and every dylib whose segments live in this sub-cache becomes an
// image entry. The table offset/size fields (dylib trie, patch table,
// ObjC and Swift opts) are not filled in and stay zero. Main-cache headers additionally
// enumerate their children as placeholder SubCacheEntry rows, with
// UUIDs the Finalizer fills in once each child has been signed.
func ComputeCacheHeaders(arena *model.Arena, res *emit.Result, dylibs []*model.CacheDylib) map[model.SubCacheID]*CacheHeader {
	out := map[model.SubCacheID]*CacheHeader{}
	for _, sc := range arena.AllSubCaches() {
		h := &CacheHeader{SubCache: sc.ID, Kind: sc.Kind}
		for _, rid := range sc.Regions {
			r := arena.Region(rid)
			h.Mappings = append(h.Mappings, MappingInfo{
				Region:           r.Kind,
				FileOffset:       r.SubCacheFileOff,
				FileSize:         r.SubCacheFileSize,
				VMAddr:           r.SubCacheVMAddr,
				VMSize:           r.SubCacheVMSize,
				SlideInfoPresent: res.Slide[sc.ID] != nil && r.Kind.Writable(),
			})
		}

		for _, d := range dylibs {
			if !dylibBelongsToSubCache(arena, d, sc.ID) {
				continue
			}
			h.Images = append(h.Images, ImageInfo{Dylib: d.CacheIndex, Address: d.CacheLoadAddress})
			h.ImagesText = append(h.ImagesText, ImageTextInfo{Dylib: d.CacheIndex, LoadAddress: d.CacheLoadAddress})
		}

		if sc.Kind.IsMain() {
			for _, child := range sc.Children {
				h.SubCaches = append(h.SubCaches, SubCacheEntry{Child: child, FileSuffix: arena.SubCache(child).FileSuffix})
			}
		}

		out[sc.ID] = h
	}
	return out
}

// dylibBelongsToSubCache reports whether any of d's segment chunks are
// allocated into sc.
func dylibBelongsToSubCache(arena *model.Arena, d *model.CacheDylib, sc model.SubCacheID) bool {
	for _, cid := range d.Segments {
		c := arena.Chunk(cid)
		if c.Allocated && c.SubCache == sc {
			return true
		}
	}
	return false
}
