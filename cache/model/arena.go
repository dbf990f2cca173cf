package model

// Arena holds every Chunk, Region and SubCache for one build, addressed
// by the opaque IDs declared in ids.go. It is the concrete form of the
// "arena + indices" re-architecture: entities are stored as pointers in
// slices, so a slice growing never invalidates an already-issued ID (Go
// slice growth reallocates the backing array, not the pointed-to structs,
// since elements are *Chunk/*Region/*SubCache rather than value types).
type Arena struct {
	chunks    []*Chunk
	regions   []*Region
	subCaches []*SubCache
	dylibs    []*CacheDylib
}

// NewArena returns an empty Arena.
func NewArena() *Arena { return &Arena{} }

// NewChunk allocates and registers a new Chunk, returning its stable ID.
func (a *Arena) NewChunk(kind ChunkKind, name string, align uint32) *Chunk {
	id := ChunkID(len(a.chunks))
	c := NewChunk(id, kind, name, align)
	a.chunks = append(a.chunks, c)
	return c
}

// Chunk resolves a ChunkID back to its Chunk.
func (a *Arena) Chunk(id ChunkID) *Chunk { return a.chunks[id] }

// AllChunks returns every chunk currently registered, in ID order.
func (a *Arena) AllChunks() []*Chunk { return a.chunks }

// NewRegion allocates and registers a new Region.
func (a *Arena) NewRegion(kind RegionKind) *Region {
	r := &Region{Kind: kind}
	a.regions = append(a.regions, r)
	return r
}

// RegionID returns the ID of a Region previously returned by NewRegion,
// by identity scan; used sparingly (layout construction, not hot paths).
func (a *Arena) RegionID(r *Region) RegionID {
	for i, x := range a.regions {
		if x == r {
			return RegionID(i)
		}
	}
	return -1
}

// Region resolves a RegionID back to its Region.
func (a *Arena) Region(id RegionID) *Region { return a.regions[id] }

// AllRegions returns every region currently registered, in ID order.
func (a *Arena) AllRegions() []*Region { return a.regions }

// NewSubCache allocates and registers a new SubCache. Callers must finish
// allocating every SubCache for the build (ReserveSubCaches is not
// required in the Go port — see doc comment on Arena — but the ID
// returned here is immediately final and safe to store as a child
// reference in another SubCache).
func (a *Arena) NewSubCache(kind SubCacheKind) *SubCache {
	id := SubCacheID(len(a.subCaches))
	s := &SubCache{ID: id, Kind: kind}
	a.subCaches = append(a.subCaches, s)
	return s
}

// SubCache resolves a SubCacheID back to its SubCache.
func (a *Arena) SubCache(id SubCacheID) *SubCache { return a.subCaches[id] }

// AllSubCaches returns every sub-cache currently registered, in ID order.
func (a *Arena) AllSubCaches() []*SubCache { return a.subCaches }

// AddDylib registers d as a builder-owned CacheDylib.
func (a *Arena) AddDylib(d *CacheDylib) { a.dylibs = append(a.dylibs, d) }

// Dylibs returns every registered CacheDylib, in registration order
// (callers sort this into cache_index order separately).
func (a *Arena) Dylibs() []*CacheDylib { return a.dylibs }

// SetDylibs replaces the dylib list wholesale, used by sort_dylibs and by
// verify_self_contained's demotion pass.
func (a *Arena) SetDylibs(d []*CacheDylib) { a.dylibs = d }

// Close releases every SubCache's backing store.
func (a *Arena) Close() error {
	var first error
	for _, s := range a.subCaches {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
