package model

import "github.com/cachebuild/dyldcache/cache/addr"

// ChunkKind tags what a Chunk represents. New synthesized-table kinds are
// appended here as optimizers are added; the variant never needs a
// separate type hierarchy the way the original's C++ classes did.
type ChunkKind int

const (
	ChunkDylibSegment ChunkKind = iota
	ChunkLinkeditData
	ChunkSelectorStrings
	ChunkClassNames
	ChunkProtocolNames
	ChunkSwiftDemangledNames
	ChunkImpCache
	ChunkSwiftTypeConformance
	ChunkSwiftMetadataConformance
	ChunkSwiftForeignConformance
	ChunkDylibTrie
	ChunkPatchTable
	ChunkPrebuiltLoaderSet
	ChunkCanonicalProtocols
	ChunkUniquedGOT
	ChunkObjCHeaderInfoRO
	ChunkObjCHeaderInfoRW
	ChunkSlideInfo
	ChunkSymbolStrings
	ChunkSymbolTable
	ChunkUnmappedLocalSymbols
	ChunkCodeSignature
	ChunkObjCROSegment
	ChunkObjCRWSegment
)

func (k ChunkKind) String() string {
	names := [...]string{
		"DylibSegment", "LinkeditData", "SelectorStrings", "ClassNames",
		"ProtocolNames", "SwiftDemangledNames", "ImpCache",
		"SwiftTypeConformance", "SwiftMetadataConformance", "SwiftForeignConformance",
		"DylibTrie", "PatchTable", "PrebuiltLoaderSet", "CanonicalProtocols",
		"UniquedGOT", "ObjCHeaderInfoRO", "ObjCHeaderInfoRW", "SlideInfo",
		"SymbolStrings", "SymbolTable", "UnmappedLocalSymbols", "CodeSignature",
		"ObjCROSegment", "ObjCRWSegment",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Chunk is one contiguous byte range destined for the cache: a dylib
// segment, a linkedit sub-piece, or a synthesized acceleration table.
//
// Chunk pointer identity (via ChunkID) is stable from attachment onward;
// ownership is either the CacheDylib it belongs to (DylibSegment,
// LinkeditData) or the Builder's optimizer struct for that kind
// (synthesized tables) — Region only holds non-owning references.
type Chunk struct {
	ID        ChunkID
	Kind      ChunkKind
	Name      string
	Alignment uint32

	SubCacheFileSize addr.CacheFileSize
	CacheVMSize      addr.CacheVMSize

	// Populated by allocate_sub_cache_buffers.
	Allocated        bool
	SubCache         SubCacheID
	SubCacheFileOff  addr.CacheFileOffset
	CacheVMAddr      addr.CacheVMAddress

	// ZeroFill chunks occupy VM space but no file bytes; they are only
	// legal at the end of a Region.
	ZeroFill bool

	// Owner identifies which dylib (by DylibIndex) this chunk's bytes
	// belong to, or -1 for a builder-global synthesized chunk.
	Owner DylibIndex
}

// NewChunk constructs an unattached, unallocated Chunk. Callers set
// SubCacheFileSize/CacheVMSize once the chunk's final size is known (after
// the relevant optimizer or raw-segment copy has run).
func NewChunk(id ChunkID, kind ChunkKind, name string, align uint32) *Chunk {
	return &Chunk{ID: id, Kind: kind, Name: name, Alignment: align, Owner: -1}
}

// Bounds reports whether the chunk's allocated range lies fully within
// [bufStart, bufStart+bufSize), the invariant that must hold after
// allocate_sub_cache_buffers.
func (c *Chunk) Bounds(bufSize addr.CacheFileSize) bool {
	if !c.Allocated {
		return true
	}
	end := c.SubCacheFileOff.Add(c.SubCacheFileSize)
	return uint64(end) <= uint64(bufSize)
}
