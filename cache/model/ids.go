package model

// ChunkID, RegionID and SubCacheID are stable opaque handles into the
// Builder's arenas, used in place of raw back-pointers between chunks,
// regions, sub-caches, and dylibs. An ID is only valid against the
// arena that issued it.
type ChunkID int32

type RegionID int32

type SubCacheID int32

// DylibIndex is the dense 0..N cache_index assigned by sort_dylibs.
type DylibIndex int32

// InvalidChunkID marks a field that has not yet been assigned a chunk,
// e.g. a Region slot reserved but not yet populated.
const InvalidChunkID ChunkID = -1

// InvalidSubCacheID marks "no parent" / "no sub-cache yet".
const InvalidSubCacheID SubCacheID = -1
