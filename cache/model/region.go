package model

import "github.com/cachebuild/dyldcache/cache/addr"

// RegionKind is one of the permission-homogeneous spans a SubCache is
// divided into.
type RegionKind int

const (
	RegionText RegionKind = iota
	RegionDataConst
	RegionData
	RegionAuth
	RegionAuthConst
	RegionLinkedit
	RegionUnmapped
	RegionDynamicConfig
	RegionCodeSignature
)

func (k RegionKind) String() string {
	names := [...]string{
		"__TEXT", "__DATA_CONST", "__DATA", "__AUTH", "__AUTH_CONST",
		"__LINKEDIT", "__UNMAPPED", "__DYNAMIC_CONFIG", "__CODE_SIGNATURE",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Writable reports whether pages of this region kind carry the VM write
// permission; used by the contiguous layout's permission-change padding
// rule and by the Discontiguous layout's Rosetta-reservation rule.
func (k RegionKind) Writable() bool {
	switch k {
	case RegionDataConst, RegionData, RegionAuth, RegionAuthConst, RegionDynamicConfig:
		return true
	default:
		return false
	}
}

// Region is a permission-homogeneous span within one sub-cache: one
// kind, an ordered list of non-owning Chunk references, and the
// allocation metadata filled in by the layouter.
type Region struct {
	Kind   RegionKind
	Chunks []ChunkID

	SubCache        SubCacheID
	SubCacheFileOff addr.CacheFileOffset
	SubCacheFileSize addr.CacheFileSize
	SubCacheVMAddr  addr.CacheVMAddress
	SubCacheVMSize  addr.CacheVMSize
}

// Append appends a chunk (by ID) to this region's ordered list.
func (r *Region) Append(id ChunkID) { r.Chunks = append(r.Chunks, id) }

// Empty reports whether the region has no chunks, the condition under
// which finalize removes it entirely.
func (r *Region) Empty() bool { return len(r.Chunks) == 0 }
