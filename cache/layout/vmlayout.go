package layout

import (
	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/cerrors"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
)

// regionOrder is the dependency order VM layout walks regions in: TEXT
// first (read-only, executable), then the constant and mutable DATA
// variants, AUTH regions, then LINKEDIT, matching the permission
// groupings that drive padding insertion.
var regionOrder = []model.RegionKind{
	model.RegionText,
	model.RegionDataConst,
	model.RegionAuthConst,
	model.RegionData,
	model.RegionAuth,
	model.RegionLinkedit,
}

// Placement records the VM/file placement computed for one region.
type Placement struct {
	RegionID    model.RegionID
	CacheVMAddr addr.CacheVMAddress
	FileOffset  addr.CacheFileOffset
}

// Layout is the computed VM/file geometry for a sub-cache's regions.
type Layout struct {
	Placements  []Placement
	TotalVMSize addr.CacheVMSize
}

// LayoutContiguous implements the arm64-style contiguous VM layout: walk
// regions in dependency order; whenever the writable/executable
// permission would change between consecutive non-empty regions, insert
// cfg.RegionPadding bytes; every region and its chunks are page-aligned
// to cfg.RegionAlignment. totalVMSize is capped at cfg.CacheSize when
// nonzero.
func LayoutContiguous(arena *model.Arena, cfg config.Config, baseAddr addr.CacheVMAddress, regionIDs []model.RegionID) (*Layout, error) {
	l := &Layout{}
	vmAddr := baseAddr
	fileOff := addr.CacheFileOffset(0)
	var lastWritable *bool

	order := orderRegions(arena, regionIDs)
	for _, rid := range order {
		r := arena.Region(rid)
		if r.Empty() {
			continue
		}
		writable := r.Kind.Writable()
		if lastWritable != nil && *lastWritable != writable {
			vmAddr = addr.CacheVMAddress(addr.AlignUp(uint64(vmAddr)+cfg.RegionPadding, cfg.RegionAlignment))
			fileOff = addr.CacheFileOffset(addr.AlignUp(uint64(fileOff)+cfg.RegionPadding, cfg.RegionAlignment))
		}
		vmAddr = addr.CacheVMAddress(addr.AlignUp(uint64(vmAddr), cfg.RegionAlignment))
		fileOff = addr.CacheFileOffset(addr.AlignUp(uint64(fileOff), cfg.RegionAlignment))

		l.Placements = append(l.Placements, Placement{RegionID: rid, CacheVMAddr: vmAddr, FileOffset: fileOff})

		size := regionVMSize(arena, r)
		vmAddr = vmAddr.Add(addr.VMOffset(size))
		if r.Kind != model.RegionUnmapped {
			fileOff = fileOff.Add(addr.CacheFileSize(size))
		}
		w := writable
		lastWritable = &w
	}

	l.TotalVMSize = addr.CacheVMSize(uint64(vmAddr) - uint64(baseAddr))
	if cfg.CacheSize != 0 && uint64(l.TotalVMSize) > cfg.CacheSize {
		return nil, cerrors.Wrap(cerrors.CapacityExceeded, nil, "contiguous layout needs %d bytes of VM, cache size is %d", l.TotalVMSize, cfg.CacheSize)
	}
	return l, nil
}

// band is one of the DiscontiguousSim policy's fixed VM ranges.
type band struct {
	kind      model.RegionKind
	baseAddr  addr.CacheVMAddress
	sizeLimit uint64
}

// LayoutDiscontiguousSim implements the x86_64-simulator policy: TEXT,
// DATA, and LINKEDIT each get a fixed VM range from cfg; a region whose
// content would overflow its band's sizeLimit is a hard CapacityExceeded
// error rather than spilling into the next band.
func LayoutDiscontiguousSim(arena *model.Arena, cfg config.Config, bands map[model.RegionKind]struct {
	BaseAddr  addr.CacheVMAddress
	SizeLimit uint64
}, regionIDs []model.RegionID) (*Layout, error) {
	l := &Layout{}
	used := map[model.RegionKind]uint64{}

	for _, rid := range regionIDs {
		r := arena.Region(rid)
		if r.Empty() {
			continue
		}
		b, ok := bands[r.Kind]
		if !ok {
			return nil, cerrors.Wrap(cerrors.InputInvalid, nil, "no fixed band configured for region kind %s", r.Kind)
		}
		size := regionVMSize(arena, r)
		offsetInBand := used[r.Kind]
		if offsetInBand+size > b.SizeLimit {
			return nil, cerrors.Wrap(cerrors.CapacityExceeded, nil, "region kind %s overflows its fixed band (%d > %d)", r.Kind, offsetInBand+size, b.SizeLimit)
		}
		vmAddr := addr.CacheVMAddress(addr.AlignUp(uint64(b.BaseAddr)+offsetInBand, cfg.RegionAlignment))
		l.Placements = append(l.Placements, Placement{RegionID: rid, CacheVMAddr: vmAddr, FileOffset: addr.CacheFileOffset(vmAddr)})
		used[r.Kind] += size
	}
	return l, nil
}

const gib = 1 << 30

// LayoutDiscontiguous implements the x86_64 policy: the first region
// starts on the 1 GiB boundary at or above baseAddr; whenever write
// permission toggles, the next region starts at the next 1 GiB boundary
// (no padding is added beyond that alignment). After every region, slack
// is reserved for Rosetta translation caches: half the remaining distance
// to the next 1 GiB boundary after a writable region, and that whole
// distance plus a further 1 GiB after any read-only region (TEXT as well
// as LINKEDIT).
func LayoutDiscontiguous(arena *model.Arena, cfg config.Config, baseAddr addr.CacheVMAddress, regionIDs []model.RegionID) (*Layout, error) {
	l := &Layout{}
	vmAddr := addr.CacheVMAddress(addr.AlignUp(uint64(baseAddr), gib))
	fileOff := addr.CacheFileOffset(0)
	var lastWritable *bool

	order := orderRegions(arena, regionIDs)
	for _, rid := range order {
		r := arena.Region(rid)
		if r.Empty() {
			continue
		}
		writable := r.Kind.Writable()
		if lastWritable != nil && *lastWritable != writable {
			vmAddr = addr.CacheVMAddress(addr.AlignUp(uint64(vmAddr), gib))
		}
		l.Placements = append(l.Placements, Placement{RegionID: rid, CacheVMAddr: vmAddr, FileOffset: fileOff})

		size := regionVMSize(arena, r)
		vmAddr = vmAddr.Add(addr.VMOffset(size))
		if r.Kind != model.RegionUnmapped {
			fileOff = fileOff.Add(addr.CacheFileSize(size))
		}

		slackTo1G := addr.AlignUp(uint64(vmAddr), gib) - uint64(vmAddr)
		if writable {
			vmAddr = vmAddr.Add(addr.VMOffset(slackTo1G / 2))
		} else {
			vmAddr = vmAddr.Add(addr.VMOffset(slackTo1G + gib))
		}
		w := writable
		lastWritable = &w
	}

	l.TotalVMSize = addr.CacheVMSize(uint64(vmAddr) - uint64(baseAddr))
	return l, nil
}

func orderRegions(arena *model.Arena, regionIDs []model.RegionID) []model.RegionID {
	byKind := map[model.RegionKind][]model.RegionID{}
	for _, rid := range regionIDs {
		k := arena.Region(rid).Kind
		byKind[k] = append(byKind[k], rid)
	}
	var out []model.RegionID
	for _, k := range regionOrder {
		out = append(out, byKind[k]...)
	}
	return out
}

func regionVMSize(arena *model.Arena, r *model.Region) uint64 {
	var total uint64
	for _, cid := range r.Chunks {
		c := arena.Chunk(cid)
		total += uint64(c.CacheVMSize)
	}
	return total
}
