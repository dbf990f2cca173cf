package cache

import (
	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/layout"
	"github.com/cachebuild/dyldcache/cache/model"
)

// defaultCacheBaseAddress is the VM address the first sub-cache's __TEXT
// region starts at when Config.CacheBaseAddress is left at zero, matching
// the base dyld has historically reserved for arm64 shared caches.
const defaultCacheBaseAddress = 0x180000000

// estimateDylibSize approximates a cache dylib's footprint for chunk
// sizing, the same conservative whole-file-size stand-in
// cache/layout.estimateTextSize uses for partitioning: the real figure
// depends on per-segment section sizes this builder does not retain
// separately from the input buffer.
func estimateDylibSize(d *model.CacheDylib) uint64 {
	if d.Input == nil {
		return 0
	}
	return uint64(d.Input.Size)
}

// allocateSubCacheBuffers implements allocate_sub_cache_buffers: for each
// sub-cache in plan, it builds one __TEXT region holding one DylibSegment
// chunk per assigned dylib, runs the selected VM layout over it, stamps
// every Region/Chunk with its final VM address and file offset, sizes and
// allocates the sub-cache's backing buffer, and assigns each dylib its
// CacheLoadAddress from its chunk's placement. Sub-caches are laid out
// sequentially, each starting past the previous one's aligned end.
//
// Contiguous and Discontiguous layouts are driven here; DiscontiguousSim
// needs a fixed VM-band table this builder's Config does not carry, so a
// simulator configuration must call layout.LayoutDiscontiguousSim with
// its own bands rather than invent defaults here.
func (b *Builder) allocateSubCacheBuffers(plan *layout.Plan) error {
	bySubCache := map[model.SubCacheID][]*model.CacheDylib{}
	for _, d := range b.dylibs {
		sc := plan.Assignment[d.CacheIndex]
		bySubCache[sc] = append(bySubCache[sc], d)
	}

	baseAddr := addr.CacheVMAddress(b.cfg.CacheBaseAddress)
	if baseAddr == 0 {
		baseAddr = defaultCacheBaseAddress
	}

	nextBase := baseAddr
	for _, sc := range plan.SubCaches {
		dylibs := bySubCache[sc.ID]

		region := b.arena.NewRegion(model.RegionText)
		region.SubCache = sc.ID
		for _, d := range dylibs {
			c := b.arena.NewChunk(model.ChunkDylibSegment, "__TEXT", uint32(b.cfg.RegionAlignment))
			c.Owner = d.CacheIndex
			size := estimateDylibSize(d)
			c.CacheVMSize = addr.CacheVMSize(size)
			c.SubCacheFileSize = addr.CacheFileSize(size)
			region.Append(c.ID)
			d.Segments = append(d.Segments, c.ID)
		}
		regionID := b.arena.RegionID(region)
		sc.Regions = append(sc.Regions, regionID)

		var (
			l   *layout.Layout
			err error
		)
		if b.cfg.LayoutMode == config.LayoutDiscontiguous {
			l, err = layout.LayoutDiscontiguous(b.arena, b.cfg, nextBase, sc.Regions)
		} else {
			l, err = layout.LayoutContiguous(b.arena, b.cfg, nextBase, sc.Regions)
		}
		if err != nil {
			return err
		}
		applyPlacements(b.arena, sc, l)

		bufSize := addr.AlignUp(uint64(l.TotalVMSize), uint64(b.cfg.PageSize))
		nextBase = nextBase.Add(addr.VMOffset(bufSize + b.cfg.RegionPadding))
		if err := sc.SetBuffer(model.BackingAnonymous, int(bufSize), ""); err != nil {
			return err
		}

		for _, d := range dylibs {
			if len(d.Segments) == 0 {
				continue
			}
			c := b.arena.Chunk(d.Segments[0])
			d.SetCacheLoadAddress(c.CacheVMAddr)
		}
	}
	return nil
}

// applyPlacements stamps every region's and chunk's final VM/file geometry
// from a computed Layout, packing a region's chunks back-to-back from the
// region's own placement, each aligned to its own Chunk.Alignment.
func applyPlacements(arena *model.Arena, sc *model.SubCache, l *layout.Layout) {
	for _, p := range l.Placements {
		r := arena.Region(p.RegionID)
		r.SubCacheVMAddr = p.CacheVMAddr
		r.SubCacheFileOff = p.FileOffset

		vmAddr := p.CacheVMAddr
		fileOff := p.FileOffset
		for _, cid := range r.Chunks {
			c := arena.Chunk(cid)
			vmAddr = addr.CacheVMAddress(addr.AlignUp(uint64(vmAddr), uint64(c.Alignment)))
			fileOff = addr.CacheFileOffset(addr.AlignUp(uint64(fileOff), uint64(c.Alignment)))

			c.Allocated = true
			c.SubCache = sc.ID
			c.CacheVMAddr = vmAddr
			c.SubCacheFileOff = fileOff

			vmAddr = vmAddr.Add(addr.VMOffset(c.CacheVMSize))
			if !c.ZeroFill {
				fileOff = fileOff.Add(c.SubCacheFileSize)
			}
		}
		r.SubCacheVMSize = addr.CacheVMSize(uint64(vmAddr) - uint64(p.CacheVMAddr))
		r.SubCacheFileSize = addr.CacheFileSize(uint64(fileOff) - uint64(p.FileOffset))
	}
}
