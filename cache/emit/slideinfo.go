package emit

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/cerrors"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/dylibpass"
	"github.com/cachebuild/dyldcache/cache/model"
)

// slideInfoNoFixup marks a page with no rebase sites: dyld_cache_slide_info
// writes this sentinel into a page's entry instead of a chain start offset.
const slideInfoNoFixup = -1

// SlidePage is one slide-info page's rebase chain, in in-page-offset
// order. The real v3 format threads these offsets as an in-place linked
// list written directly into the page's own fixup slots; this builder
// keeps the decoded chain as a plain slice, and no later phase writes it
// back into the page bytes.
type SlidePage struct {
	Index   int
	Offsets []uint32 // ascending, relative to the start of the page
}

// SlideInfo is one sub-cache's computed slide info: the page size it
// was chunked at and every page that carries at least one rebase site.
// Pages with no entry have no rebase sites at all.
type SlideInfo struct {
	Format   int
	PageSize uint32
	BaseAddr addr.CacheVMAddress
	Pages    []SlidePage
}

// ComputeSlideInfo builds one SlideInfo per sub-cache from the fixup
// sites dylibpass recorded in aslr, chunking each sub-cache's regions
// into cfg.SlideInfoPageSize pages. Only format 3 (the modern default)
// is built; a request for any other format fails with
// FormatUnsupported, since v1/v2's narrower per-page fixup counts are
// not something any input in this builder's supported platform range
// still needs.
func ComputeSlideInfo(cfg config.Config, arena *model.Arena, aslr *dylibpass.ASLRTracker, dylibs []*model.CacheDylib) (map[model.SubCacheID]*SlideInfo, error) {
	if cfg.SlideInfoFormat != 3 {
		return nil, cerrors.Wrap(cerrors.FormatUnsupported, nil, "slide info format %d not supported", cfg.SlideInfoFormat)
	}

	pageSize := cfg.SlideInfoPageSize
	if pageSize == 0 {
		pageSize = 0x4000
	}

	out := map[model.SubCacheID]*SlideInfo{}
	for _, sc := range arena.AllSubCaches() {
		base, ok := minWritableVMAddr(arena, sc.ID)
		if !ok {
			continue // no writable region, no slide info needed
		}

		fixups := aslr.Fixups(sc.ID)
		if len(fixups) == 0 {
			continue
		}

		pages := map[int][]uint32{}
		for _, f := range fixups {
			rel := uint64(f.Sub(base))
			idx := int(rel / uint64(pageSize))
			off := uint32(rel % uint64(pageSize))
			pages[idx] = append(pages[idx], off)
		}

		var indices []int
		for idx := range pages {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		si := &SlideInfo{Format: 3, PageSize: pageSize, BaseAddr: base}
		for _, idx := range indices {
			offs := append([]uint32(nil), pages[idx]...)
			sort.Slice(offs, func(i, j int) bool { return offs[i] < offs[j] })
			si.Pages = append(si.Pages, SlidePage{Index: idx, Offsets: offs})
		}
		out[sc.ID] = si
	}
	return out, nil
}

// minWritableVMAddr returns the lowest SubCacheVMAddr among sc's
// writable regions, the base slide info offsets are computed relative
// to (rebase sites never occur in read-only regions).
func minWritableVMAddr(arena *model.Arena, sc model.SubCacheID) (addr.CacheVMAddress, bool) {
	var base addr.CacheVMAddress
	found := false
	for _, r := range arena.AllRegions() {
		if r.SubCache != sc || !r.Kind.Writable() {
			continue
		}
		if !found || r.SubCacheVMAddr < base {
			base = r.SubCacheVMAddr
			found = true
		}
	}
	return base, found
}
