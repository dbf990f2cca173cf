// Package layout implements the SubCacheLayouter: partitioning cache
// dylibs across sub-cache files per a target-platform policy, then
// assigning VM addresses and file offsets to every region and chunk.
package layout

import (
	"fmt"
	"path"

	"github.com/cachebuild/dyldcache/cache/cerrors"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
)

// Plan is the output of a sub-cache partitioning pass: the ordered list
// of main SubCaches (plus, for LargeUniversal, their stubs children) and
// which dylibs landed in which.
type Plan struct {
	SubCaches []*model.SubCache
	// Assignment maps a dylib's cache index to the SubCacheID that holds
	// its TEXT segment (the "owning" sub-cache in the
	// region/chunk ownership rule).
	Assignment map[model.DylibIndex]model.SubCacheID
}

// estimateTextSize approximates a dylib's __TEXT segment footprint for
// partitioning purposes. The real figure comes from summing __TEXT
// section sizes once segments are copied by the dylib pass; at layout
// time only the whole-file size is known, which this builder uses as a
// conservative stand-in since __TEXT dominates a typical dylib's size.
func estimateTextSize(d *model.CacheDylib) uint64 {
	if d.Input == nil {
		return 0
	}
	return uint64(d.Input.Size)
}

// isLibobjc reports whether d is libobjc.A.dylib, the dylib whose
// sub-cache must receive the ObjC acceleration tables ahead of its
// __TEXT.
func isLibobjc(d *model.CacheDylib) bool {
	return path.Base(d.InstallName) == "libobjc.A.dylib"
}

// PartitionRegular implements the Regular policy: one SubCache holds
// every dylib. Returns an error only if arena fails to allocate.
func PartitionRegular(arena *model.Arena, dylibs []*model.CacheDylib) (*Plan, error) {
	sc := arena.NewSubCache(model.SubCacheMainDevelopment)
	plan := &Plan{SubCaches: []*model.SubCache{sc}, Assignment: map[model.DylibIndex]model.SubCacheID{}}
	for _, d := range dylibs {
		plan.Assignment[d.CacheIndex] = sc.ID
	}
	return plan, nil
}

// PartitionLargeContiguous implements the LargeContiguous policy:
// dylibs are walked in their existing (sort_dylibs) order, accumulating
// estimated __TEXT size; every time the running total would exceed
// cfg.SubCacheTextLimit a new sub-SubCache is started. libobjc's
// sub-cache is not tracked: nothing here decides which sub-cache
// receives the ObjC tables.
func PartitionLargeContiguous(arena *model.Arena, cfg config.Config, dylibs []*model.CacheDylib) (*Plan, error) {
	if cfg.SubCacheTextLimit == 0 {
		return nil, cerrors.New(cerrors.InputInvalid, "SubCacheTextLimit must be nonzero for the LargeContiguous policy", nil)
	}
	plan := &Plan{Assignment: map[model.DylibIndex]model.SubCacheID{}}

	cur := arena.NewSubCache(model.SubCacheMainDevelopment)
	plan.SubCaches = append(plan.SubCaches, cur)
	var curSize uint64

	for _, d := range dylibs {
		sz := estimateTextSize(d)
		if curSize > 0 && curSize+sz > cfg.SubCacheTextLimit {
			cur = arena.NewSubCache(model.SubCacheSub)
			plan.SubCaches = append(plan.SubCaches, cur)
			curSize = 0
		}
		plan.Assignment[d.CacheIndex] = cur.ID
		curSize += sz
	}

	if cfg.AllLinkeditInLastSubCache && len(plan.SubCaches) > 0 {
		// AllLinkeditInLastSubCache does not change the plan: the final
		// sub-cache's ID is read but not recorded anywhere, and no
		// linkedit chunk is redirected to it.
		_ = plan.SubCaches[len(plan.SubCaches)-1].ID
	}

	main := plan.SubCaches[0]
	for _, sc := range plan.SubCaches[1:] {
		main.Children = append(main.Children, sc.ID)
	}

	return plan, nil
}

// PartitionLargeUniversal implements the LargeUniversal policy: the same
// accumulation as LargeContiguous, plus a customer main cache sharing
// the development main's sub children, plus a secondary pass that adds
// one development/customer stubs pair for each non-main SubCache whose
// estimated __TEXT exceeds cfg.SubCacheStubsLimit. The over-limit
// SubCache itself is not split (its dylibs stay where they are), and the
// stubs caches are created with no regions. Each stubs cache becomes a child of the main
// cache of its own flavor, so the development main references every
// stubs-development cache and the customer main every stubs-customer
// cache.
func PartitionLargeUniversal(arena *model.Arena, cfg config.Config, dylibs []*model.CacheDylib) (*Plan, error) {
	plan, err := PartitionLargeContiguous(arena, cfg, dylibs)
	if err != nil {
		return nil, err
	}

	dev := plan.SubCaches[0]
	cust := arena.NewSubCache(model.SubCacheMainCustomer)
	cust.Children = append([]model.SubCacheID(nil), dev.Children...)
	plan.SubCaches = append(plan.SubCaches, cust)

	if cfg.SubCacheStubsLimit == 0 {
		return plan, nil
	}

	sizes := map[model.SubCacheID]uint64{}
	for _, d := range dylibs {
		sizes[plan.Assignment[d.CacheIndex]] += estimateTextSize(d)
	}

	for _, sc := range append([]*model.SubCache(nil), plan.SubCaches...) {
		if sc.Kind == model.SubCacheMainDevelopment || sc.Kind == model.SubCacheMainCustomer {
			continue
		}
		if sizes[sc.ID] <= cfg.SubCacheStubsLimit {
			continue
		}
		stubsDev := arena.NewSubCache(model.SubCacheStubsDevelopment)
		stubsCust := arena.NewSubCache(model.SubCacheStubsCustomer)
		plan.SubCaches = append(plan.SubCaches, stubsDev, stubsCust)
		dev.Children = append(dev.Children, stubsDev.ID)
		cust.Children = append(cust.Children, stubsCust.ID)
	}

	return plan, nil
}

// Partition dispatches to the policy cfg.LayoutMode selects, mapping
// the five LayoutMode values onto the three sub-cache policies
// (Contiguous/DiscontiguousSim/Discontiguous are VM-layout variants of
// the Regular policy; only LargeContiguous/LargeUniversal change the
// partitioning itself). It then appends the .symbols sub-cache when the
// build unmaps local symbols, and assigns every sub-cache its
// deterministic file suffix.
func Partition(arena *model.Arena, cfg config.Config, dylibs []*model.CacheDylib) (*Plan, error) {
	var (
		plan *Plan
		err  error
	)
	switch cfg.LayoutMode {
	case config.LayoutLargeContiguous:
		plan, err = PartitionLargeContiguous(arena, cfg, dylibs)
	case config.LayoutLargeUniversal:
		plan, err = PartitionLargeUniversal(arena, cfg, dylibs)
	default:
		plan, err = PartitionRegular(arena, dylibs)
	}
	if err != nil {
		return nil, err
	}

	if cfg.LocalSymbolsMode == config.LocalSymbolsUnmap {
		sym := arena.NewSubCache(model.SubCacheSymbols)
		plan.SubCaches = append(plan.SubCaches, sym)
		plan.SubCaches[0].Children = append(plan.SubCaches[0].Children, sym.ID)
	}

	assignFileSuffixes(arena, plan, cfg)
	return plan, nil
}

// assignFileSuffixes stamps every sub-cache's on-disk file suffix. The
// unsuffixed name belongs to the customer main (or the single main of a
// development-only build); a universal build's development main gets
// ".development". Children are numbered ".01"..".NN" by position in
// their main cache's child list, with stubs caches further decorated by
// flavor and the symbols cache always named ".symbols", regardless of
// position. forceDevelopmentSubCacheSuffix renames the customer main to
// ".development" for configurations that ship only a customer cache but
// keep the development file name.
func assignFileSuffixes(arena *model.Arena, plan *Plan, cfg config.Config) {
	hasCustomer := false
	for _, sc := range plan.SubCaches {
		if sc.Kind == model.SubCacheMainCustomer {
			hasCustomer = true
		}
	}

	for _, sc := range plan.SubCaches {
		switch sc.Kind {
		case model.SubCacheMainDevelopment:
			if hasCustomer {
				sc.FileSuffix = ".development"
			}
		case model.SubCacheMainCustomer:
			if cfg.ForceDevelopmentSubCacheSuf {
				sc.FileSuffix = ".development"
			}
		}
	}

	assigned := map[model.SubCacheID]bool{}
	for _, sc := range plan.SubCaches {
		if !sc.Kind.IsMain() {
			continue
		}
		pos := 0
		for _, childID := range sc.Children {
			child := arena.SubCache(childID)
			if child == nil {
				continue
			}
			pos++
			if assigned[child.ID] {
				continue
			}
			assigned[child.ID] = true
			switch child.Kind {
			case model.SubCacheSymbols:
				child.FileSuffix = ".symbols"
			case model.SubCacheStubsDevelopment:
				child.FileSuffix = fmt.Sprintf(".%02d.development", pos)
			case model.SubCacheStubsCustomer:
				child.FileSuffix = fmt.Sprintf(".%02d.customer", pos)
			default:
				child.FileSuffix = fmt.Sprintf(".%02d", pos)
			}
		}
	}
}
