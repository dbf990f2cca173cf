package finalize

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestComputeCacheHeadersBuildsMappingsAndImages(t *testing.T) {
	arena := model.NewArena()
	sc := arena.NewSubCache(model.SubCacheMainDevelopment)

	r := arena.NewRegion(model.RegionText)
	r.SubCache = sc.ID
	r.SubCacheVMAddr = addr.CacheVMAddress(0x1000)
	r.SubCacheVMSize = addr.CacheVMSize(0x4000)
	sc.Regions = append(sc.Regions, arena.RegionID(r))

	seg := arena.NewChunk(model.ChunkDylibSegment, "__TEXT", 0x4000)
	seg.Allocated = true
	seg.SubCache = sc.ID

	d := &model.CacheDylib{CacheIndex: 0, InstallName: "/usr/lib/libfoo.dylib", Segments: []model.ChunkID{seg.ID}}
	d.SetCacheLoadAddress(addr.CacheVMAddress(0x1000))

	res := &emit.Result{Slide: map[model.SubCacheID]*emit.SlideInfo{}}

	headers := ComputeCacheHeaders(arena, res, []*model.CacheDylib{d})
	h, ok := headers[sc.ID]
	if !ok {
		t.Fatal("expected a header for the sub-cache")
	}
	if len(h.Mappings) != 1 {
		t.Fatalf("Mappings = %v, want 1", h.Mappings)
	}
	if len(h.Images) != 1 || h.Images[0].Dylib != 0 {
		t.Fatalf("Images = %+v, want one entry for dylib 0", h.Images)
	}
}

func TestComputeCacheHeadersRecordsMainCacheChildren(t *testing.T) {
	arena := model.NewArena()
	child := arena.NewSubCache(model.SubCacheSub)
	child.FileSuffix = ".1"
	main := arena.NewSubCache(model.SubCacheMainDevelopment)
	main.Children = append(main.Children, child.ID)

	headers := ComputeCacheHeaders(arena, &emit.Result{Slide: map[model.SubCacheID]*emit.SlideInfo{}}, nil)
	h := headers[main.ID]
	if len(h.SubCaches) != 1 || h.SubCaches[0].FileSuffix != ".1" {
		t.Fatalf("SubCaches = %+v, want one entry with suffix .1", h.SubCaches)
	}
}
