package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/dylibpass"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestComputeSlideInfoRejectsUnsupportedFormat(t *testing.T) {
	cfg := config.Default()
	cfg.SlideInfoFormat = 1
	_, err := ComputeSlideInfo(cfg, model.NewArena(), dylibpass.NewASLRTracker(), nil)
	if err == nil {
		t.Fatal("expected an error for slide info format 1")
	}
}

func TestComputeSlideInfoGroupsFixupsByPage(t *testing.T) {
	cfg := config.Default()
	cfg.SlideInfoFormat = 3
	cfg.SlideInfoPageSize = 0x1000

	arena := model.NewArena()
	sc := arena.NewSubCache(model.SubCacheMainDevelopment)
	r := arena.NewRegion(model.RegionDataConst)
	r.SubCache = sc.ID
	r.SubCacheVMAddr = addr.CacheVMAddress(0x10_0000)

	aslr := dylibpass.NewASLRTracker()
	aslr.Record(sc.ID, addr.CacheVMAddress(0x10_0000+8))
	aslr.Record(sc.ID, addr.CacheVMAddress(0x10_0000+16))
	aslr.Record(sc.ID, addr.CacheVMAddress(0x10_0000+0x1000+8))

	out, err := ComputeSlideInfo(cfg, arena, aslr, nil)
	if err != nil {
		t.Fatalf("ComputeSlideInfo failed: %v", err)
	}
	si, ok := out[sc.ID]
	if !ok {
		t.Fatal("expected slide info for the sub-cache")
	}
	if len(si.Pages) != 2 {
		t.Fatalf("len(Pages) = %d, want 2", len(si.Pages))
	}
	if si.Pages[0].Index != 0 || len(si.Pages[0].Offsets) != 2 {
		t.Fatalf("Pages[0] = %+v, want index 0 with 2 offsets", si.Pages[0])
	}
	if si.Pages[1].Index != 1 || len(si.Pages[1].Offsets) != 1 {
		t.Fatalf("Pages[1] = %+v, want index 1 with 1 offset", si.Pages[1])
	}
}
