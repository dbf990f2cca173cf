package finalize

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestFinalizerRunSignsChildrenBeforeMain(t *testing.T) {
	arena := model.NewArena()

	child := arena.NewSubCache(model.SubCacheSub)
	child.FileSuffix = ".1"
	if err := child.SetBuffer(model.BackingAnonymous, 4096, ""); err != nil {
		t.Fatalf("SetBuffer failed: %v", err)
	}

	main := arena.NewSubCache(model.SubCacheMainDevelopment)
	main.Children = append(main.Children, child.ID)
	if err := main.SetBuffer(model.BackingAnonymous, 4096, ""); err != nil {
		t.Fatalf("SetBuffer failed: %v", err)
	}

	r := arena.NewRegion(model.RegionText)
	r.SubCache = main.ID
	r.SubCacheVMAddr = addr.CacheVMAddress(0x1000)
	main.Regions = append(main.Regions, arena.RegionID(r))

	cfg := config.Default()
	res := &emit.Result{Slide: map[model.SubCacheID]*emit.SlideInfo{}}

	f := New(cfg, arena, res, nil)
	out, err := f.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, ok := out.Signed[child.ID]; !ok {
		t.Fatal("expected the child sub-cache to be signed")
	}
	if _, ok := out.Signed[main.ID]; !ok {
		t.Fatal("expected the main sub-cache to be signed")
	}

	mainHeader := out.Headers[main.ID]
	if len(mainHeader.SubCaches) != 1 {
		t.Fatalf("SubCaches = %v, want 1 entry", mainHeader.SubCaches)
	}
	childHeader := out.Headers[child.ID]
	if mainHeader.SubCaches[0].UUID != childHeader.UUID {
		t.Fatalf("main's recorded child UUID %v != child's own UUID %v", mainHeader.SubCaches[0].UUID, childHeader.UUID)
	}
}
