package layout

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestPartitionRegularPutsEverythingInOneSubCache(t *testing.T) {
	arena := model.NewArena()
	dylibs := []*model.CacheDylib{
		{InstallName: "/usr/lib/libA.dylib", CacheIndex: 0, Input: &model.InputFile{Size: 100}},
		{InstallName: "/usr/lib/libB.dylib", CacheIndex: 1, Input: &model.InputFile{Size: 200}},
	}
	plan, err := PartitionRegular(arena, dylibs)
	if err != nil {
		t.Fatalf("PartitionRegular: %v", err)
	}
	if len(plan.SubCaches) != 1 {
		t.Fatalf("SubCaches = %d, want 1", len(plan.SubCaches))
	}
	for _, d := range dylibs {
		if plan.Assignment[d.CacheIndex] != plan.SubCaches[0].ID {
			t.Fatalf("dylib %s not assigned to the single sub-cache", d.InstallName)
		}
	}
}

func TestPartitionLargeContiguousSplitsOnTextLimit(t *testing.T) {
	arena := model.NewArena()
	cfg := config.Default()
	cfg.SubCacheTextLimit = 150
	dylibs := []*model.CacheDylib{
		{InstallName: "/usr/lib/libA.dylib", CacheIndex: 0, Input: &model.InputFile{Size: 100}},
		{InstallName: "/usr/lib/libB.dylib", CacheIndex: 1, Input: &model.InputFile{Size: 100}},
	}
	plan, err := PartitionLargeContiguous(arena, cfg, dylibs)
	if err != nil {
		t.Fatalf("PartitionLargeContiguous: %v", err)
	}
	if len(plan.SubCaches) != 2 {
		t.Fatalf("SubCaches = %d, want 2 (100+100 > 150 limit)", len(plan.SubCaches))
	}
	if plan.Assignment[0] == plan.Assignment[1] {
		t.Fatal("expected the two dylibs to land in different sub-caches")
	}
}

func TestLayoutContiguousInsertsPaddingOnPermissionChange(t *testing.T) {
	arena := model.NewArena()
	cfg := config.Default()
	cfg.RegionPadding = 0x4000
	cfg.RegionAlignment = 0x4000

	text := arena.NewRegion(model.RegionText)
	data := arena.NewRegion(model.RegionDataConst)

	c1 := arena.NewChunk(model.ChunkDylibSegment, "__TEXT", 0x4000)
	c1.CacheVMSize = 0x4000
	text.Append(c1.ID)

	c2 := arena.NewChunk(model.ChunkDylibSegment, "__DATA_CONST", 0x4000)
	c2.CacheVMSize = 0x4000
	data.Append(c2.ID)

	ids := []model.RegionID{arena.RegionID(text), arena.RegionID(data)}
	l, err := LayoutContiguous(arena, cfg, addr.CacheVMAddress(0x1_8000_0000), ids)
	if err != nil {
		t.Fatalf("LayoutContiguous: %v", err)
	}
	if len(l.Placements) != 2 {
		t.Fatalf("Placements = %d, want 2", len(l.Placements))
	}
	gap := uint64(l.Placements[1].CacheVMAddr) - uint64(l.Placements[0].CacheVMAddr)
	if gap < uint64(c1.CacheVMSize)+cfg.RegionPadding {
		t.Fatalf("expected padding between TEXT and DATA_CONST, gap = %#x", gap)
	}
}

func TestLayoutContiguousExceedsCacheSize(t *testing.T) {
	arena := model.NewArena()
	cfg := config.Default()
	cfg.CacheSize = 0x1000

	text := arena.NewRegion(model.RegionText)
	c1 := arena.NewChunk(model.ChunkDylibSegment, "__TEXT", 0x4000)
	c1.CacheVMSize = 0x2_0000
	text.Append(c1.ID)

	_, err := LayoutContiguous(arena, cfg, addr.CacheVMAddress(0x1_8000_0000), []model.RegionID{arena.RegionID(text)})
	if err == nil {
		t.Fatal("expected a capacity error")
	}
}

func TestPartitionLargeUniversalWiresStubsChildren(t *testing.T) {
	arena := model.NewArena()
	cfg := config.Default()
	cfg.Kind = config.KindUniversal
	cfg.LayoutMode = config.LayoutLargeUniversal
	cfg.SubCacheTextLimit = 150
	cfg.SubCacheStubsLimit = 50
	dylibs := []*model.CacheDylib{
		{InstallName: "/usr/lib/libA.dylib", CacheIndex: 0, Input: &model.InputFile{Size: 100}},
		{InstallName: "/usr/lib/libB.dylib", CacheIndex: 1, Input: &model.InputFile{Size: 100}},
	}

	plan, err := Partition(arena, cfg, dylibs)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}

	var dev, cust *model.SubCache
	var stubsDev, stubsCust, subs int
	for _, sc := range plan.SubCaches {
		switch sc.Kind {
		case model.SubCacheMainDevelopment:
			dev = sc
		case model.SubCacheMainCustomer:
			cust = sc
		case model.SubCacheStubsDevelopment:
			stubsDev++
		case model.SubCacheStubsCustomer:
			stubsCust++
		case model.SubCacheSub:
			subs++
		}
	}
	if dev == nil || cust == nil {
		t.Fatal("universal build must produce both main caches")
	}
	if subs != 1 {
		t.Fatalf("sub caches = %d, want 1 (second 100-byte dylib splits off)", subs)
	}
	// The sub exceeds the 50-byte stubs limit, so one stubs pair exists.
	if stubsDev != 1 || stubsCust != 1 {
		t.Fatalf("stubs = %d dev / %d customer, want 1/1", stubsDev, stubsCust)
	}

	for _, childID := range dev.Children {
		if arena.SubCache(childID).Kind == model.SubCacheStubsCustomer {
			t.Fatal("development main must not reference a customer stubs cache")
		}
	}
	for _, childID := range cust.Children {
		if arena.SubCache(childID).Kind == model.SubCacheStubsDevelopment {
			t.Fatal("customer main must not reference a development stubs cache")
		}
	}
}

func TestPartitionAssignsFileSuffixes(t *testing.T) {
	arena := model.NewArena()
	cfg := config.Default()
	cfg.Kind = config.KindUniversal
	cfg.LayoutMode = config.LayoutLargeUniversal
	cfg.SubCacheTextLimit = 150
	cfg.SubCacheStubsLimit = 0
	cfg.LocalSymbolsMode = config.LocalSymbolsUnmap
	dylibs := []*model.CacheDylib{
		{InstallName: "/usr/lib/libA.dylib", CacheIndex: 0, Input: &model.InputFile{Size: 100}},
		{InstallName: "/usr/lib/libB.dylib", CacheIndex: 1, Input: &model.InputFile{Size: 100}},
	}

	plan, err := Partition(arena, cfg, dylibs)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}

	suffixes := map[model.SubCacheKind]string{}
	for _, sc := range plan.SubCaches {
		suffixes[sc.Kind] = sc.FileSuffix
	}
	if suffixes[model.SubCacheMainDevelopment] != ".development" {
		t.Fatalf("development suffix = %q, want .development", suffixes[model.SubCacheMainDevelopment])
	}
	if suffixes[model.SubCacheMainCustomer] != "" {
		t.Fatalf("customer suffix = %q, want the unsuffixed name", suffixes[model.SubCacheMainCustomer])
	}
	if suffixes[model.SubCacheSub] != ".01" {
		t.Fatalf("sub suffix = %q, want .01", suffixes[model.SubCacheSub])
	}
	if suffixes[model.SubCacheSymbols] != ".symbols" {
		t.Fatalf("symbols suffix = %q, want .symbols", suffixes[model.SubCacheSymbols])
	}
}
