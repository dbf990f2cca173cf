package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestEstimatePatchTableGrowsWithBindTargets(t *testing.T) {
	dylibs := []*model.CacheDylib{
		{CacheIndex: 0, BindTargets: []model.BindTarget{{}, {}}},
		{CacheIndex: 1, BindTargets: []model.BindTarget{{}}},
	}
	got := &GOTResult{
		Slots: []GOTSlot{
			{Key: gotKey{InstallName: "/usr/lib/libSystem.B.dylib", SymbolName: "malloc"}, Index: 0},
		},
		PerDylibMap: map[model.DylibIndex]map[addr.VMOffset]int{
			0: {0: 0},
		},
	}
	pt := EstimatePatchTable(dylibs, got)
	if pt.NDylibs != 2 {
		t.Fatalf("NDylibs = %d, want 2", pt.NDylibs)
	}
	if pt.NBinds != 3 {
		t.Fatalf("NBinds = %d, want 3", pt.NBinds)
	}
	if pt.NBindTargets != 1 {
		t.Fatalf("NBindTargets = %d, want 1", pt.NBindTargets)
	}
	if pt.NClients != 1 {
		t.Fatalf("NClients = %d, want 1", pt.NClients)
	}
	if pt.Size <= sizeofPatchInfoV3 {
		t.Fatalf("Size = %d, want strictly greater than the fixed header", pt.Size)
	}
}

func TestEstimatePatchTableEmptyInputs(t *testing.T) {
	pt := EstimatePatchTable(nil, nil)
	if pt.Size != sizeofPatchInfoV3 {
		t.Fatalf("Size = %d, want exactly the fixed header for no inputs", pt.Size)
	}
}

func TestEmitPatchTableMaterializesRecords(t *testing.T) {
	libSystem := &model.CacheDylib{InstallName: "/usr/lib/libSystem.B.dylib", CacheIndex: 0}
	a := &model.CacheDylib{InstallName: "/usr/lib/A.dylib", CacheIndex: 1}
	b := &model.CacheDylib{InstallName: "/usr/lib/B.dylib", CacheIndex: 2}
	dylibs := []*model.CacheDylib{libSystem, a, b}

	uses := []DylibGOTUses{
		{Dylib: 1, Uses: []GOTUse{{TargetInstallName: "/usr/lib/libSystem.B.dylib", TargetSymbolName: "malloc", SiteOffset: 0x10}}},
		{Dylib: 2, Uses: []GOTUse{{TargetInstallName: "/usr/lib/libSystem.B.dylib", TargetSymbolName: "malloc", SiteOffset: 0x20}}},
	}
	got := EmitUniquedGOTs(uses)

	pt := EmitPatchTable(dylibs, uses, got)

	if len(pt.Exports) != 1 {
		t.Fatalf("Exports = %d, want 1 (malloc dedups to one slot)", len(pt.Exports))
	}
	exp := pt.Exports[0]
	if exp.Image != 0 || exp.SymbolName != "malloc" || exp.Slot != 0 {
		t.Fatalf("export = %+v, want malloc owned by libSystem at slot 0", exp)
	}

	if len(pt.Locations) != 2 {
		t.Fatalf("Locations = %d, want one per client use site", len(pt.Locations))
	}
	if pt.Locations[0].Client != 1 || pt.Locations[1].Client != 2 {
		t.Fatalf("locations out of client order: %+v", pt.Locations)
	}
	for _, loc := range pt.Locations {
		if loc.Slot != 0 {
			t.Fatalf("location %+v does not reference the deduplicated slot", loc)
		}
	}

	if len(pt.Images) != 1 {
		t.Fatalf("Images = %d, want only libSystem's row", len(pt.Images))
	}
	row := pt.Images[0]
	if row.Image != 0 || row.NExports != 1 || row.NClients != 2 {
		t.Fatalf("image row = %+v, want libSystem with 1 export and 2 clients", row)
	}
}
