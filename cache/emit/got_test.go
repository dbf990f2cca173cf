package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestEmitUniquedGOTsOrdersBySystemPriority(t *testing.T) {
	perDylib := []DylibGOTUses{
		{Dylib: 0, Uses: []GOTUse{
			{TargetInstallName: "/usr/lib/libfoo.dylib", TargetSymbolName: "foo", SiteOffset: 0},
			{TargetInstallName: "/usr/lib/libSystem.B.dylib", TargetSymbolName: "malloc", SiteOffset: 8},
			{TargetInstallName: "/usr/lib/system/libdyld.dylib", TargetSymbolName: "dyld_stub", SiteOffset: 16},
		}},
	}
	res := EmitUniquedGOTs(perDylib)
	if len(res.Slots) != 3 {
		t.Fatalf("len(Slots) = %d, want 3", len(res.Slots))
	}
	if res.Slots[0].Key.InstallName != "/usr/lib/libSystem.B.dylib" {
		t.Fatalf("Slots[0] = %+v, want libSystem.B first", res.Slots[0])
	}
	if res.Slots[1].Key.InstallName != "/usr/lib/system/libdyld.dylib" {
		t.Fatalf("Slots[1] = %+v, want libdyld second", res.Slots[1])
	}
	if res.Slots[2].Key.InstallName != "/usr/lib/libfoo.dylib" {
		t.Fatalf("Slots[2] = %+v, want libfoo last", res.Slots[2])
	}
}

func TestEmitUniquedGOTsDedupsAcrossDylibs(t *testing.T) {
	perDylib := []DylibGOTUses{
		{Dylib: 0, Uses: []GOTUse{{TargetInstallName: "/usr/lib/libfoo.dylib", TargetSymbolName: "foo", SiteOffset: 0}}},
		{Dylib: 1, Uses: []GOTUse{{TargetInstallName: "/usr/lib/libfoo.dylib", TargetSymbolName: "foo", SiteOffset: 40}}},
	}
	res := EmitUniquedGOTs(perDylib)
	if len(res.Slots) != 1 {
		t.Fatalf("len(Slots) = %d, want 1", len(res.Slots))
	}
	idx0 := res.PerDylibMap[model.DylibIndex(0)][addr.VMOffset(0)]
	idx1 := res.PerDylibMap[model.DylibIndex(1)][addr.VMOffset(40)]
	if idx0 != idx1 {
		t.Fatalf("dylib 0 and 1 resolved to different slots: %d vs %d", idx0, idx1)
	}
}
