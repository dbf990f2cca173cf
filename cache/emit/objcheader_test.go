package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

func TestEmitObjCHeaderInfoSkipsNonObjCDylibs(t *testing.T) {
	dylibs := []*model.CacheDylib{
		{CacheIndex: 1, IsObjC: true},
		{CacheIndex: 0, IsObjC: false},
	}
	res := EmitObjCHeaderInfo(dylibs)
	if len(res.RO) != 1 || len(res.RW) != 1 {
		t.Fatalf("RO/RW = %d/%d, want 1/1", len(res.RO), len(res.RW))
	}
	if res.RO[0].ImageInfoFlags&headerInfoFlagOptimizedByDyld == 0 {
		t.Fatal("expected optimized-by-dyld bit set")
	}
}

func TestComputeObjCClassLayoutPropagatesSuperclass(t *testing.T) {
	nsObject := optimize.ClassMetadata{Name: "NSObject", CacheVMAddr: 0x1000, Superclass: 0}
	base := optimize.ClassMetadata{Name: "Base", CacheVMAddr: 0x2000, Superclass: 0x1000}
	derived := optimize.ClassMetadata{Name: "Derived", CacheVMAddr: 0x3000, Superclass: 0x2000}

	md := []optimize.DylibObjCMetadata{{
		Dylib:   0,
		Classes: []optimize.ClassMetadata{nsObject, base, derived},
	}}

	res := ComputeObjCClassLayout(md)

	rootAdj := res.Adjustments["NSObject"]
	if rootAdj.InstanceStart != rootInstanceSize || rootAdj.InstanceSize != rootInstanceSize {
		t.Fatalf("NSObject adjustment = %+v, want root size %d", rootAdj, rootInstanceSize)
	}

	baseAdj := res.Adjustments["Base"]
	if baseAdj.InstanceStart != rootInstanceSize {
		t.Fatalf("Base.InstanceStart = %d, want %d", baseAdj.InstanceStart, rootInstanceSize)
	}

	derivedAdj := res.Adjustments["Derived"]
	if derivedAdj.InstanceStart != baseAdj.InstanceSize {
		t.Fatalf("Derived.InstanceStart = %d, want %d (Base.InstanceSize)", derivedAdj.InstanceStart, baseAdj.InstanceSize)
	}
}

func TestComputeObjCClassLayoutRootHasNoAdjustment(t *testing.T) {
	root := optimize.ClassMetadata{Name: "Root", CacheVMAddr: 0x1000, Superclass: 0}
	md := []optimize.DylibObjCMetadata{{Dylib: 0, Classes: []optimize.ClassMetadata{root}}}

	res := ComputeObjCClassLayout(md)
	adj, ok := res.Adjustments["Root"]
	if !ok {
		t.Fatal("expected an adjustment entry for Root")
	}
	if adj.InstanceStart != rootInstanceSize || adj.InstanceSize != rootInstanceSize {
		t.Fatalf("Root adjustment = %+v, want root size %d for both fields", adj, rootInstanceSize)
	}
}
