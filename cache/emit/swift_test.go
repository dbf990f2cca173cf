package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

func TestEmitSwiftHashTablesDisabled(t *testing.T) {
	tables := optimize.NewSwiftConformanceTables()
	res := EmitSwiftHashTables(tables, config.ObjCOptimizations{DisableObjCHashTables: true})
	if !res.Disabled {
		t.Fatal("expected Disabled to be set")
	}
	if res.Type != nil || res.Metadata != nil || res.Foreign != nil {
		t.Fatal("expected no tables to be built when disabled")
	}
}

func TestEmitSwiftHashTablesRoundTripsLookup(t *testing.T) {
	tables := optimize.NewSwiftConformanceTables()
	tables.AddTypeConformance(addr.CacheVMAddress(0x1000), addr.CacheVMAddress(0x2000), addr.CacheVMAddress(0x3000))
	tables.AddTypeConformance(addr.CacheVMAddress(0x4000), addr.CacheVMAddress(0x2000), addr.CacheVMAddress(0x5000))

	res := EmitSwiftHashTables(tables, config.ObjCOptimizations{})
	if res.Disabled {
		t.Fatal("did not expect Disabled")
	}
	if res.Type == nil {
		t.Fatal("expected a type-conformance table")
	}
	if int(res.Type.Capacity) < 2 {
		t.Fatalf("Capacity = %d, want at least 2", res.Type.Capacity)
	}

	occupied := 0
	for _, target := range res.Type.Targets {
		if target != 0 {
			occupied++
		}
	}
	if occupied != 2 {
		t.Fatalf("occupied slots = %d, want 2", occupied)
	}
}
