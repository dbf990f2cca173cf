package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestOptimizeTLVsWarnsWithoutGetAddr(t *testing.T) {
	dylibs := []*model.CacheDylib{{CacheIndex: 0, HasThreadLocals: true}}
	res, warnings := OptimizeTLVs(dylibs, TLVConfig{})
	if len(res.Assignments) != 0 {
		t.Fatalf("Assignments = %v, want none", res.Assignments)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
}

func TestOptimizeTLVsAssignsSequentialKeys(t *testing.T) {
	dylibs := []*model.CacheDylib{
		{CacheIndex: 2, HasThreadLocals: true},
		{CacheIndex: 0, HasThreadLocals: true},
		{CacheIndex: 1, HasThreadLocals: false},
	}
	cfg := TLVConfig{PthreadTSDFirst: 10, PthreadTSDLast: 20, HasTLVGetAddr: true, TLVGetAddr: addr.CacheVMAddress(0x1000)}
	res, warnings := OptimizeTLVs(dylibs, cfg)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	if len(res.Assignments) != 2 {
		t.Fatalf("Assignments = %v, want 2 entries", res.Assignments)
	}
	if res.Assignments[0].Dylib != 0 || res.Assignments[0].Key != 10 {
		t.Fatalf("Assignments[0] = %+v, want dylib 0 key 10", res.Assignments[0])
	}
	if res.Assignments[1].Dylib != 2 || res.Assignments[1].Key != 11 {
		t.Fatalf("Assignments[1] = %+v, want dylib 2 key 11", res.Assignments[1])
	}
}

func TestOptimizeTLVsStopsAtKeyExhaustion(t *testing.T) {
	dylibs := []*model.CacheDylib{
		{CacheIndex: 0, HasThreadLocals: true},
		{CacheIndex: 1, HasThreadLocals: true},
	}
	cfg := TLVConfig{PthreadTSDFirst: 5, PthreadTSDLast: 5, HasTLVGetAddr: true}
	res, warnings := OptimizeTLVs(dylibs, cfg)
	if len(res.Assignments) != 1 {
		t.Fatalf("Assignments = %v, want exactly 1", res.Assignments)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one exhaustion warning", warnings)
	}
}
