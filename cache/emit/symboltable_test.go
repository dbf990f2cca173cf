package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestEmitSymbolTableKeepModeHasNoUnmapped(t *testing.T) {
	dylibs := []*model.CacheDylib{
		{CacheIndex: 0, OptimizedSymbols: &model.OptimizedSymbols{ExportedCount: 2, ImportedCount: 1, LocalCount: 5}},
	}
	res := EmitSymbolTable(dylibs, config.LocalSymbolsKeep)
	if len(res.Unmapped) != 0 {
		t.Fatalf("Unmapped = %v, want none in keep mode", res.Unmapped)
	}
	if len(res.Mapped) != 1 || res.Mapped[0].Local != 5 {
		t.Fatalf("Mapped = %+v, want local count 5 retained", res.Mapped)
	}
}

func TestEmitSymbolTableUnmapModeRedactsLocals(t *testing.T) {
	dylibs := []*model.CacheDylib{
		{CacheIndex: 0, OptimizedSymbols: &model.OptimizedSymbols{LocalCount: 3}},
	}
	res := EmitSymbolTable(dylibs, config.LocalSymbolsUnmap)
	if len(res.Unmapped) != 3 {
		t.Fatalf("Unmapped = %d entries, want 3", len(res.Unmapped))
	}
	for _, u := range res.Unmapped {
		if !u.Redacted || u.Name != unmappedSymbolRedaction {
			t.Fatalf("entry = %+v, want redacted", u)
		}
	}
}

func TestEmitSymbolTableSkipsDylibsWithoutOptimizedSymbols(t *testing.T) {
	dylibs := []*model.CacheDylib{{CacheIndex: 0}}
	res := EmitSymbolTable(dylibs, config.LocalSymbolsUnmap)
	if len(res.Mapped) != 0 || len(res.Unmapped) != 0 {
		t.Fatalf("res = %+v, want empty", res)
	}
}
