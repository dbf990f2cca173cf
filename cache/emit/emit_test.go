package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/dylibpass"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

func TestEmittersRunProducesEveryTable(t *testing.T) {
	arena := model.NewArena()
	cfg := config.Default()

	dylibs := []*model.CacheDylib{
		{CacheIndex: 0, InstallName: "/usr/lib/libfoo.dylib", OptimizedSymbols: &model.OptimizedSymbols{}},
	}

	perDylibMD := []optimize.DylibObjCMetadata{{Dylib: 0}}
	opt := optimize.Run(perDylibMD, false, 0)

	e := New(cfg, arena, opt, perDylibMD, dylibpass.NewASLRTracker(), dylibs)

	res, err := e.Run(nil, nil, TLVConfig{}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.GOT == nil || res.Protocols == nil || res.ObjCHeaderInfo == nil ||
		res.ObjCHashTables == nil ||
		res.ClassLayout == nil || res.Swift == nil || res.Trie == nil ||
		res.PatchTable == nil || res.CacheLoaders == nil || res.ExecLoaders == nil ||
		res.Symbols == nil || res.TLV == nil {
		t.Fatalf("Run result missing a table: %+v", res)
	}
	if _, ok := res.Trie.Lookup("/usr/lib/libfoo.dylib"); !ok {
		t.Fatal("expected the cache dylib's install name in the trie")
	}
}
