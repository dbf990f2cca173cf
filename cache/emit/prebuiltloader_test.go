package emit

import (
	"strings"
	"testing"
	"time"

	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

func TestEstimateCacheDylibLoadersIncludesDylibPatchesOnMacOS(t *testing.T) {
	dylibs := []*model.CacheDylib{
		{
			CacheIndex:       0,
			InstallName:      "/usr/lib/libfoo.dylib",
			OptimizedSymbols: &model.OptimizedSymbols{ExportedCount: 4},
		},
	}
	macCfg := config.Default()
	macCfg.Platform = config.PlatformMacOS
	macSet := EstimateCacheDylibLoaders(nil, dylibs, macCfg)

	iosCfg := config.Default()
	iosCfg.Platform = config.PlatformIOS
	iosSet := EstimateCacheDylibLoaders(nil, dylibs, iosCfg)

	if macSet.Entries[0].Size <= iosSet.Entries[0].Size {
		t.Fatalf("macOS loader size %d should exceed iOS loader size %d (DylibPatch entries)", macSet.Entries[0].Size, iosSet.Entries[0].Size)
	}
}

func TestEstimateExecutableLoadersRegistersTrieEntries(t *testing.T) {
	trie := optimize.NewDylibTrie()
	execs := []ExecutableInput{
		{Path: "/usr/bin/ls", CDHash: [20]byte{0xde, 0xad, 0xbe, 0xef}},
	}
	set := EstimateExecutableLoaders(execs, trie)
	if len(set.Entries) != 1 || set.Entries[0].Size != executableLoaderSize {
		t.Fatalf("Entries = %+v, want one 16KiB entry", set.Entries)
	}
	if _, ok := trie.Lookup("/usr/bin/ls"); !ok {
		t.Fatal("expected the executable path to be registered in the trie")
	}
	cdhashPath := execs[0].CDHashTriePath()
	if !strings.HasPrefix(cdhashPath, "/cdhash/") {
		t.Fatalf("CDHashTriePath = %q, want /cdhash/ prefix", cdhashPath)
	}
	if _, ok := trie.Lookup(cdhashPath); !ok {
		t.Fatal("expected the /cdhash/ alias to be registered in the trie")
	}
}

func TestEstimateCacheDylibLoadersMaterializesRecords(t *testing.T) {
	target := &model.CacheDylib{CacheIndex: 0, InstallName: "/usr/lib/libSystem.B.dylib"}
	d := &model.CacheDylib{
		CacheIndex:  1,
		InstallName: "/usr/lib/libfoo.dylib",
		Input:       &model.InputFile{Path: "/private/var/libfoo.dylib", Inode: 42, Mtime: time.Unix(1700000000, 0)},
		Dependents: []model.Dependent{
			{Kind: model.DependentNormal, Target: target},
			{Kind: model.DependentWeakLink, Target: nil},
		},
	}

	cfg := config.Default()
	set := EstimateCacheDylibLoaders(nil, []*model.CacheDylib{target, d}, cfg)
	if len(set.Entries) != 2 {
		t.Fatalf("Entries = %d, want 2", len(set.Entries))
	}
	e := set.Entries[1]
	if e.InstallName != "/usr/lib/libfoo.dylib" || e.Path != "/private/var/libfoo.dylib" {
		t.Fatalf("entry names = %q/%q", e.InstallName, e.Path)
	}
	if len(e.Dependents) != 2 {
		t.Fatalf("Dependents = %d, want 2", len(e.Dependents))
	}
	if e.Dependents[0].Target != 0 || e.Dependents[1].Target != -1 {
		t.Fatalf("dependent targets = %+v, want resolved 0 and weakly-missing -1", e.Dependents)
	}
	if e.Validation.Inode != 42 || e.Validation.Mtime != 1700000000 {
		t.Fatalf("validation = %+v, want the input file's inode/mtime", e.Validation)
	}
}

func TestEstimateCacheDylibLoadersOmitsValidationWhenRemovedFromDisk(t *testing.T) {
	d := &model.CacheDylib{
		CacheIndex:  0,
		InstallName: "/usr/lib/libfoo.dylib",
		Input:       &model.InputFile{Path: "/usr/lib/libfoo.dylib", Inode: 7, Mtime: time.Unix(5, 0)},
	}
	cfg := config.Default()
	cfg.DylibsRemovedFromDisk = true
	set := EstimateCacheDylibLoaders(nil, []*model.CacheDylib{d}, cfg)
	if v := set.Entries[0].Validation; v.Inode != 0 || v.Mtime != 0 {
		t.Fatalf("validation = %+v, want zero when dylibs are removed from disk", v)
	}
}
