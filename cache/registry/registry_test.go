package registry

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/internal/clog"
	"github.com/cachebuild/dyldcache/cache/model"
)

func newTestRegistry() *Registry {
	return New(config.Default(), clog.Discard())
}

func withHeader(r *Registry, path string, h *model.ParsedHeader) {
	r.files = append(r.files, &model.InputFile{Path: path, Header: h})
}

func TestCategorizeInputsPartitions(t *testing.T) {
	r := newTestRegistry()
	withHeader(r, "/usr/lib/libFoo.dylib", &model.ParsedHeader{InstallName: "/usr/lib/libFoo.dylib", IsDylib: true})
	withHeader(r, "/usr/bin/bash", &model.ParsedHeader{IsDynamicExecutable: true})
	withHeader(r, "/usr/lib/libBad.a", &model.ParsedHeader{})

	if err := r.CategorizeInputs(); err != nil {
		t.Fatalf("CategorizeInputs: %v", err)
	}
	if len(r.cacheDylibs) != 1 {
		t.Fatalf("cacheDylibs = %d, want 1", len(r.cacheDylibs))
	}
	if len(r.executables) != 1 {
		t.Fatalf("executables = %d, want 1", len(r.executables))
	}
	if len(r.nonCacheDylibs) != 1 {
		t.Fatalf("nonCacheDylibs = %d, want 1", len(r.nonCacheDylibs))
	}
	if n := len(warningsOf(r)); n != 1 {
		t.Fatalf("warnings = %d, want 1", n)
	}
}

func TestCategorizeInputsNoCacheDylibs(t *testing.T) {
	r := newTestRegistry()
	withHeader(r, "/usr/bin/bash", &model.ParsedHeader{IsDynamicExecutable: true})
	if err := r.CategorizeInputs(); err == nil {
		t.Fatal("expected error when no cache-eligible dylib is present")
	}
}

func TestCategorizeInputsNoFiles(t *testing.T) {
	r := newTestRegistry()
	if err := r.CategorizeInputs(); err == nil {
		t.Fatal("expected error when no files were registered")
	}
}

func TestVerifySelfContainedPropagatesBadDependency(t *testing.T) {
	r := newTestRegistry()
	withHeader(r, "/usr/lib/libA.dylib", &model.ParsedHeader{
		InstallName: "/usr/lib/libA.dylib", IsDylib: true,
		Dependencies: []model.DependencyRef{{Path: "/usr/lib/libMissing.dylib", Kind: model.DependentNormal}},
	})
	withHeader(r, "/usr/lib/libB.dylib", &model.ParsedHeader{
		InstallName: "/usr/lib/libB.dylib", IsDylib: true,
		Dependencies: []model.DependencyRef{{Path: "/usr/lib/libA.dylib", Kind: model.DependentNormal}},
	})
	if err := r.CategorizeInputs(); err != nil {
		t.Fatalf("CategorizeInputs: %v", err)
	}
	if err := r.VerifySelfContained(); err == nil {
		t.Fatal("expected both dylibs to be demoted, leaving zero cache dylibs")
	}
	if len(r.cacheDylibs) != 0 {
		t.Fatalf("cacheDylibs = %d, want 0", len(r.cacheDylibs))
	}
}

func TestVerifySelfContainedToleratesMissingWeakDependency(t *testing.T) {
	r := newTestRegistry()
	withHeader(r, "/usr/lib/libA.dylib", &model.ParsedHeader{
		InstallName: "/usr/lib/libA.dylib", IsDylib: true,
		Dependencies: []model.DependencyRef{{Path: "/usr/lib/libOptional.dylib", Kind: model.DependentWeakLink}},
	})
	if err := r.CategorizeInputs(); err != nil {
		t.Fatalf("CategorizeInputs: %v", err)
	}
	if err := r.VerifySelfContained(); err != nil {
		t.Fatalf("VerifySelfContained: %v", err)
	}
	if len(r.cacheDylibs) != 1 {
		t.Fatalf("cacheDylibs = %d, want 1", len(r.cacheDylibs))
	}
}

func TestSortDylibsPutsLibobjcFirstThenLexicographic(t *testing.T) {
	r := newTestRegistry()
	withHeader(r, "/usr/lib/libZ.dylib", &model.ParsedHeader{InstallName: "/usr/lib/libZ.dylib", IsDylib: true})
	withHeader(r, "/usr/lib/libobjc.A.dylib", &model.ParsedHeader{InstallName: "/usr/lib/libobjc.A.dylib", IsDylib: true})
	withHeader(r, "/usr/lib/libA.dylib", &model.ParsedHeader{InstallName: "/usr/lib/libA.dylib", IsDylib: true})
	if err := r.CategorizeInputs(); err != nil {
		t.Fatalf("CategorizeInputs: %v", err)
	}
	r.SortDylibs()

	want := []string{"/usr/lib/libobjc.A.dylib", "/usr/lib/libA.dylib", "/usr/lib/libZ.dylib"}
	got := make([]string, len(r.cacheDylibs))
	for i, d := range r.cacheDylibs {
		got[i] = d.InstallName
		if int(d.CacheIndex) != i {
			t.Fatalf("dylib %s CacheIndex = %d, want %d", d.InstallName, d.CacheIndex, i)
		}
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestCalculateDylibDependentsResolvesTargets(t *testing.T) {
	r := newTestRegistry()
	withHeader(r, "/usr/lib/libA.dylib", &model.ParsedHeader{InstallName: "/usr/lib/libA.dylib", IsDylib: true})
	withHeader(r, "/usr/lib/libB.dylib", &model.ParsedHeader{
		InstallName: "/usr/lib/libB.dylib", IsDylib: true,
		Dependencies: []model.DependencyRef{{Path: "/usr/lib/libA.dylib", Kind: model.DependentNormal}},
	})
	if err := r.CategorizeInputs(); err != nil {
		t.Fatalf("CategorizeInputs: %v", err)
	}
	if err := r.CalculateDylibDependents(); err != nil {
		t.Fatalf("CalculateDylibDependents: %v", err)
	}

	var b *model.CacheDylib
	for _, d := range r.cacheDylibs {
		if d.InstallName == "/usr/lib/libB.dylib" {
			b = d
		}
	}
	if b == nil {
		t.Fatal("libB not found among cache dylibs")
	}
	if len(b.Dependents) != 1 || b.Dependents[0].Target == nil || b.Dependents[0].Target.InstallName != "/usr/lib/libA.dylib" {
		t.Fatalf("libB dependents = %+v, want single resolved edge to libA", b.Dependents)
	}
}

func TestForEachCacheSymlinkResolvesThroughAliases(t *testing.T) {
	r := newTestRegistry()
	withHeader(r, "/usr/lib/libFoo.1.dylib", &model.ParsedHeader{InstallName: "/usr/lib/libFoo.1.dylib", IsDylib: true})
	r.SetAliases(map[string]string{"/usr/lib/libFoo.dylib": "/usr/lib/libFoo.1.dylib"}, nil)
	if err := r.CategorizeInputs(); err != nil {
		t.Fatalf("CategorizeInputs: %v", err)
	}
	r.SortDylibs()

	var seen []string
	r.ForEachCacheSymlink(func(aliasPath string, target model.DylibIndex) {
		seen = append(seen, aliasPath)
		if target != r.cacheDylibs[0].CacheIndex {
			t.Fatalf("alias target index = %d, want %d", target, r.cacheDylibs[0].CacheIndex)
		}
	})
	if len(seen) != 1 || seen[0] != "/usr/lib/libFoo.dylib" {
		t.Fatalf("seen = %v", seen)
	}
}

func warningsOf(r *Registry) []Warning {
	var out []Warning
	r.ForEachWarning(func(w Warning) { out = append(out, w) })
	return out
}
