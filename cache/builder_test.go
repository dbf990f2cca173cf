package cache

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/dylibpass"
	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/finalize"
	"github.com/cachebuild/dyldcache/cache/internal/clog"
	"github.com/cachebuild/dyldcache/cache/layout"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

// newSyntheticBuilder wires a Builder around two plain dylibs, bypassing
// InputRegistry (which needs real Mach-O buffers to parse) so the
// post-registry phase wiring can be exercised directly.
func newSyntheticBuilder(t *testing.T) (*Builder, []*model.CacheDylib) {
	t.Helper()
	cfg := config.Default()
	b := New(cfg, clog.Discard())

	d1 := &model.CacheDylib{
		InstallName: "/usr/lib/libA.dylib", CacheIndex: 0,
		Input: &model.InputFile{Size: 4096}, Header: &model.ParsedHeader{},
	}
	d2 := &model.CacheDylib{
		InstallName: "/usr/lib/libB.dylib", CacheIndex: 1,
		Input: &model.InputFile{Size: 8192}, Header: &model.ParsedHeader{},
	}
	b.dylibs = []*model.CacheDylib{d1, d2}
	b.arena.SetDylibs(b.dylibs)
	return b, b.dylibs
}

// TestBuilderPipelineWiresEveryPhase runs the same sequence Build uses
// after InputRegistry, verifying every phase's output lands where later
// phases and GetResults expect it.
func TestBuilderPipelineWiresEveryPhase(t *testing.T) {
	b, dylibs := newSyntheticBuilder(t)

	plan, err := layout.Partition(b.arena, b.cfg, dylibs)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if err := b.allocateSubCacheBuffers(plan); err != nil {
		t.Fatalf("allocateSubCacheBuffers: %v", err)
	}
	for _, d := range dylibs {
		if !d.HasCacheLoadAddress() {
			t.Fatalf("dylib %s has no cache load address after allocation", d.InstallName)
		}
	}

	perDylibMD, err := b.gatherObjCMetadata()
	if err != nil {
		t.Fatalf("gatherObjCMetadata: %v", err)
	}
	if len(perDylibMD) != len(dylibs) {
		t.Fatalf("perDylibMD = %d entries, want %d", len(perDylibMD), len(dylibs))
	}

	b.opt = optimize.Run(perDylibMD, false, impCacheSalt)

	b.runner = dylibpass.New(b.cfg, b.arena, b.opt, nil)
	if err := b.runner.Run(dylibs); err != nil {
		t.Fatalf("dylibpass.Run: %v", err)
	}

	emitters := emit.New(b.cfg, b.arena, b.opt, perDylibMD, b.runner.ASLR(), dylibs)
	res, err := emitters.Run(nil, b.gatherExecutableInputs(), b.tlvConfig(), b.gatherAliasEntries())
	if err != nil {
		t.Fatalf("Emitters.Run: %v", err)
	}
	b.emit = res

	fin := finalize.New(b.cfg, b.arena, b.emit, dylibs)
	final, err := fin.Run()
	if err != nil {
		t.Fatalf("Finalizer.Run: %v", err)
	}
	b.final = final

	results := b.GetResults()
	if results.Emit == nil || results.Finalize == nil || results.Optimize == nil {
		t.Fatal("GetResults left a phase's output nil")
	}
	if len(results.Finalize.Headers) == 0 {
		t.Fatal("expected at least one computed sub-cache header")
	}
	if len(results.Finalize.Signed) == 0 {
		t.Fatal("expected at least one signed sub-cache")
	}
}

func TestApproximateCDHashIsDeterministicAndContentSensitive(t *testing.T) {
	a := approximateCDHash([]byte("one"))
	b := approximateCDHash([]byte("one"))
	if a != b {
		t.Fatal("expected identical input to produce an identical hash")
	}
	c := approximateCDHash([]byte("two"))
	if a == c {
		t.Fatal("expected different input to produce a different hash")
	}
}

func TestTLVConfigTranslatesOverrideFields(t *testing.T) {
	cfg := config.Default()
	cfg.PthreadTSDFirst = 5
	cfg.PthreadTSDLast = 10
	cfg.HasTLVGetAddrOverride = true
	cfg.TLVGetAddrOverride = 0x4000

	b := New(cfg, clog.Discard())
	tlv := b.tlvConfig()
	if tlv.PthreadTSDFirst != 5 || tlv.PthreadTSDLast != 10 {
		t.Fatalf("TLVConfig = %+v, want the configured TSD range", tlv)
	}
	if !tlv.HasTLVGetAddr || uint64(tlv.TLVGetAddr) != 0x4000 {
		t.Fatalf("TLVConfig = %+v, want the configured override address", tlv)
	}
}

func TestAlwaysOverridableDylibPolicy(t *testing.T) {
	cases := []struct {
		installName string
		want        bool
	}{
		{"/usr/lib/libSystem.B.dylib", true},
		{"/usr/lib/system/libsystem_malloc.dylib", true},
		{"/usr/lib/libobjc.A.dylib", false},
		{"/System/Library/Frameworks/Foundation.framework/Foundation", false},
	}
	for _, c := range cases {
		if got := alwaysOverridableDylib(c.installName); got != c.want {
			t.Errorf("alwaysOverridableDylib(%q) = %v, want %v", c.installName, got, c.want)
		}
	}
}

func TestGatherNeverEliminateStubsOnlyForUniversalBuilds(t *testing.T) {
	b, _ := newSyntheticBuilder(t)

	if set := b.gatherNeverEliminateStubs(); set != nil {
		t.Fatalf("development build produced a never-eliminate set: %v", set)
	}

	b.cfg.Kind = config.KindUniversal
	set := b.gatherNeverEliminateStubs()
	if set == nil {
		t.Fatal("universal build must produce a (possibly empty) never-eliminate set")
	}
	// Neither synthetic dylib is always-overridable, and neither carries
	// a parseable export trie, so the set stays empty.
	if len(set) != 0 {
		t.Fatalf("set = %v, want empty for non-overridable inputs", set)
	}
}
