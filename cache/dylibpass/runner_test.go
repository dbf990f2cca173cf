package dylibpass

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestRunExecutesAllStepsAndJoins(t *testing.T) {
	arena := model.NewArena()
	dylibs := []*model.CacheDylib{
		{InstallName: "/usr/lib/libA.dylib", CacheIndex: 0, Header: &model.ParsedHeader{}},
		{InstallName: "/usr/lib/libB.dylib", CacheIndex: 1, Header: &model.ParsedHeader{}},
	}
	r := New(config.Default(), arena, nil, nil)
	if err := r.Run(dylibs); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, d := range dylibs {
		if d.OptimizedSymbols == nil {
			t.Fatalf("dylib %s: OptimizedSymbols not populated", d.InstallName)
		}
	}
}

func TestRunResolvesInputImageBindTargets(t *testing.T) {
	arena := model.NewArena()
	libA := &model.CacheDylib{InstallName: "/usr/lib/libA.dylib", CacheIndex: 0}
	libA.SetCacheLoadAddress(0x1_8000_0000)

	libB := &model.CacheDylib{
		InstallName: "/usr/lib/libB.dylib",
		CacheIndex:  1,
		Dependents:  []model.Dependent{{Kind: model.DependentNormal, Target: libA}},
		BindTargets: []model.BindTarget{{Kind: model.BindTargetInputImage, DependencyIndex: 0, Addend: 0x10}},
	}
	libB.SetCacheLoadAddress(0x1_9000_0000)

	r := New(config.Default(), arena, nil, nil)
	if err := r.Run([]*model.CacheDylib{libA, libB}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if libB.BindTargets[0].Kind != model.BindTargetCacheImage {
		t.Fatalf("bind target kind = %v, want BindTargetCacheImage", libB.BindTargets[0].Kind)
	}
	if want := libA.CacheLoadAddress.Add(0x10); libB.BindTargets[0].CacheAddr != want {
		t.Fatalf("bind target addr = %v, want %v", libB.BindTargets[0].CacheAddr, want)
	}
}

func TestRunReportsFirstStepError(t *testing.T) {
	arena := model.NewArena()
	sc := arena.NewSubCache(model.SubCacheMainDevelopment)
	if err := sc.SetBuffer(model.BackingAnonymous, 0x10, ""); err != nil {
		t.Fatalf("SetBuffer: %v", err)
	}
	c := arena.NewChunk(model.ChunkDylibSegment, "__TEXT", 0x4000)
	c.Allocated = true
	c.SubCache = sc.ID
	c.SubCacheFileOff = 0x1000 // past the 0x10-byte buffer
	c.SubCacheFileSize = 0x10

	d := &model.CacheDylib{InstallName: "/usr/lib/libBad.dylib", Segments: []model.ChunkID{c.ID}}
	r := New(config.Default(), arena, nil, nil)
	err := r.Run([]*model.CacheDylib{d})
	if err == nil {
		t.Fatal("expected copy_raw_segments to fail with an out-of-bounds chunk")
	}
	var se *StepError
	if !asStepError(err, &se) {
		t.Fatalf("error = %v, want *StepError", err)
	}
	if se.Step != "copy_raw_segments" {
		t.Fatalf("Step = %q, want copy_raw_segments", se.Step)
	}
}

func asStepError(err error, target **StepError) bool {
	if se, ok := err.(*StepError); ok {
		*target = se
		return true
	}
	return false
}
