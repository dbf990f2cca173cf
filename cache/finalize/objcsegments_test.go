package finalize

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/model"
)

func TestAddObjCSegmentsOnlyTouchesObjCDylibs(t *testing.T) {
	arena := model.NewArena()
	objcDylib := &model.CacheDylib{CacheIndex: 0, IsObjC: true}
	plainDylib := &model.CacheDylib{CacheIndex: 1, IsObjC: false}

	res := &emit.Result{ObjCHeaderInfo: &emit.ObjCHeaderInfoResult{
		RO: []emit.ObjCHeaderInfoEntry{{Dylib: 0}},
		RW: []emit.ObjCHeaderInfoEntry{{Dylib: 0}},
	}}

	AddObjCSegments(arena, res, []*model.CacheDylib{objcDylib, plainDylib})

	if len(objcDylib.Segments) != 2 {
		t.Fatalf("objcDylib.Segments = %v, want 2 new chunks", objcDylib.Segments)
	}
	if len(plainDylib.Segments) != 0 {
		t.Fatalf("plainDylib.Segments = %v, want untouched", plainDylib.Segments)
	}

	roChunk := arena.Chunk(objcDylib.Segments[0])
	if roChunk.Kind != model.ChunkObjCROSegment || roChunk.Owner != objcDylib.CacheIndex {
		t.Fatalf("first chunk = %+v, want an owned ObjCROSegment", roChunk)
	}
}

func TestAddObjCSegmentsNoOpWithoutHeaderInfo(t *testing.T) {
	arena := model.NewArena()
	d := &model.CacheDylib{CacheIndex: 0, IsObjC: true}
	AddObjCSegments(arena, &emit.Result{}, []*model.CacheDylib{d})
	if len(d.Segments) != 0 {
		t.Fatalf("Segments = %v, want none when ObjCHeaderInfo is nil", d.Segments)
	}
}
