package finalize

import (
	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/model"
)

// objcROSegmentAlignment/objcRWSegmentAlignment match the __DATA_CONST
// and __DATA segment alignments the rest of the layout phase already
// uses for synthesized tables, since the ObjC segments this step adds
// live alongside them.
const objcROSegmentAlignment = 8
const objcRWSegmentAlignment = 8

// perDylibHeaderInfoEntrySize is the fixed size of one dyld-side
// objc_headeropt entry; both the RO and RW arrays this step sizes are
// built from one entry per ObjC dylib.
const perDylibHeaderInfoEntrySize = 8

// AddObjCSegments attaches a synthesized __OBJC_RO and __OBJC_RW
// segment chunk to every ObjC dylib's segment list, each with the file
// size of one fixed-size header-info entry (perDylibHeaderInfoEntrySize).
// This step runs
// last among the Finalizer's mutations because appending a segment
// changes a dylib's load-command count, which would invalidate any
// earlier step that assumed a fixed segment count.
//
// The chunks created here carry a size only: no table bytes are written
// into them and they are not added to any Region. No LC_SEGMENT_64
// command or section headers for them are added to a dylib's
// mach_header.
func AddObjCSegments(arena *model.Arena, res *emit.Result, dylibs []*model.CacheDylib) {
	if res.ObjCHeaderInfo == nil {
		return
	}

	for _, d := range dylibs {
		if !d.IsObjC {
			continue
		}

		ro := arena.NewChunk(model.ChunkObjCROSegment, "__OBJC_RO", objcROSegmentAlignment)
		ro.Owner = d.CacheIndex
		ro.SubCacheFileSize = addr.CacheFileSize(perDylibHeaderInfoEntrySize)

		rw := arena.NewChunk(model.ChunkObjCRWSegment, "__OBJC_RW", objcRWSegmentAlignment)
		rw.Owner = d.CacheIndex
		rw.SubCacheFileSize = addr.CacheFileSize(perDylibHeaderInfoEntrySize)

		d.Segments = append(d.Segments, ro.ID, rw.ID)
	}
}
