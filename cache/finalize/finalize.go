package finalize

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/model"
)

// Finalizer drives the build's last phase: attach ObjC segments,
// compute every sub-cache's header, and code-sign each sub-cache file.
type Finalizer struct {
	cfg    config.Config
	arena  *model.Arena
	res    *emit.Result
	dylibs []*model.CacheDylib
}

// New returns a Finalizer bound to the build's arena, the
// GlobalEmitters' output, and the final dylib list.
func New(cfg config.Config, arena *model.Arena, res *emit.Result, dylibs []*model.CacheDylib) *Finalizer {
	return &Finalizer{cfg: cfg, arena: arena, res: res, dylibs: dylibs}
}

// Result is the output of Run: every sub-cache's header and its signed
// code-signature SuperBlob, plus the complete set of CDHashes a
// PrebuiltLoader's /cdhash/ trie entries might reference.
type Result struct {
	Headers map[model.SubCacheID]*CacheHeader
	Signed  map[model.SubCacheID]*SignedSubCache
}

// Run executes compute_cache_headers then code-signs every sub-cache,
// children before their main caches, so each main cache's
// SubCacheEntry rows can be back-filled with their already-computed
// child UUIDs before the main cache's own header (and
// therefore its own signature) is finalized.
func (f *Finalizer) Run() (*Result, error) {
	AddObjCSegments(f.arena, f.res, f.dylibs)

	headers := ComputeCacheHeaders(f.arena, f.res, f.dylibs)

	signed := map[model.SubCacheID]*SignedSubCache{}
	for _, sc := range signOrder(f.arena) {
		buf := sc.Buffer()

		ident := SigningIdentity{
			Identifier: "com.apple.dyld.cache" + sc.FileSuffix,
			DigestMode: f.cfg.CodeSigningDigestMode,
		}
		s, err := signOne(ident, buf, uint32(len(buf)))
		if err != nil {
			return nil, err
		}
		signed[sc.ID] = s

		h := headers[sc.ID]
		h.UUID = [16]byte(DeterministicSubCacheUUID(sc.FileSuffix, len(buf)))
		h.CodeSignatureSize = csSize(s.SuperBlob)

		if sc.Kind.IsMain() {
			for i := range h.SubCaches {
				child := f.arena.SubCache(h.SubCaches[i].Child)
				h.SubCaches[i].UUID = headers[child.ID].UUID
			}
		}
	}

	return &Result{Headers: headers, Signed: signed}, nil
}

// signOrder returns every sub-cache in an order that signs non-main
// sub-caches (and their own children, which there are none of, since
// only main caches have children) before the two main caches, so a
// main cache's header can be stamped with its already-signed children's
// UUIDs.
func signOrder(arena *model.Arena) []*model.SubCache {
	all := append([]*model.SubCache(nil), arena.AllSubCaches()...)
	sort.SliceStable(all, func(i, j int) bool {
		return !all[i].Kind.IsMain() && all[j].Kind.IsMain()
	})
	return all
}

func csSize(b []byte) addr.CacheFileSize {
	return addr.CacheFileSize(len(b))
}
