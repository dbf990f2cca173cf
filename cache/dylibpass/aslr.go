package dylibpass

import (
	"sort"
	"sync"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

// ASLRTracker records every rebased fixup location discovered while
// applying the split-seg adjustor, grouped by the sub-cache that owns
// the fixup site. compute_slide_info later reads these to build the
// page-granular rebase bitmap. Entries may be recorded concurrently from
// every dylib task; each Record call takes the tracker's single mutex.
type ASLRTracker struct {
	mu     sync.Mutex
	fixups map[model.SubCacheID][]addr.CacheVMAddress
}

// NewASLRTracker returns an empty tracker.
func NewASLRTracker() *ASLRTracker {
	return &ASLRTracker{fixups: map[model.SubCacheID][]addr.CacheVMAddress{}}
}

// Record registers one rebased fixup site at a, owned by sub-cache sc.
func (t *ASLRTracker) Record(sc model.SubCacheID, a addr.CacheVMAddress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fixups[sc] = append(t.fixups[sc], a)
}

// Fixups returns every fixup site recorded for sc, sorted ascending so
// compute_slide_info can walk them page by page.
func (t *ASLRTracker) Fixups(sc model.SubCacheID) []addr.CacheVMAddress {
	t.mu.Lock()
	out := append([]addr.CacheVMAddress(nil), t.fixups[sc]...)
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
