package emit

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

// TLVConfig names the two symbols optimize_tlvs uses: libpthread's
// reserved TSD key range and libdyld's tlv_get_addr thunk target. A
// missing tlv_get_addr symbol downgrades the whole step
// to a recorded warning rather than failing the build, following the
// SymbolUnresolved policy.
type TLVConfig struct {
	PthreadTSDFirst uint32
	PthreadTSDLast  uint32
	TLVGetAddr      addr.CacheVMAddress
	HasTLVGetAddr   bool
}

// TLVResult records how many pthread TSD keys optimize_tlvs assigned and
// to which dylibs, in cache-index order for deterministic reporting.
type TLVResult struct {
	Assignments []TLVAssignment
}

// TLVAssignment is one dylib's allocated pthread TSD key.
type TLVAssignment struct {
	Dylib model.DylibIndex
	Key   uint32
}

// OptimizeTLVs allocates the next pthread TSD key for each dylib that has
// thread-local-variable sections, in ascending cache-index order, and
// records each assignment; the TLV thunk triples in the dylibs' bytes
// are not rewritten. It stops, with a warning, once
// cfg.PthreadTSDLast is reached rather than assigning out-of-range keys.
func OptimizeTLVs(dylibs []*model.CacheDylib, cfg TLVConfig) (*TLVResult, []string) {
	if !cfg.HasTLVGetAddr {
		return &TLVResult{}, []string{"optimize_tlvs: libdyld4 tlv_get_addrAddr symbol not found, thread-local-variable optimization disabled"}
	}

	sorted := append([]*model.CacheDylib(nil), dylibs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CacheIndex < sorted[j].CacheIndex })

	res := &TLVResult{}
	var warnings []string
	key := cfg.PthreadTSDFirst
	for _, d := range sorted {
		if !d.HasThreadLocals {
			continue
		}
		if key > cfg.PthreadTSDLast {
			warnings = append(warnings, "optimize_tlvs: pthread TSD keys exhausted, remaining thread-local dylibs left unoptimized")
			break
		}
		res.Assignments = append(res.Assignments, TLVAssignment{Dylib: d.CacheIndex, Key: key})
		key++
	}
	return res, warnings
}
