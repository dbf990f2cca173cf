package emit

import (
	"sort"
	"strings"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

// GOTUse is one GOT-consuming fixup site a dylib contributes: the
// external symbol it targets and any pointer-authentication metadata
// (key/discriminator bits) carried alongside the slot. Two uses
// referencing the same (install name, symbol, metadata) triple share one
// deduplicated slot after emit_uniqued_gots.
type GOTUse struct {
	TargetInstallName string
	TargetSymbolName  string
	PointerMetadata   uint16
	// SiteOffset is this use's own offset within its dylib's DATA_CONST
	// or AUTH_CONST region, rewritten to the deduplicated slot's offset
	// once GOTs are merged.
	SiteOffset addr.VMOffset
}

// DylibGOTUses is one dylib's complete set of GOT-consuming fixup sites,
// gathered by the metadata-visitor layer ahead of the GlobalEmitters
// phase.
type DylibGOTUses struct {
	Dylib model.DylibIndex
	Uses  []GOTUse
}

// gotKey is the dedup key: (target install name, target symbol name,
// pointer metadata).
type gotKey struct {
	InstallName string
	SymbolName  string
	Metadata    uint16
}

// GOTSlot is one deduplicated slot in the emitted uniqued-GOT chunk.
type GOTSlot struct {
	Key   gotKey
	Index int
}

// GOTResult is the output of emit_uniqued_gots: the ordered slot list
// (libSystem.B first, then /usr/lib/system/*, then lexicographic) and,
// per dylib, the rewritten site-offset -> slot-index map.
type GOTResult struct {
	Slots       []GOTSlot
	PerDylibMap map[model.DylibIndex]map[addr.VMOffset]int
}

// libSystemBInstallName and the /usr/lib/system/ prefix drive the
// priority ordering emit_uniqued_gots applies: libSystem.B's own GOT
// entries come first (it is the most heavily shared target dylib), then
// every other libsystem sub-library, then everything else
// lexicographically.
const libSystemBInstallName = "/usr/lib/libSystem.B.dylib"

const libSystemPrefix = "/usr/lib/system/"

func gotPriority(installName string) int {
	switch {
	case installName == libSystemBInstallName:
		return 0
	case strings.HasPrefix(installName, libSystemPrefix):
		return 1
	default:
		return 2
	}
}

// EmitUniquedGOTs collects every GOT entry across every dylib's
// DATA_CONST/AUTH_CONST region, dedupes by (target install name, target
// symbol name, pointer metadata), and sorts the result: libSystem.B
// first, then /usr/lib/system/*, then lexicographic install-name, then
// symbol name. Each dylib's offset map is rewritten to the new,
// deduplicated slot positions.
func EmitUniquedGOTs(perDylib []DylibGOTUses) *GOTResult {
	seen := map[gotKey]bool{}
	var keys []gotKey
	for _, d := range perDylib {
		for _, u := range d.Uses {
			k := gotKey{InstallName: u.TargetInstallName, SymbolName: u.TargetSymbolName, Metadata: u.PointerMetadata}
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if pa, pb := gotPriority(a.InstallName), gotPriority(b.InstallName); pa != pb {
			return pa < pb
		}
		if a.InstallName != b.InstallName {
			return a.InstallName < b.InstallName
		}
		return a.SymbolName < b.SymbolName
	})

	slots := make([]GOTSlot, len(keys))
	index := make(map[gotKey]int, len(keys))
	for i, k := range keys {
		slots[i] = GOTSlot{Key: k, Index: i}
		index[k] = i
	}

	perDylibMap := map[model.DylibIndex]map[addr.VMOffset]int{}
	for _, d := range perDylib {
		m := make(map[addr.VMOffset]int, len(d.Uses))
		for _, u := range d.Uses {
			k := gotKey{InstallName: u.TargetInstallName, SymbolName: u.TargetSymbolName, Metadata: u.PointerMetadata}
			m[u.SiteOffset] = index[k]
		}
		perDylibMap[d.Dylib] = m
	}

	return &GOTResult{Slots: slots, PerDylibMap: perDylibMap}
}
