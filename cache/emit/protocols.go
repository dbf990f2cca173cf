package emit

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

// CanonicalProtocolEntry records the single elected definition for one
// protocol name and the cache address every other occurrence's
// __objc_protorefs / class / category / protocol-list slot must be
// rewritten to point at.
type CanonicalProtocolEntry struct {
	Name          string
	NameOffset    addr.VMOffset
	CanonicalAddr addr.CacheVMAddress
	// FixedUp and Canonical mirror the two bits emit_canonical_objc_protocols
	// sets on the copied-in protocol object once its ISA and demangled
	// name are settled.
	FixedUp   bool
	Canonical bool
}

// CanonicalProtocols is the output of emit_canonical_objc_protocols: one
// entry per distinct protocol name, in ascending lexicographic name
// order.
type CanonicalProtocols struct {
	Entries []CanonicalProtocolEntry
	byName  map[string]CanonicalProtocolEntry
}

// Lookup returns the canonical entry for name, if any protocol by that
// name was seen.
func (c *CanonicalProtocols) Lookup(name string) (CanonicalProtocolEntry, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// EmitCanonicalObjCProtocols elects one canonical definition per protocol
// name from pool (lowest cache-index wins, per ProtocolPool.Canonical),
// marks it fixed-up and canonical, and returns the rewrite map every
// protocol reference in the cache must be resolved against.
func EmitCanonicalObjCProtocols(pool *optimize.ProtocolPool) *CanonicalProtocols {
	names := append([]string(nil), pool.Names()...)
	sort.Strings(names)

	res := &CanonicalProtocols{byName: map[string]CanonicalProtocolEntry{}}
	for _, name := range names {
		occ, ok := pool.Canonical(name)
		if !ok {
			continue
		}
		off, _ := offsetInPool(pool, name)
		e := CanonicalProtocolEntry{
			Name:          name,
			NameOffset:    off,
			CanonicalAddr: occ.CacheVMAddr,
			FixedUp:       true,
			Canonical:     true,
		}
		res.Entries = append(res.Entries, e)
		res.byName[name] = e
	}
	return res
}

// offsetInPool exposes ProtocolPool's name->offset mapping indirectly:
// the pool only exposes Bytes()/Names(), so the offset is recomputed by
// walking the pool buffer the same way Add did (NUL-delimited, in
// Names() order), since ProtocolPool does not itself export per-name
// offsets once canonical selection has already happened.
func offsetInPool(pool *optimize.ProtocolPool, target string) (addr.VMOffset, bool) {
	var off addr.VMOffset
	for _, name := range pool.Names() {
		if name == target {
			return off, true
		}
		off += addr.VMOffset(len(name) + 1)
	}
	return 0, false
}
