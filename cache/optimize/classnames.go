package optimize

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

// ClassOccurrence is one (dylib, address) pair a class name resolved to;
// duplicate class names across dylibs are retained rather than
// deduplicated because the ObjC runtime must be able to observe every
// definition sharing a name.
type ClassOccurrence struct {
	Dylib    model.DylibIndex
	CacheVMAddr addr.CacheVMAddress
}

// ClassNamePool is the cache-wide `__TEXT,__objc_classname` canonical
// string pool plus the name -> occurrences multimap used to build the
// ObjC class hash table.
type ClassNamePool struct {
	buf        []byte
	offsets    map[string]addr.VMOffset
	order      []string
	occurrences map[string][]ClassOccurrence
}

// NewClassNamePool returns an empty pool.
func NewClassNamePool() *ClassNamePool {
	return &ClassNamePool{
		offsets:     map[string]addr.VMOffset{},
		occurrences: map[string][]ClassOccurrence{},
	}
}

// Add records one class's name and its resolved cache address, interning
// the name string if this is the first time it is seen.
func (p *ClassNamePool) Add(name string, dylib model.DylibIndex, classAddr addr.CacheVMAddress) addr.VMOffset {
	off, seen := p.offsets[name]
	if !seen {
		off = addr.VMOffset(len(p.buf))
		p.offsets[name] = off
		p.order = append(p.order, name)
		p.buf = append(p.buf, name...)
		p.buf = append(p.buf, 0)
	}
	p.occurrences[name] = append(p.occurrences[name], ClassOccurrence{Dylib: dylib, CacheVMAddr: classAddr})
	return off
}

// Occurrences returns every occurrence recorded for name, in the order
// Add was called.
func (p *ClassNamePool) Occurrences(name string) []ClassOccurrence { return p.occurrences[name] }

// Names returns every distinct class name, merge order (insertion order),
// which callers should have driven by ascending dylib cache-index to get
// deterministic output.
func (p *ClassNamePool) Names() []string { return p.order }

// SortedNames is Names() sorted for callers that need a stable iteration
// independent of collection order (e.g. building a deterministic test
// fixture).
func (p *ClassNamePool) SortedNames() []string {
	out := append([]string(nil), p.order...)
	sort.Strings(out)
	return out
}

// Bytes returns the accumulated name-pool buffer.
func (p *ClassNamePool) Bytes() []byte { return p.buf }
