package optimize

import "github.com/cachebuild/dyldcache/cache/addr"

// objcMagicSelector is inserted at offset 0 of every cache's canonical
// selector-strings buffer; dyld's objc runtime uses its presence to
// detect an optimized cache.
var objcMagicSelector = []byte{0xf0, 0x9f, 0xa4, 0xaf, 0x00}

// SelectorPool is the cache-wide canonical `__TEXT,__objc_methname`
// dedup: one NUL-terminated copy of each selector string, addressed by
// VMOffset from the start of the selector-strings chunk. IMP-cache
// selectors are interned first (Run interns them before any other
// selector) so they land at the smallest offsets, matching
// the layout dyld's selector-opt step produces.
type SelectorPool struct {
	buf       []byte
	offsets   map[string]addr.VMOffset
	order     []string
	finalized bool
}

// NewSelectorPool returns an empty pool seeded with the magic selector.
func NewSelectorPool() *SelectorPool {
	p := &SelectorPool{
		offsets: map[string]addr.VMOffset{},
	}
	p.buf = append(p.buf, objcMagicSelector...)
	return p
}

// Intern adds name to the pool if not already present and returns its
// offset either way.
func (p *SelectorPool) Intern(name string) addr.VMOffset {
	if off, ok := p.offsets[name]; ok {
		return off
	}
	off := addr.VMOffset(len(p.buf))
	p.offsets[name] = off
	p.order = append(p.order, name)
	p.buf = append(p.buf, name...)
	p.buf = append(p.buf, 0)
	return off
}

// Offset reports the offset assigned to name, if interned.
func (p *SelectorPool) Offset(name string) (addr.VMOffset, bool) {
	off, ok := p.offsets[name]
	return off, ok
}

// Names returns every interned selector in interning order (IMP-cache
// priority names first, then merge order).
func (p *SelectorPool) Names() []string { return p.order }

// Bytes returns the accumulated buffer: the magic selector followed by
// every interned selector in the order IMP-cache-priority names were
// added, then merge order.
func (p *SelectorPool) Bytes() []byte { return p.buf }

// Len returns the number of distinct selectors interned, excluding the
// magic selector.
func (p *SelectorPool) Len() int { return len(p.order) }
