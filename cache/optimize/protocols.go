package optimize

import (
	"strings"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/swift/demangle"
)

// swiftMangledProtocolPrefix is the old Swift mangling scheme's prefix
// for a protocol type, e.g. "_TtP10Foundation9NSCopying_".
const swiftMangledProtocolPrefix = "_TtP"

// ProtocolOccurrence is one definition of a protocol found in some dylib,
// kept so the canonical-selection pass can choose deterministically
// (lowest cache-index wins) while still being able to rewrite every
// other occurrence's references at the duplicate.
type ProtocolOccurrence struct {
	Dylib      model.DylibIndex
	CacheVMAddr addr.CacheVMAddress
	// DemangledName is set when the protocol symbol matched the Swift
	// mangled-protocol prefix and a name could be synthesized.
	DemangledName string
}

// ProtocolPool collects every protocol definition across cache dylibs,
// interns canonical names (and any synthesized demangled names) into a
// string pool, and elects one canonical occurrence per name — the
// lowest-cache-index definition, matching sort_dylibs' use as a
// tie-breaker everywhere else in the builder.
type ProtocolPool struct {
	buf         []byte
	offsets     map[string]addr.VMOffset
	order       []string
	occurrences map[string][]ProtocolOccurrence
}

// NewProtocolPool returns an empty pool.
func NewProtocolPool() *ProtocolPool {
	return &ProtocolPool{
		offsets:     map[string]addr.VMOffset{},
		occurrences: map[string][]ProtocolOccurrence{},
	}
}

// Add records one protocol occurrence. If name is empty but symbolName
// matches the Swift mangled-protocol prefix, a demangled name is
// synthesized and used in its place.
func (p *ProtocolPool) Add(name, symbolName string, dylib model.DylibIndex, protoAddr addr.CacheVMAddress) addr.VMOffset {
	demangled := ""
	if name == "" {
		if dn, ok := DemangleSwiftProtocolName(symbolName); ok {
			demangled = dn
			name = dn
		}
	}
	off, seen := p.offsets[name]
	if !seen {
		off = addr.VMOffset(len(p.buf))
		p.offsets[name] = off
		p.order = append(p.order, name)
		p.buf = append(p.buf, name...)
		p.buf = append(p.buf, 0)
	}
	p.occurrences[name] = append(p.occurrences[name], ProtocolOccurrence{
		Dylib: dylib, CacheVMAddr: protoAddr, DemangledName: demangled,
	})
	return off
}

// Canonical returns the elected canonical occurrence for name: the entry
// with the lowest Dylib cache-index, with ties broken by collection
// order (stable).
func (p *ProtocolPool) Canonical(name string) (ProtocolOccurrence, bool) {
	occs := p.occurrences[name]
	if len(occs) == 0 {
		return ProtocolOccurrence{}, false
	}
	best := occs[0]
	for _, o := range occs[1:] {
		if o.Dylib < best.Dylib {
			best = o
		}
	}
	return best, true
}

// Names returns every distinct protocol name in collection order.
func (p *ProtocolPool) Names() []string { return p.order }

// Bytes returns the accumulated name-pool buffer.
func (p *ProtocolPool) Bytes() []byte { return p.buf }

// DemangleSwiftProtocolName recovers a dotted module.Name for an
// Objective-C-visible protocol symbol: "_TtP" followed by one or more
// length-prefixed identifiers and a trailing "_". The prefix gate keeps
// non-protocol symbols out; the length-prefixed grammar itself is the
// legacy type-name scheme the demangler already parses. It reports
// ok=false for anything it cannot parse deterministically, in which
// case the caller leaves the protocol's demangled name empty rather
// than guess.
func DemangleSwiftProtocolName(symbol string) (string, bool) {
	if !strings.HasPrefix(symbol, swiftMangledProtocolPrefix) {
		return "", false
	}
	return demangle.DemangleLegacyTypeName(symbol)
}
