// Package optimize implements the cache's Optimizers: the parallel,
// per-dylib analyzers that gather global material — canonical
// selector/class/protocol name pools, IMP-cache candidates, and Swift
// protocol-conformance tables — ahead of the per-dylib rewrite pass.
package optimize

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

// ClassMetadata is one ObjC class (or category) a dylib contributes,
// already resolved to a cache address by the metadata-visitor layer.
type ClassMetadata struct {
	Name           string
	CacheVMAddr    addr.CacheVMAddress
	Methods        []ImpCacheMethod
	Superclass     addr.CacheVMAddress // 0 if unresolved
}

// ProtocolMetadata is one ObjC or Swift-visible protocol definition a
// dylib contributes.
type ProtocolMetadata struct {
	Name        string
	SymbolName  string // used to synthesize Name when Name == ""
	CacheVMAddr addr.CacheVMAddress
}

// ConformanceKind classifies how a Swift protocol conformance record
// refers to its conforming type, mirroring the reference kinds the
// metadata-visitor layer reads off ConformanceFlags.
type ConformanceKind int

const (
	// ConformanceDirectType and ConformanceIndirectType both key the
	// type-conformance table by type-descriptor address; the
	// distinction (whether the descriptor was reached directly or
	// through one more pointer indirection) is resolved by the visitor
	// before this struct is built, so both land in the same table.
	ConformanceDirectType ConformanceKind = iota
	ConformanceIndirectType
	// ConformanceMetadata is a directObjCClassName conformance whose
	// class the visitor already resolved to realized class metadata.
	ConformanceMetadata
	// ConformanceForeign is an indirectObjCClass (or otherwise
	// unresolved) conformance kept by name only.
	ConformanceForeign
)

// ConformanceInput is one Swift protocol conformance record a dylib
// contributes, already classified and address-resolved by the
// metadata-visitor layer.
type ConformanceInput struct {
	Kind            ConformanceKind
	TypeDescriptor  addr.CacheVMAddress // valid for ConformanceDirectType/ConformanceIndirectType
	Class           addr.CacheVMAddress // valid for ConformanceMetadata
	ForeignName     string              // valid for ConformanceForeign; may contain embedded NULs
	Protocol        addr.CacheVMAddress
	ConformanceAddr addr.CacheVMAddress
}

// DylibObjCMetadata is the per-dylib input the Optimizers consume: every
// selector string, class, protocol, and Swift conformance the
// metadata-visitor layer found for one cache dylib.
type DylibObjCMetadata struct {
	Dylib        model.DylibIndex
	Selectors    []string
	Classes      []ClassMetadata
	Protocols    []ProtocolMetadata
	Conformances []ConformanceInput
}

// Result is the complete output of a Run: the pools and tables every
// later stage (DylibPassRunner rewrites, GlobalEmitters) reads from.
type Result struct {
	Selectors   *SelectorPool
	ClassNames  *ClassNamePool
	Protocols   *ProtocolPool
	ImpCaches   map[string]ClassImpCache // class name -> built cache
	Conformances *SwiftConformanceTables

	// Warnings collects optional-optimization downgrades (e.g. an
	// IMP-cache method whose selector never made it into the pool).
	Warnings []string
}

// Run merges per-dylib metadata gathered in parallel (the caller is
// responsible for that fan-out; Run itself is the deterministic
// sequential merge) in ascending dylib cache-index order, per the
// invariant that every merge following a parallel collect must consume
// entries in that order to produce deterministic byte output.
func Run(perDylib []DylibObjCMetadata, impCacheEnabled bool, salt uint64) *Result {
	sorted := append([]DylibObjCMetadata(nil), perDylib...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Dylib < sorted[j].Dylib })

	res := &Result{
		Selectors:    NewSelectorPool(),
		ClassNames:   NewClassNamePool(),
		Protocols:    NewProtocolPool(),
		ImpCaches:    map[string]ClassImpCache{},
		Conformances: NewSwiftConformanceTables(),
	}

	// IMP-cache selectors are interned first so they land at the
	// smallest offsets.
	if impCacheEnabled {
		for _, d := range sorted {
			for _, c := range d.Classes {
				for _, m := range c.Methods {
					res.Selectors.Intern(m.Selector)
				}
			}
		}
	}
	for _, d := range sorted {
		for _, s := range d.Selectors {
			res.Selectors.Intern(s)
		}
	}

	for _, d := range sorted {
		for _, c := range d.Classes {
			res.ClassNames.Add(c.Name, d.Dylib, c.CacheVMAddr)
		}
	}

	for _, d := range sorted {
		for _, p := range d.Protocols {
			res.Protocols.Add(p.Name, p.SymbolName, d.Dylib, p.CacheVMAddr)
		}
	}

	for _, d := range sorted {
		for _, c := range d.Conformances {
			switch c.Kind {
			case ConformanceDirectType, ConformanceIndirectType:
				res.Conformances.AddTypeConformance(c.TypeDescriptor, c.Protocol, c.ConformanceAddr)
			case ConformanceMetadata:
				res.Conformances.AddMetadataConformance(c.Class, c.Protocol, c.ConformanceAddr)
			case ConformanceForeign:
				res.Conformances.AddForeignConformance(c.ForeignName, c.Protocol, c.ConformanceAddr)
			}
		}
	}

	if impCacheEnabled {
		for _, d := range sorted {
			for _, c := range d.Classes {
				if len(c.Methods) == 0 {
					continue
				}
				fallback := int32(-1)
				built, missing := BuildClassImpCache(c.Methods, res.Selectors, fallback, salt)
				res.ImpCaches[c.Name] = built
				for _, m := range missing {
					res.Warnings = append(res.Warnings, "imp cache: class "+c.Name+": selector not in pool: "+m)
				}
			}
		}
	}

	return res
}
