package optimize

import "github.com/cachebuild/dyldcache/cache/addr"

// typeConformanceKey addresses the type-conformance table: a nominal
// type descriptor paired with the protocol it conforms to.
type typeConformanceKey struct {
	TypeDescriptor addr.CacheVMAddress
	Protocol       addr.CacheVMAddress
}

// metadataConformanceKey addresses the metadata-conformance table: an
// already-realized class metadata address paired with the protocol.
type metadataConformanceKey struct {
	Class    addr.CacheVMAddress
	Protocol addr.CacheVMAddress
}

// foreignKey addresses the foreign-conformance table by the conforming
// type's *name* rather than its descriptor address, since a foreign
// (non-Swift, non-ObjC) type has no single canonical descriptor. The
// name is carried as its own byte slice rather than assumed
// NUL-terminated, since Swift mangled names embedded in the conformance
// record may themselves contain interior NUL bytes; lookups must match
// byte-for-byte over exactly len(Name) bytes.
type foreignKey struct {
	Name     string
	Protocol addr.CacheVMAddress
}

// SwiftConformanceTables accumulates the three conformance maps spec'd
// for the cache's Swift protocol-conformance acceleration structure,
// keyed the way the runtime looks them up: by type descriptor, by
// realized class metadata, or by foreign type name.
type SwiftConformanceTables struct {
	typeConformance     map[typeConformanceKey]addr.CacheVMAddress
	metadataConformance map[metadataConformanceKey]addr.CacheVMAddress
	foreignConformance  map[foreignKey]addr.CacheVMAddress

	typeOrder     []typeConformanceKey
	metadataOrder []metadataConformanceKey
	foreignOrder  []foreignKey
}

// NewSwiftConformanceTables returns an empty table set.
func NewSwiftConformanceTables() *SwiftConformanceTables {
	return &SwiftConformanceTables{
		typeConformance:     map[typeConformanceKey]addr.CacheVMAddress{},
		metadataConformance: map[metadataConformanceKey]addr.CacheVMAddress{},
		foreignConformance:  map[foreignKey]addr.CacheVMAddress{},
	}
}

// AddTypeConformance records a direct or indirect type-descriptor
// conformance.
func (t *SwiftConformanceTables) AddTypeConformance(typeDesc, proto addr.CacheVMAddress, conformance addr.CacheVMAddress) {
	k := typeConformanceKey{TypeDescriptor: typeDesc, Protocol: proto}
	if _, exists := t.typeConformance[k]; !exists {
		t.typeOrder = append(t.typeOrder, k)
	}
	t.typeConformance[k] = conformance
}

// AddMetadataConformance records a direct Objective-C class conformance
// (the class has realized metadata but the conformance was attached by
// name).
func (t *SwiftConformanceTables) AddMetadataConformance(class, proto addr.CacheVMAddress, conformance addr.CacheVMAddress) {
	k := metadataConformanceKey{Class: class, Protocol: proto}
	if _, exists := t.metadataConformance[k]; !exists {
		t.metadataOrder = append(t.metadataOrder, k)
	}
	t.metadataConformance[k] = conformance
}

// AddForeignConformance records a conformance reached only by an
// Objective-C class name the builder could not resolve to a descriptor
// (IndirectObjCClass references, or classes outside the cache closure).
// name is copied byte-for-byte, interior NULs included.
func (t *SwiftConformanceTables) AddForeignConformance(name string, proto addr.CacheVMAddress, conformance addr.CacheVMAddress) {
	k := foreignKey{Name: name, Protocol: proto}
	if _, exists := t.foreignConformance[k]; !exists {
		t.foreignOrder = append(t.foreignOrder, k)
	}
	t.foreignConformance[k] = conformance
}

// LookupForeign looks up a foreign conformance by the exact name bytes
// (which may contain embedded NULs) and protocol offset pair used at
// insertion time.
func (t *SwiftConformanceTables) LookupForeign(name string, proto addr.CacheVMAddress) (addr.CacheVMAddress, bool) {
	v, ok := t.foreignConformance[foreignKey{Name: name, Protocol: proto}]
	return v, ok
}

// Len reports the number of entries in each of the three tables.
func (t *SwiftConformanceTables) Len() (typeN, metadataN, foreignN int) {
	return len(t.typeConformance), len(t.metadataConformance), len(t.foreignConformance)
}

// TypeConformanceEntry is one row of the type-descriptor conformance
// table, exported for the GlobalEmitters phase to hash into the
// on-disk perfect-hash table.
type TypeConformanceEntry struct {
	TypeDescriptor addr.CacheVMAddress
	Protocol       addr.CacheVMAddress
	Conformance    addr.CacheVMAddress
}

// TypeConformances returns every type-descriptor conformance in
// insertion order (ascending dylib cache-index order, since Run merges
// per-dylib metadata that way).
func (t *SwiftConformanceTables) TypeConformances() []TypeConformanceEntry {
	out := make([]TypeConformanceEntry, 0, len(t.typeOrder))
	for _, k := range t.typeOrder {
		out = append(out, TypeConformanceEntry{TypeDescriptor: k.TypeDescriptor, Protocol: k.Protocol, Conformance: t.typeConformance[k]})
	}
	return out
}

// MetadataConformanceEntry is one row of the realized-class conformance
// table.
type MetadataConformanceEntry struct {
	Class       addr.CacheVMAddress
	Protocol    addr.CacheVMAddress
	Conformance addr.CacheVMAddress
}

// MetadataConformances returns every realized-class conformance in
// insertion order.
func (t *SwiftConformanceTables) MetadataConformances() []MetadataConformanceEntry {
	out := make([]MetadataConformanceEntry, 0, len(t.metadataOrder))
	for _, k := range t.metadataOrder {
		out = append(out, MetadataConformanceEntry{Class: k.Class, Protocol: k.Protocol, Conformance: t.metadataConformance[k]})
	}
	return out
}

// ForeignConformanceEntry is one row of the foreign-type conformance
// table, keyed by name rather than descriptor address.
type ForeignConformanceEntry struct {
	Name        string
	Protocol    addr.CacheVMAddress
	Conformance addr.CacheVMAddress
}

// ForeignConformances returns every foreign conformance in insertion
// order.
func (t *SwiftConformanceTables) ForeignConformances() []ForeignConformanceEntry {
	out := make([]ForeignConformanceEntry, 0, len(t.foreignOrder))
	for _, k := range t.foreignOrder {
		out = append(out, ForeignConformanceEntry{Name: k.Name, Protocol: k.Protocol, Conformance: t.foreignConformance[k]})
	}
	return out
}
