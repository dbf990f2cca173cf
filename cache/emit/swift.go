package emit

import (
	"encoding/binary"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/optimize"
	"github.com/cachebuild/dyldcache/cache/optimize/perfecthash"
)

// swiftConformanceSalt seeds the three Swift perfect-hash tables. It is
// fixed rather than derived per build so that two builds over the same
// input set produce byte-identical tables, keeping
// rebuilds reproducible.
const swiftConformanceSalt = 0x7377_6966_7470_7463 // "swiftptc"

// SwiftHashTable is one emitted perfect-hash table over a Swift
// conformance map: capacity/shift/mask/scramble/tab drive the probe,
// targets holds the payload (a cache-relative conformance-record
// offset) per slot, and checkBytes rejects false hits without a second
// key read.
type SwiftHashTable struct {
	Capacity    uint32
	Shift       uint32
	Mask        uint32
	Salt        uint64
	Scramble    [256]uint32
	Tab         []uint8
	Targets     []uint64 // conformance offset per capacity slot, 0 if empty
	CheckBytes  []uint8
}

// SwiftHashTables is the output of emit_swift_hash_tables: the three
// on-disk perfect-hash tables for type, metadata, and foreign Swift
// protocol conformances. Disabled returns all three tables empty when
// the build's ObjC/Swift optimization pass was turned off.
type SwiftHashTables struct {
	Type      *SwiftHashTable
	Metadata  *SwiftHashTable
	Foreign   *SwiftHashTable
	Disabled  bool
}

// EmitSwiftHashTables builds the three perfect-hash tables over tables'
// accumulated conformance maps. When cfg.DisableObjCHashTables is set,
// it returns an empty, Disabled result rather than building tables no
// runtime will consult.
func EmitSwiftHashTables(tables *optimize.SwiftConformanceTables, cfg config.ObjCOptimizations) *SwiftHashTables {
	if cfg.DisableObjCHashTables {
		return &SwiftHashTables{Disabled: true}
	}
	return &SwiftHashTables{
		Type:     buildTypeTable(tables.TypeConformances()),
		Metadata: buildMetadataTable(tables.MetadataConformances()),
		Foreign:  buildForeignTable(tables.ForeignConformances()),
	}
}

func buildTypeTable(entries []optimize.TypeConformanceEntry) *SwiftHashTable {
	pe := make([]perfecthash.Entry, len(entries))
	targets := make([]uint64, len(entries))
	for i, e := range entries {
		pe[i] = perfecthash.Entry{Key: addrKey(e.TypeDescriptor), Aux: uint64(e.Protocol)}
		targets[i] = uint64(e.Conformance)
	}
	return buildTable(pe, targets)
}

func buildMetadataTable(entries []optimize.MetadataConformanceEntry) *SwiftHashTable {
	pe := make([]perfecthash.Entry, len(entries))
	targets := make([]uint64, len(entries))
	for i, e := range entries {
		pe[i] = perfecthash.Entry{Key: addrKey(e.Class), Aux: uint64(e.Protocol)}
		targets[i] = uint64(e.Conformance)
	}
	return buildTable(pe, targets)
}

func buildForeignTable(entries []optimize.ForeignConformanceEntry) *SwiftHashTable {
	pe := make([]perfecthash.Entry, len(entries))
	targets := make([]uint64, len(entries))
	for i, e := range entries {
		pe[i] = perfecthash.Entry{Key: []byte(e.Name), Aux: uint64(e.Protocol)}
		targets[i] = uint64(e.Conformance)
	}
	return buildTable(pe, targets)
}

func buildTable(entries []perfecthash.Entry, payload []uint64) *SwiftHashTable {
	t := perfecthash.Build(entries, swiftConformanceSalt)

	targets := make([]uint64, t.Capacity)
	for slot, idx := range t.Slots {
		if idx == -1 {
			continue
		}
		targets[slot] = payload[idx]
	}

	return &SwiftHashTable{
		Capacity:   t.Capacity,
		Mask:       t.Mask,
		Salt:       t.Salt,
		Scramble:   t.Scramble,
		Tab:        t.Tab,
		Targets:    targets,
		CheckBytes: t.CheckBytes,
	}
}

// addrKey turns a cache address into the 8-byte little-endian key the
// perfect-hash table hashes, matching how dyld hashes raw descriptor
// pointers rather than any derived string form.
func addrKey(a addr.CacheVMAddress) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(a))
	return b[:]
}
