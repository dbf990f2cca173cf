package emit

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

// headerInfoFlagOptimizedByDyld is bit 3 of objc_image_info's flags,
// which emit_objc_header_info sets on every cache dylib's image-info to
// announce that the runtime may trust this dylib's ObjC metadata was
// cache-optimized.
const headerInfoFlagOptimizedByDyld = 1 << 3

// ObjCHeaderInfoEntry is one dylib's row in the emitted
// objc_headeropt_ro_t/objc_headeropt_rw_t arrays: HeaderOffset, which
// holds the dylib's absolute mach_header cache address (it is not made
// relative to the array entry, whose own cache address is not assigned
// here), and the image-info flags word with bit 3 set.
type ObjCHeaderInfoEntry struct {
	Dylib          model.DylibIndex
	HeaderOffset   int64 // the dylib's CacheLoadAddress, 0 if not yet assigned
	ImageInfoFlags uint32
}

// ObjCHeaderInfoResult is the output of emit_objc_header_info +
// emit_objc_hash_tables' header portion: one entry per ObjC dylib, in
// ascending cache-index order.
type ObjCHeaderInfoResult struct {
	RO []ObjCHeaderInfoEntry
	RW []ObjCHeaderInfoEntry
}

// EmitObjCHeaderInfo builds the read-only and read-write header-info
// arrays for every ObjC dylib. The read-write array holds the same
// entries as the read-only array in this builder (dylibs never need a distinct RW-only entry once load
// addresses are fixed at build time, matching how a fully prebuilt cache
// has no further runtime header mutation to track beyond the RO array),
// so RW mirrors RO; a future +load-bearing category could diverge the
// two without changing this function's contract.
func EmitObjCHeaderInfo(dylibs []*model.CacheDylib) *ObjCHeaderInfoResult {
	sorted := append([]*model.CacheDylib(nil), dylibs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CacheIndex < sorted[j].CacheIndex })

	res := &ObjCHeaderInfoResult{}
	for _, d := range sorted {
		if !d.IsObjC {
			continue
		}
		var off int64
		if d.HasCacheLoadAddress() {
			off = int64(d.CacheLoadAddress)
		}
		e := ObjCHeaderInfoEntry{Dylib: d.CacheIndex, HeaderOffset: off, ImageInfoFlags: headerInfoFlagOptimizedByDyld}
		res.RO = append(res.RO, e)
		res.RW = append(res.RW, e)
	}
	return res
}

// ClassLayoutAdjustment is one class's recomputed instance-start/size,
// produced by compute_objc_class_layout's BFS over the superclass chain.
type ClassLayoutAdjustment struct {
	Name          string
	InstanceStart uint32
	InstanceSize  uint32
}

// ClassLayoutResult is the per-class output of compute_objc_class_layout.
type ClassLayoutResult struct {
	Adjustments map[string]ClassLayoutAdjustment
}

// rootInstanceSize is the assumed instanceSize for a root class (one
// whose Superclass address does not resolve to another known class in
// this build) — this builder's metadata-visitor layer hands classes in
// already-resolved cache-address form, so "root" here means "superclass
// pointer does not resolve inside the closure this build was given",
// which for NSObject itself is exactly correct.
const rootInstanceSize = 8

// ComputeObjCClassLayout performs the BFS compute_objc_class_layout
// specifies: starting from classes whose Superclass does not resolve to
// another class in this build (roots), walk every subclass adjusting its
// instanceStart by the difference between the superclass's instanceSize
// and the subclass's own instanceStart, preserving the subclass's own
// ivar alignment by never shrinking instanceSize below the adjusted
// instanceStart. classesByDylib supplies the per-dylib Superclass
// pointers the optimizer's merged ClassNamePool does not retain.
func ComputeObjCClassLayout(classesByDylib []optimize.DylibObjCMetadata) *ClassLayoutResult {
	res := &ClassLayoutResult{Adjustments: map[string]ClassLayoutAdjustment{}}

	byAddr := map[addr.CacheVMAddress]optimize.ClassMetadata{}
	var order []optimize.ClassMetadata
	for _, d := range classesByDylib {
		for _, c := range d.Classes {
			byAddr[c.CacheVMAddr] = c
			order = append(order, c)
			res.Adjustments[c.Name] = ClassLayoutAdjustment{Name: c.Name, InstanceStart: rootInstanceSize, InstanceSize: rootInstanceSize}
		}
	}

	// Iterate to a fixed point: each pass propagates one more generation
	// of superclass->subclass adjustment, which converges in at most
	// len(order) passes for any acyclic class hierarchy.
	for pass := 0; pass < len(order); pass++ {
		changed := false
		for _, c := range order {
			super, ok := byAddr[c.Superclass]
			if !ok {
				continue // root: superclass unresolved in this build
			}
			supAdj, ok := res.Adjustments[super.Name]
			if !ok {
				continue
			}
			cur := res.Adjustments[c.Name]
			if cur.InstanceStart != supAdj.InstanceSize {
				cur.InstanceStart = supAdj.InstanceSize
				if cur.InstanceSize < cur.InstanceStart {
					cur.InstanceSize = cur.InstanceStart
				}
				res.Adjustments[c.Name] = cur
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return res
}
