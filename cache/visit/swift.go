package visit

import (
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
	"github.com/cachebuild/dyldcache/macho"
	"github.com/cachebuild/dyldcache/types/swift/protocols"
)

// Swift walks d's __TEXT,__swift5_proto section and classifies every
// conformance record into the shape cache/optimize.Run's conformance-table
// merge consumes. Protocol and conformance addresses are approximated the
// same way ObjC does (see cacheAddress's doc comment).
//
// directObjCClassName/indirectObjCClass conformances are not yet emitted:
// resolving either requires reading the conforming class's name (or an
// indirection to its class object) relative to the conformance record's
// own address, and macho.File.GetSwiftProtocolConformances does not
// return that address alongside the decoded ConformanceDescriptor. Rather
// than fabricate a name (which would silently collapse every such
// conformance onto one shared foreign-table key), this pass skips them;
// doing this properly needs a small upstream change to that accessor.
func Swift(d *model.CacheDylib) (optimize.DylibObjCMetadata, error) {
	md := optimize.DylibObjCMetadata{Dylib: d.CacheIndex}
	if d.Input == nil {
		return md, nil
	}

	f, err := macho.NewFile(newReaderAt(d.Input.Buffer))
	if err != nil {
		return md, err
	}
	defer f.Close()

	descs, err := f.GetSwiftProtocolConformances()
	if err != nil {
		// A dylib with no __swift5_proto section is the common case, not
		// a failure this visitor should propagate.
		return md, nil
	}

	base := textBase(f)
	for _, pcd := range *descs {
		if ci, ok := conformanceInputFrom(d, base, pcd); ok {
			md.Conformances = append(md.Conformances, ci)
		}
	}
	return md, nil
}

// conformanceInputFrom classifies one conformance descriptor, returning
// ok=false for the class-name-keyed kinds this visitor cannot yet resolve
// (see Swift's doc comment).
func conformanceInputFrom(d *model.CacheDylib, base uint64, pcd protocols.ConformanceDescriptor) (optimize.ConformanceInput, bool) {
	proto := cacheAddress(d, base, uint64(int64(pcd.ProtocolDescriptor)))
	conformance := cacheAddress(d, base, uint64(int64(pcd.NominalTypeDescriptor)))

	switch pcd.ConformanceFlags.GetTypeReferenceKind() {
	case protocols.DirectTypeDescriptor:
		return optimize.ConformanceInput{
			Kind:            optimize.ConformanceDirectType,
			TypeDescriptor:  cacheAddress(d, base, uint64(int64(pcd.NominalTypeDescriptor))),
			Protocol:        proto,
			ConformanceAddr: conformance,
		}, true
	case protocols.IndirectTypeDescriptor:
		return optimize.ConformanceInput{
			Kind:            optimize.ConformanceIndirectType,
			TypeDescriptor:  cacheAddress(d, base, uint64(int64(pcd.NominalTypeDescriptor))),
			Protocol:        proto,
			ConformanceAddr: conformance,
		}, true
	default: // protocols.DirectObjCClassName, protocols.IndirectObjCClass
		return optimize.ConformanceInput{}, false
	}
}
