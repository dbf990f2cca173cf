// Package visit implements the metadata-visitor layer: given a cache
// dylib's input Mach-O and its (already assigned) cache load address, it
// walks ObjC and Swift metadata and projects it into the shape
// cache/optimize's Optimizers and cache/dylibpass's rewrite steps consume,
// independent of whether that metadata still lives in on-disk or
// cache-builder form.
package visit

import (
	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
	"github.com/cachebuild/dyldcache/macho"
	"github.com/cachebuild/dyldcache/types/objc"
)

// cacheAddress approximates the split-seg adjustor's input-VM-to-cache-VM
// mapping with a single whole-dylib affine shift (cacheLoad - inputLoad).
// The real adjustor cache/dylibpass.applySplitSegInfo builds is
// segment-granular, but the metadata-visitor pass runs ahead of
// DylibPassRunner, before per-segment cache addresses are fixed; a
// single shift is the best approximation available at this point in the
// pipeline and is precise whenever the visited address and the dylib's
// __TEXT both lie in the same segment, which covers the overwhelming
// majority of ObjC/Swift metadata references.
func cacheAddress(d *model.CacheDylib, inputLoad, inputAddr uint64) addr.CacheVMAddress {
	return d.CacheLoadAddress.Add(addr.VMOffset(inputAddr - inputLoad))
}

func textBase(f *macho.File) uint64 {
	for _, s := range f.Segments() {
		if s.Name == "__TEXT" {
			return s.Addr
		}
	}
	return 0
}

// ObjC walks d's input buffer for ObjC classes, categories, protocols, and
// selector strings, and projects them into a DylibObjCMetadata ready for
// cache/optimize.Run. It returns a zero-value, no-error result for
// non-ObjC dylibs or dylibs whose input buffer was already released.
func ObjC(d *model.CacheDylib) (optimize.DylibObjCMetadata, error) {
	md := optimize.DylibObjCMetadata{Dylib: d.CacheIndex}
	if d.Input == nil || !d.IsObjC {
		return md, nil
	}

	f, err := macho.NewFile(newReaderAt(d.Input.Buffer))
	if err != nil {
		return md, err
	}
	defer f.Close()

	base := textBase(f)

	if names, err := f.GetObjCMethodNames(); err == nil {
		for name := range names {
			md.Selectors = append(md.Selectors, name)
		}
	}

	if classes, err := f.GetObjCClasses(); err == nil {
		for _, c := range classes {
			md.Classes = append(md.Classes, classMetadataFrom(d, base, c))
		}
	}

	if cats, err := f.GetObjCCategories(); err == nil {
		for _, c := range cats {
			md.Classes = append(md.Classes, categoryMetadataFrom(d, base, c))
		}
	}

	if protos, err := f.GetObjCProtocols(); err == nil {
		for _, p := range protos {
			name := p.DemangledName
			if name == "" {
				name = p.Name
			}
			md.Protocols = append(md.Protocols, optimize.ProtocolMetadata{
				Name:        name,
				SymbolName:  p.Name,
				CacheVMAddr: cacheAddress(d, base, p.Ptr),
			})
		}
	}

	return md, nil
}

func classMetadataFrom(d *model.CacheDylib, base uint64, c *objc.Class) optimize.ClassMetadata {
	cm := optimize.ClassMetadata{
		Name:        c.Name,
		CacheVMAddr: cacheAddress(d, base, c.ClassPtr),
	}
	if c.SuperclassVMAddr != 0 {
		cm.Superclass = cacheAddress(d, base, c.SuperclassVMAddr)
	}
	for _, m := range c.InstanceMethods {
		cm.Methods = append(cm.Methods, optimize.ImpCacheMethod{
			Selector: m.Name,
			IMP:      cacheAddress(d, base, m.ImpVMAddr),
		})
	}
	for _, m := range c.ClassMethods {
		cm.Methods = append(cm.Methods, optimize.ImpCacheMethod{
			Selector: m.Name,
			IMP:      cacheAddress(d, base, m.ImpVMAddr),
		})
	}
	return cm
}

func categoryMetadataFrom(d *model.CacheDylib, base uint64, c objc.Category) optimize.ClassMetadata {
	cm := optimize.ClassMetadata{
		Name:        c.Name,
		CacheVMAddr: cacheAddress(d, base, c.VMAddr),
	}
	for _, m := range c.InstanceMethods {
		cm.Methods = append(cm.Methods, optimize.ImpCacheMethod{Selector: m.Name, IMP: cacheAddress(d, base, m.ImpVMAddr)})
	}
	for _, m := range c.ClassMethods {
		cm.Methods = append(cm.Methods, optimize.ImpCacheMethod{Selector: m.Name, IMP: cacheAddress(d, base, m.ImpVMAddr)})
	}
	return cm
}
