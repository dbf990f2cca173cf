package emit

import (
	"encoding/hex"
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

// Sizes (in bytes) of the fixed PrebuiltLoader wire structures this
// estimator sums over. Like the patch table, the prebuilt-loader set is
// sized but never parsed back by this builder, so these constants live
// here rather than in a shared types package.
const (
	sizeofPrebuiltLoaderHeader = 64
	sizeofDependentKind        = 1
	sizeofFileValidation       = 32
	sizeofRegionEntry          = 16
	sizeofDylibPatch           = 8

	// executableLoaderSize is the flat estimate assigned to every
	// launch executable's PrebuiltLoader, regardless of its actual
	// dependent count.
	executableLoaderSize = 16 * 1024

	pathAlignment = 8
)

// LoaderDependent is one edge of a PrebuiltLoader's dependents array:
// the dependency's cache index and the kind byte stored alongside it.
type LoaderDependent struct {
	Kind   model.DependentKind
	Target model.DylibIndex // -1 for a weakly-missing dependency
}

// LoaderFileValidation records how the runtime may re-validate the
// loader's backing file before trusting the prebuilt record. Inode and
// Mtime are zero when the build was configured with
// dylibsRemovedFromDisk (there is no on-disk file left to validate
// against).
type LoaderFileValidation struct {
	Inode uint64
	Mtime int64
}

// LoaderRegion is one mapped region of the loader's image, mirrored
// from the dylib's segment chunks.
type LoaderRegion struct {
	VMAddr addr.CacheVMAddress
	Size   addr.CacheVMSize
}

// PrebuiltLoaderEntry is one dylib or executable's PrebuiltLoader: the
// materialized record fields plus the estimator's sizing of the wire
// form.
type PrebuiltLoaderEntry struct {
	Dylib model.DylibIndex
	Size  uint64

	InstallName string
	Path        string
	Dependents  []LoaderDependent
	Validation  LoaderFileValidation
	Regions     []LoaderRegion

	// DylibPatchCount is the number of DylibPatch records appended for
	// this loader; nonzero only on macOS/iOSMac builds.
	DylibPatchCount int
}

// PrebuiltLoaderSet is the output of estimate_cache_dylib_loaders or
// estimate_executable_loaders: one entry per image plus the summed
// total, in ascending cache-index order.
type PrebuiltLoaderSet struct {
	Entries   []PrebuiltLoaderEntry
	TotalSize uint64
}

// EstimateCacheDylibLoaders builds one PrebuiltLoader per cache dylib
// and sizes its wire form: the fixed header, the NUL-terminated install
// name and realpath (8-byte aligned), one byte per dependent for its
// DependentKind, a file-validation record, one region entry per
// segment, and — on macOS/iOSMac builds only — one DylibPatch per
// exported symbol, since only those platforms allow a root library to
// override a cache dylib. arena supplies each segment chunk's resolved
// cache address for the region array; a nil arena leaves Regions empty
// (sizing is unaffected, region count comes from the dylib itself).
func EstimateCacheDylibLoaders(arena *model.Arena, dylibs []*model.CacheDylib, cfg config.Config) *PrebuiltLoaderSet {
	sorted := append([]*model.CacheDylib(nil), dylibs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CacheIndex < sorted[j].CacheIndex })

	includesDylibPatches := cfg.Platform == config.PlatformMacOS || cfg.Platform == config.PlatformIOSMac

	res := &PrebuiltLoaderSet{}
	for _, d := range sorted {
		entry := PrebuiltLoaderEntry{
			Dylib:       d.CacheIndex,
			InstallName: d.InstallName,
		}

		size := uint64(sizeofPrebuiltLoaderHeader)
		size += alignUp(uint64(len(d.InstallName)+1), pathAlignment)
		if d.Input != nil {
			entry.Path = d.Input.Path
			if !cfg.DylibsRemovedFromDisk {
				entry.Validation = LoaderFileValidation{Inode: d.Input.Inode, Mtime: d.Input.Mtime.Unix()}
			}
			size += alignUp(uint64(len(d.Input.Path)+1), pathAlignment)
		}
		size += uint64(len(d.Dependents)) * sizeofDependentKind
		size += sizeofFileValidation
		size += uint64(len(d.Segments)) * sizeofRegionEntry

		for _, dep := range d.Dependents {
			ld := LoaderDependent{Kind: dep.Kind, Target: -1}
			if dep.Target != nil {
				ld.Target = dep.Target.CacheIndex
			}
			entry.Dependents = append(entry.Dependents, ld)
		}
		if arena != nil {
			for _, id := range d.Segments {
				c := arena.Chunk(id)
				if c == nil || !c.Allocated {
					continue
				}
				entry.Regions = append(entry.Regions, LoaderRegion{VMAddr: c.CacheVMAddr, Size: c.CacheVMSize})
			}
		}

		if includesDylibPatches && d.OptimizedSymbols != nil {
			entry.DylibPatchCount = d.OptimizedSymbols.ExportedCount
			size += uint64(entry.DylibPatchCount) * sizeofDylibPatch
		}

		entry.Size = size
		res.Entries = append(res.Entries, entry)
		res.TotalSize += size
	}
	return res
}

// ExecutableInput is one launch executable the prebuilt-loader and
// dylib-trie builders must account for: its own cache-relative path
// (used as a trie key alongside its dependencies' install names) and
// its code-directory hash, recorded for the /cdhash/ trie entry.
type ExecutableInput struct {
	Path  string
	CDHash [20]byte
}

// CDHashTriePath formats e's code-directory hash as the
// /cdhash/<40 hex lowercase> trie key, registered alongside the
// executable's ordinary path entry.
func (e ExecutableInput) CDHashTriePath() string {
	return "/cdhash/" + hex.EncodeToString(e.CDHash[:])
}

// EstimateExecutableLoaders sizes one flat 16 KiB PrebuiltLoader per
// launch executable and registers both its path and its /cdhash/ alias
// into trie, so the executables trie carries both path entries and
// code-directory hash entries. The executable's own
// DylibIndex space is disjoint from cache dylibs' (negative, so
// EstimateCacheDylibLoaders and this function never collide when their
// results are merged by the Finalizer).
func EstimateExecutableLoaders(executables []ExecutableInput, trie *optimize.DylibTrie) *PrebuiltLoaderSet {
	res := &PrebuiltLoaderSet{}
	for i, e := range executables {
		idx := model.DylibIndex(-(i + 1))
		res.Entries = append(res.Entries, PrebuiltLoaderEntry{Dylib: idx, Size: executableLoaderSize})
		res.TotalSize += executableLoaderSize

		if trie != nil {
			trie.Add(e.Path, int32(idx))
			trie.Add(e.CDHashTriePath(), int32(idx))
		}
	}
	return res
}

func alignUp(v, align uint64) uint64 {
	return addr.AlignUp(v, align)
}
