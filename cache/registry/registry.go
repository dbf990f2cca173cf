// Package registry implements the InputRegistry: it receives candidate
// library buffers, validates them, separates cache-eligible dylibs from
// executables and ineligible dylibs, computes aliases, sorts into cache
// order, computes dependency edges, and removes transitively broken
// nodes.
package registry

import (
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cachebuild/dyldcache/cache/cerrors"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
)

// Warning is one excluded-dylib diagnostic, retrievable via ForEachWarning
// and formatted on demand to the wire format spec'd by the design:
// "Dylib located at '<path>' not placed in shared cache because: <reason>".
type Warning struct {
	Path   string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("Dylib located at '%s' not placed in shared cache because: %s", w.Path, w.Reason)
}

// Registry is the InputRegistry.
type Registry struct {
	cfg config.Config
	log *logrus.Entry

	files []*model.InputFile

	aliases             map[string]string // alias path -> real install-name
	intermediateAliases map[string]string // intermediate path -> real install-name

	cacheDylibs    []*model.CacheDylib
	nonCacheDylibs []*model.InputFile
	executables    []*model.InputFile

	// installNameIndex maps an install-name to its CacheDylib, populated
	// by categorizeInputs and kept current by verifySelfContained's
	// demotions.
	installNameIndex map[string]*model.CacheDylib

	warnings []Warning
}

// New returns an empty Registry bound to cfg and log.
func New(cfg config.Config, log *logrus.Entry) *Registry {
	return &Registry{
		cfg:                 cfg,
		log:                 log,
		aliases:             map[string]string{},
		intermediateAliases: map[string]string{},
		installNameIndex:    map[string]*model.CacheDylib{},
	}
}

// AddFile parses buf as a single Mach-O image. It does not select a
// slice from a fat file and does not filter by the configured platform:
// the platform read from the build-version command is only recorded in
// the parsed header. On a parse failure the file is still
// recorded, tagged with the failure as a per-file diagnostic retrievable
// later via ForEachWarning; AddFile itself only fails for cases that
// cannot be attributed to a single input (none today).
func (r *Registry) AddFile(buffer []byte, size int64, p string, inode uint64, mtime time.Time) error {
	in := &model.InputFile{Buffer: buffer, Size: size, Path: p, Inode: inode, Mtime: mtime}
	header, err := parseHeader(buffer)
	if err != nil {
		in.Err = err
		r.log.WithField("path", p).WithError(err).Debug("input rejected: not a recognized Mach-O slice")
	} else {
		in.Header = header
	}
	r.files = append(r.files, in)
	return nil
}

// SetAliases installs a path-rewriting table used downstream to translate
// symlinked install-names: aliases maps an alias path directly to a real
// install-name; intermediateAliases maps a macOS Current->A style
// intermediate path to a real install-name.
func (r *Registry) SetAliases(aliases, intermediateAliases map[string]string) {
	for k, v := range aliases {
		r.aliases[k] = v
	}
	for k, v := range intermediateAliases {
		r.intermediateAliases[k] = v
	}
}

// CategorizeInputs partitions InputFiles into cache-eligible dylibs,
// non-cache dylibs, and prebuildable executables. An install-name/path
// mismatch is reconciled by looking the install-name up as a real path
// and, when resolution matches the actual path, using the install-name.
func (r *Registry) CategorizeInputs() error {
	if len(r.files) == 0 {
		return cerrors.New(cerrors.InputInvalid, "no inputs registered", nil)
	}

	for _, in := range r.files {
		if in.Err != nil || in.Header == nil {
			r.recordExclusion(in.Path, "not a Mach-O recognized by this builder")
			continue
		}
		h := in.Header
		switch {
		case h.IsDylib:
			installName := h.InstallName
			if installName == "" {
				installName = in.Path
			} else if path.Clean(installName) != path.Clean(in.Path) {
				// Reconcile: if resolving the install-name as a real path
				// matches the actual file path, prefer the install-name.
				if r.resolveRealPath(installName) == in.Path {
					// installName already chosen
				} else if r.resolveRealPath(in.Path) == installName {
					installName = in.Path
				}
			}
			d := &model.CacheDylib{
				InstallName: installName,
				Input:       in,
				Header:      h,
				IsObjC:      h.HasObjC,
				HasThreadLocals: h.HasThreadLocals,
			}
			r.cacheDylibs = append(r.cacheDylibs, d)
			r.installNameIndex[installName] = d
		case h.IsDynamicExecutable:
			r.executables = append(r.executables, in)
		default:
			r.nonCacheDylibs = append(r.nonCacheDylibs, in)
			r.recordExclusion(in.Path, "not a dylib and not a dynamic executable")
		}
	}

	if len(r.cacheDylibs) == 0 {
		return cerrors.New(cerrors.InputInvalid, "no cache-eligible dylibs found", nil)
	}
	return nil
}

// resolveRealPath is the FileSystem collaborator's get_real_path, reduced
// to alias-table lookup since this builder has no live filesystem access
// at categorize time (inputs were already read into memory by add_file).
func (r *Registry) resolveRealPath(p string) string {
	if real, ok := r.aliases[p]; ok {
		return real
	}
	if real, ok := r.intermediateAliases[p]; ok {
		return real
	}
	return p
}

func (r *Registry) recordExclusion(p, reason string) {
	r.warnings = append(r.warnings, Warning{Path: p, Reason: reason})
	r.log.WithField("path", p).Warnf("excluded from cache: %s", reason)
}

// VerifySelfContained runs a fixed-point pass over cache dylibs: for each
// dependency load path, if the dependency is not among the potential
// cache dylibs (after real-path resolution), the referring dylib is
// marked bad UNLESS the edge is weak and the dependency is not present at
// all (break-on-weak rule) or appears in the configured
// AllowedMissingWeakDylibs set. Dependencies on already-bad dylibs
// propagate. Bad dylibs are demoted to non-cache inputs and removed from
// the cache set.
func (r *Registry) VerifySelfContained() error {
	bad := map[string]string{} // install-name -> reason

	for {
		changed := false
		for _, d := range r.cacheDylibs {
			if _, isBad := bad[d.InstallName]; isBad {
				continue
			}
			for _, dep := range d.Header.Dependencies {
				target := r.resolveRealPath(dep.Path)
				if _, ok := r.installNameIndex[target]; ok {
					if reason, depBad := bad[target]; depBad {
						bad[d.InstallName] = fmt.Sprintf("depends on bad dylib %s: %s", target, reason)
						changed = true
					}
					continue
				}
				// Dependency not found among cache dylibs.
				if dep.Kind == model.DependentWeakLink {
					continue // break-on-weak: missing weak dep is fine
				}
				if r.cfg.AllowedMissingWeakDylibs[target] {
					continue
				}
				bad[d.InstallName] = fmt.Sprintf("missing non-weak dependency %s", target)
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	if len(bad) == 0 {
		return nil
	}

	var kept []*model.CacheDylib
	for _, d := range r.cacheDylibs {
		if reason, isBad := bad[d.InstallName]; isBad {
			d.ExclusionReason = reason
			delete(r.installNameIndex, d.InstallName)
			r.nonCacheDylibs = append(r.nonCacheDylibs, d.Input)
			r.recordExclusion(d.Input.Path, reason)
			continue
		}
		kept = append(kept, d)
	}
	r.cacheDylibs = kept

	if len(r.cacheDylibs) == 0 {
		return cerrors.New(cerrors.InputInvalid, "no cache-eligible dylibs survived dependency verification", nil)
	}
	return nil
}

// SortDylibs applies the stable cache ordering: libobjc (when
// present) first, then the configured ordering file, then
// macOS-before-iOSMac, then lexicographic; cache_index becomes a dense
// 0..N enumeration of the result.
func (r *Registry) SortDylibs() {
	dylibs := append([]*model.CacheDylib(nil), r.cacheDylibs...)

	isLibobjc := func(d *model.CacheDylib) bool {
		return path.Base(d.InstallName) == "libobjc.A.dylib"
	}
	priority := func(d *model.CacheDylib) int {
		if p, ok := r.cfg.DylibOrdering[d.InstallName]; ok {
			return p
		}
		return int(^uint(0) >> 1) // max int: unordered entries sort last among priorities
	}

	sort.SliceStable(dylibs, func(i, j int) bool {
		a, b := dylibs[i], dylibs[j]
		if isLibobjc(a) != isLibobjc(b) {
			return isLibobjc(a)
		}
		if pa, pb := priority(a), priority(b); pa != pb {
			return pa < pb
		}
		if aMac, bMac := a.Header.Platform == "macOS", b.Header.Platform == "macOS"; aMac != bMac {
			return aMac // macOS before iOSMac
		}
		return a.InstallName < b.InstallName
	})

	for i, d := range dylibs {
		d.CacheIndex = model.DylibIndex(i)
	}
	r.cacheDylibs = dylibs
}

// CalculateDylibDependents populates dependents[] for each dylib with a
// kind and a pointer to the target CacheDylib (or nil for a
// weakly-missing dependency). Fails with DependencyMissing when a
// non-weak dependency cannot be resolved — this should not happen after
// VerifySelfContained, but is checked again defensively since the two
// operations are independently callable.
func (r *Registry) CalculateDylibDependents() error {
	for _, d := range r.cacheDylibs {
		d.Dependents = d.Dependents[:0]
		for _, dep := range d.Header.Dependencies {
			target := r.resolveRealPath(dep.Path)
			t, ok := r.installNameIndex[target]
			if !ok {
				if dep.Kind == model.DependentWeakLink || r.cfg.AllowedMissingWeakDylibs[target] {
					d.Dependents = append(d.Dependents, model.Dependent{Kind: dep.Kind, Target: nil})
					continue
				}
				return cerrors.Wrap(cerrors.DependencyMissing, nil, "dylib %s: dependency %s not found", d.InstallName, target)
			}
			d.Dependents = append(d.Dependents, model.Dependent{Kind: dep.Kind, Target: t})
		}
	}
	return nil
}

// CacheDylibs returns the current cache-eligible dylib set, in whatever
// order SortDylibs last left them (registration order if SortDylibs has
// not run yet).
func (r *Registry) CacheDylibs() []*model.CacheDylib { return r.cacheDylibs }

// Executables returns every input categorized as a prebuildable dynamic
// executable.
func (r *Registry) Executables() []*model.InputFile { return r.executables }

// ForEachWarning calls fn once per recorded diagnostic, in the order
// recorded.
func (r *Registry) ForEachWarning(fn func(Warning)) {
	for _, w := range r.warnings {
		fn(w)
	}
}

// ForEachCacheSymlink walks the alias table installed by SetAliases and
// yields (path, targetIndex) pairs for every alias whose target resolves
// to a surviving cache dylib.
func (r *Registry) ForEachCacheSymlink(fn func(aliasPath string, target model.DylibIndex)) {
	emit := func(table map[string]string) {
		paths := make([]string, 0, len(table))
		for p := range table {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			if d, ok := r.installNameIndex[table[p]]; ok {
				fn(p, d.CacheIndex)
			}
		}
	}
	emit(r.aliases)
	emit(r.intermediateAliases)
}
