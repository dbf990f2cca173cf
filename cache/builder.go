// Package cache implements the Builder: the orchestrator that wires the
// InputRegistry, Optimizers, SubCacheLayouter, DylibPassRunner,
// GlobalEmitters and Finalizer phases together into one shared-cache
// build, in their fixed pipeline order.
package cache

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/cerrors"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/dylibpass"
	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/finalize"
	"github.com/cachebuild/dyldcache/cache/internal/clog"
	"github.com/cachebuild/dyldcache/cache/layout"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
	"github.com/cachebuild/dyldcache/cache/registry"
	"github.com/cachebuild/dyldcache/cache/visit"
)

// Builder drives one shared-cache build end to end. It is single-use:
// construct with New, feed it inputs with AddFile/SetAliases, then call
// Build once.
type Builder struct {
	cfg config.Config
	log *logrus.Entry

	reg   *registry.Registry
	arena *model.Arena

	dylibs []*model.CacheDylib

	opt    *optimize.Result
	runner *dylibpass.Runner
	emit   *emit.Result
	final  *finalize.Result
}

// New returns a Builder for cfg. If log is nil, diagnostics are discarded
// (suitable for library embedders and tests that don't care about the
// log stream).
func New(cfg config.Config, log *logrus.Entry) *Builder {
	cfg = cfg.Normalized()
	if log == nil {
		log = clog.Discard()
	}
	return &Builder{
		cfg:   cfg,
		log:   log,
		reg:   registry.New(cfg, log),
		arena: model.NewArena(),
	}
}

// AddFile registers one candidate input buffer, the same as
// InputRegistry.AddFile.
func (b *Builder) AddFile(buffer []byte, size int64, path string, inode uint64, mtime time.Time) error {
	return b.reg.AddFile(buffer, size, path, inode, mtime)
}

// SetAliases installs the alias-resolution tables InputRegistry needs to
// reconcile install-name/path mismatches and to later enumerate cache
// symlinks.
func (b *Builder) SetAliases(aliases, intermediateAliases map[string]string) {
	b.reg.SetAliases(aliases, intermediateAliases)
}

// Results collects every phase's output a caller needs after Build
// succeeds: the final dylib set, the optimizer tables, the GlobalEmitters
// tables, and the Finalizer's per-sub-cache headers and signatures.
type Results struct {
	Dylibs   []*model.CacheDylib
	Arena    *model.Arena
	Optimize *optimize.Result
	Emit     *emit.Result
	Finalize *finalize.Result
}

// GetResults returns every phase's output, valid only after a successful
// Build.
func (b *Builder) GetResults() *Results {
	return &Results{
		Dylibs:   b.dylibs,
		Arena:    b.arena,
		Optimize: b.opt,
		Emit:     b.emit,
		Finalize: b.final,
	}
}

// ForEachWarning iterates every diagnostic InputRegistry recorded, in
// recording order, formatted by Warning.String.
func (b *Builder) ForEachWarning(fn func(registry.Warning)) {
	b.reg.ForEachWarning(fn)
}

// ForEachCacheSymlink iterates every alias whose target survived into the
// cache, yielding (aliasPath, targetCacheIndex) pairs.
func (b *Builder) ForEachCacheSymlink(fn func(path string, target model.DylibIndex)) {
	b.reg.ForEachCacheSymlink(fn)
}

// Build runs every phase in order: InputRegistry, SubCacheLayouter,
// buffer allocation, the metadata-visitor sweep, Optimizers,
// DylibPassRunner, GlobalEmitters, Finalizer. It returns the first error
// encountered; partial results up to that point remain available via
// GetResults for diagnostics.
func (b *Builder) Build() error {
	if err := b.reg.CategorizeInputs(); err != nil {
		return err
	}
	if err := b.reg.VerifySelfContained(); err != nil {
		return err
	}
	b.reg.SortDylibs()
	if err := b.reg.CalculateDylibDependents(); err != nil {
		return err
	}
	b.dylibs = b.reg.CacheDylibs()
	b.arena.SetDylibs(b.dylibs)

	for _, w := range collectWarnings(b.reg) {
		b.log.WithField("path", w.Path).Warn(w.Reason)
	}

	plan, err := layout.Partition(b.arena, b.cfg, b.dylibs)
	if err != nil {
		return err
	}
	if err := b.allocateSubCacheBuffers(plan); err != nil {
		return err
	}

	perDylibMD, err := b.gatherObjCMetadata()
	if err != nil {
		return err
	}

	impCacheEnabled := b.cfg.ObjCOptimizations.OptimizeImpCaches
	b.opt = optimize.Run(perDylibMD, impCacheEnabled, impCacheSalt)

	b.runner = dylibpass.New(b.cfg, b.arena, b.opt, b.gatherNeverEliminateStubs())
	if err := b.runner.Run(b.dylibs); err != nil {
		return err
	}

	emitters := emit.New(b.cfg, b.arena, b.opt, perDylibMD, b.runner.ASLR(), b.dylibs)
	execInputs := b.gatherExecutableInputs()
	aliases := b.gatherAliasEntries()
	gotUses := b.gatherGOTUses()

	res, err := emitters.Run(gotUses, execInputs, b.tlvConfig(), aliases)
	if err != nil {
		return err
	}
	b.emit = res
	for _, w := range emitters.Warnings {
		b.log.Warn(w)
	}

	fin := finalize.New(b.cfg, b.arena, b.emit, b.dylibs)
	final, err := fin.Run()
	if err != nil {
		return err
	}
	b.final = final

	return nil
}

// Close releases every sub-cache's backing store. Callers that used
// file-backed sub-caches must call this once done with the build's
// output.
func (b *Builder) Close() error {
	return b.arena.Close()
}

// impCacheSalt seeds the IMP-cache perfect-hash tables; fixed so builds
// from identical inputs are byte-identical.
const impCacheSalt = 0x696d7043616368 // "impCach" in ASCII, arbitrary but stable

func collectWarnings(r *registry.Registry) []registry.Warning {
	var out []registry.Warning
	r.ForEachWarning(func(w registry.Warning) { out = append(out, w) })
	return out
}

// gatherObjCMetadata runs the metadata-visitor layer over every cache
// dylib now that CacheLoadAddress is fixed, producing the per-dylib input
// optimize.Run and compute_objc_class_layout both need.
func (b *Builder) gatherObjCMetadata() ([]optimize.DylibObjCMetadata, error) {
	out := make([]optimize.DylibObjCMetadata, 0, len(b.dylibs))
	for _, d := range b.dylibs {
		md, err := visit.ObjC(d)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.FormatUnsupported, err, "dylib %s: objc metadata visit", d.InstallName)
		}
		swiftMD, err := visit.Swift(d)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.FormatUnsupported, err, "dylib %s: swift metadata visit", d.InstallName)
		}
		md.Conformances = append(md.Conformances, swiftMD.Conformances...)
		out = append(out, md)
	}
	return out, nil
}

// gatherAliasEntries projects InputRegistry's alias table into the
// (path, dylib index) pairs GlobalEmitters' dylib-trie builder consumes.
func (b *Builder) gatherAliasEntries() []emit.AliasEntry {
	var out []emit.AliasEntry
	b.reg.ForEachCacheSymlink(func(path string, target model.DylibIndex) {
		out = append(out, emit.AliasEntry{Path: path, DylibIndex: target})
	})
	return out
}

// gatherExecutableInputs projects every prebuildable executable
// InputRegistry found into the (path, cdhash) pairs the prebuilt-loader
// and dylib-trie builders need. CDHash is computed from the executable's
// whole on-disk buffer rather than by parsing its embedded CodeDirectory
// blob specifically — a disclosed simplification, since this builder
// never needs to verify an input's existing signature, only to give it a
// stable-looking trie key.
func (b *Builder) gatherExecutableInputs() []emit.ExecutableInput {
	var out []emit.ExecutableInput
	for _, in := range b.reg.Executables() {
		out = append(out, emit.ExecutableInput{
			Path:   in.Path,
			CDHash: approximateCDHash(in.Buffer),
		})
	}
	return out
}

// gatherGOTUses projects every resolved, GOT-sited bind target dylibpass
// recorded during apply_split_seg_info into the per-dylib use list
// emit_uniqued_gots dedups, driving the GOT merge path end to end: two
// dylibs' binds to the same (install name, symbol) pair collapse to one
// slot.
func (b *Builder) gatherGOTUses() []emit.DylibGOTUses {
	var out []emit.DylibGOTUses
	for _, d := range b.dylibs {
		if len(d.Segments) == 0 {
			continue
		}
		c := b.arena.Chunk(d.Segments[0])
		if !c.Allocated {
			continue
		}
		var uses []emit.GOTUse
		for _, bt := range d.BindTargets {
			if !bt.IsGOT || bt.Kind != model.BindTargetCacheImage {
				continue
			}
			var installName string
			if bt.DependencyIndex >= 0 && bt.DependencyIndex < len(d.Dependents) && d.Dependents[bt.DependencyIndex].Target != nil {
				installName = d.Dependents[bt.DependencyIndex].Target.InstallName
			}
			uses = append(uses, emit.GOTUse{
				TargetInstallName: installName,
				TargetSymbolName:  bt.SymbolName,
				SiteOffset:        addr.VMOffset(uint64(bt.SiteOffset) - uint64(c.SubCacheFileOff)),
			})
		}
		if len(uses) == 0 {
			continue
		}
		out = append(out, emit.DylibGOTUses{Dylib: d.CacheIndex, Uses: uses})
	}
	return out
}

func (b *Builder) tlvConfig() emit.TLVConfig {
	return emit.TLVConfig{
		PthreadTSDFirst: b.cfg.PthreadTSDFirst,
		PthreadTSDLast:  b.cfg.PthreadTSDLast,
		TLVGetAddr:      addr.CacheVMAddress(b.cfg.TLVGetAddrOverride),
		HasTLVGetAddr:   b.cfg.HasTLVGetAddrOverride,
	}
}
