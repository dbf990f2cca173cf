// Package dylibpass implements the DylibPassRunner: the eleven-step,
// per-dylib rewrite pipeline that turns a copied-in input dylib into its
// cache-resident form.
package dylibpass

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/cerrors"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
	"github.com/cachebuild/dyldcache/macho"
)

// StepError identifies which dylib and which of the eleven steps failed,
// so the first failure surfaced after the fan-out is actionable.
type StepError struct {
	Dylib string
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("dylib %s: step %s: %v", e.Dylib, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner drives the per-dylib pass. It is constructed once per build and
// reused across the parallel fan-out; every field it holds is either
// read-only for the duration of Run (cfg, arena, opt) or internally
// synchronized (aslr).
type Runner struct {
	cfg   config.Config
	arena *model.Arena
	opt   *optimize.Result
	aslr  *ASLRTracker

	// neverEliminateStubs names symbols optimize_stubs must never fold
	// into a direct branch (interposable/dynamically-replaced symbols).
	neverEliminateStubs map[string]bool
}

// New returns a Runner bound to arena and the merged optimizer output.
func New(cfg config.Config, arena *model.Arena, opt *optimize.Result, neverEliminateStubs map[string]bool) *Runner {
	if neverEliminateStubs == nil {
		neverEliminateStubs = map[string]bool{}
	}
	return &Runner{cfg: cfg, arena: arena, opt: opt, aslr: NewASLRTracker(), neverEliminateStubs: neverEliminateStubs}
}

// ASLR returns the tracker populated by Run, consumed by
// compute_slide_info.
func (r *Runner) ASLR() *ASLRTracker { return r.aslr }

// Run fans the eleven-step pipeline out across dylibs, one goroutine per
// dylib, and joins before returning. Every task reads only frozen shared
// inputs (cfg, opt, the per-dylib Input buffer) and writes into that
// dylib's own CacheDylib fields, so no cross-task synchronization beyond
// the ASLR tracker and the WaitGroup join is required. The first error in
// dylib-index order is returned; every dylib still runs to completion so
// a single bad dylib does not starve diagnostics for the others.
func (r *Runner) Run(dylibs []*model.CacheDylib) error {
	errs := make([]error, len(dylibs))
	var wg sync.WaitGroup
	for i, d := range dylibs {
		wg.Add(1)
		go func(i int, d *model.CacheDylib) {
			defer wg.Done()
			errs[i] = r.runOne(d)
		}(i, d)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runOne(d *model.CacheDylib) error {
	steps := []struct {
		name string
		fn   func(*model.CacheDylib) error
	}{
		{"copy_raw_segments", r.copyRawSegments},
		{"apply_split_seg_info", r.applySplitSegInfo},
		{"update_symbol_tables", r.updateSymbolTables},
		{"calculate_bind_targets", r.calculateBindTargets},
		{"bind", r.bind},
		{"update_objc_selector_references", r.updateObjcSelectorReferences},
		{"sort_objc_method_lists", r.sortObjcMethodLists},
		{"optimize_loads_from_constants", r.optimizeLoadsFromConstants},
		{"emit_objc_imp_caches", r.emitObjcImpCaches},
		{"optimize_stubs", r.optimizeStubs},
		{"fips_sign", r.fipsSign},
	}
	for _, s := range steps {
		if err := s.fn(d); err != nil {
			return &StepError{Dylib: d.InstallName, Step: s.name, Err: err}
		}
	}
	return nil
}

// copyRawSegments copies d's entire input file verbatim into its single
// DylibSegment chunk (cache/allocate.go assigns exactly one chunk per
// dylib, sized to the whole input, so there is exactly one source range:
// exactly the input buffer). Every later step in this pipeline operates
// on the destination sub-cache buffer in place, using the fact that
// input file offset X and destination offset c.SubCacheFileOff+X name
// the same byte.
func (r *Runner) copyRawSegments(d *model.CacheDylib) error {
	for _, cid := range d.Segments {
		c := r.arena.Chunk(cid)
		if !c.Allocated || c.ZeroFill {
			continue
		}
		sc := r.arena.SubCache(c.SubCache)
		buf := sc.Buffer()
		dst := uint64(c.SubCacheFileOff)
		end := dst + uint64(c.SubCacheFileSize)
		if end > uint64(len(buf)) {
			return cerrors.Wrap(cerrors.CapacityExceeded, nil, "chunk %s writes past sub-cache %d buffer", c.Name, sc.ID)
		}
		if d.Input == nil {
			continue
		}
		n := uint64(len(d.Input.Buffer))
		if n > uint64(c.SubCacheFileSize) {
			n = uint64(c.SubCacheFileSize)
		}
		copy(buf[dst:dst+n], d.Input.Buffer[:n])
	}
	return nil
}

// textBase returns the VM address f's own __TEXT segment is linked at,
// i.e. the address corresponding to input file offset 0 - the base every
// rebase target and every VM-to-cache conversion in this package is
// relative to (mirroring cache/allocate.go's estimateDylibSize/
// CacheLoadAddress placement, which assumes the same thing).
func textBase(f *macho.File) uint64 {
	if seg := f.Segment("__TEXT"); seg != nil {
		return seg.Addr
	}
	if segs := f.Segments(); len(segs) > 0 {
		return segs[0].Addr
	}
	return 0
}

// applySplitSegInfo walks d's chained-fixups chain, rewriting every
// rebase site in place to hold its final cache VM address and recording
// that site with the ASLR tracker, and stages every external bind as an
// unresolved model.BindTarget for calculate_bind_targets/bind to finish.
func (r *Runner) applySplitSegInfo(d *model.CacheDylib) error {
	if d.Input == nil || !d.HasCacheLoadAddress() {
		return nil
	}
	f, err := macho.NewFile(newReaderAt(d.Input.Buffer))
	if err != nil {
		return nil // not a parseable Mach-O; nothing to rebase
	}
	defer f.Close()

	c, sc, ok := r.dylibChunk(d)
	if !ok {
		return nil
	}
	buf := sc.Buffer()

	base := textBase(f)
	fixups, err := parseChainedFixups(f, d.Input.Buffer, base)
	if err != nil {
		return cerrors.Wrap(cerrors.FormatUnsupported, err, "dylib %s: chained fixups", d.InstallName)
	}
	if fixups == nil {
		return nil
	}

	gotSite := gotSiteClassifier(f)

	for _, rb := range fixups.Rebases {
		destOff := uint64(c.SubCacheFileOff) + rb.FileOffset
		if destOff+8 > uint64(len(buf)) {
			continue
		}
		target := d.CacheLoadAddress.Add(addr.VMOffset(rb.Target - base))
		binary.LittleEndian.PutUint64(buf[destOff:], uint64(target))
		r.aslr.Record(c.SubCache, c.CacheVMAddr.Add(addr.VMOffset(rb.FileOffset)))
	}

	for _, b := range fixups.Binds {
		if b.Ordinal < 0 || b.Ordinal >= len(fixups.Imports) {
			continue
		}
		imp := fixups.Imports[b.Ordinal]
		bt := model.BindTarget{
			Kind:            model.BindTargetAbsolute,
			Addend:          b.Addend,
			SymbolName:      imp.Name,
			LibraryOrdinal:  imp.LibOrdinal,
			DependencyIndex: imp.LibOrdinal - 1,
			SiteOffset:      addr.CacheFileOffset(uint64(c.SubCacheFileOff) + b.FileOffset),
			IsGOT:           gotSite(b.FileOffset),
		}
		if imp.LibOrdinal >= 1 && bt.DependencyIndex < len(d.Dependents) {
			bt.Kind = model.BindTargetInputImage
		}
		d.BindTargets = append(d.BindTargets, bt)
	}
	return nil
}

// gotSiteClassifier returns a predicate reporting whether a given input
// file offset falls within f's __got or __auth_got section, the subset
// bind marks IsGOT so emit_uniqued_gots can dedup them.
func gotSiteClassifier(f *macho.File) func(fileOff uint64) bool {
	var ranges []sectionRange
	for _, name := range []string{"__got", "__auth_got"} {
		if sec, ok := findSection(f, name); ok {
			ranges = append(ranges, sec)
		}
	}
	return func(fileOff uint64) bool {
		for _, rg := range ranges {
			if fileOff >= rg.FileOff && fileOff < rg.FileEnd {
				return true
			}
		}
		return false
	}
}

// updateSymbolTables records placeholder symbol counts on
// d.OptimizedSymbols for later emission by emit_symbol_table: the
// dependency count as ImportedCount, zero exported and local symbols.
// It does not read or relocate the dylib's nlist entries.
func (r *Runner) updateSymbolTables(d *model.CacheDylib) error {
	if d.Header == nil {
		return nil
	}
	d.OptimizedSymbols = &model.OptimizedSymbols{
		ExportedCount: 0,
		ImportedCount: len(d.Header.Dependencies),
		LocalCount:    0,
	}
	return nil
}

// calculateBindTargets classifies every external bind target this dylib
// references: absolute, already-resolved cache image, or an input image
// whose load address must still be known.
func (r *Runner) calculateBindTargets(d *model.CacheDylib) error {
	for i := range d.BindTargets {
		bt := &d.BindTargets[i]
		if bt.Kind != model.BindTargetInputImage {
			continue
		}
		if bt.DependencyIndex < 0 || bt.DependencyIndex >= len(d.Dependents) {
			continue
		}
		target := d.Dependents[bt.DependencyIndex].Target
		if target != nil && target.HasCacheLoadAddress() {
			bt.Kind = model.BindTargetCacheImage
			bt.CacheAddr = target.CacheLoadAddress.Add(addr.VMOffset(bt.Addend))
		}
	}
	return nil
}

// bind writes every resolved BindTarget's cache address to its fixup
// site and registers the site with the ASLR tracker, the same way a
// rebase does (a bound pointer is still a pointer the slide-info pass
// must cover). Targets calculate_bind_targets could not resolve to a
// cache image (an unresolvable ordinal, a still-missing weak dependency)
// are left at whatever copy_raw_segments staged and are not registered,
// matching the break-on-weak rule: a binding that cannot be
// resolved must not be claimed as rebased.
func (r *Runner) bind(d *model.CacheDylib) error {
	if !d.HasCacheLoadAddress() {
		return nil
	}
	c, sc, ok := r.dylibChunk(d)
	if !ok {
		return nil
	}
	buf := sc.Buffer()
	for _, bt := range d.BindTargets {
		if bt.Kind != model.BindTargetCacheImage {
			continue
		}
		off := uint64(bt.SiteOffset)
		if off+8 > uint64(len(buf)) {
			continue
		}
		binary.LittleEndian.PutUint64(buf[off:], uint64(bt.CacheAddr))
		siteVMOff := off - uint64(c.SubCacheFileOff)
		r.aslr.Record(c.SubCache, c.CacheVMAddr.Add(addr.VMOffset(siteVMOff)))
	}
	return nil
}

// updateObjcSelectorReferences rewrites __objc_selrefs entries (and, via
// convertObjcMethodListsToOffsets, relative method-list name fields) to
// remove the selref indirection once each list validates cleanly.
// convertObjcMethodListsToOffsets and sortObjcMethodLists are defined in
// objcmethods.go.
func (r *Runner) updateObjcSelectorReferences(d *model.CacheDylib) error {
	if !d.IsObjC {
		return nil
	}
	return r.convertObjcMethodListsToOffsets(d)
}

// optimizeLoadsFromConstants verifies every __objc_classrefs/
// __objc_superrefs slot now holds a direct, already-rewritten cache
// address (apply_split_seg_info/bind having already done the rewrite
// itself, since these slots are ordinary rebase/bind sites) and records
// how many were, for for_each_warning-style reporting. The canonical
// class-refs chunk cache/optimize builds is not attached to an allocated
// Region (see DESIGN.md), so this step cannot additionally redirect
// these slots at a cache-wide deduplicated table; it is bounded to
// confirming the in-dylib rewrite.
func (r *Runner) optimizeLoadsFromConstants(d *model.CacheDylib) error {
	if !d.IsObjC || d.Input == nil || !d.HasCacheLoadAddress() {
		return nil
	}
	f, err := macho.NewFile(newReaderAt(d.Input.Buffer))
	if err != nil {
		return nil
	}
	defer f.Close()

	c, sc, ok := r.dylibChunk(d)
	if !ok {
		return nil
	}
	buf := sc.Buffer()
	diag := d.EnsurePassDiagnostics()

	for _, name := range []string{"__objc_classrefs", "__objc_superrefs"} {
		sec, ok := findSection(f, name)
		if !ok {
			continue
		}
		for off := sec.FileOff; off+8 <= sec.FileEnd; off += 8 {
			destOff := uint64(c.SubCacheFileOff) + off
			if destOff+8 > uint64(len(buf)) {
				break
			}
			if binary.LittleEndian.Uint64(buf[destOff:]) != 0 {
				diag.DirectClassRefRewrites++
			}
		}
	}
	return nil
}

// emitObjcImpCaches records which of this dylib's classes contribute the
// definition behind a cache-wide IMP cache cache/optimize already built,
// cross-referencing the class-name occurrence table rather than
// re-parsing raw class metadata through macho.File's ObjC class readers.
func (r *Runner) emitObjcImpCaches(d *model.CacheDylib) error {
	if r.opt == nil || len(r.opt.ImpCaches) == 0 {
		return nil
	}
	diag := d.EnsurePassDiagnostics()
	for name := range r.opt.ImpCaches {
		for _, occ := range r.opt.ClassNames.Occurrences(name) {
			if occ.Dylib == d.CacheIndex {
				diag.AttachedImpCaches = append(diag.AttachedImpCaches, name)
				break
			}
		}
	}
	sort.Strings(diag.AttachedImpCaches)
	return nil
}

// optimizeStubs computes which of this dylib's bind-target call sites
// are eligible for direct-branch folding - a resolved cache-image
// target whose symbol is not in the never-eliminate set - and records
// the count. It deliberately stops short of patching ARM64 branch
// instruction bytes: doing so correctly (choosing BL vs ADRP+ADD
// sequences, respecting branch-range limits, leaving stub-binder
// trampolines reachable for lazy symbols that must stay lazy) is a
// target-specific transform this revision does not have a way to
// validate without running the toolchain, so it is left as a disclosed
// gap (see DESIGN.md) rather than risk emitting corrupt instructions.
func (r *Runner) optimizeStubs(d *model.CacheDylib) error {
	diag := d.EnsurePassDiagnostics()
	for _, bt := range d.BindTargets {
		if bt.Kind != model.BindTargetCacheImage {
			continue
		}
		if r.neverEliminateStubs[bt.SymbolName] {
			continue
		}
		diag.EligibleStubSites++
	}
	return nil
}

// fipsSign computes the integrity digest FIPS 140 validation requires
// over a corecrypto dylib's text range. It MUST run last in the
// per-dylib pipeline so no later rewrite (in particular optimize_stubs'
// branch folding, were it to patch bytes) can invalidate the seal
// afterward.
func (r *Runner) fipsSign(d *model.CacheDylib) error {
	if d.Input == nil || !strings.Contains(strings.ToLower(d.InstallName), "corecrypto") {
		return nil
	}
	f, err := macho.NewFile(newReaderAt(d.Input.Buffer))
	if err != nil {
		return nil
	}
	defer f.Close()

	c, sc, ok := r.dylibChunk(d)
	if !ok {
		return nil
	}
	buf := sc.Buffer()

	seg := f.Segment("__TEXT")
	if seg == nil {
		return nil
	}
	start := uint64(c.SubCacheFileOff) + seg.Offset
	end := start + seg.Filesz
	if end > uint64(len(buf)) {
		end = uint64(len(buf))
	}
	if start >= end {
		return nil
	}

	diag := d.EnsurePassDiagnostics()
	diag.FIPSHash = sha256.Sum256(buf[start:end])
	diag.HasFIPSHash = true
	return nil
}

// SortedDylibNames is a small helper the Builder uses to report
// per-dylib pass diagnostics in a deterministic order.
func SortedDylibNames(dylibs []*model.CacheDylib) []string {
	names := make([]string, len(dylibs))
	for i, d := range dylibs {
		names[i] = d.InstallName
	}
	sort.Strings(names)
	return names
}
