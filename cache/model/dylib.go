package model

import "github.com/cachebuild/dyldcache/cache/addr"

// DependentKind classifies an edge in a CacheDylib's dependents list.
type DependentKind int

const (
	DependentNormal DependentKind = iota
	DependentWeakLink
	DependentReexport
	DependentUpward
)

// Dependent is one entry of a CacheDylib's dependents list: the kind of
// edge and the target, which is nil when the edge is weak and the
// dependency is not present at all (break-on-weak rule).
type Dependent struct {
	Kind   DependentKind
	Target *CacheDylib // nil only when Kind == DependentWeakLink and missing
}

// BindTargetKind classifies a resolved bind target.
type BindTargetKind int

const (
	BindTargetAbsolute BindTargetKind = iota
	BindTargetCacheImage
	BindTargetInputImage
)

// BindTarget is a resolved external bind: either an absolute value, an
// address already in cache VM space, or an address computed from another
// input image's load address plus offset (converted to CacheVMAddress by
// calculate_bind_targets).
type BindTarget struct {
	Kind      BindTargetKind
	Addend    int64
	CacheAddr addr.CacheVMAddress // valid for CacheImage and resolved InputImage targets
	SymbolName string
	LibraryOrdinal int

	// DependencyIndex indexes into the referring CacheDylib's Dependents
	// slice when Kind == BindTargetInputImage, identifying which input
	// image this bind targets before it is resolved to a CacheVMAddress.
	DependencyIndex int

	// SiteOffset is the absolute byte offset of this bind's fixup slot
	// within its owning sub-cache buffer, set by apply_split_seg_info
	// once chain-walking locates the site; bind writes the resolved
	// value there.
	SiteOffset addr.CacheFileOffset

	// IsGOT marks a bind fixup that lives in a __got/__auth_got section,
	// the subset emit_uniqued_gots dedups; binds outside those sections
	// are rewritten in place by bind but never contribute a GOT slot.
	IsGOT bool
}

// CacheDylib is an input dylib promoted into the cache.
type CacheDylib struct {
	InstallName string
	CacheIndex  DylibIndex
	Input       *InputFile
	Header      *ParsedHeader

	// CacheLoadAddress becomes valid only after sub-cache buffers are
	// allocated; it is this dylib's mach_header address in cache VM
	// space.
	CacheLoadAddress addr.CacheVMAddress
	loadAddressValid bool

	Segments       []ChunkID // DylibSegment chunks, in segment order
	LinkeditChunks []ChunkID

	Dependents []Dependent

	BindTargets []BindTarget

	// IndirectSymbolTable is the slot for the relocated indirect symbol
	// table entries; update_symbol_tables does not fill it, so it stays
	// nil.
	IndirectSymbolTable []uint32

	OptimizedSymbols *OptimizedSymbols

	Adjustor *SplitSegAdjustor

	// PassDiagnostics accumulates the bookkeeping the later DylibPassRunner
	// steps (emit_objc_imp_caches, optimize_loads_from_constants,
	// optimize_stubs, fips_sign) produce, once update_objc_selector_references
	// and sort_objc_method_lists have run.
	PassDiagnostics *PassDiagnostics

	// IsObjC/HasThreadLocals mirror the input header's flags for quick
	// filtering without re-dereferencing Input.
	IsObjC          bool
	HasThreadLocals bool

	// ExclusionReason is set when verify_self_contained demotes this
	// dylib, for the for_each_warning message.
	ExclusionReason string
}

// SetCacheLoadAddress assigns the dylib's mach_header cache VM address;
// callers must not call CacheLoadAddress() before this.
func (d *CacheDylib) SetCacheLoadAddress(a addr.CacheVMAddress) {
	d.CacheLoadAddress = a
	d.loadAddressValid = true
}

// HasCacheLoadAddress reports whether SetCacheLoadAddress has been called.
func (d *CacheDylib) HasCacheLoadAddress() bool { return d.loadAddressValid }

// EnsurePassDiagnostics lazily allocates and returns d.PassDiagnostics,
// so the later DylibPassRunner steps that record into it don't need to
// duplicate the nil-check at every call site.
func (d *CacheDylib) EnsurePassDiagnostics() *PassDiagnostics {
	if d.PassDiagnostics == nil {
		d.PassDiagnostics = &PassDiagnostics{}
	}
	return d.PassDiagnostics
}

// PassDiagnostics holds the per-dylib outputs of the later rewrite steps
// that attach to or validate already-placed cache content rather than
// allocate new chunks of their own (the synthesized ObjC tables they'd
// otherwise attach new chunks to are sized and placed by cache/optimize
// and cache/emit, which both run after allocate_sub_cache_buffers has
// already fixed every sub-cache's buffer - see DESIGN.md).
type PassDiagnostics struct {
	// AttachedImpCaches lists the class names whose cache/optimize-built
	// IMP cache this dylib contributes a definition for.
	AttachedImpCaches []string

	// DirectClassRefRewrites counts __objc_classrefs/__objc_superrefs
	// sites that bind already rewrote to a direct cache address.
	DirectClassRefRewrites int

	// EligibleStubSites counts stub call sites whose bind target
	// resolved to a cache image and is not in the never-eliminate set,
	// i.e. candidates optimize_stubs would redirect to a direct branch.
	EligibleStubSites int

	// FIPSHash is the integrity digest fips_sign computes over this
	// dylib's corecrypto text range; HasFIPSHash is false for every
	// other dylib.
	FIPSHash    [32]byte
	HasFIPSHash bool
}

// OptimizedSymbols holds the per-dylib symbol counts update_symbol_tables
// records for the emitted symbol table; the nlist entries themselves are
// not kept.
type OptimizedSymbols struct {
	ExportedCount int
	ImportedCount int
	LocalCount    int
}

// SplitSegAdjustor is the dictionary apply_split_seg_info builds: for
// each input segment, the (input VM range -> cache VM range, cache
// buffer base) mapping, plus a map of linkedit kind -> moved-linkedit
// record, used by every later in-dylib pointer rewrite.
type SplitSegAdjustor struct {
	Segments  []SegmentAdjustment
	Linkedit  map[string]LinkeditMove
}

// SegmentAdjustment records how one input segment's VM range maps into
// the cache.
type SegmentAdjustment struct {
	Name          string
	InputVMStart  addr.InputDylibVMAddress
	InputVMEnd    addr.InputDylibVMAddress
	CacheVMStart  addr.CacheVMAddress
	CacheBufferOff int // offset within the owning SubCache's buffer
}

// LinkeditMove records where one linkedit sub-piece (symbol table, string
// table, indirect symbols, ...) ended up in the cache's linkedit region.
type LinkeditMove struct {
	CacheFileOffset addr.CacheFileOffset
	Size            addr.CacheFileSize
}

// Contains reports whether a lies within this adjustment's input VM
// range.
func (s SegmentAdjustment) Contains(a addr.InputDylibVMAddress) bool {
	return a >= s.InputVMStart && a < s.InputVMEnd
}

// Adjust converts an InputDylibVMAddress known to lie within this
// segment's range into the corresponding CacheVMAddress.
func (s SegmentAdjustment) Adjust(a addr.InputDylibVMAddress) addr.CacheVMAddress {
	delta := uint64(a) - uint64(s.InputVMStart)
	return addr.CacheVMAddress(uint64(s.CacheVMStart) + delta)
}

// FindSegment returns the SegmentAdjustment containing a, or false if a
// falls outside every segment this adjustor knows about (e.g. it targets
// another dylib).
func (adj *SplitSegAdjustor) FindSegment(a addr.InputDylibVMAddress) (SegmentAdjustment, bool) {
	for _, s := range adj.Segments {
		if s.Contains(a) {
			return s, true
		}
	}
	return SegmentAdjustment{}, false
}
