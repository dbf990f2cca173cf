// Package config holds the builder's recognized configuration options.
package config

import "fmt"

// Platform enumerates the target platforms a cache can be built for.
type Platform int

const (
	PlatformMacOS Platform = iota
	PlatformIOS
	PlatformIOSMac
	PlatformDriverKit
	PlatformTVOS
	PlatformWatchOS
)

func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformIOS:
		return "iOS"
	case PlatformIOSMac:
		return "iOSMac"
	case PlatformDriverKit:
		return "driverKit"
	case PlatformTVOS:
		return "tvOS"
	case PlatformWatchOS:
		return "watchOS"
	default:
		return fmt.Sprintf("Platform(%d)", int(p))
	}
}

// Kind selects whether the builder emits development-only caches or a full
// universal build (main + stubs, development + customer).
type Kind int

const (
	KindDevelopment Kind = iota
	KindUniversal
)

// LocalSymbolsMode controls how local (non-exported) symbols are handled.
type LocalSymbolsMode int

const (
	LocalSymbolsKeep LocalSymbolsMode = iota
	LocalSymbolsUnmap
	LocalSymbolsStrip
)

// CodeSigningDigestMode selects which digest(s) the code-signature
// CodeDirectory blobs use.
type CodeSigningDigestMode int

const (
	DigestSHA256Only CodeSigningDigestMode = iota
	DigestSHA1Only
	DigestAgile
)

// LayoutMode selects the VM layout family used when assigning addresses.
type LayoutMode int

const (
	LayoutContiguous LayoutMode = iota
	LayoutDiscontiguousSim
	LayoutDiscontiguous
	LayoutLargeContiguous
	LayoutLargeUniversal
)

// Config holds every recognized builder option. Zero value is invalid;
// call Default to get a Config with sane defaults, then override fields.
type Config struct {
	Platform Platform
	Kind     Kind

	LocalSymbolsMode      LocalSymbolsMode
	CodeSigningDigestMode CodeSigningDigestMode

	DylibsRemovedFromDisk       bool
	ForceDevelopmentSubCacheSuf bool

	// DylibOrdering maps install-name -> sort priority, lower sorts
	// earlier, used by sort_dylibs.
	DylibOrdering map[string]int
	// DirtyDataSegmentOrdering maps dylib path -> sort priority, used
	// when ordering __DATA_DIRTY chunks within a region.
	DirtyDataSegmentOrdering map[string]int

	// ObjCOptimizations mirrors the JSON blob controlling IMP-cache
	// generation; callers populate it after parsing their own JSON.
	ObjCOptimizations ObjCOptimizations

	Archs []string

	CacheSize       uint64
	CacheBaseAddress uint64

	SlideInfoFormat  int
	SlideInfoPageSize uint32
	PageSize          uint32

	LayoutMode      LayoutMode
	SubCacheTextLimit  uint64
	SubCacheStubsLimit uint64
	RegionPadding      uint64
	RegionAlignment    uint64

	AllLinkeditInLastSubCache bool
	AllowedMissingWeakDylibs  map[string]bool

	// PthreadTSDFirst/Last bound the pthread TSD key range optimize_tlvs
	// may assign from. TLVGetAddrOverride/HasTLVGetAddrOverride let a
	// caller who already knows libdyld's tlv_get_addr cache address hand
	// it in directly, since this builder does not itself resolve exported
	// symbol addresses out of an input dylib's export trie.
	PthreadTSDFirst          uint32
	PthreadTSDLast           uint32
	TLVGetAddrOverride       uint64
	HasTLVGetAddrOverride    bool

	LogPrefix  string
	PrintStats bool
}

// ObjCOptimizations mirrors the subset of dyld's JSON-configured objc
// optimization knobs this builder understands.
type ObjCOptimizations struct {
	DisableObjCHashTables bool `json:"disableObjCHashTables,omitempty"`
	OptimizeImpCaches     bool `json:"optimizeImpCaches,omitempty"`
}

// Default returns a Config populated with conservative, widely applicable
// defaults; callers override fields as needed before passing it to a
// Builder.
func Default() Config {
	return Config{
		Platform:              PlatformMacOS,
		Kind:                  KindDevelopment,
		LocalSymbolsMode:      LocalSymbolsKeep,
		CodeSigningDigestMode: DigestAgile,
		DylibOrdering:         map[string]int{},
		DirtyDataSegmentOrdering: map[string]int{},
		AllowedMissingWeakDylibs: map[string]bool{},
		PageSize:          0x4000,
		SlideInfoPageSize: 0x4000,
		SlideInfoFormat:   3,
		LayoutMode:        LayoutContiguous,
		SubCacheTextLimit:  0x1_0000_0000,
		SubCacheStubsLimit: 110 * 1024 * 1024,
		RegionPadding:      0x4000,
		RegionAlignment:    0x4000,
		LogPrefix:          "dyldcache",
	}
}

// setDefaults fills any zero-valued fields of c that must never be zero
// for the builder to make progress.
func (c *Config) setDefaults() {
	if c.PageSize == 0 {
		c.PageSize = 0x4000
	}
	if c.SlideInfoPageSize == 0 {
		c.SlideInfoPageSize = 0x4000
	}
	if c.RegionAlignment == 0 {
		c.RegionAlignment = 0x4000
	}
	if c.DylibOrdering == nil {
		c.DylibOrdering = map[string]int{}
	}
	if c.DirtyDataSegmentOrdering == nil {
		c.DirtyDataSegmentOrdering = map[string]int{}
	}
	if c.AllowedMissingWeakDylibs == nil {
		c.AllowedMissingWeakDylibs = map[string]bool{}
	}
}

// Normalized returns a copy of c with setDefaults applied.
func (c Config) Normalized() Config {
	c.setDefaults()
	return c
}
