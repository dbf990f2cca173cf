package emit

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

func builtTables(t *testing.T) (*optimize.Result, *ObjCHashTablesResult) {
	t.Helper()

	opt := &optimize.Result{
		Selectors:  optimize.NewSelectorPool(),
		ClassNames: optimize.NewClassNamePool(),
		Protocols:  optimize.NewProtocolPool(),
	}
	opt.Selectors.Intern("init")
	opt.Selectors.Intern("dealloc")
	opt.ClassNames.Add("X", model.DylibIndex(1), addr.CacheVMAddress(0x2000))
	opt.ClassNames.Add("Y", model.DylibIndex(1), addr.CacheVMAddress(0x3000))
	opt.Protocols.Add("NSCopying", "", model.DylibIndex(0), addr.CacheVMAddress(0x4000))
	opt.Protocols.Add("NSCoding", "", model.DylibIndex(1), addr.CacheVMAddress(0x5000))

	headerInfo := &ObjCHeaderInfoResult{RO: []ObjCHeaderInfoEntry{{Dylib: 0}, {Dylib: 1}}}
	return opt, EmitObjCHashTables(opt, headerInfo, config.ObjCOptimizations{})
}

func TestEmitObjCHashTablesDisabled(t *testing.T) {
	opt := &optimize.Result{
		Selectors:  optimize.NewSelectorPool(),
		ClassNames: optimize.NewClassNamePool(),
		Protocols:  optimize.NewProtocolPool(),
	}
	res := EmitObjCHashTables(opt, &ObjCHeaderInfoResult{}, config.ObjCOptimizations{DisableObjCHashTables: true})
	if !res.Disabled {
		t.Fatal("expected Disabled to be set")
	}
	if res.Selectors != nil || res.Classes != nil || res.Protocols != nil {
		t.Fatal("expected no tables to be built when disabled")
	}
}

func TestSelectorHashTableResolvesPoolOffsets(t *testing.T) {
	opt, res := builtTables(t)

	for _, name := range []string{"init", "dealloc"} {
		got, ok := res.Selectors.Lookup(name)
		if !ok {
			t.Fatalf("selector %q not found", name)
		}
		want, _ := opt.Selectors.Offset(name)
		if got != want {
			t.Fatalf("selector %q offset = %#x, want %#x", name, got, want)
		}
	}
	if _, ok := res.Selectors.Lookup("retain"); ok {
		t.Fatal("expected miss for uninterned selector")
	}
}

func TestClassHashTableResolvesClassAddresses(t *testing.T) {
	_, res := builtTables(t)

	occX, ok := res.Classes.Lookup("X")
	if !ok || len(occX) != 1 || occX[0].CacheVMAddr != 0x2000 {
		t.Fatalf("X lookup = %+v, %v; want one occurrence at 0x2000", occX, ok)
	}
	occY, ok := res.Classes.Lookup("Y")
	if !ok || len(occY) != 1 || occY[0].CacheVMAddr != 0x3000 {
		t.Fatalf("Y lookup = %+v, %v; want one occurrence at 0x3000", occY, ok)
	}
}

func TestClassHashTableRetainsDuplicates(t *testing.T) {
	opt := &optimize.Result{
		Selectors:  optimize.NewSelectorPool(),
		ClassNames: optimize.NewClassNamePool(),
		Protocols:  optimize.NewProtocolPool(),
	}
	opt.ClassNames.Add("Shared", model.DylibIndex(0), addr.CacheVMAddress(0x1000))
	opt.ClassNames.Add("Shared", model.DylibIndex(2), addr.CacheVMAddress(0x9000))

	res := EmitObjCHashTables(opt, &ObjCHeaderInfoResult{}, config.ObjCOptimizations{})
	occ, ok := res.Classes.Lookup("Shared")
	if !ok {
		t.Fatal("Shared not found")
	}
	want := []optimize.ClassOccurrence{
		{Dylib: 0, CacheVMAddr: 0x1000},
		{Dylib: 2, CacheVMAddr: 0x9000},
	}
	if diff := cmp.Diff(want, occ); diff != "" {
		t.Fatalf("occurrences mismatch (-want +got):\n%s", diff)
	}
}

func TestProtocolHashTableRoundTripsEveryKey(t *testing.T) {
	opt, res := builtTables(t)

	for _, name := range opt.Protocols.Names() {
		got, ok := res.Protocols.Lookup(name)
		if !ok {
			t.Fatalf("protocol %q not found", name)
		}
		canon, _ := opt.Protocols.Canonical(name)
		if got != canon.CacheVMAddr {
			t.Fatalf("protocol %q = %#x, want canonical %#x", name, got, canon.CacheVMAddr)
		}
	}
	if _, ok := res.Protocols.Lookup("NSFastEnumeration"); ok {
		t.Fatal("expected miss for unknown protocol")
	}
}

func TestObjCOptsHeaderOrdersTables(t *testing.T) {
	_, res := builtTables(t)

	h := res.Header
	if h.Version != objcOptsVersion {
		t.Fatalf("Version = %d, want %d", h.Version, objcOptsVersion)
	}
	if !(h.SelectorOptOffset < h.ClassOptOffset &&
		h.ClassOptOffset < h.ProtocolOptOffset &&
		h.ProtocolOptOffset < h.HeaderInfoROOffset &&
		h.HeaderInfoROOffset < h.HeaderInfoRWOffset) {
		t.Fatalf("table offsets out of order: %+v", h)
	}
	if h.SelectorOptOffset == 0 {
		t.Fatal("selector table must follow the opts header, not overlap it")
	}
}
