package optimize

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
)

func TestSelectorPoolStartsWithMagic(t *testing.T) {
	p := NewSelectorPool()
	want := []byte{0xf0, 0x9f, 0xa4, 0xaf, 0x00}
	if got := p.Bytes()[:5]; string(got) != string(want) {
		t.Fatalf("selector pool prefix = %v, want %v", got, want)
	}
	off1 := p.Intern("alloc")
	off2 := p.Intern("alloc")
	if off1 != off2 {
		t.Fatalf("Intern not idempotent: %v != %v", off1, off2)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
}

func TestClassNamePoolRetainsDuplicates(t *testing.T) {
	p := NewClassNamePool()
	p.Add("NSObject", 0, 0x1000)
	p.Add("NSObject", 1, 0x2000)
	occ := p.Occurrences("NSObject")
	if len(occ) != 2 {
		t.Fatalf("Occurrences = %d, want 2", len(occ))
	}
	if occ[0].Dylib != 0 || occ[1].Dylib != 1 {
		t.Fatalf("occurrences out of order: %+v", occ)
	}
}

func TestDemangleSwiftProtocolName(t *testing.T) {
	got, ok := DemangleSwiftProtocolName("_TtP10Foundation9NSCopying_")
	if !ok {
		t.Fatal("expected a successful parse")
	}
	if want := "Foundation.NSCopying"; got != want {
		t.Fatalf("demangled = %q, want %q", got, want)
	}
	if _, ok := DemangleSwiftProtocolName("not_swift_mangled"); ok {
		t.Fatal("expected failure for a non-mangled symbol")
	}
}

func TestProtocolPoolElectsLowestCacheIndex(t *testing.T) {
	p := NewProtocolPool()
	p.Add("Codable", "", 2, 0x3000)
	p.Add("Codable", "", 0, 0x1000)
	p.Add("Codable", "", 1, 0x2000)
	c, ok := p.Canonical("Codable")
	if !ok {
		t.Fatal("expected a canonical occurrence")
	}
	if c.Dylib != 0 || c.CacheVMAddr != 0x1000 {
		t.Fatalf("canonical = %+v, want dylib 0 at 0x1000", c)
	}
}

func TestProtocolPoolSynthesizesDemangledName(t *testing.T) {
	p := NewProtocolPool()
	p.Add("", "_TtP10Foundation9NSCopying_", 0, 0x1000)
	if len(p.Names()) != 1 || p.Names()[0] != "Foundation.NSCopying" {
		t.Fatalf("Names() = %v", p.Names())
	}
}

func TestSwiftConformanceTablesForeignLookupWithEmbeddedNUL(t *testing.T) {
	tbl := NewSwiftConformanceTables()
	name := "My\x00Type"
	tbl.AddForeignConformance(name, addr.CacheVMAddress(0x4000), addr.CacheVMAddress(0x5000))

	if _, ok := tbl.LookupForeign("My", addr.CacheVMAddress(0x4000)); ok {
		t.Fatal("lookup truncated at the embedded NUL should miss")
	}
	got, ok := tbl.LookupForeign(name, addr.CacheVMAddress(0x4000))
	if !ok || got != addr.CacheVMAddress(0x5000) {
		t.Fatalf("LookupForeign = (%v, %v), want (0x5000, true)", got, ok)
	}
}

func TestBuildClassImpCacheSkipsUnknownSelectors(t *testing.T) {
	sels := NewSelectorPool()
	sels.Intern("init")
	methods := []ImpCacheMethod{
		{Selector: "init", IMP: 0x1000},
		{Selector: "unknownSelector", IMP: 0x2000},
	}
	cache, missing := BuildClassImpCache(methods, sels, -1, 0xabc)
	if len(missing) != 1 || missing[0] != "unknownSelector" {
		t.Fatalf("missing = %v, want [unknownSelector]", missing)
	}
	if cache.Header.Occupied != 1 {
		t.Fatalf("Occupied = %d, want 1", cache.Header.Occupied)
	}
}
