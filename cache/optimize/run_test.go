package optimize

import "testing"

func TestRunMergesInAscendingCacheIndexOrder(t *testing.T) {
	perDylib := []DylibObjCMetadata{
		{
			Dylib:   1,
			Classes: []ClassMetadata{{Name: "Late", CacheVMAddr: 0x2000}},
		},
		{
			Dylib:   0,
			Classes: []ClassMetadata{{Name: "Early", CacheVMAddr: 0x1000}},
		},
	}
	res := Run(perDylib, false, 0x42)
	names := res.ClassNames.Names()
	if len(names) != 2 || names[0] != "Early" || names[1] != "Late" {
		t.Fatalf("Names() = %v, want [Early Late]", names)
	}
}

func TestRunRoutesConformancesToTheirTable(t *testing.T) {
	perDylib := []DylibObjCMetadata{
		{
			Dylib: 0,
			Conformances: []ConformanceInput{
				{Kind: ConformanceDirectType, TypeDescriptor: 0x1000, Protocol: 0x2000, ConformanceAddr: 0x3000},
				{Kind: ConformanceMetadata, Class: 0x1100, Protocol: 0x2000, ConformanceAddr: 0x3100},
				{Kind: ConformanceForeign, ForeignName: "Foo\x00Bar", Protocol: 0x2000, ConformanceAddr: 0x3200},
			},
		},
	}
	res := Run(perDylib, false, 0)
	typeN, metadataN, foreignN := res.Conformances.Len()
	if typeN != 1 || metadataN != 1 || foreignN != 1 {
		t.Fatalf("Len() = (%d,%d,%d), want (1,1,1)", typeN, metadataN, foreignN)
	}
	if got, ok := res.Conformances.LookupForeign("Foo\x00Bar", 0x2000); !ok || got != 0x3200 {
		t.Fatalf("LookupForeign = (%v,%v), want (0x3200,true)", got, ok)
	}
}

func TestRunBuildsImpCachesWhenEnabled(t *testing.T) {
	perDylib := []DylibObjCMetadata{
		{
			Dylib: 0,
			Classes: []ClassMetadata{{
				Name:        "Foo",
				CacheVMAddr: 0x1000,
				Methods:     []ImpCacheMethod{{Selector: "bar", IMP: 0x2000}},
			}},
		},
	}
	res := Run(perDylib, true, 7)
	if _, ok := res.ImpCaches["Foo"]; !ok {
		t.Fatal("expected an IMP cache for class Foo")
	}
	if _, ok := res.Selectors.Offset("bar"); !ok {
		t.Fatal("expected selector bar to be interned")
	}
}
