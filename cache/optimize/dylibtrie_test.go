package optimize

import "testing"

func TestDylibTrieLookupRoundTrips(t *testing.T) {
	tr := NewDylibTrie()
	tr.Add("/usr/lib/A.dylib", 0)
	tr.Add("/usr/lib/A.compat.dylib", 0)
	tr.Add("/usr/lib/B.dylib", 1)

	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tr.Len())
	}
	idx, ok := tr.Lookup("/usr/lib/A.compat.dylib")
	if !ok || idx != 0 {
		t.Fatalf("Lookup(A.compat.dylib) = (%d,%v), want (0,true)", idx, ok)
	}
	if _, ok := tr.Lookup("/usr/lib/Missing.dylib"); ok {
		t.Fatal("expected a miss for an unregistered path")
	}
}

func TestDylibTrieBytesAreEightByteAligned(t *testing.T) {
	tr := NewDylibTrie()
	tr.Add("/usr/lib/A.dylib", 0)
	tr.Add("/usr/lib/B.dylib", 1)
	tr.Add("/usr/lib/system/libsystem_c.dylib", 2)

	b := tr.Bytes()
	if len(b)%8 != 0 {
		t.Fatalf("len(Bytes()) = %d, not 8-byte aligned", len(b))
	}
	if len(b) == 0 {
		t.Fatal("expected a non-empty encoding")
	}
}

func TestDylibTrieBytesDeterministic(t *testing.T) {
	build := func() []byte {
		tr := NewDylibTrie()
		tr.Add("/usr/lib/A.dylib", 0)
		tr.Add("/usr/lib/A.compat.dylib", 0)
		tr.Add("/usr/lib/B.dylib", 1)
		return tr.Bytes()
	}
	a, b := build(), build()
	if string(a) != string(b) {
		t.Fatal("two builds over the same path set produced different bytes")
	}
}
