package perfecthash

import "testing"

func TestLookup8Deterministic(t *testing.T) {
	a := Lookup8([]byte("objc_msgSend"), 0x1234)
	b := Lookup8([]byte("objc_msgSend"), 0x1234)
	if a != b {
		t.Fatalf("Lookup8 not deterministic: %d != %d", a, b)
	}
	if c := Lookup8([]byte("objc_msgSend"), 0x5678); c == a {
		t.Fatal("different levels produced the same hash")
	}
}

func TestTableBuildAndLookup(t *testing.T) {
	keys := []string{"alloc", "init", "dealloc", "description", "count", "objectAtIndex:"}
	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: []byte(k), Aux: uint64(i) * 17}
	}
	tbl := Build(entries, 0xdead)

	for i, k := range keys {
		idx, ok := tbl.Lookup([]byte(k), uint64(i)*17)
		if !ok {
			t.Fatalf("lookup miss for key %q", k)
		}
		if tbl.Entries[idx].Key == nil || string(tbl.Entries[idx].Key) != k {
			t.Fatalf("lookup for %q resolved to %q", k, tbl.Entries[idx].Key)
		}
	}

	if _, ok := tbl.Lookup([]byte("notPresent"), 0); ok {
		t.Fatal("expected miss for absent key")
	}
}
