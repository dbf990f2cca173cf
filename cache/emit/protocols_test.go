package emit

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

func TestEmitCanonicalObjCProtocolsElectsLowestDylib(t *testing.T) {
	pool := optimize.NewProtocolPool()
	pool.Add("Codable", "", 2, 0x3000)
	pool.Add("Codable", "", 0, 0x1000)
	pool.Add("Equatable", "", 1, 0x4000)

	res := EmitCanonicalObjCProtocols(pool)
	if len(res.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(res.Entries))
	}

	e, ok := res.Lookup("Codable")
	if !ok {
		t.Fatal("expected Codable entry")
	}
	if e.CanonicalAddr != addr.CacheVMAddress(0x1000) {
		t.Fatalf("CanonicalAddr = %v, want 0x1000", e.CanonicalAddr)
	}
	if !e.FixedUp || !e.Canonical {
		t.Fatalf("entry = %+v, want FixedUp and Canonical set", e)
	}
}

func TestOffsetInPoolMatchesNameOrder(t *testing.T) {
	pool := optimize.NewProtocolPool()
	pool.Add("A", "", 0, 0x1000)
	pool.Add("BB", "", 0, 0x2000)

	off, ok := offsetInPool(pool, "BB")
	if !ok {
		t.Fatal("expected BB to be found")
	}
	if off != addr.VMOffset(len("A")+1) {
		t.Fatalf("offset = %v, want %v", off, len("A")+1)
	}
}
