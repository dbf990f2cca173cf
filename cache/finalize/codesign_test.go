package finalize

import (
	"testing"

	"github.com/cachebuild/dyldcache/cache/config"
)

func TestSignOneProducesStableCDHash(t *testing.T) {
	buf := make([]byte, csPageSize*3+17)
	for i := range buf {
		buf[i] = byte(i)
	}
	ident := SigningIdentity{Identifier: "com.apple.dyld.cache", DigestMode: config.DigestSHA256Only}

	s1, err := signOne(ident, buf, uint32(len(buf)))
	if err != nil {
		t.Fatalf("signOne failed: %v", err)
	}
	s2, err := signOne(ident, buf, uint32(len(buf)))
	if err != nil {
		t.Fatalf("signOne failed: %v", err)
	}
	if s1.CDHash != s2.CDHash {
		t.Fatal("expected identical input to produce an identical CDHash")
	}
	if len(s1.SuperBlob) == 0 {
		t.Fatal("expected a non-empty SuperBlob")
	}
}

func TestSignOneChangesCDHashWithContent(t *testing.T) {
	ident := SigningIdentity{Identifier: "com.apple.dyld.cache", DigestMode: config.DigestSHA256Only}
	a := make([]byte, csPageSize)
	b := make([]byte, csPageSize)
	b[0] = 1

	sa, err := signOne(ident, a, uint32(len(a)))
	if err != nil {
		t.Fatalf("signOne failed: %v", err)
	}
	sb, err := signOne(ident, b, uint32(len(b)))
	if err != nil {
		t.Fatalf("signOne failed: %v", err)
	}
	if sa.CDHash == sb.CDHash {
		t.Fatal("expected different content to produce different CDHashes")
	}
}

func TestDeterministicSubCacheUUIDStableAcrossCalls(t *testing.T) {
	a := DeterministicSubCacheUUID(".1", 4096)
	b := DeterministicSubCacheUUID(".1", 4096)
	if a != b {
		t.Fatalf("UUIDs differ across calls with the same inputs: %v vs %v", a, b)
	}
	c := DeterministicSubCacheUUID(".2", 4096)
	if a == c {
		t.Fatal("expected different file suffixes to produce different UUIDs")
	}
}
