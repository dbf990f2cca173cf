package model

import "testing"

func TestArenaChunkIdentity(t *testing.T) {
	a := NewArena()
	c1 := a.NewChunk(ChunkDylibSegment, "__TEXT", 0x4000)
	c2 := a.NewChunk(ChunkLinkeditData, "symtab", 8)
	if c1.ID == c2.ID {
		t.Fatalf("expected distinct IDs, got %d and %d", c1.ID, c2.ID)
	}
	if got := a.Chunk(c1.ID); got != c1 {
		t.Fatalf("Chunk(%d) did not return the same pointer", c1.ID)
	}
}

func TestRegionEmptyAndAppend(t *testing.T) {
	a := NewArena()
	r := a.NewRegion(RegionText)
	if !r.Empty() {
		t.Fatal("new region should be empty")
	}
	c := a.NewChunk(ChunkDylibSegment, "__TEXT", 0x4000)
	r.Append(c.ID)
	if r.Empty() {
		t.Fatal("region with a chunk should not be empty")
	}
}

func TestSubCacheAnonymousBuffer(t *testing.T) {
	a := NewArena()
	s := a.NewSubCache(SubCacheMainDevelopment)
	if err := s.SetBuffer(BackingAnonymous, 4096, ""); err != nil {
		t.Fatalf("SetBuffer: %v", err)
	}
	if s.Size() != 4096 {
		t.Fatalf("Size() = %d, want 4096", s.Size())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSplitSegAdjustorFindSegment(t *testing.T) {
	adj := &SplitSegAdjustor{Segments: []SegmentAdjustment{
		{Name: "__TEXT", InputVMStart: 0x1000, InputVMEnd: 0x2000, CacheVMStart: 0x1_8000_0000},
	}}
	seg, ok := adj.FindSegment(0x1500)
	if !ok {
		t.Fatal("expected to find segment")
	}
	if got := seg.Adjust(0x1500); got != 0x1_8000_0500 {
		t.Fatalf("Adjust = %#x, want 0x1_8000_0500", uint64(got))
	}
	if _, ok := adj.FindSegment(0x5000); ok {
		t.Fatal("expected not to find segment outside range")
	}
}
