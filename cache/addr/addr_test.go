package addr

import "testing"

func TestAlignUp(t *testing.T) {
	cases := []struct {
		v, align, want uint64
	}{
		{0, 0x4000, 0},
		{1, 0x4000, 0x4000},
		{0x4000, 0x4000, 0x4000},
		{0x4001, 0x4000, 0x8000},
	}
	for _, c := range cases {
		if got := AlignUp(c.v, c.align); got != c.want {
			t.Errorf("AlignUp(%#x, %#x) = %#x, want %#x", c.v, c.align, got, c.want)
		}
	}
}

func TestCacheVMAddressRoundTrip(t *testing.T) {
	base := CacheVMAddress(0x1_8000_0000)
	target := base.Add(VMOffset(0x1000))
	if off := target.Sub(base); off != 0x1000 {
		t.Fatalf("Sub = %#x, want 0x1000", uint64(off))
	}
	fo := target.ToFileOffset(base, CacheFileOffset(0x4000))
	if fo != 0x5000 {
		t.Fatalf("ToFileOffset = %#x, want 0x5000", uint64(fo))
	}
}

func TestCacheFileOffsetArithmetic(t *testing.T) {
	o := CacheFileOffset(0x1000)
	o2 := o.Add(CacheFileSize(0x200))
	if o2 != 0x1200 {
		t.Fatalf("Add = %#x, want 0x1200", uint64(o2))
	}
	if got := o2.Sub(o); got != 0x200 {
		t.Fatalf("Sub = %#x, want 0x200", uint64(got))
	}
}
