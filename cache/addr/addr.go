// Package addr defines the strongly typed address and scalar kinds used
// throughout the cache builder. Values never convert implicitly between
// address spaces; every crossing goes through a named method so a reviewer
// can grep for it.
package addr

import "fmt"

// InputDylibVMAddress is an address in an input dylib's own preferred VM
// space, as linked by the original linker.
type InputDylibVMAddress uint64

// CacheVMAddress is an address in the final shared-cache VM space.
type CacheVMAddress uint64

// CacheFileOffset is a byte offset into a sub-cache file.
type CacheFileOffset uint64

// CacheFileSize is a byte length within a sub-cache file.
type CacheFileSize uint64

// CacheVMSize is a byte length within the cache VM space.
type CacheVMSize uint64

// VMOffset is a relative offset within some VM range (a segment, a chunk,
// a table); it carries no address-space tag of its own.
type VMOffset uint64

// Add returns a+off as a CacheVMAddress.
func (a CacheVMAddress) Add(off VMOffset) CacheVMAddress {
	return CacheVMAddress(uint64(a) + uint64(off))
}

// Sub returns the VMOffset between a and b (a-b); both must share an
// address space, which the type system enforces by requiring both operands
// be CacheVMAddress.
func (a CacheVMAddress) Sub(b CacheVMAddress) VMOffset {
	return VMOffset(uint64(a) - uint64(b))
}

// ToFileOffset reinterprets a CacheVMAddress as a CacheFileOffset relative
// to base, the CacheVMAddress that corresponds to file offset 0 of the
// region containing a. Named explicitly because it crosses from VM space
// to file space.
func (a CacheVMAddress) ToFileOffset(base CacheVMAddress, baseFileOffset CacheFileOffset) CacheFileOffset {
	return CacheFileOffset(uint64(baseFileOffset) + uint64(a.Sub(base)))
}

// Add returns off+o.
func (off VMOffset) Add(o VMOffset) VMOffset { return off + o }

// Add returns o+off as a CacheFileOffset.
func (o CacheFileOffset) Add(off CacheFileSize) CacheFileOffset {
	return CacheFileOffset(uint64(o) + uint64(off))
}

// Sub returns the CacheFileSize between o and b (o-b).
func (o CacheFileOffset) Sub(b CacheFileOffset) CacheFileSize {
	return CacheFileSize(uint64(o) - uint64(b))
}

// AlignUp rounds off up to the next multiple of align (align must be a
// power of two).
func AlignUp[T ~uint64](v T, align T) T {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func (a InputDylibVMAddress) String() string { return fmt.Sprintf("input:0x%x", uint64(a)) }
func (a CacheVMAddress) String() string      { return fmt.Sprintf("cache:0x%x", uint64(a)) }
func (o CacheFileOffset) String() string     { return fmt.Sprintf("fileoff:0x%x", uint64(o)) }
func (s CacheFileSize) String() string       { return fmt.Sprintf("filesize:0x%x", uint64(s)) }
func (s CacheVMSize) String() string         { return fmt.Sprintf("vmsize:0x%x", uint64(s)) }
func (o VMOffset) String() string            { return fmt.Sprintf("off:0x%x", uint64(o)) }
