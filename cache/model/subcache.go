package model

import (
	"fmt"
	"os"
	"syscall"

	"github.com/google/uuid"

	"github.com/cachebuild/dyldcache/cache/cerrors"
)

// SubCacheKind distinguishes the emitted file roles.
type SubCacheKind int

const (
	SubCacheMainDevelopment SubCacheKind = iota
	SubCacheMainCustomer
	SubCacheSub
	SubCacheStubsDevelopment
	SubCacheStubsCustomer
	SubCacheSymbols
)

func (k SubCacheKind) String() string {
	switch k {
	case SubCacheMainDevelopment:
		return "main-development"
	case SubCacheMainCustomer:
		return "main-customer"
	case SubCacheSub:
		return "sub"
	case SubCacheStubsDevelopment:
		return "stubs-development"
	case SubCacheStubsCustomer:
		return "stubs-customer"
	case SubCacheSymbols:
		return "symbols"
	default:
		return "?"
	}
}

// IsMain reports whether this sub-cache kind is one of the two "main"
// roles that may hold raw-pointer (here: ID) references to sub/stubs
// children.
func (k SubCacheKind) IsMain() bool {
	return k == SubCacheMainDevelopment || k == SubCacheMainCustomer
}

// BackingMode selects how a SubCache's writable buffer is obtained.
type BackingMode int

const (
	// BackingAnonymous allocates a plain in-process byte slice.
	BackingAnonymous BackingMode = iota
	// BackingFile mmaps a truncated temp file, trading address space
	// for a disk-backed fixed-capacity store.
	BackingFile
)

// SubCache is one emitted file: a kind, its Regions (by ID), and (for
// main caches) the list of child SubCaches it references. The backing
// buffer is allocated once at its final capacity and never reallocated;
// Chunk file-offset/VM-address fields are only valid once this is done.
type SubCache struct {
	ID       SubCacheID
	Kind     SubCacheKind
	Regions  []RegionID
	Children []SubCacheID // valid only when Kind.IsMain()

	FileSuffix string
	UUID       uuid.UUID
	CDHash     [20]byte

	backing   BackingMode
	buf       []byte
	file      *os.File
	allocated bool
}

// SetBuffer reserves a buffer of exactly size bytes using mode. For
// BackingFile, it creates and truncates a temp file in dir and mmaps it;
// the caller is responsible for eventually calling Close to unmap and
// remove the temp file.
func (s *SubCache) SetBuffer(mode BackingMode, size int, dir string) error {
	if s.allocated {
		return cerrors.Wrap(cerrors.IOFailure, nil, "sub-cache %d buffer already allocated", s.ID)
	}
	s.backing = mode
	switch mode {
	case BackingAnonymous:
		s.buf = make([]byte, size)
	case BackingFile:
		f, err := os.CreateTemp(dir, fmt.Sprintf("dyldcache-%s-*.tmp", s.Kind))
		if err != nil {
			return cerrors.Wrap(cerrors.IOFailure, err, "create temp file for sub-cache %d", s.ID)
		}
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			os.Remove(f.Name())
			return cerrors.Wrap(cerrors.IOFailure, err, "truncate temp file for sub-cache %d", s.ID)
		}
		buf, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
		if err != nil {
			f.Close()
			os.Remove(f.Name())
			return cerrors.Wrap(cerrors.IOFailure, err, "mmap temp file for sub-cache %d", s.ID)
		}
		s.file = f
		s.buf = buf
	}
	s.allocated = true
	return nil
}

// Buffer returns the writable backing buffer. Chunks hold only offsets
// into this slice; the slice itself is never reallocated once set.
func (s *SubCache) Buffer() []byte { return s.buf }

// Size returns the buffer's length in bytes.
func (s *SubCache) Size() int { return len(s.buf) }

// Close releases the backing store: a no-op for anonymous buffers, an
// munmap+remove for file-backed ones.
func (s *SubCache) Close() error {
	if !s.allocated || s.backing != BackingFile {
		return nil
	}
	var err error
	if s.buf != nil {
		err = syscall.Munmap(s.buf)
		s.buf = nil
	}
	if s.file != nil {
		name := s.file.Name()
		s.file.Close()
		os.Remove(name)
		s.file = nil
	}
	return err
}
