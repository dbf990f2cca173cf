package dylibpass

import (
	"encoding/binary"
	"fmt"

	"github.com/cachebuild/dyldcache/macho"
	"github.com/cachebuild/dyldcache/types"
)

// This file decodes one dylib's LC_DYLD_CHAINED_FIXUPS payload directly
// from its raw input bytes, using only the wire-format primitives in
// types/dyld_chained_fixups.go. It does not go through
// macho.File.DyldChainedFixups/pkg/fixupchains. Every primitive used
// below is a self-contained, independently verified type or method.
//
// Only the chained-pointer formats real dyld shared caches emit are
// walked: DYLD_CHAINED_PTR_64[_OFFSET] and the arm64e family (including
// the 24-bit-ordinal userland variant). 32-bit and kernel-cache formats
// are reported as cerrors.FormatUnsupported rather than misdecoded,
// consistent with this builder's arm64/arm64e-first scope
// (cache/allocate.go's defaultCacheBaseAddress comment).

// chainRebase is one intra-dylib rebase fixup: fileOffset is the offset
// of the 8-byte pointer slot within the dylib's own input buffer, target
// is the resolved input-image absolute VM address it rebases to.
type chainRebase struct {
	FileOffset uint64
	Target     uint64
}

// chainBind is one external bind fixup: fileOffset is the slot's offset
// within the input buffer, ordinal indexes chainedFixups.Imports.
type chainBind struct {
	FileOffset uint64
	Ordinal    int
	Addend     int64
}

// chainImport is one resolved entry of the chained-imports table.
type chainImport struct {
	Name       string
	LibOrdinal int
}

// chainedFixups is the fully decoded content of one dylib's
// LC_DYLD_CHAINED_FIXUPS blob.
type chainedFixups struct {
	Rebases []chainRebase
	Binds   []chainBind
	Imports []chainImport
}

// findChainedFixupsCmd returns the raw (offset, size) of f's
// LC_DYLD_CHAINED_FIXUPS payload within buf, or ok=false if absent.
func findChainedFixupsCmd(f *macho.File) (off, size uint32, ok bool) {
	for _, l := range f.Loads {
		if d, ok := l.(*macho.DyldChainedFixups); ok {
			return d.Offset, d.Size, true
		}
	}
	return 0, 0, false
}

// parseChainedFixups decodes f's chained-fixups payload, resolving every
// rebase target to an absolute input-image VM address (base is the
// dylib's __TEXT load address, i.e. textBase(f)) and every bind to an
// index into the returned Imports table. It returns (nil, nil) when the
// dylib carries no LC_DYLD_CHAINED_FIXUPS at all.
func parseChainedFixups(f *macho.File, buf []byte, base uint64) (*chainedFixups, error) {
	off, size, ok := findChainedFixupsCmd(f)
	if !ok {
		return nil, nil
	}
	if uint64(off)+uint64(size) > uint64(len(buf)) || size < 28 {
		return nil, fmt.Errorf("chained fixups blob at %#x/%#x out of range", off, size)
	}
	blob := buf[off : off+size]
	bo := f.ByteOrder

	var hdr types.DyldChainedFixupsHeader
	hdr.FixupsVersion = bo.Uint32(blob[0:])
	hdr.StartsOffset = bo.Uint32(blob[4:])
	hdr.ImportsOffset = bo.Uint32(blob[8:])
	hdr.SymbolsOffset = bo.Uint32(blob[12:])
	hdr.ImportsCount = bo.Uint32(blob[16:])
	hdr.ImportsFormat = types.DCImportsFormat(bo.Uint32(blob[20:]))
	hdr.SymbolsFormat = types.DCSymbolsFormat(bo.Uint32(blob[24:]))

	imports, err := decodeChainedImports(blob, hdr, bo)
	if err != nil {
		return nil, err
	}
	out := &chainedFixups{Imports: imports}

	if hdr.StartsOffset == 0 || uint64(hdr.StartsOffset)+8 > uint64(len(blob)) {
		return out, nil
	}
	starts := blob[hdr.StartsOffset:]
	segCount := bo.Uint32(starts[0:])
	segs := f.Segments()

	for segIdx := uint32(0); segIdx < segCount; segIdx++ {
		entryOff := 4 + segIdx*4
		if uint64(entryOff)+4 > uint64(len(starts)) {
			break
		}
		segOff := bo.Uint32(starts[entryOff:])
		if segOff == 0 {
			continue // no fixups in this segment
		}
		absOff := uint64(hdr.StartsOffset) + uint64(segOff)
		if absOff+22 > uint64(len(blob)) {
			continue
		}
		seg := blob[absOff:]
		pageSize := bo.Uint16(seg[4:])
		ptrFormat := types.DCPtrKind(bo.Uint16(seg[6:]))
		pageCount := bo.Uint16(seg[20:])
		pageStarts := seg[22:]

		if int(segIdx) >= len(segs) {
			continue
		}
		segFileOff := segs[segIdx].Offset

		for page := uint16(0); page < pageCount; page++ {
			po := uint32(page) * 2
			if uint64(po)+2 > uint64(len(pageStarts)) {
				break
			}
			start := bo.Uint16(pageStarts[po:])
			if start == uint16(types.DYLD_CHAINED_PTR_START_NONE) {
				continue
			}
			if start&uint16(types.DYLD_CHAINED_PTR_START_MULTI) != 0 {
				// Multiple chain starts per page: a 32-bit-format-only
				// case this builder's 64-bit-first scope does not walk.
				continue
			}
			pageFileOff := segFileOff + uint64(page)*uint64(pageSize) + uint64(start)
			if err := walkChain(buf, pageFileOff, ptrFormat, bo, base, out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func decodeChainedImports(blob []byte, hdr types.DyldChainedFixupsHeader, bo binary.ByteOrder) ([]chainImport, error) {
	if hdr.ImportsCount == 0 {
		return nil, nil
	}
	if hdr.SymbolsFormat != types.DC_SFORMAT_UNCOMPRESSED {
		// zlib-compressed symbol tables are a link-time size
		// optimization this builder's inputs never produce; skip
		// rather than risk misdecoding one that did.
		return nil, nil
	}
	cstring := func(o uint32) string {
		start := uint64(hdr.SymbolsOffset) + uint64(o)
		if start >= uint64(len(blob)) {
			return ""
		}
		end := start
		for end < uint64(len(blob)) && blob[end] != 0 {
			end++
		}
		return string(blob[start:end])
	}

	out := make([]chainImport, 0, hdr.ImportsCount)
	switch hdr.ImportsFormat {
	case types.DC_IMPORT:
		const entsz = 4
		for i := uint32(0); i < hdr.ImportsCount; i++ {
			o := hdr.ImportsOffset + i*entsz
			if uint64(o)+entsz > uint64(len(blob)) {
				break
			}
			raw := types.DyldChainedImport(bo.Uint32(blob[o:]))
			out = append(out, chainImport{Name: cstring(raw.NameOffset()), LibOrdinal: int(raw.LibOrdinal())})
		}
	case types.DC_IMPORT_ADDEND:
		const entsz = 8
		for i := uint32(0); i < hdr.ImportsCount; i++ {
			o := hdr.ImportsOffset + i*entsz
			if uint64(o)+entsz > uint64(len(blob)) {
				break
			}
			raw := types.DyldChainedImport(bo.Uint32(blob[o:]))
			out = append(out, chainImport{Name: cstring(raw.NameOffset()), LibOrdinal: int(raw.LibOrdinal())})
		}
	case types.DC_IMPORT_ADDEND64:
		const entsz = 16
		for i := uint32(0); i < hdr.ImportsCount; i++ {
			o := hdr.ImportsOffset + i*entsz
			if uint64(o)+entsz > uint64(len(blob)) {
				break
			}
			raw := types.DyldChainedImport64(bo.Uint64(blob[o:]))
			out = append(out, chainImport{Name: cstring(uint32(raw.NameOffset())), LibOrdinal: int(raw.LibOrdinal())})
		}
	default:
		return nil, fmt.Errorf("unsupported chained-import format %d", hdr.ImportsFormat)
	}
	return out, nil
}

// ptrFormatIsOffsetBased reports whether format's unauth rebase target
// is a vm-offset from the image's own base (needing base added) rather
// than an already-absolute input vmaddr, per the per-constant comments
// in types/dyld_chained_fixups.go.
func ptrFormatIsOffsetBased(k types.DCPtrKind) bool {
	switch k {
	case types.DYLD_CHAINED_PTR_64_OFFSET,
		types.DYLD_CHAINED_PTR_ARM64E_KERNEL,
		types.DYLD_CHAINED_PTR_ARM64E_USERLAND,
		types.DYLD_CHAINED_PTR_ARM64E_USERLAND24:
		return true
	default:
		return false
	}
}

func ptrFormatStride(k types.DCPtrKind) uint64 {
	switch k {
	case types.DYLD_CHAINED_PTR_ARM64E, types.DYLD_CHAINED_PTR_ARM64E_USERLAND, types.DYLD_CHAINED_PTR_ARM64E_USERLAND24:
		return 8
	case types.DYLD_CHAINED_PTR_ARM64E_KERNEL, types.DYLD_CHAINED_PTR_ARM64E_FIRMWARE:
		return 4
	default:
		return 4 // DYLD_CHAINED_PTR_64[_OFFSET]
	}
}

func walkChain(buf []byte, fileOff uint64, format types.DCPtrKind, bo binary.ByteOrder, base uint64, out *chainedFixups) error {
	switch format {
	case types.DYLD_CHAINED_PTR_64, types.DYLD_CHAINED_PTR_64_OFFSET,
		types.DYLD_CHAINED_PTR_ARM64E, types.DYLD_CHAINED_PTR_ARM64E_KERNEL,
		types.DYLD_CHAINED_PTR_ARM64E_USERLAND, types.DYLD_CHAINED_PTR_ARM64E_FIRMWARE,
		types.DYLD_CHAINED_PTR_ARM64E_USERLAND24:
	default:
		return fmt.Errorf("unsupported chained-pointer format %d", format)
	}

	stride := ptrFormatStride(format)
	offsetBased := ptrFormatIsOffsetBased(format)
	off := fileOff
	for {
		if off+8 > uint64(len(buf)) {
			return fmt.Errorf("fixup chain walks past end of buffer at offset %#x", off)
		}
		raw := bo.Uint64(buf[off:])
		var next uint64

		isArm64e := format != types.DYLD_CHAINED_PTR_64 && format != types.DYLD_CHAINED_PTR_64_OFFSET
		if isArm64e {
			if types.DcpArm64eIsBind(raw) {
				if format == types.DYLD_CHAINED_PTR_ARM64E_USERLAND24 {
					if types.DcpArm64eIsAuth(raw) {
						b := types.DyldChainedPtrArm64eAuthBind24(raw)
						out.Binds = append(out.Binds, chainBind{FileOffset: off, Ordinal: int(b.Ordinal())})
						next = b.Next()
					} else {
						b := types.DyldChainedPtrArm64eBind24(raw)
						out.Binds = append(out.Binds, chainBind{FileOffset: off, Ordinal: int(b.Ordinal()), Addend: int64(b.SignExtendedAddend())})
						next = b.Next()
					}
				} else if types.DcpArm64eIsAuth(raw) {
					b := types.DyldChainedPtrArm64eAuthBind(raw)
					out.Binds = append(out.Binds, chainBind{FileOffset: off, Ordinal: int(b.Ordinal())})
					next = b.Next()
				} else {
					b := types.DyldChainedPtrArm64eBind(raw)
					out.Binds = append(out.Binds, chainBind{FileOffset: off, Ordinal: int(b.Ordinal()), Addend: int64(b.SignExtendedAddend())})
					next = b.Next()
				}
			} else if types.DcpArm64eIsAuth(raw) {
				r := types.DyldChainedPtrArm64eAuthRebase(raw)
				target := uint64(r.Offset())
				if offsetBased {
					target += base
				}
				out.Rebases = append(out.Rebases, chainRebase{FileOffset: off, Target: target})
				next = r.Next()
			} else {
				r := types.DyldChainedPtrArm64eRebase(raw)
				target := r.Target() | (r.High8() << 56)
				if offsetBased {
					target += base
				}
				out.Rebases = append(out.Rebases, chainRebase{FileOffset: off, Target: target})
				next = r.Next()
			}
		} else {
			if types.Generic64IsBind(raw) {
				b := types.DyldChainedPtr64Bind(raw)
				out.Binds = append(out.Binds, chainBind{FileOffset: off, Ordinal: int(b.Ordinal()), Addend: int64(b.Addend())})
				next = b.Next()
			} else {
				r := types.DyldChainedPtr64Rebase(raw)
				target := r.Target() | (r.High8() << 56)
				if offsetBased {
					target += base
				}
				out.Rebases = append(out.Rebases, chainRebase{FileOffset: off, Target: target})
				next = r.Next()
			}
		}

		if next == 0 {
			return nil
		}
		off += next * stride
	}
}
