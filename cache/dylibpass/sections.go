package dylibpass

import "github.com/cachebuild/dyldcache/macho"

// sectionRange is the input-file-relative geometry of one section: its
// file byte range and its VM address range, both within the input
// buffer/VM space (not yet shifted into cache space).
type sectionRange struct {
	FileOff uint64
	FileEnd uint64
	VMAddr  uint64
	VMEnd   uint64
}

func (r sectionRange) containsVMAddr(a uint64) bool { return a >= r.VMAddr && a < r.VMEnd }

// findSection scans every segment of f for a section named name,
// returning its geometry. Mirrors macho.File.Section but also reports the
// VM range, which f.Section's *Section alone does not make as convenient
// to compare against without re-deriving Addr+Size at every call site.
func findSection(f *macho.File, name string) (sectionRange, bool) {
	for _, seg := range f.Segments() {
		if sec := f.Section(seg.Name, name); sec != nil {
			return sectionRange{
				FileOff: uint64(sec.Offset),
				FileEnd: uint64(sec.Offset) + sec.Size,
				VMAddr:  sec.Addr,
				VMEnd:   sec.Addr + sec.Size,
			}, true
		}
	}
	return sectionRange{}, false
}

// fileOffsetForVMAddr converts a VM address known to lie within one of
// f's segments into an input-file byte offset, the same linear mapping
// macho.File.GetOffset performs, duplicated here so dylibpass never calls
// into macho.File helpers that route through the package's chained-fixups
// accessors (see fixups.go's package doc).
func fileOffsetForVMAddr(f *macho.File, vmAddr uint64) (uint64, bool) {
	for _, seg := range f.Segments() {
		if vmAddr >= seg.Addr && vmAddr < seg.Addr+seg.Memsz {
			return (vmAddr - seg.Addr) + seg.Offset, true
		}
	}
	return 0, false
}
