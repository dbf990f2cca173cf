package registry

import (
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/macho"
	"github.com/cachebuild/dyldcache/types"
)

// parseHeader runs the MachOAccess external collaborator (package macho)
// over buf and extracts the subset of information categorize_inputs and
// calculate_dylib_dependents need. It returns macho.NewFile's error when
// buf does not parse as a Mach-O (the caller records that as a per-file
// validation error, not a build failure).
func parseHeader(buf []byte) (*model.ParsedHeader, error) {
	f, err := macho.NewFile(newReaderAt(buf))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := &model.ParsedHeader{
		IsDylib:             f.FileHeader.Type == types.MH_DYLIB,
		IsDynamicExecutable: f.FileHeader.Type == types.MH_EXECUTE && f.FileHeader.Flags.DyldLink(),
		HasChainedFixups:    f.HasFixups(),
		HasObjC:             hasObjCSections(f),
		HasThreadLocals:     hasThreadLocalSections(f),
		CPUType:             int32(f.FileHeader.CPU),
		CPUSubtype:          int32(f.FileHeader.SubCPU),
	}
	if id := f.DylibID(); id != nil {
		h.InstallName = id.Name
	}
	if bv := f.BuildVersion(); bv != nil {
		h.Platform = bv.Platform
	}
	for _, l := range f.Loads {
		switch d := l.(type) {
		case *macho.Dylib:
			h.Dependencies = append(h.Dependencies, model.DependencyRef{Path: d.Name, Kind: model.DependentNormal})
		case *macho.WeakDylib:
			h.Dependencies = append(h.Dependencies, model.DependencyRef{Path: d.Name, Kind: model.DependentWeakLink})
		case *macho.ReExportDylib:
			h.Dependencies = append(h.Dependencies, model.DependencyRef{Path: d.Name, Kind: model.DependentReexport})
		case *macho.UpwardDylib:
			h.Dependencies = append(h.Dependencies, model.DependencyRef{Path: d.Name, Kind: model.DependentUpward})
		}
	}
	return h, nil
}

func hasObjCSections(f *macho.File) bool {
	for _, seg := range f.Segments() {
		if seg.Name == "__DATA" || seg.Name == "__DATA_CONST" || seg.Name == "__TEXT" {
			for _, sec := range f.GetSectionsForSegment(seg.Name) {
				if len(sec.Name) >= 6 && sec.Name[:6] == "__objc" {
					return true
				}
			}
		}
	}
	return false
}

func hasThreadLocalSections(f *macho.File) bool {
	for _, seg := range f.Segments() {
		for _, sec := range f.GetSectionsForSegment(seg.Name) {
			switch sec.Flags.SectionType() {
			case types.S_THREAD_LOCAL_REGULAR, types.S_THREAD_LOCAL_ZEROFILL,
				types.S_THREAD_LOCAL_VARIABLES, types.S_THREAD_LOCAL_VARIABLE_POINTERS,
				types.S_THREAD_LOCAL_INIT_FUNCTION_POINTERS:
				return true
			}
		}
	}
	return false
}

// readerAt adapts a byte slice to io.ReaderAt, the interface macho.NewFile
// requires.
type readerAt struct{ b []byte }

func newReaderAt(b []byte) *readerAt { return &readerAt{b} }

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(r.b)) {
		return 0, errOutOfRange
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, errShortRead
	}
	return n, nil
}
