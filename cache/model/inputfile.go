package model

import "time"

// InputFile is a raw input buffer claimed to be a Mach-O. It is created by
// add_file and mutated only to record a validation error; InputFiles live
// for the lifetime of the Builder.
type InputFile struct {
	Buffer []byte
	Size   int64
	Path   string
	Inode  uint64
	Mtime  time.Time

	// Header is filled in once add_file parses the buffer as a Mach-O;
	// nil means the parse failed (Err then holds why).
	Header *ParsedHeader

	// Err records why this file was excluded, if it was.
	Err error
}

// ParsedHeader is the minimal per-file metadata the registry needs before
// a CacheDylib is constructed: enough to know what kind of Mach-O this is
// without re-parsing segments yet.
type ParsedHeader struct {
	InstallName      string
	IsDylib          bool
	IsDynamicExecutable bool
	HasChainedFixups bool
	HasObjC          bool
	HasThreadLocals  bool
	Platform         string
	CPUType          int32
	CPUSubtype       int32

	Dependencies []DependencyRef
}

// DependencyRef is one LC_{,WEAK_,REEXPORT_,LOAD_UPWARD_}DYLIB edge read
// from an input file, before the target has been resolved to a
// *CacheDylib.
type DependencyRef struct {
	Path string
	Kind DependentKind
}
