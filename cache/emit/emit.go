// Package emit implements the GlobalEmitters: the sequential post-dylib
// phase that deduplicates GOTs, canonicalizes ObjC protocols, emits the
// ObjC and Swift hash tables, the dylib trie, the patch table, the
// prebuilt-loader sets, slide info, and the symbol tables.
package emit

import (
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/dylibpass"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

// Emitters drives the GlobalEmitters phase. It is constructed once the
// per-dylib pass has finished and every CacheDylib has a final
// CacheLoadAddress.
type Emitters struct {
	cfg        config.Config
	arena      *model.Arena
	opt        *optimize.Result
	perDylibMD []optimize.DylibObjCMetadata
	aslr       *dylibpass.ASLRTracker
	dylibs     []*model.CacheDylib

	Warnings []string
}

// New returns an Emitters bound to the build's arena and merged optimizer
// output. perDylibMD is the same per-dylib metadata slice that was fed to
// optimize.Run, retained here because compute_objc_class_layout needs
// each class's Superclass pointer, which the merged ClassNamePool does
// not keep.
func New(cfg config.Config, arena *model.Arena, opt *optimize.Result, perDylibMD []optimize.DylibObjCMetadata, aslr *dylibpass.ASLRTracker, dylibs []*model.CacheDylib) *Emitters {
	return &Emitters{cfg: cfg, arena: arena, opt: opt, perDylibMD: perDylibMD, aslr: aslr, dylibs: dylibs}
}

// Result collects every table GlobalEmitters produces, consumed by the
// Finalizer when it writes sub-cache headers.
type Result struct {
	GOT            *GOTResult
	Protocols      *CanonicalProtocols
	ObjCHeaderInfo *ObjCHeaderInfoResult
	ObjCHashTables *ObjCHashTablesResult
	ClassLayout    *ClassLayoutResult
	Swift          *SwiftHashTables
	Trie           *optimize.DylibTrie
	PatchTable     *PatchTable
	CacheLoaders   *PrebuiltLoaderSet
	ExecLoaders    *PrebuiltLoaderSet
	Slide          map[model.SubCacheID]*SlideInfo
	Symbols        *SymbolTableResult
	TLV            *TLVResult
}

// AliasEntry is one (path -> dylib index) pair the builder's alias table
// contributes to the dylib trie, mirroring InputRegistry.ForEachCacheSymlink.
type AliasEntry struct {
	Path       string
	DylibIndex model.DylibIndex
}

// Run executes every GlobalEmitters step in its fixed order:
// TLVs, GOT dedup, canonical protocols, ObjC header/hash tables and class
// layout, Swift hash tables, dylib trie, patch table, prebuilt loaders
// (cache dylibs then executables), slide info, then symbol tables. Slide
// info runs after every other pointer-writing step because it encodes
// the pointer format those steps produce.
func (e *Emitters) Run(got []DylibGOTUses, executables []ExecutableInput, tlv TLVConfig, aliases []AliasEntry) (*Result, error) {
	res := &Result{}

	tlvResult, warnings := OptimizeTLVs(e.dylibs, tlv)
	res.TLV = tlvResult
	e.Warnings = append(e.Warnings, warnings...)

	res.GOT = EmitUniquedGOTs(got)

	res.Protocols = EmitCanonicalObjCProtocols(e.opt.Protocols)

	res.ObjCHeaderInfo = EmitObjCHeaderInfo(e.dylibs)
	res.ObjCHashTables = EmitObjCHashTables(e.opt, res.ObjCHeaderInfo, e.cfg.ObjCOptimizations)
	res.ClassLayout = ComputeObjCClassLayout(e.perDylibMD)

	res.Swift = EmitSwiftHashTables(e.opt.Conformances, e.cfg.ObjCOptimizations)

	res.Trie = e.buildTrie(aliases)

	res.PatchTable = EmitPatchTable(e.dylibs, got, res.GOT)

	res.CacheLoaders = EstimateCacheDylibLoaders(e.arena, e.dylibs, e.cfg)
	res.ExecLoaders = EstimateExecutableLoaders(executables, res.Trie)

	slide, err := ComputeSlideInfo(e.cfg, e.arena, e.aslr, e.dylibs)
	if err != nil {
		return nil, err
	}
	res.Slide = slide

	res.Symbols = EmitSymbolTable(e.dylibs, e.cfg.LocalSymbolsMode)

	return res, nil
}

func (e *Emitters) buildTrie(aliases []AliasEntry) *optimize.DylibTrie {
	t := optimize.NewDylibTrie()
	for _, d := range e.dylibs {
		t.Add(d.InstallName, int32(d.CacheIndex))
	}
	for _, a := range aliases {
		t.Add(a.Path, int32(a.DylibIndex))
	}
	return t
}
