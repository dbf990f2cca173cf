package emit

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
)

// unmappedSymbolRedaction replaces a local text symbol's name once it
// is moved out of the mapped symbol table and into the .symbols
// sub-cache, so the relocated entry cannot leak unmapped debug info.
const unmappedSymbolRedaction = "<redacted>"

// DylibSymbolCounts mirrors model.OptimizedSymbols for one dylib, read
// back out so the symbol-table emitter can report per-dylib totals
// without re-deriving them.
type DylibSymbolCounts struct {
	Dylib     model.DylibIndex
	Exported  int
	Imported  int
	Local     int
}

// SymbolTableResult is the output of emit_symbol_table: the mapped
// export/import counts retained in the cache's own symbol table, and,
// when mode calls for it, the unmapped local-symbol entries relocated
// into the .symbols sub-cache.
type SymbolTableResult struct {
	Mapped   []DylibSymbolCounts
	Unmapped []UnmappedLocalSymbol
	Mode     config.LocalSymbolsMode
}

// UnmappedLocalSymbol is one local nlist entry moved to the .symbols
// sub-cache: its owning dylib, its name, and whether that name is the
// redaction sentinel (unmappedLocalsForDylib emits every entry
// redacted).
type UnmappedLocalSymbol struct {
	Dylib    model.DylibIndex
	Name     string
	Redacted bool
}

// EmitSymbolTable builds the mapped per-dylib export/import counts for
// every dylib, and, when mode is LocalSymbolsUnmap, one redacted
// .symbols entry per local symbol (text and non-text locals are not told
// apart, and none are dropped). LocalSymbolsKeep leaves locals in
// the mapped table (no unmapped entries emitted); LocalSymbolsStrip
// drops them outright (also no unmapped entries, since nothing is
// retained anywhere).
func EmitSymbolTable(dylibs []*model.CacheDylib, mode config.LocalSymbolsMode) *SymbolTableResult {
	sorted := append([]*model.CacheDylib(nil), dylibs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CacheIndex < sorted[j].CacheIndex })

	res := &SymbolTableResult{Mode: mode}
	for _, d := range sorted {
		if d.OptimizedSymbols == nil {
			continue
		}
		res.Mapped = append(res.Mapped, DylibSymbolCounts{
			Dylib:    d.CacheIndex,
			Exported: d.OptimizedSymbols.ExportedCount,
			Imported: d.OptimizedSymbols.ImportedCount,
			Local:    d.OptimizedSymbols.LocalCount,
		})

		if mode == config.LocalSymbolsUnmap {
			res.Unmapped = append(res.Unmapped, unmappedLocalsForDylib(d)...)
		}
	}
	return res
}

// unmappedLocalsForDylib synthesizes the .symbols sub-cache entries for
// one dylib's local symbol count. This builder's metadata-visitor layer
// does not retain each local nlist's individual name or n_type past
// update_symbol_tables, so every local entry is conservatively emitted
// as redacted; a visitor that threads per-symbol text/data
// classification through would let this keep non-text names intact.
func unmappedLocalsForDylib(d *model.CacheDylib) []UnmappedLocalSymbol {
	out := make([]UnmappedLocalSymbol, 0, d.OptimizedSymbols.LocalCount)
	for i := 0; i < d.OptimizedSymbols.LocalCount; i++ {
		out = append(out, UnmappedLocalSymbol{Dylib: d.CacheIndex, Name: unmappedSymbolRedaction, Redacted: true})
	}
	return out
}
