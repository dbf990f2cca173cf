package emit

import (
	"sort"

	"github.com/cachebuild/dyldcache/cache/addr"
	"github.com/cachebuild/dyldcache/cache/model"
)

// The sizeof constants below mirror dyld's on-disk patch_info_v3
// structures. They are declared here rather than imported from a types
// package because this builder only ever writes the patch table, never
// parses one back.
const (
	sizeofPatchInfoV3      = 24
	sizeofImagePatches     = 12
	sizeofImageExport      = 8
	sizeofImageClients     = 8
	sizeofPatchableExport  = 12
	sizeofPatchableLocation = 16
)

// PatchableExport is one overridable exported symbol: a deduplicated
// GOT target, recorded against the dylib that exports it so a root
// library overriding that dylib knows which slots to re-point.
type PatchableExport struct {
	Image      model.DylibIndex // exporting dylib; -1 when the install name is not a cache dylib
	SymbolName string
	Slot       int // index into GOTResult.Slots
}

// PatchableLocation is one fixup site that must be re-bound when its
// target export is overridden: the client dylib the site lives in, the
// deduplicated slot it consumes, and its offset within that client's
// first mapped chunk.
type PatchableLocation struct {
	Client     model.DylibIndex
	Slot       int
	SiteOffset addr.VMOffset
}

// ImagePatches is one dylib's row in the patch table: how many of the
// table's exports it owns and how many client dylibs reference at
// least one of them.
type ImagePatches struct {
	Image    model.DylibIndex
	NExports int
	NClients int
}

// PatchTable is the emitted cache-wide patch table: the per-image
// summary rows, the flattened export and location records, and the
// estimator's sizing of the whole structure.
type PatchTable struct {
	Size uint64

	Images    []ImagePatches
	Exports   []PatchableExport
	Locations []PatchableLocation

	NDylibs       int
	NBindTargets  int
	BindStringBytes uint64
	NClients      int
	NBinds        int
}

// EstimatePatchTable sizes the patch table with the patch_info_v3
// formula:
//
//	sizeof(patch_info_v3)
//	  + N_dylibs*sizeof(image_patches)
//	  + (2/3)*N_bind_targets*sizeof(image_export)
//	  + (2/3)*bind_string_bytes
//	  + N_clients*sizeof(image_clients)
//	  + N_bind_targets*sizeof(patchable_export)
//	  + N_binds*sizeof(patchable_location)
//
// N_bind_targets and bind_string_bytes come from the deduplicated GOT
// slot list (every slot is a distinct external symbol reference that
// can be overridden); N_binds is the total fixup count across every
// dylib's original bind list, before dedup; N_clients is the number of
// distinct dylibs that reference at least one of those targets.
func EstimatePatchTable(dylibs []*model.CacheDylib, got *GOTResult) *PatchTable {
	nBindTargets := 0
	bindStringBytes := uint64(0)
	if got != nil {
		nBindTargets = len(got.Slots)
		for _, s := range got.Slots {
			bindStringBytes += uint64(len(s.Key.SymbolName)) + 1
		}
	}

	nBinds := 0
	for _, d := range dylibs {
		nBinds += len(d.BindTargets)
	}

	clients := map[model.DylibIndex]bool{}
	if got != nil {
		for dylib, m := range got.PerDylibMap {
			if len(m) > 0 {
				clients[dylib] = true
			}
		}
	}

	size := uint64(sizeofPatchInfoV3)
	size += uint64(len(dylibs)) * sizeofImagePatches
	size += (2 * uint64(nBindTargets) * sizeofImageExport) / 3
	size += (2 * bindStringBytes) / 3
	size += uint64(len(clients)) * sizeofImageClients
	size += uint64(nBindTargets) * sizeofPatchableExport
	size += uint64(nBinds) * sizeofPatchableLocation

	return &PatchTable{
		Size:            size,
		NDylibs:         len(dylibs),
		NBindTargets:    nBindTargets,
		BindStringBytes: bindStringBytes,
		NClients:        len(clients),
		NBinds:          nBinds,
	}
}

// EmitPatchTable materializes the patch table's records on top of the
// estimator's sizing: one PatchableExport per deduplicated GOT slot
// (attributed to the exporting dylib), one PatchableLocation per
// GOT-consuming fixup site, and one ImagePatches row per dylib that
// exports at least one patchable symbol. Exports keep the GOT result's
// slot order; locations are ordered by client cache-index then site
// offset, so the emitted table is byte-stable across builds.
func EmitPatchTable(dylibs []*model.CacheDylib, uses []DylibGOTUses, got *GOTResult) *PatchTable {
	pt := EstimatePatchTable(dylibs, got)
	if got == nil {
		return pt
	}

	byInstallName := map[string]model.DylibIndex{}
	for _, d := range dylibs {
		byInstallName[d.InstallName] = d.CacheIndex
	}

	exportsPerImage := map[model.DylibIndex]int{}
	for i, s := range got.Slots {
		image, ok := byInstallName[s.Key.InstallName]
		if !ok {
			image = -1
		}
		pt.Exports = append(pt.Exports, PatchableExport{
			Image:      image,
			SymbolName: s.Key.SymbolName,
			Slot:       i,
		})
		exportsPerImage[image]++
	}

	clientsPerImage := map[model.DylibIndex]map[model.DylibIndex]bool{}
	for _, du := range uses {
		for _, u := range du.Uses {
			slot, ok := got.PerDylibMap[du.Dylib][u.SiteOffset]
			if !ok {
				continue
			}
			pt.Locations = append(pt.Locations, PatchableLocation{
				Client:     du.Dylib,
				Slot:       slot,
				SiteOffset: u.SiteOffset,
			})
			image := pt.Exports[slot].Image
			if clientsPerImage[image] == nil {
				clientsPerImage[image] = map[model.DylibIndex]bool{}
			}
			clientsPerImage[image][du.Dylib] = true
		}
	}
	sort.SliceStable(pt.Locations, func(i, j int) bool {
		a, b := pt.Locations[i], pt.Locations[j]
		if a.Client != b.Client {
			return a.Client < b.Client
		}
		return a.SiteOffset < b.SiteOffset
	})

	for _, d := range dylibs {
		n := exportsPerImage[d.CacheIndex]
		if n == 0 {
			continue
		}
		pt.Images = append(pt.Images, ImagePatches{
			Image:    d.CacheIndex,
			NExports: n,
			NClients: len(clientsPerImage[d.CacheIndex]),
		})
	}
	sort.SliceStable(pt.Images, func(i, j int) bool { return pt.Images[i].Image < pt.Images[j].Image })

	return pt
}
