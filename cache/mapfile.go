package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cachebuild/dyldcache/cache/model"
)

// MapFile renders the human-readable text map for the whole build: one
// block per sub-cache listing its mapped regions, followed by every
// cache dylib's load address and install name. Valid only after a
// successful Build.
func (b *Builder) MapFile() string {
	var sb strings.Builder

	for _, sc := range b.arena.AllSubCaches() {
		fmt.Fprintf(&sb, "sub-cache%s (%s)\n", suffixOrMain(sc.FileSuffix), sc.Kind)
		for _, rid := range sc.Regions {
			r := b.arena.Region(rid)
			if r == nil || r.Empty() {
				continue
			}
			fmt.Fprintf(&sb, "\tmapping %-16s %#x -> %#x  vm %#x size %#x\n",
				r.Kind, uint64(r.SubCacheFileOff), uint64(r.SubCacheFileOff)+uint64(r.SubCacheFileSize),
				uint64(r.SubCacheVMAddr), uint64(r.SubCacheVMSize))
		}
	}

	dylibs := append([]*model.CacheDylib(nil), b.dylibs...)
	sort.SliceStable(dylibs, func(i, j int) bool { return dylibs[i].CacheIndex < dylibs[j].CacheIndex })
	for _, d := range dylibs {
		fmt.Fprintf(&sb, "%#18x %s\n", uint64(d.CacheLoadAddress), d.InstallName)
	}

	return sb.String()
}

// jsonMapImage is one dylib row of the JSON map.
type jsonMapImage struct {
	Path        string `json:"path"`
	LoadAddress uint64 `json:"loadAddress"`
}

// jsonMapMapping is one region row of the JSON map.
type jsonMapMapping struct {
	Name       string `json:"name"`
	FileOffset uint64 `json:"fileOffset"`
	FileSize   uint64 `json:"fileSize"`
	VMAddress  uint64 `json:"vmAddress"`
	VMSize     uint64 `json:"vmSize"`
}

// jsonMap is the per-main-cache JSON map document.
type jsonMap struct {
	FileSuffix string           `json:"fileSuffix"`
	UUID       string           `json:"uuid"`
	Mappings   []jsonMapMapping `json:"mappings"`
	Images     []jsonMapImage   `json:"images"`
}

// JSONMap renders one JSON map document per main sub-cache, keyed by the
// main cache's file suffix. Valid only after a successful Build.
func (b *Builder) JSONMap() ([]byte, error) {
	var maps []jsonMap

	for _, sc := range b.arena.AllSubCaches() {
		if !sc.Kind.IsMain() {
			continue
		}
		m := jsonMap{FileSuffix: sc.FileSuffix}
		if b.final != nil {
			if h, ok := b.final.Headers[sc.ID]; ok {
				m.UUID = fmt.Sprintf("%x", h.UUID)
			}
		}
		for _, rid := range sc.Regions {
			r := b.arena.Region(rid)
			if r == nil || r.Empty() {
				continue
			}
			m.Mappings = append(m.Mappings, jsonMapMapping{
				Name:       r.Kind.String(),
				FileOffset: uint64(r.SubCacheFileOff),
				FileSize:   uint64(r.SubCacheFileSize),
				VMAddress:  uint64(r.SubCacheVMAddr),
				VMSize:     uint64(r.SubCacheVMSize),
			})
		}
		for _, d := range b.dylibs {
			m.Images = append(m.Images, jsonMapImage{Path: d.InstallName, LoadAddress: uint64(d.CacheLoadAddress)})
		}
		maps = append(maps, m)
	}

	return json.MarshalIndent(maps, "", "  ")
}

func suffixOrMain(suffix string) string {
	if suffix == "" {
		return " (main)"
	}
	return suffix
}
