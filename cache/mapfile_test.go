package cache

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cachebuild/dyldcache/cache/dylibpass"
	"github.com/cachebuild/dyldcache/cache/emit"
	"github.com/cachebuild/dyldcache/cache/finalize"
	"github.com/cachebuild/dyldcache/cache/layout"
	"github.com/cachebuild/dyldcache/cache/optimize"
)

// runSyntheticPipeline drives the post-registry phases the same way
// TestBuilderPipelineWiresEveryPhase does, leaving the builder in the
// state MapFile/JSONMap document as their precondition.
func runSyntheticPipeline(t *testing.T, b *Builder) {
	t.Helper()

	plan, err := layout.Partition(b.arena, b.cfg, b.dylibs)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if err := b.allocateSubCacheBuffers(plan); err != nil {
		t.Fatalf("allocateSubCacheBuffers: %v", err)
	}
	perDylibMD, err := b.gatherObjCMetadata()
	if err != nil {
		t.Fatalf("gatherObjCMetadata: %v", err)
	}
	b.opt = optimize.Run(perDylibMD, false, impCacheSalt)
	b.runner = dylibpass.New(b.cfg, b.arena, b.opt, nil)
	if err := b.runner.Run(b.dylibs); err != nil {
		t.Fatalf("dylibpass.Run: %v", err)
	}
	emitters := emit.New(b.cfg, b.arena, b.opt, perDylibMD, b.runner.ASLR(), b.dylibs)
	res, err := emitters.Run(nil, nil, b.tlvConfig(), nil)
	if err != nil {
		t.Fatalf("Emitters.Run: %v", err)
	}
	b.emit = res
	final, err := finalize.New(b.cfg, b.arena, b.emit, b.dylibs).Run()
	if err != nil {
		t.Fatalf("Finalizer.Run: %v", err)
	}
	b.final = final
}

func TestMapFileListsEveryDylibAndMapping(t *testing.T) {
	b, dylibs := newSyntheticBuilder(t)
	runSyntheticPipeline(t, b)

	m := b.MapFile()
	for _, d := range dylibs {
		if !strings.Contains(m, d.InstallName) {
			t.Fatalf("map file missing dylib %s:\n%s", d.InstallName, m)
		}
	}
	if !strings.Contains(m, "__TEXT") {
		t.Fatalf("map file missing a __TEXT mapping line:\n%s", m)
	}
}

func TestJSONMapRoundTrips(t *testing.T) {
	b, dylibs := newSyntheticBuilder(t)
	runSyntheticPipeline(t, b)

	raw, err := b.JSONMap()
	if err != nil {
		t.Fatalf("JSONMap: %v", err)
	}

	var docs []struct {
		UUID     string `json:"uuid"`
		Mappings []struct {
			Name   string `json:"name"`
			VMSize uint64 `json:"vmSize"`
		} `json:"mappings"`
		Images []struct {
			Path        string `json:"path"`
			LoadAddress uint64 `json:"loadAddress"`
		} `json:"images"`
	}
	if err := json.Unmarshal(raw, &docs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(docs) == 0 {
		t.Fatal("expected one JSON map per main sub-cache")
	}
	doc := docs[0]
	if doc.UUID == "" {
		t.Fatal("expected the signed main cache's UUID in the JSON map")
	}
	if len(doc.Images) != len(dylibs) {
		t.Fatalf("images = %d, want %d", len(doc.Images), len(dylibs))
	}
	if len(doc.Mappings) == 0 {
		t.Fatal("expected at least one mapping row")
	}
}
