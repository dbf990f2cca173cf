package cache

import (
	"bytes"
	"strings"

	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/model"
	"github.com/cachebuild/dyldcache/macho"
)

// alwaysOverridableDylib reports whether installName names a dylib the
// runtime may replace with an injected root: its exported symbols are
// interposable, so optimize_stubs must never fold a call through one of
// them into a direct branch.
func alwaysOverridableDylib(installName string) bool {
	return installName == "/usr/lib/libSystem.B.dylib" ||
		strings.HasPrefix(installName, "/usr/lib/system/")
}

// gatherNeverEliminateStubs builds the never-eliminate symbol set for
// optimize_stubs: every exported symbol name of every always-overridable
// cache dylib. Only universal builds carry the set — a development-only
// cache never ships customer stub islands, so there is nothing for the
// set to protect.
func (b *Builder) gatherNeverEliminateStubs() map[string]bool {
	if b.cfg.Kind != config.KindUniversal {
		return nil
	}

	out := map[string]bool{}
	for _, d := range b.dylibs {
		if !alwaysOverridableDylib(d.InstallName) {
			continue
		}
		for _, name := range exportedSymbolNames(d) {
			out[name] = true
		}
	}
	return out
}

// exportedSymbolNames reads d's export trie from its input buffer. A
// dylib with no parseable export trie contributes nothing; stub folding
// through its symbols stays allowed, which is safe because the set only
// ever widens the never-eliminate behavior.
func exportedSymbolNames(d *model.CacheDylib) []string {
	if d.Input == nil || len(d.Input.Buffer) == 0 {
		return nil
	}
	f, err := macho.NewFile(bytes.NewReader(d.Input.Buffer))
	if err != nil {
		return nil
	}
	defer f.Close()

	exports, err := f.DyldExports()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(exports))
	for _, e := range exports {
		names = append(names, e.Name)
	}
	return names
}
