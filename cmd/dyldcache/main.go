// Command dyldcache is a thin front-end over cache.Builder: it reads a
// directory of dylibs from disk, drives one build, and writes the
// resulting sub-cache files next to an output prefix. The CLI itself is
// deliberately thin; this file exists only to make the builder runnable
// from a shell.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/cachebuild/dyldcache/cache"
	"github.com/cachebuild/dyldcache/cache/config"
	"github.com/cachebuild/dyldcache/cache/registry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "dyldcache:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("dyldcache", flag.ExitOnError)
	var (
		inputDir   = fs.String("input-dir", "", "directory of dylibs/executables to build a cache from")
		output     = fs.String("output", "dyld_shared_cache", "output path prefix for emitted sub-cache files")
		platform   = fs.String("platform", "macOS", "target platform: macOS, iOS, iOSMac, driverKit, tvOS, watchOS")
		universal  = fs.Bool("universal", false, "emit a universal build (main + stubs, development + customer)")
		verbose    = fs.Bool("v", false, "verbose logging")
		printStats = fs.Bool("stats", false, "print per-phase statistics")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inputDir == "" {
		return fmt.Errorf("-input-dir is required")
	}

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	cfg := config.Default()
	cfg.PrintStats = *printStats
	p, err := parsePlatform(*platform)
	if err != nil {
		return err
	}
	cfg.Platform = p
	if *universal {
		cfg.Kind = config.KindUniversal
		cfg.LayoutMode = config.LayoutLargeUniversal
	}

	b := cache.New(cfg, entry)
	defer b.Close()

	if err := addInputs(b, *inputDir); err != nil {
		return err
	}

	if err := b.Build(); err != nil {
		return fmt.Errorf("build: %w", err)
	}

	b.ForEachWarning(func(w registry.Warning) {
		fmt.Fprintln(os.Stderr, w.String())
	})

	return writeResults(b, *output)
}

// addInputs walks dir non-recursively, feeding every regular file to the
// builder as a candidate input; files that do not parse as a Mach-O are
// recorded with an error by InputRegistry.AddFile and never reach the
// cache set.
func addInputs(b *cache.Builder, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read input dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		buf, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := b.AddFile(buf, info.Size(), path, inodeOf(info), info.ModTime()); err != nil {
			continue
		}
		n++
	}
	if n == 0 {
		return fmt.Errorf("no usable input files found in %s", dir)
	}
	return nil
}

// writeResults writes every sub-cache's buffer to outPrefix plus its
// FileSuffix, the cache's published naming scheme
// (".development", ".01"..".NN", ".symbols", stubs variants), plus the
// text and JSON map side files.
func writeResults(b *cache.Builder, outPrefix string) error {
	res := b.GetResults()
	for _, sc := range res.Arena.AllSubCaches() {
		name := outPrefix + sc.FileSuffix
		if err := os.WriteFile(name, sc.Buffer(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := os.WriteFile(outPrefix+".map", []byte(b.MapFile()), 0o644); err != nil {
		return fmt.Errorf("write map file: %w", err)
	}
	jm, err := b.JSONMap()
	if err != nil {
		return fmt.Errorf("render json map: %w", err)
	}
	if err := os.WriteFile(outPrefix+".map.json", jm, 0o644); err != nil {
		return fmt.Errorf("write json map: %w", err)
	}
	return nil
}

// inodeOf extracts the platform inode number InputRegistry records
// alongside each input file, falling back to 0 on platforms where the
// underlying FileInfo.Sys() isn't a *syscall.Stat_t.
func inodeOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ino
	}
	return 0
}

func parsePlatform(s string) (config.Platform, error) {
	switch strings.ToLower(s) {
	case "macos":
		return config.PlatformMacOS, nil
	case "ios":
		return config.PlatformIOS, nil
	case "iosmac":
		return config.PlatformIOSMac, nil
	case "driverkit":
		return config.PlatformDriverKit, nil
	case "tvos":
		return config.PlatformTVOS, nil
	case "watchos":
		return config.PlatformWatchOS, nil
	default:
		return 0, fmt.Errorf("unrecognized -platform %q", s)
	}
}
