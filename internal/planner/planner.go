// Package planner computes output locations for compressed files. It is
// purely computational; directory creation is the writer's job.
package planner

import (
	"path/filepath"
	"strings"

	"github.com/adekpp/cli-image-compressor/internal/config"
)

// Plan returns the output path for inputPath given the base directory
// of the batch and the resolved options.
//
// Destination directory resolution:
//   - explicit output dir, flat layout by default;
//   - explicit output dir joined with the input's relative directory
//     when the structure is being preserved;
//   - otherwise a "compressed" subtree under the base directory.
//
// The file keeps its base name; the extension changes only when a
// format override is set.
func Plan(inputPath, baseDir string, opts config.Options) string {
	ext := filepath.Ext(inputPath)
	if opts.Format != "" {
		ext = config.ExtensionFor(opts.Format)
	}
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + ext

	relDir := relativeDir(inputPath, baseDir)

	var dir string
	switch {
	case opts.Output != "" && opts.KeepStructure:
		dir = filepath.Join(opts.Output, relDir)
	case opts.Output != "":
		dir = opts.Output
	default:
		dir = filepath.Join(baseDir, "compressed", relDir)
	}

	return filepath.Join(dir, name)
}

// relativeDir returns the directory of inputPath relative to baseDir,
// or "" when the input does not sit under the base.
func relativeDir(inputPath, baseDir string) string {
	rel, err := filepath.Rel(baseDir, filepath.Dir(inputPath))
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	if rel == "." {
		return ""
	}
	return rel
}
