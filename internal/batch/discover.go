// Package batch discovers candidate files and runs them sequentially
// through the single-file compressor, accumulating the outcome ledger.
package batch

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adekpp/cli-image-compressor/internal/errs"
)

// Candidate is one discovered input file.
type Candidate struct {
	Path string
	Size int64
}

// supportedExts is the extension set picked up by directory discovery.
var supportedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".avif": true,
}

// IsSupported reports whether the path has a supported image extension.
func IsSupported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// Discover resolves an input path into candidates plus the base
// directory used for structure-preserving output planning.
//
// A directory is walked recursively for supported extensions; a literal
// file becomes a one-element list; anything else is treated as a glob
// pattern. A pattern matching nothing aborts the whole batch up front.
func Discover(path string) ([]Candidate, string, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		candidates, walkErr := walkDir(path)
		if walkErr != nil {
			return nil, "", errs.Wrap(errs.Classify(walkErr), "scan directory", path, walkErr)
		}
		return candidates, path, nil
	}
	if err == nil {
		return []Candidate{{Path: path, Size: info.Size()}}, filepath.Dir(path), nil
	}

	matches, globErr := filepath.Glob(path)
	if globErr != nil || len(matches) == 0 {
		return nil, "", errs.New(errs.NotFound, "resolve input", path, "path not found")
	}

	var candidates []Candidate
	seen := make(map[string]bool)
	for _, m := range matches {
		mi, statErr := os.Stat(m)
		if statErr != nil || mi.IsDir() || !IsSupported(m) {
			continue
		}
		clean := filepath.Clean(m)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		candidates = append(candidates, Candidate{Path: m, Size: mi.Size()})
	}
	if len(candidates) == 0 {
		return nil, "", errs.New(errs.NotFound, "resolve input", path, "path not found")
	}
	return candidates, filepath.Dir(path), nil
}

// walkDir collects supported files under root in lexical walk order,
// deduplicated on the cleaned path.
func walkDir(root string) ([]Candidate, error) {
	var candidates []Candidate
	seen := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !IsSupported(path) {
			return nil
		}
		clean := filepath.Clean(path)
		if seen[clean] {
			return nil
		}
		seen[clean] = true

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		candidates = append(candidates, Candidate{Path: path, Size: info.Size()})
		return nil
	})
	return candidates, err
}

// ReadListFile parses a newline-delimited list of paths. Blank lines
// and lines starting with '#' are ignored. Entries are not checked for
// existence here; a missing file becomes a Failed outcome during the
// run instead of aborting the batch.
func ReadListFile(path string) ([]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.Classify(err), "read list file", path, err)
	}
	defer f.Close()

	var candidates []Candidate
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		candidates = append(candidates, Candidate{Path: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.IO, "read list file", path, err)
	}
	return candidates, nil
}
