package codec

import (
	"fmt"
	"os/exec"

	"github.com/barasher/go-exiftool"
)

// runExiftool invokes the exiftool binary; swapped out in tests.
var runExiftool = func(args ...string) error {
	return exec.Command("exiftool", args...).Run()
}

// CopyMetadata copies all tags from src onto dst using the exiftool
// binary. When clearOrientation is set the Orientation tag is nulled
// afterwards, so viewers do not rotate pixels that were already rotated
// during encoding.
func CopyMetadata(src, dst string, clearOrientation bool) error {
	if err := runExiftool("-TagsFromFile", src, "-overwrite_original", dst); err != nil {
		return fmt.Errorf("exiftool copy failed: %w", err)
	}
	if clearOrientation {
		if err := runExiftool("-overwrite_original", "-Orientation=", dst); err != nil {
			return fmt.Errorf("exiftool clear orientation failed: %w", err)
		}
	}
	return nil
}

// CopyColorProfile copies only the ICC profile from src onto dst. The
// re-encode drops every embedded tag, and color rendition has to
// survive even when the rest of the metadata is stripped.
func CopyColorProfile(src, dst string) error {
	if err := runExiftool("-TagsFromFile", src, "-icc_profile", "-overwrite_original", dst); err != nil {
		return fmt.Errorf("exiftool profile copy failed: %w", err)
	}
	return nil
}

// ReadTags extracts selected metadata fields from a file via exiftool.
// Missing tool or unreadable metadata yields an empty map, never an
// error, since metadata display is always best effort.
func ReadTags(path string, tags ...string) map[string]string {
	out := make(map[string]string)

	et, err := exiftool.NewExiftool()
	if err != nil {
		return out
	}
	defer et.Close()

	files := et.ExtractMetadata(path)
	if len(files) == 0 || files[0].Err != nil {
		return out
	}
	for _, tag := range tags {
		if v, err := files[0].GetString(tag); err == nil {
			out[tag] = v
		}
	}
	return out
}
