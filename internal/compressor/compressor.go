// Package compressor performs the single-file compress operation: it
// feeds one input through the codec pipeline and applies the
// copy-if-not-smaller and safe in-place replace policies.
package compressor

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adekpp/cli-image-compressor/internal/codec"
	"github.com/adekpp/cli-image-compressor/internal/config"
	"github.com/adekpp/cli-image-compressor/internal/errs"
	"github.com/adekpp/cli-image-compressor/internal/logger"
)

// FileCompressor compresses exactly one input file per call.
type FileCompressor struct {
	codec codec.Codec
	opts  config.Options
	log   *logrus.Logger

	// rename and copyProfile are swapped out in tests to exercise the
	// replace and metadata policies.
	rename      func(oldpath, newpath string) error
	copyProfile func(src, dst string) error
}

func New(c codec.Codec, opts config.Options, log *logrus.Logger) *FileCompressor {
	return &FileCompressor{
		codec:       c,
		opts:        opts,
		log:         log,
		rename:      os.Rename,
		copyProfile: codec.CopyColorProfile,
	}
}

// Compress runs the full pipeline for inputPath. When outputPath is
// empty a "<name>_compressed<ext>" sibling is used. The returned
// Outcome is always one of the four variants; errors never escape.
func (f *FileCompressor) Compress(inputPath, outputPath string) Outcome {
	info, err := os.Stat(inputPath)
	if err != nil {
		return f.failed(inputPath, errs.Wrap(errs.Classify(err), "stat input", inputPath, err))
	}
	if info.IsDir() {
		return f.failed(inputPath, errs.New(errs.IsDirectory, "stat input", inputPath, "expected a file"))
	}
	originalBytes := info.Size()

	if outputPath == "" {
		ext := filepath.Ext(inputPath)
		base := strings.TrimSuffix(filepath.Base(inputPath), ext)
		outputPath = filepath.Join(filepath.Dir(inputPath), base+"_compressed"+ext)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return f.failed(inputPath, errs.Wrap(errs.IO, "create output dir", outputPath, err))
	}

	src, err := f.codec.Probe(inputPath)
	if err != nil {
		return f.failed(inputPath, err)
	}

	spec := f.buildSpec(src, outputPath)
	logger.WithFileOperation(f.log, inputPath, "encode").
		Debugf("pipeline: format=%s quality=%d effort=%d rotate=%v fit=%dx%d",
			spec.Format, spec.Quality, spec.Effort, spec.AutoRotate, spec.MaxWidth, spec.MaxHeight)

	data, err := f.codec.EncodeFile(inputPath, spec)
	if err != nil {
		return f.failed(inputPath, err)
	}

	compressedBytes := int64(len(data))
	saved := originalBytes - compressedBytes
	inPlace := samePath(inputPath, outputPath)

	if saved <= 0 {
		if inPlace {
			// No benefit, nothing to do: the source stays as it is.
			return f.copied(inputPath, inputPath, originalBytes)
		}
		if err := copyFile(inputPath, outputPath); err != nil {
			return f.failed(inputPath, errs.Wrap(errs.IO, "copy original", outputPath, err))
		}
		return f.copied(inputPath, outputPath, originalBytes)
	}

	if inPlace {
		if err := f.replaceInPlace(inputPath, data); err != nil {
			return f.failed(inputPath, err)
		}
	} else {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return f.failed(inputPath, errs.Wrap(errs.IO, "write output", outputPath, err))
		}
		f.applyMetadata(inputPath, outputPath)
	}

	return Outcome{
		Status:          StatusCompressed,
		Input:           inputPath,
		Output:          outputPath,
		OriginalBytes:   originalBytes,
		CompressedBytes: compressedBytes,
		SavedBytes:      saved,
		SavedPercent:    SavedPercent(originalBytes, compressedBytes),
	}
}

// buildSpec resolves the effective format and per-format encode
// parameters for one file. Priority for the format: explicit option,
// then the output extension, then the source format.
func (f *FileCompressor) buildSpec(src codec.SourceInfo, outputPath string) codec.PipelineSpec {
	format := src.Format
	if ext := config.NormalizeFormat(filepath.Ext(outputPath)); ext != "" && knownOutput(ext) {
		format = ext
	}
	if f.opts.Format != "" {
		format = config.NormalizeFormat(f.opts.Format)
	}

	quality := f.opts.QualityFor(format)
	spec := codec.PipelineSpec{
		Format:     format,
		Quality:    quality,
		Optimize:   f.opts.Optimize,
		AutoRotate: f.opts.Rotate,
		MaxWidth:   f.opts.Width,
		MaxHeight:  f.opts.Height,
	}

	switch format {
	case "webp":
		spec.Effort = 4
		if f.opts.Optimize {
			spec.Effort = 6
		}
		spec.Lossless = quality == 100
	case "avif":
		spec.Effort = 5
		if f.opts.Optimize {
			spec.Effort = 9
		}
		spec.Quality = f.opts.Quality
	case "png":
		spec.Effort = 6
		if f.opts.Optimize {
			spec.Effort = 9
		}
	}
	return spec
}

// replaceInPlace writes data over path via a sibling temporary file.
// The original is deleted before the rename because renaming over an
// open or locked file fails on some platforms. If the rename fails the
// temp file is removed and the error propagates; in the narrow window
// after the delete this can lose the original, which is surfaced to
// the user rather than hidden.
func (f *FileCompressor) replaceInPlace(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errs.Wrap(errs.IO, "write temp file", tmp, err)
	}

	f.applyMetadata(path, tmp)

	if err := os.Remove(path); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.IO, "remove original", path, err)
	}
	if err := f.rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.IO, "replace original", path, err)
	}
	return nil
}

// applyMetadata runs the post-encode metadata policy on dst: a full
// tag copy when metadata is kept, the ICC color profile alone when it
// is stripped. Both degrade to a warning when exiftool is unavailable.
func (f *FileCompressor) applyMetadata(src, dst string) {
	if f.opts.KeepMetadata {
		if err := codec.CopyMetadata(src, dst, f.opts.Rotate); err != nil {
			logger.WithFile(f.log, dst).Warnf("metadata not preserved: %v", err)
		}
		return
	}
	if err := f.copyProfile(src, dst); err != nil {
		logger.WithFile(f.log, dst).Warnf("color profile not preserved: %v", err)
	}
}

func (f *FileCompressor) copied(input, output string, originalBytes int64) Outcome {
	return Outcome{
		Status:          StatusCopied,
		Input:           input,
		Output:          output,
		OriginalBytes:   originalBytes,
		CompressedBytes: originalBytes,
		Reason:          ReasonNoBenefit,
	}
}

func (f *FileCompressor) failed(input string, err error) Outcome {
	logger.WithFile(f.log, input).Debugf("compression failed: %v", err)
	return Outcome{
		Status:  StatusFailed,
		Input:   input,
		ErrKind: errs.KindOf(err),
		Err:     err,
	}
}

// SavedPercent returns the percentage saved, rounded to one decimal.
func SavedPercent(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	pct := float64(original-compressed) / float64(original) * 100
	return math.Round(pct*10) / 10
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func knownOutput(format string) bool {
	switch format {
	case "jpeg", "png", "webp", "avif", "gif":
		return true
	}
	return false
}

// copyFile copies src to dst byte for byte and syncs the destination.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
