// Package stats implements the read-only analysis command: it
// enumerates matching images and reports sizes, dimensions and formats
// without writing anything.
package stats

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"

	"github.com/adekpp/cli-image-compressor/internal/batch"
	"github.com/adekpp/cli-image-compressor/internal/codec"
	"github.com/adekpp/cli-image-compressor/internal/logger"
	"github.com/adekpp/cli-image-compressor/internal/report"
)

// estimatedSavingsRatio is the heuristic share of the total size that a
// default-quality compression run is expected to reclaim.
const estimatedSavingsRatio = 0.30

// FileStat describes one analyzed image.
type FileStat struct {
	Path    string
	Bytes   int64
	Width   int
	Height  int
	Format  string
	TakenAt *time.Time
	Camera  string
}

// Report is the aggregate of one analysis pass.
type Report struct {
	Files            []FileStat
	TotalBytes       int64
	EstimatedSavings int64
}

// Analyzer collects image statistics for a path.
type Analyzer struct {
	Codec codec.Codec
	Log   *logrus.Logger
}

// Analyze resolves the path like a batch would and probes every
// candidate. Unreadable files are logged and left out rather than
// failing the analysis.
func (a *Analyzer) Analyze(path string) (Report, error) {
	candidates, _, err := batch.Discover(path)
	if err != nil {
		return Report{}, err
	}

	var rep Report
	for _, cand := range candidates {
		info, err := a.Codec.Probe(cand.Path)
		if err != nil {
			logger.WithFile(a.Log, cand.Path).Warnf("not analyzable: %v", err)
			continue
		}

		fs := FileStat{
			Path:   cand.Path,
			Bytes:  cand.Size,
			Width:  info.Width,
			Height: info.Height,
			Format: info.Format,
		}
		fs.TakenAt = takenAt(cand.Path)
		if tags := codec.ReadTags(cand.Path, "Model"); tags["Model"] != "" {
			fs.Camera = tags["Model"]
		}

		rep.Files = append(rep.Files, fs)
		rep.TotalBytes += cand.Size
	}

	rep.EstimatedSavings = int64(float64(rep.TotalBytes) * estimatedSavingsRatio)
	return rep, nil
}

// takenAt reads the EXIF capture date, or nil when unavailable.
func takenAt(path string) *time.Time {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}
	if tm, err := x.DateTime(); err == nil {
		return &tm
	}
	return nil
}

// Render returns the human-readable analysis output.
func (r Report) Render() string {
	var b strings.Builder
	for _, fs := range r.Files {
		fmt.Fprintf(&b, "%s  %s  %dx%d  %s", fs.Path, report.FormatBytes(fs.Bytes), fs.Width, fs.Height, fs.Format)
		if fs.TakenAt != nil {
			fmt.Fprintf(&b, "  %s", fs.TakenAt.Format("2006-01-02"))
		}
		if fs.Camera != "" {
			fmt.Fprintf(&b, "  %s", fs.Camera)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nFiles: %d\n", len(r.Files))
	fmt.Fprintf(&b, "Total size: %s\n", report.FormatBytes(r.TotalBytes))
	fmt.Fprintf(&b, "Estimated savings: %s (~%.0f%%)", report.FormatBytes(r.EstimatedSavings), estimatedSavingsRatio*100)
	return b.String()
}
