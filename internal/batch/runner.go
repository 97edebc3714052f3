package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/adekpp/cli-image-compressor/internal/compressor"
	"github.com/adekpp/cli-image-compressor/internal/config"
	"github.com/adekpp/cli-image-compressor/internal/errs"
	"github.com/adekpp/cli-image-compressor/internal/logger"
	"github.com/adekpp/cli-image-compressor/internal/planner"
)

// Runner drives one batch: size filtering, dry-run handling and
// delegation to the single-file compressor, strictly one candidate at
// a time in discovery order.
type Runner struct {
	Opts config.Options
	Comp *compressor.FileCompressor
	Log  *logrus.Logger

	// OnOutcome, when set, is called after each candidate resolves.
	// It feeds CLI progress output and the web interface.
	OnOutcome func(index, total int, oc compressor.Outcome)
}

// Run processes every candidate and returns the complete ledger. A
// single failing or skipped candidate never halts the run.
func (r *Runner) Run(candidates []Candidate, baseDir string) []compressor.Outcome {
	ledger := make([]compressor.Outcome, 0, len(candidates))

	for i, cand := range candidates {
		oc := r.processOne(cand, baseDir, len(candidates) == 1)
		ledger = append(ledger, oc)

		logger.WithFileOperation(r.Log, cand.Path, "batch").
			Infof("%s (%d/%d)", oc.Status, i+1, len(candidates))
		if r.OnOutcome != nil {
			r.OnOutcome(i, len(candidates), oc)
		}
	}

	return ledger
}

func (r *Runner) processOne(cand Candidate, baseDir string, single bool) compressor.Outcome {
	info, err := os.Stat(cand.Path)
	if err != nil {
		wrapped := errs.Wrap(errs.Classify(err), "stat candidate", cand.Path, err)
		return compressor.Outcome{
			Status:  compressor.StatusFailed,
			Input:   cand.Path,
			ErrKind: errs.KindOf(wrapped),
			Err:     wrapped,
		}
	}
	size := info.Size()
	sizeKB := float64(size) / 1024

	if r.Opts.MinSizeKB > 0 && sizeKB < float64(r.Opts.MinSizeKB) {
		return skipped(cand.Path, size, fmt.Sprintf("smaller than %d KB", r.Opts.MinSizeKB))
	}
	if r.Opts.MaxSizeKB > 0 && sizeKB > float64(r.Opts.MaxSizeKB) {
		return skipped(cand.Path, size, fmt.Sprintf("larger than %d KB", r.Opts.MaxSizeKB))
	}

	if r.Opts.DryRun {
		return skipped(cand.Path, size, compressor.SkippedReasonDryRun)
	}

	dest := r.planDestination(cand.Path, baseDir, single)
	return r.Comp.Compress(cand.Path, dest)
}

// planDestination picks the output path for one candidate. In-place
// runs always target the source itself; an output option that names a
// single image file is honored verbatim for single-candidate batches.
func (r *Runner) planDestination(inputPath, baseDir string, single bool) string {
	if r.Opts.Replace {
		return inputPath
	}
	if single && r.Opts.Output != "" && IsSupported(r.Opts.Output) && !r.Opts.KeepStructure {
		return r.Opts.Output
	}
	if baseDir == "" {
		baseDir = filepath.Dir(inputPath)
	}
	return planner.Plan(inputPath, baseDir, r.Opts)
}

func skipped(path string, size int64, reason string) compressor.Outcome {
	return compressor.Outcome{
		Status:        compressor.StatusSkipped,
		Input:         path,
		OriginalBytes: size,
		Reason:        reason,
	}
}
