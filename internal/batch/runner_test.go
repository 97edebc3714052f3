package batch

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/adekpp/cli-image-compressor/internal/codec"
	"github.com/adekpp/cli-image-compressor/internal/compressor"
	"github.com/adekpp/cli-image-compressor/internal/config"
	"github.com/adekpp/cli-image-compressor/internal/errs"
)

// stubCodec halves the input size so batch runs produce a predictable
// compressed outcome for every processed candidate.
type stubCodec struct{}

func (stubCodec) Probe(path string) (codec.SourceInfo, error) {
	return codec.SourceInfo{Width: 100, Height: 100, Format: "jpeg"}, nil
}

func (stubCodec) EncodeFile(path string, spec codec.PipelineSpec) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return bytes.Repeat([]byte{0x01}, int(info.Size()/2)), nil
}

func newRunner(opts config.Options) *Runner {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Runner{
		Opts: opts,
		Comp: compressor.New(stubCodec{}, opts, log),
		Log:  log,
	}
}

func TestRunSizeFilters(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.jpg")
	mid := filepath.Join(dir, "mid.jpg")
	big := filepath.Join(dir, "big.jpg")
	touch(t, small, 10*1024)
	touch(t, mid, 150*1024)
	touch(t, big, 500*1024)

	opts := config.DefaultOptions()
	opts.MinSizeKB = 100
	opts.Output = filepath.Join(dir, "out")

	candidates := []Candidate{{Path: small}, {Path: mid}, {Path: big}}
	ledger := newRunner(opts).Run(candidates, dir)

	if len(ledger) != 3 {
		t.Fatalf("ledger length = %d, want 3", len(ledger))
	}
	if ledger[0].Status != compressor.StatusSkipped {
		t.Errorf("10 KB file: status = %v, want skipped", ledger[0].Status)
	}
	if ledger[0].Reason != "smaller than 100 KB" {
		t.Errorf("skip reason = %q, want %q", ledger[0].Reason, "smaller than 100 KB")
	}
	if ledger[1].Status != compressor.StatusCompressed {
		t.Errorf("150 KB file: status = %v, want compressed", ledger[1].Status)
	}
	if ledger[2].Status != compressor.StatusCompressed {
		t.Errorf("500 KB file: status = %v, want compressed", ledger[2].Status)
	}
}

func TestRunMaxSizeFilter(t *testing.T) {
	dir := t.TempDir()
	atMax := filepath.Join(dir, "at-max.jpg")
	over := filepath.Join(dir, "over.jpg")
	touch(t, atMax, 200*1024)
	touch(t, over, 200*1024+1)

	opts := config.DefaultOptions()
	opts.MaxSizeKB = 200
	opts.Output = filepath.Join(dir, "out")

	ledger := newRunner(opts).Run([]Candidate{{Path: atMax}, {Path: over}}, dir)

	if ledger[0].Status != compressor.StatusCompressed {
		t.Errorf("file exactly at the max: status = %v, want compressed", ledger[0].Status)
	}
	if ledger[1].Status != compressor.StatusSkipped {
		t.Errorf("file over the max: status = %v, want skipped", ledger[1].Status)
	}
	if ledger[1].Reason != "larger than 200 KB" {
		t.Errorf("skip reason = %q, want %q", ledger[1].Reason, "larger than 200 KB")
	}
}

func TestRunMinBoundaryNotSkipped(t *testing.T) {
	dir := t.TempDir()
	atMin := filepath.Join(dir, "at-min.jpg")
	touch(t, atMin, 100*1024)

	opts := config.DefaultOptions()
	opts.MinSizeKB = 100
	opts.Output = filepath.Join(dir, "out")

	ledger := newRunner(opts).Run([]Candidate{{Path: atMin}}, dir)
	if ledger[0].Status != compressor.StatusCompressed {
		t.Errorf("file exactly at the min: status = %v, want compressed", ledger[0].Status)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.jpg")
	touch(t, a, 50*1024)
	touch(t, b, 60*1024)

	opts := config.DefaultOptions()
	opts.DryRun = true

	ledger := newRunner(opts).Run([]Candidate{{Path: a}, {Path: b}}, dir)

	for _, oc := range ledger {
		if oc.Status != compressor.StatusSkipped {
			t.Errorf("%s: status = %v, want skipped", oc.Input, oc.Status)
		}
		if oc.Reason != compressor.SkippedReasonDryRun {
			t.Errorf("%s: reason = %q, want %q", oc.Input, oc.Reason, compressor.SkippedReasonDryRun)
		}
		if oc.OriginalBytes == 0 {
			t.Errorf("%s: dry run should report the file size", oc.Input)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "compressed")); !os.IsNotExist(err) {
		t.Error("dry run must not create output directories")
	}
}

func TestRunMissingFileContinues(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.jpg")
	touch(t, ok, 50*1024)

	opts := config.DefaultOptions()
	opts.Output = filepath.Join(dir, "out")

	candidates := []Candidate{
		{Path: filepath.Join(dir, "gone.jpg")},
		{Path: ok},
	}
	ledger := newRunner(opts).Run(candidates, dir)

	if len(ledger) != 2 {
		t.Fatalf("ledger length = %d, want 2", len(ledger))
	}
	if ledger[0].Status != compressor.StatusFailed {
		t.Errorf("missing file: status = %v, want failed", ledger[0].Status)
	}
	if ledger[0].ErrKind != errs.NotFound {
		t.Errorf("missing file: kind = %v, want not_found", ledger[0].ErrKind)
	}
	if ledger[1].Status != compressor.StatusCompressed {
		t.Errorf("run must continue past a failure, got %v", ledger[1].Status)
	}
}

func TestRunLedgerOrderAndCallback(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "one.jpg"),
		filepath.Join(dir, "two.jpg"),
		filepath.Join(dir, "three.jpg"),
	}
	for _, p := range paths {
		touch(t, p, 40*1024)
	}

	opts := config.DefaultOptions()
	opts.Output = filepath.Join(dir, "out")

	var seen []string
	r := newRunner(opts)
	r.OnOutcome = func(index, total int, oc compressor.Outcome) {
		if total != 3 {
			t.Errorf("callback total = %d, want 3", total)
		}
		seen = append(seen, oc.Input)
	}

	candidates := []Candidate{{Path: paths[0]}, {Path: paths[1]}, {Path: paths[2]}}
	ledger := r.Run(candidates, dir)

	for i := range paths {
		if ledger[i].Input != paths[i] {
			t.Errorf("ledger[%d] = %q, want %q", i, ledger[i].Input, paths[i])
		}
		if seen[i] != paths[i] {
			t.Errorf("callback[%d] = %q, want %q", i, seen[i], paths[i])
		}
	}
}

func TestPlanDestinationReplace(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Replace = true
	r := newRunner(opts)

	dest := r.planDestination("/pics/a.jpg", "/pics", false)
	if dest != "/pics/a.jpg" {
		t.Errorf("replace destination = %q, want the input itself", dest)
	}
}

func TestPlanDestinationSingleFileOutput(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Output = "/tmp/result.webp"
	r := newRunner(opts)

	if dest := r.planDestination("/pics/a.jpg", "/pics", true); dest != "/tmp/result.webp" {
		t.Errorf("single-file destination = %q, want the literal output", dest)
	}

	// A multi-candidate batch treats the same output as a directory.
	if dest := r.planDestination("/pics/a.jpg", "/pics", false); dest == "/tmp/result.webp" {
		t.Error("multi-file batch must not reuse one literal output file")
	}
}
