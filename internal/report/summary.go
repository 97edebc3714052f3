// Package report aggregates a batch ledger into summary statistics and
// renders per-file and summary lines for the CLI.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adekpp/cli-image-compressor/internal/compressor"
	"github.com/adekpp/cli-image-compressor/internal/errs"
)

// Summary holds the aggregate totals for one batch run.
type Summary struct {
	CompressedCount int
	CopiedCount     int
	SkippedCount    int
	FailedCount     int

	TotalOriginalBytes int64
	TotalFinalBytes    int64
	TotalSavedBytes    int64
	SavedPercent       float64
}

// Summarize consumes the ledger once. Only Compressed and Copied
// outcomes contribute to the byte totals; Copied contributes equal
// original and final bytes.
func Summarize(ledger []compressor.Outcome) Summary {
	var s Summary
	for _, oc := range ledger {
		switch oc.Status {
		case compressor.StatusCompressed:
			s.CompressedCount++
			s.TotalOriginalBytes += oc.OriginalBytes
			s.TotalFinalBytes += oc.CompressedBytes
		case compressor.StatusCopied:
			s.CopiedCount++
			s.TotalOriginalBytes += oc.OriginalBytes
			s.TotalFinalBytes += oc.CompressedBytes
		case compressor.StatusSkipped:
			s.SkippedCount++
		case compressor.StatusFailed:
			s.FailedCount++
		}
	}
	s.TotalSavedBytes = s.TotalOriginalBytes - s.TotalFinalBytes
	s.SavedPercent = compressor.SavedPercent(s.TotalOriginalBytes, s.TotalFinalBytes)
	return s
}

// RenderOutcome returns a one-line description of a single outcome.
// Failures show a short classified message; the underlying error text
// appears only in verbose mode.
func RenderOutcome(oc compressor.Outcome, verbose bool) string {
	name := filepath.Base(oc.Input)
	switch oc.Status {
	case compressor.StatusCompressed:
		return fmt.Sprintf("%s: %s -> %s (saved %.1f%%)",
			name, FormatBytes(oc.OriginalBytes), FormatBytes(oc.CompressedBytes), oc.SavedPercent)
	case compressor.StatusCopied:
		return fmt.Sprintf("%s: %s (%s)", name, FormatBytes(oc.OriginalBytes), oc.Reason)
	case compressor.StatusSkipped:
		return fmt.Sprintf("%s: skipped (%s)", name, oc.Reason)
	case compressor.StatusFailed:
		if verbose && oc.Err != nil {
			return fmt.Sprintf("%s: failed: %v", name, oc.Err)
		}
		return fmt.Sprintf("%s: failed: %s", name, errs.UserMessage(oc.Err))
	default:
		return name
	}
}

// RenderSummary returns the final summary block.
func RenderSummary(s Summary) string {
	var b strings.Builder
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "  Compressed: %d\n", s.CompressedCount)
	fmt.Fprintf(&b, "  Copied:     %d\n", s.CopiedCount)
	fmt.Fprintf(&b, "  Skipped:    %d\n", s.SkippedCount)
	fmt.Fprintf(&b, "  Failed:     %d\n", s.FailedCount)
	fmt.Fprintf(&b, "  Original:   %s\n", FormatBytes(s.TotalOriginalBytes))
	fmt.Fprintf(&b, "  Final:      %s\n", FormatBytes(s.TotalFinalBytes))
	fmt.Fprintf(&b, "  Saved:      %s (%.1f%%)", FormatBytes(s.TotalSavedBytes), s.SavedPercent)
	return b.String()
}
