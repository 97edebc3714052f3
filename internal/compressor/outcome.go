package compressor

import (
	"github.com/adekpp/cli-image-compressor/internal/errs"
)

// Status tags the variant of an Outcome. Every candidate produces
// exactly one outcome with exactly one status; consumers switch over
// all four values.
type Status int

const (
	StatusCompressed Status = iota
	StatusCopied
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompressed:
		return "compressed"
	case StatusCopied:
		return "copied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of processing one candidate.
//
//   - StatusCompressed: output persisted and strictly smaller.
//   - StatusCopied: no size win; original bytes kept verbatim at the
//     output (or the source left untouched for in-place runs).
//   - StatusSkipped: excluded by a size filter or by dry run; Reason
//     says which.
//   - StatusFailed: an I/O or codec error; Err carries the cause and
//     ErrKind its classification.
type Outcome struct {
	Status Status
	Input  string
	Output string

	OriginalBytes   int64
	CompressedBytes int64
	SavedBytes      int64
	SavedPercent    float64

	Reason  string
	ErrKind errs.Kind
	Err     error
}

// SkippedReasonDryRun is the reason attached to dry-run outcomes.
const SkippedReasonDryRun = "would compress"

// ReasonNoBenefit is attached to Copied outcomes.
const ReasonNoBenefit = "no compression benefit"
