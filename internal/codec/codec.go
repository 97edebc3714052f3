package codec

// SourceInfo describes a decodable source image.
type SourceInfo struct {
	Width  int
	Height int
	Format string // normalized, e.g. "jpeg", "png", "webp"
}

// PipelineSpec is the full transformation handed to a codec for one
// encode: orientation fix, bounding-box resize and the per-format
// encode parameters. It is built once per file by the compressor.
type PipelineSpec struct {
	Format   string // effective output format, normalized
	Quality  int
	Effort   int
	Optimize bool
	Lossless bool

	AutoRotate bool
	MaxWidth   int
	MaxHeight  int
}

// Codec is the boundary to the underlying image library. The compressor
// only ever sees re-encoded bytes, so it can compare sizes before
// deciding whether to persist anything.
type Codec interface {
	// Probe returns dimensions and the detected format without decoding
	// the full pixel data.
	Probe(path string) (SourceInfo, error)

	// EncodeFile decodes the source, applies the pipeline and returns
	// the encoded bytes fully in memory.
	EncodeFile(path string, spec PipelineSpec) ([]byte, error)
}
