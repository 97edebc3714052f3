package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"

	"github.com/adekpp/cli-image-compressor/internal/config"
	"github.com/adekpp/cli-image-compressor/internal/errs"
)

// ImagingCodec implements Codec on top of disintegration/imaging for
// JPEG/PNG/GIF and the gen2brain encoders for WebP/AVIF.
type ImagingCodec struct{}

func NewImagingCodec() *ImagingCodec {
	return &ImagingCodec{}
}

// Probe reads the image header only.
func (c *ImagingCodec) Probe(path string) (SourceInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return SourceInfo{}, errs.Wrap(errs.Classify(err), "probe image", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return SourceInfo{}, errs.Wrap(errs.Codec, "probe image", path, err)
	}
	return SourceInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: config.NormalizeFormat(format),
	}, nil
}

// EncodeFile runs the full pipeline and returns the encoded bytes.
func (c *ImagingCodec) EncodeFile(path string, spec PipelineSpec) ([]byte, error) {
	var openOpts []imaging.DecodeOption
	if spec.AutoRotate {
		openOpts = append(openOpts, imaging.AutoOrientation(true))
	}
	img, err := imaging.Open(path, openOpts...)
	if err != nil {
		return nil, errs.Wrap(errs.Codec, "decode image", path, err)
	}

	img = fitWithin(img, spec.MaxWidth, spec.MaxHeight)

	var buf bytes.Buffer
	switch config.NormalizeFormat(spec.Format) {
	case "jpeg":
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(spec.Quality))
	case "png":
		err = encodePNG(&buf, img, spec.Optimize)
	case "gif":
		err = imaging.Encode(&buf, img, imaging.GIF)
	case "webp":
		err = webp.Encode(&buf, img, webp.Options{
			Quality:  spec.Quality,
			Method:   spec.Effort,
			Lossless: spec.Lossless,
		})
	case "avif":
		err = avif.Encode(&buf, img, avif.Options{
			Quality: spec.Quality,
			Speed:   speedFromEffort(spec.Effort),
		})
	default:
		return nil, errs.New(errs.Codec, "encode image", path,
			fmt.Sprintf("unsupported output format %q", spec.Format))
	}
	if err != nil {
		return nil, errs.Wrap(errs.Codec, "encode image", path, err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales the image down to fit the bounding box, preserving
// aspect ratio and never upscaling. A zero constraint means unbounded.
func fitWithin(img image.Image, maxWidth, maxHeight int) image.Image {
	if maxWidth <= 0 && maxHeight <= 0 {
		return img
	}
	bounds := img.Bounds()
	w, h := maxWidth, maxHeight
	if w <= 0 {
		w = bounds.Dx()
	}
	if h <= 0 {
		h = bounds.Dy()
	}
	if bounds.Dx() <= w && bounds.Dy() <= h {
		return img
	}
	return imaging.Fit(img, w, h, imaging.Lanczos)
}

// encodePNG writes a PNG at best compression when optimizing, reducing
// to a palette first when the image has few enough distinct colors.
func encodePNG(buf *bytes.Buffer, img image.Image, optimize bool) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if optimize {
		enc.CompressionLevel = png.BestCompression
		if p := toPaletted(img); p != nil {
			img = p
		}
	}
	return enc.Encode(buf, img)
}

// toPaletted converts img to an indexed image when it holds at most 256
// distinct colors, otherwise returns nil.
func toPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	seen := make(map[color.RGBA]uint8)
	var palette color.Palette

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			c := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
			if _, ok := seen[c]; !ok {
				if len(palette) >= 256 {
					return nil
				}
				seen[c] = uint8(len(palette))
				palette = append(palette, c)
			}
		}
	}

	p := image.NewPaletted(bounds, palette)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			c := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
			p.SetColorIndex(x, y, seen[c])
		}
	}
	return p
}

// speedFromEffort maps an encode effort level to the AVIF speed scale,
// where lower speed means more effort.
func speedFromEffort(effort int) int {
	speed := 10 - effort
	if speed < 0 {
		speed = 0
	}
	if speed > 10 {
		speed = 10
	}
	return speed
}
