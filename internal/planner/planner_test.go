package planner

import (
	"path/filepath"
	"testing"

	"github.com/adekpp/cli-image-compressor/internal/config"
)

func TestPlanDefaultCompressedSubtree(t *testing.T) {
	opts := config.DefaultOptions()
	got := Plan("/photos/holiday/img.jpg", "/photos", opts)
	want := filepath.Join("/photos", "compressed", "holiday", "img.jpg")
	if got != want {
		t.Errorf("Plan = %q, want %q", got, want)
	}
}

func TestPlanDefaultAtBaseRoot(t *testing.T) {
	opts := config.DefaultOptions()
	got := Plan("/photos/img.jpg", "/photos", opts)
	want := filepath.Join("/photos", "compressed", "img.jpg")
	if got != want {
		t.Errorf("Plan = %q, want %q", got, want)
	}
}

func TestPlanExplicitOutputFlat(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Output = "/out"
	got := Plan("/photos/holiday/img.jpg", "/photos", opts)
	want := filepath.Join("/out", "img.jpg")
	if got != want {
		t.Errorf("Plan = %q, want %q", got, want)
	}
}

func TestPlanExplicitOutputKeepStructure(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Output = "/out"
	opts.KeepStructure = true
	got := Plan("/photos/holiday/2024/img.jpg", "/photos", opts)
	want := filepath.Join("/out", "holiday", "2024", "img.jpg")
	if got != want {
		t.Errorf("Plan = %q, want %q", got, want)
	}
}

func TestPlanFormatOverrideChangesExtension(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Format = "webp"
	got := Plan("/photos/img.jpg", "/photos", opts)
	want := filepath.Join("/photos", "compressed", "img.webp")
	if got != want {
		t.Errorf("Plan = %q, want %q", got, want)
	}
}

func TestPlanJpegOverrideUsesJpgExtension(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Format = "jpeg"
	got := Plan("/photos/img.png", "/photos", opts)
	want := filepath.Join("/photos", "compressed", "img.jpg")
	if got != want {
		t.Errorf("Plan = %q, want %q", got, want)
	}
}

func TestPlanNoFormatKeepsOriginalExtension(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Output = "/out"
	got := Plan("/photos/img.PNG", "/photos", opts)
	want := filepath.Join("/out", "img.PNG")
	if got != want {
		t.Errorf("Plan = %q, want %q", got, want)
	}
}

func TestPlanInputOutsideBaseFlattens(t *testing.T) {
	opts := config.DefaultOptions()
	opts.Output = "/out"
	opts.KeepStructure = true
	got := Plan("/elsewhere/img.jpg", "/photos", opts)
	want := filepath.Join("/out", "img.jpg")
	if got != want {
		t.Errorf("Plan = %q, want %q", got, want)
	}
}
