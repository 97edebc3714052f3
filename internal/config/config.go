package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/adekpp/cli-image-compressor/internal/errs"
)

// Options holds the full option set for one batch run. It is resolved
// once from defaults, config file, environment and CLI flags, validated
// eagerly and never mutated while the run is in progress.
type Options struct {
	Quality     int `mapstructure:"quality"`
	JPEGQuality int `mapstructure:"jpg_quality"`
	PNGQuality  int `mapstructure:"png_quality"`
	WebPQuality int `mapstructure:"webp_quality"`

	Format string `mapstructure:"format"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`

	Optimize     bool `mapstructure:"optimize"`
	Rotate       bool `mapstructure:"rotate"`
	KeepMetadata bool `mapstructure:"keep_metadata"`

	MinSizeKB int64 `mapstructure:"min_size"`
	MaxSizeKB int64 `mapstructure:"max_size"`

	Output        string `mapstructure:"output"`
	KeepStructure bool   `mapstructure:"keep_structure"`
	Replace       bool   `mapstructure:"replace"`
	DryRun        bool   `mapstructure:"dry_run"`

	Verbose bool `mapstructure:"verbose"`

	Logging LoggingOptions `mapstructure:"logging"`
}

// LoggingOptions contains the file logging settings.
type LoggingOptions struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultOptions returns the option set used when nothing is overridden.
func DefaultOptions() Options {
	return Options{
		Quality:  80,
		Optimize: true,
		Rotate:   true,
		Logging: LoggingOptions{
			Level:      "info",
			FilePath:   "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// knownFormats are the accepted values for the format override.
var knownFormats = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"avif": true,
	"gif":  true,
}

// Load reads the optional config file and environment overrides on top
// of the defaults. A missing config file is not an error.
func Load(configPath string) (Options, error) {
	opts := DefaultOptions()

	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.image-compressor")
		v.AddConfigPath("/etc/image-compressor")
	}

	v.SetEnvPrefix("IMAGE_COMPRESSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return opts, errs.Wrap(errs.InvalidOption, "read config", configPath, err)
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		return opts, errs.Wrap(errs.InvalidOption, "unmarshal config", configPath, err)
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// Validate checks the option set before any file is touched.
func (o *Options) Validate() error {
	if err := validQuality("quality", o.Quality); err != nil {
		return err
	}
	for name, q := range map[string]int{
		"jpg-quality":  o.JPEGQuality,
		"png-quality":  o.PNGQuality,
		"webp-quality": o.WebPQuality,
	} {
		if q != 0 {
			if err := validQuality(name, q); err != nil {
				return err
			}
		}
	}

	if o.Width < 0 || o.Height < 0 {
		return errs.New(errs.InvalidOption, "validate options", "",
			fmt.Sprintf("dimensions must be positive, got %dx%d", o.Width, o.Height))
	}

	if o.Format != "" {
		f := strings.ToLower(o.Format)
		if !knownFormats[f] {
			return errs.New(errs.InvalidOption, "validate options", "",
				fmt.Sprintf("unknown format %q (valid: jpg, png, webp, avif, gif)", o.Format))
		}
		o.Format = f
	}

	if o.MinSizeKB < 0 || o.MaxSizeKB < 0 {
		return errs.New(errs.InvalidOption, "validate options", "", "size filters must be positive")
	}
	if o.MinSizeKB > 0 && o.MaxSizeKB > 0 && o.MinSizeKB > o.MaxSizeKB {
		return errs.New(errs.InvalidOption, "validate options", "",
			fmt.Sprintf("min-size %d is greater than max-size %d", o.MinSizeKB, o.MaxSizeKB))
	}

	if o.Replace && o.Output != "" {
		return errs.New(errs.InvalidOption, "validate options", "", "replace and output are mutually exclusive")
	}

	return nil
}

func validQuality(name string, q int) error {
	if q < 1 || q > 100 {
		return errs.New(errs.InvalidOption, "validate options", "",
			fmt.Sprintf("%s must be between 1 and 100, got %d", name, q))
	}
	return nil
}

// QualityFor returns the effective quality for the given output format,
// falling back to the general quality when no per-format override is set.
func (o Options) QualityFor(format string) int {
	switch NormalizeFormat(format) {
	case "jpeg":
		if o.JPEGQuality != 0 {
			return o.JPEGQuality
		}
	case "png":
		if o.PNGQuality != 0 {
			return o.PNGQuality
		}
	case "webp":
		if o.WebPQuality != 0 {
			return o.WebPQuality
		}
	}
	return o.Quality
}

// NormalizeFormat lowercases a format name and folds jpg into jpeg.
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

// ExtensionFor returns the file extension for a format override value.
func ExtensionFor(format string) string {
	switch NormalizeFormat(format) {
	case "jpeg":
		return ".jpg"
	default:
		return "." + NormalizeFormat(format)
	}
}
