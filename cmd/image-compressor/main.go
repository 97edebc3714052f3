package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adekpp/cli-image-compressor/internal/batch"
	"github.com/adekpp/cli-image-compressor/internal/codec"
	"github.com/adekpp/cli-image-compressor/internal/compressor"
	"github.com/adekpp/cli-image-compressor/internal/config"
	"github.com/adekpp/cli-image-compressor/internal/logger"
	"github.com/adekpp/cli-image-compressor/internal/report"
	"github.com/adekpp/cli-image-compressor/internal/stats"
	"github.com/adekpp/cli-image-compressor/internal/web"
)

var (
	cfgFile string
	port    int

	flagQuality     int
	flagJPGQuality  int
	flagPNGQuality  int
	flagWebPQuality int
	flagFormat      string
	flagWidth       int
	flagHeight      int
	flagOutput      string
	flagReplace     bool
	flagDryRun      bool
	flagKeepStruct  bool
	flagMinSize     int64
	flagMaxSize     int64
	flagRotate      bool
	flagKeepMeta    bool
	flagVerbose     bool

	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "image-compressor",
	Short: "Batch image compression for the command line",
	Long: `image-compressor reduces the size of JPEG, PNG, WebP, GIF and AVIF
images, one file or whole directory trees at a time.

Features:
- Per-format quality settings and format conversion
- Aspect-preserving resize that never upscales
- Safe in-place replacement via temp-file swap
- Size filters, dry-run mode and list-file batches
- Metadata stripping (default) or preservation`,
	Version: fmt.Sprintf("%s (built %s)", version, buildTime),
}

var compressCmd = &cobra.Command{
	Use:   "compress [path]",
	Short: "Compress a file, directory or glob pattern",
	Long: `Compress resolves the given path into a list of images and compresses
them sequentially. A directory is walked recursively; a path that is
neither a file nor a directory is treated as a glob pattern. The
command fails only when the path resolves to no files at all.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		return runCompress(cmd, path)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <listFile>",
	Short: "Compress paths listed in a text file",
	Long: `Batch reads newline-delimited paths from the given text file. Blank
lines and lines starting with '#' are ignored. Missing entries are
reported per file and never abort the run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args[0])
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [path]",
	Short: "Analyze images without writing anything",
	Long: `Stats enumerates the matching images and reports per-file size,
dimensions and format plus aggregate totals and an estimated savings
figure. It performs no writes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		return runStats(path)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface server",
	Long: `Starts an HTTP server exposing the compressor: REST endpoints to
launch a batch and a websocket streaming per-file progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "show full error details and debug logging")

	for _, cmd := range []*cobra.Command{compressCmd, batchCmd} {
		cmd.Flags().IntVarP(&flagQuality, "quality", "q", 80, "general quality (1-100)")
		cmd.Flags().IntVar(&flagJPGQuality, "jpg-quality", 0, "JPEG quality override (1-100)")
		cmd.Flags().IntVar(&flagPNGQuality, "png-quality", 0, "PNG quality override (1-100)")
		cmd.Flags().IntVar(&flagWebPQuality, "webp-quality", 0, "WebP quality override (1-100)")
		cmd.Flags().StringVarP(&flagFormat, "format", "f", "", "output format (jpg, png, webp, avif, gif)")
		cmd.Flags().IntVarP(&flagWidth, "width", "w", 0, "maximum width in pixels")
		cmd.Flags().IntVar(&flagHeight, "height", 0, "maximum height in pixels")
		cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output directory or file")
		cmd.Flags().BoolVar(&flagReplace, "replace", false, "replace originals in place")
		cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be done without writing")
		cmd.Flags().BoolVar(&flagKeepStruct, "keep-structure", false, "preserve directory layout under the output dir")
		cmd.Flags().Int64Var(&flagMinSize, "min-size", 0, "skip files smaller than this many KB")
		cmd.Flags().Int64Var(&flagMaxSize, "max-size", 0, "skip files larger than this many KB")
		cmd.Flags().BoolVar(&flagRotate, "rotate", true, "auto-orient images using EXIF data")
		cmd.Flags().BoolVar(&flagKeepMeta, "keep-metadata", false, "preserve image metadata")
	}

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the web server on")

	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
}

// resolveOptions layers changed CLI flags over the config file values.
func resolveOptions(cmd *cobra.Command) (config.Options, error) {
	opts, err := config.Load(cfgFile)
	if err != nil {
		return opts, err
	}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("quality", func() { opts.Quality = flagQuality })
	set("jpg-quality", func() { opts.JPEGQuality = flagJPGQuality })
	set("png-quality", func() { opts.PNGQuality = flagPNGQuality })
	set("webp-quality", func() { opts.WebPQuality = flagWebPQuality })
	set("format", func() { opts.Format = flagFormat })
	set("width", func() { opts.Width = flagWidth })
	set("height", func() { opts.Height = flagHeight })
	set("output", func() { opts.Output = flagOutput })
	set("replace", func() { opts.Replace = flagReplace })
	set("dry-run", func() { opts.DryRun = flagDryRun })
	set("keep-structure", func() { opts.KeepStructure = flagKeepStruct })
	set("min-size", func() { opts.MinSizeKB = flagMinSize })
	set("max-size", func() { opts.MaxSizeKB = flagMaxSize })
	set("rotate", func() { opts.Rotate = flagRotate })
	set("keep-metadata", func() { opts.KeepMetadata = flagKeepMeta })
	opts.Verbose = opts.Verbose || flagVerbose

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func runCompress(cmd *cobra.Command, path string) error {
	opts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}
	log, err := logger.New(opts.Logging, opts.Verbose)
	if err != nil {
		return err
	}

	candidates, baseDir, err := batch.Discover(path)
	if err != nil {
		return err
	}

	return runLedger(candidates, baseDir, opts, log)
}

func runBatch(cmd *cobra.Command, listFile string) error {
	opts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}
	log, err := logger.New(opts.Logging, opts.Verbose)
	if err != nil {
		return err
	}

	candidates, err := batch.ReadListFile(listFile)
	if err != nil {
		return err
	}

	// List entries may come from anywhere, so structure is resolved per
	// file rather than against a single root.
	return runLedger(candidates, "", opts, log)
}

func runLedger(candidates []batch.Candidate, baseDir string, opts config.Options, log *logrus.Logger) error {
	runner := &batch.Runner{
		Opts: opts,
		Comp: compressor.New(codec.NewImagingCodec(), opts, log),
		Log:  log,
		OnOutcome: func(index, total int, oc compressor.Outcome) {
			fmt.Println(report.RenderOutcome(oc, opts.Verbose))
		},
	}

	ledger := runner.Run(candidates, baseDir)
	fmt.Println()
	fmt.Println(report.RenderSummary(report.Summarize(ledger)))
	return nil
}

func runStats(path string) error {
	opts, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.New(opts.Logging, flagVerbose)
	if err != nil {
		return err
	}

	analyzer := &stats.Analyzer{Codec: codec.NewImagingCodec(), Log: log}
	rep, err := analyzer.Analyze(path)
	if err != nil {
		return err
	}
	fmt.Println(rep.Render())
	return nil
}

func runServe() error {
	opts, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.New(opts.Logging, flagVerbose)
	if err != nil {
		return err
	}

	server := web.NewServer(opts, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("Web interface listening on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")

	<-sigChan
	fmt.Println("\nShutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Stop(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
