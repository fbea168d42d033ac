package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/config"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/cli/tui"
	"github.com/justapithecus/strata/export"
	"github.com/justapithecus/strata/feed"
	"github.com/justapithecus/strata/iox"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/rotation"
	"github.com/justapithecus/strata/sink"
)

// Exit codes for the export command.
const (
	exitSuccess     = 0
	exitConfigError = 1
	exitFeedError   = 2
	exitSinkError   = 3
)

// ExportCommand returns the export command: read records from the
// input feed, write them into rotated chunk artifacts.
func ExportCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		FormatFlag,
		&cli.StringFlag{
			Name:  "chunk-format",
			Usage: "Chunk serialization format: json, jsonlines, csv",
		},
		&cli.IntFlag{
			Name:    "items-per-chunk",
			Aliases: []string{"n"},
			Usage:   "Records per chunk before rotating",
		},
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Input path, or - for stdin",
		},
		&cli.StringFlag{
			Name:  "input-format",
			Usage: "Input encoding: jsonl or msgpack",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Storage backend: file, fs, s3",
		},
		&cli.StringFlag{
			Name:  "path",
			Usage: "Storage root: directory for fs, bucket[/prefix] for s3",
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "AWS region for the s3 backend",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "Custom S3 endpoint URL (R2, MinIO)",
		},
		&cli.BoolFlag{
			Name:  "s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress summary output",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show live progress view",
		},
	}
	flags = append(flags, chunkFlags()...)

	return &cli.Command{
		Name:   "export",
		Usage:  "Export a record feed into rotated chunk artifacts",
		Flags:  flags,
		Action: exportAction,
	}
}

func exportAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	meta := cfg.Meta()
	logger := log.NewLogger(meta)
	collector := metrics.NewCollector(metricFormat(cfg.Format), backendName(cfg), meta.JobID)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opener, err := buildOpener(ctx, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("storage: %v", err), exitConfigError)
	}
	opener = sink.NewInstrumentedOpener(opener, collector)

	reader, closeInput, err := buildReader(cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer closeInput()

	rctx := rotation.NewContext(meta,
		rotation.WithTimestampLayout(cfg.TimestampLayout))

	exp := export.New(export.Config{
		AddressTemplate: cfg.AddressTemplate,
		Format:          cfg.Format,
		ItemsPerChunk:   cfg.ItemsPerChunk,
	}, opener, rctx,
		export.WithLogger(logger),
		export.WithCollector(collector))

	if c.Bool("tui") {
		return runWithTUI(ctx, exp, reader, collector)
	}

	summary, err := runExport(ctx, exp, reader)
	if err != nil {
		return cli.Exit(err.Error(), classifyExit(err))
	}

	if c.Bool("quiet") {
		return nil
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	return r.Render(summary)
}

// runExport drives the exporter over the feed until the feed ends or
// ctx is canceled. A cancellation, feed, or sink failure mid-run still
// finishes the exporter so the open chunk is flushed before the error
// propagates.
func runExport(ctx context.Context, exp *export.Exporter, reader feed.Reader) (export.Summary, error) {
	if err := exp.Start(ctx); err != nil {
		return exp.Summary(), err
	}

	for {
		if err := ctx.Err(); err != nil {
			finishQuietly(ctx, exp)
			return exp.Summary(), err
		}

		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			finishQuietly(ctx, exp)
			return exp.Summary(), err
		}

		if err := exp.Submit(ctx, rec); err != nil {
			finishQuietly(ctx, exp)
			return exp.Summary(), err
		}
	}

	return exp.Finish(ctx)
}

// finishQuietly flushes the open chunk after a mid-run failure or
// cancellation. The original error wins; a secondary finish failure is
// dropped. The flush runs detached from ctx so a canceled run still
// closes its final chunk.
func finishQuietly(ctx context.Context, exp *export.Exporter) {
	if exp.State() == export.StateOpen {
		_, _ = exp.Finish(context.WithoutCancel(ctx))
	}
}

// runWithTUI runs the export loop on a goroutine and drives the
// progress view until the loop reports done. Quitting the view early
// cancels the run and waits for the loop to flush its final chunk
// before returning.
func runWithTUI(ctx context.Context, exp *export.Exporter, reader feed.Reader, collector *metrics.Collector) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tui.RunProgress(collector)

	var runErr error
	done := startExport(runCtx, exp, reader, func(s export.Summary, err error) {
		runErr = err
		p.Send(tui.DoneMsg{Summary: s, Err: err})
	})

	_, tuiErr := p.Run()
	cancel()
	<-done

	if tuiErr != nil {
		return cli.Exit(fmt.Sprintf("tui: %v", tuiErr), exitConfigError)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return cli.Exit(runErr.Error(), classifyExit(runErr))
	}
	return nil
}

// startExport runs the export loop on its own goroutine. The returned
// channel closes after the loop has finished and report has run, so
// anything report writes is visible to a reader that waits on it.
func startExport(ctx context.Context, exp *export.Exporter, reader feed.Reader, report func(export.Summary, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, err := runExport(ctx, exp, reader)
		report(summary, err)
	}()
	return done
}

// classifyExit maps a run failure to the export exit code contract:
// configuration and template problems are 1, feed decode problems are
// 2, sink failures are 3.
func classifyExit(err error) int {
	var feedErr *feed.Error
	switch {
	case errors.As(err, &feedErr):
		return exitFeedError
	case errors.Is(err, sink.ErrOpen),
		errors.Is(err, sink.ErrWrite),
		errors.Is(err, sink.ErrClosed):
		return exitSinkError
	default:
		return exitConfigError
	}
}

// resolveConfig loads the config file (when given) and applies flag
// overrides on top.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := c.String("template"); v != "" {
		cfg.AddressTemplate = v
	}
	if v := c.String("chunk-format"); v != "" {
		cfg.Format = v
	}
	if c.IsSet("items-per-chunk") {
		cfg.ItemsPerChunk = c.Int("items-per-chunk")
	}
	if v := c.String("timestamp-layout"); v != "" {
		cfg.TimestampLayout = v
	}
	if v := c.String("job-id"); v != "" {
		cfg.JobID = v
	}
	if v := c.String("project-id"); v != "" {
		cfg.ProjectID = v
	}
	if v := c.String("backend"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := c.String("path"); v != "" {
		cfg.Storage.Path = v
	}
	if v := c.String("region"); v != "" {
		cfg.Storage.Region = v
	}
	if v := c.String("endpoint"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if c.IsSet("s3-path-style") {
		cfg.Storage.S3PathStyle = c.Bool("s3-path-style")
	}
	if v := c.String("input"); v != "" {
		cfg.Input.Path = v
	}
	if v := c.String("input-format"); v != "" {
		cfg.Input.Format = v
	}

	return cfg, nil
}

func backendName(cfg *config.Config) string {
	if cfg.Storage.Backend == "" {
		return "file"
	}
	return cfg.Storage.Backend
}

// metricFormat normalizes the configured format for the collector's
// dimension label, so aliases like "jl" report the canonical name. An
// unparseable value passes through; the exporter rejects it at Start.
func metricFormat(s string) string {
	if f, err := sink.ParseFormat(s); err == nil {
		return string(f)
	}
	return s
}

// buildOpener selects the sink backend from storage config.
func buildOpener(ctx context.Context, cfg *config.Config) (sink.Opener, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		return sink.NewFileOpener(), nil

	case "fs":
		if cfg.Storage.Path == "" {
			return nil, errors.New("fs backend requires storage.path")
		}
		return sink.NewFSStoreOpener(cfg.Storage.Path)

	case "s3":
		bucket, prefix := sink.ParseS3Path(cfg.Storage.Path)
		return sink.NewS3StoreOpener(ctx, sink.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.S3PathStyle,
		})

	default:
		return nil, fmt.Errorf("unknown storage backend: %q (must be file, fs, or s3)", cfg.Storage.Backend)
	}
}

// buildReader selects the feed reader from input config. The returned
// cleanup closes the input file; for stdin it is a no-op.
func buildReader(cfg *config.Config) (feed.Reader, func(), error) {
	var src io.Reader = os.Stdin
	cleanup := func() {}

	if cfg.Input.Path != "" && cfg.Input.Path != "-" {
		f, err := os.Open(cfg.Input.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open input %q: %w", cfg.Input.Path, err)
		}
		src = f
		cleanup = func() { iox.DiscardClose(f) }
	}

	switch cfg.Input.Format {
	case "", "jsonl", "jsonlines":
		return feed.NewJSONLReader(src), cleanup, nil
	case "msgpack":
		return feed.NewFrameReader(src), cleanup, nil
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown input format: %q (must be jsonl or msgpack)", cfg.Input.Format)
	}
}
