package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wpkernel/wpkgen/internal/build"
	"github.com/wpkernel/wpkgen/internal/cli/ui"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/watch"
)

type generateOptions struct {
	json  bool
	quiet bool
	watch bool
}

func newGenerateCommand(a *app) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [plan]",
		Short: "Compile a plan into controller ASTs and metadata",
		Long: `Compile a resource plan and write one AST file per generated PHP file,
plus its metadata and a build summary.

For every file the output directory receives:
  <name>.ast.json    php-parser compatible program
  <name>.meta.json   routes, cache events, helpers and capabilities

Warnings are printed as they are raised and never fail the build.

With --watch the plan is rebuilt whenever it is saved until interrupted;
a failed rebuild is reported and leaves the previous output in place.`,
		Example: `  # Build the plan named in wpkgen.yaml
  wpkgen generate

  # Build a specific plan into a custom directory
  wpkgen generate plans/shop.plan.yaml --out build/php

  # Gzip every file and skip metadata
  wpkgen generate --format json.gz --metadata=false

  # Print the build summary as JSON
  wpkgen generate --json

  # Rebuild on every save
  wpkgen generate --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringP("out", "o", "", "Output directory (default: .generated/php)")
	cmd.Flags().String("format", "", "Output format: json or json.gz")
	cmd.Flags().Bool("metadata", true, "Write <name>.meta.json files")
	cmd.Flags().Int("workers", 0, "Controllers built concurrently")
	cmd.Flags().String("include-base-controller", "", "Override the plan: true or false")
	cmd.Flags().String("cache", "", "Cache backend: memory, redis or none")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the build summary as JSON")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only print warnings and errors")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Rebuild whenever the plan changes")

	return cmd
}

func runGenerate(cmd *cobra.Command, a *app, opts *generateOptions, args []string) error {
	ctx := cmd.Context()

	path := a.cfg.Plan.Path
	if len(args) == 1 {
		path = args[0]
	}
	override, err := a.cfg.Build.BaseControllerOverride()
	if err != nil {
		return err
	}

	pipeline, _, closeFn, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	once := func(ctx context.Context) error {
		return generateOnce(ctx, cmd, a, opts, pipeline, build.Input{Path: path, IncludeBaseController: override})
	}
	if !opts.watch {
		return once(ctx)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchPlan(ctx, cmd, a, path, once)
}

// watchPlan builds once and then again on every change to path until ctx
// is done. Build failures are reported and do not end the watch.
func watchPlan(ctx context.Context, cmd *cobra.Command, a *app, path string, rebuild func(context.Context) error) error {
	w, err := watch.New([]string{path}, watch.Options{Logger: a.logger})
	if err != nil {
		return err
	}

	if err := rebuild(ctx); err != nil && err != errReported {
		return err
	}
	ui.Message{Level: ui.LevelInfo, Problem: fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", path), NoColor: a.noColor}.Write(cmd.ErrOrStderr())

	return w.Run(ctx, func(ctx context.Context, files []string) error {
		a.logger.Debug("plan changed", zap.Strings("files", files))
		if err := rebuild(ctx); err != nil && err != errReported {
			return err
		}
		return nil
	})
}

func generateOnce(ctx context.Context, cmd *cobra.Command, a *app, opts *generateOptions, pipeline *build.Pipeline, in build.Input) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	in.OnWarning = func(w errors.Warning) {
		ui.Warning(stderr, w, a.noColor)
	}
	res, err := pipeline.Run(ctx, in)
	if err != nil {
		ui.BuildFailed(stderr, err, a.noColor)
		return errReported
	}

	out := a.cfg.Output
	written, err := res.Artifact.WriteTo(out.Dir, out.Metadata, out.Compressed())
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if opts.json {
		data, err := json.MarshalIndent(struct {
			BuildID  string        `json:"buildId"`
			Key      string        `json:"cacheKey,omitempty"`
			Cached   bool          `json:"cached"`
			Duration time.Duration `json:"durationNs"`
			Written  []string      `json:"written"`
		}{res.Artifact.BuildID, res.Artifact.Key, res.Cached, res.Duration, written}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}
	if opts.quiet {
		return nil
	}

	source := "built"
	if res.Cached {
		source = "from cache"
	}
	ui.Success(stdout, fmt.Sprintf("Generated %d files in %s (%s, %s)", len(res.Artifact.Files), out.Dir, source, res.Duration.Round(time.Millisecond)), a.noColor)

	kv := ui.NewKeyValues(stdout, a.noColor)
	kv.Add("Build", res.Artifact.BuildID)
	kv.Add("Namespace", res.Document.Namespace)
	kv.Add("Warnings", strconv.Itoa(len(res.Artifact.Warnings)))
	kv.Add("Fallback routes", strconv.Itoa(len(res.Artifact.Fallbacks)))
	kv.Render()

	for _, p := range written {
		fmt.Fprintf(stdout, "  %s\n", p)
	}
	return nil
}
