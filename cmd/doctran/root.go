package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/doctran/internal/config"
	"github.com/dgallion1/doctran/internal/pipeline"
	"github.com/dgallion1/doctran/internal/ratelimit"
	"github.com/dgallion1/doctran/internal/translate"
)

type rootOpts struct {
	pipelineFile  string
	stages        config.Pipeline
	sourceLang    string
	targetLang    string
	failurePolicy string
	maxInFlight   int
}

var longRootCmdDescription = `doctran reads one document from standard input, translates its prose
node by node and writes the translated document tree to standard output.

The six pipeline stages (parse, process, filter_work, filter_process, work,
render) are chosen from a YAML pipeline file and the stage flags below.
Flags win over the file.`

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	cmd := &cobra.Command{
		Use:           "doctran",
		Short:         "Translate structured documents through a pluggable pipeline.",
		Long:          longRootCmdDescription,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.pipelineFile, "pipeline", "", "YAML pipeline file (default $DOCTRAN_PIPELINE)")
	f.StringVar(&opts.stages.Parse, "parse", "", "parse variant")
	f.StringVar(&opts.stages.Process, "process", "", "process variant")
	f.StringVar(&opts.stages.FilterWork, "filter-work", "", "filter_work variant")
	f.StringVar(&opts.stages.FilterProcess, "filter-process", "", "filter_process variant")
	f.StringVar(&opts.stages.Work, "work", "", "work variant (translation backend)")
	f.StringVar(&opts.stages.Render, "render", "", "render variant")
	f.StringVar(&opts.sourceLang, "source-lang", "", "source language tag (default $SOURCE_LANG)")
	f.StringVar(&opts.targetLang, "target-lang", "", "target language tag (default $TARGET_LANG)")
	f.StringVar(&opts.failurePolicy, "failure-policy", "", "recover or abort (default $FAILURE_POLICY)")
	f.IntVar(&opts.maxInFlight, "max-in-flight", -1, "cap on concurrent work operations, 0 for none (default $MAX_IN_FLIGHT)")

	cmd.AddCommand(newServeCmd(opts), newMCPCmd(opts), newStagesCmd(opts))
	return cmd
}

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	pipeline config.Pipeline
	stats    *translate.StatsSet
	registry *pipeline.Registry
}

// setup loads configuration, applies flags and builds the variant registry.
// Provider diagnostics go to diag.
func setup(opts *rootOpts, diag io.Writer) (*app, error) {
	cfg := config.Load()
	if opts.sourceLang != "" {
		cfg.SourceLang = opts.sourceLang
	}
	if opts.targetLang != "" {
		cfg.TargetLang = opts.targetLang
	}
	if opts.failurePolicy != "" {
		policy, err := pipeline.ParseFailurePolicy(opts.failurePolicy)
		if err != nil {
			return nil, err
		}
		cfg.FailurePolicy = string(policy)
	}
	if opts.maxInFlight >= 0 {
		cfg.MaxInFlight = opts.maxInFlight
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := newLogger(cfg, os.Stderr)

	p := config.DefaultPipeline()
	path := opts.pipelineFile
	if path == "" {
		path = cfg.PipelineFile
	}
	if path != "" {
		var err error
		if p, err = config.LoadPipeline(path); err != nil {
			return nil, err
		}
	}
	p = p.Merge(opts.stages)

	stats := translate.NewStatsSet(time.Hour)
	reg, err := pipeline.NewDefaultRegistry(cfg, pipeline.Deps{
		Limits:      ratelimit.Default,
		Stats:       stats,
		Diagnostics: pipeline.NewDiagnostics(diag),
		Log:         log,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, pipeline: p, stats: stats, registry: reg}, nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, hopts))
	}
	return slog.New(slog.NewJSONHandler(w, hopts))
}

// runFilter translates standard input to standard output. Stage names and
// backend credentials are checked before any input is read.
func runFilter(cmd *cobra.Command, opts *rootOpts) error {
	a, err := setup(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := a.cfg.ValidateBackend(a.pipeline.Work); err != nil {
		return err
	}
	stages, err := a.registry.Resolve(a.pipeline)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := pipeline.NewDriver(stages, pipeline.DriverOptions{
		Policy:      pipeline.FailurePolicy(a.cfg.FailurePolicy),
		MaxInFlight: a.cfg.MaxInFlight,
	}, a.log)
	_, err = driver.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	return err
}
