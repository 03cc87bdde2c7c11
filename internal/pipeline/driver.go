package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/dgallion1/doctran/internal/doctree"
)

// ErrNoInput is returned when the input holds nothing but whitespace.
var ErrNoInput = errors.New("no input")

// Report summarizes one run.
type Report struct {
	RunID     uuid.UUID     `json:"run_id"`
	Nodes     int           `json:"nodes"`
	Attempted int           `json:"attempted"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`

	// Failures holds every recovered per-node failure.
	Failures *multierror.Error `json:"-"`
}

// Errors returns the failure messages, for JSON responses.
func (r *Report) Errors() []string {
	if r == nil || r.Failures == nil {
		return []string{}
	}
	out := make([]string, 0, len(r.Failures.Errors))
	for _, err := range r.Failures.Errors {
		out = append(out, err.Error())
	}
	return out
}

// DriverOptions tune a Driver.
type DriverOptions struct {
	Policy      FailurePolicy
	MaxInFlight int
}

// Driver runs one resolved pipeline: read, parse, process, wait, render,
// write.
type Driver struct {
	stages *Stages
	opts   DriverOptions
	log    *slog.Logger
}

func NewDriver(stages *Stages, opts DriverOptions, log *slog.Logger) *Driver {
	if opts.Policy == "" {
		opts.Policy = PolicyRecover
	}
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Driver{stages: stages, opts: opts, log: log}
}

// Run reads the whole of in as one document and writes the rendered result
// to out in a single write. Nothing is written unless the run succeeds.
func (d *Driver) Run(ctx context.Context, in io.Reader, out io.Writer) (*Report, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	report, root, err := d.Translate(ctx, data)
	if err != nil {
		return report, err
	}

	var buf bytes.Buffer
	if err := d.stages.Render.Render(&buf, root); err != nil {
		return report, fmt.Errorf("render: %w", err)
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		return report, fmt.Errorf("write output: %w", err)
	}
	return report, nil
}

// Translate parses data and translates the tree in place. It returns only
// after every started operation has settled.
func (d *Driver) Translate(ctx context.Context, data []byte) (*Report, *doctree.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, ErrNoInput
	}

	report := &Report{RunID: uuid.New()}
	log := d.log.With("run_id", report.RunID.String())
	start := time.Now()

	root, err := d.stages.Parse.Parse(bytes.NewReader(data))
	if err != nil {
		return report, nil, fmt.Errorf("parse: %w", err)
	}
	report.Nodes = root.Count()
	log.Debug("parsed document", "parser", d.stages.Names.Parse, "nodes", report.Nodes)

	scope := NewScope(ctx, d.opts.Policy, d.opts.MaxInFlight, log)
	pending := d.stages.Process.Process(scope, d.stages, root)
	log.Debug("traversal complete", "started", len(pending))

	waitErr := scope.Wait()
	report.Attempted, report.Failed = scope.Counts()
	report.Failures = scope.Failures()
	report.Duration = time.Since(start)

	if waitErr != nil {
		log.Error("run aborted", "error", waitErr, "attempted", report.Attempted, "failed", report.Failed)
		return report, nil, fmt.Errorf("run aborted: %w", waitErr)
	}
	if err := ctx.Err(); err != nil {
		return report, nil, err
	}

	log.Info("run complete",
		"work", d.stages.Names.Work,
		"attempted", report.Attempted,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, root, nil
}
