package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dgallion1/doctran/internal/doctree"
	"github.com/dgallion1/doctran/internal/ratelimit"
	"github.com/dgallion1/doctran/internal/translate"
)

// Diagnostics writes one "[ERROR] <payload>" line per provider failure.
// Lines from concurrent workers never interleave.
type Diagnostics struct {
	mu sync.Mutex
	w  io.Writer
}

func NewDiagnostics(w io.Writer) *Diagnostics {
	return &Diagnostics{w: w}
}

// Error writes payload on a single line.
func (d *Diagnostics) Error(payload string) {
	if d == nil {
		return
	}
	line := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(payload)
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "[ERROR] %s\n", line)
}

// Limit is the admission rate of one backend.
type Limit struct {
	Requests int
	Per      time.Duration
}

// RateLimitedWorker sends node text through a translator, admitting calls
// through the backend's shared rate-limited channel.
type RateLimitedWorker struct {
	translator translate.Translator
	limits     *ratelimit.Registry
	limit      Limit
	stats      *translate.LatencyStats
	diag       *Diagnostics
	timeout    time.Duration
	log        *slog.Logger
}

// WorkerOptions are the collaborators of a RateLimitedWorker. Nil fields get
// working defaults.
type WorkerOptions struct {
	Limits      *ratelimit.Registry
	Stats       *translate.StatsSet
	Diagnostics *Diagnostics
	Timeout     time.Duration
	Log         *slog.Logger
}

func NewRateLimitedWorker(t translate.Translator, limit Limit, opts WorkerOptions) *RateLimitedWorker {
	if opts.Limits == nil {
		opts.Limits = ratelimit.Default
	}
	if opts.Stats == nil {
		opts.Stats = translate.NewStatsSet(time.Hour)
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &RateLimitedWorker{
		translator: t,
		limits:     opts.Limits,
		limit:      limit,
		stats:      opts.Stats.For(t.Name()),
		diag:       opts.Diagnostics,
		timeout:    opts.Timeout,
		log:        opts.Log.With("backend", t.Name()),
	}
}

// Work translates n.Value. Leading and trailing whitespace is kept as is
// and only the inner text is sent to the backend.
func (w *RateLimitedWorker) Work(ctx context.Context, n *doctree.Node) error {
	name := w.translator.Name()
	// Channels are created on first use and shared process-wide.
	ch := w.limits.For(name, w.limit.Requests, w.limit.Per)
	if err := ch.Wait(ctx); err != nil {
		return &translate.TransportError{Backend: name, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	lead, core, trail := splitSpace(n.Value)

	callCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := w.translator.Translate(callCtx, core)
	if err != nil {
		w.stats.RecordFailure()
		var pe *translate.ProviderError
		if errors.As(err, &pe) {
			w.diag.Error(pe.Payload)
			w.log.Debug("provider rejected text", "status", pe.Status)
		} else {
			w.log.Warn("translation failed", "error", err)
		}
		return err
	}
	w.stats.Record(time.Since(start).Milliseconds())

	n.SetValue(lead + out + trail)
	return nil
}

// NoopWorker leaves every node as it is.
var NoopWorker = WorkerFunc(func(context.Context, *doctree.Node) error { return nil })

// splitSpace separates s into leading whitespace, the trimmed core and
// trailing whitespace.
func splitSpace(s string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(s, unicode.IsSpace)
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}
