package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/doctran/internal/doctree"
	"github.com/dgallion1/doctran/internal/translate"
)

// FailurePolicy decides what a failed work operation does to the run.
type FailurePolicy string

const (
	// PolicyRecover leaves the failed node untranslated and carries on.
	PolicyRecover FailurePolicy = "recover"
	// PolicyAbort cancels the run on the first transport failure. Provider
	// errors are still recovered.
	PolicyAbort FailurePolicy = "abort"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(s)); p {
	case PolicyRecover, PolicyAbort:
		return p, nil
	case "":
		return PolicyRecover, nil
	}
	return "", fmt.Errorf("unknown failure policy %q", s)
}

// Pending is the handle of one started work operation.
type Pending struct {
	Node *doctree.Node

	done chan struct{}
	err  error
}

// Done is closed once the operation has settled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the operation's error. Only valid after Done is closed.
func (p *Pending) Err() error { return p.err }

// Scope owns every operation started during one run. Wait is the single
// completion barrier: it returns only after every started operation settled.
type Scope struct {
	ctx    context.Context
	group  *errgroup.Group
	policy FailurePolicy
	log    *slog.Logger

	mu        sync.Mutex
	attempted int
	failed    int
	failures  *multierror.Error
}

// NewScope returns a scope bound to ctx. limit caps concurrently running
// operations; 0 means unbounded.
func NewScope(ctx context.Context, policy FailurePolicy, limit int, log *slog.Logger) *Scope {
	group, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	return &Scope{
		ctx:    gctx,
		group:  group,
		policy: policy,
		log:    log,
	}
}

// Context is cancelled when the run is aborted or its parent is cancelled.
func (s *Scope) Context() context.Context { return s.ctx }

// Start runs w on n concurrently and returns immediately with its handle.
// With a concurrency limit set, Start blocks until a slot is free.
func (s *Scope) Start(n *doctree.Node, w Worker) *Pending {
	p := &Pending{Node: n, done: make(chan struct{})}

	s.mu.Lock()
	s.attempted++
	s.mu.Unlock()

	s.group.Go(func() error {
		defer close(p.done)
		err := w.Work(s.ctx, n)
		p.err = err
		if err == nil {
			return nil
		}
		s.recordFailure(n, err)
		if s.policy == PolicyAbort && translate.IsTransport(err) {
			return err
		}
		return nil
	})
	return p
}

func (s *Scope) recordFailure(n *doctree.Node, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.failures = multierror.Append(s.failures, fmt.Errorf("%s %q: %w", n.Kind, preview(n.Value), err))
}

// Wait blocks until every started operation has settled. It returns the
// error that aborted the run, if any.
func (s *Scope) Wait() error {
	return s.group.Wait()
}

// Counts returns how many operations were started and how many failed.
func (s *Scope) Counts() (attempted, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempted, s.failed
}

// Failures returns every recorded failure, or nil.
func (s *Scope) Failures() *multierror.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 40 {
		n := 40
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		return s[:n] + "..."
	}
	return s
}
