package pipeline

import (
	"context"
	"io"

	"github.com/dgallion1/doctran/internal/config"
	"github.com/dgallion1/doctran/internal/doctree"
	"github.com/dgallion1/doctran/internal/parser"
)

// Stage names.
const (
	StageParse         = "parse"
	StageProcess       = "process"
	StageFilterWork    = "filter_work"
	StageFilterProcess = "filter_process"
	StageWork          = "work"
	StageRender        = "render"
)

// StageNames lists every stage in pipeline order.
var StageNames = []string{StageParse, StageProcess, StageFilterWork, StageFilterProcess, StageWork, StageRender}

// Processor walks a tree, starts work on eligible nodes and returns the
// handles of everything it started. It performs no I/O itself.
type Processor interface {
	Process(s *Scope, st *Stages, n *doctree.Node) []*Pending
}

// WorkFilter decides whether a node is translated.
type WorkFilter interface {
	Eligible(n *doctree.Node) bool
}

// TraversalFilter decides whether a node's children are visited.
type TraversalFilter interface {
	Descend(n *doctree.Node) bool
}

// Worker performs the work for one node. On success it has replaced the
// node's Value; on failure the node is untouched.
type Worker interface {
	Work(ctx context.Context, n *doctree.Node) error
}

// Renderer serializes a tree.
type Renderer interface {
	Render(w io.Writer, n *doctree.Node) error
}

// WorkFilterFunc adapts a function to WorkFilter.
type WorkFilterFunc func(n *doctree.Node) bool

func (f WorkFilterFunc) Eligible(n *doctree.Node) bool { return f(n) }

// TraversalFilterFunc adapts a function to TraversalFilter.
type TraversalFilterFunc func(n *doctree.Node) bool

func (f TraversalFilterFunc) Descend(n *doctree.Node) bool { return f(n) }

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, n *doctree.Node) error

func (f WorkerFunc) Work(ctx context.Context, n *doctree.Node) error { return f(ctx, n) }

// Stages is a pipeline with every stage resolved to its implementation.
type Stages struct {
	Names config.Pipeline

	Parse         parser.Parser
	Process       Processor
	FilterWork    WorkFilter
	FilterProcess TraversalFilter
	Work          Worker
	Render        Renderer
}
