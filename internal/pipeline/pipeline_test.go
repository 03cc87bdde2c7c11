package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/doctran/internal/config"
	"github.com/dgallion1/doctran/internal/doctree"
	"github.com/dgallion1/doctran/internal/parser"
	"github.com/dgallion1/doctran/internal/ratelimit"
	"github.com/dgallion1/doctran/internal/translate"
)

const sampleDoc = `Guide
=====

Intro with *emphasis* text.

.. toctree::
   :maxdepth: 1

   install
   usage

Example::

    go run .

.. code-block:: go

   fmt.Println("hi")

- item one
- item two
`

// eligibleInOrder is the pre-order list of text leaves the default filters
// select from sampleDoc.
var eligibleInOrder = []string{"Guide", "Intro with ", "emphasis", " text.", "Example:", "item one", "item two"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStages(work Worker) *Stages {
	return &Stages{
		Names:         config.DefaultPipeline(),
		Parse:         &parser.RSTParser{},
		Process:       CompleteProcessor{},
		FilterWork:    DefaultWorkFilter,
		FilterProcess: DefaultTraversalFilter,
		Work:          work,
		Render:        JSONRenderer{},
	}
}

func run(t *testing.T, st *Stages, opts DriverOptions, input string) (string, *Report, error) {
	t.Helper()
	var out bytes.Buffer
	report, err := NewDriver(st, opts, discardLogger()).Run(context.Background(), strings.NewReader(input), &out)
	return out.String(), report, err
}

type stubTranslator struct {
	name string
	fn   func(ctx context.Context, text string) (string, error)
}

func (s stubTranslator) Name() string { return s.name }

func (s stubTranslator) Translate(ctx context.Context, text string) (string, error) {
	return s.fn(ctx, text)
}

var upper = WorkerFunc(func(_ context.Context, n *doctree.Node) error {
	n.SetValue(strings.ToUpper(n.Value))
	return nil
})

func TestNoopWorkLeavesRenderUnchanged(t *testing.T) {
	doc, err := (&parser.RSTParser{}).Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	var before bytes.Buffer
	require.NoError(t, JSONRenderer{}.Render(&before, doc))

	after, report, err := run(t, testStages(NoopWorker), DriverOptions{}, sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, before.String(), after)
	assert.Equal(t, len(eligibleInOrder), report.Attempted)
	assert.Zero(t, report.Failed)
}

func TestIneligibleNodesNeverReachBackend(t *testing.T) {
	var mu sync.Mutex
	var seen []*doctree.Node
	spy := WorkerFunc(func(_ context.Context, n *doctree.Node) error {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		return nil
	})

	_, _, err := run(t, testStages(spy), DriverOptions{}, sampleDoc)
	require.NoError(t, err)

	require.Len(t, seen, len(eligibleInOrder))
	for _, n := range seen {
		assert.Equal(t, doctree.KindText, n.Kind)
		assert.NotEmpty(t, strings.TrimSpace(n.Value))
	}
}

func TestSkippedSubtreesAreNeverVisited(t *testing.T) {
	var root *doctree.Node
	visited := make(map[*doctree.Node]bool)

	st := testStages(NoopWorker)
	st.Parse = parser.Func(func(r io.Reader) (*doctree.Node, error) {
		var err error
		root, err = (&parser.RSTParser{}).Parse(r)
		return root, err
	})
	st.FilterWork = WorkFilterFunc(func(n *doctree.Node) bool {
		visited[n] = true
		return DefaultWorkFilter(n)
	})

	_, _, err := run(t, st, DriverOptions{}, sampleDoc)
	require.NoError(t, err)

	var skipped int
	root.Walk(func(n *doctree.Node) bool {
		if !DefaultTraversalFilter(n) {
			skipped++
			assert.True(t, visited[n], "skipped node itself is still evaluated")
			for _, c := range n.Children {
				c.Walk(func(d *doctree.Node) bool {
					assert.False(t, visited[d], "%s under %s was visited", d.Kind, n.Kind)
					return true
				})
			}
		}
		return true
	})
	// toctree, the "::" literal block and the code-block's literal block.
	assert.Equal(t, 3, skipped)
}

func TestRenderWaitsForEveryPendingOperation(t *testing.T) {
	var started, settled atomic.Int32
	slow := WorkerFunc(func(_ context.Context, n *doctree.Node) error {
		started.Add(1)
		time.Sleep(time.Duration(len(n.Value)) * time.Millisecond)
		n.SetValue(strings.ToUpper(n.Value))
		settled.Add(1)
		return nil
	})

	st := testStages(slow)
	st.Render = RendererFunc(func(w io.Writer, n *doctree.Node) error {
		assert.EqualValues(t, len(eligibleInOrder), started.Load())
		assert.Equal(t, started.Load(), settled.Load(), "render ran with operations in flight")
		return JSONRenderer{}.Render(w, n)
	})

	out, _, err := run(t, st, DriverOptions{}, sampleDoc)
	require.NoError(t, err)
	assert.Contains(t, out, `"ITEM TWO"`)
}

func TestUppercaseScenario(t *testing.T) {
	st := testStages(upper)
	st.Parse = parser.Func(func(io.Reader) (*doctree.Node, error) {
		return doctree.New(doctree.KindDocument,
			doctree.New(doctree.KindSection,
				doctree.New(doctree.KindTitle, doctree.NewText("Hello")),
				doctree.New(doctree.KindParagraph, doctree.NewText("world")),
				doctree.New(doctree.KindLiteralBlock, doctree.NewText("code")),
			),
		), nil
	})

	out, report, err := run(t, st, DriverOptions{}, "ignored")
	require.NoError(t, err)
	assert.Contains(t, out, `"value": "HELLO"`)
	assert.Contains(t, out, `"value": "WORLD"`)
	assert.Contains(t, out, `"value": "code"`)
	assert.Equal(t, 2, report.Attempted)
}

func TestUppercaseSectionWithLiteralBlock(t *testing.T) {
	st := testStages(upper)
	st.Parse = parser.Func(func(io.Reader) (*doctree.Node, error) {
		return doctree.New(doctree.KindSection,
			doctree.NewText("Hello"),
			doctree.New(doctree.KindLiteralBlock, doctree.NewText("skip me")),
		), nil
	})

	out, report, err := run(t, st, DriverOptions{}, "ignored")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)

	var got doctree.Node
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Children, 2)
	assert.Equal(t, doctree.KindSection, got.Kind)
	assert.Equal(t, "HELLO", got.Children[0].Value)
	assert.Equal(t, doctree.KindLiteralBlock, got.Children[1].Kind)
	require.Len(t, got.Children[1].Children, 1)
	assert.Equal(t, "skip me", got.Children[1].Children[0].Value)
}

func TestDriverWithoutLogger(t *testing.T) {
	var out bytes.Buffer
	report, err := NewDriver(testStages(upper), DriverOptions{}, nil).Run(context.Background(), strings.NewReader("Hello\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Contains(t, out.String(), `"value": "HELLO"`)
}

func TestFailureMessageKeepsWholeCharacters(t *testing.T) {
	st := testStages(WorkerFunc(func(context.Context, *doctree.Node) error {
		return &translate.ProviderError{Backend: "x", Payload: "nope"}
	}))
	long := strings.Repeat("中", 20)
	_, report, err := run(t, st, DriverOptions{}, long+"\n")
	require.NoError(t, err)

	msgs := report.Errors()
	require.Len(t, msgs, 1)
	assert.True(t, utf8.ValidString(msgs[0]), "%q", msgs[0])
	assert.Contains(t, msgs[0], strings.Repeat("中", 13)+"...")
	assert.Equal(t, strings.Repeat("中", 13)+"...", preview(long))
	assert.Equal(t, "short", preview("  short "))
}

func TestProviderErrorsLeaveValuesAndWriteOneLineEach(t *testing.T) {
	var diag bytes.Buffer
	failing := stubTranslator{name: "failing", fn: func(context.Context, string) (string, error) {
		return "", &translate.ProviderError{Backend: "failing", Status: 200, Payload: `{"error_code":"54003"}`}
	}}
	worker := NewRateLimitedWorker(failing, Limit{Requests: 1000, Per: time.Second}, WorkerOptions{
		Limits:      ratelimit.NewRegistry(),
		Diagnostics: NewDiagnostics(&diag),
		Log:         discardLogger(),
	})

	noopOut, _, err := run(t, testStages(NoopWorker), DriverOptions{}, sampleDoc)
	require.NoError(t, err)

	out, report, err := run(t, testStages(worker), DriverOptions{}, sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, noopOut, out)

	lines := strings.Split(strings.TrimSuffix(diag.String(), "\n"), "\n")
	assert.Len(t, lines, len(eligibleInOrder))
	for _, l := range lines {
		assert.Equal(t, `[ERROR] {"error_code":"54003"}`, l)
	}
	assert.Equal(t, len(eligibleInOrder), report.Failed)
	require.NotNil(t, report.Failures)
	assert.Len(t, report.Errors(), len(eligibleInOrder))
}

func TestTransportErrorRecoverPolicy(t *testing.T) {
	st := testStages(flakyWorker())
	out, report, err := run(t, st, DriverOptions{Policy: PolicyRecover}, sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, out, `"value": "emphasis"`)
	assert.Contains(t, out, `"value": "GUIDE"`)
}

func TestTransportErrorAbortPolicyWritesNothing(t *testing.T) {
	st := testStages(flakyWorker())
	out, report, err := run(t, st, DriverOptions{Policy: PolicyAbort}, sampleDoc)
	require.Error(t, err)
	assert.True(t, translate.IsTransport(err))
	assert.Empty(t, out)
	require.NotNil(t, report)
	assert.GreaterOrEqual(t, report.Failed, 1)
}

func TestProviderErrorAbortPolicyStillRecovers(t *testing.T) {
	st := testStages(WorkerFunc(func(_ context.Context, n *doctree.Node) error {
		if n.Value == "emphasis" {
			return &translate.ProviderError{Backend: "x", Payload: "nope"}
		}
		return nil
	}))
	out, report, err := run(t, st, DriverOptions{Policy: PolicyAbort}, sampleDoc)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, 1, report.Failed)
}

// flakyWorker upper-cases every value except "emphasis", which fails with a
// transport error.
func flakyWorker() Worker {
	return WorkerFunc(func(_ context.Context, n *doctree.Node) error {
		if n.Value == "emphasis" {
			return &translate.TransportError{Backend: "x", Err: errors.New("connection reset")}
		}
		time.Sleep(5 * time.Millisecond)
		n.SetValue(strings.ToUpper(n.Value))
		return nil
	})
}

func TestEmptyInput(t *testing.T) {
	out, _, err := run(t, testStages(NoopWorker), DriverOptions{}, " \n\t\n")
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Empty(t, out)
}

func TestParseFailureWritesNothing(t *testing.T) {
	st := testStages(NoopWorker)
	st.Parse = parser.Func(func(io.Reader) (*doctree.Node, error) {
		return nil, errors.New("broken")
	})
	out, _, err := run(t, st, DriverOptions{}, "x")
	assert.ErrorContains(t, err, "parse: broken")
	assert.Empty(t, out)
}

func TestCompleteProcessorReturnsPreOrderHandles(t *testing.T) {
	root, err := (&parser.RSTParser{}).Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	st := testStages(NoopWorker)
	scope := NewScope(context.Background(), PolicyRecover, 0, discardLogger())
	pending := st.Process.Process(scope, st, root)
	require.NoError(t, scope.Wait())

	var got []string
	for _, p := range pending {
		select {
		case <-p.Done():
		default:
			t.Fatal("handle not settled after Wait")
		}
		assert.NoError(t, p.Err())
		got = append(got, p.Node.Value)
	}
	assert.Equal(t, eligibleInOrder, got)
}

func TestSequentialProcessorWorksInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	var inFlight, maxInFlight atomic.Int32
	rec := WorkerFunc(func(_ context.Context, n *doctree.Node) error {
		cur := inFlight.Add(1)
		if cur > maxInFlight.Load() {
			maxInFlight.Store(cur)
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, n.Value)
		mu.Unlock()
		inFlight.Add(-1)
		return nil
	})

	st := testStages(rec)
	st.Process = SequentialProcessor{}
	_, _, err := run(t, st, DriverOptions{}, sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, eligibleInOrder, order)
	assert.EqualValues(t, 1, maxInFlight.Load())
}

func TestMaxInFlightCapsConcurrency(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	var mu sync.Mutex
	gauge := WorkerFunc(func(_ context.Context, n *doctree.Node) error {
		cur := inFlight.Add(1)
		mu.Lock()
		if cur > maxInFlight.Load() {
			maxInFlight.Store(cur)
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	_, report, err := run(t, testStages(gauge), DriverOptions{MaxInFlight: 2}, sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, len(eligibleInOrder), report.Attempted)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}

func TestDefaultRegistryPseudoEndToEnd(t *testing.T) {
	cfg := config.Config{SourceLang: "en", TargetLang: "zh", PseudoMaxRPS: 50, RequestTimeout: time.Second}
	r, err := NewDefaultRegistry(cfg, Deps{Limits: ratelimit.NewRegistry(), Log: discardLogger()})
	require.NoError(t, err)

	p := config.DefaultPipeline()
	p.Work = "pseudo"
	st, err := r.Resolve(p)
	require.NoError(t, err)

	out, report, err := run(t, st, DriverOptions{}, "Hello world\n\n.. toctree::\n\n   keep\n")
	require.NoError(t, err)
	assert.Contains(t, out, `"value": "⟦HELLO WORLD⟧"`)
	assert.Contains(t, out, `"value": "keep"`)
	assert.Equal(t, 1, report.Attempted)
}
