package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgallion1/doctran/internal/config"
	"github.com/dgallion1/doctran/internal/parser"
)

// ConfigurationError reports a stage selection that cannot be resolved.
type ConfigurationError struct {
	Stage   string
	Variant string
	Known   []string
}

func (e *ConfigurationError) Error() string {
	if e.Known == nil {
		return fmt.Sprintf("unknown stage %q", e.Stage)
	}
	return fmt.Sprintf("unknown %s variant %q (known: %s)", e.Stage, e.Variant, strings.Join(e.Known, ", "))
}

// Registry maps stage and variant names to implementations.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]map[string]any
}

func NewRegistry() *Registry {
	r := &Registry{variants: make(map[string]map[string]any, len(StageNames))}
	for _, s := range StageNames {
		r.variants[s] = make(map[string]any)
	}
	return r
}

// Register adds impl as a variant of stage. impl must implement the stage's
// interface. Registering a name twice replaces the earlier implementation.
func (r *Registry) Register(stage, variant string, impl any) error {
	var ok bool
	switch stage {
	case StageParse:
		_, ok = impl.(parser.Parser)
	case StageProcess:
		_, ok = impl.(Processor)
	case StageFilterWork:
		_, ok = impl.(WorkFilter)
	case StageFilterProcess:
		_, ok = impl.(TraversalFilter)
	case StageWork:
		_, ok = impl.(Worker)
	case StageRender:
		_, ok = impl.(Renderer)
	default:
		return &ConfigurationError{Stage: stage, Variant: variant}
	}
	if !ok {
		return fmt.Errorf("register %s/%s: %T does not implement the %s stage", stage, variant, impl, stage)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[stage][variant] = impl
	return nil
}

// MustRegister is Register for wiring code; it panics on error.
func (r *Registry) MustRegister(stage, variant string, impl any) {
	if err := r.Register(stage, variant, impl); err != nil {
		panic(err)
	}
}

// Lookup returns the implementation of one variant.
func (r *Registry) Lookup(stage, variant string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byName, ok := r.variants[stage]
	if !ok {
		return nil, &ConfigurationError{Stage: stage, Variant: variant}
	}
	impl, ok := byName[variant]
	if !ok {
		return nil, &ConfigurationError{Stage: stage, Variant: variant, Known: sortedKeys(byName)}
	}
	return impl, nil
}

// Variants lists the registered variant names of a stage, sorted.
func (r *Registry) Variants(stage string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.variants[stage])
}

// Resolve looks up every stage of p once. The result never consults the
// registry again.
func (r *Registry) Resolve(p config.Pipeline) (*Stages, error) {
	st := &Stages{Names: p}
	for _, sel := range []struct {
		stage, variant string
		assign         func(any)
	}{
		{StageParse, p.Parse, func(v any) { st.Parse = v.(parser.Parser) }},
		{StageProcess, p.Process, func(v any) { st.Process = v.(Processor) }},
		{StageFilterWork, p.FilterWork, func(v any) { st.FilterWork = v.(WorkFilter) }},
		{StageFilterProcess, p.FilterProcess, func(v any) { st.FilterProcess = v.(TraversalFilter) }},
		{StageWork, p.Work, func(v any) { st.Work = v.(Worker) }},
		{StageRender, p.Render, func(v any) { st.Render = v.(Renderer) }},
	} {
		impl, err := r.Lookup(sel.stage, sel.variant)
		if err != nil {
			return nil, err
		}
		sel.assign(impl)
	}
	return st, nil
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
