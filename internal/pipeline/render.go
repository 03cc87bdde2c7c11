package pipeline

import (
	"encoding/json"
	"io"

	"github.com/dgallion1/doctran/internal/doctree"
)

// JSONRenderer writes the tree as indented JSON. Keys follow struct order
// and option maps are written with sorted keys, so equal trees render to
// equal bytes.
type JSONRenderer struct{}

func (JSONRenderer) Render(w io.Writer, n *doctree.Node) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(n)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(w io.Writer, n *doctree.Node) error

func (f RendererFunc) Render(w io.Writer, n *doctree.Node) error { return f(w, n) }
