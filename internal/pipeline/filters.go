package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"github.com/dgallion1/doctran/internal/doctree"
)

// DefaultWorkFilter accepts text leaves with non-blank content.
var DefaultWorkFilter = WorkFilterFunc(func(n *doctree.Node) bool {
	return n.Kind == doctree.KindText && strings.TrimSpace(n.Value) != ""
})

// DefaultTraversalFilter skips toctree directives and literal blocks.
var DefaultTraversalFilter = TraversalFilterFunc(func(n *doctree.Node) bool {
	if n.Kind == doctree.KindDirective && n.Directive == "toctree" {
		return false
	}
	return n.Kind != doctree.KindLiteralBlock
})

// codeDirectives hold code or markup rather than prose.
var codeDirectives = map[string]bool{
	"toctree":        true,
	"code":           true,
	"code-block":     true,
	"sourcecode":     true,
	"math":           true,
	"raw":            true,
	"highlight":      true,
	"literalinclude": true,
}

// ProseTraversalFilter also skips code-like directives, comments and raw
// nodes.
var ProseTraversalFilter = TraversalFilterFunc(func(n *doctree.Node) bool {
	if !DefaultTraversalFilter(n) {
		return false
	}
	switch n.Kind {
	case doctree.KindComment, doctree.KindRaw:
		return false
	case doctree.KindDirective:
		return !codeDirectives[n.Directive]
	}
	return true
})

// pathLike matches a lone URL, e-mail address or file path.
var pathLike = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.-]*://\S+|www\.\S+|[^\s@]+@[^\s@]+\.[a-zA-Z]{2,}|\.{0,2}/\S*|\S+/\S+|\S+\.[a-zA-Z0-9]{1,5})$`)

// scriptTables maps ISO 15924 codes to the Unicode scripts that make them
// up.
var scriptTables = map[string][]*unicode.RangeTable{
	"Hans": {unicode.Han},
	"Hant": {unicode.Han},
	"Jpan": {unicode.Han, unicode.Hiragana, unicode.Katakana},
	"Kore": {unicode.Hangul, unicode.Han},
	"Cyrl": {unicode.Cyrillic},
	"Arab": {unicode.Arabic},
	"Grek": {unicode.Greek},
	"Hebr": {unicode.Hebrew},
	"Thai": {unicode.Thai},
	"Deva": {unicode.Devanagari},
}

// StrictWorkFilter narrows DefaultWorkFilter: the text must contain a
// letter, must not be a bare URL or path, and is skipped when every letter
// already belongs to the target language's script.
type StrictWorkFilter struct {
	target []*unicode.RangeTable
}

func NewStrictWorkFilter(target language.Tag) *StrictWorkFilter {
	script, _ := target.Script()
	return &StrictWorkFilter{target: scriptTables[script.String()]}
}

func (f *StrictWorkFilter) Eligible(n *doctree.Node) bool {
	if !DefaultWorkFilter(n) {
		return false
	}
	value := strings.TrimSpace(n.Value)
	if pathLike.MatchString(value) {
		return false
	}

	letters, inTarget := 0, 0
	for _, r := range value {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if len(f.target) > 0 && unicode.In(r, f.target...) {
			inTarget++
		}
	}
	if letters == 0 {
		return false
	}
	return len(f.target) == 0 || inTarget < letters
}
