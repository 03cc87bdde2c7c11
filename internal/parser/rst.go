package parser

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/doctran/internal/doctree"
)

// RSTParser handles the reStructuredText subset found in Sphinx docs:
// sections, paragraphs, literal blocks, bullet and enumerated lists, block
// quotes, directives, comments, transitions, doctest blocks and the common
// inline markup.
type RSTParser struct{}

var (
	directiveRe = regexp.MustCompile(`^\.\.\s+([A-Za-z0-9][\w:+.-]*)::(?:\s+(.*))?$`)
	optionRe    = regexp.MustCompile(`^:([\w-]+):(?:\s+(.*))?$`)
	bulletRe    = regexp.MustCompile(`^([-*+])(\s+)(.*)$`)
	enumRe      = regexp.MustCompile(`^(\d+|#)([.)])(\s+)(.*)$`)
	inlineRe    = regexp.MustCompile("(?s)``(.+?)``|\\*\\*(.+?)\\*\\*|\\*([^*\\s](?:.*?[^\\s])?)\\*|:([\\w:+.-]+):`(.+?)`|`(.+?)`(__?)?")
	refTargetRe = regexp.MustCompile(`(?s)^(.*?)\s*<([^<>]+)>$`)
)

const adornmentChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Directives whose content is verbatim.
var literalDirectives = map[string]bool{
	"code":       true,
	"code-block": true,
	"sourcecode": true,
	"math":       true,
	"raw":        true,
}

func (p *RSTParser) Parse(r io.Reader) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(src), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "        ")

	b := &rstBuilder{}
	return b.document(strings.Split(text, "\n")), nil
}

type rstBuilder struct {
	// Adornment styles in order of first appearance; index+1 is the depth.
	styles []string
}

func (b *rstBuilder) document(lines []string) *doctree.Node {
	doc := doctree.New(doctree.KindDocument)

	type stackEntry struct {
		node  *doctree.Node
		level int
	}
	stack := []stackEntry{{node: doc, level: 0}}

	for i := 0; i < len(lines); {
		if blank(lines[i]) {
			i++
			continue
		}
		if title, style, n, ok := b.sectionTitle(lines, i); ok {
			level := b.level(style)
			sec := &doctree.Node{
				Kind:     doctree.KindSection,
				Depth:    level,
				Children: []*doctree.Node{doctree.New(doctree.KindTitle, inline(title)...)},
			}
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack[len(stack)-1].node.Append(sec)
			stack = append(stack, stackEntry{node: sec, level: level})
			i += n
			continue
		}
		nodes, n := b.block(lines, i)
		stack[len(stack)-1].node.Append(nodes...)
		i += n
	}
	return doc
}

func (b *rstBuilder) level(style string) int {
	for i, s := range b.styles {
		if s == style {
			return i + 1
		}
	}
	b.styles = append(b.styles, style)
	return len(b.styles)
}

// sectionTitle recognises overline+underline and underline-only titles at lines[i].
func (b *rstBuilder) sectionTitle(lines []string, i int) (title, style string, consumed int, ok bool) {
	line := lines[i]
	if c, isAd := adornment(line); isAd && i+2 < len(lines) {
		text := lines[i+1]
		if c2, ok2 := adornment(lines[i+2]); ok2 && c2 == c && !blank(text) {
			if _, textAd := adornment(text); !textAd {
				return strings.TrimSpace(text), "over" + string(c), 3, true
			}
		}
	}
	if i+1 >= len(lines) || blank(line) || indent(line) > 0 {
		return "", "", 0, false
	}
	if _, isAd := adornment(line); isAd {
		return "", "", 0, false
	}
	c, isAd := adornment(lines[i+1])
	if !isAd {
		return "", "", 0, false
	}
	title = strings.TrimSpace(line)
	if utf8.RuneCountInString(strings.TrimRight(lines[i+1], " ")) < utf8.RuneCountInString(title) {
		return "", "", 0, false
	}
	return title, "under" + string(c), 2, true
}

// blocks parses a dedented body that cannot contain sections.
func (b *rstBuilder) blocks(lines []string) []*doctree.Node {
	var out []*doctree.Node
	for i := 0; i < len(lines); {
		if blank(lines[i]) {
			i++
			continue
		}
		nodes, n := b.block(lines, i)
		out = append(out, nodes...)
		i += n
	}
	return out
}

// block parses one body element starting at the non-blank line lines[i].
// It always consumes at least one line.
func (b *rstBuilder) block(lines []string, i int) ([]*doctree.Node, int) {
	line := lines[i]
	switch {
	case indent(line) > 0:
		body, n := indented(lines, i)
		return []*doctree.Node{doctree.New(doctree.KindBlockQuote, b.blocks(body)...)}, n
	case strings.HasPrefix(line, ".. ") || strings.TrimSpace(line) == "..":
		return b.explicit(lines, i)
	case bulletRe.MatchString(line):
		return b.list(lines, i, doctree.KindBulletList, bulletRe)
	case enumRe.MatchString(line):
		return b.list(lines, i, doctree.KindEnumeratedList, enumRe)
	case strings.HasPrefix(line, ">>>"):
		return b.doctest(lines, i)
	}
	if _, isAd := adornment(line); isAd && len(strings.TrimSpace(line)) >= 4 {
		return []*doctree.Node{doctree.New(doctree.KindTransition)}, 1
	}
	return b.paragraph(lines, i)
}

// explicit parses directives and comments (".. " markup).
func (b *rstBuilder) explicit(lines []string, i int) ([]*doctree.Node, int) {
	header := strings.TrimRight(lines[i], " ")
	body, n := indented(lines, i+1)
	consumed := 1 + n

	m := directiveRe.FindStringSubmatch(header)
	if m == nil {
		text := strings.TrimSpace(strings.TrimPrefix(header, ".."))
		if len(body) > 0 {
			text = strings.TrimSpace(text + "\n" + strings.Join(body, "\n"))
		}
		return []*doctree.Node{{Kind: doctree.KindComment, Value: text}}, consumed
	}

	d := &doctree.Node{
		Kind:      doctree.KindDirective,
		Directive: strings.ToLower(m[1]),
		Args:      strings.TrimSpace(m[2]),
	}
	j := 0
	for ; j < len(body); j++ {
		om := optionRe.FindStringSubmatch(body[j])
		if om == nil {
			break
		}
		if d.Options == nil {
			d.Options = make(map[string]string)
		}
		d.Options[om[1]] = strings.TrimSpace(om[2])
	}
	content := body[j:]

	switch {
	case d.Directive == "toctree":
		for _, l := range content {
			if !blank(l) {
				d.Append(doctree.NewText(strings.TrimSpace(l)))
			}
		}
	case literalDirectives[d.Directive]:
		if text := strings.Trim(strings.Join(content, "\n"), "\n"); text != "" {
			d.Append(doctree.New(doctree.KindLiteralBlock, doctree.NewText(text)))
		}
	default:
		d.Append(b.blocks(content)...)
	}
	return []*doctree.Node{d}, consumed
}

func (b *rstBuilder) list(lines []string, i int, kind string, re *regexp.Regexp) ([]*doctree.Node, int) {
	list := doctree.New(kind)
	start, end := i, i

	for i < len(lines) {
		m := re.FindStringSubmatch(lines[i])
		if m == nil {
			break
		}
		first := m[len(m)-1]
		column := len(lines[i]) - len(first)

		last := i + 1
		for j := i + 1; j < len(lines); j++ {
			if blank(lines[j]) {
				continue
			}
			if indent(lines[j]) == 0 {
				break
			}
			last = j + 1
		}

		body := []string{first}
		for _, l := range lines[i+1 : last] {
			if blank(l) {
				body = append(body, "")
				continue
			}
			body = append(body, l[min(indent(l), column):])
		}
		list.Append(doctree.New(doctree.KindListItem, b.blocks(body)...))

		end = last
		i = last
		for i < len(lines) && blank(lines[i]) {
			i++
		}
	}
	return []*doctree.Node{list}, end - start
}

func (b *rstBuilder) doctest(lines []string, i int) ([]*doctree.Node, int) {
	start := i
	for i < len(lines) && !blank(lines[i]) {
		i++
	}
	text := strings.Join(lines[start:i], "\n")
	return []*doctree.Node{{
		Kind:     doctree.KindLiteralBlock,
		Role:     "doctest",
		Children: []*doctree.Node{doctree.NewText(text)},
	}}, i - start
}

// paragraph consumes lines up to the next blank line. A trailing "::" turns
// the following indented block into a literal block.
func (b *rstBuilder) paragraph(lines []string, i int) ([]*doctree.Node, int) {
	start := i
	var buf []string
	for i < len(lines) && !blank(lines[i]) && (i == start || indent(lines[i]) == 0) {
		buf = append(buf, strings.TrimRight(lines[i], " "))
		i++
	}
	text := strings.Join(buf, "\n")

	expectLiteral := strings.HasSuffix(text, "::")
	switch {
	case text == "::":
		text = ""
	case strings.HasSuffix(text, " ::"):
		text = strings.TrimSuffix(text, " ::")
	case expectLiteral:
		text = strings.TrimSuffix(text, ":")
	}

	var out []*doctree.Node
	if text != "" {
		out = append(out, doctree.New(doctree.KindParagraph, inline(text)...))
	}
	if !expectLiteral {
		return out, i - start
	}

	j := i
	for j < len(lines) && blank(lines[j]) {
		j++
	}
	if j < len(lines) && indent(lines[j]) > 0 {
		body, n := indented(lines, j)
		out = append(out, doctree.New(doctree.KindLiteralBlock, doctree.NewText(strings.Join(body, "\n"))))
		return out, j + n - start
	}
	return out, i - start
}

// inline splits paragraph text into text leaves and inline markup nodes.
func inline(text string) []*doctree.Node {
	var out []*doctree.Node
	pos := 0
	for _, m := range inlineRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > pos {
			out = append(out, doctree.NewText(text[pos:m[0]]))
		}
		out = append(out, inlineNode(text, m))
		pos = m[1]
	}
	if pos < len(text) {
		out = append(out, doctree.NewText(text[pos:]))
	}
	return out
}

func inlineNode(text string, m []int) *doctree.Node {
	group := func(k int) (string, bool) {
		if m[2*k] < 0 {
			return "", false
		}
		return text[m[2*k]:m[2*k+1]], true
	}

	if s, ok := group(1); ok {
		return &doctree.Node{Kind: doctree.KindLiteral, Value: s}
	}
	if s, ok := group(2); ok {
		return doctree.New(doctree.KindStrong, doctree.NewText(s))
	}
	if s, ok := group(3); ok {
		return doctree.New(doctree.KindEmphasis, doctree.NewText(s))
	}
	if role, ok := group(4); ok {
		s, _ := group(5)
		return &doctree.Node{Kind: doctree.KindInterpretedText, Role: role, Value: s}
	}
	s, _ := group(6)
	if _, isRef := group(7); isRef {
		ref := &doctree.Node{Kind: doctree.KindReference}
		if mm := refTargetRe.FindStringSubmatch(s); mm != nil {
			ref.Options = map[string]string{"refuri": mm[2]}
			s = mm[1]
		}
		if s != "" {
			ref.Append(doctree.NewText(s))
		}
		return ref
	}
	return &doctree.Node{Kind: doctree.KindInterpretedText, Value: s}
}

// adornment reports whether line is a section adornment and returns its character.
func adornment(line string) (byte, bool) {
	s := strings.TrimRight(line, " ")
	if len(s) < 2 || !strings.ContainsRune(adornmentChars, rune(s[0])) {
		return 0, false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return 0, false
		}
	}
	return s[0], true
}

// indented collects the indented block starting at lines[start] and returns
// it dedented, along with the number of lines consumed. Trailing blank lines
// are not consumed.
func indented(lines []string, start int) ([]string, int) {
	last := start
	for j := start; j < len(lines); j++ {
		if blank(lines[j]) {
			continue
		}
		if indent(lines[j]) == 0 {
			break
		}
		last = j + 1
	}
	return dedent(lines[start:last]), last - start
}

func dedent(lines []string) []string {
	common := -1
	for _, l := range lines {
		if blank(l) {
			continue
		}
		if n := indent(l); common < 0 || n < common {
			common = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if blank(l) {
			continue
		}
		out[i] = l[common:]
	}
	return out
}

func indent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

func blank(line string) bool {
	return strings.TrimSpace(line) == ""
}
