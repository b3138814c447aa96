package view

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	gtext "github.com/yuin/goldmark/text"
)

// Heading is one entry in a markdown document's ordered heading list.
type Heading struct {
	Level int
	Text  string
	Line  int // 1-indexed line the heading starts on, in the normalized source
}

// Table is one GFM table found in a markdown document.
type Table struct {
	Header   []string
	Rows     [][]string
	StartRow int
	EndRow   int
}

// Section is the span of lines between one heading and the next heading at
// the same or shallower level (or end of document).
type Section struct {
	Heading   Heading
	StartLine int
	EndLine   int
	Text      string
}

// Markdown is the normalized, parsed markdown view.
type Markdown struct {
	path     string
	raw      string // post-normalization source
	headings []Heading
	tables   []Table
	lines    []string
}

func (m *Markdown) Kind() Kind   { return KindMarkdown }
func (m *Markdown) Path() string { return m.path }

// Headings returns the document's headings in document order.
func (m *Markdown) Headings() []Heading { return m.headings }

// Tables returns the document's GFM tables in document order.
func (m *Markdown) Tables() []Table { return m.tables }

// RawText returns the normalized source in full.
func (m *Markdown) RawText() string { return m.raw }

// Lines returns the normalized source split on newlines (no trailing entry
// for a final newline).
func (m *Markdown) Lines() []string { return m.lines }

// OpenMarkdown reads, normalizes, and parses a markdown file.
func OpenMarkdown(path string) (*Markdown, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open markdown %s: %w", path, err)
	}
	return ParseMarkdown(path, string(raw))
}

// ParseMarkdown normalizes and parses markdown content already in memory.
func ParseMarkdown(path, content string) (*Markdown, error) {
	normalized := normalize(content)
	lines := strings.Split(normalized, "\n")

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	src := []byte(normalized)
	doc := md.Parser().Parse(gtext.NewReader(src))

	offsets := lineStartOffsets(src)

	m := &Markdown{path: path, raw: normalized, lines: lines}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			line := lineForOffset(offsets, firstSegmentStart(node, src))
			m.headings = append(m.headings, Heading{
				Level: node.Level,
				Text:  collectText(node, src),
				Line:  line,
			})
		case *extast.Table:
			tbl := extractTable(node, src, offsets)
			m.tables = append(m.tables, tbl)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown ast %s: %w", path, err)
	}
	return m, nil
}

// Sections derives the heading-delimited sections of the document: each
// section runs from its heading's line to the line before the next heading
// at the same or shallower level, or to the end of the document.
func (m *Markdown) Sections() []Section {
	out := make([]Section, 0, len(m.headings))
	for i, h := range m.headings {
		end := len(m.lines)
		for j := i + 1; j < len(m.headings); j++ {
			if m.headings[j].Level <= h.Level {
				end = m.headings[j].Line - 1
				break
			}
		}
		text := strings.Join(m.lines[min(h.Line, len(m.lines)):min(end, len(m.lines))], "\n")
		out = append(out, Section{Heading: h, StartLine: h.Line, EndLine: end, Text: text})
	}
	return out
}

// SectionByHeading returns the section whose heading text matches re, if any.
func (m *Markdown) SectionByHeading(re *regexp.Regexp) (Section, bool) {
	for _, s := range m.Sections() {
		if re.MatchString(s.Heading.Text) {
			return s, true
		}
	}
	return Section{}, false
}

func collectText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if n.Kind() == ast.KindText {
			t := n.(*ast.Text)
			b.Write(t.Segment.Value(src))
		}
		if n.Kind() == ast.KindString {
			t := n.(*ast.String)
			b.Write(t.Value)
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func extractTable(tbl *extast.Table, src []byte, offsets []int) Table {
	var t Table
	var startLine, endLine int
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, collectText(cell, src))
		}
		switch row.Kind() {
		case extast.KindTableHeader:
			t.Header = cells
			startLine = lineForOffset(offsets, firstSegmentStart(row, src))
		case extast.KindTableRow:
			t.Rows = append(t.Rows, cells)
			endLine = lineForOffset(offsets, firstSegmentStart(row, src))
		}
	}
	t.StartRow = startLine
	t.EndRow = endLine
	return t
}

// firstSegmentStart returns the byte offset of the first text segment under
// n, falling back to 0 when the node carries no direct segment (e.g. a
// container block whose position comes from its first leaf).
func firstSegmentStart(n ast.Node, src []byte) int {
	if b, ok := n.(interface{ Lines() *gtext.Segments }); ok {
		segs := b.Lines()
		if segs.Len() > 0 {
			return segs.At(0).Start
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := firstSegmentStart(c, src); off >= 0 {
			return off
		}
	}
	return 0
}

func lineStartOffsets(src []byte) []int {
	offsets := []int{0}
	for i, b := range src {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func lineForOffset(offsets []int, off int) int {
	// binary search for the last offset <= off
	lo, hi := 0, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if offsets[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

var (
	setextH1       = regexp.MustCompile(`^=+\s*$`)
	setextH2       = regexp.MustCompile(`^-+\s*$`)
	standaloneBold = regexp.MustCompile(`^\*\*([^*]+)\*\*\s*$`)
	tableRowPipes  = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	atxHeading     = regexp.MustCompile(`^(#{1,6})\s+\S`)
)

// atxLevel returns line's ATX heading level, or 0 if it is not one.
func atxLevel(line string) int {
	m := atxHeading.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	return len(m[1])
}

// normalize applies the markdown normalization pass that content-hash
// stability depends on: Setext headings are rewritten to ATX form, a
// standalone bold-emphasis line is promoted to a heading, runs of blank
// lines collapse to one, trailing whitespace is stripped, and table rows
// are pipe-realigned to a consistent column count. Two documents that
// render identically but differ in this surface syntax normalize to the
// same text and therefore hash the same.
func normalize(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	var raw []string
	for scanner.Scan() {
		raw = append(raw, strings.TrimRight(scanner.Text(), " \t"))
	}

	var out []string
	lastHeadingLevel := 0
	for i := 0; i < len(raw); i++ {
		line := raw[i]
		if i+1 < len(raw) && strings.TrimSpace(line) != "" {
			next := raw[i+1]
			if setextH1.MatchString(next) {
				out = append(out, "# "+strings.TrimSpace(line))
				lastHeadingLevel = 1
				i++
				continue
			}
			if setextH2.MatchString(next) {
				out = append(out, "## "+strings.TrimSpace(line))
				lastHeadingLevel = 2
				i++
				continue
			}
		}
		if m := standaloneBold.FindStringSubmatch(line); m != nil {
			isStandalone := (i == 0 || strings.TrimSpace(raw[i-1]) == "") &&
				(i+1 == len(raw) || strings.TrimSpace(raw[i+1]) == "")
			if isStandalone {
				level := lastHeadingLevel + 1
				if lastHeadingLevel == 0 {
					level = 2
				}
				out = append(out, strings.Repeat("#", level)+" "+strings.TrimSpace(m[1]))
				lastHeadingLevel = level
				continue
			}
		}
		if lvl := atxLevel(line); lvl > 0 {
			lastHeadingLevel = lvl
		}
		out = append(out, line)
	}

	out = realignTables(out)
	out = collapseBlankRuns(out)

	return strings.Join(out, "\n")
}

func collapseBlankRuns(lines []string) []string {
	var out []string
	blank := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return out
}

// realignTables ensures every row of a contiguous GFM table run has the same
// number of pipe-delimited columns as its header, padding short rows with
// empty cells rather than leaving a ragged table that parses inconsistently
// across renderers.
func realignTables(lines []string) []string {
	out := make([]string, 0, len(lines))
	i := 0
	for i < len(lines) {
		if !tableRowPipes.MatchString(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		start := i
		for i < len(lines) && tableRowPipes.MatchString(lines[i]) {
			i++
		}
		block := lines[start:i]
		cols := len(splitCells(block[0]))
		for _, row := range block {
			cells := splitCells(row)
			for len(cells) < cols {
				cells = append(cells, "")
			}
			if len(cells) > cols {
				cells = cells[:cols]
			}
			out = append(out, "| "+strings.Join(cells, " | ")+" |")
		}
	}
	return out
}

func splitCells(row string) []string {
	trimmed := strings.TrimSpace(row)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")
	parts := strings.Split(trimmed, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
