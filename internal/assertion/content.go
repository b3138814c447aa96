package assertion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
)

// markdownOf returns the structured-text view backing doc: itself for a
// markdown document, or its attached inner view for a PDF (loaded lazily
// from the record's text_path). Plain text documents have no structure.
func markdownOf(doc view.Document) (*view.Markdown, bool) {
	switch d := doc.(type) {
	case *view.Markdown:
		return d, true
	case *view.PDF:
		if d.Inner() != nil {
			return d.Inner(), true
		}
	}
	return nil, false
}

// noTextDetail reports the E_NO_TEXT detail string for a content assertion
// invoked against a PDF view with no text_path attached; it is an
// assertion-level failure, not a refusal or a per-record skip.
func noTextDetail(doc view.Document, fallback string) string {
	if p, ok := doc.(*view.PDF); ok && p.Inner() == nil {
		return "E_NO_TEXT: content assertion invoked without text_path"
	}
	return fallback
}

// contentText returns the whole text and line list for any content-bearing
// document: markdown (normalized source), plain text, or a PDF's inner
// markdown view.
func contentText(doc view.Document) (text string, lines []string, ok bool) {
	switch d := doc.(type) {
	case *view.Markdown:
		return d.RawText(), d.Lines(), true
	case *view.Text:
		return d.Content(), d.Lines(), true
	case *view.PDF:
		if inner := d.Inner(); inner != nil {
			return inner.RawText(), inner.Lines(), true
		}
	}
	return "", nil, false
}

func assertHeadingExists(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	md, ok := markdownOf(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no structured headings"))
	}
	pattern, _ := argString(a, "pattern")
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}
	for _, h := range md.Headings() {
		if re.MatchString(h.Text) {
			return pass(a.Name, "heading matched: "+h.Text)
		}
	}
	r := fail(a.Name, "no heading matched "+pattern)
	if env.Diagnose {
		r.Context = headingContext(md, pattern)
	}
	return r
}

func assertHeadingRegex(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	// Identical predicate shape to heading_exists; kept distinct because
	// fingerprint authors reach for the two names in different contexts
	// (existence check vs. content capture).
	return assertHeadingExists(doc, a, env)
}

func assertHeadingLevel(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	md, ok := markdownOf(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no structured headings"))
	}
	pattern, _ := argString(a, "pattern")
	level := argInt(a, "level", 0)
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}
	for _, h := range md.Headings() {
		if h.Level == level && re.MatchString(h.Text) {
			return pass(a.Name, fmt.Sprintf("level %d heading matched: %s", level, h.Text))
		}
	}
	r := fail(a.Name, fmt.Sprintf("no level-%d heading matched %s", level, pattern))
	if env.Diagnose {
		r.Context = headingContext(md, pattern)
	}
	return r
}

func headingContext(md *view.Markdown, pattern string) map[string]any {
	headings := make([]string, 0, len(md.Headings()))
	for _, h := range md.Headings() {
		headings = append(headings, h.Text)
	}
	nearest, dist := "", -1
	for _, h := range headings {
		d := editDistance(strings.ToLower(h), strings.ToLower(pattern))
		if dist == -1 || d < dist {
			dist = d
			nearest = h
		}
	}
	return map[string]any{"headings": headings, "nearest_match": nearest}
}

// editDistance is a plain Levenshtein distance, used only to surface the
// closest heading when a diagnose-mode heading assertion fails.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func assertTextContains(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	text, _, ok := contentText(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no text content"))
	}
	needle, _ := argString(a, "text")
	if strings.Contains(text, needle) {
		return pass(a.Name, "contains "+needle)
	}
	r := fail(a.Name, "does not contain "+needle)
	if env.Diagnose {
		r.Context = nearMisses(text, needle)
	}
	return r
}

func assertTextRegex(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	text, _, ok := contentText(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no text content"))
	}
	pattern, _ := argString(a, "pattern")
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}
	if re.MatchString(text) {
		return pass(a.Name, "matched "+pattern)
	}
	r := fail(a.Name, "no match for "+pattern)
	if env.Diagnose {
		r.Context = nearMisses(text, pattern)
	}
	return r
}

// nearMisses returns up to five distinct words of text with the smallest
// case-insensitive edit distance to needle, approximating "close but not
// quite" matches for diagnose mode.
func nearMisses(text, needle string) map[string]any {
	words := strings.Fields(text)
	type scored struct {
		word  string
		score int
	}
	var scoredWords []scored
	seen := make(map[string]bool)
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		scoredWords = append(scoredWords, scored{w, editDistance(strings.ToLower(w), strings.ToLower(needle))})
	}
	sort.Slice(scoredWords, func(i, j int) bool { return scoredWords[i].score < scoredWords[j].score })
	out := make([]string, 0, 5)
	for i := 0; i < len(scoredWords) && i < 5; i++ {
		out = append(out, scoredWords[i].word)
	}
	return map[string]any{"near_misses": out}
}

// assertTextNear passes if any occurrence of the anchor regex has a match
// of pattern within within_chars characters, searched bidirectionally.
func assertTextNear(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	text, _, ok := contentText(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no text content"))
	}
	anchorPat, _ := argString(a, "anchor")
	pattern, _ := argString(a, "pattern")
	within := argInt(a, "within_chars", 0)

	anchorRe, err := compileRegex(anchorPat)
	if err != nil {
		return fail(a.Name, "invalid anchor: "+err.Error())
	}
	patternRe, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}

	anchors := anchorRe.FindAllStringIndex(text, -1)
	if anchors == nil {
		r := fail(a.Name, "anchor not found: "+anchorPat)
		if env.Diagnose {
			r.Context = map[string]any{"anchor_found": false}
		}
		return r
	}

	matches := patternRe.FindAllStringIndex(text, -1)
	prefix := collapsedDistancePrefix(text)
	for _, aLoc := range anchors {
		for _, mLoc := range matches {
			if collapsedGap(prefix, aLoc, mLoc) <= within {
				return pass(a.Name, "pattern matched within range of anchor")
			}
		}
	}
	r := fail(a.Name, "no pattern match within "+fmt.Sprint(within)+" chars of anchor")
	if env.Diagnose {
		r.Context = map[string]any{"anchor_found": true, "matches_beyond_range": matchesOutsideRange(text, matches, anchors, prefix, within)}
	}
	return r
}

// collapsedDistancePrefix returns, for every byte offset in text, the
// cumulative distance used for text_near range checks: each byte counts as
// 1 except a maximal whitespace-only run shorter than 10 bytes, which
// counts as 1 for the whole run. prefix[i] is the distance from the start
// of text up to (not including) byte i.
func collapsedDistancePrefix(text string) []int {
	prefix := make([]int, len(text)+1)
	cum := 0
	i := 0
	for i < len(text) {
		if isNearSpace(text[i]) {
			j := i
			for j < len(text) && isNearSpace(text[j]) {
				j++
			}
			if j-i < 10 {
				cum++
				for k := i; k < j; k++ {
					prefix[k+1] = cum
				}
			} else {
				for k := i; k < j; k++ {
					cum++
					prefix[k+1] = cum
				}
			}
			i = j
			continue
		}
		cum++
		prefix[i+1] = cum
		i++
	}
	return prefix
}

func isNearSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// collapsedGap returns the collapsed distance between two byte ranges
// (half-open [start,end) pairs), 0 when they overlap or touch.
func collapsedGap(prefix []int, a, b []int) int {
	if a[0] > b[0] {
		a, b = b, a
	}
	if a[1] >= b[0] {
		return 0
	}
	return prefix[b[0]] - prefix[a[1]]
}

func matchesOutsideRange(text string, matches, anchors [][]int, prefix []int, within int) []string {
	var out []string
	for _, m := range matches {
		inRange := false
		for _, a := range anchors {
			if collapsedGap(prefix, a, m) <= within {
				inRange = true
				break
			}
		}
		if !inRange {
			out = append(out, text[m[0]:m[1]])
			if len(out) >= 5 {
				break
			}
		}
	}
	return out
}

func assertSectionNonEmpty(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	md, ok := markdownOf(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no sections"))
	}
	pattern, _ := argString(a, "heading")
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid heading pattern: "+err.Error())
	}
	section, found := md.SectionByHeading(re)
	if !found {
		return fail(a.Name, "no section under heading matching "+pattern)
	}
	if strings.TrimSpace(section.Text) != "" {
		return pass(a.Name, "section under "+section.Heading.Text+" is non-empty")
	}
	r := fail(a.Name, "section under "+section.Heading.Text+" is empty")
	if env.Diagnose {
		r.Context = map[string]any{"line_count": len(strings.Split(section.Text, "\n"))}
	}
	return r
}

func assertSectionMinLines(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	md, ok := markdownOf(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no sections"))
	}
	pattern, _ := argString(a, "heading")
	minLines := argInt(a, "min", 0)
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid heading pattern: "+err.Error())
	}
	section, found := md.SectionByHeading(re)
	if !found {
		return fail(a.Name, "no section under heading matching "+pattern)
	}
	count := section.EndLine - section.StartLine + 1
	if count >= minLines {
		return pass(a.Name, fmt.Sprintf("section has %d lines", count))
	}
	r := fail(a.Name, fmt.Sprintf("section has %d lines, want >= %d", count, minLines))
	if env.Diagnose {
		r.Context = map[string]any{"line_count": count}
	}
	return r
}

func findTable(md *view.Markdown, headingPattern string) (view.Table, view.Heading, bool) {
	if headingPattern == "" {
		if len(md.Tables()) > 0 {
			return md.Tables()[0], view.Heading{}, true
		}
		return view.Table{}, view.Heading{}, false
	}
	re, err := compileRegex(headingPattern)
	if err != nil {
		return view.Table{}, view.Heading{}, false
	}
	section, found := md.SectionByHeading(re)
	if !found {
		return view.Table{}, view.Heading{}, false
	}
	for _, t := range md.Tables() {
		if t.StartRow >= section.StartLine && t.StartRow <= section.EndLine {
			return t, section.Heading, true
		}
	}
	return view.Table{}, view.Heading{}, false
}

func assertTableExists(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	md, ok := markdownOf(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no tables"))
	}
	heading, _ := argString(a, "heading")
	if _, _, found := findTable(md, heading); found {
		return pass(a.Name, "table present")
	}
	r := fail(a.Name, "no table found under heading "+heading)
	if env.Diagnose {
		r.Context = tableContext(md)
	}
	return r
}

func tableContext(md *view.Markdown) map[string]any {
	tables := make([]map[string]any, 0, len(md.Tables()))
	for _, t := range md.Tables() {
		tables = append(tables, map[string]any{"columns": t.Header, "row_count": len(t.Rows)})
	}
	return map[string]any{"tables": tables}
}

func assertTableColumns(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	md, ok := markdownOf(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no tables"))
	}
	heading, _ := argString(a, "heading")
	patterns := argStringSlice(a, "columns")
	t, _, found := findTable(md, heading)
	if !found {
		r := fail(a.Name, "no table found under heading "+heading)
		if env.Diagnose {
			r.Context = tableContext(md)
		}
		return r
	}
	if len(patterns) > len(t.Header) {
		return fail(a.Name, "table has fewer columns than patterns given")
	}
	for i, p := range patterns {
		re, err := compileRegex(p)
		if err != nil {
			return fail(a.Name, "invalid column pattern: "+err.Error())
		}
		if !re.MatchString(t.Header[i]) {
			r := fail(a.Name, fmt.Sprintf("column %d (%q) did not match %s", i, t.Header[i], p))
			if env.Diagnose {
				r.Context = tableContext(md)
			}
			return r
		}
	}
	return pass(a.Name, "table columns matched")
}

func assertTableShape(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	md, ok := markdownOf(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no tables"))
	}
	heading, _ := argString(a, "heading")
	minCols := argInt(a, "min_columns", 0)
	types := argStringSlice(a, "types")

	t, _, found := findTable(md, heading)
	if !found {
		r := fail(a.Name, "no table found under heading "+heading)
		if env.Diagnose {
			r.Context = tableContext(md)
		}
		return r
	}
	if len(t.Header) < minCols {
		r := fail(a.Name, fmt.Sprintf("table has %d columns, want >= %d", len(t.Header), minCols))
		if env.Diagnose {
			r.Context = tableContext(md)
		}
		return r
	}
	if len(types) > 0 {
		inferred := inferColumnTypes(t)
		for i, want := range types {
			if i >= len(inferred) {
				break
			}
			if !typesCompatible(inferred[i], want) {
				r := fail(a.Name, fmt.Sprintf("column %d inferred %s, want %s", i, inferred[i], want))
				if env.Diagnose {
					r.Context = tableContext(md)
				}
				return r
			}
		}
	}
	return pass(a.Name, "table shape matched")
}

func assertTableMinRows(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	md, ok := markdownOf(doc)
	if !ok {
		return fail(a.Name, noTextDetail(doc, "document has no tables"))
	}
	heading, _ := argString(a, "heading")
	minRows := argInt(a, "min", 0)
	t, _, found := findTable(md, heading)
	if !found {
		r := fail(a.Name, "no table found under heading "+heading)
		if env.Diagnose {
			r.Context = tableContext(md)
		}
		return r
	}
	if len(t.Rows) >= minRows {
		return pass(a.Name, fmt.Sprintf("table has %d rows", len(t.Rows)))
	}
	r := fail(a.Name, fmt.Sprintf("table has %d rows, want >= %d", len(t.Rows), minRows))
	if env.Diagnose {
		r.Context = tableContext(md)
	}
	return r
}

func asPDF(doc view.Document) (*view.PDF, bool) {
	p, ok := doc.(*view.PDF)
	return p, ok
}

func assertPageCount(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	p, ok := asPDF(doc)
	if !ok {
		return fail(a.Name, "not a pdf document")
	}
	min := argInt(a, "min", 0)
	max := argInt(a, "max", 1<<30)
	n := p.PageCount()
	if n >= min && n <= max {
		return pass(a.Name, fmt.Sprintf("%d pages", n))
	}
	return fail(a.Name, fmt.Sprintf("%d pages, want between %d and %d", n, min, max))
}

func assertMetadataRegex(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	p, ok := asPDF(doc)
	if !ok {
		return fail(a.Name, "not a pdf document")
	}
	key, _ := argString(a, "key")
	pattern, _ := argString(a, "pattern")
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}
	val, present := p.Metadata()[key]
	if present && re.MatchString(val) {
		return pass(a.Name, key+" matched "+pattern)
	}
	return fail(a.Name, key+" did not match "+pattern)
}
