// Package anchor resolves a fingerprint definition's extract rules against
// a matched document and computes the definition's content hash from the
// resolved anchors.
package anchor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
)

const recordSeparator = "\x1e"

// Resolve runs every extract rule in def against doc. Unresolved rules are
// omitted from the returned map and instead produce a warning; the overall
// match is never affected by extract-rule resolution.
func Resolve(def domain.Definition, doc view.Document) (map[string]domain.ExtractedRegion, map[string]string, []domain.Warning) {
	regions := make(map[string]domain.ExtractedRegion)
	contents := make(map[string]string)
	var warnings []domain.Warning

	for _, rule := range def.Extracts {
		region, content, err := resolveOne(rule, doc)
		if err != nil {
			warnings = append(warnings, domain.Warning{
				Tool:    "fingerprint",
				Code:    domain.WarnAnchor,
				Message: "extract rule " + rule.Name + " could not be resolved",
				Detail:  err.Error(),
			})
			continue
		}
		regions[rule.Name] = region
		contents[rule.Name] = content
	}

	return regions, contents, warnings
}

func resolveOne(rule domain.ExtractRule, doc view.Document) (domain.ExtractedRegion, string, error) {
	switch rule.Kind {
	case "range":
		return resolveRange(rule, doc)
	case "table":
		return resolveTable(rule, doc)
	case "section":
		return resolveSection(rule, doc)
	case "text_match":
		return resolveTextMatch(rule, doc)
	default:
		return domain.ExtractedRegion{}, "", fmt.Errorf("unknown extract rule kind %q", rule.Kind)
	}
}

func argString(rule domain.ExtractRule, key string) (string, bool) {
	v, ok := rule.Args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func argInt(rule domain.ExtractRule, key string, def int) int {
	v, ok := rule.Args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

func resolveRange(rule domain.ExtractRule, doc view.Document) (domain.ExtractedRegion, string, error) {
	sheet, ok := doc.(*view.Spreadsheet)
	if !ok {
		return domain.ExtractedRegion{}, "", fmt.Errorf("range extract requires a spreadsheet document")
	}
	sheetName, _ := argString(rule, "sheet")
	rangeRef, ok := argString(rule, "range")
	if !ok {
		return domain.ExtractedRegion{}, "", fmt.Errorf("range extract missing range argument")
	}
	rg, err := view.ParseRange(rangeRef)
	if err != nil {
		return domain.ExtractedRegion{}, "", err
	}
	cells, err := sheet.Cells(sheetName, rg)
	if err != nil {
		return domain.ExtractedRegion{}, "", err
	}
	var parts []string
	for _, row := range cells {
		for _, v := range row {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	region := domain.ExtractedRegion{
		Kind: rule.Kind,
		Meta: map[string]any{"range": rangeRef, "row_count": len(cells)},
	}
	return region, strings.Join(parts, recordSeparator), nil
}

func resolveTable(rule domain.ExtractRule, doc view.Document) (domain.ExtractedRegion, string, error) {
	md, ok := markdownOf(doc)
	if !ok {
		return domain.ExtractedRegion{}, "", fmt.Errorf("table extract requires a structured-text document")
	}
	heading, _ := argString(rule, "heading")
	index := argInt(rule, "index", 0)

	matches := matchingTables(md, heading)
	if index < 0 || index >= len(matches) {
		return domain.ExtractedRegion{}, "", fmt.Errorf("table index %d out of range (%d tables under heading %q)", index, len(matches), heading)
	}
	t := matches[index]

	lines := md.Lines()
	start, end := t.StartRow, t.EndRow
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	span := strings.Join(lines[start-1:end], "\n")

	region := domain.ExtractedRegion{
		Kind: rule.Kind,
		Meta: map[string]any{
			"start_line": start,
			"end_line":   end,
			"columns":    t.Header,
			"row_count":  len(t.Rows),
		},
	}
	return region, span, nil
}

func matchingTables(md *view.Markdown, headingPattern string) []view.Table {
	if headingPattern == "" {
		return md.Tables()
	}
	re, err := regexp.Compile(headingPattern)
	if err != nil {
		return nil
	}
	section, found := md.SectionByHeading(re)
	if !found {
		return nil
	}
	var out []view.Table
	for _, t := range md.Tables() {
		if t.StartRow >= section.StartLine && t.StartRow <= section.EndLine {
			out = append(out, t)
		}
	}
	return out
}

func resolveSection(rule domain.ExtractRule, doc view.Document) (domain.ExtractedRegion, string, error) {
	md, ok := markdownOf(doc)
	if !ok {
		return domain.ExtractedRegion{}, "", fmt.Errorf("section extract requires a structured-text document")
	}
	heading, ok := argString(rule, "heading")
	if !ok {
		return domain.ExtractedRegion{}, "", fmt.Errorf("section extract missing heading argument")
	}
	re, err := regexp.Compile(heading)
	if err != nil {
		return domain.ExtractedRegion{}, "", err
	}
	section, found := md.SectionByHeading(re)
	if !found {
		return domain.ExtractedRegion{}, "", fmt.Errorf("no section under heading matching %q", heading)
	}
	region := domain.ExtractedRegion{
		Kind: rule.Kind,
		Meta: map[string]any{
			"start_line": section.StartLine,
			"end_line":   section.EndLine,
			"heading":    section.Heading.Text,
		},
	}
	return region, section.Text, nil
}

func resolveTextMatch(rule domain.ExtractRule, doc view.Document) (domain.ExtractedRegion, string, error) {
	text, lines, ok := contentText(doc)
	if !ok {
		return domain.ExtractedRegion{}, "", fmt.Errorf("text_match extract requires a text-bearing document")
	}
	anchorPat, _ := argString(rule, "anchor")
	pattern, _ := argString(rule, "pattern")
	within := argInt(rule, "within_chars", 0)

	anchorRe, err := regexp.Compile(anchorPat)
	if err != nil {
		return domain.ExtractedRegion{}, "", err
	}
	patternRe, err := regexp.Compile(pattern)
	if err != nil {
		return domain.ExtractedRegion{}, "", err
	}

	anchors := anchorRe.FindAllStringIndex(text, -1)
	for _, a := range anchors {
		lo := a[0] - within
		if lo < 0 {
			lo = 0
		}
		hi := a[1] + within
		if hi > len(text) {
			hi = len(text)
		}
		rel := patternRe.FindStringIndex(text[lo:hi])
		if rel == nil {
			continue
		}
		absStart := lo + rel[0]
		absEnd := lo + rel[1]
		matched := text[absStart:absEnd]
		line := lineOf(lines, text, absStart)
		charOffset := absStart - offsetOfLineStart(lines, line)
		region := domain.ExtractedRegion{
			Kind: rule.Kind,
			Meta: map[string]any{
				"line":        line,
				"char_offset": charOffset,
				"matched":     matched,
			},
		}
		return region, matched, nil
	}
	return domain.ExtractedRegion{}, "", fmt.Errorf("no text_match resolved for anchor %q / pattern %q", anchorPat, pattern)
}

func lineOf(lines []string, text string, offset int) int {
	count := 0
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			count++
		}
	}
	if count+1 > len(lines) {
		return len(lines)
	}
	return count + 1
}

func offsetOfLineStart(lines []string, line int) int {
	off := 0
	for i := 0; i < line-1 && i < len(lines); i++ {
		off += len(lines[i]) + 1
	}
	return off
}

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
