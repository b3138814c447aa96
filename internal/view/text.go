package view

import (
	"fmt"
	"os"
	"strings"
)

// Text is the plain-text view: the whole file content plus a precomputed
// line count, used by text_contains/text_regex/text_near assertions.
type Text struct {
	path    string
	content string
	lines   []string
}

func (t *Text) Kind() Kind   { return KindText }
func (t *Text) Path() string { return t.path }

// Content returns the full file content.
func (t *Text) Content() string { return t.content }

// Lines returns the content split on newlines.
func (t *Text) Lines() []string { return t.lines }

// LineCount returns the number of lines.
func (t *Text) LineCount() int { return len(t.lines) }

// OpenText reads a plain-text file.
func OpenText(path string) (*Text, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open text %s: %w", path, err)
	}
	content := string(raw)
	return &Text{path: path, content: content, lines: strings.Split(content, "\n")}, nil
}
