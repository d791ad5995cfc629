package parser

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docindex/internal/doctree"
)

// TextParser handles plain text files. Form feeds separate pages.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := &doctree.Document{Filename: filepath.Base(filename)}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return doc, nil
	}

	for _, page := range splitPages(text) {
		doc.AddPage(page)
	}
	return doc, nil
}

// splitPages splits on form feeds, dropping the empty page a trailing
// form feed leaves behind.
func splitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
