package doctree

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Page is one page of a source document. Offset is the character position of
// the page's first character within the concatenated document text.
type Page struct {
	Index  int    // Zero-based page number
	Offset int    // Cumulative character length of all prior pages
	Text   string // Extracted page text
}

// Document is the page map of a loaded source file.
// Offsets and lengths count characters (runes), not bytes.
type Document struct {
	Filename string
	Pages    []Page
}

// Chunk is a section of document text handed to the indexer.
type Chunk struct {
	Text  string // Chunk text content
	Index int    // Sequence number within document
	Page  int    // Page containing Start
	Start int    // Character offset of the first character
	End   int    // Character offset one past the last character
}

// AddPage appends a page, computing its index and offset from the pages before it.
func (d *Document) AddPage(text string) {
	d.Pages = append(d.Pages, Page{
		Index:  len(d.Pages),
		Offset: d.Len(),
		Text:   text,
	})
}

// Len returns the length of the document text in characters.
func (d *Document) Len() int {
	if len(d.Pages) == 0 {
		return 0
	}
	last := d.Pages[len(d.Pages)-1]
	return last.Offset + utf8.RuneCountInString(last.Text)
}

// Text returns the concatenation of all page texts in page order.
func (d *Document) Text() string {
	var sb strings.Builder
	for _, p := range d.Pages {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Validate checks the page map invariants: pages ordered by index and each
// offset equal to the character length of everything before it.
func (d *Document) Validate() error {
	offset := 0
	for i, p := range d.Pages {
		if i > 0 && p.Index <= d.Pages[i-1].Index {
			return fmt.Errorf("page %d: index %d not after previous index %d", i, p.Index, d.Pages[i-1].Index)
		}
		if p.Offset != offset {
			return fmt.Errorf("page %d: offset %d, expected %d", p.Index, p.Offset, offset)
		}
		offset += utf8.RuneCountInString(p.Text)
	}
	return nil
}

// PageAt returns the index of the last page whose offset is <= offset.
// Offsets past the last page start map to the final page.
func (d *Document) PageAt(offset int) int {
	if len(d.Pages) == 0 {
		return 0
	}
	// First page starting after offset; the one before it contains offset.
	i := sort.Search(len(d.Pages), func(i int) bool {
		return d.Pages[i].Offset > offset
	})
	if i == 0 {
		return d.Pages[0].Index
	}
	return d.Pages[i-1].Index
}
