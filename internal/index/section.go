package index

import (
	"fmt"
	"iter"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/docindex/internal/doctree"
)

// DefaultBatchSize is the number of sections sent per upload call.
const DefaultBatchSize = 1000

// Section is one search-index document built from a chunk.
type Section struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Category   string `json:"category"`
	SourcePage string `json:"sourcepage"`
	SourceFile string `json:"sourcefile"`
}

var invalidKeyChars = regexp.MustCompile(`[^0-9a-zA-Z_-]`)

// SectionID builds the document key for the seq-th section of filename.
// Index keys only allow letters, digits, underscore and dash.
func SectionID(filename string, seq int) string {
	return invalidKeyChars.ReplaceAllString(fmt.Sprintf("%s-%d", filename, seq), "_")
}

// SourcePage names the citation target for a page of filename. PDF pages are
// addressed individually as "<name>-<page>.pdf"; other files by base name.
func SourcePage(filename string, page int) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if strings.EqualFold(ext, ".pdf") {
		return fmt.Sprintf("%s-%d.pdf", strings.TrimSuffix(base, ext), page)
	}
	return base
}

// Sections lazily maps chunks of filename to index sections.
func Sections(filename, category string, chunks iter.Seq[doctree.Chunk]) iter.Seq[Section] {
	return func(yield func(Section) bool) {
		for c := range chunks {
			s := Section{
				ID:         SectionID(filename, c.Index),
				Content:    c.Text,
				Category:   category,
				SourcePage: SourcePage(filename, c.Page),
				SourceFile: filename,
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Batches groups sections into slices of at most size, flushing the final
// partial batch. A non-positive size uses DefaultBatchSize.
func Batches(sections iter.Seq[Section], size int) iter.Seq[[]Section] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return func(yield func([]Section) bool) {
		batch := make([]Section, 0, min(size, 64))
		for s := range sections {
			batch = append(batch, s)
			if len(batch) == size {
				if !yield(batch) {
					return
				}
				batch = make([]Section, 0, min(size, 64))
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

// Validate checks a section before upload.
func (s Section) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("section has empty id")
	}
	if invalidKeyChars.MatchString(s.ID) {
		return fmt.Errorf("section id %q contains invalid key characters", s.ID)
	}
	if strings.TrimSpace(s.Content) == "" {
		return fmt.Errorf("section %s has no content", s.ID)
	}
	return nil
}
