package chunker

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docindex/internal/doctree"
)

// Config controls chunking behavior. All lengths are in characters.
type Config struct {
	MaxSectionLength    int // Target chunk length before boundary adjustment.
	SentenceSearchLimit int // How far to scan for a sentence end or word break.
	SectionOverlap      int // Overlap between consecutive chunks.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSectionLength:    1000,
		SentenceSearchLimit: 100,
		SectionOverlap:      100,
	}
}

// WithDefaults replaces unset fields with their defaults. Lengths are unset
// when non-positive; zero overlap is a valid setting, so only a negative
// overlap falls back.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.MaxSectionLength <= 0 {
		c.MaxSectionLength = def.MaxSectionLength
	}
	if c.SentenceSearchLimit <= 0 {
		c.SentenceSearchLimit = def.SentenceSearchLimit
	}
	if c.SectionOverlap < 0 {
		c.SectionOverlap = def.SectionOverlap
	}
	return c
}

// Validate checks that the window can always move forward.
func (c Config) Validate() error {
	if c.MaxSectionLength <= 0 || c.SentenceSearchLimit <= 0 {
		return fmt.Errorf("chunker: lengths must be positive (max=%d search=%d)",
			c.MaxSectionLength, c.SentenceSearchLimit)
	}
	if c.SectionOverlap < 0 {
		return fmt.Errorf("chunker: overlap %d must not be negative", c.SectionOverlap)
	}
	if c.SectionOverlap >= c.MaxSectionLength {
		return fmt.Errorf("chunker: overlap %d must be smaller than max section length %d",
			c.SectionOverlap, c.MaxSectionLength)
	}
	return nil
}

const (
	tableOpen  = "<table"
	tableClose = "</table"
)

func isSentenceEnding(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isWordBreak(r rune) bool {
	switch r {
	case ',', ';', ':', ' ', '(', ')', '[', ']', '{', '}', '\t', '\n':
		return true
	}
	return false
}

// boundary is an optional text offset.
type boundary struct {
	pos int
	ok  bool
}

func (b *boundary) set(pos int) {
	b.pos = pos
	b.ok = true
}

// Split breaks the document text into overlapping sections that prefer to
// end on sentence endings, then word breaks. The returned sequence is lazy;
// each range over it recomputes the chunks from the start of the document.
// Zero config fields fall back to defaults.
func Split(doc *doctree.Document, cfg Config) (iter.Seq[doctree.Chunk], error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("chunker: invalid page map: %w", err)
	}

	return func(yield func(doctree.Chunk) bool) {
		s := &splitter{
			cfg:  cfg,
			doc:  doc,
			text: []rune(doc.Text()),
		}
		s.run(yield)
	}, nil
}

type splitter struct {
	cfg  Config
	doc  *doctree.Document
	text []rune
	seq  int
}

func (s *splitter) run(yield func(doctree.Chunk) bool) {
	length := len(s.text)
	limit := s.cfg.SentenceSearchLimit
	overlap := s.cfg.SectionOverlap

	start := 0
	end := length
	for start+overlap < length {
		cursor := start
		end = s.findEnd(start)
		start = s.findStart(start, end)

		section := string(s.text[start:end])
		if !s.emit(section, start, end, yield) {
			return
		}

		next := end - overlap
		// A table opened but not closed in this section starts the next one,
		// unless it sits inside the search window (tables longer than the
		// section length would never advance) or inside the overlap.
		if t := lastUnclosedTable(section); t > 2*limit {
			carry := min(end-overlap, start+t)
			if carry > cursor {
				next = carry
			}
		}
		if next <= cursor {
			panic(fmt.Sprintf("chunker: no forward progress at offset %d (next %d)", cursor, next))
		}
		start = next
	}

	if s.seq == 0 {
		// Shorter than the overlap: the whole text is one section.
		if length > 0 {
			s.emit(string(s.text), 0, length, yield)
		}
		return
	}
	if start+overlap < end {
		s.emit(string(s.text[start:end]), start, end, yield)
	}
}

// findEnd picks the exclusive end of the section beginning near start.
func (s *splitter) findEnd(start int) int {
	length := len(s.text)
	end := start + s.cfg.MaxSectionLength
	if end > length {
		return length
	}

	var lastWord boundary
	for end < length && end-start-s.cfg.MaxSectionLength < s.cfg.SentenceSearchLimit && !isSentenceEnding(s.text[end]) {
		if isWordBreak(s.text[end]) {
			lastWord.set(end)
		}
		end++
	}
	if end < length && !isSentenceEnding(s.text[end]) && lastWord.ok {
		// Fall back to at least keeping a whole word.
		end = lastWord.pos
	}
	if end < length {
		end++
	}
	return end
}

// findStart moves start back to the previous sentence ending, or at least a
// word break, without letting the section grow past its search window.
func (s *splitter) findStart(start, end int) int {
	floor := end - s.cfg.MaxSectionLength - 2*s.cfg.SentenceSearchLimit

	var lastWord boundary
	for start > 0 && start > floor && !isSentenceEnding(s.text[start]) {
		if isWordBreak(s.text[start]) {
			lastWord.set(start)
		}
		start--
	}
	if !isSentenceEnding(s.text[start]) && lastWord.ok {
		start = lastWord.pos
	}
	if start > 0 {
		start++
	}
	return start
}

func (s *splitter) emit(text string, start, end int, yield func(doctree.Chunk) bool) bool {
	c := doctree.Chunk{
		Text:  text,
		Index: s.seq,
		Page:  s.doc.PageAt(start),
		Start: start,
		End:   end,
	}
	s.seq++
	return yield(c)
}

// lastUnclosedTable returns the character offset of the last table opening
// tag in section if no closing tag follows it, otherwise -1.
func lastUnclosedTable(section string) int {
	open := strings.LastIndex(section, tableOpen)
	if open < 0 || open < strings.LastIndex(section, tableClose) {
		return -1
	}
	return utf8.RuneCountInString(section[:open])
}
