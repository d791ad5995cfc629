package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/docindex/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
// Tables are kept as HTML so the chunker can see where they open and close.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if _, ok := n.(*extast.Table); ok {
			var buf bytes.Buffer
			if err := md.Renderer().Render(&buf, src, n); err != nil {
				return nil, fmt.Errorf("render table: %w", err)
			}
			blocks = append(blocks, buf.String())
			continue
		}
		blocks = append(blocks, extractText(n, src))
	}

	return singlePage(filename, joinBlocks(blocks)), nil
}

// extractText gets the plain text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeText(&buf, n, src)
	return buf.String()
}

func writeText(buf *bytes.Buffer, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		writeLines(buf, n.Lines(), src)
		return
	case *ast.HTMLBlock:
		writeLines(buf, node.Lines(), src)
		if node.HasClosure() {
			buf.Write(node.ClosureLine.Value(src))
		}
		return
	case *ast.Text:
		buf.Write(node.Segment.Value(src))
		if node.HardLineBreak() || node.SoftLineBreak() {
			buf.WriteByte('\n')
		}
		return
	case *ast.String:
		buf.Write(node.Value)
		return
	case *ast.AutoLink:
		buf.Write(node.URL(src))
		return
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		// Nested blocks (list items, quoted paragraphs) go on their own line.
		if c.Type() == ast.TypeBlock && buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
			buf.WriteByte('\n')
		}
		writeText(buf, c, src)
	}
}

func writeLines(buf *bytes.Buffer, lines *text.Segments, src []byte) {
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
}
