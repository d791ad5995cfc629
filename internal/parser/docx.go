package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/docindex/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Word documents carry no reliable page
// breaks, so the paragraphs form a single page. Tables are rendered as HTML
// like the other formats.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docindex-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var blocks []string
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			blocks = append(blocks, docxParagraphText(v))
		case *docx.Table:
			blocks = append(blocks, docxTableHTML(v))
		}
	}

	return singlePage(filename, joinBlocks(blocks)), nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func docxTableHTML(tbl *docx.Table) string {
	if len(tbl.TableRows) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<table>")
	for _, row := range tbl.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			var paras []string
			for _, para := range cell.Paragraphs {
				if t := docxParagraphText(para); t != "" {
					paras = append(paras, t)
				}
			}
			cells = append(cells, strings.Join(paras, " "))
		}
		writeRow(&sb, "td", cells)
	}
	sb.WriteString("</table>")
	return sb.String()
}
