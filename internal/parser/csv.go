package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docindex/internal/doctree"
	"golang.org/x/net/html"
)

// rowsPerPage is the number of data rows rendered on each page.
const rowsPerPage = 20

// CSVParser handles CSV files. Rows are grouped into pages, each rendered as
// an HTML table that repeats the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &doctree.Document{Filename: filepath.Base(filename)}
	if len(records) < 2 {
		return doc, nil
	}

	// First row is headers.
	headers := records[0]
	dataRows := records[1:]

	for i := 0; i < len(dataRows); i += rowsPerPage {
		end := min(i+rowsPerPage, len(dataRows))
		doc.AddPage(renderTable(headers, dataRows[i:end]))
	}
	return doc, nil
}

func renderTable(headers []string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString("<table>")
	writeRow(&sb, "th", headers)
	for _, row := range rows {
		writeRow(&sb, "td", row)
	}
	sb.WriteString("</table>\n")
	return sb.String()
}

func writeRow(sb *strings.Builder, tag string, cells []string) {
	sb.WriteString("<tr>")
	for _, cell := range cells {
		fmt.Fprintf(sb, "<%s>%s</%s>", tag, html.EscapeString(cell), tag)
	}
	sb.WriteString("</tr>")
}
