package parser

import (
	"strings"
	"testing"
)

func TestMarkdownParser_BlocksInOrder(t *testing.T) {
	input := `# Title

Intro text with **bold** words.

## Section A

- first item
- second item
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	want := "Title\n\nIntro text with bold words.\n\nSection A\n\nfirst item\nsecond item"
	if doc.Text() != want {
		t.Errorf("expected %q, got %q", want, doc.Text())
	}
}

func TestMarkdownParser_TableRenderedAsHTML(t *testing.T) {
	input := "Before the table.\n\n| name | qty |\n|------|-----|\n| bolt | 4 |\n\nAfter the table.\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "parts.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := doc.Text()
	for _, want := range []string{"<table>", "<th>name</th>", "<td>bolt</td>", "</table>"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got %q", want, text)
		}
	}
	if strings.Index(text, "Before") > strings.Index(text, "<table>") {
		t.Error("expected table after the leading paragraph")
	}
	if !strings.HasSuffix(text, "After the table.") {
		t.Errorf("expected trailing paragraph last, got %q", text)
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := doc.Text()
	if !strings.Contains(text, "GET /api/users\nPOST /api/users") {
		t.Errorf("expected code block content in text, got %q", text)
	}
	if !strings.Contains(text, "More text after code.") {
		t.Errorf("expected post-code text, got %q", text)
	}
	if strings.Contains(text, "```") {
		t.Errorf("expected code fences to be dropped, got %q", text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(doc.Pages))
	}
	if doc.Filename != "empty.md" {
		t.Errorf("expected filename %q, got %q", "empty.md", doc.Filename)
	}
}
