package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docindex/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Text of content blocks is collected in
// document order; tables are re-rendered as markup.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var blocks []string
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "head":
				return nil
			case "table":
				var sb strings.Builder
				if err := html.Render(&sb, n); err != nil {
					return fmt.Errorf("render table: %w", err)
				}
				blocks = append(blocks, sb.String())
				return nil
			case "p", "li", "blockquote", "pre", "h1", "h2", "h3", "h4", "h5", "h6", "dt", "dd":
				blocks = append(blocks, textContent(n))
				return nil
			}
		}
		// Stray text directly under <body> or a <div>.
		if n.Type == html.TextNode {
			blocks = append(blocks, n.Data)
			return nil
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	// Find <body> or use whole document.
	root := findBody(doc)
	if root == nil {
		root = doc
	}
	if err := walk(root); err != nil {
		return nil, err
	}

	return singlePage(filename, joinBlocks(blocks)), nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
