// Package scrape turns rendered HTML into text, tables and links.
package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

const (
	// MaxLinks caps the links kept from a page.
	MaxLinks = 5
	// TableRule follows every extracted table.
	TableRule = "--------------------------------------------------"

	readabilityMinWords = 50
)

// Link is an outbound anchor with visible text.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Payload is the structured content of one page.
type Payload struct {
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Tables string `json:"tables,omitempty"`
	Links  []Link `json:"links,omitempty"`
	// Article is the main content as markdown when the page has a
	// recognisable article body.
	Article string `json:"article,omitempty"`
}

// Empty reports whether nothing usable was extracted.
func (p Payload) Empty() bool {
	return strings.TrimSpace(p.Text) == "" && strings.TrimSpace(p.Tables) == "" && len(p.Links) == 0
}

// Extract parses rawHTML. pageURL resolves relative references in the
// article body and may be empty.
func Extract(rawHTML, pageURL string) (Payload, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return Payload{}, fmt.Errorf("parse html: %w", err)
	}
	stripNodes(doc, "script", "style", "noscript")

	p := Payload{
		Title:  pageTitle(doc),
		Text:   visibleText(doc),
		Tables: tableText(doc),
		Links:  links(doc, MaxLinks),
	}
	p.Article = article(rawHTML, pageURL)
	return p, nil
}

// article runs readability over the page and converts the result to
// markdown. Short or failed extractions return "".
func article(rawHTML, pageURL string) string {
	parsedURL, _ := url.Parse(pageURL)
	art, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil || art.Node == nil {
		return ""
	}
	md, err := htmltomarkdown.ConvertNode(art.Node)
	if err == nil {
		text := strings.TrimSpace(string(md))
		if len(strings.Fields(text)) >= readabilityMinWords {
			return text
		}
	}
	var buf bytes.Buffer
	if err := art.RenderText(&buf); err != nil {
		return ""
	}
	text := strings.TrimSpace(buf.String())
	if len(strings.Fields(text)) < readabilityMinWords {
		return ""
	}
	return text
}

func stripNodes(n *html.Node, tags ...string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && contains(tags, c.Data) {
			n.RemoveChild(c)
		} else {
			stripNodes(c, tags...)
		}
		c = next
	}
}

// visibleText returns every text node on its own line, trimmed, with blank
// lines dropped.
func visibleText(doc *html.Node) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, l := range strings.Split(n.Data, "\n") {
				if l = strings.TrimSpace(l); l != "" {
					lines = append(lines, l)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n")
}

// tableText renders every table row as " | "-joined cells, with a rule
// after each table.
func tableText(doc *html.Node) string {
	var out []string
	for _, table := range findAll(doc, "table") {
		for _, row := range findAll(table, "tr") {
			var cells []string
			for c := row.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, compactText(c))
				}
			}
			if line := strings.Join(cells, " | "); line != "" {
				out = append(out, line)
			}
		}
		out = append(out, TableRule)
	}
	return strings.Join(out, "\n")
}

func links(doc *html.Node, limit int) []Link {
	var out []Link
	for _, a := range findAll(doc, "a") {
		href := strings.TrimSpace(attr(a, "href"))
		text := compactText(a)
		if text != "" && strings.HasPrefix(href, "http") {
			out = append(out, Link{Title: text, URL: href})
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}

func pageTitle(doc *html.Node) string {
	if t := findAll(doc, "title"); len(t) > 0 {
		return compactText(t[0])
	}
	return ""
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func compactText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
