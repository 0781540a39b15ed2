// Package snapshot exposes a saved HTML page through the dom interfaces, so a
// list captured from the browser can be scraped offline.
//
// A parsed document has no layout. Scroll offsets never move, and an element
// only counts as scrollable when its inline style declares overflow-y (or
// overflow) auto or scroll.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"go-contact-scraper/internal/dom"
)

type Page struct {
	doc *goquery.Document
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{doc: doc}, nil
}

// Find returns the first element matching selector.
func (p *Page) Find(selector string) (dom.Element, error) {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return &Element{sel: sel}, nil
}

// Body returns the document body.
func (p *Page) Body() dom.Element {
	return &Element{sel: p.doc.Find("body").First()}
}

// Container returns the first element matching selector, marked scrollable.
// Saved pages lose computed styles, so the list element has to be named.
func (p *Page) Container(selector string) (dom.Element, error) {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	style := strings.TrimSpace(sel.AttrOr("style", ""))
	if style != "" && !strings.HasSuffix(style, ";") {
		style += ";"
	}
	sel.SetAttr("style", style+"overflow-y: auto")
	return &Element{sel: sel}, nil
}

// HTML renders the document, including any classes set during scraping.
func (p *Page) HTML() (string, error) {
	return p.doc.Html()
}

// Element is one node of a parsed page.
type Element struct {
	sel *goquery.Selection
}

func (e *Element) Parent(ctx context.Context) (dom.Element, error) {
	parent := e.sel.Parent()
	if parent.Length() == 0 {
		return nil, nil
	}
	if name := goquery.NodeName(parent); name == "body" || name == "html" {
		return nil, nil
	}
	return &Element{sel: parent}, nil
}

func (e *Element) Metrics(ctx context.Context) (dom.Metrics, error) {
	m := dom.Metrics{OverflowY: overflowY(e.sel.AttrOr("style", ""))}
	if m.OverflowY == "auto" || m.OverflowY == "scroll" {
		m.ScrollHeight = 1
	}
	return m, nil
}

func (e *Element) Candidates(ctx context.Context, selector string) ([]dom.Node, error) {
	var nodes []dom.Node
	e.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		nodes = append(nodes, dom.Node{Text: InnerText(n), Children: s.Children().Length()})
	})
	return nodes, ctx.Err()
}

// ScrollBy never moves: a static document is already fully rendered.
func (e *Element) ScrollBy(ctx context.Context, delta float64) (float64, error) {
	return 0, ctx.Err()
}

func (e *Element) SetClass(ctx context.Context, class string, on bool) error {
	if on {
		e.sel.AddClass(class)
	} else {
		e.sel.RemoveClass(class)
	}
	return nil
}

// overflowY reads the vertical overflow from an inline style attribute.
func overflowY(style string) string {
	var overflow, y string
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		value = strings.ToLower(strings.TrimSpace(value))
		switch strings.ToLower(strings.TrimSpace(prop)) {
		case "overflow-y":
			y = value
		case "overflow":
			overflow = strings.Fields(value + " ")[0]
		}
	}
	switch {
	case y != "":
		return y
	case overflow != "":
		return overflow
	default:
		return "visible"
	}
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dl": true, "dt": true, "dd": true, "fieldset": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tr": true,
	"ul": true,
}

// InnerText approximates the browser's innerText: block elements and <br>
// break lines, script and style are skipped, and whitespace inside a line
// collapses to single spaces.
func InnerText(n *html.Node) string {
	var b strings.Builder

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if n.Data == "br" {
				b.WriteByte('\n')
				return
			}
			if blockTags[n.Data] {
				b.WriteByte('\n')
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c)
			}
			if blockTags[n.Data] {
				b.WriteByte('\n')
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c)
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
