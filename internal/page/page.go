package page

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is one fetched article, parsed once and shared read-only by the
// table, graph and notes stages of a run.
type Document struct {
	URL string
	Doc *goquery.Document

	// order maps every node to its depth-first index so stages can reason
	// about document proximity without re-walking the tree.
	order map[*html.Node]int
}

// Parse builds a Document from raw markup. The URL is kept for resolving
// relative image references and for the artifact's source_url field.
func Parse(rawURL string, body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	d := &Document{URL: rawURL, Doc: doc, order: map[*html.Node]int{}}
	idx := 0
	for _, root := range doc.Selection.Nodes {
		var dfs func(*html.Node)
		dfs = func(n *html.Node) {
			d.order[n] = idx
			idx++
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				dfs(c)
			}
		}
		dfs(root)
	}
	return d, nil
}

// Position returns the depth-first index of the selection's first node, or -1
// for an empty selection.
func (d *Document) Position(sel *goquery.Selection) int {
	if sel == nil || len(sel.Nodes) == 0 {
		return -1
	}
	if p, ok := d.order[sel.Nodes[0]]; ok {
		return p
	}
	return -1
}

// ResolveURL makes an absolute URL out of a possibly relative or
// protocol-relative reference found in the markup.
func (d *Document) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}
	base, err := url.Parse(d.URL)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
