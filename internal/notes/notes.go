package notes

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pollsnap/pollsnap/internal/table"
)

// Placeholder is substituted when the table has no associated notes so the
// published list is never empty.
const Placeholder = "No notes"

// maxBlockChars keeps prose paragraphs out; genuine caveat blocks are short.
const maxBlockChars = 500

// siblingWindow bounds how far before and after the table we look.
const siblingWindow = 3

// Extract collects short annotation blocks adjacent to the selected table:
// hatnotes, definition-list footnotes, and paragraphs that read like
// methodology caveats. Returns at least one entry.
func Extract(tableSel *goquery.Selection) []string {
	var out []string
	if tableSel != nil {
		out = append(out, fromSiblings(tableSel.PrevAll(), siblingWindow)...)
		out = append(out, fromSiblings(tableSel.NextAll(), siblingWindow)...)
	}
	out = dedupe(out)
	if len(out) == 0 {
		return []string{Placeholder}
	}
	return out
}

// fromSiblings walks up to window sibling elements and harvests note blocks.
// PrevAll/NextAll order is nearest-first, which is also relevance order.
func fromSiblings(sel *goquery.Selection, window int) []string {
	var out []string
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= window {
			return false
		}
		out = append(out, fromBlock(s)...)
		return true
	})
	return out
}

func fromBlock(s *goquery.Selection) []string {
	node := s.Nodes[0]
	tag := strings.ToLower(node.Data)
	switch tag {
	case "dl":
		var items []string
		s.Find("dd").Each(func(_ int, dd *goquery.Selection) {
			if t := table.Clean(dd.Text()); t != "" && len(t) <= maxBlockChars {
				items = append(items, t)
			}
		})
		return items
	case "ul", "ol":
		if !looksLikeNote(s.Text()) && !s.HasClass("hatnote") {
			return nil
		}
		var items []string
		s.Find("li").Each(func(_ int, li *goquery.Selection) {
			if t := table.Clean(li.Text()); t != "" && len(t) <= maxBlockChars {
				items = append(items, t)
			}
		})
		return items
	case "p", "div":
		if !s.HasClass("hatnote") && !looksLikeNote(s.Text()) {
			return nil
		}
		if t := table.Clean(s.Text()); t != "" && len(t) <= maxBlockChars {
			return []string{t}
		}
	}
	return nil
}

func looksLikeNote(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(t, "note") {
		return true
	}
	for _, kw := range []string{"fieldwork", "methodology", "sample size", "margin of error"} {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

func dedupe(items []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
