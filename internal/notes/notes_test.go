package notes

import (
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/pollsnap/pollsnap/internal/page"
)

func tableSel(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	d, err := page.Parse("https://en.wikipedia.org/wiki/Polling", []byte(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sel := d.Doc.Find("table#t")
	if len(sel.Nodes) == 0 {
		t.Fatalf("fixture missing table#t")
	}
	return sel
}

func TestExtract_AdjacentBlocks(t *testing.T) {
	html := `<html><body><div>
<p class="hatnote">Note: fieldwork dates may overlap.</p>
<table id="t"><tr><td>x</td></tr></table>
<dl><dd>Leadership election occurred during fieldwork.[2]</dd></dl>
<p>A long unrelated prose paragraph about the election campaign itself.</p>
</div></body></html>`
	got := Extract(tableSel(t, html))
	if !contains(got, "Note: fieldwork dates may overlap.") {
		t.Errorf("missing hatnote in %v", got)
	}
	if !contains(got, "Leadership election occurred during fieldwork.") {
		t.Errorf("missing footnote in %v", got)
	}
	if contains(got, "A long unrelated prose paragraph about the election campaign itself.") {
		t.Errorf("unrelated paragraph should not be collected")
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestExtract_NoNotesUsesPlaceholder(t *testing.T) {
	html := `<html><body><table id="t"><tr><td>x</td></tr></table></body></html>`
	got := Extract(tableSel(t, html))
	if len(got) != 1 || got[0] != Placeholder {
		t.Fatalf("expected [%q], got %v", Placeholder, got)
	}
}

func TestExtract_NilSelectionUsesPlaceholder(t *testing.T) {
	got := Extract(nil)
	if len(got) != 1 || got[0] != Placeholder {
		t.Fatalf("expected [%q], got %v", Placeholder, got)
	}
}

func TestExtract_NeverEmpty(t *testing.T) {
	html := `<html><body>
<p></p>
<table id="t"><tr><td>x</td></tr></table>
<p>   </p>
</body></html>`
	got := Extract(tableSel(t, html))
	if len(got) == 0 {
		t.Fatalf("notes list must never be empty")
	}
}

func TestExtract_DeduplicatesAndStripsCitations(t *testing.T) {
	html := `<html><body><div>
<table id="t"><tr><td>x</td></tr></table>
<dl><dd>Note: shared methodology.[1]</dd><dd>Note: shared methodology.[1]</dd></dl>
</div></body></html>`
	got := Extract(tableSel(t, html))
	count := 0
	for _, n := range got {
		if n == "Note: shared methodology." {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one deduplicated, citation-free note, got %v", got)
	}
}
