package table

import (
	"errors"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pollsnap/pollsnap/internal/page"
)

// ErrNoTable reports that no candidate scored above the acceptance
// threshold. Soft failure: the run proceeds with an empty table section.
var ErrNoTable = errors.New("no polling table found")

// Candidate is a table-like structure found while scanning the article.
// Header labels and cell text are raw: citation markers and stray
// whitespace are only removed during normalization.
type Candidate struct {
	Position int
	Headers  []string
	Rows     [][]string
	Sel      *goquery.Selection
}

// Options tunes the selection heuristics. The thresholds are best-effort
// policy, expected to drift when the source page changes structure.
type Options struct {
	// MinRows rejects decorative or legend tables outright.
	MinRows int
	// MinScore is the acceptance threshold for the best candidate.
	MinScore int
}

const (
	DefaultMinRows  = 3
	DefaultMinScore = 4
)

func (o Options) withDefaults() Options {
	if o.MinRows <= 0 {
		o.MinRows = DefaultMinRows
	}
	if o.MinScore <= 0 {
		o.MinScore = DefaultMinScore
	}
	return o
}

// Scan enumerates every <table> in the document in order of appearance.
func Scan(d *page.Document) []Candidate {
	var out []Candidate
	d.Doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		headers, rows := splitRows(sel)
		out = append(out, Candidate{
			Position: d.Position(sel),
			Headers:  headers,
			Rows:     rows,
			Sel:      sel,
		})
	})
	return out
}

// splitRows separates a table into a flattened header and its data rows.
// Wikipedia polling tables often stack two header rows (dates above party
// abbreviations); when the leading all-<th> rows align, their cells are
// joined pairwise, otherwise the widest row wins.
func splitRows(sel *goquery.Selection) ([]string, [][]string) {
	var headerRows [][]string
	var dataRows [][]string
	inHeader := true
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("th, td")
		if cells.Length() == 0 {
			return
		}
		allTH := tr.Find("td").Length() == 0
		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			texts = append(texts, c.Text())
		})
		if inHeader && allTH {
			headerRows = append(headerRows, texts)
			return
		}
		inHeader = false
		if allTH {
			// Secondary header row inside the body, e.g. a year divider.
			return
		}
		dataRows = append(dataRows, texts)
	})
	return flattenHeaders(headerRows), dataRows
}

func flattenHeaders(headerRows [][]string) []string {
	switch len(headerRows) {
	case 0:
		return nil
	case 1:
		return headerRows[0]
	}
	aligned := true
	for _, r := range headerRows[1:] {
		if len(r) != len(headerRows[0]) {
			aligned = false
			break
		}
	}
	if aligned {
		out := make([]string, len(headerRows[0]))
		for i := range out {
			parts := make([]string, 0, len(headerRows))
			for _, r := range headerRows {
				if s := strings.TrimSpace(r[i]); s != "" {
					parts = append(parts, s)
				}
			}
			out[i] = strings.Join(parts, " | ")
		}
		return out
	}
	widest := headerRows[0]
	for _, r := range headerRows[1:] {
		if len(r) > len(widest) {
			widest = r
		}
	}
	return widest
}

var headerTokens = map[string]int{
	"poll":      2,
	"pollster":  2,
	"date":      2,
	"fieldwork": 2,
}

var partyTokens = []string{"con", "conservative", "lab", "labour", "ld", "lib dem", "reform", "green", "snp"}

// Score rates how much a candidate looks like the current polling table.
func Score(c Candidate, opt Options) int {
	opt = opt.withDefaults()
	if len(c.Rows) < opt.MinRows {
		return 0
	}
	joined := strings.ToLower(strings.Join(c.Headers, " "))
	score := 0
	for tok, w := range headerTokens {
		if strings.Contains(joined, tok) {
			score += w
		}
	}
	for _, tok := range partyTokens {
		if strings.Contains(joined, tok) {
			score++
		}
	}
	if shortPartyHeaders(c.Headers) >= 3 {
		score += 2
	}
	if hasDateRangeHeader(c.Headers) {
		score++
	}
	if len(c.Rows) >= 5 {
		score++
	}
	if inSidebar(c.Sel) {
		score -= 3
	}
	return score
}

// shortPartyHeaders counts header labels that look like party abbreviations:
// short, capitalised, single-word strings such as "Con" or "SNP".
func shortPartyHeaders(headers []string) int {
	n := 0
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" || len(h) > 8 || strings.ContainsAny(h, " \t") {
			continue
		}
		first := rune(h[0])
		if first < 'A' || first > 'Z' {
			continue
		}
		alpha := true
		for _, r := range h {
			if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
				alpha = false
				break
			}
		}
		if alpha {
			n++
		}
	}
	return n
}

func hasDateRangeHeader(headers []string) bool {
	for _, h := range headers {
		var sawDigit bool
		for _, r := range h {
			switch {
			case r >= '0' && r <= '9':
				sawDigit = true
			case r == '-' || r == '–' || r == '—':
				if sawDigit {
					return true
				}
			default:
				sawDigit = false
			}
		}
	}
	return false
}

func inSidebar(sel *goquery.Selection) bool {
	if sel == nil {
		return false
	}
	const boilerplate = ".infobox, .sidebar, .navbox, .vertical-navbox, .metadata"
	return sel.Is(boilerplate) || sel.ParentsFiltered(boilerplate).Length() > 0
}

// Select picks the highest scoring candidate, breaking ties by earliest
// document position. Returns ErrNoTable when nothing clears the threshold.
func Select(cands []Candidate, opt Options) (Candidate, error) {
	opt = opt.withDefaults()
	scored := make([]Candidate, len(cands))
	copy(scored, cands)
	scores := make(map[int]int, len(scored))
	for i := range scored {
		scores[i] = Score(scored[i], opt)
	}
	idx := make([]int, len(scored))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if scores[idx[a]] != scores[idx[b]] {
			return scores[idx[a]] > scores[idx[b]]
		}
		return scored[idx[a]].Position < scored[idx[b]].Position
	})
	if len(idx) == 0 || scores[idx[0]] < opt.MinScore {
		return Candidate{}, ErrNoTable
	}
	return scored[idx[0]], nil
}
