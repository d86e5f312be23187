package graph

import (
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pollsnap/pollsnap/internal/page"
)

// ErrNoImage reports that the document holds no plausible graph image.
// Soft failure: the artifact omits its graph section.
var ErrNoImage = errors.New("no graph image found")

// Status is the explicit state of the graph section of an artifact.
type Status int

const (
	// Absent means no image was selected; the artifact omits the section.
	Absent Status = iota
	// RemoteOnly means an image was selected but could not be downloaded;
	// consumers hot-link the remote URL.
	RemoteOnly
	// Downloaded means the image bytes were persisted locally.
	Downloaded
)

// Graph is the resolved polling-trend image for one run.
type Graph struct {
	Status    Status
	LocalPath string
	RemoteURL string
	Caption   string
}

// Candidate is an image reference found while scanning the article.
type Candidate struct {
	RemoteURL string
	Caption   string
	Position  int
	Score     int
}

// Options tunes image selection. MinScore below which the best candidate is
// still treated as absent; zero keeps any scored candidate.
type Options struct {
	MinScore int
}

// scoreContext rates caption plus alt text for graph-indicative keywords.
func scoreContext(text string) int {
	t := strings.ToLower(text)
	score := 0
	if strings.Contains(t, "opinion") {
		score += 2
	}
	if strings.Contains(t, "poll") {
		score += 3
	}
	if strings.Contains(t, "graph") || strings.Contains(t, "chart") {
		score++
	}
	if strings.Contains(t, "trend") || strings.Contains(t, "average") {
		score++
	}
	if strings.Contains(t, "general election") || strings.Contains(t, "next united kingdom") {
		score += 2
	}
	return score
}

// Scan enumerates captioned figures and thumbnail containers, falling back
// to bare content images whose alt text mentions polling. Candidates that
// score zero are dropped; the caller decides how confident is confident
// enough via Options.MinScore.
func Scan(d *page.Document) []Candidate {
	var out []Candidate
	pageHost := hostOf(d.URL)

	d.Doc.Find("figure, div.thumb, .thumbinner").Each(func(_ int, container *goquery.Selection) {
		img := container.Find("img").First()
		src, ok := img.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		caption := strings.TrimSpace(container.Find("figcaption, .thumbcaption").First().Text())
		alt, _ := img.Attr("alt")
		score := scoreContext(strings.TrimSpace(alt + " " + caption))
		if score <= 0 {
			return
		}
		remote := d.ResolveURL(src)
		if sameHost(remote, pageHost) {
			score++
		}
		out = append(out, Candidate{
			RemoteURL: remote,
			Caption:   caption,
			Position:  d.Position(container),
			Score:     score,
		})
	})
	if len(out) > 0 {
		return out
	}

	// Fallback: first content image that mentions polling in its alt text.
	d.Doc.Find("#mw-content-text img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return true
		}
		alt, _ := img.Attr("alt")
		if !strings.Contains(strings.ToLower(alt), "poll") {
			return true
		}
		out = append(out, Candidate{
			RemoteURL: d.ResolveURL(src),
			Caption:   strings.TrimSpace(alt),
			Position:  d.Position(img),
			Score:     1,
		})
		return false
	})
	return out
}

// Select picks the best candidate by score, using distance to the selected
// table as the tie-break and document order after that. tablePos may be -1
// when no table was selected. Returns ErrNoImage when the document has no
// candidates or the best one scores below opt.MinScore.
func Select(cands []Candidate, tablePos int, opt Options) (Candidate, error) {
	if len(cands) == 0 {
		return Candidate{}, ErrNoImage
	}
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if tablePos >= 0 {
			di, dj := absDist(sorted[i].Position, tablePos), absDist(sorted[j].Position, tablePos)
			if di != dj {
				return di < dj
			}
		}
		return sorted[i].Position < sorted[j].Position
	})
	best := sorted[0]
	if best.Score < opt.MinScore {
		return Candidate{}, ErrNoImage
	}
	return best, nil
}

func absDist(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

func sameHost(rawURL, host string) bool {
	if host == "" {
		return false
	}
	h := hostOf(rawURL)
	return h == host || strings.HasSuffix(h, "."+trimFirstLabel(host))
}

// trimFirstLabel turns en.wikipedia.org into wikipedia.org so sibling hosts
// like upload.wikimedia.org do not count but en.m.wikipedia.org does.
func trimFirstLabel(host string) string {
	if i := strings.Index(host, "."); i >= 0 && strings.Count(host, ".") >= 2 {
		return host[i+1:]
	}
	return host
}
