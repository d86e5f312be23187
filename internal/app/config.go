package app

import "time"

const (
	DefaultSourceURL = "https://en.wikipedia.org/wiki/Opinion_polling_for_the_next_United_Kingdom_general_election"

	DefaultUserAgent = "pollsnap/1.0 (educational project; contact via repo issues)"

	DefaultSiteDir  = "site"
	DefaultCacheDir = ".pollsnap-cache"

	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 2

	DefaultGraphMinScore = 1
	DefaultImageMaxBytes = 10 << 20
)

// Config holds runtime configuration for one pipeline invocation.
type Config struct {
	// SourceURL is the article to scrape.
	SourceURL string
	UserAgent string

	// SiteDir is the published output tree: data/latest.json and assets/.
	SiteDir string

	// Fetch behavior
	Timeout     time.Duration
	MaxAttempts int

	// HTTP cache for the source page; empty dir disables caching.
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool

	// Heuristic thresholds. Best-effort policy knobs, not contracts.
	TableMinScore int
	TableMinRows  int
	GraphMinScore int
	ImageMaxBytes int64

	// EnablePDF also renders the artifact as data/latest.pdf.
	EnablePDF bool

	Verbose bool
}
