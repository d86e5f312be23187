package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pollsnap/pollsnap/internal/app"
	"github.com/pollsnap/pollsnap/internal/table"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath    string
		sourceURL     string
		userAgent     string
		siteDir       string
		timeout       time.Duration
		maxAttempts   int
		cacheDir      string
		cacheMaxAge   time.Duration
		cacheClear    bool
		tableMinScore int
		tableMinRows  int
		graphMinScore int
		imageMaxBytes int64
		enablePDF     bool
		verbose       bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("POLLSNAP_CONFIG"), "Path to optional YAML/JSON config file")
	flag.StringVar(&sourceURL, "source.url", envOr("WIKI_PAGE_URL", app.DefaultSourceURL), "Source article URL")
	flag.StringVar(&userAgent, "source.ua", app.DefaultUserAgent, "User-Agent for all outbound requests")
	flag.StringVar(&siteDir, "site.dir", app.DefaultSiteDir, "Published output tree (data/latest.json and assets/)")
	flag.DurationVar(&timeout, "fetch.timeout", app.DefaultTimeout, "Per-request timeout for page and image fetches")
	flag.IntVar(&maxAttempts, "fetch.maxAttempts", app.DefaultMaxAttempts, "Fetch attempts including the first (retries 5xx)")
	flag.StringVar(&cacheDir, "cache.dir", app.DefaultCacheDir, "HTTP cache directory; empty disables caching")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 168h); 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.IntVar(&tableMinScore, "table.minScore", table.DefaultMinScore, "Acceptance threshold for the polling table heuristic")
	flag.IntVar(&tableMinRows, "table.minRows", table.DefaultMinRows, "Minimum rows for a table candidate")
	flag.IntVar(&graphMinScore, "graph.minScore", app.DefaultGraphMinScore, "Minimum score before the graph is treated as absent")
	flag.Int64Var(&imageMaxBytes, "image.maxBytes", app.DefaultImageMaxBytes, "Payload cap for the graph image download")
	flag.BoolVar(&enablePDF, "enable.pdf", false, "Also render the artifact as data/latest.pdf")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	cfg := app.Config{
		SourceURL:     sourceURL,
		UserAgent:     userAgent,
		SiteDir:       siteDir,
		Timeout:       timeout,
		MaxAttempts:   maxAttempts,
		CacheDir:      cacheDir,
		CacheMaxAge:   cacheMaxAge,
		CacheClear:    cacheClear,
		TableMinScore: tableMinScore,
		TableMinRows:  tableMinRows,
		GraphMinScore: graphMinScore,
		ImageMaxBytes: imageMaxBytes,
		EnablePDF:     enablePDF,
		Verbose:       verbose,
	}

	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("config file unreadable")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		// Fatal failure: the previously published artifact is untouched.
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx := context.Background()
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
