package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/pollsnap/pollsnap/internal/artifact"
	"github.com/pollsnap/pollsnap/internal/cache"
	"github.com/pollsnap/pollsnap/internal/fetch"
	"github.com/pollsnap/pollsnap/internal/graph"
	"github.com/pollsnap/pollsnap/internal/notes"
	"github.com/pollsnap/pollsnap/internal/page"
	"github.com/pollsnap/pollsnap/internal/table"
)

// App wires the pipeline stages together for one run.
type App struct {
	cfg       Config
	pages     *fetch.Client
	images    *resty.Client
	httpCache *cache.HTTPCache
}

func New(cfg Config) (*App, error) {
	a := &App{cfg: cfg}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Msg("cache clear failed; continuing")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err == nil && n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir}
	}
	a.pages = &fetch.Client{
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.Timeout,
		Cache:             a.httpCache,
	}
	a.images = resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)
	return a, nil
}

// Run executes one fetch-extract-publish cycle. Heuristic misses degrade the
// artifact; transport and persistence failures abort the run and leave the
// previously published artifact untouched.
func (a *App) Run(ctx context.Context) error {
	startedAt := time.Now()

	body, finalURL, err := a.pages.Page(ctx, a.cfg.SourceURL)
	if err != nil {
		return fmt.Errorf("fetch source page: %w", err)
	}
	doc, err := page.Parse(finalURL, body)
	if err != nil {
		return fmt.Errorf("parse source page: %w", err)
	}

	tbl, tableSel, tablePos := a.selectTable(doc)
	g := a.selectGraph(ctx, doc, tablePos)
	ns := notes.Extract(tableSel)

	art := artifact.New(startedAt, finalURL, tbl, g, ns)
	outPath := filepath.Join(a.cfg.SiteDir, "data", "latest.json")
	if err := artifact.Write(outPath, art); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	log.Info().
		Str("out", outPath).
		Int("rows", tbl.RowCount).
		Bool("graph", art.Graph != nil).
		Int("notes", len(ns)).
		Msg("published artifact")

	if a.cfg.EnablePDF {
		pdfPath := filepath.Join(a.cfg.SiteDir, "data", "latest.pdf")
		if err := writeSnapshotPDF(art, pdfPath); err != nil {
			log.Warn().Err(err).Msg("pdf snapshot failed; artifact already published")
		} else {
			log.Info().Str("out", pdfPath).Msg("wrote pdf snapshot")
		}
	}
	return nil
}

func (a *App) selectTable(doc *page.Document) (table.Table, *goquery.Selection, int) {
	cands := table.Scan(doc)
	cand, err := table.Select(cands, table.Options{
		MinRows:  a.cfg.TableMinRows,
		MinScore: a.cfg.TableMinScore,
	})
	if err != nil {
		log.Warn().Err(err).Int("candidates", len(cands)).Msg("publishing empty table section")
		return table.Empty(), nil, -1
	}
	tbl := table.Normalize(cand)
	log.Debug().Int("rows", tbl.RowCount).Int("columns", len(tbl.Columns)).Msg("table selected")
	return tbl, cand.Sel, cand.Position
}

func (a *App) selectGraph(ctx context.Context, doc *page.Document, tablePos int) graph.Graph {
	cands := graph.Scan(doc)
	best, err := graph.Select(cands, tablePos, graph.Options{MinScore: a.cfg.GraphMinScore})
	if err != nil {
		log.Warn().Err(err).Int("candidates", len(cands)).Msg("publishing without graph section")
		return graph.Graph{Status: graph.Absent}
	}
	g := graph.Graph{Status: graph.RemoteOnly, RemoteURL: best.RemoteURL, Caption: best.Caption}
	acq := &graph.Acquirer{
		Client:    a.images,
		AssetsDir: filepath.Join(a.cfg.SiteDir, "assets"),
		RelDir:    "assets",
		MaxBytes:  a.cfg.ImageMaxBytes,
	}
	local, err := acq.Download(ctx, best)
	if err != nil {
		log.Warn().Err(err).Str("url", best.RemoteURL).Msg("graph download failed; keeping remote reference")
		return g
	}
	g.Status = graph.Downloaded
	g.LocalPath = local
	log.Debug().Str("path", local).Msg("graph downloaded")
	return g
}
