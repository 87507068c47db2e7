package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"bookstitch/internal/config"
	"bookstitch/internal/consolidate"
	"bookstitch/internal/discover"
	"bookstitch/internal/fetch"
	"bookstitch/internal/fusion"
	"bookstitch/internal/render"
	"bookstitch/internal/urlutil"
)

// Runner executes one reconstruction run end to end: discovery, native
// Markdown probing, page download, and consolidation.
type Runner struct {
	client    *fetch.Client
	converter *fetch.Converter
	cfg       config.Config
	filter    urlutil.Filter
	log       *slog.Logger

	// newRenderer opens a browser session for a run. Nil disables
	// browser-backed discovery and page rendering.
	newRenderer func(ctx context.Context) (render.Renderer, error)

	// githubAPIBase overrides the contents API endpoint when non-empty.
	githubAPIBase string
}

func NewRunner(cfg config.Config, log *slog.Logger) *Runner {
	r := &Runner{
		client:    fetch.NewClient(cfg.FetchTimeout, cfg.MaxBodyBytes),
		converter: fetch.NewConverter(),
		cfg:       cfg,
		filter:    urlutil.NewFilter(cfg.IncludePattern, cfg.ExcludePatterns),
		log:       log,
	}
	if cfg.UseBrowser {
		r.newRenderer = func(ctx context.Context) (render.Renderer, error) {
			return render.NewBrowser(ctx, log)
		}
	}
	return r
}

// Execute runs the full pipeline for a run, updating its status as stages
// complete. The consolidated document lands on the run itself and, when
// configured, in the output file.
func (r *Runner) Execute(ctx context.Context, run *Run) {
	defer run.CloseEvents()
	log := r.log.With("run_id", run.ID, "base_url", run.BaseURL)

	strategy := selectStrategy(run.Strategy, run.BaseURL, r.newRenderer != nil)
	log.Info("strategy selected", "strategy", strategy)

	var renderer render.Renderer
	if strategy == StrategyFusion && r.newRenderer != nil {
		var err error
		renderer, err = r.newRenderer(ctx)
		if err != nil {
			log.Warn("browser unavailable, continuing without sidebar", "error", err)
		} else {
			defer renderer.Close()
		}
	}

	run.SetStatus(StatusDiscovering, "discovering pages")
	run.Notify("discovering", 0, 0, "enumerating pages")
	hier, strategy, err := r.discoverPages(ctx, run, strategy, renderer)
	if err != nil {
		log.Error("discovery failed", "error", err)
		run.AddError(err.Error())
		run.SetStatus(StatusFailed, "discovering")
		return
	}
	run.SetTotalPages(hier.Len())
	log.Info("discovery complete", "pages", hier.Len())

	// GitHub runs fetch raw Markdown directly; probing rendered pages for
	// sibling .md files only applies to site strategies.
	probes := map[string]discover.ProbeResult{}
	if strategy != StrategyGitHub {
		run.SetStatus(StatusProbing, "probing for native markdown")
		run.Notify("probing", 0, hier.Len(), "checking for native markdown sources")
		var urls []string
		for _, e := range hier.Pages() {
			urls = append(urls, e.URL)
		}
		prober := discover.NewProber(r.client, r.cfg.MaxConcurrent, r.cfg.RequestDelay, r.log)
		probes = prober.Probe(ctx, urls)
		run.SetNativeHits(len(probes))
	}

	run.SetStatus(StatusDownloading, "downloading pages")
	run.Notify("downloading", 0, hier.Len(), "fetching page content")
	pages := r.downloadPages(ctx, run, hier, probes, renderer, strategy)
	if len(pages) == 0 {
		run.AddError("no page content could be fetched")
		run.SetStatus(StatusFailed, "downloading")
		return
	}

	run.SetStatus(StatusMerging, "consolidating document")
	run.Notify("merging", len(pages), len(pages), "consolidating document")
	cons := consolidate.New(r.log)
	cons.FilterLabel = r.cfg.IncludePattern
	doc := cons.Consolidate(run.BaseURL, hier, pages)
	run.SetDocument(doc)

	if r.cfg.OutputFile != "" {
		if err := os.WriteFile(r.cfg.OutputFile, []byte(doc), 0o644); err != nil {
			log.Error("write output failed", "path", r.cfg.OutputFile, "error", err)
			run.AddError(fmt.Sprintf("write output: %s", err))
		} else {
			log.Info("document written", "path", r.cfg.OutputFile, "bytes", len(doc))
		}
	}

	run.SetStatus(StatusCompleted, "done")
}

// discoverPages runs the discovery sources appropriate to strategy and fuses
// their results. Individual source failures degrade to an empty result. The
// returned strategy is the one discovery actually used, which can differ
// from the requested one when an auto run finds a backing repository.
func (r *Runner) discoverPages(ctx context.Context, run *Run, strategy Strategy, renderer render.Renderer) (*fusion.Hierarchy, Strategy, error) {
	if strategy == StrategyGitHub {
		hier, err := r.discoverGitHub(ctx, run.BaseURL)
		return hier, strategy, err
	}

	// Auto runs without a browser try the backing repository before site
	// discovery, same as an explicit github run would.
	if strategy == StrategyUniversal && requestedAuto(run.Strategy) {
		hier, err := r.discoverGitHub(ctx, run.BaseURL)
		if err == nil {
			return hier, StrategyGitHub, nil
		}
		r.log.Info("no github source detected, using site discovery", "reason", err)
	}

	var (
		sitemapPages   []discover.Page
		heuristicPages []discover.Page
		wg             sync.WaitGroup
	)

	if strategy != StrategyScraping {
		wg.Add(1)
		go func() {
			defer wg.Done()
			walker := discover.NewSitemapWalker(r.client, r.filter, r.log)
			pages, err := walker.Discover(ctx, run.BaseURL)
			if err != nil {
				r.log.Warn("sitemap discovery failed", "error", err)
				return
			}
			sitemapPages = pages
		}()
	}

	if strategy != StrategySitemap {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pages, err := r.heuristicScan(ctx, run.BaseURL, renderer)
			if err != nil {
				r.log.Warn("heuristic discovery failed", "error", err)
				return
			}
			heuristicPages = pages
		}()
	}
	wg.Wait()

	var sidebarPages []discover.Page
	if strategy == StrategyFusion && renderer != nil {
		var sitemapURLs []string
		for _, p := range sitemapPages {
			sitemapURLs = append(sitemapURLs, p.URL)
		}
		sd := discover.NewSidebarDiscoverer(renderer, r.filter, r.log)
		pages, _, err := sd.Discover(ctx, run.BaseURL, sitemapURLs)
		if err != nil {
			r.log.Warn("sidebar discovery failed", "error", err)
		} else {
			sidebarPages = pages
		}
	}

	hier, err := fusion.Merge(sidebarPages, sitemapPages, heuristicPages, r.log)
	return hier, strategy, err
}

// heuristicScan reads homepage links, preferring rendered markup when a
// browser session is open since client-side sites link nothing before
// hydration.
func (r *Runner) heuristicScan(ctx context.Context, baseURL string, renderer render.Renderer) ([]discover.Page, error) {
	scanner := discover.NewHeuristicScanner(r.client, r.filter, r.log)
	if renderer != nil {
		htmlContent, err := renderer.PageHTML(ctx, baseURL)
		if err == nil {
			return scanner.DiscoverFromHTML(htmlContent, baseURL)
		}
		r.log.Warn("homepage render failed, scanning plain fetch", "error", err)
	}
	return scanner.Discover(ctx, baseURL)
}

func (r *Runner) discoverGitHub(ctx context.Context, baseURL string) (*fusion.Hierarchy, error) {
	pageHTML := ""
	if urlutil.Host(baseURL) != "github.com" {
		body, err := r.client.GetString(ctx, baseURL)
		if err != nil {
			return nil, fmt.Errorf("fetch entry page: %w", err)
		}
		pageHTML = body
	}

	owner, repo, ok := discover.DetectRepo(baseURL, pageHTML)
	if !ok {
		return nil, fmt.Errorf("no github repository detected for %s", baseURL)
	}

	gh := discover.NewGitHubDiscoverer(r.client, r.log)
	if r.githubAPIBase != "" {
		gh.SetAPIBase(r.githubAPIBase)
	}
	pages, err := gh.Discover(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	return fusion.FromPages(pages)
}

// downloadPages fetches every hierarchy entry with bounded concurrency.
// Failed pages are logged and dropped; the run continues.
func (r *Runner) downloadPages(ctx context.Context, run *Run, hier *fusion.Hierarchy, probes map[string]discover.ProbeResult, renderer render.Renderer, strategy Strategy) []consolidate.Page {
	entries := hier.Pages()
	results := make([]consolidate.Page, len(entries))
	ok := make([]bool, len(entries))

	// Browser page rendering is single-session; everything else fans out.
	concurrency := r.cfg.MaxConcurrent
	if renderer != nil {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry fusion.Entry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			page, err := r.fetchPage(ctx, entry, probes, renderer, strategy)
			fetched := run.IncrFetched()
			run.Notify("downloading", fetched, len(entries), entry.URL)
			if err != nil {
				r.log.Warn("page fetch failed", "url", entry.URL, "error", err)
				run.AddError(fmt.Sprintf("%s: %s", entry.URL, err))
				return
			}
			results[i] = page
			ok[i] = true

			if r.cfg.RequestDelay > 0 {
				select {
				case <-time.After(r.cfg.RequestDelay):
				case <-ctx.Done():
				}
			}
		}(i, entry)
	}
	wg.Wait()

	var pages []consolidate.Page
	for i := range results {
		if ok[i] {
			pages = append(pages, results[i])
		}
	}
	return pages
}

// fetchPage resolves one entry to Markdown content, preferring the probed
// native source, then the rendered page, then a plain fetch.
func (r *Runner) fetchPage(ctx context.Context, entry fusion.Entry, probes map[string]discover.ProbeResult, renderer render.Renderer, strategy Strategy) (consolidate.Page, error) {
	if probe, hit := probes[urlutil.Normalize(entry.URL)]; hit {
		title := entry.Title
		if title == "" {
			title = probe.Title
		}
		return consolidate.Page{
			Title:   title,
			URL:     entry.URL,
			Content: probe.Markdown,
			Source:  discover.SourceNativeProbe,
		}, nil
	}

	if strategy == StrategyGitHub {
		body, err := r.getWithRetry(ctx, entry.URL)
		if err != nil {
			return consolidate.Page{}, err
		}
		return consolidate.Page{
			Title:   entry.Title,
			URL:     entry.URL,
			Content: body,
			Source:  discover.SourceGitHub,
		}, nil
	}

	var htmlContent string
	var err error
	if renderer != nil {
		htmlContent, err = renderer.PageHTML(ctx, entry.URL)
	} else {
		htmlContent, err = r.getWithRetry(ctx, entry.URL)
	}
	if err != nil {
		return consolidate.Page{}, err
	}

	result, err := r.converter.Convert(htmlContent, entry.URL)
	if err != nil {
		return consolidate.Page{}, fmt.Errorf("convert: %w", err)
	}

	title := entry.Title
	if title == "" {
		title = result.Title
	}
	if title == "" {
		title = urlutil.TitleFromURL(entry.URL)
	}
	return consolidate.Page{
		Title:   title,
		URL:     entry.URL,
		Content: result.Markdown,
		Source:  entry.Source,
	}, nil
}

func (r *Runner) getWithRetry(ctx context.Context, url string) (string, error) {
	var body string
	var err error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		body, err = r.client.GetString(ctx, url)
		if err == nil || !IsRetryable(err) {
			break
		}
		r.log.Warn("retryable fetch error", "url", url, "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("empty response from %s", url)
	}
	return body, nil
}
