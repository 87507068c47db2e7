package discover

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bookstitch/internal/fetch"
	"bookstitch/internal/urlutil"
)

// ProbeResult is a page whose native Markdown source was found alongside the
// rendered HTML. Using it skips the HTML-to-Markdown conversion entirely.
type ProbeResult struct {
	PageURL   string
	SourceURL string
	Markdown  string
	Title     string
}

// Prober checks each page for a sibling Markdown document. Many generators
// (Docusaurus, MkDocs, GitBook exports) leave the source .md reachable next
// to the rendered page.
type Prober struct {
	client      *fetch.Client
	concurrency int
	delay       time.Duration
	log         *slog.Logger
}

func NewProber(client *fetch.Client, concurrency int, delay time.Duration, log *slog.Logger) *Prober {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Prober{client: client, concurrency: concurrency, delay: delay, log: log}
}

// Probe tries the Markdown candidates for each URL and returns results keyed
// by normalized page URL. Pages without a native source are simply absent.
func (p *Prober) Probe(ctx context.Context, urls []string) map[string]ProbeResult {
	results := make(map[string]ProbeResult)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)

	for _, pageURL := range urls {
		wg.Add(1)
		go func(pageURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if res, ok := p.probeOne(ctx, pageURL); ok {
				mu.Lock()
				results[urlutil.Normalize(pageURL)] = res
				mu.Unlock()
			}
			if p.delay > 0 {
				select {
				case <-time.After(p.delay):
				case <-ctx.Done():
				}
			}
		}(pageURL)
	}
	wg.Wait()

	p.log.Info("native markdown probe finished", "probed", len(urls), "hits", len(results))
	return results
}

func (p *Prober) probeOne(ctx context.Context, pageURL string) (ProbeResult, bool) {
	for _, candidate := range probeCandidates(pageURL) {
		body, err := p.client.GetString(ctx, candidate)
		if err != nil {
			continue
		}
		if looksLikeHTML(body) {
			continue
		}
		title := fetch.MarkdownTitle([]byte(body))
		if title == "" {
			title = urlutil.TitleFromURL(pageURL)
		}
		return ProbeResult{
			PageURL:   pageURL,
			SourceURL: candidate,
			Markdown:  body,
			Title:     title,
		}, true
	}
	return ProbeResult{}, false
}

// probeCandidates lists the Markdown locations tried for a page, in order.
func probeCandidates(pageURL string) []string {
	base := strings.TrimSuffix(pageURL, "/")
	if base == "" || strings.HasSuffix(strings.ToLower(base), ".md") {
		return nil
	}
	return []string{base + ".md", base + "/README.md"}
}

// looksLikeHTML rejects servers that answer every path with their SPA shell.
func looksLikeHTML(body string) bool {
	head := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}
