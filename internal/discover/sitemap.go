package discover

import (
	"context"
	"encoding/xml"
	"log/slog"
	"strings"

	"bookstitch/internal/fetch"
	"bookstitch/internal/urlutil"
)

// sitemapPaths are probed in order at the site root until one responds.
var sitemapPaths = []string{"/sitemap.xml", "/sitemap-pages.xml", "/sitemap_index.xml"}

type urlsetXML struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndexXML struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// SitemapWalker discovers pages from a site's XML sitemap, following
// sitemap-index indirection.
type SitemapWalker struct {
	client *fetch.Client
	filter urlutil.Filter
	log    *slog.Logger
}

// NewSitemapWalker returns a walker that keeps only URLs passing filter.
func NewSitemapWalker(client *fetch.Client, filter urlutil.Filter, log *slog.Logger) *SitemapWalker {
	return &SitemapWalker{client: client, filter: filter, log: log}
}

// Discover probes the standard sitemap locations under baseURL's origin and
// returns every documentation page listed. A site without a sitemap yields
// an empty result, not an error.
func (w *SitemapWalker) Discover(ctx context.Context, baseURL string) ([]Page, error) {
	origin := "https://" + urlutil.Host(baseURL)

	for _, path := range sitemapPaths {
		sitemapURL := origin + path
		seen := map[string]bool{}
		urls := w.walk(ctx, sitemapURL, seen)
		if len(urls) == 0 {
			continue
		}
		w.log.Info("sitemap discovered pages", "sitemap", sitemapURL, "pages", len(urls))
		return w.toPages(urls, baseURL), nil
	}

	w.log.Warn("no usable sitemap found", "origin", origin)
	return nil, nil
}

// walk fetches one sitemap document and recurses through index entries.
// seen guards against self-referencing indexes.
func (w *SitemapWalker) walk(ctx context.Context, sitemapURL string, seen map[string]bool) []string {
	if seen[sitemapURL] {
		return nil
	}
	seen[sitemapURL] = true

	body, err := w.client.Get(ctx, sitemapURL)
	if err != nil {
		if !fetch.IsNotFound(err) {
			w.log.Warn("sitemap fetch failed", "url", sitemapURL, "error", err)
		}
		return nil
	}

	var set urlsetXML
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		urls := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				urls = append(urls, loc)
			}
		}
		return urls
	}

	var index sitemapIndexXML
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		var urls []string
		for _, sm := range index.Sitemaps {
			loc := strings.TrimSpace(sm.Loc)
			if loc == "" {
				continue
			}
			urls = append(urls, w.walk(ctx, loc, seen)...)
		}
		return urls
	}

	w.log.Warn("sitemap document not recognized", "url", sitemapURL)
	return nil
}

func (w *SitemapWalker) toPages(urls []string, baseURL string) []Page {
	seen := map[string]bool{}
	var pages []Page
	for _, u := range urls {
		if !w.filter.Match(u) {
			continue
		}
		key := urlutil.Normalize(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		pages = append(pages, Page{
			URL:    u,
			Title:  urlutil.TitleFromURL(u),
			Depth:  urlutil.EstimateDepth(u, baseURL),
			Source: SourceSitemap,
		})
	}
	return pages
}
