package discover

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"bookstitch/internal/fetch"
	"bookstitch/internal/urlutil"
)

// skipPathFragments marks links that are never documentation content.
var skipPathFragments = []string{
	"login", "signup", "sign-up", "register", "logout",
	"/assets/", "/static/", "/img/", "/images/", "/css/", "/js/",
	"mailto:", "javascript:", "tel:",
}

// skipExtensions are non-page resources linked from documentation.
var skipExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico",
	".css", ".js", ".zip", ".tar.gz", ".pdf", ".woff", ".woff2",
}

// HeuristicScanner discovers pages by scanning a site's entry page for
// same-domain links. It is the lowest-confidence source and exists to fill
// gaps when a site exposes neither a sidebar nor a sitemap.
type HeuristicScanner struct {
	client *fetch.Client
	filter urlutil.Filter
	log    *slog.Logger
}

func NewHeuristicScanner(client *fetch.Client, filter urlutil.Filter, log *slog.Logger) *HeuristicScanner {
	return &HeuristicScanner{client: client, filter: filter, log: log}
}

// Discover fetches baseURL and scans its anchors.
func (s *HeuristicScanner) Discover(ctx context.Context, baseURL string) ([]Page, error) {
	body, err := s.client.GetString(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return s.DiscoverFromHTML(body, baseURL)
}

// DiscoverFromHTML scans already-loaded markup, typically a browser-rendered
// page where client-side navigation links only exist after hydration.
func (s *HeuristicScanner) DiscoverFromHTML(htmlContent, baseURL string) ([]Page, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	host := urlutil.Host(baseURL)
	seen := map[string]bool{}
	var pages []Page

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if p, ok := s.pageFromAnchor(n, baseURL, host, seen); ok {
				pages = append(pages, p)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	s.log.Info("heuristic scan finished", "base", baseURL, "pages", len(pages))
	return pages, nil
}

func (s *HeuristicScanner) pageFromAnchor(n *html.Node, baseURL, host string, seen map[string]bool) (Page, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}
	if href == "" || strings.HasPrefix(href, "#") {
		return Page{}, false
	}
	if !wantLink(href) {
		return Page{}, false
	}

	resolved := urlutil.Resolve(baseURL, href)
	if resolved == "" || urlutil.Host(resolved) != host {
		return Page{}, false
	}
	if !s.filter.Match(resolved) {
		return Page{}, false
	}
	key := urlutil.Normalize(resolved)
	if seen[key] {
		return Page{}, false
	}
	seen[key] = true

	title := strings.TrimSpace(textContent(n))
	if title == "" || len(title) > 120 {
		title = urlutil.TitleFromURL(resolved)
	}
	return Page{
		URL:    resolved,
		Title:  title,
		Depth:  urlutil.EstimateDepth(resolved, baseURL),
		Source: SourceHeuristic,
	}, true
}

func wantLink(href string) bool {
	lower := strings.ToLower(href)
	for _, frag := range skipPathFragments {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	trimmed := strings.TrimSuffix(lower, "/")
	for _, ext := range skipExtensions {
		if strings.HasSuffix(trimmed, ext) {
			return false
		}
	}
	return true
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}
