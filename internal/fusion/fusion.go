// Package fusion merges the discovery sources into one authoritative page
// hierarchy. The sidebar is trusted for structure and order; the sitemap
// and heuristic scan only fill in pages the sidebar missed.
package fusion

import (
	"errors"
	"log/slog"
	"sort"
	"strings"

	"bookstitch/internal/discover"
	"bookstitch/internal/urlutil"
)

// Gap-filled pages sort after every sidebar page. Sitemap fills come before
// heuristic fills, and within each band pages sort by depth.
const (
	sitemapOrderBase   = 9999
	heuristicOrderBase = 20000
)

// ErrNoPages is returned when every discovery source came back empty.
var ErrNoPages = errors.New("no pages discovered by any source")

// Entry is one page in the fused hierarchy.
type Entry struct {
	URL     string
	Title   string
	Depth   int
	Order   int
	Section string
	Source  discover.Source
}

// Hierarchy is the fused, ordered page set. It is immutable after Merge.
type Hierarchy struct {
	byURL   map[string]Entry
	ordered []Entry
}

// Merge fuses the three discovery sources. The first source to claim a
// normalized URL wins; sources are applied in confidence order.
func Merge(sidebar, sitemap, heuristic []discover.Page, log *slog.Logger) (*Hierarchy, error) {
	byURL := make(map[string]Entry)

	claim := func(p discover.Page, order int) {
		key := urlutil.Normalize(p.URL)
		if key == "" {
			return
		}
		if _, taken := byURL[key]; taken {
			return
		}
		byURL[key] = Entry{
			URL:     p.URL,
			Title:   p.Title,
			Depth:   p.Depth,
			Order:   order,
			Section: p.Parent,
			Source:  p.Source,
		}
	}

	for _, p := range sidebar {
		claim(p, p.Order)
	}
	for _, p := range sitemap {
		claim(p, sitemapOrderBase+p.Depth)
	}
	for _, p := range heuristic {
		claim(p, heuristicOrderBase+p.Depth)
	}

	if len(byURL) == 0 {
		return nil, ErrNoPages
	}

	ordered := make([]Entry, 0, len(byURL))
	for _, e := range byURL {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].URL < ordered[j].URL
	})

	log.Info("hierarchy fused",
		"sidebar", len(sidebar),
		"sitemap", len(sitemap),
		"heuristic", len(heuristic),
		"total", len(ordered))

	return &Hierarchy{byURL: byURL, ordered: ordered}, nil
}

// FromPages builds a hierarchy from a single already-ordered source, used by
// strategies that bypass fusion (GitHub, native-probe-only runs).
func FromPages(pages []discover.Page) (*Hierarchy, error) {
	byURL := make(map[string]Entry)
	var ordered []Entry
	for _, p := range pages {
		key := urlutil.Normalize(p.URL)
		if key == "" {
			continue
		}
		if _, taken := byURL[key]; taken {
			continue
		}
		e := Entry{
			URL:     p.URL,
			Title:   p.Title,
			Depth:   p.Depth,
			Order:   len(ordered),
			Section: p.Parent,
			Source:  p.Source,
		}
		byURL[key] = e
		ordered = append(ordered, e)
	}
	if len(ordered) == 0 {
		return nil, ErrNoPages
	}
	return &Hierarchy{byURL: byURL, ordered: ordered}, nil
}

// Pages returns the fused entries in reading order.
func (h *Hierarchy) Pages() []Entry {
	out := make([]Entry, len(h.ordered))
	copy(out, h.ordered)
	return out
}

// Lookup finds the entry for a URL, normalizing before the match. A second
// attempt strips a trailing ".md" so raw-file URLs still match their pages.
func (h *Hierarchy) Lookup(rawURL string) (Entry, bool) {
	key := urlutil.Normalize(rawURL)
	if e, ok := h.byURL[key]; ok {
		return e, true
	}
	if trimmed := strings.TrimSuffix(key, ".md"); trimmed != key {
		if e, ok := h.byURL[trimmed]; ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Len reports the number of fused pages.
func (h *Hierarchy) Len() int {
	return len(h.ordered)
}
