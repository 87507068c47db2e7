// Package urlutil provides URL normalization and title derivation for
// discovered documentation pages. Every discovery source and the fusion
// merge key agree on the normal form produced here.
package urlutil

import (
	"net/url"
	"strings"
)

// Normalize reduces a URL to the canonical merge key: scheme, "www.",
// trailing slash, fragment and query are stripped and the result is
// lower-cased. Normalize is idempotent.
func Normalize(rawURL string) string {
	u := rawURL
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	u = strings.TrimPrefix(u, "www.")
	return strings.ToLower(u)
}

// Clean strips the fragment and query from a URL but keeps scheme and case,
// so the result is still fetchable.
func Clean(rawURL string) string {
	u := rawURL
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return u
}

// Resolve joins a possibly-relative href against a base URL and cleans the
// result. Returns "" when either part fails to parse.
func Resolve(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return Clean(base.ResolveReference(ref).String())
}

// Host returns the hostname of a URL, or "" when it does not parse.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// TitleFromURL derives a human-readable label from the last path segment.
// The site root maps to "Introduction".
func TitleFromURL(rawURL string) string {
	path := ""
	if u, err := url.Parse(rawURL); err == nil {
		path = strings.Trim(u.Path, "/")
	}
	if path == "" {
		return "Introduction"
	}
	slug := path[strings.LastIndexByte(path, '/')+1:]
	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")
	return TitleCase(slug)
}

// TitleCase upper-cases the first letter of each space-separated word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// EstimateDepth counts path segments of a URL beyond the site root path.
// The root itself is depth 0.
func EstimateDepth(rawURL, baseURL string) int {
	basePath := ""
	if u, err := url.Parse(baseURL); err == nil {
		basePath = strings.Trim(u.Path, "/")
	}
	urlPath := ""
	if u, err := url.Parse(rawURL); err == nil {
		urlPath = strings.Trim(u.Path, "/")
	}

	if urlPath == "" || urlPath == basePath {
		return 0
	}
	if basePath != "" && strings.HasPrefix(urlPath, basePath) {
		urlPath = strings.Trim(urlPath[len(basePath):], "/")
		if urlPath == "" {
			return 0
		}
	}
	return len(strings.Split(urlPath, "/"))
}

// Filter holds the include/exclude substring rules applied to page URLs.
// A zero Filter accepts everything.
type Filter struct {
	Include  string   // page URL must contain this substring (case-insensitive)
	Excludes []string // page URL must contain none of these
}

// NewFilter builds a Filter from an include substring and a comma-separated
// exclude list.
func NewFilter(include, exclude string) Filter {
	f := Filter{Include: strings.ToLower(strings.TrimSpace(include))}
	for _, ex := range strings.Split(exclude, ",") {
		ex = strings.ToLower(strings.TrimSpace(ex))
		if ex != "" {
			f.Excludes = append(f.Excludes, ex)
		}
	}
	return f
}

// Match reports whether a URL passes the include/exclude rules.
func (f Filter) Match(rawURL string) bool {
	u := strings.ToLower(rawURL)
	if f.Include != "" && !strings.Contains(u, f.Include) {
		return false
	}
	for _, ex := range f.Excludes {
		if strings.Contains(u, ex) {
			return false
		}
	}
	return true
}
