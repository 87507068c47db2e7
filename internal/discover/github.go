package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"bookstitch/internal/fetch"
	"bookstitch/internal/urlutil"
)

const githubAPIBase = "https://api.github.com"

// blobLinkPattern matches "view source" style links that reveal the backing
// repository of a documentation site.
var blobLinkPattern = regexp.MustCompile(`github\.com/([\w.-]+)/([\w.-]+)/(?:blob|tree|edit)/`)

// docDirCandidates are checked in order when looking for the documentation
// root inside a repository.
var docDirCandidates = []string{"docs", "doc", "documentation", ""}

type githubEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// GitHubDiscoverer enumerates Markdown files straight from a site's backing
// GitHub repository using the contents API. Fetched pages carry raw file
// URLs, so downstream fetching gets Markdown without any conversion.
type GitHubDiscoverer struct {
	client  *fetch.Client
	apiBase string
	log     *slog.Logger
}

func NewGitHubDiscoverer(client *fetch.Client, log *slog.Logger) *GitHubDiscoverer {
	return &GitHubDiscoverer{client: client, apiBase: githubAPIBase, log: log}
}

// SetAPIBase points the discoverer at a different contents API endpoint.
func (d *GitHubDiscoverer) SetAPIBase(base string) {
	d.apiBase = base
}

// DetectRepo extracts an owner/repo pair from a documentation site. A
// github.com URL names the repo directly; otherwise the page markup is
// scanned for edit-on-GitHub links.
func DetectRepo(baseURL, pageHTML string) (owner, repo string, ok bool) {
	if u, err := url.Parse(baseURL); err == nil && strings.EqualFold(u.Hostname(), "github.com") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 {
			return parts[0], parts[1], true
		}
	}
	if m := blobLinkPattern.FindStringSubmatch(pageHTML); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// Discover lists the repository's documentation Markdown files.
func (d *GitHubDiscoverer) Discover(ctx context.Context, owner, repo string) ([]Page, error) {
	for _, dir := range docDirCandidates {
		pages, err := d.listDir(ctx, owner, repo, dir, 0)
		if err != nil {
			if fetch.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if len(pages) == 0 {
			continue
		}
		sort.SliceStable(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })
		for i := range pages {
			pages[i].Order = i
		}
		d.log.Info("github discovery finished", "repo", owner+"/"+repo, "dir", dir, "pages", len(pages))
		return pages, nil
	}
	return nil, fmt.Errorf("no markdown found in %s/%s", owner, repo)
}

func (d *GitHubDiscoverer) listDir(ctx context.Context, owner, repo, dir string, depth int) ([]Page, error) {
	if depth > 6 {
		return nil, nil
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", d.apiBase, owner, repo, dir)
	body, err := d.client.Get(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var entries []githubEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode contents listing for %s: %w", dir, err)
	}

	var pages []Page
	for _, e := range entries {
		switch {
		case e.Type == "dir":
			sub, err := d.listDir(ctx, owner, repo, e.Path, depth+1)
			if err != nil {
				d.log.Warn("skipping unreadable directory", "path", e.Path, "error", err)
				continue
			}
			pages = append(pages, sub...)
		case isMarkdownFile(e.Name) && e.DownloadURL != "":
			pages = append(pages, Page{
				URL:    e.DownloadURL,
				Title:  titleFromFilename(e.Name),
				Depth:  strings.Count(e.Path, "/"),
				Parent: parentDirTitle(e.Path),
				Source: SourceGitHub,
			})
		}
	}
	return pages, nil
}

func isMarkdownFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".mdx")
}

func titleFromFilename(name string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(name, ".mdx"), ".md")
	if strings.EqualFold(base, "README") || strings.EqualFold(base, "index") {
		return "Introduction"
	}
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return urlutil.TitleCase(base)
}

func parentDirTitle(filePath string) string {
	dir := path.Dir(filePath)
	if dir == "." || dir == "/" {
		return ""
	}
	return urlutil.TitleCase(path.Base(dir))
}
