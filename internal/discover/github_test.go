package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectRepo(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		html      string
		owner     string
		repo      string
		wantFound bool
	}{
		{
			name:      "github url",
			baseURL:   "https://github.com/acme/widgets",
			owner:     "acme",
			repo:      "widgets",
			wantFound: true,
		},
		{
			name:      "edit link in page",
			baseURL:   "https://docs.example.com",
			html:      `<a href="https://github.com/acme/widgets/blob/main/docs/intro.md">Edit this page</a>`,
			owner:     "acme",
			repo:      "widgets",
			wantFound: true,
		},
		{
			name:      "no repo",
			baseURL:   "https://docs.example.com",
			html:      `<a href="/docs/intro">Intro</a>`,
			wantFound: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, ok := DetectRepo(tt.baseURL, tt.html)
			if ok != tt.wantFound {
				t.Fatalf("found = %v, want %v", ok, tt.wantFound)
			}
			if owner != tt.owner || repo != tt.repo {
				t.Errorf("repo = %s/%s, want %s/%s", owner, repo, tt.owner, tt.repo)
			}
		})
	}
}

func TestGitHubDiscoverWalksContents(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/contents/docs":
			fmt.Fprintf(w, `[
  {"name":"README.md","path":"docs/README.md","type":"file","download_url":"%s/raw/docs/README.md"},
  {"name":"setup.md","path":"docs/setup.md","type":"file","download_url":"%s/raw/docs/setup.md"},
  {"name":"img","path":"docs/img","type":"dir"},
  {"name":"guides","path":"docs/guides","type":"dir"}
]`, srv.URL, srv.URL)
		case "/repos/acme/widgets/contents/docs/guides":
			fmt.Fprintf(w, `[
  {"name":"deploy.mdx","path":"docs/guides/deploy.mdx","type":"file","download_url":"%s/raw/docs/guides/deploy.mdx"},
  {"name":"diagram.png","path":"docs/guides/diagram.png","type":"file","download_url":"%s/raw/docs/guides/diagram.png"}
]`, srv.URL, srv.URL)
		case "/repos/acme/widgets/contents/docs/img":
			fmt.Fprint(w, `[]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := &GitHubDiscoverer{client: testClient(), apiBase: srv.URL, log: testLogger()}
	pages, err := d.listDir(context.Background(), "acme", "widgets", "docs", 0)
	if err != nil {
		t.Fatalf("listDir returned error: %v", err)
	}

	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3: %+v", len(pages), pages)
	}

	byTitle := map[string]Page{}
	for _, p := range pages {
		byTitle[p.Title] = p
	}
	if _, ok := byTitle["Introduction"]; !ok {
		t.Error("README.md not mapped to Introduction")
	}
	if p, ok := byTitle["Deploy"]; !ok || p.Parent != "Guides" {
		t.Errorf("deploy page = %+v, want parent Guides", p)
	}
	if _, ok := byTitle["Diagram.png"]; ok {
		t.Error("non-markdown file slipped through")
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"README.md", "Introduction"},
		{"index.mdx", "Introduction"},
		{"getting-started.md", "Getting Started"},
		{"api_reference.md", "Api Reference"},
	}
	for _, tt := range tests {
		if got := titleFromFilename(tt.in); got != tt.want {
			t.Errorf("titleFromFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
