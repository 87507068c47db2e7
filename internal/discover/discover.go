// Package discover enumerates a documentation site's pages through several
// independent sources. Each source produces a flat list of candidate pages;
// the fusion package merges them into a single hierarchy.
package discover

// Source identifies which discovery strategy produced a page.
type Source string

const (
	SourceSidebar     Source = "sidebar"
	SourceSitemap     Source = "sitemap"
	SourceHeuristic   Source = "heuristic"
	SourceNativeProbe Source = "native_probe"
	SourceGitHub      Source = "github"
)

// Page is one discovered documentation page.
type Page struct {
	URL    string
	Title  string
	Depth  int
	Order  int
	Parent string
	Source Source
}
