package discover

import (
	"context"
	"fmt"
	"log/slog"

	"bookstitch/internal/doctree"
	"bookstitch/internal/render"
	"bookstitch/internal/treeparse"
	"bookstitch/internal/urlutil"
)

// SidebarDiscoverer is the highest-confidence source: it renders the site in
// a browser, parses the expanded navigation sidebar into a tree, heals the
// tree against the sitemap, and flattens it in reading order.
type SidebarDiscoverer struct {
	renderer render.Renderer
	parser   *treeparse.Parser
	healer   *treeparse.Healer
	filter   urlutil.Filter
	log      *slog.Logger
}

func NewSidebarDiscoverer(r render.Renderer, filter urlutil.Filter, log *slog.Logger) *SidebarDiscoverer {
	return &SidebarDiscoverer{
		renderer: r,
		parser:   treeparse.New(log),
		healer:   treeparse.NewHealer(r, log),
		filter:   filter,
		log:      log,
	}
}

// Discover builds the sidebar tree for baseURL and returns its pages in
// sidebar order. sitemapURLs, when available, drive breadcrumb healing of
// pages the sidebar omits.
func (d *SidebarDiscoverer) Discover(ctx context.Context, baseURL string, sitemapURLs []string) ([]Page, *doctree.Node, error) {
	sidebarHTML, err := d.renderer.NavigationHTML(ctx, baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("render sidebar: %w", err)
	}

	tree, err := d.parser.Parse(sidebarHTML, baseURL)
	if err != nil {
		return nil, nil, err
	}
	d.log.Info("sidebar parsed", "pages", tree.PageCount())

	if len(sitemapURLs) > 0 {
		tree = d.healer.Heal(ctx, tree, sitemapURLs)
	}

	return d.flatten(tree), tree, nil
}

// flatten walks the tree depth first. Order records the visit sequence so
// fusion can reproduce the sidebar's reading order.
func (d *SidebarDiscoverer) flatten(tree *doctree.Node) []Page {
	var pages []Page
	order := 0

	var visit func(n *doctree.Node, section string)
	visit = func(n *doctree.Node, section string) {
		for _, child := range n.Children {
			childSection := section
			if child.URL == "" {
				childSection = child.Title
			} else if d.filter.Match(child.URL) {
				pages = append(pages, Page{
					URL:    child.URL,
					Title:  child.Title,
					Depth:  child.Level,
					Order:  order,
					Parent: section,
					Source: SourceSidebar,
				})
				order++
			}
			visit(child, childSection)
		}
	}
	visit(tree, "")
	return pages
}
