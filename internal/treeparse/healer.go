package treeparse

import (
	"context"
	"log/slog"
	"strings"

	"bookstitch/internal/doctree"
	"bookstitch/internal/render"
	"bookstitch/internal/urlutil"
)

// Healer cross-validates a parsed sidebar tree against the sitemap's page
// set and re-inserts missing pages by re-deriving their position from each
// page's breadcrumb trail. Healing is best-effort: a page that cannot be
// placed is logged and left out.
type Healer struct {
	renderer render.Renderer
	log      *slog.Logger
}

// NewHealer returns a Healer backed by the given renderer.
func NewHealer(r render.Renderer, log *slog.Logger) *Healer {
	return &Healer{renderer: r, log: log}
}

// Heal inserts every sitemap URL absent from the tree. The input tree is
// modified in place and returned.
func (h *Healer) Heal(ctx context.Context, tree *doctree.Node, sitemapURLs []string) *doctree.Node {
	if len(sitemapURLs) == 0 {
		return tree
	}

	treeURLs := tree.URLSet()
	var missing []string
	for _, u := range sitemapURLs {
		if !treeURLs[urlutil.Normalize(u)] {
			missing = append(missing, u)
		}
	}

	if len(missing) == 0 {
		h.log.Info("sidebar tree covers all sitemap pages")
		return tree
	}
	h.log.Warn("sidebar tree is missing pages, healing", "missing", len(missing))

	for _, u := range missing {
		if err := h.healOne(ctx, tree, u); err != nil {
			h.log.Warn("failed to heal page", "url", u, "error", err)
		}
	}
	return tree
}

func (h *Healer) healOne(ctx context.Context, root *doctree.Node, pageURL string) error {
	trail, pageTitle, err := h.renderer.Breadcrumbs(ctx, pageURL)
	if err != nil {
		return err
	}

	if len(trail) == 0 {
		// No trail to walk; attach directly under the root with the
		// browser tab title as the label.
		title := strings.TrimSpace(pageTitle)
		if title == "" {
			title = urlutil.TitleFromURL(pageURL)
		}
		root.AddChild(&doctree.Node{Title: title, Level: 1, URL: pageURL})
		return nil
	}

	crumbs := append([]string(nil), trail...)
	if isRootLabel(crumbs[0], root.Title) {
		crumbs = crumbs[1:]
	}

	selfTitle := "Untitled"
	if len(crumbs) > 0 {
		selfTitle = crumbs[len(crumbs)-1]
		crumbs = crumbs[:len(crumbs)-1]
	}

	current := root
	for _, segment := range crumbs {
		if found := current.FindChild(segment); found != nil {
			current = found
			continue
		}
		h.log.Info("healing created section", "section", segment)
		section := &doctree.Node{Title: segment, Level: current.Level + 1}
		current.AddChild(section)
		current = section
	}

	h.log.Info("healing restored page", "title", selfTitle, "url", pageURL)
	current.AddChild(&doctree.Node{Title: selfTitle, Level: current.Level + 1, URL: pageURL})
	return nil
}

// isRootLabel reports whether a leading breadcrumb segment is a site-root
// label rather than a real section.
func isRootLabel(segment, rootTitle string) bool {
	s := strings.ToLower(strings.TrimSpace(segment))
	return s == "home" || s == "docs" || s == strings.ToLower(rootTitle)
}
