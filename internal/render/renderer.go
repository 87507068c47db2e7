// Package render abstracts the browser-automation engine behind a small
// capability interface. The sidebar discovery source and the breadcrumb
// healer depend only on Renderer, so tests substitute a stub and the
// chromedp implementation stays confined to this package.
package render

import "context"

// Renderer supplies rendered-page capabilities that plain HTTP cannot:
// executing scripts, expanding collapsed navigation, and reading the
// hydrated DOM. Implementations hold at most one browser session; calls
// are not safe for concurrent use.
type Renderer interface {
	// NavigationHTML navigates to pageURL, locates the densest
	// link-bearing navigation container, force-expands every collapsed
	// subtree, and returns the container's outer HTML. Returns "" when
	// no container qualifies as a sidebar.
	NavigationHTML(ctx context.Context, pageURL string) (string, error)

	// PageHTML navigates to pageURL and returns the hydrated document
	// HTML once the main content has settled.
	PageHTML(ctx context.Context, pageURL string) (string, error)

	// Breadcrumbs navigates to pageURL and returns its breadcrumb trail
	// (ancestor titles ending in the page's own title) plus the browser
	// tab title. An empty trail is not an error.
	Breadcrumbs(ctx context.Context, pageURL string) (trail []string, pageTitle string, err error)

	// Close releases the browser session.
	Close() error
}
