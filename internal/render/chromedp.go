package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// maxExpandPasses bounds the force-expand loop; deep sidebars settle well
// before this.
const maxExpandPasses = 20

// locateSidebarJS picks the navigation candidate with the most anchor
// descendants. Anything with 3 or fewer links is not a sidebar.
const locateSidebarJS = `(() => {
	const candidates = document.querySelectorAll(
		"nav, aside, div[class*='sidebar'], [data-testid='sidebar']");
	let best = null, max = 0;
	for (const cand of candidates) {
		const count = cand.querySelectorAll("a").length;
		if (count > max && count > 3) { max = count; best = cand; }
	}
	return best ? best.outerHTML : "";
})()`

// revealPassJS runs one force-expand pass: unhide everything matching a
// collapsed signature, then click every toggle affordance. Elements are
// tagged so repeat passes only count fresh progress.
const revealPassJS = `(() => {
	let progress = 0;

	const collapsed = document.querySelectorAll([
		'div[data-state="closed"]',
		'div[style*="height: 0"]',
		'ul.hidden',
		'nav div.overflow-hidden',
		'[aria-hidden="true"]',
	].join(','));
	for (const el of collapsed) {
		if (el.dataset.bsRevealed) continue;
		el.style.display = 'block';
		el.style.height = 'auto';
		el.style.maxHeight = 'none';
		el.style.visibility = 'visible';
		el.style.opacity = '1';
		el.style.overflow = 'visible';
		el.setAttribute('data-state', 'open');
		el.setAttribute('aria-expanded', 'true');
		el.setAttribute('aria-hidden', 'false');
		el.dataset.bsRevealed = '1';
		progress++;
	}

	const tryClick = (el) => {
		if (!el || el.dataset.bsClicked) return;
		try { el.click(); el.dataset.bsClicked = '1'; progress++; } catch (e) {}
	};

	for (const el of document.querySelectorAll('[aria-expanded="false"], [data-state="closed"]')) {
		tryClick(el);
	}
	for (const link of document.querySelectorAll('a.toclink, a[class*="toclink"]')) {
		const sib = link.nextElementSibling;
		if (sib && sib.tagName === 'DIV') {
			const style = window.getComputedStyle(sib);
			if (style.display === 'none' || style.height === '0px' || style.visibility === 'hidden') {
				tryClick(link);
			}
		}
	}
	for (const svg of document.querySelectorAll('svg[class*="icon"], svg.rotate-0')) {
		tryClick(svg.closest('span') || svg.closest('button') || svg.parentElement);
	}

	return progress;
})()`

// breadcrumbsJS reads the breadcrumb trail of the current page.
const breadcrumbsJS = `(() => {
	const items = document.querySelectorAll(
		"nav[aria-label='Breadcrumb'] li, .gitbook-breadcrumbs a, nav.breadcrumbs a");
	const out = [];
	for (const el of items) {
		const t = el.textContent.trim();
		if (t && t !== '/') out.push(t);
	}
	return out;
})()`

// Browser is the chromedp-backed Renderer. One headless Chrome session per
// Browser; a discovery run drives it sequentially.
type Browser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         *slog.Logger
	hydration   time.Duration
}

// NewBrowser starts a headless browser session.
func NewBrowser(ctx context.Context, log *slog.Logger) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Starting the browser eagerly surfaces a missing Chrome binary now
	// instead of on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Browser{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		log:         log,
		hydration:   2 * time.Second,
	}, nil
}

// NavigationHTML implements Renderer.
func (b *Browser) NavigationHTML(ctx context.Context, pageURL string) (string, error) {
	if err := b.navigate(ctx, pageURL); err != nil {
		return "", err
	}

	for pass := 1; pass <= maxExpandPasses; pass++ {
		var progress int
		if err := b.run(ctx, chromedp.Evaluate(revealPassJS, &progress)); err != nil {
			b.log.Warn("force-expand pass failed", "pass", pass, "error", err)
			break
		}
		if progress == 0 {
			break
		}
		b.log.Debug("expanded sidebar elements", "pass", pass, "count", progress)
		if err := b.run(ctx, chromedp.Sleep(500*time.Millisecond)); err != nil {
			return "", err
		}
	}

	var outerHTML string
	if err := b.run(ctx, chromedp.Evaluate(locateSidebarJS, &outerHTML)); err != nil {
		return "", fmt.Errorf("locate sidebar: %w", err)
	}
	return outerHTML, nil
}

// PageHTML implements Renderer.
func (b *Browser) PageHTML(ctx context.Context, pageURL string) (string, error) {
	if err := b.navigate(ctx, pageURL); err != nil {
		return "", err
	}

	// Give the content container a bounded chance to appear; a timeout
	// here is not fatal, the page may simply lack the selector.
	waitCtx, cancel := context.WithTimeout(b.ctx, 10*time.Second)
	_ = chromedp.Run(waitCtx, chromedp.WaitVisible("main, article, .content", chromedp.ByQuery))
	cancel()

	var html string
	if err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

// Breadcrumbs implements Renderer.
func (b *Browser) Breadcrumbs(ctx context.Context, pageURL string) ([]string, string, error) {
	if err := b.navigate(ctx, pageURL); err != nil {
		return nil, "", err
	}

	var trail []string
	var title string
	err := b.run(ctx,
		chromedp.Evaluate(breadcrumbsJS, &trail),
		chromedp.Title(&title),
	)
	if err != nil {
		return nil, "", fmt.Errorf("read breadcrumbs: %w", err)
	}
	return trail, title, nil
}

// Close implements Renderer.
func (b *Browser) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

func (b *Browser) navigate(ctx context.Context, pageURL string) error {
	err := b.run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(b.hydration),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	return nil
}

// run executes actions on the browser tab, bounded by the caller's
// deadline when one is set. chromedp requires its own context chain, so
// the caller's deadline is grafted onto the tab context.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := b.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(b.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}
