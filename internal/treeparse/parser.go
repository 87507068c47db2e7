// Package treeparse turns a rendered sidebar's outer HTML into a doctree.
// Two structurally different sidebar layouts are supported: the classic
// nested list-in-list shape and the flat shape where a header captures the
// link siblings that follow it. The layout is detected once per parse from
// the density of marker-classed links.
package treeparse

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bookstitch/internal/doctree"
	"bookstitch/internal/urlutil"
)

// flatMarkerThreshold is the number of toclink-marked anchors above which
// the whole sidebar is treated as a flat layout.
const flatMarkerThreshold = 3

const tocLinkSelector = `a[class*="toclink"]`

// Parser builds doctrees from sidebar markup.
type Parser struct {
	log *slog.Logger
}

// New returns a Parser.
func New(log *slog.Logger) *Parser {
	return &Parser{log: log}
}

// Parse converts sidebar HTML into a doctree rooted at a synthetic
// "Documentation Root" node. hrefs are resolved against baseURL.
func (p *Parser) Parse(sidebarHTML, baseURL string) (*doctree.Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sidebarHTML))
	if err != nil {
		return nil, fmt.Errorf("parse sidebar html: %w", err)
	}

	root := doctree.NewRoot("Documentation Root")

	tocLinks := doc.Find(tocLinkSelector)
	if tocLinks.Length() > flatMarkerThreshold {
		p.log.Info("sidebar uses flat layout", "marker_links", tocLinks.Length())
		p.parseFlat(doc, baseURL, root)
		return root, nil
	}

	p.log.Info("sidebar uses nested layout")
	rootList := doc.Find("ul").First()
	if rootList.Length() == 0 {
		if container := doc.Find(`div[data-testid="toc-scroll-container"]`).First(); container.Length() > 0 {
			rootList = container.Find("ul").First()
		}
	}
	if rootList.Length() == 0 {
		return root, nil
	}

	p.parseNested(rootList, baseURL, root, 1)
	return root, nil
}

// parseNested walks ul > li recursively. Each item is either a leaf page
// (carries a direct link) or a section header (text only). A header whose
// item has no nested list of its own captures the link siblings that
// follow it until the next header appears.
func (p *Parser) parseNested(list *goquery.Selection, baseURL string, parent *doctree.Node, level int) {
	var currentSection *doctree.Node

	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		title, pageURL, isLeaf := classifyItem(li, baseURL)
		if title == "" {
			title = "Unknown"
		}

		target := parent
		if isLeaf && currentSection != nil {
			target = currentSection
		}

		node := &doctree.Node{Title: title, Level: level, URL: pageURL}
		target.AddChild(node)

		nested := li.Find("ul").First()
		if !isLeaf {
			if nested.Length() > 0 {
				// Strict nesting; the list owns the children.
				currentSection = nil
			} else {
				// Implicit folder: capture following leaf siblings.
				currentSection = node
			}
		}

		if nested.Length() > 0 {
			p.parseNested(nested, baseURL, node, level+1)
		}
	})
}

// classifyItem decides whether a list item is a leaf page or a section
// header and extracts its label and resolved URL.
func classifyItem(li *goquery.Selection, baseURL string) (title, pageURL string, isLeaf bool) {
	anchor := li.ChildrenFiltered("a").First()
	if anchor.Length() == 0 {
		if wrapper := li.ChildrenFiltered("div").First(); wrapper.Length() > 0 {
			anchor = wrapper.ChildrenFiltered("a").First()
		}
	}

	if anchor.Length() > 0 {
		title = strings.TrimSpace(anchor.Text())
		if href, ok := anchor.Attr("href"); ok {
			pageURL = urlutil.Resolve(baseURL, href)
		}
		return title, pageURL, true
	}

	// Section header: the first direct div that carries text but no link.
	li.ChildrenFiltered("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if div.Find("a").Length() > 0 {
			return true
		}
		if text := strings.TrimSpace(div.Text()); text != "" {
			title = text
			return false
		}
		return true
	})
	return title, "", false
}
