package treeparse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bookstitch/internal/doctree"
	"bookstitch/internal/urlutil"
)

// parseFlat handles sidebars where every entry carries the toclink marker
// class and hierarchy is expressed through each item's own child container
// rather than strictly nested lists. Structural traversal follows
// li -> container -> li; ancestor depth is used only to find the roots.
func (p *Parser) parseFlat(doc *goquery.Document, baseURL string, root *doctree.Node) {
	links := doc.Find(tocLinkSelector)
	if links.Length() == 0 {
		p.log.Warn("flat parser found no marker links")
		return
	}

	minDepth := -1
	links.Each(func(_ int, link *goquery.Selection) {
		depth := link.ParentsFiltered("li").Length()
		if minDepth < 0 || depth < minDepth {
			minDepth = depth
		}
	})
	p.log.Debug("flat parser scanning links", "count", links.Length(), "root_depth", minDepth)

	seen := make(map[string]bool)
	links.Each(func(_ int, link *goquery.Selection) {
		if link.ParentsFiltered("li").Length() == minDepth {
			p.addFlatNode(link, baseURL, root, 1, seen)
		}
	})
	p.log.Info("flat parser extracted top-level nodes", "count", len(root.Children))
}

// addFlatNode records one marker link and descends into the child
// containers of its enclosing list item. The seen set keeps grandchildren
// reached through overlapping containers from being added twice.
func (p *Parser) addFlatNode(link *goquery.Selection, baseURL string, parent *doctree.Node, level int, seen map[string]bool) {
	pageURL := ""
	if href, ok := link.Attr("href"); ok {
		pageURL = urlutil.Resolve(baseURL, href)
	}
	if pageURL != "" {
		key := urlutil.Normalize(pageURL)
		if seen[key] {
			return
		}
		seen[key] = true
	}

	node := &doctree.Node{
		Title: strings.TrimSpace(link.Text()),
		Level: level,
		URL:   pageURL,
	}
	parent.AddChild(node)

	li := link.ParentsFiltered("li").First()
	if li.Length() == 0 {
		return
	}

	li.Children().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "a" {
			return
		}

		// A ul (possibly wrapped in a div) delimits one child per li.
		childList := child
		if goquery.NodeName(child) == "div" {
			childList = child.Find("ul").First()
		}
		if goquery.NodeName(childList) == "ul" && childList.Length() > 0 {
			childList.ChildrenFiltered("li").Each(func(_ int, item *goquery.Selection) {
				if sub := item.Find(tocLinkSelector).First(); sub.Length() > 0 {
					p.addFlatNode(sub, baseURL, node, level+1, seen)
				}
			})
			return
		}

		// Otherwise descend into whatever marker links the container
		// holds; the seen set straightens out duplicates.
		child.Find(tocLinkSelector).Each(func(_ int, sub *goquery.Selection) {
			p.addFlatNode(sub, baseURL, node, level+1, seen)
		})
	})
}
