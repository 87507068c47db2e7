// Package doctree holds the intermediate tree built while parsing a
// rendered navigation sidebar. Nodes without a URL are pure section
// headers; they own their children exclusively and disappear when the
// tree is flattened into discovery entries.
package doctree

import (
	"strings"

	"bookstitch/internal/urlutil"
)

// Node is a recursive entry in the navigation tree.
type Node struct {
	Title    string  // Label shown in the sidebar
	Level    int     // Nesting depth, root = 0
	URL      string  // Page address; empty for pure section headers
	Children []*Node // Owned subsections in sidebar order
}

// NewRoot returns an empty tree root.
func NewRoot(title string) *Node {
	return &Node{Title: title, Level: 0}
}

// AddChild appends a child in sidebar order.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// Walk visits every node below n (excluding n itself) depth-first in
// sidebar order.
func (n *Node) Walk(visit func(*Node)) {
	for _, child := range n.Children {
		visit(child)
		child.Walk(visit)
	}
}

// URLSet collects the normalized URLs of every linked page in the tree.
func (n *Node) URLSet() map[string]bool {
	set := make(map[string]bool)
	n.Walk(func(node *Node) {
		if node.URL != "" {
			set[urlutil.Normalize(node.URL)] = true
		}
	})
	return set
}

// PageCount returns the number of linked pages in the tree.
func (n *Node) PageCount() int {
	count := 0
	n.Walk(func(node *Node) {
		if node.URL != "" {
			count++
		}
	})
	return count
}

// FindChild returns the direct child whose title matches case-insensitively,
// or nil. Used by the breadcrumb healer to walk existing sections.
func (n *Node) FindChild(title string) *Node {
	for _, child := range n.Children {
		if strings.EqualFold(child.Title, title) {
			return child
		}
	}
	return nil
}
