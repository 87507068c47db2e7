package treeparse

import (
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const nestedSidebar = `
<nav>
  <ul>
    <li><a href="/docs/intro">Introduction</a></li>
    <li>
      <div>Guides</div>
      <ul>
        <li><a href="/docs/guides/setup">Setup</a></li>
        <li><a href="/docs/guides/deploy">Deploy</a></li>
      </ul>
    </li>
    <li><div><a href="/docs/faq">FAQ</a></div></li>
  </ul>
</nav>`

func TestParseNestedLayout(t *testing.T) {
	p := New(testLogger())
	tree, err := p.Parse(nestedSidebar, "https://example.com/docs/intro")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	children := tree.Children
	if len(children) != 3 {
		t.Fatalf("root children = %d, want 3", len(children))
	}

	intro := children[0]
	if intro.Title != "Introduction" || intro.URL != "https://example.com/docs/intro" {
		t.Errorf("first child = %q %q", intro.Title, intro.URL)
	}
	if intro.Level != 1 {
		t.Errorf("leaf level = %d, want 1", intro.Level)
	}

	guides := children[1]
	if guides.Title != "Guides" || guides.URL != "" {
		t.Errorf("section = %q url=%q, want header with no url", guides.Title, guides.URL)
	}
	if len(guides.Children) != 2 {
		t.Fatalf("section children = %d, want 2", len(guides.Children))
	}
	if guides.Children[0].Title != "Setup" || guides.Children[0].Level != 2 {
		t.Errorf("nested leaf = %q level %d", guides.Children[0].Title, guides.Children[0].Level)
	}

	faq := children[2]
	if faq.Title != "FAQ" || faq.URL != "https://example.com/docs/faq" {
		t.Errorf("div-wrapped leaf = %q %q", faq.Title, faq.URL)
	}
}

func TestParseNestedImplicitSection(t *testing.T) {
	// A text-only header item with no nested list captures the leaf
	// siblings that follow it.
	html := `
<ul>
  <li><div>Getting Started</div></li>
  <li><a href="/docs/install">Install</a></li>
  <li><a href="/docs/config">Configure</a></li>
</ul>`

	tree, err := New(testLogger()).Parse(html, "https://example.com")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if len(tree.Children) != 1 {
		t.Fatalf("root children = %d, want 1 section", len(tree.Children))
	}
	section := tree.Children[0]
	if section.Title != "Getting Started" {
		t.Fatalf("section title = %q", section.Title)
	}
	if len(section.Children) != 2 {
		t.Fatalf("captured leaves = %d, want 2", len(section.Children))
	}
	if section.Children[1].Title != "Configure" {
		t.Errorf("second captured leaf = %q", section.Children[1].Title)
	}
}

const flatSidebar = `
<nav>
  <ul>
    <li class="depth-0">
      <a class="toclink" href="/docs/start">Start Here</a>
      <ul>
        <li><a class="toclink" href="/docs/start/install">Install</a></li>
        <li><a class="toclink" href="/docs/start/upgrade">Upgrade</a></li>
      </ul>
    </li>
    <li class="depth-0"><a class="toclink" href="/docs/reference">Reference</a></li>
  </ul>
</nav>`

func TestParseFlatLayout(t *testing.T) {
	tree, err := New(testLogger()).Parse(flatSidebar, "https://example.com")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if len(tree.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(tree.Children))
	}

	start := tree.Children[0]
	if start.Title != "Start Here" || start.URL != "https://example.com/docs/start" {
		t.Errorf("first root = %q %q", start.Title, start.URL)
	}
	if len(start.Children) != 2 {
		t.Fatalf("start children = %d, want 2", len(start.Children))
	}
	if start.Children[0].Title != "Install" || start.Children[0].Level != 2 {
		t.Errorf("flat child = %q level %d", start.Children[0].Title, start.Children[0].Level)
	}

	if tree.Children[1].Title != "Reference" {
		t.Errorf("second root = %q", tree.Children[1].Title)
	}
}

func TestLayoutSelectionBoundary(t *testing.T) {
	// Exactly three marker links stays in nested mode; four switches to
	// flat mode.
	three := `<ul>
  <li><a class="toclink" href="/a">A</a></li>
  <li><a class="toclink" href="/b">B</a></li>
  <li><a class="toclink" href="/c">C</a></li>
</ul>`
	tree, err := New(testLogger()).Parse(three, "https://example.com")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := tree.PageCount(); got != 3 {
		t.Errorf("nested-mode pages = %d, want 3", got)
	}

	four := `<ul>
  <li><a class="toclink" href="/a">A</a></li>
  <li><a class="toclink" href="/b">B</a></li>
  <li><a class="toclink" href="/c">C</a></li>
  <li><a class="toclink" href="/d">D</a></li>
</ul>`
	tree, err = New(testLogger()).Parse(four, "https://example.com")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(tree.Children) != 4 {
		t.Errorf("flat-mode roots = %d, want 4", len(tree.Children))
	}
}

func TestParseFlatDedupesRepeatedLinks(t *testing.T) {
	html := `<ul>
  <li><a class="toclink" href="/a">A</a></li>
  <li><a class="toclink" href="/a/">A again</a></li>
  <li><a class="toclink" href="/b">B</a></li>
  <li><a class="toclink" href="/c">C</a></li>
  <li><a class="toclink" href="/d">D</a></li>
</ul>`
	tree, err := New(testLogger()).Parse(html, "https://example.com")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := tree.PageCount(); got != 4 {
		t.Errorf("pages after dedupe = %d, want 4", got)
	}
}

func TestParseEmptySidebar(t *testing.T) {
	tree, err := New(testLogger()).Parse("<div></div>", "https://example.com")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("children = %d, want 0", len(tree.Children))
	}
	if tree.Title != "Documentation Root" {
		t.Errorf("root title = %q", tree.Title)
	}
}
