package treeparse

import (
	"context"
	"errors"
	"testing"

	"bookstitch/internal/doctree"
)

type stubRenderer struct {
	trails map[string][]string
	titles map[string]string
	errs   map[string]error
}

func (s *stubRenderer) NavigationHTML(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (s *stubRenderer) PageHTML(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (s *stubRenderer) Breadcrumbs(_ context.Context, pageURL string) ([]string, string, error) {
	if err := s.errs[pageURL]; err != nil {
		return nil, "", err
	}
	return s.trails[pageURL], s.titles[pageURL], nil
}

func (s *stubRenderer) Close() error { return nil }

func healerTree() *doctree.Node {
	root := doctree.NewRoot("Example Docs")
	root.AddChild(&doctree.Node{Title: "Introduction", Level: 1, URL: "https://example.com/docs/intro"})
	guides := &doctree.Node{Title: "Guides", Level: 1}
	guides.AddChild(&doctree.Node{Title: "Deploy", Level: 2, URL: "https://example.com/docs/guides/deploy"})
	root.AddChild(guides)
	return root
}

func TestHealAttachesIntoExistingSection(t *testing.T) {
	stub := &stubRenderer{
		trails: map[string][]string{
			"https://example.com/docs/guides/setup": {"Docs", "Guides", "Setup"},
		},
	}
	tree := healerTree()

	NewHealer(stub, testLogger()).Heal(context.Background(), tree, []string{
		"https://example.com/docs/intro",
		"https://example.com/docs/guides/setup",
	})

	guides := tree.FindChild("guides")
	if guides == nil {
		t.Fatal("Guides section missing after heal")
	}
	if len(guides.Children) != 2 {
		t.Fatalf("Guides children = %d, want 2", len(guides.Children))
	}
	setup := guides.Children[1]
	if setup.Title != "Setup" || setup.URL != "https://example.com/docs/guides/setup" {
		t.Errorf("healed leaf = %q %q", setup.Title, setup.URL)
	}
	if setup.Level != 2 {
		t.Errorf("healed leaf level = %d, want 2", setup.Level)
	}
}

func TestHealCreatesMissingSections(t *testing.T) {
	stub := &stubRenderer{
		trails: map[string][]string{
			"https://example.com/docs/api/auth/tokens": {"Home", "API", "Auth", "Tokens"},
		},
	}
	tree := healerTree()

	NewHealer(stub, testLogger()).Heal(context.Background(), tree, []string{
		"https://example.com/docs/api/auth/tokens",
	})

	api := tree.FindChild("API")
	if api == nil {
		t.Fatal("API section not created")
	}
	if api.Level != 1 || api.URL != "" {
		t.Errorf("API section level=%d url=%q", api.Level, api.URL)
	}
	auth := api.FindChild("Auth")
	if auth == nil {
		t.Fatal("Auth section not created")
	}
	if len(auth.Children) != 1 || auth.Children[0].Title != "Tokens" {
		t.Fatalf("Auth children = %+v", auth.Children)
	}
	if auth.Children[0].Level != 3 {
		t.Errorf("Tokens level = %d, want 3", auth.Children[0].Level)
	}
}

func TestHealDropsRootTitleLabel(t *testing.T) {
	// A leading crumb matching the tree's own root title is not a section.
	stub := &stubRenderer{
		trails: map[string][]string{
			"https://example.com/docs/changelog": {"Example Docs", "Changelog"},
		},
	}
	tree := healerTree()

	NewHealer(stub, testLogger()).Heal(context.Background(), tree, []string{
		"https://example.com/docs/changelog",
	})

	if sec := tree.FindChild("Example Docs"); sec != nil {
		t.Fatal("root label was turned into a section")
	}
	leaf := tree.FindChild("Changelog")
	if leaf == nil {
		t.Fatal("Changelog not attached under root")
	}
	if leaf.Level != 1 {
		t.Errorf("Changelog level = %d, want 1", leaf.Level)
	}
}

func TestHealWithoutBreadcrumbs(t *testing.T) {
	stub := &stubRenderer{
		titles: map[string]string{
			"https://example.com/docs/license": "License Terms",
		},
	}
	tree := healerTree()

	NewHealer(stub, testLogger()).Heal(context.Background(), tree, []string{
		"https://example.com/docs/license",
		"https://example.com/docs/secret-page",
	})

	lic := tree.FindChild("License Terms")
	if lic == nil || lic.URL != "https://example.com/docs/license" {
		t.Fatalf("titled page not appended under root: %+v", lic)
	}

	// No trail and no title falls back to a slug-derived title.
	if tree.FindChild("Secret Page") == nil {
		t.Error("untitled page not appended with slug-derived title")
	}
}

func TestHealSkipsRendererFailures(t *testing.T) {
	stub := &stubRenderer{
		errs: map[string]error{
			"https://example.com/docs/broken": errors.New("tab crashed"),
		},
		trails: map[string][]string{
			"https://example.com/docs/guides/ok": {"Docs", "Guides", "OK"},
		},
	}
	tree := healerTree()

	NewHealer(stub, testLogger()).Heal(context.Background(), tree, []string{
		"https://example.com/docs/broken",
		"https://example.com/docs/guides/ok",
	})

	if got := tree.URLSet()["example.com/docs/broken"]; got {
		t.Error("failed page ended up in the tree")
	}
	guides := tree.FindChild("Guides")
	if guides == nil || len(guides.Children) != 2 {
		t.Fatal("healable page after a failure was not attached")
	}
}
