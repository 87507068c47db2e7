package fetch

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// contentSelectors are tried in order to locate the main content area of a
// documentation page.
var contentSelectors = []string{
	`[data-testid="page-content"]`,
	"main",
	".content",
	"article",
	".page-content",
}

// chromeSelectors are removed from the page before conversion.
var chromeSelectors = []string{
	"nav", "header", "footer", "aside",
	".sidebar", ".navigation", ".nav",
	".breadcrumb", ".breadcrumbs", ".page-edit-link",
	"script", "style", "noscript",
	".search", ".share", ".comments",
}

// ConvertResult is the outcome of converting a fetched HTML page.
type ConvertResult struct {
	Title    string
	Markdown string
}

// Converter turns raw HTML pages into markdown bodies.
type Converter struct {
	md *md.Converter
}

// NewConverter builds a converter with GitHub-flavored markdown output.
func NewConverter() *Converter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &Converter{md: conv}
}

// Convert extracts the main content of an HTML page and renders it as
// markdown. pageURL is used only for readability's relative-link resolution.
func (c *Converter) Convert(htmlContent, pageURL string) (*ConvertResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := extractTitle(doc)
	restoreMathSource(doc)
	doc.Find(strings.Join(chromeSelectors, ", ")).Remove()

	var contentHTML string
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if h, err := goquery.OuterHtml(s); err == nil {
				contentHTML = h
				break
			}
		}
	}

	if contentHTML == "" {
		// No recognizable content container; let readability take a shot
		// at the original page before falling back to the stripped body.
		if article, err := readability.FromReader(strings.NewReader(htmlContent), nil); err == nil && article.Content != "" {
			contentHTML = article.Content
			if title == "" {
				title = article.Title
			}
		} else if h, err := doc.Find("body").Html(); err == nil {
			contentHTML = h
		}
	}

	markdown, err := c.md.ConvertString(contentHTML)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}
	markdown = CleanMarkdown(markdown)

	if title == "" {
		title = MarkdownTitle([]byte(markdown))
	}

	return &ConvertResult{Title: title, Markdown: markdown}, nil
}

// extractTitle prefers the first h1, then the <title> tag. Site-name
// suffixes after "|" or " - " are stripped.
func extractTitle(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" && len(h1) < 200 {
		return CleanTitle(h1)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" && len(t) < 200 {
		return CleanTitle(t)
	}
	return ""
}

// CleanTitle removes a trailing site-name suffix from a page title.
func CleanTitle(title string) string {
	if i := strings.Index(title, " | "); i >= 0 {
		title = title[:i]
	} else if i := strings.Index(title, " - "); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

// restoreMathSource replaces rendered KaTeX spans with their TeX source so
// formulas survive the markdown conversion instead of degrading into
// duplicated glyph soup.
func restoreMathSource(doc *goquery.Document) {
	doc.Find(".katex").Each(func(_ int, s *goquery.Selection) {
		annotation := s.Find(`annotation[encoding="application/x-tex"]`).First()
		if annotation.Length() == 0 {
			return
		}
		src := annotation.Text()
		if s.HasClass("katex-display") || s.Find(".katex-display").Length() > 0 {
			s.ReplaceWithHtml("\n$$\n" + src + "\n$$\n")
		} else {
			s.ReplaceWithHtml("$" + src + "$")
		}
	})
	// Whatever katex markup survives without a source annotation only
	// duplicates text; drop the rendered half.
	doc.Find(".katex-html").Remove()
}

// CleanMarkdown trims line endings and collapses runs of blank lines.
func CleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
