// Package consolidate stitches fetched pages into one Markdown document:
// hierarchy-driven ordering, content deduplication, section breaks, and
// header renormalization so every page nests under its injected title.
package consolidate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"bookstitch/internal/discover"
	"bookstitch/internal/fusion"
	"bookstitch/internal/urlutil"
)

// Page is one fetched page ready for consolidation.
type Page struct {
	Title   string
	URL     string
	Content string
	Source  discover.Source
}

// unmappedOrder sorts pages absent from the hierarchy after every mapped one.
const unmappedOrder = 999999

var (
	headerLine   = regexp.MustCompile(`^(#+)\s+(.*)`)
	nonWordChars = regexp.MustCompile(`[^\w\s]`)
	blankRuns    = regexp.MustCompile(`\n{4,}`)
	firstNumber  = regexp.MustCompile(`(\d+)`)
)

// Consolidator assembles the final document.
type Consolidator struct {
	log *slog.Logger
	now func() time.Time

	// FilterLabel, when set, records the include pattern the run was
	// scoped to in the document front matter.
	FilterLabel string
}

func New(log *slog.Logger) *Consolidator {
	return &Consolidator{log: log, now: time.Now}
}

// Consolidate merges pages into a single Markdown document in reading order.
// hier may be nil when no hierarchy could be fused; ordering then falls back
// to title and URL heuristics.
func (c *Consolidator) Consolidate(baseURL string, hier *fusion.Hierarchy, pages []Page) string {
	sorted := c.sortPages(hier, pages)

	var parts []string
	parts = append(parts, c.documentHeader(baseURL, len(sorted)))

	lastSection := ""
	seenHashes := map[string]bool{}

	for _, page := range sorted {
		content := strings.TrimSpace(page.Content)
		if content == "" {
			c.log.Warn("skipping empty page", "title", page.Title, "url", page.URL)
			continue
		}

		sum := sha256.Sum256([]byte(content))
		hash := hex.EncodeToString(sum[:])
		if seenHashes[hash] {
			c.log.Debug("skipping duplicate content", "title", page.Title)
			continue
		}
		seenHashes[hash] = true

		if section := sectionOf(hier, page.URL); section != "" && section != lastSection {
			parts = append(parts, fmt.Sprintf("\n## %s\n", section))
			lastSection = section
		}

		if block := c.pageBlock(hier, page); block != "" {
			parts = append(parts, block, "\n---\n")
		}
	}

	doc := strings.Join(parts, "\n")
	doc = blankRuns.ReplaceAllString(doc, "\n\n\n")
	return strings.TrimRight(doc, "\n") + "\n"
}

func (c *Consolidator) documentHeader(baseURL string, pageCount int) string {
	domain := urlutil.Host(baseURL)
	title := strings.TrimSuffix(domain, ".gitbook.io")
	title = strings.TrimSuffix(title, ".com")
	title = urlutil.TitleCase(strings.ReplaceAll(title, ".", " "))
	if title == "" {
		title = "Documentation"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Source:** %s  \n", baseURL)
	fmt.Fprintf(&b, "**Pages:** %d  \n", pageCount)
	if c.FilterLabel != "" {
		fmt.Fprintf(&b, "**Filter:** %s  \n", c.FilterLabel)
	}
	fmt.Fprintf(&b, "**Generated:** %s  \n", c.now().UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("\n*Stitched together by bookstitch*\n")
	b.WriteString("\n---\n")
	return b.String()
}

// sortPages orders pages by their hierarchy position, with unmapped pages
// trailing in heuristic-score order. Without a hierarchy the title/URL
// heuristic decides everything.
func (c *Consolidator) sortPages(hier *fusion.Hierarchy, pages []Page) []Page {
	sorted := make([]Page, len(pages))
	copy(sorted, pages)

	key := func(p Page) (int, int) {
		if hier != nil {
			if e, ok := hier.Lookup(p.URL); ok {
				return e.Order, 0
			}
			// Unmapped pages trail the hierarchy, best-guess first.
			return unmappedOrder, -heuristicScore(p.Title, p.URL)
		}
		return 0, -heuristicScore(p.Title, p.URL)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		oi, si := key(sorted[i])
		oj, sj := key(sorted[j])
		if oi != oj {
			return oi < oj
		}
		return si < sj
	})
	return sorted
}

// heuristicScore ranks a page for reading order when no hierarchy exists.
// Introductory titles, numbered titles, short titles, and shallow URLs all
// read earlier.
func heuristicScore(title, pageURL string) int {
	t := strings.ToLower(title)
	score := 0
	for _, word := range []string{"readme", "introduction", "intro", "start", "index"} {
		if strings.Contains(t, word) {
			score += 1000
			break
		}
	}
	for _, word := range []string{"getting started", "quick start", "overview"} {
		if strings.Contains(t, word) {
			score += 900
			break
		}
	}
	if m := firstNumber.FindString(t); m != "" {
		n := 0
		fmt.Sscanf(m, "%d", &n)
		score += 800 - n
	}
	if words := len(strings.Fields(t)); words < 100 {
		score += 100 - words
	}
	if segs := len(strings.Split(pageURL, "/")); segs < 50 {
		score += 50 - segs
	}
	return score
}

func sectionOf(hier *fusion.Hierarchy, pageURL string) string {
	if hier == nil {
		return ""
	}
	if e, ok := hier.Lookup(pageURL); ok {
		return e.Section
	}
	return ""
}

// pageBlock renders one page: its authoritative title header at the level
// derived from the hierarchy, followed by its renormalized content.
func (c *Consolidator) pageBlock(hier *fusion.Hierarchy, page Page) string {
	title := page.Title
	if i := strings.Index(title, "|"); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}

	targetLevel := 2
	if hier != nil {
		if e, ok := hier.Lookup(page.URL); ok {
			targetLevel = e.Depth + 1
		}
	}
	if targetLevel < 2 {
		targetLevel = 2
	}

	body := AdjustHeaders(page.Content, targetLevel, title)
	return fmt.Sprintf("%s %s\n\n%s", strings.Repeat("#", targetLevel), title, body)
}

// AdjustHeaders demotes the headers inside content so they nest under a page
// title injected at targetLevel. A first header that duplicates the page
// title is removed; duplication is a bidirectional containment match on
// letters and digits only.
func AdjustHeaders(content string, targetLevel int, pageTitle string) string {
	lines := strings.Split(content, "\n")

	minLevel := 99
	firstHeaderText := ""
	sawFirst := false
	for _, line := range lines {
		m := headerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := len(m[1])
		if level < minLevel {
			minLevel = level
		}
		if !sawFirst {
			sawFirst = true
			firstHeaderText = strings.TrimSpace(m[2])
		}
	}
	if minLevel == 99 {
		return content
	}

	isDupe := false
	if sawFirst && pageTitle != "" {
		cleanText := normalizeTitle(firstHeaderText)
		cleanTitle := normalizeTitle(pageTitle)
		if cleanText == cleanTitle ||
			strings.Contains(cleanText, cleanTitle) ||
			strings.Contains(cleanTitle, cleanText) {
			isDupe = true
		}
	}

	// Content nests one level under the injected title, except when the
	// page opened with a duplicate H1: removing it promotes the remaining
	// headers by one.
	desiredBase := targetLevel + 1
	if minLevel == 1 && isDupe {
		desiredBase = targetLevel
	}
	shift := desiredBase - minLevel

	var out []string
	headerCount := 0
	for _, line := range lines {
		m := headerLine.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		headerCount++
		if headerCount == 1 && isDupe {
			continue
		}
		level := len(m[1]) + shift
		if level < 1 {
			level = 1
		}
		out = append(out, strings.Repeat("#", level)+" "+strings.TrimSpace(m[2]))
	}

	result := strings.Join(out, "\n")
	result = blankRuns.ReplaceAllString(result, "\n\n\n")
	return strings.TrimSpace(result)
}

func normalizeTitle(s string) string {
	return strings.TrimSpace(nonWordChars.ReplaceAllString(strings.ToLower(s), ""))
}
