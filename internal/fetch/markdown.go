package fetch

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownTitle returns the text of the first level-1 heading in a markdown
// document, or the first heading of any level when no h1 exists. Returns ""
// for headingless input. Frontmatter "title:" lines win over headings when
// present in the leading block.
func MarkdownTitle(src []byte) string {
	if t := frontmatterTitle(src); t != "" {
		return t
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var first, h1 string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		title := string(heading.Text(src))
		if first == "" {
			first = title
		}
		if heading.Level == 1 {
			h1 = title
			break
		}
	}
	if h1 != "" {
		return h1
	}
	return first
}

// frontmatterTitle scans a leading YAML frontmatter block for a title field.
func frontmatterTitle(src []byte) string {
	lines := strings.Split(string(src), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return ""
	}
	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" {
			return ""
		}
		if after, ok := strings.CutPrefix(trimmed, "title:"); ok {
			return strings.Trim(strings.TrimSpace(after), `"'`)
		}
	}
	return ""
}
