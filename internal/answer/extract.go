package answer

import (
	"html"
	"regexp"
	"strings"

	"github.com/docsage/docsage/internal/docindex"
)

// fallbackTitle labels documents whose hit carried no usable heading.
const fallbackTitle = "Documentation"

var (
	emphasisOpenPattern  = regexp.MustCompile(`<(?:em|mark)(?:\s[^>]*)?>`)
	emphasisClosePattern = regexp.MustCompile(`</(?:em|mark)>`)
	codeTagPattern       = regexp.MustCompile(`<code[^>]*>(.*?)</code>`)
	tagPattern           = regexp.MustCompile(`<[^>]+>`)
	inlineCodePattern    = regexp.MustCompile("`([^`\n]+)`")
)

// ExtractDocument converts one raw search hit into a normalized
// Document. ok is false when the hit carries nothing worth ranking:
// no headings, no content, no snippet and no URL to point at.
//
// Content is assembled in a fixed order: heading breadcrumb, full
// content, highlighted snippet reduced to plain emphasis, and inline
// code fragments from the snippet pulled into a fenced block.
func ExtractDocument(hit docindex.SearchHit) (Document, bool) {
	levels := cleanLevels(hit.Hierarchy.Levels())
	snippet := emphasizeSnippet(hit.Snippet)

	doc := Document{
		URL:        hit.URL,
		Title:      extractTitle(levels),
		Levels:     levels,
		DocType:    hit.Type,
		Snippet:    snippet,
		Highlights: hit.Highlights,
	}

	content := strings.TrimSpace(hit.Content)
	var parts []string
	if len(levels) > 0 {
		parts = append(parts, strings.Join(levels, " > "))
	}
	if content != "" {
		parts = append(parts, content)
	}
	if snippet != "" && snippet != content {
		parts = append(parts, snippet)
	}
	if code := extractInlineCode(snippet); code != "" {
		parts = append(parts, code)
	}

	doc.Content = strings.Join(parts, "\n\n")
	if doc.Content == "" {
		doc.Content = placeholderContent(doc)
	}
	if doc.Content == "" {
		return Document{}, false
	}
	return doc, true
}

// extractTitle picks the most specific heading; hits with no headings
// at all get a generic label.
func extractTitle(levels []string) string {
	if len(levels) == 0 {
		return fallbackTitle
	}
	return levels[len(levels)-1]
}

// cleanLevels strips markup and collapses whitespace in each heading,
// dropping levels that end up empty.
func cleanLevels(levels []string) []string {
	cleaned := make([]string, 0, len(levels))
	for _, lvl := range levels {
		lvl = tagPattern.ReplaceAllString(lvl, "")
		lvl = html.UnescapeString(lvl)
		lvl = strings.Join(strings.Fields(lvl), " ")
		if lvl != "" {
			cleaned = append(cleaned, lvl)
		}
	}
	return cleaned
}

// emphasizeSnippet reduces the index's highlight markup to plain
// asterisk emphasis, keeps inline code as backticks, and strips
// whatever tags remain.
func emphasizeSnippet(snippet string) string {
	if snippet == "" {
		return ""
	}
	s := emphasisOpenPattern.ReplaceAllString(snippet, "*")
	s = emphasisClosePattern.ReplaceAllString(s, "*")
	s = codeTagPattern.ReplaceAllString(s, "`$1`")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// extractInlineCode pulls inline code fragments out of the cleaned
// snippet into one fenced block, so downstream synthesis sees them as
// code rather than prose.
func extractInlineCode(snippet string) string {
	matches := inlineCodePattern.FindAllStringSubmatch(snippet, -1)
	if len(matches) == 0 {
		return ""
	}
	fragments := make([]string, 0, len(matches))
	for _, m := range matches {
		fragments = append(fragments, strings.TrimSpace(m[1]))
	}
	return "```\n" + strings.Join(fragments, "\n") + "\n```"
}

// placeholderContent synthesizes minimal content for a hit whose
// fields were all empty, so a record with a usable URL is not silently
// lost.
func placeholderContent(doc Document) string {
	if doc.URL == "" {
		return ""
	}
	return "Documentation page: " + doc.URL
}
