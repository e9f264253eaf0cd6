package mcp

import (
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/answer"
)

// FormatAnswer formats a completed answer run as markdown.
func FormatAnswer(query string, result *answer.Result) string {
	if result == nil {
		return fmt.Sprintf("No answer available for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Answer for \"%s\"\n\n", query))

	if answer := strings.TrimSpace(result.Answer); answer != "" {
		sb.WriteString(answer)
		sb.WriteString("\n\n")
	}

	if result.Validation != nil && result.Validation.Confidence > 0 {
		sb.WriteString(fmt.Sprintf("_Confidence: %.0f%%_\n\n", result.Validation.Confidence*100))
	}

	if len(result.Documents) > 0 {
		sb.WriteString("### Sources\n\n")
		for i, doc := range result.Documents {
			formatDocument(&sb, i+1, doc)
		}
	}

	return sb.String()
}

// FormatSearchResults formats ranked documents as markdown.
func FormatSearchResults(query string, docs []answer.Document) string {
	if len(docs) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(docs)))
	if len(docs) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, doc := range docs {
		formatDocument(&sb, i+1, doc)
	}

	return sb.String()
}

// formatDocument formats a single ranked document.
func formatDocument(sb *strings.Builder, num int, doc answer.Document) {
	title := doc.Title
	if title == "" {
		title = doc.URL
	}

	fmt.Fprintf(sb, "### %d. %s (score: %.2f)\n\n", num, title, doc.RelevanceScore)

	if crumb := doc.Breadcrumb(); crumb != "" && crumb != title {
		fmt.Fprintf(sb, "**Path:** %s\n\n", crumb)
	}
	if doc.URL != "" {
		fmt.Fprintf(sb, "<%s>\n\n", doc.URL)
	}
	if snippet := strings.TrimSpace(doc.Snippet); snippet != "" {
		sb.WriteString(snippet)
		sb.WriteString("\n\n")
	}
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
