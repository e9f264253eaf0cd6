package answer

import (
	"regexp"
	"strings"
)

// Compiled query-classification patterns. Order of checks matters:
// troubleshooting signals outrank how-to ("how to fix this error" is a
// troubleshooting query), and how-to outranks concept and reference.
var (
	troubleshootingPattern = regexp.MustCompile(`(?i)\b(error|errors|exception|fail|fails|failed|failing|crash|crashes|broken|bug|fix|debug|troubleshoot|issue|problem|not working|doesn'?t work|won'?t work|can'?t|cannot|undefined|stack ?trace)\b`)

	howToPattern = regexp.MustCompile(`(?i)^(how (do|to|can|should)\b|install\b|set ?up\b|setup\b|create\b|add\b|build\b|configure\b|integrate\b|migrate\b|deploy\b|getting started\b)|\b(tutorial|guide|step by step|walkthrough|example of)\b`)

	conceptPattern = regexp.MustCompile(`(?i)^(what (is|are)\b|explain\b|why (is|are|do|does)\b|when (to|should)\b|difference between\b|understanding\b|overview of\b)|\b(vs\.?|versus|concept|architecture)\b`)

	apiReferencePattern = regexp.MustCompile(`(?i)\b(api|reference|method|methods|function|functions|prop|props|parameter|parameters|argument|arguments|option|options|signature|return (value|type)|interface|schema|endpoint|flag|flags)\b`)
)

// ClassifyQueryType buckets a query by the kind of documentation it is
// after. Pure pattern matching, no network involved.
func ClassifyQueryType(query string) QueryType {
	query = strings.TrimSpace(query)
	if query == "" {
		return QueryTypeGeneral
	}
	switch {
	case troubleshootingPattern.MatchString(query):
		return QueryTypeTroubleshooting
	case howToPattern.MatchString(query):
		return QueryTypeHowTo
	case conceptPattern.MatchString(query):
		return QueryTypeConcept
	case apiReferencePattern.MatchString(query):
		return QueryTypeAPIReference
	default:
		return QueryTypeGeneral
	}
}
