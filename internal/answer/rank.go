package answer

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// RankWeights are the tunable scoring constants. The relative ordering
// is the contract: title factors above content, content above URL, URL
// above type/intent, and the technology mismatch penalty negative. The
// literals are starting points exposed through configuration.
type RankWeights struct {
	TitleExact     float64
	TitleSubstring float64
	TitleWord      float64
	ContentPhrase  float64
	ContentWord    float64
	ContentWordCap int
	URLWord        float64
	URLLeafBonus   float64
	TechMatch      float64
	TechMismatch   float64
	DocTypeIntent  float64
	ExactTitle     float64
	PhraseBonus    float64
	AllWordsBonus  float64
	HighlightBonus float64
}

// DefaultRankWeights returns the stock scoring constants.
func DefaultRankWeights() RankWeights {
	return RankWeights{
		TitleExact:     100,
		TitleSubstring: 50,
		TitleWord:      10,
		ContentPhrase:  8,
		ContentWord:    2,
		ContentWordCap: 5,
		URLWord:        5,
		URLLeafBonus:   2,
		TechMatch:      15,
		TechMismatch:   -25,
		DocTypeIntent:  10,
		ExactTitle:     40,
		PhraseBonus:    25,
		AllWordsBonus:  10,
		HighlightBonus: 1,
	}
}

// techToken is one recognizable technology name. Tokens that embed a
// competing variant (react inside react native) carry an excludes
// pattern: the variant is blanked out of the text before the base
// pattern is tested, which stands in for the lookahead RE2 lacks.
type techToken struct {
	name     string
	pattern  *regexp.Regexp
	excludes *regexp.Regexp
	rival    string
}

var techTokens = []techToken{
	{
		name:    "react native",
		pattern: regexp.MustCompile(`\breact[\s-]+native\b`),
		rival:   "react",
	},
	{
		name:     "react",
		pattern:  regexp.MustCompile(`\breact\b`),
		excludes: regexp.MustCompile(`\breact[\s-]+native\b`),
		rival:    "react native",
	},
	{
		name:    "angularjs",
		pattern: regexp.MustCompile(`\bangular[\s-]?js\b`),
		rival:   "angular",
	},
	{
		name:     "angular",
		pattern:  regexp.MustCompile(`\bangular\b`),
		excludes: regexp.MustCompile(`\bangular[\s-]?js\b`),
		rival:    "angularjs",
	},
	{name: "vue", pattern: regexp.MustCompile(`\bvue\b`)},
	{name: "svelte", pattern: regexp.MustCompile(`\bsvelte\b`)},
	{name: "flutter", pattern: regexp.MustCompile(`\bflutter\b`)},
	{name: "expo", pattern: regexp.MustCompile(`\bexpo\b`)},
	{name: "android", pattern: regexp.MustCompile(`\bandroid\b`)},
	{name: "ios", pattern: regexp.MustCompile(`\bios\b`)},
}

// matchesTech tests token presence, blanking competing-variant
// occurrences first so "react" does not fire on "react native".
func matchesTech(tok techToken, text string) bool {
	if tok.excludes != nil {
		text = tok.excludes.ReplaceAllString(text, " ")
	}
	return tok.pattern.MatchString(text)
}

// findTechToken looks a token up by name.
func findTechToken(name string) (techToken, bool) {
	for _, tok := range techTokens {
		if tok.name == name {
			return tok, true
		}
	}
	return techToken{}, false
}

// Document-kind signals for the intent factor.
var (
	guideSignalPattern   = regexp.MustCompile(`\b(guide|guides|tutorial|tutorials|getting started|quickstart|how to|howto|setup|installation)\b`)
	apiSignalPattern     = regexp.MustCompile(`\b(api|reference|method|methods|props|options|parameters)\b`)
	troubleSignalPattern = regexp.MustCompile(`\b(troubleshoot|troubleshooting|faq|errors|debugging|known issues)\b`)
)

// queryContext precomputes the per-query inputs shared by every
// document's score.
type queryContext struct {
	phrase    string      // normalized full query, single-spaced
	words     []string    // normalized words longer than two chars
	allWords  []string    // every normalized word
	queryType QueryType
	tech      []techToken // tokens detected in the query
}

func newQueryContext(query string) queryContext {
	normalized := normalizeText(query)
	allWords := strings.Fields(normalized)
	words := make([]string, 0, len(allWords))
	for _, w := range allWords {
		if len(w) > 2 {
			words = append(words, w)
		}
	}

	qc := queryContext{
		phrase:    normalized,
		words:     words,
		allWords:  allWords,
		queryType: ClassifyQueryType(query),
	}
	for _, tok := range techTokens {
		if matchesTech(tok, normalized) {
			qc.tech = append(qc.tech, tok)
		}
	}
	return qc
}

// normalizeText lowers the text and reduces punctuation runs to single
// spaces, so word and phrase checks are insensitive to markup noise.
// Unlike NormalizeQuery it preserves word order.
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// containsWord reports a whole-word match inside normalized text.
func containsWord(text, word string) bool {
	return strings.Contains(" "+text+" ", " "+word+" ")
}

// Ranker orders documents by estimated relevance to the original
// query. Scoring is additive across independent factors and fully
// deterministic; ties keep fan-out order.
type Ranker struct {
	weights RankWeights
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithRankWeights overrides the scoring constants.
func WithRankWeights(w RankWeights) RankerOption {
	return func(r *Ranker) { r.weights = w }
}

// NewRanker creates a ranker with the default weights.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{weights: DefaultRankWeights()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every document against the query and returns a new slice
// in descending score order. The input slice is left untouched.
func (r *Ranker) Rank(docs []Document, query string) []Document {
	qc := newQueryContext(query)

	ranked := make([]Document, len(docs))
	copy(ranked, docs)
	for i := range ranked {
		ranked[i].RelevanceScore = r.score(ranked[i], qc)
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].RelevanceScore > ranked[b].RelevanceScore
	})
	return ranked
}

// score sums the independent relevance factors for one document.
func (r *Ranker) score(doc Document, qc queryContext) float64 {
	serialized := serializeDocument(doc)

	score := r.titleScore(doc, qc)
	score += r.contentScore(doc, qc)
	score += r.urlScore(doc, qc)
	score += r.techScore(serialized, qc)
	score += r.docTypeScore(doc, qc)
	score += r.exactAndPhraseScore(doc, serialized, qc)
	score += r.weights.HighlightBonus * float64(doc.Highlights)
	return score
}

// serializeDocument flattens every searchable field into one normalized
// string for phrase, coverage and technology checks.
func serializeDocument(doc Document) string {
	fields := make([]string, 0, len(doc.Levels)+3)
	fields = append(fields, doc.Levels...)
	fields = append(fields, doc.Title, doc.URL, doc.Content)
	return normalizeText(strings.Join(fields, " "))
}

// titleScore rewards query presence in the heading path. An exact or
// substring match on the title dominates; otherwise each query word
// found in the path scores by depth, outer levels counting more than
// inner ones.
func (r *Ranker) titleScore(doc Document, qc queryContext) float64 {
	title := normalizeText(doc.Title)
	if title == "" || qc.phrase == "" {
		return 0
	}
	if title == qc.phrase {
		return r.weights.TitleExact
	}
	if strings.Contains(title, qc.phrase) {
		return r.weights.TitleSubstring
	}

	levels := doc.Levels
	if len(levels) == 0 {
		levels = []string{doc.Title}
	}
	var score float64
	for _, word := range qc.words {
		for depth, lvl := range levels {
			if containsWord(normalizeText(lvl), word) {
				score += r.weights.TitleWord * float64(6-depth) / 6.0
				break
			}
		}
	}
	return score
}

// contentScore counts literal query occurrences plus capped per-word
// occurrences; the cap keeps keyword stuffing from dominating.
func (r *Ranker) contentScore(doc Document, qc queryContext) float64 {
	content := normalizeText(doc.Content)
	if content == "" || qc.phrase == "" {
		return 0
	}

	var score float64
	score += r.weights.ContentPhrase * float64(strings.Count(content, qc.phrase))

	counts := make(map[string]int)
	for _, w := range strings.Fields(content) {
		counts[w]++
	}
	for _, word := range qc.words {
		count := counts[word]
		if count > r.weights.ContentWordCap {
			count = r.weights.ContentWordCap
		}
		score += r.weights.ContentWord * float64(count)
	}
	return score
}

// urlScore rewards query words and detected technology names in the
// URL, plus a small bonus for leaf pages over section indexes.
func (r *Ranker) urlScore(doc Document, qc queryContext) float64 {
	if doc.URL == "" {
		return 0
	}

	normalizedURL := normalizeText(doc.URL)
	var score float64
	for _, word := range qc.words {
		if containsWord(normalizedURL, word) {
			score += r.weights.URLWord
		}
	}
	for _, tok := range qc.tech {
		if len(qc.words) > 0 && containsWord(strings.Join(qc.words, " "), tok.name) {
			continue // already counted as a query word
		}
		if matchesTech(tok, normalizedURL) {
			score += r.weights.URLWord
		}
	}
	if isLeafURL(doc.URL) {
		score += r.weights.URLLeafBonus
	}
	return score
}

// isLeafURL reports whether the URL points at a specific page or
// section rather than a section index.
func isLeafURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Fragment != "" {
		return true
	}
	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		return false
	}
	leaf := strings.ToLower(path[strings.LastIndex(path, "/")+1:])
	return leaf != "index" && !strings.HasPrefix(leaf, "index.")
}

// techScore applies the platform-disambiguation factor: a candidate
// matching the queried technology gets a bonus; one matching only the
// competing variant is penalized rather than merely skipped, so a
// mobile-framework query does not surface web-only pages.
func (r *Ranker) techScore(serialized string, qc queryContext) float64 {
	var score float64
	for _, tok := range qc.tech {
		if matchesTech(tok, serialized) {
			score += r.weights.TechMatch
			continue
		}
		if tok.rival == "" {
			continue
		}
		if rival, ok := findTechToken(tok.rival); ok && matchesTech(rival, serialized) {
			score += r.weights.TechMismatch
		}
	}
	return score
}

// docTypeScore rewards candidates whose kind matches what the query is
// asking for: guides for how-to queries, reference pages for API
// queries, troubleshooting pages for problem reports.
func (r *Ranker) docTypeScore(doc Document, qc queryContext) float64 {
	meta := normalizeText(strings.Join(append([]string{doc.DocType, doc.URL, doc.Title}, doc.Levels...), " "))
	switch qc.queryType {
	case QueryTypeHowTo:
		if doc.DocType == "guide" || guideSignalPattern.MatchString(meta) {
			return r.weights.DocTypeIntent
		}
	case QueryTypeAPIReference:
		if doc.DocType == "api" || apiSignalPattern.MatchString(meta) {
			return r.weights.DocTypeIntent
		}
	case QueryTypeTroubleshooting:
		if troubleSignalPattern.MatchString(meta) {
			return r.weights.DocTypeIntent
		}
	}
	return 0
}

// exactAndPhraseScore adds the fixed exact-title bonus, the contiguous
// phrase bonus, and the all-words-present bonus.
func (r *Ranker) exactAndPhraseScore(doc Document, serialized string, qc queryContext) float64 {
	if qc.phrase == "" {
		return 0
	}

	var score float64
	if normalizeText(doc.Title) == qc.phrase {
		score += r.weights.ExactTitle
	}
	if len(qc.allWords) > 1 && strings.Contains(serialized, qc.phrase) {
		score += r.weights.PhraseBonus
	}
	if allWordsPresent(serialized, qc.allWords) {
		score += r.weights.AllWordsBonus
	}
	return score
}

// allWordsPresent reports whether every query word appears somewhere in
// the serialized candidate.
func allWordsPresent(serialized string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, word := range words {
		if !containsWord(serialized, word) {
			return false
		}
	}
	return true
}
