// Package fetcher retrieves full documentation pages for thin-content
// enhancement. Fetched HTML is narrowed to the relevant section and
// converted to markdown so the synthesizer sees prose, not markup.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"

	"github.com/docsage/docsage/internal/answer"
	sageerrors "github.com/docsage/docsage/internal/errors"
)

// Defaults for page fetching.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultMaxBodyKB = 512
	DefaultUserAgent = "docsage/1.0 (+https://github.com/docsage/docsage)"
)

// Chrome elements dropped before conversion. Script, style, noscript
// and iframe are already removed by the base plugin.
var strippedTags = []string{
	"nav", "header", "footer", "aside",
	"form", "button", "select", "canvas", "svg", "video", "audio",
}

// Containers that usually hold the actual documentation body, tried in
// order when a page has no usable fragment.
var mainContentSelectors = []string{"main", "article", "[role=main]", "#main-content", "#content"}

// fragmentIDPattern accepts fragment IDs safe to splice into a CSS
// selector.
var fragmentIDPattern = regexp.MustCompile(`^[A-Za-z][\w-]*$`)

var blankRunPattern = regexp.MustCompile(`\n{3,}`)

// PageFetcher fetches documentation pages over HTTP and reduces them
// to markdown text. It satisfies the answer pipeline's ContentFetcher
// contract.
type PageFetcher struct {
	client    *http.Client
	conv      *converter.Converter
	timeout   time.Duration
	maxBody   int64
	userAgent string
	logger    *slog.Logger
}

var _ answer.ContentFetcher = (*PageFetcher)(nil)

// Option configures a PageFetcher.
type Option func(*PageFetcher)

// WithTimeout bounds each page fetch.
func WithTimeout(d time.Duration) Option {
	return func(f *PageFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodyKB caps the fetched body size in KiB.
func WithMaxBodyKB(kb int) Option {
	return func(f *PageFetcher) {
		if kb > 0 {
			f.maxBody = int64(kb) * 1024
		}
	}
}

// WithUserAgent sets the User-Agent header sent with fetches.
func WithUserAgent(ua string) Option {
	return func(f *PageFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *PageFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithLogger sets the fetcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *PageFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a page fetcher. The HTTP client carries no client-level
// timeout; each fetch gets its own context deadline.
func New(opts ...Option) *PageFetcher {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	for _, tag := range strippedTags {
		conv.Register.TagType(tag, converter.TagTypeRemove, converter.PriorityStandard)
	}

	f := &PageFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        8,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     10 * time.Second,
			},
		},
		conv:      conv,
		timeout:   DefaultTimeout,
		maxBody:   DefaultMaxBodyKB * 1024,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchContent downloads the page behind url and returns it as
// markdown. A URL fragment narrows the result to that section of the
// page. Caller cancellation passes through untyped; fetch problems
// surface as typed errors the enhancer treats as soft.
func (f *PageFetcher) FetchContent(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", sageerrors.ValidationError("invalid page URL", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", sageerrors.ValidationError(fmt.Sprintf("unsupported URL scheme %q", parsed.Scheme), nil)
	}

	fragment := parsed.Fragment
	parsed.Fragment = ""

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", sageerrors.New(sageerrors.ErrCodeFetchFailed, "building fetch request failed", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,text/plain;q=0.8,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", sageerrors.New(sageerrors.ErrCodeFetchFailed, "page fetch failed", err).
			WithRetryable(true)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", sageerrors.New(sageerrors.ErrCodeFetchFailed,
			fmt.Sprintf("page fetch returned status %d", resp.StatusCode), nil).
			WithDetail("url", pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", sageerrors.New(sageerrors.ErrCodeFetchFailed, "reading page body failed", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType, body) {
		if isText(contentType) {
			return strings.TrimSpace(string(body)), nil
		}
		return "", sageerrors.New(sageerrors.ErrCodeFetchFailed,
			fmt.Sprintf("page is not text (%s)", contentType), nil)
	}

	markdown, err := f.toMarkdown(string(body), fragment)
	if err != nil {
		return "", sageerrors.New(sageerrors.ErrCodeFetchFailed, "converting page to text failed", err)
	}

	f.logger.Debug("page fetched",
		"url", pageURL,
		"bytes", len(body),
		"chars", len(markdown))
	return markdown, nil
}

// toMarkdown narrows the HTML to the interesting part and converts it.
func (f *PageFetcher) toMarkdown(htmlContent, fragment string) (string, error) {
	markdown, err := f.conv.ConvertString(narrow(htmlContent, fragment))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(blankRunPattern.ReplaceAllString(markdown, "\n\n")), nil
}

// narrow reduces a page to the fragment's section when the URL names
// one, else to the page's main content container, else leaves it
// whole.
func narrow(htmlContent, fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	if fragment != "" && fragmentIDPattern.MatchString(fragment) {
		if section, ok := sectionHTML(doc, fragment); ok {
			return section
		}
	}

	for _, sel := range mainContentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if h, err := goquery.OuterHtml(s); err == nil {
				return wrapBody(h)
			}
		}
	}
	return htmlContent
}

// sectionHTML extracts the element with the fragment's ID. For a
// heading that means the heading plus every following sibling up to
// the next heading of the same or higher level; for a container, the
// element itself.
func sectionHTML(doc *goquery.Document, fragment string) (string, bool) {
	target := doc.Find("#" + fragment).First()
	if target.Length() == 0 {
		return "", false
	}

	outer, err := goquery.OuterHtml(target)
	if err != nil {
		return "", false
	}

	level, isHeading := headingLevel(goquery.NodeName(target))
	if !isHeading {
		return wrapBody(outer), true
	}

	parts := []string{outer}
	target.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if lvl, ok := headingLevel(goquery.NodeName(s)); ok && lvl <= level {
			return false
		}
		if sibling, err := goquery.OuterHtml(s); err == nil {
			parts = append(parts, sibling)
		}
		return true
	})
	return wrapBody(strings.Join(parts, "\n")), true
}

func wrapBody(inner string) string {
	return "<html><body>" + inner + "</body></html>"
}

func headingLevel(tag string) (int, bool) {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0'), true
	}
	return 0, false
}

func isHTML(contentType string, body []byte) bool {
	mime := mimeType(contentType)
	if strings.Contains(mime, "text/html") || strings.Contains(mime, "application/xhtml") {
		return true
	}
	if mime == "" {
		head := strings.ToLower(string(body[:min(512, len(body))]))
		return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype")
	}
	return false
}

func isText(contentType string) bool {
	mime := mimeType(contentType)
	return strings.HasPrefix(mime, "text/") ||
		strings.Contains(mime, "application/json") ||
		strings.Contains(mime, "markdown")
}

// mimeType strips charset and other parameters from a Content-Type.
func mimeType(contentType string) string {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
