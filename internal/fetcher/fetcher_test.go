package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sageerrors "github.com/docsage/docsage/internal/errors"
)

func quietFetcher(opts ...Option) *PageFetcher {
	opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return New(opts...)
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ============================================================================
// Conversion and narrowing
// ============================================================================

func TestPageFetcher_ConvertsMainContentToMarkdown(t *testing.T) {
	srv := serveHTML(t, `<!DOCTYPE html>
<html><body>
<nav><a href="/">Skip to content</a></nav>
<main>
  <h1>Getting Started</h1>
  <p>Install the SDK before anything else.</p>
  <p>Then configure your project.</p>
</main>
<footer>All rights reserved.</footer>
</body></html>`)

	content, err := quietFetcher().FetchContent(context.Background(), srv.URL+"/guide")

	require.NoError(t, err)
	assert.Contains(t, content, "Getting Started")
	assert.Contains(t, content, "Install the SDK before anything else.")
	assert.NotContains(t, content, "Skip to content", "navigation chrome is dropped")
	assert.NotContains(t, content, "All rights reserved", "footer outside main is dropped")
	assert.NotContains(t, content, "<p>", "markup never leaks into the text")
}

func TestPageFetcher_FragmentNarrowsToItsSection(t *testing.T) {
	srv := serveHTML(t, `<!DOCTYPE html>
<html><body>
<p>Welcome to the project documentation.</p>
<h2 id="install">Install</h2>
<p>Run the installer from a terminal.</p>
<h3 id="install-linux">Linux</h3>
<p>Use the distro package.</p>
<h2 id="usage">Usage</h2>
<p>Import the package in your code.</p>
</body></html>`)

	content, err := quietFetcher().FetchContent(context.Background(), srv.URL+"/page#install")

	require.NoError(t, err)
	assert.Contains(t, content, "Run the installer from a terminal.")
	assert.Contains(t, content, "Use the distro package.", "subsections stay in")
	assert.NotContains(t, content, "Import the package", "the next section is cut off")
	assert.NotContains(t, content, "Welcome to the project", "content before the section is cut off")
}

func TestPageFetcher_UnknownFragmentFallsBackToMain(t *testing.T) {
	srv := serveHTML(t, `<html><body><main><p>The only paragraph.</p></main></body></html>`)

	content, err := quietFetcher().FetchContent(context.Background(), srv.URL+"/page#no-such-anchor")

	require.NoError(t, err)
	assert.Contains(t, content, "The only paragraph.")
}

func TestPageFetcher_PlainTextPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("release notes\nversion two\n"))
	}))
	t.Cleanup(srv.Close)

	content, err := quietFetcher().FetchContent(context.Background(), srv.URL+"/notes.txt")

	require.NoError(t, err)
	assert.Equal(t, "release notes\nversion two", content)
}

func TestPageFetcher_CapsBodySize(t *testing.T) {
	page := "<html><body><p>HEAD-MARKER</p><p>" +
		strings.Repeat("lorem ipsum dolor sit amet ", 100) +
		"</p><p>TAIL-MARKER</p></body></html>"
	require.Greater(t, len(page), 1024)
	srv := serveHTML(t, page)

	content, err := quietFetcher(WithMaxBodyKB(1)).FetchContent(context.Background(), srv.URL+"/big")

	require.NoError(t, err)
	assert.Contains(t, content, "HEAD-MARKER")
	assert.NotContains(t, content, "TAIL-MARKER", "bytes past the cap are never read")
}

// ============================================================================
// Failure modes
// ============================================================================

func TestPageFetcher_ErrorStatusIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := quietFetcher().FetchContent(context.Background(), srv.URL+"/missing")

	require.Error(t, err)
	assert.Equal(t, sageerrors.ErrCodeFetchFailed, sageerrors.GetCode(err))
}

func TestPageFetcher_BinaryContentIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x1f, 0x8b, 0x00, 0x00})
	}))
	t.Cleanup(srv.Close)

	_, err := quietFetcher().FetchContent(context.Background(), srv.URL+"/blob")

	require.Error(t, err)
	assert.Equal(t, sageerrors.ErrCodeFetchFailed, sageerrors.GetCode(err))
}

func TestPageFetcher_RejectsNonHTTPSchemes(t *testing.T) {
	_, err := quietFetcher().FetchContent(context.Background(), "ftp://example.com/file")

	require.Error(t, err)
	assert.Equal(t, sageerrors.ErrCodeInvalidInput, sageerrors.GetCode(err))
}

func TestPageFetcher_FetchTimeoutIsTypedAndRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	_, err := quietFetcher(WithTimeout(30 * time.Millisecond)).
		FetchContent(context.Background(), srv.URL+"/slow")

	require.Error(t, err)
	assert.Equal(t, sageerrors.ErrCodeFetchFailed, sageerrors.GetCode(err))
	assert.True(t, sageerrors.IsRetryable(err))
}

func TestPageFetcher_CancellationPassesThroughUntyped(t *testing.T) {
	srv := serveHTML(t, "<html><body><p>never seen</p></body></html>")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietFetcher().FetchContent(ctx, srv.URL+"/page")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	var se *sageerrors.SageError
	assert.False(t, errors.As(err, &se), "caller cancellation is not a fetch failure")
}

// ============================================================================
// Section extraction
// ============================================================================

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		tag   string
		level int
		ok    bool
	}{
		{"h1", 1, true},
		{"h6", 6, true},
		{"h7", 0, false},
		{"div", 0, false},
		{"hr", 0, false},
	}
	for _, tt := range tests {
		level, ok := headingLevel(tt.tag)
		assert.Equal(t, tt.ok, ok, tt.tag)
		assert.Equal(t, tt.level, level, tt.tag)
	}
}

func TestNarrow_ContainerFragmentTakesWholeElement(t *testing.T) {
	html := `<html><body>
<section id="api"><h2>API</h2><p>Every method documented.</p></section>
<section id="faq"><h2>FAQ</h2><p>Questions answered.</p></section>
</body></html>`

	narrowed := narrow(html, "api")

	assert.Contains(t, narrowed, "Every method documented.")
	assert.NotContains(t, narrowed, "Questions answered.")
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "text/html", mimeType("text/html; charset=utf-8"))
	assert.Equal(t, "text/plain", mimeType(" TEXT/PLAIN "))
	assert.Equal(t, "", mimeType(""))
}
