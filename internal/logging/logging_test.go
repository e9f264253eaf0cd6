package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Level parsing
// ============================================================

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevelFromString(tt.input))
		})
	}
}

// ============================================================
// Rotating writer
// ============================================================

func TestRotatingWriter_WritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsage.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	_, err = w.Write([]byte("hello log\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello log")
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsage.log")

	// 1MB limit; three ~600KB writes force two rotations
	w, err := NewRotatingWriter(path, 1, 3)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 3; i++ {
		_, err = w.Write(chunk)
		require.NoError(t, err)
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file .1 should exist")
}

func TestRotatingWriter_KeepsAtMostMaxFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsage.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	chunk := bytes.Repeat([]byte("y"), 700*1024)
	for i := 0; i < 6; i++ {
		_, err = w.Write(chunk)
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), 2)
}

func TestRotatingWriter_CreatesMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "docsage.log")

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

// ============================================================
// Setup
// ============================================================

func TestSetup_ProducesJSONLogs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsage.log")

	logger, cleanup, err := Setup(Config{
		Level:         "debug",
		FilePath:      path,
		MaxSizeMB:     10,
		MaxFiles:      3,
		WriteToStderr: false,
	})
	require.NoError(t, err)

	logger.Info("orchestration started", slog.String("run_id", "r-123"))
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "orchestration started", entry["msg"])
	assert.Equal(t, "r-123", entry["run_id"])
}

func TestSetup_RespectsLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsage.log")

	logger, cleanup, err := Setup(Config{
		Level:         "warn",
		FilePath:      path,
		MaxSizeMB:     10,
		MaxFiles:      3,
		WriteToStderr: false,
	})
	require.NoError(t, err)

	logger.Debug("not recorded")
	logger.Info("not recorded either")
	logger.Warn("recorded")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "not recorded")
	assert.Contains(t, string(data), "recorded")
}

// ============================================================
// Viewer
// ============================================================

func writeLogLines(t *testing.T, path string, lines []string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func jsonLine(level, msg string, extra map[string]any) string {
	m := map[string]any{
		"time":  "2026-08-21T10:00:00.000Z",
		"level": level,
		"msg":   msg,
	}
	for k, v := range extra {
		m[k] = v
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func TestViewer_Tail_ReturnsLastN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsage.log")

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, jsonLine("INFO", fmt.Sprintf("msg-%d", i), nil))
	}
	writeLogLines(t, path, lines)

	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 3)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "msg-7", entries[0].Msg)
	assert.Equal(t, "msg-9", entries[2].Msg)
}

func TestViewer_Tail_LevelFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsage.log")

	writeLogLines(t, path, []string{
		jsonLine("DEBUG", "low", nil),
		jsonLine("INFO", "mid", nil),
		jsonLine("ERROR", "high", nil),
	})

	v := NewViewer(ViewerConfig{Level: "warn", NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 100)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "high", entries[0].Msg)
}

func TestViewer_Tail_PatternFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docsage.log")

	writeLogLines(t, path, []string{
		jsonLine("INFO", "fan-out complete", map[string]any{"variants": 3}),
		jsonLine("INFO", "cache hit", nil),
	})

	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile("fan-out"), NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 100)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "fan-out complete", entries[0].Msg)
}

func TestViewer_ParseLine_InvalidJSONKeptRaw(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entry := v.parseLine("not json at all")

	assert.False(t, entry.IsValid)
	assert.Equal(t, "not json at all", entry.Raw)
	assert.Equal(t, "not json at all", v.FormatEntry(entry))
}

func TestViewer_FormatEntry_IncludesAttrs(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entry := v.parseLine(jsonLine("INFO", "ranked documents", map[string]any{"count": 7}))
	out := v.FormatEntry(entry)

	assert.Contains(t, out, "ranked documents")
	assert.Contains(t, out, "count=7")
	assert.Contains(t, out, "INFO")
}
