package docindex

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IngestConfig controls how a documentation tree is turned into records.
type IngestConfig struct {
	// Include and Exclude are glob patterns relative to the root.
	// Empty Include ingests every supported file.
	Include []string
	Exclude []string

	// BaseURL prefixes section URLs. Empty produces root-relative URLs.
	BaseURL string

	// HonorGitignore merges the root's .gitignore into the excludes.
	HonorGitignore bool
}

var (
	headingPattern     = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n*`)
	anchorStripPattern = regexp.MustCompile(`[^a-z0-9 \-]`)
)

// LoadRecords walks a documentation tree and splits every matching file
// into heading-delimited section records. Unreadable files are skipped
// with a warning; only a failure to walk the root itself is an error.
func LoadRecords(root string, cfg IngestConfig) ([]DocRecord, error) {
	filter, err := NewPathFilter(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid ingest patterns: %w", err)
	}

	if cfg.HonorGitignore {
		gitignorePath := filepath.Join(root, ".gitignore")
		if _, statErr := os.Stat(gitignorePath); statErr == nil {
			if err := filter.AddGitignore(gitignorePath); err != nil {
				slog.Warn("skipping unreadable .gitignore", "path", gitignorePath, "error", err)
			}
		}
	}

	var records []DocRecord

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil || rel == "." {
				return nil
			}
			// Prune excluded directories; include patterns cannot prune
			// because a deeper file may still match one.
			if filter.Excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || !filter.Match(rel) {
			return nil
		}

		fileRecords, parseErr := parseFile(path, rel, cfg.BaseURL)
		if parseErr != nil {
			slog.Warn("skipping unparseable documentation file", "path", path, "error", parseErr)
			return nil
		}
		records = append(records, fileRecords...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	return records, nil
}

// parseFile dispatches on extension.
func parseFile(path, rel, baseURL string) ([]DocRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return parseMarkdown(rel, string(data), baseURL), nil
	case ".json":
		return parseRecordsJSON(data)
	default:
		// Plain text and anything else: one record, no hierarchy beyond
		// the file title.
		content := strings.TrimSpace(string(data))
		if content == "" {
			return nil, nil
		}
		return []DocRecord{{
			ID:      sectionURL(baseURL, rel, ""),
			URL:     sectionURL(baseURL, rel, ""),
			Lvl0:    fileTitle(rel),
			Content: content,
			DocType: classifyDocType(rel),
		}}, nil
	}
}

// parseRecordsJSON accepts a pre-built []DocRecord export.
func parseRecordsJSON(data []byte) ([]DocRecord, error) {
	var records []DocRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("not a record export: %w", err)
	}
	for i := range records {
		if records[i].URL == "" {
			return nil, fmt.Errorf("record %d has no url", i)
		}
		if records[i].ID == "" {
			records[i].ID = records[i].URL
		}
	}
	return records, nil
}

// parseMarkdown splits a markdown document into one record per heading
// section. The heading stack supplies the hierarchy: an H1 sets lvl0,
// deeper headings fill deeper levels and clear everything below them.
func parseMarkdown(rel, content, baseURL string) []DocRecord {
	content = frontmatterPattern.ReplaceAllString(content, "")
	if strings.TrimSpace(content) == "" {
		return nil
	}

	docType := classifyDocType(rel)

	var stack [6]string
	stack[0] = fileTitle(rel)

	var records []DocRecord
	var body strings.Builder
	currentAnchor := ""
	currentStack := stack
	inFence := false

	flush := func() {
		text := strings.TrimSpace(body.String())
		body.Reset()
		url := sectionURL(baseURL, rel, currentAnchor)
		records = append(records, DocRecord{
			ID:      url,
			URL:     url,
			Lvl0:    currentStack[0],
			Lvl1:    currentStack[1],
			Lvl2:    currentStack[2],
			Lvl3:    currentStack[3],
			Lvl4:    currentStack[4],
			Lvl5:    currentStack[5],
			Content: text,
			DocType: docType,
		})
	}

	sawAnything := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}

		match := headingPattern.FindStringSubmatch(line)
		if match == nil || inFence {
			if strings.TrimSpace(line) != "" {
				sawAnything = true
			}
			body.WriteString(line)
			body.WriteString("\n")
			continue
		}

		// Heading boundary: emit the accumulated section
		if sawAnything {
			flush()
		}
		sawAnything = true

		level := len(match[1])
		title := strings.TrimSpace(match[2])

		stack[level-1] = title
		for i := level; i < len(stack); i++ {
			stack[i] = ""
		}

		currentStack = stack
		currentAnchor = anchorSlug(title)
	}

	if sawAnything {
		flush()
	}

	// Drop records that have neither content nor a heading beyond the
	// synthesized file title.
	kept := records[:0]
	for _, r := range records {
		if r.Content == "" && r.Lvl1 == "" && r.Lvl2 == "" && r.Lvl3 == "" && r.Lvl4 == "" && r.Lvl5 == "" {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// sectionURL builds the canonical URL of a section.
func sectionURL(baseURL, rel, anchor string) string {
	path := filepath.ToSlash(rel)
	path = strings.TrimSuffix(path, filepath.Ext(path))
	u := path
	if baseURL != "" {
		u = strings.TrimSuffix(baseURL, "/") + "/" + path
	}
	if anchor != "" {
		u += "#" + anchor
	}
	return u
}

// fileTitle derives a human title from a file path: "getting-started.md"
// becomes "Getting Started".
func fileTitle(rel string) string {
	base := filepath.Base(rel)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)

	words := strings.Fields(base)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// anchorSlug converts a heading into a GitHub-style anchor.
func anchorSlug(title string) string {
	slug := strings.ToLower(title)
	slug = anchorStripPattern.ReplaceAllString(slug, "")
	slug = strings.ReplaceAll(strings.TrimSpace(slug), " ", "-")
	return slug
}

// classifyDocType infers the record kind from its path.
func classifyDocType(rel string) string {
	lower := strings.ToLower(filepath.ToSlash(rel))
	switch {
	case strings.Contains(lower, "api") || strings.Contains(lower, "reference"):
		return "api"
	case strings.Contains(lower, "guide") || strings.Contains(lower, "tutorial") ||
		strings.Contains(lower, "how-to") || strings.Contains(lower, "howto") ||
		strings.Contains(lower, "getting-started"):
		return "guide"
	default:
		return "docs"
	}
}
