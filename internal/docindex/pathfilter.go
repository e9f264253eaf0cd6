package docindex

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PathFilter decides which files under a documentation root are
// ingested. A path is accepted when it matches at least one include
// pattern (an empty include list accepts everything) and no exclude
// pattern. Patterns use glob syntax with ** for directory spans,
// matched against slash-separated paths relative to the root.
type PathFilter struct {
	include []compiledPattern
	exclude []compiledPattern
}

type compiledPattern struct {
	pattern string
	regex   *regexp.Regexp
	// bare patterns (no slash, no **) match the basename at any depth
	bare bool
}

// NewPathFilter compiles include and exclude patterns.
func NewPathFilter(include, exclude []string) (*PathFilter, error) {
	f := &PathFilter{}

	for _, p := range include {
		cp, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		f.include = append(f.include, cp)
	}
	for _, p := range exclude {
		cp, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		f.exclude = append(f.exclude, cp)
	}

	return f, nil
}

// Match reports whether the relative path should be ingested.
func (f *PathFilter) Match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	if f.Excluded(relPath) {
		return false
	}

	if len(f.include) == 0 {
		return true
	}
	for _, cp := range f.include {
		if cp.matches(relPath) {
			return true
		}
	}
	return false
}

// Excluded reports whether the path hits an exclude pattern. Directory
// paths are also tested with a trailing slash so span patterns like
// **/node_modules/** prune the directory itself.
func (f *PathFilter) Excluded(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, cp := range f.exclude {
		if cp.matches(relPath) || cp.matches(relPath+"/") {
			return true
		}
	}
	return false
}

// AddGitignore merges a .gitignore file's patterns into the excludes.
// Negation patterns are skipped: ingestion only ever narrows.
func (f *PathFilter) AddGitignore(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		// Directory pattern "build/" excludes everything under it
		if strings.HasSuffix(line, "/") {
			line = line + "**"
		}
		cp, err := compilePattern(line)
		if err != nil {
			continue // Malformed patterns are ignored, matching git's leniency
		}
		f.exclude = append(f.exclude, cp)
	}

	return scanner.Err()
}

func (cp compiledPattern) matches(relPath string) bool {
	if cp.bare {
		return cp.regex.MatchString(filepath.Base(relPath))
	}
	return cp.regex.MatchString(relPath)
}

// compilePattern converts one glob pattern to a compiled matcher.
func compilePattern(pattern string) (compiledPattern, error) {
	pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "/")
	if pattern == "" {
		return compiledPattern{}, fmt.Errorf("empty pattern")
	}

	bare := !strings.Contains(pattern, "/") && !strings.Contains(pattern, "**")

	regex, err := regexp.Compile("^" + globToRegex(pattern) + "$")
	if err != nil {
		return compiledPattern{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	return compiledPattern{pattern: pattern, regex: regex, bare: bare}, nil
}

// globToRegex translates glob syntax to a regular expression:
// ** spans directories, * and ? stop at separators, [...] classes and
// backslash escapes pass through.
func globToRegex(pattern string) string {
	var out strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]

		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// **/ matches zero or more directories
					out.WriteString(`(?:.*/)?`)
					i += 3
					continue
				}
				// trailing or mid-pattern ** matches anything
				out.WriteString(`.*`)
				i += 2
				continue
			}
			out.WriteString(`[^/]*`)
			i++

		case '?':
			out.WriteString(`[^/]`)
			i++

		case '[':
			j := i + 1
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				out.WriteString(pattern[i : j+1])
				i = j + 1
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		case '\\':
			if i+1 < len(pattern) {
				out.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				out.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}

		default:
			out.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	return out.String()
}
