// Package scanner walks a project tree collecting markdown documentation
// files with lightweight title and description extraction. It is a heuristic
// collector for prompt-context building, not a full markdown pipeline: titles
// come from the goldmark AST, descriptions from a shallow line scan.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/agentpane/agentpane/pkg/logger"
)

const (
	// DefaultMaxDepth bounds how far below the root the scan descends.
	DefaultMaxDepth = 5

	descriptionLimit  = 200
	markdownExtension = ".md"
)

// DefaultSkipDirs are directory names (or glob patterns) never descended
// into: dependency, build, VCS, and tool directories.
var DefaultSkipDirs = []string{
	"node_modules", ".git", "dist", "build", "out", "vendor",
	"target", "coverage", "__pycache__", ".next", ".venv", "venv",
	"bin", "obj",
}

// MarkdownFile is a single markdown document found during a scan. Immutable
// once read; rebuilt from disk on every scan.
type MarkdownFile struct {
	Name        string
	Path        string
	Content     string
	Title       string
	Description string
}

// SkipSet matches directory names against a compiled skip list. Patterns may
// be literal names or globs; any dot-prefixed directory is always skipped.
type SkipSet struct {
	patterns []glob.Glob
}

// NewSkipSet compiles the given directory names/patterns. Patterns that fail
// to compile are ignored.
func NewSkipSet(patterns []string) *SkipSet {
	s := &SkipSet{}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			continue
		}
		s.patterns = append(s.patterns, g)
	}
	return s
}

// Match reports whether a directory with the given base name should be
// skipped.
func (s *SkipSet) Match(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, g := range s.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Scanner collects markdown files below a root directory.
type Scanner struct {
	maxDepth int
	skip     *SkipSet
}

// Option configures a Scanner.
type Option func(*Scanner) error

// WithMaxDepth caps the recursion depth. The two pipeline call sites use
// different caps (5 for context scans, 4 for suggestion file collection), so
// this stays an independent knob rather than a shared constant.
func WithMaxDepth(depth int) Option {
	return func(s *Scanner) error {
		if depth <= 0 {
			return errors.Errorf("max depth must be positive, got %d", depth)
		}
		s.maxDepth = depth
		return nil
	}
}

// WithSkipDirs replaces the default directory skip list.
func WithSkipDirs(dirs ...string) Option {
	return func(s *Scanner) error {
		s.skip = NewSkipSet(dirs)
		return nil
	}
}

// New creates a Scanner with the default depth cap and skip list unless
// overridden by options.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		maxDepth: DefaultMaxDepth,
		skip:     NewSkipSet(DefaultSkipDirs),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.Wrap(err, "failed to apply scanner option")
		}
	}
	return s, nil
}

// Scan walks root depth-first and returns every readable markdown file within
// the depth cap. An unreadable file is logged and skipped; the scan itself
// never fails because of one bad file.
func (s *Scanner) Scan(ctx context.Context, root string) []MarkdownFile {
	log := logger.G(ctx)
	var files []MarkdownFile

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.WithError(err).WithField("path", path).Debug("Skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}

		depth := s.depthBelow(root, path)

		if d.IsDir() {
			if s.skip.Match(d.Name()) || depth >= s.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), markdownExtension) {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			log.WithError(readErr).WithField("path", path).Warn("Failed to read markdown file, skipping")
			return nil
		}

		raw := string(content)
		files = append(files, MarkdownFile{
			Name:        d.Name(),
			Path:        path,
			Content:     raw,
			Title:       ExtractTitle(raw),
			Description: ExtractDescription(raw),
		})
		return nil
	})

	log.WithField("count", len(files)).Debug("Markdown scan complete")
	return files
}

// depthBelow returns the number of path components between root and path.
func (s *Scanner) depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

// ExtractTitle returns the text of the first level-1 heading, or "".
func ExtractTitle(content string) string {
	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	source := []byte(content)
	doc := md.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 1 {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		for i := 0; i < heading.Lines().Len(); i++ {
			segment := heading.Lines().At(i)
			sb.Write(segment.Value(source))
		}
		title = strings.TrimSpace(sb.String())
		return ast.WalkStop, nil
	})
	return title
}

// ExtractDescription returns the first meaningful body paragraph line:
// blank lines, heading lines, and a leading frontmatter block are skipped,
// and the result is truncated to 200 characters. Intentionally shallow.
func ExtractDescription(content string) string {
	lines := strings.Split(content, "\n")

	inFrontmatter := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if i == 0 && trimmed == "---" {
			inFrontmatter = true
			continue
		}
		if inFrontmatter {
			if trimmed == "---" {
				inFrontmatter = false
			}
			continue
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if len(trimmed) > descriptionLimit {
			return trimmed[:descriptionLimit]
		}
		return trimmed
	}
	return ""
}
