// Package digest assembles a size-bounded text summary of a project's
// documentation and manifests for use as AI prompt context. Sections are
// appended in fixed priority order, each capped individually, under a global
// character budget that is never exceeded.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/agentpane/agentpane/pkg/logger"
	"github.com/agentpane/agentpane/pkg/scanner"
)

const (
	// DefaultTotalBudget is the global character budget for a digest.
	DefaultTotalBudget = 8000
	// DefaultSectionCap is the per-section character cap.
	DefaultSectionCap = 2000

	treeMaxDepth = 2
)

// guidelineFiles are candidate project-guideline files, highest priority
// first. The first one present wins.
var guidelineFiles = []string{"CLAUDE.md", "AGENTS.md"}

// secondaryManifests are checked in order; the first present is included raw.
var secondaryManifests = []string{"go.mod", "Cargo.toml", "pyproject.toml", "requirements.txt"}

// Builder builds project context digests.
type Builder struct {
	totalBudget int
	sectionCap  int
	skip        *scanner.SkipSet
}

// Option configures a Builder.
type Option func(*Builder) error

// WithTotalBudget overrides the global character budget.
func WithTotalBudget(budget int) Option {
	return func(b *Builder) error {
		if budget <= 0 {
			return errors.Errorf("total budget must be positive, got %d", budget)
		}
		b.totalBudget = budget
		return nil
	}
}

// WithSectionCap overrides the per-section character cap.
func WithSectionCap(limit int) Option {
	return func(b *Builder) error {
		if limit <= 0 {
			return errors.Errorf("section cap must be positive, got %d", limit)
		}
		b.sectionCap = limit
		return nil
	}
}

// NewBuilder creates a Builder with default budgets unless overridden.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		totalBudget: DefaultTotalBudget,
		sectionCap:  DefaultSectionCap,
		skip:        scanner.NewSkipSet(scanner.DefaultSkipDirs),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, errors.Wrap(err, "failed to apply digest builder option")
		}
	}
	return b, nil
}

// section is one candidate digest section: a label, the file it reads (empty
// for synthetic sections), and a loader producing its raw content.
type section struct {
	label string
	file  string
	load  func() (string, error)
}

// sections returns the ordered candidate sections for root. Build and
// IncludedFiles both derive from this list so that progress reporting stays
// consistent with what the digest actually reads.
func (b *Builder) sections(root string) []section {
	var out []section

	for _, name := range guidelineFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			out = append(out, section{
				label: "Project Guidelines (" + name + ")",
				file:  name,
				load:  func() (string, error) { return readAll(path) },
			})
			break
		}
	}

	readmePath := filepath.Join(root, "README.md")
	if _, err := os.Stat(readmePath); err == nil {
		out = append(out, section{
			label: "README",
			file:  "README.md",
			load:  func() (string, error) { return readAll(readmePath) },
		})
	}

	manifestPath := filepath.Join(root, "package.json")
	if _, err := os.Stat(manifestPath); err == nil {
		out = append(out, section{
			label: "Package Manifest (package.json)",
			file:  "package.json",
			load:  func() (string, error) { return summarizePackageJSON(manifestPath) },
		})
	}

	for _, name := range secondaryManifests {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			out = append(out, section{
				label: "Manifest (" + name + ")",
				file:  name,
				load:  func() (string, error) { return readAll(path) },
			})
			break
		}
	}

	out = append(out, section{
		label: "Directory Structure",
		load:  func() (string, error) { return b.renderTree(root), nil },
	})

	return out
}

// Build produces the digest for root. The emitted length never exceeds the
// total budget; sections are truncated to the per-section cap first and then
// to whatever global budget remains.
func (b *Builder) Build(ctx context.Context, root string) string {
	log := logger.G(ctx)
	var sb strings.Builder

	for _, sec := range b.sections(root) {
		remaining := b.totalBudget - sb.Len()
		if remaining <= 0 {
			break
		}

		content, err := sec.load()
		if err != nil {
			log.WithError(err).WithField("section", sec.label).Warn("Failed to load digest section, skipping")
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}

		header := fmt.Sprintf("## %s\n\n", sec.label)
		if len(header) >= remaining {
			break
		}

		body := truncate(content, min(b.sectionCap, remaining-len(header)-2))
		if body == "" {
			continue
		}

		sb.WriteString(header)
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}

	out := strings.TrimRight(sb.String(), "\n")
	if len(out) > b.totalBudget {
		out = out[:b.totalBudget]
	}
	return out
}

// IncludedFiles returns the names of the files the digest would read for
// root, in priority order. Synthetic sections (the directory tree) are not
// file reads and are excluded.
func (b *Builder) IncludedFiles(root string) []string {
	var names []string
	for _, sec := range b.sections(root) {
		if sec.file != "" {
			names = append(names, sec.file)
		}
	}
	return names
}

func readAll(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return string(content), nil
}

// packageManifest is the curated subset of package.json worth spending
// digest budget on.
type packageManifest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// summarizePackageJSON extracts name, description, script names, and
// dependency name lists rather than dumping the raw manifest.
func summarizePackageJSON(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}

	var manifest packageManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return "", errors.Wrapf(err, "failed to parse %s", path)
	}

	var lines []string
	if manifest.Name != "" {
		lines = append(lines, "name: "+manifest.Name)
	}
	if manifest.Description != "" {
		lines = append(lines, "description: "+manifest.Description)
	}
	if len(manifest.Scripts) > 0 {
		lines = append(lines, "scripts: "+joinKeys(manifest.Scripts))
	}
	if len(manifest.Dependencies) > 0 {
		lines = append(lines, "dependencies: "+joinKeys(manifest.Dependencies))
	}
	if len(manifest.DevDependencies) > 0 {
		lines = append(lines, "devDependencies: "+joinKeys(manifest.DevDependencies))
	}
	return strings.Join(lines, "\n"), nil
}

func joinKeys(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// renderTree renders a two-level directory listing honoring the skip list.
func (b *Builder) renderTree(root string) string {
	var sb strings.Builder
	b.renderTreeLevel(root, "", 0, &sb)
	return sb.String()
}

func (b *Builder) renderTreeLevel(dir, indent string, depth int, sb *strings.Builder) {
	if depth >= treeMaxDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if b.skip.Match(name) {
				continue
			}
			sb.WriteString(indent + name + "/\n")
			b.renderTreeLevel(filepath.Join(dir, name), indent+"  ", depth+1, sb)
		} else {
			sb.WriteString(indent + name + "\n")
		}
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
