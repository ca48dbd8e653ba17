// Package suggest derives candidate new agent definitions for a project,
// either from keyword heuristics over scanned markdown or through a
// structured JSON round trip with the external assistant. The assisted path
// falls back to the static rules wholesale on any failure; it never returns
// a partial result.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/agentpane/agentpane/pkg/assistant"
	"github.com/agentpane/agentpane/pkg/digest"
	"github.com/agentpane/agentpane/pkg/frontmatter"
	"github.com/agentpane/agentpane/pkg/logger"
	"github.com/agentpane/agentpane/pkg/scanner"
)

const (
	// CollectMaxDepth caps the project-file walk for assisted analysis.
	// Independent from the markdown scanner's depth cap on purpose.
	CollectMaxDepth = 4

	analysisTimeout   = 60 * time.Second
	generationTimeout = 90 * time.Second

	docsThreshold = 3
)

// sourceExtensions is the allow-list of source files worth showing the
// assistant during analysis.
var sourceExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rs": true, ".java": true, ".rb": true, ".md": true,
}

// manifestNames are always collected when present.
var manifestNames = map[string]bool{
	"package.json": true, "go.mod": true, "Cargo.toml": true,
	"pyproject.toml": true, "requirements.txt": true, "Makefile": true,
	"docker-compose.yml": true,
}

// Suggestion is a candidate new agent definition. Produced, never mutated.
type Suggestion struct {
	Name        string
	Description string
	Reason      string
	Template    string
}

// staticRule is one keyword/threshold heuristic.
type staticRule struct {
	name        string
	description string
	reason      string
	keywords    []string // empty means the rule uses the file-count threshold
}

// staticRules fire in priority order; each emits at most one suggestion.
var staticRules = []staticRule{
	{
		name:        "docs-maintainer",
		description: "Keeps project documentation accurate and up to date",
		reason:      "the project has a substantial markdown documentation set",
	},
	{
		name:        "api-designer",
		description: "Designs and reviews API endpoints and contracts",
		reason:      "the documentation mentions API-related concepts",
		keywords:    []string{"api", "endpoint", "rest", "graphql", "swagger", "openapi"},
	},
	{
		name:        "test-writer",
		description: "Writes and maintains automated tests",
		reason:      "the documentation mentions testing concepts",
		keywords:    []string{"test", "testing", "jest", "pytest", "vitest", "spec"},
	},
	{
		name:        "architecture-advisor",
		description: "Advises on architecture and design decisions",
		reason:      "the documentation mentions architecture concepts",
		keywords:    []string{"architecture", "microservice", "design pattern", "monorepo"},
	},
}

// Static applies the fixed rule battery over scanned markdown files.
func Static(ctx context.Context, files []scanner.MarkdownFile) []Suggestion {
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(f.Content)
		sb.WriteString("\n")
	}
	haystack := strings.ToLower(sb.String())

	var suggestions []Suggestion
	for _, rule := range staticRules {
		if len(rule.keywords) == 0 {
			if len(files) < docsThreshold {
				continue
			}
		} else if !containsAny(haystack, rule.keywords) {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			Name:        rule.name,
			Description: rule.description,
			Reason:      rule.reason,
			Template:    genericTemplate(rule.name, rule.description),
		})
	}

	logger.G(ctx).WithField("count", len(suggestions)).Debug("Static suggestions computed")
	return suggestions
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// genericTemplate renders a complete definition file for a suggestion.
func genericTemplate(name, description string) string {
	body := fmt.Sprintf("You are %s. %s.\n\n"+
		"Work within this project's conventions and ask for clarification when a task is ambiguous.", name, description)
	header := "---\nname: " + name + "\ndescription: " + description + "\nmodel: " + frontmatter.DefaultModel + "\n---\n"
	return header + "\n" + body + "\n"
}

// Engine runs the assisted suggestion path.
type Engine struct {
	root    string
	client  *assistant.Client
	builder *digest.Builder
	skip    *scanner.SkipSet
}

// NewEngine creates an Engine for root using the given assistant client and
// digest builder.
func NewEngine(root string, client *assistant.Client, builder *digest.Builder) *Engine {
	return &Engine{
		root:    root,
		client:  client,
		builder: builder,
		skip:    scanner.NewSkipSet(scanner.DefaultSkipDirs),
	}
}

// analysisItem is the strict JSON shape the assistant must return.
type analysisItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// Assisted asks the assistant to analyze the project and propose agents.
// On any failure (assistant error, malformed JSON) the entire path falls
// back to the static rules over files; partial results are never returned.
func (e *Engine) Assisted(ctx context.Context, files []scanner.MarkdownFile) []Suggestion {
	log := logger.G(ctx)

	suggestions, err := e.assisted(ctx)
	if err != nil {
		log.WithError(err).Warn("Assisted suggestion analysis failed, falling back to static rules")
		return Static(ctx, files)
	}
	return suggestions
}

func (e *Engine) assisted(ctx context.Context) ([]Suggestion, error) {
	paths := e.collectProjectFiles(ctx)

	result := e.client.Execute(ctx, e.analysisPrompt(ctx, paths), assistant.ExecuteOptions{Timeout: analysisTimeout})
	if !result.Success {
		return nil, errors.Errorf("assistant analysis failed: %s", result.Err)
	}

	items, err := parseAnalysis(result.Content)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(items))
	for _, item := range items {
		name := kebabCase(item.Name)
		if name == "" {
			continue
		}

		template := e.generateTemplate(ctx, name, item.Description)
		suggestions = append(suggestions, Suggestion{
			Name:        name,
			Description: item.Description,
			Reason:      item.Reason,
			Template:    template,
		})
	}
	return suggestions, nil
}

// generateTemplate issues one assistant call for the suggestion's full
// prompt body, falling back to the generic template on failure.
func (e *Engine) generateTemplate(ctx context.Context, name, description string) string {
	prompt := fmt.Sprintf(
		"Write the prompt body for an AI agent named %q described as %q.\n\n"+
			"Project context:\n\n%s\n\n"+
			"Output only the markdown body, no frontmatter.\n",
		name, description, e.builder.Build(ctx, e.root))

	result := e.client.Execute(ctx, prompt, assistant.ExecuteOptions{Timeout: generationTimeout})
	if !result.Success || strings.TrimSpace(result.Content) == "" {
		logger.G(ctx).WithField("suggestion", name).Warn("Template generation failed, using generic template")
		return genericTemplate(name, description)
	}

	header := "---\nname: " + name + "\ndescription: " + description + "\nmodel: " + frontmatter.DefaultModel + "\n---\n"
	return header + "\n" + strings.TrimSpace(result.Content) + "\n"
}

// analysisPrompt lists the collected project files and demands strict JSON.
func (e *Engine) analysisPrompt(ctx context.Context, paths []string) string {
	var sb strings.Builder
	sb.WriteString("Analyze this project and propose up to 5 specialized AI agents that would help its developers.\n\n")
	sb.WriteString("Project files:\n")
	for _, p := range paths {
		sb.WriteString("- " + p + "\n")
	}
	sb.WriteString("\nProject context:\n\n")
	sb.WriteString(e.builder.Build(ctx, e.root))
	sb.WriteString("\n\nRespond with ONLY a JSON array of objects with keys \"name\" (kebab-case), \"description\", and \"reason\". No prose, no code fences.\n")
	return sb.String()
}

// collectProjectFiles gathers relevant source and manifest files, depth
// capped and honoring the directory skip list.
func (e *Engine) collectProjectFiles(ctx context.Context) []string {
	var paths []string

	_ = filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == e.root {
			return nil
		}

		rel, relErr := filepath.Rel(e.root, path)
		if relErr != nil {
			return nil
		}
		depth := len(strings.Split(filepath.ToSlash(rel), "/"))

		if d.IsDir() {
			if e.skip.Match(d.Name()) || depth >= CollectMaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if manifestNames[d.Name()] || sourceExtensions[filepath.Ext(d.Name())] {
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})

	logger.G(ctx).WithField("count", len(paths)).Debug("Collected project files for analysis")
	return paths
}

// parseAnalysis extracts and decodes the JSON array from the assistant
// response. Anything outside the outermost brackets is ignored; a response
// without a valid array is an error.
func parseAnalysis(content string) ([]analysisItem, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("assistant response contains no JSON array")
	}

	var items []analysisItem
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		return nil, errors.Wrap(err, "failed to parse assistant analysis response")
	}
	return items, nil
}

// kebabCase normalizes a suggested agent name to a kebab-case identifier.
func kebabCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var sb strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

// Materialize writes a suggestion's template into dir as <name>.md. It
// refuses to overwrite an existing definition.
func Materialize(dir string, s Suggestion) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory %s", dir)
	}

	path := filepath.Join(dir, s.Name+".md")
	if _, err := os.Stat(path); err == nil {
		return "", errors.Errorf("definition %s already exists", path)
	}

	if err := os.WriteFile(path, []byte(s.Template), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}
