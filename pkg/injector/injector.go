// Package injector rewrites agent and command definition files with a
// project-context section, either statically from scanned documentation or
// by delegating the rewrite to the external assistant with a static fallback.
// Every fallback tier is an explicit outcome variant so callers (and tests)
// can tell which path was actually taken.
package injector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/agentpane/agentpane/pkg/assistant"
	"github.com/agentpane/agentpane/pkg/digest"
	"github.com/agentpane/agentpane/pkg/frontmatter"
	"github.com/agentpane/agentpane/pkg/logger"
	"github.com/agentpane/agentpane/pkg/presenter"
	"github.com/agentpane/agentpane/pkg/scanner"
)

// Marker is the heading that opens the auto-generated context section.
// Everything from this heading to end of file belongs to the section and is
// replaced wholesale on every update.
const Marker = "## Project Context (Auto-generated)"

// minBodyLength is the threshold below which a body is considered trivial
// and replaced with a synthesized default.
const minBodyLength = 20

// Method identifies which generation tier produced the written file.
type Method int

const (
	// MethodAIGenerated means the assistant produced both body and context.
	MethodAIGenerated Method = iota
	// MethodAIPlusStatic means the assistant produced the body and the
	// context section was built statically.
	MethodAIPlusStatic
	// MethodStaticFallback means the assistant failed and the static path
	// was used instead.
	MethodStaticFallback
	// MethodStatic means the caller chose the static strategy.
	MethodStatic
	// MethodFailed means the file could not be written at all.
	MethodFailed
)

// String returns the method name for logs and diagnostics.
func (m Method) String() string {
	switch m {
	case MethodAIGenerated:
		return "ai-generated"
	case MethodAIPlusStatic:
		return "ai-plus-static"
	case MethodStaticFallback:
		return "static-fallback"
	case MethodStatic:
		return "static"
	case MethodFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports the result of one definition update. Success is false only
// when the file could not be read or written; assistant failures degrade to
// a fallback tier instead.
type Outcome struct {
	Success    bool
	Method     Method
	Diagnostic string
	Path       string
}

// Updater updates a single definition file given the pre-scanned project
// markdown files.
type Updater interface {
	UpdateDefinition(ctx context.Context, path string, files []scanner.MarkdownFile) Outcome
}

// StripAutoSection removes a previously injected context section (marker
// heading to end of file) so repeated runs never grow the file.
func StripAutoSection(body string) string {
	idx := strings.Index(body, Marker)
	if idx == -1 {
		return body
	}
	return strings.TrimRight(body[:idx], " \t\n")
}

func defaultBody(name string) string {
	return fmt.Sprintf("You are %s, a specialized assistant for this project.\n\n"+
		"Use the project context below to ground your answers in this codebase.", name)
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".md")
}

// StaticUpdater rewrites definitions without the assistant: normalized
// frontmatter plus a statically built context section.
type StaticUpdater struct {
	root    string
	kind    frontmatter.Kind
	builder *digest.Builder
}

// NewStaticUpdater creates a StaticUpdater for the given workspace root.
func NewStaticUpdater(root string, kind frontmatter.Kind, builder *digest.Builder) *StaticUpdater {
	return &StaticUpdater{root: root, kind: kind, builder: builder}
}

// UpdateDefinition implements Updater. Failure is reserved for I/O errors.
func (u *StaticUpdater) UpdateDefinition(ctx context.Context, path string, files []scanner.MarkdownFile) Outcome {
	log := logger.G(ctx).WithField("path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Error("Failed to read definition file")
		return Outcome{Method: MethodFailed, Diagnostic: err.Error(), Path: path}
	}

	name := baseName(path)
	normalized := frontmatter.Normalize(string(raw), name, u.kind)
	block, body, _ := frontmatter.Parse(normalized)

	body = StripAutoSection(body)
	if len(strings.TrimSpace(body)) < minBodyLength {
		body = defaultBody(name)
	}

	section := u.ContextSection(ctx, files)
	content := block.Render() + "\n" + strings.TrimSpace(body) + "\n\n" + section + "\n"

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.WithError(err).Error("Failed to write definition file")
		return Outcome{Method: MethodFailed, Diagnostic: err.Error(), Path: path}
	}

	log.WithField("method", MethodStatic.String()).Debug("Definition updated")
	return Outcome{Success: true, Method: MethodStatic, Path: path}
}

// ContextSection builds the static context section: overview, guidelines
// excerpt, detected tech stack, and a documentation index.
func (u *StaticUpdater) ContextSection(ctx context.Context, files []scanner.MarkdownFile) string {
	var sb strings.Builder
	sb.WriteString(Marker + "\n")

	sb.WriteString("\n### Overview\n\n")
	sb.WriteString(u.overview(files) + "\n")

	if excerpt := u.guidelinesExcerpt(ctx); excerpt != "" {
		sb.WriteString("\n### Guidelines\n\n")
		sb.WriteString(excerpt + "\n")
	}

	if stack := DetectTechStack(files); len(stack) > 0 {
		sb.WriteString("\n### Tech Stack\n\n")
		for _, entry := range stack {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", entry.Category, entry.Label))
		}
	}

	if len(files) > 0 {
		sb.WriteString("\n### Documentation Index\n\n")
		for _, f := range files {
			line := "- " + f.Name
			if f.Description != "" {
				line += ": " + f.Description
			}
			sb.WriteString(line + "\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (u *StaticUpdater) overview(files []scanner.MarkdownFile) string {
	for _, f := range files {
		if f.Name == "README.md" && f.Description != "" {
			return f.Description
		}
	}
	return fmt.Sprintf("This project has %d documentation file(s) indexed below.", len(files))
}

// guidelinesExcerpt pulls the opening of the project guidelines file using
// the digest builder's file priorities, so the section stays consistent with
// what the digest itself would read.
func (u *StaticUpdater) guidelinesExcerpt(ctx context.Context) string {
	const excerptLimit = 600

	for _, name := range u.builder.IncludedFiles(u.root) {
		if name != "CLAUDE.md" && name != "AGENTS.md" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(u.root, name))
		if err != nil {
			logger.G(ctx).WithError(err).WithField("file", name).Warn("Failed to read guidelines file")
			return ""
		}
		excerpt := strings.TrimSpace(string(raw))
		if len(excerpt) > excerptLimit {
			excerpt = excerpt[:excerptLimit]
		}
		return excerpt
	}
	return ""
}

// AssistedUpdater rewrites definitions through the external assistant,
// falling back to the static path on any assistant failure.
type AssistedUpdater struct {
	root    string
	kind    frontmatter.Kind
	client  *assistant.Client
	static  *StaticUpdater
	builder *digest.Builder
	timeout time.Duration
}

// NewAssistedUpdater creates an AssistedUpdater. The static updater provides
// the fallback path and the static context section.
func NewAssistedUpdater(root string, kind frontmatter.Kind, client *assistant.Client, builder *digest.Builder, timeout time.Duration) *AssistedUpdater {
	return &AssistedUpdater{
		root:    root,
		kind:    kind,
		client:  client,
		static:  NewStaticUpdater(root, kind, builder),
		builder: builder,
		timeout: timeout,
	}
}

// UpdateDefinition implements Updater. Exactly one assistant call is made;
// the outcome reports success unless the final write fails.
func (u *AssistedUpdater) UpdateDefinition(ctx context.Context, path string, files []scanner.MarkdownFile) Outcome {
	log := logger.G(ctx).WithField("path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Error("Failed to read definition file")
		return Outcome{Method: MethodFailed, Diagnostic: err.Error(), Path: path}
	}

	name := baseName(path)
	normalized := frontmatter.Normalize(string(raw), name, u.kind)
	block, body, _ := frontmatter.Parse(normalized)
	body = StripAutoSection(body)

	prompt := u.buildPrompt(ctx, block, body)
	result := u.client.Execute(ctx, prompt, assistant.ExecuteOptions{Timeout: u.timeout})

	var content string
	var method Method
	var diagnostic string

	switch {
	case !result.Success:
		// Keep a substantial pre-existing body, synthesize otherwise, and
		// attach the static context section.
		if len(strings.TrimSpace(body)) < minBodyLength {
			body = defaultBody(name)
		}
		content = block.Render() + "\n" + strings.TrimSpace(body) + "\n\n" + u.static.ContextSection(ctx, files) + "\n"
		method = MethodStaticFallback
		diagnostic = result.Err
		log.WithField("error", result.Err).Warn("Assistant failed, using static fallback")

	case strings.Contains(result.Content, Marker):
		idx := strings.Index(result.Content, Marker)
		aiBody := strings.TrimSpace(result.Content[:idx])
		aiSection := strings.TrimRight(result.Content[idx:], "\n")
		content = block.Render() + "\n" + aiBody + "\n\n" + aiSection + "\n"
		method = MethodAIGenerated

	default:
		aiBody := strings.TrimSpace(result.Content)
		content = block.Render() + "\n" + aiBody + "\n\n" + u.static.ContextSection(ctx, files) + "\n"
		method = MethodAIPlusStatic
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.WithError(err).Error("Failed to write definition file")
		return Outcome{Method: MethodFailed, Diagnostic: err.Error(), Path: path}
	}

	log.WithField("method", method.String()).Debug("Definition updated")
	return Outcome{Success: true, Method: method, Diagnostic: diagnostic, Path: path}
}

// buildPrompt combines the body rewrite and the context section request into
// a single prompt to keep subprocess round-trips to one per file.
func (u *AssistedUpdater) buildPrompt(ctx context.Context, block *frontmatter.Block, body string) string {
	name, _ := block.Get("name")
	description, _ := block.Get("description")

	var sb strings.Builder
	sb.WriteString("You are improving the prompt body of an AI agent definition file.\n\n")
	sb.WriteString(fmt.Sprintf("Agent name: %s\nAgent description: %s\n\n", name, description))
	sb.WriteString("Current body:\n\n")
	if strings.TrimSpace(body) == "" {
		sb.WriteString("(empty)\n")
	} else {
		sb.WriteString(strings.TrimSpace(body) + "\n")
	}
	sb.WriteString("\nProject context:\n\n")
	sb.WriteString(u.builder.Build(ctx, u.root))
	sb.WriteString("\n\nRewrite the body so the agent is specific to this project, then append a section starting with the exact heading\n")
	sb.WriteString("\"" + Marker + "\"\n")
	sb.WriteString("summarizing the project context. Output only the new body and that section, no frontmatter.\n")
	return sb.String()
}

// UpdateAll updates the given paths strictly sequentially so progress lines
// stay ordered and at most one assistant subprocess exists at a time.
// Per-file I/O failures are aggregated; they never abort the batch.
func UpdateAll(ctx context.Context, u Updater, paths []string, files []scanner.MarkdownFile, sink presenter.Sink) ([]Outcome, error) {
	var merr *multierror.Error
	outcomes := make([]Outcome, 0, len(paths))

	for i, path := range paths {
		sink.Progress(fmt.Sprintf("updating %s (%d/%d)", filepath.Base(path), i+1, len(paths)))

		outcome := u.UpdateDefinition(ctx, path, files)
		outcomes = append(outcomes, outcome)

		if outcome.Success {
			sink.Progress(fmt.Sprintf("%s done (%s)", filepath.Base(path), outcome.Method))
		} else {
			sink.Progress(fmt.Sprintf("%s failed: %s", filepath.Base(path), outcome.Diagnostic))
			merr = multierror.Append(merr, errors.Errorf("failed to update %s: %s", path, outcome.Diagnostic))
		}
	}

	return outcomes, merr.ErrorOrNil()
}
