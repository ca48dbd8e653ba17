package suggest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpane/agentpane/pkg/assistant"
	"github.com/agentpane/agentpane/pkg/digest"
	"github.com/agentpane/agentpane/pkg/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fakeClient(t *testing.T, script string) *assistant.Client {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake assistant scripts require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))

	client, err := assistant.NewClient(assistant.WithBinaryPath(path))
	require.NoError(t, err)
	return client
}

func newBuilder(t *testing.T) *digest.Builder {
	t.Helper()
	b, err := digest.NewBuilder()
	require.NoError(t, err)
	return b
}

func markdownSet(contents ...string) []scanner.MarkdownFile {
	files := make([]scanner.MarkdownFile, 0, len(contents))
	for i, c := range contents {
		files = append(files, scanner.MarkdownFile{Name: "f" + string(rune('a'+i)) + ".md", Content: c})
	}
	return files
}

func suggestionNames(suggestions []Suggestion) []string {
	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		names = append(names, s.Name)
	}
	return names
}

func TestStatic_DocsAndAPIRulesInPriorityOrder(t *testing.T) {
	files := markdownSet(
		"# One\n\nThe main endpoint returns JSON.\n",
		"# Two\n\nMore docs.\n",
		"# Three\n\nEven more docs.\n",
	)

	suggestions := Static(context.Background(), files)
	names := suggestionNames(suggestions)

	require.GreaterOrEqual(t, len(names), 2)
	assert.Equal(t, "docs-maintainer", names[0])
	assert.Contains(t, names, "api-designer")
}

func TestStatic_BelowDocsThreshold(t *testing.T) {
	files := markdownSet("# Solo\n\nNothing special here.\n")

	suggestions := Static(context.Background(), files)
	assert.NotContains(t, suggestionNames(suggestions), "docs-maintainer")
}

func TestStatic_TestingAndArchitectureRules(t *testing.T) {
	files := markdownSet("# Guide\n\nRun pytest before pushing. Our microservice architecture is documented here.\n")

	names := suggestionNames(Static(context.Background(), files))
	assert.Contains(t, names, "test-writer")
	assert.Contains(t, names, "architecture-advisor")
}

func TestStatic_TemplatesAreCompleteDefinitions(t *testing.T) {
	files := markdownSet("a\n", "b\n", "c\n")

	suggestions := Static(context.Background(), files)
	require.NotEmpty(t, suggestions)

	tpl := suggestions[0].Template
	assert.True(t, strings.HasPrefix(tpl, "---\n"))
	assert.Contains(t, tpl, "name: docs-maintainer")
	assert.Contains(t, tpl, "model: sonnet")
	assert.Contains(t, tpl, "You are docs-maintainer")
}

func TestAssisted_ParsesStrictJSON(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")

	// Analysis call returns one item; the per-item body call returns a body.
	// The script distinguishes the calls by prompt content.
	client := fakeClient(t, `input=$(cat)
case "$input" in
*"JSON array"*)
  echo '[{"name":"Go Helper","description":"Helps with Go","reason":"go files found"}]'
  ;;
*)
  echo "You are a Go expert for this project."
  ;;
esac`)

	e := NewEngine(root, client, newBuilder(t))
	suggestions := e.Assisted(context.Background(), nil)

	require.Len(t, suggestions, 1)
	assert.Equal(t, "go-helper", suggestions[0].Name)
	assert.Equal(t, "Helps with Go", suggestions[0].Description)
	assert.Equal(t, "go files found", suggestions[0].Reason)
	assert.Contains(t, suggestions[0].Template, "You are a Go expert")
	assert.Contains(t, suggestions[0].Template, "name: go-helper")
}

func TestAssisted_MalformedJSONFallsBackToStatic(t *testing.T) {
	root := t.TempDir()
	client := fakeClient(t, `cat > /dev/null
echo "I think you need a docs agent!"`)

	files := markdownSet("# A\n", "# B\n", "# C\n")

	e := NewEngine(root, client, newBuilder(t))
	suggestions := e.Assisted(context.Background(), files)

	// Full fallback to the static rules, never a partial parse.
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "docs-maintainer", suggestions[0].Name)
}

func TestAssisted_AssistantFailureFallsBackToStatic(t *testing.T) {
	root := t.TempDir()
	client := fakeClient(t, `exit 1`)

	files := markdownSet("# A\n", "# B\n", "# C\n")

	e := NewEngine(root, client, newBuilder(t))
	suggestions := e.Assisted(context.Background(), files)
	assert.Equal(t, "docs-maintainer", suggestions[0].Name)
}

func TestAssisted_BodyFailureUsesGenericTemplate(t *testing.T) {
	root := t.TempDir()

	// Analysis succeeds, per-item generation fails.
	client := fakeClient(t, `input=$(cat)
case "$input" in
*"JSON array"*)
  echo '[{"name":"helper","description":"Helps","reason":"r"}]'
  ;;
*)
  exit 1
  ;;
esac`)

	e := NewEngine(root, client, newBuilder(t))
	suggestions := e.Assisted(context.Background(), nil)

	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0].Template, "You are helper")
}

func TestCollectProjectFiles_DepthAndAllowList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "package.json"), "{}")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignore me")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "x")
	writeFile(t, filepath.Join(root, "a", "b", "c", "d", "deep.go"), "package d\n")

	e := NewEngine(root, nil, newBuilder(t))
	paths := e.collectProjectFiles(context.Background())

	assert.Contains(t, paths, "main.go")
	assert.Contains(t, paths, "package.json")
	assert.NotContains(t, paths, "notes.txt")
	for _, p := range paths {
		assert.NotContains(t, p, "node_modules")
		assert.NotContains(t, p, "deep.go")
	}
}

func TestKebabCase(t *testing.T) {
	assert.Equal(t, "go-helper", kebabCase("Go Helper"))
	assert.Equal(t, "api-v2-expert", kebabCase("  API v2 Expert!  "))
	assert.Equal(t, "already-kebab", kebabCase("already-kebab"))
	assert.Empty(t, kebabCase("!!!"))
}

func TestMaterialize(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "agents")
	s := Suggestion{Name: "helper", Template: "---\nname: helper\n---\n\nBody.\n"}

	path, err := Materialize(dir, s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "helper.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: helper")

	_, err = Materialize(dir, s)
	assert.Error(t, err)
}
