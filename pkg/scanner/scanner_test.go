package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan_CollectsMarkdownOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# Readme\n\nProject docs.\n")
	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "docs", "guide.md"), "# Guide\n\nHow to use.\n")

	s, err := New()
	require.NoError(t, err)

	files := s.Scan(context.Background(), root)
	require.Len(t, files, 2)

	names := []string{files[0].Name, files[1].Name}
	assert.Contains(t, names, "README.md")
	assert.Contains(t, names, "guide.md")
}

func TestScan_SkipsListedAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "README.md"), "# Dep\n")
	writeFile(t, filepath.Join(root, ".github", "PULL_REQUEST.md"), "# PR\n")
	writeFile(t, filepath.Join(root, "docs", "index.md"), "# Docs\n")

	s, err := New()
	require.NoError(t, err)

	files := s.Scan(context.Background(), root)
	require.Len(t, files, 1)
	assert.Equal(t, "index.md", files[0].Name)
}

func TestScan_RespectsDepthCap(t *testing.T) {
	root := t.TempDir()
	shallow := filepath.Join(root, "a", "shallow.md")
	deep := filepath.Join(root, "a", "b", "c", "deep.md")
	writeFile(t, shallow, "# Shallow\n")
	writeFile(t, deep, "# Deep\n")

	s, err := New(WithMaxDepth(2))
	require.NoError(t, err)

	files := s.Scan(context.Background(), root)
	require.Len(t, files, 1)
	assert.Equal(t, "shallow.md", files[0].Name)

	for _, f := range files {
		rel, relErr := filepath.Rel(root, f.Path)
		require.NoError(t, relErr)
		assert.LessOrEqual(t, len(strings.Split(rel, string(filepath.Separator))), 2)
	}
}

func TestScan_MissingRootYieldsNothing(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	files := s.Scan(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Empty(t, files)
}

func TestNew_RejectsInvalidDepth(t *testing.T) {
	_, err := New(WithMaxDepth(0))
	assert.Error(t, err)
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Title", ExtractTitle("# Title\n\nBody.\n"))
	assert.Equal(t, "Second", ExtractTitle("intro text\n\n# Second\n"))
	assert.Empty(t, ExtractTitle("## Only H2\n\ntext\n"))
}

func TestExtractTitle_IgnoresFrontmatter(t *testing.T) {
	content := "---\nname: foo\n---\n\n# Real Title\n"
	assert.Equal(t, "Real Title", ExtractTitle(content))
}

func TestExtractDescription(t *testing.T) {
	content := "---\nfoo: bar\n---\n\n# Title\n\nHello world.\n"
	assert.Equal(t, "Hello world.", ExtractDescription(content))
}

func TestExtractDescription_Truncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	desc := ExtractDescription("# T\n\n" + long + "\n")
	assert.Len(t, desc, 200)
}

func TestExtractDescription_AllHeadings(t *testing.T) {
	assert.Empty(t, ExtractDescription("# One\n## Two\n\n### Three\n"))
}

func TestSkipSet_GlobPatterns(t *testing.T) {
	s := NewSkipSet([]string{"node_modules", "build*"})
	assert.True(t, s.Match("node_modules"))
	assert.True(t, s.Match("build-output"))
	assert.True(t, s.Match(".cache"))
	assert.False(t, s.Match("docs"))
}
