package frontmatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_SynthesizesMissingHeader(t *testing.T) {
	body := "You review pull requests carefully.\n"
	out := Normalize(body, "reviewer", AgentFile)

	assert.True(t, strings.HasPrefix(out, "---\n"))
	assert.Contains(t, out, "name: reviewer\n")
	assert.Contains(t, out, "description: Custom agent reviewer\n")
	assert.Contains(t, out, "model: sonnet\n")
	// Zero original content lost.
	assert.Contains(t, out, body)
}

func TestNormalize_DropsUnsupportedKeys(t *testing.T) {
	content := `---
name: helper
description: Helps out
tools:
  - Bash
  - Read
allowed-tools: Bash(git *)
model: sonnet
---

Body text.
`
	out := Normalize(content, "helper", AgentFile)

	assert.NotContains(t, out, "tools")
	assert.NotContains(t, out, "Bash")
	assert.Contains(t, out, "name: helper\n")
	assert.Contains(t, out, "description: Helps out\n")
	assert.Contains(t, out, "model: sonnet\n")
	assert.Contains(t, out, "Body text.")
}

func TestNormalize_StripsUnneededQuotes(t *testing.T) {
	content := "---\nname: \"helper\"\ndescription: \"A plain value\"\nmodel: \"sonnet\"\n---\n\nBody.\n"
	out := Normalize(content, "helper", AgentFile)

	assert.Contains(t, out, "name: helper\n")
	assert.Contains(t, out, "description: A plain value\n")
	assert.Contains(t, out, "model: sonnet\n")
}

func TestNormalize_PreservesNecessaryQuotes(t *testing.T) {
	content := "---\nname: helper\ndescription: \"Handles: tricky, values\"\nmodel: sonnet\n---\n\nBody.\n"
	out := Normalize(content, "helper", AgentFile)

	assert.Contains(t, out, `description: "Handles: tricky, values"`)
}

func TestNormalize_QuotesLeadingSpecialCharacters(t *testing.T) {
	content := "---\nname: helper\ndescription: \"@mentions need quoting\"\nmodel: sonnet\n---\n"
	out := Normalize(content, "helper", AgentFile)

	assert.Contains(t, out, `description: "@mentions need quoting"`)
}

func TestNormalize_AppendsMissingKeys(t *testing.T) {
	content := "---\ndescription: Only a description\n---\n\nBody.\n"
	out := Normalize(content, "my-agent.md", AgentFile)

	lines := strings.Split(out, "\n")
	// name is prepended first, model appended at the end of the block.
	assert.Equal(t, "---", lines[0])
	assert.Equal(t, "name: my-agent", lines[1])
	assert.Equal(t, "description: Only a description", lines[2])
	assert.Equal(t, "model: sonnet", lines[3])
	assert.Equal(t, "---", lines[4])
}

func TestNormalize_CommandFilesOmitModel(t *testing.T) {
	content := "---\nname: deploy\n---\n\nRun the deploy.\n"
	out := Normalize(content, "deploy", CommandFile)

	assert.NotContains(t, out, "model:")
	assert.Contains(t, out, "name: deploy\n")
	assert.Contains(t, out, "description: Custom command deploy\n")
}

func TestNormalize_CommandFilesKeepExistingModel(t *testing.T) {
	content := "---\nname: deploy\ndescription: Deploys\nmodel: opus\n---\n"
	out := Normalize(content, "deploy", CommandFile)

	assert.Contains(t, out, "model: opus\n")
}

func TestNormalize_Idempotent(t *testing.T) {
	cases := []string{
		"No header at all, just a body.\n",
		"---\nname: a\ntools: [Bash]\n---\n\nBody.\n",
		"---\nname: \"quoted\"\ndescription: \"Has: colon\"\n---\nBody.\n",
		"---\ndescription: ' padded '\n---\n\nBody.\n",
	}

	for _, content := range cases {
		once := Normalize(content, "sample", AgentFile)
		twice := Normalize(once, "sample", AgentFile)
		assert.Equal(t, once, twice, "normalization must be idempotent for %q", content)
	}
}

func TestNormalize_DuplicateKeysCollapse(t *testing.T) {
	content := "---\nname: first\nname: second\ndescription: d\nmodel: sonnet\n---\n"
	out := Normalize(content, "x", AgentFile)

	assert.Equal(t, 1, strings.Count(out, "name:"))
	assert.Contains(t, out, "name: first\n")
}

func TestNormalize_BodyUntouched(t *testing.T) {
	body := "\n# Instructions\n\nDo the    thing and keep   spacing.\n"
	content := "---\nname: a\ndescription: d\nmodel: sonnet\n---" + body
	out := Normalize(content, "a", AgentFile)

	require.True(t, strings.HasSuffix(out, body))
}

func TestParse_NoBlock(t *testing.T) {
	block, body, ok := Parse("just text")
	assert.False(t, ok)
	assert.Nil(t, block)
	assert.Equal(t, "just text", body)
}

func TestParse_UnclosedBlockTreatedAsBody(t *testing.T) {
	content := "---\nname: a\nno closing delimiter\n"
	_, body, ok := Parse(content)
	assert.False(t, ok)
	assert.Equal(t, content, body)
}

func TestParse_DroppedBucket(t *testing.T) {
	content := "---\nname: a\ntools: x\npermissions: y\n---\nBody"
	block, _, ok := Parse(content)
	require.True(t, ok)
	assert.Equal(t, []string{"tools", "permissions"}, block.Dropped())
}

func TestBlock_SetAndGet(t *testing.T) {
	block, _, ok := Parse("---\nname: a\n---\n")
	require.True(t, ok)

	v, found := block.Get("name")
	assert.True(t, found)
	assert.Equal(t, "a", v)

	block.Set("name", "b")
	v, _ = block.Get("name")
	assert.Equal(t, "b", v)

	block.Set("description", "added")
	v, found = block.Get("description")
	assert.True(t, found)
	assert.Equal(t, "added", v)
}
