package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpane/agentpane/pkg/frontmatter"
)

func TestParseKind(t *testing.T) {
	kind, err := parseKind("agent")
	require.NoError(t, err)
	assert.Equal(t, frontmatter.AgentFile, kind)

	kind, err = parseKind("command")
	require.NoError(t, err)
	assert.Equal(t, frontmatter.CommandFile, kind)

	_, err = parseKind("widget")
	assert.Error(t, err)
}

func TestResolveDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/ws", ".claude/agents"), resolveDir("/ws", ".claude/agents"))
	assert.Equal(t, "/abs/agents", resolveDir("/ws", "/abs/agents"))
}
