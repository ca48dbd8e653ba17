// Package frontmatter parses and rewrites the YAML header block of agent and
// command definition files into a canonical, tool-compatible form. The block
// is modeled as an explicit key-ordered structure with a bucket for dropped
// unsupported keys, and the serializer guarantees that normalizing twice
// yields the same text as normalizing once.
package frontmatter

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes agent definitions (which require a model) from command
// definitions.
type Kind int

const (
	// AgentFile requires name, description, and model keys.
	AgentFile Kind = iota
	// CommandFile requires name and description keys.
	CommandFile
)

// DefaultModel is the model written into synthesized or completed agent
// headers.
const DefaultModel = "sonnet"

const delimiter = "---"

// supportedKeys are the only header keys that survive normalization.
var supportedKeys = map[string]bool{
	"name":        true,
	"description": true,
	"model":       true,
}

type entry struct {
	key   string
	value string
}

// Block is the ordered header block of a definition file.
type Block struct {
	entries []entry
	dropped []string
}

// Get returns the value for a key and whether it is present.
func (b *Block) Get(key string) (string, bool) {
	for _, e := range b.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Set replaces the value of key, or appends it if absent.
func (b *Block) Set(key, value string) {
	for i, e := range b.entries {
		if e.key == key {
			b.entries[i].value = value
			return
		}
	}
	b.entries = append(b.entries, entry{key, value})
}

// Dropped returns the unsupported keys removed during parsing, in document
// order.
func (b *Block) Dropped() []string {
	return b.dropped
}

// Render serializes the block including delimiters. Scalars are left
// unquoted unless quoting is required to keep the YAML valid.
func (b *Block) Render() string {
	var sb strings.Builder
	sb.WriteString(delimiter + "\n")
	for _, e := range b.entries {
		sb.WriteString(e.key + ": " + renderScalar(e.value) + "\n")
	}
	sb.WriteString(delimiter + "\n")
	return sb.String()
}

// needsQuoting reports whether a scalar would break (or change meaning) if
// written unquoted: YAML-significant characters anywhere, a YAML-special
// leading character, or whitespace padding.
func needsQuoting(v string) bool {
	if v == "" {
		return false
	}
	if strings.TrimSpace(v) != v {
		return true
	}
	switch v[0] {
	case '@', '`', '"', '\'':
		return true
	}
	return strings.ContainsAny(v, ":#[]{}|<>&*!?,")
}

func renderScalar(v string) string {
	if needsQuoting(v) {
		return strconv.Quote(v)
	}
	return v
}

// Parse extracts the header block and body from content. ok is false when no
// complete delimited block is present, in which case body is the full
// content. Unsupported keys and duplicate supported keys are dropped.
func Parse(content string) (*Block, string, bool) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return nil, content, false
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, content, false
	}

	blockText := strings.Join(lines[1:end], "\n")
	body := strings.Join(lines[end+1:], "\n")

	block := parseBlock(blockText)
	return block, body, true
}

// parseBlock reads the block line-by-line into the ordered structure. A
// whole-block YAML decode would reject exactly the malformed headers this
// normalizer exists to fix, so only individual scalars go through the YAML
// decoder. Unsupported keys, duplicate supported keys, and non-mapping lines
// (list items, continuations) land in the dropped bucket.
func parseBlock(text string) *Block {
	block := &Block{}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			// list item or continuation of a dropped multi-line value
			continue
		}

		rawKey, rest, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(rawKey))
		if !supportedKeys[key] {
			block.dropped = append(block.dropped, strings.TrimSpace(rawKey))
			continue
		}
		if _, exists := block.Get(key); exists {
			block.dropped = append(block.dropped, strings.TrimSpace(rawKey))
			continue
		}
		block.entries = append(block.entries, entry{key, unquoteScalar(strings.TrimSpace(rest))})
	}
	return block
}

// unquoteScalar decodes a quoted YAML scalar to its plain value. Unquoted
// values are returned as-is.
func unquoteScalar(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') {
		var s string
		if err := yaml.Unmarshal([]byte(v), &s); err == nil {
			return s
		}
	}
	return v
}

// Normalize returns content whose header block is well-formed and minimal.
// baseName (without extension) is the fallback identifier. The body is left
// untouched, and the operation is idempotent.
func Normalize(content, baseName string, kind Kind) string {
	baseName = strings.TrimSuffix(baseName, ".md")

	block, body, found := Parse(content)
	if !found {
		block = &Block{}
		body = content
		completeBlock(block, baseName, kind)
		return block.Render() + "\n" + body
	}

	completeBlock(block, baseName, kind)
	return block.Render() + body
}

// completeBlock fills in the required keys: a missing name is prepended,
// missing description and (for agents) model are appended.
func completeBlock(b *Block, baseName string, kind Kind) {
	if _, ok := b.Get("name"); !ok {
		b.entries = append([]entry{{"name", baseName}}, b.entries...)
	}
	if _, ok := b.Get("description"); !ok {
		noun := "agent"
		if kind == CommandFile {
			noun = "command"
		}
		b.entries = append(b.entries, entry{"description", "Custom " + noun + " " + baseName})
	}
	if kind == AgentFile {
		if _, ok := b.Get("model"); !ok {
			b.entries = append(b.entries, entry{"model", DefaultModel})
		}
	}
}
