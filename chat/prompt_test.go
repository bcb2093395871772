package chat

import (
	"strings"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
)

func TestComposePrompt(t *testing.T) {
	matches := []core.ChunkMatch{
		{Ref: core.ChunkRef{Seq: 0}, Text: "Revenue grew by ten percent.", Score: 0.9},
		{Ref: core.ChunkRef{Seq: 3}, Text: "Costs stayed flat.", Score: 0.7},
	}

	prompt := ComposePrompt("How did revenue develop?", matches)

	assert.True(t, strings.HasPrefix(prompt, promptInstruction))
	assert.Contains(t, prompt, "Revenue grew by ten percent.")
	assert.Contains(t, prompt, "Costs stayed flat.")
	assert.True(t, strings.HasSuffix(prompt, "Question: How did revenue develop?"))

	// Context chunks appear in rank order.
	assert.Less(t,
		strings.Index(prompt, "Revenue grew"),
		strings.Index(prompt, "Costs stayed"))
}

func TestComposePrompt_NoMatches(t *testing.T) {
	prompt := ComposePrompt("What is this about?", nil)

	assert.True(t, strings.HasPrefix(prompt, promptInstruction))
	assert.True(t, strings.HasSuffix(prompt, "Question: What is this about?"))
}

func TestComposePrompt_Deterministic(t *testing.T) {
	matches := []core.ChunkMatch{
		{Ref: core.ChunkRef{Seq: 1}, Text: "chunk text", Score: 0.5},
	}
	assert.Equal(t,
		ComposePrompt("q", matches),
		ComposePrompt("q", matches))
}
