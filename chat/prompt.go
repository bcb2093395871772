package chat

import (
	"strings"

	"github.com/poiesic/docchat/core"
)

const (
	promptInstruction = "Answer the question based on the following document context:"
	contextDelimiter  = "\n\n"
)

// ComposePrompt builds the grounded prompt sent to the completion service.
// Retrieved chunks are concatenated in rank order; with no matches the
// context section is empty and the model answers from the question alone.
func ComposePrompt(question string, matches []core.ChunkMatch) string {
	var prompt strings.Builder

	prompt.WriteString(promptInstruction)
	prompt.WriteString(contextDelimiter)

	for i, match := range matches {
		if i > 0 {
			prompt.WriteString(contextDelimiter)
		}
		prompt.WriteString(match.Text)
	}

	prompt.WriteString(contextDelimiter)
	prompt.WriteString("Question: ")
	prompt.WriteString(question)

	return prompt.String()
}
