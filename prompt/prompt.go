// Package prompt builds the grounded message pair sent to the
// generation model and sanitizes everything that crosses into it.
package prompt

import (
	"fmt"
	"strings"

	"github.com/clearpath/clearpath/llm/models"
	"github.com/clearpath/clearpath/retriever"
)

// SystemPrompt is fixed; the refusal sentence is what the evaluator's
// refusal check expects to see on insufficient context.
const SystemPrompt = `You are Clearpath Assistant, a helpful customer support agent for Clearpath.
You answer questions based ONLY on the provided context. If the context does not contain
enough information to answer the question, say "I don't have enough information in our
documentation to answer that question."

Do not make up information. Do not reference external sources. Be concise and helpful.`

// userPromptTemplate frames the context block and the question.
const userPromptTemplate = `Context:
---
%s
---

Question: %s

Answer:`

// Assemble builds the two-message sequence for the chat API. Each chunk
// is sanitized and cited with its source file and page.
func Assemble(query string, chunks []retriever.RetrievedChunk) []*models.Message {
	var context strings.Builder
	for _, chunk := range chunks {
		fmt.Fprintf(&context, "[Source: %s, Page %d]\n", chunk.SourceFile, chunk.PageNumber)
		context.WriteString(SanitizeChunk(chunk.Text))
		context.WriteString("\n\n")
	}

	user := fmt.Sprintf(userPromptTemplate, strings.TrimSpace(context.String()), query)

	return []*models.Message{
		{Role: models.SystemRole, Content: SystemPrompt},
		{Role: models.UserRole, Content: user},
	}
}
