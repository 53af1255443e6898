package service

import (
	"fmt"
	"strings"
)

// reportPromptTemplate is the fixed prompt shape for report-question answers.
// The model is told to stay inside the supplied context rather than improvise.
const reportPromptTemplate = `Answer the question as precise as possible using the provided context. If the answer is
not contained in the context, say "answer not available in context."

Context: %s
Question: %s
Answer:
`

// FormatReportPrompt renders the report prompt for one question.
func FormatReportPrompt(context, question string) string {
	return fmt.Sprintf(reportPromptTemplate, context, question)
}

// chatSystemPrompt frames the assistant role for conversational queries over
// credit-analysis material.
const chatSystemPrompt = `You are a corporate-banking assistant. You receive the target company's credit
review material and help bank officers understand the customer quickly.

Rules:
1. Answer using the retrieved material and the material from the previous turn.
2. If the material cannot answer the question, say you are not sure and ask the
   user to describe the question in more detail or consult the report directly.
3. Use the prior conversation to continue the dialogue and resolve follow-ups.

Material:
%s`

// FormatChatPrompt renders the full chat prompt: system framing with the
// fused context, then the augmented user input.
func FormatChatPrompt(context, input string) string {
	return fmt.Sprintf(chatSystemPrompt, context) + "\n\n" + input
}

// FormatChatInput folds prior turns and the previous turn's retrieved passages
// around the new query so the model can resolve anaphora.
func FormatChatInput(history []string, lastContext []string, query string) string {
	var b strings.Builder

	b.WriteString("# Conversation so far\n")
	b.WriteString(strings.Join(history, "\n"))
	b.WriteString("\n\n# Material from the previous turn\n")
	b.WriteString(strings.Join(lastContext, "\n"))
	b.WriteString("\n\n# Question\n")
	b.WriteString(query)

	return b.String()
}
