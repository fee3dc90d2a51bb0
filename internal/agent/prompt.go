package agent

import (
	"fmt"
	"strings"

	"patentrag/internal/llm"
	"patentrag/internal/tool"
)

// InstructionTemplate fixes the shape of the final answer. The user's query is appended to it.
const InstructionTemplate = "Return your FINAL answer in markdown format. Include an overall summary and a list of relevant\n" +
	"or related patents to the user's query.\n" +
	"For each patent, include the patent number (or publication number if not available),\n" +
	"the title, and a description containing a brief summary and its relevance to the user's query.\n" +
	"This can include aspects of the previous conversation history.\n\n" +
	"If there are interesting relevant details found in the patents you discover,\n" +
	"investigate further by asking more questions to tools in order to find more relevant patents.\n\n" +
	"Example:\n" +
	"```\n" +
	"# Summary\n" +
	"This is where the summary should go. Include details on the related patent landscape\n" +
	"and make recommendations for which patents the user might want to look at first.\n\n" +
	"# Patents\n" +
	"## US1234567 - THIS IS THE PATENT TITLE\n" +
	"This is the patent summary.\n\n" +
	"## US643216 - THIS IS THE SECOND PATENT TITLE\n" +
	"This is the second patent's summary.\n" +
	"```\n\n"

const replyFormat = `Respond with a single JSON object and nothing else.
To call a tool:
{"thought": "<your reasoning>", "action": "<tool name>", "action_input": "<plain text input for the tool>"}
To finish:
{"thought": "<your reasoning>", "answer": "<the final markdown answer>"}`

const synthesisInstruction = "You have run out of research steps. Using only the findings below, write the FINAL answer now. " +
	"Do not call tools and do not ask follow-up questions."

func systemPrompt(tools []tool.Descriptor) string {
	var b strings.Builder
	b.WriteString("You are a patent research assistant. You answer questions about patents by consulting the tools below, ")
	b.WriteString("which search the organisation's internal patent documents.\n\nTools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString("\n")
	b.WriteString(replyFormat)
	return b.String()
}

// taskMessage is the opening user message: instructions, prior exchanges, then the query.
func taskMessage(query string, history []Exchange) string {
	var b strings.Builder
	b.WriteString(InstructionTemplate)
	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, ex := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n\n", strings.TrimSpace(ex.Query), strings.TrimSpace(ex.Answer))
		}
		b.WriteString("Current question: ")
	}
	b.WriteString(query)
	return b.String()
}

// thinkingPrompt renders the transcript so far as an alternating conversation.
func thinkingPrompt(query string, history []Exchange, tools []tool.Descriptor, transcript *Transcript) *llm.Prompt {
	msgs := []llm.Message{{Role: llm.RoleUser, Content: taskMessage(query, history)}}
	for _, turn := range transcript.Turns {
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: turn.Reply})
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "Observation: " + turn.Observation})
	}
	return &llm.Prompt{SystemPrompt: systemPrompt(tools), Messages: msgs}
}

func synthesisPrompt(query string, history []Exchange, findings []string) *llm.Prompt {
	var b strings.Builder
	b.WriteString(taskMessage(query, history))
	b.WriteString("\n\nFindings:\n")
	for i, f := range findings {
		fmt.Fprintf(&b, "--- finding %d ---\n%s\n", i+1, f)
	}
	return llm.UserPrompt(synthesisInstruction, b.String())
}
