package assistant

import (
	"github.com/randalmurphal/victoruno/pkg/flowgraph/template"
)

const systemPromptText = `
You are ${agent_name}, a personal AI assistant designed to help with research, development, and optimization tasks.

Your capabilities include:
- Answering questions and providing explanations
- Analyzing documents and extracting insights
- Conducting web research
- Helping with code and development tasks
- Optimizing workflows and processes

Context from documents: ${documents}
Web content: ${web_content}

Be helpful, accurate, and concise in your responses.
`

var systemPrompt = template.Parse(systemPromptText,
	template.WithDollarStyle(false),
	template.WithMissingAction(template.MissingError))

// buildSystemPrompt renders the preamble for one turn. Absent web content
// renders as "None".
func buildSystemPrompt(agentName string, s ConversationState) (string, error) {
	web := s.WebContent
	if web == "" {
		web = "None"
	}
	docs := s.Documents
	if docs == nil {
		docs = []string{}
	}
	return systemPrompt.Execute(map[string]any{
		"agent_name":  agentName,
		"documents":   docs,
		"web_content": web,
	})
}
