package assistant

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/randalmurphal/victoruno/pkg/config"
	"github.com/randalmurphal/victoruno/pkg/flowgraph"
	"github.com/randalmurphal/victoruno/pkg/search"
)

// Node IDs of the assistant graph.
const (
	NodeProcessInput     = "process_input"
	NodeHandleDocuments  = "handle_documents"
	NodeWebResearch      = "web_research"
	NodeGenerateResponse = "generate_response"
)

// researchResultLimit is how many hits web_research feeds the model.
const researchResultLimit = 3

// nodes holds what the node bodies need. The ports are shared by every run
// and never mutated.
type nodes struct {
	agentName     string
	model         LanguageModel
	search        SearchCapability
	queryStrategy string
	inst          instruments
}

func (n *nodes) processInput(_ flowgraph.Context, s ConversationState) (ConversationState, error) {
	if last, ok := s.LastMessage(); ok {
		s.CurrentTask = last.Content
	}
	return s, nil
}

// handleDocuments only acknowledges the request; ingestion itself goes
// through Agent.ProcessDocument.
func (n *nodes) handleDocuments(ctx flowgraph.Context, s ConversationState) (ConversationState, error) {
	ctx.Logger().Debug("handling documents")
	s.Context = cloneContext(s.Context)
	s.Context["document_processed"] = true
	return s, nil
}

func (n *nodes) webResearch(ctx flowgraph.Context, s ConversationState) (ConversationState, error) {
	last, ok := s.LastMessage()
	if !ok {
		return s, nil
	}
	query := extractQuery(last.Content, n.queryStrategy)
	ctx.Logger().Debug("performing web research", "query", query)

	var results []search.Result
	err := n.inst.observe(ctx, "search", func(ctx context.Context) error {
		var err error
		results, err = n.search.Search(ctx, query, researchResultLimit)
		return err
	})
	if err != nil {
		s.WebContent = "Web research encountered an error: " + err.Error()
		return s, nil
	}

	var sb strings.Builder
	sb.WriteString("Web search results:\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n   Description: %s\n\n", i+1, r.Title, r.URL, r.Description)
	}
	s.WebContent = sb.String()
	return s, nil
}

// generateResponse always appends exactly one assistant message.
func (n *nodes) generateResponse(ctx flowgraph.Context, s ConversationState) (ConversationState, error) {
	reply, err := n.reply(ctx, s)
	if err != nil {
		reply = "I apologize, but I encountered an error: " + err.Error()
	}
	s.Messages = append(s.Messages, AssistantMessage(reply))
	return s, nil
}

func (n *nodes) reply(ctx flowgraph.Context, s ConversationState) (string, error) {
	preamble, err := buildSystemPrompt(n.agentName, s)
	if err != nil {
		return "", fmt.Errorf("build system prompt: %w", err)
	}

	prompt := make([]Message, 0, len(s.Messages)+1)
	prompt = append(prompt, SystemMessage(preamble))
	prompt = append(prompt, s.Messages...)

	var reply string
	err = n.inst.observe(ctx, "model", func(ctx context.Context) error {
		var err error
		reply, err = n.model.Generate(ctx, prompt)
		return err
	})
	return reply, err
}

var researchWords = regexp.MustCompile(`(?i)\b(?:re)?search\b`)

// extractQuery turns a research request into a search query. The literal
// strategy strips "search" and then "research", so "researching" becomes
// "reing"; the words strategy removes them only as whole words.
func extractQuery(message, strategy string) string {
	if strategy == config.QueryWords {
		return strings.Join(strings.Fields(researchWords.ReplaceAllString(message, " ")), " ")
	}
	q := strings.ReplaceAll(message, "search", "")
	q = strings.ReplaceAll(q, "research", "")
	return strings.TrimSpace(q)
}

func cloneContext(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
