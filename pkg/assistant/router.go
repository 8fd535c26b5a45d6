package assistant

import (
	"strings"

	"github.com/randalmurphal/victoruno/pkg/flowgraph"
)

// Route keys produced by Route.
const (
	RouteDocuments   = "documents"
	RouteWebResearch = "web_research"
	RouteChat        = "chat"
)

// Checked in order; the first group with a hit wins.
var (
	documentKeywords = []string{"document", "file", "upload"}
	researchKeywords = []string{"search", "research", "browse", "web"}
)

// Route classifies a turn by substring matches on the lowercased last
// message. Document keywords take precedence over research keywords, and
// partial words count ("webinar" routes to web research). A state without
// messages routes to chat.
func Route(s ConversationState) string {
	last, ok := s.LastMessage()
	if !ok {
		return RouteChat
	}
	text := strings.ToLower(last.Content)

	switch {
	case containsAny(text, documentKeywords):
		return RouteDocuments
	case containsAny(text, researchKeywords):
		return RouteWebResearch
	default:
		return RouteChat
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func routeTurn(_ flowgraph.Context, s ConversationState) string {
	return Route(s)
}
