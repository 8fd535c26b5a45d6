package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"plain chat", "hello there", RouteChat},
		{"document keyword", "summarize this document", RouteDocuments},
		{"file keyword", "I have a FILE for you", RouteDocuments},
		{"upload keyword", "can I upload something", RouteDocuments},
		{"search keyword", "search for golang", RouteWebResearch},
		{"research keyword", "research quantum computing", RouteWebResearch},
		{"browse keyword", "browse the news", RouteWebResearch},
		{"partial web match", "tell me about the webinar", RouteWebResearch},
		{"documents win over research", "research this document", RouteDocuments},
		{"partial file match", "update my profile", RouteDocuments},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(NewState(tt.message)))
		})
	}
}

func TestRoute_LastMessageOnly(t *testing.T) {
	s := NewState("search the web")
	s.Messages = append(s.Messages, AssistantMessage("done"), UserMessage("thanks"))
	assert.Equal(t, RouteChat, Route(s))
}

func TestRoute_EmptyState(t *testing.T) {
	assert.Equal(t, RouteChat, Route(ConversationState{}))
}

func TestRoute_Deterministic(t *testing.T) {
	s := NewState("please research the document")
	first := Route(s)
	for range 10 {
		assert.Equal(t, first, Route(s))
	}
}
