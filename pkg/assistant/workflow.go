package assistant

import (
	"fmt"

	"github.com/randalmurphal/victoruno/pkg/flowgraph"
)

// maxTurnLength is the longest path through the graph: process_input, one
// side-work node, generate_response.
const maxTurnLength = 3

// buildWorkflow compiles the assistant graph.
func buildWorkflow(n *nodes) (*flowgraph.CompiledGraph[ConversationState], error) {
	g := flowgraph.NewGraph[ConversationState]().
		AddNode(NodeProcessInput, n.processInput).
		AddNode(NodeHandleDocuments, n.handleDocuments).
		AddNode(NodeWebResearch, n.webResearch).
		AddNode(NodeGenerateResponse, n.generateResponse).
		SetEntry(NodeProcessInput).
		AddBranch(NodeProcessInput, routeTurn, map[string]string{
			RouteDocuments:   NodeHandleDocuments,
			RouteWebResearch: NodeWebResearch,
			RouteChat:        NodeGenerateResponse,
		}).
		AddEdge(NodeHandleDocuments, NodeGenerateResponse).
		AddEdge(NodeWebResearch, NodeGenerateResponse).
		AddEdge(NodeGenerateResponse, flowgraph.END)

	compiled, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile assistant workflow: %w", err)
	}
	if l := compiled.MaxPathLength(); l != maxTurnLength {
		return nil, fmt.Errorf("assistant workflow: longest path is %d nodes, want %d", l, maxTurnLength)
	}
	return compiled, nil
}
