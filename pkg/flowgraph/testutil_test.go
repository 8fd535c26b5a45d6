package flowgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// State records the path a run took.
type State struct {
	Input    string
	Route    string
	Progress []string
	Count    int
}

func increment(_ Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

func passthrough[S any](_ Context, s S) (S, error) {
	return s, nil
}

// track appends the node name to the state's progress.
func track(name string) NodeFunc[State] {
	return func(_ Context, s State) (State, error) {
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

func failWith(err error) NodeFunc[State] {
	return func(_ Context, s State) (State, error) {
		return s, err
	}
}

func routeByField(_ Context, s State) string {
	return s.Route
}

func testCtx() Context {
	return NewContext(context.Background())
}

// routedGraph is classify -> {docs, web, chat} where docs and web continue
// to respond, and chat ends the run directly after answering.
func routedGraph(t *testing.T) *CompiledGraph[State] {
	t.Helper()
	compiled, err := NewGraph[State]().
		AddNode("classify", track("classify")).
		AddNode("docs", track("docs")).
		AddNode("web", track("web")).
		AddNode("respond", track("respond")).
		AddBranch("classify", routeByField, map[string]string{
			"documents": "docs",
			"web":       "web",
			"chat":      "respond",
		}).
		AddEdge("docs", "respond").
		AddEdge("web", "respond").
		AddEdge("respond", END).
		SetEntry("classify").
		Compile()
	require.NoError(t, err)
	return compiled
}
