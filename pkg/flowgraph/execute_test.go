package flowgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Linear(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		AddNode("inc3", increment).
		AddEdge("inc1", "inc2").
		AddEdge("inc2", "inc3").
		AddEdge("inc3", END).
		SetEntry("inc1").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{Value: 10})
	require.NoError(t, err)
	assert.Equal(t, 13, result.Value)
}

func TestRun_BranchTakesExactlyOneRoute(t *testing.T) {
	compiled := routedGraph(t)

	tests := []struct {
		route string
		want  []string
	}{
		{route: "documents", want: []string{"classify", "docs", "respond"}},
		{route: "web", want: []string{"classify", "web", "respond"}},
		{route: "chat", want: []string{"classify", "respond"}},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			result, err := compiled.Run(testCtx(), State{Route: tt.route})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Progress)
		})
	}
}

func TestRun_RouterErrors(t *testing.T) {
	compiled := routedGraph(t)

	t.Run("empty key", func(t *testing.T) {
		result, err := compiled.Run(testCtx(), State{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRouterResult)

		var routerErr *RouterError
		require.ErrorAs(t, err, &routerErr)
		assert.Equal(t, "classify", routerErr.FromNode)
		assert.Equal(t, []string{"classify"}, result.Progress)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := compiled.Run(testCtx(), State{Route: "shopping"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownRoute)
		assert.Contains(t, err.Error(), `"shopping"`)
	})
}

func TestRun_RouterSeesNodeContext(t *testing.T) {
	var seen string
	compiled, err := NewGraph[State]().
		AddNode("decide", track("decide")).
		AddBranch("decide", func(ctx Context, _ State) string {
			seen = ctx.NodeID()
			return "done"
		}, map[string]string{"done": END}).
		SetEntry("decide").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{})
	require.NoError(t, err)
	assert.Equal(t, "decide", seen)
}

func TestRun_NodeError(t *testing.T) {
	errBoom := errors.New("boom")
	compiled, err := NewGraph[State]().
		AddNode("ok", track("ok")).
		AddNode("fail", failWith(errBoom)).
		AddNode("never", track("never")).
		AddEdge("ok", "fail").
		AddEdge("fail", "never").
		AddEdge("never", END).
		SetEntry("ok").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "fail", nodeErr.NodeID)
	assert.Equal(t, "execute", nodeErr.Op)
	assert.Equal(t, "node fail: execute: boom", err.Error())
	assert.Equal(t, []string{"ok"}, result.Progress)
}

func TestRun_PanicIsRecovered(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("ok", track("ok")).
		AddNode("explode", func(Context, State) (State, error) {
			panic("kaboom")
		}).
		AddEdge("ok", "explode").
		AddEdge("explode", END).
		SetEntry("ok").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})
	require.Error(t, err)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "explode", panicErr.NodeID)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, []string{"ok"}, result.Progress)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	compiled, err := NewGraph[State]().
		AddNode("first", func(_ Context, s State) (State, error) {
			s.Progress = append(s.Progress, "first")
			cancel()
			return s, nil
		}).
		AddNode("second", track("second")).
		AddEdge("first", "second").
		AddEdge("second", END).
		SetEntry("first").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(NewContext(ctx), State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "second", cancelErr.NodeID)
	assert.Equal(t, []string{"first"}, result.Progress)
}

func TestRun_MaxIterations(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("loop", func(_ Context, s State) (State, error) {
			s.Count++
			return s, nil
		}).
		AddBranch("loop", func(_ Context, s State) string {
			if s.Count >= 100 {
				return "done"
			}
			return "again"
		}, map[string]string{"again": "loop", "done": END}).
		SetEntry("loop").
		Compile()
	require.NoError(t, err)

	t.Run("within limit", func(t *testing.T) {
		result, err := compiled.Run(testCtx(), State{})
		require.NoError(t, err)
		assert.Equal(t, 100, result.Count)
	})

	t.Run("exceeded", func(t *testing.T) {
		result, err := compiled.Run(testCtx(), State{}, WithMaxIterations(5))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMaxIterations)

		var maxErr *MaxIterationsError
		require.ErrorAs(t, err, &maxErr)
		assert.Equal(t, 5, maxErr.Max)
		assert.Equal(t, "loop", maxErr.LastNodeID)
		assert.Equal(t, 5, result.Count)
	})
}

func TestRun_NilContext(t *testing.T) {
	compiled := routedGraph(t)
	//nolint:staticcheck // nil is the case under test
	_, err := compiled.Run(nil, State{Route: "chat"})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRun_NodeContext(t *testing.T) {
	var runID, nodeID string
	compiled, err := NewGraph[State]().
		AddNode("inspect", func(ctx Context, s State) (State, error) {
			runID = ctx.RunID()
			nodeID = ctx.NodeID()
			assert.NotNil(t, ctx.Logger())
			return s, nil
		}).
		AddEdge("inspect", END).
		SetEntry("inspect").
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(), WithContextRunID("run-42"))
	_, err = compiled.Run(ctx, State{})
	require.NoError(t, err)
	assert.Equal(t, "run-42", runID)
	assert.Equal(t, "inspect", nodeID)
}

func TestRun_ConcurrentRunsShareCompiledGraph(t *testing.T) {
	compiled := routedGraph(t)
	routes := []string{"documents", "web", "chat"}

	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		route := routes[i%len(routes)]
		go func() {
			result, err := compiled.Run(testCtx(), State{Route: route})
			if err == nil && result.Progress[len(result.Progress)-1] != "respond" {
				err = errors.New("run did not finish at respond")
			}
			errs <- err
		}()
	}
	for i := 0; i < 30; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestReplaceState(t *testing.T) {
	got := ReplaceState(State{Input: "old"}, State{Input: "new"})
	assert.Equal(t, "new", got.Input)
}
