package checkpoint_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/randalmurphal/victoruno/pkg/flowgraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) checkpoint.Store

func stores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) checkpoint.Store {
			return checkpoint.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) checkpoint.Store {
			s, err := checkpoint.NewSQLiteStore(filepath.Join(t.TempDir(), "threads.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_Contract(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Run("save and load", func(t *testing.T) {
				store := factory(t)
				defer store.Close()

				require.NoError(t, store.Save("thread-1", "route", []byte(`{"k":"v"}`)))

				got, err := store.Load("thread-1", "route")
				require.NoError(t, err)
				assert.Equal(t, []byte(`{"k":"v"}`), got)
			})

			t.Run("load missing", func(t *testing.T) {
				store := factory(t)
				defer store.Close()

				_, err := store.Load("nobody", "route")
				assert.ErrorIs(t, err, checkpoint.ErrNotFound)
			})

			t.Run("overwrite moves node to tail", func(t *testing.T) {
				store := factory(t)
				defer store.Close()

				require.NoError(t, store.Save("thread-1", "a", []byte("1")))
				require.NoError(t, store.Save("thread-1", "b", []byte("2")))
				require.NoError(t, store.Save("thread-1", "a", []byte("3")))

				infos, err := store.List("thread-1")
				require.NoError(t, err)
				require.Len(t, infos, 2)
				assert.Equal(t, "b", infos[0].NodeID)
				assert.Equal(t, "a", infos[1].NodeID)
				assert.Greater(t, infos[1].Sequence, infos[0].Sequence)

				got, err := store.Load("thread-1", "a")
				require.NoError(t, err)
				assert.Equal(t, []byte("3"), got)
			})

			t.Run("list empty thread", func(t *testing.T) {
				store := factory(t)
				defer store.Close()

				infos, err := store.List("nobody")
				require.NoError(t, err)
				assert.Empty(t, infos)
			})

			t.Run("threads are isolated", func(t *testing.T) {
				store := factory(t)
				defer store.Close()

				require.NoError(t, store.Save("alice", "n", []byte("a")))
				require.NoError(t, store.Save("bob", "n", []byte("b")))
				require.NoError(t, store.DeleteThread("alice"))

				_, err := store.Load("alice", "n")
				assert.ErrorIs(t, err, checkpoint.ErrNotFound)

				got, err := store.Load("bob", "n")
				require.NoError(t, err)
				assert.Equal(t, []byte("b"), got)
			})

			t.Run("delete single checkpoint", func(t *testing.T) {
				store := factory(t)
				defer store.Close()

				require.NoError(t, store.Save("t", "a", []byte("a")))
				require.NoError(t, store.Save("t", "b", []byte("b")))
				require.NoError(t, store.Delete("t", "a"))
				require.NoError(t, store.Delete("t", "missing"))

				infos, err := store.List("t")
				require.NoError(t, err)
				require.Len(t, infos, 1)
				assert.Equal(t, "b", infos[0].NodeID)
				assert.Equal(t, "t", infos[0].ThreadID)
				assert.Equal(t, int64(1), infos[0].Size)
			})

			t.Run("closed store rejects calls", func(t *testing.T) {
				store := factory(t)
				require.NoError(t, store.Close())

				assert.ErrorIs(t, store.Save("t", "n", nil), checkpoint.ErrStoreClosed)
				_, err := store.Load("t", "n")
				assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
				_, err = store.List("t")
				assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
			})

			t.Run("concurrent writers", func(t *testing.T) {
				store := factory(t)
				defer store.Close()

				var wg sync.WaitGroup
				for i := range 10 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						thread := fmt.Sprintf("thread-%d", i%3)
						assert.NoError(t, store.Save(thread, fmt.Sprintf("n%d", i), []byte("x")))
					}()
				}
				wg.Wait()

				total := 0
				for i := range 3 {
					infos, err := store.List(fmt.Sprintf("thread-%d", i))
					require.NoError(t, err)
					total += len(infos)
				}
				assert.Equal(t, 10, total)
			})
		})
	}
}

func TestLatest(t *testing.T) {
	store := checkpoint.NewMemoryStore()

	_, err := checkpoint.Latest(store, "empty")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	for i, node := range []string{"route", "chat", "generate_response"} {
		cp := checkpoint.New("t", node, i+1, []byte(fmt.Sprintf(`{"n":%d}`, i)), "next")
		data, err := cp.Marshal()
		require.NoError(t, err)
		require.NoError(t, store.Save("t", node, data))
	}

	cp, err := checkpoint.Latest(store, "t")
	require.NoError(t, err)
	assert.Equal(t, "generate_response", cp.NodeID)
	assert.JSONEq(t, `{"n":2}`, string(cp.State))
	assert.Equal(t, "t", cp.ThreadID)
}

func TestLatestCompleted(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	save := func(node, next, state string) {
		data, err := checkpoint.New("t", node, 0, []byte(state), next).Marshal()
		require.NoError(t, err)
		require.NoError(t, store.Save("t", node, data))
	}

	_, err := checkpoint.LatestCompleted(store, "t")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	save("process_input", "generate_response", `{"turn":1}`)
	save("generate_response", "__end__", `{"turn":1}`)
	// A second turn that stopped before answering.
	save("process_input", "web_research", `{"turn":2}`)
	save("web_research", "generate_response", `{"turn":2}`)

	tail, err := checkpoint.Latest(store, "t")
	require.NoError(t, err)
	assert.Equal(t, "web_research", tail.NodeID)

	done, err := checkpoint.LatestCompleted(store, "t")
	require.NoError(t, err)
	assert.Equal(t, "generate_response", done.NodeID)
	assert.JSONEq(t, `{"turn":1}`, string(done.State))
}

func TestCheckpoint_RoundTrip(t *testing.T) {
	cp := checkpoint.New("thread-9", "web_research", 4, []byte(`{"query":"go"}`), "generate_response").
		WithPrevNode("route")

	data, err := cp.Marshal()
	require.NoError(t, err)

	got, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Version, got.Version)
	assert.Equal(t, "thread-9", got.ThreadID)
	assert.Equal(t, "route", got.PrevNodeID)
	assert.Equal(t, 4, got.Sequence)
	assert.False(t, got.Completed())

	done := checkpoint.New("thread-9", "generate_response", 5, []byte(`{}`), "__end__")
	assert.True(t, done.Completed())
}

func TestCheckpoint_UnmarshalGarbage(t *testing.T) {
	_, err := checkpoint.Unmarshal([]byte("not json"))
	assert.Error(t, err)
}

func TestMemoryStore_Threads(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	require.NoError(t, store.Save("b", "n", []byte("1")))
	require.NoError(t, store.Save("a", "n", []byte("1")))
	require.NoError(t, store.Save("a", "m", []byte("1")))

	assert.Equal(t, []string{"a", "b"}, store.Threads())
	assert.Equal(t, 3, store.Len())

	require.NoError(t, store.Delete("b", "n"))
	assert.Equal(t, []string{"a"}, store.Threads())
}
