/*
Package assistant is the conversational core: a typed conversation state, a
keyword router, the four-node workflow graph and the Agent facade that outer
layers call.

# Turn Flow

	process_input ─┬─ documents ───> handle_documents ─┐
	               ├─ web_research > web_research ─────┼─> generate_response ─> END
	               └─ chat ────────────────────────────┘

Each Chat call runs this graph once under a thread id. The thread's previous
tail state is merged into the fresh input, so the model always sees the whole
conversation. Every node and every Agent method is a failure boundary:
capability errors become reply text and a turn never fails.

# Usage

	model := assistant.ModelFromClient(llm.NewOllama("", "llama2"))
	agent, err := assistant.New(model,
	    assistant.WithSearch(search.NewDuckDuckGo()),
	    assistant.WithStore(store))
	if err != nil {
	    return err
	}
	defer agent.Close()

	reply := agent.Chat(ctx, "search for go generics", "user-42")

Outer layers (CLI, HTTP server) use only the Agent methods; they never touch
the graph, the router or the checkpoint store.
*/
package assistant
