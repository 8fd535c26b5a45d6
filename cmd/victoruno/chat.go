package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/victoruno/pkg/assistant"
)

func newChatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: `Start an interactive session on the current thread.

Commands inside the session:
  /reset    Clear the conversation
  /history  Show the conversation so far
  /quit     Leave (also /exit or end of input)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := c.assistant()
			if err != nil {
				return err
			}
			return repl(cmd, agent, c.thread)
		},
	}
}

func repl(cmd *cobra.Command, agent *assistant.Agent, thread string) error {
	out := cmd.OutOrStdout()
	name := agent.Info().Name

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s (thread %s)", name, thread)))
	fmt.Fprintln(out, systemStyle.Render("Type /quit to leave, /reset to start over."))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, userStyle.Render("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			agent.ResetConversation(thread)
			fmt.Fprintln(out, systemStyle.Render("Conversation reset."))
			continue
		case "/history":
			printHistory(out, agent.History(thread), name)
			continue
		}

		reply := agent.Chat(cmd.Context(), line, thread)
		fmt.Fprintf(out, "%s %s\n", agentStyle.Render(name+":"), reply)
	}
}

func printHistory(w io.Writer, history []assistant.Message, agentName string) {
	if len(history) == 0 {
		fmt.Fprintln(w, systemStyle.Render("No messages yet."))
		return
	}
	for _, m := range history {
		switch m.Role {
		case assistant.RoleUser:
			fmt.Fprintf(w, "%s %s\n", userStyle.Render("You:"), m.Content)
		case assistant.RoleAssistant:
			fmt.Fprintf(w, "%s %s\n", agentStyle.Render(agentName+":"), m.Content)
		default:
			fmt.Fprintln(w, systemStyle.Render(m.Content))
		}
	}
}
