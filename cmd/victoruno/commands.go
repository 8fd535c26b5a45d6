package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Example: `  victoruno ask "explain channels in Go"
  victoruno ask --thread work "search for the Go 1.23 release notes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := c.assistant()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), agent.Chat(cmd.Context(), strings.Join(args, " "), c.thread))
			return nil
		},
	}
}

func newDocCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "doc <path>...",
		Aliases: []string{"document"},
		Short:   "Read one or more documents",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := c.assistant()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, reply := range agent.ProcessDocuments(cmd.Context(), args) {
				if len(args) > 1 {
					fmt.Fprintln(out, headerStyle.Render(args[i]))
				}
				fmt.Fprintln(out, reply)
			}
			return nil
		},
	}
}

func newSearchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the web",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := c.assistant()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), agent.WebSearch(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the conversation on the current thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := c.assistant()
			if err != nil {
				return err
			}
			history := agent.History(c.thread)
			if asJSON {
				return writeJSON(cmd, history)
			}
			printHistory(cmd.OutOrStdout(), history, agent.Info().Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the conversation on the current thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := c.assistant()
			if err != nil {
				return err
			}
			agent.ResetConversation(c.thread)
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation %s reset.\n", c.thread)
			return nil
		},
	}
}

func newInfoCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the assistant's configuration and capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agent, err := c.assistant()
			if err != nil {
				return err
			}
			info := agent.Info()
			if asJSON {
				return writeJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(info.Name+" "+info.Version))
			if info.Description != "" {
				fmt.Fprintln(out, systemStyle.Render(info.Description))
			}
			row := func(label, value string) {
				fmt.Fprintf(out, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-14s", label)), value)
			}
			row("Model", info.Model)
			row("Capabilities", strings.Join(info.Capabilities, ", "))
			row("Formats", strings.Join(info.DocumentFormats, ", "))
			row("Web search", fmt.Sprintf("%t", info.SearchAvailable))
			row("Query", info.QueryStrategy)
			row("Store", c.settings.StoreKind)
			row("Thread", c.thread)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
