package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/victoruno/pkg/assistant"
	"github.com/randalmurphal/victoruno/pkg/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

// cli carries flags and the lazily built agent through a command run.
type cli struct {
	configPath string
	model      string
	thread     string
	store      string
	verbose    bool

	settings config.Settings
	logger   *slog.Logger
	agent    *assistant.Agent

	// build constructs the agent; tests swap it for one with a stub model.
	build func(config.Settings, *slog.Logger) (*assistant.Agent, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(func(s config.Settings, logger *slog.Logger) (*assistant.Agent, error) {
		return assistant.FromSettings(s, logger)
	})
}

func newRootCmdWith(build func(config.Settings, *slog.Logger) (*assistant.Agent, error)) *cobra.Command {
	c := &cli{build: build}

	root := &cobra.Command{
		Use:   "victoruno",
		Short: "Personal assistant for research, development, and optimization",
		Long: `VictorUno is a personal assistant that runs against a local language model.

It keeps per-thread conversation history, reads documents (txt, md, html,
docx, pdf) and can search the web.

Quick Start:
  victoruno chat                       # Interactive session
  victoruno ask "what is a goroutine"  # One question
  victoruno doc report.pdf             # Read a document
  victoruno serve                      # HTTP and WebSocket API`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "~/.victoruno/config.yaml", "Path to the config file (YAML or JSON)")
	flags.StringVar(&c.model, "model", "", "Model name, overrides ollama.model")
	flags.StringVarP(&c.thread, "thread", "t", assistant.DefaultThread, "Conversation thread id")
	flags.StringVar(&c.store, "store", "", "Conversation store: memory or sqlite")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newChatCmd(c),
		newAskCmd(c),
		newDocCmd(c),
		newSearchCmd(c),
		newHistoryCmd(c),
		newResetCmd(c),
		newServeCmd(c),
		newInfoCmd(c),
	)
	for _, sub := range root.Commands() {
		c.closeAfter(sub)
	}
	return root
}

// closeAfter closes the agent when cmd returns. Cobra skips post-run hooks
// after a failed RunE, so the close is deferred inside RunE itself.
func (c *cli) closeAfter(cmd *cobra.Command) {
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, c.close())
		}()
		return run(cmd, args)
	}
}

// setup resolves settings and the logger; flags win over file and env.
func (c *cli) setup(cmd *cobra.Command) error {
	s, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.model != "" {
		s.OllamaModel = c.model
	}
	if c.store != "" {
		s.StoreKind = strings.ToLower(c.store)
	}
	if c.verbose {
		s.LogLevel = slog.LevelDebug
	}
	if err := s.Validate(); err != nil {
		return err
	}

	c.settings = s
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: s.LogLevel}))
	return nil
}

// assistant builds the agent on first use.
func (c *cli) assistant() (*assistant.Agent, error) {
	if c.agent != nil {
		return c.agent, nil
	}
	if c.settings.StoreKind == "sqlite" {
		if err := c.settings.EnsureDirs(); err != nil {
			return nil, err
		}
	}
	agent, err := c.build(c.settings, c.logger)
	if err != nil {
		return nil, fmt.Errorf("start assistant: %w", err)
	}
	c.agent = agent
	return agent, nil
}

func (c *cli) close() error {
	if c.agent == nil {
		return nil
	}
	err := c.agent.Close()
	c.agent = nil
	return err
}
