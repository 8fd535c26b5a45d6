package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/victoruno/pkg/server"
)

// formOverhead leaves room for multipart headers around a maximum-size file.
const formOverhead = 1 << 20

func newServeCmd(c *cli) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Long: `Run the HTTP and WebSocket API.

Endpoints:
  POST /chat      {"message": "...", "thread_id": "..."}
  POST /upload    multipart form, field "file"
  GET  /search?q=...
  POST /reset
  GET  /history?thread_id=...
  GET  /health
  GET  /info
  GET  /ws        WebSocket chat and event stream`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if host != "" {
				c.settings.WebHost = host
			}
			if port != 0 {
				c.settings.WebPort = port
			}
			if err := c.settings.EnsureDirs(); err != nil {
				return err
			}
			agent, err := c.assistant()
			if err != nil {
				return err
			}

			srv, err := server.New(agent, server.Config{
				Addr:           c.settings.WebAddr(),
				UploadDir:      c.settings.DocumentsDir,
				MaxUploadBytes: c.settings.MaxFileSize + formOverhead,
				Logger:         c.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx)
			})
			g.Go(func() error {
				<-gctx.Done()
				if ctx.Err() != nil {
					c.logger.Info("shutting down", slog.String("addr", c.settings.WebAddr()))
				}
				return nil
			})

			fmt.Fprintf(cmd.OutOrStdout(), "%s listening on http://%s\n",
				agent.Info().Name, c.settings.WebAddr())
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host, overrides web.host")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port, overrides web.port")
	return cmd
}
