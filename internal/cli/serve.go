package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ordinal/internal/server"
)

// shutdownTimeout bounds how long serve waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// ready, when set, receives the bound listener address (for testing).
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reorder API over HTTP",
		Long: `Start the reorder engine and serve it over HTTP until interrupted.

Routes:
  GET  /healthz
  GET  /api/lists/:list
  POST /api/lists/:list/refresh
  POST /api/lists/:list/drag/{start,over,drop,cancel}
  POST /api/lists/:list/items/:id/move

On SIGINT or SIGTERM the server stops accepting requests, outstanding
commits are allowed to finish, and the database is closed.

Example:
  ordinal serve --db ./ordinal.db --config lists.cue --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ws, err := openWorkspace(opts.RootOptions)
	if err != nil {
		return err
	}
	defer ws.Close()

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Handler:           server.New(ws.engine, server.WithLogger(slog.Default())).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The engine outlives the signal: it stops only after the HTTP server
	// has drained, so commits issued by in-flight requests reach the store.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ws.engine.Run(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer ws.engine.Stop()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	addr := ln.Addr().String()
	slog.Info("serving", "addr", addr, "db", opts.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", addr)
	if opts.ready != nil {
		opts.ready <- addr
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}
