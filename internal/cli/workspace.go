package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ordinal/internal/config"
	"github.com/roach88/ordinal/internal/engine"
	"github.com/roach88/ordinal/internal/reorder"
	"github.com/roach88/ordinal/internal/store"
)

// workspace is the store, list config, and engine one command works with.
type workspace struct {
	store  *store.Store
	config *config.Config
	engine *engine.Engine

	cancel context.CancelFunc
	done   chan error
}

// openWorkspace opens the database and loads the list config. The engine is
// built but not running; call start.
func openWorkspace(opts *RootOptions) (*workspace, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	backend := engine.NewStoreBackend(st, opts.Tokens)
	return &workspace{
		store:  st,
		config: cfg,
		engine: engine.New(backend, engine.WithConfig(cfg), engine.WithLogger(slog.Default())),
	}, nil
}

// start runs the engine loop until Close.
func (w *workspace) start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan error, 1)
	go func() { w.done <- w.engine.Run(ctx) }()
}

// Close stops the engine, waits for outstanding commits, and closes the
// database.
func (w *workspace) Close() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	if err := w.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// cmdContext returns the command's context, or Background when run outside
// Execute.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// errorCode names err for the JSON envelope.
func errorCode(err error) string {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	if errors.Is(err, store.ErrStaleID) {
		return "STALE_ID"
	}
	var re *reorder.Error
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "ERROR"
}

// engineFailure reports an engine error through f and returns the matching
// ExitError. Unknown lists and malformed commands are command errors; a
// rejected or unsaved reorder is a failure.
func engineFailure(f *OutputFormatter, message string, err error) error {
	code := ExitFailure
	if engine.IsNotFound(err) || engine.IsInvalidCommand(err) {
		code = ExitCommandError
	}
	if f.Format == "json" {
		if ferr := f.Error(errorCode(err), fmt.Sprintf("%s: %v", message, err), nil); ferr != nil {
			return ferr
		}
	}
	return WrapExitError(code, message, err)
}
