package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/config"
	"github.com/roach88/txcomplete/internal/harness"
	"github.com/roach88/txcomplete/internal/invoker"
	"github.com/roach88/txcomplete/internal/metrics"
	"github.com/roach88/txcomplete/internal/store"
)

// env is the shared runtime of the scenario commands: config, logger, and
// the optional audit store and metrics collector.
type env struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *store.Store
	collector *metrics.Collector
	seq       *callback.Sequencer
}

// openEnv loads the config and opens what it asks for. dbPath overrides
// store.path from the config.
func openEnv(ctx context.Context, opts *RootOptions, dbPath string, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	e := &env{
		cfg:    cfg,
		logger: cfg.NewLogger(logOut, opts.Verbose),
		seq:    callback.NewSequencer(),
	}

	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	if dbPath != "" {
		e.logger.Debug("opening audit store", "path", dbPath)
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		maxSeq, err := st.MaxSeq(ctx)
		if err != nil {
			_ = st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read database", err)
		}
		e.store = st
		e.seq = callback.NewSequencerAt(maxSeq)
	}

	if cfg.Metrics.Enabled {
		e.collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	return e, nil
}

// harnessOptions builds run options. async forces queued delivery on top
// of the config setting.
func (e *env) harnessOptions(async bool) harness.Options {
	opts := harness.Options{
		Logger:         e.logger,
		Sequencer:      e.seq,
		Async:          async || e.cfg.Delivery.Async,
		QueueWarnDepth: e.cfg.Delivery.QueueWarnDepth,
	}
	if e.store != nil {
		opts.Recorder = e.store
		// Stored delivery IDs must stay unique across runs.
		opts.IDGenerator = invoker.UUIDv7Generator{}
	}
	if e.collector != nil {
		opts.Metrics = e.collector
	}
	return opts
}

// writeMetrics dumps the collector in text exposition format, if enabled.
func (e *env) writeMetrics(w io.Writer) error {
	if e.collector == nil {
		return nil
	}
	return e.collector.WriteText(w)
}

func (e *env) Close() error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// closeEnv closes e and folds a close failure into err.
func closeEnv(e *env, err *error) {
	if cerr := e.Close(); cerr != nil {
		e.logger.Error("error closing database", "error", cerr)
		*err = errors.Join(*err, cerr)
	}
}
