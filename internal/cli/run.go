package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/txcomplete/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Async    bool
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name     string          `json:"name"`
	Pass     bool            `json:"pass"`
	Errors   []string        `json:"errors,omitempty"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario against a fresh invoker and print every notification
and step error in the order they happened.

With --db (or store.path in the config) each delivery and listener event
is appended to a SQLite audit log that "txcomplete trace" can read.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (missing file, bad config, unreadable database)

Examples:
  txcomplete run ./scenarios/head_of_line.yaml
  txcomplete run --db ./audit.db ./scenarios/listener_death.yaml
  txcomplete run --async --format json ./scenarios/head_of_line.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit database")
	cmd.Flags().BoolVar(&opts.Async, "async", false, "deliver through queued listeners")

	return cmd
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) (err error) {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenarioLoad, err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, opts.RootOptions, opts.Database, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeEnv(e, &err)

	e.logger.Info("running scenario", "name", scenario.Name, "steps", len(scenario.Steps))
	result, err := harness.Run(ctx, scenario, e.harnessOptions(opts.Async))
	if err != nil {
		return WrapExitError(ExitFailure, "scenario execution failed", err)
	}

	if opts.Verbose {
		if err := e.writeMetrics(formatter.GetErrWriter()); err != nil {
			e.logger.Warn("failed to write metrics", "error", err)
		}
	}

	if opts.Format == "json" {
		snapshot, err := harness.MarshalTrace(scenario.Name, result)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render trace", err)
		}
		resp := CLIResponse{
			Status: "ok",
			Data: RunResult{
				Name:     scenario.Name,
				Pass:     result.Pass,
				Errors:   result.Errors,
				Snapshot: snapshot,
			},
		}
		if !result.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeScenarioFailed, Message: "scenario failed"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		writeTraceText(cmd.OutOrStdout(), result)
		writeResultLine(cmd.OutOrStdout(), scenario.Name, result.Pass, result.Errors)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// writeTraceText prints one line per trace event.
func writeTraceText(w io.Writer, result *harness.Result) {
	for _, ev := range result.Trace {
		switch ev.Type {
		case harness.EventNotification:
			batches := make([]string, len(ev.Stats.TransactionStats))
			for i, ts := range ev.Stats.TransactionStats {
				batches[i] = "[" + ts.CallbackIDs.Key() + "]"
			}
			fmt.Fprintf(w, "step %-3d %-16s %s <- %s\n", ev.Step, ev.Op, ev.Listener, strings.Join(batches, " "))
		case harness.EventError:
			fmt.Fprintf(w, "step %-3d %-16s error %s\n", ev.Step, ev.Op, ev.Code)
		}
	}
}

func writeResultLine(w io.Writer, name string, pass bool, errs []string) {
	if pass {
		fmt.Fprintf(w, "✓ %s\n", name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", name)
	for _, e := range errs {
		for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
