package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
	"github.com/roach88/txcomplete/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Listener string // optional - filter to one listener
	Delivery string // optional - show one delivery with its payload
}

// TraceEntry is one row of the audit timeline: a delivery or a listener
// event.
type TraceEntry struct {
	Seq      int64               `json:"seq"`
	Type     string              `json:"type"` // "delivery" or "event"
	Listener callback.ListenerID `json:"listener"`

	// Delivery fields.
	ID         string          `json:"id,omitempty"`
	Status     string          `json:"status,omitempty"`
	BatchCount int             `json:"batch_count,omitempty"`
	Error      string          `json:"error,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`

	// Event fields.
	Kind           string `json:"kind,omitempty"`
	DroppedBatches int    `json:"dropped_batches,omitempty"`
}

// TraceStats holds summary statistics for the timeline.
type TraceStats struct {
	Deliveries     int `json:"deliveries"`
	Failed         int `json:"failed"`
	Events         int `json:"events"`
	DroppedBatches int `json:"dropped_batches"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Listener string       `json:"listener,omitempty"`
	Timeline []TraceEntry `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the delivery audit log",
		Long: `Show the deliveries and listener events recorded in an audit
database, merged into one timeline ordered by sequence number.

Examples:
  txcomplete trace --db ./audit.db
  txcomplete trace --db ./audit.db --listener A
  txcomplete trace --db ./audit.db --delivery 0190a1f2-...
  txcomplete trace --db ./audit.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Listener, "listener", "", "filter to one listener")
	cmd.Flags().StringVar(&opts.Delivery, "delivery", "", "show a single delivery by ID")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// store.Open creates missing files; a typo should not leave an empty
	// database behind.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Delivery != "" {
		return showDelivery(ctx, st, opts.Delivery, formatter)
	}

	result, err := buildTrace(ctx, st, callback.ListenerID(opts.Listener))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit log", err)
	}

	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(cmd.OutOrStdout(), result)
	return nil
}

// buildTrace merges deliveries and listener events by seq.
func buildTrace(ctx context.Context, st *store.Store, listener callback.ListenerID) (TraceResult, error) {
	filter := store.Filter{Listener: listener}

	deliveries, err := st.ListDeliveries(ctx, filter)
	if err != nil {
		return TraceResult{}, err
	}
	events, err := st.ListListenerEvents(ctx, filter)
	if err != nil {
		return TraceResult{}, err
	}

	result := TraceResult{
		Listener: string(listener),
		Timeline: make([]TraceEntry, 0, len(deliveries)+len(events)),
	}
	for _, d := range deliveries {
		result.Timeline = append(result.Timeline, deliveryEntry(d, false))
		result.Stats.Deliveries++
		if d.Status == invoker.DeliveryFailed {
			result.Stats.Failed++
		}
	}
	for _, ev := range events {
		result.Timeline = append(result.Timeline, TraceEntry{
			Seq:            ev.Seq,
			Type:           "event",
			Listener:       ev.Listener,
			Kind:           string(ev.Kind),
			DroppedBatches: ev.DroppedBatches,
		})
		result.Stats.Events++
		result.Stats.DroppedBatches += ev.DroppedBatches
	}

	slices.SortFunc(result.Timeline, func(a, b TraceEntry) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	})
	return result, nil
}

func deliveryEntry(d store.Delivery, withPayload bool) TraceEntry {
	e := TraceEntry{
		Seq:        d.Seq,
		Type:       "delivery",
		Listener:   d.Listener,
		ID:         d.ID,
		Status:     string(d.Status),
		BatchCount: d.BatchCount,
		Error:      d.Error,
	}
	if withPayload {
		e.Payload = json.RawMessage(d.Payload)
	}
	return e
}

func showDelivery(ctx context.Context, st *store.Store, id string, formatter *OutputFormatter) error {
	d, err := st.ReadDelivery(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("delivery not found: %s", id), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("delivery not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read delivery", err)
	}

	entry := deliveryEntry(d, true)
	if formatter.Format == "json" {
		return formatter.Success(entry)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Delivery: %s\n", d.ID)
	fmt.Fprintf(w, "  Seq:      %d\n", d.Seq)
	fmt.Fprintf(w, "  Listener: %s\n", d.Listener)
	fmt.Fprintf(w, "  Status:   %s\n", d.Status)
	fmt.Fprintf(w, "  Batches:  %d\n", d.BatchCount)
	if d.Error != "" {
		fmt.Fprintf(w, "  Error:    %s\n", d.Error)
	}
	fmt.Fprintf(w, "  Hash:     %s\n", d.PayloadHash)
	fmt.Fprintf(w, "  Payload:  %s\n", d.Payload)
	return nil
}

func outputTraceText(w io.Writer, result TraceResult) {
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No audit entries found.")
		return
	}

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		switch e.Type {
		case "delivery":
			line := fmt.Sprintf("  [%d] delivery %s -> %s (%d batch(es), %s)", e.Seq, e.ID, e.Listener, e.BatchCount, e.Status)
			if e.Error != "" {
				line += ": " + e.Error
			}
			fmt.Fprintln(w, line)
		case "event":
			line := fmt.Sprintf("  [%d] %s %s", e.Seq, e.Listener, e.Kind)
			if e.DroppedBatches > 0 {
				line += fmt.Sprintf(" (dropped %d batch(es))", e.DroppedBatches)
			}
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d deliveries (%d failed), %d listener events, %d dropped batch(es)\n",
		result.Stats.Deliveries, result.Stats.Failed, result.Stats.Events, result.Stats.DroppedBatches)
}
