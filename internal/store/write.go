package store

import (
	"context"
	"fmt"

	"github.com/roach88/txcomplete/internal/canon"
	"github.com/roach88/txcomplete/internal/invoker"
)

// PayloadHashDomain separates delivery payload hashes from any other
// hash computed over canonical JSON.
const PayloadHashDomain = "txcomplete/delivery/v1"

var _ invoker.Recorder = (*Store)(nil)

// RecordDelivery inserts a delivery record. The notification is stored as
// canonical JSON alongside its content hash.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) RecordDelivery(ctx context.Context, rec invoker.DeliveryRecord) error {
	summary := rec.Stats.Summary()
	payload, err := canon.Marshal(summary)
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", rec.ID, err)
	}
	hash, err := canon.Hash(PayloadHashDomain, summary)
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", rec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deliveries
		(id, seq, listener_id, batch_count, payload, payload_hash, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Seq,
		string(rec.Listener),
		len(rec.Stats.TransactionStats),
		string(payload),
		hash,
		string(rec.Status),
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("record delivery %s: %w", rec.ID, err)
	}

	return nil
}

// RecordListenerEvent inserts a listener lifecycle event.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency.
func (s *Store) RecordListenerEvent(ctx context.Context, ev invoker.ListenerEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listener_events
		(seq, listener_id, kind, dropped_batches)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		ev.Seq,
		string(ev.Listener),
		string(ev.Kind),
		ev.DroppedBatches,
	)
	if err != nil {
		return fmt.Errorf("record listener event %d: %w", ev.Seq, err)
	}

	return nil
}
