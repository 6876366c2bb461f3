package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
)

// Delivery is a stored delivery row. Payload is the canonical JSON
// rendering of invoker.ListenerStats.Summary.
type Delivery struct {
	ID          string
	Seq         int64
	Listener    callback.ListenerID
	BatchCount  int
	Payload     string
	PayloadHash string
	Status      invoker.DeliveryStatus
	Error       string
}

// Filter narrows a read. The zero value matches every row.
type Filter struct {
	Listener callback.ListenerID
}

func (f Filter) where() (string, []any) {
	if f.Listener == "" {
		return "", nil
	}
	return "WHERE listener_id = ?", []any{string(f.Listener)}
}

// ListDeliveries returns stored deliveries ordered by seq ASC.
// Returns an empty slice (not nil) if none match.
func (s *Store) ListDeliveries(ctx context.Context, f Filter) ([]Delivery, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, listener_id, batch_count, payload, payload_hash, status, error
		FROM deliveries
		`+where+`
		ORDER BY seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}

	return deliveries, nil
}

// ReadDelivery retrieves a single delivery by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadDelivery(ctx context.Context, id string) (Delivery, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, listener_id, batch_count, payload, payload_hash, status, error
		FROM deliveries
		WHERE id = ?
	`, id)
	return scanDelivery(row)
}

// ListListenerEvents returns stored listener events ordered by seq ASC.
// Returns an empty slice (not nil) if none match.
func (s *Store) ListListenerEvents(ctx context.Context, f Filter) ([]invoker.ListenerEvent, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, listener_id, kind, dropped_batches
		FROM listener_events
		`+where+`
		ORDER BY seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query listener events: %w", err)
	}
	defer rows.Close()

	events := []invoker.ListenerEvent{}
	for rows.Next() {
		var (
			ev       invoker.ListenerEvent
			listener string
			kind     string
		)
		if err := rows.Scan(&ev.Seq, &listener, &kind, &ev.DroppedBatches); err != nil {
			return nil, fmt.Errorf("scan listener event: %w", err)
		}
		ev.Listener = callback.ListenerID(listener)
		ev.Kind = invoker.ListenerEventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listener events: %w", err)
	}

	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row scanner) (Delivery, error) {
	var (
		d        Delivery
		listener string
		status   string
	)
	err := row.Scan(&d.ID, &d.Seq, &listener, &d.BatchCount, &d.Payload, &d.PayloadHash, &status, &d.Error)
	if err == sql.ErrNoRows {
		return Delivery{}, err
	}
	if err != nil {
		return Delivery{}, fmt.Errorf("scan delivery: %w", err)
	}
	d.Listener = callback.ListenerID(listener)
	d.Status = invoker.DeliveryStatus(status)
	return d, nil
}
