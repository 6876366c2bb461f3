package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
	"github.com/roach88/txcomplete/internal/surface"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDelivery creates a delivered record carrying one latched batch
// on a single surface.
func createTestDelivery(id string, seq int64, listener string, leadSeq int64) invoker.DeliveryRecord {
	s := surface.New("surface-" + id)
	return invoker.DeliveryRecord{
		ID:       id,
		Seq:      seq,
		Listener: callback.ListenerID(listener),
		Stats: invoker.ListenerStats{
			Listener: callback.ListenerID(listener),
			TransactionStats: []invoker.TransactionStats{{
				CallbackIDs:  callback.IDs{{Seq: leadSeq, Kind: callback.KindPresent}},
				LatchTimeNs:  100,
				PresentFence: surface.NewSignaledFence("present", 200),
				SurfaceStats: []surface.Stats{{Surface: s, AcquireTimeNs: 90}},
			}},
		},
		Status: invoker.DeliveryDelivered,
	}
}
