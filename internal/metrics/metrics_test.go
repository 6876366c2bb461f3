package metrics

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"runtime"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txcomplete/internal/callback"
	"github.com/roach88/txcomplete/internal/invoker"
	"github.com/roach88/txcomplete/internal/surface"
	"github.com/roach88/txcomplete/internal/transport"
)

func TestNewCollector_DefaultNamespace(t *testing.T) {
	c := NewCollector("")
	c.ObserveRegistration()

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "txcomplete_registration_started_total")
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("test")

	c.ObserveRegistration()
	c.ObserveRegistration()
	c.ObserveFinalize(invoker.PathCommit, true)
	c.ObserveFinalize(invoker.PathPresent, false)
	c.ObserveDelivery(3, true)
	c.ObserveDelivery(1, false)
	c.ObserveDroppedBatches(2)
	c.ObserveListenerDeath()
	c.ObserveError(string(invoker.ErrCodeNotRegistered))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.registrations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.finalizes.WithLabelValues("commit", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.finalizes.WithLabelValues("present", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.deliveredBatches))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.droppedBatches))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.listenerDeaths))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("NOT_REGISTERED")))
}

func TestCollector_Gauges(t *testing.T) {
	c := NewCollector("test")

	c.SetPendingHandles(5)
	c.SetLedgerListeners(2)
	c.SetPendingHandles(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.pendingHandles))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ledgerListeners))
}

func TestCollector_WriteText(t *testing.T) {
	c := NewCollector("test")
	c.ObserveListenerDeath()

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))

	assert.Contains(t, buf.String(), "# TYPE test_listener_deaths_total counter")
	assert.Contains(t, buf.String(), "test_listener_deaths_total 1")
}

// Drives a real invoker through one register/finalize/present/send cycle.
func TestCollector_WiredIntoInvoker(t *testing.T) {
	c := NewCollector("test")
	inv := invoker.New(
		invoker.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		invoker.WithMetrics(c),
	)
	l := transport.NewNamedListener("L")
	ids := callback.IDs{{Seq: 1, Kind: callback.KindPresent}}
	b := invoker.Batch{Listener: l, CallbackIDs: ids}
	s := surface.New("s")
	h := invoker.NewCallbackHandle(l, ids, s)
	h.LatchTimeNs = 100

	require.NoError(t, inv.StartRegistration(b))
	require.NoError(t, inv.RegisterPendingHandle(h))
	require.NoError(t, inv.EndRegistration(b))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pendingHandles))

	require.NoError(t, inv.FinalizePendingHandles([]*invoker.CallbackHandle{h}, nil))
	inv.AddPresentFence(surface.NewSignaledFence("present", 200))
	require.NoError(t, inv.SendCallbacks(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.registrations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.finalizes.WithLabelValues("present", "true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.pendingHandles))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.ledgerListeners))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries.WithLabelValues("delivered")))

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	var counters []*dto.MetricFamily
	for _, mf := range families {
		if mf.GetType() == dto.MetricType_COUNTER {
			counters = append(counters, mf)
		}
	}
	assert.NotEmpty(t, counters)
	runtime.KeepAlive(s)
}
