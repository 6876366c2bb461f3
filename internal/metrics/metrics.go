// Package metrics provides Prometheus collection for invoker activity.
// Collector implements invoker.Metrics on its own registry so several
// invokers (or tests) never collide on the global default registry.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/txcomplete/internal/invoker"
)

// DefaultNamespace is used when NewCollector gets an empty namespace.
const DefaultNamespace = "txcomplete"

// Collector provides invoker metrics collection.
type Collector struct {
	registry *prometheus.Registry

	registrations    prometheus.Counter
	finalizes        *prometheus.CounterVec
	pendingHandles   prometheus.Gauge
	ledgerListeners  prometheus.Gauge
	deliveries       *prometheus.CounterVec
	deliveredBatches prometheus.Counter
	droppedBatches   prometheus.Counter
	listenerDeaths   prometheus.Counter
	errors           *prometheus.CounterVec
}

var _ invoker.Metrics = (*Collector)(nil)

// NewCollector creates a collector registered on a fresh registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.registrations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registration",
		Name:      "started_total",
		Help:      "Total number of transaction batches registered",
	})

	c.finalizes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handle",
			Name:      "finalized_total",
			Help:      "Total number of callback handles finalized, by path and whether surface stats were merged",
		},
		[]string{"path", "merged"},
	)

	c.pendingHandles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "handle",
		Name:      "pending",
		Help:      "Current number of pending handles across all listeners",
	})

	c.ledgerListeners = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "listeners",
		Help:      "Current number of listeners with undelivered batches",
	})

	c.deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "notifications_total",
			Help:      "Total number of notifications sent, by result",
		},
		[]string{"result"},
	)

	c.deliveredBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "delivery",
		Name:      "batches_total",
		Help:      "Total number of batches carried by notifications",
	})

	c.droppedBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "delivery",
		Name:      "dropped_batches_total",
		Help:      "Total number of batches discarded because their listener died",
	})

	c.listenerDeaths = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "listener",
		Name:      "deaths_total",
		Help:      "Total number of listener death notifications",
	})

	c.errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of invoker errors, by code",
		},
		[]string{"code"},
	)

	c.registry.MustRegister(
		c.registrations,
		c.finalizes,
		c.pendingHandles,
		c.ledgerListeners,
		c.deliveries,
		c.deliveredBatches,
		c.droppedBatches,
		c.listenerDeaths,
		c.errors,
	)

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveRegistration() {
	c.registrations.Inc()
}

func (c *Collector) ObserveFinalize(path string, surfaceMerged bool) {
	c.finalizes.WithLabelValues(path, boolLabel(surfaceMerged)).Inc()
}

func (c *Collector) SetPendingHandles(n int) {
	c.pendingHandles.Set(float64(n))
}

func (c *Collector) SetLedgerListeners(n int) {
	c.ledgerListeners.Set(float64(n))
}

func (c *Collector) ObserveDelivery(batches int, delivered bool) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	c.deliveries.WithLabelValues(result).Inc()
	c.deliveredBatches.Add(float64(batches))
}

func (c *Collector) ObserveDroppedBatches(n int) {
	c.droppedBatches.Add(float64(n))
}

func (c *Collector) ObserveListenerDeath() {
	c.listenerDeaths.Inc()
}

func (c *Collector) ObserveError(code string) {
	c.errors.WithLabelValues(code).Inc()
}

// WriteText writes every metric family in the Prometheus text exposition
// format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
