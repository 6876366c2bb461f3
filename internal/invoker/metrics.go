package invoker

// Metrics receives counters about invoker activity. metrics.Collector is
// the Prometheus implementation.
type Metrics interface {
	ObserveRegistration()
	ObserveFinalize(path string, surfaceMerged bool)
	SetPendingHandles(n int)
	SetLedgerListeners(n int)
	ObserveDelivery(batches int, delivered bool)
	ObserveDroppedBatches(n int)
	ObserveListenerDeath()
	ObserveError(code string)
}

// Finalize paths reported to Metrics.ObserveFinalize.
const (
	PathCommit      = "commit"
	PathPresent     = "present"
	PathUnpresented = "unpresented"
)

type noopMetrics struct{}

func (noopMetrics) ObserveRegistration() {}
func (noopMetrics) ObserveFinalize(string, bool) {}
func (noopMetrics) SetPendingHandles(int) {}
func (noopMetrics) SetLedgerListeners(int) {}
func (noopMetrics) ObserveDelivery(int, bool) {}
func (noopMetrics) ObserveDroppedBatches(int) {}
func (noopMetrics) ObserveListenerDeath() {}
func (noopMetrics) ObserveError(string) {}
