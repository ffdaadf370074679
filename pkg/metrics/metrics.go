// Package metrics implements Prometheus metrics for the tenant manager
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stackrox/mongo-tenant-manager/pkg/provisioning"
)

const (
	prometheusNamespace = "acs"
	prometheusSubsystem = "tenantmanager"

	workflowLabelName  = "workflow"
	resultLabelName    = "result"
	stageLabelName     = "stage"
	operationLabelName = "operation"
	statusLabelName    = "status"
)

var (
	metrics *Metrics
	once    sync.Once
)

var _ provisioning.Recorder = &Metrics{}

// Metrics holds the prometheus.Collector instances
type Metrics struct {
	workflowResults        *prometheus.CounterVec
	storeCallDuration      *prometheus.HistogramVec
	reconciliationRequired *prometheus.CounterVec
	storeUp                prometheus.Gauge
	tenantListCacheHits    prometheus.Counter
}

// Register registers the metrics with the given prometheus.Registerer
func (m *Metrics) Register(r prometheus.Registerer) {
	r.MustRegister(m.workflowResults)
	r.MustRegister(m.storeCallDuration)
	r.MustRegister(m.reconciliationRequired)
	r.MustRegister(m.storeUp)
	r.MustRegister(m.tenantListCacheHits)
}

// IncWorkflowResult counts a finished workflow by its result
func (m *Metrics) IncWorkflowResult(workflow, result string) {
	m.workflowResults.With(prometheus.Labels{workflowLabelName: workflow, resultLabelName: result}).Inc()
}

// ObserveStoreCall records the duration of one store call
func (m *Metrics) ObserveStoreCall(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.storeCallDuration.With(prometheus.Labels{operationLabelName: operation, statusLabelName: status}).Observe(duration.Seconds())
}

// IncReconciliationRequired counts a failure that may have left a tenant partially applied
func (m *Metrics) IncReconciliationRequired(workflow, stage string) {
	m.reconciliationRequired.With(prometheus.Labels{workflowLabelName: workflow, stageLabelName: stage}).Inc()
}

// SetStoreUp records the outcome of the latest store health check
func (m *Metrics) SetStoreUp(up bool) {
	if up {
		m.storeUp.Set(1)
		return
	}
	m.storeUp.Set(0)
}

// IncTenantListCacheHits counts tenant listings served from the cache
func (m *Metrics) IncTenantListCacheHits() {
	m.tenantListCacheHits.Inc()
}

// DefaultInstance returns the global Singleton instance for Metrics
func DefaultInstance() *Metrics {
	once.Do(func() {
		metrics = newMetrics()
	})
	return metrics
}

func newMetrics() *Metrics {
	return &Metrics{
		workflowResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prometheusNamespace,
			Subsystem: prometheusSubsystem,
			Name:      "workflow_results_total",
			Help:      "The number of finished provisioning workflows by result.",
		}, []string{workflowLabelName, resultLabelName},
		),
		storeCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prometheusNamespace,
			Subsystem: prometheusSubsystem,
			Name:      "store_call_duration_seconds",
			Help:      "The duration of calls to the MongoDB store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{operationLabelName, statusLabelName},
		),
		reconciliationRequired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prometheusNamespace,
			Subsystem: prometheusSubsystem,
			Name:      "reconciliation_required_total",
			Help:      "The number of failed mutations that need manual reconciliation.",
		}, []string{workflowLabelName, stageLabelName},
		),
		storeUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: prometheusNamespace,
			Subsystem: prometheusSubsystem,
			Name:      "store_up",
			Help:      "Whether the latest MongoDB health check succeeded.",
		}),
		tenantListCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: prometheusNamespace,
			Subsystem: prometheusSubsystem,
			Name:      "tenant_list_cache_hits_total",
			Help:      "The number of tenant listings served from the cache.",
		}),
	}
}
