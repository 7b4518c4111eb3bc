package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	logger *zap.Logger

	storeOperationsTotal *prometheus.CounterVec
	storeDuration        *prometheus.HistogramVec

	sessionsActive      prometheus.Gauge
	conflicts           *prometheus.GaugeVec
	staleResponsesTotal prometheus.Counter
}

// NewPrometheusSink creates a Prometheus sink registered on reg.
func NewPrometheusSink(reg prometheus.Registerer, logger *zap.Logger) *PrometheusSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PrometheusSink{logger: logger}
	s.initStoreMetrics(reg)
	s.initBoardMetrics(reg)
	return s
}

func (s *PrometheusSink) initStoreMetrics(reg prometheus.Registerer) {
	s.storeOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pumpplanner_store_operations_total",
		Help: "Total number of job store operations by outcome.",
	}, []string{"operation", "outcome"})
	s.storeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pumpplanner_store_operation_duration_seconds",
		Help:    "Job store operation latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})

	s.register(reg, s.storeOperationsTotal, "pumpplanner_store_operations_total")
	s.register(reg, s.storeDuration, "pumpplanner_store_operation_duration_seconds")
}

func (s *PrometheusSink) initBoardMetrics(reg prometheus.Registerer) {
	s.sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pumpplanner_board_sessions_active",
		Help: "Number of open planning boards.",
	})
	s.conflicts = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pumpplanner_board_conflicts",
		Help: "Conflicts shown across open boards, by severity.",
	}, []string{"severity"})
	s.staleResponsesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pumpplanner_board_stale_responses_total",
		Help: "Store responses discarded because the board moved to another date.",
	})

	s.register(reg, s.sessionsActive, "pumpplanner_board_sessions_active")
	s.register(reg, s.conflicts, "pumpplanner_board_conflicts")
	s.register(reg, s.staleResponsesTotal, "pumpplanner_board_stale_responses_total")
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.logger.Warn("metrics: failed to register collector", zap.String("name", name), zap.Error(err))
	}
}

func (s *PrometheusSink) StoreOperation(operation, outcome string, duration time.Duration) {
	s.storeOperationsTotal.WithLabelValues(operation, outcome).Inc()
	s.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (s *PrometheusSink) SessionOpened() {
	s.sessionsActive.Inc()
}

func (s *PrometheusSink) SessionClosed() {
	s.sessionsActive.Dec()
}

func (s *PrometheusSink) ConflictsAdjust(severity string, delta int) {
	if delta == 0 {
		return
	}
	s.conflicts.WithLabelValues(severity).Add(float64(delta))
}

func (s *PrometheusSink) StaleResponse() {
	s.staleResponsesTotal.Inc()
}
