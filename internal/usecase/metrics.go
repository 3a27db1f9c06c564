package usecase

import (
	"sync"
	"time"
)

// MetricsSummary is a point in time view of the predictions served by this process.
type MetricsSummary struct {
	TotalRequests              int64            `json:"total_requests"`
	InferredRequests           int64            `json:"inferred_requests"`
	UninferredRequests         int64            `json:"uninferred_requests"`
	RejectedRequests           int64            `json:"rejected_requests"`
	FailedRequests             int64            `json:"failed_requests"`
	InferenceRate              float64          `json:"inference_rate"`
	AverageConfidence          float64          `json:"average_confidence"`
	AverageProcessingLatencyMs float64          `json:"average_processing_latency_ms"`
	Labels                     map[string]int64 `json:"labels"`
}

type metrics struct {
	mu              sync.Mutex
	total           int64
	inferred        int64
	uninferred      int64
	rejected        int64
	failed          int64
	confidenceSum   float64
	latencySum      time.Duration
	servedLatencies int64
	labels          map[string]int64
}

func newMetrics() *metrics {
	return &metrics{labels: make(map[string]int64)}
}

func (m *metrics) recordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.rejected++
}

func (m *metrics) recordFailed(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.failed++
	m.latencySum += elapsed
	m.servedLatencies++
}

func (m *metrics) recordServed(p *Prediction, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.latencySum += elapsed
	m.servedLatencies++
	if p.Label == "" {
		m.uninferred++
		return
	}
	m.inferred++
	m.confidenceSum += p.Confidence
	m.labels[p.Label]++
}

func (m *metrics) summary() *MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &MetricsSummary{
		TotalRequests:      m.total,
		InferredRequests:   m.inferred,
		UninferredRequests: m.uninferred,
		RejectedRequests:   m.rejected,
		FailedRequests:     m.failed,
		Labels:             make(map[string]int64, len(m.labels)),
	}
	for label, count := range m.labels {
		summary.Labels[label] = count
	}

	if served := m.inferred + m.uninferred; served > 0 {
		summary.InferenceRate = float64(m.inferred) / float64(served)
	}
	if m.inferred > 0 {
		summary.AverageConfidence = m.confidenceSum / float64(m.inferred)
	}
	if m.servedLatencies > 0 {
		summary.AverageProcessingLatencyMs = float64(m.latencySum.Microseconds()) / 1000 / float64(m.servedLatencies)
	}
	return summary
}

// GetMetricsSummary returns the counters collected since the use case was built.
func (uc *PredictionUseCase) GetMetricsSummary() *MetricsSummary {
	return uc.metrics.summary()
}
