package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/yungbote/flowchart-backend/internal/inference/engine"
)

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Metrics holds the service's counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	outcomes      *CounterVec
	engineCalls   *CounterVec
	engineLatency *HistogramVec
	renders       *CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("flowchart_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("flowchart_api_request_duration_seconds", "API request latency in seconds.", []string{"method", "route"}, latencyBuckets),
		apiInflight: NewGauge("flowchart_api_inflight_requests", "In-flight API requests."),
		outcomes:    NewCounterVec("flowchart_outcomes_total", "Emitted diagrams by outcome (valid, repaired, fallback).", []string{"outcome"}),
		engineCalls: NewCounterVec("flowchart_engine_requests_total", "Text-generation calls by engine/status.", []string{"engine", "status"}),
		engineLatency: NewHistogramVec("flowchart_engine_request_duration_seconds", "Text-generation latency in seconds.",
			[]string{"engine"}, latencyBuckets),
		renders: NewCounterVec("flowchart_renders_total", "PNG render attempts by status.", []string{"status"}),
	}
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) InflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) InflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.outcomes.Inc(outcome)
	}
}

func (m *Metrics) Outcomes(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.outcomes.Value(outcome)
}

func (m *Metrics) IncRender(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.renders.Inc("ok")
	} else {
		m.renders.Inc("error")
	}
}

func (m *Metrics) observeEngine(name string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
	}
	m.engineCalls.Inc(name, status)
	m.engineLatency.Observe(dur.Seconds(), name)
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = m.WritePrometheus(w)
	})
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.outcomes, m.engineCalls, m.engineLatency, m.renders,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

type instrumentedEngine struct {
	next    engine.Engine
	name    string
	metrics *Metrics
}

// InstrumentEngine records call counts and latency for next under name.
func InstrumentEngine(m *Metrics, name string, next engine.Engine) engine.Engine {
	if m == nil || next == nil {
		return next
	}
	return &instrumentedEngine{next: next, name: name, metrics: m}
}

func (e *instrumentedEngine) GenerateText(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	start := time.Now()
	out, err := e.next.GenerateText(ctx, model, messages, opts)
	e.metrics.observeEngine(e.name, err, time.Since(start))
	return out, err
}
