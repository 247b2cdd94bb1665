package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/flowchart-backend/internal/inference/engine"
)

type stubEngine struct{ err error }

func (s stubEngine) GenerateText(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	return "ok", s.err
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", 200, time.Millisecond)
	m.IncOutcome("valid")
	m.IncRender(true)
	m.InflightInc()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if InstrumentEngine(nil, "mock", stubEngine{}) != (stubEngine{}) {
		t.Fatalf("expected engine unchanged")
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/flowcharts", 200, 30*time.Millisecond)
	m.IncOutcome("repaired")
	m.IncOutcome("repaired")
	m.IncRender(false)

	eng := InstrumentEngine(m, "mock", stubEngine{})
	if _, err := eng.GenerateText(context.Background(), "m", nil, engine.GenerateOptions{}); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	failing := InstrumentEngine(m, "mock", stubEngine{err: context.DeadlineExceeded})
	if _, err := failing.GenerateText(context.Background(), "m", nil, engine.GenerateOptions{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	if got := m.Outcomes("repaired"); got != 2 {
		t.Fatalf("repaired=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`flowchart_api_requests_total{method="POST",route="/api/flowcharts",status="200"} 1`,
		`flowchart_outcomes_total{outcome="repaired"} 2`,
		`flowchart_engine_requests_total{engine="mock",status="ok"} 1`,
		`flowchart_engine_requests_total{engine="mock",status="timeout"} 1`,
		`flowchart_renders_total{status="error"} 1`,
		`flowchart_api_request_duration_seconds_bucket{method="POST",route="/api/flowcharts",le="0.05"} 1`,
		"# TYPE flowchart_api_inflight_requests gauge",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in\n%s", want, body)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders(" a=1, b = 2 ,bad, =x")
	if len(h) != 2 || h["a"] != "1" || h["b"] != "2" {
		t.Fatalf("headers=%v", h)
	}
	if parseHeaders("") != nil {
		t.Fatalf("expected nil")
	}
}

func TestInitOTelDisabled(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
