package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/flowchart-backend/internal/flowchart"
	httpH "github.com/yungbote/flowchart-backend/internal/http/handlers"
	"github.com/yungbote/flowchart-backend/internal/inference/engine"
	"github.com/yungbote/flowchart-backend/internal/inference/engine/mock"
	"github.com/yungbote/flowchart-backend/internal/observability"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

func newTestRouter(t *testing.T, eng engine.Engine) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	m := observability.NewMetrics()
	svc := flowchart.NewService(log, eng, nil, nil, flowchart.ServiceConfig{Model: "mock"})
	return NewRouter(RouterConfig{
		Log:             log,
		Metrics:         m,
		MaxRequestBytes: 1 << 16,
		FlowchartHandler: httpH.NewFlowchartHandler(svc, httpH.Capabilities{
			Engine: "mock", Model: "mock", HasAPIKey: true, DefaultLevel: "1",
		}, m),
		HealthHandler: httpH.NewHealthHandler(),
	}), m
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthcheck(t *testing.T) {
	r, _ := newTestRouter(t, mock.New())
	rec := do(r, http.MethodGet, "/healthcheck", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing X-Request-Id")
	}
}

func TestGenerateFlowchart(t *testing.T) {
	r, m := newTestRouter(t, mock.New())
	rec := do(r, http.MethodPost, "/api/flowcharts",
		`{"description":"Login: Enter credentials → Validate → Success? → Dashboard | Error","level":"1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp flowchart.Response
	decode(t, rec, &resp)
	if !strings.HasPrefix(resp.MermaidCode, "flowchart TD\n") {
		t.Fatalf("mermaid_code=%q", resp.MermaidCode)
	}
	if resp.Degraded || resp.Outcome != flowchart.OutcomeValid {
		t.Fatalf("outcome=%s degraded=%v", resp.Outcome, resp.Degraded)
	}
	if resp.Level != "1" || resp.Title == "" {
		t.Fatalf("level=%q title=%q", resp.Level, resp.Title)
	}
	if got := m.Outcomes(flowchart.OutcomeValid); got != 1 {
		t.Fatalf("valid outcomes=%v", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		eng    engine.Engine
		body   string
		status int
		code   string
	}{
		{"empty description", mock.New(), `{"description":"  "}`, http.StatusBadRequest, "invalid_request"},
		{"unknown level", mock.New(), `{"description":"x","level":"9"}`, http.StatusBadRequest, "invalid_request"},
		{"bad format", mock.New(), `{"description":"x","output_format":"svg"}`, http.StatusBadRequest, "invalid_request"},
		{"malformed json", mock.New(), `{"description":`, http.StatusBadRequest, "invalid_request"},
		{"no engine", nil, `{"description":"x"}`, http.StatusServiceUnavailable, "not_configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.eng)
			rec := do(r, http.MethodPost, "/api/flowcharts", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status=%d want=%d body=%s", rec.Code, tt.status, rec.Body.String())
			}
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			decode(t, rec, &env)
			if env.Error.Code != tt.code {
				t.Fatalf("code=%q want=%q", env.Error.Code, tt.code)
			}
		})
	}
}

func TestRepairFlowchart(t *testing.T) {
	r, _ := newTestRouter(t, mock.New())
	rec := do(r, http.MethodPost, "/api/flowcharts/repair",
		`{"mermaid_code":"flowchart TD\n    A[Start --> B[Step 1]\n    B --> End","description":"steps"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		MermaidCode string   `json:"mermaid_code"`
		Outcome     string   `json:"outcome"`
		Path        []string `json:"path"`
	}
	decode(t, rec, &resp)
	if resp.Outcome != flowchart.OutcomeRepaired {
		t.Fatalf("outcome=%s code=%q", resp.Outcome, resp.MermaidCode)
	}
	if resp.MermaidCode != "flowchart TD\n    A[Start] --> B[Step 1]\n    B --> End" {
		t.Fatalf("mermaid_code=%q", resp.MermaidCode)
	}
	if len(resp.Path) == 0 || resp.Path[len(resp.Path)-1] != string(flowchart.StateEmitted) {
		t.Fatalf("path=%v", resp.Path)
	}

	rec = do(r, http.MethodPost, "/api/flowcharts/repair", `{"mermaid_code":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty markup status=%d", rec.Code)
	}
}

func TestValidateFlowchart(t *testing.T) {
	r, _ := newTestRouter(t, mock.New())

	rec := do(r, http.MethodPost, "/api/flowcharts/validate", `{"mermaid_code":"flowchart TD\n    A[Start] --> B[Next]\n    B --> C[Done]"}`)
	var ok struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	decode(t, rec, &ok)
	if !ok.Valid || len(ok.Errors) != 0 {
		t.Fatalf("expected valid, got %+v", ok)
	}

	rec = do(r, http.MethodPost, "/api/flowcharts/validate", `{"mermaid_code":"flowchart TD\n    A[Start --> B\n    B --> C"}`)
	var bad struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	decode(t, rec, &bad)
	if bad.Valid || len(bad.Errors) == 0 {
		t.Fatalf("expected errors, got %+v", bad)
	}
}

func TestModesAndCapabilities(t *testing.T) {
	r, _ := newTestRouter(t, mock.New())

	rec := do(r, http.MethodGet, "/api/flowcharts/modes", "")
	var modes struct {
		Modes []flowchart.Mode `json:"modes"`
	}
	decode(t, rec, &modes)
	if len(modes.Modes) != 3 || modes.Modes[0].Level != "1" {
		t.Fatalf("modes=%+v", modes.Modes)
	}

	rec = do(r, http.MethodGet, "/api/flowcharts/capabilities", "")
	var caps httpH.Capabilities
	decode(t, rec, &caps)
	if caps.Engine != "mock" || !caps.HasAPIKey || len(caps.OutputFormats) != 3 || len(caps.SupportedLevels) != 3 {
		t.Fatalf("capabilities=%+v", caps)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, mock.New())
	_ = do(r, http.MethodGet, "/healthcheck", "")
	rec := do(r, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `flowchart_api_requests_total{method="GET",route="/healthcheck",status="200"} 1`) {
		t.Fatalf("metrics body:\n%s", rec.Body.String())
	}
}

func TestRequestBodyLimit(t *testing.T) {
	r, _ := newTestRouter(t, mock.New())
	big := `{"description":"` + strings.Repeat("a", 1<<17) + `"}`
	rec := do(r, http.MethodPost, "/api/flowcharts", big)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}
