package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/flowchart-backend/internal/flowchart"
	"github.com/yungbote/flowchart-backend/internal/http/response"
	"github.com/yungbote/flowchart-backend/internal/mermaid"
	"github.com/yungbote/flowchart-backend/internal/observability"
	"github.com/yungbote/flowchart-backend/internal/platform/apierr"
)

// Capabilities describes what this deployment can do.
type Capabilities struct {
	SupportedLevels []flowchart.Mode `json:"supported_levels"`
	OutputFormats   []string         `json:"output_formats"`
	Engine          string           `json:"engine"`
	Model           string           `json:"model"`
	HasAPIKey       bool             `json:"has_api_key"`
	DefaultLevel    string           `json:"default_level"`
	Renderer        string           `json:"renderer,omitempty"`
}

type FlowchartHandler struct {
	svc     *flowchart.Service
	caps    Capabilities
	metrics *observability.Metrics
}

func NewFlowchartHandler(svc *flowchart.Service, caps Capabilities, metrics *observability.Metrics) *FlowchartHandler {
	if len(caps.SupportedLevels) == 0 {
		caps.SupportedLevels = flowchart.Modes()
	}
	if len(caps.OutputFormats) == 0 {
		caps.OutputFormats = []string{string(flowchart.FormatMermaid), string(flowchart.FormatPNG), string(flowchart.FormatBoth)}
	}
	return &FlowchartHandler{svc: svc, caps: caps, metrics: metrics}
}

type markupRequest struct {
	MermaidCode string `json:"mermaid_code"`
	Description string `json:"description,omitempty"`
}

type repairResponse struct {
	MermaidCode string         `json:"mermaid_code"`
	Outcome     string         `json:"outcome"`
	Degraded    bool           `json:"degraded"`
	Path        []string       `json:"path"`
	Reason      string         `json:"reason,omitempty"`
	Report      mermaid.Report `json:"report"`
}

type validateResponse struct {
	Valid  bool           `json:"valid"`
	Errors []string       `json:"errors"`
	Report mermaid.Report `json:"report"`
}

// POST /api/flowcharts
func (h *FlowchartHandler) Generate(c *gin.Context) {
	var req flowchart.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	resp, err := h.svc.Generate(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, classify(err))
		return
	}
	h.metrics.IncOutcome(resp.Outcome)
	if resp.PNGFile != "" || resp.RenderError != "" {
		h.metrics.IncRender(resp.RenderError == "")
	}
	response.RespondOK(c, resp)
}

// POST /api/flowcharts/repair
func (h *FlowchartHandler) Repair(c *gin.Context) {
	var req markupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.svc.Repair(c.Request.Context(), req.MermaidCode, req.Description)
	if err != nil {
		response.RespondAPIError(c, classify(err))
		return
	}
	h.metrics.IncOutcome(out.Kind())
	resp := repairResponse{
		MermaidCode: out.Code,
		Outcome:     out.Kind(),
		Degraded:    out.Degraded,
		Path:        make([]string, len(out.Path)),
		Report:      out.Report,
	}
	for i, s := range out.Path {
		resp.Path[i] = string(s)
	}
	if out.Reason != nil {
		resp.Reason = out.Reason.Error()
	}
	response.RespondOK(c, resp)
}

// POST /api/flowcharts/validate
func (h *FlowchartHandler) Validate(c *gin.Context) {
	var req markupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.MermaidCode == "" {
		response.RespondAPIError(c, classify(&flowchart.InputError{Field: "mermaid_code", Reason: "must not be empty"}))
		return
	}
	report := mermaid.Validate(req.MermaidCode)
	response.RespondOK(c, validateResponse{Valid: report.OK(), Errors: report.Messages(), Report: report})
}

// GET /api/flowcharts/modes
func (h *FlowchartHandler) Modes(c *gin.Context) {
	response.RespondOK(c, gin.H{"modes": flowchart.Modes()})
}

// GET /api/flowcharts/capabilities
func (h *FlowchartHandler) Capabilities(c *gin.Context) {
	response.RespondOK(c, h.caps)
}

func classify(err error) error {
	var ie *flowchart.InputError
	if errors.As(err, &ie) {
		return apierr.BadRequest("invalid_request", err)
	}
	if errors.Is(err, flowchart.ErrConfiguration) {
		return apierr.Unavailable("not_configured", err)
	}
	return err
}
