// Package mcp exposes flowchart generation, repair and validation as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yungbote/flowchart-backend/internal/flowchart"
	"github.com/yungbote/flowchart-backend/internal/mermaid"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

const (
	ToolGenerate = "generate_flowchart"
	ToolRepair   = "repair_flowchart"
	ToolValidate = "validate_flowchart"
)

type Server struct {
	mcpServer *server.MCPServer
	svc       *flowchart.Service
	log       *logger.Logger
	tools     map[string]bool
}

func New(log *logger.Logger, svc *flowchart.Service, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		mcpServer: server.NewMCPServer(
			"flowchart",
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		svc:   svc,
		log:   log.With("component", "mcp"),
		tools: map[string]bool{},
	}
	s.registerGenerateTool()
	s.registerRepairTool()
	s.registerValidateTool()
	return s
}

// ServeStdio blocks until stdin closes. Logs must not go to stdout while it runs.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp server listening on stdio", "tools", s.ListTools())
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) ListTools() []string {
	out := make([]string, 0, len(s.tools))
	for t := range s.tools {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *Server) registerGenerateTool() {
	levels := make([]string, 0, 6)
	for _, m := range flowchart.Modes() {
		levels = append(levels, m.Level, m.Name)
	}
	tool := mcp.NewTool(ToolGenerate,
		mcp.WithDescription("Generate a Mermaid flowchart from a natural-language process description. "+
			"Always returns a valid diagram; degraded=true means a deterministic fallback was used."),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("The process to draw"),
		),
		mcp.WithString("level",
			mcp.Description("Detail level: 1 (basic), 2 (intermediate), 3 (advanced) or the mode name"),
			mcp.Enum(levels...),
		),
	)
	s.mcpServer.AddTool(tool, s.handleGenerate)
	s.tools[ToolGenerate] = true
}

func (s *Server) registerRepairTool() {
	tool := mcp.NewTool(ToolRepair,
		mcp.WithDescription("Repair Mermaid flowchart markup: fix brackets, duplicate nodes, End nodes and spacing."),
		mcp.WithString("mermaid_code",
			mcp.Required(),
			mcp.Description("Flowchart markup, optionally wrapped in a ```mermaid fence"),
		),
		mcp.WithString("description",
			mcp.Description("What the diagram describes; seeds the fallback if repair fails"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleRepair)
	s.tools[ToolRepair] = true
}

func (s *Server) registerValidateTool() {
	tool := mcp.NewTool(ToolValidate,
		mcp.WithDescription("Check Mermaid flowchart markup and report syntax and structure problems."),
		mcp.WithString("mermaid_code",
			mcp.Required(),
			mcp.Description("Flowchart markup to check"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleValidate)
	s.tools[ToolValidate] = true
}

func (s *Server) handleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	description, _ := args["description"].(string)
	level, _ := args["level"].(string)

	resp, err := s.svc.Generate(ctx, flowchart.Request{Description: description, Level: level})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleRepair(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	code, _ := args["mermaid_code"].(string)
	description, _ := args["description"].(string)

	out, err := s.svc.Repair(ctx, code, description)
	if err != nil {
		return toolError(err), nil
	}
	payload := map[string]any{
		"mermaid_code": out.Code,
		"outcome":      out.Kind(),
		"degraded":     out.Degraded,
		"report":       out.Report,
	}
	if out.Reason != nil {
		payload["reason"] = out.Reason.Error()
	}
	return jsonResult(payload)
}

func (s *Server) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, _ := req.GetArguments()["mermaid_code"].(string)
	if code == "" {
		return mcp.NewToolResultError("mermaid_code parameter is required"), nil
	}
	report := mermaid.Validate(code)
	return jsonResult(map[string]any{
		"valid":  report.OK(),
		"errors": report.Messages(),
		"report": report,
	})
}

func toolError(err error) *mcp.CallToolResult {
	var ie *flowchart.InputError
	if errors.As(err, &ie) {
		return mcp.NewToolResultError(ie.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
