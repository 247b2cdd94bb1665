package flowchart

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/flowchart-backend/internal/inference/engine"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

type OutputFormat string

const (
	FormatMermaid OutputFormat = "mermaid"
	FormatPNG     OutputFormat = "png"
	FormatBoth    OutputFormat = "both"
)

// ParseOutputFormat accepts "mermaid", "png" or "both"; empty means mermaid.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatMermaid, nil
	case FormatMermaid, FormatPNG, FormatBoth:
		return f, nil
	default:
		return "", &InputError{Field: "output_format", Reason: fmt.Sprintf("%q is not one of mermaid, png, both", s)}
	}
}

func (f OutputFormat) wantsMermaidFile() bool { return f == FormatMermaid || f == FormatBoth }
func (f OutputFormat) wantsPNG() bool         { return f == FormatPNG || f == FormatBoth }

// Renderer turns a diagram into PNG bytes.
type Renderer interface {
	Render(ctx context.Context, diagram string) ([]byte, error)
}

// ArtifactStore persists named artifacts and returns where they were written.
type ArtifactStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

type Request struct {
	Description  string `json:"description"`
	Level        string `json:"level,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	Filename     string `json:"filename,omitempty"`
}

type Response struct {
	MermaidCode string `json:"mermaid_code"`
	Level       string `json:"level"`
	Mode        string `json:"mode"`
	Title       string `json:"title"`
	MermaidFile string `json:"mermaid_file,omitempty"`
	PNGFile     string `json:"png_file,omitempty"`
	Degraded    bool   `json:"degraded"`
	Outcome     string `json:"outcome"`
	RenderError string `json:"render_error,omitempty"`
	ExportError string `json:"export_error,omitempty"`
}

type ServiceConfig struct {
	Model             string
	DefaultLevel      string
	GenerationTimeout time.Duration
	Temperature       float64
	MaxTokens         int
	SaveToFile        bool
}

type Service struct {
	log      *logger.Logger
	engine   engine.Engine
	ctrl     *Controller
	renderer Renderer
	store    ArtifactStore
	cfg      ServiceConfig
	now      func() time.Time
}

// NewService wires the generation pipeline. eng may be nil, in which case Generate reports
// a ConfigurationError; renderer and store may be nil when artifacts are never requested.
func NewService(log *logger.Logger, eng engine.Engine, renderer Renderer, store ArtifactStore, cfg ServiceConfig) *Service {
	if strings.TrimSpace(cfg.DefaultLevel) == "" {
		cfg.DefaultLevel = "1"
	}
	return &Service{
		log:      log.With("service", "FlowchartService"),
		engine:   eng,
		ctrl:     NewController(log),
		renderer: renderer,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *Service) Controller() *Controller { return s.ctrl }

// Generate produces a diagram for req. Only input and configuration problems are returned
// as errors; generation failures degrade to the fallback diagram and artifact problems are
// reported on the response.
func (s *Service) Generate(ctx context.Context, req Request) (*Response, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, &InputError{Field: "description", Reason: "must not be empty"}
	}
	level := strings.TrimSpace(req.Level)
	if level == "" {
		level = s.cfg.DefaultLevel
	}
	mode, err := ResolveMode(level)
	if err != nil {
		return nil, &InputError{Field: "level", Err: err}
	}
	format, err := ParseOutputFormat(req.OutputFormat)
	if err != nil {
		return nil, err
	}
	if s.engine == nil {
		return nil, &ConfigurationError{Reason: "no text-generation engine configured"}
	}

	out, err := s.generate(ctx, mode, desc)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		MermaidCode: out.Code,
		Level:       mode.Level,
		Mode:        mode.Name,
		Title:       Title(desc, out.Code),
		Degraded:    out.Degraded,
		Outcome:     out.Kind(),
	}
	if s.cfg.SaveToFile || format != FormatMermaid {
		s.export(ctx, resp, format, req.Filename)
	}
	s.log.Info("flowchart generated",
		"mode", mode.Name,
		"outcome", resp.Outcome,
		"degraded", resp.Degraded,
		"bytes", len(resp.MermaidCode),
	)
	return resp, nil
}

func (s *Service) generate(ctx context.Context, mode Mode, desc string) (Outcome, error) {
	gctx := ctx
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}
	text, err := s.engine.GenerateText(gctx, s.cfg.Model, BuildPrompt(mode, desc), engine.GenerateOptions{
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, engine.ErrNotConfigured) {
			return Outcome{}, &ConfigurationError{Reason: err.Error()}
		}
		s.log.Warn("text generation failed; using fallback", "error", err)
		return s.ctrl.Recover(ctx, desc, fmt.Errorf("%w: %w", ErrGenerationService, err)), nil
	}
	return s.ctrl.Resolve(ctx, text, desc), nil
}

// Repair runs externally produced markup through the repair path. description seeds the
// fallback when the markup cannot be salvaged.
func (s *Service) Repair(ctx context.Context, markup, description string) (Outcome, error) {
	if strings.TrimSpace(markup) == "" {
		return Outcome{}, &InputError{Field: "mermaid_code", Reason: "must not be empty"}
	}
	return s.ctrl.Resolve(ctx, markup, description), nil
}

func (s *Service) export(ctx context.Context, resp *Response, format OutputFormat, filename string) {
	if s.store == nil {
		resp.ExportError = "artifact storage is not configured"
		return
	}
	base := artifactBase(filename, s.now())
	wantMermaid := format.wantsMermaidFile() || s.cfg.SaveToFile

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if wantMermaid {
		g.Go(func() error {
			loc, err := s.store.Put(gctx, base+".mmd", "text/vnd.mermaid", []byte(resp.MermaidCode))
			if err != nil {
				return fmt.Errorf("write mermaid file: %w", err)
			}
			mu.Lock()
			resp.MermaidFile = loc
			mu.Unlock()
			return nil
		})
	}
	if format.wantsPNG() {
		g.Go(func() error {
			if s.renderer == nil {
				mu.Lock()
				resp.RenderError = "rendering is not configured"
				mu.Unlock()
				return nil
			}
			img, err := s.renderer.Render(gctx, resp.MermaidCode)
			if err != nil {
				s.log.Warn("render failed", "error", err)
				mu.Lock()
				resp.RenderError = err.Error()
				mu.Unlock()
				return nil
			}
			loc, err := s.store.Put(gctx, base+".png", "image/png", img)
			if err != nil {
				return fmt.Errorf("write png file: %w", err)
			}
			mu.Lock()
			resp.PNGFile = loc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("artifact export failed", "error", err)
		resp.ExportError = err.Error()
	}
}

// artifactBase strips directories and a known extension from filename, defaulting to a
// timestamped name.
func artifactBase(filename string, now time.Time) string {
	name := strings.TrimSpace(filename)
	if name != "" {
		name = filepath.Base(filepath.Clean(name))
		switch strings.ToLower(filepath.Ext(name)) {
		case ".mmd", ".png", ".mermaid":
			name = strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "flowchart_" + now.Format("20060102_150405")
	}
	return name
}
