package flowchart

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/flowchart-backend/internal/mermaid"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

// State is a step of the escalation ladder a diagram moves through before it is emitted.
type State string

const (
	StateRaw             State = "RAW"
	StateExtracted       State = "EXTRACTED"
	StateValid           State = "VALID"
	StateNeedsRepair     State = "NEEDS_REPAIR"
	StateRepaired        State = "REPAIRED"
	StateUnrecoverable   State = "UNRECOVERABLE"
	StateEmitted         State = "EMITTED"
	StateFallbackEmitted State = "FALLBACK_EMITTED"
)

const (
	OutcomeValid    = "valid"
	OutcomeRepaired = "repaired"
	OutcomeFallback = "fallback"
)

// Outcome is the terminal result of one pass through the controller.
type Outcome struct {
	Code     string
	State    State
	Path     []State
	Degraded bool
	// Reason is set when the fallback generator produced Code.
	Reason error
	Report mermaid.Report
}

// Kind summarizes how Code was produced: "valid", "repaired" or "fallback".
func (o Outcome) Kind() string {
	if o.Degraded {
		return OutcomeFallback
	}
	for _, s := range o.Path {
		if s == StateNeedsRepair {
			return OutcomeRepaired
		}
	}
	return OutcomeValid
}

type Controller struct {
	log    *logger.Logger
	tracer trace.Tracer
	// normalize is the fixed pass sequence run after each sanitize round.
	normalize func(*mermaid.Document)
}

func NewController(log *logger.Logger) *Controller {
	return &Controller{
		log:       log.With("component", "flowchart.controller"),
		tracer:    otel.Tracer("flowchart/controller"),
		normalize: normalize,
	}
}

type run struct {
	c    *Controller
	span trace.Span
	path []State
}

func (r *run) enter(s State, kv ...interface{}) {
	r.path = append(r.path, s)
	r.span.AddEvent("state", trace.WithAttributes(attribute.String("flowchart.state", string(s))))
	r.c.log.Debug("flowchart state", append([]interface{}{"state", string(s)}, kv...)...)
}

// emit re-checks the exact text being returned; text that no longer validates goes to
// the fallback instead.
func (r *run) emit(doc *mermaid.Document, description string) Outcome {
	code := doc.String()
	report := mermaid.Validate(code)
	if !report.OK() {
		r.enter(StateUnrecoverable, "errors", report.Messages())
		return r.fallback(description, fmt.Errorf("%w: %s", ErrValidation, strings.Join(report.Messages(), "; ")))
	}
	r.enter(StateEmitted)
	return Outcome{
		Code:   code,
		State:  StateEmitted,
		Path:   r.path,
		Report: report,
	}
}

func (r *run) fallback(description string, reason error) Outcome {
	code := Fallback(description)
	r.enter(StateFallbackEmitted)
	r.span.SetAttributes(attribute.Bool("flowchart.degraded", true))
	r.span.SetStatus(codes.Error, reason.Error())
	r.c.log.Warn("flowchart fallback emitted", "reason", reason.Error(), "path", pathString(r.path))
	return Outcome{
		Code:     code,
		State:    StateFallbackEmitted,
		Path:     r.path,
		Degraded: true,
		Reason:   reason,
		Report:   mermaid.Validate(code),
	}
}

// Resolve takes raw model output (or user markup) to an emitted diagram. Valid input is
// touched only for header and spacing, and goes to repair if that touch breaks it;
// invalid input goes through two rounds of repair; anything still invalid is replaced by
// the fallback for description. Emitted code always passes mermaid.Validate.
func (c *Controller) Resolve(ctx context.Context, raw, description string) (out Outcome) {
	_, span := c.tracer.Start(ctx, "flowchart.resolve")
	defer span.End()

	r := &run{c: c, span: span}
	r.enter(StateRaw, "raw_bytes", len(raw))
	defer func() {
		if p := recover(); p != nil {
			c.log.Error("flowchart repair panicked", "panic", fmt.Sprint(p))
			if len(r.path) == 0 || r.path[len(r.path)-1] != StateUnrecoverable {
				r.enter(StateUnrecoverable)
			}
			out = r.fallback(description, fmt.Errorf("%w: repair panicked: %v", ErrValidation, p))
		}
	}()

	extracted := mermaid.Extract(raw)
	if extracted == "" {
		if body := headerlessBody(raw); body != "" {
			extracted = mermaid.Header{}.String() + "\n" + body
		}
	}
	if extracted == "" {
		r.enter(StateUnrecoverable)
		return r.fallback(description, ErrExtraction)
	}
	r.enter(StateExtracted)

	doc := mermaid.NewDocument(extracted)
	doc.WrapSpecialLabels()
	report := doc.Validate()
	if report.OK() {
		touched := mermaid.NewDocument(doc.String())
		touched.NormalizeHeader()
		touched.NormalizeSpacing()
		if report = touched.Validate(); report.OK() {
			r.enter(StateValid)
			return r.emit(touched, description)
		}
	}

	r.enter(StateNeedsRepair, "syntax_errors", len(report.SyntaxErrors), "problems", report.Problems)
	doc.Sanitize()
	c.normalize(doc)
	r.enter(StateRepaired)

	if report = doc.Validate(); !report.OK() {
		r.c.log.Debug("flowchart second repair round", "errors", report.Messages())
		doc.FixBrackets(report)
		doc.Sanitize()
		c.normalize(doc)
		report = doc.Validate()
	}
	if !report.OK() {
		r.enter(StateUnrecoverable, "errors", report.Messages())
		return r.fallback(description, fmt.Errorf("%w: %s", ErrValidation, strings.Join(report.Messages(), "; ")))
	}
	r.enter(StateValid)
	return r.emit(doc, description)
}

// Recover emits the fallback for a generation that produced nothing usable.
func (c *Controller) Recover(ctx context.Context, description string, reason error) Outcome {
	_, span := c.tracer.Start(ctx, "flowchart.recover")
	defer span.End()

	r := &run{c: c, span: span}
	r.enter(StateRaw)
	r.enter(StateUnrecoverable, "reason", reason.Error())
	return r.fallback(description, reason)
}

func normalize(doc *mermaid.Document) {
	doc.RemoveDuplicateDefinitions()
	doc.FinalCleanup()
	doc.NormalizeHeader()
	doc.NormalizeEndNodes()
	doc.NormalizeSpacing()
	doc.WrapSpecialLabels()
}

// headerlessBody returns raw stripped of a code fence when it looks like diagram
// statements that only lack the flowchart header.
func headerlessBody(raw string) string {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```mermaid")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)
	if !strings.Contains(body, mermaid.Arrow) {
		return ""
	}
	return body
}

func pathString(path []State) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = string(s)
	}
	return strings.Join(parts, ">")
}
