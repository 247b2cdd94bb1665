package flowchart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/flowchart-backend/internal/inference/engine"
	"github.com/yungbote/flowchart-backend/internal/inference/engine/mock"
	"github.com/yungbote/flowchart-backend/internal/mermaid"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

type engineFunc func(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error)

func (f engineFunc) GenerateText(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	return f(ctx, model, messages, opts)
}

type renderFunc func(ctx context.Context, diagram string) ([]byte, error)

func (f renderFunc) Render(ctx context.Context, diagram string) ([]byte, error) { return f(ctx, diagram) }

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (s *memStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[name] = data
	return "mem://" + name, nil
}

func newTestService(eng engine.Engine, r Renderer, st ArtifactStore, cfg ServiceConfig) *Service {
	s := NewService(logger.NewNop(), eng, r, st, cfg)
	s.now = func() time.Time { return time.Date(2026, 10, 17, 10, 15, 0, 0, time.UTC) }
	return s
}

func TestGenerateLoginFlow(t *testing.T) {
	s := newTestService(mock.New(), nil, nil, ServiceConfig{})

	resp, err := s.Generate(context.Background(), Request{
		Description: "Login: Enter credentials → Validate → Success? → Dashboard | Error",
		Level:       "2",
	})
	require.NoError(t, err)

	assert.False(t, resp.Degraded)
	assert.Equal(t, "2", resp.Level)
	assert.Equal(t, "intermediate", resp.Mode)
	assert.Equal(t, "Login: Enter credentials", resp.Title)
	assert.True(t, mermaid.Validate(resp.MermaidCode).OK())

	nodes := mermaid.NewDocument(resp.MermaidCode).Nodes()
	assert.GreaterOrEqual(t, len(nodes), 4)
	diamonds := 0
	for _, n := range nodes {
		if n.Shape == mermaid.ShapeDiamond {
			diamonds++
		}
	}
	assert.Equal(t, 1, diamonds)
	assert.Empty(t, resp.MermaidFile)
}

func TestGenerateTimeoutFallsBack(t *testing.T) {
	slow := engineFunc(func(ctx context.Context, _ string, _ []engine.Message, _ engine.GenerateOptions) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	s := newTestService(slow, nil, nil, ServiceConfig{GenerationTimeout: 10 * time.Millisecond})

	resp, err := s.Generate(context.Background(), Request{Description: "Receive order; check stock; ship it"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, OutcomeFallback, resp.Outcome)
	assert.Equal(t, Fallback("Receive order; check stock; ship it"), resp.MermaidCode)
	assert.True(t, mermaid.Validate(resp.MermaidCode).OK())
}

func TestGeneratePassesPromptAndOptions(t *testing.T) {
	var got []engine.Message
	var gotOpts engine.GenerateOptions
	var gotModel string
	eng := engineFunc(func(_ context.Context, model string, msgs []engine.Message, opts engine.GenerateOptions) (string, error) {
		got, gotOpts, gotModel = msgs, opts, model
		return "flowchart TD\n    A[Pick] --> B[Pack]\n    B --> C[Ship]", nil
	})
	s := newTestService(eng, nil, nil, ServiceConfig{Model: "m1", DefaultLevel: "advanced", Temperature: 0.3, MaxTokens: 900})

	resp, err := s.Generate(context.Background(), Request{Description: "warehouse"})
	require.NoError(t, err)

	advanced, _ := ResolveMode("3")
	assert.Equal(t, BuildPrompt(advanced, "warehouse"), got)
	assert.Equal(t, engine.GenerateOptions{Temperature: 0.3, MaxTokens: 900}, gotOpts)
	assert.Equal(t, "m1", gotModel)
	assert.Equal(t, "3", resp.Level)
	assert.Equal(t, OutcomeValid, resp.Outcome)
}

func TestGenerateInputErrors(t *testing.T) {
	s := newTestService(mock.New(), nil, nil, ServiceConfig{})

	cases := []struct {
		req   Request
		field string
	}{
		{Request{Description: "   "}, "description"},
		{Request{Description: "x", Level: "4"}, "level"},
		{Request{Description: "x", OutputFormat: "svg"}, "output_format"},
	}
	for _, tc := range cases {
		_, err := s.Generate(context.Background(), tc.req)
		var ie *InputError
		require.True(t, errors.As(err, &ie), "%+v", tc.req)
		assert.Equal(t, tc.field, ie.Field)
		assert.ErrorIs(t, err, ErrInput)
	}

	_, err := s.Generate(context.Background(), Request{Description: "x", Level: "4"})
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestGenerateConfigurationErrors(t *testing.T) {
	_, err := newTestService(nil, nil, nil, ServiceConfig{}).Generate(context.Background(), Request{Description: "x"})
	assert.ErrorIs(t, err, ErrConfiguration)

	rejected := &mock.Engine{Err: fmt.Errorf("bad key: %w", engine.ErrNotConfigured)}
	_, err = newTestService(rejected, nil, nil, ServiceConfig{}).Generate(context.Background(), Request{Description: "x"})
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Reason, "bad key")
}

func TestGenerateExportsArtifacts(t *testing.T) {
	store := &memStore{}
	png := []byte{0x89, 'P', 'N', 'G'}
	r := renderFunc(func(_ context.Context, diagram string) ([]byte, error) { return png, nil })
	s := newTestService(mock.New(), r, store, ServiceConfig{})

	resp, err := s.Generate(context.Background(), Request{Description: "Order → Pay", OutputFormat: "both", Filename: "../out/My Chart.png"})
	require.NoError(t, err)

	assert.Equal(t, "mem://My Chart.mmd", resp.MermaidFile)
	assert.Equal(t, "mem://My Chart.png", resp.PNGFile)
	assert.Empty(t, resp.RenderError)
	assert.Empty(t, resp.ExportError)
	assert.Equal(t, resp.MermaidCode, string(store.files["My Chart.mmd"]))
	assert.Equal(t, png, store.files["My Chart.png"])
}

func TestGenerateRenderFailureKeepsDiagram(t *testing.T) {
	store := &memStore{}
	r := renderFunc(func(context.Context, string) ([]byte, error) { return nil, errors.New("renderer down") })
	s := newTestService(mock.New(), r, store, ServiceConfig{})

	resp, err := s.Generate(context.Background(), Request{Description: "Order → Pay", OutputFormat: "png"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.MermaidCode)
	assert.Equal(t, "renderer down", resp.RenderError)
	assert.Empty(t, resp.PNGFile)
	assert.Empty(t, resp.MermaidFile)
}

func TestGenerateSaveToFileUsesTimestampedName(t *testing.T) {
	store := &memStore{}
	s := newTestService(mock.New(), nil, store, ServiceConfig{SaveToFile: true})

	resp, err := s.Generate(context.Background(), Request{Description: "Order → Pay"})
	require.NoError(t, err)

	assert.Equal(t, "mem://flowchart_20261017_101500.mmd", resp.MermaidFile)
}

func TestGenerateStoreFailureIsReported(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	s := newTestService(mock.New(), nil, store, ServiceConfig{SaveToFile: true})

	resp, err := s.Generate(context.Background(), Request{Description: "Order → Pay"})
	require.NoError(t, err)
	assert.Contains(t, resp.ExportError, "disk full")
	assert.Empty(t, resp.MermaidFile)
}

func TestRepair(t *testing.T) {
	s := newTestService(nil, nil, nil, ServiceConfig{})

	out, err := s.Repair(context.Background(), "flowchart TD\n    A[Start --> B[Step 1]\n    B --> End", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRepaired, out.Kind())

	_, err = s.Repair(context.Background(), " ", "")
	assert.ErrorIs(t, err, ErrInput)
}

func TestArtifactBase(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "flowchart_20260102_030405", artifactBase("", now))
	assert.Equal(t, "flowchart_20260102_030405", artifactBase("/", now))
	assert.Equal(t, "report", artifactBase("a/b/report.mmd", now))
	assert.Equal(t, "report.v2", artifactBase("report.v2", now))
}
