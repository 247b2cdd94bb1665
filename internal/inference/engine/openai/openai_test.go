package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/flowchart-backend/internal/config"
	"github.com/yungbote/flowchart-backend/internal/inference/engine"
)

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in["model"] != "gpt-test" {
			t.Fatalf("model=%v", in["model"])
		}
		if in["instructions"] != "be strict" {
			t.Fatalf("instructions=%v", in["instructions"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"created_at": 0,
			"model": "gpt-test",
			"status": "completed",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "flowchart TD", "annotations": []}]
			}]
		}`))
	}))
	defer srv.Close()

	e, err := New(config.EngineConfig{APIKey: "k", BaseURL: srv.URL, Model: "gpt-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := e.GenerateText(context.Background(), "", []engine.Message{
		{Role: "system", Content: "be strict"},
		{Role: "user", Content: "draw"},
	}, engine.GenerateOptions{Temperature: 0.2})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "flowchart TD" {
		t.Fatalf("out=%q", out)
	}
}

func TestGenerateText_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e, err := New(config.EngineConfig{APIKey: "k", BaseURL: srv.URL, Model: "gpt-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = e.GenerateText(context.Background(), "", []engine.Message{{Role: "user", Content: "draw"}}, engine.GenerateOptions{})
	if !errors.Is(err, engine.ErrNotConfigured) {
		t.Fatalf("err=%v", err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := New(config.EngineConfig{}); !errors.Is(err, engine.ErrNotConfigured) {
		t.Fatalf("err=%v", err)
	}
}
