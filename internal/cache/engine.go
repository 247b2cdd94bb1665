package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/flowchart-backend/internal/inference/engine"
	"github.com/yungbote/flowchart-backend/internal/platform/logger"
)

const entrySchema uint16 = 1

type entry struct {
	Schema    uint16    `msgpack:"schema"`
	Text      string    `msgpack:"text"`
	Model     string    `msgpack:"model"`
	CreatedAt time.Time `msgpack:"created_at"`
}

type keyMaterial struct {
	Schema   uint16           `msgpack:"schema"`
	Model    string           `msgpack:"model"`
	Messages []engine.Message `msgpack:"messages"`
	Temp     float64          `msgpack:"temperature"`
	Max      int              `msgpack:"max_tokens"`
}

// Engine wraps another engine and serves identical requests from a Backend.
// Concurrent identical requests share one upstream call.
type Engine struct {
	next    engine.Engine
	backend Backend
	log     *logger.Logger
	group   singleflight.Group
}

// Wrap returns next unchanged when backend is nil.
func Wrap(log *logger.Logger, next engine.Engine, backend Backend) engine.Engine {
	if backend == nil || next == nil {
		return next
	}
	return &Engine{next: next, backend: backend, log: log.With("component", "cache.engine")}
}

func Key(model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	b, err := msgpack.Marshal(keyMaterial{
		Schema:   entrySchema,
		Model:    model,
		Messages: messages,
		Temp:     opts.Temperature,
		Max:      opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	key, err := Key(model, messages, opts)
	if err != nil {
		return e.next.GenerateText(ctx, model, messages, opts)
	}

	if raw, ok, err := e.backend.Get(ctx, key); err != nil {
		e.log.Warn("cache read failed", "error", err)
	} else if ok {
		var ent entry
		if err := msgpack.Unmarshal(raw, &ent); err == nil && ent.Schema == entrySchema {
			e.log.Debug("cache hit", "key", key[:12])
			return ent.Text, nil
		}
	}

	v, err, shared := e.group.Do(key, func() (interface{}, error) {
		text, err := e.next.GenerateText(ctx, model, messages, opts)
		if err != nil {
			return "", err
		}
		raw, err := msgpack.Marshal(entry{Schema: entrySchema, Text: text, Model: model, CreatedAt: time.Now().UTC()})
		if err == nil {
			err = e.backend.Set(context.WithoutCancel(ctx), key, raw)
		}
		if err != nil {
			e.log.Warn("cache write failed", "error", err)
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		e.log.Debug("cache request coalesced", "key", key[:12])
	}
	return v.(string), nil
}
