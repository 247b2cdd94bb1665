package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/flowchart-backend/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		d.Duration = time.Duration(n)
		return nil
	}
	if err := d.parse(node.Value); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			CORSOrigins:       []string{"*"},
		},
		Engine: EngineConfig{
			Type:        "gemini",
			Model:       "gemini-2.0-flash",
			Timeout:     Duration{Duration: 60 * time.Second},
			Temperature: 0.2,
		},
		Flowchart: FlowchartConfig{
			DefaultLevel:      "1",
			GenerationTimeout: Duration{Duration: 60 * time.Second},
		},
		Render: RenderConfig{
			Endpoint: "https://kroki.io/mermaid/png",
			Timeout:  Duration{Duration: 30 * time.Second},
		},
		Artifacts: ArtifactsConfig{
			Mode:      "local",
			OutputDir: "outputs",
		},
		Cache: CacheConfig{
			Mode:      "none",
			Size:      256,
			TTL:       Duration{Duration: time.Hour},
			KeyPrefix: "flowchart:gen:",
		},
	}
}

// Load builds the configuration from defaults, an optional file and environment overrides.
// The file is FLOWCHART_CONFIG_PATH, or ./config/config.{yaml,yml,json} when present; its
// format follows the extension.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("FLOWCHART_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
				p := filepath.Join(wd, "config", name)
				if _, err := os.Stat(p); err == nil {
					cfgPath = p
					break
				}
			}
		}
	}
	if cfgPath != "" {
		if err := loadFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the file onto cfg, so keys the file omits keep their defaults.
func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String(cfg.Env, "LOG_MODE")
	cfg.HTTP.Addr = envutil.String(cfg.HTTP.Addr, "FLOWCHART_HTTP_ADDR")
	if v := envutil.String("", "FLOWCHART_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}

	cfg.Engine.Type = envutil.String(cfg.Engine.Type, "FLOWCHART_ENGINE_TYPE")
	cfg.Engine.BaseURL = envutil.String(cfg.Engine.BaseURL, "FLOWCHART_ENGINE_BASE_URL")
	cfg.Engine.APIKey = envutil.String(cfg.Engine.APIKey, "FLOWCHART_ENGINE_API_KEY")
	cfg.Engine.Model = envutil.String(cfg.Engine.Model, "FLOWCHART_MODEL")
	cfg.Engine.Timeout.Duration = envutil.Duration("FLOWCHART_ENGINE_TIMEOUT", cfg.Engine.Timeout.Duration)
	cfg.Engine.MaxTokens = envutil.Int("FLOWCHART_MAX_TOKENS", cfg.Engine.MaxTokens)

	cfg.Flowchart.DefaultLevel = envutil.String(cfg.Flowchart.DefaultLevel, "FLOWCHART_DEFAULT_LEVEL")
	cfg.Flowchart.GenerationTimeout.Duration = envutil.Duration("FLOWCHART_GENERATION_TIMEOUT", cfg.Flowchart.GenerationTimeout.Duration)
	cfg.Flowchart.SaveToFile = envutil.Bool("FLOWCHART_SAVE_TO_FILE", cfg.Flowchart.SaveToFile)

	cfg.Render.Endpoint = envutil.String(cfg.Render.Endpoint, "FLOWCHART_RENDER_URL")
	cfg.Render.Timeout.Duration = envutil.Duration("FLOWCHART_RENDER_TIMEOUT", cfg.Render.Timeout.Duration)

	cfg.Artifacts.Mode = envutil.String(cfg.Artifacts.Mode, "FLOWCHART_ARTIFACTS_MODE")
	cfg.Artifacts.OutputDir = envutil.String(cfg.Artifacts.OutputDir, "FLOWCHART_OUTPUT_DIR")
	cfg.Artifacts.Bucket = envutil.String(cfg.Artifacts.Bucket, "FLOWCHART_GCS_BUCKET")

	cfg.Cache.Mode = envutil.String(cfg.Cache.Mode, "FLOWCHART_CACHE_MODE")
	cfg.Cache.RedisAddr = envutil.String(cfg.Cache.RedisAddr, "REDIS_ADDR")
}

// providerKeyEnv lists the conventional credential variables per engine type.
var providerKeyEnv = map[string][]string{
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

func (cfg *Config) normalize() error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}

	e := &cfg.Engine
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	e.BaseURL = strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	e.Model = strings.TrimSpace(e.Model)
	switch e.Type {
	case "openai_http", "oai_http":
		e.Type = "oai_http"
		if e.BaseURL == "" {
			return errors.New("engine (oai_http) missing base_url")
		}
		if strings.TrimSpace(e.ChatCompletionsPath) == "" {
			e.ChatCompletionsPath = "/v1/chat/completions"
		}
	case "mock", "openai", "anthropic", "gemini":
	case "":
		return errors.New("engine.type is required")
	default:
		return fmt.Errorf("unsupported engine.type %q", e.Type)
	}
	if strings.TrimSpace(e.APIKey) == "" {
		e.APIKey = envutil.String("", providerKeyEnv[e.Type]...)
	}
	if e.Timeout.Duration <= 0 {
		e.Timeout = Duration{Duration: 60 * time.Second}
	}
	if e.Temperature < 0 || e.Temperature > 2 {
		return fmt.Errorf("engine.temperature %v out of range [0, 2]", e.Temperature)
	}
	if e.MaxTokens < 0 {
		return errors.New("engine.max_tokens must not be negative")
	}

	if strings.TrimSpace(cfg.Flowchart.DefaultLevel) == "" {
		cfg.Flowchart.DefaultLevel = "1"
	}
	if cfg.Flowchart.GenerationTimeout.Duration < 0 {
		return errors.New("flowchart.generation_timeout must not be negative")
	}
	if cfg.Render.Timeout.Duration <= 0 {
		cfg.Render.Timeout = Duration{Duration: 30 * time.Second}
	}

	a := &cfg.Artifacts
	a.Mode = strings.ToLower(strings.TrimSpace(a.Mode))
	switch a.Mode {
	case "", "local":
		a.Mode = "local"
		if strings.TrimSpace(a.OutputDir) == "" {
			a.OutputDir = "outputs"
		}
	case "gcs":
		if strings.TrimSpace(a.Bucket) == "" {
			return errors.New("artifacts (gcs) missing bucket")
		}
	default:
		return fmt.Errorf("unsupported artifacts.mode %q", a.Mode)
	}

	c := &cfg.Cache
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case "", "none":
		c.Mode = "none"
	case "memory":
		if c.Size <= 0 {
			c.Size = 256
		}
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("cache (redis) missing redis_addr")
		}
	default:
		return fmt.Errorf("unsupported cache.mode %q", c.Mode)
	}
	if c.TTL.Duration < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
