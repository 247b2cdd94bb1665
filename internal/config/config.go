package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`

	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

type EngineConfig struct {
	// Type is one of mock, oai_http, openai, anthropic, gemini.
	Type string `json:"type" yaml:"type"`

	// BaseURL is required for oai_http and overrides the provider endpoint for the SDK engines.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey falls back to the provider's conventional environment variable when empty.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	ChatCompletionsPath string `json:"chat_completions_path,omitempty" yaml:"chat_completions_path,omitempty"`

	Timeout     Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Temperature float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

type FlowchartConfig struct {
	DefaultLevel      string   `json:"default_level" yaml:"default_level"`
	GenerationTimeout Duration `json:"generation_timeout" yaml:"generation_timeout"`
	SaveToFile        bool     `json:"save_to_file" yaml:"save_to_file"`
}

type RenderConfig struct {
	// Endpoint receives {"diagram_source": ...} and answers with PNG bytes.
	Endpoint string   `json:"endpoint" yaml:"endpoint"`
	Timeout  Duration `json:"timeout" yaml:"timeout"`
}

type ArtifactsConfig struct {
	// Mode is local or gcs.
	Mode      string `json:"mode" yaml:"mode"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	Bucket    string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

type CacheConfig struct {
	// Mode is none, memory or redis.
	Mode      string   `json:"mode" yaml:"mode"`
	Size      int      `json:"size,omitempty" yaml:"size,omitempty"`
	TTL       Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	RedisAddr string   `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	KeyPrefix string   `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

type Config struct {
	Env       string          `json:"env" yaml:"env"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Flowchart FlowchartConfig `json:"flowchart" yaml:"flowchart"`
	Render    RenderConfig    `json:"render" yaml:"render"`
	Artifacts ArtifactsConfig `json:"artifacts" yaml:"artifacts"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
}
