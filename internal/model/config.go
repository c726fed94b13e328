package model

import "time"

// Config is the complete gradelens configuration
type Config struct {
	Flagging FlaggingConfig `yaml:"flagging" mapstructure:"flagging"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
}

// FlaggingConfig holds the auto-flag thresholds
type FlaggingConfig struct {
	ConfidenceThreshold   float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold" validate:"gte=0,lte=1"`
	PercentErrorThreshold float64 `yaml:"percent_error_threshold" mapstructure:"percent_error_threshold" validate:"gte=0"`
	AbsErrorFactor        float64 `yaml:"abs_error_factor" mapstructure:"abs_error_factor" validate:"gte=0"`
}

// OutputConfig controls exports and reports
type OutputConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	Delimiter     string `yaml:"delimiter" mapstructure:"delimiter" validate:"oneof=comma tab"`
	ReportTitle   string `yaml:"report_title" mapstructure:"report_title"`
	QuestionOrder string `yaml:"question_order" mapstructure:"question_order" validate:"omitempty,oneof=appearance id mae_desc"`
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"`
	Findings      bool   `yaml:"findings" mapstructure:"findings"` // key findings + recommendations sections
	Verbose       bool   `yaml:"-" mapstructure:"-"`
}

// BatchConfig controls multi-file processing
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1"`
}

// FetchConfig controls loading datasets from http(s) URLs
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBytes  int64         `yaml:"max_bytes" mapstructure:"max_bytes" validate:"gt=0"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	SessionTTL        time.Duration `yaml:"session_ttl" mapstructure:"session_ttl" validate:"gt=0"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=0"`
	CORSOrigins       []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai"` // "" disables
	Model     string `yaml:"model" mapstructure:"model"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // never written to disk
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Flagging: FlaggingConfig{
			ConfidenceThreshold:   0.6,
			PercentErrorThreshold: 25,
			AbsErrorFactor:        0.3,
		},
		Output: OutputConfig{
			Dir:           "./gradelens-reports",
			Delimiter:     "comma",
			ReportTitle:   "Grading Analysis Report",
			QuestionOrder: string(OrderAppearance),
			IncludeFooter: true,
			Findings:      true,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
		Fetch: FetchConfig{
			Timeout:   30 * time.Second,
			UserAgent: "gradelens/0.1",
			MaxBytes:  20 << 20,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			SessionTTL:        2 * time.Hour,
			MaxUploadBytes:    20 << 20,
			RequestsPerSecond: 20,
			BurstSize:         40,
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 800,
		},
	}
}
