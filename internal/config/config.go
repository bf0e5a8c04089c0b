package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const envPrefix = "LEXASSIST_"

// Hard bounds of the assistant boundary. Config may narrow them, never widen.
const (
	MinQuestionChars  = 10
	MaxQuestionChars  = 1000
	MaxSourcesCeiling = 10

	defaultMinScore = 0.55

	// seconds; a negative rate_limit_window disables the limiter
	defaultRateLimitWindow = 2
)

type Config struct {
	Port            int              `json:"port"`
	JWTSecret       string           `json:"jwt_secret"`
	JWTTTLHours     int              `json:"jwt_ttl_hours"`
	RateLimitWindow int              `json:"rate_limit_window"`
	CORSAllowlist   []string         `json:"cors_allowlist"`
	LogConfig       logger.LogConfig `json:"log_config"`
	Database        DatabaseConfig   `json:"database"`
	AI              AIConfig         `json:"ai"`
	Assistant       AssistantConfig  `json:"assistant"`
	Telemetry       TelemetryConfig  `json:"telemetry"`
	FileStore       FileStoreConfig  `json:"file_store"`
	Jobs            JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type AIProviderConfig struct {
	Name string      `json:"name"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIModelRef struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type AIConfig struct {
	Providers       []AIProviderConfig `json:"providers"`
	Generator       []AIModelRef       `json:"generator"`
	Embedder        []AIModelRef       `json:"embedder"`
	Timeout         int                `json:"timeout"`
	MaxOutputTokens int                `json:"max_output_tokens"`
	EmbedCacheSize  int                `json:"embed_cache_size"`
	EmbedCacheTTL   int                `json:"embed_cache_ttl"`
}

// AssistantConfig holds the tunables of the question answering pipeline.
type AssistantConfig struct {
	DefaultMaxSources int     `json:"default_max_sources"`
	MaxSourcesLimit   int     `json:"max_sources_limit"`
	MinScore          float32 `json:"min_score"`
	Language          string  `json:"language"`
	SnippetChars      int     `json:"snippet_chars"`
	MaxAnswerChars    int     `json:"max_answer_chars"`
	QuestionMinChars  int     `json:"question_min_chars"`
	QuestionMaxChars  int     `json:"question_max_chars"`
}

type TelemetryConfig struct {
	RetentionDays int    `json:"retention_days"`
	ArchivePrefix string `json:"archive_prefix"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	IndexSpec            string `json:"index_spec"`
	IndexBatch           int    `json:"index_batch"`
	EmbedCacheSpec       string `json:"embed_cache_spec"`
	EmbedCacheMaxAge     int    `json:"embed_cache_max_age_days"`
	TelemetryArchiveSpec string `json:"telemetry_archive_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	// min_score is seeded before decoding so an explicit 0 disables the threshold.
	cfg := Config{Assistant: AssistantConfig{MinScore: defaultMinScore}}
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if len(c.AI.Generator) == 0 {
		return fmt.Errorf("ai.generator is required")
	}
	if len(c.AI.Embedder) == 0 {
		return fmt.Errorf("ai.embedder is required")
	}
	a := c.Assistant
	if a.MaxSourcesLimit < 1 || a.MaxSourcesLimit > MaxSourcesCeiling {
		return fmt.Errorf("assistant.max_sources_limit must be within [1, %d]", MaxSourcesCeiling)
	}
	if a.DefaultMaxSources < 1 || a.DefaultMaxSources > a.MaxSourcesLimit {
		return fmt.Errorf("assistant.default_max_sources must be within [1, max_sources_limit]")
	}
	if a.MinScore < 0 || a.MinScore > 1 {
		return fmt.Errorf("assistant.min_score must be within [0, 1]")
	}
	if a.QuestionMinChars < MinQuestionChars || a.QuestionMaxChars > MaxQuestionChars {
		return fmt.Errorf("assistant question bounds must stay within [%d, %d]", MinQuestionChars, MaxQuestionChars)
	}
	if a.QuestionMinChars > a.QuestionMaxChars {
		return fmt.Errorf("assistant.question_min_chars must not exceed question_max_chars")
	}
	switch c.FileStore.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = defaultRateLimitWindow
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 4096
	}
	if cfg.AI.EmbedCacheTTL == 0 {
		cfg.AI.EmbedCacheTTL = 3600
	}
	a := &cfg.Assistant
	if a.MaxSourcesLimit == 0 {
		a.MaxSourcesLimit = MaxSourcesCeiling
	}
	if a.DefaultMaxSources == 0 {
		a.DefaultMaxSources = 5
	}
	if a.Language == "" {
		a.Language = "Spanish"
	}
	if a.SnippetChars == 0 {
		a.SnippetChars = 300
	}
	if a.QuestionMinChars == 0 {
		a.QuestionMinChars = MinQuestionChars
	}
	if a.QuestionMaxChars == 0 {
		a.QuestionMaxChars = MaxQuestionChars
	}
	if cfg.Telemetry.RetentionDays == 0 {
		cfg.Telemetry.RetentionDays = 90
	}
	if cfg.Telemetry.ArchivePrefix == "" {
		cfg.Telemetry.ArchivePrefix = "telemetry"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.FileStore.Type == "local" && cfg.FileStore.Data == nil {
		cfg.FileStore.Data = map[string]interface{}{"dir": "data/archive"}
	}
	j := &cfg.Jobs
	if j.IndexSpec == "" {
		j.IndexSpec = "*/5 * * * *"
	}
	if j.IndexBatch == 0 {
		j.IndexBatch = 20
	}
	if j.EmbedCacheSpec == "" {
		j.EmbedCacheSpec = "30 3 * * *"
	}
	if j.EmbedCacheMaxAge == 0 {
		j.EmbedCacheMaxAge = 30
	}
	if j.TelemetryArchiveSpec == "" {
		j.TelemetryArchiveSpec = "0 4 * * *"
	}
}

// applyEnv lets secrets live outside the config file.
func applyEnv(cfg *Config) {
	if v := lookupEnv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := lookupEnv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	for i := range cfg.AI.Providers {
		p := &cfg.AI.Providers[i]
		name := strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_"))
		v := lookupEnv("AI_" + name + "_API_KEY")
		if v == "" {
			continue
		}
		data, ok := p.Data.(map[string]interface{})
		if !ok || data == nil {
			data = map[string]interface{}{}
		}
		data["api_key"] = v
		p.Data = data
	}
}

func lookupEnv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}
