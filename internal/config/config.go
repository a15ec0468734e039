// Package config provides configuration loading and structs for the vidlens server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by LLMConfig.Provider and EmbeddingConfig.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	VideoDB   VideoDBConfig   `yaml:"videodb"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Social    SocialConfig    `yaml:"social"`
	Quiz      QuizConfig      `yaml:"quiz"`
	RAG       RAGConfig       `yaml:"rag"`
	Upload    UploadConfig    `yaml:"upload"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// VideoDBConfig holds the video indexing service settings.
type VideoDBConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Collection        string        `yaml:"collection"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	TranscriptTimeout time.Duration `yaml:"transcript_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
}

// LLMConfig holds completion provider settings.
type LLMConfig struct {
	Provider         string        `yaml:"provider"`
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	MaxTokens        int           `yaml:"max_tokens"`
	StructuredOutput *bool         `yaml:"structured_output"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
}

// StructuredOutputOrDefault returns whether to request schema-constrained JSON; defaults to true when unset.
func (l *LLMConfig) StructuredOutputOrDefault() bool {
	if l.StructuredOutput != nil {
		return *l.StructuredOutput
	}
	return true
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// AnalysisConfig holds summary and topic extraction settings.
type AnalysisConfig struct {
	Temperature         *float64 `yaml:"temperature"`
	MaxTopics           int      `yaml:"max_topics"`
	MaxTranscriptLength int      `yaml:"max_transcript_length"`
}

// TemperatureOrDefault returns the analysis temperature; defaults to 0.7 when unset.
func (a *AnalysisConfig) TemperatureOrDefault() float64 {
	return temperatureOr(a.Temperature, 0.7)
}

// SocialConfig holds social post generation settings.
type SocialConfig struct {
	Temperature *float64 `yaml:"temperature"`
}

// TemperatureOrDefault returns the post temperature; defaults to 0.8 when unset.
func (s *SocialConfig) TemperatureOrDefault() float64 {
	return temperatureOr(s.Temperature, 0.8)
}

// QuizConfig holds quiz generation and scoring settings.
type QuizConfig struct {
	DefaultQuestions    int      `yaml:"default_questions"`
	MaxQuestions        int      `yaml:"max_questions"`
	MinQuestions        int      `yaml:"min_questions"`
	PassingScore        float64  `yaml:"passing_score"`
	MaxTranscriptLength int      `yaml:"max_transcript_length"`
	Temperature         *float64 `yaml:"temperature"`
}

// TemperatureOrDefault returns the quiz temperature; defaults to 0.3 when unset.
func (q *QuizConfig) TemperatureOrDefault() float64 {
	return temperatureOr(q.Temperature, 0.3)
}

// RAGConfig holds chunking, retrieval, and workspace settings for RAG sessions.
type RAGConfig struct {
	ChunkSize      int           `yaml:"chunk_size"`
	ChunkOverlap   int           `yaml:"chunk_overlap"`
	Temperature    *float64      `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	TopK           int           `yaml:"top_k"`
	SimilarK       int           `yaml:"similar_k"`
	ChainType      string        `yaml:"chain_type"`
	SearchType     string        `yaml:"search_type"`
	WorkDir        string        `yaml:"work_dir"`
	KeywordIndex   *bool         `yaml:"keyword_index"`
	CleanupRetries int           `yaml:"cleanup_retries"`
	CleanupBackoff time.Duration `yaml:"cleanup_backoff"`
}

// KeywordIndexOrDefault returns whether sessions build a keyword index; defaults to true when unset.
func (r *RAGConfig) KeywordIndexOrDefault() bool {
	if r.KeywordIndex != nil {
		return *r.KeywordIndex
	}
	return true
}

// TemperatureOrDefault returns the answer temperature; defaults to 0.7 when unset.
func (r *RAGConfig) TemperatureOrDefault() float64 {
	return temperatureOr(r.Temperature, 0.7)
}

// Float64 returns a pointer to v, for setting optional fields in code.
func Float64(v float64) *float64 { return &v }

// temperatureOr returns *t, or def when t is nil. An explicit 0 is kept.
func temperatureOr(t *float64, def float64) float64 {
	if t != nil {
		return *t
	}
	return def
}

// UploadConfig holds local file upload limits.
type UploadConfig struct {
	MaxFileSizeMB     int64    `yaml:"max_file_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (u *UploadConfig) MaxFileSizeBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// WatchConfig holds drop-folder watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// LoadEnv loads KEY=value pairs from the given .env files (default ".env") into the
// process environment. Missing files are ignored; existing variables are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.RAG.WorkDir = expandPath(cfg.RAG.WorkDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Default returns a config built from defaults and the environment only.
func Default() *Config {
	var cfg Config
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides credentials and provider selection from the environment.
// VIDEODB_API_KEY, GOOGLE_API_KEY and OPENAI_API_KEY fill empty keys; VIDLENS_*
// variables always win.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("VIDEODB_API_KEY"); v != "" && cfg.VideoDB.APIKey == "" {
		cfg.VideoDB.APIKey = v
	}
	if v := os.Getenv("VIDLENS_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("VIDLENS_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("VIDLENS_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = strings.ToLower(v)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}
	if cfg.Embedding.APIKey == "" {
		provider := cfg.Embedding.Provider
		if provider == "" {
			provider = cfg.LLM.Provider
		}
		cfg.Embedding.APIKey = providerKeyFromEnv(provider)
	}
}

func providerKeyFromEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderMock:
		return ""
	default:
		return os.Getenv("GOOGLE_API_KEY")
	}
}

// Validate reports missing credentials and out-of-range settings.
func (c *Config) Validate() error {
	var errs []error
	if c.VideoDB.APIKey == "" {
		errs = append(errs, errors.New("videodb.api_key (VIDEODB_API_KEY) is required"))
	}
	if c.LLM.Provider != ProviderMock && c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider))
	}
	if c.Embedding.Provider != ProviderMock && c.Embedding.APIKey == "" {
		errs = append(errs, fmt.Errorf("embedding.api_key is required for provider %q", c.Embedding.Provider))
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d)", c.RAG.ChunkOverlap, c.RAG.ChunkSize))
	}
	if c.Quiz.MinQuestions > c.Quiz.MaxQuestions {
		errs = append(errs, fmt.Errorf("quiz.min_questions (%d) exceeds quiz.max_questions (%d)", c.Quiz.MinQuestions, c.Quiz.MaxQuestions))
	}
	temps := []struct {
		name string
		v    *float64
	}{
		{"analysis.temperature", c.Analysis.Temperature},
		{"social.temperature", c.Social.Temperature},
		{"quiz.temperature", c.Quiz.Temperature},
		{"rag.temperature", c.RAG.Temperature},
	}
	for _, t := range temps {
		if t.v != nil && (*t.v < 0 || *t.v > 2) {
			errs = append(errs, fmt.Errorf("%s must be in [0,2], got %g", t.name, *t.v))
		}
	}
	return errors.Join(errs...)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
