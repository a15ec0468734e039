package config

import "time"

// DefaultVideoExtensions are the upload and watch extensions accepted by default.
var DefaultVideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".webm", ".m4v", ".flv"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.VideoDB.BaseURL == "" {
		cfg.VideoDB.BaseURL = "https://api.videodb.io"
	}
	if cfg.VideoDB.Collection == "" {
		cfg.VideoDB.Collection = "default"
	}
	if cfg.VideoDB.PollInterval == 0 {
		cfg.VideoDB.PollInterval = 10 * time.Second
	}
	if cfg.VideoDB.TranscriptTimeout == 0 {
		cfg.VideoDB.TranscriptTimeout = 180 * time.Second
	}
	if cfg.VideoDB.RequestTimeout == 0 {
		cfg.VideoDB.RequestTimeout = 60 * time.Second
	}
	if cfg.VideoDB.MaxRetries == 0 {
		cfg.VideoDB.MaxRetries = 3
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderGemini
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderOpenAI:
			cfg.LLM.Model = "gpt-4o-mini"
		default:
			cfg.LLM.Model = "gemini-1.5-flash"
		}
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 90 * time.Second
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = cfg.LLM.Provider
	}
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == cfg.LLM.Provider {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.Model = "text-embedding-3-small"
		default:
			cfg.Embedding.Model = "models/embedding-001"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}

	if cfg.Analysis.MaxTopics == 0 {
		cfg.Analysis.MaxTopics = 7
	}
	if cfg.Analysis.MaxTranscriptLength == 0 {
		cfg.Analysis.MaxTranscriptLength = 4000
	}

	if cfg.Quiz.DefaultQuestions == 0 {
		cfg.Quiz.DefaultQuestions = 5
	}
	if cfg.Quiz.MaxQuestions == 0 {
		cfg.Quiz.MaxQuestions = 10
	}
	if cfg.Quiz.MinQuestions == 0 {
		cfg.Quiz.MinQuestions = 3
	}
	if cfg.Quiz.PassingScore == 0 {
		cfg.Quiz.PassingScore = 60
	}
	if cfg.Quiz.MaxTranscriptLength == 0 {
		cfg.Quiz.MaxTranscriptLength = 8000
	}

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.MaxTokens == 0 {
		cfg.RAG.MaxTokens = 500
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.SimilarK == 0 {
		cfg.RAG.SimilarK = 3
	}
	if cfg.RAG.ChainType == "" {
		cfg.RAG.ChainType = "stuff"
	}
	if cfg.RAG.SearchType == "" {
		cfg.RAG.SearchType = "similarity"
	}
	if cfg.RAG.CleanupRetries == 0 {
		cfg.RAG.CleanupRetries = 3
	}
	if cfg.RAG.CleanupBackoff == 0 {
		cfg.RAG.CleanupBackoff = 200 * time.Millisecond
	}

	if cfg.Upload.MaxFileSizeMB == 0 {
		cfg.Upload.MaxFileSizeMB = 500
	}
	if cfg.Upload.AllowedExtensions == nil {
		cfg.Upload.AllowedExtensions = append([]string(nil), DefaultVideoExtensions...)
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = append([]string(nil), cfg.Upload.AllowedExtensions...)
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
