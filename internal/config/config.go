package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/utils"
)

// Config carries the pipeline defaults. Values come from the optional
// YAML file pointed at by CONFIG_PATH, with environment variables taking
// precedence for the ones operators most often override.
type Config struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	DefaultTopK  int `yaml:"default_top_k"`

	MaxFileSizeMB    int      `yaml:"max_file_size_mb"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types"`

	VectorDim     int `yaml:"vector_dim"`
	HistoryWindow int `yaml:"history_window"`
}

func defaults() Config {
	return Config{
		Port:             "8080",
		LogMode:          "development",
		ChunkSize:        1000,
		ChunkOverlap:     150,
		DefaultTopK:      5,
		MaxFileSizeMB:    10,
		AllowedMimeTypes: []string{"application/pdf"},
		VectorDim:        768,
		HistoryWindow:    12,
	}
}

func Load(log *logger.Logger) (Config, error) {
	cfg := defaults()

	if path := utils.GetEnv("CONFIG_PATH", "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.LogMode = utils.GetEnv("LOG_MODE", cfg.LogMode, log)
	cfg.ChunkSize = utils.GetEnvAsInt("CHUNK_SIZE", cfg.ChunkSize, log)
	cfg.ChunkOverlap = utils.GetEnvAsInt("CHUNK_OVERLAP", cfg.ChunkOverlap, log)
	cfg.DefaultTopK = utils.GetEnvAsInt("DEFAULT_TOP_K", cfg.DefaultTopK, log)
	cfg.MaxFileSizeMB = utils.GetEnvAsInt("MAX_FILE_SIZE_MB", cfg.MaxFileSizeMB, log)
	cfg.VectorDim = utils.GetEnvAsInt("VECTOR_DIM", cfg.VectorDim, log)
	cfg.HistoryWindow = utils.GetEnvAsInt("HISTORY_WINDOW", cfg.HistoryWindow, log)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}
	if c.VectorDim <= 0 {
		return fmt.Errorf("vector_dim must be positive, got %d", c.VectorDim)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history_window must be positive, got %d", c.HistoryWindow)
	}
	if len(c.AllowedMimeTypes) == 0 {
		return fmt.Errorf("allowed_mime_types must not be empty")
	}
	return nil
}

func (c Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}
