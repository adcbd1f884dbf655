package common

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/hotel-reports/constants"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Batch   BatchConfig   `yaml:"batch"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr" validate:"required"`
	GRPCAddr  string `yaml:"grpc_addr"`
	BodyLimit string `yaml:"body_limit"`
}

// LLMConfig holds extraction provider configuration
type LLMConfig struct {
	Provider     string        `yaml:"provider" validate:"oneof=gemini openai"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key" validate:"required"`
	BaseURL      string        `yaml:"base_url" validate:"omitempty,url"`
	Temperature  float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	StrictSchema bool          `yaml:"strict_schema"`
}

// BatchConfig holds pipeline limits
type BatchConfig struct {
	MaxFileMB      int `yaml:"max_file_mb" validate:"gt=0"`
	MaxConcurrency int `yaml:"max_concurrency" validate:"gte=0"`
}

// SessionConfig holds in-memory session lifetime settings
type SessionConfig struct {
	MaxAge          time.Duration `yaml:"max_age" validate:"gt=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"gt=0"`
}

// MaxFileBytes converts MaxFileMB to bytes.
func (b BatchConfig) MaxFileBytes() int64 {
	return int64(b.MaxFileMB) * 1024 * 1024
}

// LoadConfig loads configuration from a .env file (if any), an optional YAML file named by
// REPORTS_CONFIG, and finally environment variables, which win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config.dotenv.skipped", "error", err)
	}

	cfg := defaultConfig()
	if path := os.Getenv("REPORTS_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse config file", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:  ":8080",
			GRPCAddr:  ":9090",
			BodyLimit: "64M",
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Temperature: 0.0,
			Timeout:     90 * time.Second,
		},
		Batch: BatchConfig{
			MaxFileMB:      constants.DefaultMaxFileMB,
			MaxConcurrency: 0,
		},
		Session: SessionConfig{
			MaxAge:          30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.HTTPAddr = getEnv("HTTP_ADDR", cfg.Server.HTTPAddr)
	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.BodyLimit = getEnv("HTTP_BODY_LIMIT", cfg.Server.BodyLimit)

	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.Model = getEnv("OPENAI_MODEL", cfg.LLM.Model)
		cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.BaseURL = getEnv("OPENAI_BASE_URL", cfg.LLM.BaseURL)
	default:
		cfg.LLM.Model = getEnv("GEMINI_MODEL", cfg.LLM.Model)
		// API_KEY is accepted for older deployments.
		cfg.LLM.APIKey = getEnv("GEMINI_API_KEY", getEnv("API_KEY", cfg.LLM.APIKey))
		cfg.LLM.BaseURL = getEnv("GEMINI_BASE_URL", cfg.LLM.BaseURL)
	}
	cfg.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.StrictSchema = getEnvAsBool("LLM_STRICT_SCHEMA", cfg.LLM.StrictSchema)

	cfg.Batch.MaxFileMB = getEnvAsInt("MAX_FILE_MB", cfg.Batch.MaxFileMB)
	cfg.Batch.MaxConcurrency = getEnvAsInt("BATCH_MAX_CONCURRENCY", cfg.Batch.MaxConcurrency)

	cfg.Session.MaxAge = getEnvAsDuration("SESSION_MAX_AGE", cfg.Session.MaxAge)
	cfg.Session.CleanupInterval = getEnvAsDuration("SESSION_CLEANUP_INTERVAL", cfg.Session.CleanupInterval)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return NewAppError("CONFIG_ERROR", strings.Join(msgs, "; "), ErrInvalidInput)
	}
	return NewAppError("CONFIG_ERROR", "invalid configuration", err)
}
