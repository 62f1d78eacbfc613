// Package config loads docforge settings from the environment.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider selects the completion backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderBedrock   Provider = "bedrock"
)

// Store backends for generated artifacts.
const (
	StoreFile      = "file"
	StoreMinIO     = "minio"
	StoreSurrealDB = "surrealdb"
)

// Config holds all configuration values.
type Config struct {
	// Completion backend
	LLMProvider     Provider
	LLMModel        string
	LLMTimeout      time.Duration
	LLMRPS          float64
	LLMBurst        int
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	AWSRegion       string

	// Encoded images kept in memory across agents
	ImageCacheSize int

	// Artifact persistence
	Stores    []string
	OutputDir string

	// MinIO / S3
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
// A .env file in the working directory is read first; variables already set win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	provider := Provider(strings.ToLower(getEnv("DOCFORGE_LLM_PROVIDER", string(ProviderGemini))))

	return Config{
		LLMProvider:     provider,
		LLMModel:        getEnv("DOCFORGE_LLM_MODEL", DefaultModel(provider)),
		LLMTimeout:      getDuration("DOCFORGE_LLM_TIMEOUT", 5*time.Minute),
		LLMRPS:          getFloat("DOCFORGE_LLM_RPS", 0),
		LLMBurst:        getInt("DOCFORGE_LLM_BURST", 1),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		ImageCacheSize: getInt("DOCFORGE_IMAGE_CACHE", 64),

		Stores:    splitList(getEnv("DOCFORGE_STORE", StoreFile)),
		OutputDir: getEnv("DOCFORGE_OUTPUT_DIR", ""),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "docforge"),
		MinIOUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "docforge"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "artifacts"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LogFile:  getEnv("DOCFORGE_LOG_FILE", "/tmp/docforge.log"),
		LogLevel: parseLogLevel(getEnv("DOCFORGE_LOG_LEVEL", "INFO")),
	}
}

// DefaultModel returns the model used when DOCFORGE_LLM_MODEL is unset.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOllama:
		return "llava"
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	case ProviderBedrock:
		return "anthropic.claude-3-5-sonnet-20240620-v1:0"
	default:
		return "gemini-2.0-flash"
	}
}

// HasStore reports whether the named artifact store is enabled.
func (c Config) HasStore(name string) bool {
	for _, s := range c.Stores {
		if s == name {
			return true
		}
	}
	return false
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
