// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default ports for the two services. Each binary passes its own to Load.
const (
	DefaultEmbeddingServicePort = "8002"
	DefaultVectorServicePort    = "8003"
)

// DefaultEmbeddingModel is the multilingual sentence model (384-dimensional output).
const DefaultEmbeddingModel = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"

// Qdrant transports.
const (
	QdrantTransportREST = "rest"
	QdrantTransportGRPC = "grpc"
)

// Config holds all application configuration shared by the embedding and vector services.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Embedding provider (embedding service)
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIBaseURL string
	EmbeddingAPIKey     string
	// EmbeddingDimensions is forwarded to providers that support it; 0 means model native.
	EmbeddingDimensions int
	// EmbeddingRateLimit caps provider calls per second; 0 disables limiting.
	EmbeddingRateLimit float64

	// Vector index engine (vector service)
	QdrantHost      string
	QdrantPort      int
	QdrantGRPCPort  int
	QdrantTransport string
	QdrantAPIKey    string

	// Embedding service as seen from the vector service
	EmbeddingServiceURL     string
	EmbeddingServiceTimeout time.Duration

	VectorSize     int
	SearchMaxLimit int
	QueryCacheSize int

	MaxRequestBodyBytes int64

	MetricsEnabled     bool
	OtelTracesExporter string
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("30s") or plain seconds ("30").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}

// Load reads configuration from environment variables and returns a Config struct.
// It automatically loads .env file if it exists. defaultPort is used when PORT is unset.
func Load(defaultPort string) (*Config, error) {
	// Skip logging when absent (e.g. env from secrets/parameter store).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	vectorSize := getEnvAsInt("VECTOR_SIZE", 384)
	if vectorSize <= 0 {
		return nil, errors.New("VECTOR_SIZE must be a positive integer")
	}

	qdrantTransport := strings.ToLower(getEnv("QDRANT_TRANSPORT", QdrantTransportREST))
	if qdrantTransport != QdrantTransportREST && qdrantTransport != QdrantTransportGRPC {
		return nil, fmt.Errorf("QDRANT_TRANSPORT must be %q or %q, got %q",
			QdrantTransportREST, QdrantTransportGRPC, qdrantTransport)
	}

	embeddingDimensions := getEnvAsInt("EMBEDDING_DIMENSIONS", 0)
	if embeddingDimensions < 0 {
		return nil, errors.New("EMBEDDING_DIMENSIONS must not be negative")
	}

	embeddingTimeout := getEnvAsDuration("EMBEDDING_SERVICE_TIMEOUT", 30*time.Second)
	if embeddingTimeout <= 0 {
		return nil, errors.New("EMBEDDING_SERVICE_TIMEOUT must be positive")
	}

	cfg := &Config{
		Port:      getEnv("PORT", defaultPort),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		EmbeddingProvider:   strings.ToLower(getEnv("EMBEDDING_PROVIDER", "openai")),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", DefaultEmbeddingModel),
		EmbeddingAPIBaseURL: getEnv("EMBEDDING_API_BASE_URL", ""),
		EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingDimensions: embeddingDimensions,
		EmbeddingRateLimit:  max(getEnvAsFloat("EMBEDDING_RATE_LIMIT", 0), 0),

		QdrantHost:      getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:      getEnvAsInt("QDRANT_PORT", 6333),
		QdrantGRPCPort:  getEnvAsInt("QDRANT_GRPC_PORT", 6334),
		QdrantTransport: qdrantTransport,
		QdrantAPIKey:    getEnv("QDRANT_API_KEY", ""),

		EmbeddingServiceURL:     strings.TrimRight(getEnv("EMBEDDING_SERVICE_URL", "http://localhost:8002"), "/"),
		EmbeddingServiceTimeout: embeddingTimeout,

		VectorSize:     vectorSize,
		SearchMaxLimit: max(getEnvAsInt("SEARCH_MAX_LIMIT", 100), 0),
		QueryCacheSize: max(getEnvAsInt("QUERY_CACHE_SIZE", 1000), 0),

		MaxRequestBodyBytes: int64(getEnvAsInt("MAX_REQUEST_BODY_BYTES", 4<<20)),

		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", false),
		OtelTracesExporter: getEnv("OTEL_TRACES_EXPORTER", ""),
	}

	return cfg, nil
}

// QdrantEndpoint returns the base URL of the Qdrant REST API.
func (c *Config) QdrantEndpoint() string {
	return fmt.Sprintf("http://%s:%d", c.QdrantHost, c.QdrantPort)
}
