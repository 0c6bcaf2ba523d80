package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Dataset sources
const (
	DatasetSourceFiles    = "files"
	DatasetSourcePostgres = "postgres"
)

// Model providers
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Dataset       DatasetConfig
	Database      DatabaseConfig
	Embedder      ModelConfig
	Generator     GeneratorConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatasetConfig selects where recipes and embeddings are loaded from
type DatasetConfig struct {
	Source         string // files or postgres
	RecipesPath    string
	EmbeddingsPath string
	Table          string
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ModelConfig configures a model backend
type ModelConfig struct {
	Provider string // ollama or openai
	BaseURL  string // empty selects the provider default
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// GeneratorConfig configures the generation backend and its sampling contract
type GeneratorConfig struct {
	ModelConfig
	MaxInputTokens int
	MaxNewTokens   int
	StopToken      string
	Temperature    float64
	TopK           int
	TopP           float64
	MaxConcurrency int
}

// CacheConfig holds Redis configuration for the recommendation cache
type CacheConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RateLimitConfig bounds request rate on the generation endpoint
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 150*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Dataset: DatasetConfig{
			Source:         strings.ToLower(getEnv("DATASET_SOURCE", DatasetSourceFiles)),
			RecipesPath:    getEnv("RECIPES_CSV_PATH", "data/updated_recipes_with_generated_embeddings.csv"),
			EmbeddingsPath: getEnv("EMBEDDINGS_NPY_PATH", "data/recipe_embeddings.npy"),
			Table:          getEnv("DATASET_TABLE", "recipes"),
		},
		Database: loadDatabaseConfig(),
		Embedder: ModelConfig{
			Provider: strings.ToLower(getEnv("EMBEDDER_PROVIDER", ProviderOllama)),
			BaseURL:  getEnv("EMBEDDER_BASE_URL", ""),
			Model:    getEnv("EMBEDDER_MODEL", ""),
			APIKey:   getEnv("EMBEDDER_API_KEY", getEnv("OPENAI_API_KEY", "")),
			Timeout:  getEnvAsDuration("EMBEDDER_TIMEOUT", 30*time.Second),
		},
		Generator: GeneratorConfig{
			ModelConfig: ModelConfig{
				Provider: strings.ToLower(getEnv("GENERATOR_PROVIDER", ProviderOllama)),
				BaseURL:  getEnv("GENERATOR_BASE_URL", ""),
				Model:    getEnv("GENERATOR_MODEL", ""),
				APIKey:   getEnv("GENERATOR_API_KEY", getEnv("OPENAI_API_KEY", "")),
				Timeout:  getEnvAsDuration("GENERATION_TIMEOUT", 120*time.Second),
			},
			MaxInputTokens: getEnvAsInt("GENERATION_MAX_INPUT_TOKENS", 512),
			MaxNewTokens:   getEnvAsInt("GENERATION_MAX_NEW_TOKENS", 300),
			StopToken:      getEnv("GENERATION_STOP_TOKEN", "<|endoftext|>"),
			Temperature:    getEnvAsFloat("GENERATION_TEMPERATURE", 0.7),
			TopK:           getEnvAsInt("GENERATION_TOP_K", 50),
			TopP:           getEnvAsFloat("GENERATION_TOP_P", 0.9),
			MaxConcurrency: getEnvAsInt("GENERATION_MAX_CONCURRENCY", 4),
		},
		Cache: CacheConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("CACHE_TTL", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 2),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Dataset.Source {
	case DatasetSourceFiles:
		if c.Dataset.RecipesPath == "" || c.Dataset.EmbeddingsPath == "" {
			return fmt.Errorf("dataset source %q requires RECIPES_CSV_PATH and EMBEDDINGS_NPY_PATH", c.Dataset.Source)
		}
	case DatasetSourcePostgres:
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Dataset.Table == "" {
			return fmt.Errorf("dataset table is required")
		}
	default:
		return fmt.Errorf("unknown dataset source %q", c.Dataset.Source)
	}

	if err := c.Embedder.validate("embedder"); err != nil {
		return err
	}
	if err := c.Generator.validate("generator"); err != nil {
		return err
	}

	// Generation contract
	g := c.Generator
	if g.MaxInputTokens <= 0 {
		return fmt.Errorf("generation max input tokens must be positive")
	}
	if g.MaxNewTokens <= 0 {
		return fmt.Errorf("generation max new tokens must be positive")
	}
	if g.MaxConcurrency <= 0 {
		return fmt.Errorf("generation max concurrency must be positive")
	}
	if g.Temperature < 0 {
		return fmt.Errorf("generation temperature must not be negative")
	}
	if g.TopP <= 0 || g.TopP > 1 {
		return fmt.Errorf("generation top_p must be in (0, 1]")
	}
	if g.TopK < 0 {
		return fmt.Errorf("generation top_k must not be negative")
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("redis address is required when the cache is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive RATE_LIMIT_RPS and RATE_LIMIT_BURST")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

func (m *ModelConfig) validate(role string) error {
	switch m.Provider {
	case ProviderOllama:
	case ProviderOpenAI:
		if m.APIKey == "" && m.BaseURL == "" {
			return fmt.Errorf("%s provider openai requires an API key or a compatible base URL", role)
		}
	default:
		return fmt.Errorf("unknown %s provider %q", role, m.Provider)
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("%s timeout must be positive", role)
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}
	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "recipes")
	pool.Password = getEnv("DB_PASSWORD", "")
	pool.Database = getEnv("DB_NAME", "recipes")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
