package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	OpenAIKey        string
	AIProvider       string
	AIModel          string
	AIBaseURL        string
	EnableHSTS       bool
	JWTIssuer        string
	JWKSURL          string
	RateLimit        string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// fileConfig mirrors Config for the optional YAML override file. Only set
// fields override the environment.
type fileConfig struct {
	DatabaseURL  *string `yaml:"database_url"`
	ServerPort   *string `yaml:"server_port"`
	BaseURL      *string `yaml:"base_url"`
	FrontendURL  *string `yaml:"frontend_url"`
	OpenAIKey    *string `yaml:"openai_api_key"`
	AIProvider   *string `yaml:"ai_provider"`
	AIModel      *string `yaml:"ai_model"`
	AIBaseURL    *string `yaml:"ai_base_url"`
	JWTIssuer    *string `yaml:"jwt_issuer"`
	JWKSURL      *string `yaml:"jwks_url"`
	RateLimit    *string `yaml:"rate_limit"`
	RedisURL     *string `yaml:"redis_url"`
	RabbitMQURL  *string `yaml:"rabbitmq_url"`
	OTELEndpoint *string `yaml:"otel_endpoint"`
}

// Load loads configuration from environment variables. If CONFIG_FILE points
// at a YAML file, values set there take precedence.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AIProvider:       getEnv("AI_PROVIDER", "openai"),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		JWTIssuer:        getEnv("JWT_ISSUER", ""),
		JWKSURL:          getEnv("JWKS_URL", ""),
		RateLimit:        getEnv("RATE_LIMIT", "100-M"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (routine analysis requires RabbitMQ)")
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrides := []struct {
		src *string
		dst *string
	}{
		{fc.DatabaseURL, &cfg.DatabaseURL},
		{fc.ServerPort, &cfg.ServerPort},
		{fc.BaseURL, &cfg.BaseURL},
		{fc.FrontendURL, &cfg.FrontendURL},
		{fc.OpenAIKey, &cfg.OpenAIKey},
		{fc.AIProvider, &cfg.AIProvider},
		{fc.AIModel, &cfg.AIModel},
		{fc.AIBaseURL, &cfg.AIBaseURL},
		{fc.JWTIssuer, &cfg.JWTIssuer},
		{fc.JWKSURL, &cfg.JWKSURL},
		{fc.RateLimit, &cfg.RateLimit},
		{fc.RedisURL, &cfg.RedisURL},
		{fc.RabbitMQURL, &cfg.RabbitMQURL},
		{fc.OTELEndpoint, &cfg.OTELEndpoint},
	}
	for _, o := range overrides {
		if o.src != nil {
			*o.dst = *o.src
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
