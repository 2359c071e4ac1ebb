package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache store kinds accepted in TELEMEDICINE_CACHE_STORE.
const (
	CacheStoreMemory   = "memory"
	CacheStoreRedis    = "redis"
	CacheStoreDynamoDB = "dynamodb"
	CacheStoreNone     = "none"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	Timezone string

	CacheStore string
	CacheTTL   time.Duration
	Providers  []string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	CacheTable    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Fleury
	FleuryBaseURL      string
	FleuryAPIKey       string
	FleuryClientID     string
	FleuryWebhookToken string

	// DrConsulta
	DrConsultaMarketplaceBaseURL       string
	DrConsultaHealthPlanBaseURL        string
	DrConsultaClientID                 string
	DrConsultaSecret                   string
	DrConsultaMarketplaceDefaultUnitID int
	DrConsultaHealthPlanContractID     string

	GatewayRateLimit   float64
	GatewayRateBurst   int
	CORSAllowedOrigins []string
	GatewayJWTSecret   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),

		CacheStore: strings.ToLower(strings.TrimSpace(getEnv("TELEMEDICINE_CACHE_STORE", CacheStoreMemory))),
		CacheTTL:   getEnvAsDuration("TELEMEDICINE_CACHE_TTL", 5*time.Minute),
		Providers:  getEnvAsList("TELEMEDICINE_PROVIDERS", []string{"fleury", "dr-consulta", "dr-consulta-v1"}),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		CacheTable:    getEnv("TELEMEDICINE_CACHE_TABLE", "telemedicine_cache"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		FleuryBaseURL:      getEnv("FLEURY_BASE_URL", ""),
		FleuryAPIKey:       getEnv("FLEURY_API_KEY", ""),
		FleuryClientID:     getEnv("FLEURY_CLIENT_ID", ""),
		FleuryWebhookToken: getEnv("FLEURY_WEBHOOK_TOKEN", ""),

		DrConsultaMarketplaceBaseURL:       getEnv("DR_CONSULTA_MARKETPLACE_BASE_URL", ""),
		DrConsultaHealthPlanBaseURL:        getEnv("DR_CONSULTA_HEALTH_PLAN_BASE_URL", ""),
		DrConsultaClientID:                 getEnv("DR_CONSULTA_CLIENT_ID", ""),
		DrConsultaSecret:                   getEnv("DR_CONSULTA_SECRET", ""),
		DrConsultaMarketplaceDefaultUnitID: getEnvAsInt("DR_CONSULTA_MARKETPLACE_DEFAULT_UNIT_ID", 0),
		DrConsultaHealthPlanContractID:     getEnv("DR_CONSULTA_HEALTH_PLAN_CONTRACT_ID", ""),

		GatewayRateLimit:   getEnvAsFloat("GATEWAY_RATE_LIMIT", 10),
		GatewayRateBurst:   getEnvAsInt("GATEWAY_RATE_BURST", 20),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		GatewayJWTSecret:   getEnv("GATEWAY_JWT_SECRET", ""),
	}
}

// Validate checks settings shared by every provider. Provider credentials are
// checked by each adapter when it is first resolved.
func (c *Config) Validate() error {
	switch c.CacheStore {
	case CacheStoreMemory, CacheStoreNone:
	case CacheStoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("config: REDIS_ADDR is required for the redis cache store")
		}
	case CacheStoreDynamoDB:
		if strings.TrimSpace(c.CacheTable) == "" {
			return fmt.Errorf("config: TELEMEDICINE_CACHE_TABLE is required for the dynamodb cache store")
		}
	default:
		return fmt.Errorf("config: unknown TELEMEDICINE_CACHE_STORE %q", c.CacheStore)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.GatewayRateLimit <= 0 || c.GatewayRateBurst <= 0 {
		return fmt.Errorf("config: GATEWAY_RATE_LIMIT and GATEWAY_RATE_BURST must be positive")
	}
	return nil
}

// Location resolves APP_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CacheExpiry is the absolute expiry adapters cache until when loaded at now.
// A zero result disables caching.
func (c *Config) CacheExpiry(now time.Time) time.Time {
	if c.CacheStore == CacheStoreNone || c.CacheTTL <= 0 {
		return time.Time{}
	}
	return now.Add(c.CacheTTL)
}

// ProviderEnabled reports whether slug is listed in TELEMEDICINE_PROVIDERS.
func (c *Config) ProviderEnabled(slug string) bool {
	for _, p := range c.Providers {
		if p == slug {
			return true
		}
	}
	return false
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
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
