package config

import (
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	PostgresDSN   string
	Redis         RedisConfig
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// RedisConfig holds connection settings for the published-profile cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PublishedCacheTTL bounds staleness of the public church view served from Redis.
var PublishedCacheTTL = 10 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VISITA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		PostgresDSN:   os.Getenv("VISITA_POSTGRES_DSN"),
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     "visita",
		JWTAudience:   "visita-admin",
		Redis: RedisConfig{
			URL:          os.Getenv("VISITA_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
