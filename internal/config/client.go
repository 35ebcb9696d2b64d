package config

import (
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig holds the CLI settings. It shares the env names of the
// server where they overlap but needs no database or signing secret.
type ClientConfig struct {
	APIURL string `env:"CINELIST_API_URL" default:"http://localhost:8080/api"`

	// Metadata enrichment is off unless TMDBAPIKey is set.
	TMDBAPIURL   string `env:"TMDB_API_URL" default:"https://api.themoviedb.org/3"`
	TMDBAPIKey   string `env:"TMDB_API_KEY"`
	TMDBLanguage string `env:"TMDB_LANGUAGE" default:"es-ES"`

	// An empty RedisURL disables the lookup cache.
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" default:"24h"`
}

// LoadClientConfig loads the CLI configuration, reading .env first when present.
func LoadClientConfig() (*ClientConfig, error) {
	_ = godotenv.Load(".env")

	config := &ClientConfig{}

	if err := loadEnvString(&config.APIURL, "CINELIST_API_URL", "http://localhost:8080/api"); err != nil {
		return nil, err
	}

	// Metadata API
	if err := loadEnvString(&config.TMDBAPIURL, "TMDB_API_URL", "https://api.themoviedb.org/3"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.TMDBAPIKey, "TMDB_API_KEY", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.TMDBLanguage, "TMDB_LANGUAGE", "es-ES"); err != nil {
		return nil, err
	}

	// Redis
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.CacheTTL, "CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	return config, nil
}

// MetadataEnabled reports whether titles and posters should be looked up.
func (c *ClientConfig) MetadataEnabled() bool {
	return c.TMDBAPIKey != ""
}
