package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/governor/internal/cost"
	"github.com/davidbz/governor/internal/observability"
	"github.com/davidbz/governor/internal/provider/openai"
	"github.com/davidbz/governor/internal/routing"
	"github.com/davidbz/governor/internal/safety"
	redisstore "github.com/davidbz/governor/internal/store/redis"
)

// Config represents the governor configuration.
type Config struct {
	Server     ServerConfig
	CORS       CORSConfig
	OpenAI     openai.Config
	Moderation safety.ModerationConfig
	Router     routing.Config
	Cost       cost.Config
	Safety     safety.Config
	Redis      redisstore.Config
	Events     observability.EventBusConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out

	Server     *ServerConfig
	CORS       *CORSConfig
	OpenAI     *openai.Config
	Moderation *safety.ModerationConfig
	Router     *routing.Config
	Cost       *cost.Config
	Safety     *safety.Config
	Redis      *redisstore.Config
	Events     *observability.EventBusConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Out:        dig.Out{},
		Server:     &cfg.Server,
		CORS:       &cfg.CORS,
		OpenAI:     &cfg.OpenAI,
		Moderation: &cfg.Moderation,
		Router:     &cfg.Router,
		Cost:       &cfg.Cost,
		Safety:     &cfg.Safety,
		Redis:      &cfg.Redis,
		Events:     &cfg.Events,
	}
}
