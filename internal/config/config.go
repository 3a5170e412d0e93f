package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the bot reads from the environment. Spotify
// credentials are optional; without them Spotify links are rejected but
// everything else works.
type Config struct {
	DiscordToken        string        `env:"DISCORD_TOKEN,required"`
	SpotifyClientID     string        `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string        `env:"SPOTIFY_CLIENT_SECRET"`
	StatusAddr          string        `env:"STATUS_ADDR" envDefault:":8787"`
	TempDir             string        `env:"TEMP_DIR" envDefault:"./tmp"`
	IdleTimeout         time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// New loads .env (if present) and parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// SpotifyEnabled reports whether Spotify credentials are configured.
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}
