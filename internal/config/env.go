package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvAPIURL   = "REBUILDCHECK_API_URL"
	EnvUsername = "REBUILDCHECK_USERNAME"
	EnvPassword = "REBUILDCHECK_PASSWORD"
	EnvToken    = "REBUILDCHECK_TOKEN"
)

// envFiles are tried in order; existing process variables are never overwritten.
var envFiles = []string{".env", ".env.local"}

func loadEnvFile() {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv(EnvUsername); v != "" && cfg.API.Username == "" {
		cfg.API.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" && cfg.API.Password == "" {
		cfg.API.Password = v
	}
	if v := os.Getenv(EnvToken); v != "" && cfg.API.Token == "" {
		cfg.API.Token = v
	}
}
