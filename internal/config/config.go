package config

import (
	"fmt"
	"os"
)

type Config struct {
	DBSource string
	Port     string
	Env      string
	// DemoMode swaps the Postgres store for the in-memory one so the
	// server can run without a database.
	DemoMode bool
}

func Load() (*Config, error) {
	demo := os.Getenv("DEMO_MODE") == "true"

	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" && !demo {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &Config{
		DBSource: dbSource,
		Port:     port,
		Env:      env,
		DemoMode: demo,
	}, nil
}
