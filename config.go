package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github/itish2003/retrieval/services"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port        string
	BackendURL  string
	CatalogPath string
	Environment string
}

// loadConfig reads .env (when present) and the environment. Every value has a
// working default so a bare `go run .` next to a running backend just works.
func loadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	return Config{
		Port:        getEnv("SERVER_PORT", "8080"),
		BackendURL:  getEnv("BACKEND_URL", services.DefaultBackendURL),
		CatalogPath: getEnv("CATALOG_PATH", "catalog.json"),
		Environment: getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
