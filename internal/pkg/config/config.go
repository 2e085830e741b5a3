package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

// GeminiConfig holds the LLM key pool settings. Keys come either from
// GEMINI_KEYS (comma separated) or from numbered GEMINI_KEY_1..GEMINI_KEY_n
// variables, matching the deployment layout.
type GeminiConfig struct {
	Keys  []string
	Model string
}

type SearchConfig struct {
	SerpAPIKey string
	TavilyKey  string
}

type Config struct {
	Repositories RepositoriesConfig
	Gemini       GeminiConfig
	Search       SearchConfig
	ServerPort   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "plangenie"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		Gemini: GeminiConfig{
			Keys:  loadGeminiKeys(),
			Model: getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Search: SearchConfig{
			SerpAPIKey: os.Getenv("SERPAPI_KEY"),
			TavilyKey:  os.Getenv("TAVILY_KEY"),
		},
		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),
	}

	if len(cfg.Gemini.Keys) == 0 {
		return nil, fmt.Errorf("no Gemini API keys configured: set GEMINI_KEYS or GEMINI_KEY_1..n")
	}

	return cfg, nil
}

func loadGeminiKeys() []string {
	var keys []string
	if csv := os.Getenv("GEMINI_KEYS"); csv != "" {
		for _, k := range strings.Split(csv, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		return keys
	}
	for i := 1; ; i++ {
		k := os.Getenv("GEMINI_KEY_" + strconv.Itoa(i))
		if k == "" {
			break
		}
		keys = append(keys, strings.TrimSpace(k))
	}
	return keys
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
