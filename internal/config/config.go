// Package config resolves runtime configuration for a built service.
// Everything is read from the environment exactly once at process start
// and handed to constructors; nothing is re-derived mid-request.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the runtime settings of a built agent service. None of
// these values are baked into the build artifact.
type Config struct {
	// Provider selects the generation backend: openai, gemini, ollama, local.
	Provider string
	// Model is the generation model identifier.
	Model string
	// EmbedProvider selects the embedding backend. Defaults to Provider.
	EmbedProvider string
	// EmbedModel is the embedding model identifier.
	EmbedModel string
	// ProviderKey is the upstream API key for the selected provider.
	ProviderKey string

	// ServiceKey is the pre-shared key checked against X-API-Key.
	ServiceKey string
	// ServiceKeyRequired enforces the pre-shared key on /generate.
	ServiceKeyRequired bool

	Host string
	Port int
}

// FromEnv reads the RECALL_* environment and returns a resolved Config.
func FromEnv() (Config, error) {
	cfg := Config{
		Provider:      getenv("RECALL_PROVIDER", "local"),
		Model:         os.Getenv("RECALL_MODEL"),
		EmbedProvider: os.Getenv("RECALL_EMBED_PROVIDER"),
		EmbedModel:    os.Getenv("RECALL_EMBED_MODEL"),
		ProviderKey:   os.Getenv("RECALL_PROVIDER_KEY"),
		ServiceKey:    os.Getenv("RECALL_SERVICE_KEY"),
		Host:          getenv("RECALL_HOST", "0.0.0.0"),
		Port:          8080,
	}

	if cfg.EmbedProvider == "" {
		cfg.EmbedProvider = cfg.Provider
	}

	if v := os.Getenv("RECALL_SERVICE_KEY_REQUIRED"); v != "" {
		required, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RECALL_SERVICE_KEY_REQUIRED %q: %w", v, err)
		}
		cfg.ServiceKeyRequired = required
	}

	if v := os.Getenv("RECALL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid RECALL_PORT %q", v)
		}
		cfg.Port = port
	}

	if cfg.ServiceKeyRequired && cfg.ServiceKey == "" {
		return Config{}, fmt.Errorf("RECALL_SERVICE_KEY_REQUIRED is set but RECALL_SERVICE_KEY is empty")
	}

	return cfg, nil
}

// Addr returns the host:port the service facade binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
