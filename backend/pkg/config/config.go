package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	kgerrors "kg-extractor/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string // Overrides the level chosen by Env when set

	// AI
	LiteLLMURL       string
	ModelID          string
	CorefModelID     string // Model used for the coreference rewrite
	EmbeddingModelID string // Model used by the embedding comparator in evaluation
	OpenRouterAPIKey string

	// Knowledge base
	WikipediaURL      string
	SPARQLEndpoint    string
	ExternalNamespace string // Canonical resources, e.g. DBpedia
	LocalNamespace    string // Minted identifiers for unresolved entities
	TypeLimit         int
	KeepOriginals     bool // Keep triples whose external subject points at a literal or local object
	HTTPTimeout       time.Duration

	// Rendering
	GraphOutputDir string
	DotBinary      string

	// Neo4j
	Neo4jEnabled  bool
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		LiteLLMURL:        getEnv("LITELLM_URL", "http://localhost:4000"),
		ModelID:           getEnv("MODEL_ID", "openai/gpt-4o-mini"),
		CorefModelID:      getEnv("COREF_MODEL_ID", "openai/gpt-4o-mini"),
		EmbeddingModelID:  getEnv("EMBEDDING_MODEL_ID", "openai/text-embedding-3-small"),
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		WikipediaURL:      getEnv("WIKIPEDIA_URL", "https://en.wikipedia.org"),
		SPARQLEndpoint:    getEnv("SPARQL_ENDPOINT", "https://dbpedia.org/sparql"),
		ExternalNamespace: getEnv("EXTERNAL_NAMESPACE", "http://dbpedia.org/resource/"),
		LocalNamespace:    getEnv("LOCAL_NAMESPACE", "http://example.org/"),
		TypeLimit:         getEnvInt("TYPE_LIMIT", 10),
		KeepOriginals:     getEnvBool("ENRICH_KEEP_SUBJECT_ONLY_ORIGINALS", false),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		GraphOutputDir:    getEnv("GRAPH_OUTPUT_DIR", "resultat_graph"),
		DotBinary:         getEnv("DOT_BINARY", "dot"),
		Neo4jEnabled:      getEnvBool("NEO4J_ENABLED", false),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.LiteLLMURL == "" {
		return kgerrors.NewConfigMissingRequired("LITELLM_URL")
	}
	if c.ModelID == "" {
		return kgerrors.NewConfigMissingRequired("MODEL_ID")
	}
	if c.WikipediaURL == "" {
		return kgerrors.NewConfigMissingRequired("WIKIPEDIA_URL")
	}
	if c.SPARQLEndpoint == "" {
		return kgerrors.NewConfigMissingRequired("SPARQL_ENDPOINT")
	}
	if c.ExternalNamespace == "" {
		return kgerrors.NewConfigMissingRequired("EXTERNAL_NAMESPACE")
	}
	if c.LocalNamespace == "" {
		return kgerrors.NewConfigMissingRequired("LOCAL_NAMESPACE")
	}
	// Enrichment decisions are made by prefix match, so neither namespace may shadow the other
	if strings.HasPrefix(c.ExternalNamespace, c.LocalNamespace) || strings.HasPrefix(c.LocalNamespace, c.ExternalNamespace) {
		return kgerrors.NewConfigValidationFailed("LOCAL_NAMESPACE", "must not share a prefix with EXTERNAL_NAMESPACE")
	}
	if c.TypeLimit <= 0 {
		return kgerrors.NewConfigValidationFailed("TYPE_LIMIT", "must be positive")
	}
	if c.Neo4jEnabled {
		if c.Neo4jURI == "" {
			return kgerrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return kgerrors.NewConfigMissingRequired("NEO4J_USER")
		}
	}
	// API key is optional when LiteLLM holds the provider credentials
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
