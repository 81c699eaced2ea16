package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	DatabaseURL     string
	Env             string

	// AI providers, in the order the broker tries them.
	AIProviders  []string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	BreakerFailureThreshold int
	BreakerOpenWindow       time.Duration

	// Extraction pipeline knobs.
	MinDeterministicItems int
	PDFTextMinChars       int
	OCRMaxPages           int
	OCRDPI                int
	OCRLang               string
	CacheTTL              time.Duration
	ExtractionWorkers     int
	ExtractionQueueDepth  int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		Env:             env,

		AIProviders:  splitAndTrim(getEnv("AI_PROVIDERS", "openai")),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		BreakerFailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 3),
		BreakerOpenWindow:       getEnvDuration("BREAKER_OPEN_WINDOW", 5*time.Minute),

		MinDeterministicItems: getEnvInt("MIN_DETERMINISTIC_ITEMS", 5),
		PDFTextMinChars:       getEnvInt("PDF_TEXT_MIN_CHARS", 50),
		OCRMaxPages:           getEnvInt("OCR_MAX_PAGES", 20),
		OCRDPI:                getEnvInt("OCR_DPI", 300),
		OCRLang:               getEnv("OCR_LANG", "eng"),
		CacheTTL:              time.Duration(getEnvInt("CACHE_TTL_DAYS", 30)) * 24 * time.Hour,
		ExtractionWorkers:     getEnvInt("EXTRACTION_WORKERS", 4),
		ExtractionQueueDepth:  getEnvInt("EXTRACTION_QUEUE_DEPTH", 64),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("invalid %s=%q, using default %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
