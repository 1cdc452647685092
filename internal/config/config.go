package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT (anonymous session tokens)
	JWTSecret string

	// LLM
	LLMProvider          string // "gemini" | "openai"
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string

	// Web research (optional)
	TavilyAPIKey string

	// Reports
	ReportsDir      string
	PDFConverterBin string

	// Market data
	ListingBaseURL         string
	ScrapePagesPerDistrict int
	RefreshWorkers         int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		LLMProvider:          getEnvOrDefault("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:         getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		OpenAIAPIKey:         getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIModel:          getEnvOrDefault("OPENAI_MODEL", "meta-llama/Meta-Llama-3-70B-Instruct-Turbo"),

		TavilyAPIKey: getEnvOrDefault("TAVILY_API_KEY", ""),

		ReportsDir:      getEnvOrDefault("REPORTS_DIR", "./reports"),
		PDFConverterBin: getEnvOrDefault("PDF_CONVERTER_BIN", "wkhtmltopdf"),

		ListingBaseURL:         getEnvOrDefault("LISTING_BASE_URL", "https://www.unegui.mn/l-hdlh/l-hdlh-zarna/oron-suuts-zarna/"),
		ScrapePagesPerDistrict: getEnvAsIntOrDefault("SCRAPE_PAGES_PER_DISTRICT", 1),
		RefreshWorkers:         getEnvAsIntOrDefault("REFRESH_WORKERS", 2),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
