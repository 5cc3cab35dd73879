package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	OpenRouterAPIKey string
	OpenRouterModel  string
	GeminiAPIKey     string
	JWTSecret        string
	AdzunaAppID      string
	AdzunaAppKey     string
	DataDir          string
	DatabaseURL      string
	HTTPPort         string
	LogLevel         string
	FrontendOrigin   string
	MaxHistory       int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "nvidia/llama-3.3-nemotron-super-49b-v1:free"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		JWTSecret:        getEnv("JWT_SECRET_KEY", ""),
		AdzunaAppID:      getEnv("ADZUNA_APP_ID", ""),
		AdzunaAppKey:     getEnv("ADZUNA_APP_KEY", ""),
		DataDir:          getEnv("DATA_DIR", "data"),
		DatabaseURL:      getEnv("DATABASE_URL", "asha_knowledge.db"),
		HTTPPort:         getEnv("HTTP_PORT", "8000"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		FrontendOrigin:   getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
		MaxHistory:       getEnvAsInt("MAX_HISTORY", 10),
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY environment variable is required")
	}

	if AppConfig.OpenRouterAPIKey == "" {
		log.Println("Warning: OPENROUTER_API_KEY is not set, chat completions will return degraded responses")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
