package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL          string
	HTTPPort             string
	LogLevel             string
	JWTSecret            string
	MLAPIURL             string
	ScorerTimeoutSeconds int
	MinJournalEntries    int
	MinHealthLogs        int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		DatabaseURL:          getEnv("DATABASE_URL", "trichmind.db"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		MLAPIURL:             getEnv("ML_API_URL", "http://localhost:8000"),
		ScorerTimeoutSeconds: getEnvAsInt("SCORER_TIMEOUT_SECONDS", 12),
		MinJournalEntries:    getEnvAsInt("MIN_JOURNAL_ENTRIES", 5),
		MinHealthLogs:        getEnvAsInt("MIN_HEALTH_LOGS", 3),
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
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
