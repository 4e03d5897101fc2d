package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env when GO_ENV is unset or "development"
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Redis Configuration
	REDIS_URL string
	// External processing services
	OCR_SERVICE_URL       string
	DETECTION_SERVICE_URL string
	INFERENCE_API_KEY     string
	INFERENCE_BASE_URL    string
	INFERENCE_MODEL       string
	// Result cache tuning
	CACHE_MAX_ENTRIES int
	CACHE_TTL_HOURS   int
}

func Get() (*EnvironmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	ocrURL := os.Getenv("OCR_SERVICE_URL")
	if ocrURL == "" {
		ocrURL = "http://127.0.0.1:8081" // Go API uses 8080
	}

	cacheMaxEntries, err := strconv.Atoi(os.Getenv("CACHE_MAX_ENTRIES"))
	if err != nil || cacheMaxEntries <= 0 {
		cacheMaxEntries = 1000
	}

	cacheTTLHours, err := strconv.Atoi(os.Getenv("CACHE_TTL_HOURS"))
	if err != nil || cacheTTLHours <= 0 {
		cacheTTLHours = 24
	}

	envVariables := &EnvironmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// Redis
		REDIS_URL: redisURL,
		// Processing services
		OCR_SERVICE_URL:       ocrURL,
		DETECTION_SERVICE_URL: os.Getenv("DETECTION_SERVICE_URL"),
		INFERENCE_API_KEY:     os.Getenv("INFERENCE_API_KEY"),
		INFERENCE_BASE_URL:    os.Getenv("INFERENCE_BASE_URL"),
		INFERENCE_MODEL:       os.Getenv("INFERENCE_MODEL"),
		// Cache
		CACHE_MAX_ENTRIES: cacheMaxEntries,
		CACHE_TTL_HOURS:   cacheTTLHours,
	}

	return envVariables, nil
}
