package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           int
	UploadDir      string
	GeneratedDir   string
	DefaultStyle   string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	VisionModel    string
	ImageModel     string
	RequestTimeout time.Duration
	TaskTTL        time.Duration
}

// Load reads configuration from the environment. The API key is the one
// hard requirement: without it the remote capabilities cannot be called,
// so the process refuses to start.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnvAsInt("PORT", 3000),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		GeneratedDir:   getEnv("GENERATED_DIR", "generated"),
		DefaultStyle:   getEnv("DEFAULT_STYLE", "watercolor"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		VisionModel:    getEnv("VISION_MODEL", "gpt-4o"),
		ImageModel:     getEnv("IMAGE_MODEL", "dall-e-3"),
		RequestTimeout: time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		TaskTTL:        time.Duration(getEnvAsInt("TASK_TTL_MINUTES", 60)) * time.Minute,
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
