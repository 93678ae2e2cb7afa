package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	OllamaBaseURL string
	OllamaModel   string
	OllamaModelVL string

	GeminiAPIKey string
	GeminiModel  string

	RemoteWorkerURL   string
	RemoteWorkerToken string
	CallbackSecret    string
	BaseURL           string

	JWTSecret      string
	Port           string
	QueueWorkers   int
	SignedURLTTLs  int
	ModelTimeoutS  int
	WorkerTimeoutS int
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "braindeck-uploads"),

		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "qwen2.5:7b-instruct"),
		OllamaModelVL: getEnv("OLLAMA_MODEL_VL", "qwen2.5vl:7b"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		RemoteWorkerURL:   getEnv("REMOTE_WORKER_URL", ""),
		RemoteWorkerToken: getEnv("REMOTE_WORKER_TOKEN", ""),
		CallbackSecret:    getEnv("CALLBACK_SECRET", ""),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		Port:           getEnv("PORT", "8080"),
		QueueWorkers:   getEnvInt("QUEUE_WORKERS", 2),
		SignedURLTTLs:  getEnvInt("SIGNED_URL_TTL_SECONDS", 1800),
		ModelTimeoutS:  getEnvInt("MODEL_TIMEOUT_SECONDS", 120),
		WorkerTimeoutS: getEnvInt("WORKER_TIMEOUT_SECONDS", 30),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
