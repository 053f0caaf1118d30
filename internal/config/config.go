package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Chat      ChatConfig
	Inference InferenceConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	PublicUploadsURL   string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
}

type DatabaseConfig struct {
	Connection string
}

// RateLimitConfig configures one fixed-window limiter instance.
type RateLimitConfig struct {
	Window     time.Duration
	Max        int
	Message    string
	StatusCode int
}

// CacheConfig configures the conversation context cache.
type CacheConfig struct {
	TTL               time.Duration
	SweepInterval     time.Duration
	MaxEntries        int
	HighWatermark     float64
	CriticalWatermark float64
}

type ChatConfig struct {
	APILimit     RateLimitConfig
	HistoryLimit RateLimitConfig
	Cache        CacheConfig
}

type InferenceConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			PublicUploadsURL:   getEnv("PUBLIC_UPLOADS_URL", "http://localhost:3000/uploads"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Chat: ChatConfig{
			APILimit: RateLimitConfig{
				Window:     time.Duration(getEnvAsInt("CHAT_RATE_WINDOW_MS", 60_000)) * time.Millisecond,
				Max:        getEnvAsInt("CHAT_RATE_MAX", 100),
				Message:    "تعداد درخواست‌ها بیش از حد مجاز است، لطفا کمی صبر کنید",
				StatusCode: 429,
			},
			HistoryLimit: RateLimitConfig{
				Window:     time.Duration(getEnvAsInt("CHAT_HISTORY_WINDOW_MS", 86_400_000)) * time.Millisecond,
				Max:        getEnvAsInt("CHAT_HISTORY_MAX", 500),
				Message:    "سقف مشاهده تاریخچه امروز پر شده است",
				StatusCode: 429,
			},
			Cache: CacheConfig{
				TTL:               time.Duration(getEnvAsInt("CHAT_CACHE_TTL_MS", 1_800_000)) * time.Millisecond,
				SweepInterval:     time.Duration(getEnvAsInt("CHAT_CACHE_SWEEP_MS", 300_000)) * time.Millisecond,
				MaxEntries:        getEnvAsInt("CHAT_CACHE_MAX_ENTRIES", 1000),
				HighWatermark:     getEnvAsFloat("CHAT_CACHE_HIGH_WATERMARK", 0.80),
				CriticalWatermark: getEnvAsFloat("CHAT_CACHE_CRITICAL_WATERMARK", 0.90),
			},
		},
		Inference: InferenceConfig{
			BaseURL: getEnv("INFERENCE_BASE_URL", "https://router.huggingface.co/v1"),
			APIKey:  getEnv("INFERENCE_API_KEY", ""),
			Model:   getEnv("INFERENCE_MODEL", "meta-llama/Llama-3.1-8B-Instruct"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
