package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Provider keys deliberately have no defaults: a missing key puts the
// corresponding client into "setup required" mode instead of failing startup.
type Config struct {
	ServerAddr    string
	PublicBaseURL string // Base URL this server is reachable at, used for share links
	JWTSecret     string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPublicURL string // Public base URL for uploaded objects; the avatar API must be able to fetch them

	// OpenAI-compatible endpoint backing lyrics, title and vision (gender detection).
	LLMAPIBaseURL string
	LLMAPIKey     string
	LLMModel      string
	VisionModel   string

	SongAPIBaseURL string
	SongAPIKey     string

	AvatarAPIBaseURL string
	AvatarAPIKey     string

	FFmpegPath  string
	ClipWorkDir string // Scratch directory for clip output before upload

	// Billing constants. One credit buys one second of generated audio.
	StarterCredits int
	CreditRate     float64 // USD per credit

	// Generation tuning.
	CostCeiling         float64
	AvatarPollInterval  time.Duration
	SongPollInterval    time.Duration
	SongPollMaxAttempts int
	SessionTTL          time.Duration
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvSeconds reads an environment variable holding a number of seconds.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		JWTSecret:     getEnv("JWT_SECRET", "melodygram-dev-secret"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "melodygram"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "melodygram"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: getEnv("MINIO_PUBLIC_URL", "http://127.0.0.1:9000/melodygram"),

		LLMAPIBaseURL: getEnv("LLM_API_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		VisionModel:   getEnv("VISION_MODEL", "gpt-4o"),

		SongAPIBaseURL: getEnv("SONG_API_BASE_URL", ""),
		SongAPIKey:     os.Getenv("SONG_API_KEY"),

		AvatarAPIBaseURL: getEnv("AVATAR_API_BASE_URL", ""),
		AvatarAPIKey:     os.Getenv("AVATAR_API_KEY"),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		ClipWorkDir: getEnv("CLIP_WORK_DIR", "clips"),

		StarterCredits: getEnvInt("STARTER_CREDITS", 3),
		CreditRate:     getEnvFloat("CREDIT_RATE", 0.05),

		CostCeiling:         getEnvFloat("COST_CEILING", 10.0),
		AvatarPollInterval:  getEnvSeconds("AVATAR_POLL_INTERVAL", 5*time.Second),
		SongPollInterval:    getEnvSeconds("SONG_POLL_INTERVAL", 5*time.Second),
		SongPollMaxAttempts: getEnvInt("SONG_POLL_MAX_ATTEMPTS", 60),
		SessionTTL:          getEnvSeconds("SESSION_TTL", 24*time.Hour),
	}
}
