package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string

	MediaCollection string
	ProbeURL        string

	Upload UploadConfig
}

// UploadConfig carries the empirically tuned knobs of the upload pipeline.
// Every heuristic constant lives here so deployments can adjust them without
// touching code.
type UploadConfig struct {
	// Per-megabyte time budgets by link quality class.
	PerMBFast     time.Duration
	PerMBModerate time.Duration
	PerMBSlow     time.Duration
	PerMBUnknown  time.Duration

	// Absolute bounds on the computed timeout.
	TimeoutFloor   time.Duration
	TimeoutCeiling time.Duration

	// Extra headroom requested for video payloads (passed as a caller hint,
	// still clamped to the ceiling).
	VideoTimeoutHint time.Duration

	// Stall watchdog tuning.
	WatchdogInterval   time.Duration
	StallThreshold     time.Duration
	SlowStallThreshold time.Duration
	StartupGrace       time.Duration

	// Queue behavior.
	CompletedRetention time.Duration
	MaxPayloadBytes    int64
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "development"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "clipstream"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Bucket:     getEnv("S3_BUCKET", "clipstream-media"),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3PublicBase: getEnv("S3_PUBLIC_BASE", ""),

		MediaCollection: getEnv("MEDIA_COLLECTION", "posts"),
		ProbeURL:        getEnv("NET_PROBE_URL", "https://www.google.com/generate_204"),

		Upload: UploadConfig{
			PerMBFast:          getEnvAsDuration("UPLOAD_PER_MB_FAST", 2*time.Second),
			PerMBModerate:      getEnvAsDuration("UPLOAD_PER_MB_MODERATE", 4*time.Second),
			PerMBSlow:          getEnvAsDuration("UPLOAD_PER_MB_SLOW", 6*time.Second),
			PerMBUnknown:       getEnvAsDuration("UPLOAD_PER_MB_UNKNOWN", 4*time.Second),
			TimeoutFloor:       getEnvAsDuration("UPLOAD_TIMEOUT_FLOOR", 30*time.Second),
			TimeoutCeiling:     getEnvAsDuration("UPLOAD_TIMEOUT_CEILING", 5*time.Minute),
			VideoTimeoutHint:   getEnvAsDuration("UPLOAD_VIDEO_TIMEOUT_HINT", 4*time.Minute),
			WatchdogInterval:   getEnvAsDuration("UPLOAD_WATCHDOG_INTERVAL", 2*time.Second),
			StallThreshold:     getEnvAsDuration("UPLOAD_STALL_THRESHOLD", 30*time.Second),
			SlowStallThreshold: getEnvAsDuration("UPLOAD_SLOW_STALL_THRESHOLD", 60*time.Second),
			StartupGrace:       getEnvAsDuration("UPLOAD_STARTUP_GRACE", 25*time.Second),
			CompletedRetention: getEnvAsDuration("UPLOAD_COMPLETED_RETENTION", 10*time.Second),
			MaxPayloadBytes:    getEnvAsInt64("UPLOAD_MAX_PAYLOAD_BYTES", 512<<20),
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
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
