package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is read once at startup and passed explicitly into the pipeline
// components. Stage logic never reads the environment on its own.
type Config struct {
	// MuseTalk
	ModelDir     string // Model asset directory; synthesis refuses to run without it
	MuseTalkRoot string // Checkout root containing scripts/inference.py
	PythonBin    string
	FFmpegBin    string

	// Workspace
	WorkspaceRoot string // Parent directory for per-job scratch directories

	// Timeouts
	FetchTimeout     time.Duration
	InferenceTimeout time.Duration
	FallbackTimeout  time.Duration

	// Storage
	Bucket                string
	BucketEndpointURL     string
	BucketAccessKeyID     string
	BucketSecretAccessKey string
	RunpodS3Endpoint      string // Fallback credential set (RunPod-managed storage)
	RunpodS3AccessKey     string
	RunpodS3SecretKey     string

	// Queue
	RedisURL    string
	JobQueue    string
	ResultQueue string

	// Server
	HealthPort string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		ModelDir:      getEnv("MUSETALK_MODEL_DIR", "/workspace/MuseTalk/models/musetalk"),
		MuseTalkRoot:  getEnv("MUSETALK_ROOT", "/workspace/MuseTalk"),
		PythonBin:     getEnv("PYTHON_BIN", "python"),
		FFmpegBin:     getEnv("FFMPEG_BIN", "ffmpeg"),
		WorkspaceRoot: getEnv("WORKSPACE_ROOT", os.TempDir()),

		FetchTimeout:     getEnvSeconds("FETCH_TIMEOUT_SECONDS", 60),
		InferenceTimeout: getEnvSeconds("INFERENCE_TIMEOUT_SECONDS", 300),
		FallbackTimeout:  getEnvSeconds("FALLBACK_TIMEOUT_SECONDS", 60),

		Bucket:                getEnv("RUNPOD_S3_BUCKET", "flowsmartly-avatars"),
		BucketEndpointURL:     getEnv("BUCKET_ENDPOINT_URL", "https://storage.runpod.io"),
		BucketAccessKeyID:     getEnv("BUCKET_ACCESS_KEY_ID", ""),
		BucketSecretAccessKey: getEnv("BUCKET_SECRET_ACCESS_KEY", ""),
		RunpodS3Endpoint:      getEnv("RUNPOD_S3_ENDPOINT", ""),
		RunpodS3AccessKey:     getEnv("RUNPOD_S3_ACCESS_KEY", ""),
		RunpodS3SecretKey:     getEnv("RUNPOD_S3_SECRET_KEY", ""),

		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JobQueue:    getEnv("JOB_QUEUE", "queue:avatar_jobs"),
		ResultQueue: getEnv("RESULT_QUEUE", "queue:avatar_results"),

		HealthPort: getEnv("HEALTH_PORT", "8081"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	// Validate required fields
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("RUNPOD_S3_BUCKET is required")
	}

	if cfg.FetchTimeout <= 0 || cfg.InferenceTimeout <= 0 || cfg.FallbackTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return time.Duration(defaultValue) * time.Second
}
