package config

import (
	"os"
	"strconv"
	"time"
)

type QRConfig struct {
	CodeTTL         time.Duration
	ImageSize       int
	KeyPrefix       string
	MaxPerUser      int
	RateLimitWindow time.Duration
}

func LoadQRConfig() *QRConfig {
	return &QRConfig{
		CodeTTL:         getEnvAsDuration("QR_CODE_TTL", 5*time.Minute),
		ImageSize:       getEnvAsInt("QR_IMAGE_SIZE", 256),
		KeyPrefix:       getEnv("QR_KEY_PREFIX", "payreq"),
		MaxPerUser:      getEnvAsInt("QR_MAX_PER_USER", 10),
		RateLimitWindow: getEnvAsDuration("QR_RATE_LIMIT_WINDOW", 1*time.Hour),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
