package lib

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Store selects the document store: "mongo" or "memory".
	Store    string
	MongoURI string
	MongoDB  string

	JWTSecret string

	// ImageHost selects the image host: "cloudinary" or "s3".
	ImageHost              string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	CloudinaryBaseURL      string
	AWSRegion              string
	AWSBucketName          string
	AWSAccessKeyID         string
	AWSSecretAccessKey     string

	ExpoAccessToken string

	CORSOrigins    string
	PostsPerMinute int
	MirrorRetry    time.Duration
}

func LoadConfig() *Config {
	postsPerMinute, err := strconv.Atoi(getEnv("POSTS_PER_MINUTE", "10"))
	if err != nil || postsPerMinute <= 0 {
		postsPerMinute = 10
	}
	retrySeconds, err := strconv.Atoi(getEnv("MIRROR_RETRY_SECONDS", "5"))
	if err != nil || retrySeconds <= 0 {
		retrySeconds = 5
	}

	return &Config{
		Port: getEnv("PORT", "3000"),

		Store:    strings.ToLower(getEnv("STORE", "mongo")),
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:  getEnv("MONGO_DB", "framez"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key"),

		ImageHost:              strings.ToLower(getEnv("IMAGE_HOST", "cloudinary")),
		CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryUploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "framez_uploads"),
		CloudinaryBaseURL:      getEnv("CLOUDINARY_BASE_URL", "https://api.cloudinary.com"),
		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		AWSBucketName:          getEnv("AWS_BUCKET_NAME", ""),
		AWSAccessKeyID:         getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),

		ExpoAccessToken: getEnv("EXPO_ACCESS_TOKEN", ""),

		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		PostsPerMinute: postsPerMinute,
		MirrorRetry:    time.Duration(retrySeconds) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// RouterConfig drives the load balancer in cmd/router.
type RouterConfig struct {
	Port           string
	ServiceName    string
	ServicePort    string
	HealthPath     string
	UpdateInterval time.Duration
	HealthInterval time.Duration
}

func LoadRouterConfig() *RouterConfig {
	return &RouterConfig{
		Port:           getEnv("ROUTER_PORT", "8080"),
		ServiceName:    getEnv("SERVICE_NAME", "framez-api"),
		ServicePort:    getEnv("SERVICE_PORT", "3000"),
		HealthPath:     getEnv("HEALTH_PATH", "/api/v1/status"),
		UpdateInterval: seconds("DISCOVERY_INTERVAL_SECONDS", 10),
		HealthInterval: seconds("HEALTH_INTERVAL_SECONDS", 5),
	}
}

func seconds(key string, fallback int) time.Duration {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
