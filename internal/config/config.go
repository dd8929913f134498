package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DB     DBConfig
	MinIO  MinIOConfig
	JWT    JWTConfig
	Server ServerConfig
	Share  ShareConfig
	Upload UploadConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinIOConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
	OpTimeout   time.Duration
	URLValidity time.Duration
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port string
	// PublicURL is the externally reachable base used when building share links.
	PublicURL string
}

type ShareConfig struct {
	DefaultTTL time.Duration
}

type UploadConfig struct {
	MaxFilesPerRequest int
	BodyLimitBytes     int
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "docspace"),
			Password: getEnv("DB_PASSWORD", "docspace_secret"),
			Name:     getEnv("DB_NAME", "docspace"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MinIO: MinIOConfig{
			Endpoint:    getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:   getEnv("MINIO_ACCESS_KEY", "docspace"),
			SecretKey:   getEnv("MINIO_SECRET_KEY", "docspace_secret"),
			Bucket:      getEnv("MINIO_BUCKET", "docspace"),
			UseSSL:      getEnvAsBool("MINIO_USE_SSL", false),
			OpTimeout:   getEnvAsDuration("BLOB_OP_TIMEOUT", 30*time.Second),
			URLValidity: getEnvAsDuration("BLOB_URL_VALIDITY", 15*time.Minute),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			PublicURL: getEnv("PUBLIC_URL", "http://localhost:5173"),
		},
		Share: ShareConfig{
			DefaultTTL: getEnvAsDuration("SHARE_DEFAULT_TTL", 7*24*time.Hour),
		},
		Upload: UploadConfig{
			MaxFilesPerRequest: getEnvAsInt("UPLOAD_MAX_FILES", 5),
			BodyLimitBytes:     getEnvAsInt("UPLOAD_BODY_LIMIT_BYTES", 100*1024*1024),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
