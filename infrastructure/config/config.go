package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Object store backends
const (
	ObjectStoreS3    = "s3"
	ObjectStoreMinIO = "minio"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion      string
	BucketName     string
	BooksPrefix    string
	BooksTable     string
	UserBooksTable string
	EventBusName   string

	// Request limits
	URLExpiry        time.Duration
	MaxFileSizeBytes int64
	MaxStringLength  int
	MinSeriesOrder   int
	MaxSeriesOrder   int
	AdminGroup       string

	// Cover lookup
	CoverAPIBaseURL string
	CoverAPIKey     string
	CoverTimeout    time.Duration

	// Local object store
	ObjectStore    string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool

	// Logging
	LogLevel string
	LogFile  string

	// Authentication for the local server
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics    bool
	MetricsNamespace string
	EnableTracing    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", ""),
		BooksPrefix:    getEnv("BOOKS_PREFIX", "books/"),
		BooksTable:     getEnv("BOOKS_TABLE", "Books"),
		UserBooksTable: getEnv("USER_BOOKS_TABLE", "UserBooks"),
		EventBusName:   getEnv("EVENT_BUS_NAME", ""),

		URLExpiry:        time.Duration(getEnvInt("URL_EXPIRY_SECONDS", 3600)) * time.Second,
		MaxFileSizeBytes: getEnvInt64("MAX_FILE_SIZE_BYTES", 5*1024*1024*1024),
		MaxStringLength:  getEnvInt("MAX_STRING_LENGTH", 500),
		MinSeriesOrder:   getEnvInt("MIN_SERIES_ORDER", 1),
		MaxSeriesOrder:   getEnvInt("MAX_SERIES_ORDER", 100),
		AdminGroup:       getEnv("ADMIN_GROUP", "admins"),

		CoverAPIBaseURL: getEnv("COVER_API_BASE_URL", "https://www.googleapis.com/books/v1"),
		CoverAPIKey:     getEnv("COVER_API_KEY", ""),
		CoverTimeout:    getEnvDuration("COVER_TIMEOUT", 3*time.Second),

		ObjectStore:    getEnv("OBJECT_STORE", ObjectStoreS3),
		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		EnableMetrics:    getEnvBool("ENABLE_METRICS", false),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "BooksLibrary"),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.BooksTable == "" || c.UserBooksTable == "" {
		return fmt.Errorf("BOOKS_TABLE and USER_BOOKS_TABLE are required")
	}
	if c.MinSeriesOrder > c.MaxSeriesOrder {
		return fmt.Errorf("MIN_SERIES_ORDER %d exceeds MAX_SERIES_ORDER %d", c.MinSeriesOrder, c.MaxSeriesOrder)
	}
	if c.URLExpiry <= 0 {
		return fmt.Errorf("URL_EXPIRY_SECONDS must be positive")
	}
	if c.MaxStringLength <= 0 || c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("MAX_STRING_LENGTH and MAX_FILE_SIZE_BYTES must be positive")
	}
	switch c.ObjectStore {
	case ObjectStoreS3, ObjectStoreMinIO:
	default:
		return fmt.Errorf("unknown OBJECT_STORE %q", c.ObjectStore)
	}
	if c.IsProduction() && c.BucketName == "" {
		return fmt.Errorf("BUCKET_NAME is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsLambda reports whether the process runs inside AWS Lambda
func (c *Config) IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
