package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Attachment upload configuration
	Upload UploadConfig

	// Sibling service endpoints
	Services ServicesConfig

	// Bearer token handling
	Auth AuthConfig

	// Orphan upload sweeper
	Janitor JanitorConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// UploadConfig holds attachment storage settings
type UploadConfig struct {
	Dir           string
	AccessURL     string // public base URL, joined with the stored file name
	PublicPath    string // route the upload dir is served under
	MaxUploadSize int64  // in bytes
}

// ServicesConfig holds base URLs of the issue and auth services
type ServicesConfig struct {
	IssuesURL string
	AuthURL   string
}

// AuthConfig holds JWT settings. An empty secret switches identity
// resolution to token introspection against the auth service.
type AuthConfig struct {
	JWTSecret string
}

// JanitorConfig holds orphan upload sweeper settings
type JanitorConfig struct {
	Interval    time.Duration // 0 disables the sweeper
	GracePeriod time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:    getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "lm_comments"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Upload: UploadConfig{
			Dir:           getEnv("FILE_UPLOAD_DIR", "./uploads"),
			AccessURL:     getEnv("UPLOAD_ACCESS_URL", "http://localhost:8080/uploads/"),
			PublicPath:    getEnv("UPLOAD_PUBLIC_PATH", "/uploads"),
			MaxUploadSize: getInt64Env("MAX_UPLOAD_SIZE", 20*1024*1024), // 20MB
		},
		Services: ServicesConfig{
			IssuesURL: strings.TrimRight(getEnv("ISSUES_SERVICE_URL", ""), "/"),
			AuthURL:   strings.TrimRight(getEnv("AUTH_SERVICE_URL", ""), "/"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Janitor: JanitorConfig{
			Interval:    getDurationEnv("JANITOR_INTERVAL", time.Hour),
			GracePeriod: getDurationEnv("JANITOR_GRACE_PERIOD", 24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Services.IssuesURL == "" {
		return fmt.Errorf("ISSUES_SERVICE_URL is required")
	}
	if c.Services.AuthURL == "" {
		return fmt.Errorf("AUTH_SERVICE_URL is required")
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("FILE_UPLOAD_DIR is required")
	}
	if !strings.HasSuffix(c.Upload.AccessURL, "/") {
		return fmt.Errorf("UPLOAD_ACCESS_URL must end with '/'")
	}
	if !strings.HasPrefix(c.Upload.PublicPath, "/") {
		return fmt.Errorf("UPLOAD_PUBLIC_PATH must start with '/'")
	}
	if c.Janitor.Interval < 0 || c.Janitor.GracePeriod < 0 {
		return fmt.Errorf("janitor durations must not be negative")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
