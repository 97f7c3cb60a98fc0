package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// DefaultConfigFile is read by Load when present
const DefaultConfigFile = "testforge.cfg"

// Backend types
const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
	BackendHTTP   = "http"
)

// Local store types
const (
	LocalMemory = "memory"
	LocalCSV    = "csv"
	LocalRedis  = "redis"
)

// Session store types
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Application variants
const (
	VariantNetwork = "network"
	VariantOffline = "offline"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	Host        string
	Port        int
	CORSOrigins []string

	// Backend data provider
	BackendType      string
	BackendURL       string
	BackendProjectID string
	BackendPublicKey string

	// Database configuration (for the MySQL backend)
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Local persisted state
	LocalType string
	LocalPath string

	// Sessions and accounts
	SessionType  string
	SessionTTL   time.Duration
	RedisURL     string
	CookieSecure bool
	UsersFile    string

	// Application
	Variant           string // "network" or "offline"
	RequestsPerMinute int

	// Security
	EnableTLS bool
	CertFile  string
	KeyFile   string
}

// Load reads .env when present, then testforge.cfg when present, and falls
// back to environment variables otherwise
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	configFile := getEnv("TESTFORGE_CONFIG", DefaultConfigFile)
	if _, err := os.Stat(configFile); err == nil {
		return LoadFromFile(configFile)
	}

	return LoadFromEnv()
}

// LoadFromEnv builds the configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Host:              getEnv("HOST", "127.0.0.1"),
		Port:              getEnvAsInt("PORT", 7777),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		BackendType:       getEnv("BACKEND_TYPE", BackendMemory),
		BackendURL:        getEnv("BACKEND_URL", ""),
		BackendProjectID:  getEnv("BACKEND_PROJECT_ID", ""),
		BackendPublicKey:  getEnv("BACKEND_PUBLIC_KEY", ""),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvAsInt("DB_PORT", 3306),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "testforge"),
		LocalType:         getEnv("LOCAL_TYPE", LocalMemory),
		LocalPath:         getEnv("LOCAL_PATH", "./data"),
		SessionType:       getEnv("SESSION_TYPE", SessionMemory),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		RedisURL:          getEnv("REDIS_URL", ""),
		CookieSecure:      getEnvAsBool("COOKIE_SECURE", false),
		UsersFile:         getEnv("USERS_FILE", "./users.cfg"),
		Variant:           getEnv("APP_VARIANT", VariantNetwork),
		RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		EnableTLS:         getEnvAsBool("ENABLE_TLS", false),
		CertFile:          getEnv("TLS_CERT_FILE", ""),
		KeyFile:           getEnv("TLS_KEY_FILE", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadFromFile loads configuration from an INI file
func LoadFromFile(filename string) (*Config, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	cfg, err := ini.Load(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", absPath, err)
	}

	serverSection := cfg.Section("server")
	config := &Config{
		Host:        serverSection.Key("hostname").MustString("127.0.0.1"),
		Port:        serverSection.Key("port").MustInt(7777),
		CORSOrigins: splitList(serverSection.Key("cors_origins").MustString("*")),
	}

	backendSection := cfg.Section("backend")
	config.BackendType = backendSection.Key("type").MustString(BackendMemory)
	config.BackendURL = backendSection.Key("url").String()
	config.BackendProjectID = backendSection.Key("project_id").String()
	config.BackendPublicKey = backendSection.Key("public_key").String()

	dbSection := cfg.Section("database")
	config.DBHost = dbSection.Key("host").MustString("localhost")
	config.DBPort = dbSection.Key("port").MustInt(3306)
	config.DBUser = dbSection.Key("user").String()
	config.DBPassword = dbSection.Key("password").String()
	config.DBName = dbSection.Key("name").MustString("testforge")

	localSection := cfg.Section("local")
	config.LocalType = localSection.Key("type").MustString(LocalMemory)
	config.LocalPath = localSection.Key("path").MustString("./data")

	sessionSection := cfg.Section("session")
	config.SessionType = sessionSection.Key("type").MustString(SessionMemory)
	config.SessionTTL = sessionSection.Key("ttl").MustDuration(24 * time.Hour)
	config.RedisURL = sessionSection.Key("redis_url").String()
	config.CookieSecure = sessionSection.Key("cookie_secure").MustBool(false)

	config.UsersFile = cfg.Section("auth").Key("users_file").MustString("./users.cfg")
	config.Variant = cfg.Section("app").Key("variant").MustString(VariantNetwork)
	config.RequestsPerMinute = cfg.Section("ratelimit").Key("requests_per_minute").MustInt(120)

	securitySection := cfg.Section("security")
	config.EnableTLS = securitySection.Key("enable_tls").MustBool(false)
	config.CertFile = securitySection.Key("cert_file").String()
	config.KeyFile = securitySection.Key("key_file").String()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.BackendType {
	case BackendMemory, BackendMySQL:
	case BackendHTTP:
		if c.BackendURL == "" {
			return fmt.Errorf("backend type http requires a backend url")
		}
	default:
		return fmt.Errorf("unsupported backend type: %s", c.BackendType)
	}

	switch c.LocalType {
	case LocalMemory, LocalCSV:
	case LocalRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("local type redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported local store type: %s", c.LocalType)
	}

	switch c.SessionType {
	case SessionMemory:
	case SessionRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("session type redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported session type: %s", c.SessionType)
	}

	if c.Variant != VariantNetwork && c.Variant != VariantOffline {
		return fmt.Errorf("unsupported app variant: %s", c.Variant)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid session ttl: %s", c.SessionTTL)
	}

	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("invalid requests per minute: %d", c.RequestsPerMinute)
	}

	if c.EnableTLS {
		if c.CertFile == "" {
			return fmt.Errorf("TLS enabled but TLS_CERT_FILE not set")
		}
		if c.KeyFile == "" {
			return fmt.Errorf("TLS enabled but TLS_KEY_FILE not set")
		}
	}

	return nil
}

// Address returns the server address in host:port format
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DSN returns the MySQL Data Source Name connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
