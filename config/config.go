package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Tokens    TokensConfig
	Cookie    CookieConfig
	Session   SessionConfig
	TwoFactor TwoFactorConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string        `mapstructure:"name"`
	Environment string        `mapstructure:"environment"`
	Debug       bool          `mapstructure:"debug"`
	Testing     bool          `mapstructure:"testing"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Port        string        `mapstructure:"port"`
	Domain      string        `mapstructure:"domain"`
	FrontendURL string        `mapstructure:"frontend_url"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TokenConfig is the secret and lifetime for one token purpose.
type TokenConfig struct {
	Secret string        `mapstructure:"secret"`
	Time   time.Duration `mapstructure:"time"`
}

type TokensConfig struct {
	Access        TokenConfig `mapstructure:"access"`
	Refresh       TokenConfig `mapstructure:"refresh"`
	Confirmation  TokenConfig `mapstructure:"confirmation"`
	ResetPassword TokenConfig `mapstructure:"reset_password"`
}

// CookieConfig describes the refresh-token cookie. The cookie is scoped to
// the refresh endpoint and marked secure outside of testing.
type CookieConfig struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	Namespace uuid.UUID     `mapstructure:"namespace"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type TwoFactorConfig struct {
	Namespace uuid.UUID     `mapstructure:"namespace"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type RateLimitConfig struct {
	Request  int `mapstructure:"request"`
	Duration int `mapstructure:"duration"`
}

func LoadConfig() (*Config, error) {
	// Load .env file; a missing file is fine in containerized deployments
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "accounts-service"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			Testing:     getEnvAsBool("APP_TESTING", false),
			Timeout:     getEnvAsDuration("APP_TIMEOUT", 30*time.Second),
			Domain:      getEnv("APP_DOMAIN", "fluxmesh.dev"),
			FrontendURL: getEnv("APP_FRONTEND_URL", "https://app.fluxmesh.dev"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "accounts_db"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Tokens: TokensConfig{
			Access: TokenConfig{
				Secret: getEnv("JWT_ACCESS_SECRET", "access_secret_change_in_production"),
				Time:   getEnvAsDuration("JWT_ACCESS_TIME", 10*time.Minute),
			},
			Refresh: TokenConfig{
				Secret: getEnv("JWT_REFRESH_SECRET", "refresh_secret_change_in_production"),
				Time:   getEnvAsDuration("JWT_REFRESH_TIME", 7*24*time.Hour),
			},
			Confirmation: TokenConfig{
				Secret: getEnv("JWT_CONFIRMATION_SECRET", "confirmation_secret_change_in_production"),
				Time:   getEnvAsDuration("JWT_CONFIRMATION_TIME", 24*time.Hour),
			},
			ResetPassword: TokenConfig{
				Secret: getEnv("JWT_RESET_PASSWORD_SECRET", "reset_secret_change_in_production"),
				Time:   getEnvAsDuration("JWT_RESET_PASSWORD_TIME", 30*time.Minute),
			},
		},
		Cookie: CookieConfig{
			Name: getEnv("REFRESH_COOKIE_NAME", "rf"),
			Path: getEnv("REFRESH_COOKIE_PATH", "/api/v1/auth/refresh"),
		},
		Session: SessionConfig{
			Namespace: getEnvAsUUID("WS_NAMESPACE", "bf97b011-2b98-4337-9aa7-5da9d84e4f61"),
			TTL:       getEnvAsDuration("WS_SESSION_TTL", time.Hour),
		},
		TwoFactor: TwoFactorConfig{
			Namespace: getEnvAsUUID("AUTH_NAMESPACE", "7e1a9f70-6c0a-4e0c-9cbd-20cbbb8a36d0"),
			TTL:       getEnvAsDuration("ACCESS_CODE_TTL", 5*time.Minute),
		},
		Mail: MailConfig{
			Host:     getEnv("MAIL_HOST", "localhost"),
			Port:     getEnvAsInt("MAIL_PORT", 587),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "no-reply@fluxmesh.dev"),
		},
		RateLimit: RateLimitConfig{
			Request:  getEnvAsInt("RATE_LIMIT_MAX_REQUEST", 20),
			Duration: getEnvAsInt("RATE_LIMIT_DURATION", 60),
		},
	}

	return config, nil
}

func (c *Config) DatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsUUID(key, defaultValue string) uuid.UUID {
	if value := os.Getenv(key); value != "" {
		if id, err := uuid.Parse(value); err == nil {
			return id
		}
	}
	return uuid.MustParse(defaultValue)
}
