package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Logout modes control how a refresh token is terminated on logout.
const (
	LogoutModeRevoke = "revoke"
	LogoutModeDelete = "delete"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Session      SessionConfig
	ExternalAuth ExternalAuthConfig
	Audit        AuditConfig
	CORS         CORSConfig
	Log          LogConfig
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Host           string
	Port           int
	Password       string
	DB             int
	StatusCacheTTL time.Duration
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Audience          string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

// PasswordConfig tunes the adaptive password hash.
type PasswordConfig struct {
	BcryptCost int
}

// SessionConfig governs refresh-token termination behaviour.
type SessionConfig struct {
	LogoutMode string
}

// ExternalAuthConfig configures the third-party identity bridge.
type ExternalAuthConfig struct {
	Enabled  bool
	Provider string
	Issuer   string
	ClientID string
}

// AuditConfig sizes the asynchronous audit writer.
type AuditConfig struct {
	Workers    int
	BufferSize int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:             v.GetString("DB_HOST"),
		Port:             v.GetInt("DB_PORT"),
		User:             v.GetString("DB_USER"),
		Password:         v.GetString("DB_PASSWORD"),
		Name:             v.GetString("DB_NAME"),
		SSLMode:          v.GetString("DB_SSL_MODE"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:           v.GetString("REDIS_HOST"),
		Port:           v.GetInt("REDIS_PORT"),
		Password:       v.GetString("REDIS_PASSWORD"),
		DB:             v.GetInt("REDIS_DB"),
		StatusCacheTTL: parseDuration(v.GetString("USER_STATUS_CACHE_TTL"), 30*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Audience:          v.GetString("JWT_AUDIENCE"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.Password = PasswordConfig{BcryptCost: v.GetInt("BCRYPT_COST")}

	cfg.Session = SessionConfig{LogoutMode: strings.ToLower(strings.TrimSpace(v.GetString("LOGOUT_MODE")))}

	cfg.ExternalAuth = ExternalAuthConfig{
		Enabled:  v.GetBool("EXTERNAL_AUTH_ENABLED"),
		Provider: v.GetString("EXTERNAL_AUTH_PROVIDER"),
		Issuer:   v.GetString("EXTERNAL_AUTH_ISSUER"),
		ClientID: v.GetString("EXTERNAL_AUTH_CLIENT_ID"),
	}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		BufferSize: v.GetInt("AUDIT_BUFFER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

// Validate reports settings the process cannot start without. Token signing
// material is mandatory; everything else has a usable default.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.JWT.Secret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		missing = append(missing, "JWT_AUDIENCE")
	}
	if c.ExternalAuth.Enabled && strings.TrimSpace(c.ExternalAuth.ClientID) == "" {
		missing = append(missing, "EXTERNAL_AUTH_CLIENT_ID")
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrConfig, fmt.Sprintf("missing required settings: %s", strings.Join(missing, ", ")))
	}

	switch c.Session.LogoutMode {
	case LogoutModeRevoke, LogoutModeDelete:
	default:
		return appErrors.Clone(appErrors.ErrConfig, fmt.Sprintf("unsupported LOGOUT_MODE %q", c.Session.LogoutMode))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "stemkit")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "5s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("USER_STATUS_CACHE_TTL", "30s")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOGOUT_MODE", LogoutModeRevoke)

	v.SetDefault("EXTERNAL_AUTH_ENABLED", false)
	v.SetDefault("EXTERNAL_AUTH_PROVIDER", "Google")
	v.SetDefault("EXTERNAL_AUTH_ISSUER", "https://accounts.google.com")
	v.SetDefault("EXTERNAL_AUTH_CLIENT_ID", "")

	v.SetDefault("AUDIT_WORKERS", 2)
	v.SetDefault("AUDIT_BUFFER", 256)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
