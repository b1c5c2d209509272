package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	PublicBaseURL string
	JWTSigningKey string
	TokenTTL      time.Duration
	BcryptCost    int
	ShutdownGrace time.Duration
	Log           Log
	Database      Database
	Redis         RedisConfig
	Audit         Audit
	RateLimit     RateLimit
}

// Log selects the slog handler.
type Log struct {
	Level  string
	Format string
}

// Database configures the Postgres connection. An empty URL selects the
// in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig configures the optional token revocation list backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Audit configures the optional Kafka audit sink.
type Audit struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// RateLimit throttles the credential endpoints per client IP.
type RateLimit struct {
	Disabled     bool
	AuthRequests int
	AuthWindow   time.Duration
}

const devSigningKey = "dev-secret-key-change-in-production"

// ErrMissingSigningKey is returned when production mode has no JWT key.
var ErrMissingSigningKey = errors.New("JWT_SIGNING_KEY must be set when BUCKETLIST_ENV=production")

func defaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("addr", ":8080")
	v.SetDefault("public_base_url", "")
	v.SetDefault("jwt_signing_key", devSigningKey)
	v.SetDefault("token_ttl", 20*time.Minute)
	v.SetDefault("bcrypt_cost", 10)
	v.SetDefault("shutdown_grace", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", 30*time.Minute)
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_min_idle_conns", 2)
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_audit_topic", "bucketlist.audit")
	v.SetDefault("rate_limit_disabled", false)
	v.SetDefault("rate_limit_auth_requests", 10)
	v.SetDefault("rate_limit_auth_window", time.Minute)
}

// Load reads an optional .env file, then BUCKETLIST_* environment variables
// (DATABASE_URL, REDIS_URL and JWT_SIGNING_KEY are also read unprefixed).
func Load(envFiles ...string) (Server, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Server{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("bucketlist")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)
	for _, key := range []string{"database_url", "redis_url", "jwt_signing_key"} {
		_ = v.BindEnv(key, "BUCKETLIST_"+strings.ToUpper(key), strings.ToUpper(key))
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Server, error) {
	cfg := Server{
		Addr:          v.GetString("addr"),
		PublicBaseURL: strings.TrimRight(v.GetString("public_base_url"), "/"),
		JWTSigningKey: v.GetString("jwt_signing_key"),
		TokenTTL:      v.GetDuration("token_ttl"),
		BcryptCost:    v.GetInt("bcrypt_cost"),
		ShutdownGrace: v.GetDuration("shutdown_grace"),
		Log: Log{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Database: Database{
			URL:             v.GetString("database_url"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
			AutoMigrate:     v.GetBool("db_auto_migrate"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis_url"),
			PoolSize:     v.GetInt("redis_pool_size"),
			MinIdleConns: v.GetInt("redis_min_idle_conns"),
			DialTimeout:  v.GetDuration("redis_dial_timeout"),
			ReadTimeout:  v.GetDuration("redis_read_timeout"),
			WriteTimeout: v.GetDuration("redis_write_timeout"),
		},
		Audit: Audit{
			KafkaBrokers: splitList(v.GetString("kafka_brokers")),
			KafkaTopic:   v.GetString("kafka_audit_topic"),
		},
		RateLimit: RateLimit{
			Disabled:     v.GetBool("rate_limit_disabled"),
			AuthRequests: v.GetInt("rate_limit_auth_requests"),
			AuthWindow:   v.GetDuration("rate_limit_auth_window"),
		},
	}

	if v.GetString("env") == "production" && cfg.JWTSigningKey == devSigningKey {
		return Server{}, ErrMissingSigningKey
	}
	if cfg.TokenTTL <= 0 {
		return Server{}, fmt.Errorf("token ttl must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
