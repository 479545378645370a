package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Media         MediaConfig
	Push          PushConfig
	Notifications NotificationsConfig
	Directory     DirectoryConfig
	Exports       ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MediaConfig controls uploaded media storage and retry behaviour.
type MediaConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	UploadRetries    int
	UploadRetryDelay time.Duration
}

// PushConfig tunes the live-push delivery queue.
type PushConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationsConfig governs notification listing defaults.
type NotificationsConfig struct {
	ListPageSize int
}

// DirectoryConfig tunes the batch/role lookup cache.
type DirectoryConfig struct {
	CacheTTL time.Duration
}

// ExportsConfig gates the application register export.
type ExportsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxMediaSize := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxMediaSize <= 0 {
		maxMediaSize = 10 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		StorageDir:       v.GetString("MEDIA_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("MEDIA_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("MEDIA_SIGNED_URL_TTL"), 24*time.Hour),
		MaxFileSizeBytes: maxMediaSize,
		UploadRetries:    v.GetInt("MEDIA_UPLOAD_RETRIES"),
		UploadRetryDelay: parseDuration(v.GetString("MEDIA_UPLOAD_RETRY_DELAY"), 500*time.Millisecond),
	}

	cfg.Push = PushConfig{
		Workers:    v.GetInt("PUSH_WORKERS"),
		BufferSize: v.GetInt("PUSH_BUFFER_SIZE"),
		MaxRetries: v.GetInt("PUSH_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("PUSH_RETRY_DELAY"), time.Second),
	}

	cfg.Notifications = NotificationsConfig{
		ListPageSize: v.GetInt("NOTIFICATIONS_PAGE_SIZE"),
	}

	cfg.Directory = DirectoryConfig{
		CacheTTL: parseDuration(v.GetString("DIRECTORY_CACHE_TTL"), time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "airconnect")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MEDIA_STORAGE_DIR", "./media")
	v.SetDefault("MEDIA_SIGNED_URL_SECRET", "dev_media_secret")
	v.SetDefault("MEDIA_SIGNED_URL_TTL", "24h")
	v.SetDefault("MEDIA_UPLOAD_RETRIES", 3)
	v.SetDefault("MEDIA_UPLOAD_RETRY_DELAY", "500ms")

	v.SetDefault("PUSH_WORKERS", 2)
	v.SetDefault("PUSH_BUFFER_SIZE", 256)
	v.SetDefault("PUSH_MAX_RETRIES", 1)
	v.SetDefault("PUSH_RETRY_DELAY", "1s")

	v.SetDefault("NOTIFICATIONS_PAGE_SIZE", 20)
	v.SetDefault("DIRECTORY_CACHE_TTL", "1m")
	v.SetDefault("ENABLE_EXPORTS", true)
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
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
