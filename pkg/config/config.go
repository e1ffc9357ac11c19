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

// Storage backends understood by storage.NewFromConfig.
const (
	StorageLocal  = "local"
	StorageS3     = "s3"
	StorageMemory = "memory"
)

// Session store backends.
const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Storage     StorageConfig
	Uploads     UploadsConfig
	Session     SessionConfig
	Ranking     RankingConfig
	Cache       CacheConfig
	Review      ReviewConfig
	BlobJanitor BlobJanitorConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig covers staff tokens only; submitters never log in.
type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects and configures the blob backend.
type StorageConfig struct {
	Backend string
	Dir     string
	S3      S3Config
}

// S3Config configures the S3 compatible backend. Endpoint is optional and
// enables path-style addressing for MinIO-like deployments.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// UploadsConfig holds the caps applied by the upload validator.
type UploadsConfig struct {
	MaxFilesPerBatch       int
	MaxBatchFileSize       int64
	MaxContentFileSize     int64
	MaxMemeFileSize        int64
	MaxArchiveEntries      int
	MaxArchiveUncompressed int64
	SkipOfficeInspection   bool
	Sniffer                string
	ArchiveChunkSize       int
}

// SessionConfig configures the anonymous session cookie and token store.
type SessionConfig struct {
	Store      string
	CookieName string
	TTL        time.Duration
	Secure     bool
	MaxEntries int
}

// RankingConfig configures anonymous teacher ranking votes.
type RankingConfig struct {
	TokenSecret string
	CookieName  string
	CookieTTL   time.Duration
}

// CacheConfig governs listing caches.
type CacheConfig struct {
	Enabled    bool
	TTL        time.Duration
	MaxEntries int
}

// ReviewConfig configures signed staff review links.
type ReviewConfig struct {
	Secret string
	TTL    time.Duration
}

// BlobJanitorConfig tunes the background retry of failed blob deletions.
type BlobJanitorConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		Dir:     v.GetString("STORAGE_DIR"),
		S3: S3Config{
			Bucket:       v.GetString("S3_BUCKET"),
			Region:       v.GetString("S3_REGION"),
			Endpoint:     v.GetString("S3_ENDPOINT"),
			Prefix:       v.GetString("S3_PREFIX"),
			AccessKey:    v.GetString("S3_ACCESS_KEY"),
			SecretKey:    v.GetString("S3_SECRET_KEY"),
			UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),
		},
	}

	cfg.Uploads = UploadsConfig{
		MaxFilesPerBatch:       positiveInt(v.GetInt("UPLOAD_MAX_FILES_PER_BATCH"), 10),
		MaxBatchFileSize:       positiveInt64(v.GetInt64("UPLOAD_MAX_BATCH_FILE_SIZE"), 15*1024*1024),
		MaxContentFileSize:     positiveInt64(v.GetInt64("UPLOAD_MAX_CONTENT_FILE_SIZE"), 25*1024*1024),
		MaxMemeFileSize:        positiveInt64(v.GetInt64("UPLOAD_MAX_MEME_FILE_SIZE"), 10*1024*1024),
		MaxArchiveEntries:      positiveInt(v.GetInt("UPLOAD_MAX_ARCHIVE_ENTRIES"), 200),
		MaxArchiveUncompressed: positiveInt64(v.GetInt64("UPLOAD_MAX_ARCHIVE_UNCOMPRESSED"), 150*1024*1024),
		SkipOfficeInspection:   v.GetBool("UPLOAD_SKIP_OFFICE_INSPECTION"),
		Sniffer:                strings.ToLower(v.GetString("UPLOAD_SNIFFER")),
		ArchiveChunkSize:       positiveInt(v.GetInt("ARCHIVE_CHUNK_SIZE"), 8*1024),
	}

	cfg.Session = SessionConfig{
		Store:      strings.ToLower(v.GetString("SESSION_STORE")),
		CookieName: v.GetString("SESSION_COOKIE_NAME"),
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 14*24*time.Hour),
		Secure:     v.GetBool("SESSION_COOKIE_SECURE"),
		MaxEntries: positiveInt(v.GetInt("SESSION_MAX_ENTRIES"), 10000),
	}

	cfg.Ranking = RankingConfig{
		TokenSecret: v.GetString("RANKING_TOKEN_SECRET"),
		CookieName:  v.GetString("RANKING_COOKIE_NAME"),
		CookieTTL:   parseDuration(v.GetString("RANKING_COOKIE_TTL"), 365*24*time.Hour),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("CACHE_ENABLED"),
		TTL:        parseDuration(v.GetString("CACHE_TTL"), 2*time.Minute),
		MaxEntries: positiveInt(v.GetInt("CACHE_MAX_ENTRIES"), 512),
	}

	cfg.Review = ReviewConfig{
		Secret: v.GetString("REVIEW_LINK_SECRET"),
		TTL:    parseDuration(v.GetString("REVIEW_LINK_TTL"), 30*time.Minute),
	}

	cfg.BlobJanitor = BlobJanitorConfig{
		Workers:    positiveInt(v.GetInt("BLOB_JANITOR_WORKERS"), 1),
		MaxRetries: v.GetInt("BLOB_JANITOR_RETRIES"),
		RetryDelay: parseDuration(v.GetString("BLOB_JANITOR_RETRY_DELAY"), 5*time.Second),
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
	v.SetDefault("DB_NAME", "content_vault")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "content-vault")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_BACKEND", StorageLocal)
	v.SetDefault("STORAGE_DIR", "./media")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "uploads")
	v.SetDefault("S3_USE_PATH_STYLE", false)

	v.SetDefault("UPLOAD_MAX_FILES_PER_BATCH", 10)
	v.SetDefault("UPLOAD_MAX_BATCH_FILE_SIZE", 15*1024*1024)
	v.SetDefault("UPLOAD_MAX_CONTENT_FILE_SIZE", 25*1024*1024)
	v.SetDefault("UPLOAD_MAX_MEME_FILE_SIZE", 10*1024*1024)
	v.SetDefault("UPLOAD_MAX_ARCHIVE_ENTRIES", 200)
	v.SetDefault("UPLOAD_MAX_ARCHIVE_UNCOMPRESSED", 150*1024*1024)
	v.SetDefault("UPLOAD_SKIP_OFFICE_INSPECTION", false)
	v.SetDefault("UPLOAD_SNIFFER", "signature")
	v.SetDefault("ARCHIVE_CHUNK_SIZE", 8*1024)

	v.SetDefault("SESSION_STORE", SessionStoreRedis)
	v.SetDefault("SESSION_COOKIE_NAME", "cv_session")
	v.SetDefault("SESSION_TTL", "336h")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_MAX_ENTRIES", 10000)

	v.SetDefault("RANKING_TOKEN_SECRET", "dev_ranking_secret")
	v.SetDefault("RANKING_COOKIE_NAME", "ranking_token")
	v.SetDefault("RANKING_COOKIE_TTL", "8760h")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "2m")
	v.SetDefault("CACHE_MAX_ENTRIES", 512)

	v.SetDefault("REVIEW_LINK_SECRET", "dev_review_secret")
	v.SetDefault("REVIEW_LINK_TTL", "30m")

	v.SetDefault("BLOB_JANITOR_WORKERS", 1)
	v.SetDefault("BLOB_JANITOR_RETRIES", 5)
	v.SetDefault("BLOB_JANITOR_RETRY_DELAY", "5s")
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

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveInt64(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
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
