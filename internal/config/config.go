package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/minyanim/internal/zmanim"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort        string
	CORSAllowedOrigin string
	RateLimitGeneral  int // req/min
	AdminToken        string
	LogLevel          string

	// Location
	ZmanimLocationName string
	ZmanimLatitude     float64
	ZmanimLongitude    float64
	ZmanimTimeZone     string
	InIsrael           bool

	// Zmanim API
	ZmanimAPIURL     string
	ZmanimAPITimeout time.Duration
	ZmanimAPIRate    float64 // req/sec

	// Import
	ImportCron          string
	ImportTimeout       time.Duration
	ImportMaxSize       int64
	ImportMaxConcurrent int
	ImportOrgInterval   time.Duration
	ImportPastDays      int
	ImportAheadDays     int
	ImportRetryAttempts int
	ImportRetryBackoff  time.Duration

	// Retention
	EntryRetentionDays       int
	ZmanimCacheRetentionDays int
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.AdminToken = getEnvString("ADMIN_TOKEN", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.ZmanimLocationName = getEnvString("ZMANIM_LOCATION_NAME", zmanim.DefaultLocation.Name)
	cfg.ZmanimLatitude = getEnvFloat("ZMANIM_LATITUDE", zmanim.DefaultLocation.Latitude)
	cfg.ZmanimLongitude = getEnvFloat("ZMANIM_LONGITUDE", zmanim.DefaultLocation.Longitude)
	cfg.ZmanimTimeZone = getEnvString("ZMANIM_TIMEZONE", zmanim.DefaultLocation.TimeZone)
	cfg.InIsrael = getEnvBool("IN_ISRAEL", false)

	cfg.ZmanimAPIURL = getEnvString("ZMANIM_API_URL", zmanim.DefaultHebcalEndpoint)
	cfg.ZmanimAPITimeout = getEnvDuration("ZMANIM_API_TIMEOUT", 10*time.Second)
	cfg.ZmanimAPIRate = getEnvFloat("ZMANIM_API_RATE", 1)

	cfg.ImportCron = getEnvString("IMPORT_CRON", "0 2 * * 0")
	cfg.ImportTimeout = getEnvDuration("IMPORT_TIMEOUT", 30*time.Second)
	cfg.ImportMaxSize = getEnvInt64("IMPORT_MAX_SIZE", 5242880)
	cfg.ImportMaxConcurrent = getEnvInt("IMPORT_MAX_CONCURRENT", 4)
	cfg.ImportOrgInterval = getEnvDuration("IMPORT_ORG_INTERVAL", 2*time.Second)
	cfg.ImportPastDays = getEnvInt("IMPORT_PAST_DAYS", 7)
	cfg.ImportAheadDays = getEnvInt("IMPORT_AHEAD_DAYS", 56)
	cfg.ImportRetryAttempts = getEnvInt("IMPORT_RETRY_ATTEMPTS", 3)
	cfg.ImportRetryBackoff = getEnvDuration("IMPORT_RETRY_BACKOFF", time.Minute)

	cfg.EntryRetentionDays = getEnvInt("ENTRY_RETENTION_DAYS", 30)
	cfg.ZmanimCacheRetentionDays = getEnvInt("ZMANIM_CACHE_RETENTION_DAYS", 14)

	if cfg.ZmanimLatitude < -90 || cfg.ZmanimLatitude > 90 {
		return nil, fmt.Errorf("ZMANIM_LATITUDE is out of range: %v", cfg.ZmanimLatitude)
	}
	if cfg.ZmanimLongitude < -180 || cfg.ZmanimLongitude > 180 {
		return nil, fmt.Errorf("ZMANIM_LONGITUDE is out of range: %v", cfg.ZmanimLongitude)
	}
	if _, err := time.LoadLocation(cfg.ZmanimTimeZone); err != nil {
		return nil, fmt.Errorf("ZMANIM_TIMEZONE is invalid: %w", err)
	}

	return cfg, nil
}

// ZmanimLocation はズマン計算の基準地点を返す。
func (c *Config) ZmanimLocation() zmanim.Location {
	return zmanim.Location{
		Name:      c.ZmanimLocationName,
		Latitude:  c.ZmanimLatitude,
		Longitude: c.ZmanimLongitude,
		TimeZone:  c.ZmanimTimeZone,
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return defaultVal
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultVal
	}
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
