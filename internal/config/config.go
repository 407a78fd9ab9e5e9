package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	// コンテナにzoneinfoがなくてもSCHEDULE_TIMEZONEを解決できるようにする
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Scraper
	ScraperCommand       string
	ScraperEntrypoint    string
	ScraperWorkDir       string
	ScraperTimeout       time.Duration
	ScraperMaxConcurrent int
	ScraperMaxMessage    int

	// Schedule
	ScheduleApplyOnStart bool
	ScheduleTimezone     string
	ScheduleLocation     *time.Location // ScheduleTimezoneを解決した結果

	// Rate Limit（req/min/client）
	RateLimitControl int

	// Logging
	LogLevel         string
	LogRetentionDays int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリ（またはENV_FILEで指定したパス）に.envがあれば先に読み込む。
// 既に設定済みの環境変数は.envの値で上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
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
	cfg.ScraperCommand = getEnvString("SCRAPER_COMMAND", "python3")
	cfg.ScraperEntrypoint = getEnvString("SCRAPER_ENTRYPOINT", "main.py")
	cfg.ScraperWorkDir = getEnvString("SCRAPER_WORK_DIR", "./scraper")
	cfg.ScraperTimeout = getEnvDuration("SCRAPER_TIMEOUT", 120*time.Second)
	cfg.ScraperMaxConcurrent = getEnvInt("SCRAPER_MAX_CONCURRENT", 1)
	cfg.ScraperMaxMessage = getEnvInt("SCRAPER_MAX_MESSAGE", 2000)
	cfg.ScheduleApplyOnStart = getEnvBool("SCHEDULE_APPLY_ON_START", false)
	cfg.ScheduleTimezone = getEnvString("SCHEDULE_TIMEZONE", "Asia/Seoul")
	cfg.RateLimitControl = getEnvInt("RATE_LIMIT_CONTROL", 6)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogRetentionDays = getEnvInt("LOG_RETENTION_DAYS", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.ScraperMaxConcurrent < 1 {
		return nil, fmt.Errorf("SCRAPER_MAX_CONCURRENT must be at least 1, got %d", cfg.ScraperMaxConcurrent)
	}
	if cfg.ScraperTimeout <= 0 {
		return nil, fmt.Errorf("SCRAPER_TIMEOUT must be positive, got %s", cfg.ScraperTimeout)
	}

	loc, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE %q: %w", cfg.ScheduleTimezone, err)
	}
	cfg.ScheduleLocation = loc

	return cfg, nil
}

// loadDotEnv は.envファイルを読み込む。ファイルが存在しない場合は何もしない。
func loadDotEnv() error {
	path := getEnvString("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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
