package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// minJWTSecretLength はJWT署名鍵の最小バイト数。HS256の鍵長に合わせる。
const minJWTSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreDriver   string // "postgres" または "mongo"
	DatabaseURL   string
	MongoDatabase string

	// Auth
	JWTSecret           string
	JWTTTL              time.Duration
	JWTIssuer           string
	BcryptCost          int
	BcryptMaxConcurrent int

	// Catalog
	CatalogCacheSize int
	CatalogCacheTTL  time.Duration
	CatalogSeedFile  string // serveが起動時とSIGHUP時に取り込むYAML。空なら取り込まない

	// Worker
	CleanupSchedule   string
	WorkerMetricsPort string

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigins []string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}

	// Optional fields with defaults
	cfg.StoreDriver = strings.ToLower(getEnvString("STORE_DRIVER", "postgres"))
	if cfg.StoreDriver != "postgres" && cfg.StoreDriver != "mongo" {
		return nil, fmt.Errorf("unsupported STORE_DRIVER: %q", cfg.StoreDriver)
	}
	cfg.MongoDatabase = getEnvString("MONGO_DATABASE", "myflix")
	cfg.JWTTTL = getEnvDuration("JWT_TTL", 7*24*time.Hour)
	cfg.JWTIssuer = getEnvString("JWT_ISSUER", "myflix")
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 12)
	cfg.BcryptMaxConcurrent = getEnvInt("BCRYPT_MAX_CONCURRENT", runtime.NumCPU())
	cfg.CatalogCacheSize = getEnvInt("CATALOG_CACHE_SIZE", 256)
	cfg.CatalogCacheTTL = getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute)
	cfg.CatalogSeedFile = getEnvString("CATALOG_SEED_FILE", "")
	cfg.CleanupSchedule = getEnvString("CLEANUP_SCHEDULE", "@daily")
	cfg.WorkerMetricsPort = getEnvString("WORKER_METRICS_PORT", "9091")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"})

	return cfg, nil
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

// getEnvList はカンマ区切りの環境変数をスライスとして返す。空要素は除外する。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
