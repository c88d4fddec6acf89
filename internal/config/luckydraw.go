package config

import "time"

// LuckyDrawConfig holds configuration for the lucky draw service
type LuckyDrawConfig struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Backend  BackendConfig
	RepoType string // memory, db
	Settings DrawSettings
}

// BackendConfig points at the forum backend that owns the prize pool
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DrawSettings tunes the decision window behaviour
type DrawSettings struct {
	WindowDuration time.Duration // how long the user has to pay or give up
	TickInterval   time.Duration // countdown display refresh resolution
	CacheCatalog   bool          // cache the normalized catalog in redis
	CatalogTTL     time.Duration
}

// LoadLuckyDrawConfig loads configuration for the lucky draw service
func LoadLuckyDrawConfig() *LuckyDrawConfig {
	redisConfig := RedisConfig{
		Host: getEnv("REDIS_HOST", "localhost"),
		Port: getEnv("REDIS_PORT", "6379"),
	}

	// An empty DB_HOST selects the local sqlite file instead of postgres.
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "forum_user"),
		Password: getEnv("DB_PASSWORD", "forum_pass"),
		Name:     getEnv("DB_NAME", "forum_db"),
	}

	return &LuckyDrawConfig{
		Server: ServerConfig{
			Port:     getEnv("LUCKYDRAW_SERVER_PORT", "8090"),
			Name:     "luckydraw-service",
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Redis:    redisConfig,
		Database: dbConfig,
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("FORUM_BACKEND_URL", "http://localhost:8080"),
			Timeout: time.Duration(getEnvInt("FORUM_BACKEND_TIMEOUT_MS", 5000)) * time.Millisecond,
		},
		RepoType: getEnv("LUCKYDRAW_REPO_TYPE", "memory"),
		Settings: DrawSettings{
			WindowDuration: time.Duration(getEnvInt("LUCKYDRAW_WINDOW_SECONDS", 600)) * time.Second,
			TickInterval:   time.Duration(getEnvInt("LUCKYDRAW_TICK_MILLIS", 250)) * time.Millisecond,
			CacheCatalog:   getEnvBool("LUCKYDRAW_CACHE_CATALOG", false),
			CatalogTTL:     time.Duration(getEnvInt("LUCKYDRAW_CATALOG_TTL_SECONDS", 300)) * time.Second,
		},
	}
}
