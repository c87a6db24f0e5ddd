package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"screener"`
	Password string `env:"PASSWORD" envDefault:"screener"`
	Name     string `env:"NAME"     envDefault:"screener"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically
	// applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains the Redis configuration for the score cache. Leave
// Addr empty to disable caching.
type RedisConfig struct {
	Addr     string        `env:"ADDR"      envDefault:""`
	Password string        `env:"PASSWORD"  envDefault:""`
	DB       int           `env:"DB"        envDefault:"0"`
	ScoreTTL time.Duration `env:"SCORE_TTL" envDefault:"24h"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}
