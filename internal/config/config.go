// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL"`

	DB        DBConfig        `envPrefix:"DB_"`
	HTTP      HTTPConfig      `envPrefix:"HTTP_"`
	Store     StoreConfig     `envPrefix:"STORE_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Argon2    Argon2Config    `envPrefix:"ARGON2_"`
	Media     MediaConfig     `envPrefix:"MEDIA_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Jobs      JobsConfig      `envPrefix:"JOBS_"`
}

type HTTPConfig struct {
	Addr         string        `env:"ADDR" envDefault:":5000"`
	CertFile     string        `env:"CERT_FILE"`
	KeyFile      string        `env:"KEY_FILE"`
	ClientURLs   []string      `env:"CLIENT_URLS" envSeparator:"," envDefault:"http://localhost:5173"`
	MaxBodyBytes int64         `env:"MAX_BODY_BYTES" envDefault:"10485760"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	// StrictSecurity adds cross-origin isolation headers.
	StrictSecurity bool `env:"STRICT_SECURITY" envDefault:"false"`
}

// DBConfig tunes the database/sql pool.
type DBConfig struct {
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	PingTimeout     time.Duration `env:"PING_TIMEOUT" envDefault:"3s"`
}

type StoreConfig struct {
	Driver  string `env:"DRIVER" envDefault:"postgres"`
	Migrate bool   `env:"MIGRATE" envDefault:"true"`
}

// RedisConfig is optional. URL wins over the split fields; with neither set
// rate limiting and refresh tokens fall back to in-process implementations.
type RedisConfig struct {
	URL      string `env:"URL"`
	Addr     string `env:"ADDR"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	TLS      bool   `env:"TLS" envDefault:"false"`
}

func (r RedisConfig) Enabled() bool { return r.URL != "" || r.Addr != "" }

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
	ClockSkew  time.Duration `env:"CLOCK_SKEW" envDefault:"60s"`
}

type Argon2Config struct {
	Memory      uint32 `env:"MEMORY" envDefault:"131072"`
	Iterations  uint32 `env:"ITER" envDefault:"3"`
	Parallelism uint8  `env:"PAR" envDefault:"1"`
}

// MediaConfig points at an S3-compatible bucket that serves uploaded images
// publicly under PublicBaseURL.
type MediaConfig struct {
	Endpoint        string `env:"ENDPOINT"`
	Region          string `env:"REGION" envDefault:"auto"`
	Bucket          string `env:"BUCKET"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
	Folder          string `env:"FOLDER" envDefault:"book-review-platform"`
	MaxFileBytes    int64  `env:"MAX_FILE_BYTES" envDefault:"5242880"`
}

func (m MediaConfig) Enabled() bool { return m.Bucket != "" && m.PublicBaseURL != "" }

type RateLimitConfig struct {
	Enabled          bool          `env:"ENABLED" envDefault:"true"`
	RatePerSecond    float64       `env:"RPS" envDefault:"5"`
	Burst            int           `env:"BURST" envDefault:"20"`
	WindowLimit      int           `env:"WINDOW_LIMIT" envDefault:"3000"`
	Window           time.Duration `env:"WINDOW" envDefault:"60m"`
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW" envDefault:"5m"`
}

// JobsConfig schedules background upkeep. An empty ReconcileAt disables the
// nightly rating reconcile.
type JobsConfig struct {
	ReconcileAt string `env:"RECONCILE_AT" envDefault:"03:00"`
	TimeZone    string `env:"TZ" envDefault:"UTC"`
}

// Load reads envFiles (missing files are fine) and then parses the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err == nil {
			log.Printf("[config] loaded %s", f)
		}
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
