package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/5w1tchy/book-reviews/internal/config"
	"github.com/redis/go-redis/v9"
)

// Config checks cfg for settings the server cannot run with. Fail-fast on bad config.
func Config(cfg config.Config) error {
	if len(cfg.Auth.JWTSecret) < 32 {
		return errors.New("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if cfg.Auth.AccessTTL <= 0 {
		return fmt.Errorf("AUTH_ACCESS_TTL: invalid duration %s", cfg.Auth.AccessTTL)
	}
	if cfg.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("AUTH_REFRESH_TTL: invalid duration %s", cfg.Auth.RefreshTTL)
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL not set")
		}
	case config.DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.Store.Driver)
	}

	if cfg.Argon2.Memory < 65536 { // >= 64MiB
		return fmt.Errorf("ARGON2_MEMORY: must be >= %d", 65536)
	}
	if cfg.Argon2.Iterations < 2 {
		return fmt.Errorf("ARGON2_ITER: must be >= %d", 2)
	}
	if cfg.Argon2.Parallelism < 1 {
		return fmt.Errorf("ARGON2_PAR: must be >= %d", 1)
	}

	if (cfg.HTTP.CertFile == "") != (cfg.HTTP.KeyFile == "") {
		return errors.New("HTTP_CERT_FILE and HTTP_KEY_FILE must be set together")
	}
	if at := cfg.Jobs.ReconcileAt; at != "" {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("JOBS_RECONCILE_AT: want HH:MM, got %q", at)
		}
	}
	if _, err := time.LoadLocation(cfg.Jobs.TimeZone); err != nil {
		return fmt.Errorf("JOBS_TZ: %w", err)
	}
	return nil
}

// HardeningWarnings returns non-fatal warnings you may want to log on startup.
func HardeningWarnings(cfg config.Config) []string {
	var warns []string

	if cfg.Auth.AccessTTL > time.Hour {
		warns = append(warns, fmt.Sprintf("AUTH_ACCESS_TTL=%s is > 1h; consider shorter access tokens", cfg.Auth.AccessTTL))
	}
	if cfg.Auth.RefreshTTL < 24*time.Hour {
		warns = append(warns, fmt.Sprintf("AUTH_REFRESH_TTL=%s is < 24h; users may be logged out too often", cfg.Auth.RefreshTTL))
	}
	if !cfg.Media.Enabled() {
		warns = append(warns, "MEDIA_BUCKET/MEDIA_PUBLIC_BASE_URL not set; image uploads are disabled")
	}

	if strings.EqualFold(cfg.AppEnv, "production") {
		if cfg.Store.Driver == config.DriverMemory {
			warns = append(warns, "STORE_DRIVER=memory in production; data is lost on restart")
		}
		if !cfg.Redis.Enabled() {
			warns = append(warns, "Redis not configured; refresh tokens and rate limits are per-process")
		}
		if strings.HasPrefix(cfg.Redis.URL, "redis://") {
			warns = append(warns, "REDIS_URL uses redis:// (no TLS). Prefer rediss:// for TLS")
		}
		if cfg.Redis.Addr != "" && (cfg.Redis.User == "" || cfg.Redis.Password == "") {
			warns = append(warns, "REDIS_ADDR provided without REDIS_USER/REDIS_PASSWORD; require auth in production")
		}
		if cfg.HTTP.CertFile == "" {
			warns = append(warns, "HTTP_CERT_FILE not set; serving plain HTTP")
		}
	}
	return warns
}

// PingRedis checks connectivity with a short timeout.
func PingRedis(rdb *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := rdb.Ping(ctx).Result()
	return err
}
