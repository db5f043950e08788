package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/5w1tchy/book-reviews/internal/api/handlers/books"
	"github.com/5w1tchy/book-reviews/internal/api/handlers/reviews"
	"github.com/5w1tchy/book-reviews/internal/api/handlers/upload"
	mw "github.com/5w1tchy/book-reviews/internal/api/middlewares"
	"github.com/5w1tchy/book-reviews/internal/api/router"
	"github.com/5w1tchy/book-reviews/internal/auth"
	"github.com/5w1tchy/book-reviews/internal/config"
	"github.com/5w1tchy/book-reviews/internal/maintenance"
	"github.com/5w1tchy/book-reviews/internal/repository/sqlconnect"
	jwtutil "github.com/5w1tchy/book-reviews/internal/security/jwt"
	"github.com/5w1tchy/book-reviews/internal/security/password"
	svcbooks "github.com/5w1tchy/book-reviews/internal/service/books"
	svcreviews "github.com/5w1tchy/book-reviews/internal/service/reviews"
	storage "github.com/5w1tchy/book-reviews/internal/storage/s3"
	"github.com/5w1tchy/book-reviews/internal/store"
	"github.com/5w1tchy/book-reviews/internal/store/memstore"
	"github.com/5w1tchy/book-reviews/internal/store/pg"
	"github.com/5w1tchy/book-reviews/internal/validate"
	"github.com/5w1tchy/book-reviews/pkg/utils"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load(".env", "../../.env")
	if err != nil {
		log.Fatalf("[server] config: %v", err)
	}
	if err := validate.Config(cfg); err != nil {
		log.Fatalf("[server] config: %v", err)
	}
	for _, w := range validate.HardeningWarnings(cfg) {
		log.Printf("[server] warning: %s", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[server] store: %v", err)
	}
	defer st.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = newRedis(cfg.Redis)
		if err != nil {
			log.Fatalf("[server] redis: %v", err)
		}
		// Fail fast if Redis isn't reachable
		if err := validate.PingRedis(rdb, 3*time.Second); err != nil {
			log.Fatalf("[server] redis connection failed: %v", err)
		}
		defer rdb.Close()
		log.Println("[server] connected to Redis")
	}

	var refresh auth.RefreshStore = auth.NewMemoryRefreshStore()
	if rdb != nil {
		refresh = auth.NewRedisRefreshStore(rdb)
	}

	var objects upload.ObjectStore
	switch u, err := storage.New(ctx, cfg.Media); {
	case err == nil:
		objects = u
	case errors.Is(err, storage.ErrDisabled):
	default:
		log.Fatalf("[server] media: %v", err)
	}

	v := validate.New(nil)
	tokens := jwtutil.New(cfg.Auth)

	var loginLimit func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		loginLimit = mw.LoginRateLimit(rdb, cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow)
	}

	routes := router.Router(router.Deps{
		Auth:       auth.New(st, tokens, password.NewHasher(cfg.Argon2), refresh, cfg.Auth.RefreshTTL, v),
		Books:      books.New(svcbooks.New(st, v)),
		Reviews:    reviews.New(svcreviews.New(st, v)),
		Upload:     upload.New(objects, cfg.Media.Folder, cfg.Media.MaxFileBytes),
		Tokens:     tokens,
		Versions:   st,
		LoginLimit: loginLimit,
	})

	chain := []utils.Middleware{
		mw.RequestID,
		mw.Recovery,
		mw.ResponseTime,
		mw.Cors(cfg.HTTP.ClientURLs),
		mw.SecurityHeaders(cfg.HTTP.StrictSecurity),
	}
	chain = append(chain, rateLimiters(cfg.RateLimit, rdb)...)
	chain = append(chain,
		mw.HPP(mw.DefaultHPPOptions()),
		mw.BodySizeLimit(cfg.HTTP.MaxBodyBytes, cfg.Media.MaxFileBytes*upload.MaxFiles+1<<20),
		mw.Compression,
	)
	secureMux := utils.ApplyMiddleware(routes, chain...)

	if cfg.Jobs.ReconcileAt != "" {
		maintenance.StartAggregateReconcile(ctx, st, cfg.Jobs.ReconcileAt, cfg.Jobs.TimeZone)
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           secureMux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	go func() {
		var err error
		log.Printf("[server] listening on %s (store=%s, tls=%t)", cfg.HTTP.Addr, cfg.Store.Driver, cfg.HTTP.CertFile != "")
		if cfg.HTTP.CertFile != "" {
			err = server.ListenAndServeTLS(cfg.HTTP.CertFile, cfg.HTTP.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] error starting server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Store.Driver == config.DriverMemory {
		log.Println("[server] using in-memory store")
		return memstore.New(), nil
	}
	db, err := sqlconnect.ConnectDB(ctx, cfg.DatabaseURL, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Migrate {
		if err := pg.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Println("[server] schema migrated")
	}
	return pg.New(db), nil
}

func newRedis(rc config.RedisConfig) (*redis.Client, error) {
	if rc.URL != "" {
		// full URL, e.g. rediss://default:<token>@host:port
		opt, err := redis.ParseURL(rc.URL)
		if err != nil {
			return nil, err
		}
		opt.DialTimeout = 5 * time.Second
		opt.ReadTimeout = 1 * time.Second
		opt.WriteTimeout = 1 * time.Second
		return redis.NewClient(opt), nil
	}

	opt := &redis.Options{
		Addr:         rc.Addr,
		Username:     rc.User,
		Password:     rc.Password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}
	if rc.TLS {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opt), nil
}

// rateLimiters returns the global limiters: Redis token bucket plus sliding
// window when Redis is up, a per-process token bucket otherwise.
func rateLimiters(rl config.RateLimitConfig, rdb *redis.Client) []utils.Middleware {
	if !rl.Enabled {
		return nil
	}
	if rdb == nil {
		return []utils.Middleware{mw.NewLocalLimiter(rl.RatePerSecond, rl.Burst, mw.PerIPKey("tb")).Middleware}
	}
	tb := mw.NewRedisTokenBucket(rdb, rl.RatePerSecond, rl.Burst, mw.PerIPKey("tb"))
	sw := mw.NewRedisSlidingWindow(rdb, rl.WindowLimit, rl.Window, mw.PerIPKey("sw"))
	return []utils.Middleware{tb.Middleware, sw.Middleware}
}
