package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"daily-catalog/internal/catalog"
	"daily-catalog/internal/config"
	"daily-catalog/internal/db"
	"daily-catalog/internal/featureflags"
	mw "daily-catalog/internal/http/middleware"
	"daily-catalog/internal/logger"
)

func main() {
	// 1) Config
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger.Init(cfg.LogLevel)

	// 2) DB init + schema
	sqlDB, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	defer sqlDB.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx, sqlDB); err != nil {
		cancelMigrate()
		log.Fatalf("database migrate failed: %v", err)
	}
	cancelMigrate()

	// 3) Feature flags init (non-fatal)
	flagCtx, cancelFlags := context.WithTimeout(context.Background(), 20*time.Second)
	if err := featureflags.Init(flagCtx, cfg.RolloutKey); err != nil {
		logger.Warnf("feature flags init warning: %v", err)
	} else {
		logger.SetLevel(featureflags.LogLevel())
		logger.Infof("feature flags ready: offline=%v, logLevel=%s", featureflags.Offline(), featureflags.LogLevel())
		go watchLogLevel()
	}
	cancelFlags()
	defer featureflags.Shutdown()
	logger.Infof("log level set to %s", logger.GetLevel())

	// 4) Listing cache (optional)
	var cache catalog.Cache = catalog.NopCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warnf("redis ping failed, listings will not be cached: %v", err)
		} else {
			cache = catalog.NewRedisCache(rdb, cfg.CacheTTL, "daily-catalog:")
			logger.Infof("listing cache enabled at %s ttl=%s", cfg.RedisAddr, cfg.CacheTTL)
		}
		cancelPing()
	}
	if cfg.JWTSecret == "" {
		logger.Warnf("JWT_SECRET not set; write endpoints will reject every token")
	}

	// 5) Router
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := sqlDB.PingContext(req.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/_flags", func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]interface{}{
			"offline":  featureflags.Offline(),
			"logLevel": featureflags.LogLevel(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}).Methods(http.MethodGet)

	// 6) Product endpoints
	store := catalog.NewStore(sqlDB)
	svc := catalog.NewService(store, cache)
	catalog.NewHandler(svc, cfg.JWTSecret).Register(r)

	// 7) Middleware: CORS, offline kill-switch, request log
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
	})
	chain := alice.New(
		corsHandler.Handler,
		mw.OfflineGate(featureflags.Offline, "/health", "/ready"),
		mw.LogRequests(mw.WithSkips("/health", "/ready")),
	)

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           chain.Then(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
	}

	go func() {
		logger.Infof("daily-catalog listening on %s", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Infof("daily-catalog stopped")
}

// watchLogLevel follows the logLevel flag
func watchLogLevel() {
	prev := featureflags.LogLevel()
	for {
		time.Sleep(5 * time.Second)
		cur := featureflags.LogLevel()
		if cur != prev {
			logger.SetLevel(cur)
			logger.Infof("log level changed to %s", logger.GetLevel())
			prev = cur
		}
	}
}
