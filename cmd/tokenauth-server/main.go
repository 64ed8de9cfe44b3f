// Command tokenauth-server runs the tokenauth HTTP API.
//
// Configuration is read from TOKENAUTH_* environment variables. With
// -memory-redis an in-process miniredis replaces TOKENAUTH_REDIS_ADDR, and
// without TOKENAUTH_SQLITE_PATH identities are kept in memory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/httpapi"
	"github.com/MrEthical07/tokenauth/identity"
	"github.com/MrEthical07/tokenauth/identity/sqlite"
	promexport "github.com/MrEthical07/tokenauth/metrics/export/prometheus"
	"github.com/MrEthical07/tokenauth/provider"
	"github.com/alicebob/miniredis/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	memoryRedis := flag.Bool("memory-redis", false, "use an in-process miniredis instead of TOKENAUTH_REDIS_ADDR")
	flag.Parse()

	if err := run(*memoryRedis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(memoryRedis bool) error {
	raw, err := loadEnv()
	if err != nil {
		return err
	}
	level, err := raw.logLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(raw, memoryRedis, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	identities, closeIdentities, err := openIdentities(raw, logger)
	if err != nil {
		return err
	}
	defer closeIdentities()

	b := tokenauth.New().
		WithConfig(raw.engineConfig()).
		WithRedis(rdb).
		WithIdentityStore(identities).
		WithLogger(logger)
	if raw.AuditLog {
		b = b.WithAuditSink(tokenauth.NewSlogSink(logger))
	}
	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if err := engine.Ping(ctx); err != nil {
		logger.Warn("redis not reachable at startup", slog.Any("error", err))
	}

	clients, err := raw.providers()
	if err != nil {
		return fmt.Errorf("providers: %w", err)
	}
	registry := provider.NewRegistry(clients...)
	logger.Info("providers configured", slog.Any("providers", registry.Names()))

	reg := prom.NewRegistry()
	reg.MustRegister(
		promexport.NewExporter(engine),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := httpapi.NewRouter(httpapi.Options{
		Engine:      engine,
		Providers:   registry,
		Logger:      logger,
		Middlewares: append(raw.middlewares(), promexport.HTTPMiddleware(reg)),
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              raw.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", raw.HTTPAddr), slog.Bool("dev_login", raw.DevLogin))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openRedis(raw serverEnv, memory bool, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if memory {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		logger.Warn("using in-process miniredis; tokens are lost on restart", slog.String("addr", mr.Addr()))
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}
	if raw.RedisAddr == "" {
		return nil, nil, errors.New("TOKENAUTH_REDIS_ADDR is required without -memory-redis")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{raw.RedisAddr},
		Password: raw.RedisPassword,
		DB:       raw.RedisDB,
	})
	return client, func() { _ = client.Close() }, nil
}

func openIdentities(raw serverEnv, logger *slog.Logger) (identity.Store, func(), error) {
	if raw.SQLitePath == "" {
		logger.Warn("TOKENAUTH_SQLITE_PATH not set; identities are kept in memory")
		return identity.NewMemoryStore(), func() {}, nil
	}
	store, err := sqlite.Open(raw.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open identity store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}
