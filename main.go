package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/tumor-predict/internal/classifier"
	"github.com/example/tumor-predict/internal/config"
	"github.com/example/tumor-predict/internal/handlers"
	"github.com/example/tumor-predict/internal/imageprocessor"
	"github.com/example/tumor-predict/internal/logging"
	"github.com/example/tumor-predict/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	gin.SetMode(cfg.GinMode)

	catalog, err := loadCatalog(cfg.LabelCatalogPath)
	if err != nil {
		logger.Fatal("failed to load label catalog", zap.Error(err), zap.String("path", cfg.LabelCatalogPath))
	}

	opts := []usecase.Option{}
	if cfg.CacheEnabled() {
		cache := initCache(cfg, logger)
		defer cache.Close()
		opts = append(opts, usecase.WithCache(cache, cfg.CacheTTL))
	}

	uc := usecase.NewPredictionUseCase(
		classifier.NewKeywordClassifier(catalog),
		imageprocessor.NewJPEGEncoder(cfg.JPEGQuality),
		logger,
		opts...,
	)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(uc, logger, cfg.MaxUploadBytes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("prediction API listening",
		zap.String("addr", cfg.Addr()),
		zap.Bool("cache", cfg.CacheEnabled()),
		zap.Int("keywords", len(catalog.Keywords())))
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func loadCatalog(path string) (*classifier.Catalog, error) {
	if path == "" {
		return classifier.DefaultCatalog(), nil
	}
	return classifier.LoadCatalog(path)
}

// initCache connects to Redis. An unreachable server is only logged: the cache is optional
// and the client reconnects on its own.
func initCache(cfg *config.Config, zapLogger *zap.Logger) *usecase.RedisCache {
	cache := usecase.NewRedisCache(usecase.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		zapLogger.Warn("redis unreachable, continuing without warm cache", zap.Error(err), zap.String("addr", cfg.RedisAddr))
	}
	return cache
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
