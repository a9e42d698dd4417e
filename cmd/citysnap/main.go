package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/config"
	"github.com/citysnap/gateway/internal/db"
	dbRedis "github.com/citysnap/gateway/internal/db/redis"
	logpkg "github.com/citysnap/gateway/internal/logger"
	"github.com/citysnap/gateway/internal/metrics"
	"github.com/citysnap/gateway/internal/repository/osmcache"
	"github.com/citysnap/gateway/internal/storage/filesystem"
	"github.com/citysnap/gateway/internal/storage/s3"
	chiTransport "github.com/citysnap/gateway/internal/transport/chi"
	"github.com/citysnap/gateway/internal/transport/nominatim"
	openaiEnr "github.com/citysnap/gateway/internal/transport/openai"
	"github.com/citysnap/gateway/internal/transport/osm"
	buildinguc "github.com/citysnap/gateway/internal/usecase/building"
	healthuc "github.com/citysnap/gateway/internal/usecase/health"
	"github.com/citysnap/gateway/internal/version"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting citysnap gateway",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("cache", cfg.Cache.Enabled()),
		zap.Bool("enrichment", cfg.Enrichment.APIKey != ""),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx := context.Background()

	var store db.Store
	if cfg.Cache.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	geocoder, mapData := buildLookups(cfg, store, logger)

	enricher := openaiEnr.NewEnricher(openaiEnr.Config{
		APIKey:      cfg.Enrichment.APIKey,
		BaseURL:     cfg.Enrichment.BaseURL,
		Model:       cfg.Enrichment.Model,
		Temperature: cfg.Enrichment.Temperature,
		Logger:      logger,
	})
	if !enricher.Enabled() {
		logger.Warn("Enrichment disabled: no API key configured")
	}

	images, storagePinger, err := buildImageStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to create image storage", zap.Error(err))
	}

	buildingSvc := buildinguc.New(geocoder, mapData, enricher, images).
		WithTimeouts(buildinguc.Timeouts{
			Geocoding:  cfg.Geocoding.Timeout(),
			MapData:    cfg.MapData.Timeout(),
			Enrichment: cfg.Enrichment.Timeout(),
			ImageStore: cfg.Storage.Timeout(),
		})

	// Pass nil interfaces (not typed nil pointers) for unconfigured components.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	var enrichmentChecker healthuc.EnrichmentChecker
	if enricher.Enabled() {
		enrichmentChecker = enricher
	}
	healthSvc := healthuc.New(cachePinger, enrichmentChecker, storagePinger)

	server := chiTransport.NewServer(buildingSvc, healthSvc, logger)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildLookups assembles the OSM adapters, wrapped in the cache when one is configured.
func buildLookups(cfg config.Config, store db.Store, logger *zap.Logger) (buildinguc.Geocoder, buildinguc.MapData) {
	geo := nominatim.NewGeocoder(nominatim.Config{
		SearchURL:   cfg.Geocoding.SearchURL,
		ReverseURL:  cfg.Geocoding.ReverseURL,
		UserAgent:   cfg.Geocoding.UserAgent,
		Limit:       cfg.Geocoding.Limit,
		ReverseZoom: cfg.Geocoding.ReverseZoom,
		Timeout:     cfg.Geocoding.Timeout(),
		RetryMax:    cfg.Geocoding.RetryMax,
		Logger:      logger,
	})
	maps := osm.NewMapData(osm.Config{
		BaseURL:   cfg.MapData.BaseURL,
		UserAgent: cfg.MapData.UserAgent,
		Timeout:   cfg.MapData.Timeout(),
		RetryMax:  cfg.MapData.RetryMax,
		Logger:    logger,
	})

	if store == nil {
		return geo, maps
	}
	ttl := cfg.Cache.TTL()
	return osmcache.NewGeocoder(geo, store, ttl, metrics.CacheTotal, logger),
		osmcache.NewMapData(maps, store, ttl, metrics.CacheTotal, logger)
}

// buildImageStore returns the configured image store and, for remote backends, its health pinger.
func buildImageStore(
	ctx context.Context, cfg config.StorageConfig, logger *zap.Logger,
) (buildinguc.ImageStore, healthuc.StoragePinger, error) {
	switch cfg.Driver {
	case config.StorageS3:
		store, err := s3.New(s3.Config{
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			Bucket:        cfg.S3.Bucket,
			Region:        cfg.S3.Region,
			UseSSL:        cfg.S3.UseSSL,
			PublicBaseURL: cfg.S3.PublicBaseURL,
			MaxBytes:      cfg.MaxImageBytes,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		ensureCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
		defer cancel()
		if err := store.EnsureBucket(ensureCtx); err != nil {
			return nil, nil, err
		}
		logger.Info("Using S3 image storage", zap.String("bucket", cfg.S3.Bucket))
		return store, store, nil
	default:
		store, err := filesystem.New(cfg.UploadDir, cfg.MaxImageBytes, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using filesystem image storage", zap.String("dir", store.Dir()))
		return store, nil, nil
	}
}
