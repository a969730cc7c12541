// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chatling/v2/internal/application/exercise"
	apptutoring "github.com/chatling/v2/internal/application/tutoring"
	"github.com/chatling/v2/internal/infrastructure/config"
	"github.com/chatling/v2/internal/infrastructure/http/server"
	"github.com/chatling/v2/internal/infrastructure/llm"
	"github.com/chatling/v2/internal/infrastructure/monitoring"
	gormRepo "github.com/chatling/v2/internal/infrastructure/persistence/gorm"
	"github.com/chatling/v2/internal/infrastructure/persistence/memory"
	redisRepo "github.com/chatling/v2/internal/infrastructure/persistence/redis"
	"github.com/chatling/v2/internal/infrastructure/persistence/sqlite"
	"github.com/chatling/v2/internal/ports/inbound"
	"github.com/chatling/v2/internal/ports/outbound"
	"github.com/chatling/v2/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	DatabaseModule,
	CacheModule,
	RepositoryModule,
	ServiceModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			Development: cfg.IsDevelopment(),
		})
	},
)

// MonitoringModule provides Prometheus metrics
var MonitoringModule = fx.Provide(
	func(cfg *config.Config) *monitoring.Metrics {
		if !cfg.Monitoring.Enabled {
			return nil
		}
		return monitoring.New()
	},
)

// DatabaseModule provides the SQLite database connection
var DatabaseModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		db, err := sqlite.SetupDatabase(cfg.Database.Path, sqlite.ParseLogLevel(cfg.Database.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
		log.Info("Connected to SQLite database",
			zap.String("path", cfg.Database.Path),
			zap.Bool("in_memory", cfg.Database.Path == "" || cfg.Database.Path == ":memory:"),
		)
		return db, nil
	},
)

// CacheModule provides caching, backed by Redis when enabled
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.CacheRepository {
		if !cfg.Redis.Enabled {
			log.Info("Redis disabled, using in-memory cache")
			return memory.NewCacheRepository()
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		log.Info("Using Redis cache", zap.String("addr", cfg.Redis.Addr()))
		return redisRepo.NewCacheRepository(client, log)
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormRepo.NewConversationRepository,
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	// Chat-completions client
	func(cfg *config.Config, metrics *monitoring.Metrics, log *zap.Logger) outbound.ChatCompleter {
		return llm.NewClient(llm.Config{
			BaseURL:           cfg.AI.BaseURL,
			APIKey:            cfg.AI.APIKey,
			Model:             cfg.AI.Model,
			Timeout:           cfg.AI.Timeout,
			MaxRetries:        cfg.AI.MaxRetries,
			Backoff:           cfg.AI.Backoff,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
			Burst:             cfg.AI.Burst,
		}, metrics, log)
	},

	// Tutoring service
	fx.Annotate(
		func(
			completer outbound.ChatCompleter,
			store outbound.ConversationRepository,
			cache outbound.CacheRepository,
			cfg *config.Config,
			log *zap.Logger,
		) *apptutoring.Service {
			return apptutoring.NewService(completer, store, cache, apptutoring.Options{
				AnnotationBudget: cfg.Tutoring.AnnotationBudget,
				TaskMaxTokens:    cfg.Tutoring.TaskMaxTokens,
				TaskTemperature:  cfg.Tutoring.TaskTemperature,
				ChatMaxTokens:    cfg.Tutoring.ChatMaxTokens,
				ChatTemperature:  cfg.Tutoring.ChatTemperature,
				CacheTTL:         cfg.Tutoring.CacheTTL,
			}, log)
		},
		fx.As(new(inbound.TutorService)),
	),

	// Exercise service
	fx.Annotate(
		func(
			completer outbound.ChatCompleter,
			cache outbound.CacheRepository,
			log *zap.Logger,
		) *exercise.Service {
			return exercise.NewService(completer, cache, log)
		},
		fx.As(new(inbound.ExerciseService)),
	),
)

// HTTPModule provides the HTTP server
var HTTPModule = fx.Provide(
	server.NewServer,
)

// LifecycleModule manages server start and graceful shutdown
var LifecycleModule = fx.Invoke(
	func(lc fx.Lifecycle, srv *server.Server, cfg *config.Config, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("HTTP server stopped", zap.Error(err))
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			},
		})
	},
)
