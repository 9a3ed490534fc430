package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harmonyhq/lesson-scheduler/internal/app"
	"github.com/harmonyhq/lesson-scheduler/internal/cache"
	"github.com/harmonyhq/lesson-scheduler/internal/config"
	"github.com/harmonyhq/lesson-scheduler/internal/model"
	"github.com/harmonyhq/lesson-scheduler/internal/repository"
	"github.com/harmonyhq/lesson-scheduler/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := app.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	var scheduleCache *cache.ScheduleCache
	if cfg.RedisEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		scheduleCache = cache.NewScheduleCache(client, cfg.LessonCacheTTL)
		logger.Info("Schedule cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	userRepo := repository.NewUserRepository(pool)
	lessonRepo := repository.NewLessonRepository(pool)

	lessonService := service.NewLessonService(userRepo, lessonRepo, scheduleCache, logger)
	participantService := service.NewParticipantService(userRepo, logger)

	teachers, err := participantService.ListTeachers(ctx)
	if err != nil {
		logger.Fatal("Failed to query teachers", zap.Error(err))
	}
	students, err := participantService.ListStudents(ctx)
	if err != nil {
		logger.Fatal("Failed to query students", zap.Error(err))
	}
	pending, err := lessonService.ListLessons(ctx, pendingFilter())
	if err != nil {
		logger.Fatal("Failed to query pending lessons", zap.Error(err))
	}

	logger.Info("Lesson scheduler ready",
		zap.String("environment", cfg.Environment),
		zap.Int("teachers", len(teachers)),
		zap.Int("students", len(students)),
		zap.Int("pending_lessons", len(pending)),
	)

	// The engine is transport-agnostic; a transport binding (HTTP, RPC)
	// plugs in above this line. Block until shutdown.
	<-ctx.Done()

	logger.Info("Shutting down")
}

func pendingFilter() model.LessonFilter {
	status := model.LessonStatusPending
	return model.LessonFilter{Status: &status}
}
