package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker-api/internal/config"
	"github.com/BuzzLyutic/task-tracker-api/internal/handler"
	"github.com/BuzzLyutic/task-tracker-api/internal/repo"
	"github.com/BuzzLyutic/task-tracker-api/internal/service"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Подключаем логгер
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Подключаем БД
	taskRepo, closeStore, err := openRepository(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	logger.Info("Successfully connected to the Database!", zap.String("driver", cfg.DatabaseDriver))

	taskHandler, err := handler.NewTaskHandler(service.NewTaskService(taskRepo), logger)
	if err != nil {
		logger.Fatal("Failed to build handler", zap.Error(err))
	}

	srv := &http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(taskHandler, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown: сначала дожидаемся активных запросов, потом закрываем хранилище
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("Shutting down server...")
				err := srv.Shutdown(ctx)
				closeStore()
				return err
			},
		},
	)

	exitCode := <-wait
	if exitCode != 0 {
		logger.Error("Shutdown finished with errors", zap.Int("exit_code", exitCode))
		logger.Sync()
		os.Exit(exitCode)
	}
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

// openRepository выбирает движок хранения по конфигурации
func openRepository(ctx context.Context, cfg config.Config) (repo.TaskRepository, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := repo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return repo.NewGormTaskRepo(db), func() { sqlDB.Close() }, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL) // Создаем пул соединений к БД
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil { // Пытаемся пингануть БД
			pool.Close()
			return nil, nil, fmt.Errorf("ping: %w", err)
		}

		taskRepo := repo.NewTaskRepo(pool)
		if err := taskRepo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return taskRepo, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
}
