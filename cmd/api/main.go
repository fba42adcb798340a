package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payoff-planner/internal/config"
	"github.com/Dan9191/payoff-planner/internal/handler"
	"github.com/Dan9191/payoff-planner/internal/integrations/cbr"
	"github.com/Dan9191/payoff-planner/internal/middleware"
	"github.com/Dan9191/payoff-planner/internal/planner"
	"github.com/Dan9191/payoff-planner/internal/repository"
	"github.com/Dan9191/payoff-planner/internal/scheduler"
	"github.com/Dan9191/payoff-planner/internal/service"
	"github.com/Dan9191/payoff-planner/internal/shock"
	"github.com/Dan9191/payoff-planner/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	repo := repository.NewRepository(db, cfg.HMACSecret)
	if err := repo.Migrate(context.Background()); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis is optional; without it planner runs are not serialised across instances
	var locker *redislock.Client
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("Redis unavailable, planner runs will not be locked: %v", err)
		} else {
			locker = redislock.New(rdb)
		}
	}

	// Initialize layers
	cbrClient := cbr.NewClient(cfg.CBRURL, cfg.CBRMarginBps, logger)
	sender := email.NewSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SenderEmail,
	}, logger)
	detector := shock.NewDetector(repo, repo, cfg.ShockRatio, logger)
	pl := planner.New(cfg.Planner(), planner.Deps{
		Cashflow: repo,
		Goals:    repo,
		Ledger:   repo,
		Runs:     repo,
		Shock:    detector,
		Log:      logger,
	})
	svc := service.NewService(repo, pl, cbrClient, sender, locker, logger, cfg)
	h := handler.NewHandler(svc, logger)

	// Setup router
	r := mux.NewRouter()
	h.Routes(r, middleware.AuthMiddleware(cfg.JWTSecret))

	sched, err := scheduler.New(cfg.PlannerCron, svc, logger, 10*time.Minute)
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
