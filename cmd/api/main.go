package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog_app/internal/cache"
	"blog_app/internal/config"
	"blog_app/internal/db"
	"blog_app/internal/handler"
	"blog_app/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	gin.SetMode(cfg.GinMode)
	if cfg.SessionSecret == config.DevSessionSecret {
		logrus.Warn("SESSION_SECRET is not set, using the development secret")
	}

	pool, err := db.Init(&cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database connection")
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cache.SetupRedis(&cfg.Redis)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close redis connection")
			}
		}()
	} else {
		logrus.Info("Redis disabled: no rate limiting or post cache")
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitMQ.Enabled() {
		conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close RabbitMQ connection")
			}
		}()

		publisher, err = queue.NewRabbitPublisher(conn, cfg.RabbitMQ.Queue)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to set up event publisher")
		}
	} else {
		logrus.Info("RabbitMQ disabled: events are not published")
	}

	r := handler.SetupHandler(pool, db.Dialect(cfg.DB.Driver), publisher, rdb, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Starting server on :%s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shut down")
	}
}
