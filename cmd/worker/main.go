package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"blog_app/internal/config"
	"blog_app/internal/db"
	"blog_app/internal/queue"
	"blog_app/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const workerCount = 3

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	if !cfg.RabbitMQ.Enabled() {
		logrus.Fatal("RABBITMQ_URL is required to run the worker")
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

	conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close RabbitMQ connection")
		}
	}()

	consumerChannel, err := queue.CreateChannel(conn)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create RabbitMQ channel")
	}
	if _, err := queue.DeclareQueue(consumerChannel, cfg.RabbitMQ.Queue); err != nil {
		logrus.WithError(err).Fatal("Failed to declare RabbitMQ queue")
	}
	if err := consumerChannel.Close(); err != nil {
		logrus.WithError(err).Fatal("Failed to close RabbitMQ channel")
	}

	// Start metrics HTTP server for Prometheus scraping
	metricsSrv := &http.Server{Addr: ":8088", Handler: promhttp.Handler()}
	go func() {
		logrus.Info("Worker metrics server started on :8088")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start metrics server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect := db.Dialect(cfg.DB.Driver)

	var wg sync.WaitGroup
	for i := 1; i <= workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := worker.StartWorker(ctx, conn, pool, dialect, cfg.RabbitMQ.Queue, id); err != nil {
				logrus.WithError(err).Errorf("Worker %d exited", id)
			}
		}(i)
	}

	wg.Wait()
	logrus.Info("Workers stopped")

	if err := metricsSrv.Shutdown(context.Background()); err != nil {
		logrus.WithError(err).Error("Failed to stop metrics server")
	}
}
