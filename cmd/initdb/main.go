// Command initdb drops and recreates every table of the configured database.
package main

import (
	"context"
	"fmt"
	"time"

	"blog_app/internal/config"
	"blog_app/internal/db"

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

	pool, err := db.Init(&cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.InitSchema(ctx, pool, db.Dialect(cfg.DB.Driver)); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize the database")
	}

	fmt.Println("Initialized the database.")
}
