package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"blog_app/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const maxRetries = 5

// Init opens the connection pool for the configured driver and verifies it
// with a ping, retrying with a linear backoff.
func Init(DBCfg *config.DBConfig) (*sql.DB, error) {
	dialect := Dialect(DBCfg.Driver)

	dsn, err := dataSourceName(DBCfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open(dialect.DriverName(), dsn)
		if err != nil {
			logrus.WithError(err).Warnf("Failed to open database connection (attempt %d/%d)", i+1, maxRetries)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		if err = db.Ping(); err != nil {
			logrus.WithError(err).Warnf("Failed to ping database (attempt %d/%d)", i+1, maxRetries)
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database connection")
			}
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		break
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	if dialect == SQLite {
		// a single file; writers serialize on the busy timeout anyway
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(8)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	logrus.WithField("driver", DBCfg.Driver).Info("Database connection established successfully")
	return db, nil
}

func dataSourceName(DBCfg *config.DBConfig) (string, error) {
	switch Dialect(DBCfg.Driver) {
	case SQLite:
		if dir := filepath.Dir(DBCfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", DBCfg.Path), nil
	case Postgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			DBCfg.Host, DBCfg.Port, DBCfg.User, DBCfg.Password, DBCfg.Name, DBCfg.SSLMode), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", DBCfg.Driver)
	}
}
