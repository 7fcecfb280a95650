package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/sirupsen/logrus"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema returns the bundled schema script for the dialect.
func Schema(dialect Dialect) (string, error) {
	var name string
	switch dialect {
	case SQLite:
		name = "schema/sqlite.sql"
	case Postgres:
		name = "schema/postgres.sql"
	default:
		return "", fmt.Errorf("no schema for dialect %q", dialect)
	}

	script, err := schemaFS.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(script), nil
}

// InitSchema drops and recreates every table. Existing data is destroyed.
func InitSchema(ctx context.Context, q DBTX, dialect Dialect) error {
	script, err := Schema(dialect)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logrus.WithField("dialect", dialect).Info("Database schema initialized")
	return nil
}
