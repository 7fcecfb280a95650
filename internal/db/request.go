package db

import (
	"database/sql"
	"errors"

	"blog_app/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const requestConnKey = "db.requestConn"

// ErrNoRequestScope is returned by Get when Middleware is not installed on
// the route.
var ErrNoRequestScope = errors.New("db: no request-scoped connection slot")

type requestConn struct {
	pool *sql.DB
	conn *sql.Conn
}

// Middleware gives every request its own connection slot. The connection is
// acquired lazily by Get and released by Close once the handler chain
// returns, including when a handler aborts or panics.
func Middleware(pool *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestConnKey, &requestConn{pool: pool})
		defer Close(c)
		c.Next()
	}
}

// Get returns the connection owned by the current request, opening one on
// first access. Subsequent calls within the same request return the same
// connection.
func Get(c *gin.Context) (*sql.Conn, error) {
	rc, ok := slot(c)
	if !ok {
		return nil, ErrNoRequestScope
	}

	if rc.conn == nil {
		conn, err := rc.pool.Conn(c.Request.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to acquire request connection")
			return nil, err
		}
		rc.conn = conn
		observability.GlobalMetrics.DBRequestConnectionsOpened.Inc()
		observePool(rc.pool)
	}

	return rc.conn, nil
}

// Close releases and detaches the request's connection. It is a no-op when
// no connection was opened or it has already been closed.
func Close(c *gin.Context) {
	rc, ok := slot(c)
	if !ok || rc.conn == nil {
		return
	}

	if err := rc.conn.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close request connection")
	}
	rc.conn = nil
	observePool(rc.pool)
}

func slot(c *gin.Context) (*requestConn, bool) {
	v, ok := c.Get(requestConnKey)
	if !ok {
		return nil, false
	}
	rc, ok := v.(*requestConn)
	return rc, ok
}

func observePool(pool *sql.DB) {
	stats := pool.Stats()
	observability.GlobalMetrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	observability.GlobalMetrics.DBConnectionsInUse.Set(float64(stats.InUse))
}
