// Package testutil holds shared fixtures for package tests: a throwaway
// SQLite database, a cookie-keeping HTTP client and a recording publisher.
package testutil

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"blog_app/internal/config"
	"blog_app/internal/db"
	"blog_app/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// LoadTestConfig returns a configuration pointing at a SQLite file inside dir.
// Redis and RabbitMQ stay disabled.
func LoadTestConfig(dir string) *config.Config {
	return &config.Config{
		AppName:       "blog-test",
		AppEnv:        "test",
		AppPort:       "0",
		GinMode:       gin.TestMode,
		SessionSecret: "test-session-secret",
		DB: config.DBConfig{
			Driver: string(db.SQLite),
			Path:   filepath.Join(dir, "blog.sqlite"),
		},
	}
}

// NewTestDB opens a fresh SQLite database with the schema applied. The pool
// is closed when the test ends.
func NewTestDB(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	cfg := LoadTestConfig(t.TempDir())

	pool, err := db.Init(&cfg.DB)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	require.NoError(t, db.InitSchema(context.Background(), pool, db.SQLite))

	return pool, cfg
}

// Client drives a gin engine in-process and carries cookies between calls
// like a browser would.
type Client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func NewClient(t *testing.T, handler http.Handler) *Client {
	return &Client{
		t:       t,
		handler: handler,
		cookies: make(map[string]*http.Cookie),
	}
}

func (c *Client) Get(path string) *httptest.ResponseRecorder {
	return c.Do(httptest.NewRequest(http.MethodGet, path, nil))
}

// PostForm submits an urlencoded form.
func (c *Client) PostForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(req)
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// FormToken loads the page at path and returns the csrf token of its form.
func (c *Client) FormToken(path string) string {
	c.t.Helper()

	w := c.Get(path)
	require.Equal(c.t, http.StatusOK, w.Code, "GET %s", path)
	m := csrfInput.FindStringSubmatch(w.Body.String())
	require.Len(c.t, m, 2, "no csrf token on %s", path)
	return m[1]
}

func (c *Client) Do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()

	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}

	return w
}

// Cookie returns the stored cookie, or nil.
func (c *Client) Cookie(name string) *http.Cookie {
	return c.cookies[name]
}

// SetCookie replaces a stored cookie, e.g. to replay a stale session.
func (c *Client) SetCookie(ck *http.Cookie) {
	c.cookies[ck.Name] = ck
}

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, event queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Events() []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the event types in publish order.
func (p *RecordingPublisher) Types() []queue.EventType {
	var types []queue.EventType
	for _, e := range p.Events() {
		types = append(types, e.Type)
	}
	return types
}
