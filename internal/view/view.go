// Package view renders the server-side HTML pages.
package view

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"blog_app/internal/auth"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//go:embed templates
var templateFS embed.FS

var funcMap = template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
}

// Templates parses every embedded page. Pages are addressed by the name in
// their define block, e.g. "auth/login.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html", "templates/*/*.html")
}

// Render writes the named page. The current user, the form token and any
// pending flash messages are added to data; rendering consumes the flashes.
func Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	session := sessions.Default(c)
	data["messages"] = session.Flashes()
	token, err := auth.CSRFToken(session)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate form token")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	data[auth.CSRFField] = token
	if err := session.Save(); err != nil {
		logrus.WithError(err).Warn("Failed to save session after reading flashes")
	}

	if user, ok := c.Get(auth.ContextUserKey); ok {
		data["user"] = user
	}

	c.HTML(status, name, data)
}

// Flash queues a one-shot message for the next rendered page.
func Flash(c *gin.Context, message string) {
	sessions.Default(c).AddFlash(message)
}

// RejectForgedForm ends requests whose form token does not match the session.
func RejectForgedForm(c *gin.Context) {
	logrus.WithField("path", c.Request.URL.Path).Warn("Rejected form with invalid csrf token")
	RenderError(c, http.StatusForbidden, "The form has expired. Reload the page and try again.")
}

// RenderError writes the error page and aborts the handler chain.
func RenderError(c *gin.Context, status int, message string) {
	Render(c, status, "error.html", gin.H{
		"title":      http.StatusText(status),
		"status":     status,
		"statusText": http.StatusText(status),
		"message":    message,
	})
	c.Abort()
}
