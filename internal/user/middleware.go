package user

import (
	"errors"
	"net/http"

	"blog_app/internal/auth"
	"blog_app/internal/db"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LoginPath is where anonymous users are sent by LoginRequired.
const LoginPath = "/auth/login"

// LoadLoggedInUser resolves the session's user id before every request and
// attaches the user to the context. Requests without a session id, or whose
// id no longer resolves, carry a nil user.
func LoadLoggedInUser(service UserServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		var current *User

		userID, ok := auth.SessionUserID(sessions.Default(c))
		if !ok {
			c.Set(auth.ContextUserKey, current)
			c.Next()
			return
		}

		conn, err := db.Get(c)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		u, err := service.GetUserByID(c.Request.Context(), conn, userID)
		switch {
		case err == nil:
			current = u
		case errors.Is(err, ErrUserNotFound):
			logrus.WithField("user_id", userID).Info("Session refers to a missing user")
		default:
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(auth.ContextUserKey, current)
		c.Next()
	}
}

// LoginRequired redirects anonymous requests to the login page instead of
// running the wrapped handlers.
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Current(c) == nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Current returns the user attached by LoadLoggedInUser, or nil.
func Current(c *gin.Context) *User {
	v, ok := c.Get(auth.ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*User)
	return u
}
