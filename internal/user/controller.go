package user

import (
	"errors"
	"fmt"
	"net/http"

	"blog_app/internal/auth"
	"blog_app/internal/db"
	"blog_app/internal/view"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IndexPath is where login and logout land.
const IndexPath = "/"

type UserController struct {
	userService UserServiceInterface
}

func NewUserController(userService UserServiceInterface) *UserController {
	return &UserController{
		userService: userService,
	}
}

type credentials struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// RegisterForm renders the registration page
func (a *UserController) RegisterForm(c *gin.Context) {
	view.Render(c, http.StatusOK, "auth/register.html", gin.H{"title": "Register"})
}

// Register handles user registration
func (a *UserController) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBind(&req); err != nil {
		view.RenderError(c, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	conn, err := db.Get(c)
	if err != nil {
		view.RenderError(c, http.StatusInternalServerError, "Database unavailable.")
		return
	}

	if _, err := a.userService.Register(c.Request.Context(), conn, req.Username, req.Password); err != nil {
		var status int
		var message string
		switch {
		case errors.Is(err, ErrUsernameRequired):
			status, message = http.StatusBadRequest, "Username is required."
		case errors.Is(err, ErrPasswordRequired):
			status, message = http.StatusBadRequest, "Password is required."
		case errors.Is(err, ErrPasswordTooLong):
			status, message = http.StatusBadRequest, "Password is too long."
		case errors.Is(err, ErrUsernameTaken):
			status, message = http.StatusConflict, fmt.Sprintf("User %s is already registered.", req.Username)
		default:
			logrus.WithError(err).Error("Failed to register user")
			view.RenderError(c, http.StatusInternalServerError, "Failed to create user.")
			return
		}

		view.Flash(c, message)
		view.Render(c, status, "auth/register.html", gin.H{
			"title":    "Register",
			"username": req.Username,
		})
		return
	}

	c.Redirect(http.StatusFound, LoginPath)
}

// LoginForm renders the login page
func (a *UserController) LoginForm(c *gin.Context) {
	view.Render(c, http.StatusOK, "auth/login.html", gin.H{"title": "Log In"})
}

// Login checks the credentials and starts a session for the user
func (a *UserController) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBind(&req); err != nil {
		view.RenderError(c, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	conn, err := db.Get(c)
	if err != nil {
		view.RenderError(c, http.StatusInternalServerError, "Database unavailable.")
		return
	}

	session := sessions.Default(c)

	user, err := a.userService.Login(c.Request.Context(), conn, req.Username, req.Password)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, ErrIncorrectUsername):
			message = "Incorrect username."
		case errors.Is(err, ErrIncorrectPassword):
			message = "Incorrect password."
		default:
			logrus.WithError(err).Error("Failed to log in user")
			view.RenderError(c, http.StatusInternalServerError, "Failed to log in.")
			return
		}

		// a failed attempt never leaves a previous identity behind
		session.Delete(auth.SessionUserIDKey)
		c.Set(auth.ContextUserKey, (*User)(nil))
		view.Flash(c, message)
		view.Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
			"title":    "Log In",
			"username": req.Username,
		})
		return
	}

	if err := auth.StartSession(session, user.ID); err != nil {
		logrus.WithError(err).Error("Failed to save session")
		view.RenderError(c, http.StatusInternalServerError, "Failed to save session.")
		return
	}

	c.Redirect(http.StatusFound, IndexPath)
}

// Logout clears the session
func (a *UserController) Logout(c *gin.Context) {
	if err := auth.EndSession(sessions.Default(c)); err != nil {
		logrus.WithError(err).Error("Failed to clear session")
		view.RenderError(c, http.StatusInternalServerError, "Failed to clear session.")
		return
	}

	c.Redirect(http.StatusFound, IndexPath)
}
