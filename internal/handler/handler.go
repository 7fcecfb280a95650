package handler

import (
	"context"
	"database/sql"
	"html/template"
	"net/http"
	"time"

	"blog_app/internal/auth"
	"blog_app/internal/cache"
	"blog_app/internal/config"
	"blog_app/internal/db"
	"blog_app/internal/middleware"
	"blog_app/internal/observability"
	"blog_app/internal/post"
	"blog_app/internal/queue"
	"blog_app/internal/user"
	"blog_app/internal/view"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionMaxAge = 7 * 24 * 60 * 60

// SetupHandler initializes all dependencies and routes. A nil redisClient
// disables rate limiting and the post cache. A nil publisher drops events.
func SetupHandler(pool *sql.DB, dialect db.Dialect, publisher queue.Publisher, redisClient *redis.Client, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.PrometheusMiddleware(observability.GlobalMetrics))
	r.SetHTMLTemplate(template.Must(view.Templates()))

	// Initialize repositories
	userRepo := user.NewUserRepository(dialect)
	postRepo := post.NewPostRepository(dialect)

	// Initialize services
	userService := user.NewUserService(userRepo, publisher)
	postService := post.NewPostService(postRepo, cache.NewPostCache(redisClient), publisher)

	// Initialize controllers
	userController := user.NewUserController(userService)
	postController := post.NewPostController(postService)

	// Operational routes stay outside the session and connection scope
	r.GET("/health", healthCheck(pool))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})

	app := r.Group("/")
	app.Use(
		sessions.Sessions(auth.SessionCookieName, store),
		db.Middleware(pool),
		user.LoadLoggedInUser(userService),
	)

	setupRoutes(app, userController, postController, redisClient)

	return r
}

// setupRoutes configures all application routes
func setupRoutes(app *gin.RouterGroup, userCtrl *user.UserController, postCtrl *post.PostController, redisClient *redis.Client) {
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return []gin.HandlerFunc{h}
	}
	if redisClient != nil {
		limiter := middleware.RateLimiterMiddleware(redisClient, middleware.StrictRateLimiter(), middleware.ClientIPKey("auth"))
		limited = func(h gin.HandlerFunc) []gin.HandlerFunc {
			return []gin.HandlerFunc{limiter, h}
		}
	}

	// Public routes - Authentication
	authGroup := app.Group("/auth")
	{
		authGroup.GET("/register", userCtrl.RegisterForm)
		authGroup.POST("/register", limited(userCtrl.Register)...)
		authGroup.GET("/login", userCtrl.LoginForm)
		authGroup.POST("/login", limited(userCtrl.Login)...)
		authGroup.GET("/logout", userCtrl.Logout)
	}

	app.GET("/", postCtrl.Index)

	// Protected routes - anonymous users are sent to the login page
	blog := app.Group("/")
	blog.Use(user.LoginRequired(), auth.VerifyCSRF(view.RejectForgedForm))
	{
		blog.GET("/create", postCtrl.CreateForm)
		blog.POST("/create", postCtrl.Create)
		blog.GET("/:id/update", postCtrl.UpdateForm)
		blog.POST("/:id/update", postCtrl.Update)
		blog.POST("/:id/delete", postCtrl.Delete)
	}
}

func healthCheck(pool *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pool.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
