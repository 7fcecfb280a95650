package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"blog_app/internal/auth"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID       int
	Username string
}

func setupViewRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpl, err := Templates()
	require.NoError(t, err)

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(sessions.Sessions(auth.SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	return router
}

func TestTemplates_ParsesAllPages(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{
		"auth/register.html",
		"auth/login.html",
		"blog/index.html",
		"blog/create.html",
		"blog/update.html",
		"error.html",
	} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestRender_FlashesAreShownOnce(t *testing.T) {
	router := setupViewRouter(t)
	router.GET("/flash", func(c *gin.Context) {
		Flash(c, "Incorrect username.")
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"username": "ghost"})
	})
	router.GET("/login", func(c *gin.Context) {
		Render(c, http.StatusOK, "auth/login.html", nil)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/flash", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `<div class="flash">Incorrect username.</div>`)
	assert.Contains(t, w.Body.String(), `value="ghost"`)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Incorrect username.")
	assert.NotContains(t, w.Body.String(), "<no value>")
}

func TestRender_CurrentUserInNav(t *testing.T) {
	router := setupViewRouter(t)
	router.GET("/", func(c *gin.Context) {
		c.Set(auth.ContextUserKey, &testUser{ID: 1, Username: "alice"})
		Render(c, http.StatusOK, "blog/index.html", gin.H{"posts": nil})
	})
	router.GET("/anon", func(c *gin.Context) {
		var nobody *testUser
		c.Set(auth.ContextUserKey, nobody)
		Render(c, http.StatusOK, "blog/index.html", gin.H{"posts": nil})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), "alice")
	assert.Contains(t, w.Body.String(), "Log Out")
	assert.Contains(t, w.Body.String(), `href="/create"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/anon", nil))
	assert.Contains(t, w.Body.String(), "Log In")
	assert.NotContains(t, w.Body.String(), "Log Out")
	assert.Contains(t, w.Body.String(), "No posts yet.")
}

func TestRender_FormCarriesSessionToken(t *testing.T) {
	router := setupViewRouter(t)
	router.GET("/create", func(c *gin.Context) {
		Render(c, http.StatusOK, "blog/create.html", gin.H{"title": "New Post"})
	})
	router.GET("/token", func(c *gin.Context) {
		token, _ := sessions.Default(c).Get(auth.CSRFField).(string)
		c.String(http.StatusOK, token)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/create", nil))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	tw := httptest.NewRecorder()
	router.ServeHTTP(tw, req)

	token := tw.Body.String()
	require.NotEmpty(t, token)
	assert.Contains(t, w.Body.String(), `name="csrf_token" value="`+token+`"`)
}

func TestRejectForgedForm(t *testing.T) {
	router := setupViewRouter(t)
	router.POST("/create", RejectForgedForm, func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/create", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "The form has expired.")
}
