package post

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"blog_app/internal/db"
	"blog_app/internal/user"
	"blog_app/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PostController struct {
	service PostServiceInterface
}

func NewPostController(service PostServiceInterface) *PostController {
	return &PostController{
		service: service,
	}
}

type postForm struct {
	Title string `form:"title"`
	Body  string `form:"body"`
}

// Index lists every post, newest first
func (pc *PostController) Index(c *gin.Context) {
	conn, ok := requestConn(c)
	if !ok {
		return
	}

	posts, err := pc.service.ListPosts(c.Request.Context(), conn)
	if err != nil {
		logrus.WithError(err).Error("Failed to list posts")
		view.RenderError(c, http.StatusInternalServerError, "Failed to load posts.")
		return
	}

	view.Render(c, http.StatusOK, "blog/index.html", gin.H{
		"title": "Posts",
		"posts": posts,
	})
}

// CreateForm renders the empty post form
func (pc *PostController) CreateForm(c *gin.Context) {
	view.Render(c, http.StatusOK, "blog/create.html", gin.H{"title": "New Post"})
}

// Create stores a post written by the logged-in user
func (pc *PostController) Create(c *gin.Context) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		view.RenderError(c, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	conn, ok := requestConn(c)
	if !ok {
		return
	}

	_, err := pc.service.CreatePost(c.Request.Context(), conn, user.Current(c), form.Title, form.Body)
	if errors.Is(err, ErrTitleRequired) {
		view.Flash(c, "Title is required.")
		view.Render(c, http.StatusBadRequest, "blog/create.html", gin.H{
			"title":     "New Post",
			"form_body": form.Body,
		})
		return
	}
	if err != nil {
		pc.renderServiceError(c, 0, err)
		return
	}

	c.Redirect(http.StatusFound, user.IndexPath)
}

// UpdateForm renders the edit form for the author's own post
func (pc *PostController) UpdateForm(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	conn, ok := requestConn(c)
	if !ok {
		return
	}

	post, err := pc.service.GetPost(c.Request.Context(), conn, id, user.Current(c), true)
	if err != nil {
		pc.renderServiceError(c, id, err)
		return
	}

	view.Render(c, http.StatusOK, "blog/update.html", gin.H{
		"title":      "Edit Post",
		"post":       post,
		"form_title": post.Title,
		"form_body":  post.Body,
	})
}

// Update saves the author's changes
func (pc *PostController) Update(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		view.RenderError(c, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	conn, ok := requestConn(c)
	if !ok {
		return
	}

	current := user.Current(c)
	err := pc.service.UpdatePost(c.Request.Context(), conn, id, current, form.Title, form.Body)
	if errors.Is(err, ErrTitleRequired) {
		post, getErr := pc.service.GetPost(c.Request.Context(), conn, id, current, true)
		if getErr != nil {
			pc.renderServiceError(c, id, getErr)
			return
		}
		view.Flash(c, "Title is required.")
		view.Render(c, http.StatusBadRequest, "blog/update.html", gin.H{
			"title":     "Edit Post",
			"post":      post,
			"form_body": form.Body,
		})
		return
	}
	if err != nil {
		pc.renderServiceError(c, id, err)
		return
	}

	c.Redirect(http.StatusFound, user.IndexPath)
}

// Delete removes the author's post
func (pc *PostController) Delete(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	conn, ok := requestConn(c)
	if !ok {
		return
	}

	if err := pc.service.DeletePost(c.Request.Context(), conn, id, user.Current(c)); err != nil {
		pc.renderServiceError(c, id, err)
		return
	}

	c.Redirect(http.StatusFound, user.IndexPath)
}

func (pc *PostController) renderServiceError(c *gin.Context, id int, err error) {
	switch {
	case errors.Is(err, ErrPostNotFound):
		view.RenderError(c, http.StatusNotFound, fmt.Sprintf("Post id %d doesn't exist.", id))
	case errors.Is(err, ErrForbidden):
		view.RenderError(c, http.StatusForbidden, "You can only change your own posts.")
	default:
		logrus.WithError(err).WithField("post_id", id).Error("Post operation failed")
		view.RenderError(c, http.StatusInternalServerError, "Something went wrong.")
	}
}

func postID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		view.RenderError(c, http.StatusNotFound, fmt.Sprintf("Post id %s doesn't exist.", c.Param("id")))
		return 0, false
	}
	return id, true
}

func requestConn(c *gin.Context) (db.Conn, bool) {
	conn, err := db.Get(c)
	if err != nil {
		logrus.WithError(err).Error("Failed to acquire request connection")
		view.RenderError(c, http.StatusInternalServerError, "Database unavailable.")
		return nil, false
	}
	return conn, true
}
