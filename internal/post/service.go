package post

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"blog_app/internal/cache"
	"blog_app/internal/db"
	"blog_app/internal/observability"
	"blog_app/internal/queue"
	"blog_app/internal/user"
	"blog_app/internal/utils"

	"github.com/sirupsen/logrus"
)

var (
	ErrForbidden     = errors.New("post belongs to another author")
	ErrTitleRequired = errors.New("title is required")
)

const cacheTimeout = 2 * time.Second

type PostServiceInterface interface {
	ListPosts(ctx context.Context, q db.DBTX) ([]*Post, error)
	GetPost(ctx context.Context, q db.DBTX, id int, viewer *user.User, checkAuthor bool) (*Post, error)
	CreatePost(ctx context.Context, conn db.Conn, author *user.User, title, body string) (int, error)
	UpdatePost(ctx context.Context, conn db.Conn, id int, editor *user.User, title, body string) error
	DeletePost(ctx context.Context, conn db.Conn, id int, editor *user.User) error
}

type PostService struct {
	repo      PostRepositoryInterface
	cache     *cache.PostCache
	publisher queue.Publisher
}

// NewPostService wires the repository with an optional cache and publisher.
// A nil cache always misses and a nil publisher drops events.
func NewPostService(repo PostRepositoryInterface, postCache *cache.PostCache, publisher queue.Publisher) PostServiceInterface {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &PostService{
		repo:      repo,
		cache:     postCache,
		publisher: publisher,
	}
}

func (s *PostService) ListPosts(ctx context.Context, q db.DBTX) ([]*Post, error) {
	posts, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	observability.GlobalMetrics.PostOperationsTotal.WithLabelValues("list").Inc()
	return posts, nil
}

// GetPost loads a post by id. With checkAuthor set, only the post's author
// may see it and everyone else gets ErrForbidden.
func (s *PostService) GetPost(ctx context.Context, q db.DBTX, id int, viewer *user.User, checkAuthor bool) (*Post, error) {
	post, err := s.load(ctx, q, id)
	if err != nil {
		return nil, err
	}

	if checkAuthor && (viewer == nil || viewer.ID != post.AuthorID) {
		return nil, ErrForbidden
	}

	return post, nil
}

func (s *PostService) load(ctx context.Context, q db.DBTX, id int) (*Post, error) {
	cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	// Try cache first
	cacheKey := cache.PostKey(id)
	var cached Post
	hit, err := s.cache.Get(cacheCtx, cacheKey, &cached)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read post cache")
	}
	if hit {
		return &cached, nil
	}

	post, err := s.repo.GetByID(ctx, q, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheCtx, cacheKey, post); err != nil {
		logrus.WithError(err).Warn("Failed to set cache for post")
	}

	return post, nil
}

func (s *PostService) CreatePost(ctx context.Context, conn db.Conn, author *user.User, title, body string) (int, error) {
	if author == nil {
		return 0, ErrForbidden
	}
	if strings.TrimSpace(title) == "" {
		return 0, ErrTitleRequired
	}

	var id int
	err := utils.WithTransaction(ctx, conn, func(tx *sql.Tx) error {
		var err error
		id, err = s.repo.Create(ctx, tx, &Post{
			AuthorID: author.ID,
			Title:    title,
			Body:     body,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	observability.GlobalMetrics.PostOperationsTotal.WithLabelValues("create").Inc()
	s.publish(ctx, queue.NewEvent(queue.PostCreated, author.ID).WithPost(id))

	return id, nil
}

// UpdatePost rewrites title and body. The author check runs before the
// title check so that strangers learn nothing about validation.
func (s *PostService) UpdatePost(ctx context.Context, conn db.Conn, id int, editor *user.User, title, body string) error {
	if _, err := s.GetPost(ctx, conn, id, editor, true); err != nil {
		return err
	}
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}

	err := utils.WithTransaction(ctx, conn, func(tx *sql.Tx) error {
		return s.repo.Update(ctx, tx, id, title, body)
	})
	if err != nil {
		return err
	}

	s.evict(ctx, id)
	observability.GlobalMetrics.PostOperationsTotal.WithLabelValues("update").Inc()
	s.publish(ctx, queue.NewEvent(queue.PostUpdated, editor.ID).WithPost(id))

	return nil
}

func (s *PostService) DeletePost(ctx context.Context, conn db.Conn, id int, editor *user.User) error {
	if _, err := s.GetPost(ctx, conn, id, editor, true); err != nil {
		return err
	}

	err := utils.WithTransaction(ctx, conn, func(tx *sql.Tx) error {
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.evict(ctx, id)
	observability.GlobalMetrics.PostOperationsTotal.WithLabelValues("delete").Inc()
	s.publish(ctx, queue.NewEvent(queue.PostDeleted, editor.ID).WithPost(id))

	return nil
}

func (s *PostService) evict(ctx context.Context, id int) {
	cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if err := s.cache.Delete(cacheCtx, cache.PostKey(id)); err != nil {
		logrus.WithError(err).WithField("post_id", id).Warn("Failed to evict cached post")
	}
}

func (s *PostService) publish(ctx context.Context, event queue.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("event", event.Type).Warn("Failed to publish event")
	}
}
