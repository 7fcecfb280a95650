package post

import (
	"context"
	"database/sql"
	"testing"

	"blog_app/internal/cache"
	"blog_app/internal/db"
	"blog_app/internal/queue"
	"blog_app/internal/testutil"
	"blog_app/internal/user"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPostRepository is a mock implementation of PostRepositoryInterface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) List(ctx context.Context, q db.DBTX) ([]*Post, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Post), args.Error(1)
}

func (m *MockPostRepository) GetByID(ctx context.Context, q db.DBTX, id int) (*Post, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Post), args.Error(1)
}

func (m *MockPostRepository) Create(ctx context.Context, q db.DBTX, post *Post) (int, error) {
	args := m.Called(ctx, q, post)
	return args.Int(0), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, q db.DBTX, id int, title, body string) error {
	args := m.Called(ctx, q, id, title, body)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, q db.DBTX, id int) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

func newTestConn(t *testing.T) *sql.Conn {
	t.Helper()
	pool, _ := testutil.NewTestDB(t)
	conn, err := pool.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

var (
	alice = &user.User{ID: 1, Username: "alice"}
	bob   = &user.User{ID: 2, Username: "bob"}
)

func TestGetPost_NotFound(t *testing.T) {
	repo := new(MockPostRepository)
	service := NewPostService(repo, nil, nil)

	repo.On("GetByID", mock.Anything, mock.Anything, 99).Return(nil, ErrPostNotFound)

	_, err := service.GetPost(context.Background(), newTestConn(t), 99, alice, true)
	assert.ErrorIs(t, err, ErrPostNotFound)
	repo.AssertExpectations(t)
}

func TestGetPost_AuthorCheck(t *testing.T) {
	repo := new(MockPostRepository)
	service := NewPostService(repo, nil, nil)
	conn := newTestConn(t)

	repo.On("GetByID", mock.Anything, mock.Anything, 1).Return(&Post{ID: 1, AuthorID: alice.ID, Title: "mine"}, nil)

	p, err := service.GetPost(context.Background(), conn, 1, alice, true)
	require.NoError(t, err)
	assert.Equal(t, "mine", p.Title)

	_, err = service.GetPost(context.Background(), conn, 1, bob, true)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = service.GetPost(context.Background(), conn, 1, nil, true)
	assert.ErrorIs(t, err, ErrForbidden)

	p, err = service.GetPost(context.Background(), conn, 1, bob, false)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.AuthorID)
}

func TestCreatePost_TitleRequired(t *testing.T) {
	repo := new(MockPostRepository)
	publisher := &testutil.RecordingPublisher{}
	service := NewPostService(repo, nil, publisher)

	_, err := service.CreatePost(context.Background(), newTestConn(t), alice, "   ", "body")
	assert.ErrorIs(t, err, ErrTitleRequired)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, publisher.Events())
}

func TestCreatePost_PublishesEvent(t *testing.T) {
	repo := new(MockPostRepository)
	publisher := &testutil.RecordingPublisher{}
	service := NewPostService(repo, nil, publisher)

	repo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(p *Post) bool {
		return p.AuthorID == alice.ID && p.Title == "hello" && p.Body == "world"
	})).Return(7, nil)

	id, err := service.CreatePost(context.Background(), newTestConn(t), alice, "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, queue.PostCreated, events[0].Type)
	require.NotNil(t, events[0].PostID)
	assert.Equal(t, 7, *events[0].PostID)
	repo.AssertExpectations(t)
}

func TestUpdatePost_StrangerIsForbiddenBeforeValidation(t *testing.T) {
	repo := new(MockPostRepository)
	service := NewPostService(repo, nil, nil)

	repo.On("GetByID", mock.Anything, mock.Anything, 1).Return(&Post{ID: 1, AuthorID: alice.ID}, nil)

	err := service.UpdatePost(context.Background(), newTestConn(t), 1, bob, "", "")
	assert.ErrorIs(t, err, ErrForbidden)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePost_AuthorTitleRequired(t *testing.T) {
	repo := new(MockPostRepository)
	service := NewPostService(repo, nil, nil)

	repo.On("GetByID", mock.Anything, mock.Anything, 1).Return(&Post{ID: 1, AuthorID: alice.ID}, nil)

	err := service.UpdatePost(context.Background(), newTestConn(t), 1, alice, "", "body")
	assert.ErrorIs(t, err, ErrTitleRequired)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePost_Success(t *testing.T) {
	repo := new(MockPostRepository)
	publisher := &testutil.RecordingPublisher{}
	service := NewPostService(repo, nil, publisher)

	repo.On("GetByID", mock.Anything, mock.Anything, 1).Return(&Post{ID: 1, AuthorID: alice.ID}, nil)
	repo.On("Update", mock.Anything, mock.Anything, 1, "new", "text").Return(nil)

	err := service.UpdatePost(context.Background(), newTestConn(t), 1, alice, "new", "text")
	require.NoError(t, err)
	assert.Equal(t, []queue.EventType{queue.PostUpdated}, publisher.Types())
	repo.AssertExpectations(t)
}

func TestDeletePost(t *testing.T) {
	repo := new(MockPostRepository)
	publisher := &testutil.RecordingPublisher{}
	service := NewPostService(repo, nil, publisher)
	conn := newTestConn(t)

	repo.On("GetByID", mock.Anything, mock.Anything, 1).Return(&Post{ID: 1, AuthorID: alice.ID}, nil)
	repo.On("GetByID", mock.Anything, mock.Anything, 2).Return(nil, ErrPostNotFound)
	repo.On("Delete", mock.Anything, mock.Anything, 1).Return(nil)

	assert.ErrorIs(t, service.DeletePost(context.Background(), conn, 2, alice), ErrPostNotFound)
	assert.ErrorIs(t, service.DeletePost(context.Background(), conn, 1, bob), ErrForbidden)
	require.NoError(t, service.DeletePost(context.Background(), conn, 1, alice))

	assert.Equal(t, []queue.EventType{queue.PostDeleted}, publisher.Types())
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis not available, skipping test")
	}
	client.FlushDB(ctx)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestGetPost_CachedUntilUpdated(t *testing.T) {
	redisClient := setupTestRedis(t)
	repo := new(MockPostRepository)
	service := NewPostService(repo, cache.NewPostCache(redisClient), nil)
	conn := newTestConn(t)
	ctx := context.Background()

	repo.On("GetByID", mock.Anything, mock.Anything, 1).Return(&Post{ID: 1, AuthorID: alice.ID, Title: "v1"}, nil)
	repo.On("Update", mock.Anything, mock.Anything, 1, "v2", "").Return(nil)

	for i := 0; i < 3; i++ {
		p, err := service.GetPost(ctx, conn, 1, alice, false)
		require.NoError(t, err)
		assert.Equal(t, "v1", p.Title)
	}
	repo.AssertNumberOfCalls(t, "GetByID", 1)

	require.NoError(t, service.UpdatePost(ctx, conn, 1, alice, "v2", ""))

	exists, err := redisClient.Exists(ctx, cache.PostKey(1)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "update evicts the cached post")
}
