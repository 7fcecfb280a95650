package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blog_app/internal/auth"
	"blog_app/internal/db"
	"blog_app/internal/observability"
	"blog_app/internal/queue"
	"blog_app/internal/utils"

	"github.com/sirupsen/logrus"
)

var (
	ErrUsernameRequired  = errors.New("username is required")
	ErrPasswordRequired  = errors.New("password is required")
	ErrPasswordTooLong   = errors.New("password is too long")
	ErrUsernameTaken     = errors.New("username already registered")
	ErrIncorrectUsername = errors.New("incorrect username")
	ErrIncorrectPassword = errors.New("incorrect password")
)

type UserService struct {
	repo      UserRepositoryInterface
	publisher queue.Publisher
}

type UserServiceInterface interface {
	Register(ctx context.Context, conn db.Conn, username, password string) (int, error)
	Login(ctx context.Context, conn db.Conn, username, password string) (*User, error)
	GetUserByID(ctx context.Context, conn db.Conn, id int) (*User, error)
}

func NewUserService(repo UserRepositoryInterface, publisher queue.Publisher) UserServiceInterface {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &UserService{
		repo:      repo,
		publisher: publisher,
	}
}

// Register validates the credentials and stores the user with a hashed
// password. The username pre-check and the insert are not atomic; a
// concurrent insert that wins the race surfaces as ErrUsernameTaken through
// the UNIQUE constraint.
func (s *UserService) Register(ctx context.Context, conn db.Conn, username, password string) (int, error) {
	switch {
	case strings.TrimSpace(username) == "":
		observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return 0, ErrUsernameRequired
	case password == "":
		observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return 0, ErrPasswordRequired
	case len(password) > auth.MaxPasswordBytes:
		observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return 0, ErrPasswordTooLong
	}

	existing, err := s.repo.GetByUsername(ctx, conn, username)
	if err == nil && existing != nil {
		observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		return 0, ErrUsernameTaken
	}
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	hashedPassword, err := auth.GeneratePasswordHash(password)
	if err != nil {
		observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	var id int
	err = utils.WithTransaction(ctx, conn, func(tx *sql.Tx) error {
		var err error
		id, err = s.repo.Create(ctx, tx, &User{
			Username: username,
			Password: hashedPassword,
		})
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			return 0, ErrUsernameTaken
		}
		observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	observability.GlobalMetrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.publish(ctx, queue.NewEvent(queue.UserRegistered, id))

	return id, nil
}

// Login checks the credentials and returns the matching user
func (s *UserService) Login(ctx context.Context, conn db.Conn, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, conn, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			observability.GlobalMetrics.LoginAttemptsTotal.WithLabelValues("unknown_user").Inc()
			return nil, ErrIncorrectUsername
		}
		observability.GlobalMetrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := auth.ComparePasswordHash([]byte(user.Password), password); err != nil {
		observability.GlobalMetrics.LoginAttemptsTotal.WithLabelValues("bad_password").Inc()
		return nil, ErrIncorrectPassword
	}

	observability.GlobalMetrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.publish(ctx, queue.NewEvent(queue.UserLoggedIn, user.ID))

	return user, nil
}

// GetUserByID retrieves user by ID
func (s *UserService) GetUserByID(ctx context.Context, conn db.Conn, id int) (*User, error) {
	return s.repo.GetByID(ctx, conn, id)
}

func (s *UserService) publish(ctx context.Context, event queue.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("event", event.Type).Warn("Failed to publish event")
	}
}
