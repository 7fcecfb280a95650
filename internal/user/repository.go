package user

import (
	"context"
	"database/sql"
	"errors"

	"blog_app/internal/db"

	"github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	dialect db.Dialect
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, q db.DBTX, user *User) (int, error)
	GetByID(ctx context.Context, q db.DBTX, id int) (*User, error)
	GetByUsername(ctx context.Context, q db.DBTX, username string) (*User, error)
}

func NewUserRepository(dialect db.Dialect) UserRepositoryInterface {
	return &UserRepository{dialect: dialect}
}

// Create inserts a user with an already hashed password
func (r *UserRepository) Create(ctx context.Context, q db.DBTX, user *User) (int, error) {
	query := r.dialect.Rebind(`
		INSERT INTO "user" (username, password)
		VALUES (?, ?)
		RETURNING id
	`)

	var id int
	err := q.QueryRowContext(ctx, query, user.Username, user.Password).Scan(&id)
	if err != nil {
		logrus.WithError(err).Error("Failed to create user")
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  id,
		"username": user.Username,
	}).Info("User created successfully")

	return id, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, q db.DBTX, id int) (*User, error) {
	query := r.dialect.Rebind(`
		SELECT id, username, password
		FROM "user"
		WHERE id = ?
	`)

	user := &User{}
	err := q.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Password,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logrus.WithField("user_id", id).Debug("User not found")
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).Error("Failed to get user by ID")
		return nil, err
	}

	return user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, q db.DBTX, username string) (*User, error) {
	query := r.dialect.Rebind(`
		SELECT id, username, password
		FROM "user"
		WHERE username = ?
	`)

	user := &User{}
	err := q.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Password,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logrus.WithField("username", username).Debug("User not found")
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).Error("Failed to get user by username")
		return nil, err
	}

	return user, nil
}
