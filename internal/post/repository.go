package post

import (
	"context"
	"database/sql"
	"errors"

	"blog_app/internal/db"

	"github.com/sirupsen/logrus"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository struct {
	dialect db.Dialect
}

type PostRepositoryInterface interface {
	List(ctx context.Context, q db.DBTX) ([]*Post, error)
	GetByID(ctx context.Context, q db.DBTX, id int) (*Post, error)
	Create(ctx context.Context, q db.DBTX, post *Post) (int, error)
	Update(ctx context.Context, q db.DBTX, id int, title, body string) error
	Delete(ctx context.Context, q db.DBTX, id int) error
}

func NewPostRepository(dialect db.Dialect) PostRepositoryInterface {
	return &PostRepository{dialect: dialect}
}

func (r *PostRepository) List(ctx context.Context, q db.DBTX) ([]*Post, error) {
	query := `
		SELECT
			p.id, p.author_id, p.created, p.title, p.body,
			u.username
		FROM post p
		JOIN "user" u ON p.author_id = u.id
		ORDER BY p.created DESC, p.id DESC
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		var p Post
		err := rows.Scan(
			&p.ID,
			&p.AuthorID,
			&p.Created,
			&p.Title,
			&p.Body,
			&p.Username,
		)
		if err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *PostRepository) GetByID(ctx context.Context, q db.DBTX, id int) (*Post, error) {
	query := r.dialect.Rebind(`
		SELECT
			p.id, p.author_id, p.created, p.title, p.body,
			u.username
		FROM post p
		JOIN "user" u ON p.author_id = u.id
		WHERE p.id = ?
	`)

	var p Post
	err := q.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.AuthorID,
		&p.Created,
		&p.Title,
		&p.Body,
		&p.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *PostRepository) Create(ctx context.Context, q db.DBTX, post *Post) (int, error) {
	query := r.dialect.Rebind(`
		INSERT INTO post (title, body, author_id)
		VALUES (?, ?, ?)
		RETURNING id
	`)

	var id int
	if err := q.QueryRowContext(ctx, query, post.Title, post.Body, post.AuthorID).Scan(&id); err != nil {
		logrus.WithError(err).Error("Failed to create post")
		return 0, err
	}

	return id, nil
}

func (r *PostRepository) Update(ctx context.Context, q db.DBTX, id int, title, body string) error {
	query := r.dialect.Rebind(`
		UPDATE post
		SET title = ?, body = ?
		WHERE id = ?
	`)

	result, err := q.ExecContext(ctx, query, title, body, id)
	if err != nil {
		logrus.WithError(err).Error("Failed to update post")
		return err
	}

	return requireRow(result)
}

func (r *PostRepository) Delete(ctx context.Context, q db.DBTX, id int) error {
	query := r.dialect.Rebind(`DELETE FROM post WHERE id = ?`)

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		logrus.WithError(err).Error("Failed to delete post")
		return err
	}

	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}
