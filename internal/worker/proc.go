package worker

import (
	"context"
	"database/sql"

	"blog_app/internal/db"
	"blog_app/internal/queue"
	"blog_app/internal/utils"

	"github.com/sirupsen/logrus"
)

// recordEvent appends the event to event_log in its own transaction.
func recordEvent(ctx context.Context, pool utils.Beginner, dialect db.Dialect, event queue.Event, workerID int) error {
	query := dialect.Rebind(`
		INSERT INTO event_log (event_type, user_id, post_id, occurred_at)
		VALUES (?, ?, ?, ?)
	`)

	var postID sql.NullInt64
	if event.PostID != nil {
		postID = sql.NullInt64{Int64: int64(*event.PostID), Valid: true}
	}

	return utils.WithTransaction(ctx, pool, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, string(event.Type), event.UserID, postID, event.OccurredAt.UTC()); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"worker":  workerID,
			"event":   event.Type,
			"user_id": event.UserID,
		}).Debug("Event recorded")
		return nil
	})
}
