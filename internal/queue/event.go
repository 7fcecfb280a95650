package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	UserRegistered EventType = "user_registered"
	UserLoggedIn   EventType = "user_logged_in"
	PostCreated    EventType = "post_created"
	PostUpdated    EventType = "post_updated"
	PostDeleted    EventType = "post_deleted"
)

// Event is a domain fact emitted after the owning transaction commits.
type Event struct {
	Type       EventType `json:"type"`
	UserID     int       `json:"user_id"`
	PostID     *int      `json:"post_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(eventType EventType, userID int) Event {
	return Event{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// WithPost attaches the affected post.
func (e Event) WithPost(postID int) Event {
	e.PostID = &postID
	return e
}

func (e Event) Validate() error {
	switch e.Type {
	case UserRegistered, UserLoggedIn:
	case PostCreated, PostUpdated, PostDeleted:
		if e.PostID == nil {
			return fmt.Errorf("event %s requires a post id", e.Type)
		}
	default:
		return fmt.Errorf("unknown event type: %s", e.Type)
	}
	if e.UserID <= 0 {
		return fmt.Errorf("event %s requires a user id", e.Type)
	}
	return nil
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func UnmarshalEvent(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, err
	}
	return e, e.Validate()
}

// Publisher delivers events to the worker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
