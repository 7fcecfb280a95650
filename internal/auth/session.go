package auth

import (
	"github.com/gin-contrib/sessions"
)

const (
	SessionCookieName = "blog_session"

	// SessionUserIDKey is the only identity the session carries.
	SessionUserIDKey = "user_id"

	// ContextUserKey holds the user resolved for the current request, or a
	// nil user when the request is anonymous.
	ContextUserKey = "auth.user"
)

// SessionUserID returns the authenticated user id stored in the session.
func SessionUserID(session sessions.Session) (int, bool) {
	switch id := session.Get(SessionUserIDKey).(type) {
	case int:
		return id, true
	case int64:
		return int(id), true
	case float64:
		return int(id), true
	default:
		return 0, false
	}
}

// StartSession drops everything held by the session and stores userID as the
// authenticated identity. The form token is rotated with the identity.
func StartSession(session sessions.Session, userID int) error {
	session.Clear()
	session.Set(SessionUserIDKey, userID)
	if _, err := CSRFToken(session); err != nil {
		return err
	}
	return session.Save()
}

// EndSession clears the session unconditionally.
func EndSession(session sessions.Session) error {
	session.Clear()
	return session.Save()
}
