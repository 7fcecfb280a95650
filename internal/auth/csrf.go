package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// CSRFField names both the session key and the hidden form input.
	CSRFField  = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

var ErrCSRFMismatch = errors.New("csrf token missing or invalid")

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CSRFToken returns the session's form token, creating one when the session
// has none yet. The caller saves the session.
func CSRFToken(session sessions.Session) (string, error) {
	if token, ok := session.Get(CSRFField).(string); ok && token != "" {
		return token, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}
	session.Set(CSRFField, token)
	return token, nil
}

// CheckCSRF compares the token submitted with the request, from the form or
// the X-CSRF-Token header, against the one held by the session.
func CheckCSRF(c *gin.Context) error {
	expected, ok := sessions.Default(c).Get(CSRFField).(string)
	if !ok || expected == "" {
		return ErrCSRFMismatch
	}

	received := c.PostForm(CSRFField)
	if received == "" {
		received = c.GetHeader(CSRFHeader)
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// VerifyCSRF lets safe methods through and passes every other request with a
// bad token to reject, which must abort the chain.
func VerifyCSRF(reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		if err := CheckCSRF(c); err != nil {
			reject(c)
			return
		}

		c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
