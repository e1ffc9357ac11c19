package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/content-vault-api/pkg/config"
)

const (
	contextSessionKey = "session_id"
	// VisitorHeader lets clients that do not keep cookies identify themselves
	// for likes.
	VisitorHeader = "X-Visitor-Id"
	maxVisitorLen = 128
)

// Session makes sure every request carries an anonymous session id. The id
// is read from the configured cookie and minted when missing or malformed.
func Session(cfg config.SessionConfig) gin.HandlerFunc {
	maxAge := int(cfg.TTL.Seconds())
	return func(c *gin.Context) {
		sid, err := c.Cookie(cfg.CookieName)
		if err != nil || !validSessionID(sid) {
			sid = newSessionID()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   maxAge,
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(contextSessionKey, sid)
		c.Next()
	}
}

// SessionID returns the anonymous session id of the request.
func SessionID(c *gin.Context) string {
	return c.GetString(contextSessionKey)
}

// VisitorID identifies an anonymous visitor: the explicit header when sent,
// otherwise the session.
func VisitorID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(VisitorHeader)); id != "" && len(id) <= maxVisitorLen {
		return id
	}
	return SessionID(c)
}

func newSessionID() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

func validSessionID(sid string) bool {
	if len(sid) != 32 {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(sid)
	return err == nil
}
