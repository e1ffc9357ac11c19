package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/service"
)

// BatchTokenHeader carries the batch access token.
const BatchTokenHeader = "X-Batch-Token"

// batchCredentials collects the token and session a caller presents for a
// batch. The dedicated header wins over a bearer token.
func batchCredentials(c *gin.Context) service.Credentials {
	token := strings.TrimSpace(c.GetHeader(BatchTokenHeader))
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}
	return service.Credentials{Token: token, SessionID: middleware.SessionID(c)}
}

func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := middleware.Claims(c); claims != nil {
		actor.UserID = claims.UserID
	}
	return actor
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
