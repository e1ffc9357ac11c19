package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/content-vault-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

// WithResponseMeta initialises per-request response metadata. Handlers pass
// ExtractMeta to the JSON envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{"started_at": time.Now()})
		c.Next()
	}
}

// SetMeta records one metadata value for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	ensureMeta(c)[key] = value
}

// ExtractMeta returns the metadata for the envelope, stamping request id and
// processing time.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		if k == "started_at" {
			if started, ok := v.(time.Time); ok {
				out["processing_time_ms"] = time.Since(started).Milliseconds()
			}
			continue
		}
		out[k] = v
	}
	if reqID := requestid.Value(c); reqID != "" {
		out["request_id"] = reqID
	}
	return out
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(responseMetaKey); exists {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
