package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = Value(c) })

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{"generated", "", false},
		{"kept", "abc-123_x.y", true},
		{"injection", "abc\r\nSet-Cookie: x", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(headerKey, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, seen, w.Header().Get(headerKey))
			if tc.keep {
				assert.Equal(t, tc.header, seen)
				return
			}
			_, err := uuid.Parse(seen)
			require.NoError(t, err)
		})
	}
}
