package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/pkg/config"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func staffRouter(role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	validator := stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: role}}
	r.GET("/admin", JWT(validator), RequireRoles(models.RoleAdmin, models.RoleModerator), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).UserID)
	})
	return r
}

func TestJWTAndRoles(t *testing.T) {
	cases := []struct {
		name   string
		role   models.UserRole
		header string
		want   int
	}{
		{"missing header", models.RoleAdmin, "", http.StatusUnauthorized},
		{"wrong scheme", models.RoleAdmin, "Basic good", http.StatusUnauthorized},
		{"bad token", models.RoleAdmin, "Bearer bad", http.StatusUnauthorized},
		{"moderator", models.RoleModerator, "Bearer good", http.StatusOK},
		{"role not allowed", models.RoleSuperAdmin, "Bearer good", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			staffRouter(tc.role).ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestSessionMintsAndKeepsCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Session(config.SessionConfig{CookieName: "cv_session", TTL: time.Hour}))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	minted := cookies[0]
	assert.True(t, minted.HttpOnly)
	assert.Equal(t, minted.Value, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "cv_session", Value: minted.Value})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, minted.Value, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "cv_session", Value: "forged"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Len(t, w.Result().Cookies(), 1)
	assert.NotEqual(t, "forged", w.Body.String())
}

func TestVisitorIDPrefersHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(contextSessionKey, "session-1")
	assert.Equal(t, "session-1", VisitorID(c))

	c.Request.Header.Set(VisitorHeader, "visitor-9")
	assert.Equal(t, "visitor-9", VisitorID(c))
}
