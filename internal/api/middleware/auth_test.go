package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yuva/server/internal/api/middleware"
	"yuva/server/internal/auth"
	"yuva/server/internal/session"
)

func setupAuthEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.OptionalAuth(testSecret, zap.NewNop()))
	whoami := func(c *gin.Context) {
		id := session.FromContext(c.Request.Context())
		if id == nil {
			c.String(http.StatusOK, "guest")
			return
		}
		c.String(http.StatusOK, id.ID)
	}
	r.GET("/public", whoami)
	r.GET("/private", middleware.RequireAuth(), whoami)
	return r
}

func TestOptionalAuth(t *testing.T) {
	router := setupAuthEngine()
	token, err := auth.GenerateJWT(&session.Identity{ID: "USER000001", Email: "u@x.co"}, testSecret, time.Hour)
	require.NoError(t, err)
	otherSecret, err := auth.GenerateJWT(&session.Identity{ID: "USER000001"}, "other", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{"no token", "/public", "", "guest"},
		{"bearer header", "/public", "Bearer " + token, "USER000001"},
		{"query parameter", "/public?token=" + token, "", "USER000001"},
		{"malformed header", "/public", "Token " + token, "guest"},
		{"wrong secret", "/public", "Bearer " + otherSecret, "guest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestRequireAuth(t *testing.T) {
	router := setupAuthEngine()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/private", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.GenerateJWT(&session.Identity{ID: "USER000002"}, testSecret, time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USER000002", w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORSMiddleware([]string{"https://yuva.app"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://yuva.app")
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://yuva.app", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodOptions, "/x", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.True(t, middleware.OriginAllowed([]string{"*"}, "https://any.example"))
	assert.True(t, middleware.OriginAllowed([]string{"https://yuva.app"}, ""))
	assert.False(t, middleware.OriginAllowed([]string{"https://yuva.app"}, "https://evil.example"))
}
