package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/librisventures/authorhash/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter(env *testEnv) *gin.Engine {
	handler := NewAuthHandler(env.users, env.logger)
	router := gin.New()
	router.POST("/auth/login", handler.Login)
	return router
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupHandlerTest(t)
	router := authRouter(env)

	_, err := env.users.PerformInitialSetup(&service.SetupRequest{
		Username: "admin",
		Password: "str0ng-passw0rd",
	})
	require.NoError(t, err)

	t.Run("Valid credentials return a token", func(t *testing.T) {
		body := `{"username": "admin", "password": "str0ng-passw0rd"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["token"])
	})

	t.Run("Wrong password returns 401", func(t *testing.T) {
		body := `{"username": "admin", "password": "wrong-passw0rd"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid credentials")
	})

	t.Run("Unknown user returns 401", func(t *testing.T) {
		body := `{"username": "nobody", "password": "str0ng-passw0rd"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Missing fields return 400", func(t *testing.T) {
		body := `{"username": "admin"}`
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupHandlerTest(t)
	handler := NewAuthHandler(env.users, env.logger)

	router := gin.New()
	router.GET("/auth/me", func(c *gin.Context) {
		c.Set("user_id", "user123")
		c.Set("username", "admin")
		c.Set("role", "admin")
		handler.GetCurrentUser(c)
	})

	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user123", resp["user_id"])
	assert.Equal(t, "admin", resp["username"])
	assert.Equal(t, "admin", resp["role"])
}
