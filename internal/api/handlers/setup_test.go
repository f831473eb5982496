package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(env *testEnv) *gin.Engine {
	handler := NewSetupHandler(env.users, env.logger)
	router := gin.New()
	router.GET("/setup/status", handler.GetStatus)
	router.POST("/setup", handler.PerformSetup)
	return router
}

func TestSetupHandler_GetStatus(t *testing.T) {
	env := setupHandlerTest(t)
	router := setupRouter(env)

	t.Run("Setup not complete initially", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/setup/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]bool
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp["setup_complete"])
	})
}

func TestSetupHandler_PerformSetup(t *testing.T) {
	t.Run("Setup creates admin and returns token", func(t *testing.T) {
		env := setupHandlerTest(t)
		router := setupRouter(env)

		body := `{"username": "admin", "password": "str0ng-passw0rd"}`
		req, _ := http.NewRequest(http.MethodPost, "/setup", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "admin", resp["username"])
		assert.NotEmpty(t, resp["token"])

		// Status flips to complete
		req, _ = http.NewRequest(http.MethodGet, "/setup/status", nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Contains(t, w.Body.String(), "true")
	})

	t.Run("Second setup attempt fails", func(t *testing.T) {
		env := setupHandlerTest(t)
		router := setupRouter(env)

		body := `{"username": "admin", "password": "str0ng-passw0rd"}`
		req, _ := http.NewRequest(http.MethodPost, "/setup", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		body = `{"username": "second", "password": "str0ng-passw0rd"}`
		req, _ = http.NewRequest(http.MethodPost, "/setup", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "already complete")
	})

	t.Run("Short username is rejected", func(t *testing.T) {
		env := setupHandlerTest(t)
		router := setupRouter(env)

		body := `{"username": "ab", "password": "str0ng-passw0rd"}`
		req, _ := http.NewRequest(http.MethodPost, "/setup", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Short password is rejected", func(t *testing.T) {
		env := setupHandlerTest(t)
		router := setupRouter(env)

		body := `{"username": "admin", "password": "short1"}`
		req, _ := http.NewRequest(http.MethodPost, "/setup", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
