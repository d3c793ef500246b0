package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func performLogin(t *testing.T, svc *Service, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	handler := NewHandler(nil, svc)
	router := chi.NewRouter()
	handler.MountRoutes(router)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestLoginSuccess(t *testing.T) {
	repo := newMemoryAuthRepo()
	seedUser(t, repo, "broker@example.com", "s3cret-pass", true)
	svc := NewService(repo)

	rec, envelope := performLogin(t, svc, map[string]string{
		"usr": "broker@example.com",
		"pwd": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(http.StatusOK), envelope["status"])
	require.Equal(t, true, envelope["success"])
	require.Equal(t, "Login successful", envelope["message"])

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "broker@example.com", data["user"])
	require.Equal(t, "Test User", data["full_name"])
	require.Len(t, data["api_key"], 15)
	require.Len(t, data["api_secret"], 15)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := newMemoryAuthRepo()
	seedUser(t, repo, "broker@example.com", "s3cret-pass", true)
	svc := NewService(repo)

	rec, envelope := performLogin(t, svc, map[string]string{
		"usr": "broker@example.com",
		"pwd": "nope",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, false, envelope["success"])
	require.Equal(t, "Invalid login credentials", envelope["message"])
}

func TestLoginMissingFields(t *testing.T) {
	svc := NewService(newMemoryAuthRepo())

	rec, envelope := performLogin(t, svc, map[string]string{"usr": "broker@example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, false, envelope["success"])
}
