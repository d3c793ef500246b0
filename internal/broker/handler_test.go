package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type stubPerms struct {
	allowed map[string]bool
}

func (s stubPerms) HasPermission(_ context.Context, doctype, action string) (bool, error) {
	return s.allowed[doctype+"|"+action], nil
}

func allowBrokerAll() stubPerms {
	return stubPerms{allowed: map[string]bool{
		"Broker|create": true,
		"Broker|read":   true,
	}}
}

func newTestRouter(t *testing.T, repo *memoryBrokerRepo, perms PermissionChecker) *chi.Mux {
	t.Helper()
	handler := NewHandler(nil, NewService(repo, nil), perms)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router
}

func TestHandleCreateBroker(t *testing.T) {
	repo := newMemoryBrokerRepo()
	router := newTestRouter(t, repo, allowBrokerAll())

	raw := []byte(`{"broker_name":"Northern Haulage","item_name":"Gravel 20mm","item_rate":42.5,"vehicle_number":"KA-01-AB-1234"}`)
	req := httptest.NewRequest(http.MethodPost, "/brokers", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool           `json:"success"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.Equal(t, "Broker created and submitted successfully", envelope.Message)
	require.NotEmpty(t, envelope.Data["name"])
	require.Equal(t, float64(DocStatusSubmitted), envelope.Data["docstatus"])
}

func TestHandleCreateBrokerValidation(t *testing.T) {
	router := newTestRouter(t, newMemoryBrokerRepo(), allowBrokerAll())

	req := httptest.NewRequest(http.MethodPost, "/brokers", bytes.NewReader([]byte(`{"item_rate":10}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateBrokerForbidden(t *testing.T) {
	router := newTestRouter(t, newMemoryBrokerRepo(), stubPerms{allowed: map[string]bool{}})

	req := httptest.NewRequest(http.MethodPost, "/brokers", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleListBrokers(t *testing.T) {
	repo := newMemoryBrokerRepo()
	svc := NewService(repo, nil)
	for i := 0; i < 12; i++ {
		_, err := svc.Create(context.Background(), CreateInput{BrokerName: "Broker", ItemName: "Item"})
		require.NoError(t, err)
	}
	router := newTestRouter(t, repo, allowBrokerAll())

	req := httptest.NewRequest(http.MethodGet, "/brokers?page=2&page_size=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success    bool `json:"success"`
		Data       []struct {
			Name      string `json:"name"`
			DocStatus int    `json:"docstatus"`
			Creation  string `json:"creation"`
		} `json:"data"`
		Pagination struct {
			Page         int `json:"page"`
			PageSize     int `json:"page_size"`
			TotalRecords int `json:"total_records"`
			TotalPages   int `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.Len(t, envelope.Data, 5)
	require.Equal(t, 2, envelope.Pagination.Page)
	require.Equal(t, 12, envelope.Pagination.TotalRecords)
	require.Equal(t, 3, envelope.Pagination.TotalPages)
	require.NotEmpty(t, envelope.Data[0].Creation)
}
