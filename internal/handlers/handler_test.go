package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/testhub.net/internal/adapter/crypto"
	"gitlab.com/testhub.net/internal/adapter/logging"
	"gitlab.com/testhub.net/internal/adapter/memory"
	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
)

type brokenStore struct{ secondary.Store }

func (brokenStore) View(context.Context, func(tx secondary.Tx) error) error {
	return errors.New("connection refused")
}

func TestHealth(t *testing.T) {
	router := mux.NewRouter()
	NewHealthHandler(memory.NewStore(), logging.NewNopLogger()).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	router = mux.NewRouter()
	NewHealthHandler(brokenStore{}, logging.NewNopLogger()).RegisterRoutes(router)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJWTMiddleware(t *testing.T) {
	jwt := crypto.NewJWTService(&config.JwtConfig{Secret: "s3cret"})
	gate := New(jwt, logging.NewNopLogger()).JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/modules", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/modules", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.GenerateTokenHMAC(context.Background(), "ci", time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/modules", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
