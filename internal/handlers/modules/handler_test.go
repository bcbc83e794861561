package modules

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/testhub.net/internal/adapter/lock"
	"gitlab.com/testhub.net/internal/adapter/logging"
	"gitlab.com/testhub.net/internal/adapter/memory"
	"gitlab.com/testhub.net/internal/core/services/module"
	"gitlab.com/testhub.net/internal/domain"
)

func newRouter() *mux.Router {
	logger := logging.NewNopLogger()
	svc := module.NewModuleService(memory.NewStore(), lock.NewKeyedLocker(), logger)
	router := mux.NewRouter()
	NewHandler(svc, logger).RegisterRoutes(router.PathPrefix("/api").Subrouter())
	return router
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func create(t *testing.T, router http.Handler, body string) domain.Module {
	t.Helper()
	rec := do(router, http.MethodPost, "/api/modules", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m domain.Module
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestModuleLifecycle(t *testing.T) {
	router := newRouter()

	rec := do(router, http.MethodGet, "/api/modules", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	parent := create(t, router, `{"name":"auth"}`)
	child := create(t, router, `{"name":"login","parent_id":"`+parent.ID.String()+`"}`)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)

	rec = do(router, http.MethodGet, "/api/modules/"+child.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPut, "/api/modules/"+child.ID.String(), `{"name":"sign-in"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Module
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "sign-in", updated.Name)
	require.NotNil(t, updated.ParentID)

	// The parent still has a child.
	rec = do(router, http.MethodDelete, "/api/modules/"+parent.ID.String(), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPut, "/api/modules/"+child.ID.String(), `{"parent_id":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated = domain.Module{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Nil(t, updated.ParentID)

	rec = do(router, http.MethodDelete, "/api/modules/"+parent.ID.String()+"?cascade=true", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(router, http.MethodGet, "/api/modules/"+parent.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status_code":404`)
}

func TestModuleBadInput(t *testing.T) {
	router := newRouter()

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, "/api/modules", `{"name":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPost, "/api/modules", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/modules/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodDelete, "/api/modules/00000000-0000-0000-0000-000000000001?cascade=maybe", "").Code)

	m := create(t, router, `{"name":"root"}`)
	rec := do(router, http.MethodPut, "/api/modules/"+m.ID.String(), `{"parent_id":"`+m.ID.String()+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRequestPatch(t *testing.T) {
	var absent UpdateModuleRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x"}`), &absent))
	p := absent.Patch()
	assert.False(t, p.DetachParent)
	assert.Nil(t, p.ParentID)

	var detach UpdateModuleRequest
	require.NoError(t, json.Unmarshal([]byte(`{"parent_id":null}`), &detach))
	assert.True(t, detach.Patch().DetachParent)

	var bad UpdateModuleRequest
	assert.Error(t, json.Unmarshal([]byte(`{"parent_id":"nope"}`), &bad))
}
