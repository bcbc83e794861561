package suites

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/testhub.net/internal/adapter/lock"
	"gitlab.com/testhub.net/internal/adapter/logging"
	"gitlab.com/testhub.net/internal/adapter/memory"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/core/services/suite"
	"gitlab.com/testhub.net/internal/domain"
)

func setup(t *testing.T, n int) (*mux.Router, []uuid.UUID) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	var ids []uuid.UUID
	require.NoError(t, store.InTx(ctx, func(tx secondary.Tx) error {
		m := &domain.Module{Name: "m"}
		if err := tx.InsertModule(ctx, m); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			c := &domain.TestCase{ModuleID: m.ID, Title: fmt.Sprint("case ", i), Method: "GET", URL: "/", SequenceIndex: i}
			if err := tx.InsertTestCase(ctx, c); err != nil {
				return err
			}
			ids = append(ids, c.ID)
		}
		return nil
	}))

	logger := logging.NewNopLogger()
	router := mux.NewRouter()
	NewHandler(suite.NewSuiteService(store, lock.NewKeyedLocker(), logger), logger).RegisterRoutes(router.PathPrefix("/api").Subrouter())
	return router, ids
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

func decode(t *testing.T, rec *httptest.ResponseRecorder) domain.TestSuite {
	t.Helper()
	var s domain.TestSuite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s), rec.Body.String())
	return s
}

func idList(ids ...uuid.UUID) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return `{"case_ids":[` + strings.Join(quoted, ",") + `]}`
}

func TestSuiteLifecycle(t *testing.T) {
	router, cases := setup(t, 3)

	rec := do(router, http.MethodGet, "/api/testsuites", "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(router, http.MethodPost, "/api/testsuites", `{"name":"smoke","case_ids":["`+cases[2].String()+`","`+cases[0].String()+`"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, []uuid.UUID{cases[2], cases[0]}, created.CaseIDs)
	base := "/api/testsuites/" + created.ID.String()

	rec = do(router, http.MethodPost, base+"/cases", idList(cases[1]))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []uuid.UUID{cases[2], cases[0], cases[1]}, decode(t, rec).CaseIDs)

	rec = do(router, http.MethodPost, base+"/cases", idList(cases[1]))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodDelete, base+"/cases", idList(cases[0]))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{cases[2], cases[1]}, decode(t, rec).CaseIDs)

	rec = do(router, http.MethodDelete, base+"/cases", idList(cases[0]))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPut, base, `{"name":"regression"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)
	assert.Equal(t, "regression", updated.Name)
	assert.Equal(t, []uuid.UUID{cases[2], cases[1]}, updated.CaseIDs)

	rec = do(router, http.MethodPut, base, `{"case_ids":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec).CaseIDs)

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, base, "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, base, "").Code)
}

func TestSuiteRejectsBadMembers(t *testing.T) {
	router, cases := setup(t, 1)

	rec := do(router, http.MethodPost, "/api/testsuites", `{"name":"x","case_ids":["`+uuid.NewString()+`"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/api/testsuites", `{"name":"x","case_ids":["`+cases[0].String()+`","`+cases[0].String()+`"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/api/testsuites", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodGet, "/api/testsuites", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdateRequestKeepsMembersWhenAbsent(t *testing.T) {
	var req UpdateSuiteRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x"}`), &req))
	assert.Nil(t, req.Patch().CaseIDs)

	require.NoError(t, json.Unmarshal([]byte(`{"case_ids":[]}`), &req))
	assert.NotNil(t, req.Patch().CaseIDs)
}
