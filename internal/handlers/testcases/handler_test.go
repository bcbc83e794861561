package testcases

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
	"gitlab.com/testhub.net/internal/core/services/module"
	"gitlab.com/testhub.net/internal/core/services/testcase"
	"gitlab.com/testhub.net/internal/domain"
)

type fixture struct {
	router   *mux.Router
	moduleID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewNopLogger()
	store := memory.NewStore()
	locker := lock.NewKeyedLocker()

	m, err := module.NewModuleService(store, locker, logger).CreateModule(context.Background(), "orders", nil, nil)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewHandler(testcase.NewTestCaseService(store, locker, logger), logger).RegisterRoutes(router.PathPrefix("/api").Subrouter())
	return &fixture{router: router, moduleID: m.ID}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) create(t *testing.T, title string) domain.TestCase {
	t.Helper()
	body := fmt.Sprintf(`{"module_id":%q,"title":%q,"method":"post","url":"{{base_url}}/orders",
		"body":{"sku":"A-1"},"assertions":[{"check":"status_code","comparator":"equals","expect":201}]}`, f.moduleID, title)
	rec := f.do(http.MethodPost, "/api/testcases", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tc domain.TestCase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tc))
	return tc
}

func (f *fixture) list(t *testing.T, target string) []domain.TestCase {
	t.Helper()
	rec := f.do(http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cases []domain.TestCase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cases))
	return cases
}

func titles(cases []domain.TestCase) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = c.Title
	}
	return out
}

func TestCreateGetUpdate(t *testing.T) {
	f := newFixture(t)
	tc := f.create(t, "create order")
	assert.Equal(t, "POST", tc.Method)
	assert.Equal(t, 0, tc.SequenceIndex)
	assert.JSONEq(t, `{"sku":"A-1"}`, string(tc.Body))

	rec := f.do(http.MethodGet, "/api/testcases/"+tc.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPut, "/api/testcases/"+tc.ID.String(), `{"title":"create order v2","headers":{"X-Trace":"1"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.TestCase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "create order v2", updated.Title)
	assert.Equal(t, map[string]string{"X-Trace": "1"}, updated.Headers)
	assert.Equal(t, "{{base_url}}/orders", updated.URL)

	rec = f.do(http.MethodPut, "/api/testcases/"+tc.ID.String(), `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/testcases/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/testcases", `{"title":"x","url":"/"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/testcases", fmt.Sprintf(`{"module_id":%q,"title":"x","url":"/","method":"BREW"}`, f.moduleID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/testcases", fmt.Sprintf(`{"module_id":%q,"title":"x","url":"/"}`, uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReorderAndPaging(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.create(t, "a"), f.create(t, "b"), f.create(t, "c")

	assert.Equal(t, []string{"a", "b", "c"}, titles(f.list(t, "/api/modules/"+f.moduleID.String()+"/testcases")))
	assert.Equal(t, []string{"b"}, titles(f.list(t, "/api/testcases?module_id="+f.moduleID.String()+"&skip=1&limit=1")))

	body := fmt.Sprintf(`{"ordered_ids":[%q,%q,%q]}`, c.ID, a.ID, b.ID)
	rec := f.do(http.MethodPost, "/api/modules/"+f.moduleID.String()+"/testcases/reorder", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reordered []domain.TestCase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reordered))
	assert.Equal(t, []string{"c", "a", "b"}, titles(reordered))
	for i, tc := range reordered {
		assert.Equal(t, i, tc.SequenceIndex)
	}

	// Not a permutation: nothing changes.
	body = fmt.Sprintf(`{"ordered_ids":[%q,%q]}`, a.ID, b.ID)
	rec = f.do(http.MethodPost, "/api/modules/"+f.moduleID.String()+"/testcases/reorder", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"c", "a", "b"}, titles(f.list(t, "/api/testcases?module_id="+f.moduleID.String())))

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/testcases?limit=ten", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/testcases?module_id=zzz", "").Code)
}

func TestDeleteCopyAndBatch(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.create(t, "a"), f.create(t, "b"), f.create(t, "c")

	rec := f.do(http.MethodPost, "/api/testcases/"+a.ID.String()+"/copy", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var copied domain.TestCase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &copied))
	assert.NotEqual(t, a.ID, copied.ID)
	assert.Equal(t, 3, copied.SequenceIndex)

	rec = f.do(http.MethodDelete, "/api/testcases/"+b.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/testcases/"+b.ID.String(), "").Code)

	missing := uuid.New()
	body := fmt.Sprintf(`{"ids":[%q,%q,%q]}`, c.ID, missing, a.ID)
	rec = f.do(http.MethodPost, "/api/testcases/batch_delete", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp BatchDeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 2, resp.Deleted)
	assert.Equal(t, domain.BatchItemDeleted, resp.Results[0].Status)
	assert.Equal(t, domain.BatchItemNotFound, resp.Results[1].Status)
	assert.Equal(t, domain.BatchItemDeleted, resp.Results[2].Status)

	remaining := f.list(t, "/api/modules/"+f.moduleID.String()+"/testcases")
	require.Len(t, remaining, 1)
	assert.Equal(t, copied.ID, remaining[0].ID)
	assert.Equal(t, 0, remaining[0].SequenceIndex)

	rec = f.do(http.MethodPost, "/api/testcases/batch_delete", `{"ids":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[],"deleted":0}`, rec.Body.String())
}
