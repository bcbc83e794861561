package testcases

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/services/testcase"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/handlers/request"
	"gitlab.com/testhub.net/internal/handlers/response"
)

type Handler struct {
	testCaseService testcase.ITestCaseService
	logger          primary.Logger
}

func NewHandler(testCaseService testcase.ITestCaseService, logger primary.Logger) *Handler {
	return &Handler{
		testCaseService: testCaseService,
		logger:          logger,
	}
}

// RegisterRoutes expects the /api sub-router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/testcases", h.ListTestCases).Methods("GET")
	router.HandleFunc("/testcases", h.CreateTestCase).Methods("POST")
	router.HandleFunc("/testcases/batch_delete", h.BatchDelete).Methods("POST")
	router.HandleFunc("/testcases/{id}", h.GetTestCase).Methods("GET")
	router.HandleFunc("/testcases/{id}", h.UpdateTestCase).Methods("PUT")
	router.HandleFunc("/testcases/{id}", h.DeleteTestCase).Methods("DELETE")
	router.HandleFunc("/testcases/{id}/copy", h.CopyTestCase).Methods("POST")

	router.HandleFunc("/modules/{id}/testcases", h.ListModuleTestCases).Methods("GET")
	router.HandleFunc("/modules/{id}/testcases/reorder", h.Reorder).Methods("POST")
}

func (h *Handler) ListTestCases(w http.ResponseWriter, r *http.Request) {
	moduleID, err := request.QueryID(r, "module_id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	h.list(w, r, moduleID)
}

func (h *Handler) ListModuleTestCases(w http.ResponseWriter, r *http.Request) {
	moduleID, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	h.list(w, r, &moduleID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, moduleID *uuid.UUID) {
	skip, limit, err := request.Paging(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	cases, err := h.testCaseService.ListTestCases(r.Context(), moduleID, skip, limit)
	if err != nil {
		response.Fail(w, h.logger, "list test cases", err)
		return
	}
	if cases == nil {
		cases = []*domain.TestCase{}
	}
	response.WriteSuccess(w, cases)
}

func (h *Handler) CreateTestCase(w http.ResponseWriter, r *http.Request) {
	var req CreateTestCaseRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	created, err := h.testCaseService.CreateTestCase(r.Context(), req.TestCase())
	if err != nil {
		response.Fail(w, h.logger, "create test case", err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetTestCase(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	tc, err := h.testCaseService.GetTestCase(r.Context(), id)
	if err != nil {
		response.Fail(w, h.logger, "get test case", err)
		return
	}
	response.WriteSuccess(w, tc)
}

func (h *Handler) UpdateTestCase(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	var req UpdateTestCaseRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	updated, err := h.testCaseService.UpdateTestCase(r.Context(), id, req.Patch())
	if err != nil {
		response.Fail(w, h.logger, "update test case", err)
		return
	}
	response.WriteSuccess(w, updated)
}

func (h *Handler) DeleteTestCase(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.testCaseService.DeleteTestCase(r.Context(), id); err != nil {
		response.Fail(w, h.logger, "delete test case", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchDelete answers 200 with per-id results; a failure of individual ids
// does not fail the request.
func (h *Handler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	results, err := h.testCaseService.BatchDeleteTestCases(r.Context(), req.IDs)
	if err != nil {
		response.Fail(w, h.logger, "batch delete test cases", err)
		return
	}
	resp := BatchDeleteResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []domain.BatchItemResult{}
	}
	for _, res := range results {
		if res.Status == domain.BatchItemDeleted {
			resp.Deleted++
		}
	}
	response.WriteSuccess(w, resp)
}

func (h *Handler) CopyTestCase(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	copied, err := h.testCaseService.CopyTestCase(r.Context(), id)
	if err != nil {
		response.Fail(w, h.logger, "copy test case", err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, copied)
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	moduleID, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	var req ReorderRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	cases, err := h.testCaseService.ReorderTestCases(r.Context(), moduleID, req.OrderedIDs)
	if err != nil {
		response.Fail(w, h.logger, "reorder test cases", err)
		return
	}
	if cases == nil {
		cases = []*domain.TestCase{}
	}
	response.WriteSuccess(w, cases)
}
