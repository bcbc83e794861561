package suites

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/services/suite"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/handlers/request"
	"gitlab.com/testhub.net/internal/handlers/response"
)

type Handler struct {
	suiteService suite.ISuiteService
	logger       primary.Logger
}

func NewHandler(suiteService suite.ISuiteService, logger primary.Logger) *Handler {
	return &Handler{
		suiteService: suiteService,
		logger:       logger,
	}
}

// RegisterRoutes expects the /api sub-router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/testsuites", h.ListSuites).Methods("GET")
	router.HandleFunc("/testsuites", h.CreateSuite).Methods("POST")
	router.HandleFunc("/testsuites/{id}", h.GetSuite).Methods("GET")
	router.HandleFunc("/testsuites/{id}", h.UpdateSuite).Methods("PUT")
	router.HandleFunc("/testsuites/{id}", h.DeleteSuite).Methods("DELETE")
	router.HandleFunc("/testsuites/{id}/cases", h.AddCases).Methods("POST")
	router.HandleFunc("/testsuites/{id}/cases", h.RemoveCases).Methods("DELETE")
}

func (h *Handler) ListSuites(w http.ResponseWriter, r *http.Request) {
	suites, err := h.suiteService.ListSuites(r.Context())
	if err != nil {
		response.Fail(w, h.logger, "list suites", err)
		return
	}
	if suites == nil {
		suites = []*domain.TestSuite{}
	}
	response.WriteSuccess(w, suites)
}

func (h *Handler) CreateSuite(w http.ResponseWriter, r *http.Request) {
	var req CreateSuiteRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	created, err := h.suiteService.CreateSuite(r.Context(), req.Name, req.Description, req.CaseIDs)
	if err != nil {
		response.Fail(w, h.logger, "create suite", err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetSuite(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	s, err := h.suiteService.GetSuite(r.Context(), id)
	if err != nil {
		response.Fail(w, h.logger, "get suite", err)
		return
	}
	response.WriteSuccess(w, s)
}

func (h *Handler) UpdateSuite(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	var req UpdateSuiteRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	updated, err := h.suiteService.UpdateSuite(r.Context(), id, req.Patch())
	if err != nil {
		response.Fail(w, h.logger, "update suite", err)
		return
	}
	response.WriteSuccess(w, updated)
}

func (h *Handler) DeleteSuite(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.suiteService.DeleteSuite(r.Context(), id); err != nil {
		response.Fail(w, h.logger, "delete suite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddCases(w http.ResponseWriter, r *http.Request) {
	h.changeCases(w, r, "add suite cases", h.suiteService.AddCases)
}

func (h *Handler) RemoveCases(w http.ResponseWriter, r *http.Request) {
	h.changeCases(w, r, "remove suite cases", h.suiteService.RemoveCases)
}

type casesFunc func(ctx context.Context, suiteID uuid.UUID, caseIDs []uuid.UUID) (*domain.TestSuite, error)

func (h *Handler) changeCases(w http.ResponseWriter, r *http.Request, action string, fn casesFunc) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	var req SuiteCasesRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	updated, err := fn(r.Context(), id, req.CaseIDs)
	if err != nil {
		response.Fail(w, h.logger, action, err)
		return
	}
	response.WriteSuccess(w, updated)
}
