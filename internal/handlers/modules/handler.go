package modules

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/services/module"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/handlers/request"
	"gitlab.com/testhub.net/internal/handlers/response"
)

type Handler struct {
	moduleService module.IModuleService
	logger        primary.Logger
}

func NewHandler(moduleService module.IModuleService, logger primary.Logger) *Handler {
	return &Handler{
		moduleService: moduleService,
		logger:        logger,
	}
}

// RegisterRoutes expects the /api sub-router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/modules", h.ListModules).Methods("GET")
	router.HandleFunc("/modules", h.CreateModule).Methods("POST")
	router.HandleFunc("/modules/{id}", h.GetModule).Methods("GET")
	router.HandleFunc("/modules/{id}", h.UpdateModule).Methods("PUT")
	router.HandleFunc("/modules/{id}", h.DeleteModule).Methods("DELETE")
}

func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.moduleService.ListModules(r.Context())
	if err != nil {
		response.Fail(w, h.logger, "list modules", err)
		return
	}
	if modules == nil {
		modules = []*domain.Module{}
	}
	response.WriteSuccess(w, modules)
}

func (h *Handler) CreateModule(w http.ResponseWriter, r *http.Request) {
	var req CreateModuleRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	created, err := h.moduleService.CreateModule(r.Context(), req.Name, req.Description, req.ParentID)
	if err != nil {
		response.Fail(w, h.logger, "create module", err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	m, err := h.moduleService.GetModule(r.Context(), id)
	if err != nil {
		response.Fail(w, h.logger, "get module", err)
		return
	}
	response.WriteSuccess(w, m)
}

func (h *Handler) UpdateModule(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	var req UpdateModuleRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	updated, err := h.moduleService.UpdateModule(r.Context(), id, req.Patch())
	if err != nil {
		response.Fail(w, h.logger, "update module", err)
		return
	}
	response.WriteSuccess(w, updated)
}

// DeleteModule refuses modules that still hold cases unless ?cascade=true.
func (h *Handler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	cascade := false
	if raw := r.URL.Query().Get("cascade"); raw != "" {
		if cascade, err = strconv.ParseBool(raw); err != nil {
			response.BadRequest(w, "invalid cascade "+strconv.Quote(raw))
			return
		}
	}

	if err := h.moduleService.DeleteModule(r.Context(), id, cascade); err != nil {
		response.Fail(w, h.logger, "delete module", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
