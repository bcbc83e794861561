package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/handlers/response"
)

// HealthHandler reports whether the service can reach its store.
type HealthHandler struct {
	store   secondary.Store
	logger  primary.Logger
	timeout time.Duration
}

func NewHealthHandler(store secondary.Store, logger primary.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods("GET")
}

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	err := h.store.View(ctx, func(tx secondary.Tx) error {
		_, err := tx.GetModule(ctx, uuid.Nil)
		return err
	})
	if err != nil {
		h.logger.Error("Health check failed", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "store unavailable", StatusCode: http.StatusServiceUnavailable})
		return
	}
	response.WriteSuccess(w, healthResponse{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)})
}
