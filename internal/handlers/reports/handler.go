package reports

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/core/services/execution"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/handlers/request"
	"gitlab.com/testhub.net/internal/handlers/response"
)

type Handler struct {
	executionService execution.IExecutionService
	logger           primary.Logger
}

func NewHandler(executionService execution.IExecutionService, logger primary.Logger) *Handler {
	return &Handler{
		executionService: executionService,
		logger:           logger,
	}
}

// RegisterRoutes expects the /api sub-router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/testsuites/{id}/execute", h.ExecuteSuite).Methods("POST")
	router.HandleFunc("/reports", h.ListReports).Methods("GET")
	router.HandleFunc("/reports/{id}", h.GetReport).Methods("GET")
}

// ExecuteSuite answers 202 with the freshly created report; the run goes on
// in the background and is followed through GET /reports/{id}.
func (h *Handler) ExecuteSuite(w http.ResponseWriter, r *http.Request) {
	suiteID, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	report, err := h.executionService.ExecuteSuite(r.Context(), suiteID)
	if err != nil {
		response.Fail(w, h.logger, "execute suite", err)
		return
	}
	w.Header().Set("Location", "/api/reports/"+report.ID.String())
	response.WriteJSON(w, http.StatusAccepted, report)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	suiteID, err := request.QueryID(r, "suite_id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	skip, limit, err := request.Paging(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	reports, err := h.executionService.ListReports(r.Context(), secondary.ReportFilter{SuiteID: suiteID, Offset: skip, Limit: limit})
	if err != nil {
		response.Fail(w, h.logger, "list reports", err)
		return
	}
	if reports == nil {
		reports = []*domain.TestReport{}
	}
	response.WriteSuccess(w, reports)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	report, err := h.executionService.GetReport(r.Context(), id)
	if err != nil {
		response.Fail(w, h.logger, "get report", err)
		return
	}
	response.WriteSuccess(w, report)
}
