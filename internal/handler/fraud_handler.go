package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/service"
	u "github.com/oumalord/DIGIPESA/internal/utils"
)

type FraudHandler struct {
	fraudService service.FraudService
	logger       *slog.Logger
}

func NewFraudHandler(fraudService service.FraudService, logger *slog.Logger) *FraudHandler {
	return &FraudHandler{
		fraudService: fraudService,
		logger:       logger,
	}
}

func (h *FraudHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/fraud/reports", h.SubmitReport).Methods(http.MethodPost)
}

// RegisterAdminRoutes registers the review workflow, restricted to
// admins.
func (h *FraudHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/fraud/reports", h.ListReports).Methods(http.MethodGet)
	router.HandleFunc("/fraud/reports/{id}", h.GetReport).Methods(http.MethodGet)
	router.HandleFunc("/fraud/reports/{id}/investigate", h.BeginInvestigation).Methods(http.MethodPost)
	router.HandleFunc("/fraud/reports/{id}/resolve", h.Resolve).Methods(http.MethodPost)
	router.HandleFunc("/fraud/reports/{id}/flag", h.FlagAccount).Methods(http.MethodPost)
}

func (h *FraudHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitFraudReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid fraud report request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	// Reports are filed as the authenticated account.
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		req.ReporterID = claims.AccountID
	}

	report, err := h.fraudService.Submit(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "submit fraud report")
		return
	}

	u.WriteJSON(w, http.StatusCreated, report)
}

func (h *FraudHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.fraudService.List(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list fraud reports")
		return
	}
	u.WriteJSON(w, http.StatusOK, reports)
}

func (h *FraudHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	report, err := h.fraudService.Get(r.Context(), vars["id"])
	if err != nil {
		handleServiceError(w, h.logger, err, "get fraud report")
		return
	}
	u.WriteJSON(w, http.StatusOK, report)
}

func (h *FraudHandler) BeginInvestigation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reviewerID, _, ok := h.reviewRequest(w, r)
	if !ok {
		return
	}

	report, err := h.fraudService.BeginInvestigation(r.Context(), vars["id"], reviewerID)
	if err != nil {
		handleServiceError(w, h.logger, err, "begin investigation")
		return
	}
	u.WriteJSON(w, http.StatusOK, report)
}

func (h *FraudHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reviewerID, req, ok := h.reviewRequest(w, r)
	if !ok {
		return
	}

	report, err := h.fraudService.Resolve(r.Context(), vars["id"], reviewerID, req.ActionTaken)
	if err != nil {
		handleServiceError(w, h.logger, err, "resolve fraud report")
		return
	}
	u.WriteJSON(w, http.StatusOK, report)
}

func (h *FraudHandler) FlagAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reviewerID, req, ok := h.reviewRequest(w, r)
	if !ok {
		return
	}

	report, account, err := h.fraudService.FlagFromReport(r.Context(), vars["id"], reviewerID, req.Reason)
	if err != nil {
		handleServiceError(w, h.logger, err, "flag account from report")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.FlagReportResponse{
		Report:  *report,
		Account: models.NewAccountResponse(account),
	})
}

// reviewRequest decodes the review payload and resolves the reviewer,
// preferring the authenticated identity over the payload.
func (h *FraudHandler) reviewRequest(w http.ResponseWriter, r *http.Request) (string, models.ReviewReportRequest, bool) {
	var req models.ReviewReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return "", req, false
	}

	reviewerID := req.ReviewerID
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		reviewerID = claims.AccountID
	}
	return reviewerID, req, true
}
