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

type AlertHandler struct {
	alertService service.AlertService
	logger       *slog.Logger
}

func NewAlertHandler(alertService service.AlertService, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger,
	}
}

// RegisterAdminRoutes registers the alert endpoints, restricted to
// operators and admins.
func (h *AlertHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/alerts", h.RaiseAlert).Methods(http.MethodPost)
	router.HandleFunc("/alerts", h.ListAlerts).Methods(http.MethodGet)
	router.HandleFunc("/alerts/{id}", h.UpdateAlert).Methods(http.MethodPatch)
}

func (h *AlertHandler) RaiseAlert(w http.ResponseWriter, r *http.Request) {
	var req models.RaiseAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid raise alert request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	alert, err := h.alertService.Raise(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "raise alert")
		return
	}

	u.WriteJSON(w, http.StatusCreated, alert)
}

func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	alerts, err := h.alertService.List(r.Context(), activeOnly)
	if err != nil {
		handleServiceError(w, h.logger, err, "list alerts")
		return
	}

	u.WriteJSON(w, http.StatusOK, alerts)
}

func (h *AlertHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req models.UpdateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid update alert request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	alert, err := h.alertService.Update(r.Context(), vars["id"], &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update alert")
		return
	}

	u.WriteJSON(w, http.StatusOK, alert)
}
