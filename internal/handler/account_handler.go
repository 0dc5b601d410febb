package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/service"
	u "github.com/oumalord/DIGIPESA/internal/utils"
)

type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(accountService service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
}

// RegisterOperatorRoutes registers the routes restricted to operators
// and admins.
func (h *AccountHandler) RegisterOperatorRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	router.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/flag", h.FlagAccount).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/suspend", h.SuspendAccount).Methods(http.MethodPost)
	router.HandleFunc("/admin/accounts/flagged", h.FlaggedAccounts).Methods(http.MethodGet)
	router.HandleFunc("/admin/accounts/high-risk", h.HighRiskAccounts).Methods(http.MethodGet)
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid create account request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	account, err := h.accountService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create account")
		return
	}

	u.WriteJSON(w, http.StatusCreated, models.NewAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["id"]

	account, err := h.accountService.Get(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, h.logger, err, "get account")
		return
	}

	u.WriteJSON(w, http.StatusOK, models.NewAccountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.List(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list accounts")
		return
	}
	u.WriteJSON(w, http.StatusOK, accountResponses(accounts))
}

func (h *AccountHandler) FlagAccount(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.accountService.Flag, "flag account")
}

func (h *AccountHandler) SuspendAccount(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.accountService.Suspend, "suspend account")
}

type statusRequest struct {
	Reason string `json:"reason"`
}

func (h *AccountHandler) setStatus(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, accountID, issuerID, reason string) (*models.Account, error), operation string) {
	vars := mux.Vars(r)
	accountID := vars["id"]

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "missing authorization", "")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	account, err := apply(r.Context(), accountID, claims.AccountID, req.Reason)
	if err != nil {
		handleServiceError(w, h.logger, err, operation)
		return
	}

	u.WriteJSON(w, http.StatusOK, models.NewAccountResponse(account))
}

func (h *AccountHandler) FlaggedAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.FlaggedAccounts(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list flagged accounts")
		return
	}
	u.WriteJSON(w, http.StatusOK, accountResponses(accounts))
}

func (h *AccountHandler) HighRiskAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.HighRiskAccounts(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list high risk accounts")
		return
	}
	u.WriteJSON(w, http.StatusOK, accountResponses(accounts))
}

func accountResponses(accounts []*models.Account) []models.AccountResponse {
	out := make([]models.AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, models.NewAccountResponse(account))
	}
	return out
}
