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

type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

func NewTransactionHandler(transactionService service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions", h.RecordTransaction).Methods(http.MethodPost)
	router.HandleFunc("/transactions/transfer", h.Transfer).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/transactions", h.ListTransactions).Methods(http.MethodGet)
}

// RegisterOperatorRoutes registers the dual-authorization cash flows,
// restricted to operators and admins.
func (h *TransactionHandler) RegisterOperatorRoutes(router *mux.Router) {
	router.HandleFunc("/operator/deposits", h.AssistedDeposit).Methods(http.MethodPost)
	router.HandleFunc("/operator/withdrawals", h.AssistedWithdrawal).Methods(http.MethodPost)
}

func (h *TransactionHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid record transaction request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	var actorID *string
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.AccountID != req.AccountID {
		actorID = &claims.AccountID
	}

	transaction, err := h.transactionService.Record(r.Context(), &req, actorID)
	if err != nil {
		handleServiceError(w, h.logger, err, "record transaction")
		return
	}

	u.WriteJSON(w, http.StatusCreated, models.NewTransactionResponse(transaction))
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid transfer request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	transaction, err := h.transactionService.Transfer(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "transfer")
		return
	}

	u.WriteJSON(w, http.StatusCreated, models.NewTransactionResponse(transaction))
}

func (h *TransactionHandler) AssistedDeposit(w http.ResponseWriter, r *http.Request) {
	h.assisted(w, r, h.transactionService.AssistedDeposit, "assisted deposit")
}

func (h *TransactionHandler) AssistedWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.assisted(w, r, h.transactionService.AssistedWithdrawal, "assisted withdrawal")
}

func (h *TransactionHandler) assisted(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, req *models.AssistedTransactionRequest) (*models.Transaction, error), operation string) {
	var req models.AssistedTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid assisted transaction request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	// The operator identity comes from the token, not the payload.
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		req.OperatorID = claims.AccountID
	}

	transaction, err := apply(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, operation)
		return
	}

	u.WriteJSON(w, http.StatusCreated, models.NewTransactionResponse(transaction))
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["id"]

	transactions, err := h.transactionService.ListForAccount(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list transactions")
		return
	}

	out := make([]models.TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, models.NewTransactionResponse(t))
	}
	u.WriteJSON(w, http.StatusOK, out)
}
