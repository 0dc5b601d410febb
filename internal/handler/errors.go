package handler

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/oumalord/DIGIPESA/internal/errors"
	u "github.com/oumalord/DIGIPESA/internal/utils"
)

// handleServiceError maps domain errors onto HTTP status codes so API
// consumers can tell validation, auth, not-found, conflict and funds
// failures apart.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error, operation string) {
	switch {
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	case stderrors.Is(err, errors.ErrInvalidAccountID),
		stderrors.Is(err, errors.ErrInvalidAmount),
		stderrors.Is(err, errors.ErrNegativeBalance),
		stderrors.Is(err, errors.ErrSameAccount):
		u.WriteError(w, http.StatusBadRequest, err.Error(), "")
	case errors.IsAuthError(err):
		u.WriteError(w, http.StatusUnauthorized, err.Error(), "")
	case stderrors.Is(err, errors.ErrNotOperator):
		u.WriteError(w, http.StatusForbidden, err.Error(), "")
	case errors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, err.Error(), "")
	case errors.IsConflict(err):
		u.WriteError(w, http.StatusConflict, err.Error(), "")
	case errors.IsInsufficientFunds(err):
		u.WriteError(w, http.StatusUnprocessableEntity, err.Error(), "")
	case stderrors.Is(err, errors.ErrAccountRestricted):
		u.WriteError(w, http.StatusUnprocessableEntity, err.Error(), "")
	case stderrors.Is(err, errors.ErrPINLocked):
		u.WriteError(w, http.StatusLocked, err.Error(), "")
	default:
		logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
