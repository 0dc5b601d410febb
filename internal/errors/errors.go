package errors

import (
	"errors"
	"fmt"
)

// Domain error values for the banking core.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidAccountID    = errors.New("invalid account ID")
	ErrSameAccount         = errors.New("source and destination accounts cannot be the same")
	ErrNegativeBalance     = errors.New("balance cannot be negative")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidPIN          = errors.New("invalid PIN")
	ErrPINLocked           = errors.New("PIN locked after too many failed attempts")
	ErrNotOperator         = errors.New("account is not an operator or admin")
	ErrAccountRestricted   = errors.New("account is flagged or suspended")
	ErrReportNotFound      = errors.New("fraud report not found")
	ErrAlertNotFound       = errors.New("security alert not found")
	ErrInvalidReportState  = errors.New("fraud report is not in a valid state for this transition")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

type TransactionError struct {
	Operation string
	Cause     error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction error during '%s': %v", e.Operation, e.Cause)
}

func (e *TransactionError) Unwrap() error {
	return e.Cause
}

func NewTransactionError(operation string, cause error) error {
	return &TransactionError{
		Operation: operation,
		Cause:     cause,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrReportNotFound) ||
		errors.Is(err, ErrAlertNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsDuplicateEmail(err error) bool {
	return errors.Is(err, ErrDuplicateEmail)
}

func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidPIN)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrInvalidReportState)
}
