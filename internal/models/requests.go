package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request/response types for the HTTP API.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

type VerifyPINRequest struct {
	AccountID string `json:"account_id"`
	PIN       string `json:"pin"`
}

type VerifyPINResponse struct {
	Valid bool `json:"valid"`
}

type CreateAccountRequest struct {
	Email          string          `json:"email"`
	Password       string          `json:"password"`
	PIN            string          `json:"pin"`
	Role           Role            `json:"role"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	NationalID     string          `json:"national_id"`
	CreditScore    int             `json:"credit_score"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type AccountResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Role        Role            `json:"role"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Balance     decimal.Decimal `json:"balance"`
	Status      AccountStatus   `json:"status"`
	FlagExpiry  *time.Time      `json:"flag_expiry,omitempty"`
	FlagReason  *string         `json:"flag_reason,omitempty"`
	CreditScore int             `json:"credit_score"`
	LastLogin   *time.Time      `json:"last_login,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewAccountResponse strips credentials and internal counters from an
// account before it crosses the API boundary.
func NewAccountResponse(a *Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Email:       a.Email,
		Role:        a.Role,
		Name:        a.Name,
		Phone:       a.Phone,
		Balance:     a.Balance,
		Status:      a.Status,
		FlagExpiry:  a.FlagExpiry,
		FlagReason:  a.FlagReason,
		CreditScore: a.CreditScore,
		LastLogin:   a.LastLogin,
		CreatedAt:   a.CreatedAt,
	}
}

type RecordTransactionRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

type TransferRequest struct {
	SourceAccountID  string          `json:"source_account_id"`
	DestinationEmail string          `json:"destination_email"`
	Amount           decimal.Decimal `json:"amount"`
	PIN              string          `json:"pin"`
	Description      string          `json:"description"`
}

// AssistedTransactionRequest covers operator-assisted cash deposits and
// withdrawals. Both customer and operator PINs must verify before any
// balance mutation.
type AssistedTransactionRequest struct {
	CustomerEmail string          `json:"customer_email"`
	Amount        decimal.Decimal `json:"amount"`
	CustomerPIN   string          `json:"customer_pin"`
	OperatorID    string          `json:"operator_id"`
	OperatorPIN   string          `json:"operator_pin"`
	Description   string          `json:"description"`
}

type TransactionResponse struct {
	ID             string            `json:"id"`
	AccountID      string            `json:"account_id"`
	Amount         decimal.Decimal   `json:"amount"`
	Type           TransactionType   `json:"type"`
	Category       string            `json:"category"`
	Description    string            `json:"description"`
	Status         TransactionStatus `json:"status"`
	ActorID        *string           `json:"actor_id,omitempty"`
	CounterpartyID *string           `json:"counterparty_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func NewTransactionResponse(t *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID,
		AccountID:      t.AccountID,
		Amount:         t.Amount,
		Type:           t.Type,
		Category:       t.Category,
		Description:    t.Description,
		Status:         t.Status,
		ActorID:        t.ActorID,
		CounterpartyID: t.CounterpartyID,
		CreatedAt:      t.CreatedAt,
	}
}

type SubmitFraudReportRequest struct {
	ReporterID           string          `json:"reporter_id"`
	TargetAccountID      string          `json:"target_account_id"`
	RelatedTransactionID *string         `json:"related_transaction_id,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
	RiskLevel            RiskLevel       `json:"risk_level"`
}

type ReviewReportRequest struct {
	ReviewerID  string `json:"reviewer_id"`
	ActionTaken string `json:"action_taken,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// FlagReportResponse returns both sides of the flag operation so callers
// can see the report and the account it restricted.
type FlagReportResponse struct {
	Report  FraudReport     `json:"report"`
	Account AccountResponse `json:"account"`
}

type RaiseAlertRequest struct {
	AccountID string    `json:"account_id"`
	AlertType AlertType `json:"alert_type"`
	Severity  RiskLevel `json:"severity"`
	Message   string    `json:"message"`
	Details   string    `json:"details"`
}

type UpdateAlertRequest struct {
	Status   AlertStatus `json:"status"`
	Assignee *string     `json:"assignee,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
