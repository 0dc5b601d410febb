package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountFlagged   AccountStatus = "flagged"
	AccountSuspended AccountStatus = "suspended"
)

// FlagDuration is how long a flag restricts an account. Every flagging
// path uses the same window.
const FlagDuration = 12 * time.Hour

type Account struct {
	ID            string          `json:"id"`
	Email         string          `json:"email"`
	PasswordHash  string          `json:"-"`
	PINHash       string          `json:"-"`
	Role          Role            `json:"role"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	NationalID    string          `json:"national_id"`
	CreditScore   int             `json:"credit_score"`
	Balance       decimal.Decimal `json:"balance"`
	Status        AccountStatus   `json:"status"`
	FlagExpiry    *time.Time      `json:"flag_expiry,omitempty"`
	FlagReason    *string         `json:"flag_reason,omitempty"`
	FlagIssuer    *string         `json:"flag_issuer,omitempty"`
	PINAttempts   int             `json:"-"`
	PINLockedTill *time.Time      `json:"-"`
	LastLogin     *time.Time      `json:"last_login,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// FlagExpired reports whether the account carries a flag whose window has
// already passed.
func (a *Account) FlagExpired(now time.Time) bool {
	return a.Status == AccountFlagged && a.FlagExpiry != nil && now.After(*a.FlagExpiry)
}

// ClearFlag resets the account to active and drops the flag metadata.
func (a *Account) ClearFlag() {
	a.Status = AccountActive
	a.FlagExpiry = nil
	a.FlagReason = nil
	a.FlagIssuer = nil
}

type TransactionType string

const (
	TransactionTransfer   TransactionType = "transfer"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionPurchase   TransactionType = "purchase"
	TransactionDeposit    TransactionType = "deposit"
	TransactionLoan       TransactionType = "loan"
	TransactionSavings    TransactionType = "savings"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTransfer, TransactionWithdrawal, TransactionPurchase,
		TransactionDeposit, TransactionLoan, TransactionSavings:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionApproved TransactionStatus = "approved"
	TransactionRejected TransactionStatus = "rejected"
)

// Transaction is an immutable ledger record. Negative amounts are debits.
type Transaction struct {
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

// RiskLevel is an ordered severity scale shared by fraud reports and
// security alerts.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Rank maps the level onto its position in the ordering LOW < MEDIUM <
// HIGH < CRITICAL. Unknown levels rank below LOW.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

type ReportStatus string

const (
	ReportPending       ReportStatus = "pending"
	ReportInvestigating ReportStatus = "investigating"
	ReportResolved      ReportStatus = "resolved"
	ReportFlagged       ReportStatus = "flagged"
)

type FraudReport struct {
	ID                   string          `json:"id"`
	ReporterID           string          `json:"reporter_id"`
	ReporterRole         Role            `json:"reporter_role"`
	TargetAccountID      string          `json:"target_account_id"`
	RelatedTransactionID *string         `json:"related_transaction_id,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
	RiskLevel            RiskLevel       `json:"risk_level"`
	Status               ReportStatus    `json:"status"`
	ReviewerID           *string         `json:"reviewer_id,omitempty"`
	ReviewedAt           *time.Time      `json:"reviewed_at,omitempty"`
	ActionTaken          *string         `json:"action_taken,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

type AlertType string

const (
	AlertFraud              AlertType = "fraud"
	AlertSuspiciousLogin    AlertType = "suspicious_login"
	AlertUnusualTransaction AlertType = "unusual_transaction"
	AlertSecurityBreach     AlertType = "security_breach"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertFraud, AlertSuspiciousLogin, AlertUnusualTransaction, AlertSecurityBreach:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertActive        AlertStatus = "active"
	AlertInvestigating AlertStatus = "investigating"
	AlertResolved      AlertStatus = "resolved"
)

type SecurityAlert struct {
	ID        string      `json:"id"`
	AccountID string      `json:"account_id"`
	AlertType AlertType   `json:"alert_type"`
	Severity  RiskLevel   `json:"severity"`
	Message   string      `json:"message"`
	Details   string      `json:"details"`
	Status    AlertStatus `json:"status"`
	Assignee  *string     `json:"assignee,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
