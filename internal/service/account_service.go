package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/repository"
)

// highRiskCreditScore is the threshold below which an account is treated
// as high risk regardless of its report history.
const highRiskCreditScore = 600

type AccountService interface {
	Create(ctx context.Context, req *models.CreateAccountRequest) (*models.Account, error)
	Get(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	Flag(ctx context.Context, accountID, issuerID, reason string) (*models.Account, error)
	Suspend(ctx context.Context, accountID, issuerID, reason string) (*models.Account, error)
	FlaggedAccounts(ctx context.Context) ([]*models.Account, error)
	HighRiskAccounts(ctx context.Context) ([]*models.Account, error)
}

type AccountServiceImpl struct {
	txBeginner  repository.TxBeginner
	accountRepo repository.AccountRepository
	fraudRepo   repository.FraudReportRepository
	logger      *slog.Logger
}

func NewAccountService(txBeginner repository.TxBeginner, accountRepo repository.AccountRepository, fraudRepo repository.FraudReportRepository, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		txBeginner:  txBeginner,
		accountRepo: accountRepo,
		fraudRepo:   fraudRepo,
		logger:      logger,
	}
}

func (s *AccountServiceImpl) Create(ctx context.Context, req *models.CreateAccountRequest) (*models.Account, error) {
	if err := s.validateCreateRequest(req); err != nil {
		s.logger.Warn("invalid create account request", "email", req.Email, "error", err.Error())
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}

	account := &models.Account{
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		PINHash:      string(pinHash),
		Role:         role,
		Name:         req.Name,
		Phone:        req.Phone,
		NationalID:   req.NationalID,
		CreditScore:  req.CreditScore,
		Balance:      req.InitialBalance,
		Status:       models.AccountActive,
	}

	if err := s.accountRepo.Create(ctx, nil, account); err != nil {
		if errors.IsDuplicateEmail(err) {
			s.logger.Warn("email already registered", "email", req.Email)
			return nil, err
		}
		s.logger.Error("failed to create account", "email", req.Email, "error", err.Error())
		return nil, err
	}

	s.logger.Info("account created", "account_id", account.ID, "role", account.Role)
	return account, nil
}

func (s *AccountServiceImpl) Get(ctx context.Context, id string) (*models.Account, error) {
	if id == "" {
		return nil, errors.ErrInvalidAccountID
	}

	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("account not found", "account_id", id)
			return nil, err
		}
		s.logger.Error("failed to get account", "account_id", id, "error", err.Error())
		return nil, err
	}
	return account, nil
}

func (s *AccountServiceImpl) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if email == "" {
		return nil, errors.NewValidationError("email", "must be non-empty")
	}
	return s.accountRepo.GetByEmail(ctx, email)
}

func (s *AccountServiceImpl) List(ctx context.Context) ([]*models.Account, error) {
	return s.accountRepo.List(ctx)
}

// Flag places a 12-hour restriction on an account, recording who issued
// it and why.
func (s *AccountServiceImpl) Flag(ctx context.Context, accountID, issuerID, reason string) (*models.Account, error) {
	return s.setStatus(ctx, accountID, issuerID, reason, models.AccountFlagged)
}

// Suspend takes an account out of service indefinitely.
func (s *AccountServiceImpl) Suspend(ctx context.Context, accountID, issuerID, reason string) (*models.Account, error) {
	return s.setStatus(ctx, accountID, issuerID, reason, models.AccountSuspended)
}

func (s *AccountServiceImpl) setStatus(ctx context.Context, accountID, issuerID, reason string, status models.AccountStatus) (*models.Account, error) {
	if accountID == "" {
		return nil, errors.ErrInvalidAccountID
	}
	if reason == "" {
		return nil, errors.NewValidationError("reason", "must be non-empty")
	}

	tx, err := s.txBeginner.BeginTx(ctx)
	if err != nil {
		return nil, errors.NewTransactionError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	account.Status = status
	account.FlagReason = &reason
	account.FlagIssuer = &issuerID
	if status == models.AccountFlagged {
		expiry := time.Now().Add(models.FlagDuration)
		account.FlagExpiry = &expiry
	} else {
		account.FlagExpiry = nil
	}

	if err := s.accountRepo.Update(ctx, tx, account); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransactionError("commit", err)
	}
	tx = nil

	s.logger.Info("account status changed",
		"account_id", accountID,
		"status", status,
		"issuer_id", issuerID,
	)
	return account, nil
}

func (s *AccountServiceImpl) FlaggedAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.accountRepo.ListByStatus(ctx, models.AccountFlagged)
}

// HighRiskAccounts returns accounts with a HIGH or CRITICAL report
// against them, two or more reports, or a credit score below the
// threshold.
func (s *AccountServiceImpl) HighRiskAccounts(ctx context.Context) ([]*models.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []*models.Account
	for _, account := range accounts {
		if account.CreditScore > 0 && account.CreditScore < highRiskCreditScore {
			out = append(out, account)
			continue
		}

		reports, err := s.fraudRepo.ListByTargetAccount(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if len(reports) >= 2 {
			out = append(out, account)
			continue
		}
		for _, report := range reports {
			if report.RiskLevel.Rank() >= models.RiskHigh.Rank() {
				out = append(out, account)
				break
			}
		}
	}
	return out, nil
}

func (s *AccountServiceImpl) validateCreateRequest(req *models.CreateAccountRequest) error {
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return errors.NewValidationError("email", "must be a valid email address")
	}
	if len(req.Password) < 8 {
		return errors.NewValidationError("password", "must be at least 8 characters")
	}
	if err := ValidatePINFormat(req.PIN); err != nil {
		return err
	}
	if req.Role != "" && !req.Role.Valid() {
		return errors.NewValidationError("role", "must be customer, operator or admin")
	}
	if req.Name == "" {
		return errors.NewValidationError("name", "must be non-empty")
	}
	if req.InitialBalance.IsNegative() {
		return errors.ErrNegativeBalance
	}
	return nil
}
