package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oumalord/DIGIPESA/internal/auth"
	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/repository"
)

const (
	pinLength      = 4
	maxPINAttempts = 5
	pinLockoutTime = 15 * time.Minute
)

type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	VerifyPIN(ctx context.Context, accountID, pin string) (bool, error)
	VerifyOperatorPIN(ctx context.Context, operatorID, pin string) (bool, error)
}

type AuthServiceImpl struct {
	txBeginner  repository.TxBeginner
	accountRepo repository.AccountRepository
	alertRepo   repository.SecurityAlertRepository
	tokens      *auth.TokenManager
	logger      *slog.Logger
}

func NewAuthService(txBeginner repository.TxBeginner, accountRepo repository.AccountRepository, alertRepo repository.SecurityAlertRepository, tokens *auth.TokenManager, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		txBeginner:  txBeginner,
		accountRepo: accountRepo,
		alertRepo:   alertRepo,
		tokens:      tokens,
		logger:      logger,
	}
}

// Login checks the credentials and, on success, lazily clears any expired
// flag and records the login time. The expiry check runs on the locked row
// so it cannot race a concurrent flag operation.
func (s *AuthServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if req.Email == "" {
		return nil, errors.NewValidationError("email", "must be non-empty")
	}
	if req.Password == "" {
		return nil, errors.NewValidationError("password", "must be non-empty")
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

	account, err := s.accountRepo.GetByEmailForUpdate(ctx, tx, req.Email)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("login attempt for unknown email", "email", req.Email)
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login attempt with wrong password", "account_id", account.ID)
		return nil, errors.ErrInvalidCredentials
	}

	now := time.Now()
	if account.FlagExpired(now) {
		s.logger.Info("clearing expired flag on login",
			"account_id", account.ID,
			"flag_expiry", account.FlagExpiry,
		)
		account.ClearFlag()
	}
	account.LastLogin = &now

	if err := s.accountRepo.Update(ctx, tx, account); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransactionError("commit", err)
	}
	tx = nil

	token, err := s.tokens.Generate(account.ID, account.Role)
	if err != nil {
		s.logger.Error("failed to generate token", "account_id", account.ID, "error", err.Error())
		return nil, err
	}

	s.logger.Info("login successful", "account_id", account.ID, "role", account.Role)
	return &models.LoginResponse{
		Token:   token,
		Account: models.NewAccountResponse(account),
	}, nil
}

// VerifyPIN checks a customer PIN. The format is validated before any
// comparison against the stored hash. Five consecutive failures lock the
// PIN for fifteen minutes and raise a security alert.
func (s *AuthServiceImpl) VerifyPIN(ctx context.Context, accountID, pin string) (bool, error) {
	return s.verifyPIN(ctx, accountID, pin, false)
}

// VerifyOperatorPIN is VerifyPIN restricted to operator and admin
// accounts. Used as the second factor in dual-authorization flows.
func (s *AuthServiceImpl) VerifyOperatorPIN(ctx context.Context, operatorID, pin string) (bool, error) {
	return s.verifyPIN(ctx, operatorID, pin, true)
}

func (s *AuthServiceImpl) verifyPIN(ctx context.Context, accountID, pin string, requireOperator bool) (bool, error) {
	if accountID == "" {
		return false, errors.ErrInvalidAccountID
	}
	if err := ValidatePINFormat(pin); err != nil {
		return false, err
	}

	tx, err := s.txBeginner.BeginTx(ctx)
	if err != nil {
		return false, errors.NewTransactionError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return false, err
	}

	if requireOperator && account.Role != models.RoleOperator && account.Role != models.RoleAdmin {
		return false, errors.ErrNotOperator
	}

	now := time.Now()
	if account.PINLockedTill != nil && now.Before(*account.PINLockedTill) {
		s.logger.Warn("PIN verification while locked", "account_id", accountID)
		return false, errors.ErrPINLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PINHash), []byte(pin)) != nil {
		account.PINAttempts++
		locked := account.PINAttempts >= maxPINAttempts
		if locked {
			lockedTill := now.Add(pinLockoutTime)
			account.PINLockedTill = &lockedTill
			account.PINAttempts = 0
		}
		if err := s.accountRepo.Update(ctx, tx, account); err != nil {
			return false, err
		}
		if locked {
			alert := &models.SecurityAlert{
				AccountID: account.ID,
				AlertType: models.AlertSecurityBreach,
				Severity:  models.RiskHigh,
				Message:   "PIN locked after repeated failed attempts",
				Details:   fmt.Sprintf("%d consecutive PIN failures; locked until %s", maxPINAttempts, account.PINLockedTill.Format(time.RFC3339)),
				Status:    models.AlertActive,
			}
			if err := s.alertRepo.Create(ctx, tx, alert); err != nil {
				s.logger.Error("failed to raise PIN lockout alert", "account_id", accountID, "error", err.Error())
			}
		}
		if err := tx.Commit(); err != nil {
			return false, errors.NewTransactionError("commit", err)
		}
		tx = nil

		s.logger.Warn("PIN mismatch", "account_id", accountID, "locked", locked)
		return false, nil
	}

	if account.PINAttempts != 0 || account.PINLockedTill != nil {
		account.PINAttempts = 0
		account.PINLockedTill = nil
		if err := s.accountRepo.Update(ctx, tx, account); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.NewTransactionError("commit", err)
	}
	tx = nil

	return true, nil
}

// ValidatePINFormat rejects anything that is not exactly four ASCII
// digits, before any comparison against stored credentials.
func ValidatePINFormat(pin string) error {
	if len(pin) != pinLength {
		return errors.NewValidationError("pin", "must be exactly 4 digits")
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return errors.NewValidationError("pin", "must be exactly 4 digits")
		}
	}
	return nil
}
