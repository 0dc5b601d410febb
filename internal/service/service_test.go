package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oumalord/DIGIPESA/internal/auth"
	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/repository"
)

// testEnv wires every service against a fresh in-memory store.
type testEnv struct {
	store        *repository.MemoryStore
	auth         *AuthServiceImpl
	accounts     *AccountServiceImpl
	transactions *TransactionServiceImpl
	fraud        *FraudServiceImpl
	alerts       *AlertServiceImpl
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	authService := NewAuthService(store, store.Accounts(), store.SecurityAlerts(), tokens, logger)
	accountService := NewAccountService(store, store.Accounts(), store.FraudReports(), logger)
	transactionService := NewTransactionService(store, store.Accounts(), store.Transactions(), authService, logger)
	fraudService := NewFraudService(store, store.FraudReports(), store.Accounts(), logger)
	alertService := NewAlertService(store.SecurityAlerts(), store.Accounts(), logger)

	return &testEnv{
		store:        store,
		auth:         authService,
		accounts:     accountService,
		transactions: transactionService,
		fraud:        fraudService,
		alerts:       alertService,
	}
}

// newAccount registers an account through the service so hashes and
// defaults are produced the same way production code produces them.
func (e *testEnv) newAccount(t *testing.T, email, password, pin string, role models.Role, balance int64) *models.Account {
	t.Helper()

	account, err := e.accounts.Create(context.Background(), &models.CreateAccountRequest{
		Email:          email,
		Password:       password,
		PIN:            pin,
		Role:           role,
		Name:           "Test " + email,
		Phone:          "+254700000000",
		NationalID:     "11111111",
		CreditScore:    700,
		InitialBalance: decimal.NewFromInt(balance),
	})
	if err != nil {
		t.Fatalf("create account %s: %v", email, err)
	}
	return account
}

func (e *testEnv) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()

	account, err := e.accounts.Get(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account %s: %v", accountID, err)
	}
	return account.Balance
}

func decEq(t *testing.T, got, want decimal.Decimal, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s = %s, want %s", label, got, want)
	}
}
