package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	account := env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)

	resp, err := env.auth.Login(context.Background(), &models.LoginRequest{
		Email:    "alice@digipesa.com",
		Password: "Secret@2024",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
	if resp.Account.ID != account.ID {
		t.Fatalf("account ID = %s, want %s", resp.Account.ID, account.ID)
	}
	if resp.Account.LastLogin == nil {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@digipesa.com", "WrongPass1"},
		{"unknown email", "nobody@digipesa.com", "Secret@2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Login(context.Background(), &models.LoginRequest{
				Email:    tt.email,
				Password: tt.password,
			})
			if !stderrors.Is(err, errors.ErrInvalidCredentials) {
				t.Fatalf("want ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginClearsExpiredFlag(t *testing.T) {
	env := newTestEnv(t)
	account := env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)

	// Plant an already-expired flag directly in the store.
	expiry := time.Now().Add(-time.Hour)
	reason := "suspicious activity"
	issuer := "admin-1"
	stored, err := env.store.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatal(err)
	}
	stored.Status = models.AccountFlagged
	stored.FlagExpiry = &expiry
	stored.FlagReason = &reason
	stored.FlagIssuer = &issuer
	if err := env.store.Update(context.Background(), nil, stored); err != nil {
		t.Fatal(err)
	}

	resp, err := env.auth.Login(context.Background(), &models.LoginRequest{
		Email:    "alice@digipesa.com",
		Password: "Secret@2024",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Account.Status != models.AccountActive {
		t.Fatalf("status = %s, want active", resp.Account.Status)
	}
	if resp.Account.FlagExpiry != nil || resp.Account.FlagReason != nil {
		t.Fatal("expected flag fields to be cleared")
	}

	// The cleared state must also be persisted.
	after, err := env.store.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != models.AccountActive || after.FlagExpiry != nil {
		t.Fatalf("persisted account still flagged: %+v", after)
	}
}

func TestLoginKeepsUnexpiredFlag(t *testing.T) {
	env := newTestEnv(t)
	account := env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)

	expiry := time.Now().Add(time.Hour)
	stored, _ := env.store.GetByID(context.Background(), account.ID)
	stored.Status = models.AccountFlagged
	stored.FlagExpiry = &expiry
	if err := env.store.Update(context.Background(), nil, stored); err != nil {
		t.Fatal(err)
	}

	resp, err := env.auth.Login(context.Background(), &models.LoginRequest{
		Email:    "alice@digipesa.com",
		Password: "Secret@2024",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Account.Status != models.AccountFlagged {
		t.Fatalf("status = %s, want flagged", resp.Account.Status)
	}
}

func TestVerifyPINFormat(t *testing.T) {
	env := newTestEnv(t)
	account := env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)

	for _, pin := range []string{"12a4", "123", "12345", "", "12 4"} {
		_, err := env.auth.VerifyPIN(context.Background(), account.ID, pin)
		if !errors.IsValidationError(err) {
			t.Fatalf("pin %q: want validation error, got %v", pin, err)
		}
	}

	// A malformed PIN must not count as a failed attempt.
	stored, _ := env.store.GetByID(context.Background(), account.ID)
	if stored.PINAttempts != 0 {
		t.Fatalf("PIN attempts = %d, want 0", stored.PINAttempts)
	}
}

func TestVerifyPIN(t *testing.T) {
	env := newTestEnv(t)
	account := env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)

	ok, err := env.auth.VerifyPIN(context.Background(), account.ID, "1234")
	if err != nil || !ok {
		t.Fatalf("correct PIN: ok=%v err=%v", ok, err)
	}

	ok, err = env.auth.VerifyPIN(context.Background(), account.ID, "4321")
	if err != nil {
		t.Fatalf("wrong PIN: %v", err)
	}
	if ok {
		t.Fatal("wrong PIN accepted")
	}

	_, err = env.auth.VerifyPIN(context.Background(), "missing", "1234")
	if !errors.IsNotFound(err) {
		t.Fatalf("want not-found, got %v", err)
	}
}

func TestVerifyPINLockout(t *testing.T) {
	env := newTestEnv(t)
	account := env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)

	for i := 0; i < maxPINAttempts; i++ {
		ok, err := env.auth.VerifyPIN(context.Background(), account.ID, "0000")
		if err != nil || ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i, ok, err)
		}
	}

	// Locked now, even with the correct PIN.
	_, err := env.auth.VerifyPIN(context.Background(), account.ID, "1234")
	if !stderrors.Is(err, errors.ErrPINLocked) {
		t.Fatalf("want ErrPINLocked, got %v", err)
	}

	// Lockout raises a security alert.
	alerts, err := env.store.ListActiveSecurityAlerts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var found *models.SecurityAlert
	for _, alert := range alerts {
		if alert.AccountID == account.ID && alert.AlertType == models.AlertSecurityBreach {
			found = alert
		}
	}
	if found == nil {
		t.Fatal("expected a lockout security alert")
	}
	if found.Severity != models.RiskHigh {
		t.Fatalf("alert severity = %s, want HIGH", found.Severity)
	}
}

func TestVerifyPINResetsAttemptsOnSuccess(t *testing.T) {
	env := newTestEnv(t)
	account := env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)

	for i := 0; i < maxPINAttempts-1; i++ {
		if _, err := env.auth.VerifyPIN(context.Background(), account.ID, "0000"); err != nil {
			t.Fatal(err)
		}
	}
	if ok, err := env.auth.VerifyPIN(context.Background(), account.ID, "1234"); err != nil || !ok {
		t.Fatalf("correct PIN after failures: ok=%v err=%v", ok, err)
	}

	stored, _ := env.store.GetByID(context.Background(), account.ID)
	if stored.PINAttempts != 0 {
		t.Fatalf("PIN attempts = %d, want 0 after success", stored.PINAttempts)
	}
}

func TestVerifyOperatorPIN(t *testing.T) {
	env := newTestEnv(t)
	customer := env.newAccount(t, "alice@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 1000)
	operator := env.newAccount(t, "op@digipesa.com", "Secret@2024", "9876", models.RoleOperator, 0)
	admin := env.newAccount(t, "admin@digipesa.com", "Secret@2024", "5678", models.RoleAdmin, 0)

	if ok, err := env.auth.VerifyOperatorPIN(context.Background(), operator.ID, "9876"); err != nil || !ok {
		t.Fatalf("operator PIN: ok=%v err=%v", ok, err)
	}
	if ok, err := env.auth.VerifyOperatorPIN(context.Background(), admin.ID, "5678"); err != nil || !ok {
		t.Fatalf("admin PIN: ok=%v err=%v", ok, err)
	}

	_, err := env.auth.VerifyOperatorPIN(context.Background(), customer.ID, "1234")
	if !stderrors.Is(err, errors.ErrNotOperator) {
		t.Fatalf("want ErrNotOperator, got %v", err)
	}
}
