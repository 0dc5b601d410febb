package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/oumalord/DIGIPESA/internal/auth"
	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/repository"
	"github.com/oumalord/DIGIPESA/internal/service"
)

type env struct {
	server   *httptest.Server
	accounts *service.AccountServiceImpl
}

// newEnv assembles the full router against an in-memory store, the same
// way cmd/server does.
func newEnv(t *testing.T) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	authService := service.NewAuthService(store, store.Accounts(), store.SecurityAlerts(), tokens, logger)
	accountService := service.NewAccountService(store, store.Accounts(), store.FraudReports(), logger)
	transactionService := service.NewTransactionService(store, store.Accounts(), store.Transactions(), authService, logger)
	fraudService := service.NewFraudService(store, store.FraudReports(), store.Accounts(), logger)
	alertService := service.NewAlertService(store.SecurityAlerts(), store.Accounts(), logger)

	authHandler := NewAuthHandler(authService, logger)
	accountHandler := NewAccountHandler(accountService, logger)
	transactionHandler := NewTransactionHandler(transactionService, logger)
	fraudHandler := NewFraudHandler(fraudService, logger)
	alertHandler := NewAlertHandler(alertService, logger)

	router := mux.NewRouter()
	authHandler.RegisterPublicRoutes(router)

	api := router.NewRoute().Subrouter()
	api.Use(Authenticate(tokens))
	authHandler.RegisterRoutes(api)
	accountHandler.RegisterRoutes(api)
	transactionHandler.RegisterRoutes(api)
	fraudHandler.RegisterRoutes(api)

	operator := api.NewRoute().Subrouter()
	operator.Use(RequireRole(models.RoleOperator, models.RoleAdmin))
	accountHandler.RegisterOperatorRoutes(operator)
	transactionHandler.RegisterOperatorRoutes(operator)
	alertHandler.RegisterAdminRoutes(operator)

	admin := api.NewRoute().Subrouter()
	admin.Use(RequireRole(models.RoleAdmin))
	fraudHandler.RegisterAdminRoutes(admin)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &env{server: server, accounts: accountService}
}

func (e *env) seed(t *testing.T, email, pin string, role models.Role, balance int64) *models.Account {
	t.Helper()

	account, err := e.accounts.Create(context.Background(), &models.CreateAccountRequest{
		Email:          email,
		Password:       "Secret@2024",
		PIN:            pin,
		Role:           role,
		Name:           "Seed " + email,
		InitialBalance: decimal.NewFromInt(balance),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return account
}

// doJSON sends a JSON request, asserts the status code and decodes the
// response body into out when it is non-nil.
func (e *env) doJSON(t *testing.T, method, path, token string, body any, wantCode int, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantCode {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d (body %s)", method, path, resp.StatusCode, wantCode, raw)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
}

func (e *env) login(t *testing.T, email string) string {
	t.Helper()

	var resp models.LoginResponse
	e.doJSON(t, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email:    email,
		Password: "Secret@2024",
	}, http.StatusOK, &resp)
	return resp.Token
}

func TestLoginAndProtectedRoutes(t *testing.T) {
	e := newEnv(t)
	account := e.seed(t, "alice@digipesa.com", "1234", models.RoleCustomer, 1000)

	// Wrong password is rejected with 401.
	e.doJSON(t, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email:    "alice@digipesa.com",
		Password: "WrongPass1",
	}, http.StatusUnauthorized, nil)

	token := e.login(t, "alice@digipesa.com")

	// Protected routes reject missing and garbage tokens.
	e.doJSON(t, http.MethodGet, "/accounts/"+account.ID, "", nil, http.StatusUnauthorized, nil)
	e.doJSON(t, http.MethodGet, "/accounts/"+account.ID, "garbage", nil, http.StatusUnauthorized, nil)

	var got models.AccountResponse
	e.doJSON(t, http.MethodGet, "/accounts/"+account.ID, token, nil, http.StatusOK, &got)
	if got.ID != account.ID {
		t.Fatalf("account ID = %s, want %s", got.ID, account.ID)
	}
	if !got.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("balance = %s, want 1000", got.Balance)
	}
}

func TestRoleEnforcement(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "alice@digipesa.com", "1234", models.RoleCustomer, 0)
	e.seed(t, "op@digipesa.com", "9876", models.RoleOperator, 0)
	e.seed(t, "admin@digipesa.com", "5678", models.RoleAdmin, 0)

	customerToken := e.login(t, "alice@digipesa.com")
	operatorToken := e.login(t, "op@digipesa.com")
	adminToken := e.login(t, "admin@digipesa.com")

	// Operator routes: customers get 403.
	e.doJSON(t, http.MethodGet, "/accounts", customerToken, nil, http.StatusForbidden, nil)
	e.doJSON(t, http.MethodGet, "/accounts", operatorToken, nil, http.StatusOK, nil)

	// Admin routes: even operators get 403.
	e.doJSON(t, http.MethodGet, "/fraud/reports", operatorToken, nil, http.StatusForbidden, nil)
	e.doJSON(t, http.MethodGet, "/fraud/reports", adminToken, nil, http.StatusOK, nil)
}

func TestAssistedDepositOverHTTP(t *testing.T) {
	e := newEnv(t)
	customer := e.seed(t, "alice@digipesa.com", "1234", models.RoleCustomer, 1000)
	e.seed(t, "op@digipesa.com", "9876", models.RoleOperator, 0)
	operatorToken := e.login(t, "op@digipesa.com")

	var created models.TransactionResponse
	e.doJSON(t, http.MethodPost, "/operator/deposits", operatorToken, models.AssistedTransactionRequest{
		CustomerEmail: "alice@digipesa.com",
		CustomerPIN:   "1234",
		OperatorPIN:   "9876",
		Amount:        decimal.NewFromInt(500),
	}, http.StatusCreated, &created)

	if created.Type != models.TransactionDeposit {
		t.Fatalf("type = %s, want deposit", created.Type)
	}
	if !created.Amount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("amount = %s, want 500", created.Amount)
	}

	var got models.AccountResponse
	customerToken := e.login(t, "alice@digipesa.com")
	e.doJSON(t, http.MethodGet, "/accounts/"+customer.ID, customerToken, nil, http.StatusOK, &got)
	if !got.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("balance = %s, want 1500", got.Balance)
	}

	// A wrong customer PIN maps to 401 and leaves the balance alone.
	e.doJSON(t, http.MethodPost, "/operator/deposits", operatorToken, models.AssistedTransactionRequest{
		CustomerEmail: "alice@digipesa.com",
		CustomerPIN:   "0000",
		OperatorPIN:   "9876",
		Amount:        decimal.NewFromInt(500),
	}, http.StatusUnauthorized, nil)
}

func TestWithdrawalErrorMapping(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "alice@digipesa.com", "1234", models.RoleCustomer, 100)
	e.seed(t, "op@digipesa.com", "9876", models.RoleOperator, 0)
	operatorToken := e.login(t, "op@digipesa.com")

	// Insufficient funds maps to 422.
	e.doJSON(t, http.MethodPost, "/operator/withdrawals", operatorToken, models.AssistedTransactionRequest{
		CustomerEmail: "alice@digipesa.com",
		CustomerPIN:   "1234",
		OperatorPIN:   "9876",
		Amount:        decimal.NewFromInt(500),
	}, http.StatusUnprocessableEntity, nil)

	// Unknown customer maps to 404.
	e.doJSON(t, http.MethodPost, "/operator/withdrawals", operatorToken, models.AssistedTransactionRequest{
		CustomerEmail: "ghost@digipesa.com",
		CustomerPIN:   "1234",
		OperatorPIN:   "9876",
		Amount:        decimal.NewFromInt(10),
	}, http.StatusNotFound, nil)
}

func TestFraudFlagFlowOverHTTP(t *testing.T) {
	e := newEnv(t)
	target := e.seed(t, "mallory@digipesa.com", "1234", models.RoleCustomer, 5000)
	e.seed(t, "op@digipesa.com", "9876", models.RoleOperator, 0)
	e.seed(t, "admin@digipesa.com", "5678", models.RoleAdmin, 0)

	operatorToken := e.login(t, "op@digipesa.com")
	adminToken := e.login(t, "admin@digipesa.com")

	var report models.FraudReport
	e.doJSON(t, http.MethodPost, "/fraud/reports", operatorToken, models.SubmitFraudReportRequest{
		TargetAccountID: target.ID,
		Description:     "large transfers to new counterparties",
		RiskLevel:       models.RiskHigh,
		Amount:          decimal.NewFromInt(4000),
	}, http.StatusCreated, &report)
	if report.Status != models.ReportPending {
		t.Fatalf("report status = %s, want pending", report.Status)
	}

	var flagged models.FlagReportResponse
	e.doJSON(t, http.MethodPost, "/fraud/reports/"+report.ID+"/flag", adminToken, models.ReviewReportRequest{
		Reason: "confirmed fraudulent activity",
	}, http.StatusOK, &flagged)
	if flagged.Report.Status != models.ReportFlagged {
		t.Fatalf("report status = %s, want flagged", flagged.Report.Status)
	}
	if flagged.Account.Status != models.AccountFlagged {
		t.Fatalf("account status = %s, want flagged", flagged.Account.Status)
	}
	if flagged.Account.FlagExpiry == nil {
		t.Fatal("expected a flag expiry")
	}

	// Flagging the same report again conflicts.
	e.doJSON(t, http.MethodPost, "/fraud/reports/"+report.ID+"/flag", adminToken, models.ReviewReportRequest{
		Reason: "again",
	}, http.StatusConflict, nil)
}

func TestCreateAccountOverHTTP(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "op@digipesa.com", "9876", models.RoleOperator, 0)
	operatorToken := e.login(t, "op@digipesa.com")

	var created models.AccountResponse
	e.doJSON(t, http.MethodPost, "/accounts", operatorToken, models.CreateAccountRequest{
		Email:    "new@digipesa.com",
		Password: "Secret@2024",
		PIN:      "4321",
		Name:     "New Customer",
	}, http.StatusCreated, &created)
	if created.ID == "" {
		t.Fatal("expected a generated ID")
	}

	// Validation failures map to 400.
	e.doJSON(t, http.MethodPost, "/accounts", operatorToken, models.CreateAccountRequest{
		Email:    "bad@digipesa.com",
		Password: "Secret@2024",
		PIN:      "12a4",
		Name:     "Bad PIN",
	}, http.StatusBadRequest, nil)

	// Duplicate emails map to 409.
	e.doJSON(t, http.MethodPost, "/accounts", operatorToken, models.CreateAccountRequest{
		Email:    "new@digipesa.com",
		Password: "Secret@2024",
		PIN:      "4321",
		Name:     "Duplicate",
	}, http.StatusConflict, nil)
}
