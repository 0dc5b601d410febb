package service

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
)

func (e *testEnv) newReport(t *testing.T, reporterID, targetID string, risk models.RiskLevel) *models.FraudReport {
	t.Helper()

	report, err := e.fraud.Submit(context.Background(), &models.SubmitFraudReportRequest{
		ReporterID:      reporterID,
		TargetAccountID: targetID,
		Description:     "suspicious transfers overnight",
		RiskLevel:       risk,
		Amount:          decimal.NewFromInt(2500),
	})
	if err != nil {
		t.Fatalf("submit report: %v", err)
	}
	return report
}

func TestSubmitReport(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.newAccount(t, "op@digipesa.com", "Secret@2024", "9876", models.RoleOperator, 0)
	target := env.newAccount(t, "mallory@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 5000)

	report := env.newReport(t, reporter.ID, target.ID, models.RiskHigh)
	if report.ID == "" {
		t.Fatal("expected a generated report ID")
	}
	if report.Status != models.ReportPending {
		t.Fatalf("status = %s, want pending", report.Status)
	}
	if report.ReporterRole != models.RoleOperator {
		t.Fatalf("reporter role = %s, want operator", report.ReporterRole)
	}
	if report.TargetAccountID != target.ID {
		t.Fatalf("target = %s, want %s", report.TargetAccountID, target.ID)
	}
}

func TestSubmitReportValidation(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.newAccount(t, "op@digipesa.com", "Secret@2024", "9876", models.RoleOperator, 0)
	target := env.newAccount(t, "mallory@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 5000)

	tests := []struct {
		name string
		req  models.SubmitFraudReportRequest
	}{
		{"missing reporter", models.SubmitFraudReportRequest{TargetAccountID: target.ID, Description: "x", RiskLevel: models.RiskLow}},
		{"missing target", models.SubmitFraudReportRequest{ReporterID: reporter.ID, Description: "x", RiskLevel: models.RiskLow}},
		{"missing description", models.SubmitFraudReportRequest{ReporterID: reporter.ID, TargetAccountID: target.ID, RiskLevel: models.RiskLow}},
		{"bad risk level", models.SubmitFraudReportRequest{ReporterID: reporter.ID, TargetAccountID: target.ID, Description: "x", RiskLevel: models.RiskLevel("EXTREME")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.fraud.Submit(context.Background(), &tt.req)
			if !errors.IsValidationError(err) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}

	_, err := env.fraud.Submit(context.Background(), &models.SubmitFraudReportRequest{
		ReporterID:      reporter.ID,
		TargetAccountID: "missing",
		Description:     "x",
		RiskLevel:       models.RiskLow,
	})
	if !errors.IsNotFound(err) {
		t.Fatalf("unknown target: want not-found, got %v", err)
	}
}

func TestReportLifecycle(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.newAccount(t, "op@digipesa.com", "Secret@2024", "9876", models.RoleOperator, 0)
	target := env.newAccount(t, "mallory@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 5000)
	admin := env.newAccount(t, "admin@digipesa.com", "Secret@2024", "5678", models.RoleAdmin, 0)

	report := env.newReport(t, reporter.ID, target.ID, models.RiskMedium)

	investigating, err := env.fraud.BeginInvestigation(context.Background(), report.ID, admin.ID)
	if err != nil {
		t.Fatalf("begin investigation: %v", err)
	}
	if investigating.Status != models.ReportInvestigating {
		t.Fatalf("status = %s, want investigating", investigating.Status)
	}
	if investigating.ReviewerID == nil || *investigating.ReviewerID != admin.ID {
		t.Fatalf("reviewer = %v, want %s", investigating.ReviewerID, admin.ID)
	}

	// Pending-only transitions reject a second attempt.
	_, err = env.fraud.BeginInvestigation(context.Background(), report.ID, admin.ID)
	if !stderrors.Is(err, errors.ErrInvalidReportState) {
		t.Fatalf("want ErrInvalidReportState, got %v", err)
	}

	resolved, err := env.fraud.Resolve(context.Background(), report.ID, admin.ID, "Customer contacted, activity confirmed legitimate")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != models.ReportResolved {
		t.Fatalf("status = %s, want resolved", resolved.Status)
	}
	if resolved.ActionTaken == nil || *resolved.ActionTaken == "" {
		t.Fatal("expected action taken to be recorded")
	}
	if resolved.ReviewedAt == nil {
		t.Fatal("expected review timestamp")
	}

	_, err = env.fraud.Resolve(context.Background(), report.ID, admin.ID, "again")
	if !stderrors.Is(err, errors.ErrInvalidReportState) {
		t.Fatalf("double resolve: want ErrInvalidReportState, got %v", err)
	}
}

func TestResolveRequiresAction(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.newAccount(t, "op@digipesa.com", "Secret@2024", "9876", models.RoleOperator, 0)
	target := env.newAccount(t, "mallory@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 5000)
	admin := env.newAccount(t, "admin@digipesa.com", "Secret@2024", "5678", models.RoleAdmin, 0)

	report := env.newReport(t, reporter.ID, target.ID, models.RiskMedium)
	if _, err := env.fraud.BeginInvestigation(context.Background(), report.ID, admin.ID); err != nil {
		t.Fatal(err)
	}

	_, err := env.fraud.Resolve(context.Background(), report.ID, admin.ID, "")
	if !errors.IsValidationError(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestFlagFromReport(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.newAccount(t, "op@digipesa.com", "Secret@2024", "9876", models.RoleOperator, 0)
	target := env.newAccount(t, "mallory@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 5000)
	admin := env.newAccount(t, "admin@digipesa.com", "Secret@2024", "5678", models.RoleAdmin, 0)

	report := env.newReport(t, reporter.ID, target.ID, models.RiskCritical)

	before := time.Now()
	flaggedReport, flaggedAccount, err := env.fraud.FlagFromReport(context.Background(), report.ID, admin.ID, "confirmed fraudulent transfers")
	if err != nil {
		t.Fatalf("flag from report: %v", err)
	}
	after := time.Now()

	if flaggedReport.Status != models.ReportFlagged {
		t.Fatalf("report status = %s, want flagged", flaggedReport.Status)
	}
	if flaggedReport.ReviewerID == nil || *flaggedReport.ReviewerID != admin.ID {
		t.Fatalf("reviewer = %v, want %s", flaggedReport.ReviewerID, admin.ID)
	}
	if flaggedReport.ActionTaken == nil || !strings.Contains(*flaggedReport.ActionTaken, "flagged for 12 hours") {
		t.Fatalf("action taken = %v", flaggedReport.ActionTaken)
	}

	if flaggedAccount.Status != models.AccountFlagged {
		t.Fatalf("account status = %s, want flagged", flaggedAccount.Status)
	}
	if flaggedAccount.FlagExpiry == nil {
		t.Fatal("expected a flag expiry")
	}
	expiry := *flaggedAccount.FlagExpiry
	if expiry.Before(before.Add(models.FlagDuration)) || expiry.After(after.Add(models.FlagDuration)) {
		t.Fatalf("flag expiry = %s, want about 12h from now", expiry)
	}
	if flaggedAccount.FlagIssuer == nil || *flaggedAccount.FlagIssuer != admin.ID {
		t.Fatalf("flag issuer = %v, want %s", flaggedAccount.FlagIssuer, admin.ID)
	}

	// Both writes survived the commit.
	storedReport, err := env.fraud.Get(context.Background(), report.ID)
	if err != nil {
		t.Fatal(err)
	}
	if storedReport.Status != models.ReportFlagged {
		t.Fatalf("stored report status = %s, want flagged", storedReport.Status)
	}
	storedAccount, err := env.accounts.Get(context.Background(), target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if storedAccount.Status != models.AccountFlagged {
		t.Fatalf("stored account status = %s, want flagged", storedAccount.Status)
	}
}

func TestFlagFromReportOnlyOncePerReport(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.newAccount(t, "op@digipesa.com", "Secret@2024", "9876", models.RoleOperator, 0)
	target := env.newAccount(t, "mallory@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 5000)
	admin := env.newAccount(t, "admin@digipesa.com", "Secret@2024", "5678", models.RoleAdmin, 0)

	report := env.newReport(t, reporter.ID, target.ID, models.RiskHigh)
	if _, _, err := env.fraud.FlagFromReport(context.Background(), report.ID, admin.ID, "confirmed"); err != nil {
		t.Fatal(err)
	}

	_, _, err := env.fraud.FlagFromReport(context.Background(), report.ID, admin.ID, "again")
	if !stderrors.Is(err, errors.ErrInvalidReportState) {
		t.Fatalf("want ErrInvalidReportState, got %v", err)
	}
}

func TestFlagFromReportUnknownReport(t *testing.T) {
	env := newTestEnv(t)
	admin := env.newAccount(t, "admin@digipesa.com", "Secret@2024", "5678", models.RoleAdmin, 0)

	_, _, err := env.fraud.FlagFromReport(context.Background(), "missing", admin.ID, "reason")
	if !errors.IsNotFound(err) {
		t.Fatalf("want not-found, got %v", err)
	}
}

func TestListReportsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.newAccount(t, "op@digipesa.com", "Secret@2024", "9876", models.RoleOperator, 0)
	target := env.newAccount(t, "mallory@digipesa.com", "Secret@2024", "1234", models.RoleCustomer, 5000)

	first := env.newReport(t, reporter.ID, target.ID, models.RiskLow)
	second := env.newReport(t, reporter.ID, target.ID, models.RiskHigh)

	reports, err := env.fraud.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].ID != second.ID || reports[1].ID != first.ID {
		t.Fatalf("order = [%s %s], want newest first", reports[0].ID, reports[1].ID)
	}
}
