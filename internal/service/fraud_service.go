package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/repository"
)

type FraudService interface {
	Submit(ctx context.Context, req *models.SubmitFraudReportRequest) (*models.FraudReport, error)
	Get(ctx context.Context, id string) (*models.FraudReport, error)
	List(ctx context.Context) ([]*models.FraudReport, error)
	BeginInvestigation(ctx context.Context, reportID, reviewerID string) (*models.FraudReport, error)
	Resolve(ctx context.Context, reportID, reviewerID, actionTaken string) (*models.FraudReport, error)
	FlagFromReport(ctx context.Context, reportID, issuerID, reason string) (*models.FraudReport, *models.Account, error)
}

type FraudServiceImpl struct {
	txBeginner  repository.TxBeginner
	fraudRepo   repository.FraudReportRepository
	accountRepo repository.AccountRepository
	logger      *slog.Logger
}

func NewFraudService(txBeginner repository.TxBeginner, fraudRepo repository.FraudReportRepository, accountRepo repository.AccountRepository, logger *slog.Logger) *FraudServiceImpl {
	return &FraudServiceImpl{
		txBeginner:  txBeginner,
		fraudRepo:   fraudRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// Submit files a new report in pending state. The target is an explicit
// account id and must resolve; free-text account references are not
// accepted.
func (s *FraudServiceImpl) Submit(ctx context.Context, req *models.SubmitFraudReportRequest) (*models.FraudReport, error) {
	if req.ReporterID == "" {
		return nil, errors.NewValidationError("reporter_id", "must be non-empty")
	}
	if req.TargetAccountID == "" {
		return nil, errors.NewValidationError("target_account_id", "must be non-empty")
	}
	if req.Description == "" {
		return nil, errors.NewValidationError("description", "must be non-empty")
	}
	if !req.RiskLevel.Valid() {
		return nil, errors.NewValidationError("risk_level", "must be LOW, MEDIUM, HIGH or CRITICAL")
	}
	if req.Amount.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}

	reporter, err := s.accountRepo.GetByID(ctx, req.ReporterID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("reporter account: %w", err)
		}
		return nil, err
	}
	if _, err := s.accountRepo.GetByID(ctx, req.TargetAccountID); err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("target account: %w", err)
		}
		return nil, err
	}

	report := &models.FraudReport{
		ReporterID:           req.ReporterID,
		ReporterRole:         reporter.Role,
		TargetAccountID:      req.TargetAccountID,
		RelatedTransactionID: req.RelatedTransactionID,
		Amount:               req.Amount,
		Description:          req.Description,
		RiskLevel:            req.RiskLevel,
		Status:               models.ReportPending,
	}
	if err := s.fraudRepo.Create(ctx, nil, report); err != nil {
		s.logger.Error("failed to create fraud report",
			"reporter_id", req.ReporterID,
			"target_account_id", req.TargetAccountID,
			"error", err.Error(),
		)
		return nil, err
	}

	s.logger.Info("fraud report submitted",
		"report_id", report.ID,
		"target_account_id", report.TargetAccountID,
		"risk_level", report.RiskLevel,
	)
	return report, nil
}

func (s *FraudServiceImpl) Get(ctx context.Context, id string) (*models.FraudReport, error) {
	if id == "" {
		return nil, errors.ErrReportNotFound
	}
	return s.fraudRepo.GetByID(ctx, id)
}

func (s *FraudServiceImpl) List(ctx context.Context) ([]*models.FraudReport, error) {
	return s.fraudRepo.List(ctx)
}

// BeginInvestigation moves a pending report to investigating and records
// the reviewer.
func (s *FraudServiceImpl) BeginInvestigation(ctx context.Context, reportID, reviewerID string) (*models.FraudReport, error) {
	return s.transition(ctx, reportID, reviewerID, models.ReportPending, models.ReportInvestigating, nil)
}

// Resolve closes an investigation, recording the reviewer, timestamp and
// what was done.
func (s *FraudServiceImpl) Resolve(ctx context.Context, reportID, reviewerID, actionTaken string) (*models.FraudReport, error) {
	if actionTaken == "" {
		return nil, errors.NewValidationError("action_taken", "must be non-empty")
	}
	return s.transition(ctx, reportID, reviewerID, models.ReportInvestigating, models.ReportResolved, &actionTaken)
}

func (s *FraudServiceImpl) transition(ctx context.Context, reportID, reviewerID string, from, to models.ReportStatus, actionTaken *string) (*models.FraudReport, error) {
	if reviewerID == "" {
		return nil, errors.NewValidationError("reviewer_id", "must be non-empty")
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

	report, err := s.fraudRepo.GetByIDForUpdate(ctx, tx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != from {
		s.logger.Warn("invalid report transition",
			"report_id", reportID,
			"from", report.Status,
			"to", to,
		)
		return nil, errors.ErrInvalidReportState
	}

	now := time.Now()
	report.Status = to
	report.ReviewerID = &reviewerID
	report.ReviewedAt = &now
	if actionTaken != nil {
		report.ActionTaken = actionTaken
	}

	if err := s.fraudRepo.Update(ctx, tx, report); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransactionError("commit", err)
	}
	tx = nil

	s.logger.Info("fraud report transitioned",
		"report_id", reportID,
		"status", to,
		"reviewer_id", reviewerID,
	)
	return report, nil
}

// FlagFromReport closes a pending report as flagged and restricts the
// target account for 12 hours in the same transaction. Either both
// records change or neither does.
func (s *FraudServiceImpl) FlagFromReport(ctx context.Context, reportID, issuerID, reason string) (*models.FraudReport, *models.Account, error) {
	if issuerID == "" {
		return nil, nil, errors.NewValidationError("issuer_id", "must be non-empty")
	}
	if reason == "" {
		return nil, nil, errors.NewValidationError("reason", "must be non-empty")
	}

	tx, err := s.txBeginner.BeginTx(ctx)
	if err != nil {
		return nil, nil, errors.NewTransactionError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	report, err := s.fraudRepo.GetByIDForUpdate(ctx, tx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if report.Status != models.ReportPending {
		s.logger.Warn("flag attempted on non-pending report",
			"report_id", reportID,
			"status", report.Status,
		)
		return nil, nil, errors.ErrInvalidReportState
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, report.TargetAccountID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	expiry := now.Add(models.FlagDuration)
	account.Status = models.AccountFlagged
	account.FlagExpiry = &expiry
	account.FlagReason = &reason
	account.FlagIssuer = &issuerID
	if err := s.accountRepo.Update(ctx, tx, account); err != nil {
		return nil, nil, errors.NewTransactionError("flag account", err)
	}

	actionTaken := fmt.Sprintf("Account flagged for 12 hours - %s", reason)
	report.Status = models.ReportFlagged
	report.ReviewerID = &issuerID
	report.ReviewedAt = &now
	report.ActionTaken = &actionTaken
	if err := s.fraudRepo.Update(ctx, tx, report); err != nil {
		return nil, nil, errors.NewTransactionError("flag report", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, errors.NewTransactionError("commit", err)
	}
	tx = nil

	s.logger.Info("account flagged from report",
		"report_id", reportID,
		"account_id", account.ID,
		"issuer_id", issuerID,
		"flag_expiry", expiry,
	)
	return report, account, nil
}
