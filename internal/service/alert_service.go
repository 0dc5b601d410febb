package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/repository"
)

type AlertService interface {
	Raise(ctx context.Context, req *models.RaiseAlertRequest) (*models.SecurityAlert, error)
	List(ctx context.Context, activeOnly bool) ([]*models.SecurityAlert, error)
	Update(ctx context.Context, id string, req *models.UpdateAlertRequest) (*models.SecurityAlert, error)
}

type AlertServiceImpl struct {
	alertRepo   repository.SecurityAlertRepository
	accountRepo repository.AccountRepository
	logger      *slog.Logger
}

func NewAlertService(alertRepo repository.SecurityAlertRepository, accountRepo repository.AccountRepository, logger *slog.Logger) *AlertServiceImpl {
	return &AlertServiceImpl{
		alertRepo:   alertRepo,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

func (s *AlertServiceImpl) Raise(ctx context.Context, req *models.RaiseAlertRequest) (*models.SecurityAlert, error) {
	if !req.AlertType.Valid() {
		return nil, errors.NewValidationError("alert_type", "unknown alert type")
	}
	if !req.Severity.Valid() {
		return nil, errors.NewValidationError("severity", "must be LOW, MEDIUM, HIGH or CRITICAL")
	}
	if req.Message == "" {
		return nil, errors.NewValidationError("message", "must be non-empty")
	}
	if _, err := s.accountRepo.GetByID(ctx, req.AccountID); err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("alerted account: %w", err)
		}
		return nil, err
	}

	alert := &models.SecurityAlert{
		AccountID: req.AccountID,
		AlertType: req.AlertType,
		Severity:  req.Severity,
		Message:   req.Message,
		Details:   req.Details,
		Status:    models.AlertActive,
	}
	if err := s.alertRepo.Create(ctx, nil, alert); err != nil {
		s.logger.Error("failed to create security alert",
			"account_id", req.AccountID,
			"error", err.Error(),
		)
		return nil, err
	}

	s.logger.Info("security alert raised",
		"alert_id", alert.ID,
		"account_id", alert.AccountID,
		"severity", alert.Severity,
	)
	return alert, nil
}

func (s *AlertServiceImpl) List(ctx context.Context, activeOnly bool) ([]*models.SecurityAlert, error) {
	if activeOnly {
		return s.alertRepo.ListActive(ctx)
	}
	return s.alertRepo.List(ctx)
}

func (s *AlertServiceImpl) Update(ctx context.Context, id string, req *models.UpdateAlertRequest) (*models.SecurityAlert, error) {
	switch req.Status {
	case models.AlertActive, models.AlertInvestigating, models.AlertResolved:
	default:
		return nil, errors.NewValidationError("status", "must be active, investigating or resolved")
	}

	alert, err := s.alertRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	alert.Status = req.Status
	if req.Assignee != nil {
		alert.Assignee = req.Assignee
	}
	if err := s.alertRepo.Update(ctx, nil, alert); err != nil {
		return nil, err
	}

	s.logger.Info("security alert updated", "alert_id", id, "status", req.Status)
	return alert, nil
}
