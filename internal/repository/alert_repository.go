package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
)

type SecurityAlertRepository interface {
	Create(ctx context.Context, tx Tx, alert *models.SecurityAlert) error
	GetByID(ctx context.Context, id string) (*models.SecurityAlert, error)
	Update(ctx context.Context, tx Tx, alert *models.SecurityAlert) error
	List(ctx context.Context) ([]*models.SecurityAlert, error)
	ListActive(ctx context.Context) ([]*models.SecurityAlert, error)
}

const alertColumns = `id, account_id, alert_type, severity, message, details, status, assignee, created_at`

type PostgresSecurityAlertRepository struct {
	db *sql.DB
}

func NewSecurityAlertRepository(db *sql.DB) *PostgresSecurityAlertRepository {
	return &PostgresSecurityAlertRepository{db: db}
}

func (r *PostgresSecurityAlertRepository) Create(ctx context.Context, tx Tx, alert *models.SecurityAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	query := `INSERT INTO security_alerts (id, account_id, alert_type, severity, message, details, status, assignee, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
		RETURNING created_at`

	err := q(r.db, tx).QueryRowContext(ctx, query,
		alert.ID,
		alert.AccountID,
		alert.AlertType,
		alert.Severity,
		alert.Message,
		alert.Details,
		alert.Status,
		nullString(alert.Assignee),
	).Scan(&alert.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create security alert: %w", err)
	}
	return nil
}

func (r *PostgresSecurityAlertRepository) GetByID(ctx context.Context, id string) (*models.SecurityAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM security_alerts WHERE id = $1`

	alert := &models.SecurityAlert{}
	var assignee sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&alert.ID, &alert.AccountID, &alert.AlertType, &alert.Severity,
		&alert.Message, &alert.Details, &alert.Status, &assignee, &alert.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get security alert: %w", err)
	}
	alert.Assignee = stringPtr(assignee)
	return alert, nil
}

func (r *PostgresSecurityAlertRepository) Update(ctx context.Context, tx Tx, alert *models.SecurityAlert) error {
	query := `UPDATE security_alerts SET status = $1, assignee = $2 WHERE id = $3`

	result, err := q(r.db, tx).ExecContext(ctx, query, alert.Status, nullString(alert.Assignee), alert.ID)
	if err != nil {
		return fmt.Errorf("failed to update security alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating security alert: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrAlertNotFound
	}
	return nil
}

func (r *PostgresSecurityAlertRepository) List(ctx context.Context) ([]*models.SecurityAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM security_alerts ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list security alerts: %w", err)
	}
	return r.scanMany(rows)
}

func (r *PostgresSecurityAlertRepository) ListActive(ctx context.Context) ([]*models.SecurityAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM security_alerts WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, models.AlertActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active security alerts: %w", err)
	}
	return r.scanMany(rows)
}

func (r *PostgresSecurityAlertRepository) scanMany(rows *sql.Rows) ([]*models.SecurityAlert, error) {
	defer rows.Close()

	var alerts []*models.SecurityAlert
	for rows.Next() {
		alert := &models.SecurityAlert{}
		var assignee sql.NullString
		err := rows.Scan(
			&alert.ID, &alert.AccountID, &alert.AlertType, &alert.Severity,
			&alert.Message, &alert.Details, &alert.Status, &assignee, &alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security alert: %w", err)
		}
		alert.Assignee = stringPtr(assignee)
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over security alerts: %w", err)
	}
	return alerts, nil
}
