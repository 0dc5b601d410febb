package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
)

type FraudReportRepository interface {
	Create(ctx context.Context, tx Tx, report *models.FraudReport) error
	GetByID(ctx context.Context, id string) (*models.FraudReport, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.FraudReport, error)
	Update(ctx context.Context, tx Tx, report *models.FraudReport) error
	List(ctx context.Context) ([]*models.FraudReport, error)
	ListByTargetAccount(ctx context.Context, accountID string) ([]*models.FraudReport, error)
}

const fraudReportColumns = `id, reporter_id, reporter_role, target_account_id, related_transaction_id,
	amount, description, risk_level, status, reviewer_id, reviewed_at, action_taken, created_at`

type PostgresFraudReportRepository struct {
	db *sql.DB
}

func NewFraudReportRepository(db *sql.DB) *PostgresFraudReportRepository {
	return &PostgresFraudReportRepository{db: db}
}

func (r *PostgresFraudReportRepository) Create(ctx context.Context, tx Tx, report *models.FraudReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}

	query := `INSERT INTO fraud_reports (id, reporter_id, reporter_role, target_account_id,
			related_transaction_id, amount, description, risk_level, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		RETURNING created_at`

	err := q(r.db, tx).QueryRowContext(ctx, query,
		report.ID,
		report.ReporterID,
		report.ReporterRole,
		report.TargetAccountID,
		nullString(report.RelatedTransactionID),
		report.Amount,
		report.Description,
		report.RiskLevel,
		report.Status,
	).Scan(&report.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create fraud report: %w", err)
	}
	return nil
}

func (r *PostgresFraudReportRepository) GetByID(ctx context.Context, id string) (*models.FraudReport, error) {
	query := `SELECT ` + fraudReportColumns + ` FROM fraud_reports WHERE id = $1`
	return r.scanOne(q(r.db, nil).QueryRowContext(ctx, query, id))
}

func (r *PostgresFraudReportRepository) GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.FraudReport, error) {
	query := `SELECT ` + fraudReportColumns + ` FROM fraud_reports WHERE id = $1 FOR UPDATE`
	return r.scanOne(q(r.db, tx).QueryRowContext(ctx, query, id))
}

func (r *PostgresFraudReportRepository) Update(ctx context.Context, tx Tx, report *models.FraudReport) error {
	query := `UPDATE fraud_reports
		SET status = $1, reviewer_id = $2, reviewed_at = $3, action_taken = $4
		WHERE id = $5`

	result, err := q(r.db, tx).ExecContext(ctx, query,
		report.Status,
		nullString(report.ReviewerID),
		nullTime(report.ReviewedAt),
		nullString(report.ActionTaken),
		report.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update fraud report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating fraud report: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrReportNotFound
	}
	return nil
}

func (r *PostgresFraudReportRepository) List(ctx context.Context) ([]*models.FraudReport, error) {
	query := `SELECT ` + fraudReportColumns + ` FROM fraud_reports ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud reports: %w", err)
	}
	return r.scanMany(rows)
}

func (r *PostgresFraudReportRepository) ListByTargetAccount(ctx context.Context, accountID string) ([]*models.FraudReport, error) {
	query := `SELECT ` + fraudReportColumns + ` FROM fraud_reports
		WHERE target_account_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud reports by target account: %w", err)
	}
	return r.scanMany(rows)
}

func (r *PostgresFraudReportRepository) scanOne(row *sql.Row) (*models.FraudReport, error) {
	report := &models.FraudReport{}
	var relatedTransactionID, reviewerID, actionTaken sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&report.ID, &report.ReporterID, &report.ReporterRole, &report.TargetAccountID,
		&relatedTransactionID, &report.Amount, &report.Description, &report.RiskLevel,
		&report.Status, &reviewerID, &reviewedAt, &actionTaken, &report.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get fraud report: %w", err)
	}

	report.RelatedTransactionID = stringPtr(relatedTransactionID)
	report.ReviewerID = stringPtr(reviewerID)
	report.ReviewedAt = timePtr(reviewedAt)
	report.ActionTaken = stringPtr(actionTaken)
	return report, nil
}

func (r *PostgresFraudReportRepository) scanMany(rows *sql.Rows) ([]*models.FraudReport, error) {
	defer rows.Close()

	var reports []*models.FraudReport
	for rows.Next() {
		report := &models.FraudReport{}
		var relatedTransactionID, reviewerID, actionTaken sql.NullString
		var reviewedAt sql.NullTime

		err := rows.Scan(
			&report.ID, &report.ReporterID, &report.ReporterRole, &report.TargetAccountID,
			&relatedTransactionID, &report.Amount, &report.Description, &report.RiskLevel,
			&report.Status, &reviewerID, &reviewedAt, &actionTaken, &report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fraud report: %w", err)
		}

		report.RelatedTransactionID = stringPtr(relatedTransactionID)
		report.ReviewerID = stringPtr(reviewerID)
		report.ReviewedAt = timePtr(reviewedAt)
		report.ActionTaken = stringPtr(actionTaken)
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over fraud reports: %w", err)
	}
	return reports, nil
}
