package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, tx Tx, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByEmailForUpdate(ctx context.Context, tx Tx, email string) (*models.Account, error)
	Update(ctx context.Context, tx Tx, account *models.Account) error
	List(ctx context.Context) ([]*models.Account, error)
	ListByStatus(ctx context.Context, status models.AccountStatus) ([]*models.Account, error)
}

const accountColumns = `id, email, password_hash, pin_hash, role, name, phone, national_id,
	credit_score, balance, status, flag_expiry, flag_reason, flag_issuer,
	pin_attempts, pin_locked_till, last_login, created_at, updated_at`

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, tx Tx, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	query := `INSERT INTO accounts (id, email, password_hash, pin_hash, role, name, phone, national_id,
			credit_score, balance, status, pin_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`

	err := q(r.db, tx).QueryRowContext(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.PINHash,
		account.Role,
		account.Name,
		account.Phone,
		account.NationalID,
		account.CreditScore,
		account.Balance,
		account.Status,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(q(r.db, nil).QueryRowContext(ctx, query, id))
}

func (r *PostgresAccountRepository) GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.scanOne(q(r.db, tx).QueryRowContext(ctx, query, id))
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(q(r.db, nil).QueryRowContext(ctx, query, email))
}

func (r *PostgresAccountRepository) GetByEmailForUpdate(ctx context.Context, tx Tx, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 FOR UPDATE`
	return r.scanOne(q(r.db, tx).QueryRowContext(ctx, query, email))
}

// Update persists the mutable portion of an account: balance, status and
// flag fields, PIN attempt counters and last login.
func (r *PostgresAccountRepository) Update(ctx context.Context, tx Tx, account *models.Account) error {
	query := `UPDATE accounts
		SET balance = $1, status = $2, flag_expiry = $3, flag_reason = $4, flag_issuer = $5,
			pin_attempts = $6, pin_locked_till = $7, last_login = $8, updated_at = CURRENT_TIMESTAMP
		WHERE id = $9`

	result, err := q(r.db, tx).ExecContext(ctx, query,
		account.Balance,
		account.Status,
		nullTime(account.FlagExpiry),
		nullString(account.FlagReason),
		nullString(account.FlagIssuer),
		account.PINAttempts,
		nullTime(account.PINLockedTill),
		nullTime(account.LastLogin),
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating account: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return r.scanMany(rows)
}

func (r *PostgresAccountRepository) ListByStatus(ctx context.Context, status models.AccountStatus) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by status: %w", err)
	}
	return r.scanMany(rows)
}

func (r *PostgresAccountRepository) scanOne(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var flagExpiry, pinLockedTill, lastLogin sql.NullTime
	var flagReason, flagIssuer sql.NullString

	err := row.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.PINHash,
		&account.Role, &account.Name, &account.Phone, &account.NationalID,
		&account.CreditScore, &account.Balance, &account.Status,
		&flagExpiry, &flagReason, &flagIssuer,
		&account.PINAttempts, &pinLockedTill, &lastLogin,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.FlagExpiry = timePtr(flagExpiry)
	account.FlagReason = stringPtr(flagReason)
	account.FlagIssuer = stringPtr(flagIssuer)
	account.PINLockedTill = timePtr(pinLockedTill)
	account.LastLogin = timePtr(lastLogin)
	return account, nil
}

func (r *PostgresAccountRepository) scanMany(rows *sql.Rows) ([]*models.Account, error) {
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		var flagExpiry, pinLockedTill, lastLogin sql.NullTime
		var flagReason, flagIssuer sql.NullString

		err := rows.Scan(
			&account.ID, &account.Email, &account.PasswordHash, &account.PINHash,
			&account.Role, &account.Name, &account.Phone, &account.NationalID,
			&account.CreditScore, &account.Balance, &account.Status,
			&flagExpiry, &flagReason, &flagIssuer,
			&account.PINAttempts, &pinLockedTill, &lastLogin,
			&account.CreatedAt, &account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		account.FlagExpiry = timePtr(flagExpiry)
		account.FlagReason = stringPtr(flagReason)
		account.FlagIssuer = stringPtr(flagIssuer)
		account.PINLockedTill = timePtr(pinLockedTill)
		account.LastLogin = timePtr(lastLogin)
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}
	return accounts, nil
}
