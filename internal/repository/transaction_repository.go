package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
)

// TransactionRepository is the append-only ledger. Records are never
// updated or deleted once created.
type TransactionRepository interface {
	Create(ctx context.Context, tx Tx, transaction *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	ListByAccountID(ctx context.Context, accountID string) ([]*models.Transaction, error)
}

const transactionColumns = `id, account_id, amount, type, category, description, status,
	actor_id, counterparty_id, created_at`

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx Tx, transaction *models.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}

	query := `INSERT INTO transactions (id, account_id, amount, type, category, description, status,
			actor_id, counterparty_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)
		RETURNING created_at`

	err := q(r.db, tx).QueryRowContext(ctx, query,
		transaction.ID,
		transaction.AccountID,
		transaction.Amount,
		transaction.Type,
		transaction.Category,
		transaction.Description,
		transaction.Status,
		nullString(transaction.ActorID),
		nullString(transaction.CounterpartyID),
	).Scan(&transaction.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	transaction := &models.Transaction{}
	var actorID, counterpartyID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&transaction.ID, &transaction.AccountID, &transaction.Amount,
		&transaction.Type, &transaction.Category, &transaction.Description,
		&transaction.Status, &actorID, &counterpartyID, &transaction.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}

	transaction.ActorID = stringPtr(actorID)
	transaction.CounterpartyID = stringPtr(counterpartyID)
	return transaction, nil
}

func (r *PostgresTransactionRepository) ListByAccountID(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by account ID: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		transaction := &models.Transaction{}
		var actorID, counterpartyID sql.NullString
		err := rows.Scan(
			&transaction.ID, &transaction.AccountID, &transaction.Amount,
			&transaction.Type, &transaction.Category, &transaction.Description,
			&transaction.Status, &actorID, &counterpartyID, &transaction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transaction.ActorID = stringPtr(actorID)
		transaction.CounterpartyID = stringPtr(counterpartyID)
		transactions = append(transactions, transaction)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return transactions, nil
}
