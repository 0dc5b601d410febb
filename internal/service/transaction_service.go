package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/repository"
)

// PINVerifier is the slice of AuthService the ledger needs: both PIN
// checks of the dual-authorization flow.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, accountID, pin string) (bool, error)
	VerifyOperatorPIN(ctx context.Context, operatorID, pin string) (bool, error)
}

type TransactionService interface {
	Record(ctx context.Context, req *models.RecordTransactionRequest, actorID *string) (*models.Transaction, error)
	Transfer(ctx context.Context, req *models.TransferRequest) (*models.Transaction, error)
	AssistedDeposit(ctx context.Context, req *models.AssistedTransactionRequest) (*models.Transaction, error)
	AssistedWithdrawal(ctx context.Context, req *models.AssistedTransactionRequest) (*models.Transaction, error)
	ListForAccount(ctx context.Context, accountID string) ([]*models.Transaction, error)
}

type TransactionServiceImpl struct {
	txBeginner      repository.TxBeginner
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	pins            PINVerifier
	logger          *slog.Logger
}

func NewTransactionService(txBeginner repository.TxBeginner, accountRepo repository.AccountRepository, transactionRepo repository.TransactionRepository, pins PINVerifier, logger *slog.Logger) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		txBeginner:      txBeginner,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		pins:            pins,
		logger:          logger,
	}
}

// Record appends a self-service ledger entry and applies its amount to
// the account balance. Debits that exceed the balance are rejected inside
// the same transaction that would apply them, so concurrent debits cannot
// overdraw.
func (s *TransactionServiceImpl) Record(ctx context.Context, req *models.RecordTransactionRequest, actorID *string) (*models.Transaction, error) {
	if req.AccountID == "" {
		return nil, errors.ErrInvalidAccountID
	}
	if req.Amount.IsZero() {
		return nil, errors.ErrInvalidAmount
	}
	if !req.Type.Valid() {
		return nil, errors.NewValidationError("type", "unknown transaction type")
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

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if req.Amount.IsNegative() && account.Balance.LessThan(req.Amount.Neg()) {
		s.logger.Warn("debit exceeds balance",
			"account_id", req.AccountID,
			"balance", account.Balance,
			"amount", req.Amount,
		)
		return nil, errors.ErrInsufficientFunds
	}

	account.Balance = account.Balance.Add(req.Amount)
	if err := s.accountRepo.Update(ctx, tx, account); err != nil {
		return nil, errors.NewTransactionError("update balance", err)
	}

	transaction := &models.Transaction{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Status:      models.TransactionApproved,
		ActorID:     actorID,
	}
	if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
		return nil, errors.NewTransactionError("create ledger record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransactionError("commit", err)
	}
	tx = nil

	return transaction, nil
}

// Transfer moves money between two accounts after the sender's PIN
// verifies. Debit, credit and both ledger entries land in one
// transaction.
func (s *TransactionServiceImpl) Transfer(ctx context.Context, req *models.TransferRequest) (*models.Transaction, error) {
	if req.SourceAccountID == "" {
		return nil, errors.ErrInvalidAccountID
	}
	if req.DestinationEmail == "" {
		return nil, errors.NewValidationError("destination_email", "must be non-empty")
	}
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	destination, err := s.accountRepo.GetByEmail(ctx, req.DestinationEmail)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("destination account: %w", err)
		}
		return nil, err
	}
	if destination.ID == req.SourceAccountID {
		return nil, errors.ErrSameAccount
	}

	source, err := s.accountRepo.GetByID(ctx, req.SourceAccountID)
	if err != nil {
		return nil, err
	}
	if source.Status != models.AccountActive {
		return nil, errors.ErrAccountRestricted
	}
	if source.Balance.LessThan(req.Amount) {
		return nil, errors.ErrInsufficientFunds
	}

	ok, err := s.pins.VerifyPIN(ctx, source.ID, req.PIN)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrInvalidPIN
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

	source, err = s.accountRepo.GetByIDForUpdate(ctx, tx, req.SourceAccountID)
	if err != nil {
		return nil, errors.NewTransactionError("get source account", err)
	}
	destination, err = s.accountRepo.GetByIDForUpdate(ctx, tx, destination.ID)
	if err != nil {
		return nil, errors.NewTransactionError("get destination account", err)
	}

	// Re-check under the lock: the pre-check above may be stale.
	if source.Status != models.AccountActive {
		return nil, errors.ErrAccountRestricted
	}
	if source.Balance.LessThan(req.Amount) {
		return nil, errors.ErrInsufficientFunds
	}

	source.Balance = source.Balance.Sub(req.Amount)
	destination.Balance = destination.Balance.Add(req.Amount)

	if err := s.accountRepo.Update(ctx, tx, source); err != nil {
		return nil, errors.NewTransactionError("update source balance", err)
	}
	if err := s.accountRepo.Update(ctx, tx, destination); err != nil {
		return nil, errors.NewTransactionError("update destination balance", err)
	}

	description := req.Description
	if description == "" {
		description = "Transfer to " + destination.Name
	}

	debit := &models.Transaction{
		AccountID:      source.ID,
		Amount:         req.Amount.Neg(),
		Type:           models.TransactionTransfer,
		Category:       "Transfer",
		Description:    description,
		Status:         models.TransactionApproved,
		CounterpartyID: &destination.ID,
	}
	if err := s.transactionRepo.Create(ctx, tx, debit); err != nil {
		return nil, errors.NewTransactionError("create debit record", err)
	}

	credit := &models.Transaction{
		AccountID:      destination.ID,
		Amount:         req.Amount,
		Type:           models.TransactionTransfer,
		Category:       "Transfer",
		Description:    "Transfer from " + source.Name,
		Status:         models.TransactionApproved,
		CounterpartyID: &source.ID,
	}
	if err := s.transactionRepo.Create(ctx, tx, credit); err != nil {
		return nil, errors.NewTransactionError("create credit record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransactionError("commit", err)
	}
	tx = nil

	s.logger.Info("transfer completed",
		"source_account_id", source.ID,
		"destination_account_id", destination.ID,
		"amount", req.Amount,
	)
	return debit, nil
}

// AssistedDeposit is the operator-assisted cash deposit. The order is
// fixed: resolve the customer, verify the customer PIN, verify the
// operator PIN, then mutate the balance and append the ledger record.
// Any failure before the mutation leaves no partial effect.
func (s *TransactionServiceImpl) AssistedDeposit(ctx context.Context, req *models.AssistedTransactionRequest) (*models.Transaction, error) {
	return s.assisted(ctx, req, false)
}

// AssistedWithdrawal is the operator-assisted cash withdrawal. Same flow
// as AssistedDeposit with a funds check before the PIN steps and again
// under the lock before the debit.
func (s *TransactionServiceImpl) AssistedWithdrawal(ctx context.Context, req *models.AssistedTransactionRequest) (*models.Transaction, error) {
	return s.assisted(ctx, req, true)
}

func (s *TransactionServiceImpl) assisted(ctx context.Context, req *models.AssistedTransactionRequest, withdrawal bool) (*models.Transaction, error) {
	if req.CustomerEmail == "" {
		return nil, errors.NewValidationError("customer_email", "must be non-empty")
	}
	if req.OperatorID == "" {
		return nil, errors.NewValidationError("operator_id", "must be non-empty")
	}
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	// Step 1: resolve the customer by email.
	customer, err := s.accountRepo.GetByEmail(ctx, req.CustomerEmail)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("customer account: %w", err)
		}
		return nil, err
	}
	if customer.Status != models.AccountActive {
		s.logger.Warn("assisted transaction against restricted account",
			"account_id", customer.ID,
			"status", customer.Status,
		)
		return nil, errors.ErrAccountRestricted
	}

	// Step 2: withdrawals must not exceed the balance.
	if withdrawal && customer.Balance.LessThan(req.Amount) {
		return nil, errors.ErrInsufficientFunds
	}

	// Step 3: customer PIN.
	ok, err := s.pins.VerifyPIN(ctx, customer.ID, req.CustomerPIN)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrInvalidPIN
	}

	// Step 4: operator PIN.
	ok, err = s.pins.VerifyOperatorPIN(ctx, req.OperatorID, req.OperatorPIN)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ErrInvalidPIN
	}

	// Steps 5 and 6: mutate the balance and append the ledger record
	// atomically.
	tx, err := s.txBeginner.BeginTx(ctx)
	if err != nil {
		return nil, errors.NewTransactionError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	customer, err = s.accountRepo.GetByIDForUpdate(ctx, tx, customer.ID)
	if err != nil {
		return nil, errors.NewTransactionError("get customer account", err)
	}
	if customer.Status != models.AccountActive {
		return nil, errors.ErrAccountRestricted
	}

	amount := req.Amount
	transactionType := models.TransactionDeposit
	category := "Cash Deposit"
	if withdrawal {
		if customer.Balance.LessThan(req.Amount) {
			return nil, errors.ErrInsufficientFunds
		}
		amount = req.Amount.Neg()
		transactionType = models.TransactionWithdrawal
		category = "Cash Withdrawal"
	}

	customer.Balance = customer.Balance.Add(amount)
	if err := s.accountRepo.Update(ctx, tx, customer); err != nil {
		return nil, errors.NewTransactionError("update customer balance", err)
	}

	description := req.Description
	if description == "" {
		description = category + " processed in branch"
	}
	operatorID := req.OperatorID
	transaction := &models.Transaction{
		AccountID:   customer.ID,
		Amount:      amount,
		Type:        transactionType,
		Category:    category,
		Description: description,
		Status:      models.TransactionApproved,
		ActorID:     &operatorID,
	}
	if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
		return nil, errors.NewTransactionError("create ledger record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewTransactionError("commit", err)
	}
	tx = nil

	s.logger.Info("assisted transaction completed",
		"account_id", customer.ID,
		"operator_id", req.OperatorID,
		"type", transactionType,
		"amount", amount,
	)
	return transaction, nil
}

// ListForAccount returns the account's ledger records, newest first.
func (s *TransactionServiceImpl) ListForAccount(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	if accountID == "" {
		return nil, errors.ErrInvalidAccountID
	}
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.transactionRepo.ListByAccountID(ctx, accountID)
}

// Total sums a slice of ledger records. Useful for reconciliation checks.
func Total(transactions []*models.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range transactions {
		sum = sum.Add(t.Amount)
	}
	return sum
}
