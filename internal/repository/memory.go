package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oumalord/DIGIPESA/internal/errors"
	"github.com/oumalord/DIGIPESA/internal/models"
)

// MemoryStore is a thread-safe in-memory implementation of every
// repository interface plus TxBeginner. A transaction holds the store
// lock for its whole duration and snapshots state on begin, so Rollback
// restores exactly the pre-transaction view. Used in tests and for
// running the server without Postgres.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[string]*models.Account
	emailIndex   map[string]string
	transactions []*models.Transaction
	reports      map[string]*models.FraudReport
	reportOrder  []string
	alerts       map[string]*models.SecurityAlert
	alertOrder   []string

	snapshot *memorySnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]*models.Account),
		emailIndex: make(map[string]string),
		reports:    make(map[string]*models.FraudReport),
		alerts:     make(map[string]*models.SecurityAlert),
	}
}

type memorySnapshot struct {
	accounts     map[string]*models.Account
	emailIndex   map[string]string
	transactions []*models.Transaction
	reports      map[string]*models.FraudReport
	reportOrder  []string
	alerts       map[string]*models.SecurityAlert
	alertOrder   []string
}

type memoryTx struct {
	store *MemoryStore
	done  bool
}

func (s *MemoryStore) BeginTx(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	s.snapshot = s.takeSnapshot()
	return &memoryTx{store: s}, nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.snapshot = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.restoreSnapshot(t.store.snapshot)
	t.store.snapshot = nil
	t.store.mu.Unlock()
	return nil
}

func (s *MemoryStore) takeSnapshot() *memorySnapshot {
	snap := &memorySnapshot{
		accounts:     make(map[string]*models.Account, len(s.accounts)),
		emailIndex:   make(map[string]string, len(s.emailIndex)),
		transactions: make([]*models.Transaction, len(s.transactions)),
		reports:      make(map[string]*models.FraudReport, len(s.reports)),
		reportOrder:  append([]string(nil), s.reportOrder...),
		alerts:       make(map[string]*models.SecurityAlert, len(s.alerts)),
		alertOrder:   append([]string(nil), s.alertOrder...),
	}
	for id, a := range s.accounts {
		cp := *a
		snap.accounts[id] = &cp
	}
	for email, id := range s.emailIndex {
		snap.emailIndex[email] = id
	}
	copy(snap.transactions, s.transactions)
	for id, r := range s.reports {
		cp := *r
		snap.reports[id] = &cp
	}
	for id, a := range s.alerts {
		cp := *a
		snap.alerts[id] = &cp
	}
	return snap
}

func (s *MemoryStore) restoreSnapshot(snap *memorySnapshot) {
	if snap == nil {
		return
	}
	s.accounts = snap.accounts
	s.emailIndex = snap.emailIndex
	s.transactions = snap.transactions
	s.reports = snap.reports
	s.reportOrder = snap.reportOrder
	s.alerts = snap.alerts
	s.alertOrder = snap.alertOrder
}

// acquire locks the store unless the caller already holds the lock
// through an open transaction.
func (s *MemoryStore) acquire(tx Tx) func() {
	if mt, ok := tx.(*memoryTx); ok && mt != nil && !mt.done {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// --- AccountRepository ---

func (s *MemoryStore) Create(ctx context.Context, tx Tx, account *models.Account) error {
	defer s.acquire(tx)()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if _, exists := s.emailIndex[account.Email]; exists {
		return errors.ErrDuplicateEmail
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	cp := *account
	s.accounts[account.ID] = &cp
	s.emailIndex[account.Email] = account.ID
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Account, error) {
	defer s.acquire(nil)()
	return s.getAccount(id)
}

func (s *MemoryStore) GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.Account, error) {
	defer s.acquire(tx)()
	return s.getAccount(id)
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	defer s.acquire(nil)()
	return s.getAccountByEmail(email)
}

func (s *MemoryStore) GetByEmailForUpdate(ctx context.Context, tx Tx, email string) (*models.Account, error) {
	defer s.acquire(tx)()
	return s.getAccountByEmail(email)
}

func (s *MemoryStore) getAccount(id string) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) getAccountByEmail(email string) (*models.Account, error) {
	id, ok := s.emailIndex[email]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return s.getAccount(id)
}

func (s *MemoryStore) Update(ctx context.Context, tx Tx, account *models.Account) error {
	defer s.acquire(tx)()

	existing, ok := s.accounts[account.ID]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.UpdatedAt = time.Now()
	cp := *account
	cp.Email = existing.Email
	cp.CreatedAt = existing.CreatedAt
	s.accounts[account.ID] = &cp
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*models.Account, error) {
	defer s.acquire(nil)()

	out := make([]*models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status models.AccountStatus) ([]*models.Account, error) {
	defer s.acquire(nil)()

	var out []*models.Account
	for _, a := range s.accounts {
		if a.Status == status {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- TransactionRepository ---

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx Tx, transaction *models.Transaction) error {
	defer s.acquire(tx)()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now()
	}
	cp := *transaction
	s.transactions = append(s.transactions, &cp)
	return nil
}

func (s *MemoryStore) GetTransactionByID(ctx context.Context, id string) (*models.Transaction, error) {
	defer s.acquire(nil)()

	for _, t := range s.transactions {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, errors.ErrTransactionNotFound
}

func (s *MemoryStore) ListTransactionsByAccountID(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	defer s.acquire(nil)()

	var out []*models.Transaction
	// Newest first, matching the Postgres ordering.
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].AccountID == accountID {
			cp := *s.transactions[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- FraudReportRepository ---

func (s *MemoryStore) CreateFraudReport(ctx context.Context, tx Tx, report *models.FraudReport) error {
	defer s.acquire(tx)()

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	cp := *report
	s.reports[report.ID] = &cp
	s.reportOrder = append(s.reportOrder, report.ID)
	return nil
}

func (s *MemoryStore) GetFraudReportByID(ctx context.Context, id string) (*models.FraudReport, error) {
	defer s.acquire(nil)()
	return s.getReport(id)
}

func (s *MemoryStore) GetFraudReportByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.FraudReport, error) {
	defer s.acquire(tx)()
	return s.getReport(id)
}

func (s *MemoryStore) getReport(id string) (*models.FraudReport, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, errors.ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) UpdateFraudReport(ctx context.Context, tx Tx, report *models.FraudReport) error {
	defer s.acquire(tx)()

	if _, ok := s.reports[report.ID]; !ok {
		return errors.ErrReportNotFound
	}
	cp := *report
	s.reports[report.ID] = &cp
	return nil
}

func (s *MemoryStore) ListFraudReports(ctx context.Context) ([]*models.FraudReport, error) {
	defer s.acquire(nil)()

	out := make([]*models.FraudReport, 0, len(s.reportOrder))
	for i := len(s.reportOrder) - 1; i >= 0; i-- {
		cp := *s.reports[s.reportOrder[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) ListFraudReportsByTargetAccount(ctx context.Context, accountID string) ([]*models.FraudReport, error) {
	defer s.acquire(nil)()

	var out []*models.FraudReport
	for i := len(s.reportOrder) - 1; i >= 0; i-- {
		r := s.reports[s.reportOrder[i]]
		if r.TargetAccountID == accountID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- SecurityAlertRepository ---

func (s *MemoryStore) CreateSecurityAlert(ctx context.Context, tx Tx, alert *models.SecurityAlert) error {
	defer s.acquire(tx)()

	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	cp := *alert
	s.alerts[alert.ID] = &cp
	s.alertOrder = append(s.alertOrder, alert.ID)
	return nil
}

func (s *MemoryStore) GetSecurityAlertByID(ctx context.Context, id string) (*models.SecurityAlert, error) {
	defer s.acquire(nil)()

	a, ok := s.alerts[id]
	if !ok {
		return nil, errors.ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) UpdateSecurityAlert(ctx context.Context, tx Tx, alert *models.SecurityAlert) error {
	defer s.acquire(tx)()

	if _, ok := s.alerts[alert.ID]; !ok {
		return errors.ErrAlertNotFound
	}
	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

func (s *MemoryStore) ListSecurityAlerts(ctx context.Context) ([]*models.SecurityAlert, error) {
	defer s.acquire(nil)()

	out := make([]*models.SecurityAlert, 0, len(s.alertOrder))
	for i := len(s.alertOrder) - 1; i >= 0; i-- {
		cp := *s.alerts[s.alertOrder[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) ListActiveSecurityAlerts(ctx context.Context) ([]*models.SecurityAlert, error) {
	defer s.acquire(nil)()

	var out []*models.SecurityAlert
	for i := len(s.alertOrder) - 1; i >= 0; i-- {
		a := s.alerts[s.alertOrder[i]]
		if a.Status == models.AlertActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Adapters exposing the MemoryStore under the per-entity repository
// interfaces with their canonical method names.

type memoryAccounts struct{ *MemoryStore }
type memoryTransactions struct{ *MemoryStore }
type memoryReports struct{ *MemoryStore }
type memoryAlerts struct{ *MemoryStore }

func (s *MemoryStore) Accounts() AccountRepository { return memoryAccounts{s} }

func (s *MemoryStore) Transactions() TransactionRepository { return memoryTransactions{s} }

func (m memoryTransactions) Create(ctx context.Context, tx Tx, t *models.Transaction) error {
	return m.CreateTransaction(ctx, tx, t)
}

func (m memoryTransactions) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	return m.GetTransactionByID(ctx, id)
}

func (m memoryTransactions) ListByAccountID(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	return m.ListTransactionsByAccountID(ctx, accountID)
}

func (s *MemoryStore) FraudReports() FraudReportRepository { return memoryReports{s} }

func (m memoryReports) Create(ctx context.Context, tx Tx, r *models.FraudReport) error {
	return m.CreateFraudReport(ctx, tx, r)
}

func (m memoryReports) GetByID(ctx context.Context, id string) (*models.FraudReport, error) {
	return m.GetFraudReportByID(ctx, id)
}

func (m memoryReports) GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.FraudReport, error) {
	return m.GetFraudReportByIDForUpdate(ctx, tx, id)
}

func (m memoryReports) Update(ctx context.Context, tx Tx, r *models.FraudReport) error {
	return m.UpdateFraudReport(ctx, tx, r)
}

func (m memoryReports) List(ctx context.Context) ([]*models.FraudReport, error) {
	return m.ListFraudReports(ctx)
}

func (m memoryReports) ListByTargetAccount(ctx context.Context, accountID string) ([]*models.FraudReport, error) {
	return m.ListFraudReportsByTargetAccount(ctx, accountID)
}

func (s *MemoryStore) SecurityAlerts() SecurityAlertRepository { return memoryAlerts{s} }

func (m memoryAlerts) Create(ctx context.Context, tx Tx, a *models.SecurityAlert) error {
	return m.CreateSecurityAlert(ctx, tx, a)
}

func (m memoryAlerts) GetByID(ctx context.Context, id string) (*models.SecurityAlert, error) {
	return m.GetSecurityAlertByID(ctx, id)
}

func (m memoryAlerts) Update(ctx context.Context, tx Tx, a *models.SecurityAlert) error {
	return m.UpdateSecurityAlert(ctx, tx, a)
}

func (m memoryAlerts) List(ctx context.Context) ([]*models.SecurityAlert, error) {
	return m.ListSecurityAlerts(ctx)
}

func (m memoryAlerts) ListActive(ctx context.Context) ([]*models.SecurityAlert, error) {
	return m.ListActiveSecurityAlerts(ctx)
}
