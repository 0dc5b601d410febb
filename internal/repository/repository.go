// Package repository defines the storage interfaces for accounts, the
// transaction ledger, fraud reports and security alerts, together with a
// Postgres implementation and an in-memory implementation used in tests.
//
// Mutations that must land together (balance check + debit + ledger
// append, report flag + account flag) run inside a Tx obtained from a
// TxBeginner, so services stay independent of the storage technology.
package repository

import "context"

// Tx is an in-progress atomic unit of work against the store. Commit
// makes all writes performed through it visible; Rollback discards them.
type Tx interface {
	Commit() error
	Rollback() error
}

// TxBeginner starts atomic units of work.
type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}
