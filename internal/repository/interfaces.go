package repository

import (
	"context"

	"github.com/baharkarakas/tpay-mfs/internal/models"
)

// AnyVersion disables the version check of ApplyBalanceDelta.
const AnyVersion int64 = 0

type Accounts interface {
	Create(ctx context.Context, a models.Account) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	GetByPhone(ctx context.Context, phone string) (models.Account, error)
	GetByEmailOrPhone(ctx context.Context, identifier string) (models.Account, error)
	List(ctx context.Context, limit, offset int) ([]models.Account, error)

	// ApplyBalanceDelta adds delta to the account's own stored balance. It fails
	// with ErrInsufficientFunds when the result would drop below zero and with
	// ErrConflict when expectedVersion != AnyVersion and the stored version differs.
	ApplyBalanceDelta(ctx context.Context, id string, delta models.Amount, expectedVersion int64) (models.Account, error)
	SetStatus(ctx context.Context, id string, status models.AccountStatus) (models.Account, error)
}

type Transactions interface {
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error)
	// GetSettlement returns the record that settled the given pending record.
	GetSettlement(ctx context.Context, pendingID string) (models.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Store groups the repositories. WithTx runs fn against a transactional view:
// every write done through it commits together or not at all.
type Store interface {
	Accounts() Accounts
	Transactions() Transactions
	AuditLogs() AuditLogs
	WithTx(ctx context.Context, fn func(Store) error) error
}
