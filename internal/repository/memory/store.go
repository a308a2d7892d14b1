// Package memory is an in-process repository.Store. Writers are serialized and
// WithTx works on a private copy that replaces the live state on commit, so
// readers never observe half of a transaction.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/google/uuid"
)

type data struct {
	accounts     map[string]models.Account
	accountOrder []string
	txns         map[string]models.Transaction
	txnOrder     []string
	audit        []models.AuditLog
}

func (d *data) clone() *data {
	c := &data{
		accounts:     make(map[string]models.Account, len(d.accounts)),
		accountOrder: append([]string(nil), d.accountOrder...),
		txns:         make(map[string]models.Transaction, len(d.txns)),
		txnOrder:     append([]string(nil), d.txnOrder...),
		audit:        append([]models.AuditLog(nil), d.audit...),
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.txns {
		c.txns[k] = v
	}
	return c
}

type db struct {
	mu   sync.RWMutex // guards cur
	txMu sync.Mutex   // one writer at a time
	cur  *data
}

type Store struct {
	db *db
	tx *data // set inside WithTx
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{db: &db{cur: &data{
		accounts: map[string]models.Account{},
		txns:     map[string]models.Transaction{},
	}}}
}

func (s *Store) Accounts() repository.Accounts         { return accounts{s} }
func (s *Store) Transactions() repository.Transactions { return transactions{s} }
func (s *Store) AuditLogs() repository.AuditLogs       { return auditLogs{s} }

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	work := s.db.cur.clone()
	s.db.mu.RUnlock()

	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	s.db.cur = work
	s.db.mu.Unlock()
	return nil
}

// AuditTrail returns a copy of the audit log, oldest first.
func (s *Store) AuditTrail() []models.AuditLog {
	var out []models.AuditLog
	_ = s.read(context.Background(), func(d *data) error {
		out = append(out, d.audit...)
		return nil
	})
	return out
}

func (s *Store) read(ctx context.Context, fn func(*data) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.cur)
}

// write applies a single mutation; fn must validate before it mutates.
func (s *Store) write(ctx context.Context, fn func(*data) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.cur)
}

type accounts struct{ s *Store }

func (r accounts) Create(ctx context.Context, a models.Account) (models.Account, error) {
	err := r.s.write(ctx, func(d *data) error {
		for _, ex := range d.accounts {
			if ex.Email == a.Email {
				return &repository.DuplicateError{Field: "email"}
			}
			if ex.Phone == a.Phone {
				return &repository.DuplicateError{Field: "phone"}
			}
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		a.OpeningBalance = a.Balance
		a.Version = 1
		a.CreatedAt, a.UpdatedAt = now, now
		d.accounts[a.ID] = a
		d.accountOrder = append(d.accountOrder, a.ID)
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}
	return a, nil
}

func (r accounts) find(ctx context.Context, match func(models.Account) bool) (models.Account, error) {
	var out models.Account
	err := r.s.read(ctx, func(d *data) error {
		for _, id := range d.accountOrder {
			if a := d.accounts[id]; match(a) {
				out = a
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r accounts) GetByID(ctx context.Context, id string) (models.Account, error) {
	var out models.Account
	err := r.s.read(ctx, func(d *data) error {
		a, ok := d.accounts[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (r accounts) GetByPhone(ctx context.Context, phone string) (models.Account, error) {
	return r.find(ctx, func(a models.Account) bool { return a.Phone == phone })
}

func (r accounts) GetByEmailOrPhone(ctx context.Context, identifier string) (models.Account, error) {
	email := strings.ToLower(identifier)
	return r.find(ctx, func(a models.Account) bool { return a.Email == email || a.Phone == identifier })
}

func (r accounts) List(ctx context.Context, limit, offset int) ([]models.Account, error) {
	var out []models.Account
	err := r.s.read(ctx, func(d *data) error {
		for i := offset; i < len(d.accountOrder) && len(out) < limit; i++ {
			out = append(out, d.accounts[d.accountOrder[i]])
		}
		return nil
	})
	return out, err
}

func (r accounts) ApplyBalanceDelta(ctx context.Context, id string, delta models.Amount, expectedVersion int64) (models.Account, error) {
	var out models.Account
	err := r.s.write(ctx, func(d *data) error {
		a, ok := d.accounts[id]
		if !ok {
			return repository.ErrNotFound
		}
		if expectedVersion != repository.AnyVersion && a.Version != expectedVersion {
			return repository.ErrConflict
		}
		if a.Balance+delta < 0 {
			return repository.ErrInsufficientFunds
		}
		a.Balance += delta
		a.Version++
		a.UpdatedAt = time.Now().UTC()
		d.accounts[id] = a
		out = a
		return nil
	})
	return out, err
}

func (r accounts) SetStatus(ctx context.Context, id string, status models.AccountStatus) (models.Account, error) {
	var out models.Account
	err := r.s.write(ctx, func(d *data) error {
		a, ok := d.accounts[id]
		if !ok {
			return repository.ErrNotFound
		}
		a.Status = status
		a.Version++
		a.UpdatedAt = time.Now().UTC()
		d.accounts[id] = a
		out = a
		return nil
	})
	return out, err
}

type transactions struct{ s *Store }

func (r transactions) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	err := r.s.write(ctx, func(d *data) error {
		for _, ex := range d.txns {
			if tx.IdempotencyKey != nil && ex.IdempotencyKey != nil && *ex.IdempotencyKey == *tx.IdempotencyKey {
				return &repository.DuplicateError{Field: "idempotency_key"}
			}
			if tx.SettlesID != nil && ex.SettlesID != nil && *ex.SettlesID == *tx.SettlesID {
				return &repository.DuplicateError{Field: "settles_id"}
			}
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		tx.CreatedAt = time.Now().UTC()
		d.txns[tx.ID] = tx
		d.txnOrder = append(d.txnOrder, tx.ID)
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

func (r transactions) find(ctx context.Context, match func(models.Transaction) bool) (models.Transaction, error) {
	var out models.Transaction
	err := r.s.read(ctx, func(d *data) error {
		for _, id := range d.txnOrder {
			if tx := d.txns[id]; match(tx) {
				out = tx
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r transactions) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return r.find(ctx, func(tx models.Transaction) bool { return tx.ID == id })
}

func (r transactions) GetByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error) {
	return r.find(ctx, func(tx models.Transaction) bool {
		return tx.IdempotencyKey != nil && *tx.IdempotencyKey == key
	})
}

func (r transactions) GetSettlement(ctx context.Context, pendingID string) (models.Transaction, error) {
	return r.find(ctx, func(tx models.Transaction) bool {
		return tx.SettlesID != nil && *tx.SettlesID == pendingID
	})
}

// ListByAccount returns newest first.
func (r transactions) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	var all []models.Transaction
	err := r.s.read(ctx, func(d *data) error {
		for _, id := range d.txnOrder {
			if tx := d.txns[id]; tx.Involves(accountID) {
				all = append(all, tx)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// txnOrder is oldest first; the stable sort keeps that for equal timestamps
	// before the reversal below.
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type auditLogs struct{ s *Store }

func (r auditLogs) Create(ctx context.Context, l models.AuditLog) error {
	return r.s.write(ctx, func(d *data) error {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		l.CreatedAt = time.Now().UTC()
		d.audit = append(d.audit, l)
		return nil
	})
}
