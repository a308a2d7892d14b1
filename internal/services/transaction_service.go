package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/baharkarakas/tpay-mfs/internal/ledger"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/redis"
	repo "github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/baharkarakas/tpay-mfs/internal/worker"
)

// EventPublisher is satisfied by *redis.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// RecordCache is satisfied by *redis.ViewCache[models.Transaction].
type RecordCache interface {
	Get(ctx context.Context, key string) (*models.Transaction, bool)
	Set(ctx context.Context, key string, value *models.Transaction)
}

// Viewer is the authenticated caller reading transaction history.
type Viewer struct {
	ID   string
	Role models.Role
}

type TransactionService struct {
	eng    *ledger.Engine
	txns   repo.Transactions
	wp     *worker.Pool
	events EventPublisher
	cache  RecordCache
	log    *slog.Logger
}

// NewTransactionService wires the ledger engine. wp, events and cache may be
// nil; committed records are then neither published nor cached.
func NewTransactionService(eng *ledger.Engine, txns repo.Transactions, wp *worker.Pool, events EventPublisher, cache RecordCache, log *slog.Logger) *TransactionService {
	if log == nil {
		log = slog.Default()
	}
	return &TransactionService{eng: eng, txns: txns, wp: wp, events: events, cache: cache, log: log}
}

func (s *TransactionService) Send(ctx context.Context, req ledger.Request) (models.Transaction, error) {
	req.Kind = models.TxnSend
	return s.transfer(ctx, req)
}

func (s *TransactionService) CashOut(ctx context.Context, req ledger.Request) (models.Transaction, error) {
	req.Kind = models.TxnCashOut
	return s.transfer(ctx, req)
}

func (s *TransactionService) CashIn(ctx context.Context, req ledger.Request) (models.Transaction, error) {
	req.Kind = models.TxnCashIn
	return s.transfer(ctx, req)
}

func (s *TransactionService) transfer(ctx context.Context, req ledger.Request) (models.Transaction, error) {
	rec, err := s.eng.Transfer(ctx, req)
	if err != nil {
		s.log.Info("transfer rejected", "type", req.Kind, "source", req.SourceID, "reason", ledger.Reason(err))
		return models.Transaction{}, err
	}
	s.log.Info("transfer recorded", "id", rec.ID, "type", rec.Type, "status", rec.Status, "amount", rec.Amount.String())
	s.afterCommit(rec)
	return rec, nil
}

func (s *TransactionService) Settle(ctx context.Context, pendingID string, approve bool, actorID string) (models.Transaction, error) {
	rec, err := s.eng.SettleCashIn(ctx, pendingID, approve, actorID)
	if err != nil {
		return models.Transaction{}, err
	}
	s.log.Info("cash-in settled", "pending_id", pendingID, "settlement_id", rec.ID, "status", rec.Status, "actor", actorID)
	s.afterCommit(rec)
	return rec, nil
}

// afterCommit fans a committed record out to the event stream and the read
// cache off the request path. A full queue drops the fan-out, never the record.
func (s *TransactionService) afterCommit(rec models.Transaction) {
	if s.wp == nil || (s.events == nil && s.cache == nil) {
		return
	}
	err := s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.cache != nil {
			s.cache.Set(ctx, rec.ID, &rec)
		}
		if s.events != nil {
			if err := s.events.Publish(ctx, redis.TransactionEventsStream, "transaction.created", rec); err != nil {
				s.log.Warn("publish transaction event", "id", rec.ID, "err", err)
			}
		}
	})
	if err != nil {
		s.log.Warn("post-commit fan-out skipped", "id", rec.ID, "err", err)
	}
}

// GetByID hides records the viewer is not a party to behind ErrNotFound,
// except for admins.
func (s *TransactionService) GetByID(ctx context.Context, v Viewer, id string) (models.Transaction, error) {
	var rec models.Transaction
	if cached, ok := s.lookupCache(ctx, id); ok {
		rec = *cached
	} else {
		var err error
		rec, err = s.txns.GetByID(ctx, id)
		if err != nil {
			return models.Transaction{}, err
		}
		if s.cache != nil {
			s.cache.Set(ctx, rec.ID, &rec)
		}
	}
	if v.Role != models.RoleAdmin && !rec.Involves(v.ID) {
		return models.Transaction{}, repo.ErrNotFound
	}
	return rec, nil
}

func (s *TransactionService) lookupCache(ctx context.Context, id string) (*models.Transaction, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, id)
}

const maxPageSize = 100

func (s *TransactionService) History(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.txns.ListByAccount(ctx, accountID, limit, offset)
	if errors.Is(err, repo.ErrNotFound) {
		return []models.Transaction{}, nil
	}
	if list == nil {
		list = []models.Transaction{}
	}
	return list, err
}
