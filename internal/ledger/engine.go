// Package ledger moves money between two accounts. A transfer either commits
// the debit, the credit and its history record together or changes nothing.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/baharkarakas/tpay-mfs/internal/metrics"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/repository"
)

// Verifier checks a plaintext password against a stored hash.
type Verifier interface {
	Verify(plain, hash string) error
}

type Options struct {
	Policy         Policy
	MaxAttempts    int
	RecordFailures bool
	Backoff        time.Duration
	Logger         *slog.Logger
}

type Engine struct {
	store repository.Store
	pw    Verifier
	opts  Options
	log   *slog.Logger
}

func NewEngine(store repository.Store, pw Verifier, opts Options) *Engine {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, pw: pw, opts: opts, log: log.With("component", "ledger")}
}

// Request is a validated transfer order. Amount is in whole currency units.
type Request struct {
	Kind           models.TransactionType
	SourceID       string
	Destination    string // phone number
	Amount         int64
	Password       string
	IdempotencyKey string
}

// RequiredRole is the role a destination must hold for the transfer kind.
func RequiredRole(kind models.TransactionType) models.Role {
	if kind == models.TxnSend {
		return models.RoleUser
	}
	return models.RoleAgent
}

// Transfer validates and executes req. Sends and cash-outs commit with status
// successful; a cash-in is recorded as pending and moves no money until
// SettleCashIn approves it.
func (e *Engine) Transfer(ctx context.Context, req Request) (models.Transaction, error) {
	rec, err := e.retry(ctx, func() (models.Transaction, error) { return e.attempt(ctx, req) })
	if err != nil {
		metrics.TransfersFailed.WithLabelValues(string(req.Kind), Reason(err)).Inc()
		return models.Transaction{}, err
	}
	metrics.TransfersTotal.WithLabelValues(string(rec.Type), string(rec.Status)).Inc()
	return rec, nil
}

func (e *Engine) retry(ctx context.Context, op func() (models.Transaction, error)) (models.Transaction, error) {
	for attempt := 1; ; attempt++ {
		rec, err := op()
		if err == nil || !retryable(err) {
			return rec, err
		}
		if attempt >= e.opts.MaxAttempts {
			e.log.Warn("giving up after conflicts", "attempts", attempt, "err", err)
			return models.Transaction{}, fmt.Errorf("%w after %d attempts", ErrPersistenceConflict, attempt)
		}
		metrics.LedgerRetries.Inc()
		e.log.Debug("retrying after conflict", "attempt", attempt, "err", err)

		d := e.opts.Backoff << (attempt - 1)
		d += time.Duration(rand.Int63n(int64(e.opts.Backoff)))
		select {
		case <-ctx.Done():
			return models.Transaction{}, ctx.Err()
		case <-time.After(d):
		}
	}
}

func (e *Engine) attempt(ctx context.Context, req Request) (models.Transaction, error) {
	var key *string
	if req.IdempotencyKey != "" {
		key = &req.IdempotencyKey
		prev, err := e.store.Transactions().GetByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			if !sameRequest(prev, req) {
				return models.Transaction{}, ErrIdempotencyKeyReused
			}
			return prev, nil
		case !errors.Is(err, repository.ErrNotFound):
			return models.Transaction{}, e.storeErr(err)
		}
	}

	// 1. source
	src, err := e.store.Accounts().GetByID(ctx, req.SourceID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Transaction{}, ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, e.storeErr(err)
	}

	// 2. amount
	quote, err := e.opts.Policy.Quote(req.Kind, req.Amount)
	if err != nil {
		return e.reject(ctx, req, src, models.Party{}, err)
	}

	// 3. credential, re-checked even though the caller holds a token; only
	// active accounts may originate transfers
	if err := e.pw.Verify(req.Password, src.PasswordHash); err != nil || src.Status != models.StatusActive {
		return e.reject(ctx, req, src, models.Party{}, ErrUnauthorized)
	}

	// 4. destination
	dst, err := e.store.Accounts().GetByPhone(ctx, req.Destination)
	if errors.Is(err, repository.ErrNotFound) {
		return e.reject(ctx, req, src, models.Party{Phone: req.Destination},
			fmt.Errorf("%w: no account with that number", ErrInvalidDestination))
	}
	if err != nil {
		return models.Transaction{}, e.storeErr(err)
	}
	if want := RequiredRole(req.Kind); dst.Role != want {
		return e.reject(ctx, req, src, dst.Snapshot(),
			fmt.Errorf("%w: %s requires a %s account", ErrInvalidDestination, req.Kind, want))
	}
	if dst.ID == src.ID || dst.Status != models.StatusActive {
		return e.reject(ctx, req, src, dst.Snapshot(), ErrInvalidDestination)
	}

	rec := models.Transaction{
		Type:           req.Kind,
		Amount:         quote.Principal,
		Fee:            quote.Fee,
		Debited:        quote.Debit,
		Credited:       quote.Credit,
		Sender:         src.Snapshot(),
		Receiver:       dst.Snapshot(),
		IdempotencyKey: key,
	}

	// 7. cash-in waits for approval
	if req.Kind == models.TxnCashIn {
		rec.Status = models.TxnPending
		out, err := e.store.Transactions().Create(ctx, rec)
		return out, e.storeErr(err)
	}

	// 6. funds; the conditional debit below re-checks against the live row
	if src.Balance < quote.Debit {
		return e.reject(ctx, req, src, dst.Snapshot(), ErrInsufficientFunds)
	}

	rec.Status = models.TxnSuccessful
	var out models.Transaction
	err = e.store.WithTx(ctx, func(tx repository.Store) error {
		if err := move(ctx, tx, src.ID, dst.ID, quote.Debit, quote.Credit); err != nil {
			return err
		}
		out, err = tx.Transactions().Create(ctx, rec)
		return err
	})
	if errors.Is(err, repository.ErrInsufficientFunds) {
		return e.reject(ctx, req, src, dst.Snapshot(), ErrInsufficientFunds)
	}
	if err != nil {
		return models.Transaction{}, e.storeErr(err)
	}
	return out, nil
}

// sameRequest reports whether req is a retry of the request that wrote prev.
func sameRequest(prev models.Transaction, req Request) bool {
	if prev.Sender.ID != req.SourceID || prev.Type != req.Kind || prev.Receiver.Phone != req.Destination {
		return false
	}
	return req.Amount > 0 && req.Amount <= models.MaxUnits && prev.Amount == models.Units(req.Amount)
}

// move debits from and credits to inside tx, touching rows in id order so two
// opposite transfers cannot deadlock each other.
func move(ctx context.Context, tx repository.Store, from, to string, debit, credit models.Amount) error {
	type leg struct {
		id    string
		delta models.Amount
	}
	legs := [2]leg{{from, -debit}, {to, credit}}
	if to < from {
		legs[0], legs[1] = legs[1], legs[0]
	}
	for _, l := range legs {
		if _, err := tx.Accounts().ApplyBalanceDelta(ctx, l.id, l.delta, repository.AnyVersion); err != nil {
			return err
		}
	}
	return nil
}

// reject optionally appends a failed record, then returns cause.
func (e *Engine) reject(ctx context.Context, req Request, src models.Account, dst models.Party, cause error) (models.Transaction, error) {
	if !e.opts.RecordFailures {
		return models.Transaction{}, cause
	}
	rec := models.Transaction{
		Type:     req.Kind,
		Status:   models.TxnFailed,
		Sender:   src.Snapshot(),
		Receiver: dst,
		Reason:   Reason(cause),
	}
	if req.Amount > 0 {
		rec.Amount = models.Units(req.Amount)
	}
	if _, err := e.store.Transactions().Create(ctx, rec); err != nil {
		e.log.Error("record failed transfer", "source", src.ID, "reason", rec.Reason, "err", err)
	}
	return models.Transaction{}, cause
}

// storeErr keeps retryable and context errors visible and folds the rest
// into ErrInternal.
func (e *Engine) storeErr(err error) error {
	if err == nil || retryable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	e.log.Error("store failure", "err", err)
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// SettleCashIn approves or rejects a pending cash-in. Approval debits the agent
// and credits the requesting user atomically. Either way a settlement record
// pointing at the pending one is appended; the pending record stays as is.
func (e *Engine) SettleCashIn(ctx context.Context, pendingID string, approve bool, actorID string) (models.Transaction, error) {
	return e.retry(ctx, func() (models.Transaction, error) { return e.settle(ctx, pendingID, approve, actorID) })
}

func (e *Engine) settle(ctx context.Context, pendingID string, approve bool, actorID string) (models.Transaction, error) {
	p, err := e.store.Transactions().GetByID(ctx, pendingID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Transaction{}, ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, e.storeErr(err)
	}
	if p.Type != models.TxnCashIn || p.Status != models.TxnPending {
		return models.Transaction{}, ErrNotPending
	}
	if _, err := e.store.Transactions().GetSettlement(ctx, p.ID); err == nil {
		return models.Transaction{}, ErrAlreadySettled
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.Transaction{}, e.storeErr(err)
	}

	rec := models.Transaction{
		Type:      models.TxnCashIn,
		Amount:    p.Amount,
		Sender:    p.Sender,
		Receiver:  p.Receiver,
		SettlesID: &p.ID,
	}
	action := "cash_in_rejected"
	if approve {
		action = "cash_in_approved"
		rec.Status = models.TxnSuccessful
		rec.Debited, rec.Credited = p.Amount, p.Amount
	} else {
		rec.Status = models.TxnFailed
		rec.Reason = "rejected"
	}

	var out models.Transaction
	err = e.store.WithTx(ctx, func(tx repository.Store) error {
		if approve {
			// the agent hands over e-money for the cash it received
			if err := move(ctx, tx, p.Receiver.ID, p.Sender.ID, p.Amount, p.Amount); err != nil {
				return err
			}
		}
		out, err = tx.Transactions().Create(ctx, rec)
		if err != nil {
			return err
		}
		return tx.AuditLogs().Create(ctx, models.AuditLog{
			EntityType: "transaction",
			EntityID:   &p.ID,
			Action:     action,
			ActorID:    &actorID,
			Details:    map[string]any{"settlement_id": out.ID, "amount": p.Amount.String()},
		})
	})
	if errors.Is(err, repository.ErrInsufficientFunds) {
		return models.Transaction{}, fmt.Errorf("%w: agent balance too low", ErrInsufficientFunds)
	}
	if err != nil {
		return models.Transaction{}, e.storeErr(err)
	}
	metrics.TransfersTotal.WithLabelValues(string(out.Type), string(out.Status)).Inc()
	return out, nil
}
