package ledger

import (
	"errors"

	"github.com/baharkarakas/tpay-mfs/internal/repository"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnauthorized        = errors.New("invalid credentials")
	ErrInvalidDestination  = errors.New("invalid destination")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrPersistenceConflict = errors.New("persistence conflict")
	ErrInternal            = errors.New("internal error")

	ErrIdempotencyKeyReused = errors.New("idempotency key already used for a different request")
	ErrNotPending           = errors.New("transaction is not a pending cash-in")
	ErrAlreadySettled       = errors.New("transaction already settled")
)

// Reason is the short code stored on failed records and exported in metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidDestination):
		return "invalid_destination"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrPersistenceConflict):
		return "persistence_conflict"
	case errors.Is(err, ErrIdempotencyKeyReused):
		return "idempotency_key_reused"
	case errors.Is(err, ErrNotPending):
		return "not_pending"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	default:
		return "internal"
	}
}

// retryable reports store errors that a fresh attempt can get past.
func retryable(err error) bool {
	if errors.Is(err, repository.ErrConflict) {
		return true
	}
	var dup *repository.DuplicateError
	return errors.As(err, &dup) && (dup.Field == "idempotency_key" || dup.Field == "settles_id")
}
