package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/tpay-mfs/internal/api/httpx"
	"github.com/baharkarakas/tpay-mfs/internal/api/validate"
	"github.com/baharkarakas/tpay-mfs/internal/auth"
	"github.com/baharkarakas/tpay-mfs/internal/ledger"
	"github.com/baharkarakas/tpay-mfs/internal/middleware"
	repo "github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/baharkarakas/tpay-mfs/internal/services"
)

// writeErr is the single place errors become HTTP responses.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs validate.Errs
		dup   *repo.DuplicateError
	)
	switch {
	case errors.As(err, &verrs):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid request", verrs)
	case errors.As(err, &dup):
		httpx.WriteError(w, http.StatusBadRequest, "duplicate", dup.Field+" already exists", nil)
	case errors.Is(err, services.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, ledger.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
	case errors.Is(err, auth.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token", nil)
	case errors.Is(err, services.ErrAccountBlocked):
		httpx.WriteError(w, http.StatusForbidden, "account_blocked", "account is blocked", nil)
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, ledger.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidDestination),
		errors.Is(err, ledger.ErrInsufficientFunds):
		httpx.WriteError(w, http.StatusBadRequest, ledger.Reason(err), err.Error(), nil)
	case errors.Is(err, ledger.ErrPersistenceConflict),
		errors.Is(err, ledger.ErrIdempotencyKeyReused),
		errors.Is(err, ledger.ErrNotPending),
		errors.Is(err, ledger.ErrAlreadySettled):
		httpx.WriteError(w, http.StatusConflict, ledger.Reason(err), err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "request timed out", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"err", err, "path", r.URL.Path, "request_id", middleware.RequestIDFrom(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func badBody(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed request body", err.Error())
}
