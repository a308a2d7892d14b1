package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/baharkarakas/tpay-mfs/internal/api/httpx"
	"github.com/baharkarakas/tpay-mfs/internal/api/validate"
	"github.com/baharkarakas/tpay-mfs/internal/ledger"
	"github.com/baharkarakas/tpay-mfs/internal/middleware"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/services"
)

type TransferHandler struct {
	Txns *services.TransactionService
}

func NewTransferHandler(ts *services.TransactionService) *TransferHandler {
	return &TransferHandler{Txns: ts}
}

// Amount is kept as a raw number so fractions surface as an invalid amount
// rather than a decode error.
type transferReq struct {
	Destination string      `json:"destination" validate:"required,phone"`
	Amount      json.Number `json:"amount" validate:"required"`
	SourceID    string      `json:"sourceId"`
	Password    string      `json:"password" validate:"required"`
}

type transferFunc func(context.Context, ledger.Request) (models.Transaction, error)

func (h *TransferHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.Txns.Send)
}

func (h *TransferHandler) CashOut(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.Txns.CashOut)
}

func (h *TransferHandler) CashIn(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.Txns.CashIn)
}

func (h *TransferHandler) handle(w http.ResponseWriter, r *http.Request, do transferFunc) {
	u, _ := middleware.FromCtx(r.Context())
	var req transferReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.SourceID != "" && req.SourceID != u.UserID {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "sourceId does not match the token", nil)
		return
	}
	units, err := strconv.ParseInt(req.Amount.String(), 10, 64)
	if err != nil {
		writeErr(w, r, fmt.Errorf("%w: amount must be a whole number of units", ledger.ErrInvalidAmount))
		return
	}
	rec, err := do(r.Context(), ledger.Request{
		SourceID:       u.UserID,
		Destination:    req.Destination,
		Amount:         units,
		Password:       req.Password,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}
