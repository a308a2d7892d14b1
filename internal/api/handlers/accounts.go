package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/tpay-mfs/internal/api/httpx"
	"github.com/baharkarakas/tpay-mfs/internal/middleware"
	"github.com/baharkarakas/tpay-mfs/internal/services"
)

type AccountHandler struct {
	Balances *services.BalanceService
	Txns     *services.TransactionService
}

func NewAccountHandler(bs *services.BalanceService, ts *services.TransactionService) *AccountHandler {
	return &AccountHandler{Balances: bs, Txns: ts}
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	b, err := h.Balances.Current(r.Context(), u.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	list, err := h.Txns.History(r.Context(), u.UserID, httpx.QueryInt(r, "limit", 20), httpx.QueryInt(r, "offset", 0))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *AccountHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	rec, err := h.Txns.GetByID(r.Context(), services.Viewer{ID: u.UserID, Role: u.Role}, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}
