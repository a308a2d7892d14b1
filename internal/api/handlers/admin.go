package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/tpay-mfs/internal/api/httpx"
	"github.com/baharkarakas/tpay-mfs/internal/api/validate"
	"github.com/baharkarakas/tpay-mfs/internal/middleware"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/services"
)

type AdminHandler struct {
	Users     *services.UserService
	Txns      *services.TransactionService
	Reconcile *services.ReconcileService
}

func NewAdminHandler(us *services.UserService, ts *services.TransactionService, rs *services.ReconcileService) *AdminHandler {
	return &AdminHandler{Users: us, Txns: ts, Reconcile: rs}
}

func (h *AdminHandler) ApproveCashIn(w http.ResponseWriter, r *http.Request) { h.settle(w, r, true) }

func (h *AdminHandler) RejectCashIn(w http.ResponseWriter, r *http.Request) { h.settle(w, r, false) }

func (h *AdminHandler) settle(w http.ResponseWriter, r *http.Request, approve bool) {
	u, _ := middleware.FromCtx(r.Context())
	rec, err := h.Txns.Settle(r.Context(), chi.URLParam(r, "id"), approve, u.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

type statusReq struct {
	Status models.AccountStatus `json:"status" validate:"required,oneof=pending active blocked"`
}

func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.FromCtx(r.Context())
	var req statusReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErr(w, r, err)
		return
	}
	a, err := h.Users.SetStatus(r.Context(), u.UserID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *AdminHandler) RunReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reconcile.Run(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}
