package handlers

import (
	"net/http"

	"github.com/baharkarakas/tpay-mfs/internal/api/httpx"
	"github.com/baharkarakas/tpay-mfs/internal/api/validate"
	"github.com/baharkarakas/tpay-mfs/internal/auth"
	"github.com/baharkarakas/tpay-mfs/internal/middleware"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/services"
)

type AuthHandler struct {
	Users *services.UserService
	TM    *auth.TokenManager
}

func NewAuthHandler(us *services.UserService, tm *auth.TokenManager) *AuthHandler {
	return &AuthHandler{Users: us, TM: tm}
}

type registerReq struct {
	DisplayName string               `json:"displayName" validate:"required,min=2,max=80"`
	Phone       string               `json:"phone" validate:"required,phone"`
	Email       string               `json:"email" validate:"required,email"`
	Password    string               `json:"password" validate:"required,min=4,max=72"`
	Role        models.Role          `json:"role" validate:"omitempty,oneof=user agent"`
	Status      models.AccountStatus `json:"status" validate:"omitempty,oneof=pending active"`
	Balance     models.Amount        `json:"balance" validate:"gte=0"`
}

type tokenResp struct {
	auth.TokenPair
	Account models.Account `json:"account"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErr(w, r, err)
		return
	}
	a, pair, err := h.Users.Register(r.Context(), services.RegisterInput{
		Name:     req.DisplayName,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Status:   req.Status,
		Balance:  req.Balance,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{TokenPair: pair, Account: a})
}

type loginReq struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErr(w, r, err)
		return
	}
	a, pair, err := h.Users.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{TokenPair: pair, Account: a})
}

// VerifyToken resolves a bearer access token to its account.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		writeErr(w, r, auth.ErrInvalidToken)
		return
	}
	claims, err := h.TM.ParseAccess(token)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	a, err := h.Users.Me(r.Context(), claims.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErr(w, r, err)
		return
	}
	pair, err := h.Users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}
