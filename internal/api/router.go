package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/tpay-mfs/internal/api/handlers"
	"github.com/baharkarakas/tpay-mfs/internal/api/httpx"
	"github.com/baharkarakas/tpay-mfs/internal/auth"
	"github.com/baharkarakas/tpay-mfs/internal/config"
	"github.com/baharkarakas/tpay-mfs/internal/metrics"
	"github.com/baharkarakas/tpay-mfs/internal/middleware"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/services"
)

type RouterDeps struct {
	Cfg        config.Config
	TM         *auth.TokenManager
	UserSvc    *services.UserService
	BalanceSvc *services.BalanceService
	TxnSvc     *services.TransactionService
	Reconciler *services.ReconcileService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	authH := handlers.NewAuthHandler(d.UserSvc, d.TM)
	transferH := handlers.NewTransferHandler(d.TxnSvc)
	accountH := handlers.NewAccountHandler(d.BalanceSvc, d.TxnSvc)
	adminH := handlers.NewAdminHandler(d.UserSvc, d.TxnSvc, d.Reconciler)
	authMW := middleware.NewAuthMiddleware(d.TM)

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Post("/register", authH.Register)
	r.Post("/login", authH.Login)
	r.Post("/verify-token", authH.VerifyToken)
	r.Post("/auth/refresh", authH.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(authMW.Auth)

		r.Post("/send", transferH.Send)
		r.Post("/cashOut", transferH.CashOut)
		r.Post("/cashin", transferH.CashIn)

		r.Get("/me/balance", accountH.Balance)
		r.Get("/me/transactions", accountH.History)
		r.Get("/transactions/{id}", accountH.Transaction)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Post("/cashin/{id}/approve", adminH.ApproveCashIn)
			r.Post("/cashin/{id}/reject", adminH.RejectCashIn)
			r.Post("/accounts/{id}/status", adminH.SetStatus)
			r.Post("/reconcile", adminH.RunReconcile)
		})
	})

	return r
}
