package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/tpay-mfs/internal/api"
	"github.com/baharkarakas/tpay-mfs/internal/auth"
	"github.com/baharkarakas/tpay-mfs/internal/config"
	"github.com/baharkarakas/tpay-mfs/internal/db"
	"github.com/baharkarakas/tpay-mfs/internal/ledger"
	"github.com/baharkarakas/tpay-mfs/internal/logger"
	"github.com/baharkarakas/tpay-mfs/internal/metrics"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/redis"
	repo "github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/baharkarakas/tpay-mfs/internal/repository/memory"
	"github.com/baharkarakas/tpay-mfs/internal/repository/postgres"
	"github.com/baharkarakas/tpay-mfs/internal/services"
	"github.com/baharkarakas/tpay-mfs/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	wp := worker.NewPool(cfg.Workers, 1024)
	defer wp.Stop()

	hasher := auth.NewHasher(0)
	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)

	eng := ledger.NewEngine(store, hasher, ledger.Options{
		Policy:         ledger.PolicyFromConfig(cfg.Ledger),
		MaxAttempts:    cfg.Ledger.MaxAttempts,
		RecordFailures: cfg.Ledger.RecordFailures,
		Logger:         log,
	})

	var (
		events services.EventPublisher
		cache  services.RecordCache
	)
	if cfg.RedisAddr != "" {
		rc, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// the ledger works without redis; only fan-out is lost
			log.Warn("redis unavailable, events and cache disabled", "err", err)
		} else {
			defer rc.Close()
			events = redis.NewPublisher(rc, 100000)
			cache = redis.NewViewCache[models.Transaction](rc, "txn:", time.Hour)
		}
	}

	userSvc := services.NewUserService(store, hasher, tm).WithEvents(wp, events, log)
	balanceSvc := services.NewBalanceService(store.Accounts())
	txnSvc := services.NewTransactionService(eng, store.Transactions(), wp, events, cache, log)
	reconciler := services.NewReconcileService(store, log)

	if err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPhone, cfg.AdminPassword); err != nil {
		return err
	}

	metrics.Init()
	go reconcileLoop(ctx, cfg.ReconcileInterval, wp, reconciler, log)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterDeps{
			Cfg:        cfg,
			TM:         tm,
			UserSvc:    userSvc,
			BalanceSvc: balanceSvc,
			TxnSvc:     txnSvc,
			Reconciler: reconciler,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "store", cfg.Store, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.Store, func(), error) {
	if cfg.Store == "memory" {
		log.Warn("using in-memory store; data is lost on exit")
		return memory.New(), func() {}, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return postgres.NewRepositories(pool), pool.Close, nil
}

// reconcileLoop queues a reconciliation pass every interval; a pass still in
// the queue is not duplicated.
func reconcileLoop(ctx context.Context, every time.Duration, wp *worker.Pool, rs *services.ReconcileService, log *slog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	busy := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		select {
		case busy <- struct{}{}:
		default:
			continue
		}
		err := wp.Submit(func() {
			defer func() { <-busy }()
			if _, err := rs.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("reconcile", "err", err)
			}
		})
		if err != nil {
			<-busy
			log.Warn("reconcile not queued", "err", err)
		}
	}
}
