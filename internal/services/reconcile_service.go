package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/tpay-mfs/internal/metrics"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	repo "github.com/baharkarakas/tpay-mfs/internal/repository"
)

const reconcilePage = 200

type Mismatch struct {
	AccountID string        `json:"account_id"`
	Stored    models.Amount `json:"stored"`
	Expected  models.Amount `json:"expected"`
}

type ReconcileReport struct {
	Checked    int        `json:"checked"`
	Mismatches []Mismatch `json:"mismatches"`
}

// ReconcileService replays each account's history from its opening balance
// and blocks accounts whose stored balance disagrees.
type ReconcileService struct {
	store repo.Store
	log   *slog.Logger
}

func NewReconcileService(store repo.Store, log *slog.Logger) *ReconcileService {
	if log == nil {
		log = slog.Default()
	}
	return &ReconcileService{store: store, log: log.With("component", "reconcile")}
}

func (s *ReconcileService) Run(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{Mismatches: []Mismatch{}}
	for offset := 0; ; offset += reconcilePage {
		accounts, err := s.store.Accounts().List(ctx, reconcilePage, offset)
		if err != nil {
			return report, err
		}
		for _, a := range accounts {
			m, ok, err := s.check(ctx, a.ID)
			if err != nil {
				return report, err
			}
			report.Checked++
			if ok {
				continue
			}
			report.Mismatches = append(report.Mismatches, m)
			if err := s.flag(ctx, m); err != nil {
				return report, err
			}
		}
		if len(accounts) < reconcilePage {
			break
		}
	}
	s.log.Info("reconcile finished", "checked", report.Checked, "mismatches", len(report.Mismatches))
	return report, nil
}

// check reads the balance and the history in one transaction so a transfer
// committing in between cannot show up as a mismatch.
func (s *ReconcileService) check(ctx context.Context, id string) (Mismatch, bool, error) {
	var m Mismatch
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		a, err := tx.Accounts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		expected := a.OpeningBalance
		for offset := 0; ; offset += reconcilePage {
			page, err := tx.Transactions().ListByAccount(ctx, id, reconcilePage, offset)
			if err != nil {
				return err
			}
			for _, t := range page {
				for _, p := range t.Postings() {
					if p.AccountID == id {
						expected += p.Delta
					}
				}
			}
			if len(page) < reconcilePage {
				break
			}
		}
		m = Mismatch{AccountID: id, Stored: a.Balance, Expected: expected}
		return nil
	})
	return m, err == nil && m.Stored == m.Expected, err
}

func (s *ReconcileService) flag(ctx context.Context, m Mismatch) error {
	metrics.ReconcileMismatches.Inc()
	s.log.Error("balance does not match history",
		"account_id", m.AccountID, "stored", m.Stored.String(), "expected", m.Expected.String())
	return s.store.WithTx(ctx, func(tx repo.Store) error {
		if _, err := tx.Accounts().SetStatus(ctx, m.AccountID, models.StatusBlocked); err != nil {
			return err
		}
		id := m.AccountID
		return tx.AuditLogs().Create(ctx, models.AuditLog{
			EntityType: "account",
			EntityID:   &id,
			Action:     "reconcile_mismatch",
			Details: map[string]any{
				"stored":   m.Stored.String(),
				"expected": m.Expected.String(),
			},
		})
	})
}
