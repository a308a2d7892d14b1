package services

import (
	"context"
	"time"

	"github.com/baharkarakas/tpay-mfs/internal/models"
	repo "github.com/baharkarakas/tpay-mfs/internal/repository"
)

type BalanceService struct{ r repo.Accounts }

func NewBalanceService(r repo.Accounts) *BalanceService { return &BalanceService{r: r} }

type Balance struct {
	AccountID     string        `json:"account_id"`
	Amount        models.Amount `json:"amount"`
	LastUpdatedAt time.Time     `json:"last_updated_at"`
}

func (s *BalanceService) Current(ctx context.Context, accountID string) (Balance, error) {
	a, err := s.r.GetByID(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountID: a.ID, Amount: a.Balance, LastUpdatedAt: a.UpdatedAt}, nil
}
