package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/baharkarakas/tpay-mfs/internal/auth"
	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/redis"
	repo "github.com/baharkarakas/tpay-mfs/internal/repository"
	"github.com/baharkarakas/tpay-mfs/internal/worker"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBlocked     = errors.New("account blocked")
)

type UserService struct {
	store repo.Store
	pw    auth.Hasher
	tm    *auth.TokenManager
	// compared against on unknown identifiers so they cost as much as a wrong password
	dummyHash string

	wp     *worker.Pool
	events EventPublisher
	log    *slog.Logger
}

func NewUserService(store repo.Store, pw auth.Hasher, tm *auth.TokenManager) *UserService {
	dummy, _ := pw.Hash("not-a-real-password")
	return &UserService{store: store, pw: pw, tm: tm, dummyHash: dummy, log: slog.Default()}
}

// WithEvents publishes account status changes to events on wp.
func (s *UserService) WithEvents(wp *worker.Pool, events EventPublisher, log *slog.Logger) *UserService {
	s.wp, s.events = wp, events
	if log != nil {
		s.log = log
	}
	return s
}

type StatusChange struct {
	AccountID string               `json:"account_id"`
	Status    models.AccountStatus `json:"status"`
	ActorID   string               `json:"actor_id"`
}

type RegisterInput struct {
	Name     string
	Phone    string
	Email    string
	Password string
	Role     models.Role
	Status   models.AccountStatus
	Balance  models.Amount
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.Account, auth.TokenPair, error) {
	if in.Role == models.RoleAdmin {
		return models.Account{}, auth.TokenPair{}, fmt.Errorf("%w: admin accounts cannot self-register", ErrInvalidInput)
	}
	if in.Status == models.StatusBlocked {
		return models.Account{}, auth.TokenPair{}, fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}
	a := models.Account{Name: in.Name, Phone: in.Phone, Email: in.Email, Role: in.Role, Status: in.Status, Balance: in.Balance}
	if err := a.Validate(); err != nil {
		return models.Account{}, auth.TokenPair{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if a.Balance > models.MaxOpeningBalance {
		return models.Account{}, auth.TokenPair{}, fmt.Errorf("%w: opening balance too large", ErrInvalidInput)
	}
	if len(strings.TrimSpace(in.Password)) < 4 {
		return models.Account{}, auth.TokenPair{}, fmt.Errorf("%w: password too short", ErrInvalidInput)
	}
	hash, err := s.pw.Hash(in.Password)
	if err != nil {
		return models.Account{}, auth.TokenPair{}, err
	}
	a.PasswordHash = hash

	created, err := s.store.Accounts().Create(ctx, a)
	if err != nil {
		return models.Account{}, auth.TokenPair{}, err
	}
	pair, err := s.tm.GeneratePair(created.ID, string(created.Role))
	return created, pair, err
}

// Login never tells an unknown identifier apart from a wrong password.
func (s *UserService) Login(ctx context.Context, identifier, password string) (models.Account, auth.TokenPair, error) {
	a, err := s.store.Accounts().GetByEmailOrPhone(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, repo.ErrNotFound) {
		_ = s.pw.Verify(password, s.dummyHash)
		return models.Account{}, auth.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Account{}, auth.TokenPair{}, err
	}
	if err := s.pw.Verify(password, a.PasswordHash); err != nil {
		return models.Account{}, auth.TokenPair{}, ErrInvalidCredentials
	}
	if a.Status == models.StatusBlocked {
		return models.Account{}, auth.TokenPair{}, ErrAccountBlocked
	}
	pair, err := s.tm.GeneratePair(a.ID, string(a.Role))
	return a, pair, err
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	c, err := s.tm.ParseRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}
	a, err := s.store.Accounts().GetByID(ctx, c.UserID)
	if err != nil {
		return auth.TokenPair{}, auth.ErrInvalidToken
	}
	if a.Status == models.StatusBlocked {
		return auth.TokenPair{}, ErrAccountBlocked
	}
	return s.tm.GeneratePair(a.ID, string(a.Role))
}

func (s *UserService) Me(ctx context.Context, id string) (models.Account, error) {
	return s.store.Accounts().GetByID(ctx, id)
}

// SetStatus is an admin action and leaves an audit entry.
func (s *UserService) SetStatus(ctx context.Context, actorID, id string, status models.AccountStatus) (models.Account, error) {
	if !status.Valid() {
		return models.Account{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	var out models.Account
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		var err error
		out, err = tx.Accounts().SetStatus(ctx, id, status)
		if err != nil {
			return err
		}
		return tx.AuditLogs().Create(ctx, models.AuditLog{
			EntityType: "account",
			EntityID:   &id,
			Action:     "status_change",
			ActorID:    &actorID,
			Details:    map[string]any{"status": string(status)},
		})
	})
	if err != nil {
		return models.Account{}, err
	}
	s.publishStatus(StatusChange{AccountID: out.ID, Status: out.Status, ActorID: actorID})
	return out, nil
}

func (s *UserService) publishStatus(ev StatusChange) {
	if s.wp == nil || s.events == nil {
		return
	}
	err := s.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, redis.AccountEventsStream, "account.status_changed", ev); err != nil {
			s.log.Warn("publish account event", "account_id", ev.AccountID, "err", err)
		}
	})
	if err != nil {
		s.log.Warn("account event skipped", "account_id", ev.AccountID, "err", err)
	}
}

// EnsureAdmin creates the bootstrap admin account once.
func (s *UserService) EnsureAdmin(ctx context.Context, email, phone, password string) error {
	if email == "" || phone == "" || password == "" {
		return nil
	}
	if _, err := s.store.Accounts().GetByEmailOrPhone(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	hash, err := s.pw.Hash(password)
	if err != nil {
		return err
	}
	a := models.Account{Name: "admin", Phone: phone, Email: email, Role: models.RoleAdmin, Status: models.StatusActive}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	a.PasswordHash = hash
	_, err = s.store.Accounts().Create(ctx, a)
	return err
}
