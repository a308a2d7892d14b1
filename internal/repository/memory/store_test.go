package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/baharkarakas/tpay-mfs/internal/models"
	"github.com/baharkarakas/tpay-mfs/internal/repository"
)

func newAccount(t *testing.T, s *Store, phone, email string, bal models.Amount) models.Account {
	t.Helper()
	a, err := s.Accounts().Create(context.Background(), models.Account{
		Name: "acc " + phone, Phone: phone, Email: email, Role: models.RoleUser,
		Status: models.StatusActive, Balance: bal,
	})
	if err != nil {
		t.Fatalf("Create(%s) err=%v", phone, err)
	}
	return a
}

func TestCreateDuplicate(t *testing.T) {
	s := New()
	newAccount(t, s, "0171", "a@x.io", 0)

	_, err := s.Accounts().Create(context.Background(), models.Account{Phone: "0171", Email: "b@x.io"})
	var dup *repository.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "phone" {
		t.Fatalf("want phone duplicate, got %v", err)
	}
	_, err = s.Accounts().Create(context.Background(), models.Account{Phone: "0172", Email: "a@x.io"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestLookups(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := newAccount(t, s, "0171", "a@x.io", models.Units(10))

	if got, err := s.Accounts().GetByPhone(ctx, "0171"); err != nil || got.ID != a.ID {
		t.Fatalf("GetByPhone=%v err=%v", got.ID, err)
	}
	if got, err := s.Accounts().GetByEmailOrPhone(ctx, "A@X.io"); err != nil || got.ID != a.ID {
		t.Fatalf("GetByEmailOrPhone(email)=%v err=%v", got.ID, err)
	}
	if _, err := s.Accounts().GetByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if a.OpeningBalance != models.Units(10) || a.Version != 1 {
		t.Fatalf("opening=%d version=%d", a.OpeningBalance, a.Version)
	}
}

func TestApplyBalanceDeltaGuards(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := newAccount(t, s, "0171", "a@x.io", 100)

	if _, err := s.Accounts().ApplyBalanceDelta(ctx, a.ID, -101, repository.AnyVersion); !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if _, err := s.Accounts().ApplyBalanceDelta(ctx, a.ID, -10, a.Version+1); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	got, err := s.Accounts().ApplyBalanceDelta(ctx, a.ID, -100, a.Version)
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance != 0 || got.Version != a.Version+1 {
		t.Fatalf("balance=%d version=%d", got.Balance, got.Version)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := newAccount(t, s, "0171", "a@x.io", 100)
	b := newAccount(t, s, "0172", "b@x.io", 0)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Accounts().ApplyBalanceDelta(ctx, a.ID, -50, repository.AnyVersion); err != nil {
			return err
		}
		// not visible outside the transaction yet
		if cur, _ := s.Accounts().GetByID(ctx, a.ID); cur.Balance != 100 {
			t.Errorf("uncommitted debit visible: %d", cur.Balance)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if cur, _ := s.Accounts().GetByID(ctx, a.ID); cur.Balance != 100 {
		t.Fatalf("rolled back balance=%d", cur.Balance)
	}

	err = s.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Accounts().ApplyBalanceDelta(ctx, a.ID, -50, repository.AnyVersion); err != nil {
			return err
		}
		_, err := tx.Accounts().ApplyBalanceDelta(ctx, b.ID, 50, repository.AnyVersion)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	ca, _ := s.Accounts().GetByID(ctx, a.ID)
	cb, _ := s.Accounts().GetByID(ctx, b.ID)
	if ca.Balance != 50 || cb.Balance != 50 {
		t.Fatalf("a=%d b=%d", ca.Balance, cb.Balance)
	}
}

func TestConcurrentDeltasNoLostUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := newAccount(t, s, "0171", "a@x.io", 0)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = s.WithTx(ctx, func(tx repository.Store) error {
				_, err := tx.Accounts().ApplyBalanceDelta(ctx, a.ID, 1, repository.AnyVersion)
				return err
			})
		}()
	}
	wg.Wait()
	if cur, _ := s.Accounts().GetByID(ctx, a.ID); cur.Balance != n {
		t.Fatalf("balance=%d want=%d", cur.Balance, n)
	}
}

func TestTransactionsUniqueKeysAndListing(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := "k-1"
	first, err := s.Transactions().Create(ctx, models.Transaction{
		Type: models.TxnSend, Status: models.TxnSuccessful, IdempotencyKey: &key,
		Sender: models.Party{ID: "s"}, Receiver: models.Party{ID: "r"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Transactions().Create(ctx, models.Transaction{IdempotencyKey: &key}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	second, _ := s.Transactions().Create(ctx, models.Transaction{
		Type: models.TxnSend, Status: models.TxnSuccessful, Sender: models.Party{ID: "r"}, Receiver: models.Party{ID: "x"},
	})

	got, err := s.Transactions().GetByIdempotencyKey(ctx, key)
	if err != nil || got.ID != first.ID {
		t.Fatalf("by key=%v err=%v", got.ID, err)
	}
	list, err := s.Transactions().ListByAccount(ctx, "r", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("list=%v", list)
	}
	if list, _ := s.Transactions().ListByAccount(ctx, "r", 10, 5); len(list) != 0 {
		t.Fatalf("offset past end returned %d", len(list))
	}
}
